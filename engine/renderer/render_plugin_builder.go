package renderer

import (
	"github.com/Carmen-Shannon/oxy-postfx/engine/renderer/render_resource"
)

// RenderPluginBuilderOption configures a RenderPlugin.
type RenderPluginBuilderOption func(*RenderPlugin)

// WithRenderDevice sets the device the render world draws with.
//
// Parameters:
//   - device: the render device
//
// Returns:
//   - RenderPluginBuilderOption: a function that sets the device
func WithRenderDevice(device render_resource.RenderDevice) RenderPluginBuilderOption {
	return func(p *RenderPlugin) {
		p.device = device
	}
}

// WithSurface sets the surface frames are presented to.
//
// Parameters:
//   - surface: the window surface
//
// Returns:
//   - RenderPluginBuilderOption: a function that sets the surface
func WithSurface(surface render_resource.Surface) RenderPluginBuilderOption {
	return func(p *RenderPlugin) {
		p.surface = surface
	}
}

// WithSynchronousPipelineCompilation creates ready pipelines within the frame that finds their
// shaders loaded instead of on worker goroutines. Tests use it for deterministic frames.
func WithSynchronousPipelineCompilation() RenderPluginBuilderOption {
	return func(p *RenderPlugin) {
		p.syncPipelines = true
	}
}

// WithPipelineCompileWorkers sets the number of goroutines creating pipelines.
func WithPipelineCompileWorkers(n int) RenderPluginBuilderOption {
	return func(p *RenderPlugin) {
		p.compileWorkers = max(n, 1)
	}
}
