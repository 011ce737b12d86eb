package pipeline

import (
	"github.com/Carmen-Shannon/oxy-postfx/engine/asset"
	"github.com/Carmen-Shannon/oxy-postfx/engine/renderer/render_resource"
	"github.com/cogentcore/webgpu/wgpu"
)

// PipelineBuilderOption configures a RenderPipelineDescriptor.
type PipelineBuilderOption func(*RenderPipelineDescriptor)

// WithLayout sets the bind group layouts, one per group index starting at 0.
//
// Parameters:
//   - layouts: the bind group layouts
//
// Returns:
//   - PipelineBuilderOption: a function that sets the pipeline layout
func WithLayout(layouts ...render_resource.BindGroupLayout) PipelineBuilderOption {
	return func(d *RenderPipelineDescriptor) {
		d.Layout = layouts
	}
}

// WithFragment sets the fragment stage.
//
// Parameters:
//   - shader: the fragment shader asset
//   - entryPoint: the @fragment function name
//   - format: the color target format
//
// Returns:
//   - PipelineBuilderOption: a function that sets the fragment stage
func WithFragment(shader asset.Handle, entryPoint string, format wgpu.TextureFormat) PipelineBuilderOption {
	return func(d *RenderPipelineDescriptor) {
		d.Fragment = &FragmentState{Shader: shader, EntryPoint: entryPoint, Format: format}
	}
}

// WithBlendEnabled enables or disables blending with the target's existing contents.
//
// Parameters:
//   - enabled: true to blend using the pipeline's blend state
//
// Returns:
//   - PipelineBuilderOption: a function that sets blending
func WithBlendEnabled(enabled bool) PipelineBuilderOption {
	return func(d *RenderPipelineDescriptor) {
		d.blendEnabled = enabled
	}
}

// WithBlendState replaces the default alpha blend state. It has no effect unless blending is enabled.
//
// Parameters:
//   - blendState: the blend state
//
// Returns:
//   - PipelineBuilderOption: a function that sets the blend state
func WithBlendState(blendState *wgpu.BlendState) PipelineBuilderOption {
	return func(d *RenderPipelineDescriptor) {
		d.blendState = blendState
	}
}

// WithCullMode sets face culling.
func WithCullMode(mode wgpu.CullMode) PipelineBuilderOption {
	return func(d *RenderPipelineDescriptor) {
		d.cullMode = mode
	}
}

// WithTopology sets the primitive topology.
func WithTopology(topology wgpu.PrimitiveTopology) PipelineBuilderOption {
	return func(d *RenderPipelineDescriptor) {
		d.topology = topology
	}
}

// WithFrontFace sets the winding order of front faces.
func WithFrontFace(frontFace wgpu.FrontFace) PipelineBuilderOption {
	return func(d *RenderPipelineDescriptor) {
		d.frontFace = frontFace
	}
}

// WithWriteMask sets which color channels are written.
func WithWriteMask(writeMask wgpu.ColorWriteMask) PipelineBuilderOption {
	return func(d *RenderPipelineDescriptor) {
		d.writeMask = writeMask
	}
}

// WithSampleCount sets the multisample count of the color target.
func WithSampleCount(count uint32) PipelineBuilderOption {
	return func(d *RenderPipelineDescriptor) {
		d.sampleCount = max(count, 1)
	}
}
