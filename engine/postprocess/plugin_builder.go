package postprocess

import (
	"github.com/Carmen-Shannon/oxy-postfx/engine/renderer/pipeline"
)

// PluginBuilderOption configures a post-process Plugin.
type PluginBuilderOption func(*config)

// WithDebugLabel sets the debug label of the render pipeline. It defaults to "<label>_pipeline".
//
// Parameters:
//   - label: the pipeline label
//
// Returns:
//   - PluginBuilderOption: a function that sets the debug label
func WithDebugLabel(label string) PluginBuilderOption {
	return func(c *config) {
		c.debugLabel = label
	}
}

// WithLayoutLabel sets the debug label of the bind group layout. It defaults to "<label>_bind_group_layout".
func WithLayoutLabel(label string) PluginBuilderOption {
	return func(c *config) {
		c.layoutLabel = label
	}
}

// WithVertexState replaces the full-screen vertex stage. The replacement must still output
// FullscreenVertexOutput and cover the screen with three vertices.
func WithVertexState(vertex pipeline.VertexState) PluginBuilderOption {
	return func(c *config) {
		c.vertex = &vertex
	}
}

// WithPipelineOptions forwards options to the render pipeline descriptor, e.g. pipeline.WithBlendEnabled.
func WithPipelineOptions(options ...pipeline.PipelineBuilderOption) PluginBuilderOption {
	return func(c *config) {
		c.pipelineOptions = append(c.pipelineOptions, options...)
	}
}

// WithFragmentEntryPoint sets the fragment entry point. It defaults to "fragment".
func WithFragmentEntryPoint(entryPoint string) PluginBuilderOption {
	return func(c *config) {
		c.entryPoint = entryPoint
	}
}
