package core3d

import (
	_ "embed"

	"github.com/Carmen-Shannon/oxy-postfx/engine/asset"
	"github.com/Carmen-Shannon/oxy-postfx/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-postfx/engine/renderer/shader"
)

// FullscreenVertexOutputSource defines FullscreenVertexOutput{position, uv}, the input of every
// full-screen fragment shader. Shaders get it with "//@oxy:include fullscreen_vertex_output".
//
//go:embed assets/fullscreen_vertex_output.wgsl
var FullscreenVertexOutputSource string

//go:embed assets/fullscreen.wgsl
var fullscreenSource string

//go:embed assets/blit.wgsl
var blitSource string

const (
	// FullscreenShaderPath is the embedded path of the full-screen vertex shader.
	FullscreenShaderPath = "core3d/fullscreen.wgsl"
	// FullscreenEntryPoint is its vertex entry point.
	FullscreenEntryPoint = "fullscreen_vertex_shader"

	blitShaderPath = "core3d/blit.wgsl"
)

func init() {
	shader.RegisterInclude("fullscreen_vertex_output", FullscreenVertexOutputSource)
}

// FullscreenVertexState returns the vertex stage drawing one screen-covering triangle with Draw(3, 1, 0, 0).
// It needs no vertex buffers and outputs uv in [0, 1] with (0, 0) at the top left.
//
// Returns:
//   - pipeline.VertexState: the vertex stage
func FullscreenVertexState() pipeline.VertexState {
	return pipeline.VertexState{
		Shader:     asset.EmbeddedHandle(FullscreenShaderPath),
		EntryPoint: FullscreenEntryPoint,
	}
}
