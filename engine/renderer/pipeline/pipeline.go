package pipeline

import (
	"github.com/Carmen-Shannon/oxy-postfx/engine/asset"
	"github.com/Carmen-Shannon/oxy-postfx/engine/renderer/render_resource"
	"github.com/cogentcore/webgpu/wgpu"
)

// VertexState names the shader and entry point of a pipeline's vertex stage.
type VertexState struct {
	Shader     asset.Handle
	EntryPoint string
}

// FragmentState names the shader and entry point of a pipeline's fragment stage and the
// format of its single color target.
type FragmentState struct {
	Shader     asset.Handle
	EntryPoint string
	Format     wgpu.TextureFormat
}

// RenderPipelineDescriptor describes a render pipeline in terms of asset handles, so it can be
// queued before its shaders have loaded. The cache resolves it into a
// render_resource.RenderPipelineDescriptor once they have.
type RenderPipelineDescriptor struct {
	// Label is the debug label of the pipeline.
	Label string
	// Layout holds one bind group layout per group index.
	Layout []render_resource.BindGroupLayout
	// Vertex is the vertex stage.
	Vertex VertexState
	// Fragment is the fragment stage, or nil for a depth-only pipeline.
	Fragment *FragmentState

	blendEnabled bool
	blendState   *wgpu.BlendState
	writeMask    wgpu.ColorWriteMask
	cullMode     wgpu.CullMode
	topology     wgpu.PrimitiveTopology
	frontFace    wgpu.FrontFace
	sampleCount  uint32
}

// NewRenderPipelineDescriptor creates a descriptor for a triangle-list pipeline without culling,
// blending or multisampling. Use the builder options to change any of these.
//
// Parameters:
//   - label: debug label of the pipeline
//   - vertex: the vertex stage
//   - opts: functional options applied in order
//
// Returns:
//   - RenderPipelineDescriptor: the descriptor
func NewRenderPipelineDescriptor(label string, vertex VertexState, opts ...PipelineBuilderOption) RenderPipelineDescriptor {
	d := RenderPipelineDescriptor{
		Label:       label,
		Vertex:      vertex,
		writeMask:   wgpu.ColorWriteMaskAll,
		cullMode:    wgpu.CullModeNone,
		topology:    wgpu.PrimitiveTopologyTriangleList,
		frontFace:   wgpu.FrontFaceCCW,
		sampleCount: 1,
		blendState: &wgpu.BlendState{
			Color: wgpu.BlendComponent{
				SrcFactor: wgpu.BlendFactorSrcAlpha,
				DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
				Operation: wgpu.BlendOperationAdd,
			},
			Alpha: wgpu.BlendComponent{
				SrcFactor: wgpu.BlendFactorOne,
				DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
				Operation: wgpu.BlendOperationAdd,
			},
		},
	}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

// BlendEnabled reports whether the color target blends with the existing contents.
func (d RenderPipelineDescriptor) BlendEnabled() bool {
	return d.blendEnabled
}

// CullMode returns the face culling mode.
func (d RenderPipelineDescriptor) CullMode() wgpu.CullMode {
	return d.cullMode
}

// Topology returns the primitive topology.
func (d RenderPipelineDescriptor) Topology() wgpu.PrimitiveTopology {
	return d.topology
}

// WriteMask returns the color write mask.
func (d RenderPipelineDescriptor) WriteMask() wgpu.ColorWriteMask {
	return d.writeMask
}

// SampleCount returns the multisample count.
func (d RenderPipelineDescriptor) SampleCount() uint32 {
	return d.sampleCount
}

// Shaders returns the distinct shader handles the pipeline depends on.
func (d RenderPipelineDescriptor) Shaders() []asset.Handle {
	out := []asset.Handle{d.Vertex.Shader}
	if d.Fragment != nil && d.Fragment.Shader != d.Vertex.Shader {
		out = append(out, d.Fragment.Shader)
	}
	return out
}

// resolve builds the device descriptor from compiled modules. fs is ignored when there is no fragment stage.
func (d RenderPipelineDescriptor) resolve(vs, fs render_resource.ShaderModule) render_resource.RenderPipelineDescriptor {
	out := render_resource.RenderPipelineDescriptor{
		Label:   d.Label,
		Layouts: d.Layout,
		Vertex:  render_resource.ProgrammableStage{Module: vs, EntryPoint: d.Vertex.EntryPoint},
		Primitive: wgpu.PrimitiveState{
			Topology:  d.topology,
			FrontFace: d.frontFace,
			CullMode:  d.cullMode,
		},
		Multisample: wgpu.MultisampleState{
			Count:                  d.sampleCount,
			Mask:                   0xFFFFFFFF,
			AlphaToCoverageEnabled: false,
		},
	}
	if d.Fragment != nil {
		target := wgpu.ColorTargetState{
			Format:    d.Fragment.Format,
			WriteMask: d.writeMask,
		}
		if d.blendEnabled {
			target.Blend = d.blendState
		}
		out.Fragment = &render_resource.FragmentStage{
			ProgrammableStage: render_resource.ProgrammableStage{Module: fs, EntryPoint: d.Fragment.EntryPoint},
			Targets:           []wgpu.ColorTargetState{target},
		}
	}
	return out
}
