package render_resource

import (
	"github.com/Carmen-Shannon/oxy-postfx/common"
	"github.com/cogentcore/webgpu/wgpu"
)

// DefaultMinUniformBufferOffsetAlignment is the WebGPU default for dynamic uniform offsets.
const DefaultMinUniformBufferOffsetAlignment = 256

// DefaultTextureFormat is the format of view main textures and post-process color targets.
const DefaultTextureFormat = wgpu.TextureFormatRGBA8UnormSrgb

// Limits holds the device limits the renderer depends on.
type Limits struct {
	// MinUniformBufferOffsetAlignment is the required alignment of dynamic uniform offsets.
	MinUniformBufferOffsetAlignment uint32
}

// RenderDevice creates GPU resources and submits work. Implementations must be safe to call from
// worker goroutines for resource creation; encoding and submission happen on the render goroutine.
type RenderDevice interface {
	// Limits returns the device limits.
	Limits() Limits

	// CreateBuffer creates a zero-filled buffer.
	CreateBuffer(desc BufferDescriptor) (Buffer, error)

	// CreateTexture creates a 2D texture.
	CreateTexture(desc TextureDescriptor) (Texture, error)

	// CreateSampler creates a sampler. Zero-valued fields of data take the device defaults.
	//
	// Parameters:
	//   - label: debug label
	//   - data: the sampler configuration
	CreateSampler(label string, data common.SamplerStagingData) (Sampler, error)

	// CreateBindGroupLayout creates a bind group layout.
	CreateBindGroupLayout(desc BindGroupLayoutDescriptor) (BindGroupLayout, error)

	// CreateBindGroup creates a bind group.
	CreateBindGroup(desc BindGroupDescriptor) (BindGroup, error)

	// CreateShaderModule compiles WGSL source.
	//
	// Parameters:
	//   - label: debug label
	//   - source: pre-processed WGSL source
	CreateShaderModule(label, source string) (ShaderModule, error)

	// CreateRenderPipeline creates a render pipeline with an explicit layout.
	CreateRenderPipeline(desc RenderPipelineDescriptor) (RenderPipeline, error)

	// CreateCommandEncoder starts recording commands.
	CreateCommandEncoder(label string) (CommandEncoder, error)

	// WriteBuffer schedules a write of data into buffer at offset.
	WriteBuffer(buffer Buffer, offset uint64, data []byte) error

	// Submit executes command buffers in order.
	Submit(buffers ...CommandBuffer)
}

// CommandEncoder records render passes.
type CommandEncoder interface {
	// BeginRenderPass starts a render pass. The pass must be ended before another begins.
	BeginRenderPass(desc RenderPassDescriptor) RenderPass

	// Finish ends recording.
	//
	// Returns:
	//   - CommandBuffer: the recorded commands
	//   - error: an error if recording failed
	Finish() (CommandBuffer, error)

	// Release frees the encoder. Calling it after Finish is allowed.
	Release()
}

// RenderPass records draw state and draw calls.
type RenderPass interface {
	// SetPipeline selects the pipeline for subsequent draws.
	SetPipeline(pipeline RenderPipeline)

	// SetBindGroup binds group at index. offsets supplies one value per dynamic-offset binding, in binding order.
	SetBindGroup(index uint32, group BindGroup, offsets []uint32)

	// SetViewport restricts rasterization to the given rectangle in pixels.
	SetViewport(x, y, width, height, minDepth, maxDepth float32)

	// Draw issues a non-indexed draw.
	Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32)

	// End closes the pass.
	End() error
}

// Surface is the window surface frames are presented to.
type Surface interface {
	// Format returns the surface texel format.
	Format() wgpu.TextureFormat

	// Size returns the configured surface size.
	Size() common.Extent

	// Configure resizes the surface. A zero size is ignored.
	Configure(size common.Extent) error

	// AcquireTexture returns a view of the next surface texture. It stays valid until Present.
	AcquireTexture() (TextureView, error)

	// Present shows the acquired texture and releases it.
	Present()
}
