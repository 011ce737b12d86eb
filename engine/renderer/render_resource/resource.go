// Package render_resource defines the backend-neutral GPU objects the renderer works with.
// The WGPU implementation lives in the renderer package; tests use the recording device in rendertest.
package render_resource

import (
	"github.com/Carmen-Shannon/oxy-postfx/common"
	"github.com/cogentcore/webgpu/wgpu"
)

// Resource is any GPU object owned by the render world.
type Resource interface {
	// Label returns the debug label the resource was created with.
	Label() string

	// Release frees the underlying GPU object. Releasing twice is a no-op.
	Release()
}

// Buffer is a GPU buffer.
type Buffer interface {
	Resource

	// Size returns the buffer size in bytes.
	Size() uint64

	// Usage returns the usage flags the buffer was created with.
	Usage() wgpu.BufferUsage
}

// Texture is a GPU texture.
type Texture interface {
	Resource

	// Size returns the texture's width and height in pixels.
	Size() common.Extent

	// Format returns the texel format.
	Format() wgpu.TextureFormat

	// CreateView creates a default view covering the whole texture.
	//
	// Returns:
	//   - TextureView: the new view
	//   - error: an error if the backend rejects the view
	CreateView() (TextureView, error)
}

// TextureView is a view of a texture that can be bound or rendered into.
type TextureView interface {
	Resource

	// Texture returns the texture the view was created from, or nil for surface views created by the backend.
	Texture() Texture
}

// Sampler is a texture sampler.
type Sampler interface {
	Resource

	// Descriptor returns the resolved sampler configuration.
	Descriptor() common.SamplerStagingData
}

// BindGroupLayout describes the resources a bind group must provide.
type BindGroupLayout interface {
	Resource

	// Entries returns the layout entries in binding order.
	Entries() []wgpu.BindGroupLayoutEntry
}

// BindGroup is a set of resources bound together at one group index.
type BindGroup interface {
	Resource

	// Layout returns the layout the group was created against.
	Layout() BindGroupLayout
}

// ShaderModule is compiled shader code.
type ShaderModule interface {
	Resource
}

// RenderPipeline is a compiled render pipeline.
type RenderPipeline interface {
	Resource
}

// CommandBuffer is a finished, submittable list of GPU commands.
type CommandBuffer interface {
	Resource
}
