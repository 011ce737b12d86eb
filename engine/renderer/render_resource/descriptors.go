package render_resource

import (
	"github.com/cogentcore/webgpu/wgpu"
)

// BufferDescriptor describes a buffer to create.
type BufferDescriptor struct {
	Label string
	Size  uint64
	Usage wgpu.BufferUsage
}

// TextureDescriptor describes a single-sample 2D texture with one mip level.
type TextureDescriptor struct {
	Label  string
	Width  uint32
	Height uint32
	Format wgpu.TextureFormat
	Usage  wgpu.TextureUsage
}

// BindGroupLayoutDescriptor describes a bind group layout.
type BindGroupLayoutDescriptor struct {
	Label   string
	Entries []wgpu.BindGroupLayoutEntry
}

// BindGroupEntry binds exactly one of Buffer, Sampler or TextureView at Binding.
type BindGroupEntry struct {
	Binding     uint32
	Buffer      Buffer
	Offset      uint64
	Size        uint64
	Sampler     Sampler
	TextureView TextureView
}

// BindGroupDescriptor describes a bind group.
type BindGroupDescriptor struct {
	Label   string
	Layout  BindGroupLayout
	Entries []BindGroupEntry
}

// ProgrammableStage names a shader module and the entry point used from it.
type ProgrammableStage struct {
	Module     ShaderModule
	EntryPoint string
}

// FragmentStage is a ProgrammableStage plus the color targets it writes.
type FragmentStage struct {
	ProgrammableStage
	Targets []wgpu.ColorTargetState
}

// RenderPipelineDescriptor is the fully resolved pipeline description handed to the device.
// The pipeline cache builds it from a pipeline.RenderPipelineDescriptor once its shaders are loaded.
type RenderPipelineDescriptor struct {
	Label       string
	Layouts     []BindGroupLayout
	Vertex      ProgrammableStage
	Fragment    *FragmentStage
	Primitive   wgpu.PrimitiveState
	Multisample wgpu.MultisampleState
}

// ColorAttachment is one render target of a render pass.
type ColorAttachment struct {
	View       TextureView
	LoadOp     wgpu.LoadOp
	StoreOp    wgpu.StoreOp
	ClearValue wgpu.Color
}

// RenderPassDescriptor describes a render pass.
type RenderPassDescriptor struct {
	Label            string
	ColorAttachments []ColorAttachment
}

// LoadStore returns an attachment that keeps the existing contents of view and stores the result.
//
// Parameters:
//   - view: the render target
//
// Returns:
//   - ColorAttachment: a load/store attachment
func LoadStore(view TextureView) ColorAttachment {
	return ColorAttachment{View: view, LoadOp: wgpu.LoadOpLoad, StoreOp: wgpu.StoreOpStore}
}

// ClearStore returns an attachment that clears view to color and stores the result.
//
// Parameters:
//   - view: the render target
//   - color: the clear color
//
// Returns:
//   - ColorAttachment: a clear/store attachment
func ClearStore(view TextureView, color wgpu.Color) ColorAttachment {
	return ColorAttachment{View: view, LoadOp: wgpu.LoadOpClear, StoreOp: wgpu.StoreOpStore, ClearValue: color}
}
