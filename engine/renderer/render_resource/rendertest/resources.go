package rendertest

import (
	"github.com/Carmen-Shannon/oxy-postfx/common"
	"github.com/Carmen-Shannon/oxy-postfx/engine/renderer/render_resource"
	"github.com/cogentcore/webgpu/wgpu"
)

type base struct {
	id       int
	label    string
	released bool
}

func (b *base) Label() string { return b.label }

func (b *base) Release() { b.released = true }

// ID returns the creation order of the resource within its device.
func (b *base) ID() int { return b.id }

// Released reports whether Release has been called.
func (b *base) Released() bool { return b.released }

// Buffer stores its contents in memory.
type Buffer struct {
	base
	usage wgpu.BufferUsage
	Data  []byte
}

func (b *Buffer) Size() uint64 { return uint64(len(b.Data)) }

func (b *Buffer) Usage() wgpu.BufferUsage { return b.usage }

// Texture stores the bytes last written to it by a simulated clear or draw.
type Texture struct {
	base
	size     common.Extent
	format   wgpu.TextureFormat
	usage    wgpu.TextureUsage
	Contents []byte
}

func (t *Texture) Size() common.Extent { return t.size }

func (t *Texture) Format() wgpu.TextureFormat { return t.format }

func (t *Texture) CreateView() (render_resource.TextureView, error) {
	return &TextureView{base: base{label: t.label + "_view"}, texture: t}, nil
}

// TextureView shares its texture's contents with every other view of that texture.
type TextureView struct {
	base
	texture *Texture
}

func (v *TextureView) Texture() render_resource.Texture { return v.texture }

// Contents returns the contents of the viewed texture.
func (v *TextureView) Contents() []byte { return v.texture.Contents }

// SetContents replaces the contents of the viewed texture.
func (v *TextureView) SetContents(b []byte) { v.texture.Contents = append([]byte(nil), b...) }

// Sampler records its configuration.
type Sampler struct {
	base
	desc common.SamplerStagingData
}

func (s *Sampler) Descriptor() common.SamplerStagingData { return s.desc }

// BindGroupLayout records its entries.
type BindGroupLayout struct {
	base
	entries []wgpu.BindGroupLayoutEntry
}

func (l *BindGroupLayout) Entries() []wgpu.BindGroupLayoutEntry { return l.entries }

// BindGroup records its descriptor.
type BindGroup struct {
	base
	Desc render_resource.BindGroupDescriptor
}

func (g *BindGroup) Layout() render_resource.BindGroupLayout { return g.Desc.Layout }

// ShaderModule records its source.
type ShaderModule struct {
	base
	Source string
}

// RenderPipeline records its descriptor.
type RenderPipeline struct {
	base
	Desc render_resource.RenderPipelineDescriptor
}

// CommandBuffer holds the passes recorded by its encoder.
type CommandBuffer struct {
	base
	Passes []*Pass
}
