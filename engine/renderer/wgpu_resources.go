package renderer

import (
	"errors"
	"sync"

	"github.com/Carmen-Shannon/oxy-postfx/common"
	"github.com/Carmen-Shannon/oxy-postfx/engine/renderer/render_resource"
	"github.com/cogentcore/webgpu/wgpu"
)

// wgpuResource releases its native object at most once.
type wgpuResource struct {
	label   string
	release func()
	once    sync.Once
}

func (r *wgpuResource) Label() string {
	return r.label
}

func (r *wgpuResource) Release() {
	r.once.Do(func() {
		if r.release != nil {
			r.release()
		}
	})
}

type wgpuBuffer struct {
	wgpuResource
	buffer *wgpu.Buffer
	size   uint64
	usage  wgpu.BufferUsage
}

func (b *wgpuBuffer) Size() uint64 { return b.size }

func (b *wgpuBuffer) Usage() wgpu.BufferUsage { return b.usage }

type wgpuTexture struct {
	wgpuResource
	texture *wgpu.Texture
	size    common.Extent
	format  wgpu.TextureFormat
}

func (t *wgpuTexture) Size() common.Extent { return t.size }

func (t *wgpuTexture) Format() wgpu.TextureFormat { return t.format }

func (t *wgpuTexture) CreateView() (render_resource.TextureView, error) {
	view, err := t.texture.CreateView(nil)
	if err != nil {
		return nil, err
	}
	return &wgpuTextureView{wgpuResource: wgpuResource{label: t.label + " View", release: view.Release}, view: view, texture: t}, nil
}

type wgpuTextureView struct {
	wgpuResource
	view    *wgpu.TextureView
	texture render_resource.Texture
}

func (v *wgpuTextureView) Texture() render_resource.Texture { return v.texture }

type wgpuSampler struct {
	wgpuResource
	sampler *wgpu.Sampler
	desc    common.SamplerStagingData
}

func (s *wgpuSampler) Descriptor() common.SamplerStagingData { return s.desc }

type wgpuBindGroupLayout struct {
	wgpuResource
	layout  *wgpu.BindGroupLayout
	entries []wgpu.BindGroupLayoutEntry
}

func (l *wgpuBindGroupLayout) Entries() []wgpu.BindGroupLayoutEntry { return l.entries }

type wgpuBindGroup struct {
	wgpuResource
	group  *wgpu.BindGroup
	layout *wgpuBindGroupLayout
}

func (g *wgpuBindGroup) Layout() render_resource.BindGroupLayout { return g.layout }

type wgpuShaderModule struct {
	wgpuResource
	module *wgpu.ShaderModule
}

type wgpuRenderPipeline struct {
	wgpuResource
	pipeline *wgpu.RenderPipeline
}

type wgpuCommandBuffer struct {
	wgpuResource
	buffer *wgpu.CommandBuffer
}

type wgpuCommandEncoder struct {
	wgpuResource
	encoder *wgpu.CommandEncoder
}

func (e *wgpuCommandEncoder) BeginRenderPass(desc render_resource.RenderPassDescriptor) render_resource.RenderPass {
	attachments := make([]wgpu.RenderPassColorAttachment, 0, len(desc.ColorAttachments))
	for _, a := range desc.ColorAttachments {
		view, ok := a.View.(*wgpuTextureView)
		if !ok {
			continue
		}
		attachments = append(attachments, wgpu.RenderPassColorAttachment{
			View:       view.view,
			LoadOp:     a.LoadOp,
			StoreOp:    a.StoreOp,
			ClearValue: a.ClearValue,
		})
	}
	pass := e.encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label:            desc.Label,
		ColorAttachments: attachments,
	})
	return &wgpuRenderPass{pass: pass}
}

func (e *wgpuCommandEncoder) Finish() (render_resource.CommandBuffer, error) {
	cb, err := e.encoder.Finish(nil)
	if err != nil {
		return nil, err
	}
	return &wgpuCommandBuffer{wgpuResource: wgpuResource{label: e.label, release: cb.Release}, buffer: cb}, nil
}

type wgpuRenderPass struct {
	pass  *wgpu.RenderPassEncoder
	ended bool
}

func (p *wgpuRenderPass) SetPipeline(pipeline render_resource.RenderPipeline) {
	if rp, ok := pipeline.(*wgpuRenderPipeline); ok {
		p.pass.SetPipeline(rp.pipeline)
	}
}

func (p *wgpuRenderPass) SetBindGroup(index uint32, group render_resource.BindGroup, offsets []uint32) {
	if bg, ok := group.(*wgpuBindGroup); ok {
		p.pass.SetBindGroup(index, bg.group, offsets)
	}
}

func (p *wgpuRenderPass) SetViewport(x, y, width, height, minDepth, maxDepth float32) {
	p.pass.SetViewport(x, y, width, height, minDepth, maxDepth)
}

func (p *wgpuRenderPass) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	p.pass.Draw(vertexCount, instanceCount, firstVertex, firstInstance)
}

func (p *wgpuRenderPass) End() error {
	if p.ended {
		return errors.New("render pass already ended")
	}
	p.ended = true
	p.pass.End()
	p.pass.Release()
	return nil
}
