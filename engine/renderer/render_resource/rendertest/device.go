// Package rendertest provides an in-memory render device that records every command and
// simulates clears and draws, so render graph nodes can be tested without a GPU.
package rendertest

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-postfx/common"
	"github.com/Carmen-Shannon/oxy-postfx/engine/renderer/render_resource"
	"github.com/cogentcore/webgpu/wgpu"
)

// DrawInput is what a simulated draw can see: the resources bound at draw time, in group then binding order.
type DrawInput struct {
	Pipeline *RenderPipeline
	Target   *TextureView
	// Textures holds the bound texture views.
	Textures []*TextureView
	// Uniforms holds, per bound buffer, the bytes selected by its offset, dynamic offset and size.
	Uniforms [][]byte
}

// ShadeFunc computes the new contents of a draw's target.
type ShadeFunc func(in DrawInput) []byte

// DeviceBuilderOption configures a Device.
type DeviceBuilderOption func(*Device)

// WithAlignment sets the dynamic uniform offset alignment the device reports.
func WithAlignment(alignment uint32) DeviceBuilderOption {
	return func(d *Device) {
		d.limits.MinUniformBufferOffsetAlignment = alignment
	}
}

// WithShade sets the function that simulates fragment output for draws.
// Without one, draws leave their target unchanged.
func WithShade(fn ShadeFunc) DeviceBuilderOption {
	return func(d *Device) {
		d.shade = fn
	}
}

// WithShaderModuleError makes CreateShaderModule fail whenever fn returns an error.
func WithShaderModuleError(fn func(label, source string) error) DeviceBuilderOption {
	return func(d *Device) {
		d.shaderErr = fn
	}
}

// WithPipelineHook calls fn at the start of every CreateRenderPipeline, outside the device lock.
// Tests use it to hold a pipeline creation in flight.
func WithPipelineHook(fn func(desc render_resource.RenderPipelineDescriptor)) DeviceBuilderOption {
	return func(d *Device) {
		d.pipelineHook = fn
	}
}

// Device is an in-memory render_resource.RenderDevice.
type Device struct {
	mu sync.Mutex

	limits    render_resource.Limits
	shade     ShadeFunc
	shaderErr func(label, source string) error
	nextID    int

	pipelineHook func(desc render_resource.RenderPipelineDescriptor)

	Buffers          []*Buffer
	Textures         []*Texture
	Samplers         []*Sampler
	BindGroupLayouts []*BindGroupLayout
	BindGroups       []*BindGroup
	ShaderModules    []*ShaderModule
	Pipelines        []*RenderPipeline
	Submitted        []*CommandBuffer
}

var _ render_resource.RenderDevice = &Device{}

// NewDevice creates a Device with the WebGPU default alignment.
func NewDevice(options ...DeviceBuilderOption) *Device {
	d := &Device{
		limits: render_resource.Limits{MinUniformBufferOffsetAlignment: render_resource.DefaultMinUniformBufferOffsetAlignment},
	}
	for _, option := range options {
		option(d)
	}
	return d
}

func (d *Device) id() int {
	d.nextID++
	return d.nextID
}

func (d *Device) Limits() render_resource.Limits {
	return d.limits
}

func (d *Device) CreateBuffer(desc render_resource.BufferDescriptor) (render_resource.Buffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if desc.Size == 0 {
		return nil, fmt.Errorf("rendertest: buffer %q has zero size", desc.Label)
	}
	b := &Buffer{base: base{id: d.id(), label: desc.Label}, usage: desc.Usage, Data: make([]byte, desc.Size)}
	d.Buffers = append(d.Buffers, b)
	return b, nil
}

func (d *Device) CreateTexture(desc render_resource.TextureDescriptor) (render_resource.Texture, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if desc.Width == 0 || desc.Height == 0 {
		return nil, fmt.Errorf("rendertest: texture %q has zero size", desc.Label)
	}
	t := &Texture{
		base:   base{id: d.id(), label: desc.Label},
		size:   common.Extent{Width: desc.Width, Height: desc.Height},
		format: desc.Format,
		usage:  desc.Usage,
	}
	d.Textures = append(d.Textures, t)
	return t, nil
}

func (d *Device) CreateSampler(label string, data common.SamplerStagingData) (render_resource.Sampler, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	s := &Sampler{base: base{id: d.id(), label: label}, desc: data}
	d.Samplers = append(d.Samplers, s)
	return s, nil
}

func (d *Device) CreateBindGroupLayout(desc render_resource.BindGroupLayoutDescriptor) (render_resource.BindGroupLayout, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	l := &BindGroupLayout{base: base{id: d.id(), label: desc.Label}, entries: append([]wgpu.BindGroupLayoutEntry(nil), desc.Entries...)}
	d.BindGroupLayouts = append(d.BindGroupLayouts, l)
	return l, nil
}

func (d *Device) CreateBindGroup(desc render_resource.BindGroupDescriptor) (render_resource.BindGroup, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if desc.Layout == nil {
		return nil, fmt.Errorf("rendertest: bind group %q has no layout", desc.Label)
	}
	layout := desc.Layout.Entries()
	if len(layout) != len(desc.Entries) {
		return nil, fmt.Errorf("rendertest: bind group %q has %d entries, layout expects %d", desc.Label, len(desc.Entries), len(layout))
	}
	for i, e := range desc.Entries {
		if e.Binding != layout[i].Binding {
			return nil, fmt.Errorf("rendertest: bind group %q entry %d has binding %d, layout has %d", desc.Label, i, e.Binding, layout[i].Binding)
		}
		if err := checkEntryKind(e, layout[i]); err != nil {
			return nil, fmt.Errorf("rendertest: bind group %q binding %d: %w", desc.Label, e.Binding, err)
		}
	}
	g := &BindGroup{base: base{id: d.id(), label: desc.Label}, Desc: desc}
	d.BindGroups = append(d.BindGroups, g)
	return g, nil
}

func checkEntryKind(e render_resource.BindGroupEntry, l wgpu.BindGroupLayoutEntry) error {
	switch {
	case l.Buffer.Type != wgpu.BufferBindingTypeUndefined:
		if e.Buffer == nil {
			return fmt.Errorf("layout expects a buffer")
		}
		if e.Size < l.Buffer.MinBindingSize {
			return fmt.Errorf("binding size %d below minimum %d", e.Size, l.Buffer.MinBindingSize)
		}
	case l.Sampler.Type != wgpu.SamplerBindingTypeUndefined:
		if e.Sampler == nil {
			return fmt.Errorf("layout expects a sampler")
		}
	case l.Texture.SampleType != wgpu.TextureSampleTypeUndefined:
		if e.TextureView == nil {
			return fmt.Errorf("layout expects a texture view")
		}
	}
	return nil
}

func (d *Device) CreateShaderModule(label, source string) (render_resource.ShaderModule, error) {
	if d.shaderErr != nil {
		if err := d.shaderErr(label, source); err != nil {
			return nil, err
		}
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	m := &ShaderModule{base: base{id: d.id(), label: label}, Source: source}
	d.ShaderModules = append(d.ShaderModules, m)
	return m, nil
}

func (d *Device) CreateRenderPipeline(desc render_resource.RenderPipelineDescriptor) (render_resource.RenderPipeline, error) {
	if d.pipelineHook != nil {
		d.pipelineHook(desc)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if desc.Vertex.Module == nil {
		return nil, fmt.Errorf("rendertest: pipeline %q has no vertex module", desc.Label)
	}
	p := &RenderPipeline{base: base{id: d.id(), label: desc.Label}, Desc: desc}
	d.Pipelines = append(d.Pipelines, p)
	return p, nil
}

func (d *Device) CreateCommandEncoder(label string) (render_resource.CommandEncoder, error) {
	return &CommandEncoder{device: d, label: label}, nil
}

func (d *Device) WriteBuffer(buffer render_resource.Buffer, offset uint64, data []byte) error {
	b, ok := buffer.(*Buffer)
	if !ok {
		return fmt.Errorf("rendertest: foreign buffer %T", buffer)
	}
	if offset+uint64(len(data)) > uint64(len(b.Data)) {
		return fmt.Errorf("rendertest: write of %d bytes at %d overflows buffer %q of %d bytes", len(data), offset, b.label, len(b.Data))
	}
	copy(b.Data[offset:], data)
	return nil
}

func (d *Device) Submit(buffers ...render_resource.CommandBuffer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, b := range buffers {
		d.Submitted = append(d.Submitted, b.(*CommandBuffer))
	}
}

// Passes returns every submitted pass in submission order.
func (d *Device) Passes() []*Pass {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []*Pass
	for _, cb := range d.Submitted {
		out = append(out, cb.Passes...)
	}
	return out
}

// PassesLabeled returns the submitted passes with the given label.
func (d *Device) PassesLabeled(label string) []*Pass {
	var out []*Pass
	for _, p := range d.Passes() {
		if p.Desc.Label == label {
			out = append(out, p)
		}
	}
	return out
}

// ResetSubmitted forgets submitted command buffers.
func (d *Device) ResetSubmitted() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Submitted = nil
}

// LiveBindGroups returns the number of bind groups not yet released.
func (d *Device) LiveBindGroups() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, g := range d.BindGroups {
		if !g.released {
			n++
		}
	}
	return n
}
