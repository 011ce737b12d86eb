package renderer

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/Carmen-Shannon/oxy-postfx/common"
	"github.com/Carmen-Shannon/oxy-postfx/engine/renderer/render_resource"
	"github.com/cogentcore/webgpu/wgpu"
)

type wgpuRenderDeviceImpl struct {
	mu     *sync.Mutex
	device *wgpu.Device
	queue  *wgpu.Queue

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	surface  *wgpuSurfaceImpl

	limits      wgpu.Limits
	presentMode PresentMode
	fallback    bool
}

// WGPURenderDevice is the render device backed by a native WebGPU device, plus the window surface it presents to.
type WGPURenderDevice interface {
	render_resource.RenderDevice

	// Surface returns the window surface created alongside the device.
	Surface() render_resource.Surface

	// Release destroys the surface, device, adapter and instance.
	Release()
}

var _ WGPURenderDevice = &wgpuRenderDeviceImpl{}

// NewWGPURenderDevice creates a WebGPU instance, a surface from surfaceDescriptor, and a device compatible with it.
// The surface is left unconfigured until Surface().Configure is called with the window size.
//
// Parameters:
//   - surfaceDescriptor: the platform surface descriptor, usually from the window
//   - options: functional options to configure the device
//
// Returns:
//   - WGPURenderDevice: the device
//   - error: an error if no adapter or device could be obtained
func NewWGPURenderDevice(surfaceDescriptor *wgpu.SurfaceDescriptor, options ...WGPURenderDeviceBuilderOption) (WGPURenderDevice, error) {
	runtime.LockOSThread()
	d := &wgpuRenderDeviceImpl{
		mu:          &sync.Mutex{},
		instance:    wgpu.CreateInstance(nil),
		presentMode: PresentModeVSync,
	}
	for _, option := range options {
		option(d)
	}

	surface := d.instance.CreateSurface(surfaceDescriptor)
	a, err := d.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: d.fallback,
		CompatibleSurface:    surface,
	})
	if err != nil {
		surface.Release()
		d.instance.Release()
		return nil, fmt.Errorf("request adapter: %w", err)
	}
	d.adapter = a

	d.limits = wgpu.DefaultLimits()
	dev, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Main Device",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: d.limits,
		},
	})
	if err != nil {
		surface.Release()
		a.Release()
		d.instance.Release()
		return nil, fmt.Errorf("request device: %w", err)
	}
	d.device = dev
	d.queue = dev.GetQueue()

	capabilities := surface.GetCapabilities(a)
	if len(capabilities.Formats) == 0 {
		d.Release()
		surface.Release()
		return nil, errors.New("surface reports no supported formats")
	}
	d.surface = &wgpuSurfaceImpl{
		device:      d,
		surface:     surface,
		format:      capabilities.Formats[0],
		alphaMode:   capabilities.AlphaModes[0],
		presentMode: d.presentMode.wgpu(),
	}
	common.Logger().Info("wgpu device created", "surface_format", d.surface.format, "present_mode", d.presentMode.String())
	return d, nil
}

func (d *wgpuRenderDeviceImpl) Surface() render_resource.Surface {
	return d.surface
}

func (d *wgpuRenderDeviceImpl) Release() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.surface != nil {
		d.surface.release()
		d.surface = nil
	}
	if d.queue != nil {
		d.queue.Release()
		d.queue = nil
	}
	if d.device != nil {
		d.device.Release()
		d.device = nil
	}
	if d.adapter != nil {
		d.adapter.Release()
		d.adapter = nil
	}
	if d.instance != nil {
		d.instance.Release()
		d.instance = nil
	}
}

func (d *wgpuRenderDeviceImpl) Limits() render_resource.Limits {
	return render_resource.Limits{MinUniformBufferOffsetAlignment: d.limits.MinUniformBufferOffsetAlignment}
}

func (d *wgpuRenderDeviceImpl) CreateBuffer(desc render_resource.BufferDescriptor) (render_resource.Buffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	buf, err := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: desc.Label,
		Size:  desc.Size,
		Usage: desc.Usage,
	})
	if err != nil {
		return nil, err
	}
	return &wgpuBuffer{wgpuResource: wgpuResource{label: desc.Label, release: buf.Release}, buffer: buf, size: desc.Size, usage: desc.Usage}, nil
}

func (d *wgpuRenderDeviceImpl) CreateTexture(desc render_resource.TextureDescriptor) (render_resource.Texture, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	tex, err := d.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: desc.Label,
		Size: wgpu.Extent3D{
			Width:              desc.Width,
			Height:             desc.Height,
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        desc.Format,
		Usage:         desc.Usage,
	})
	if err != nil {
		return nil, err
	}
	return &wgpuTexture{
		wgpuResource: wgpuResource{label: desc.Label, release: tex.Release},
		texture:      tex,
		size:         common.Extent{Width: desc.Width, Height: desc.Height},
		format:       desc.Format,
	}, nil
}

func (d *wgpuRenderDeviceImpl) CreateSampler(label string, data common.SamplerStagingData) (render_resource.Sampler, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	resolved := common.SamplerStagingData{
		AddressModeU:  common.Coalesce(data.AddressModeU, wgpu.AddressModeClampToEdge),
		AddressModeV:  common.Coalesce(data.AddressModeV, wgpu.AddressModeClampToEdge),
		AddressModeW:  common.Coalesce(data.AddressModeW, wgpu.AddressModeClampToEdge),
		MagFilter:     common.Coalesce(data.MagFilter, wgpu.FilterModeLinear),
		MinFilter:     common.Coalesce(data.MinFilter, wgpu.FilterModeLinear),
		MipmapFilter:  common.Coalesce(data.MipmapFilter, wgpu.MipmapFilterModeLinear),
		LodMinClamp:   common.Coalesce(data.LodMinClamp, 0.0),
		LodMaxClamp:   common.Coalesce(data.LodMaxClamp, 32.0),
		MaxAnisotropy: common.Coalesce(data.MaxAnisotropy, 1),
		Compare:       data.Compare,
	}
	samp, err := d.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         label,
		AddressModeU:  resolved.AddressModeU,
		AddressModeV:  resolved.AddressModeV,
		AddressModeW:  resolved.AddressModeW,
		MagFilter:     resolved.MagFilter,
		MinFilter:     resolved.MinFilter,
		MipmapFilter:  resolved.MipmapFilter,
		LodMinClamp:   resolved.LodMinClamp,
		LodMaxClamp:   resolved.LodMaxClamp,
		MaxAnisotropy: resolved.MaxAnisotropy,
		Compare:       resolved.Compare,
	})
	if err != nil {
		return nil, err
	}
	return &wgpuSampler{wgpuResource: wgpuResource{label: label, release: samp.Release}, sampler: samp, desc: resolved}, nil
}

func (d *wgpuRenderDeviceImpl) CreateBindGroupLayout(desc render_resource.BindGroupLayoutDescriptor) (render_resource.BindGroupLayout, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	layout, err := d.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label:   desc.Label,
		Entries: desc.Entries,
	})
	if err != nil {
		return nil, err
	}
	return &wgpuBindGroupLayout{
		wgpuResource: wgpuResource{label: desc.Label, release: layout.Release},
		layout:       layout,
		entries:      append([]wgpu.BindGroupLayoutEntry(nil), desc.Entries...),
	}, nil
}

func (d *wgpuRenderDeviceImpl) CreateBindGroup(desc render_resource.BindGroupDescriptor) (render_resource.BindGroup, error) {
	layout, ok := desc.Layout.(*wgpuBindGroupLayout)
	if !ok {
		return nil, fmt.Errorf("bind group %q: layout %T was not created by this device", desc.Label, desc.Layout)
	}

	entries := make([]wgpu.BindGroupEntry, len(desc.Entries))
	for i, e := range desc.Entries {
		entry := wgpu.BindGroupEntry{Binding: e.Binding}
		switch {
		case e.Buffer != nil:
			buf, ok := e.Buffer.(*wgpuBuffer)
			if !ok {
				return nil, fmt.Errorf("bind group %q binding %d: foreign buffer %T", desc.Label, e.Binding, e.Buffer)
			}
			entry.Buffer = buf.buffer
			entry.Offset = e.Offset
			entry.Size = common.Coalesce(e.Size, wgpu.WholeSize)
		case e.Sampler != nil:
			samp, ok := e.Sampler.(*wgpuSampler)
			if !ok {
				return nil, fmt.Errorf("bind group %q binding %d: foreign sampler %T", desc.Label, e.Binding, e.Sampler)
			}
			entry.Sampler = samp.sampler
		case e.TextureView != nil:
			view, ok := e.TextureView.(*wgpuTextureView)
			if !ok {
				return nil, fmt.Errorf("bind group %q binding %d: foreign texture view %T", desc.Label, e.Binding, e.TextureView)
			}
			entry.TextureView = view.view
		default:
			return nil, fmt.Errorf("bind group %q binding %d has no resource", desc.Label, e.Binding)
		}
		entries[i] = entry
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	group, err := d.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   desc.Label,
		Layout:  layout.layout,
		Entries: entries,
	})
	if err != nil {
		return nil, err
	}
	return &wgpuBindGroup{wgpuResource: wgpuResource{label: desc.Label, release: group.Release}, group: group, layout: layout}, nil
}

func (d *wgpuRenderDeviceImpl) CreateShaderModule(label, source string) (render_resource.ShaderModule, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	module, err := d.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: label,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: source,
		},
	})
	if err != nil {
		return nil, err
	}
	return &wgpuShaderModule{wgpuResource: wgpuResource{label: label, release: module.Release}, module: module}, nil
}

func (d *wgpuRenderDeviceImpl) CreateRenderPipeline(desc render_resource.RenderPipelineDescriptor) (render_resource.RenderPipeline, error) {
	layouts := make([]*wgpu.BindGroupLayout, len(desc.Layouts))
	for i, l := range desc.Layouts {
		layout, ok := l.(*wgpuBindGroupLayout)
		if !ok {
			return nil, fmt.Errorf("pipeline %q group %d: foreign layout %T", desc.Label, i, l)
		}
		layouts[i] = layout.layout
	}
	vs, ok := desc.Vertex.Module.(*wgpuShaderModule)
	if !ok {
		return nil, fmt.Errorf("pipeline %q: foreign vertex module %T", desc.Label, desc.Vertex.Module)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	pipelineLayout, err := d.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            desc.Label,
		BindGroupLayouts: layouts,
	})
	if err != nil {
		return nil, err
	}

	wdesc := &wgpu.RenderPipelineDescriptor{
		Label:  desc.Label + " Render Pipeline",
		Layout: pipelineLayout,
		Vertex: wgpu.VertexState{
			Module:     vs.module,
			EntryPoint: desc.Vertex.EntryPoint,
		},
		Primitive:   desc.Primitive,
		Multisample: desc.Multisample,
	}
	if desc.Fragment != nil {
		fs, ok := desc.Fragment.Module.(*wgpuShaderModule)
		if !ok {
			pipelineLayout.Release()
			return nil, fmt.Errorf("pipeline %q: foreign fragment module %T", desc.Label, desc.Fragment.Module)
		}
		wdesc.Fragment = &wgpu.FragmentState{
			Module:     fs.module,
			EntryPoint: desc.Fragment.EntryPoint,
			Targets:    desc.Fragment.Targets,
		}
	}

	created, err := d.device.CreateRenderPipeline(wdesc)
	if err != nil {
		pipelineLayout.Release()
		return nil, err
	}
	return &wgpuRenderPipeline{
		wgpuResource: wgpuResource{label: desc.Label, release: func() {
			created.Release()
			pipelineLayout.Release()
		}},
		pipeline: created,
	}, nil
}

func (d *wgpuRenderDeviceImpl) CreateCommandEncoder(label string) (render_resource.CommandEncoder, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	encoder, err := d.device.CreateCommandEncoder(nil)
	if err != nil {
		return nil, err
	}
	return &wgpuCommandEncoder{wgpuResource: wgpuResource{label: label, release: encoder.Release}, encoder: encoder}, nil
}

func (d *wgpuRenderDeviceImpl) WriteBuffer(buffer render_resource.Buffer, offset uint64, data []byte) error {
	buf, ok := buffer.(*wgpuBuffer)
	if !ok {
		return fmt.Errorf("write buffer: foreign buffer %T", buffer)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.queue.WriteBuffer(buf.buffer, offset, data)
}

func (d *wgpuRenderDeviceImpl) Submit(buffers ...render_resource.CommandBuffer) {
	d.mu.Lock()
	defer d.mu.Unlock()

	cbs := make([]*wgpu.CommandBuffer, 0, len(buffers))
	for _, b := range buffers {
		if cb, ok := b.(*wgpuCommandBuffer); ok {
			cbs = append(cbs, cb.buffer)
		}
	}
	if len(cbs) == 0 {
		return
	}
	d.queue.Submit(cbs...)
	for _, b := range buffers {
		b.Release()
	}
}
