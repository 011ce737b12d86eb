package core3d

import (
	"errors"
	"sync"

	"github.com/Carmen-Shannon/oxy-postfx/common"
	"github.com/Carmen-Shannon/oxy-postfx/engine/asset"
	"github.com/Carmen-Shannon/oxy-postfx/engine/ecs"
	"github.com/Carmen-Shannon/oxy-postfx/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-postfx/engine/renderer/render_graph"
	"github.com/Carmen-Shannon/oxy-postfx/engine/renderer/render_resource"
	"github.com/Carmen-Shannon/oxy-postfx/engine/renderer/view"
	"github.com/cogentcore/webgpu/wgpu"
)

var errUpscalingUnavailable = errors.New("core3d: render device, surface or pipeline cache missing")

// UpscalingPipeline is the blit pipeline copying each view's main texture into the window surface.
type UpscalingPipeline struct {
	mu sync.Mutex

	ready   bool
	layout  render_resource.BindGroupLayout
	sampler render_resource.Sampler
	id      pipeline.CachedRenderPipelineID
}

// ID returns the pipeline id, valid once the pipeline has been queued.
func (p *UpscalingPipeline) ID() (pipeline.CachedRenderPipelineID, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.id, p.ready
}

// upscalingPipeline queues the blit pipeline on first use. It is retried until the device,
// surface and pipeline cache exist.
func upscalingPipeline(world *ecs.World) (*UpscalingPipeline, error) {
	p, ok := ecs.Resource[*UpscalingPipeline](world)
	if !ok {
		return nil, errUpscalingUnavailable
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ready {
		return p, nil
	}

	device, ok := ecs.Resource[render_resource.RenderDevice](world)
	if !ok {
		return nil, errUpscalingUnavailable
	}
	surface, ok := ecs.Resource[render_resource.Surface](world)
	if !ok {
		return nil, errUpscalingUnavailable
	}
	cache, ok := ecs.Resource[pipeline.PipelineCache](world)
	if !ok {
		return nil, errUpscalingUnavailable
	}

	layout, err := device.CreateBindGroupLayout(render_resource.BindGroupLayoutDescriptor{
		Label: "upscaling_bind_group_layout",
		Entries: render_resource.SequentialLayout(wgpu.ShaderStageFragment,
			render_resource.Texture2DEntry(wgpu.TextureSampleTypeFloat),
			render_resource.SamplerEntry(wgpu.SamplerBindingTypeFiltering),
		),
	})
	if err != nil {
		return nil, err
	}
	sampler, err := device.CreateSampler("upscaling_sampler", common.SamplerStagingData{})
	if err != nil {
		layout.Release()
		return nil, err
	}

	p.layout = layout
	p.sampler = sampler
	p.id = cache.QueueRenderPipeline(pipeline.NewRenderPipelineDescriptor("upscaling_pipeline", FullscreenVertexState(),
		pipeline.WithLayout(layout),
		pipeline.WithFragment(asset.EmbeddedHandle(blitShaderPath), "fragment", surface.Format()),
	))
	p.ready = true
	return p, nil
}

type upscalingNode struct{}

// Run blits the view's current main texture into its viewport of the surface. The first view of a
// frame clears the surface; later views load it so earlier viewports survive.
func (upscalingNode) Run(graph *render_graph.Context, ctx *render_graph.RenderContext, world *ecs.World) error {
	st, ok := ecs.Resource[*view.SurfaceTexture](world)
	if !ok || st == nil || st.View == nil {
		return nil
	}
	e := graph.ViewEntity()
	target, ok := ecs.Get[view.ViewTarget](world, e)
	if !ok {
		return nil
	}
	v, ok := ecs.Get[view.ExtractedView](world, e)
	if !ok {
		return nil
	}

	attachment := render_resource.LoadStore(target.OutTextureView())
	if !st.Cleared {
		attachment = render_resource.ClearStore(target.OutTextureView(), v.ClearColor)
		st.Cleared = true
	}
	pass, err := ctx.BeginTrackedRenderPass(render_resource.RenderPassDescriptor{
		Label:            string(Upscaling),
		ColorAttachments: []render_resource.ColorAttachment{attachment},
	})
	if err != nil {
		return err
	}
	defer pass.End()

	p, err := upscalingPipeline(world)
	if err != nil {
		return nil
	}
	id, _ := p.ID()
	cache, ok := ecs.Resource[pipeline.PipelineCache](world)
	if !ok {
		return nil
	}
	rp, ok := cache.GetRenderPipeline(id)
	if !ok {
		return nil
	}

	group, err := ctx.Device().CreateBindGroup(render_resource.BindGroupDescriptor{
		Label:   "upscaling_bind_group",
		Layout:  p.layout,
		Entries: render_resource.SequentialEntries(target.MainTextureView(), p.sampler),
	})
	if err != nil {
		common.Logger().Warn("upscaling bind group", "error", err)
		return nil
	}
	ctx.Track(group)

	vp := v.Viewport
	pass.SetRenderPipeline(rp)
	pass.SetBindGroup(0, group, nil)
	pass.SetViewport(float32(vp.X), float32(vp.Y), float32(vp.Width), float32(vp.Height), 0, 1)
	pass.Draw(3, 1, 0, 0)
	return nil
}
