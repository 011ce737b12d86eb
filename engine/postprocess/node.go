package postprocess

import (
	"github.com/Carmen-Shannon/oxy-postfx/common"
	"github.com/Carmen-Shannon/oxy-postfx/engine/ecs"
	"github.com/Carmen-Shannon/oxy-postfx/engine/renderer/extract"
	"github.com/Carmen-Shannon/oxy-postfx/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-postfx/engine/renderer/render_graph"
	"github.com/Carmen-Shannon/oxy-postfx/engine/renderer/render_resource"
	"github.com/Carmen-Shannon/oxy-postfx/engine/renderer/view"
	"github.com/yohamta/donburi"
)

// node draws the effect for one view. Anything missing means the effect is skipped for that view
// this frame; the node never fails the graph.
type node[S render_resource.ShaderType] struct {
	label render_graph.Label
}

func (n *node[S]) Run(graph *render_graph.Context, ctx *render_graph.RenderContext, world *ecs.World) error {
	e := graph.ViewEntity()
	target, ok := ecs.Get[view.ViewTarget](world, e)
	if !ok {
		n.skip(e, "no view target")
		return nil
	}
	viewOffset, ok := ecs.Get[view.ViewUniformOffset](world, e)
	if !ok {
		n.skip(e, "no view uniform offset")
		return nil
	}
	index, ok := ecs.Get[extract.DynamicUniformIndex[S]](world, e)
	if !ok {
		n.skip(e, "camera has no settings")
		return nil
	}

	reg, ok := PipelineFor(world, n.label)
	if !ok {
		n.skip(e, "no pipeline registry")
		return nil
	}
	if err := reg.Init(world); err != nil {
		n.skip(e, "pipeline registry not initialised", "error", err)
		return nil
	}
	cache, ok := ecs.Resource[pipeline.PipelineCache](world)
	if !ok {
		n.skip(e, "no pipeline cache")
		return nil
	}
	rp, ok := cache.GetRenderPipeline(reg.ID())
	if !ok {
		state, err := cache.GetRenderPipelineState(reg.ID())
		n.skip(e, "pipeline not compiled", "shader", reg.Shader(), "state", state, "error", err)
		return nil
	}

	settings, ok := ecs.Resource[*extract.ComponentUniforms[S]](world)
	if !ok {
		n.skip(e, "no settings uniforms")
		return nil
	}
	settingsBinding, ok := settings.Binding()
	if !ok {
		n.skip(e, "settings uniform buffer not written")
		return nil
	}
	views, ok := ecs.Resource[*view.ViewUniforms](world)
	if !ok {
		n.skip(e, "no view uniforms")
		return nil
	}
	viewBinding, ok := views.Uniforms.Binding()
	if !ok {
		n.skip(e, "view uniform buffer not written")
		return nil
	}

	write := target.PostProcessWrite()
	in := bindInputs{
		source:        write.Source,
		sampler:       reg.Sampler(),
		settings:      settingsBinding,
		view:          viewBinding,
		settingsIndex: index.Index,
		viewOffset:    viewOffset.Offset,
	}
	group, err := ctx.Device().CreateBindGroup(render_resource.BindGroupDescriptor{
		Label:   string(n.label) + "_bind_group",
		Layout:  reg.Layout(),
		Entries: bindGroupEntries(in),
	})
	if err != nil {
		common.Logger().Warn("post-process bind group", "label", n.label, "slots", bindingSlots, "error", err)
		return nil
	}
	ctx.Track(group)

	pass, err := ctx.BeginTrackedRenderPass(render_resource.RenderPassDescriptor{
		Label:            string(n.label),
		ColorAttachments: []render_resource.ColorAttachment{render_resource.LoadStore(write.Destination)},
	})
	if err != nil {
		common.Logger().Warn("post-process pass", "label", n.label, "error", err)
		return nil
	}
	pass.SetRenderPipeline(rp)
	pass.SetBindGroup(0, group, dynamicOffsets(in))
	pass.Draw(3, 1, 0, 0)
	if err := pass.End(); err != nil {
		common.Logger().Warn("post-process pass", "label", n.label, "error", err)
	}
	return nil
}

func (n *node[S]) skip(e donburi.Entity, reason string, args ...any) {
	common.Logger().Debug("post-process view skipped", append([]any{"label", n.label, "view", e, "reason", reason}, args...)...)
}
