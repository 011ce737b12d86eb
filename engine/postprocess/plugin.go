// Package postprocess adds full-screen post-processing effects to the core 3D graph. Each effect
// is a WGSL fragment shader plus a per-camera settings component; cameras carrying the settings
// get one full-screen pass between the end of the main pass and the end of post-processing.
package postprocess

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-postfx/common"
	"github.com/Carmen-Shannon/oxy-postfx/engine/app"
	"github.com/Carmen-Shannon/oxy-postfx/engine/core3d"
	"github.com/Carmen-Shannon/oxy-postfx/engine/ecs"
	"github.com/Carmen-Shannon/oxy-postfx/engine/renderer"
	"github.com/Carmen-Shannon/oxy-postfx/engine/renderer/extract"
	"github.com/Carmen-Shannon/oxy-postfx/engine/renderer/render_graph"
	"github.com/Carmen-Shannon/oxy-postfx/engine/renderer/render_resource"
	"github.com/Carmen-Shannon/oxy-postfx/engine/renderer/view"
)

// Plugin registers one post-process effect with settings component S.
//
// The effect's fragment shader receives:
//
//	@group(0) @binding(0) var screen_texture: texture_2d<f32>;
//	@group(0) @binding(1) var texture_sampler: sampler;
//	@group(0) @binding(2) var<uniform> settings: <S>;
//	@group(0) @binding(3) var<uniform> view: View; // //@oxy:include view
//
// and FullscreenVertexOutput (//@oxy:include fullscreen_vertex_output) as its input.
type Plugin[S render_resource.ShaderType] struct {
	config config
}

var (
	_ app.NamedPlugin = &Plugin[view.ViewUniform]{}
	_ app.Finisher    = &Plugin[view.ViewUniform]{}
)

// NewPlugin creates a post-process effect.
//
// Parameters:
//   - shaderPath: asset path of the WGSL fragment shader
//   - label: the effect's render graph node label; it must be unique among effects
//   - options: functional options to configure the effect
//
// Returns:
//   - *Plugin[S]: the plugin
func NewPlugin[S render_resource.ShaderType](shaderPath string, label render_graph.Label, options ...PluginBuilderOption) *Plugin[S] {
	return &Plugin[S]{config: newConfig(shaderPath, label, options...)}
}

// Name is derived from the node label, so two effects with one label are rejected by App.AddPlugins.
func (p *Plugin[S]) Name() string {
	return "postprocess:" + string(p.config.label)
}

func (p *Plugin[S]) Build(a app.App) error {
	sub, ok := a.SubApp(renderer.RenderApp)
	if !ok {
		return fmt.Errorf("%s: %w: %s", p.Name(), app.ErrSubAppNotFound, renderer.RenderApp)
	}
	graph, ok := core3d.SubGraph(sub.World())
	if !ok {
		return fmt.Errorf("%s: core3d plugin must be added first", p.Name())
	}

	label := p.config.label
	if _, exists := graph.Node(label); exists {
		return fmt.Errorf("%s: %w: %s", p.Name(), render_graph.ErrNodeExists, label)
	}

	for _, plugin := range []app.NamedPlugin{extract.NewExtractComponentPlugin[S](), extract.NewUniformComponentPlugin[S]()} {
		if a.IsPluginAdded(plugin.Name()) {
			continue
		}
		if err := a.AddPlugins(plugin); err != nil {
			return fmt.Errorf("%s: %w", p.Name(), err)
		}
	}

	if err := graph.AddNode(label, &node[S]{label: label}); err != nil {
		return fmt.Errorf("%s: %w", p.Name(), err)
	}
	if err := graph.AddNodeEdges(core3d.EndMainPass, label, core3d.EndMainPassPostProcessing); err != nil {
		return fmt.Errorf("%s: %w", p.Name(), err)
	}

	var zero S
	ecs.InsertNamedResource(sub.World(), string(label), newPipeline(p.config, uint64(zero.Size())))
	common.Logger().Info("post-process effect added", "label", label, "shader", p.config.shaderPath)
	return nil
}

// Finish creates the effect's GPU objects when the render world has a device. Without one they are
// created on the node's first run instead.
func (p *Plugin[S]) Finish(a app.App) error {
	sub, ok := a.SubApp(renderer.RenderApp)
	if !ok {
		return nil
	}
	reg, ok := PipelineFor(sub.World(), p.config.label)
	if !ok {
		return nil
	}
	if err := reg.Init(sub.World()); err != nil {
		common.Logger().Debug("post-process pipeline init deferred", "label", p.config.label, "error", err)
	}
	return nil
}
