// Package renderer hosts the render world: it owns the render sub-app, the GPU device and surface,
// the pipeline cache and the root render graph, and drives them once per frame.
package renderer

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-postfx/common"
	"github.com/Carmen-Shannon/oxy-postfx/engine/app"
	"github.com/Carmen-Shannon/oxy-postfx/engine/asset"
	"github.com/Carmen-Shannon/oxy-postfx/engine/ecs"
	"github.com/Carmen-Shannon/oxy-postfx/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-postfx/engine/renderer/render_graph"
	"github.com/Carmen-Shannon/oxy-postfx/engine/renderer/render_resource"
	"github.com/Carmen-Shannon/oxy-postfx/engine/renderer/view"
)

// RootGraph is the label of the graph run once per view. Feature plugins add their sub-graphs and
// the nodes that drive them to it.
const RootGraph render_graph.GraphLabel = "root"

// ErrAssetServerMissing is returned by Finish when the asset plugin was not added before the render plugin finished.
var ErrAssetServerMissing = errors.New("renderer: asset server resource missing")

// RenderPlugin creates the render sub-app.
type RenderPlugin struct {
	device         render_resource.RenderDevice
	surface        render_resource.Surface
	syncPipelines  bool
	compileWorkers int
}

var (
	_ app.NamedPlugin = &RenderPlugin{}
	_ app.Finisher    = &RenderPlugin{}
)

// NewRenderPlugin creates the render plugin. Without a device the render world is built but never draws.
//
// Parameters:
//   - options: functional options to configure the plugin
//
// Returns:
//   - *RenderPlugin: the plugin
func NewRenderPlugin(options ...RenderPluginBuilderOption) *RenderPlugin {
	p := &RenderPlugin{compileWorkers: 2}
	for _, option := range options {
		option(p)
	}
	return p
}

func (p *RenderPlugin) Name() string {
	return "renderer"
}

func (p *RenderPlugin) Build(a app.App) error {
	sub := app.NewSubApp()
	a.InsertSubApp(RenderApp, sub)

	w := sub.World()
	if p.device != nil {
		ecs.InsertResource(w, p.device)
	}
	if p.surface != nil {
		ecs.InsertResource(w, p.surface)
	}
	ecs.InsertResource(w, render_graph.NewRenderGraph(RootGraph))
	ecs.InsertResource(w, view.NewViewTargets())

	sub.AddExtractSystems(view.ExtractCameras)
	sub.AddSystems(PrepareAssets, processPipelineQueue)
	sub.AddSystems(ManageViews, acquireSurfaceTexture, view.PrepareViewTargets)
	sub.AddSystems(PrepareResources, view.PrepareViewUniforms)
	sub.AddSystems(Render, renderViews)
	sub.AddSystems(Cleanup, cleanup)
	return nil
}

// Finish shares the asset server with the render world and creates the pipeline cache.
func (p *RenderPlugin) Finish(a app.App) error {
	sub, ok := a.SubApp(RenderApp)
	if !ok {
		return fmt.Errorf("%w: %s", app.ErrSubAppNotFound, RenderApp)
	}
	server, ok := ecs.Resource[asset.Server](a.World())
	if !ok {
		return ErrAssetServerMissing
	}
	w := sub.World()
	ecs.InsertResource(w, server)
	if p.device == nil {
		common.Logger().Warn("render plugin has no device; nothing will be drawn")
		return nil
	}

	opts := []pipeline.PipelineCacheBuilderOption{pipeline.WithCompileWorkers(p.compileWorkers)}
	if p.syncPipelines {
		opts = append(opts, pipeline.WithSynchronousCompilation())
	}
	ecs.InsertResource(w, pipeline.NewPipelineCache(p.device, server, opts...))
	common.Logger().Info("render plugin ready", "uniform_alignment", p.device.Limits().MinUniformBufferOffsetAlignment)
	return nil
}

// RootRenderGraph returns the render world's root graph.
//
// Parameters:
//   - render: the render world
//
// Returns:
//   - render_graph.RenderGraph: the root graph
//   - bool: false if the render plugin was not built into this world
func RootRenderGraph(render *ecs.World) (render_graph.RenderGraph, bool) {
	return ecs.Resource[render_graph.RenderGraph](render)
}
