// Package core3d provides the 3D camera render graph: a main pass into each camera's main texture,
// marker nodes that post-processing effects order themselves between, and an upscaling pass that
// copies the finished image into the window surface.
package core3d

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-postfx/common"
	"github.com/Carmen-Shannon/oxy-postfx/engine/app"
	"github.com/Carmen-Shannon/oxy-postfx/engine/asset"
	"github.com/Carmen-Shannon/oxy-postfx/engine/ecs"
	"github.com/Carmen-Shannon/oxy-postfx/engine/renderer"
	"github.com/Carmen-Shannon/oxy-postfx/engine/renderer/render_graph"
)

// Graph is the label of the sub-graph run for every 3D camera.
const Graph render_graph.GraphLabel = "core_3d"

// Nodes of the Graph sub-graph, in execution order.
const (
	MainPass                  render_graph.Label = "main_pass"
	EndMainPass               render_graph.Label = "end_main_pass"
	EndMainPassPostProcessing render_graph.Label = "end_main_pass_post_processing"
	Upscaling                 render_graph.Label = "upscaling"
)

// CameraDriver is the root graph node that runs Graph for the current view.
const CameraDriver render_graph.Label = "core_3d_camera_driver"

// Plugin adds the Graph sub-graph to the render world's root graph.
type Plugin struct{}

var (
	_ app.NamedPlugin = &Plugin{}
	_ app.Finisher    = &Plugin{}
)

// NewPlugin creates the core 3D plugin. The asset and render plugins must be added first.
//
// Returns:
//   - *Plugin: the plugin
func NewPlugin() *Plugin {
	return &Plugin{}
}

func (p *Plugin) Name() string {
	return string(Graph)
}

func (p *Plugin) Build(a app.App) error {
	sub, ok := a.SubApp(renderer.RenderApp)
	if !ok {
		return fmt.Errorf("core3d: %w: %s", app.ErrSubAppNotFound, renderer.RenderApp)
	}
	server, ok := ecs.Resource[asset.Server](a.World())
	if !ok {
		return fmt.Errorf("core3d: %w", renderer.ErrAssetServerMissing)
	}
	server.AddEmbedded(FullscreenShaderPath, fullscreenSource)
	server.AddEmbedded(blitShaderPath, blitSource)

	w := sub.World()
	root, ok := renderer.RootRenderGraph(w)
	if !ok {
		return fmt.Errorf("core3d: root render graph missing")
	}

	g := render_graph.NewRenderGraph(Graph)
	nodes := []struct {
		label render_graph.Label
		node  render_graph.Node
	}{
		{MainPass, mainPassNode{}},
		{EndMainPass, render_graph.EmptyNode{}},
		{EndMainPassPostProcessing, render_graph.EmptyNode{}},
		{Upscaling, upscalingNode{}},
	}
	for _, n := range nodes {
		if err := g.AddNode(n.label, n.node); err != nil {
			return err
		}
	}
	if err := g.AddNodeEdges(MainPass, EndMainPass, EndMainPassPostProcessing, Upscaling); err != nil {
		return err
	}
	if err := root.AddSubGraph(Graph, g); err != nil {
		return err
	}
	if err := root.AddNode(CameraDriver, subGraphDriver{graph: g}); err != nil {
		return err
	}

	ecs.InsertResource(w, &MainPassDraws{})
	ecs.InsertResource(w, &UpscalingPipeline{})
	common.Logger().Info("core 3d graph added", "graph", Graph)
	return nil
}

// Finish prepares the upscaling pipeline when a device is present.
func (p *Plugin) Finish(a app.App) error {
	sub, ok := a.SubApp(renderer.RenderApp)
	if !ok {
		return nil
	}
	if _, err := upscalingPipeline(sub.World()); err != nil {
		common.Logger().Debug("upscaling pipeline deferred", "error", err)
	}
	return nil
}

// SubGraph returns the Graph sub-graph of the render world.
//
// Parameters:
//   - render: the render world
//
// Returns:
//   - render_graph.RenderGraph: the sub-graph
//   - bool: false if the plugin has not been built
func SubGraph(render *ecs.World) (render_graph.RenderGraph, bool) {
	root, ok := renderer.RootRenderGraph(render)
	if !ok {
		return nil, false
	}
	return root.SubGraph(Graph)
}

type subGraphDriver struct {
	graph render_graph.RenderGraph
}

func (d subGraphDriver) Run(graph *render_graph.Context, ctx *render_graph.RenderContext, world *ecs.World) error {
	return d.graph.Run(ctx, world, graph.ViewEntity())
}
