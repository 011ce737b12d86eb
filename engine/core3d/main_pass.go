package core3d

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-postfx/engine/app"
	"github.com/Carmen-Shannon/oxy-postfx/engine/ecs"
	"github.com/Carmen-Shannon/oxy-postfx/engine/renderer"
	"github.com/Carmen-Shannon/oxy-postfx/engine/renderer/render_graph"
	"github.com/Carmen-Shannon/oxy-postfx/engine/renderer/render_resource"
	"github.com/Carmen-Shannon/oxy-postfx/engine/renderer/view"
	"github.com/yohamta/donburi"
)

// MainPassDraw records draws into a view's main pass. The pass is already cleared to the camera's clear color.
type MainPassDraw func(pass *render_graph.TrackedRenderPass, view donburi.Entity, world *ecs.World) error

// MainPassDraws holds the draw functions run by the main pass, in registration order.
type MainPassDraws struct {
	mu    sync.Mutex
	draws []MainPassDraw
}

// Add appends draw.
func (d *MainPassDraws) Add(draw MainPassDraw) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.draws = append(d.draws, draw)
}

func (d *MainPassDraws) snapshot() []MainPassDraw {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]MainPassDraw(nil), d.draws...)
}

// AddMainPassDraw registers draw with the main pass of every 3D camera.
//
// Parameters:
//   - a: the app, with the core 3D plugin added
//   - draw: the draw function
//
// Returns:
//   - error: app.ErrSubAppNotFound if the render plugin is missing, or an error if the core 3D plugin is missing
func AddMainPassDraw(a app.App, draw MainPassDraw) error {
	sub, ok := a.SubApp(renderer.RenderApp)
	if !ok {
		return fmt.Errorf("core3d: %w: %s", app.ErrSubAppNotFound, renderer.RenderApp)
	}
	draws, ok := ecs.Resource[*MainPassDraws](sub.World())
	if !ok {
		return fmt.Errorf("core3d: plugin not added")
	}
	draws.Add(draw)
	return nil
}

type mainPassNode struct{}

func (mainPassNode) Run(graph *render_graph.Context, ctx *render_graph.RenderContext, world *ecs.World) error {
	e := graph.ViewEntity()
	target, ok := ecs.Get[view.ViewTarget](world, e)
	if !ok {
		return nil
	}
	v, ok := ecs.Get[view.ExtractedView](world, e)
	if !ok {
		return nil
	}

	pass, err := ctx.BeginTrackedRenderPass(render_resource.RenderPassDescriptor{
		Label:            string(MainPass),
		ColorAttachments: []render_resource.ColorAttachment{render_resource.ClearStore(target.MainTextureView(), v.ClearColor)},
	})
	if err != nil {
		return err
	}
	if draws, ok := ecs.Resource[*MainPassDraws](world); ok {
		for _, draw := range draws.snapshot() {
			if err := draw(pass, e, world); err != nil {
				pass.End()
				return err
			}
		}
	}
	return pass.End()
}
