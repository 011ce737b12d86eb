// Package view turns main-world cameras into render-world views: their extracted state, render
// targets and per-frame uniform data.
package view

import (
	"cmp"
	"slices"

	"github.com/Carmen-Shannon/oxy-postfx/common"
	"github.com/Carmen-Shannon/oxy-postfx/engine/camera"
	"github.com/Carmen-Shannon/oxy-postfx/engine/ecs"
	"github.com/Carmen-Shannon/oxy-postfx/engine/renderer/render_resource"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/yohamta/donburi"
)

// ExtractedView is the render-world snapshot of an active camera for one frame.
type ExtractedView struct {
	// Main is the camera's main-world entity. Render targets are cached per main entity.
	Main       donburi.Entity
	Order      int
	Viewport   camera.Viewport
	Target     common.Extent
	ClearColor wgpu.Color

	View       [16]float32
	Projection [16]float32
	Position   [3]float32
}

// Size returns the size of the view's viewport.
func (v ExtractedView) Size() common.Extent {
	return common.Extent{Width: v.Viewport.Width, Height: v.Viewport.Height}
}

// ExtractCameras copies every active camera with a non-empty viewport into the render world as an
// ExtractedView. Cameras are skipped while the render world has no configured surface.
//
// Parameters:
//   - main: the main world
//   - render: the render world
//
// Returns:
//   - error: always nil
func ExtractCameras(main, render *ecs.World) error {
	surface, ok := ecs.Resource[render_resource.Surface](render)
	if !ok {
		return nil
	}
	target := surface.Size()
	if target.IsZero() {
		return nil
	}
	ecs.Each(main, func(e donburi.Entity, cam camera.Camera) {
		if !cam.Active {
			return
		}
		vp := cam.PhysicalViewport(target)
		if vp.Width == 0 || vp.Height == 0 {
			return
		}
		ecs.Insert(render, ecs.RenderEntity(render, e), ExtractedView{
			Main:       e,
			Order:      cam.Order,
			Viewport:   vp,
			Target:     target,
			ClearColor: cam.ClearColor,
			View:       cam.ViewMatrix(),
			Projection: cam.ProjectionMatrix(vp),
			Position:   cam.Position,
		})
	})
	return nil
}

// SortedViews returns the render-world view entities in render order: ascending camera order,
// then main entity id so equal orders are stable across frames.
//
// Parameters:
//   - render: the render world
//
// Returns:
//   - []donburi.Entity: the view entities
func SortedViews(render *ecs.World) []donburi.Entity {
	type item struct {
		e    donburi.Entity
		view ExtractedView
	}
	var items []item
	ecs.Each(render, func(e donburi.Entity, v ExtractedView) {
		items = append(items, item{e: e, view: v})
	})
	slices.SortFunc(items, func(a, b item) int {
		if c := cmp.Compare(a.view.Order, b.view.Order); c != 0 {
			return c
		}
		return cmp.Compare(a.view.Main, b.view.Main)
	})
	out := make([]donburi.Entity, len(items))
	for i, it := range items {
		out[i] = it.e
	}
	return out
}
