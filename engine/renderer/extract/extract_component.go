// Package extract copies components from the main world into the render world each frame and
// packs shader-visible components into dynamic uniform buffers.
package extract

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-postfx/engine/app"
	"github.com/Carmen-Shannon/oxy-postfx/engine/ecs"
	"github.com/Carmen-Shannon/oxy-postfx/engine/renderer"
	"github.com/yohamta/donburi"
)

// ExtractComponentPlugin copies every T component of the main world onto the matching render-world entity.
type ExtractComponentPlugin[T any] struct{}

var _ app.NamedPlugin = &ExtractComponentPlugin[struct{}]{}

// NewExtractComponentPlugin creates the extraction plugin for T.
//
// Returns:
//   - *ExtractComponentPlugin[T]: the plugin
func NewExtractComponentPlugin[T any]() *ExtractComponentPlugin[T] {
	return &ExtractComponentPlugin[T]{}
}

// Name is unique per component type, so adding the plugin twice for one type is detected.
func (p *ExtractComponentPlugin[T]) Name() string {
	var zero T
	return fmt.Sprintf("extract_component[%T]", zero)
}

func (p *ExtractComponentPlugin[T]) Build(a app.App) error {
	sub, ok := a.SubApp(renderer.RenderApp)
	if !ok {
		return fmt.Errorf("%s: %w: %s", p.Name(), app.ErrSubAppNotFound, renderer.RenderApp)
	}
	sub.AddExtractSystems(ExtractComponents[T])
	return nil
}

// ExtractComponents is the extract system installed by ExtractComponentPlugin.
//
// Parameters:
//   - main: the main world
//   - render: the render world
//
// Returns:
//   - error: always nil
func ExtractComponents[T any](main, render *ecs.World) error {
	ecs.Each(main, func(e donburi.Entity, v T) {
		ecs.Insert(render, ecs.RenderEntity(render, e), v)
	})
	return nil
}
