package renderer

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-postfx/engine/ecs"
	"github.com/Carmen-Shannon/oxy-postfx/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-postfx/engine/renderer/render_graph"
	"github.com/Carmen-Shannon/oxy-postfx/engine/renderer/render_resource"
	"github.com/Carmen-Shannon/oxy-postfx/engine/renderer/view"
)

func processPipelineQueue(world *ecs.World) error {
	if cache, ok := ecs.Resource[pipeline.PipelineCache](world); ok {
		cache.ProcessQueue()
	}
	return nil
}

// acquireSurfaceTexture stores the frame's surface texture. A failed acquisition leaves the frame
// without an output, and views still render into their main textures.
func acquireSurfaceTexture(world *ecs.World) error {
	st := &view.SurfaceTexture{}
	ecs.InsertResource(world, st)
	if _, ok := ecs.Resource[render_resource.RenderDevice](world); !ok {
		return nil
	}
	surface, ok := ecs.Resource[render_resource.Surface](world)
	if !ok || surface.Size().IsZero() || ecs.Count[view.ExtractedView](world) == 0 {
		return nil
	}
	v, err := surface.AcquireTexture()
	if err != nil {
		return fmt.Errorf("acquire surface texture: %w", err)
	}
	st.View = v
	return nil
}

// renderViews runs the root graph for every view in camera order, submits the frame and presents it.
func renderViews(world *ecs.World) error {
	device, ok := ecs.Resource[render_resource.RenderDevice](world)
	if !ok {
		return nil
	}
	root, ok := ecs.Resource[render_graph.RenderGraph](world)
	if !ok {
		return nil
	}

	ctx := render_graph.NewRenderContext(device, "frame")
	var errs []error
	for _, e := range view.SortedViews(world) {
		if err := root.Run(ctx, world, e); err != nil {
			errs = append(errs, err)
		}
	}
	buffers, err := ctx.Finish()
	if err != nil {
		errs = append(errs, err)
	} else if len(buffers) > 0 {
		device.Submit(buffers...)
	}
	ctx.ReleaseTransient()

	if st, ok := ecs.Resource[*view.SurfaceTexture](world); ok && st.View != nil {
		if surface, ok := ecs.Resource[render_resource.Surface](world); ok {
			surface.Present()
		}
		st.View = nil
	}
	return errors.Join(errs...)
}

func cleanup(world *ecs.World) error {
	world.ClearEntities()
	return nil
}
