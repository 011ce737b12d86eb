package renderer

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/oxy-postfx/engine/app"
	"github.com/Carmen-Shannon/oxy-postfx/engine/asset"
	"github.com/Carmen-Shannon/oxy-postfx/engine/camera"
	"github.com/Carmen-Shannon/oxy-postfx/engine/ecs"
	"github.com/Carmen-Shannon/oxy-postfx/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-postfx/engine/renderer/render_graph"
	"github.com/Carmen-Shannon/oxy-postfx/engine/renderer/render_resource"
	"github.com/Carmen-Shannon/oxy-postfx/engine/renderer/render_resource/rendertest"
	"github.com/Carmen-Shannon/oxy-postfx/engine/renderer/view"
)

func newTestApp(t *testing.T, options ...RenderPluginBuilderOption) (app.App, *ecs.World) {
	t.Helper()
	a := app.New()
	require.NoError(t, a.AddPlugins(
		asset.NewPlugin(fstest.MapFS{}, asset.WithSynchronousLoading()),
		NewRenderPlugin(options...),
	))
	sub, ok := a.SubApp(RenderApp)
	require.True(t, ok)
	return a, sub.World()
}

func TestRenderPluginInsertsResources(t *testing.T) {
	device := rendertest.NewDevice()
	a, render := newTestApp(t, WithRenderDevice(device), WithSurface(rendertest.NewSurface(64, 64)), WithSynchronousPipelineCompilation())
	require.NoError(t, a.Finish())

	_, ok := ecs.Resource[render_resource.RenderDevice](render)
	assert.True(t, ok)
	_, ok = ecs.Resource[pipeline.PipelineCache](render)
	assert.True(t, ok)
	_, ok = ecs.Resource[asset.Server](render)
	assert.True(t, ok)
	root, ok := RootRenderGraph(render)
	require.True(t, ok)
	assert.Equal(t, RootGraph, root.Label())
}

func TestRenderPluginWithoutDevice(t *testing.T) {
	a, render := newTestApp(t)
	require.NoError(t, a.Finish())

	_, ok := ecs.Resource[pipeline.PipelineCache](render)
	assert.False(t, ok)
	require.NoError(t, a.Update())
}

func TestFinishRequiresAssetServer(t *testing.T) {
	a := app.New()
	require.NoError(t, a.AddPlugins(NewRenderPlugin(WithRenderDevice(rendertest.NewDevice()))))
	assert.ErrorIs(t, a.Finish(), ErrAssetServerMissing)
}

func TestRenderRunsRootGraphPerViewInCameraOrder(t *testing.T) {
	device := rendertest.NewDevice()
	surface := rendertest.NewSurface(64, 64)
	a, render := newTestApp(t, WithRenderDevice(device), WithSurface(surface), WithSynchronousPipelineCompilation())

	second := a.World().Spawn()
	ecs.Insert(a.World(), second, camera.NewCamera(camera.WithOrder(2)))
	first := a.World().Spawn()
	ecs.Insert(a.World(), first, camera.NewCamera(camera.WithOrder(-1)))

	root, ok := RootRenderGraph(render)
	require.True(t, ok)
	var orders []int
	require.NoError(t, root.AddNode("record", render_graph.NodeFunc(func(graph *render_graph.Context, ctx *render_graph.RenderContext, world *ecs.World) error {
		v, ok := ecs.Get[view.ExtractedView](world, graph.ViewEntity())
		require.True(t, ok)
		orders = append(orders, v.Order)

		target, ok := ecs.Get[view.ViewTarget](world, graph.ViewEntity())
		require.True(t, ok)
		pass, err := ctx.BeginTrackedRenderPass(render_resource.RenderPassDescriptor{
			Label:            "record",
			ColorAttachments: []render_resource.ColorAttachment{render_resource.ClearStore(target.MainTextureView(), v.ClearColor)},
		})
		if err != nil {
			return err
		}
		return pass.End()
	})))

	require.NoError(t, a.Update())
	assert.Equal(t, []int{-1, 2}, orders)
	assert.Len(t, device.PassesLabeled("record"), 2)
	assert.Equal(t, 1, surface.Presents)

	orders = nil
	device.ResetSubmitted()
	require.NoError(t, a.Update())
	assert.Equal(t, []int{-1, 2}, orders)
	assert.Equal(t, 2, surface.Presents)
	assert.Zero(t, ecs.Count[view.ExtractedView](render), "render entities are cleared after each frame")
}

func TestNoViewsSkipsSurfaceAcquisition(t *testing.T) {
	surface := rendertest.NewSurface(64, 64)
	a, _ := newTestApp(t, WithRenderDevice(rendertest.NewDevice()), WithSurface(surface))

	require.NoError(t, a.Update())
	require.NoError(t, a.Update())
	assert.Empty(t, surface.Frames)
	assert.Zero(t, surface.Presents)
}

func TestPresentModeString(t *testing.T) {
	assert.Equal(t, "vsync", PresentModeVSync.String())
	assert.Equal(t, "uncapped", PresentModeUncapped.String())
}
