package view

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/oxy-postfx/common"
	"github.com/Carmen-Shannon/oxy-postfx/engine/camera"
	"github.com/Carmen-Shannon/oxy-postfx/engine/ecs"
	"github.com/Carmen-Shannon/oxy-postfx/engine/renderer/render_resource"
	"github.com/Carmen-Shannon/oxy-postfx/engine/renderer/render_resource/rendertest"
	"github.com/Carmen-Shannon/oxy-postfx/engine/renderer/shader"
	"github.com/yohamta/donburi"
)

type worlds struct {
	main, render *ecs.World
	device       *rendertest.Device
	surface      *rendertest.Surface
}

func newWorlds() *worlds {
	w := &worlds{
		main:    ecs.NewWorld(),
		render:  ecs.NewWorld(),
		device:  rendertest.NewDevice(),
		surface: rendertest.NewSurface(800, 600),
	}
	ecs.InsertResource[render_resource.RenderDevice](w.render, w.device)
	ecs.InsertResource[render_resource.Surface](w.render, w.surface)
	return w
}

func (w *worlds) spawnCamera(opts ...camera.CameraBuilderOption) donburi.Entity {
	e := w.main.Spawn()
	ecs.Insert(w.main, e, camera.NewCamera(opts...))
	return e
}

// frame runs extraction and preparation the way the render sub-app does, then clears the render entities.
func (w *worlds) frame(t *testing.T, inspect func()) {
	t.Helper()
	require.NoError(t, ExtractCameras(w.main, w.render))
	require.NoError(t, PrepareViewTargets(w.render))
	require.NoError(t, PrepareViewUniforms(w.render))
	if inspect != nil {
		inspect()
	}
	w.render.ClearEntities()
}

func TestExtractCamerasSkipsInactiveAndEmpty(t *testing.T) {
	w := newWorlds()
	active := w.spawnCamera(camera.WithOrder(1))
	w.spawnCamera(camera.WithActive(false))
	w.spawnCamera(camera.WithViewport(800, 0, 100, 100))
	first := w.spawnCamera(camera.WithOrder(-1), camera.WithViewport(0, 0, 400, 300))

	require.NoError(t, ExtractCameras(w.main, w.render))
	views := SortedViews(w.render)
	require.Len(t, views, 2)

	v0, _ := ecs.Get[ExtractedView](w.render, views[0])
	v1, _ := ecs.Get[ExtractedView](w.render, views[1])
	assert.Equal(t, first, v0.Main)
	assert.Equal(t, active, v1.Main)
	assert.Equal(t, common.Extent{Width: 400, Height: 300}, v0.Size())
	assert.Equal(t, common.Extent{Width: 800, Height: 600}, v1.Target)
}

func TestExtractCamerasWithoutSurface(t *testing.T) {
	main, render := ecs.NewWorld(), ecs.NewWorld()
	ecs.Insert(main, main.Spawn(), camera.NewCamera())
	require.NoError(t, ExtractCameras(main, render))
	assert.Zero(t, ecs.Count[ExtractedView](render))
}

func TestPostProcessWritePingPongsAcrossFrames(t *testing.T) {
	w := newWorlds()
	w.spawnCamera()

	var dest render_resource.TextureView
	w.frame(t, func() {
		views := SortedViews(w.render)
		require.Len(t, views, 1)
		target, ok := ecs.Get[ViewTarget](w.render, views[0])
		require.True(t, ok)

		before := target.MainTextureView()
		write := target.PostProcessWrite()
		assert.Same(t, before, write.Source)
		assert.NotSame(t, write.Source, write.Destination)
		assert.Same(t, write.Destination, target.MainTextureView())
		dest = write.Destination
	})
	w.frame(t, func() {
		target, _ := ecs.Get[ViewTarget](w.render, SortedViews(w.render)[0])
		assert.Same(t, dest, target.MainTextureView(), "the current texture survives the frame boundary")
		write := target.PostProcessWrite()
		assert.Same(t, dest, write.Source)
	})
	assert.Len(t, w.device.Textures, 2, "textures are cached, not recreated")
}

func TestViewTargetsFollowCameras(t *testing.T) {
	w := newWorlds()
	cam := w.spawnCamera()
	w.frame(t, nil)
	targets := ecs.MustResource[*ViewTargets](w.render)
	assert.Equal(t, 1, targets.Len())
	first := w.device.Textures[0]

	require.NoError(t, w.surface.Configure(common.Extent{Width: 1024, Height: 768}))
	w.frame(t, nil)
	assert.True(t, first.Released(), "resize recreates the textures")
	require.Len(t, w.device.Textures, 4)
	assert.Equal(t, common.Extent{Width: 1024, Height: 768}, w.device.Textures[3].Size())

	w.main.Remove(cam)
	w.frame(t, nil)
	assert.Equal(t, 0, targets.Len())
	assert.True(t, w.device.Textures[3].Released())
}

func TestViewUniformLayout(t *testing.T) {
	assert.Equal(t, 160, ViewUniform{}.Size())
	assert.Equal(t, uint64(160), render_resource.SizeOf[ViewUniform]())

	u := ViewUniform{WorldPosition: [3]float32{1, 2, 3}, Viewport: [4]float32{0, 0, 640, 480}}
	buf := u.Marshal()
	require.Len(t, buf, 160)
	assert.Equal(t, float32(3), math.Float32frombits(binary.LittleEndian.Uint32(buf[136:])))
	assert.Equal(t, float32(640), math.Float32frombits(binary.LittleEndian.Uint32(buf[152:])))

	assert.Contains(t, shader.Includes(), "view")
}

func TestPrepareViewUniformsAssignsOffsets(t *testing.T) {
	w := newWorlds()
	w.spawnCamera(camera.WithOrder(0))
	w.spawnCamera(camera.WithOrder(1), camera.WithPosition(7, 8, 9))

	w.frame(t, func() {
		views := SortedViews(w.render)
		require.Len(t, views, 2)
		uniforms := ecs.MustResource[*ViewUniforms](w.render)
		binding, ok := uniforms.Uniforms.Binding()
		require.True(t, ok)
		data := binding.Buffer.(*rendertest.Buffer).Data

		offsets := map[uint32]bool{}
		for _, e := range views {
			off, ok := ecs.Get[ViewUniformOffset](w.render, e)
			require.True(t, ok)
			offsets[off.Offset] = true
			v, _ := ecs.Get[ExtractedView](w.render, e)
			assert.Equal(t, v.Position[0], math.Float32frombits(binary.LittleEndian.Uint32(data[off.Offset+128:])))
		}
		assert.Len(t, offsets, 2)
	})
}
