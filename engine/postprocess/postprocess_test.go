package postprocess

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io/fs"
	"log/slog"
	"math"
	"sync"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/oxy-postfx/common"
	"github.com/Carmen-Shannon/oxy-postfx/engine/app"
	"github.com/Carmen-Shannon/oxy-postfx/engine/asset"
	"github.com/Carmen-Shannon/oxy-postfx/engine/camera"
	"github.com/Carmen-Shannon/oxy-postfx/engine/core3d"
	"github.com/Carmen-Shannon/oxy-postfx/engine/ecs"
	"github.com/Carmen-Shannon/oxy-postfx/engine/renderer"
	"github.com/Carmen-Shannon/oxy-postfx/engine/renderer/extract"
	"github.com/Carmen-Shannon/oxy-postfx/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-postfx/engine/renderer/render_graph"
	"github.com/Carmen-Shannon/oxy-postfx/engine/renderer/render_resource"
	"github.com/Carmen-Shannon/oxy-postfx/engine/renderer/render_resource/rendertest"
	"github.com/Carmen-Shannon/oxy-postfx/engine/renderer/view"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/yohamta/donburi"
)

const effectShader = `//@oxy:include fullscreen_vertex_output
//@oxy:include view

struct Settings {
    color: vec4<f32>,
}

@group(0) @binding(0) var screen_texture: texture_2d<f32>;
@group(0) @binding(1) var texture_sampler: sampler;
@group(0) @binding(2) var<uniform> settings: Settings;
@group(0) @binding(3) var<uniform> view: View;

@fragment
fn fragment(in: FullscreenVertexOutput) -> @location(0) vec4<f32> {
    return textureSample(screen_texture, texture_sampler, in.uv) * settings.color;
}
`

// tint multiplies the source color by Color.
type tint struct {
	Color [4]float32
}

func (tint) Size() int { return 16 }

func (t tint) Marshal() []byte {
	buf := make([]byte, 16)
	common.PutFloat32s(buf, 0, t.Color[:]...)
	return buf
}

// fade has the same layout as tint but is a distinct component type.
type fade struct {
	Amount float32
}

func (fade) Size() int { return 16 }

func (f fade) Marshal() []byte {
	buf := make([]byte, 16)
	common.PutFloat32s(buf, 0, f.Amount, f.Amount, f.Amount, 1)
	return buf
}

func vec4(b []byte) [4]float32 {
	var out [4]float32
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out
}

func color(c wgpu.Color) []byte {
	buf := make([]byte, 16)
	common.PutFloat32s(buf, 0, float32(c.R), float32(c.G), float32(c.B), float32(c.A))
	return buf
}

type draw struct {
	pipeline string
	settings [4]float32
	viewport [4]float32
}

type harness struct {
	app     app.App
	render  *ecs.World
	device  *rendertest.Device
	surface *rendertest.Surface

	mu    sync.Mutex
	draws []draw
}

type harnessOptions struct {
	fsys    fs.FS
	async   bool
	plugins []app.Plugin
}

func assets() fstest.MapFS {
	return fstest.MapFS{"shaders/effect.wgsl": {Data: []byte(effectShader)}}
}

// shade simulates the shaders: post-process draws multiply the source by the settings color,
// and the upscaling blit copies its texture.
func (h *harness) shade(in rendertest.DrawInput) []byte {
	if len(in.Textures) == 0 {
		return nil
	}
	src := in.Textures[0].Contents()
	if len(in.Uniforms) < 2 || len(src) < 16 {
		return src
	}
	settings := vec4(in.Uniforms[0])
	h.mu.Lock()
	h.draws = append(h.draws, draw{
		pipeline: in.Pipeline.Desc.Label,
		settings: settings,
		viewport: vec4(in.Uniforms[1][144:]),
	})
	h.mu.Unlock()

	c := vec4(src)
	out := make([]byte, 16)
	common.PutFloat32s(out, 0, c[0]*settings[0], c[1]*settings[1], c[2]*settings[2], c[3]*settings[3])
	return out
}

func newHarness(t *testing.T, opts harnessOptions) *harness {
	t.Helper()
	h := &harness{app: app.New(), surface: rendertest.NewSurface(300, 100)}
	h.device = rendertest.NewDevice(rendertest.WithShade(h.shade))

	fsys := opts.fsys
	if fsys == nil {
		fsys = assets()
	}
	var assetOptions []asset.ServerBuilderOption
	if !opts.async {
		assetOptions = append(assetOptions, asset.WithSynchronousLoading())
	}
	require.NoError(t, h.app.AddPlugins(
		asset.NewPlugin(fsys, assetOptions...),
		renderer.NewRenderPlugin(
			renderer.WithRenderDevice(h.device),
			renderer.WithSurface(h.surface),
			renderer.WithSynchronousPipelineCompilation(),
		),
		core3d.NewPlugin(),
	))
	require.NoError(t, h.app.AddPlugins(opts.plugins...))
	sub, ok := h.app.SubApp(renderer.RenderApp)
	require.True(t, ok)
	h.render = sub.World()
	t.Cleanup(func() {
		if server, ok := ecs.Resource[asset.Server](h.app.World()); ok {
			server.Close()
		}
	})
	return h
}

func (h *harness) camera(components ...any) donburi.Entity {
	w := h.app.World()
	e := w.Spawn()
	for _, c := range components {
		switch v := c.(type) {
		case camera.Camera:
			ecs.Insert(w, e, v)
		case tint:
			ecs.Insert(w, e, v)
		case fade:
			ecs.Insert(w, e, v)
		}
	}
	return e
}

func (h *harness) frame(t *testing.T) {
	t.Helper()
	h.device.ResetSubmitted()
	h.mu.Lock()
	h.draws = nil
	h.mu.Unlock()
	require.NoError(t, h.app.Update())
}

func passSource(t *testing.T, p *rendertest.Pass) *rendertest.TextureView {
	t.Helper()
	for _, c := range p.Commands {
		if c.Op == rendertest.OpSetBindGroup {
			v, ok := c.BindGroup.Desc.Entries[0].TextureView.(*rendertest.TextureView)
			require.True(t, ok)
			return v
		}
	}
	t.Fatal("pass has no bind group")
	return nil
}

func TestEffectsWithDistinctLabelsAreIndependent(t *testing.T) {
	h := newHarness(t, harnessOptions{plugins: []app.Plugin{
		NewPlugin[tint]("shaders/effect.wgsl", "tint"),
		NewPlugin[fade]("shaders/effect.wgsl", "fade", WithDebugLabel("fade_pipeline_custom")),
	}})

	g, ok := core3d.SubGraph(h.render)
	require.True(t, ok)
	order, err := g.Order()
	require.NoError(t, err)
	assert.Equal(t, []render_graph.Label{core3d.MainPass, core3d.EndMainPass, "tint", "fade", core3d.EndMainPassPostProcessing, core3d.Upscaling}, order)

	h.camera(camera.NewCamera(camera.WithClearColor(wgpu.Color{R: 1, G: 1, B: 1, A: 1})), tint{Color: [4]float32{0.5, 1, 1, 1}}, fade{Amount: 0.5})
	h.frame(t)

	tintReg, ok := PipelineFor(h.render, "tint")
	require.True(t, ok)
	fadeReg, ok := PipelineFor(h.render, "fade")
	require.True(t, ok)
	assert.NotSame(t, tintReg, fadeReg)
	assert.NotEqual(t, tintReg.ID(), fadeReg.ID())
	assert.NotSame(t, tintReg.Layout(), fadeReg.Layout())

	tintPasses := h.device.PassesLabeled("tint")
	fadePasses := h.device.PassesLabeled("fade")
	require.Len(t, tintPasses, 1)
	require.Len(t, fadePasses, 1)
	assert.Equal(t, "tint_pipeline", tintPasses[0].Draws()[0].Pipeline.Desc.Label)
	assert.Equal(t, "fade_pipeline_custom", fadePasses[0].Draws()[0].Pipeline.Desc.Label)
	assert.Same(t, tintReg.Layout(), passSourceGroup(t, tintPasses[0]).Desc.Layout)
	assert.Same(t, fadeReg.Layout(), passSourceGroup(t, fadePasses[0]).Desc.Layout)

	require.Len(t, h.draws, 2)
	assert.Equal(t, [4]float32{0.5, 1, 1, 1}, h.draws[0].settings)
	assert.Equal(t, [4]float32{0.5, 0.5, 0.5, 1}, h.draws[1].settings)

	// fade reads what tint wrote.
	assert.Same(t, tintPasses[0].Target().Texture(), passSource(t, fadePasses[0]).Texture())
	assert.Equal(t, [4]float32{0.25, 0.5, 0.5, 1}, vec4(fadePasses[0].Target().Contents()))
}

func passSourceGroup(t *testing.T, p *rendertest.Pass) *rendertest.BindGroup {
	t.Helper()
	for _, c := range p.Commands {
		if c.Op == rendertest.OpSetBindGroup {
			return c.BindGroup
		}
	}
	t.Fatal("pass has no bind group")
	return nil
}

func TestBindingSlotsDriveLayoutAndBindGroup(t *testing.T) {
	entries := layoutEntries(16)
	require.Len(t, entries, len(bindingSlots))

	in := bindInputs{
		source:        &rendertest.TextureView{},
		sampler:       &rendertest.Sampler{},
		settings:      render_resource.BufferBinding{Buffer: &rendertest.Buffer{}, Size: 16},
		view:          render_resource.BufferBinding{Buffer: &rendertest.Buffer{}, Size: 160},
		settingsIndex: 256,
		viewOffset:    512,
	}
	group := bindGroupEntries(in)
	require.Len(t, group, len(entries))

	for i, e := range entries {
		assert.Equal(t, uint32(i), e.Binding)
		assert.Equal(t, uint32(i), group[i].Binding)
		assert.Equal(t, bindingVisibility, e.Visibility)
		switch {
		case e.Texture.SampleType != wgpu.TextureSampleTypeUndefined:
			assert.NotNil(t, group[i].TextureView, "binding %d", i)
		case e.Sampler.Type != wgpu.SamplerBindingTypeUndefined:
			assert.NotNil(t, group[i].Sampler, "binding %d", i)
		default:
			require.NotNil(t, group[i].Buffer, "binding %d", i)
			assert.True(t, e.Buffer.HasDynamicOffset)
			assert.GreaterOrEqual(t, group[i].Size, e.Buffer.MinBindingSize)
		}
	}
	assert.Equal(t, uint64(16), entries[slotSettings].Buffer.MinBindingSize)
	assert.Equal(t, uint64(160), entries[slotView].Buffer.MinBindingSize)
	assert.Equal(t, []uint32{256, 512}, dynamicOffsets(in))
	assert.Equal(t, "[source sampler settings view]", fmt.Sprint(bindingSlots))
}

func TestMissingShaderSkipsViews(t *testing.T) {
	h := newHarness(t, harnessOptions{plugins: []app.Plugin{NewPlugin[tint]("shaders/missing.wgsl", "tint")}})
	h.camera(camera.NewCamera(), tint{Color: [4]float32{1, 1, 1, 1}})

	h.frame(t)
	h.frame(t)
	assert.Empty(t, h.device.PassesLabeled("tint"))

	reg, ok := PipelineFor(h.render, "tint")
	require.True(t, ok)
	state, err := ecs.MustResource[pipeline.PipelineCache](h.render).GetRenderPipelineState(reg.ID())
	assert.Equal(t, pipeline.PipelineStateErr, state)
	assert.ErrorIs(t, err, asset.ErrNotFound)
	assert.Len(t, h.device.PassesLabeled(string(core3d.Upscaling)), 1, "the frame still reaches the surface")
}

// gatedFS blocks reads of one file until open is closed.
type gatedFS struct {
	fs    fstest.MapFS
	gated string
	open  chan struct{}
}

func (g gatedFS) Open(name string) (fs.File, error) {
	if name == g.gated {
		<-g.open
	}
	return g.fs.Open(name)
}

func TestPendingShaderSkipsViewsUntilLoaded(t *testing.T) {
	gate := gatedFS{fs: assets(), gated: "shaders/effect.wgsl", open: make(chan struct{})}
	h := newHarness(t, harnessOptions{fsys: gate, async: true, plugins: []app.Plugin{NewPlugin[tint]("shaders/effect.wgsl", "tint")}})
	h.camera(camera.NewCamera(), tint{Color: [4]float32{1, 1, 1, 1}})

	h.frame(t)
	assert.Empty(t, h.device.PassesLabeled("tint"))
	reg, _ := PipelineFor(h.render, "tint")
	state, err := ecs.MustResource[pipeline.PipelineCache](h.render).GetRenderPipelineState(reg.ID())
	require.NoError(t, err)
	assert.Equal(t, pipeline.PipelineStateQueued, state)

	close(gate.open)
	ecs.MustResource[asset.Server](h.app.World()).Wait()
	h.frame(t)
	assert.Len(t, h.device.PassesLabeled("tint"), 1)
}

func TestCamerasUseTheirOwnSettings(t *testing.T) {
	h := newHarness(t, harnessOptions{plugins: []app.Plugin{NewPlugin[tint]("shaders/effect.wgsl", "tint")}})
	white := wgpu.Color{R: 1, G: 1, B: 1, A: 1}
	tints := [][4]float32{{1, 0, 0, 1}, {0, 1, 0, 1}, {0, 0, 1, 1}}
	for i, c := range tints {
		h.camera(camera.NewCamera(
			camera.WithOrder(i),
			camera.WithClearColor(white),
			camera.WithViewport(uint32(i)*100, 0, 100, 100),
		), tint{Color: c})
	}
	h.frame(t)

	passes := h.device.PassesLabeled("tint")
	require.Len(t, passes, len(tints))
	require.Len(t, h.draws, len(tints))
	for i, c := range tints {
		assert.Equal(t, c, vec4(passes[i].Target().Contents()), "camera %d", i)
		assert.Equal(t, c, h.draws[i].settings, "camera %d", i)
		assert.Equal(t, [4]float32{float32(i) * 100, 0, 100, 100}, h.draws[i].viewport, "camera %d", i)
	}

	offsets := map[uint32]bool{}
	for _, p := range passes {
		for _, c := range p.Commands {
			if c.Op == rendertest.OpSetBindGroup {
				require.Len(t, c.Offsets, 2)
				offsets[c.Offsets[0]] = true
			}
		}
	}
	assert.Len(t, offsets, len(tints), "every view has its own settings offset")
}

func TestPostProcessWritePingPongsAcrossFrames(t *testing.T) {
	h := newHarness(t, harnessOptions{plugins: []app.Plugin{NewPlugin[tint]("shaders/effect.wgsl", "tint")}})
	h.camera(camera.NewCamera(), tint{Color: [4]float32{1, 1, 1, 1}})

	h.frame(t)
	first := h.device.PassesLabeled("tint")
	require.Len(t, first, 1)
	src1, dst1 := passSource(t, first[0]).Texture(), first[0].Target().Texture()
	assert.NotSame(t, src1, dst1)
	up := h.device.PassesLabeled(string(core3d.Upscaling))
	require.Len(t, up, 1)
	assert.Same(t, dst1, passSource(t, up[0]).Texture(), "upscaling reads the effect's output")

	h.frame(t)
	second := h.device.PassesLabeled("tint")
	require.Len(t, second, 1)
	main := h.device.PassesLabeled(string(core3d.MainPass))
	require.Len(t, main, 1)
	assert.Same(t, dst1, main[0].Target().Texture(), "the main pass renders into the previous destination")
	assert.Same(t, dst1, passSource(t, second[0]).Texture())
	assert.Same(t, src1, second[0].Target().Texture())
}

func TestRerunningProducesIdenticalOutput(t *testing.T) {
	h := newHarness(t, harnessOptions{plugins: []app.Plugin{NewPlugin[tint]("shaders/effect.wgsl", "tint")}})
	h.camera(camera.NewCamera(camera.WithClearColor(wgpu.Color{R: 0.5, G: 0.25, B: 1, A: 1})), tint{Color: [4]float32{0.5, 0.5, 0.5, 1}})

	h.frame(t)
	h.frame(t)
	require.Len(t, h.surface.Frames, 2)
	assert.Equal(t, h.surface.Frames[0].Contents(), h.surface.Frames[1].Contents())
	assert.Equal(t, [4]float32{0.25, 0.125, 0.5, 1}, vec4(h.surface.Frames[1].Contents()))
}

func TestCameraWithoutSettingsIsSkipped(t *testing.T) {
	h := newHarness(t, harnessOptions{plugins: []app.Plugin{NewPlugin[tint]("shaders/effect.wgsl", "tint")}})
	clear := wgpu.Color{R: 0.5, G: 0.5, B: 0.5, A: 1}
	h.camera(camera.NewCamera(camera.WithClearColor(clear)))
	h.frame(t)

	assert.Empty(t, h.device.PassesLabeled("tint"))
	require.Len(t, h.surface.Frames, 1)
	assert.Equal(t, color(clear), h.surface.Frames[0].Contents())
}

func TestEffectsCanShareASettingsType(t *testing.T) {
	h := newHarness(t, harnessOptions{plugins: []app.Plugin{
		NewPlugin[tint]("shaders/effect.wgsl", "first"),
		NewPlugin[tint]("shaders/effect.wgsl", "second"),
	}})
	h.camera(camera.NewCamera(camera.WithClearColor(wgpu.Color{R: 1, G: 1, B: 1, A: 1})), tint{Color: [4]float32{0.5, 0.5, 0.5, 1}})
	h.frame(t)

	assert.Len(t, h.device.PassesLabeled("first"), 1)
	assert.Len(t, h.device.PassesLabeled("second"), 1)
	assert.Equal(t, [4]float32{0.25, 0.25, 0.25, 1}, vec4(h.surface.Frames[0].Contents()))
}

func TestConfigurationErrors(t *testing.T) {
	h := newHarness(t, harnessOptions{plugins: []app.Plugin{NewPlugin[tint]("shaders/effect.wgsl", "tint")}})
	assert.ErrorIs(t, h.app.AddPlugins(NewPlugin[fade]("shaders/effect.wgsl", "tint")), app.ErrDuplicatePlugin)

	bare := app.New()
	assert.ErrorIs(t, bare.AddPlugins(NewPlugin[tint]("shaders/effect.wgsl", "tint")), app.ErrSubAppNotFound)

	noCore := app.New()
	require.NoError(t, noCore.AddPlugins(asset.NewPlugin(assets(), asset.WithSynchronousLoading()), renderer.NewRenderPlugin()))
	assert.Error(t, noCore.AddPlugins(NewPlugin[tint]("shaders/effect.wgsl", "tint")))
	assert.False(t, noCore.IsPluginAdded(NewPlugin[tint]("shaders/effect.wgsl", "tint").Name()))
}

func TestTakenNodeLabelLeavesNoPluginsBehind(t *testing.T) {
	h := newHarness(t, harnessOptions{})
	graph, ok := core3d.SubGraph(h.render)
	require.True(t, ok)
	require.NoError(t, graph.AddNode("taken", &node[tint]{label: "taken"}))

	err := h.app.AddPlugins(NewPlugin[fade]("shaders/effect.wgsl", "taken"))
	assert.ErrorIs(t, err, render_graph.ErrNodeExists)
	assert.False(t, h.app.IsPluginAdded(extract.NewExtractComponentPlugin[fade]().Name()))
	assert.False(t, h.app.IsPluginAdded(extract.NewUniformComponentPlugin[fade]().Name()))
	_, ok = PipelineFor(h.render, "taken")
	assert.False(t, ok)
}

func TestSkippedViewsAreLoggedAtDebug(t *testing.T) {
	var buf bytes.Buffer
	common.SetLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { common.SetLogger(nil) })

	h := newHarness(t, harnessOptions{plugins: []app.Plugin{NewPlugin[tint]("shaders/missing.wgsl", "tint")}})
	h.camera(camera.NewCamera(), tint{Color: [4]float32{1, 1, 1, 1}})
	h.frame(t)

	out := buf.String()
	assert.Contains(t, out, "post-process view skipped")
	assert.Contains(t, out, "reason=\"pipeline not compiled\"")
	assert.Contains(t, out, "shaders/missing.wgsl")
	assert.Empty(t, h.device.PassesLabeled("tint"))
}

func TestInitIsDeferredWithoutDevice(t *testing.T) {
	a := app.New()
	require.NoError(t, a.AddPlugins(
		asset.NewPlugin(assets(), asset.WithSynchronousLoading()),
		renderer.NewRenderPlugin(),
		core3d.NewPlugin(),
		NewPlugin[tint]("shaders/effect.wgsl", "tint"),
	))
	require.NoError(t, a.Update())

	sub, _ := a.SubApp(renderer.RenderApp)
	reg, ok := PipelineFor(sub.World(), "tint")
	require.True(t, ok)
	assert.False(t, reg.Ready())
	assert.ErrorIs(t, reg.Init(sub.World()), ErrNotReady)
}

func TestInitRunsOnce(t *testing.T) {
	h := newHarness(t, harnessOptions{plugins: []app.Plugin{NewPlugin[tint]("shaders/effect.wgsl", "tint")}})
	require.NoError(t, h.app.Finish())
	reg, ok := PipelineFor(h.render, "tint")
	require.True(t, ok)
	require.True(t, reg.Ready())

	layouts := len(h.device.BindGroupLayouts)
	id := reg.ID()
	require.NoError(t, reg.Init(h.render))
	assert.Equal(t, id, reg.ID())
	assert.Len(t, h.device.BindGroupLayouts, layouts)

	desc, err := ecs.MustResource[pipeline.PipelineCache](h.render).Descriptor(id)
	require.NoError(t, err)
	assert.Equal(t, "tint_pipeline", desc.Label)
	assert.Equal(t, core3d.FullscreenVertexState(), desc.Vertex)
	require.NotNil(t, desc.Fragment)
	assert.Equal(t, "fragment", desc.Fragment.EntryPoint)
	assert.Equal(t, render_resource.DefaultTextureFormat, desc.Fragment.Format)
	assert.False(t, desc.BlendEnabled())
	assert.Equal(t, "tint_bind_group_layout", reg.Layout().Label())
	assert.Equal(t, render_graph.Label("tint"), reg.Label())
	assert.Equal(t, "shaders/effect.wgsl", reg.Shader().Path())
	assert.Equal(t, reg.Shader(), desc.Fragment.Shader)
}

func TestBindGroupsAreReleasedAfterSubmission(t *testing.T) {
	h := newHarness(t, harnessOptions{plugins: []app.Plugin{NewPlugin[tint]("shaders/effect.wgsl", "tint")}})
	h.camera(camera.NewCamera(), tint{Color: [4]float32{1, 1, 1, 1}})
	h.frame(t)
	h.frame(t)
	assert.Len(t, h.device.PassesLabeled("tint"), 1)
	assert.Zero(t, h.device.LiveBindGroups())
}

func TestViewOffsetsComeFromViewUniforms(t *testing.T) {
	h := newHarness(t, harnessOptions{plugins: []app.Plugin{NewPlugin[tint]("shaders/effect.wgsl", "tint")}})
	h.camera(camera.NewCamera(camera.WithOrder(0), camera.WithViewport(0, 0, 100, 100)), tint{Color: [4]float32{1, 1, 1, 1}})
	h.camera(camera.NewCamera(camera.WithOrder(1), camera.WithViewport(100, 0, 200, 100)), tint{Color: [4]float32{1, 1, 1, 1}})
	h.frame(t)

	_, ok := ecs.Resource[*view.ViewUniforms](h.render)
	require.True(t, ok)
	require.Len(t, h.draws, 2)
	assert.Equal(t, [4]float32{0, 0, 100, 100}, h.draws[0].viewport)
	assert.Equal(t, [4]float32{100, 0, 200, 100}, h.draws[1].viewport)
}
