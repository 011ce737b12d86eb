package pipeline

import (
	"sync"
	"sync/atomic"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/oxy-postfx/engine/asset"
	"github.com/Carmen-Shannon/oxy-postfx/engine/renderer/render_resource"
	"github.com/Carmen-Shannon/oxy-postfx/engine/renderer/render_resource/rendertest"
	"github.com/cogentcore/webgpu/wgpu"
)

const vertexSource = `@vertex
fn vertex(@builtin(vertex_index) i: u32) -> @builtin(position) vec4<f32> {
    let uv = vec2<f32>(f32((i << 1u) & 2u), f32(i & 2u));
    return vec4<f32>(uv * 2.0 - 1.0, 0.0, 1.0);
}
`

const sampleSource = `@group(0) @binding(0) var screen_texture: texture_2d<f32>;
@group(0) @binding(1) var texture_sampler: sampler;

@fragment
fn fragment(@builtin(position) pos: vec4<f32>) -> @location(0) vec4<f32> {
    return textureSample(screen_texture, texture_sampler, pos.xy);
}
`

const uniformSource = `struct Tint { color: vec4<f32> }
@group(0) @binding(2) var<uniform> tint: Tint;

@fragment
fn fragment() -> @location(0) vec4<f32> {
    return tint.color;
}
`

type fixture struct {
	fsys   fstest.MapFS
	assets asset.Server
	device *rendertest.Device
	cache  PipelineCache
	layout render_resource.BindGroupLayout
}

func newFixture(t *testing.T, options ...PipelineCacheBuilderOption) *fixture {
	t.Helper()
	return newFixtureOn(t, rendertest.NewDevice(), options...)
}

func newFixtureOn(t *testing.T, device *rendertest.Device, options ...PipelineCacheBuilderOption) *fixture {
	t.Helper()
	f := &fixture{
		fsys: fstest.MapFS{
			"fullscreen.wgsl": {Data: []byte(vertexSource)},
			"sample.wgsl":     {Data: []byte(sampleSource)},
			"uniform.wgsl":    {Data: []byte(uniformSource)},
			"broken.wgsl":     {Data: []byte("fn fragment( {")},
		},
		device: device,
	}
	var err error
	f.assets, err = asset.NewServer(f.fsys, asset.WithSynchronousLoading())
	require.NoError(t, err)
	t.Cleanup(func() { f.assets.Close() })

	f.cache = NewPipelineCache(f.device, f.assets, options...)
	t.Cleanup(f.cache.Release)

	f.layout, err = f.device.CreateBindGroupLayout(render_resource.BindGroupLayoutDescriptor{
		Label: "sample_layout",
		Entries: render_resource.SequentialLayout(wgpu.ShaderStageFragment,
			render_resource.Texture2DEntry(wgpu.TextureSampleTypeFloat),
			render_resource.SamplerEntry(wgpu.SamplerBindingTypeFiltering),
		),
	})
	require.NoError(t, err)
	return f
}

func (f *fixture) descriptor(fragment string, opts ...PipelineBuilderOption) RenderPipelineDescriptor {
	base := []PipelineBuilderOption{
		WithLayout(f.layout),
		WithFragment(f.assets.Load(fragment), "fragment", render_resource.DefaultTextureFormat),
	}
	return NewRenderPipelineDescriptor(
		fragment,
		VertexState{Shader: f.assets.Load("fullscreen.wgsl"), EntryPoint: "vertex"},
		append(base, opts...)...,
	)
}

func TestNewRenderPipelineDescriptorDefaults(t *testing.T) {
	d := NewRenderPipelineDescriptor("p", VertexState{Shader: asset.NewHandle("v.wgsl"), EntryPoint: "vertex"})
	assert.False(t, d.BlendEnabled())
	assert.Equal(t, wgpu.CullModeNone, d.CullMode())
	assert.Equal(t, wgpu.PrimitiveTopologyTriangleList, d.Topology())
	assert.Equal(t, wgpu.ColorWriteMaskAll, d.WriteMask())
	assert.Equal(t, uint32(1), d.SampleCount())
	assert.Nil(t, d.Fragment)
	assert.Len(t, d.Shaders(), 1)

	d = NewRenderPipelineDescriptor("p", VertexState{Shader: asset.NewHandle("v.wgsl")},
		WithFragment(asset.NewHandle("f.wgsl"), "fragment", wgpu.TextureFormatBGRA8Unorm),
		WithSampleCount(0),
		WithCullMode(wgpu.CullModeBack),
	)
	assert.Equal(t, uint32(1), d.SampleCount())
	assert.Equal(t, wgpu.CullModeBack, d.CullMode())
	assert.Len(t, d.Shaders(), 2)
}

func TestProcessQueueCreatesPipeline(t *testing.T) {
	f := newFixture(t, WithSynchronousCompilation())
	id := f.cache.QueueRenderPipeline(f.descriptor("sample.wgsl"))

	_, ok := f.cache.GetRenderPipeline(id)
	assert.False(t, ok, "nothing is created before the queue is processed")
	state, err := f.cache.GetRenderPipelineState(id)
	assert.NoError(t, err)
	assert.Equal(t, PipelineStateQueued, state)

	f.cache.ProcessQueue()
	p, ok := f.cache.GetRenderPipeline(id)
	require.True(t, ok)

	rp := p.(*rendertest.RenderPipeline)
	assert.Equal(t, "sample.wgsl", rp.Label())
	require.NotNil(t, rp.Desc.Fragment)
	assert.Equal(t, "fragment", rp.Desc.Fragment.EntryPoint)
	assert.Equal(t, "vertex", rp.Desc.Vertex.EntryPoint)
	require.Len(t, rp.Desc.Fragment.Targets, 1)
	assert.Nil(t, rp.Desc.Fragment.Targets[0].Blend)
	assert.Equal(t, render_resource.DefaultTextureFormat, rp.Desc.Fragment.Targets[0].Format)

	desc, err := f.cache.Descriptor(id)
	require.NoError(t, err)
	assert.Equal(t, "sample.wgsl", desc.Label)
}

func TestShaderNotYetRequestedStaysQueued(t *testing.T) {
	f := newFixture(t, WithSynchronousCompilation())
	desc := NewRenderPipelineDescriptor("late", VertexState{Shader: asset.NewHandle("fullscreen.wgsl"), EntryPoint: "vertex"},
		WithLayout(f.layout),
		WithFragment(asset.NewHandle("sample.wgsl"), "fragment", render_resource.DefaultTextureFormat),
	)
	id := f.cache.QueueRenderPipeline(desc)

	f.cache.ProcessQueue()
	state, _ := f.cache.GetRenderPipelineState(id)
	assert.Equal(t, PipelineStateQueued, state, "the first pass only requests the shaders")

	for range 2 {
		f.cache.ProcessQueue()
	}
	state, err := f.cache.GetRenderPipelineState(id)
	assert.NoError(t, err)
	assert.Equal(t, PipelineStateOk, state)
}

func TestProcessQueueFailures(t *testing.T) {
	f := newFixture(t, WithSynchronousCompilation())

	missing := f.cache.QueueRenderPipeline(f.descriptor("missing.wgsl"))
	broken := f.cache.QueueRenderPipeline(f.descriptor("broken.wgsl"))
	entry := f.cache.QueueRenderPipeline(NewRenderPipelineDescriptor("entry",
		VertexState{Shader: f.assets.Load("fullscreen.wgsl"), EntryPoint: "vertex"},
		WithLayout(f.layout),
		WithFragment(f.assets.Load("sample.wgsl"), "frag_main", render_resource.DefaultTextureFormat),
	))
	binding := f.cache.QueueRenderPipeline(f.descriptor("uniform.wgsl"))
	noLayout := f.cache.QueueRenderPipeline(f.descriptor("sample.wgsl", WithLayout()))

	f.cache.ProcessQueue()

	state, err := f.cache.GetRenderPipelineState(missing)
	assert.Equal(t, PipelineStateErr, state)
	assert.ErrorIs(t, err, asset.ErrNotFound)

	state, err = f.cache.GetRenderPipelineState(broken)
	assert.Equal(t, PipelineStateErr, state)
	assert.Error(t, err)

	state, err = f.cache.GetRenderPipelineState(entry)
	assert.Equal(t, PipelineStateErr, state)
	assert.ErrorIs(t, err, ErrEntryPointNotFound)

	state, err = f.cache.GetRenderPipelineState(binding)
	assert.Equal(t, PipelineStateErr, state)
	assert.ErrorIs(t, err, ErrBindingMismatch)

	state, err = f.cache.GetRenderPipelineState(noLayout)
	assert.Equal(t, PipelineStateErr, state)
	assert.ErrorIs(t, err, ErrBindingMismatch)

	for _, id := range []CachedRenderPipelineID{missing, broken, entry, binding, noLayout} {
		_, ok := f.cache.GetRenderPipeline(id)
		assert.False(t, ok)
	}
	assert.Empty(t, f.device.Pipelines)

	_, err = f.cache.GetRenderPipelineState(CachedRenderPipelineID(99))
	assert.ErrorIs(t, err, ErrUnknownPipeline)
}

func TestDeviceErrorIsRecorded(t *testing.T) {
	f := newFixture(t, WithSynchronousCompilation())
	f.device = rendertest.NewDevice(rendertest.WithShaderModuleError(func(label, _ string) error {
		if label == "sample.wgsl" {
			return assert.AnError
		}
		return nil
	}))
	cache := NewPipelineCache(f.device, f.assets, WithSynchronousCompilation())
	defer cache.Release()

	id := cache.QueueRenderPipeline(f.descriptor("sample.wgsl"))
	cache.ProcessQueue()
	state, err := cache.GetRenderPipelineState(id)
	assert.Equal(t, PipelineStateErr, state)
	assert.ErrorIs(t, err, assert.AnError)
}

func TestShaderModulesAreShared(t *testing.T) {
	f := newFixture(t, WithSynchronousCompilation())
	a := f.cache.QueueRenderPipeline(f.descriptor("sample.wgsl"))
	b := f.cache.QueueRenderPipeline(f.descriptor("sample.wgsl", WithBlendEnabled(true)))
	f.cache.ProcessQueue()

	_, okA := f.cache.GetRenderPipeline(a)
	pb, okB := f.cache.GetRenderPipeline(b)
	require.True(t, okA)
	require.True(t, okB)
	assert.Len(t, f.device.ShaderModules, 2, "one module per shader, not per pipeline")
	assert.NotNil(t, pb.(*rendertest.RenderPipeline).Desc.Fragment.Targets[0].Blend)
}

func TestReloadRecreatesPipeline(t *testing.T) {
	f := newFixture(t, WithSynchronousCompilation())
	f.fsys["effect.wgsl"] = &fstest.MapFile{Data: []byte("fn fragment( {")}

	id := f.cache.QueueRenderPipeline(f.descriptor("effect.wgsl"))
	f.cache.ProcessQueue()
	state, _ := f.cache.GetRenderPipelineState(id)
	require.Equal(t, PipelineStateErr, state)

	f.fsys["effect.wgsl"] = &fstest.MapFile{Data: []byte(sampleSource)}
	f.assets.Reload(asset.NewHandle("effect.wgsl"))
	f.cache.ProcessQueue()

	first, ok := f.cache.GetRenderPipeline(id)
	require.True(t, ok, "a fixed shader recovers the pipeline")

	f.fsys["effect.wgsl"] = &fstest.MapFile{Data: []byte(sampleSource + "\n// edited\n")}
	f.assets.Reload(asset.NewHandle("effect.wgsl"))
	f.cache.ProcessQueue()

	second, ok := f.cache.GetRenderPipeline(id)
	require.True(t, ok)
	assert.NotSame(t, first, second)
	assert.True(t, first.(*rendertest.RenderPipeline).Released(), "the replaced pipeline is released")

	var effectModules int
	for _, m := range f.device.ShaderModules {
		if m.Label() == "effect.wgsl" {
			effectModules++
			if m != f.device.ShaderModules[len(f.device.ShaderModules)-1] {
				assert.True(t, m.Released())
			}
		}
	}
	assert.Equal(t, 2, effectModules)
}

func TestAsyncCompilation(t *testing.T) {
	f := newFixture(t, WithCompileWorkers(2))
	ids := []CachedRenderPipelineID{
		f.cache.QueueRenderPipeline(f.descriptor("sample.wgsl")),
		f.cache.QueueRenderPipeline(f.descriptor("sample.wgsl", WithWriteMask(wgpu.ColorWriteMaskRed))),
	}
	f.cache.ProcessQueue()
	f.cache.Wait()

	for _, id := range ids {
		state, err := f.cache.GetRenderPipelineState(id)
		require.NoError(t, err)
		assert.Equal(t, PipelineStateOk, state)
	}
}

func TestReloadWaitsForInFlightCreation(t *testing.T) {
	entered := make(chan struct{})
	gate := make(chan struct{})
	var once sync.Once
	var moduleReleased atomic.Bool
	device := rendertest.NewDevice(rendertest.WithPipelineHook(func(desc render_resource.RenderPipelineDescriptor) {
		once.Do(func() {
			close(entered)
			<-gate
			moduleReleased.Store(desc.Fragment.Module.(*rendertest.ShaderModule).Released())
		})
	}))
	f := newFixtureOn(t, device, WithCompileWorkers(1))
	f.fsys["effect.wgsl"] = &fstest.MapFile{Data: []byte(sampleSource)}

	id := f.cache.QueueRenderPipeline(f.descriptor("effect.wgsl"))
	f.cache.ProcessQueue()
	<-entered

	f.fsys["effect.wgsl"] = &fstest.MapFile{Data: []byte(sampleSource + "\n// edited\n")}
	f.assets.Reload(asset.NewHandle("effect.wgsl"))
	done := make(chan struct{})
	go func() {
		f.cache.ProcessQueue()
		close(done)
	}()

	assert.Never(t, func() bool {
		select {
		case <-done:
			return true
		default:
			return false
		}
	}, 50*time.Millisecond, 5*time.Millisecond, "reload must wait for the creation holding the old module")

	close(gate)
	<-done
	f.cache.Wait()

	assert.False(t, moduleReleased.Load(), "the module was released while a pipeline was being created from it")
	state, err := f.cache.GetRenderPipelineState(id)
	require.NoError(t, err)
	assert.Equal(t, PipelineStateOk, state)
}
