package asset

import (
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/oxy-postfx/engine/app"
	"github.com/Carmen-Shannon/oxy-postfx/engine/ecs"
	"github.com/Carmen-Shannon/oxy-postfx/engine/renderer/shader"
)

const validShader = `@fragment
fn fragment() -> @location(0) vec4<f32> {
    return vec4<f32>(1.0, 0.0, 0.0, 1.0);
}
`

func TestNewHandleNormalises(t *testing.T) {
	assert.Equal(t, NewHandle("shaders/sky.wgsl"), NewHandle("./shaders//sky.wgsl"))
	assert.Equal(t, "shaders/sky.wgsl", NewHandle(`shaders\sky.wgsl`).Path())
	assert.True(t, EmbeddedHandle("core3d/fullscreen.wgsl").IsEmbedded())
	assert.Equal(t, "embedded://core3d/fullscreen.wgsl", EmbeddedHandle("/core3d/fullscreen.wgsl").Path())
	assert.True(t, NewHandle("").IsZero())
}

func TestSynchronousLoad(t *testing.T) {
	s, err := NewServer(fstest.MapFS{
		"shaders/red.wgsl":    {Data: []byte(validShader)},
		"shaders/broken.wgsl": {Data: []byte("fn (")},
	}, WithSynchronousLoading())
	require.NoError(t, err)
	defer s.Close()

	h := s.Load("shaders/red.wgsl")
	sh, state, err := s.Get(h)
	require.NoError(t, err)
	assert.Equal(t, LoadStateLoaded, state)
	assert.True(t, sh.Reflection().HasEntryPoint("fragment", shader.StageFragment))
	assert.Equal(t, uint64(1), s.Version(h))

	assert.Equal(t, h, s.Load("shaders/red.wgsl"))
	assert.Equal(t, uint64(1), s.Version(h), "a second Load does not reload")

	_, state, err = s.Get(s.Load("shaders/missing.wgsl"))
	assert.Equal(t, LoadStateFailed, state)
	assert.ErrorIs(t, err, ErrNotFound)

	_, state, err = s.Get(s.Load("shaders/broken.wgsl"))
	assert.Equal(t, LoadStateFailed, state)
	assert.Error(t, err)

	_, state, _ = s.Get(NewHandle("never/requested.wgsl"))
	assert.Equal(t, LoadStateNotLoaded, state)
}

func TestAsyncLoad(t *testing.T) {
	s, err := NewServer(fstest.MapFS{"a.wgsl": {Data: []byte(validShader)}}, WithWorkers(2))
	require.NoError(t, err)
	defer s.Close()

	h := s.Load("a.wgsl")
	s.Wait()
	_, state, err := s.Get(h)
	require.NoError(t, err)
	assert.Equal(t, LoadStateLoaded, state)
}

func TestEmbedded(t *testing.T) {
	s, err := NewServer(nil, WithSynchronousLoading())
	require.NoError(t, err)
	defer s.Close()

	h := s.AddEmbedded("core3d/test.wgsl", validShader)
	assert.Equal(t, EmbeddedHandle("core3d/test.wgsl"), h)
	_, state, err := s.Get(h)
	require.NoError(t, err)
	assert.Equal(t, LoadStateLoaded, state)

	_, state, _ = s.Get(s.Load("plain.wgsl"))
	assert.Equal(t, LoadStateFailed, state, "no file system means nothing but embedded assets")
}

func TestReloadKeepsPreviousShaderOnFailure(t *testing.T) {
	fsys := fstest.MapFS{"a.wgsl": {Data: []byte(validShader)}}
	s, err := NewServer(fsys, WithSynchronousLoading())
	require.NoError(t, err)
	defer s.Close()

	h := s.Load("a.wgsl")
	fsys["a.wgsl"] = &fstest.MapFile{Data: []byte("fn (")}
	s.Reload(h)

	sh, state, err := s.Get(h)
	assert.Equal(t, LoadStateLoaded, state)
	assert.NotNil(t, sh)
	assert.Error(t, err)
	assert.Equal(t, []Handle{h}, s.TakeModified())
	assert.Empty(t, s.TakeModified())
}

func TestWatchDirReloadsChangedFiles(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "fx.wgsl")
	require.NoError(t, os.WriteFile(file, []byte(validShader), 0o644))

	s, err := NewServer(os.DirFS(dir), WithSynchronousLoading(), WithWatchDir(dir))
	require.NoError(t, err)
	defer s.Close()

	h := s.Load("fx.wgsl")
	require.Equal(t, uint64(1), s.Version(h))

	require.NoError(t, os.WriteFile(file, []byte(validShader+"\n"), 0o644))
	assert.Eventually(t, func() bool { return s.Version(h) >= 2 }, 5*time.Second, 10*time.Millisecond)
	assert.Contains(t, s.TakeModified(), h)
}

func TestPluginInsertsServer(t *testing.T) {
	a := app.New()
	require.NoError(t, a.AddPlugins(NewPlugin(fstest.MapFS{}, WithSynchronousLoading())))
	s, ok := ecs.Resource[Server](a.World())
	require.True(t, ok)
	require.NoError(t, s.Close())
}
