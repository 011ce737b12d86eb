package config

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
[window]
title = "sky"
width = 1600
height = 900

[engine]
tick_rate = 30
frame_limit = 144
profiling = true
profiler_interval = "5s"

[renderer]
present_mode = "Uncapped"
synchronous_compilation = true

[assets]
root = "examples/assets"
hot_reload = true

[log]
level = "debug"
format = "json"
`

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestParseOverridesDefaults(t *testing.T) {
	c, err := Parse([]byte(sample))
	require.NoError(t, err)

	assert.Equal(t, "sky", c.Window.Title)
	assert.Equal(t, 1600, c.Window.Width)
	assert.Equal(t, 320, c.Window.MinWidth, "keys left out keep their default")
	assert.True(t, c.Window.Resizable)
	assert.Equal(t, 30.0, c.Engine.TickRate)
	assert.True(t, c.Engine.Profiling)
	assert.Equal(t, 2, c.Renderer.CompileWorkers)
	assert.True(t, c.Assets.HotReload)

	assert.Len(t, c.WindowOptions(), 6)
	assert.Len(t, c.EngineOptions(), 3)
	assert.Len(t, c.RenderDeviceOptions(), 2)
	assert.Len(t, c.RenderPluginOptions(), 2)
	assert.Len(t, c.AssetOptions(), 2)

	mode, err := c.Renderer.presentMode()
	require.NoError(t, err)
	assert.Equal(t, "uncapped", mode.String())
}

func TestUnknownKeysAreRejected(t *testing.T) {
	_, err := Parse([]byte("[window]\ntitel = \"typo\"\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "titel")
}

func TestValidationJoinsEveryProblem(t *testing.T) {
	_, err := Parse([]byte(`
[window]
width = 0
[engine]
profiler_interval = "soon"
[renderer]
present_mode = "triple"
[log]
level = "loud"
format = "xml"
`))
	require.ErrorIs(t, err, ErrInvalid)
	for _, key := range []string{"window.width", "engine.profiler_interval", "renderer.present_mode", "log.level", "log.format"} {
		assert.Contains(t, err.Error(), key)
	}
}

func TestOpenFS(t *testing.T) {
	fsys := fstest.MapFS{"oxy.toml": {Data: []byte(sample)}}
	c, err := OpenFS(fsys, "oxy.toml")
	require.NoError(t, err)
	assert.Equal(t, "examples/assets", c.Assets.Root)

	_, err = OpenFS(fsys, "missing.toml")
	assert.Error(t, err)
}

func TestMarshalReadsBack(t *testing.T) {
	c, err := Parse([]byte(sample))
	require.NoError(t, err)
	data, err := c.Marshal()
	require.NoError(t, err)
	back, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, c, back)
}

func TestLoggerHonoursLevelAndFormat(t *testing.T) {
	c := Default()
	c.Log.Level = "warn"
	c.Log.Format = "json"

	var buf bytes.Buffer
	l := c.Logger(&buf)
	assert.False(t, l.Enabled(context.Background(), slog.LevelInfo))
	l.Warn("careful", "n", 1)
	assert.Contains(t, buf.String(), `"msg":"careful"`)
}
