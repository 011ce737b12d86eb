package app

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/oxy-postfx/engine/ecs"
)

type counter struct{ n int }

type namedPlugin struct {
	name   string
	builds *int
	err    error
}

func (p *namedPlugin) Name() string { return p.name }

func (p *namedPlugin) Build(App) error {
	*p.builds++
	return p.err
}

type finishingPlugin struct{ finished int }

func (p *finishingPlugin) Build(App) error { return nil }

func (p *finishingPlugin) Finish(App) error {
	p.finished++
	return nil
}

func TestAddPluginsRejectsDuplicateNames(t *testing.T) {
	a := New()
	builds := 0
	require.NoError(t, a.AddPlugins(&namedPlugin{name: "blur", builds: &builds}))
	require.NoError(t, a.AddPlugins(&namedPlugin{name: "sky", builds: &builds}))

	err := a.AddPlugins(&namedPlugin{name: "blur", builds: &builds})
	assert.ErrorIs(t, err, ErrDuplicatePlugin)
	assert.Equal(t, 2, builds)
	assert.True(t, a.IsPluginAdded("sky"))
}

func TestFailedBuildIsNotRecorded(t *testing.T) {
	a := New()
	builds := 0
	boom := errors.New("boom")
	err := a.AddPlugins(&namedPlugin{name: "x", builds: &builds, err: boom})
	assert.ErrorIs(t, err, boom)
	assert.False(t, a.IsPluginAdded("x"))
}

func TestFinishRunsOnce(t *testing.T) {
	a := New()
	p := &finishingPlugin{}
	require.NoError(t, a.AddPlugins(p))
	require.NoError(t, a.Update())
	require.NoError(t, a.Update())
	assert.Equal(t, 1, p.finished)
}

func TestUpdateOrder(t *testing.T) {
	a := New()
	var trace []string
	record := func(s string) System {
		return func(*ecs.World) error {
			trace = append(trace, s)
			return nil
		}
	}
	a.AddSystems(Update, record("update"))
	a.AddSystems(PostUpdate, record("post"))
	a.AddSystems(Startup, record("startup"))

	sub := NewSubApp()
	sub.AddSystems(Set(2), record("set2"))
	sub.AddSystems(Set(1), record("set1"))
	sub.AddExtractSystems(func(main, render *ecs.World) error {
		trace = append(trace, "extract")
		return nil
	})
	a.InsertSubApp("render", sub)

	require.NoError(t, a.Update())
	require.NoError(t, a.Update())
	assert.Equal(t, []string{
		"startup", "update", "post", "extract", "set1", "set2",
		"update", "post", "extract", "set1", "set2",
	}, trace)
}

func TestFailingSystemDoesNotStopFrame(t *testing.T) {
	a := New()
	boom := errors.New("boom")
	ran := false
	a.AddSystems(Update, func(*ecs.World) error { return boom })
	a.AddSystems(Update, func(w *ecs.World) error {
		ran = true
		ecs.InsertResource(w, &counter{n: 1})
		return nil
	})

	err := a.Update()
	assert.ErrorIs(t, err, boom)
	assert.True(t, ran)
	assert.Equal(t, 1, ecs.MustResource[*counter](a.World()).n)
}

func TestSubAppLookup(t *testing.T) {
	a := New()
	_, ok := a.SubApp("render")
	assert.False(t, ok)
	sub := NewSubApp()
	a.InsertSubApp("render", sub)
	got, ok := a.SubApp("render")
	require.True(t, ok)
	assert.Same(t, sub, got)
}
