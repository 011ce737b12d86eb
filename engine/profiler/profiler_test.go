package profiler

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/oxy-postfx/common"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func TestTickReportsOncePerInterval(t *testing.T) {
	c := &clock{t: time.Unix(0, 0)}
	p := NewProfiler(WithInterval(2 * time.Second))
	p.now = c.now
	p.lastTime = c.t

	var buf bytes.Buffer
	common.SetLogger(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { common.SetLogger(nil) })

	for range 3 {
		c.t = c.t.Add(500 * time.Millisecond)
		_, ok := p.Tick()
		require.False(t, ok)
	}
	c.t = c.t.Add(500 * time.Millisecond)
	stats, ok := p.Tick()
	require.True(t, ok)
	assert.InDelta(t, 2.0, stats.FPS, 1e-9)
	assert.Contains(t, buf.String(), "frame stats")
	assert.Contains(t, buf.String(), "fps=2")

	c.t = c.t.Add(time.Second)
	_, ok = p.Tick()
	assert.False(t, ok, "the interval restarts after a report")
}

func TestWithIntervalIgnoresNonPositive(t *testing.T) {
	p := NewProfiler(WithInterval(0))
	assert.Equal(t, time.Second, p.updateInterval)
}
