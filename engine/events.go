package engine

import (
	"time"

	"github.com/Carmen-Shannon/oxy-postfx/common"
	"github.com/Carmen-Shannon/oxy-postfx/engine/window"
	"github.com/yohamta/donburi/features/events"
)

// WindowResized is published on the main world when the surface is reconfigured.
type WindowResized struct {
	Size common.Extent
}

// KeyInput is published on the main world for every key press, repeat and release.
type KeyInput struct {
	Key     window.Key
	Pressed bool
}

// MouseButtonInput is published on the main world for mouse button presses and releases.
type MouseButtonInput struct {
	Button  window.MouseButton
	Pressed bool
	X, Y    float32
}

// CursorMoved is published on the main world when the cursor moves.
type CursorMoved struct {
	X, Y float32
}

// MouseScrolled is published on the main world for scroll wheel movement.
type MouseScrolled struct {
	Delta float32
}

// Event types of the main world. Subscribe with e.g. KeyInputEvent.Subscribe(app.World(), fn);
// the engine processes queued events once per frame before App.Update.
var (
	WindowResizedEvent    = events.NewEventType[WindowResized]()
	KeyInputEvent         = events.NewEventType[KeyInput]()
	MouseButtonInputEvent = events.NewEventType[MouseButtonInput]()
	CursorMovedEvent      = events.NewEventType[CursorMoved]()
	MouseScrolledEvent    = events.NewEventType[MouseScrolled]()
)

// Time is the main-world resource describing the current frame.
type Time struct {
	// Delta is the time since the previous frame, in seconds.
	Delta float32
	// Elapsed is the time since Run started.
	Elapsed time.Duration
	// Frame counts frames from zero.
	Frame uint64
}

// FixedTime is the main-world resource describing the current fixed tick.
type FixedTime struct {
	// Delta is the configured tick length, in seconds.
	Delta float32
	// Tick counts fixed ticks from zero.
	Tick uint64
}
