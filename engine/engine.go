// Package engine runs an App: a render loop calling App.Update once per frame, a fixed-rate tick
// running the FixedUpdate schedule, and the window's event loop.
package engine

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/oxy-postfx/common"
	"github.com/Carmen-Shannon/oxy-postfx/engine/app"
	"github.com/Carmen-Shannon/oxy-postfx/engine/ecs"
	"github.com/Carmen-Shannon/oxy-postfx/engine/profiler"
	"github.com/Carmen-Shannon/oxy-postfx/engine/renderer"
	"github.com/Carmen-Shannon/oxy-postfx/engine/renderer/render_resource"
	"github.com/Carmen-Shannon/oxy-postfx/engine/window"
	"github.com/yohamta/donburi/features/events"
)

// engine implements the Engine interface.
// Coordinates the tick, render and window goroutines.
type engine struct {
	app app.App

	// mu serializes every access to the main world: frames, fixed ticks and window events.
	mu sync.Mutex

	tickRateChannel chan time.Duration

	running bool
	wg      sync.WaitGroup

	quitChannel chan struct{}
	quitOnce    sync.Once

	window window.Window

	profiler         *profiler.Profiler
	profilingEnabled atomic.Bool

	engineTickRate time.Duration
	// renderFrameLimit is the minimum frame duration; 0 = uncapped.
	renderFrameLimit atomic.Int64

	onError func(error)
}

// Engine drives an App.
type Engine interface {
	// App returns the driven App.
	App() app.App

	// Window returns the window, or nil for a headless engine.
	Window() window.Window

	// EnableProfiler enables performance profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables performance profiling output.
	DisableProfiler()

	// SetTickRate sets the rate of the FixedUpdate schedule in ticks per second.
	// If the engine is running, the change takes effect on the next tick.
	//
	// Parameters:
	//   - fps: target ticks per second (defaults to 60 if <= 0)
	SetTickRate(fps float64)

	// SetRenderFrameLimit sets an optional render frame rate cap in frames per second.
	// Pass 0 to uncap the render loop (default).
	//
	// Parameters:
	//   - fps: maximum render frames per second (0 = uncapped)
	SetRenderFrameLimit(fps float64)

	// Resize reconfigures the render surface and publishes WindowResized. Window resizes call it
	// automatically.
	//
	// Parameters:
	//   - size: the new surface size in pixels
	//
	// Returns:
	//   - error: the surface configuration error, if any
	Resize(size common.Extent) error

	// Run starts the tick and render loops. With a window it pumps window events on the calling
	// goroutine, which must be the main goroutine, until the window closes; headless it blocks
	// until Quit.
	Run()

	// Quit signals all engine goroutines to stop. Safe to call multiple times and from systems.
	Quit()
}

var _ Engine = &engine{}

// NewEngine creates an Engine driving a.
//
// Parameters:
//   - a: the App to run; its plugins should already be added
//   - options: functional options for engine configuration (profiling, tick rate, window, etc.)
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(a app.App, options ...EngineBuilderOption) Engine {
	e := &engine{
		app:             a,
		tickRateChannel: make(chan time.Duration, 1),
		quitChannel:     make(chan struct{}),
		profiler:        profiler.NewProfiler(),
		engineTickRate:  time.Second / 60,
	}
	for _, opt := range options {
		opt(e)
	}
	if e.window != nil {
		e.bindWindow()
	}
	return e
}

// bindWindow forwards window input to the main world as events.
func (e *engine) bindWindow() {
	w := e.app.World()
	e.window.SetResizeCallback(func(size common.Extent) {
		if err := e.Resize(size); err != nil {
			common.Logger().Warn("surface resize failed", "width", size.Width, "height", size.Height, "error", err)
		}
	})
	e.window.SetKeyCallback(func(key window.Key, pressed bool) {
		e.publish(func() { KeyInputEvent.Publish(w, KeyInput{Key: key, Pressed: pressed}) })
	})
	e.window.SetMouseButtonCallback(func(button window.MouseButton, pressed bool, x, y float32) {
		e.publish(func() {
			MouseButtonInputEvent.Publish(w, MouseButtonInput{Button: button, Pressed: pressed, X: x, Y: y})
		})
	})
	e.window.SetCursorCallback(func(x, y float32) {
		e.publish(func() { CursorMovedEvent.Publish(w, CursorMoved{X: x, Y: y}) })
	})
	e.window.SetScrollCallback(func(delta float32) {
		e.publish(func() { MouseScrolledEvent.Publish(w, MouseScrolled{Delta: delta}) })
	})
}

func (e *engine) publish(fn func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fn()
}

func (e *engine) App() app.App {
	return e.app
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Resize(size common.Extent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if size.IsZero() {
		// Minimized; keep the last configuration.
		return nil
	}
	if sub, ok := e.app.SubApp(renderer.RenderApp); ok {
		if surface, ok := ecs.Resource[render_resource.Surface](sub.World()); ok {
			if err := surface.Configure(size); err != nil {
				return fmt.Errorf("configure surface: %w", err)
			}
		}
	}
	WindowResizedEvent.Publish(e.app.World(), WindowResized{Size: size})
	return nil
}

func (e *engine) Run() {
	e.mu.Lock()
	e.running = true
	e.mu.Unlock()

	e.handle()
	if e.window != nil {
		e.window.ProcessMessages()
		e.signalQuit()
	}
	e.wg.Wait()
}

func (e *engine) Quit() {
	e.signalQuit()
}

// signalQuit closes the quit channel to signal all goroutines to exit.
func (e *engine) signalQuit() {
	e.quitOnce.Do(func() {
		close(e.quitChannel)
	})
}

// handle launches the tick, render and quit goroutines.
func (e *engine) handle() {
	e.wg.Add(3)
	go e.handleEngine()
	go e.handleRender()
	go e.handleQuit()
}

// handleEngine runs the FixedUpdate schedule at the configured tick rate and listens for rate
// changes via tickRateChannel. Exits when the quit channel is closed.
func (e *engine) handleEngine() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.engineTickRate)
	defer ticker.Stop()

	rate := e.engineTickRate
	var tick uint64
	for {
		select {
		case <-e.quitChannel:
			return
		case <-ticker.C:
			e.mu.Lock()
			ecs.InsertResource(e.app.World(), FixedTime{Delta: float32(rate.Seconds()), Tick: tick})
			err := e.app.RunSchedule(app.FixedUpdate)
			e.mu.Unlock()
			tick++
			e.report(err)
		case newRate := <-e.tickRateChannel:
			ticker.Reset(newRate)
			rate = newRate
		}
	}
}

// handleRender runs the uncapped (or frame-limited) render loop: queued window events, then one
// App.Update. Recovers from panics and signals quit on recovery.
func (e *engine) handleRender() {
	defer e.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			common.Logger().Error("render goroutine recovered from panic", "panic", r)
			e.signalQuit()
		}
	}()

	start := time.Now()
	lastRender := start
	var frame uint64
	for {
		select {
		case <-e.quitChannel:
			return
		default:
		}

		now := time.Now()
		dt := float32(now.Sub(lastRender).Seconds())
		lastRender = now

		e.mu.Lock()
		world := e.app.World()
		ecs.InsertResource(world, Time{Delta: dt, Elapsed: now.Sub(start), Frame: frame})
		events.ProcessAllEvents(world)
		err := e.app.Update()
		e.mu.Unlock()
		frame++
		e.report(err)

		if e.profilingEnabled.Load() && e.profiler != nil {
			e.profiler.Tick()
		}

		if limit := time.Duration(e.renderFrameLimit.Load()); limit > 0 {
			if remaining := limit - time.Since(lastRender); remaining > 0 {
				select {
				case <-e.quitChannel:
					return
				case <-time.After(remaining):
				}
			}
		}
	}
}

func (e *engine) report(err error) {
	if err != nil && e.onError != nil {
		e.onError(err)
	}
}

// handleQuit blocks until the quit channel is closed, then decrements the WaitGroup.
func (e *engine) handleQuit() {
	defer e.wg.Done()
	<-e.quitChannel
}

func (e *engine) EnableProfiler() {
	e.profilingEnabled.Store(true)
}

func (e *engine) DisableProfiler() {
	e.profilingEnabled.Store(false)
}

func (e *engine) SetTickRate(fps float64) {
	newRate := tickDuration(fps)

	e.mu.Lock()
	running := e.running
	e.mu.Unlock()
	if !running {
		e.engineTickRate = newRate
		return
	}
	// Replace any pending update rather than block.
	select {
	case e.tickRateChannel <- newRate:
	default:
		select {
		case <-e.tickRateChannel:
		default:
		}
		e.tickRateChannel <- newRate
	}
}

func (e *engine) SetRenderFrameLimit(fps float64) {
	e.renderFrameLimit.Store(int64(frameDuration(fps)))
}
