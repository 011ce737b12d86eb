// Package app implements the plugin host: a main world with named schedules plus sub-apps
// that extract from the main world and run their own ordered systems each frame.
package app

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-postfx/common"
	"github.com/Carmen-Shannon/oxy-postfx/engine/ecs"
)

var (
	// ErrDuplicatePlugin is returned when a plugin with the same name has already been added.
	ErrDuplicatePlugin = errors.New("app: plugin already added")

	// ErrSubAppNotFound is returned by plugins that need a sub-app which has not been inserted.
	ErrSubAppNotFound = errors.New("app: sub-app not found")
)

type app struct {
	mu sync.Mutex

	world     *ecs.World
	schedules map[Schedule][]System

	subApps     map[SubAppLabel]SubApp
	subAppOrder []SubAppLabel

	plugins     []Plugin
	pluginNames map[string]struct{}

	finished bool
	started  bool
}

// App is the root of an engine program. Plugins configure it; the engine loop calls Update once per frame.
type App interface {
	// World returns the main world.
	World() *ecs.World

	// AddPlugins builds each plugin in order. Building stops at the first error.
	//
	// Parameters:
	//   - plugins: the plugins to add
	//
	// Returns:
	//   - error: ErrDuplicatePlugin (wrapped) for a repeated name, or the plugin's Build error
	AddPlugins(plugins ...Plugin) error

	// IsPluginAdded reports whether a plugin with the given name has been built.
	IsPluginAdded(name string) bool

	// AddSystems appends main-world systems to schedule.
	AddSystems(schedule Schedule, systems ...System)

	// InsertSubApp registers sub under label. Sub-apps update in insertion order.
	InsertSubApp(label SubAppLabel, sub SubApp)

	// SubApp returns the sub-app registered under label.
	SubApp(label SubAppLabel) (SubApp, bool)

	// Finish runs Finish on every plugin implementing Finisher. Only the first call has an effect.
	//
	// Returns:
	//   - error: the joined Finish errors
	Finish() error

	// RunSchedule runs the systems of one schedule against the main world.
	RunSchedule(schedule Schedule) error

	// Update runs one frame: Startup on the first call, then Update and PostUpdate, then every
	// sub-app's extraction and systems. Finish is called first if it has not been called.
	//
	// Returns:
	//   - error: the joined errors of every failing system; a failing system does not stop the frame
	Update() error
}

var _ App = &app{}

// New creates an App with an empty main world.
//
// Returns:
//   - App: the new app
func New() App {
	return &app{
		world:       ecs.NewWorld(),
		schedules:   make(map[Schedule][]System),
		subApps:     make(map[SubAppLabel]SubApp),
		pluginNames: make(map[string]struct{}),
	}
}

func (a *app) World() *ecs.World {
	return a.world
}

func (a *app) AddPlugins(plugins ...Plugin) error {
	for _, p := range plugins {
		name := PluginName(p)
		a.mu.Lock()
		_, dup := a.pluginNames[name]
		if !dup {
			a.pluginNames[name] = struct{}{}
		}
		a.mu.Unlock()
		if dup {
			return fmt.Errorf("%w: %s", ErrDuplicatePlugin, name)
		}

		if err := p.Build(a); err != nil {
			a.mu.Lock()
			delete(a.pluginNames, name)
			a.mu.Unlock()
			return fmt.Errorf("build plugin %s: %w", name, err)
		}

		a.mu.Lock()
		a.plugins = append(a.plugins, p)
		a.mu.Unlock()
		common.Logger().Debug("plugin built", "plugin", name)
	}
	return nil
}

func (a *app) IsPluginAdded(name string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.pluginNames[name]
	return ok
}

func (a *app) AddSystems(schedule Schedule, systems ...System) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.schedules[schedule] = append(a.schedules[schedule], systems...)
}

func (a *app) InsertSubApp(label SubAppLabel, sub SubApp) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.subApps[label]; !ok {
		a.subAppOrder = append(a.subAppOrder, label)
	}
	a.subApps[label] = sub
}

func (a *app) SubApp(label SubAppLabel) (SubApp, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	sub, ok := a.subApps[label]
	return sub, ok
}

func (a *app) Finish() error {
	a.mu.Lock()
	if a.finished {
		a.mu.Unlock()
		return nil
	}
	a.finished = true
	plugins := append([]Plugin(nil), a.plugins...)
	a.mu.Unlock()

	var errs []error
	for _, p := range plugins {
		f, ok := p.(Finisher)
		if !ok {
			continue
		}
		if err := f.Finish(a); err != nil {
			errs = append(errs, fmt.Errorf("finish plugin %s: %w", PluginName(p), err))
		}
	}
	return errors.Join(errs...)
}

func (a *app) RunSchedule(schedule Schedule) error {
	a.mu.Lock()
	systems := append([]System(nil), a.schedules[schedule]...)
	a.mu.Unlock()
	return runSystems(a.world, schedule.String(), systems)
}

func (a *app) Update() error {
	var errs []error
	if err := a.Finish(); err != nil {
		errs = append(errs, err)
	}

	a.mu.Lock()
	first := !a.started
	a.started = true
	a.mu.Unlock()

	if first {
		errs = append(errs, a.RunSchedule(Startup))
	}
	errs = append(errs, a.RunSchedule(Update), a.RunSchedule(PostUpdate))

	a.mu.Lock()
	subs := make([]SubApp, 0, len(a.subAppOrder))
	for _, label := range a.subAppOrder {
		subs = append(subs, a.subApps[label])
	}
	a.mu.Unlock()

	for _, sub := range subs {
		errs = append(errs, sub.Extract(a.world), sub.Update())
	}
	return errors.Join(errs...)
}
