package app

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/Carmen-Shannon/oxy-postfx/common"
	"github.com/Carmen-Shannon/oxy-postfx/engine/ecs"
)

// SubAppLabel identifies a sub-app within an App.
type SubAppLabel string

// Set orders systems inside a sub-app. Sets run in ascending numeric order; systems within a set run in registration order.
type Set int

type subApp struct {
	mu sync.Mutex

	world   *ecs.World
	extract []ExtractSystem
	sets    map[Set][]System
}

// SubApp owns a separate world that is filled from the main world by extract systems and then
// updated by its own ordered systems. The renderer lives in a SubApp.
type SubApp interface {
	// World returns the sub-app's world.
	World() *ecs.World

	// AddExtractSystems appends systems run by Extract.
	AddExtractSystems(systems ...ExtractSystem)

	// AddSystems appends systems to set.
	AddSystems(set Set, systems ...System)

	// Extract runs every extract system against main.
	//
	// Parameters:
	//   - main: the main world, read-only by convention
	//
	// Returns:
	//   - error: the joined errors of failing extract systems
	Extract(main *ecs.World) error

	// Update runs all sets in ascending order.
	//
	// Returns:
	//   - error: the joined errors of failing systems
	Update() error
}

var _ SubApp = &subApp{}

// NewSubApp creates a SubApp with an empty world.
//
// Returns:
//   - SubApp: the new sub-app
func NewSubApp() SubApp {
	return &subApp{
		world: ecs.NewWorld(),
		sets:  make(map[Set][]System),
	}
}

func (s *subApp) World() *ecs.World {
	return s.world
}

func (s *subApp) AddExtractSystems(systems ...ExtractSystem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.extract = append(s.extract, systems...)
}

func (s *subApp) AddSystems(set Set, systems ...System) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sets[set] = append(s.sets[set], systems...)
}

func (s *subApp) Extract(main *ecs.World) error {
	s.mu.Lock()
	systems := slices.Clone(s.extract)
	s.mu.Unlock()

	var errs []error
	for i, sys := range systems {
		if err := sys(main, s.world); err != nil {
			common.Logger().Error("extract system failed", "index", i, "error", err)
			errs = append(errs, fmt.Errorf("extract system %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

func (s *subApp) Update() error {
	s.mu.Lock()
	order := make([]Set, 0, len(s.sets))
	for set := range s.sets {
		order = append(order, set)
	}
	slices.Sort(order)
	batches := make([][]System, len(order))
	for i, set := range order {
		batches[i] = slices.Clone(s.sets[set])
	}
	s.mu.Unlock()

	var errs []error
	for i, set := range order {
		if err := runSystems(s.world, fmt.Sprintf("set %d", int(set)), batches[i]); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
