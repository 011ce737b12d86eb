package app

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-postfx/common"
	"github.com/Carmen-Shannon/oxy-postfx/engine/ecs"
)

// System is a unit of per-frame work on a single world.
type System func(world *ecs.World) error

// ExtractSystem copies data from the main world into a sub-app's world.
type ExtractSystem func(main, sub *ecs.World) error

// Schedule names a group of main-world systems.
type Schedule int

const (
	// Startup runs once, on the first Update.
	Startup Schedule = iota
	// FixedUpdate runs at the engine's fixed tick rate via RunSchedule.
	FixedUpdate
	// Update runs every frame before extraction.
	Update
	// PostUpdate runs every frame after Update and before extraction.
	PostUpdate
)

func (s Schedule) String() string {
	switch s {
	case Startup:
		return "Startup"
	case FixedUpdate:
		return "FixedUpdate"
	case Update:
		return "Update"
	case PostUpdate:
		return "PostUpdate"
	default:
		return fmt.Sprintf("Schedule(%d)", int(s))
	}
}

// runSystems runs every system even if some fail; failures are logged and joined.
func runSystems(world *ecs.World, scope string, systems []System) error {
	var errs []error
	for i, sys := range systems {
		if err := sys(world); err != nil {
			common.Logger().Error("system failed", "scope", scope, "index", i, "error", err)
			errs = append(errs, fmt.Errorf("%s system %d: %w", scope, i, err))
		}
	}
	return errors.Join(errs...)
}
