package camera

import (
	"math"

	"github.com/Carmen-Shannon/oxy-postfx/engine/ecs"
	"github.com/yohamta/donburi"
)

// Orbit places a camera on a sphere around a target point. OrbitSystem copies the resulting
// position and target onto the entity's Camera every update.
type Orbit struct {
	Target [3]float32

	Radius    float32
	Azimuth   float32 // horizontal angle around Y
	Elevation float32 // angle above the horizontal plane

	MinRadius, MaxRadius       float32
	MinElevation, MaxElevation float32

	// Speed is the azimuth change per second applied by OrbitSystem.
	Speed float32
}

// NewOrbit creates an Orbit of the given radius around the origin, 30 degrees above the horizon.
//
// Parameters:
//   - radius: distance from the target
//
// Returns:
//   - Orbit: the orbit component
func NewOrbit(radius float32) Orbit {
	return Orbit{
		Radius:       radius,
		Elevation:    float32(math.Pi / 6),
		MinRadius:    0.1,
		MaxRadius:    2000.0,
		MinElevation: float32(-math.Pi/2 + 0.1),
		MaxElevation: float32(math.Pi/2 - 0.1),
	}
}

// Position returns the world-space point on the orbit.
func (o Orbit) Position() [3]float32 {
	cosElev := float32(math.Cos(float64(o.Elevation)))
	sinElev := float32(math.Sin(float64(o.Elevation)))
	cosAzim := float32(math.Cos(float64(o.Azimuth)))
	sinAzim := float32(math.Sin(float64(o.Azimuth)))

	return [3]float32{
		o.Target[0] + o.Radius*cosElev*sinAzim,
		o.Target[1] + o.Radius*sinElev,
		o.Target[2] + o.Radius*cosElev*cosAzim,
	}
}

// Rotate moves along the orbit. Elevation is clamped to its bounds and azimuth wraps at 2π.
//
// Parameters:
//   - azimuth: change in horizontal angle, radians
//   - elevation: change in vertical angle, radians
func (o *Orbit) Rotate(azimuth, elevation float32) {
	o.Azimuth = float32(math.Mod(float64(o.Azimuth+azimuth), 2*math.Pi))
	o.Elevation = min(max(o.Elevation+elevation, o.MinElevation), o.MaxElevation)
}

// Zoom moves toward the target by delta, clamped to the radius bounds.
func (o *Orbit) Zoom(delta float32) {
	o.Radius = min(max(o.Radius-delta, o.MinRadius), o.MaxRadius)
}

// OrbitSystem returns a system advancing every Orbit by its Speed and copying the placement onto its Camera.
//
// Parameters:
//   - dt: seconds per invocation, the fixed tick length when run from FixedUpdate
//
// Returns:
//   - func(*ecs.World) error: the system
func OrbitSystem(dt float32) func(*ecs.World) error {
	return func(w *ecs.World) error {
		ecs.Each(w, func(e donburi.Entity, o Orbit) {
			if o.Speed != 0 {
				o.Rotate(o.Speed*dt, 0)
				ecs.Insert(w, e, o)
			}
			cam, ok := ecs.Get[Camera](w, e)
			if !ok {
				return
			}
			cam.Position = o.Position()
			cam.Target = o.Target
		})
		return nil
	}
}
