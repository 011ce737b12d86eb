// Package camera holds the main-world components that make an entity render: its projection,
// placement, viewport and draw order.
package camera

import (
	"math"

	"github.com/Carmen-Shannon/oxy-postfx/common"
	"github.com/cogentcore/webgpu/wgpu"
)

// Viewport is a rectangle of the render target in physical pixels.
type Viewport struct {
	X, Y          uint32
	Width, Height uint32
}

// Camera is a component that turns its entity into a view. Each active camera is extracted into
// the render world every frame and gets its own render targets, view uniform and graph run.
type Camera struct {
	// Order sorts cameras rendering to the same surface. Lower orders render first.
	Order int
	// Active cameras are rendered. Inactive cameras are skipped by extraction.
	Active bool
	// Viewport restricts rendering to part of the surface. Nil means the whole surface.
	Viewport *Viewport
	// ClearColor is the color the main pass clears to.
	ClearColor wgpu.Color

	Position [3]float32
	Target   [3]float32
	Up       [3]float32

	// Fov is the vertical field of view in radians.
	Fov  float32
	Near float32
	Far  float32
}

// NewCamera creates an active camera at (0, 0, 5) looking at the origin with a 45 degree field of view.
//
// Parameters:
//   - options: functional options to configure the camera
//
// Returns:
//   - Camera: the camera component
func NewCamera(options ...CameraBuilderOption) Camera {
	c := Camera{
		Active:     true,
		ClearColor: wgpu.Color{R: 0, G: 0, B: 0, A: 1},
		Position:   [3]float32{0, 0, 5},
		Up:         [3]float32{0, 1, 0},
		Fov:        45.0 * (math.Pi / 180.0),
		Near:       0.1,
		Far:        100.0,
	}
	for _, option := range options {
		option(&c)
	}
	return c
}

// PhysicalViewport resolves the camera's viewport against a target of the given size. The result is
// clipped to the target.
//
// Parameters:
//   - target: the render target size
//
// Returns:
//   - Viewport: the viewport in pixels
func (c Camera) PhysicalViewport(target common.Extent) Viewport {
	if c.Viewport == nil {
		return Viewport{Width: target.Width, Height: target.Height}
	}
	v := *c.Viewport
	v.X = min(v.X, target.Width)
	v.Y = min(v.Y, target.Height)
	v.Width = min(v.Width, target.Width-v.X)
	v.Height = min(v.Height, target.Height-v.Y)
	return v
}

// ViewMatrix returns the world-to-view matrix as 16 floats (column-major).
func (c Camera) ViewMatrix() [16]float32 {
	var m [16]float32
	common.LookAt(m[:],
		c.Position[0], c.Position[1], c.Position[2],
		c.Target[0], c.Target[1], c.Target[2],
		c.Up[0], c.Up[1], c.Up[2],
	)
	return m
}

// ProjectionMatrix returns the perspective projection for a viewport of the given size.
//
// Parameters:
//   - viewport: the viewport the projection fills; a zero height uses an aspect of 1
//
// Returns:
//   - [16]float32: the projection matrix (column-major)
func (c Camera) ProjectionMatrix(viewport Viewport) [16]float32 {
	aspect := float32(1)
	if viewport.Height > 0 {
		aspect = float32(viewport.Width) / float32(viewport.Height)
	}
	var m [16]float32
	common.Perspective(m[:], c.Fov, aspect, c.Near, c.Far)
	return m
}
