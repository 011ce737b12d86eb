package camera

import (
	"github.com/cogentcore/webgpu/wgpu"
)

type CameraBuilderOption func(*Camera)

// WithUp sets the camera's up vector.
//
// Parameters:
//   - x, y, z: up vector components
//
// Returns:
//   - CameraBuilderOption: a function that sets the camera's up vector
func WithUp(x, y, z float32) CameraBuilderOption {
	return func(c *Camera) {
		c.Up = [3]float32{x, y, z}
	}
}

// WithPosition sets the camera's world-space position.
//
// Parameters:
//   - x, y, z: world-space coordinates
//
// Returns:
//   - CameraBuilderOption: a function that sets the camera's position
func WithPosition(x, y, z float32) CameraBuilderOption {
	return func(c *Camera) {
		c.Position = [3]float32{x, y, z}
	}
}

// WithTarget sets the point the camera looks at.
//
// Parameters:
//   - x, y, z: world-space coordinates
//
// Returns:
//   - CameraBuilderOption: a function that sets the camera's target
func WithTarget(x, y, z float32) CameraBuilderOption {
	return func(c *Camera) {
		c.Target = [3]float32{x, y, z}
	}
}

// WithFov sets the camera's vertical field of view in radians.
//
// Parameters:
//   - fov: field of view in radians
//
// Returns:
//   - CameraBuilderOption: a function that sets the camera's field of view
func WithFov(fov float32) CameraBuilderOption {
	return func(c *Camera) {
		c.Fov = fov
	}
}

// WithNear sets the near clipping plane distance.
func WithNear(near float32) CameraBuilderOption {
	return func(c *Camera) {
		c.Near = near
	}
}

// WithFar sets the far clipping plane distance.
func WithFar(far float32) CameraBuilderOption {
	return func(c *Camera) {
		c.Far = far
	}
}

// WithOrder sets the camera's render order. Cameras with lower orders render first.
//
// Parameters:
//   - order: the render order
//
// Returns:
//   - CameraBuilderOption: a function that sets the render order
func WithOrder(order int) CameraBuilderOption {
	return func(c *Camera) {
		c.Order = order
	}
}

// WithViewport restricts the camera to a rectangle of the surface, in physical pixels.
//
// Parameters:
//   - x, y: top-left corner
//   - width, height: size of the rectangle
//
// Returns:
//   - CameraBuilderOption: a function that sets the viewport
func WithViewport(x, y, width, height uint32) CameraBuilderOption {
	return func(c *Camera) {
		c.Viewport = &Viewport{X: x, Y: y, Width: width, Height: height}
	}
}

// WithClearColor sets the color the main pass clears the camera's target to.
func WithClearColor(color wgpu.Color) CameraBuilderOption {
	return func(c *Camera) {
		c.ClearColor = color
	}
}

// WithActive enables or disables rendering for the camera.
func WithActive(active bool) CameraBuilderOption {
	return func(c *Camera) {
		c.Active = active
	}
}
