// Package camera provides the orbit camera used to inspect a dataset.
package camera

import (
	"github.com/chewxy/math32"

	"github.com/Faultbox/meshview/pkg/math"
)

// OrbitCamera orbits around a center point, usually the dataset center.
// Its Distance doubles as the input to level-of-detail selection.
type OrbitCamera struct {
	Center math.Vec3

	// Spherical coordinates
	Distance float32
	Pitch    float32 // vertical angle, radians
	Yaw      float32 // horizontal angle, radians

	// Constraints
	MinDistance float32
	MaxDistance float32
	MinPitch    float32
	MaxPitch    float32

	// Sensitivity
	DragSensitivity float32
	ZoomSensitivity float32
}

// New creates an orbit camera with default settings.
func New() *OrbitCamera {
	return &OrbitCamera{
		Distance:        5,
		Pitch:           0.4,
		Yaw:             0.6,
		MinDistance:     0.05,
		MaxDistance:     10000,
		MinPitch:        -1.5,
		MaxPitch:        1.5,
		DragSensitivity: 0.005,
		ZoomSensitivity: 0.1,
	}
}

// Position returns the camera position in world space.
func (c *OrbitCamera) Position() math.Vec3 {
	x := c.Distance * math32.Cos(c.Pitch) * math32.Sin(c.Yaw)
	y := c.Distance * math32.Sin(c.Pitch)
	z := c.Distance * math32.Cos(c.Pitch) * math32.Cos(c.Yaw)

	return math.Vec3{
		X: c.Center.X + x,
		Y: c.Center.Y + y,
		Z: c.Center.Z + z,
	}
}

// ViewMatrix returns the view matrix for this camera.
func (c *OrbitCamera) ViewMatrix() math.Mat4 {
	up := math.Vec3{X: 0, Y: 1, Z: 0}
	return math.LookAt(c.Position(), c.Center, up)
}

// HandleDrag updates rotation based on mouse drag delta.
func (c *OrbitCamera) HandleDrag(deltaX, deltaY float32) {
	c.Yaw -= deltaX * c.DragSensitivity
	c.Pitch += deltaY * c.DragSensitivity

	if c.Pitch < c.MinPitch {
		c.Pitch = c.MinPitch
	}
	if c.Pitch > c.MaxPitch {
		c.Pitch = c.MaxPitch
	}
}

// HandleZoom updates distance based on scroll wheel delta.
func (c *OrbitCamera) HandleZoom(delta float32) {
	c.Distance -= delta * c.Distance * c.ZoomSensitivity
	if c.Distance < c.MinDistance {
		c.Distance = c.MinDistance
	}
	if c.Distance > c.MaxDistance {
		c.Distance = c.MaxDistance
	}
}

// HandlePan shifts the center point in view-aligned directions. Speed
// scales with distance for a consistent feel at any zoom.
func (c *OrbitCamera) HandlePan(right, up float32) {
	speed := c.Distance * 0.002

	rightX := math32.Cos(c.Yaw)
	rightZ := -math32.Sin(c.Yaw)

	c.Center.X += rightX * right * speed
	c.Center.Z += rightZ * right * speed
	c.Center.Y += up * speed
}

// FitToBounds centers the camera on a bounding sphere and pulls back
// far enough to see all of it.
func (c *OrbitCamera) FitToBounds(center math.Vec3, size float32) {
	c.Center = center

	if size == 0 {
		size = 1
	}

	// distance for a ~45 degree vertical field of view, with margin
	c.Distance = size * 1.8
	c.MinDistance = size * 0.05
	c.MaxDistance = size * 50
	c.Pitch = 0.4
	c.Yaw = 0.6
}
