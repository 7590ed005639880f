package scene

import (
	"fmt"
	"math"

	"github.com/jasmouth/nimbus/types"
)

// Frustum stores the ray directions at the four corners of the camera
// frustum. Per pixel rays are generated by interpolating the corner
// rays.
type Frustum [4]types.Vec3

func (fr Frustum) String() string {
	return fmt.Sprintf(
		"Frustum Rays:\nTL : (%3.3f, %3.3f, %3.3f)\nTR : (%3.3f, %3.3f, %3.3f)\nBL : (%3.3f, %3.3f, %3.3f)\nBR : (%3.3f, %3.3f, %3.3f)",
		fr[0][0], fr[0][1], fr[0][2],
		fr[1][0], fr[1][1], fr[1][2],
		fr[2][0], fr[2][1], fr[2][2],
		fr[3][0], fr[3][1], fr[3][2],
	)
}

// Camera is a pinhole camera.
type Camera struct {
	Position types.Vec3
	LookAt   types.Vec3
	Up       types.Vec3

	// Vertical field of view in degrees.
	FOV float32

	Frustum Frustum
}

// NewCamera creates a camera with the given vertical FOV looking down
// the negative Z axis.
func NewCamera(fov float32) *Camera {
	return &Camera{
		Position: types.Vec3{0, 0, 0},
		LookAt:   types.Vec3{0, 0, -1},
		Up:       types.Vec3{0, 1, 0},
		FOV:      fov,
	}
}

// SetupProjection computes the frustum corner rays for the given
// aspect ratio. Must be called after changing Position/LookAt/FOV and
// before generating rays.
func (c *Camera) SetupProjection(aspect float32) {
	dir := c.LookAt.Sub(c.Position).Normalize()
	right := dir.Cross(c.Up).Normalize()
	up := right.Cross(dir)

	halfH := float32(math.Tan(float64(c.FOV) * math.Pi / 360.0))
	halfW := halfH * aspect

	// Corner order: top-left, top-right, bottom-left, bottom-right.
	c.Frustum[0] = dir.Sub(right.Mul(halfW)).Add(up.Mul(halfH))
	c.Frustum[1] = dir.Add(right.Mul(halfW)).Add(up.Mul(halfH))
	c.Frustum[2] = dir.Sub(right.Mul(halfW)).Sub(up.Mul(halfH))
	c.Frustum[3] = dir.Add(right.Mul(halfW)).Sub(up.Mul(halfH))
}

// GenerateRay maps film coordinates in [0,1)^2 (origin at top-left)
// to a primary camera ray by bilinear interpolation of the frustum
// corner rays.
func (c *Camera) GenerateRay(u, v float32) Ray {
	top := types.Lerp(c.Frustum[0], c.Frustum[1], u)
	bottom := types.Lerp(c.Frustum[2], c.Frustum[3], u)
	return NewRay(c.Position, types.Lerp(top, bottom, v))
}
