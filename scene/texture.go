package scene

import (
	"math"

	"github.com/jasmouth/nimbus/types"
)

// Texture maps a surface parameterization and world position to a
// color value.
type Texture interface {
	Value(uv types.Vec2, p types.Vec3) types.Vec3
}

// ConstantTexture returns the same color everywhere.
type ConstantTexture struct {
	Color types.Vec3
}

func (t ConstantTexture) Value(_ types.Vec2, _ types.Vec3) types.Vec3 {
	return t.Color
}

// CheckerTexture alternates between two textures on a 3D checkerboard.
type CheckerTexture struct {
	Odd   Texture
	Even  Texture
	Scale float32
}

func (t CheckerTexture) Value(uv types.Vec2, p types.Vec3) types.Vec3 {
	scale := t.Scale
	if scale == 0 {
		scale = 10
	}
	sines := math.Sin(float64(scale*p[0])) * math.Sin(float64(scale*p[1])) * math.Sin(float64(scale*p[2]))
	if sines < 0 {
		return t.Odd.Value(uv, p)
	}
	return t.Even.Value(uv, p)
}

// NoiseTexture produces a marble-like pattern from Perlin turbulence.
type NoiseTexture struct {
	Noise *Perlin
	Scale float32
}

func (t NoiseTexture) Value(_ types.Vec2, p types.Vec3) types.Vec3 {
	turb := t.Noise.Turbulence(p, 7, 2.0)
	v := 0.5 * (1.0 + float32(math.Sin(float64(t.Scale*p[2])+10.0*float64(turb))))
	return types.XYZ(1, 1, 1).Mul(v)
}
