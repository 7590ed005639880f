package scene

import (
	"math"

	"github.com/jasmouth/nimbus/types"
)

// FlipNormals inverts the reported orientation of the wrapped
// primitive. Used to turn outward-facing walls inward.
type FlipNormals struct {
	Prim Primitive
}

func (f *FlipNormals) BBox() [2]types.Vec3  { return f.Prim.BBox() }
func (f *FlipNormals) Centroid() types.Vec3 { return f.Prim.Centroid() }
func (f *FlipNormals) Material() Material   { return f.Prim.Material() }

func (f *FlipNormals) Intersect(ray Ray, tMin, tMax float32) (HitRecord, bool) {
	hit, ok := f.Prim.Intersect(ray, tMin, tMax)
	if !ok {
		return HitRecord{}, false
	}
	hit.FrontFace = !hit.FrontFace
	return hit, true
}

// SampleTowards delegates light sampling to the wrapped primitive;
// flipping does not change the sampled geometry.
func (f *FlipNormals) SampleTowards(from types.Vec3, u types.Vec2) (LightSample, bool) {
	light, ok := f.Prim.(Light)
	if !ok {
		return LightSample{}, false
	}
	return light.SampleTowards(from, u)
}

// Translate shifts the wrapped primitive by a fixed offset.
type Translate struct {
	Prim   Primitive
	Offset types.Vec3
}

func (t *Translate) BBox() [2]types.Vec3 {
	bbox := t.Prim.BBox()
	return [2]types.Vec3{bbox[0].Add(t.Offset), bbox[1].Add(t.Offset)}
}

func (t *Translate) Centroid() types.Vec3 { return t.Prim.Centroid().Add(t.Offset) }
func (t *Translate) Material() Material   { return t.Prim.Material() }

func (t *Translate) Intersect(ray Ray, tMin, tMax float32) (HitRecord, bool) {
	moved := Ray{Origin: ray.Origin.Sub(t.Offset), Dir: ray.Dir}
	hit, ok := t.Prim.Intersect(moved, tMin, tMax)
	if !ok {
		return HitRecord{}, false
	}
	hit.Point = hit.Point.Add(t.Offset)
	return hit, true
}

// RotateY rotates the wrapped primitive around the world Y axis.
type RotateY struct {
	prim     Primitive
	sinTheta float32
	cosTheta float32
	bbox     [2]types.Vec3
}

// NewRotateY wraps prim with a rotation of angle degrees around Y.
func NewRotateY(prim Primitive, angle float32) *RotateY {
	radians := float64(angle) * math.Pi / 180.0
	r := &RotateY{
		prim:     prim,
		sinTheta: float32(math.Sin(radians)),
		cosTheta: float32(math.Cos(radians)),
	}

	// Rotate all 8 corners of the wrapped bbox and rebound them.
	inner := prim.BBox()
	min := types.XYZ(math.MaxFloat32, math.MaxFloat32, math.MaxFloat32)
	max := min.Neg()
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			for k := 0; k < 2; k++ {
				corner := types.XYZ(
					inner[i][0],
					inner[j][1],
					inner[k][2],
				)
				rotated := r.toWorld(corner)
				min = types.MinVec3(min, rotated)
				max = types.MaxVec3(max, rotated)
			}
		}
	}
	r.bbox = [2]types.Vec3{min, max}
	return r
}

func (r *RotateY) toLocal(v types.Vec3) types.Vec3 {
	return types.XYZ(
		r.cosTheta*v[0]-r.sinTheta*v[2],
		v[1],
		r.sinTheta*v[0]+r.cosTheta*v[2],
	)
}

func (r *RotateY) toWorld(v types.Vec3) types.Vec3 {
	return types.XYZ(
		r.cosTheta*v[0]+r.sinTheta*v[2],
		v[1],
		-r.sinTheta*v[0]+r.cosTheta*v[2],
	)
}

func (r *RotateY) BBox() [2]types.Vec3 { return r.bbox }

func (r *RotateY) Centroid() types.Vec3 {
	return r.bbox[0].Add(r.bbox[1]).Mul(0.5)
}

func (r *RotateY) Material() Material { return r.prim.Material() }

func (r *RotateY) Intersect(ray Ray, tMin, tMax float32) (HitRecord, bool) {
	local := Ray{Origin: r.toLocal(ray.Origin), Dir: r.toLocal(ray.Dir)}
	hit, ok := r.prim.Intersect(local, tMin, tMax)
	if !ok {
		return HitRecord{}, false
	}
	hit.Point = r.toWorld(hit.Point)
	hit.Normal = r.toWorld(hit.Normal)
	hit.ShadingNormal = r.toWorld(hit.ShadingNormal)
	return hit, true
}
