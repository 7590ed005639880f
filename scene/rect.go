package scene

import (
	"math"

	"github.com/jasmouth/nimbus/types"
)

// Axis-aligned rectangle thickness used for bounding boxes.
const rectPad float32 = 1e-4

// RectXY is an axis-aligned rectangle on the plane z = K.
type RectXY struct {
	X0, X1, Y0, Y1, K float32
	Mat               Material
}

func (r *RectXY) BBox() [2]types.Vec3 {
	return [2]types.Vec3{
		types.XYZ(r.X0, r.Y0, r.K-rectPad),
		types.XYZ(r.X1, r.Y1, r.K+rectPad),
	}
}

func (r *RectXY) Centroid() types.Vec3 {
	return types.XYZ((r.X0+r.X1)*0.5, (r.Y0+r.Y1)*0.5, r.K)
}

func (r *RectXY) Material() Material { return r.Mat }

func (r *RectXY) Valid() bool { return r.X1 > r.X0 && r.Y1 > r.Y0 }

func (r *RectXY) Intersect(ray Ray, tMin, tMax float32) (HitRecord, bool) {
	if ray.Dir[2] == 0 {
		return HitRecord{}, false
	}
	t := (r.K - ray.Origin[2]) / ray.Dir[2]
	if t <= tMin || t >= tMax {
		return HitRecord{}, false
	}
	x := ray.Origin[0] + t*ray.Dir[0]
	y := ray.Origin[1] + t*ray.Dir[1]
	if x < r.X0 || x > r.X1 || y < r.Y0 || y > r.Y1 {
		return HitRecord{}, false
	}

	hit := HitRecord{
		T:     t,
		Point: ray.At(t),
		UV:    types.XY((x-r.X0)/(r.X1-r.X0), (y-r.Y0)/(r.Y1-r.Y0)),
		Mat:   r.Mat,
	}
	hit.setNormal(ray, types.XYZ(0, 0, 1))
	return hit, true
}

// RectXZ is an axis-aligned rectangle on the plane y = K.
type RectXZ struct {
	X0, X1, Z0, Z1, K float32
	Mat               Material
}

func (r *RectXZ) BBox() [2]types.Vec3 {
	return [2]types.Vec3{
		types.XYZ(r.X0, r.K-rectPad, r.Z0),
		types.XYZ(r.X1, r.K+rectPad, r.Z1),
	}
}

func (r *RectXZ) Centroid() types.Vec3 {
	return types.XYZ((r.X0+r.X1)*0.5, r.K, (r.Z0+r.Z1)*0.5)
}

func (r *RectXZ) Material() Material { return r.Mat }

func (r *RectXZ) Valid() bool { return r.X1 > r.X0 && r.Z1 > r.Z0 }

func (r *RectXZ) Intersect(ray Ray, tMin, tMax float32) (HitRecord, bool) {
	if ray.Dir[1] == 0 {
		return HitRecord{}, false
	}
	t := (r.K - ray.Origin[1]) / ray.Dir[1]
	if t <= tMin || t >= tMax {
		return HitRecord{}, false
	}
	x := ray.Origin[0] + t*ray.Dir[0]
	z := ray.Origin[2] + t*ray.Dir[2]
	if x < r.X0 || x > r.X1 || z < r.Z0 || z > r.Z1 {
		return HitRecord{}, false
	}

	hit := HitRecord{
		T:     t,
		Point: ray.At(t),
		UV:    types.XY((x-r.X0)/(r.X1-r.X0), (z-r.Z0)/(r.Z1-r.Z0)),
		Mat:   r.Mat,
	}
	hit.setNormal(ray, types.XYZ(0, 1, 0))
	return hit, true
}

// SampleTowards draws a uniform point on the rectangle and converts
// the area measure to solid angle at the reference point.
func (r *RectXZ) SampleTowards(from types.Vec3, u types.Vec2) (LightSample, bool) {
	point := types.XYZ(
		r.X0+u[0]*(r.X1-r.X0),
		r.K,
		r.Z0+u[1]*(r.Z1-r.Z0),
	)
	toLight := point.Sub(from)
	dist2 := toLight.Len2()
	if dist2 <= 0 {
		return LightSample{}, false
	}
	dist := float32(math.Sqrt(float64(dist2)))
	dir := toLight.Mul(1.0 / dist)

	cosLight := float32(math.Abs(float64(dir[1])))
	if cosLight < 1e-6 {
		return LightSample{}, false
	}

	area := (r.X1 - r.X0) * (r.Z1 - r.Z0)
	return LightSample{
		Dir:      dir,
		Dist:     dist,
		Emission: r.emission(from, point, dir),
		PDF:      dist2 / (cosLight * area),
	}, true
}

func (r *RectXZ) emission(from, point, dir types.Vec3) types.Vec3 {
	emitter, ok := r.Mat.(Emitter)
	if !ok {
		return types.Vec3{}
	}
	// Next-event emission is evaluated two-sided; the visibility test
	// already determines whether the surface is reachable.
	hit := HitRecord{
		Point:     point,
		UV:        types.XY((point[0]-r.X0)/(r.X1-r.X0), (point[2]-r.Z0)/(r.Z1-r.Z0)),
		FrontFace: true,
	}
	return emitter.Emitted(NewRay(from, dir), &hit)
}

// RectYZ is an axis-aligned rectangle on the plane x = K.
type RectYZ struct {
	Y0, Y1, Z0, Z1, K float32
	Mat               Material
}

func (r *RectYZ) BBox() [2]types.Vec3 {
	return [2]types.Vec3{
		types.XYZ(r.K-rectPad, r.Y0, r.Z0),
		types.XYZ(r.K+rectPad, r.Y1, r.Z1),
	}
}

func (r *RectYZ) Centroid() types.Vec3 {
	return types.XYZ(r.K, (r.Y0+r.Y1)*0.5, (r.Z0+r.Z1)*0.5)
}

func (r *RectYZ) Material() Material { return r.Mat }

func (r *RectYZ) Valid() bool { return r.Y1 > r.Y0 && r.Z1 > r.Z0 }

func (r *RectYZ) Intersect(ray Ray, tMin, tMax float32) (HitRecord, bool) {
	if ray.Dir[0] == 0 {
		return HitRecord{}, false
	}
	t := (r.K - ray.Origin[0]) / ray.Dir[0]
	if t <= tMin || t >= tMax {
		return HitRecord{}, false
	}
	y := ray.Origin[1] + t*ray.Dir[1]
	z := ray.Origin[2] + t*ray.Dir[2]
	if y < r.Y0 || y > r.Y1 || z < r.Z0 || z > r.Z1 {
		return HitRecord{}, false
	}

	hit := HitRecord{
		T:     t,
		Point: ray.At(t),
		UV:    types.XY((y-r.Y0)/(r.Y1-r.Y0), (z-r.Z0)/(r.Z1-r.Z0)),
		Mat:   r.Mat,
	}
	hit.setNormal(ray, types.XYZ(1, 0, 0))
	return hit, true
}

// Box is an axis-aligned box assembled from six rectangles. It doubles
// as a medium boundary for volumetric regions.
type Box struct {
	Min, Max types.Vec3
	Mat      Material

	sides [6]Primitive
}

// NewBox creates an axis-aligned box between min and max.
func NewBox(min, max types.Vec3, mat Material) *Box {
	b := &Box{Min: min, Max: max, Mat: mat}
	b.sides = [6]Primitive{
		&RectXY{X0: min[0], X1: max[0], Y0: min[1], Y1: max[1], K: max[2], Mat: mat},
		&RectXY{X0: min[0], X1: max[0], Y0: min[1], Y1: max[1], K: min[2], Mat: mat},
		&RectXZ{X0: min[0], X1: max[0], Z0: min[2], Z1: max[2], K: max[1], Mat: mat},
		&RectXZ{X0: min[0], X1: max[0], Z0: min[2], Z1: max[2], K: min[1], Mat: mat},
		&RectYZ{Y0: min[1], Y1: max[1], Z0: min[2], Z1: max[2], K: max[0], Mat: mat},
		&RectYZ{Y0: min[1], Y1: max[1], Z0: min[2], Z1: max[2], K: min[0], Mat: mat},
	}
	return b
}

func (b *Box) BBox() [2]types.Vec3 {
	return [2]types.Vec3{b.Min, b.Max}
}

func (b *Box) Centroid() types.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

func (b *Box) Material() Material { return b.Mat }

func (b *Box) Valid() bool {
	return b.Max[0] > b.Min[0] && b.Max[1] > b.Min[1] && b.Max[2] > b.Min[2]
}

func (b *Box) Intersect(ray Ray, tMin, tMax float32) (HitRecord, bool) {
	var closest HitRecord
	found := false
	for _, side := range b.sides {
		if hit, ok := side.Intersect(ray, tMin, tMax); ok {
			closest = hit
			tMax = hit.T
			found = true
		}
	}
	if found {
		closest.Mat = b.Mat
	}
	return closest, found
}
