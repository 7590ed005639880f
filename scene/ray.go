package scene

import "github.com/jasmouth/nimbus/types"

// Ray is a parametric line with a unit-length direction. Rays are
// immutable per intersection query; bounces derive fresh rays.
type Ray struct {
	Origin types.Vec3
	Dir    types.Vec3
}

// NewRay creates a ray, normalizing the supplied direction.
func NewRay(origin, dir types.Vec3) Ray {
	return Ray{Origin: origin, Dir: dir.Normalize()}
}

// At returns the point at parametric distance t along the ray.
func (r Ray) At(t float32) types.Vec3 {
	return r.Origin.Add(r.Dir.Mul(t))
}

// Degenerate reports whether the ray carries a zero direction. Such
// rays must fail intersection queries deterministically instead of
// producing NaN results.
func (r Ray) Degenerate() bool {
	return r.Dir == (types.Vec3{})
}

// HitRecord captures a single ray intersection. Records are transient;
// they are produced per query and never persisted.
type HitRecord struct {
	// Parametric distance of the hit.
	T float32

	// World-space intersection point.
	Point types.Vec3

	// Geometric normal, oriented against the incoming ray.
	Normal types.Vec3

	// Interpolated shading normal; equals Normal for flat surfaces.
	ShadingNormal types.Vec3

	// Surface parameterization at the hit.
	UV types.Vec2

	// Material at the hit; nil for medium boundary crossings.
	Mat Material

	// FrontFace is true when the geometric normal faced the ray
	// before orientation.
	FrontFace bool

	// Medium is set when the hit marks entry into a participating
	// medium region; MediumExit holds the parametric distance at
	// which the ray leaves the region's boundary.
	Medium     *Medium
	MediumExit float32

	// Index of the primitive in scene insertion order. Assigned
	// during BVH traversal; used to resolve equal-distance ties
	// deterministically.
	Prim int32
}
