package scene

import (
	"math"

	"github.com/jasmouth/nimbus/types"
)

// infinity stand-in that still leaves headroom for arithmetic.
const maxDist float32 = 1e30

// Primitive is the capability interface implemented by every
// ray-intersectable shape. Primitives are owned by the scene and only
// referenced by acceleration structure leaves.
type Primitive interface {
	// BBox returns the world-space bounding box as [min, max].
	BBox() [2]types.Vec3

	// Centroid returns the partitioning center used by the BVH
	// builder.
	Centroid() types.Vec3

	// Intersect returns the nearest hit within (tMin, tMax).
	Intersect(ray Ray, tMin, tMax float32) (HitRecord, bool)

	// Material returns the surface material, nil for pure medium
	// boundaries.
	Material() Material
}

// degenerate is implemented by primitives that can validate their own
// geometry; invalid primitives are excluded at build time.
type degenerate interface {
	Valid() bool
}

// LightSample is the result of sampling a direction towards an
// emissive primitive from a reference point.
type LightSample struct {
	// Unit direction from the reference point to the light.
	Dir types.Vec3

	// Distance to the sampled light point.
	Dist float32

	// Radiance emitted towards the reference point.
	Emission types.Vec3

	// Solid-angle PDF of the sampled direction.
	PDF float32
}

// Light is implemented by primitives that can be importance-sampled
// for next-event estimation.
type Light interface {
	Primitive

	// SampleTowards draws a direction from the reference point to
	// the light surface. The returned PDF is with respect to solid
	// angle at the reference point.
	SampleTowards(from types.Vec3, u types.Vec2) (LightSample, bool)
}

// Sphere primitive.
type Sphere struct {
	Center types.Vec3
	Radius float32
	Mat    Material
}

func (s *Sphere) BBox() [2]types.Vec3 {
	r := types.XYZ(s.Radius, s.Radius, s.Radius)
	return [2]types.Vec3{s.Center.Sub(r), s.Center.Add(r)}
}

func (s *Sphere) Centroid() types.Vec3 {
	return s.Center
}

func (s *Sphere) Material() Material {
	return s.Mat
}

func (s *Sphere) Valid() bool {
	return s.Radius > 0 && s.Center.IsFinite()
}

func (s *Sphere) Intersect(ray Ray, tMin, tMax float32) (HitRecord, bool) {
	if ray.Degenerate() {
		return HitRecord{}, false
	}

	oc := ray.Origin.Sub(s.Center)
	// Direction is unit length, a == 1.
	halfB := oc.Dot(ray.Dir)
	c := oc.Len2() - s.Radius*s.Radius
	discriminant := halfB*halfB - c
	if discriminant < 0 {
		return HitRecord{}, false
	}

	sqrtD := float32(math.Sqrt(float64(discriminant)))
	t := -halfB - sqrtD
	if t <= tMin || t >= tMax {
		t = -halfB + sqrtD
		if t <= tMin || t >= tMax {
			return HitRecord{}, false
		}
	}

	point := ray.At(t)
	outward := point.Sub(s.Center).Mul(1.0 / s.Radius)
	hit := HitRecord{
		T:     t,
		Point: point,
		UV:    sphereUV(outward),
		Mat:   s.Mat,
	}
	hit.setNormal(ray, outward)
	return hit, true
}

// SampleTowards draws a direction through the cone subtended by the
// sphere as seen from the reference point.
func (s *Sphere) SampleTowards(from types.Vec3, u types.Vec2) (LightSample, bool) {
	toCenter := s.Center.Sub(from)
	dc2 := toCenter.Len2()
	r2 := s.Radius * s.Radius
	if dc2 <= r2 {
		// Reference point inside the sphere.
		return LightSample{}, false
	}

	sinThetaMax2 := r2 / dc2
	cosThetaMax := float32(math.Sqrt(float64(1 - sinThetaMax2)))

	cosTheta := 1 - u[0]*(1-cosThetaMax)
	sinTheta := float32(math.Sqrt(math.Max(0, float64(1-cosTheta*cosTheta))))
	phi := 2 * math.Pi * float64(u[1])

	w := toCenter.Normalize()
	t, b := orthonormalBasis(w)
	dir := t.Mul(sinTheta * float32(math.Cos(phi))).
		Add(b.Mul(sinTheta * float32(math.Sin(phi)))).
		Add(w.Mul(cosTheta)).Normalize()

	dc := float32(math.Sqrt(float64(dc2)))
	ds := dc*cosTheta - float32(math.Sqrt(math.Max(0, float64(r2-dc2*sinTheta*sinTheta))))

	return LightSample{
		Dir:      dir,
		Dist:     ds,
		Emission: s.emission(from.Add(dir.Mul(ds))),
		PDF:      uniformConePDF(cosThetaMax),
	}, true
}

func (s *Sphere) emission(point types.Vec3) types.Vec3 {
	emitter, ok := s.Mat.(Emitter)
	if !ok {
		return types.Vec3{}
	}
	outward := point.Sub(s.Center).Normalize()
	return emitter.Emitted(Ray{}, &HitRecord{
		Point:     point,
		UV:        sphereUV(outward),
		FrontFace: true,
	})
}

func uniformConePDF(cosThetaMax float32) float32 {
	solidAngle := 2 * math.Pi * float64(1-cosThetaMax)
	if solidAngle <= 0 {
		return 0
	}
	return float32(1 / solidAngle)
}

func sphereUV(outward types.Vec3) types.Vec2 {
	phi := math.Atan2(float64(outward[2]), float64(outward[0]))
	theta := math.Asin(math.Max(-1, math.Min(1, float64(outward[1]))))
	return types.XY(
		1-float32((phi+math.Pi)/(2*math.Pi)),
		float32((theta+math.Pi/2)/math.Pi),
	)
}

func (h *HitRecord) setNormal(ray Ray, outward types.Vec3) {
	h.FrontFace = ray.Dir.Dot(outward) < 0
	if h.FrontFace {
		h.Normal = outward
	} else {
		h.Normal = outward.Neg()
	}
	h.ShadingNormal = h.Normal
}
