package scene

import (
	"math"

	"github.com/jasmouth/nimbus/sampler"
	"github.com/jasmouth/nimbus/types"
)

// DensityField describes the spatial density of a participating
// medium. MaxDensity must bound At over the whole domain or the
// distance sampler becomes biased.
type DensityField interface {
	At(p types.Vec3) float32
	MaxDensity() float32
}

// UniformDensity is a homogeneous field. Delta tracking accepts every
// candidate collision, which degenerates to the analytic exponential
// free-flight distribution.
type UniformDensity struct {
	Value float32
}

func (d UniformDensity) At(_ types.Vec3) float32 { return d.Value }
func (d UniformDensity) MaxDensity() float32     { return d.Value }

// TurbulenceDensity varies density with Perlin turbulence, clamped to
// [0, Max] so Max remains a valid majorant.
type TurbulenceDensity struct {
	Noise   *Perlin
	Max     float32
	Scale   float32
	Octaves int
}

func (d TurbulenceDensity) At(p types.Vec3) float32 {
	octaves := d.Octaves
	if octaves == 0 {
		octaves = 8
	}
	turb := d.Noise.Turbulence(p, octaves, d.Scale)
	if turb > 1 {
		turb = 1
	}
	return d.Max * turb
}

func (d TurbulenceDensity) MaxDensity() float32 { return d.Max }

// PhaseFunction is the directional distribution of volumetric
// scattering events.
type PhaseFunction interface {
	// Sample draws a scattered direction given the outgoing (ray)
	// direction.
	Sample(wo types.Vec3, u1, u2 float32) types.Vec3

	// Eval returns the phase value for the angle between the ray
	// direction and the scattered direction. Integrates to 1 over
	// the sphere.
	Eval(cosTheta float32) float32
}

// IsotropicPhase scatters uniformly over the sphere.
type IsotropicPhase struct{}

func (IsotropicPhase) Sample(_ types.Vec3, u1, u2 float32) types.Vec3 {
	z := 1 - 2*u1
	r := float32(math.Sqrt(math.Max(0, float64(1-z*z))))
	phi := 2 * math.Pi * float64(u2)
	return types.XYZ(r*float32(math.Cos(phi)), r*float32(math.Sin(phi)), z)
}

func (IsotropicPhase) Eval(_ float32) float32 {
	return 1.0 / (4 * math.Pi)
}

// HenyeyGreenstein is the standard anisotropic phase function; G in
// (-1, 1) controls back/forward scattering.
type HenyeyGreenstein struct {
	G float32
}

func (hg HenyeyGreenstein) Sample(wo types.Vec3, u1, u2 float32) types.Vec3 {
	g := float64(hg.G)
	var cosTheta float64
	if math.Abs(g) < 1e-3 {
		cosTheta = 1 - 2*float64(u1)
	} else {
		sqr := (1 - g*g) / (1 - g + 2*g*float64(u1))
		cosTheta = (1 + g*g - sqr*sqr) / (2 * g)
	}
	sinTheta := math.Sqrt(math.Max(0, 1-cosTheta*cosTheta))
	phi := 2 * math.Pi * float64(u2)

	t, b := orthonormalBasis(wo)
	return t.Mul(float32(sinTheta * math.Cos(phi))).
		Add(b.Mul(float32(sinTheta * math.Sin(phi)))).
		Add(wo.Mul(float32(cosTheta))).Normalize()
}

func (hg HenyeyGreenstein) Eval(cosTheta float32) float32 {
	g := float64(hg.G)
	denom := 1 + g*g + 2*g*float64(cosTheta)
	return float32((1 - g*g) / (4 * math.Pi * denom * math.Sqrt(denom)))
}

// Medium models a participating medium: a density field scaled by an
// extinction coefficient, a single-scattering albedo and a phase
// function.
type Medium struct {
	Density DensityField

	// SigmaT scales the density field into an extinction
	// coefficient, so sigma_t(p) = SigmaT * Density.At(p).
	SigmaT float32

	// Albedo is sigma_s / sigma_t per channel.
	Albedo types.Vec3

	Phase PhaseFunction
}

// Majorant returns the extinction upper bound used by delta tracking.
func (m *Medium) Majorant() float32 {
	return m.SigmaT * m.Density.MaxDensity()
}

// SampleDistance performs Woodcock (delta) tracking along
// ray in (tMin, tMax). It returns the scatter distance and true for a
// volumetric interaction, or false when the ray crosses the segment
// without interacting. Rejected candidates continue from the rejection
// point, never from the segment start.
func (m *Medium) SampleDistance(ray Ray, tMin, tMax float32, rng *sampler.RNG) (float32, bool) {
	majorant := m.Majorant()
	if majorant <= 0 {
		return 0, false
	}

	t := tMin
	for {
		u := rng.Float32()
		t += -float32(math.Log(1-float64(u))) / majorant
		if t >= tMax {
			return 0, false
		}
		density := m.SigmaT * m.Density.At(ray.At(t))
		if rng.Float32() < density/majorant {
			return t, true
		}
	}
}

// Transmittance estimates the fraction of light that crosses the
// segment without interacting. The estimate is the binary delta
// tracking estimator: unbiased, zero or one per call.
func (m *Medium) Transmittance(ray Ray, tMin, tMax float32, rng *sampler.RNG) float32 {
	if _, scattered := m.SampleDistance(ray, tMin, tMax, rng); scattered {
		return 0
	}
	return 1
}

// VolumeRegion bounds a participating medium with a primitive. The
// region reports medium entry hits; the integrator then drives
// distance sampling through the enclosed segment.
type VolumeRegion struct {
	Boundary Primitive
	Med      *Medium
}

func (v *VolumeRegion) BBox() [2]types.Vec3  { return v.Boundary.BBox() }
func (v *VolumeRegion) Centroid() types.Vec3 { return v.Boundary.Centroid() }
func (v *VolumeRegion) Material() Material   { return nil }

func (v *VolumeRegion) Intersect(ray Ray, tMin, tMax float32) (HitRecord, bool) {
	if ray.Degenerate() {
		return HitRecord{}, false
	}

	// Find the full boundary interval along the ray, then clip it to
	// the query interval. Assumes a convex boundary.
	enter, ok := v.Boundary.Intersect(ray, -maxDist, maxDist)
	if !ok {
		return HitRecord{}, false
	}
	exit, ok := v.Boundary.Intersect(ray, enter.T+1e-4, maxDist)
	if !ok {
		// Grazing hit; no interior segment.
		return HitRecord{}, false
	}

	t0 := enter.T
	t1 := exit.T
	if t0 < tMin {
		t0 = tMin
	}
	if t1 > tMax {
		t1 = tMax
	}
	if t0 >= t1 {
		return HitRecord{}, false
	}

	hit := HitRecord{
		T:          t0,
		Point:      ray.At(t0),
		Normal:     types.XYZ(1, 0, 0), // arbitrary; media have no surface
		Medium:     v.Med,
		MediumExit: t1,
	}
	hit.ShadingNormal = hit.Normal
	return hit, true
}
