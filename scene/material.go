package scene

import (
	"math"

	"github.com/jasmouth/nimbus/sampler"
	"github.com/jasmouth/nimbus/types"
)

// ScatterRecord describes a sampled surface interaction.
type ScatterRecord struct {
	// Sampled outgoing direction (unit length).
	Dir types.Vec3

	// BSDF throughput for the sampled direction. For non-specular
	// materials this is the BSDF value; the integrator divides by
	// PDF and applies the cosine term itself.
	Attenuation types.Vec3

	// Solid-angle PDF of the sampled direction. Zero for specular
	// interactions, which carry their full weight in Attenuation.
	PDF float32

	// Specular interactions bypass next-event estimation.
	Specular bool
}

// Material captures how a surface redirects incoming light.
type Material interface {
	// Scatter samples an outgoing direction at the hit. A false
	// return means the path is absorbed. The solid-angle PDF of the
	// sampled direction travels in the ScatterRecord.
	Scatter(ray Ray, hit *HitRecord, rng *sampler.RNG) (ScatterRecord, bool)

	// Eval evaluates the BSDF for light arriving from dir. Specular
	// materials return zero (their contribution is sampled only).
	Eval(hit *HitRecord, dir types.Vec3) types.Vec3
}

// Emitter is implemented by materials that add radiance of their own.
type Emitter interface {
	Emitted(ray Ray, hit *HitRecord) types.Vec3
}

// Lambert is a matte, diffusely reflecting surface.
type Lambert struct {
	Albedo Texture
}

func (m *Lambert) Scatter(_ Ray, hit *HitRecord, rng *sampler.RNG) (ScatterRecord, bool) {
	u1, u2 := rng.Float32Pair()
	dir := cosineSampleHemisphere(hit.ShadingNormal, u1, u2)
	cos := dir.Dot(hit.ShadingNormal)
	if cos <= 0 {
		return ScatterRecord{}, false
	}
	return ScatterRecord{
		Dir:         dir,
		Attenuation: m.Albedo.Value(hit.UV, hit.Point).Mul(1.0 / math.Pi),
		PDF:         cos / math.Pi,
	}, true
}

func (m *Lambert) Eval(hit *HitRecord, dir types.Vec3) types.Vec3 {
	if dir.Dot(hit.ShadingNormal) <= 0 {
		return types.Vec3{}
	}
	return m.Albedo.Value(hit.UV, hit.Point).Mul(1.0 / math.Pi)
}

// Metal is a specularly reflecting surface; Fuzz perturbs the mirror
// direction for a brushed look.
type Metal struct {
	Albedo Texture
	Fuzz   float32
}

func (m *Metal) Scatter(ray Ray, hit *HitRecord, rng *sampler.RNG) (ScatterRecord, bool) {
	reflected := reflect(ray.Dir, hit.ShadingNormal)
	if m.Fuzz > 0 {
		reflected = reflected.Add(randomInUnitSphere(rng).Mul(m.Fuzz)).Normalize()
	}
	if reflected.Dot(hit.Normal) <= 0 {
		// Fuzz pushed the ray under the surface.
		return ScatterRecord{}, false
	}
	return ScatterRecord{
		Dir:         reflected,
		Attenuation: m.Albedo.Value(hit.UV, hit.Point),
		Specular:    true,
	}, true
}

func (m *Metal) Eval(_ *HitRecord, _ types.Vec3) types.Vec3 { return types.Vec3{} }

// Dielectric is a clear refractive surface (glass, water). Each
// interaction follows either the reflected or the refracted ray,
// chosen with the Schlick reflectance probability.
type Dielectric struct {
	RefractiveIndex float32
}

func (m *Dielectric) Scatter(ray Ray, hit *HitRecord, rng *sampler.RNG) (ScatterRecord, bool) {
	// hit.Normal always faces the incoming ray, so the entry/exit
	// distinction lives in FrontFace, not in the sign of the dot
	// product.
	dot := ray.Dir.Dot(hit.Normal)

	var niOverNt, cosine float32
	if hit.FrontFace {
		niOverNt = 1.0 / m.RefractiveIndex
		cosine = -dot
	} else {
		// Leaving the object.
		niOverNt = m.RefractiveIndex
		cosine = m.RefractiveIndex * -dot
	}

	dir := reflect(ray.Dir, hit.Normal)
	refracted, ok := refract(ray.Dir, hit.Normal, niOverNt)
	if ok && rng.Float32() >= schlick(cosine, m.RefractiveIndex) {
		dir = refracted
	}

	return ScatterRecord{
		Dir:         dir,
		Attenuation: types.XYZ(1, 1, 1),
		Specular:    true,
	}, true
}

func (m *Dielectric) Eval(_ *HitRecord, _ types.Vec3) types.Vec3 { return types.Vec3{} }

// DiffuseLight emits radiance and absorbs all incoming paths.
type DiffuseLight struct {
	Emission Texture
}

func (m *DiffuseLight) Scatter(_ Ray, _ *HitRecord, _ *sampler.RNG) (ScatterRecord, bool) {
	return ScatterRecord{}, false
}

func (m *DiffuseLight) Eval(_ *HitRecord, _ types.Vec3) types.Vec3 { return types.Vec3{} }

func (m *DiffuseLight) Emitted(_ Ray, hit *HitRecord) types.Vec3 {
	if !hit.FrontFace {
		return types.Vec3{}
	}
	return m.Emission.Value(hit.UV, hit.Point)
}

// Sampling helpers shared by materials and phase functions.

func reflect(v, n types.Vec3) types.Vec3 {
	return v.Sub(n.Mul(2 * v.Dot(n)))
}

func refract(v, n types.Vec3, niOverNt float32) (types.Vec3, bool) {
	dt := v.Dot(n)
	discriminant := 1.0 - niOverNt*niOverNt*(1.0-dt*dt)
	if discriminant <= 0 {
		// Total internal reflection.
		return types.Vec3{}, false
	}
	refracted := v.Sub(n.Mul(dt)).Mul(niOverNt).Sub(n.Mul(float32(math.Sqrt(float64(discriminant)))))
	return refracted, true
}

func schlick(cosine, refractiveIndex float32) float32 {
	r0 := (1 - refractiveIndex) / (1 + refractiveIndex)
	r0 = r0 * r0
	return r0 + (1-r0)*float32(math.Pow(float64(1-cosine), 5))
}

// orthonormalBasis builds a right-handed basis around the unit vector n.
func orthonormalBasis(n types.Vec3) (t, b types.Vec3) {
	if float32(math.Abs(float64(n[0]))) > 0.9 {
		t = types.XYZ(0, 1, 0).Cross(n).Normalize()
	} else {
		t = types.XYZ(1, 0, 0).Cross(n).Normalize()
	}
	b = n.Cross(t)
	return t, b
}

// cosineSampleHemisphere draws a cosine-weighted direction around n.
func cosineSampleHemisphere(n types.Vec3, u1, u2 float32) types.Vec3 {
	r := float32(math.Sqrt(float64(u1)))
	phi := 2 * math.Pi * float64(u2)
	x := r * float32(math.Cos(phi))
	y := r * float32(math.Sin(phi))
	z := float32(math.Sqrt(math.Max(0, 1-float64(u1))))

	t, b := orthonormalBasis(n)
	return t.Mul(x).Add(b.Mul(y)).Add(n.Mul(z)).Normalize()
}

func randomInUnitSphere(rng *sampler.RNG) types.Vec3 {
	for {
		p := types.XYZ(
			2*rng.Float32()-1,
			2*rng.Float32()-1,
			2*rng.Float32()-1,
		)
		if p.Len2() < 1 {
			return p
		}
	}
}
