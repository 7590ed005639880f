package tracer

import (
	"math"
	"testing"

	"github.com/jasmouth/nimbus/bvh"
	"github.com/jasmouth/nimbus/sampler"
	"github.com/jasmouth/nimbus/scene"
	"github.com/jasmouth/nimbus/types"
)

func testSequence() *sampler.Sequence {
	return sampler.NewSequence(42, 0, 0, 16)
}

func freezeScene(t *testing.T, sc *scene.Scene) *bvh.Tree {
	t.Helper()
	if sc.Camera == nil {
		sc.Camera = scene.NewCamera(45)
		sc.Camera.SetupProjection(1)
	}
	if err := sc.Freeze(); err != nil {
		t.Fatalf("freeze scene: %v", err)
	}
	return bvh.Build(sc.Primitives(), 2)
}

func TestIntegratorDirectEmitter(t *testing.T) {
	emission := types.XYZ(2, 3, 4)
	sc := scene.New()
	sc.Add(&scene.Sphere{
		Center: types.XYZ(0, 0, -5),
		Radius: 1,
		Mat:    &scene.DiffuseLight{Emission: scene.ConstantTexture{Color: emission}},
	})
	tree := freezeScene(t, sc)
	in := NewPathIntegrator(sc, tree, 4, 4)

	got := in.Li(scene.NewRay(types.Vec3{}, types.XYZ(0, 0, -1)), testSequence())
	if got != emission {
		t.Fatalf("expected camera-visible emitter to contribute %v; got %v", emission, got)
	}
}

func TestIntegratorBackgroundMiss(t *testing.T) {
	background := types.XYZ(0.5, 0.7, 1.0)
	sc := scene.New()
	sc.Background = background
	sc.Add(&scene.Sphere{
		Center: types.XYZ(0, 0, -5),
		Radius: 1,
		Mat:    &scene.Lambert{Albedo: scene.ConstantTexture{Color: types.XYZ(0.5, 0.5, 0.5)}},
	})
	tree := freezeScene(t, sc)
	in := NewPathIntegrator(sc, tree, 4, 4)

	got := in.Li(scene.NewRay(types.Vec3{}, types.XYZ(0, 1, 0)), testSequence())
	if got != background {
		t.Fatalf("expected escaping ray to return the background %v; got %v", background, got)
	}
}

func TestIntegratorDirectLighting(t *testing.T) {
	sc := scene.New()
	sc.Add(
		&scene.Sphere{
			Center: types.XYZ(0, -100, -5),
			Radius: 99,
			Mat:    &scene.Lambert{Albedo: scene.ConstantTexture{Color: types.XYZ(0.8, 0.4, 0.2)}},
		},
		&scene.Sphere{
			Center: types.XYZ(0, 10, -5),
			Radius: 2,
			Mat:    &scene.DiffuseLight{Emission: scene.ConstantTexture{Color: types.XYZ(20, 20, 20)}},
		},
	)
	tree := freezeScene(t, sc)

	// maxBounces 0 restricts the estimate to next-event estimation
	// at the first hit.
	in := NewPathIntegrator(sc, tree, 0, 16)

	got := in.Li(scene.NewRay(types.Vec3{}, types.XYZ(0, -0.2, -1)), testSequence())
	if !got.IsFinite() {
		t.Fatalf("expected finite radiance; got %v", got)
	}
	if got[0] <= 0 || got[1] <= 0 || got[2] <= 0 {
		t.Fatalf("expected positive direct lighting on the lit floor; got %v", got)
	}
	// Grey light over a tinted lambertian floor keeps the albedo
	// channel ratios intact.
	if ratio := got[1] / got[0]; float32(math.Abs(float64(ratio-0.5))) > 1e-4 {
		t.Fatalf("expected G/R ratio 0.5 from the floor albedo; got %f", ratio)
	}
}

func TestIntegratorShadowing(t *testing.T) {
	sc := scene.New()
	sc.Add(
		&scene.Sphere{
			Center: types.XYZ(0, -100, -5),
			Radius: 99,
			Mat:    &scene.Lambert{Albedo: scene.ConstantTexture{Color: types.XYZ(0.8, 0.8, 0.8)}},
		},
		// Occluder between the floor and the light.
		&scene.RectXZ{
			X0: -50, X1: 50, Z0: -55, Z1: 45, K: 5,
			Mat: &scene.Lambert{Albedo: scene.ConstantTexture{Color: types.XYZ(0.1, 0.1, 0.1)}},
		},
		&scene.Sphere{
			Center: types.XYZ(0, 10, -5),
			Radius: 2,
			Mat:    &scene.DiffuseLight{Emission: scene.ConstantTexture{Color: types.XYZ(20, 20, 20)}},
		},
	)
	tree := freezeScene(t, sc)
	in := NewPathIntegrator(sc, tree, 0, 16)

	got := in.Li(scene.NewRay(types.Vec3{}, types.XYZ(0, -0.2, -1)), testSequence())
	if got != (types.Vec3{}) {
		t.Fatalf("expected fully occluded direct lighting to be zero; got %v", got)
	}
}

// nanMaterial produces a non-finite scatter weight; such paths must be
// discarded as zero rather than written into the framebuffer.
type nanMaterial struct{}

func (nanMaterial) Scatter(_ scene.Ray, hit *scene.HitRecord, _ *sampler.RNG) (scene.ScatterRecord, bool) {
	return scene.ScatterRecord{
		Dir:         hit.ShadingNormal,
		Attenuation: types.XYZ(float32(math.NaN()), 1, 1),
		PDF:         1,
	}, true
}

func (nanMaterial) Eval(_ *scene.HitRecord, _ types.Vec3) types.Vec3 {
	return types.XYZ(float32(math.NaN()), 1, 1)
}

func TestIntegratorDiscardsNonFiniteSamples(t *testing.T) {
	sc := scene.New()
	sc.Background = types.XYZ(1, 1, 1)
	sc.Add(&scene.Sphere{
		Center: types.XYZ(0, 0, -5),
		Radius: 1,
		Mat:    nanMaterial{},
	})
	tree := freezeScene(t, sc)
	in := NewPathIntegrator(sc, tree, 4, 16)

	got := in.Li(scene.NewRay(types.Vec3{}, types.XYZ(0, 0, -1)), testSequence())
	if got != (types.Vec3{}) {
		t.Fatalf("expected non-finite sample to be discarded as zero; got %v", got)
	}
}

// Roulette termination reweights survivors by the inverse survival
// probability, so the estimated energy must match a run without it up
// to Monte Carlo noise.
func TestIntegratorRouletteEnergy(t *testing.T) {
	sc := scene.New()
	sc.Add(
		&scene.RectXZ{
			X0: -50, X1: 50, Z0: -55, Z1: 45, K: -1,
			Mat: &scene.Lambert{Albedo: scene.ConstantTexture{Color: types.XYZ(0.6, 0.6, 0.6)}},
		},
		&scene.RectXZ{
			X0: -2, X1: 2, Z0: -7, Z1: -3, K: 4,
			Mat: &scene.DiffuseLight{Emission: scene.ConstantTexture{Color: types.XYZ(4, 4, 4)}},
		},
	)
	tree := freezeScene(t, sc)

	const (
		numSamples = 60000
		maxBounces = 6
	)
	ray := scene.NewRay(types.XYZ(0, 1, -5), types.XYZ(0, -1, 0))

	estimate := func(in *PathIntegrator) float64 {
		var sum float64
		for i := uint32(0); i < numSamples; i++ {
			seq := sampler.NewSequence(7, 0, i, numSamples)
			sum += float64(in.Li(ray, seq).Luminance())
		}
		return sum / numSamples
	}

	// A roulette threshold beyond the bounce limit disables
	// termination entirely.
	plain := estimate(NewPathIntegrator(sc, tree, maxBounces, maxBounces+1))
	roulette := estimate(NewPathIntegrator(sc, tree, maxBounces, 1))

	if plain <= 0 {
		t.Fatalf("expected positive reference energy; got %g", plain)
	}
	if rel := math.Abs(roulette-plain) / plain; rel > 0.05 {
		t.Fatalf("expected roulette estimate %g to match reference %g within 5%%; error %f",
			roulette, plain, rel)
	}
}

func TestIntegratorMediumTransport(t *testing.T) {
	background := types.XYZ(0.25, 0.5, 0.75)

	buildVolumeScene := func(sigmaT float32, albedo types.Vec3) *PathIntegrator {
		sc := scene.New()
		sc.Background = background
		med := &scene.Medium{
			Density: scene.UniformDensity{Value: 1},
			SigmaT:  sigmaT,
			Albedo:  albedo,
			Phase:   scene.IsotropicPhase{},
		}
		sc.Add(&scene.VolumeRegion{
			Boundary: &scene.Sphere{Center: types.XYZ(0, 0, -5), Radius: 2},
			Med:      med,
		})
		tree := freezeScene(t, sc)
		return NewPathIntegrator(sc, tree, 32, 32)
	}

	// A zero-density region never generates collisions, so the ray
	// must pass through untouched.
	in := buildVolumeScene(0, types.XYZ(1, 1, 1))
	got := in.Li(scene.NewRay(types.Vec3{}, types.XYZ(0, 0, -1)), testSequence())
	if got != background {
		t.Fatalf("expected vacuum region to pass background %v; got %v", background, got)
	}

	// An extremely dense purely absorbing region swallows every
	// path through its core.
	in = buildVolumeScene(1e6, types.Vec3{})
	got = in.Li(scene.NewRay(types.Vec3{}, types.XYZ(0, 0, -1)), testSequence())
	if got != (types.Vec3{}) {
		t.Fatalf("expected opaque absorbing region to yield zero; got %v", got)
	}
}

// Overlapping medium boundaries re-report the same entry distance on
// every walk iteration; the traversal must give the path up instead of
// cycling between the two regions.
func TestIntegratorOverlappingMediaTerminates(t *testing.T) {
	sc := scene.New()
	sc.Background = types.XYZ(0.3, 0.3, 0.3)

	vacuum := func(center types.Vec3) *scene.VolumeRegion {
		return &scene.VolumeRegion{
			Boundary: &scene.Sphere{Center: center, Radius: 2},
			Med: &scene.Medium{
				Density: scene.UniformDensity{Value: 0},
				SigmaT:  1,
				Albedo:  types.XYZ(1, 1, 1),
				Phase:   scene.IsotropicPhase{},
			},
		}
	}
	sc.Add(vacuum(types.XYZ(0, 0, -5)), vacuum(types.XYZ(0, 0, -6)))
	tree := freezeScene(t, sc)
	in := NewPathIntegrator(sc, tree, 8, 8)

	got := in.Li(scene.NewRay(types.Vec3{}, types.XYZ(0, 0, -1)), testSequence())
	if !got.IsFinite() {
		t.Fatalf("expected a finite radiance from overlapping regions; got %v", got)
	}
}
