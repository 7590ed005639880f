package scene

import (
	"math"
	"testing"

	"github.com/jasmouth/nimbus/sampler"
	"github.com/jasmouth/nimbus/types"
)

func TestSphereIntersect(t *testing.T) {
	s := &Sphere{Center: types.XYZ(0, 0, -5), Radius: 1}

	type spec struct {
		origin, dir types.Vec3
		tMin, tMax  float32
		expHit      bool
		expT        float32
	}

	specs := []spec{
		// Head-on hit from outside.
		{types.Vec3{}, types.XYZ(0, 0, -1), 1e-3, 1e30, true, 4},
		// Ray pointing away.
		{types.Vec3{}, types.XYZ(0, 0, 1), 1e-3, 1e30, false, 0},
		// Origin inside; the far root is reported.
		{types.XYZ(0, 0, -5), types.XYZ(0, 0, -1), 1e-3, 1e30, true, 1},
		// Near root excluded by the interval.
		{types.Vec3{}, types.XYZ(0, 0, -1), 4.5, 1e30, true, 6},
		// Both roots outside the interval.
		{types.Vec3{}, types.XYZ(0, 0, -1), 1e-3, 3, false, 0},
		// Grazing miss.
		{types.XYZ(0, 1.001, 0), types.XYZ(0, 0, -1), 1e-3, 1e30, false, 0},
	}

	for index, sp := range specs {
		hit, ok := s.Intersect(NewRay(sp.origin, sp.dir), sp.tMin, sp.tMax)
		if ok != sp.expHit {
			t.Fatalf("[spec %d] expected hit=%t; got %t", index, sp.expHit, ok)
		}
		if !ok {
			continue
		}
		if math.Abs(float64(hit.T-sp.expT)) > 1e-3 {
			t.Fatalf("[spec %d] expected t=%f; got %f", index, sp.expT, hit.T)
		}
		if l := hit.Normal.Len(); math.Abs(float64(l-1)) > 1e-3 {
			t.Fatalf("[spec %d] normal not unit length: %v", index, hit.Normal)
		}
	}
}

func TestSphereNormalOrientation(t *testing.T) {
	s := &Sphere{Center: types.XYZ(0, 0, -5), Radius: 1}

	hit, ok := s.Intersect(NewRay(types.Vec3{}, types.XYZ(0, 0, -1)), 1e-3, 1e30)
	if !ok {
		t.Fatal("expected outside hit")
	}
	if !hit.FrontFace || hit.Normal[2] <= 0 {
		t.Fatalf("outside hit should be front-facing with normal toward the ray; got front=%t normal=%v", hit.FrontFace, hit.Normal)
	}

	hit, ok = s.Intersect(NewRay(s.Center, types.XYZ(0, 0, -1)), 1e-3, 1e30)
	if !ok {
		t.Fatal("expected inside hit")
	}
	if hit.FrontFace || hit.Normal[2] <= 0 {
		t.Fatalf("inside hit should be back-facing with flipped normal; got front=%t normal=%v", hit.FrontFace, hit.Normal)
	}
}

func TestRectIntersect(t *testing.T) {
	rect := &RectXZ{X0: -1, X1: 1, Z0: -1, Z1: 1, K: 2}

	hit, ok := rect.Intersect(NewRay(types.Vec3{}, types.XYZ(0, 1, 0)), 1e-3, 1e30)
	if !ok {
		t.Fatal("expected hit on rect")
	}
	if math.Abs(float64(hit.T-2)) > 1e-5 {
		t.Fatalf("expected t=2; got %f", hit.T)
	}
	if hit.UV != types.XY(0.5, 0.5) {
		t.Fatalf("expected centered UV; got %v", hit.UV)
	}

	// Outside the rectangle bounds.
	if _, ok = rect.Intersect(NewRay(types.XYZ(5, 0, 0), types.XYZ(0, 1, 0)), 1e-3, 1e30); ok {
		t.Fatal("expected miss outside rect bounds")
	}

	// Parallel to the plane.
	if _, ok = rect.Intersect(NewRay(types.Vec3{}, types.XYZ(1, 0, 0)), 1e-3, 1e30); ok {
		t.Fatal("expected miss for ray parallel to rect plane")
	}
}

func TestBoxIntersect(t *testing.T) {
	box := NewBox(types.XYZ(-1, -1, -3), types.XYZ(1, 1, -1), nil)

	hit, ok := box.Intersect(NewRay(types.Vec3{}, types.XYZ(0, 0, -1)), 1e-3, 1e30)
	if !ok {
		t.Fatal("expected hit on box")
	}
	if math.Abs(float64(hit.T-1)) > 1e-5 {
		t.Fatalf("expected nearest face at t=1; got %f", hit.T)
	}

	// From inside, the far face is the nearest valid hit.
	hit, ok = box.Intersect(NewRay(types.XYZ(0, 0, -2), types.XYZ(0, 0, -1)), 1e-3, 1e30)
	if !ok {
		t.Fatal("expected inside hit")
	}
	if math.Abs(float64(hit.T-1)) > 1e-5 {
		t.Fatalf("expected exit face at t=1; got %f", hit.T)
	}
}

func TestTriangleIntersect(t *testing.T) {
	tri := NewTriangle(
		types.XYZ(-1, -1, -2),
		types.XYZ(1, -1, -2),
		types.XYZ(0, 1, -2),
		nil,
	)

	hit, ok := tri.Intersect(NewRay(types.Vec3{}, types.XYZ(0, 0, -1)), 1e-3, 1e30)
	if !ok {
		t.Fatal("expected hit through triangle interior")
	}
	if math.Abs(float64(hit.T-2)) > 1e-5 {
		t.Fatalf("expected t=2; got %f", hit.T)
	}
	if math.Abs(float64(hit.Normal[2]-1)) > 1e-5 {
		t.Fatalf("expected normal facing the ray; got %v", hit.Normal)
	}

	// Outside the triangle but inside its bounding box.
	if _, ok = tri.Intersect(NewRay(types.XYZ(0.9, 0.9, 0), types.XYZ(0, 0, -1)), 1e-3, 1e30); ok {
		t.Fatal("expected miss outside the triangle edge")
	}

	// Edge-on ray.
	if _, ok = tri.Intersect(NewRay(types.XYZ(-5, -1, -2), types.XYZ(1, 0, 0)), 1e-3, 1e30); ok {
		t.Fatal("expected miss for ray in the triangle plane")
	}

	// Degenerate triangles are excluded from acceleration indexing.
	deg := NewTriangle(types.XYZ(0, 0, 0), types.XYZ(0, 0, 0), types.XYZ(1, 1, 1), nil)
	if deg.Valid() {
		t.Fatal("expected zero-area triangle to be invalid")
	}
}

func TestTransforms(t *testing.T) {
	base := &Sphere{Center: types.XYZ(0, 0, -5), Radius: 1}

	// Translate shifts the hit point and bbox.
	moved := &Translate{Prim: base, Offset: types.XYZ(2, 0, 0)}
	hit, ok := moved.Intersect(NewRay(types.XYZ(2, 0, 0), types.XYZ(0, 0, -1)), 1e-3, 1e30)
	if !ok {
		t.Fatal("expected hit on translated sphere")
	}
	if math.Abs(float64(hit.Point[0]-2)) > 1e-3 {
		t.Fatalf("expected hit at x=2; got %v", hit.Point)
	}
	bbox := moved.BBox()
	if bbox[0][0] != 1 || bbox[1][0] != 3 {
		t.Fatalf("expected translated bbox x-range [1, 3]; got %v", bbox)
	}

	// FlipNormals inverts orientation but not geometry.
	flipped := &FlipNormals{Prim: base}
	orig, _ := base.Intersect(NewRay(types.Vec3{}, types.XYZ(0, 0, -1)), 1e-3, 1e30)
	hit, ok = flipped.Intersect(NewRay(types.Vec3{}, types.XYZ(0, 0, -1)), 1e-3, 1e30)
	if !ok {
		t.Fatal("expected hit on flipped sphere")
	}
	if hit.T != orig.T || hit.FrontFace == orig.FrontFace {
		t.Fatalf("expected same hit with flipped orientation; got t=%f front=%t", hit.T, hit.FrontFace)
	}

	// RotateY by 90 degrees maps +X into -Z.
	offCenter := &Sphere{Center: types.XYZ(3, 0, 0), Radius: 1}
	rotated := NewRotateY(offCenter, 90)
	if _, ok = rotated.Intersect(NewRay(types.Vec3{}, types.XYZ(0, 0, -1)), 1e-3, 1e30); !ok {
		t.Fatal("expected rotated sphere on the -Z axis")
	}
	if _, ok = rotated.Intersect(NewRay(types.Vec3{}, types.XYZ(1, 0, 0)), 1e-3, 1e30); ok {
		t.Fatal("expected no sphere left on the +X axis")
	}
}

func TestSphereLightSampling(t *testing.T) {
	light := &Sphere{
		Center: types.XYZ(0, 5, 0),
		Radius: 1,
		Mat:    &DiffuseLight{Emission: ConstantTexture{Color: types.XYZ(4, 4, 4)}},
	}

	from := types.Vec3{}
	rng := sampler.NewRNG(5, 0, 0)

	// Uniform cone sampling: pdf = 1 / (2π(1 − cosθmax)) with
	// cosθmax = sqrt(1 − (r/d)²), here d = 5 and r = 1.
	cosThetaMax := math.Sqrt(1 - 1.0/25.0)
	wantPDF := 1 / (2 * math.Pi * (1 - cosThetaMax))

	for i := 0; i < 5000; i++ {
		ls, ok := light.SampleTowards(from, types.XY(rng.Float32(), rng.Float32()))
		if !ok {
			t.Fatal("expected sample toward visible sphere")
		}
		if l := ls.Dir.Len(); math.Abs(float64(l-1)) > 1e-3 {
			t.Fatalf("sampled direction not unit length: %v", ls.Dir)
		}
		if ls.PDF <= 0 {
			t.Fatalf("expected positive pdf; got %f", ls.PDF)
		}

		// Every sampled direction must actually hit the sphere, and
		// the reported pdf must match the subtended cone.
		if _, hitOK := light.Intersect(NewRay(from, ls.Dir), 1e-4, 1e30); !hitOK {
			t.Fatalf("sampled direction %v misses the light", ls.Dir)
		}
		if rel := math.Abs(float64(ls.PDF)-wantPDF) / wantPDF; rel > 1e-3 {
			t.Fatalf("pdf mismatch: sample %f vs cone %f", ls.PDF, wantPDF)
		}
	}

	// Reference point inside the sphere cannot be sampled.
	if _, ok := light.SampleTowards(light.Center, types.XY(0.5, 0.5)); ok {
		t.Fatal("expected sampling failure from inside the sphere")
	}
}

func TestRectLightSampling(t *testing.T) {
	rect := &RectXZ{
		X0: -1, X1: 1, Z0: -1, Z1: 1, K: 3,
		Mat: &DiffuseLight{Emission: ConstantTexture{Color: types.XYZ(10, 10, 10)}},
	}

	from := types.Vec3{}
	rng := sampler.NewRNG(13, 0, 0)

	// Monte Carlo integrate the constant function 1 over the rect's
	// solid angle via 1/pdf; compare against a direct numeric
	// integral of the subtended solid angle.
	const iterations = 100000
	var estimate float64
	for i := 0; i < iterations; i++ {
		ls, ok := rect.SampleTowards(from, types.XY(rng.Float32(), rng.Float32()))
		if !ok {
			t.Fatal("expected rect sample")
		}
		estimate += 1.0 / float64(ls.PDF)
	}
	estimate /= iterations

	// Solid angle of the rect: integrate cos/d^2 over its area.
	const steps = 400
	var exact float64
	for i := 0; i < steps; i++ {
		for j := 0; j < steps; j++ {
			x := -1 + (float64(i)+0.5)*(2.0/steps)
			z := -1 + (float64(j)+0.5)*(2.0/steps)
			d2 := x*x + z*z + 9
			cos := 3 / math.Sqrt(d2)
			exact += cos / d2 * (2.0 / steps) * (2.0 / steps)
		}
	}

	if math.Abs(estimate-exact)/exact > 0.01 {
		t.Fatalf("expected solid angle ~%f; got %f", exact, estimate)
	}
}
