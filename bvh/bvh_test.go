package bvh

import (
	"testing"

	"github.com/jasmouth/nimbus/sampler"
	"github.com/jasmouth/nimbus/scene"
	"github.com/jasmouth/nimbus/types"
)

// bruteForceIntersect is the linear-scan oracle the tree is validated
// against.
func bruteForceIntersect(prims []scene.Primitive, ray scene.Ray, tMin, tMax float32) (scene.HitRecord, bool) {
	var best scene.HitRecord
	found := false
	for idx, prim := range prims {
		hit, ok := prim.Intersect(ray, tMin, tMax)
		if !ok {
			continue
		}
		if !found || hit.T < best.T {
			hit.Prim = int32(idx)
			best = hit
			found = true
		}
	}
	return best, found
}

func randomSpheres(rng *sampler.RNG, count int) []scene.Primitive {
	prims := make([]scene.Primitive, count)
	for i := range prims {
		prims[i] = &scene.Sphere{
			Center: types.XYZ(
				20*rng.Float32()-10,
				20*rng.Float32()-10,
				20*rng.Float32()-10,
			),
			Radius: 0.2 + rng.Float32(),
		}
	}
	return prims
}

func randomRay(rng *sampler.RNG) scene.Ray {
	origin := types.XYZ(
		30*rng.Float32()-15,
		30*rng.Float32()-15,
		30*rng.Float32()-15,
	)
	dir := types.XYZ(
		2*rng.Float32()-1,
		2*rng.Float32()-1,
		2*rng.Float32()-1,
	)
	if dir == (types.Vec3{}) {
		dir = types.XYZ(0, 0, -1)
	}
	return scene.NewRay(origin, dir)
}

func TestIntersectMatchesBruteForce(t *testing.T) {
	rng := sampler.NewRNG(42, 0, 0)
	prims := randomSpheres(rng, 200)
	tree := Build(prims, 4)

	const tMin, tMax = 0.001, 1000.0
	for i := 0; i < 2000; i++ {
		ray := randomRay(rng)

		want, wantOK := bruteForceIntersect(prims, ray, tMin, tMax)
		got, gotOK := tree.Intersect(ray, tMin, tMax)

		if wantOK != gotOK {
			t.Fatalf("ray %d: brute force hit=%t, tree hit=%t", i, wantOK, gotOK)
		}
		if !wantOK {
			continue
		}
		if got.Prim != want.Prim {
			t.Fatalf("ray %d: brute force hit prim %d at t=%f, tree hit prim %d at t=%f",
				i, want.Prim, want.T, got.Prim, got.T)
		}
		if got.T != want.T {
			t.Fatalf("ray %d: hit distance mismatch: want %f, got %f", i, want.T, got.T)
		}
	}
}

func TestIntersectHonorsInterval(t *testing.T) {
	rng := sampler.NewRNG(7, 0, 0)
	prims := randomSpheres(rng, 100)
	tree := Build(prims, 4)

	const tMin, tMax = 5.0, 25.0
	for i := 0; i < 1000; i++ {
		ray := randomRay(rng)
		hit, ok := tree.Intersect(ray, tMin, tMax)
		if !ok {
			continue
		}
		if hit.T < tMin || hit.T > tMax {
			t.Fatalf("ray %d: hit at t=%f outside [%f, %f]", i, hit.T, tMin, tMax)
		}
	}
}

func TestIntersectAnyAgreesWithIntersect(t *testing.T) {
	rng := sampler.NewRNG(99, 0, 0)
	prims := randomSpheres(rng, 100)
	tree := Build(prims, 4)

	const tMin, tMax = 0.001, 50.0
	for i := 0; i < 1000; i++ {
		ray := randomRay(rng)
		_, hasHit := tree.Intersect(ray, tMin, tMax)
		if got := tree.IntersectAny(ray, tMin, tMax); got != hasHit {
			t.Fatalf("ray %d: Intersect reports hit=%t but IntersectAny reports %t", i, hasHit, got)
		}
	}
}

func TestIntersectTieResolution(t *testing.T) {
	// Two identical spheres: equal-distance hits must resolve to the
	// primitive inserted first.
	prims := []scene.Primitive{
		&scene.Sphere{Center: types.XYZ(0, 0, -5), Radius: 1},
		&scene.Sphere{Center: types.XYZ(0, 0, -5), Radius: 1},
	}
	tree := Build(prims, 1)

	hit, ok := tree.Intersect(scene.NewRay(types.XYZ(0, 0, 0), types.XYZ(0, 0, -1)), 0.001, 1000)
	if !ok {
		t.Fatal("expected a hit on the coincident spheres")
	}
	if hit.Prim != 0 {
		t.Fatalf("expected the tie to resolve to primitive 0; got %d", hit.Prim)
	}
}

func TestIntersectDegenerateRay(t *testing.T) {
	tree := Build([]scene.Primitive{
		&scene.Sphere{Center: types.XYZ(0, 0, -5), Radius: 1},
	}, 1)

	ray := scene.Ray{Origin: types.XYZ(0, 0, 0), Dir: types.Vec3{}}
	if _, ok := tree.Intersect(ray, 0.001, 1000); ok {
		t.Fatal("expected a zero-direction ray to miss deterministically")
	}
}

func TestIntersectAxisParallelRay(t *testing.T) {
	// A ray with two zero direction components exercises the slab
	// special case.
	tree := Build([]scene.Primitive{
		&scene.Sphere{Center: types.XYZ(0, 0, -5), Radius: 1},
	}, 1)

	hit, ok := tree.Intersect(scene.NewRay(types.XYZ(0, 0, 0), types.XYZ(0, 0, -1)), 0.001, 1000)
	if !ok {
		t.Fatal("expected axis-parallel ray to hit the sphere")
	}
	if hit.T < 3.9 || hit.T > 4.1 {
		t.Fatalf("expected hit near t=4; got t=%f", hit.T)
	}

	// Parallel ray outside the slab must miss without NaN issues.
	if _, ok := tree.Intersect(scene.NewRay(types.XYZ(10, 0, 0), types.XYZ(0, 0, -1)), 0.001, 1000); ok {
		t.Fatal("expected offset axis-parallel ray to miss")
	}
}

func TestIntersectExcept(t *testing.T) {
	prims := []scene.Primitive{
		&scene.Sphere{Center: types.XYZ(0, 0, -5), Radius: 1},
		&scene.Sphere{Center: types.XYZ(0, 0, -10), Radius: 1},
	}
	tree := Build(prims, 1)

	ray := scene.NewRay(types.XYZ(0, 0, 0), types.XYZ(0, 0, -1))
	hit, ok := tree.IntersectExcept(ray, 0.001, 1000, 0)
	if !ok {
		t.Fatal("expected a hit on the second sphere")
	}
	if hit.Prim != 1 {
		t.Fatalf("expected excluded query to hit prim 1; got %d", hit.Prim)
	}
}
