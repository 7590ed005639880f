package tracer

import (
	"math"

	"github.com/jasmouth/nimbus/bvh"
	"github.com/jasmouth/nimbus/log"
	"github.com/jasmouth/nimbus/sampler"
	"github.com/jasmouth/nimbus/scene"
	"github.com/jasmouth/nimbus/types"
)

const (
	// Self-intersection offset for spawned rays.
	rayEpsilon float32 = 1e-3

	// Far plane for intersection queries.
	infDist float32 = 1e30
)

// PathIntegrator is an unbiased unidirectional path tracer with
// next-event estimation on diffuse surfaces and Woodcock-tracked
// volumetric transport inside participating media.
type PathIntegrator struct {
	scene *scene.Scene
	tree  *bvh.Tree

	maxBounces      int
	minBouncesForRR int

	logger log.Logger
}

// NewPathIntegrator creates an integrator over a frozen scene and its
// acceleration structure. Russian roulette starts after
// minBouncesForRR bounces; pass a value >= maxBounces to disable it.
func NewPathIntegrator(sc *scene.Scene, tree *bvh.Tree, maxBounces, minBouncesForRR int) *PathIntegrator {
	return &PathIntegrator{
		scene:           sc,
		tree:            tree,
		maxBounces:      maxBounces,
		minBouncesForRR: minBouncesForRR,
		logger:          log.New("integrator"),
	}
}

// Li estimates the radiance arriving along ray. The estimator is
// expressed as a depth-bounded loop carrying a running throughput
// weight so that roulette termination and the depth limit stay
// explicit.
func (pi *PathIntegrator) Li(ray scene.Ray, seq *sampler.Sequence) types.Vec3 {
	var radiance types.Vec3
	throughput := types.XYZ(1, 1, 1)
	rng := seq.RNG()

	// Emitted light is added on paths arriving via the camera or a
	// specular chain; diffuse and phase bounces rely on next-event
	// estimation alone so direct light is never counted twice.
	countEmitted := true

	for bounce := 0; bounce <= pi.maxBounces; bounce++ {
		hit, found := pi.tree.Intersect(ray, rayEpsilon, infDist)
		if !found {
			radiance = radiance.Add(throughput.MulVec(pi.scene.Background))
			break
		}

		// Walk through any medium regions in front of the next
		// surface.
		var scattered, terminated bool
		ray, hit, scattered, terminated = pi.traverseMedia(ray, hit, seq, &radiance, &throughput)
		if terminated {
			break
		}
		if scattered {
			countEmitted = false
			if pi.rouletteTerminate(bounce, &throughput, rng) {
				break
			}
			continue
		}

		// Surface interaction.
		if countEmitted {
			if emitter, ok := hit.Mat.(scene.Emitter); ok {
				radiance = radiance.Add(throughput.MulVec(emitter.Emitted(ray, &hit)))
			}
		}

		if hit.Mat == nil {
			break
		}
		scatter, ok := hit.Mat.Scatter(ray, &hit, rng)
		if !ok {
			// Absorbed.
			break
		}

		if scatter.Specular {
			throughput = throughput.MulVec(scatter.Attenuation)
			countEmitted = true
		} else {
			direct := pi.directLightSurface(&hit, seq, rng)
			radiance = radiance.Add(throughput.MulVec(direct))

			cos := scatter.Dir.Dot(hit.ShadingNormal)
			if scatter.PDF <= 0 || cos <= 0 {
				break
			}
			// Importance sampling contract: weight by BSDF value
			// over the exact PDF the direction was drawn from.
			throughput = throughput.MulVec(scatter.Attenuation).Mul(cos / scatter.PDF)
			countEmitted = false
		}

		if !throughput.IsFinite() {
			pi.logger.Debugf("dropping path with non-finite throughput at bounce %d", bounce)
			return types.Vec3{}
		}

		ray = scene.Ray{Origin: hit.Point, Dir: scatter.Dir}

		if pi.rouletteTerminate(bounce, &throughput, rng) {
			break
		}
	}

	// Degenerate samples contribute zero instead of poisoning the
	// framebuffer.
	if !radiance.IsFinite() {
		pi.logger.Debug("dropping sample with non-finite radiance")
		return types.Vec3{}
	}
	return radiance
}

// traverseMedia resolves a chain of medium boundary hits. It returns
// the updated ray and surface hit. scattered means a volumetric
// scatter event redirected the ray; terminated means the walk ended
// the path, either escaping to the background (already accumulated)
// or giving up on overlapping region boundaries.
func (pi *PathIntegrator) traverseMedia(
	ray scene.Ray,
	hit scene.HitRecord,
	seq *sampler.Sequence,
	radiance *types.Vec3,
	throughput *types.Vec3,
) (scene.Ray, scene.HitRecord, bool, bool) {
	rng := seq.RNG()

	prevStart := float32(-1)
	for hit.Medium != nil {
		med := hit.Medium
		segStart := hit.T
		segEnd := hit.MediumExit

		// Overlapping regions re-report an entry at the same
		// distance; drop the path instead of walking in place.
		if segStart <= prevStart {
			pi.logger.Debugf("dropping path stuck on overlapping medium boundaries at t=%f", segStart)
			return ray, scene.HitRecord{}, false, true
		}
		prevStart = segStart

		// The nearest real surface may lie inside the medium
		// segment.
		surfHit, surfOK := pi.tree.IntersectExcept(ray, segStart, infDist, hit.Prim)
		if surfOK && surfHit.T < segEnd {
			segEnd = surfHit.T
		}

		if t, ok := med.SampleDistance(ray, segStart, segEnd, rng); ok {
			// Volumetric scatter: weight by the scattering albedo,
			// add direct light, and continue along a phase-sampled
			// direction.
			point := ray.At(t)
			*throughput = throughput.MulVec(med.Albedo)

			direct := pi.directLightVolume(point, ray.Dir, med, seq, rng)
			*radiance = radiance.Add(throughput.MulVec(direct))

			u1, u2 := rng.Float32Pair()
			ray = scene.Ray{Origin: point, Dir: med.Phase.Sample(ray.Dir, u1, u2)}
			return ray, scene.HitRecord{}, true, false
		}

		// Crossed the segment without interacting.
		if !surfOK {
			*radiance = radiance.Add(throughput.MulVec(pi.scene.Background))
			return ray, scene.HitRecord{}, false, true
		}
		hit = surfHit
	}

	return ray, hit, false, false
}

// directLightSurface estimates direct illumination at a surface hit by
// sampling one light.
func (pi *PathIntegrator) directLightSurface(hit *scene.HitRecord, seq *sampler.Sequence, rng *sampler.RNG) types.Vec3 {
	lights := pi.scene.Lights()
	if len(lights) == 0 {
		return types.Vec3{}
	}

	pick := int(rng.Float32() * float32(len(lights)))
	if pick >= len(lights) {
		pick = len(lights) - 1
	}

	ls, ok := lights[pick].SampleTowards(hit.Point, seq.Next2D())
	if !ok || ls.PDF <= 0 {
		return types.Vec3{}
	}

	cos := ls.Dir.Dot(hit.ShadingNormal)
	if cos <= 0 {
		return types.Vec3{}
	}

	f := hit.Mat.Eval(hit, ls.Dir)
	if f == (types.Vec3{}) {
		return types.Vec3{}
	}

	tr := pi.transmittance(scene.Ray{Origin: hit.Point, Dir: ls.Dir}, ls.Dist, rng)
	if tr == 0 {
		return types.Vec3{}
	}

	scale := cos * float32(len(lights)) / ls.PDF * tr
	return f.MulVec(ls.Emission).Mul(scale)
}

// directLightVolume estimates direct illumination at a volumetric
// scatter point; the phase function replaces the BSDF-cosine product.
func (pi *PathIntegrator) directLightVolume(point, wo types.Vec3, med *scene.Medium, seq *sampler.Sequence, rng *sampler.RNG) types.Vec3 {
	lights := pi.scene.Lights()
	if len(lights) == 0 {
		return types.Vec3{}
	}

	pick := int(rng.Float32() * float32(len(lights)))
	if pick >= len(lights) {
		pick = len(lights) - 1
	}

	ls, ok := lights[pick].SampleTowards(point, seq.Next2D())
	if !ok || ls.PDF <= 0 {
		return types.Vec3{}
	}

	tr := pi.transmittance(scene.Ray{Origin: point, Dir: ls.Dir}, ls.Dist, rng)
	if tr == 0 {
		return types.Vec3{}
	}

	phase := med.Phase.Eval(wo.Dot(ls.Dir))
	scale := phase * float32(len(lights)) / ls.PDF * tr
	return ls.Emission.Mul(scale)
}

// transmittance estimates the visibility between a point and a light
// at distance along ray. Surfaces occlude fully; participating media
// attenuate via binary delta tracking. Returns 0 or 1 for surfaces
// and media combined, keeping the shadow estimator unbiased.
func (pi *PathIntegrator) transmittance(ray scene.Ray, dist float32, rng *sampler.RNG) float32 {
	limit := dist - rayEpsilon

	if !pi.scene.HasMedia() {
		if pi.tree.IntersectAny(ray, rayEpsilon, limit) {
			return 0
		}
		return 1
	}

	tMin := rayEpsilon
	exclude := int32(-1)
	for {
		hit, ok := pi.tree.IntersectExcept(ray, tMin, limit, exclude)
		if !ok {
			return 1
		}
		if hit.Medium == nil {
			// Opaque surface in the way.
			return 0
		}

		segEnd := hit.MediumExit
		if segEnd > limit {
			segEnd = limit
		}
		if hit.Medium.Transmittance(ray, hit.T, segEnd, rng) == 0 {
			return 0
		}

		exclude = hit.Prim
		tMin = hit.T + rayEpsilon
	}
}

// rouletteTerminate applies Russian roulette once past the minimum
// bounce count. Survivors are reweighted by the inverse survival
// probability so the estimator stays unbiased.
func (pi *PathIntegrator) rouletteTerminate(bounce int, throughput *types.Vec3, rng *sampler.RNG) bool {
	if bounce < pi.minBouncesForRR {
		return false
	}

	survival := float64(throughput.Luminance())
	survival = math.Min(0.95, math.Max(0.05, survival))
	if float64(rng.Float32()) > survival {
		return true
	}
	*throughput = throughput.Mul(float32(1.0 / survival))
	return false
}
