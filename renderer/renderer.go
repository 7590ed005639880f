// Package renderer wires a scene, its acceleration structure and the
// tile scheduler into a single frame rendering pipeline.
package renderer

import (
	"time"

	"github.com/jasmouth/nimbus/bvh"
	"github.com/jasmouth/nimbus/log"
	"github.com/jasmouth/nimbus/scene"
	"github.com/jasmouth/nimbus/tracer"
)

// Min primitives per BVH leaf.
const minLeafItems = 2

type Renderer interface {
	// Render frame.
	Render() (*tracer.Framebuffer, error)

	// Get render statistics.
	Stats() tracer.FrameStats
}

type defaultRenderer struct {
	options Options
	scene   *scene.Scene

	scheduler *tracer.Scheduler
	stats     tracer.FrameStats

	logger log.Logger
}

// NewDefault creates a CPU renderer for sc. The scene is frozen, its
// projection matched to the frame aspect ratio and its primitives
// indexed before the first frame is traced.
func NewDefault(sc *scene.Scene, opts Options) (Renderer, error) {
	if sc == nil {
		return nil, ErrSceneNotDefined
	}
	if err := opts.defaults(); err != nil {
		return nil, err
	}
	if sc.Camera == nil {
		return nil, ErrCameraNotDefined
	}
	if err := sc.Freeze(); err != nil {
		return nil, err
	}
	sc.Camera.SetupProjection(float32(opts.FrameW) / float32(opts.FrameH))

	logger := log.New("renderer")
	start := time.Now()
	tree := bvh.Build(sc.Primitives(), minLeafItems)
	logger.Noticef("indexed %d primitives in %d ms", tree.PrimCount(), time.Since(start).Nanoseconds()/1e6)

	integrator := tracer.NewPathIntegrator(sc, tree, int(opts.NumBounces), int(opts.MinBouncesForRR))

	return &defaultRenderer{
		options:   opts,
		scene:     sc,
		scheduler: tracer.NewScheduler(integrator, sc.Camera),
		logger:    logger,
	}, nil
}

func (r *defaultRenderer) Render() (*tracer.Framebuffer, error) {
	fb, stats := r.scheduler.Render(tracer.Config{
		FrameWidth:      r.options.FrameW,
		FrameHeight:     r.options.FrameH,
		SamplesPerPixel: r.options.SamplesPerPixel,
		TileSize:        r.options.TileSize,
		NumWorkers:      r.options.NumWorkers,
		Seed:            r.options.Seed,
	})
	r.stats = stats

	if len(stats.FailedTiles) != 0 {
		return fb, ErrTilesFailed
	}
	return fb, nil
}

func (r *defaultRenderer) Stats() tracer.FrameStats {
	return r.stats
}
