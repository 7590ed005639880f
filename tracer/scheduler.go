package tracer

import (
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/jasmouth/nimbus/log"
	"github.com/jasmouth/nimbus/sampler"
	"github.com/jasmouth/nimbus/scene"
	"github.com/jasmouth/nimbus/types"
)

const defaultTileSize uint32 = 32

// Config controls a frame render.
type Config struct {
	FrameWidth  uint32
	FrameHeight uint32

	// Monte Carlo samples gathered per pixel.
	SamplesPerPixel uint32

	// Edge length for square work tiles. Defaults to 32.
	TileSize uint32

	// Worker goroutine count. Defaults to runtime.NumCPU().
	NumWorkers int

	// Base seed for the sampler. The same seed always produces the
	// same frame regardless of worker count.
	Seed uint64
}

// Scheduler renders frames by splitting them into tiles and fanning
// the tiles out to a pool of worker goroutines.
type Scheduler struct {
	integrator Integrator
	camera     *scene.Camera
	logger     log.Logger
}

// NewScheduler creates a scheduler that shades rays with the supplied
// integrator and generates primary rays from camera.
func NewScheduler(integrator Integrator, camera *scene.Camera) *Scheduler {
	return &Scheduler{
		integrator: integrator,
		camera:     camera,
		logger:     log.New("scheduler"),
	}
}

// Render traces a full frame into a fresh framebuffer. Tiles are
// handed out dynamically but every pixel is accumulated by exactly
// one worker in sample-index order, so the output is reproducible for
// a fixed seed no matter how many workers run.
func (s *Scheduler) Render(cfg Config) (*Framebuffer, FrameStats) {
	if cfg.TileSize == 0 {
		cfg.TileSize = defaultTileSize
	}
	if cfg.NumWorkers <= 0 {
		cfg.NumWorkers = runtime.NumCPU()
	}

	fb := NewFramebuffer(cfg.FrameWidth, cfg.FrameHeight)
	tiles := SplitTiles(cfg.FrameWidth, cfg.FrameHeight, cfg.TileSize)

	s.logger.Noticef("rendering %dx%d frame: %d tiles, %d samples/pixel, %d workers",
		cfg.FrameWidth, cfg.FrameHeight, len(tiles), cfg.SamplesPerPixel, cfg.NumWorkers)

	start := time.Now()

	tileChan := make(chan Tile, len(tiles))
	for _, tile := range tiles {
		tileChan <- tile
	}
	close(tileChan)

	var (
		wg          sync.WaitGroup
		statsMu     sync.Mutex
		workerStats = make([]WorkerStat, cfg.NumWorkers)
		failedTiles []int
	)

	for id := 0; id < cfg.NumWorkers; id++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			workerStart := time.Now()
			stat := WorkerStat{ID: workerID}

			for tile := range tileChan {
				if err := s.renderTileSafe(cfg, tile, fb); err != nil {
					s.logger.Warningf("worker %d: tile %d failed, retrying: %v", workerID, tile.Index, err)
					if err = s.renderTileSafe(cfg, tile, fb); err != nil {
						s.logger.Errorf("worker %d: tile %d failed twice, skipping: %v", workerID, tile.Index, err)
						statsMu.Lock()
						failedTiles = append(failedTiles, tile.Index)
						statsMu.Unlock()
						continue
					}
				}
				stat.Tiles++
				stat.Samples += uint64(tile.W) * uint64(tile.H) * uint64(cfg.SamplesPerPixel)
			}

			stat.RenderTime = time.Since(workerStart)
			statsMu.Lock()
			workerStats[workerID] = stat
			statsMu.Unlock()
		}(id)
	}
	wg.Wait()

	stats := FrameStats{
		Workers:     workerStats,
		FailedTiles: failedTiles,
		RenderTime:  time.Since(start),
	}
	if len(failedTiles) != 0 {
		s.logger.Errorf("frame finished with %d failed tile(s)", len(failedTiles))
	}
	return fb, stats
}

// renderTileSafe shades a single tile, converting integrator panics
// into errors so one bad tile cannot take down the whole frame.
func (s *Scheduler) renderTileSafe(cfg Config, tile Tile, fb *Framebuffer) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while rendering tile %d: %v", tile.Index, r)
		}
	}()
	s.renderTile(cfg, tile, fb)
	return nil
}

func (s *Scheduler) renderTile(cfg Config, tile Tile, fb *Framebuffer) {
	invW := 1.0 / float32(cfg.FrameWidth)
	invH := 1.0 / float32(cfg.FrameHeight)

	// Samples are summed into a tile-local buffer and merged into the
	// framebuffer only once the whole tile succeeds; a panicked
	// attempt must not leave partial samples behind for the retry to
	// double-count.
	sums := make([]types.Vec3, tile.W*tile.H)

	for y := tile.Y; y < tile.Y+tile.H; y++ {
		for x := tile.X; x < tile.X+tile.W; x++ {
			pixelID := y*cfg.FrameWidth + x
			var sum types.Vec3
			for sample := uint32(0); sample < cfg.SamplesPerPixel; sample++ {
				seq := sampler.NewSequence(cfg.Seed, pixelID, sample, cfg.SamplesPerPixel)
				jitter := seq.Next2D()

				u := (float32(x) + jitter[0]) * invW
				v := (float32(y) + jitter[1]) * invH
				ray := s.camera.GenerateRay(u, v)

				sum = sum.Add(s.integrator.Li(ray, seq))
			}
			sums[(y-tile.Y)*tile.W+(x-tile.X)] = sum
		}
	}

	for y := tile.Y; y < tile.Y+tile.H; y++ {
		for x := tile.X; x < tile.X+tile.W; x++ {
			fb.AccumulateN(x, y, sums[(y-tile.Y)*tile.W+(x-tile.X)], cfg.SamplesPerPixel)
		}
	}
}
