// Package tracer contains the path tracing integrator and the tile
// scheduler that fans pixel work out to a pool of render workers.
package tracer

import (
	"time"

	"github.com/jasmouth/nimbus/sampler"
	"github.com/jasmouth/nimbus/scene"
	"github.com/jasmouth/nimbus/types"
)

// Integrator estimates the radiance arriving along a camera ray.
// Implementations must be safe for concurrent use: all per-sample
// state lives in the sample sequence.
type Integrator interface {
	Li(ray scene.Ray, seq *sampler.Sequence) types.Vec3
}

// Tile is a rectangular block of pixels processed by a single worker.
// Tiles are disjoint, so the owning worker writes its pixels without
// synchronization.
type Tile struct {
	Index int
	X, Y  uint32
	W, H  uint32
}

// SplitTiles partitions the frame into tiles of at most tileSize on a
// side, in row-major order.
func SplitTiles(frameW, frameH, tileSize uint32) []Tile {
	if tileSize == 0 {
		tileSize = 32
	}

	var tiles []Tile
	index := 0
	for y := uint32(0); y < frameH; y += tileSize {
		for x := uint32(0); x < frameW; x += tileSize {
			tile := Tile{Index: index, X: x, Y: y, W: tileSize, H: tileSize}
			if x+tile.W > frameW {
				tile.W = frameW - x
			}
			if y+tile.H > frameH {
				tile.H = frameH - y
			}
			tiles = append(tiles, tile)
			index++
		}
	}
	return tiles
}

// WorkerStat captures the work performed by a single render worker.
type WorkerStat struct {
	// Worker index in the pool.
	ID int

	// Number of tiles the worker pulled off the queue.
	Tiles int

	// Total camera samples traced.
	Samples uint64

	// Wall time the worker spent rendering.
	RenderTime time.Duration
}

// FrameStats aggregates scheduler statistics for a full frame.
type FrameStats struct {
	// Individual worker stats.
	Workers []WorkerStat

	// Indices of tiles that failed after a retry and were left
	// unrendered.
	FailedTiles []int

	// Total render time for the entire frame.
	RenderTime time.Duration
}
