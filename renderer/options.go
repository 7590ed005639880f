package renderer

import "fmt"

type Options struct {
	// Frame dims.
	FrameW uint32
	FrameH uint32

	// Number of samples.
	SamplesPerPixel uint32

	// Number of indirect bounces.
	NumBounces uint32

	// Min bounces before applying russian roulette for path
	// elimination.
	MinBouncesForRR uint32

	// Exposure for tonemapping.
	Exposure float32

	// Scheduler tuning. Zero values select the defaults.
	TileSize   uint32
	NumWorkers int

	// Base seed for all sample sequences.
	Seed uint64
}

// defaults fills in unset option values and rejects invalid ones.
func (o *Options) defaults() error {
	if o.FrameW == 0 || o.FrameH == 0 {
		return fmt.Errorf("%w: frame dimensions must be non-zero", ErrInvalidOption)
	}
	if o.SamplesPerPixel == 0 {
		o.SamplesPerPixel = 16
	}
	if o.NumBounces == 0 {
		o.NumBounces = 5
	}
	if o.MinBouncesForRR == 0 || o.MinBouncesForRR > o.NumBounces {
		o.MinBouncesForRR = o.NumBounces
	}
	if o.Exposure == 0 {
		o.Exposure = 1.2
	}
	return nil
}
