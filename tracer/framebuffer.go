package tracer

import (
	"image"
	"image/color"
	"math"

	"github.com/jasmouth/nimbus/types"
)

// Framebuffer accumulates per-pixel radiance as a running sum plus a
// sample count, so accumulation is associative and commutative: the
// image depends only on which samples landed in a pixel, never on
// their order. The scheduler partitions pixels by tile, so each cell
// is only ever written by one worker and no locking is required.
type Framebuffer struct {
	Width  uint32
	Height uint32

	sum   []types.Vec3
	count []uint32
}

// NewFramebuffer allocates a zeroed framebuffer.
func NewFramebuffer(width, height uint32) *Framebuffer {
	return &Framebuffer{
		Width:  width,
		Height: height,
		sum:    make([]types.Vec3, width*height),
		count:  make([]uint32, width*height),
	}
}

// Accumulate adds one radiance sample to the pixel.
func (fb *Framebuffer) Accumulate(x, y uint32, radiance types.Vec3) {
	idx := y*fb.Width + x
	fb.sum[idx] = fb.sum[idx].Add(radiance)
	fb.count[idx]++
}

// AccumulateN adds a pre-summed batch of n samples to the pixel. Used
// by the scheduler to merge a completed tile in one step so aborted
// tile attempts leave no partial samples behind.
func (fb *Framebuffer) AccumulateN(x, y uint32, sum types.Vec3, n uint32) {
	idx := y*fb.Width + x
	fb.sum[idx] = fb.sum[idx].Add(sum)
	fb.count[idx] += n
}

// Mean returns the running mean radiance of the pixel.
func (fb *Framebuffer) Mean(x, y uint32) types.Vec3 {
	idx := y*fb.Width + x
	if fb.count[idx] == 0 {
		return types.Vec3{}
	}
	return fb.sum[idx].Mul(1.0 / float32(fb.count[idx]))
}

// SampleCount returns the number of samples accumulated in the pixel.
func (fb *Framebuffer) SampleCount(x, y uint32) uint32 {
	return fb.count[y*fb.Width+x]
}

// ToRGBA tone-maps the accumulated radiance into an LDR image using
// simple exponential exposure compression and gamma 2.2.
func (fb *Framebuffer) ToRGBA(exposure float32) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, int(fb.Width), int(fb.Height)))
	for y := uint32(0); y < fb.Height; y++ {
		for x := uint32(0); x < fb.Width; x++ {
			mean := fb.Mean(x, y)
			img.SetRGBA(int(x), int(y), color.RGBA{
				R: toneMapChannel(mean[0], exposure),
				G: toneMapChannel(mean[1], exposure),
				B: toneMapChannel(mean[2], exposure),
				A: 255,
			})
		}
	}
	return img
}

func toneMapChannel(v, exposure float32) uint8 {
	if v < 0 || math.IsNaN(float64(v)) {
		v = 0
	}
	mapped := 1.0 - math.Exp(-float64(v)*float64(exposure))
	mapped = math.Pow(mapped, 1.0/2.2)
	return uint8(math.Min(255, mapped*255.0+0.5))
}
