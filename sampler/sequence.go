package sampler

import "github.com/jasmouth/nimbus/types"

// RNG is a small splitmix64 generator used for sample dimensions that
// fall outside the stratified set (free-flight sampling, russian
// roulette, phase directions). Each path owns its own instance derived
// from (seed, pixel id, sample index); instances are never shared.
type RNG struct {
	state uint64
}

// NewRNG derives an independent generator for one camera sample.
func NewRNG(seed uint64, pixelID, sampleIndex uint32) *RNG {
	r := &RNG{state: seed ^ (uint64(pixelID)<<32 | uint64(sampleIndex))}
	// Burn one output so poorly mixed initial states decorrelate.
	r.Uint64()
	return r
}

// Uint64 returns the next raw generator output.
func (r *RNG) Uint64() uint64 {
	r.state += 0x9e3779b97f4a7c15
	z := r.state
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

// Float32 returns a uniform value in [0, 1).
func (r *RNG) Float32() float32 {
	return float32(r.Uint64()>>40) * (1.0 / (1 << 24))
}

// Float32Pair returns two independent uniform values in [0, 1).
func (r *RNG) Float32Pair() (float32, float32) {
	return r.Float32(), r.Float32()
}

// Sequence addresses every random dimension consumed while tracing a
// single camera sample. The first dimensions come from the correlated
// multi-jittered pattern; the tail (whose length is unbounded due to
// rejection loops) comes from the per-path RNG stream.
type Sequence struct {
	seed        uint64
	pixelID     uint32
	sampleIndex uint32
	total       uint32
	dim         uint32
	rng         *RNG
}

// NewSequence creates the sample sequence for camera sample
// sampleIndex of the given pixel.
func NewSequence(seed uint64, pixelID, sampleIndex, total uint32) *Sequence {
	return &Sequence{
		seed:        seed,
		pixelID:     pixelID,
		sampleIndex: sampleIndex,
		total:       total,
		rng:         NewRNG(seed, pixelID, sampleIndex),
	}
}

// Next2D returns the next stratified 2D dimension pair.
func (s *Sequence) Next2D() types.Vec2 {
	v := Sample2D(s.seed, s.pixelID, s.sampleIndex, s.dim, s.total)
	s.dim++
	return v
}

// Float32 returns the next unstratified dimension in [0, 1).
func (s *Sequence) Float32() float32 {
	return s.rng.Float32()
}

// RNG exposes the per-path generator for rejection-sampling loops.
func (s *Sequence) RNG() *RNG {
	return s.rng
}
