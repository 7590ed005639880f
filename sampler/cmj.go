// Package sampler implements the correlated multi-jittered sample
// generator that drives anti-aliasing and light/phase sampling.
//
// All generators are pure functions of (seed, pixel id, sample index,
// dimension). Workers derive their sequences independently from those
// indices, so no RNG state is ever shared across goroutines and a
// render is reproducible for a fixed seed regardless of thread count.
package sampler

import (
	"math"

	"github.com/jasmouth/nimbus/types"
)

// permute maps i to its position in a pseudo-random permutation of
// [0, l) keyed by the pattern value p. Uses cycle-walking over a
// power-of-two domain so the result is a bijection for any l.
func permute(i, l, p uint32) uint32 {
	if l == 0 {
		return 0
	}

	w := l - 1
	w |= w >> 1
	w |= w >> 2
	w |= w >> 4
	w |= w >> 8
	w |= w >> 16

	for {
		i ^= p
		i *= 0xe170893d
		i ^= p >> 16
		i ^= (i & w) >> 4
		i ^= p >> 8
		i *= 0x0929eb3f
		i ^= p >> 23
		i ^= (i & w) >> 1
		i *= 1 | p>>27
		i *= 0x6935fa69
		i ^= (i & w) >> 11
		i *= 0x74dcb303
		i ^= (i & w) >> 2
		i *= 0x9e501cc3
		i ^= (i & w) >> 2
		i *= 0xc860a3df
		i &= w
		i ^= i >> 5
		if i < l {
			break
		}
	}
	return (i + p) % l
}

// randFloat hashes (i, p) into [0, 1).
func randFloat(i, p uint32) float32 {
	i ^= p
	i ^= i >> 17
	i ^= i >> 10
	i *= 0xb36534e5
	i ^= i >> 12
	i ^= i >> 21
	i *= 0x93fc4795
	i ^= 0xdf6e307f
	i ^= i >> 17
	i *= 1 | p>>18
	return float32(i) * (1.0 / 4294967808.0)
}

// gridDims factors a sample count into the m x n stratification grid.
// Square counts produce square grids; other counts produce the most
// square rectangle that covers them.
func gridDims(total uint32) (m, n uint32) {
	if total == 0 {
		return 1, 1
	}
	m = uint32(math.Sqrt(float64(total)))
	if m == 0 {
		m = 1
	}
	n = (total + m - 1) / m
	return m, n
}

// cmj produces stratified sample s of an m x n correlated
// multi-jittered pattern keyed by p. Each of the m x n grid cells
// receives exactly one sample; the sub-cell jitter is decorrelated
// per pattern.
func cmj(s, m, n, p uint32) types.Vec2 {
	sx := permute(s%m, m, p*0xa511e9b3)
	sy := permute(s/m, n, p*0x63d83595)
	jx := randFloat(s, p*0xa399d265)
	jy := randFloat(s, p*0x711ad6a5)

	return types.Vec2{
		(float32(s%m) + (float32(sy)+jx)/float32(n)) / float32(m),
		(float32(s/m) + (float32(sx)+jy)/float32(m)) / float32(n),
	}
}

// pattern derives the per-(pixel, dimension) pattern key from the
// render seed. Distinct pixels must map to distinct jitter patterns or
// adjacent pixels alias against each other.
func pattern(seed uint64, pixelID, dim uint32) uint32 {
	h := seed ^ (uint64(pixelID) << 32) ^ uint64(dim)
	h ^= h >> 33
	h *= 0xff51afd7ed558ccd
	h ^= h >> 33
	h *= 0xc4ceb9fe1a85ec53
	h ^= h >> 33
	return uint32(h)
}

// Sample2D returns stratified sample `index` out of `total` for the
// given pixel and dimension pair. The result lies in [0,1)^2 and is a
// pure function of its arguments.
func Sample2D(seed uint64, pixelID, index, dim, total uint32) types.Vec2 {
	m, n := gridDims(total)
	p := pattern(seed, pixelID, dim)

	// Shuffle sample order so dimension pairs decorrelate while the
	// stratification of the full set is preserved.
	s := permute(index%(m*n), m*n, p*0x51633e2d)
	return cmj(s, m, n, p)
}
