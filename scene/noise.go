package scene

import (
	"math"

	"github.com/jasmouth/nimbus/types"
)

const permTableSize = 256

// Perlin is a gradient noise generator. Generators are seeded
// explicitly so density fields and textures built from them are
// reproducible across renders.
type Perlin struct {
	randVec [permTableSize]types.Vec3
	permX   [permTableSize]int32
	permY   [permTableSize]int32
	permZ   [permTableSize]int32
}

// NewPerlin creates a noise generator from the given seed.
func NewPerlin(seed uint64) *Perlin {
	state := seed
	next := func() float32 {
		// splitmix64 step
		state += 0x9e3779b97f4a7c15
		z := state
		z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
		z = (z ^ (z >> 27)) * 0x94d049bb133111eb
		z ^= z >> 31
		return float32(z>>40) * (1.0 / (1 << 24))
	}

	p := &Perlin{}
	for i := 0; i < permTableSize; i++ {
		p.randVec[i] = types.XYZ(
			-1.0+2.0*next(),
			-1.0+2.0*next(),
			-1.0+2.0*next(),
		).Normalize()
	}
	genPerm(&p.permX, next)
	genPerm(&p.permY, next)
	genPerm(&p.permZ, next)
	return p
}

func genPerm(perm *[permTableSize]int32, next func() float32) {
	for i := int32(0); i < permTableSize; i++ {
		perm[i] = i
	}
	for i := permTableSize - 1; i > 0; i-- {
		target := int(next() * float32(i+1))
		if target > i {
			target = i
		}
		perm[i], perm[target] = perm[target], perm[i]
	}
}

// Noise returns the gradient noise value at p, in [-1, 1].
func (pn *Perlin) Noise(p types.Vec3) float32 {
	xf := math.Floor(float64(p[0]))
	yf := math.Floor(float64(p[1]))
	zf := math.Floor(float64(p[2]))

	u := p[0] - float32(xf)
	v := p[1] - float32(yf)
	w := p[2] - float32(zf)
	i, j, k := int(xf), int(yf), int(zf)

	var c [2][2][2]types.Vec3
	for di := 0; di < 2; di++ {
		for dj := 0; dj < 2; dj++ {
			for dk := 0; dk < 2; dk++ {
				scrambled := pn.permX[(i+di)&(permTableSize-1)] ^
					pn.permY[(j+dj)&(permTableSize-1)] ^
					pn.permZ[(k+dk)&(permTableSize-1)]
				c[di][dj][dk] = pn.randVec[scrambled]
			}
		}
	}
	return perlinInterpolate(c, u, v, w)
}

// Turbulence sums octaves of noise magnitude, doubling the frequency
// and halving the weight per octave. The result lies in [0, ~1].
func (pn *Perlin) Turbulence(p types.Vec3, octaves int, scale float32) float32 {
	var acc float32
	weight := float32(1.0)
	sample := p.Mul(scale)
	for o := 0; o < octaves; o++ {
		acc += weight * pn.Noise(sample)
		weight *= 0.5
		sample = sample.Mul(2)
	}
	return float32(math.Abs(float64(acc)))
}

// Trilinear hermite interpolation over the gradient cell.
func perlinInterpolate(c [2][2][2]types.Vec3, u, v, w float32) float32 {
	uu := u * u * (3 - 2*u)
	vv := v * v * (3 - 2*v)
	ww := w * w * (3 - 2*w)

	var acc float32
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			for k := 0; k < 2; k++ {
				fi, fj, fk := float32(i), float32(j), float32(k)
				weight := types.XYZ(u-fi, v-fj, w-fk)
				acc += (fi*uu + (1-fi)*(1-uu)) *
					(fj*vv + (1-fj)*(1-vv)) *
					(fk*ww + (1-fk)*(1-ww)) *
					c[i][j][k].Dot(weight)
			}
		}
	}
	return acc
}
