package sampler

import "testing"

func TestSample2DStratification(t *testing.T) {
	type spec struct {
		total uint32
		m     uint32
		n     uint32
	}
	specs := []spec{
		{16, 4, 4},
		{64, 8, 8},
		{12, 3, 4},
	}

	for index, s := range specs {
		m, n := gridDims(s.total)
		if m != s.m || n != s.n {
			t.Fatalf("[spec %d] expected grid dims %dx%d; got %dx%d", index, s.m, s.n, m, n)
		}

		// Every grid cell must contain exactly one sample.
		cells := make([]int, m*n)
		for i := uint32(0); i < m*n; i++ {
			v := Sample2D(42, 7, i, 0, s.total)
			if v[0] < 0 || v[0] >= 1 || v[1] < 0 || v[1] >= 1 {
				t.Fatalf("[spec %d] sample %d outside [0,1): %v", index, i, v)
			}
			cx := uint32(v[0] * float32(m))
			cy := uint32(v[1] * float32(n))
			cells[cy*m+cx]++
		}
		for cell, count := range cells {
			if count != 1 {
				t.Fatalf("[spec %d] expected cell %d to contain exactly 1 sample; got %d", index, cell, count)
			}
		}
	}
}

func TestSample2DPixelDecorrelation(t *testing.T) {
	const total = 16

	// Two distinct pixel ids must not share a jitter pattern for the
	// same sample index.
	identical := 0
	for i := uint32(0); i < total; i++ {
		a := Sample2D(42, 0, i, 0, total)
		b := Sample2D(42, 1, i, 0, total)
		if a == b {
			identical++
		}
	}
	if identical == total {
		t.Fatal("expected distinct pixel ids to produce distinct sample patterns")
	}
}

func TestSample2DDeterminism(t *testing.T) {
	for i := uint32(0); i < 32; i++ {
		a := Sample2D(1234, 99, i, 3, 32)
		b := Sample2D(1234, 99, i, 3, 32)
		if a != b {
			t.Fatalf("expected sample %d to be deterministic; got %v then %v", i, a, b)
		}
	}
}

func TestSample2DSeedSensitivity(t *testing.T) {
	differ := false
	for i := uint32(0); i < 16; i++ {
		if Sample2D(1, 5, i, 0, 16) != Sample2D(2, 5, i, 0, 16) {
			differ = true
			break
		}
	}
	if !differ {
		t.Fatal("expected different seeds to produce different patterns")
	}
}

func TestPermuteIsBijection(t *testing.T) {
	for _, l := range []uint32{1, 7, 16, 100} {
		seen := make([]bool, l)
		for i := uint32(0); i < l; i++ {
			j := permute(i, l, 0xcafe)
			if j >= l {
				t.Fatalf("permute(%d, %d) out of range: %d", i, l, j)
			}
			if seen[j] {
				t.Fatalf("permute over [0,%d) is not a bijection: %d hit twice", l, j)
			}
			seen[j] = true
		}
	}
}

func TestRNGStreamIndependence(t *testing.T) {
	r1 := NewRNG(42, 0, 0)
	r2 := NewRNG(42, 0, 1)

	matches := 0
	for i := 0; i < 64; i++ {
		if r1.Uint64() == r2.Uint64() {
			matches++
		}
	}
	if matches != 0 {
		t.Fatalf("expected adjacent sample streams to diverge; got %d matching outputs", matches)
	}
}

func TestRNGFloat32Range(t *testing.T) {
	r := NewRNG(7, 3, 1)
	for i := 0; i < 1000; i++ {
		f := r.Float32()
		if f < 0 || f >= 1 {
			t.Fatalf("expected Float32 in [0,1); got %f", f)
		}
	}
}
