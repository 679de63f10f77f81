package gen

import (
	"math"
	"testing"
)

func TestSimplexDeterministic(t *testing.T) {
	a := NewSimplex(12345)
	b := NewSimplex(12345)

	for i := 0; i < 100; i++ {
		x := float64(i) * 0.15
		y := float64(i) * 0.25
		z := float64(i) * 0.35
		if a.At2(x, y) != b.At2(x, y) {
			t.Fatalf("At2 not deterministic at (%f, %f)", x, y)
		}
		if a.At3(x, y, z) != b.At3(x, y, z) {
			t.Fatalf("At3 not deterministic at (%f, %f, %f)", x, y, z)
		}
	}
}

func TestSimplexRange(t *testing.T) {
	n := NewSimplex(42)

	for i := 0; i < 10000; i++ {
		x := float64(i)*0.37 - 500
		y := float64(i)*0.53 - 500
		z := float64(i)*0.71 - 500
		if v := n.At2(x, y); v < -1 || v > 1 {
			t.Fatalf("At2(%f, %f) = %f, out of [-1,1]", x, y, v)
		}
		if v := n.At3(x, y, z); v < -1 || v > 1 {
			t.Fatalf("At3(%f, %f, %f) = %f, out of [-1,1]", x, y, z, v)
		}
	}
}

func TestSimplexSeedsDiffer(t *testing.T) {
	a := NewSimplex(1)
	b := NewSimplex(2)

	for i := 0; i < 100; i++ {
		x := float64(i) * 0.1
		y := float64(i) * 0.2
		if a.At2(x, y) != b.At2(x, y) {
			return
		}
	}
	t.Error("different seeds should produce different noise")
}

func TestOctaves2Smooth(t *testing.T) {
	n := NewSimplex(456)

	prev := n.Octaves2(0, 0, 4, 0.5)
	for i := 1; i < 1000; i++ {
		x := float64(i) * 0.01
		curr := n.Octaves2(x, 0, 4, 0.5)
		if curr < -1 || curr > 1 {
			t.Fatalf("Octaves2 = %f, out of [-1,1]", curr)
		}
		if diff := math.Abs(curr - prev); diff > 0.1 {
			t.Fatalf("noise changed too rapidly at x=%f: diff=%f", x, diff)
		}
		prev = curr
	}
}
