package gen

// Simplex is seeded simplex noise. Samples fall in [-1, 1].
type Simplex struct {
	perm [512]int
}

var gradients = [12][3]float64{
	{1, 1, 0}, {-1, 1, 0}, {1, -1, 0}, {-1, -1, 0},
	{1, 0, 1}, {-1, 0, 1}, {1, 0, -1}, {-1, 0, -1},
	{0, 1, 1}, {0, -1, 1}, {0, 1, -1}, {0, -1, -1},
}

// NewSimplex builds the permutation table for seed.
func NewSimplex(seed int64) *Simplex {
	var p [256]int
	for i := range p {
		p[i] = i
	}

	// Fisher-Yates driven by an LCG so the table only depends on seed.
	s := seed
	for i := 255; i > 0; i-- {
		s = s*6364136223846793005 + 1442695040888963407
		j := int((s>>33)&0x7FFFFFFF) % (i + 1)
		p[i], p[j] = p[j], p[i]
	}

	n := &Simplex{}
	for i := range n.perm {
		n.perm[i] = p[i&255]
	}
	return n
}

// At2 samples 2D noise.
func (n *Simplex) At2(x, y float64) float64 {
	const (
		f2 = 0.36602540378443864676 // (sqrt(3)-1)/2
		g2 = 0.21132486540518711775 // (3-sqrt(3))/6
	)

	s := (x + y) * f2
	i, j := floor(x+s), floor(y+s)
	t := float64(i+j) * g2
	x0 := x - (float64(i) - t)
	y0 := y - (float64(j) - t)

	i1, j1 := 0, 1
	if x0 > y0 {
		i1, j1 = 1, 0
	}

	corners := [3][2]float64{
		{x0, y0},
		{x0 - float64(i1) + g2, y0 - float64(j1) + g2},
		{x0 - 1 + 2*g2, y0 - 1 + 2*g2},
	}
	ii, jj := i&255, j&255
	grads := [3]int{
		n.perm[ii+n.perm[jj]] % 12,
		n.perm[ii+i1+n.perm[jj+j1]] % 12,
		n.perm[ii+1+n.perm[jj+1]] % 12,
	}

	var sum float64
	for c, pt := range corners {
		t := 0.5 - pt[0]*pt[0] - pt[1]*pt[1]
		if t < 0 {
			continue
		}
		t *= t
		g := gradients[grads[c]]
		sum += t * t * (g[0]*pt[0] + g[1]*pt[1])
	}
	return 70 * sum
}

// At3 samples 3D noise.
func (n *Simplex) At3(x, y, z float64) float64 {
	const (
		f3 = 1.0 / 3.0
		g3 = 1.0 / 6.0
	)

	s := (x + y + z) * f3
	i, j, k := floor(x+s), floor(y+s), floor(z+s)
	t := float64(i+j+k) * g3
	x0 := x - (float64(i) - t)
	y0 := y - (float64(j) - t)
	z0 := z - (float64(k) - t)

	var o1, o2 [3]int
	switch {
	case x0 >= y0 && y0 >= z0:
		o1, o2 = [3]int{1, 0, 0}, [3]int{1, 1, 0}
	case x0 >= y0 && x0 >= z0:
		o1, o2 = [3]int{1, 0, 0}, [3]int{1, 0, 1}
	case x0 >= y0:
		o1, o2 = [3]int{0, 0, 1}, [3]int{1, 0, 1}
	case y0 < z0:
		o1, o2 = [3]int{0, 0, 1}, [3]int{0, 1, 1}
	case x0 < z0:
		o1, o2 = [3]int{0, 1, 0}, [3]int{0, 1, 1}
	default:
		o1, o2 = [3]int{0, 1, 0}, [3]int{1, 1, 0}
	}

	corners := [4][3]float64{
		{x0, y0, z0},
		{x0 - float64(o1[0]) + g3, y0 - float64(o1[1]) + g3, z0 - float64(o1[2]) + g3},
		{x0 - float64(o2[0]) + 2*g3, y0 - float64(o2[1]) + 2*g3, z0 - float64(o2[2]) + 2*g3},
		{x0 - 1 + 3*g3, y0 - 1 + 3*g3, z0 - 1 + 3*g3},
	}
	ii, jj, kk := i&255, j&255, k&255
	grads := [4]int{
		n.perm[ii+n.perm[jj+n.perm[kk]]] % 12,
		n.perm[ii+o1[0]+n.perm[jj+o1[1]+n.perm[kk+o1[2]]]] % 12,
		n.perm[ii+o2[0]+n.perm[jj+o2[1]+n.perm[kk+o2[2]]]] % 12,
		n.perm[ii+1+n.perm[jj+1+n.perm[kk+1]]] % 12,
	}

	var sum float64
	for c, pt := range corners {
		t := 0.6 - pt[0]*pt[0] - pt[1]*pt[1] - pt[2]*pt[2]
		if t < 0 {
			continue
		}
		t *= t
		g := gradients[grads[c]]
		sum += t * t * (g[0]*pt[0] + g[1]*pt[1] + g[2]*pt[2])
	}
	return 32 * sum
}

// Octaves2 layers octaves of At2, halving amplitude by persistence and
// doubling frequency each step. The result is normalised back into [-1, 1].
func (n *Simplex) Octaves2(x, y float64, octaves int, persistence float64) float64 {
	var total, norm float64
	freq, amp := 1.0, 1.0
	for range octaves {
		total += n.At2(x*freq, y*freq) * amp
		norm += amp
		amp *= persistence
		freq *= 2
	}
	return total / norm
}

func floor(x float64) int {
	xi := int(x)
	if x < float64(xi) {
		return xi - 1
	}
	return xi
}
