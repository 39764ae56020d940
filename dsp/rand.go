package dsp

import "math/rand/v2"

// Noise is a seeded noise source; equal seeds give equal output.
type Noise struct {
	pcg        rand.PCG
	b0, b1, b2 float64
	brown      float64
}

func NewNoise(seed uint64) *Noise {
	n := &Noise{}
	n.Seed(seed)
	return n
}

func (n *Noise) Seed(seed uint64) {
	n.pcg.Seed(seed, seed^0x9e3779b97f4a7c15)
	n.b0, n.b1, n.b2, n.brown = 0, 0, 0, 0
}

// Uniform returns a value in [0, 1).
func (n *Noise) Uniform() float64 {
	return float64(n.pcg.Uint64()>>11) / (1 << 53)
}

func (n *Noise) White() float64 {
	return 2*n.Uniform() - 1
}

// Pink approximates a -3dB/octave spectrum with three leaky integrators.
func (n *Noise) Pink() float64 {
	w := n.White()
	n.b0 = .99765*n.b0 + w*.0990460
	n.b1 = .96300*n.b1 + w*.2965164
	n.b2 = .57000*n.b2 + w*1.0526913
	return (n.b0 + n.b1 + n.b2 + w*.1848) * .25
}

func (n *Noise) Brown() float64 {
	n.brown = (n.brown + .02*n.White()) / 1.02
	return n.brown * 3.5
}

// Interp3 is 4-point Hermite interpolation at fraction t between x1 and x2.
func Interp3(t, x0, x1, x2, x3 float64) float64 {
	c1 := .5 * (x2 - x0)
	c2 := x0 - 2.5*x1 + 2*x2 - .5*x3
	c3 := .5*(x3-x0) + 1.5*(x1-x2)
	return ((c3*t+c2)*t+c1)*t + x1
}
