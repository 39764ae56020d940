package dsp

import "math"

// Crush quantizes x to the given bit depth.  Depths below 1 are clamped.
func Crush(x, bits float64) float64 {
	levels := math.Exp2(math.Max(1, bits) - 1)
	return math.Round(x*levels) / levels
}

// Coarse is a sample-and-hold rate reducer.
type Coarse struct {
	N    int
	i    int
	held float64
}

func (c *Coarse) Filter(x float64) float64 {
	if c.N <= 1 {
		return x
	}
	if c.i == 0 {
		c.held = x
	}
	c.i = (c.i + 1) % c.N
	return c.held
}

// SoftClip is a rational approximation of tanh, exact at ±3 and bounded to
// [-1, 1] everywhere.
func SoftClip(x float64) float64 {
	switch {
	case x <= -3:
		return -1
	case x >= 3:
		return 1
	}
	x2 := x * x
	return x * (27 + x2) / (27 + 9*x2)
}

// Distort drives x into the soft clipper.  amount 0 is a no-op.
func Distort(x, amount float64) float64 {
	if amount <= 0 {
		return x
	}
	drive := math.Exp2(amount)
	return SoftClip(x*drive) / SoftClip(drive)
}
