package dsp

import "math"

// CompressorParams describes a feed-forward compressor.  Threshold and Knee
// are in dB.
type CompressorParams struct {
	Threshold float64
	Ratio     float64
	Knee      float64
	Attack    float64
	Release   float64
}

// DefaultCompressor is a gentle bus compressor.
var DefaultCompressor = CompressorParams{Threshold: -12, Ratio: 4, Knee: 6, Attack: .005, Release: .1}

type Compressor struct {
	Params    Params
	settings  CompressorParams
	env       Follower
	reduction float64
}

func NewCompressor(c CompressorParams) *Compressor {
	return &Compressor{settings: c}
}

func (c *Compressor) InitAudio(p Params) {
	c.Params = p
	c.env.Params = p
	c.Set(c.settings)
}

func (c *Compressor) Set(s CompressorParams) {
	if s.Ratio < 1 {
		s.Ratio = 1
	}
	if s.Attack <= 0 {
		s.Attack = DefaultCompressor.Attack
	}
	if s.Release <= 0 {
		s.Release = DefaultCompressor.Release
	}
	c.settings = s
	c.env.SetTimes(s.Attack, s.Release)
}

func (c *Compressor) Settings() CompressorParams { return c.settings }

// gain computes the static curve in dB for an input level in dB.
func (c *Compressor) gain(level float64) float64 {
	s := c.settings
	over := level - s.Threshold
	switch {
	case 2*over < -s.Knee:
		return 0
	case s.Knee > 0 && 2*math.Abs(over) <= s.Knee:
		o := over + s.Knee/2
		return (1/s.Ratio - 1) * o * o / (2 * s.Knee)
	}
	return (1/s.Ratio - 1) * over
}

// Gain returns the linear gain to apply for a detector input.
func (c *Compressor) Gain(detector float64) float64 {
	level := 20 * math.Log10(math.Abs(detector)+1e-9)
	c.reduction = c.env.Follow(-c.gain(level))
	return math.Pow(10, -c.reduction/20)
}

func (c *Compressor) Filter(x float64) float64 {
	return x * c.Gain(x)
}

func (c *Compressor) FilterStereo(l, r float64) (float64, float64) {
	g := c.Gain(math.Max(math.Abs(l), math.Abs(r)))
	return l * g, r * g
}

// Reduction is the current gain reduction in dB.
func (c *Compressor) Reduction() float64 { return c.reduction }
