package dsp

import (
	"math"
	"strings"
)

type Shape int

const (
	Sine Shape = iota
	Sawtooth
	Square
	Triangle
	Supersaw
	WhiteNoise
	PinkNoise
	BrownNoise
)

var shapeNames = map[string]Shape{
	"sine":     Sine,
	"sin":      Sine,
	"sawtooth": Sawtooth,
	"saw":      Sawtooth,
	"square":   Square,
	"triangle": Triangle,
	"tri":      Triangle,
	"supersaw": Supersaw,
	"white":    WhiteNoise,
	"pink":     PinkNoise,
	"brown":    BrownNoise,
}

// ParseShape reports whether name is an oscillator rather than a sample.
func ParseShape(name string) (Shape, bool) {
	s, ok := shapeNames[strings.ToLower(name)]
	return s, ok
}

const supersawVoices = 7

var supersawDetune = [supersawVoices]float64{-.11, -.064, -.02, 0, .02, .064, .11}

// Osc is a phase-accumulating oscillator.  The caller supplies the phase
// increment (frequency / sample rate) on every sample so that pitch
// modulation happens at the increment level.
type Osc struct {
	Shape  Shape
	phase  float64
	phases [supersawVoices]float64
	noise  Noise
}

// NewOsc seeds the noise shapes and spreads the supersaw phases.
func NewOsc(shape Shape, seed uint64) *Osc {
	o := &Osc{Shape: shape}
	o.noise.Seed(seed)
	for i := range o.phases {
		o.phases[i] = o.noise.Uniform()
	}
	return o
}

// Next returns one sample.  inc is in cycles per sample and pm is a phase
// offset in cycles.
func (o *Osc) Next(inc, pm float64) float64 {
	switch o.Shape {
	case WhiteNoise:
		return o.noise.White()
	case PinkNoise:
		return o.noise.Pink()
	case BrownNoise:
		return o.noise.Brown()
	case Supersaw:
		return o.supersaw(inc)
	}

	p := o.phase + pm
	p -= math.Floor(p)
	var y float64
	switch o.Shape {
	case Sine:
		y = math.Sin(2 * math.Pi * p)
	case Sawtooth:
		y = 2*p - 1 - polyBLEP(p, inc)
	case Square:
		y = 1.0
		if p >= .5 {
			y = -1
		}
		y += polyBLEP(p, inc)
		_, q := math.Modf(p + .5)
		y -= polyBLEP(q, inc)
	case Triangle:
		y = 1 - 4*math.Abs(p-.5)
	}
	_, o.phase = math.Modf(o.phase + inc)
	return y
}

// Skip advances the phase by n samples at a constant increment.
func (o *Osc) Skip(n int, inc float64) {
	_, o.phase = math.Modf(o.phase + float64(n)*inc)
	for i := range o.phases {
		_, o.phases[i] = math.Modf(o.phases[i] + float64(n)*inc*(1+supersawDetune[i]))
	}
}

func (o *Osc) supersaw(inc float64) float64 {
	y := 0.0
	for i := range o.phases {
		d := inc * (1 + supersawDetune[i])
		p := o.phases[i]
		y += 2*p - 1 - polyBLEP(p, d)
		_, o.phases[i] = math.Modf(p + d)
	}
	return y / math.Sqrt(supersawVoices)
}

// polyBLEP smooths the discontinuity of a naive sawtooth at phase 0.
func polyBLEP(p, dt float64) float64 {
	if dt <= 0 {
		return 0
	}
	switch {
	case p < dt:
		t := p / dt
		return t + t - t*t - 1
	case p > 1-dt:
		t := (p - 1) / dt
		return t*t + t + t + 1
	}
	return 0
}

// SineOsc is a free-running sine used for LFOs.
type SineOsc struct {
	Params Params
	phase  float64
}

func (o *SineOsc) Sine(freq float64) float64 {
	_, o.phase = math.Modf(o.phase + freq/o.Params.SampleRate)
	return math.Sin(2 * math.Pi * o.phase)
}

// Phase returns the current phase in cycles.
func (o *SineOsc) Phase() float64 { return o.phase }
