package dsp

import "math"

const phaserStages = 4

// Phaser sweeps a chain of all-pass filters around a center frequency.
type Phaser struct {
	Params Params
	Rate   float64
	Depth  float64
	Center float64
	Sweep  float64

	lfo    SineOsc
	stages [phaserStages]Biquad
	fb     float64
	n      int
}

func (p *Phaser) InitAudio(q Params) {
	p.Params = q
	p.lfo.Params = q
	if p.Center <= 0 {
		p.Center = 1000
	}
	if p.Sweep <= 0 {
		p.Sweep = 2000
	}
	if p.Depth <= 0 {
		p.Depth = .75
	}
}

// phaserControlRate is how many samples share one set of all-pass coefficients.
const phaserControlRate = 16

func (p *Phaser) Filter(x float64) float64 {
	if p.Rate <= 0 {
		return x
	}
	m := p.lfo.Sine(p.Rate)
	if p.n == 0 {
		f := math.Max(20, p.Center+p.Sweep*m/2)
		for i := range p.stages {
			p.stages[i].Set(Allpass, f, .5, p.Params.SampleRate)
		}
	}
	p.n = (p.n + 1) % phaserControlRate
	y := x + .5*p.fb
	for i := range p.stages {
		y = p.stages[i].Filter(y)
	}
	p.fb = y
	return x*(1-p.Depth/2) + y*p.Depth/2
}

// Tremolo modulates amplitude with a raised sine.
type Tremolo struct {
	Params Params
	Rate   float64
	Depth  float64
	lfo    SineOsc
}

func (t *Tremolo) InitAudio(p Params) {
	t.Params = p
	t.lfo.Params = p
}

func (t *Tremolo) Filter(x float64) float64 {
	if t.Rate <= 0 || t.Depth <= 0 {
		return x
	}
	m := .5 + .5*t.lfo.Sine(t.Rate)
	return x * (1 - math.Min(1, t.Depth)*m)
}

// Vibrato returns a pitch ratio oscillating Depth semitones around 1.
type Vibrato struct {
	Params Params
	Rate   float64
	Depth  float64
	lfo    SineOsc
}

func (v *Vibrato) InitAudio(p Params) {
	v.Params = p
	v.lfo.Params = p
}

func (v *Vibrato) Ratio() float64 {
	if v.Rate <= 0 || v.Depth == 0 {
		return 1
	}
	return math.Exp2(v.Depth * v.lfo.Sine(v.Rate) / 12)
}
