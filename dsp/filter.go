package dsp

import "math"

// DCFilter removes DC offset with a 10Hz one-pole high-pass.
type DCFilter struct {
	a, x, y float64
}

func (f *DCFilter) InitAudio(p Params) {
	rc := 1 / (2 * math.Pi * 10)
	f.a = rc / (rc + 1/p.SampleRate)
}

func (f *DCFilter) Filter(x float64) float64 {
	f.y = f.a * (f.y + x - f.x)
	f.x = x
	return f.y
}

type FilterType int

const (
	Lowpass FilterType = iota
	Highpass
	Bandpass
	Notch
	Allpass
)

// Biquad is a transposed direct form II second-order section.  Coefficients
// follow the usual audio-EQ cookbook formulas.
type Biquad struct {
	b0, b1, b2, a1, a2 float64
	z1, z2             float64
}

// Set recomputes coefficients without clearing the filter state, so it can be
// called at control rate.
func (f *Biquad) Set(t FilterType, freq, q, sampleRate float64) {
	freq = math.Max(10, math.Min(freq, sampleRate*.49))
	if q <= 0 {
		q = .7071
	}
	w := 2 * math.Pi * freq / sampleRate
	cw, sw := math.Cos(w), math.Sin(w)
	alpha := sw / (2 * q)
	a0 := 1 + alpha
	var b0, b1, b2 float64
	switch t {
	case Lowpass:
		b0, b1, b2 = (1-cw)/2, 1-cw, (1-cw)/2
	case Highpass:
		b0, b1, b2 = (1+cw)/2, -(1 + cw), (1+cw)/2
	case Bandpass:
		b0, b1, b2 = alpha, 0, -alpha
	case Notch:
		b0, b1, b2 = 1, -2*cw, 1
	case Allpass:
		b0, b1, b2 = 1-alpha, -2*cw, 1+alpha
	}
	f.b0, f.b1, f.b2 = b0/a0, b1/a0, b2/a0
	f.a1, f.a2 = -2*cw/a0, (1-alpha)/a0
}

func (f *Biquad) Filter(x float64) float64 {
	y := f.b0*x + f.z1
	f.z1 = f.b1*x - f.a1*y + f.z2
	f.z2 = f.b2*x - f.a2*y
	return y
}

func (f *Biquad) Reset() { f.z1, f.z2 = 0, 0 }

// formants holds the first three formant frequencies and gains per vowel.
var formants = map[string][3][2]float64{
	"a": {{800, 1}, {1150, .5}, {2900, .25}},
	"e": {{400, 1}, {1600, .3}, {2700, .2}},
	"i": {{350, 1}, {1700, .2}, {2700, .15}},
	"o": {{450, 1}, {800, .6}, {2830, .1}},
	"u": {{325, 1}, {700, .3}, {2530, .05}},
}

// Formant is a parallel bank of band-pass filters shaping a vowel.
type Formant struct {
	bands [3]Biquad
	gains [3]float64
	ok    bool
}

// SetVowel configures the bank; unknown vowels leave the signal untouched.
func (f *Formant) SetVowel(vowel string, sampleRate float64) {
	v, ok := formants[vowel]
	f.ok = ok
	if !ok {
		return
	}
	for i, b := range v {
		f.bands[i].Set(Bandpass, b[0], b[0]/80, sampleRate)
		f.gains[i] = b[1]
	}
}

func (f *Formant) Filter(x float64) float64 {
	if !f.ok {
		return x
	}
	y := 0.0
	for i := range f.bands {
		y += f.gains[i] * f.bands[i].Filter(x)
	}
	return y * 4
}
