package dsp

import (
	"math"
	"math/rand/v2"
)

const (
	reverbStreams = 8
	reverbBuffer  = .5 // seconds per grain stream
)

// ReverbTail is how long the reverb may stay silent at its output while
// still holding energy in its buffers.
const ReverbTail = reverbBuffer

// Reverb is a chain of granular feedback streams.  Each stream reads two
// randomly delayed grains from its own buffer and crossfades between them;
// the wet output of one stream feeds the next.  Even streams go left, odd
// streams right.
type Reverb struct {
	Params  Params
	Seed    uint64
	Size    float64 // 0..1, grain length and decay time
	streams [reverbStreams]grainStream
	rand    rand.PCG
}

type grainStream struct {
	buf      []float64
	i        int
	t, dt    float64
	a1, a2   float64
	i1, i2   int
	dcFilter DCFilter
}

func (r *Reverb) InitAudio(p Params) {
	r.Params = p
	for i := range r.streams {
		s := &r.streams[i]
		s.buf = make([]float64, int(reverbBuffer*p.SampleRate)+1)
		s.i, s.t = 0, 1
		s.dcFilter.InitAudio(p)
	}
	r.rand.Seed(r.Seed, r.Seed^0xda942042e4dd58b5)
	if r.Size <= 0 {
		r.Size = .5
	}
}

func (r *Reverb) uniform() float64 {
	return float64(r.rand.Uint64()>>11) / (1 << 53)
}

// Process takes one mono input sample and returns the stereo wet signal.
func (r *Reverb) Process(dry float64) (l, rr float64) {
	size := .05 + .45*r.Size
	decayTime := .3 + 7.7*r.Size*r.Size
	n := len(r.streams[0].buf)

	x := dry
	for k := range r.streams {
		s := &r.streams[k]
		if s.t >= 1 {
			s.t -= 1
			s.a1, s.i1 = s.a2, s.i2
			delay := math.Exp2(r.uniform() - 2.5)
			s.dt = 1 / math.Exp2(r.uniform()) / size / r.Params.SampleRate
			s.a2 = math.Pow(.01, delay/decayTime)
			s.i2 = (s.i - int(delay*r.Params.SampleRate) + n) % n
		}
		sin2 := math.Sin(math.Pi / 2 * s.t)
		sin2 *= sin2
		y := s.dcFilter.Filter(s.a1*(1-sin2)*s.buf[s.i1] + s.a2*sin2*s.buf[s.i2])
		s.i1 = (s.i1 + 1) % n
		s.i2 = (s.i2 + 1) % n
		s.t += s.dt
		s.buf[s.i] = x + y
		s.i = (s.i + 1) % n
		x = y // feed wet output into next stream's input
		if k&1 == 0 {
			l += y
		} else {
			rr += y
		}
	}
	return l / 2, rr / 2
}

func (r *Reverb) Clear() {
	for i := range r.streams {
		s := &r.streams[i]
		for j := range s.buf {
			s.buf[j] = 0
		}
		s.a1, s.a2 = 0, 0
	}
}
