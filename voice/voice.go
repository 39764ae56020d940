// Package voice renders one sounding note through its fixed signal chain:
//
//	source -> pitch modulation -> crush/coarse -> filters -> amp envelope ->
//	distortion -> phaser -> tremolo -> ducking -> compressor -> bus
//
// A Voice owns all of its state and is rendered by exactly one goroutine.
package voice

import (
	"math"

	"github.com/gordonklaus/orbits/dsp"
	"github.com/gordonklaus/orbits/orbit"
	"github.com/gordonklaus/orbits/sample"
	"github.com/pkg/errors"
)

var (
	ErrSampleNotReady = errors.New("voice: sample not loaded")
	ErrSampleTooShort = errors.New("voice: sample shorter than two frames")
	ErrPastEnd        = errors.New("voice: start position beyond sample end")
)

const (
	minRatio = 1.0 / 32
	maxRatio = 32.0

	defaultFreq = 261.6256

	// duckThreshold is the bus RMS level that produces full ducking depth.
	duckThreshold = .1
	duckRecovery  = .1
)

// Context is everything a voice needs to render one block.
type Context struct {
	BlockStart int64
	Frames     int
	Scratch    dsp.Buffer
	Bus        *orbit.Bus
	Orbits     *orbit.Orbits

	// The solo/mute gain moves linearly from GainFrom to GainTo across the block.
	GainFrom, GainTo float64
}

type Voice struct {
	p              dsp.Params
	data           Data
	start, gateEnd int64
	pos            int64
	started        bool
	released       bool
	done           bool

	osc   *dsp.Osc
	inc   float64
	mod   *dsp.Osc
	fmEnv *dsp.Env

	smp        *sample.Sample
	head, step float64
	stop       float64
	looping    bool
	loopStart  float64
	loopEnd    float64

	amp      dsp.Env
	pitchEnv *dsp.Env
	vib      dsp.Vibrato
	accel    float64 // octaves per frame

	coarse  dsp.Coarse
	filters []filter
	phaser  *dsp.Phaser
	trem    *dsp.Tremolo
	duck    *dsp.Follower
	comp    *dsp.Compressor

	panL, panR float64
}

type filter struct {
	def     FilterDef
	typ     dsp.FilterType
	bq      dsp.Biquad
	formant dsp.Formant
	env     *dsp.Env
}

// New builds a voice starting at frame start whose gate closes at gateEnd.
// smp must be the completed sample for sample voices and is ignored for
// synth voices.
func New(d Data, start, gateEnd int64, smp *sample.Sample, p dsp.Params, seed uint64) (*Voice, error) {
	if gateEnd < start {
		gateEnd = start
	}
	v := &Voice{p: p, data: d, start: start, gateEnd: gateEnd}

	freq := d.Frequency()
	shape, synth := d.Shape()
	if synth {
		if freq <= 0 {
			freq = defaultFreq
		}
		v.osc = dsp.NewOsc(shape, seed)
		v.inc = freq / p.SampleRate
		if d.FM != nil && d.FM.Index != 0 {
			v.mod = dsp.NewOsc(dsp.Sine, seed+1)
			if d.FM.Env != nil {
				v.fmEnv = &dsp.Env{}
				v.fmEnv.Set(*d.FM.Env, p)
			}
		}
	} else if err := v.initSample(smp, freq); err != nil {
		return nil, err
	}

	v.amp.Set(d.Env, p)
	if d.PitchEnv != nil && d.PitchEnv.Semitones != 0 {
		v.pitchEnv = &dsp.Env{}
		v.pitchEnv.Set(d.PitchEnv.ADSR, p)
	}
	v.vib = dsp.Vibrato{Rate: d.Vibrato.Rate, Depth: d.Vibrato.Depth}
	v.vib.InitAudio(p)
	if d.Accelerate != 0 {
		dur := gateEnd - start
		if dur < 1 {
			dur = 1
		}
		v.accel = d.Accelerate / float64(dur)
	}

	v.coarse.N = d.Coarse
	for _, def := range d.Filters {
		v.filters = append(v.filters, newFilter(def, p))
	}
	if d.Phaser.Rate > 0 {
		v.phaser = &dsp.Phaser{Rate: d.Phaser.Rate, Depth: d.Phaser.Depth, Center: d.Phaser.Center, Sweep: d.Phaser.Sweep}
		v.phaser.InitAudio(p)
	}
	if d.Tremolo.Rate > 0 && d.Tremolo.Depth > 0 {
		v.trem = &dsp.Tremolo{Rate: d.Tremolo.Rate, Depth: d.Tremolo.Depth}
		v.trem.InitAudio(p)
	}
	if d.Duck != nil && d.Duck.Depth > 0 {
		v.duck = dsp.NewFollower(duckRecovery, d.Duck.Attack)
		v.duck.InitAudio(p)
		v.duck.Reset(1)
	}
	if d.Compressor != nil {
		v.comp = dsp.NewCompressor(*d.Compressor)
		v.comp.InitAudio(p)
	}

	pan := math.Max(0, math.Min(1, d.Pan))
	v.panL, v.panR = math.Cos(pan*math.Pi/2), math.Sin(pan*math.Pi/2)
	return v, nil
}

func (v *Voice) initSample(smp *sample.Sample, freq float64) error {
	if smp == nil {
		return ErrSampleNotReady
	}
	n := len(smp.Data)
	if n < 2 {
		return ErrSampleTooShort
	}
	d := v.data
	ratio := math.Abs(d.Speed)
	if ratio == 0 {
		ratio = 1
	}
	if freq > 0 && smp.PitchHz > 0 {
		ratio *= freq / smp.PitchHz
	}
	if smp.SampleRate > 0 {
		ratio *= smp.SampleRate / v.p.SampleRate
	}
	v.step = math.Max(minRatio, math.Min(maxRatio, ratio))

	begin := clamp01(d.Begin) * float64(n)
	end := float64(n)
	if d.End > 0 {
		end = clamp01(d.End) * float64(n)
	}
	if begin >= float64(n-1) || begin >= end {
		return errors.Wrapf(ErrPastEnd, "begin %v of %d frames", begin, n)
	}
	v.smp, v.head, v.stop = smp, begin, end

	if d.Loop {
		v.looping = true
		switch {
		case d.LoopEnd > d.LoopBegin:
			v.loopStart, v.loopEnd = clamp01(d.LoopBegin)*float64(n), clamp01(d.LoopEnd)*float64(n)
		case smp.HasLoop():
			v.loopStart, v.loopEnd = float64(smp.LoopStart), float64(smp.LoopEnd)
		default:
			v.loopStart, v.loopEnd = begin, end
		}
		if v.loopEnd-v.loopStart < 1 {
			v.looping = false
		}
	}
	return nil
}

func newFilter(def FilterDef, p dsp.Params) filter {
	f := filter{def: def}
	switch def.Kind {
	case Highpass:
		f.typ = dsp.Highpass
	case Bandpass:
		f.typ = dsp.Bandpass
	case Notch:
		f.typ = dsp.Notch
	default:
		f.typ = dsp.Lowpass
	}
	if def.Kind == Formant {
		f.formant.SetVowel(def.Vowel, p.SampleRate)
		return f
	}
	if def.Env != nil && def.EnvDepth != 0 {
		f.env = &dsp.Env{}
		f.env.Set(*def.Env, p)
	}
	f.bq.Set(f.typ, def.Cutoff, def.Q, p.SampleRate)
	return f
}

func (v *Voice) Orbit() int         { return v.data.Orbit }
func (v *Voice) Cut() int           { return v.data.Cut }
func (v *Voice) IsSample() bool     { return v.smp != nil }
func (v *Voice) Start() int64       { return v.start }
func (v *Voice) GateEnd() int64     { return v.gateEnd }
func (v *Voice) Data() *Data        { return &v.data }
func (v *Voice) Done() bool         { return v.done }
func (v *Voice) Envelope() *dsp.Env { return &v.amp }

// Render adds the voice's next block into c.Bus and reports whether the
// voice is still alive.  A voice that returned false must not be rendered
// again.
func (v *Voice) Render(c *Context) bool {
	if v.done {
		return false
	}
	off := 0
	if v.start > c.BlockStart {
		off = int(v.start - c.BlockStart)
		if off >= c.Frames {
			return true
		}
	} else if !v.started && v.start < c.BlockStart {
		v.skip(int(c.BlockStart - v.start))
	}
	v.started = true
	if v.done {
		return false
	}

	n := c.Frames - off
	buf := c.Scratch[off:c.Frames]
	first := c.BlockStart + int64(off)
	gate := -1
	if !v.released && v.gateEnd-first < int64(n) {
		gate = int(max(0, v.gateEnd-first))
	}

	m := v.source(buf, gate)
	v.preFilter(buf[:m])
	v.filter(buf[:m], gate)
	m = v.envelope(buf[:m], gate)
	buf[m:].Zero()
	v.postFilter(buf[:m])
	v.sidechain(c, buf[:m])
	if v.comp != nil {
		for i, x := range buf[:m] {
			buf[i] = v.comp.Filter(x)
		}
	}
	v.mix(c, off, buf[:m])

	if gate >= 0 {
		v.released = true
	}
	v.pos += int64(n)
	if m < n {
		v.done = true
	}
	return !v.done
}

// skip fast-forwards a voice that is promoted after its start frame.
func (v *Voice) skip(k int) {
	gate := int(v.gateEnd - v.start)
	advance := func(e *dsp.Env) {
		if e == nil {
			return
		}
		if gate < k {
			e.Advance(gate)
			e.Release()
			e.Advance(k - gate)
		} else {
			e.Advance(k)
		}
	}
	advance(&v.amp)
	advance(v.pitchEnv)
	advance(v.fmEnv)
	for i := range v.filters {
		advance(v.filters[i].env)
	}
	if gate < k {
		v.released = true
	}
	if v.osc != nil {
		v.osc.Skip(k, v.inc)
	}
	if v.mod != nil {
		v.mod.Skip(k, v.inc*v.data.FM.Harmonicity)
	}
	if v.smp != nil {
		v.head += float64(k) * v.step
		if v.looping && v.head >= v.loopEnd {
			v.head = v.loopStart + math.Mod(v.head-v.loopStart, v.loopEnd-v.loopStart)
		} else if !v.looping && v.head >= v.stop {
			v.done = true
		}
	}
	if v.amp.Done() {
		v.done = true
	}
	v.pos += int64(k)
}

// ratio is the pitch multiplier for frame i of the current block.
func (v *Voice) ratio(i, gate int) float64 {
	r := 1.0
	if v.pitchEnv != nil {
		if i == gate {
			v.pitchEnv.Release()
		}
		r *= math.Exp2(v.data.PitchEnv.Semitones * v.pitchEnv.Next() / 12)
	}
	if v.vib.Rate > 0 {
		r *= v.vib.Ratio()
	}
	if v.accel != 0 {
		r *= math.Exp2(v.accel * float64(v.pos+int64(i)))
	}
	return r
}

// source writes the raw oscillator or sample signal and returns how many
// frames it produced.  Sample voices stop early at the end of the sample.
func (v *Voice) source(buf dsp.Buffer, gate int) int {
	if v.smp == nil {
		for i := range buf {
			inc := v.inc * v.ratio(i, gate)
			pm := 0.0
			if v.mod != nil {
				e := 1.0
				if v.fmEnv != nil {
					if i == gate {
						v.fmEnv.Release()
					}
					e = v.fmEnv.Next()
				}
				pm = v.data.FM.Index * e * v.mod.Next(inc*v.data.FM.Harmonicity, 0) / (2 * math.Pi)
			}
			buf[i] = v.osc.Next(inc, pm)
		}
		return len(buf)
	}

	data := v.smp.Data
	last := len(data) - 1
	at := func(j int) float64 {
		if j < 0 {
			j = 0
		} else if j > last {
			j = last
		}
		return float64(data[j])
	}
	for i := range buf {
		step := v.step * v.ratio(i, gate)
		j := int(v.head)
		buf[i] = dsp.Interp3(v.head-float64(j), at(j-1), at(j), at(j+1), at(j+2))
		v.head += math.Max(minRatio, math.Min(maxRatio, step))
		if v.looping {
			for v.head >= v.loopEnd {
				v.head -= v.loopEnd - v.loopStart
			}
		} else if v.head >= v.stop {
			return i + 1
		}
	}
	return len(buf)
}

// preFilter applies the destructive bit and rate reduction.
func (v *Voice) preFilter(buf dsp.Buffer) {
	if v.data.Crush > 0 {
		for i, x := range buf {
			buf[i] = dsp.Crush(x, v.data.Crush)
		}
	}
	if v.coarse.N > 1 {
		for i, x := range buf {
			buf[i] = v.coarse.Filter(x)
		}
	}
}

func (v *Voice) filter(buf dsp.Buffer, gate int) {
	n := len(buf)
	for k := range v.filters {
		f := &v.filters[k]
		if f.def.Kind == Formant {
			for i, x := range buf {
				buf[i] = f.formant.Filter(x)
			}
			continue
		}
		if f.env != nil {
			cutoff := f.def.Cutoff * math.Exp2(f.def.EnvDepth*f.env.Level())
			f.bq.Set(f.typ, cutoff, f.def.Q, v.p.SampleRate)
			if gate >= 0 && gate < n {
				f.env.Advance(gate)
				f.env.Release()
				f.env.Advance(n - gate)
			} else {
				f.env.Advance(n)
			}
		}
		for i, x := range buf {
			buf[i] = f.bq.Filter(x)
		}
	}
}

// envelope applies the amp envelope and returns the number of frames before
// it finished.
func (v *Voice) envelope(buf dsp.Buffer, gate int) int {
	for i, x := range buf {
		if i == gate {
			v.amp.Release()
		}
		if v.amp.Done() {
			return i
		}
		buf[i] = x * v.amp.Next()
	}
	return len(buf)
}

func (v *Voice) postFilter(buf dsp.Buffer) {
	if v.data.Distort > 0 {
		for i, x := range buf {
			buf[i] = dsp.Distort(x, v.data.Distort)
		}
	}
	if v.phaser != nil {
		for i, x := range buf {
			buf[i] = v.phaser.Filter(x)
		}
	}
	if v.trem != nil {
		for i, x := range buf {
			buf[i] = v.trem.Filter(x)
		}
	}
}

func (v *Voice) sidechain(c *Context, buf dsp.Buffer) {
	if v.duck == nil || c.Orbits == nil {
		return
	}
	level := c.Orbits.Level(v.data.Duck.Orbit)
	target := 1 - v.data.Duck.Depth*math.Min(1, level/duckThreshold)
	target = math.Max(0, target)
	for i, x := range buf {
		buf[i] = x * v.duck.Follow(target)
	}
}

func (v *Voice) mix(c *Context, off int, buf dsp.Buffer) {
	b := c.Bus
	if b == nil {
		return
	}
	b.Touch()
	d := &v.data
	base := d.Gain * d.Velocity * d.PostGain
	dg := (c.GainTo - c.GainFrom) / float64(c.Frames)
	for i, x := range buf {
		j := off + i
		g := base * (c.GainFrom + dg*float64(j))
		l, r := x*g*v.panL, x*g*v.panR
		b.DryL[j] += l
		b.DryR[j] += r
		if d.Delay.Amount > 0 {
			b.DelayL[j] += l * d.Delay.Amount
			b.DelayR[j] += r * d.Delay.Amount
		}
		if d.Room.Amount > 0 {
			b.ReverbL[j] += l * d.Room.Amount
			b.ReverbR[j] += r * d.Room.Amount
		}
	}
}

func clamp01(x float64) float64 {
	return math.Max(0, math.Min(1, x))
}
