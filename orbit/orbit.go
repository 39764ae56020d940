// Package orbit implements the mix buses.  Voices write dry, delay-send and
// reverb-send signals into exactly one bus; after all voices have rendered,
// every bus runs its own effects and is summed into the master mix.
package orbit

import (
	"math"

	"github.com/gordonklaus/orbits/dsp"
	"github.com/pkg/errors"
)

// silence is the peak below which an effect tail counts as finished.
const silence = 1e-6

// Settings carries the bus-level effect parameters a voice may set.  Zero
// values leave the bus unchanged.
type Settings struct {
	DelayTime     float64
	DelayFeedback float64
	RoomSize      float64
	Compressor    *dsp.CompressorParams
}

type Bus struct {
	ID int

	DryL, DryR       dsp.Buffer
	DelayL, DelayR   dsp.Buffer
	ReverbL, ReverbR dsp.Buffer

	Delay      dsp.StereoDelay
	Reverb     dsp.Reverb
	Compressor *dsp.Compressor
	Meter      *dsp.AmpMeter

	conv         *dsp.Convolver
	compress     bool
	voices       int
	delayActive  bool
	reverbActive bool
	delayIdle    int // frames since the delay last carried signal
	reverbIdle   int
	reverbTail   int
	active       bool
}

// Apply updates the bus effects from a newly started voice.
func (b *Bus) Apply(s Settings) {
	if s.DelayTime > 0 {
		b.Delay.Time = s.DelayTime
	}
	if s.DelayFeedback > 0 {
		b.Delay.Feedback = s.DelayFeedback
	}
	if s.RoomSize > 0 {
		b.Reverb.Size = s.RoomSize
	}
	if s.Compressor != nil {
		b.Compressor.Set(*s.Compressor)
		b.compress = true
	}
}

// Touch records that a voice wrote into the bus this block.
func (b *Bus) Touch() { b.voices++ }

// Level is the RMS level of the bus output over the last metering window.
func (b *Bus) Level() float64 { return b.Meter.Level() }

// Active reports whether the bus carried voices or effect tails in the last block.
func (b *Bus) Active() bool { return b.active }

func (b *Bus) clear() {
	for _, buf := range []dsp.Buffer{b.DryL, b.DryR, b.DelayL, b.DelayR, b.ReverbL, b.ReverbR} {
		buf.Zero()
	}
	b.voices = 0
}

func (b *Bus) process(n int) {
	if sendPeak := math.Max(b.DelayL[:n].Peak(), b.DelayR[:n].Peak()); sendPeak > 0 || b.delayActive {
		out := 0.0
		for i := 0; i < n; i++ {
			l, r := b.Delay.Process(b.DelayL[i], b.DelayR[i])
			b.DryL[i] += l
			b.DryR[i] += r
			out = math.Max(out, math.Max(math.Abs(l), math.Abs(r)))
		}
		b.delayIdle = idle(b.delayIdle, n, sendPeak > 0 || out > silence)
		b.delayActive = b.delayIdle <= int(b.Delay.Time*b.Delay.Params.SampleRate)+n
	}

	if sendPeak := math.Max(b.ReverbL[:n].Peak(), b.ReverbR[:n].Peak()); sendPeak > 0 || b.reverbActive {
		out := 0.0
		for i := 0; i < n; i++ {
			x := (b.ReverbL[i] + b.ReverbR[i]) / 2
			var l, r float64
			if b.conv != nil {
				l = b.conv.Filter(x)
				r = l
			} else {
				l, r = b.Reverb.Process(x)
			}
			b.DryL[i] += l
			b.DryR[i] += r
			out = math.Max(out, math.Max(math.Abs(l), math.Abs(r)))
		}
		b.reverbIdle = idle(b.reverbIdle, n, sendPeak > 0 || out > silence)
		b.reverbActive = b.reverbIdle <= b.reverbTail+n
	}

	if b.compress {
		for i := 0; i < n; i++ {
			b.DryL[i], b.DryR[i] = b.Compressor.FilterStereo(b.DryL[i], b.DryR[i])
		}
	}

	if b.voices > 0 || b.delayActive || b.reverbActive || b.Meter.Level() > 0 {
		mono := b.DelayL[:n]
		for i := range mono {
			mono[i] = (b.DryL[i] + b.DryR[i]) / 2
		}
		b.Meter.Amplitude(mono)
	}
	b.active = b.voices > 0 || b.delayActive || b.reverbActive
}

func idle(frames, n int, busy bool) int {
	if busy {
		return 0
	}
	return frames + n
}

// Orbits is the fixed set of buses plus the master accumulator.
type Orbits struct {
	Params     dsp.Params
	Buses      []*Bus
	MixL, MixR dsp.Buffer
}

// MaxCount is the most buses an Orbits may have.
const MaxCount = 64

// Config selects the number of buses and the reverb flavour.  With an
// impulse response every bus convolves instead of running the granular
// reverb.
type Config struct {
	Count           int
	Seed            uint64
	ImpulseResponse []float64
	MeterWindow     float64
}

func New(p dsp.Params, c Config) (*Orbits, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if c.Count <= 0 || c.Count > MaxCount {
		return nil, errors.Errorf("orbit: need 1 to %d buses, got %d", MaxCount, c.Count)
	}
	if c.MeterWindow <= 0 {
		c.MeterWindow = .05
	}
	o := &Orbits{}
	for i := 0; i < c.Count; i++ {
		b := &Bus{
			ID:         i,
			Compressor: dsp.NewCompressor(dsp.DefaultCompressor),
			Meter:      dsp.NewAmpMeter(c.MeterWindow),
		}
		b.Reverb.Seed = c.Seed + uint64(i)*0x9e3779b97f4a7c15
		if len(c.ImpulseResponse) > 0 {
			conv, err := dsp.NewConvolver(c.ImpulseResponse, p.BlockFrames)
			if err != nil {
				return nil, errors.Wrapf(err, "orbit %d", i)
			}
			b.conv = conv
			b.reverbTail = len(c.ImpulseResponse) + conv.Latency()
		} else {
			b.reverbTail = int(dsp.ReverbTail * p.SampleRate)
		}
		o.Buses = append(o.Buses, b)
	}
	dsp.Init(o, p)
	return o, nil
}

func (o *Orbits) Len() int { return len(o.Buses) }

// Bus returns the bus for id.  Ids outside the configured range wrap around.
func (o *Orbits) Bus(id int) *Bus {
	n := len(o.Buses)
	id %= n
	if id < 0 {
		id += n
	}
	return o.Buses[id]
}

// Level is the last metered level of bus id, used for ducking.
func (o *Orbits) Level(id int) float64 { return o.Bus(id).Level() }

func (o *Orbits) Clear() {
	for _, b := range o.Buses {
		b.clear()
	}
	o.MixL.Zero()
	o.MixR.Zero()
}

// ProcessAndMix runs every bus's effects over the first n frames and sums
// the result into MixL and MixR.
func (o *Orbits) ProcessAndMix(n int) {
	for _, b := range o.Buses {
		b.process(n)
		o.MixL[:n].Add(o.MixL[:n], b.DryL[:n])
		o.MixR[:n].Add(o.MixR[:n], b.DryR[:n])
	}
}
