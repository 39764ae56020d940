package voice

import (
	"math"

	"github.com/gordonklaus/orbits/dsp"
	"github.com/gordonklaus/orbits/orbit"
	"github.com/gordonklaus/orbits/sample"
)

type FilterKind int

const (
	Lowpass FilterKind = iota
	Highpass
	Bandpass
	Notch
	Formant
)

// FilterDef is one stage of the main filter.  A non-nil Env sweeps the
// cutoff by up to EnvDepth octaves, updated once per block.
type FilterDef struct {
	Kind     FilterKind
	Cutoff   float64
	Q        float64
	Vowel    string
	Env      *dsp.ADSR
	EnvDepth float64
}

type Phaser struct {
	Rate, Depth, Center, Sweep float64
}

type Tremolo struct {
	Rate, Depth float64
}

type Vibrato struct {
	Rate  float64
	Depth float64 // semitones
}

type PitchEnv struct {
	dsp.ADSR
	Semitones float64
}

// FM phase-modulates the carrier with a sine at Harmonicity times its
// frequency.  Index is the peak phase deviation in radians.
type FM struct {
	Harmonicity float64
	Index       float64
	Env         *dsp.ADSR
}

type DelaySend struct {
	Amount   float64
	Time     float64
	Feedback float64
}

type RoomSend struct {
	Amount float64
	Size   float64
}

// Duck lowers the voice while bus Orbit is loud.
type Duck struct {
	Orbit  int
	Depth  float64
	Attack float64
}

// Data holds every parameter of one note.  Use Default as the starting
// point; zero values disable the corresponding stage.
type Data struct {
	Sound string
	Bank  string
	Index int
	Freq  float64
	Note  float64 // MIDI note number, used when Freq is 0

	Gain     float64
	Velocity float64
	PostGain float64
	Pan      float64 // 0 left, .5 center, 1 right
	Orbit    int

	Env dsp.ADSR

	Filters    []FilterDef
	Crush      float64
	Coarse     int
	Distort    float64
	Phaser     Phaser
	Tremolo    Tremolo
	Vibrato    Vibrato
	Accelerate float64 // octaves over the gate duration
	PitchEnv   *PitchEnv
	FM         *FM

	Delay DelaySend
	Room  RoomSend
	Duck  *Duck

	Compressor    *dsp.CompressorParams
	BusCompressor *dsp.CompressorParams

	Speed     float64
	Begin     float64
	End       float64
	Loop      bool
	LoopBegin float64
	LoopEnd   float64

	Cut    int // 0 is no cut group
	Solo   float64
	Source string
	Mute   bool
}

func Default() Data {
	return Data{
		Sound:    "triangle",
		Gain:     1,
		Velocity: 1,
		PostGain: 1,
		Pan:      .5,
		Env:      dsp.ADSR{Attack: .001, Decay: .05, Sustain: 1, Release: .01},
		Speed:    1,
		End:      1,
	}
}

// Shape reports the oscillator shape if the sound is a synth.
func (d Data) Shape() (dsp.Shape, bool) { return dsp.ParseShape(d.Sound) }

// Frequency is Freq, or the frequency of Note when Freq is unset.  It is 0
// when neither is set.
func (d Data) Frequency() float64 {
	if d.Freq > 0 {
		return d.Freq
	}
	if d.Note != 0 {
		return 440 * math.Exp2((d.Note-69)/12)
	}
	return 0
}

func (d Data) IsSynth() bool {
	_, ok := d.Shape()
	return ok
}

func (d Data) SampleKey() sample.Key {
	return sample.Key{Bank: d.Bank, Sound: d.Sound, Index: d.Index}
}

// BusSettings are the effect parameters this voice imposes on its bus.
func (d Data) BusSettings() orbit.Settings {
	s := orbit.Settings{Compressor: d.BusCompressor}
	if d.Delay.Amount > 0 {
		s.DelayTime, s.DelayFeedback = d.Delay.Time, d.Delay.Feedback
	}
	if d.Room.Amount > 0 {
		s.RoomSize = d.Room.Size
	}
	return s
}
