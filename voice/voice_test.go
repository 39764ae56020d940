package voice

import (
	"math"
	"testing"

	"github.com/gordonklaus/orbits/dsp"
	"github.com/gordonklaus/orbits/orbit"
	"github.com/gordonklaus/orbits/sample"
	"github.com/pkg/errors"
)

var testParams = dsp.Params{SampleRate: 1000, BlockFrames: 100}

func newBus(n int) *orbit.Bus {
	b := &orbit.Bus{}
	for _, buf := range []*dsp.Buffer{&b.DryL, &b.DryR, &b.DelayL, &b.DelayR, &b.ReverbL, &b.ReverbR} {
		*buf = make(dsp.Buffer, n)
	}
	return b
}

func newContext(start int64, n int, b *orbit.Bus) *Context {
	return &Context{
		BlockStart: start,
		Frames:     n,
		Scratch:    make(dsp.Buffer, n),
		Bus:        b,
		GainFrom:   1,
		GainTo:     1,
	}
}

func flat() dsp.ADSR { return dsp.ADSR{Sustain: 1} }

func ramp(n int) *sample.Sample {
	s := &sample.Sample{SampleRate: testParams.SampleRate}
	for i := 0; i < n; i++ {
		s.Data = append(s.Data, float32(i+1)/float32(n))
	}
	return s
}

func TestSynthEnvelopeLifetime(t *testing.T) {
	d := Default()
	d.Sound = "sine"
	d.Freq = 100
	d.Pan = 0
	d.Env = dsp.ADSR{Attack: .01, Sustain: 1, Release: .02}
	v, err := New(d, 0, 50, nil, testParams, 1)
	if err != nil {
		t.Fatal(err)
	}
	b := newBus(100)
	if v.Render(newContext(0, 100, b)) {
		t.Error("voice should finish within the block")
	}
	if p := b.DryL[10:50].Peak(); p < .5 {
		t.Errorf("sustain peak = %v", p)
	}
	if p := b.DryL[71:].Peak(); p != 0 {
		t.Errorf("output after release = %v", p)
	}
	if p := b.DryR.Peak(); p != 0 {
		t.Errorf("hard left pan leaked %v into right", p)
	}
	if v.Render(newContext(100, 100, b)) {
		t.Error("finished voice rendered again")
	}
}

func TestSamplePlayback(t *testing.T) {
	smp := ramp(8)
	d := Default()
	d.Sound = "kick"
	d.Pan = 0
	d.Env = flat()
	v, err := New(d, 0, 1000, smp, testParams, 1)
	if err != nil {
		t.Fatal(err)
	}
	if !v.IsSample() {
		t.Fatal("expected a sample voice")
	}
	b := newBus(16)
	if v.Render(newContext(0, 16, b)) {
		t.Error("voice should end with the sample")
	}
	for i, x := range smp.Data {
		if b.DryL[i] != float64(x) {
			t.Errorf("frame %d: %v, want %v", i, b.DryL[i], x)
		}
	}
	if p := b.DryL[8:].Peak(); p != 0 {
		t.Errorf("output past sample end = %v", p)
	}
}

func TestSampleStartOffsets(t *testing.T) {
	smp := ramp(64)
	d := Default()
	d.Sound = "hat"
	d.Pan = 0
	d.Env = flat()

	v, _ := New(d, 5, 1000, smp, testParams, 1)
	b := newBus(16)
	v.Render(newContext(0, 16, b))
	if p := b.DryL[:5].Peak(); p != 0 {
		t.Errorf("output before start = %v", p)
	}
	if b.DryL[5] != float64(smp.Data[0]) {
		t.Errorf("first frame = %v, want %v", b.DryL[5], smp.Data[0])
	}

	late, _ := New(d, 0, 1000, smp, testParams, 1)
	b = newBus(16)
	late.Render(newContext(10, 16, b))
	if b.DryL[0] != float64(smp.Data[10]) {
		t.Errorf("late voice first frame = %v, want %v", b.DryL[0], smp.Data[10])
	}
}

func TestSampleLoop(t *testing.T) {
	smp := ramp(4)
	d := Default()
	d.Sound = "pad"
	d.Pan = 0
	d.Env = flat()
	d.Loop = true
	v, _ := New(d, 0, 1000, smp, testParams, 1)
	b := newBus(12)
	if !v.Render(newContext(0, 12, b)) {
		t.Fatal("looping voice ended")
	}
	for i := range b.DryL {
		if want := float64(smp.Data[i%4]); b.DryL[i] != want {
			t.Errorf("frame %d: %v, want %v", i, b.DryL[i], want)
		}
	}
}

func TestSampleErrors(t *testing.T) {
	d := Default()
	d.Sound = "snare"
	if _, err := New(d, 0, 10, nil, testParams, 1); !errors.Is(err, ErrSampleNotReady) {
		t.Errorf("nil sample: %v", err)
	}
	if _, err := New(d, 0, 10, ramp(1), testParams, 1); !errors.Is(err, ErrSampleTooShort) {
		t.Errorf("short sample: %v", err)
	}
	d.Begin = 1
	if _, err := New(d, 0, 10, ramp(8), testParams, 1); !errors.Is(err, ErrPastEnd) {
		t.Errorf("begin at end: %v", err)
	}
}

func TestSoloGainAndSends(t *testing.T) {
	smp := ramp(32)
	d := Default()
	d.Sound = "bd"
	d.Pan = 0
	d.Env = flat()
	d.Delay.Amount = .5
	d.Room.Amount = .25
	v, _ := New(d, 0, 1000, smp, testParams, 1)
	b := newBus(16)
	c := newContext(0, 16, b)
	c.GainFrom, c.GainTo = 0, 0
	v.Render(c)
	if p := b.DryL.Peak(); p != 0 {
		t.Errorf("silenced voice produced %v", p)
	}

	v, _ = New(d, 0, 1000, smp, testParams, 1)
	b = newBus(16)
	v.Render(newContext(0, 16, b))
	for i := range b.DryL {
		if math.Abs(b.DelayL[i]-.5*b.DryL[i]) > 1e-12 || math.Abs(b.ReverbL[i]-.25*b.DryL[i]) > 1e-12 {
			t.Fatalf("frame %d: sends %v %v for dry %v", i, b.DelayL[i], b.ReverbL[i], b.DryL[i])
		}
	}
}

func TestEqualPowerPan(t *testing.T) {
	smp := ramp(16)
	d := Default()
	d.Sound = "cp"
	d.Env = flat()
	v, _ := New(d, 0, 1000, smp, testParams, 1)
	b := newBus(8)
	v.Render(newContext(0, 8, b))
	for i := range b.DryL {
		x := float64(smp.Data[i])
		if p := b.DryL[i]*b.DryL[i] + b.DryR[i]*b.DryR[i]; math.Abs(p-x*x) > 1e-9 {
			t.Errorf("frame %d: power %v, want %v", i, p, x*x)
		}
	}
}

func BenchmarkSynthVoice(b *testing.B) {
	d := Default()
	d.Sound = "supersaw"
	d.Freq = 110
	d.Filters = []FilterDef{{Kind: Lowpass, Cutoff: 800, Q: 1}}
	p := dsp.Params{SampleRate: 48000, BlockFrames: 512}
	bus := newBus(512)
	c := newContext(0, 512, bus)
	v, _ := New(d, 0, math.MaxInt64, nil, p, 1)
	for i := 0; i < b.N; i++ {
		v.Render(c)
		c.BlockStart += 512
	}
}

func TestFrequency(t *testing.T) {
	for _, test := range []struct {
		freq, note, want float64
	}{
		{0, 0, 0},
		{220, 0, 220},
		{220, 69, 220},
		{0, 69, 440},
		{0, 57, 220},
	} {
		d := Data{Freq: test.freq, Note: test.note}
		if got := d.Frequency(); math.Abs(got-test.want) > 1e-9 {
			t.Errorf("Frequency(%v, %v) = %v, want %v", test.freq, test.note, got, test.want)
		}
	}
}
