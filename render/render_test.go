package render

import (
	"math"
	"testing"
	"time"

	"github.com/gordonklaus/orbits/command"
	"github.com/gordonklaus/orbits/dsp"
	"github.com/gordonklaus/orbits/orbit"
	"github.com/gordonklaus/orbits/sched"
	"github.com/gordonklaus/orbits/voice"
)

var testParams = dsp.Params{SampleRate: 1000, BlockFrames: 100}

// fakeClock advances by step every time it is read.
type fakeClock struct {
	t    time.Time
	step time.Duration
}

func (c *fakeClock) now() time.Time {
	t := c.t
	c.t = c.t.Add(c.step)
	return t
}

func newRenderer(t *testing.T, clock Clock) (*Renderer, *sched.Scheduler) {
	t.Helper()
	o, err := orbit.New(testParams, orbit.Config{Count: 2, Seed: 1})
	if err != nil {
		t.Fatal(err)
	}
	s, err := sched.New(testParams, sched.Config{LateTolerance: 100, SoloRamp: 2, Diagnostics: .05}, o, nil)
	if err != nil {
		t.Fatal(err)
	}
	r, err := New(testParams, s, o, clock)
	if err != nil {
		t.Fatal(err)
	}
	return r, s
}

func TestSilence(t *testing.T) {
	r, _ := newRenderer(t, nil)
	out := make([]int16, 2*testParams.BlockFrames)
	r.RenderBlock(0, out)
	for i, x := range out {
		if x != 0 {
			t.Fatalf("sample %d = %d", i, x)
		}
	}
}

func TestLoudInputIsBounded(t *testing.T) {
	r, s := newRenderer(t, nil)
	for i := 0; i < 20; i++ {
		d := voice.Default()
		d.Sound = "square"
		d.Freq = 50
		d.Gain = 4
		d.Env = dsp.ADSR{Sustain: 1}
		s.Schedule(command.ScheduleVoice{PlaybackID: "p", GateEndTime: 10, Data: d})
	}
	out := make([]int16, 2*testParams.BlockFrames)
	peak := 0
	for c := int64(0); c < 1000; c += 100 {
		r.RenderBlock(c, out)
		for _, x := range out {
			peak = max(peak, int(math.Abs(float64(x))))
		}
	}
	if peak == 0 {
		t.Fatal("no output")
	}
	if peak > math.MaxInt16 {
		t.Errorf("peak %d", peak)
	}
	if g := r.Limiter.Gain(); g >= 1 {
		t.Errorf("limiter gain %v, expected reduction", g)
	}
}

func TestHeadroomFromClock(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0), step: 25 * time.Millisecond}
	r, _ := newRenderer(t, clock.now)
	out := make([]int16, 2*testParams.BlockFrames)
	r.RenderBlock(0, out)
	min, avg := r.Headroom()
	if math.Abs(min-.75) > 1e-9 || math.Abs(avg-.75) > 1e-9 {
		t.Errorf("headroom %v %v, want .75", min, avg)
	}

	clock.step = 150 * time.Millisecond
	r.RenderBlock(100, out)
	min, avg = r.Headroom()
	if math.Abs(min+.5) > 1e-9 {
		t.Errorf("min headroom %v, want -.5", min)
	}
	if want := .75 + headroomAlpha*(-.5-.75); math.Abs(avg-want) > 1e-9 {
		t.Errorf("avg headroom %v, want %v", avg, want)
	}
}

func TestHeadroomWindow(t *testing.T) {
	h := NewHeadroom(3, .5)
	if h.Min() != 1 {
		t.Errorf("empty min %v", h.Min())
	}
	for _, x := range []float64{-1, .5, .6, .7} {
		h.Add(x)
	}
	if h.Min() != .5 {
		t.Errorf("min %v, want .5 once -1 left the window", h.Min())
	}
}

func TestPCM16(t *testing.T) {
	for _, test := range []struct {
		x    float64
		want int16
	}{
		{0, 0},
		{1, math.MaxInt16},
		{-1, -math.MaxInt16},
		{2, math.MaxInt16},
		{.5, 16384},
	} {
		if got := PCM16(test.x); got != test.want {
			t.Errorf("PCM16(%v) = %d, want %d", test.x, got, test.want)
		}
	}
}
