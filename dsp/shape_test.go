package dsp

import (
	"math"
	"testing"
)

func TestSoftClipBounded(t *testing.T) {
	prev := -2.0
	for x := -10.0; x <= 10; x += .01 {
		y := SoftClip(x)
		if y < -1 || y > 1 {
			t.Fatalf("SoftClip(%v) = %v out of range", x, y)
		}
		if y < prev {
			t.Fatalf("SoftClip not monotonic at %v", x)
		}
		prev = y
	}
	if math.Abs(SoftClip(.1)-math.Tanh(.1)) > 1e-3 {
		t.Error("SoftClip should track tanh for small inputs")
	}
}

func TestCrush(t *testing.T) {
	for bits, want := range map[float64]float64{
		1: 0,
		2: .5,
		3: .25,
	} {
		if got := Crush(.3, bits); got != want {
			t.Errorf("Crush(.3, %v) = %v, want %v", bits, got, want)
		}
	}
	if got := Crush(.3, 16); math.Abs(got-.3) > 1e-4 {
		t.Errorf("16-bit crush changed signal: %v", got)
	}
}

func TestCoarse(t *testing.T) {
	c := Coarse{N: 3}
	var got []float64
	for _, x := range []float64{1, 2, 3, 4, 5, 6, 7} {
		got = append(got, c.Filter(x))
	}
	want := []float64{1, 1, 1, 4, 4, 4, 7}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestDistortKeepsUnitPeak(t *testing.T) {
	if got := Distort(1, 3); math.Abs(got-1) > 1e-9 {
		t.Errorf("Distort(1, 3) = %v, want 1", got)
	}
	if got := Distort(.2, 0); got != .2 {
		t.Errorf("zero amount should bypass, got %v", got)
	}
}

func TestTremoloBypass(t *testing.T) {
	var tr Tremolo
	Init(&tr, Params{SampleRate: 48000, BlockFrames: 1})
	if tr.Filter(.5) != .5 {
		t.Error("zero rate should bypass")
	}
	tr.Rate, tr.Depth = 4, 1
	min := 1.0
	for i := 0; i < 48000; i++ {
		min = math.Min(min, tr.Filter(1))
	}
	if min > .01 {
		t.Errorf("full-depth tremolo never reached silence: %v", min)
	}
}
