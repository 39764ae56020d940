package dsp

import (
	"math"
	"testing"
)

func TestOscPeriod(t *testing.T) {
	const sr = 48000
	for _, shape := range []Shape{Sine, Sawtooth, Square, Triangle} {
		o := NewOsc(shape, 1)
		inc := 100.0 / sr
		var crossings int
		prev := o.Next(inc, 0)
		for i := 1; i < sr; i++ {
			y := o.Next(inc, 0)
			if y > 1.1 || y < -1.1 {
				t.Fatalf("shape %d: sample %v out of range", shape, y)
			}
			if prev < 0 && y >= 0 {
				crossings++
			}
			prev = y
		}
		if crossings < 99 || crossings > 101 {
			t.Errorf("shape %d: %d upward crossings in 1s at 100Hz", shape, crossings)
		}
	}
}

func TestOscNoiseDeterministic(t *testing.T) {
	for _, shape := range []Shape{WhiteNoise, PinkNoise, BrownNoise, Supersaw} {
		a, b := NewOsc(shape, 42), NewOsc(shape, 42)
		for i := 0; i < 1000; i++ {
			if x, y := a.Next(.01, 0), b.Next(.01, 0); x != y {
				t.Fatalf("shape %d diverged at %d: %v != %v", shape, i, x, y)
			}
		}
	}
	a, b := NewOsc(WhiteNoise, 1), NewOsc(WhiteNoise, 2)
	if a.Next(0, 0) == b.Next(0, 0) {
		t.Error("different seeds gave equal noise")
	}
}

func TestParseShape(t *testing.T) {
	for name, want := range map[string]Shape{"sine": Sine, "SAW": Sawtooth, "tri": Triangle, "pink": PinkNoise} {
		if got, ok := ParseShape(name); !ok || got != want {
			t.Errorf("ParseShape(%q) = %v, %v", name, got, ok)
		}
	}
	if _, ok := ParseShape("bd"); ok {
		t.Error("sample name parsed as oscillator")
	}
}

func TestInterp3(t *testing.T) {
	if got := Interp3(0, 9, 1, 2, 9); got != 1 {
		t.Errorf("t=0: %v", got)
	}
	if got := Interp3(1, 9, 1, 2, 9); math.Abs(got-2) > 1e-12 {
		t.Errorf("t=1: %v", got)
	}
	if got := Interp3(.5, 0, 1, 2, 3); math.Abs(got-1.5) > 1e-12 {
		t.Errorf("linear data: %v", got)
	}
}

func BenchmarkSineOsc(b *testing.B) {
	o := NewOsc(Sine, 0)
	for i := 0; i < b.N; i++ {
		o.Next(1234.0/96000, 0)
	}
}

func BenchmarkSawOsc(b *testing.B) {
	o := NewOsc(Sawtooth, 0)
	for i := 0; i < b.N; i++ {
		o.Next(1234.0/96000, 0)
	}
}
