package dsp

import (
	"math"
	"testing"
)

func TestConvolverDelaysImpulse(t *testing.T) {
	ir := []float64{0, 0, .5, 0, 0, 0, 0, 0, 0, .25}
	c, err := NewConvolver(ir, 3)
	if err != nil {
		t.Fatal(err)
	}
	if c.Latency() != 4 {
		t.Fatalf("latency = %d, want 4", c.Latency())
	}
	out := make([]float64, 32)
	for i := range out {
		x := 0.0
		if i == 0 {
			x = 1
		}
		out[i] = c.Filter(x)
	}
	for i, y := range out {
		want := 0.0
		switch i {
		case 2 + 4:
			want = .5
		case 9 + 4:
			want = .25
		}
		if math.Abs(y-want) > 1e-9 {
			t.Errorf("out[%d] = %v, want %v", i, y, want)
		}
	}
}

func TestConvolverEmpty(t *testing.T) {
	if _, err := NewConvolver(nil, 64); err == nil {
		t.Error("expected error for empty impulse response")
	}
}

func TestReverbDeterministicTail(t *testing.T) {
	p := Params{SampleRate: 8000, BlockFrames: 64}
	render := func() []float64 {
		r := &Reverb{Seed: 7, Size: .3}
		Init(r, p)
		out := make([]float64, 16000)
		for i := range out {
			x := 0.0
			if i < 10 {
				x = 1
			}
			l, rr := r.Process(x)
			out[i] = l + rr
		}
		return out
	}
	a, b := render(), render()
	energy := 0.0
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("sample %d differs between runs", i)
		}
		if math.IsNaN(a[i]) || math.IsInf(a[i], 0) {
			t.Fatalf("sample %d not finite", i)
		}
		energy += a[i] * a[i]
	}
	if energy == 0 {
		t.Error("reverb produced no tail")
	}
	tail := 0.0
	for _, x := range a[len(a)-800:] {
		tail = math.Max(tail, math.Abs(x))
	}
	if tail > .5 {
		t.Errorf("tail did not decay: %v", tail)
	}
}
