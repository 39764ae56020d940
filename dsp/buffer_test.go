package dsp

import "testing"

func TestBufferOps(t *testing.T) {
	x := Buffer{1, -2, 3}
	y := Buffer{.5, .5, .5}
	z := make(Buffer, 3)

	z.Add(x, y)
	if z[1] != -1.5 {
		t.Errorf("Add: got %v", z)
	}
	z.Mul(x, y)
	if z[2] != 1.5 {
		t.Errorf("Mul: got %v", z)
	}
	z.MulX(x, 2).AddMulX(y, 2)
	if z[0] != 3 {
		t.Errorf("MulX/AddMulX: got %v", z)
	}
	if p := x.Peak(); p != 3 {
		t.Errorf("Peak = %v, want 3", p)
	}
	if z.Zero().Peak() != 0 {
		t.Error("Zero left data behind")
	}
}
