package dsp

import "math"

// Buffer is one block of mono audio.
type Buffer []float64

func (a *Buffer) InitAudio(p Params) {
	*a = make(Buffer, p.BlockFrames)
}

func (z Buffer) Zero() Buffer {
	for i := range z {
		z[i] = 0
	}
	return z
}

func (z Buffer) Add(x Buffer, y Buffer) Buffer {
	for i := range z {
		z[i] = x[i] + y[i]
	}
	return z
}

func (z Buffer) Mul(x Buffer, y Buffer) Buffer {
	for i := range z {
		z[i] = x[i] * y[i]
	}
	return z
}

func (z Buffer) MulX(x Buffer, f float64) Buffer {
	for i := range z {
		z[i] = x[i] * f
	}
	return z
}

// AddMulX accumulates x*f into z.
func (z Buffer) AddMulX(x Buffer, f float64) Buffer {
	for i := range z {
		z[i] += x[i] * f
	}
	return z
}

func (z Buffer) Peak() float64 {
	p := 0.0
	for _, x := range z {
		p = math.Max(p, math.Abs(x))
	}
	return p
}
