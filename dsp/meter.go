package dsp

import "math"

// AmpMeter is a sliding-window RMS meter.
type AmpMeter struct {
	windowSize float64
	buf        Buffer
	i          int
	sum        float64
	amp        float64
}

func NewAmpMeter(windowSize float64) *AmpMeter {
	return &AmpMeter{windowSize: windowSize}
}

func (a *AmpMeter) InitAudio(p Params) {
	n := int(p.SampleRate * a.windowSize)
	if n < 1 {
		n = 1
	}
	a.buf = make(Buffer, n)
	a.i, a.sum, a.amp = 0, 0, 0
}

// Amplitude feeds x through the window and returns the RMS amplitude.
func (a *AmpMeter) Amplitude(x Buffer) float64 {
	for _, x := range x {
		a.sum -= a.buf[a.i]
		a.buf[a.i] = x * x
		a.sum += a.buf[a.i]
		a.i = (a.i + 1) % len(a.buf)
	}
	if a.sum < 0 {
		a.sum = 0
	}
	a.amp = math.Sqrt(a.sum / float64(len(a.buf)))
	return a.amp
}

// Level is the value returned by the last call to Amplitude.
func (a *AmpMeter) Level() float64 { return a.amp }
