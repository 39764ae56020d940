package dsp

import (
	"github.com/ktye/fft"
	"github.com/pkg/errors"
)

// Convolver is a uniformly partitioned FFT convolution with a fixed impulse
// response.  Output lags input by one partition.
type Convolver struct {
	fft   fft.FFT
	part  int
	parts [][]complex128 // spectra of the impulse response partitions
	fdl   [][]complex128 // frequency-domain delay line of input spectra
	head  int
	in    []float64 // previous and current input partition
	out   []float64
	acc   []complex128
	n     int
	scale float64
}

// NewConvolver prepares ir for convolution.  part is rounded up to a power of two.
func NewConvolver(ir []float64, part int) (*Convolver, error) {
	if len(ir) == 0 {
		return nil, errors.New("dsp: empty impulse response")
	}
	p := 1
	for p < part {
		p <<= 1
	}
	f, err := fft.New(2 * p)
	if err != nil {
		return nil, errors.Wrap(err, "dsp: convolver fft")
	}
	c := &Convolver{
		fft:  f,
		part: p,
		in:   make([]float64, 2*p),
		out:  make([]float64, p),
		acc:  make([]complex128, 2*p),
	}

	// Measure the round-trip gain once instead of relying on the
	// inverse transform's normalisation convention.
	probe := make([]complex128, 2*p)
	probe[0] = 1
	probe = f.Inverse(f.Transform(probe))
	c.scale = 1 / real(probe[0])

	for off := 0; off < len(ir); off += p {
		h := make([]complex128, 2*p)
		for i := 0; i < p && off+i < len(ir); i++ {
			h[i] = complex(ir[off+i], 0)
		}
		c.parts = append(c.parts, f.Transform(h))
		c.fdl = append(c.fdl, make([]complex128, 2*p))
	}
	return c, nil
}

// Latency is the delay in samples added by the partitioning.
func (c *Convolver) Latency() int { return c.part }

func (c *Convolver) Filter(x float64) float64 {
	y := c.out[c.n]
	c.in[c.part+c.n] = x
	c.n++
	if c.n == c.part {
		c.n = 0
		c.hop()
	}
	return y
}

// hop runs one overlap-save step over the last two input partitions.
func (c *Convolver) hop() {
	c.head--
	if c.head < 0 {
		c.head = len(c.fdl) - 1
	}
	x := c.fdl[c.head]
	for i, v := range c.in {
		x[i] = complex(v, 0)
	}
	copy(x, c.fft.Transform(x))
	copy(c.in, c.in[c.part:])

	for i := range c.acc {
		c.acc[i] = 0
	}
	for k, h := range c.parts {
		x := c.fdl[(c.head+k)%len(c.fdl)]
		for i := range c.acc {
			c.acc[i] += x[i] * h[i]
		}
	}
	y := c.fft.Inverse(c.acc)
	for i := range c.out {
		c.out[i] = real(y[c.part+i]) * c.scale
	}
}
