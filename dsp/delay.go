package dsp

type ConstDelay struct {
	delay float64
	buf   []float64
	i     int
}

func NewConstDelay(delay float64) *ConstDelay {
	return &ConstDelay{delay: delay}
}

func (d *ConstDelay) InitAudio(p Params) {
	n := int(d.delay * p.SampleRate)
	if n < 1 {
		n = 1
	}
	d.buf = make([]float64, n)
	d.i = 0
}

func (d *ConstDelay) Delay(x float64) float64 {
	y := d.buf[d.i]
	d.buf[d.i] = x
	d.i = (d.i + 1) % len(d.buf)
	return y
}

// MaxDelayTime bounds StereoDelay.Time.
const MaxDelayTime = 2.0

// StereoDelay is a feedback delay line.  Time and Feedback may change between
// blocks; the buffer is allocated once.
type StereoDelay struct {
	Params   Params
	Time     float64
	Feedback float64
	l, r     []float64
	i        int
}

func (d *StereoDelay) InitAudio(p Params) {
	d.Params = p
	n := int(MaxDelayTime*p.SampleRate) + 1
	d.l = make([]float64, n)
	d.r = make([]float64, n)
	d.i = 0
	if d.Time <= 0 {
		d.Time = .25
	}
	if d.Feedback <= 0 {
		d.Feedback = .5
	}
}

func (d *StereoDelay) Process(inL, inR float64) (outL, outR float64) {
	n := int(d.Time * d.Params.SampleRate)
	if n < 1 {
		n = 1
	} else if n >= len(d.l) {
		n = len(d.l) - 1
	}
	j := d.i - n
	if j < 0 {
		j += len(d.l)
	}
	outL, outR = d.l[j], d.r[j]
	fb := d.Feedback
	if fb > .98 {
		fb = .98
	}
	d.l[d.i] = inL + outL*fb
	d.r[d.i] = inR + outR*fb
	d.i++
	if d.i == len(d.l) {
		d.i = 0
	}
	return outL, outR
}

func (d *StereoDelay) Clear() {
	for i := range d.l {
		d.l[i], d.r[i] = 0, 0
	}
}
