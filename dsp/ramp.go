package dsp

// Easing maps progress in [0,1] to [0,1].
type Easing func(float64) float64

func Linear(x float64) float64 { return clamp01(x) }

// Smoothstep eases in and out with zero slope at both ends.
func Smoothstep(x float64) float64 {
	x = clamp01(x)
	return x * x * (3 - 2*x)
}

// Ramp eases a scalar toward a target over a fixed duration.  Retargeting
// starts a new ramp from the current value.
type Ramp struct {
	Duration float64
	Ease     Easing

	current, from, target float64
	t                     float64
}

func NewRamp(value, duration float64, ease Easing) *Ramp {
	if ease == nil {
		ease = Linear
	}
	return &Ramp{Duration: duration, Ease: ease, current: value, from: value, target: value, t: duration}
}

func (r *Ramp) Value() float64  { return r.current }
func (r *Ramp) Target() float64 { return r.target }

func (r *Ramp) Set(target float64) {
	if target == r.target {
		return
	}
	r.from, r.target, r.t = r.current, target, 0
}

// Advance moves the ramp forward dt seconds and returns the new value.
func (r *Ramp) Advance(dt float64) float64 {
	r.t += dt
	if r.t >= r.Duration {
		r.t = r.Duration
		r.current = r.target
		return r.current
	}
	r.current = r.from + (r.target-r.from)*r.Ease(r.t/r.Duration)
	return r.current
}
