package dsp

import "math"

// ADSR holds envelope times in seconds and the sustain level.
type ADSR struct {
	Attack, Decay, Sustain, Release float64
}

type Stage int

const (
	Attack Stage = iota
	Decay
	Sustain
	Release
	Done
)

func (s Stage) String() string {
	switch s {
	case Attack:
		return "attack"
	case Decay:
		return "decay"
	case Sustain:
		return "sustain"
	case Release:
		return "release"
	}
	return "done"
}

// Env is a linear ADSR envelope counted in frames.  Release can be entered
// from any stage and always ramps down from the level reached so far.
type Env struct {
	attack, decay, release int
	sustain                float64

	stage Stage
	pos   int
	from  float64
	level float64
}

func NewEnv(attack, decay int, sustain float64, release int) *Env {
	e := &Env{}
	e.SetFrames(attack, decay, sustain, release)
	return e
}

// Set converts a in seconds to frames and restarts the envelope.
func (e *Env) Set(a ADSR, p Params) {
	e.SetFrames(p.Frames(a.Attack), p.Frames(a.Decay), a.Sustain, p.Frames(a.Release))
}

func (e *Env) SetFrames(attack, decay int, sustain float64, release int) {
	e.attack, e.decay, e.release = attack, decay, release
	e.sustain = clamp01(sustain)
	e.stage, e.pos = Attack, 0
	e.settle()
	e.level = clamp01(e.value())
}

func (e *Env) Stage() Stage   { return e.stage }
func (e *Env) Level() float64 { return e.level }
func (e *Env) Done() bool     { return e.stage == Done }

// Release starts the release stage from the last level returned.
func (e *Env) Release() {
	if e.stage >= Release {
		return
	}
	e.from = e.level
	e.stage, e.pos = Release, 0
	e.settle()
}

// Next returns the level for the current frame and advances by one.
func (e *Env) Next() float64 {
	e.settle()
	e.level = clamp01(e.value())
	if e.stage != Sustain && e.stage != Done {
		e.pos++
	}
	return e.level
}

// Advance skips n frames and returns the level at the new position.
func (e *Env) Advance(n int) float64 {
	for n > 0 {
		e.settle()
		l := e.length()
		if l < 0 {
			break
		}
		k := l - e.pos
		if k > n {
			k = n
		}
		e.pos += k
		n -= k
	}
	e.settle()
	e.level = clamp01(e.value())
	return e.level
}

// length of the current stage in frames, or -1 for stages that only end externally.
func (e *Env) length() int {
	switch e.stage {
	case Attack:
		return e.attack
	case Decay:
		return e.decay
	case Release:
		return e.release
	}
	return -1
}

func (e *Env) settle() {
	for {
		l := e.length()
		if l < 0 || e.pos < l {
			return
		}
		switch e.stage {
		case Attack:
			e.stage = Decay
		case Decay:
			e.stage = Sustain
		case Release:
			e.stage = Done
		}
		e.pos = 0
	}
}

func (e *Env) value() float64 {
	switch e.stage {
	case Attack:
		return float64(e.pos) / float64(e.attack)
	case Decay:
		return 1 - (1-e.sustain)*float64(e.pos)/float64(e.decay)
	case Sustain:
		return e.sustain
	case Release:
		return e.from * (1 - float64(e.pos)/float64(e.release))
	}
	return 0
}

func clamp01(x float64) float64 {
	return math.Max(0, math.Min(1, x))
}

// Follower is a one-pole attack/release smoother, used for envelope
// detection and gain smoothing.
type Follower struct {
	Params              Params
	attackTime, release float64
	up, down            float64
	x                   float64
}

func NewFollower(attackTime, releaseTime float64) *Follower {
	return &Follower{attackTime: attackTime, release: releaseTime}
}

func (f *Follower) InitAudio(p Params) {
	f.Params = p
	f.SetTimes(f.attackTime, f.release)
}

func (f *Follower) SetTimes(attack, release float64) {
	f.attackTime, f.release = attack, release
	f.up = coef(attack, f.Params.SampleRate)
	f.down = coef(release, f.Params.SampleRate)
}

// coef is the per-sample multiplier that covers 99% of a step in t seconds.
func coef(t, sampleRate float64) float64 {
	if t <= 0 || sampleRate <= 0 {
		return 0
	}
	return math.Pow(.01, 1/(sampleRate*t))
}

func (f *Follower) Follow(target float64) float64 {
	c := f.down
	if target > f.x {
		c = f.up
	}
	f.x = target + (f.x-target)*c
	return f.x
}

func (f *Follower) Value() float64  { return f.x }
func (f *Follower) Reset(x float64) { f.x = x }
