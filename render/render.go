// Package render produces one block of interleaved 16-bit stereo PCM:
// clear buses, render voices, mix buses, limit, soft clip, interleave.
package render

import (
	"math"
	"time"

	"github.com/gordonklaus/orbits/dsp"
	"github.com/gordonklaus/orbits/orbit"
	"github.com/gordonklaus/orbits/sched"
	"github.com/pkg/errors"
)

const (
	limitCeiling = .98
	limitAttack  = .002
	limitRelease = .15

	headroomAlpha = .05
)

// Clock returns the current time.  Tests substitute a fake.
type Clock func() time.Time

type Renderer struct {
	Params   dsp.Params
	Limiter  *dsp.Limiter
	sched    *sched.Scheduler
	orbits   *orbit.Orbits
	now      Clock
	budget   time.Duration
	headroom *Headroom
}

// New builds a renderer.  The headroom minimum covers roughly the last
// second of blocks.
func New(p dsp.Params, s *sched.Scheduler, o *orbit.Orbits, now Clock) (*Renderer, error) {
	if s == nil || o == nil {
		return nil, errors.New("render: scheduler and orbits are required")
	}
	if now == nil {
		now = time.Now
	}
	r := &Renderer{
		Limiter:  dsp.NewLimiter(limitCeiling, limitAttack, limitRelease),
		sched:    s,
		orbits:   o,
		now:      now,
		budget:   time.Duration(float64(p.BlockFrames) / p.SampleRate * float64(time.Second)),
		headroom: NewHeadroom(int(p.SampleRate)/p.BlockFrames+1, headroomAlpha),
	}
	dsp.Init(r, p)
	return r, nil
}

// RenderBlock renders the block starting at cursor into out, which must
// hold 2*BlockFrames samples.
func (r *Renderer) RenderBlock(cursor int64, out []int16) {
	start := r.now()
	n := r.Params.BlockFrames

	r.orbits.Clear()
	r.sched.Process(cursor)
	r.orbits.ProcessAndMix(n)
	for i := 0; i < n; i++ {
		l, rr := r.Limiter.Limit(r.orbits.MixL[i], r.orbits.MixR[i])
		out[2*i] = PCM16(dsp.SoftClip(l))
		out[2*i+1] = PCM16(dsp.SoftClip(rr))
	}

	r.headroom.Add(1 - float64(r.now().Sub(start))/float64(r.budget))
	r.sched.ReportHeadroom(r.headroom.Min(), r.headroom.Avg())
}

func (r *Renderer) Headroom() (min, avg float64) {
	return r.headroom.Min(), r.headroom.Avg()
}

// PCM16 converts a sample in [-1, 1] to 16 bits.
func PCM16(x float64) int16 {
	return int16(math.Round(math.Max(-1, math.Min(1, x)) * math.MaxInt16))
}
