package dsp

import "math"

// A brick-wall peak limiter.  The gain drops at once when a peak would exceed
// the ceiling and recovers over the release time.  The signal is delayed by
// the attack time so the gain is already down when the peak comes out.
type Limiter struct {
	limit   float64
	attack  float64
	release float64
	up      float64
	gain    float64
	hold    int
	holdLen int
	delayL  *ConstDelay
	delayR  *ConstDelay
}

func NewLimiter(limit, attack, release float64) *Limiter {
	return &Limiter{
		limit:   limit,
		attack:  attack,
		release: release,
		delayL:  NewConstDelay(attack),
		delayR:  NewConstDelay(attack),
		gain:    1,
	}
}

func (c *Limiter) InitAudio(p Params) {
	c.up = 1 - coef(c.release, p.SampleRate)
	c.delayL.InitAudio(p)
	c.delayR.InitAudio(p)
	c.holdLen = len(c.delayL.buf)
	c.gain = 1
}

func (c *Limiter) Limit(l, r float64) (float64, float64) {
	peak := math.Max(math.Abs(l), math.Abs(r))
	if peak > c.limit {
		if target := c.limit / peak; target < c.gain {
			c.gain = target
		}
		c.hold = c.holdLen
	} else if c.hold > 0 {
		c.hold--
	} else {
		c.gain += (1 - c.gain) * c.up
	}
	return c.gain * c.delayL.Delay(l), c.gain * c.delayR.Delay(r)
}

// Gain is the gain applied to the most recent sample.
func (c *Limiter) Gain() float64 { return c.gain }
