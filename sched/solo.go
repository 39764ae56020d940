package sched

import "github.com/gordonklaus/orbits/dsp"

// soloTracker remembers which sources are soloed.  A source that stops
// soloing keeps its full gain for one ramp duration while the background
// eases back, so the mix never jumps in the middle of a phrase.
type soloTracker struct {
	sources map[string]*soloState
	hold    int64
	ramp    *dsp.Ramp
}

type soloState struct {
	strength  float64
	seen      bool
	releaseAt int64 // -1 while the source is still soloing
}

// newSoloTracker returns a tracker whose background gain settles over
// seconds, which is also how long a released source stays soloed.
func newSoloTracker(seconds, sampleRate float64) *soloTracker {
	return &soloTracker{
		sources: map[string]*soloState{},
		hold:    int64(seconds * sampleRate),
		ramp:    dsp.NewRamp(1, seconds, dsp.Smoothstep),
	}
}

func (t *soloTracker) begin() {
	for _, s := range t.sources {
		s.seen = false
	}
}

// mark records that source is soloing with the given strength this block.
func (t *soloTracker) mark(source string, strength float64) {
	s, ok := t.sources[source]
	if !ok {
		s = &soloState{}
		t.sources[source] = s
	}
	if !s.seen || strength > s.strength {
		s.strength = strength
	}
	s.seen = true
	s.releaseAt = -1
}

// end expires released sources and returns the background gain at the
// start and end of the block.  Only sources still soloing set the target;
// released ones are merely kept at full gain until they expire.
func (t *soloTracker) end(now int64, seconds float64) (from, to float64) {
	loudest, soloing := 0.0, false
	for name, s := range t.sources {
		if !s.seen {
			if s.releaseAt < 0 {
				s.releaseAt = now + t.hold
			}
			if now >= s.releaseAt {
				delete(t.sources, name)
			}
			continue
		}
		soloing = true
		if s.strength > loudest {
			loudest = s.strength
		}
	}
	target := 1.0
	if soloing {
		target = 1 - .95*loudest
	}
	t.ramp.Set(target)
	from = t.ramp.Value()
	to = t.ramp.Advance(seconds)
	return from, to
}

func (t *soloTracker) soloed(source string) bool {
	_, ok := t.sources[source]
	return ok
}

func (t *soloTracker) gain() float64 { return t.ramp.Value() }
