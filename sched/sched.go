// Package sched turns the command stream into the set of voices sounding in
// each block.  A Scheduler is owned by the render goroutine; none of its
// methods block or synchronize.
package sched

import (
	"container/heap"
	"math"

	"github.com/gordonklaus/orbits/command"
	"github.com/gordonklaus/orbits/dsp"
	"github.com/gordonklaus/orbits/orbit"
	"github.com/gordonklaus/orbits/sample"
	"github.com/gordonklaus/orbits/voice"
	"github.com/pkg/errors"
)

// Sink receives feedback.  It must not block.
type Sink interface {
	Send(command.Feedback)
}

type Config struct {
	// LateTolerance is how many frames behind the cursor an event may
	// start and still be promoted.
	LateTolerance int
	// SoloRamp is how long the background gain takes to settle, and how
	// long a released solo keeps its full gain.
	SoloRamp      float64
	Diagnostics   float64 // seconds between Diagnostics messages
	AnchorLatency float64 // seconds added to the cursor when anchoring a playback
	Seed          uint64
}

// Stats counts what the scheduler did with its input.
type Stats struct {
	Pending         int
	Active          int
	Scheduled       int
	Promoted        int
	Late            int // dropped for arriving behind the cursor
	Dropped         int // muted
	PromotionFailed int
	Choked          int
}

type active struct {
	v        *voice.Voice
	playback string
	source   string
	solo     float64
}

type Scheduler struct {
	p      dsp.Params
	cfg    Config
	out    Sink
	orbits *orbit.Orbits
	store  *sample.Store

	pending events
	seq     uint64
	epochs  map[string]float64 // playback -> backend seconds of its time zero
	cursor  int64
	active  []*active
	solo    *soloTracker
	scratch dsp.Buffer

	sinceDiag, diagFrames int
	headroomMin           float64
	headroomAvg           float64

	stats Stats
}

func New(p dsp.Params, cfg Config, o *orbit.Orbits, out Sink) (*Scheduler, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if o == nil {
		return nil, errors.New("sched: nil orbits")
	}
	if cfg.LateTolerance < 0 {
		return nil, errors.Errorf("sched: negative late tolerance %d", cfg.LateTolerance)
	}
	s := &Scheduler{
		p:           p,
		cfg:         cfg,
		out:         out,
		orbits:      o,
		store:       sample.NewStore(),
		epochs:      map[string]float64{},
		solo:        newSoloTracker(cfg.SoloRamp, p.SampleRate),
		scratch:     make(dsp.Buffer, p.BlockFrames),
		diagFrames:  max(1, p.Frames(cfg.Diagnostics)),
		headroomMin: 1,
		headroomAvg: 1,
	}
	return s, nil
}

// Samples exposes the sample store.
func (s *Scheduler) Samples() *sample.Store { return s.store }

// SetCursor sets the frame commands applied before the next Process are
// anchored against.
func (s *Scheduler) SetCursor(cursor int64) { s.cursor = cursor }

func (s *Scheduler) Apply(c command.Command) {
	switch c := c.(type) {
	case command.ScheduleVoice:
		s.Schedule(c)
	case command.SampleChunk:
		s.store.AddChunk(c.Key, c.Chunk)
	case command.SampleComplete:
		s.store.AddSample(c.Key, c.Sample)
	case command.SampleNotFound:
		s.store.NotFound(c.Key)
	case command.Cleanup:
		s.Cleanup(c.PlaybackID)
	case command.ClearScheduled:
		s.ClearScheduled(c.PlaybackID)
	}
}

// Schedule queues one event.  The first event of a playback anchors its
// clock; the first reference to an unknown sample requests it.
func (s *Scheduler) Schedule(c command.ScheduleVoice) {
	epoch, ok := s.epochs[c.PlaybackID]
	if !ok {
		epoch = float64(s.cursor)/s.p.SampleRate + s.cfg.AnchorLatency
		s.epochs[c.PlaybackID] = epoch
		s.send(command.PlaybackLatency{PlaybackID: c.PlaybackID, BackendTimestampMs: epoch * 1000})
	}
	if !c.Data.Mute && !c.Data.IsSynth() {
		if k := c.Data.SampleKey(); s.store.Request(k) {
			s.send(command.RequestSample{PlaybackID: c.PlaybackID, Key: k})
		}
	}
	e := &event{
		start:    s.frame(epoch + c.StartTime),
		gateEnd:  s.frame(epoch + c.GateEndTime),
		seq:      s.seq,
		playback: c.PlaybackID,
		data:     c.Data,
	}
	if e.gateEnd < e.start {
		e.gateEnd = e.start
	}
	s.seq++
	s.stats.Scheduled++
	heap.Push(&s.pending, e)
}

func (s *Scheduler) frame(seconds float64) int64 {
	return int64(math.Round(seconds * s.p.SampleRate))
}

// Cleanup stops a playback.  Its pending events are dropped and its clock is
// forgotten; voices already sounding finish their release.
func (s *Scheduler) Cleanup(playback string) { s.forget(playback) }

// ClearScheduled drops a playback's pending events so it can be rescheduled
// from its next event, which re-anchors its clock.  It does exactly what
// Cleanup does; the two commands differ only in what the sender intends.
func (s *Scheduler) ClearScheduled(playback string) { s.forget(playback) }

func (s *Scheduler) forget(playback string) {
	s.pending.purge(playback)
	delete(s.epochs, playback)
}

// ReportHeadroom records the renderer's latest headroom figures for the next
// Diagnostics message.
func (s *Scheduler) ReportHeadroom(min, avg float64) {
	s.headroomMin, s.headroomAvg = min, avg
}

func (s *Scheduler) Stats() Stats {
	st := s.stats
	st.Pending = len(s.pending)
	st.Active = len(s.active)
	return st
}

// ActiveFor counts the sounding voices of one playback.
func (s *Scheduler) ActiveFor(playback string) int {
	n := 0
	for _, a := range s.active {
		if a.playback == playback {
			n++
		}
	}
	return n
}

// BackgroundGain is the gain currently applied to voices that are not soloed.
func (s *Scheduler) BackgroundGain() float64 { return s.solo.gain() }

// Process renders every voice sounding in [cursor, cursor+BlockFrames) into
// its bus.
func (s *Scheduler) Process(cursor int64) {
	n := s.p.BlockFrames
	s.cursor = cursor
	s.promote(cursor, cursor+int64(n))

	s.solo.begin()
	for _, a := range s.active {
		if a.solo > 0 {
			s.solo.mark(a.source, a.solo)
		}
	}
	from, to := s.solo.end(cursor, float64(n)/s.p.SampleRate)

	c := voice.Context{BlockStart: cursor, Frames: n, Scratch: s.scratch, Orbits: s.orbits}
	for i := 0; i < len(s.active); {
		a := s.active[i]
		c.Bus = s.orbits.Bus(a.v.Orbit())
		c.GainFrom, c.GainTo = from, to
		if s.solo.soloed(a.source) {
			c.GainFrom, c.GainTo = 1, 1
		}
		if a.v.Render(&c) {
			i++
			continue
		}
		s.remove(i)
	}

	s.sinceDiag += n
	if s.sinceDiag >= s.diagFrames {
		s.sinceDiag = 0
		s.diagnose()
	}
}

func (s *Scheduler) promote(cursor, end int64) {
	for e := s.pending.peek(); e != nil && e.start < end; e = s.pending.peek() {
		heap.Pop(&s.pending)
		if e.start < cursor-int64(s.cfg.LateTolerance) {
			s.stats.Late++
			continue
		}
		if e.data.Mute {
			s.stats.Dropped++
			continue
		}
		var smp *sample.Sample
		if !e.data.IsSynth() {
			var ok bool
			if smp, ok = s.store.Complete(e.data.SampleKey()); !ok {
				s.stats.PromotionFailed++
				continue
			}
		}
		v, err := voice.New(e.data, e.start, e.gateEnd, smp, s.p, s.cfg.Seed+e.seq*0x9e3779b97f4a7c15)
		if err != nil {
			s.stats.PromotionFailed++
			continue
		}
		s.orbits.Bus(v.Orbit()).Apply(e.data.BusSettings())
		if g := v.Cut(); g != 0 && v.IsSample() {
			s.choke(g)
		}
		source := e.data.Source
		if source == "" {
			source = e.playback
		}
		s.active = append(s.active, &active{v: v, playback: e.playback, source: source, solo: e.data.Solo})
		s.stats.Promoted++
	}
}

// choke hard-stops every active voice in cut group g.
func (s *Scheduler) choke(g int) {
	for i := 0; i < len(s.active); {
		if s.active[i].v.Cut() == g {
			s.remove(i)
			s.stats.Choked++
			continue
		}
		i++
	}
}

func (s *Scheduler) remove(i int) {
	last := len(s.active) - 1
	s.active[i] = s.active[last]
	s.active[last] = nil
	s.active = s.active[:last]
}

func (s *Scheduler) diagnose() { s.send(s.snapshot()) }

func (s *Scheduler) snapshot() command.Diagnostics {
	d := command.Diagnostics{
		RenderHeadroom:    s.headroomMin,
		RenderHeadroomAvg: s.headroomAvg,
		ActiveVoices:      len(s.active),
		PendingEvents:     len(s.pending),
		OrbitCount:        s.orbits.Len(),
	}
	for i, b := range s.orbits.Buses {
		if b.Active() {
			d.ActiveOrbits |= 1 << uint(i)
		}
	}
	return d
}

func (s *Scheduler) send(f command.Feedback) {
	if s.out != nil {
		s.out.Send(f)
	}
}
