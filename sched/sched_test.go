package sched

import (
	"container/heap"
	"math"
	"testing"

	"github.com/gordonklaus/orbits/command"
	"github.com/gordonklaus/orbits/dsp"
	"github.com/gordonklaus/orbits/orbit"
	"github.com/gordonklaus/orbits/sample"
	"github.com/gordonklaus/orbits/voice"
)

var testParams = dsp.Params{SampleRate: 1000, BlockFrames: 100}

type recorder struct {
	fb []command.Feedback
}

func (r *recorder) Send(f command.Feedback) { r.fb = append(r.fb, f) }

func (r *recorder) count(match func(command.Feedback) bool) int {
	n := 0
	for _, f := range r.fb {
		if match(f) {
			n++
		}
	}
	return n
}

func isRequest(f command.Feedback) bool { _, ok := f.(command.RequestSample); return ok }
func isLatency(f command.Feedback) bool { _, ok := f.(command.PlaybackLatency); return ok }

func newScheduler(t *testing.T) (*Scheduler, *recorder) {
	t.Helper()
	o, err := orbit.New(testParams, orbit.Config{Count: 2, Seed: 1})
	if err != nil {
		t.Fatal(err)
	}
	r := &recorder{}
	s, err := New(testParams, Config{
		LateTolerance: testParams.BlockFrames,
		SoloRamp:      2,
		Diagnostics:   .05,
		Seed:          1,
	}, o, r)
	if err != nil {
		t.Fatal(err)
	}
	return s, r
}

func synth(playback string, start, gateEnd float64) command.ScheduleVoice {
	d := voice.Default()
	d.Sound = "sine"
	d.Freq = 220
	return command.ScheduleVoice{PlaybackID: playback, StartTime: start, GateEndTime: gateEnd, Data: d}
}

func sampled(playback, sound string, start float64) command.ScheduleVoice {
	d := voice.Default()
	d.Sound = sound
	return command.ScheduleVoice{PlaybackID: playback, StartTime: start, GateEndTime: start + 100, Data: d}
}

func constSample(n int) *sample.Sample {
	s := &sample.Sample{SampleRate: testParams.SampleRate, Data: make([]float32, n)}
	for i := range s.Data {
		s.Data[i] = .5
	}
	return s
}

func TestHeapOrder(t *testing.T) {
	var h events
	for i, start := range []int64{30, 10, 20, 10, 0} {
		heap.Push(&h, &event{start: start, seq: uint64(i)})
	}
	var got []int64
	var seqs []uint64
	for h.Len() > 0 {
		e := heap.Pop(&h).(*event)
		got = append(got, e.start)
		seqs = append(seqs, e.seq)
	}
	want := []int64{0, 10, 10, 20, 30}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order %v, want %v", got, want)
		}
	}
	if seqs[1] != 1 || seqs[2] != 3 {
		t.Errorf("equal starts not in arrival order: %v", seqs)
	}
}

func TestPromotionOrder(t *testing.T) {
	s, _ := newScheduler(t)
	s.Schedule(synth("p", .35, 10))
	s.Schedule(synth("p", .05, 10))
	s.Schedule(synth("p", .25, 10))
	for _, test := range []struct {
		cursor   int64
		promoted int
	}{
		{0, 1},
		{100, 1},
		{200, 2},
		{300, 3},
	} {
		s.Process(test.cursor)
		if got := s.Stats().Promoted; got != test.promoted {
			t.Errorf("after block %d: promoted %d, want %d", test.cursor, got, test.promoted)
		}
	}
	if s.Stats().Pending != 0 {
		t.Errorf("pending %d", s.Stats().Pending)
	}
}

func TestLateDrop(t *testing.T) {
	s, _ := newScheduler(t)
	s.Schedule(synth("p", .05, 10))
	s.Schedule(synth("p", .25, 10))
	s.Process(300)
	st := s.Stats()
	if st.Late != 1 || st.Promoted != 1 {
		t.Errorf("late %d promoted %d, want 1 and 1", st.Late, st.Promoted)
	}
}

func TestRequestSampleOnce(t *testing.T) {
	s, r := newScheduler(t)
	for i := 0; i < 3; i++ {
		s.Schedule(sampled("p", "bd", float64(i)*.01))
	}
	s.Schedule(sampled("q", "bd", 0))
	if n := r.count(isRequest); n != 1 {
		t.Errorf("%d sample requests, want 1", n)
	}
	if n := r.count(isLatency); n != 2 {
		t.Errorf("%d latency probes, want 2", n)
	}

	s.Process(0)
	if st := s.Stats(); st.PromotionFailed != 4 || st.Active != 0 {
		t.Errorf("failed %d active %d before delivery", st.PromotionFailed, st.Active)
	}

	s.Apply(command.SampleComplete{Key: sample.Key{Sound: "bd"}, Sample: constSample(1000)})
	s.Schedule(sampled("p", "bd", .15))
	s.Process(100)
	if st := s.Stats(); st.Active != 1 {
		t.Errorf("active %d after delivery", st.Active)
	}
	if n := r.count(isRequest); n != 1 {
		t.Errorf("%d sample requests after delivery", n)
	}
}

func TestMutedDropped(t *testing.T) {
	s, r := newScheduler(t)
	ev := sampled("p", "sn", 0)
	ev.Data.Mute = true
	s.Schedule(ev)
	s.Process(0)
	if st := s.Stats(); st.Dropped != 1 || st.Active != 0 {
		t.Errorf("dropped %d active %d", st.Dropped, st.Active)
	}
	if n := r.count(isRequest); n != 0 {
		t.Errorf("muted event requested a sample")
	}
}

func TestCleanupLetsVoicesRing(t *testing.T) {
	s, _ := newScheduler(t)
	s.Schedule(synth("p", 0, 10))
	s.Schedule(synth("p", .5, 10))
	s.Schedule(synth("other", .5, 10))
	s.Process(0)
	if s.ActiveFor("p") != 1 {
		t.Fatalf("active %d", s.ActiveFor("p"))
	}
	s.Cleanup("p")
	if s.ActiveFor("p") != 1 {
		t.Errorf("cleanup changed active count to %d", s.ActiveFor("p"))
	}
	if st := s.Stats(); st.Pending != 1 {
		t.Errorf("pending %d, want only the other playback's event", st.Pending)
	}
	for c := int64(100); c < 1000; c += 100 {
		s.Process(c)
	}
	if s.ActiveFor("p") != 1 {
		t.Errorf("purged event was promoted")
	}
}

func TestStopReanchors(t *testing.T) {
	for name, stop := range map[string]func(*Scheduler, string){
		"cleanup":         (*Scheduler).Cleanup,
		"clear scheduled": (*Scheduler).ClearScheduled,
	} {
		s, r := newScheduler(t)
		s.Schedule(synth("p", 0, 1))
		s.Schedule(synth("q", 0, 1))
		stop(s, "p")
		if st := s.Stats(); st.Pending != 1 {
			t.Fatalf("%s: %d pending, want only q's event", name, st.Pending)
		}
		s.SetCursor(1000)
		s.Schedule(synth("p", 0, 1))
		if n := r.count(isLatency); n != 3 {
			t.Errorf("%s: %d latency messages, want 3", name, n)
		}
		if st := s.Stats(); st.Pending != 2 {
			t.Errorf("%s: %d pending after reschedule, want 2", name, st.Pending)
		}
		for _, e := range s.pending {
			if e.playback == "p" && e.start != 1000 {
				t.Errorf("%s: re-anchored start %d, want 1000", name, e.start)
			}
		}
	}
}

func TestCutGroup(t *testing.T) {
	s, _ := newScheduler(t)
	s.Apply(command.SampleComplete{Key: sample.Key{Sound: "hh"}, Sample: constSample(10000)})
	for _, start := range []float64{0, .15, .25} {
		ev := sampled("p", "hh", start)
		ev.Data.Cut = 1
		s.Schedule(ev)
	}
	ev := sampled("p", "hh", 0)
	s.Schedule(ev)

	s.Process(0)
	if st := s.Stats(); st.Active != 2 {
		t.Fatalf("active %d, want 2", st.Active)
	}
	s.Process(100)
	s.Process(200)
	st := s.Stats()
	if st.Active != 2 || st.Choked != 2 {
		t.Errorf("active %d choked %d, want 2 and 2", st.Active, st.Choked)
	}
	n := 0
	for _, a := range s.active {
		if a.v.Cut() == 1 {
			n++
		}
	}
	if n != 1 {
		t.Errorf("%d voices in cut group", n)
	}
}

func TestSoloBackgroundGain(t *testing.T) {
	s, _ := newScheduler(t)
	a := synth("pa", 0, 3)
	a.Data.Source = "A"
	a.Data.Solo = 1
	b := synth("pb", 0, 100)
	b.Data.Source = "B"
	b.Data.Orbit = 1
	s.Schedule(a)
	s.Schedule(b)

	cursor := int64(0)
	run := func(seconds float64) {
		for end := cursor + int64(seconds*testParams.SampleRate); cursor < end; cursor += int64(testParams.BlockFrames) {
			s.Process(cursor)
		}
	}
	near := func(got, want float64) bool { return math.Abs(got-want) < 1e-6 }

	run(2.5)
	if g := s.BackgroundGain(); !near(g, .05) {
		t.Errorf("gain with A soloed = %v, want .05", g)
	}
	for s.ActiveFor("pa") > 0 {
		s.Process(cursor)
		cursor += int64(testParams.BlockFrames)
	}
	run(1)
	if g := s.BackgroundGain(); g <= .05 || g >= 1 {
		t.Errorf("gain halfway through ramp = %v, want between .05 and 1", g)
	}
	if !s.solo.soloed("A") {
		t.Error("A stopped counting as soloed before the ramp ended")
	}
	run(1)
	if g := s.BackgroundGain(); !near(g, 1) {
		t.Errorf("gain one ramp after A stopped = %v, want 1", g)
	}
	s.Process(cursor)
	if s.solo.soloed("A") {
		t.Error("A still soloed after the ramp")
	}
}

func TestDiagnostics(t *testing.T) {
	s, r := newScheduler(t)
	s.Schedule(synth("p", 0, 10))
	s.ReportHeadroom(.5, .8)
	s.Process(0)
	var d command.Diagnostics
	found := false
	for _, f := range r.fb {
		if f, ok := f.(command.Diagnostics); ok {
			d, found = f, true
		}
	}
	if !found {
		t.Fatal("no diagnostics")
	}
	if d.ActiveVoices != 1 || d.RenderHeadroom != .5 || d.RenderHeadroomAvg != .8 || d.OrbitCount != 2 {
		t.Errorf("diagnostics %+v", d)
	}
}

func TestSnapshotDoesNotAllocate(t *testing.T) {
	o, err := orbit.New(testParams, orbit.Config{Count: 8, Seed: 1})
	if err != nil {
		t.Fatal(err)
	}
	s, err := New(testParams, Config{Diagnostics: .05}, o, nil)
	if err != nil {
		t.Fatal(err)
	}
	var d command.Diagnostics
	if n := testing.AllocsPerRun(100, func() { d = s.snapshot() }); n != 0 {
		t.Errorf("snapshot allocates %v times", n)
	}
	if d.OrbitCount != 8 || d.ActiveOrbits != 0 {
		t.Errorf("snapshot %+v", d)
	}
}
