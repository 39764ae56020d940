package orbits

import (
	"context"
	"testing"

	"github.com/gordonklaus/orbits/command"
	"github.com/gordonklaus/orbits/sample"
	"github.com/gordonklaus/orbits/voice"
)

func testConfig() Config {
	c := DefaultConfig()
	c.SampleRate = 8000
	c.BlockFrames = 128
	c.LateTolerance = 128
	c.Orbits = 2
	c.Seed = 7
	c.AnchorLatency = 0
	return c
}

func score() []command.Command {
	var cmds []command.Command
	smp := &sample.Sample{SampleRate: 8000, Data: make([]float32, 2000)}
	for i := range smp.Data {
		smp.Data[i] = float32(i%50) / 50
	}
	cmds = append(cmds, command.SampleComplete{Key: sample.Key{Sound: "bd"}, Sample: smp})
	for i, sound := range []string{"supersaw", "pink", "bd", "square", "brown", "bd"} {
		d := voice.Default()
		d.Sound = sound
		d.Freq = 110 * float64(i+1)
		d.Orbit = i % 2
		d.Delay = voice.DelaySend{Amount: .3, Time: .05, Feedback: .4}
		d.Room = voice.RoomSend{Amount: .4, Size: .7}
		d.Filters = []voice.FilterDef{{Kind: voice.Lowpass, Cutoff: 2000, Q: .7}}
		d.Pan = float64(i) / 5
		cmds = append(cmds, command.ScheduleVoice{
			PlaybackID:  "song",
			StartTime:   float64(i) * .05,
			GateEndTime: float64(i)*.05 + .1,
			Data:        d,
		})
	}
	return cmds
}

func renderAll(t *testing.T, blocks int) []int16 {
	t.Helper()
	e, err := New(testConfig())
	if err != nil {
		t.Fatal(err)
	}
	for _, c := range score() {
		if err := e.TrySend(c); err != nil {
			t.Fatal(err)
		}
	}
	var pcm []int16
	out := make([]int16, 2*e.BlockFrames())
	for b := 0; b < blocks; b++ {
		e.RenderBlock(int64(b*e.BlockFrames()), out)
		pcm = append(pcm, out...)
	}
	return pcm
}

func TestDeterministic(t *testing.T) {
	a := renderAll(t, 40)
	b := renderAll(t, 40)
	nonzero := false
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("sample %d differs: %d vs %d", i, a[i], b[i])
		}
		nonzero = nonzero || a[i] != 0
	}
	if !nonzero {
		t.Error("rendered silence")
	}
}

func TestEngineFeedback(t *testing.T) {
	e, err := New(testConfig())
	if err != nil {
		t.Fatal(err)
	}
	d := voice.Default()
	d.Sound = "hh"
	if err := e.Send(context.Background(), command.ScheduleVoice{PlaybackID: "p", StartTime: .5, GateEndTime: .6, Data: d}); err != nil {
		t.Fatal(err)
	}
	out := make([]int16, 2*e.BlockFrames())
	e.EchoCursor(0)
	e.RenderBlock(0, out)

	var req, latency, cursor int
	for done := false; !done; {
		select {
		case f := <-e.Feedback():
			switch f := f.(type) {
			case command.RequestSample:
				req++
				if f.Key != (sample.Key{Sound: "hh"}) {
					t.Errorf("requested %v", f.Key)
				}
			case command.PlaybackLatency:
				latency++
			case command.UpdateCursorFrame:
				cursor++
			}
		default:
			done = true
		}
	}
	if req != 1 || latency != 1 || cursor != 1 {
		t.Errorf("feedback: %d requests, %d latency, %d cursor", req, latency, cursor)
	}
	if st := e.Stats(); st.Pending != 1 {
		t.Errorf("pending %d", st.Pending)
	}
}

func TestEngineClosed(t *testing.T) {
	e, err := New(testConfig())
	if err != nil {
		t.Fatal(err)
	}
	if err := e.Close(); err != nil {
		t.Fatal(err)
	}
	if err := e.TrySend(command.Cleanup{PlaybackID: "p"}); err != ErrClosed {
		t.Errorf("TrySend after close = %v", err)
	}
	if err := e.Close(); err != ErrClosed {
		t.Errorf("second Close = %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	for _, test := range []struct {
		name string
		edit func(*Config)
		ok   bool
	}{
		{"default", func(*Config) {}, true},
		{"zero sample rate", func(c *Config) { c.SampleRate = 0 }, false},
		{"zero block", func(c *Config) { c.BlockFrames = 0 }, false},
		{"no orbits", func(c *Config) { c.Orbits = 0 }, false},
		{"too many orbits", func(c *Config) { c.Orbits = 65 }, false},
		{"negative solo ramp", func(c *Config) { c.SoloRamp = -1 }, false},
		{"negative tolerance", func(c *Config) { c.LateTolerance = -1 }, false},
		{"zero diagnostics", func(c *Config) { c.DiagnosticsInterval = 0 }, false},
		{"zero inbox", func(c *Config) { c.InboxSize = 0 }, false},
	} {
		c := DefaultConfig()
		test.edit(&c)
		if err := c.Validate(); (err == nil) != test.ok {
			t.Errorf("%s: Validate() = %v", test.name, err)
		}
		if _, err := New(c); (err == nil) != test.ok {
			t.Errorf("%s: New() = %v", test.name, err)
		}
	}
}
