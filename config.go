package orbits

import (
	"log/slog"

	"github.com/gordonklaus/orbits/dsp"
	"github.com/gordonklaus/orbits/orbit"
	"github.com/gordonklaus/orbits/render"
	"github.com/pkg/errors"
)

// Config is fixed at construction.  Durations are in seconds.
type Config struct {
	SampleRate  float64
	BlockFrames int
	Orbits      int
	Seed        uint64

	// LateTolerance is how many frames late an event may be promoted.
	LateTolerance int
	// SoloRamp is how long a released solo keeps full gain while the
	// background eases back.
	SoloRamp            float64
	DiagnosticsInterval float64
	AnchorLatency       float64

	InboxSize  int
	OutboxSize int

	// ImpulseResponse switches every orbit from the algorithmic reverb to
	// convolution with this mono response.
	ImpulseResponse []float64

	Clock  render.Clock
	Logger *slog.Logger
}

func DefaultConfig() Config {
	return Config{
		SampleRate:          48000,
		BlockFrames:         512,
		Orbits:              8,
		LateTolerance:       512,
		SoloRamp:            2,
		DiagnosticsInterval: .05,
		AnchorLatency:       .1,
		InboxSize:           4096,
		OutboxSize:          1024,
	}
}

func (c Config) Params() dsp.Params {
	return dsp.Params{SampleRate: c.SampleRate, BlockFrames: c.BlockFrames}
}

func (c Config) Validate() error {
	if err := c.Params().Validate(); err != nil {
		return errors.Wrap(err, "orbits: invalid config")
	}
	switch {
	case c.Orbits <= 0 || c.Orbits > orbit.MaxCount:
		return errors.Errorf("orbits: need 1 to %d orbits, got %d", orbit.MaxCount, c.Orbits)
	case c.LateTolerance < 0:
		return errors.Errorf("orbits: negative late tolerance %d", c.LateTolerance)
	case c.SoloRamp < 0:
		return errors.Errorf("orbits: negative solo ramp %v", c.SoloRamp)
	case c.DiagnosticsInterval <= 0:
		return errors.Errorf("orbits: diagnostics interval must be positive, got %v", c.DiagnosticsInterval)
	case c.AnchorLatency < 0:
		return errors.Errorf("orbits: negative anchor latency %v", c.AnchorLatency)
	case c.InboxSize <= 0 || c.OutboxSize <= 0:
		return errors.Errorf("orbits: queue sizes must be positive, got %d and %d", c.InboxSize, c.OutboxSize)
	}
	return nil
}
