// Package orbits is the real-time rendering core of a live-coding music
// engine.  Control goroutines send commands; one audio goroutine calls
// RenderBlock once per block and receives interleaved 16-bit stereo PCM.
package orbits

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/gordonklaus/orbits/command"
	"github.com/gordonklaus/orbits/orbit"
	"github.com/gordonklaus/orbits/render"
	"github.com/gordonklaus/orbits/sched"
	"github.com/pkg/errors"
)

var ErrClosed = errors.New("orbits: engine closed")

type Engine struct {
	cfg      Config
	inbox    *command.Inbox
	outbox   *command.Outbox
	orbits   *orbit.Orbits
	sched    *sched.Scheduler
	renderer *render.Renderer
	closed   atomic.Bool
}

func New(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	p := cfg.Params()
	o, err := orbit.New(p, orbit.Config{Count: cfg.Orbits, Seed: cfg.Seed, ImpulseResponse: cfg.ImpulseResponse})
	if err != nil {
		return nil, errors.Wrap(err, "orbits: building buses")
	}
	e := &Engine{
		cfg:    cfg,
		inbox:  command.NewInbox(cfg.InboxSize),
		outbox: command.NewOutbox(cfg.OutboxSize),
		orbits: o,
	}
	e.sched, err = sched.New(p, sched.Config{
		LateTolerance: cfg.LateTolerance,
		SoloRamp:      cfg.SoloRamp,
		Diagnostics:   cfg.DiagnosticsInterval,
		AnchorLatency: cfg.AnchorLatency,
		Seed:          cfg.Seed,
	}, o, e.outbox)
	if err != nil {
		return nil, errors.Wrap(err, "orbits: building scheduler")
	}
	if e.renderer, err = render.New(p, e.sched, o, cfg.Clock); err != nil {
		return nil, errors.Wrap(err, "orbits: building renderer")
	}
	log.Info("engine ready",
		"sample_rate", cfg.SampleRate,
		"block", cfg.BlockFrames,
		"orbits", cfg.Orbits,
		"convolution", len(cfg.ImpulseResponse) > 0)
	return e, nil
}

func (e *Engine) SampleRate() float64 { return e.cfg.SampleRate }
func (e *Engine) BlockFrames() int    { return e.cfg.BlockFrames }

// Send queues c for the next block, blocking while the queue is full.
func (e *Engine) Send(ctx context.Context, c command.Command) error {
	if e.closed.Load() {
		return ErrClosed
	}
	return e.inbox.Push(ctx, c)
}

// TrySend queues c or fails with command.ErrFull.
func (e *Engine) TrySend(c command.Command) error {
	if e.closed.Load() {
		return ErrClosed
	}
	return e.inbox.TryPush(c)
}

// Feedback is read by exactly one consumer.
func (e *Engine) Feedback() <-chan command.Feedback { return e.outbox.C() }

// RenderBlock applies every queued command and renders the block starting at
// cursor into out, which must hold 2*BlockFrames samples.  It must only be
// called from the audio goroutine.
func (e *Engine) RenderBlock(cursor int64, out []int16) {
	e.outbox.Flush()
	e.sched.SetCursor(cursor)
	e.inbox.Drain(e.sched.Apply)
	e.renderer.RenderBlock(cursor, out)
	e.outbox.Flush()
}

// EchoCursor reports the frame the audio loop is about to render.
func (e *Engine) EchoCursor(frame int64) {
	e.outbox.Send(command.UpdateCursorFrame{Frame: frame})
}

// Stats may only be read from the audio goroutine or between blocks.
func (e *Engine) Stats() sched.Stats { return e.sched.Stats() }

// Headroom is the rolling minimum and average render headroom.
func (e *Engine) Headroom() (min, avg float64) { return e.renderer.Headroom() }

// Close rejects further commands.  Blocks may still be rendered so voices
// can ring out.
func (e *Engine) Close() error {
	if e.closed.Swap(true) {
		return ErrClosed
	}
	return nil
}
