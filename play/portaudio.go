package play

import (
	"context"
	"log/slog"

	"github.com/gordonklaus/portaudio"
	"github.com/pkg/errors"
)

// PortAudio plays through the default output device.  The stream callback
// asks for exactly one block per call.
type PortAudio struct {
	loop *loop
	log  *slog.Logger
}

func NewPortAudio(src Source, log *slog.Logger) *PortAudio {
	if log == nil {
		log = slog.Default()
	}
	return &PortAudio{loop: newLoop(src), log: log}
}

func (p *PortAudio) Run(ctx context.Context) error {
	if err := portaudio.Initialize(); err != nil {
		return errors.Wrap(err, "portaudio: initialize")
	}
	defer portaudio.Terminate()

	src := p.loop.src
	stream, err := portaudio.OpenDefaultStream(0, 2, src.SampleRate(), src.BlockFrames(), p.callback)
	if err != nil {
		return errors.Wrap(err, "portaudio: open stream")
	}
	defer stream.Close()
	if err := stream.Start(); err != nil {
		return errors.Wrap(err, "portaudio: start")
	}
	p.log.Info("portaudio started", "sample_rate", src.SampleRate(), "block", src.BlockFrames())

	<-ctx.Done()
	if err := stream.Stop(); err != nil {
		return errors.Wrap(err, "portaudio: stop")
	}
	p.log.Info("portaudio stopped", "frames", p.loop.Cursor())
	return nil
}

func (p *PortAudio) callback(out []int16) {
	p.loop.next(out)
}
