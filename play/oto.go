package play

import (
	"context"
	"encoding/binary"
	"log/slog"

	"github.com/ebitengine/oto/v3"
	"github.com/pkg/errors"
)

// Oto plays through oto's pull model: the player reads PCM bytes from a
// blockReader that renders whole blocks on demand.
type Oto struct {
	r   *blockReader
	log *slog.Logger
}

func NewOto(src Source, log *slog.Logger) *Oto {
	if log == nil {
		log = slog.Default()
	}
	return &Oto{r: newBlockReader(src), log: log}
}

func (o *Oto) Run(ctx context.Context) error {
	src := o.r.loop.src
	otoCtx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   int(src.SampleRate()),
		ChannelCount: 2,
		Format:       oto.FormatSignedInt16LE,
	})
	if err != nil {
		return errors.Wrap(err, "oto: new context")
	}
	<-ready

	player := otoCtx.NewPlayer(o.r)
	player.Play()
	o.log.Info("oto started", "sample_rate", src.SampleRate(), "block", src.BlockFrames())

	<-ctx.Done()
	if err := player.Close(); err != nil {
		return errors.Wrap(err, "oto: close player")
	}
	o.log.Info("oto stopped", "frames", o.r.loop.Cursor())
	return nil
}

// blockReader serves rendered blocks as little-endian interleaved int16.
type blockReader struct {
	loop  *loop
	block []int16
	bytes []byte
	off   int
}

func newBlockReader(src Source) *blockReader {
	n := src.BlockFrames()
	r := &blockReader{loop: newLoop(src), block: make([]int16, 2*n), bytes: make([]byte, 4*n)}
	r.off = len(r.bytes)
	return r
}

func (r *blockReader) Read(p []byte) (int, error) {
	n := 0
	for n < len(p) {
		if r.off == len(r.bytes) {
			r.loop.next(r.block)
			for i, x := range r.block {
				binary.LittleEndian.PutUint16(r.bytes[2*i:], uint16(x))
			}
			r.off = 0
		}
		k := copy(p[n:], r.bytes[r.off:])
		r.off += k
		n += k
	}
	return n, nil
}
