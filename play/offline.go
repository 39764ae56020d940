package play

import (
	"io"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/pkg/errors"
)

// Offline renders frames frames of src to w as a 16-bit stereo WAV file.
// pump, if not nil, runs before every block with the block's first frame;
// it is where a caller delivers commands so the result is deterministic.
func Offline(src Source, w io.WriteSeeker, frames int64, pump func(cursor int64)) error {
	n := src.BlockFrames()
	blocks := (frames + int64(n) - 1) / int64(n)
	sr := int(src.SampleRate())

	enc := wav.NewEncoder(w, sr, 16, 2, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 2, SampleRate: sr},
		Data:           make([]int, 2*n),
		SourceBitDepth: 16,
	}
	l := newLoop(src)
	out := make([]int16, 2*n)
	for b := int64(0); b < blocks; b++ {
		if pump != nil {
			pump(l.Cursor())
		}
		l.next(out)
		for i, x := range out {
			buf.Data[i] = int(x)
		}
		if err := enc.Write(buf); err != nil {
			return errors.Wrap(err, "wav: write samples")
		}
	}
	return errors.Wrap(enc.Close(), "wav: finish file")
}
