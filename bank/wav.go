package bank

import (
	"io"
	"math"

	"github.com/go-audio/wav"
	"github.com/gordonklaus/orbits/sample"
	"github.com/pkg/errors"
)

const formatFloat = 3

// DecodeWAV reads an 8, 16, 24 or 32-bit integer PCM WAV file and mixes it
// down to mono.  Loop points and root pitch come from a "smpl" chunk when
// present.
func DecodeWAV(r io.ReadSeeker) (*sample.Sample, error) {
	d := wav.NewDecoder(r)
	if !d.IsValidFile() {
		return nil, errors.New("wav: not a valid WAV file")
	}
	if d.WavAudioFormat == formatFloat {
		return nil, errors.Errorf("wav: floating point samples are not supported")
	}
	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, errors.Wrap(err, "wav: reading samples")
	}
	ch := int(d.NumChans)
	if ch == 0 {
		return nil, errors.New("wav: zero channels")
	}
	if len(buf.Data) < ch {
		return nil, errors.New("wav: no sample data")
	}

	var scale float32
	offset := 0
	switch d.BitDepth {
	case 8:
		scale, offset = 1<<7, 1<<7
	case 16:
		scale = 1 << 15
	case 24:
		scale = 1 << 23
	case 32:
		scale = 1 << 31
	default:
		return nil, errors.Errorf("wav: unsupported bit depth %d", d.BitDepth)
	}
	smp := &sample.Sample{
		SampleRate: float64(d.SampleRate),
		Data:       make([]float32, len(buf.Data)/ch),
	}
	for i := range smp.Data {
		var sum float32
		for _, x := range buf.Data[i*ch : (i+1)*ch] {
			sum += float32(x-offset) / scale
		}
		smp.Data[i] = sum / float32(ch)
	}

	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, errors.Wrap(err, "wav: rewinding for metadata")
	}
	meta := wav.NewDecoder(r)
	meta.ReadMetadata()
	if meta.Metadata != nil && meta.Metadata.SamplerInfo != nil {
		readSampler(meta.Metadata.SamplerInfo, smp)
	}
	if !smp.HasLoop() {
		smp.LoopStart, smp.LoopEnd = 0, 0
	}
	return smp, nil
}

// readSampler takes the root note and the first loop, whose end is
// inclusive, from a "smpl" chunk.
func readSampler(info *wav.SamplerInfo, smp *sample.Sample) {
	if info.MIDIUnityNote > 0 && info.MIDIUnityNote < 128 {
		note := float64(info.MIDIUnityNote) + float64(info.MIDIPitchFraction)/(1<<32)
		smp.PitchHz = 440 * math.Exp2((note-69)/12)
	}
	if len(info.Loops) == 0 || info.Loops[0] == nil {
		return
	}
	l := info.Loops[0]
	smp.LoopStart, smp.LoopEnd = int(l.Start), int(l.End)+1
}
