// Package bank answers sample requests from WAV files on disk.
//
// A key {Bank, Sound, Index} resolves to the Index'th WAV file (sorted by
// name, wrapping) in <root>/<Bank>/<Sound>/, or in <root>/<Sound>/ when Bank
// is empty.  A single file <root>/<Sound>.wav serves every index.
package bank

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gordonklaus/orbits/command"
	"github.com/gordonklaus/orbits/sample"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// ChunkFrames is the size of one SampleChunk delivery.
const ChunkFrames = 4096

var ErrNotFound = errors.New("bank: sample not found")

type Bank struct {
	Root string
	// Workers bounds how many files load at once.
	Workers int
	log     *slog.Logger
}

func New(root string, log *slog.Logger) *Bank {
	if log == nil {
		log = slog.Default()
	}
	return &Bank{Root: root, Workers: 4, log: log}
}

// Path resolves k to a file.
func (b *Bank) Path(k sample.Key) (string, error) {
	dir := filepath.Join(b.Root, k.Bank, k.Sound)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if k.Bank == "" {
			if p := filepath.Join(b.Root, k.Sound+".wav"); isFile(p) {
				return p, nil
			}
		}
		return "", errors.Wrapf(ErrNotFound, "%s", k)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".wav") {
			files = append(files, e.Name())
		}
	}
	if len(files) == 0 {
		return "", errors.Wrapf(ErrNotFound, "%s: no wav files in %s", k, dir)
	}
	sort.Strings(files)
	i := k.Index % len(files)
	if i < 0 {
		i += len(files)
	}
	return filepath.Join(dir, files[i]), nil
}

func isFile(p string) bool {
	fi, err := os.Stat(p)
	return err == nil && fi.Mode().IsRegular()
}

func (b *Bank) Load(k sample.Key) (*sample.Sample, error) {
	p, err := b.Path(k)
	if err != nil {
		return nil, err
	}
	buf, err := os.ReadFile(p)
	if err != nil {
		return nil, errors.Wrapf(err, "bank: %s", k)
	}
	smp, err := DecodeWAV(bytes.NewReader(buf))
	if err != nil {
		return nil, errors.Wrapf(err, "bank: %s (%s)", k, p)
	}
	return smp, nil
}

// Chunks splits smp into SampleChunk commands of ChunkFrames frames, the
// last one flagged.
func Chunks(k sample.Key, smp *sample.Sample) []command.SampleChunk {
	n := len(smp.Data)
	var out []command.SampleChunk
	for off := 0; ; off += ChunkFrames {
		end := min(off+ChunkFrames, n)
		out = append(out, command.SampleChunk{Key: k, Chunk: sample.Chunk{
			PitchHz:    smp.PitchHz,
			SampleRate: smp.SampleRate,
			TotalSize:  n,
			Offset:     off,
			Data:       smp.Data[off:end],
			Last:       end == n,
			LoopStart:  smp.LoopStart,
			LoopEnd:    smp.LoopEnd,
		}})
		if end == n {
			break
		}
	}
	return out
}

// Deliver loads k and sends it as chunks, or sends SampleNotFound.
func (b *Bank) Deliver(ctx context.Context, k sample.Key, send func(context.Context, command.Command) error) error {
	smp, err := b.Load(k)
	if err != nil || len(smp.Data) == 0 {
		b.log.Warn("sample not found", "key", k.String(), "err", err)
		return send(ctx, command.SampleNotFound{Key: k})
	}
	b.log.Debug("delivering sample", "key", k.String(), "frames", len(smp.Data), "loop", smp.HasLoop())
	for _, c := range Chunks(k, smp) {
		if err := send(ctx, c); err != nil {
			return err
		}
	}
	return nil
}

// Serve delivers every key received from requests until the channel closes
// or ctx is done.
func (b *Bank) Serve(ctx context.Context, requests <-chan sample.Key, send func(context.Context, command.Command) error) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, b.Workers))
	for {
		select {
		case <-ctx.Done():
			g.Wait()
			return ctx.Err()
		case k, ok := <-requests:
			if !ok {
				return g.Wait()
			}
			g.Go(func() error { return b.Deliver(ctx, k, send) })
		}
	}
}
