// Package play drives an engine from a real audio device or renders it
// offline.  Each driver owns the frame cursor and calls RenderBlock from a
// single goroutine.
package play

import "context"

// Source is what drivers pull audio from.  *orbits.Engine implements it.
type Source interface {
	SampleRate() float64
	BlockFrames() int
	EchoCursor(frame int64)
	RenderBlock(cursor int64, out []int16)
}

// Driver plays a Source until ctx is done.
type Driver interface {
	Run(ctx context.Context) error
}

// loop advances the cursor one block at a time.
type loop struct {
	src    Source
	cursor int64
	n      int
}

func newLoop(src Source) *loop {
	return &loop{src: src, n: src.BlockFrames()}
}

// next renders the block at the cursor into out and advances.
func (l *loop) next(out []int16) {
	l.src.EchoCursor(l.cursor)
	l.src.RenderBlock(l.cursor, out)
	l.cursor += int64(l.n)
}

// Cursor is the first frame of the next block.
func (l *loop) Cursor() int64 { return l.cursor }
