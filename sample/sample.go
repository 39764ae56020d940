// Package sample keeps the state of every sample the engine has asked for.
//
// An entry starts Requested when the first voice needs it and ends either
// NotFound or Complete.  Chunked deliveries pass through Partial.  Complete
// entries are never changed again.
package sample

import "fmt"

// Key identifies one requested sample.
type Key struct {
	Bank  string
	Sound string
	Index int
}

func (k Key) String() string {
	if k.Bank == "" {
		return fmt.Sprintf("%s:%d", k.Sound, k.Index)
	}
	return fmt.Sprintf("%s/%s:%d", k.Bank, k.Sound, k.Index)
}

// Sample is immutable once stored.
type Sample struct {
	Data       []float32
	SampleRate float64
	PitchHz    float64 // 0 if the sample has no known pitch

	// Loop points from the sample's own metadata, in frames.  The loop is
	// valid when LoopEnd > LoopStart.
	LoopStart, LoopEnd int
}

func (s *Sample) HasLoop() bool {
	return s.LoopEnd > s.LoopStart && s.LoopStart >= 0 && s.LoopEnd <= len(s.Data)
}

type State int

const (
	Requested State = iota
	NotFound
	Partial
	Complete
)

func (s State) String() string {
	switch s {
	case Requested:
		return "requested"
	case NotFound:
		return "not found"
	case Partial:
		return "partial"
	}
	return "complete"
}

// Entry is the tagged state of one key.  Only the fields matching State are
// meaningful.
type Entry struct {
	State  State
	Sample *Sample // Complete

	buf      []float32 // Partial
	received int
	meta     Sample
}

// Received is the number of frames delivered so far for a Partial entry.
func (e *Entry) Received() int { return e.received }
