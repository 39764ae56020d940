// Package command defines the messages exchanged between the control side
// and the render side of the engine, and the bounded queues that carry them.
package command

import (
	"github.com/gordonklaus/orbits/sample"
	"github.com/gordonklaus/orbits/voice"
)

// Command is a message consumed by the scheduler at a block boundary.
type Command interface {
	command()
}

// ScheduleVoice asks for one note.  StartTime and GateEndTime are seconds
// relative to the playback's epoch.
type ScheduleVoice struct {
	PlaybackID  string
	StartTime   float64
	GateEndTime float64
	Data        voice.Data
}

// SampleChunk delivers part of a sample.  Offset and TotalSize are in frames.
type SampleChunk struct {
	Key sample.Key
	sample.Chunk
}

type SampleComplete struct {
	Key    sample.Key
	Sample *sample.Sample
}

type SampleNotFound struct {
	Key sample.Key
}

// Cleanup stops a playback: pending events are dropped, sounding voices
// ring out.
type Cleanup struct {
	PlaybackID string
}

// ClearScheduled drops a playback's pending events and re-anchors it on its
// next event.
type ClearScheduled struct {
	PlaybackID string
}

func (ScheduleVoice) command()  {}
func (SampleChunk) command()    {}
func (SampleComplete) command() {}
func (SampleNotFound) command() {}
func (Cleanup) command()        {}
func (ClearScheduled) command() {}

// Feedback is a message produced by the render side.
type Feedback interface {
	feedback()
	// Reliable messages must not be dropped when the queue is full.
	Reliable() bool
}

type RequestSample struct {
	PlaybackID string
	Key        sample.Key
}

// PlaybackLatency reports the backend time, in milliseconds, a newly
// anchored playback's clock starts from.
type PlaybackLatency struct {
	PlaybackID         string
	BackendTimestampMs float64
}

type OrbitStatus struct {
	ID     int
	Active bool
}

// Diagnostics is a periodic snapshot of the render thread.  Orbit activity
// is packed into a bit set so building it never allocates.
type Diagnostics struct {
	RenderHeadroom    float64 // rolling minimum
	RenderHeadroomAvg float64
	ActiveVoices      int
	PendingEvents     int
	OrbitCount        int
	ActiveOrbits      uint64 // bit i is set while orbit i is active
}

// Orbits unpacks the per-orbit activity.
func (d Diagnostics) Orbits() []OrbitStatus {
	s := make([]OrbitStatus, d.OrbitCount)
	for i := range s {
		s[i] = OrbitStatus{ID: i, Active: d.ActiveOrbits&(1<<uint(i)) != 0}
	}
	return s
}

type UpdateCursorFrame struct {
	Frame int64
}

func (RequestSample) feedback()     {}
func (PlaybackLatency) feedback()   {}
func (Diagnostics) feedback()       {}
func (UpdateCursorFrame) feedback() {}

func (RequestSample) Reliable() bool     { return true }
func (PlaybackLatency) Reliable() bool   { return true }
func (Diagnostics) Reliable() bool       { return false }
func (UpdateCursorFrame) Reliable() bool { return false }
