package sched

import (
	"container/heap"

	"github.com/gordonklaus/orbits/voice"
)

// event is a scheduled voice converted to absolute frames.
type event struct {
	start, gateEnd int64
	seq            uint64
	playback       string
	data           voice.Data
}

// events is a min-heap ordered by start frame, then by arrival.
type events []*event

func (h events) Len() int { return len(h) }
func (h events) Less(i, j int) bool {
	if h[i].start != h[j].start {
		return h[i].start < h[j].start
	}
	return h[i].seq < h[j].seq
}
func (h events) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *events) Push(x any)   { *h = append(*h, x.(*event)) }
func (h *events) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return e
}

func (h *events) peek() *event {
	if len(*h) == 0 {
		return nil
	}
	return (*h)[0]
}

// purge removes every event of playback and restores the heap order.
func (h *events) purge(playback string) int {
	old := *h
	kept := old[:0]
	for _, e := range old {
		if e.playback != playback {
			kept = append(kept, e)
		}
	}
	for i := len(kept); i < len(old); i++ {
		old[i] = nil
	}
	*h = kept
	heap.Init(h)
	return len(old) - len(kept)
}
