package main

import (
	"fmt"
	"io"
	"math/bits"
	"os"

	"github.com/gordonklaus/orbits/command"
	"golang.org/x/term"
)

// status prints a one-line diagnostics display when w is a terminal and
// logs diagnostics at debug level otherwise.
type status struct {
	w   io.Writer
	tty bool
}

func newStatus(f *os.File) *status {
	return &status{w: f, tty: term.IsTerminal(int(f.Fd()))}
}

func (s *status) feedback(f command.Feedback) {
	switch f := f.(type) {
	case command.Diagnostics:
		active := bits.OnesCount64(f.ActiveOrbits)
		if s.tty {
			fmt.Fprintf(s.w, "\rvoices %3d  pending %4d  orbits %d/%d  headroom %5.1f%% (avg %5.1f%%)\x1b[K",
				f.ActiveVoices, f.PendingEvents, active, f.OrbitCount, 100*f.RenderHeadroom, 100*f.RenderHeadroomAvg)
			return
		}
		logger.Debug("diagnostics", "voices", f.ActiveVoices, "pending", f.PendingEvents, "orbits_active", active, "headroom", f.RenderHeadroom, "headroom_avg", f.RenderHeadroomAvg)
	case command.PlaybackLatency:
		logger.Debug("playback anchored", "playback", f.PlaybackID, "backend_ms", f.BackendTimestampMs)
	}
}

func (s *status) done() {
	if s.tty {
		fmt.Fprintln(s.w)
	}
}
