// Package midifile converts Standard MIDI Files into ScheduleVoice
// commands.  Every note becomes one voice; tempo changes are honoured
// through the file's absolute microsecond timestamps.
package midifile

import (
	"io"
	"sort"
	"strconv"

	"github.com/google/uuid"
	"github.com/gordonklaus/orbits/command"
	"github.com/gordonklaus/orbits/voice"
	"github.com/pkg/errors"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

// DrumChannel is the General MIDI percussion channel (10, zero based).
const DrumChannel = 9

type Options struct {
	PlaybackID string
	// Sound is the synth used for melodic channels.
	Sound string
	// Drums maps percussion keys to sample names.  Unmapped drum notes are
	// skipped.
	Drums map[uint8]string
	// Orbits wraps channel numbers onto this many orbits; 0 puts every
	// channel on orbit 0.
	Orbits int
}

type Result struct {
	PlaybackID string
	Commands   []command.ScheduleVoice
	Length     float64 // seconds
}

type noteKey struct {
	track      int
	channel, k uint8
}

type held struct {
	start    float64
	velocity uint8
}

// Import reads a MIDI file from r.
func Import(r io.Reader, opt Options) (*Result, error) {
	if opt.PlaybackID == "" {
		opt.PlaybackID = uuid.NewString()
	}
	if opt.Sound == "" {
		opt.Sound = "triangle"
	}
	res := &Result{PlaybackID: opt.PlaybackID}
	open := map[noteKey][]held{}
	var last float64

	err := smf.ReadTracksFrom(r).Do(func(ev smf.TrackEvent) {
		at := float64(ev.AbsMicroSeconds) / 1e6
		last = max(last, at)
		msg := midi.Message(ev.Message)
		var ch, key, vel uint8
		switch {
		case msg.GetNoteStart(&ch, &key, &vel):
			k := noteKey{ev.TrackNo, ch, key}
			open[k] = append(open[k], held{at, vel})
		case msg.GetNoteEnd(&ch, &key):
			k := noteKey{ev.TrackNo, ch, key}
			notes := open[k]
			if len(notes) == 0 {
				return
			}
			n := notes[0]
			open[k] = notes[1:]
			if c, ok := opt.voice(n, at, ch, key); ok {
				res.add(c)
			}
		}
	}).Error()
	if err != nil {
		return nil, errors.Wrap(err, "midifile: reading")
	}

	// notes never released end where the file ends
	keys := make([]noteKey, 0, len(open))
	for k := range open {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.track != b.track {
			return a.track < b.track
		}
		if a.channel != b.channel {
			return a.channel < b.channel
		}
		return a.k < b.k
	})
	for _, k := range keys {
		for _, n := range open[k] {
			if c, ok := opt.voice(n, last, k.channel, k.k); ok {
				res.add(c)
			}
		}
	}
	sort.SliceStable(res.Commands, func(i, j int) bool {
		return res.Commands[i].StartTime < res.Commands[j].StartTime
	})
	return res, nil
}

func (res *Result) add(c command.ScheduleVoice) {
	res.Commands = append(res.Commands, c)
	res.Length = max(res.Length, c.GateEndTime)
}

func (opt Options) voice(n held, end float64, ch, key uint8) (command.ScheduleVoice, bool) {
	d := voice.Default()
	d.Velocity = float64(n.velocity) / 127
	d.Source = opt.PlaybackID + "/" + strconv.Itoa(int(ch))
	if opt.Orbits > 0 {
		d.Orbit = int(ch) % opt.Orbits
	}
	if ch == DrumChannel {
		s, ok := opt.Drums[key]
		if !ok {
			return command.ScheduleVoice{}, false
		}
		d.Sound = s
	} else {
		d.Sound = opt.Sound
		d.Note = float64(key)
	}
	if end < n.start {
		end = n.start
	}
	return command.ScheduleVoice{PlaybackID: opt.PlaybackID, StartTime: n.start, GateEndTime: end, Data: d}, true
}
