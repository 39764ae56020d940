// Command orbits plays or renders a Lua pattern script or a MIDI file.
//
//	orbits [flags] play song.lua
//	orbits [flags] -o out.wav render song.mid
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gordonklaus/orbits"
	"github.com/gordonklaus/orbits/bank"
	"github.com/gordonklaus/orbits/command"
	"github.com/gordonklaus/orbits/midifile"
	"github.com/gordonklaus/orbits/play"
	"github.com/gordonklaus/orbits/sample"
	"github.com/gordonklaus/orbits/script"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

var logger = slog.Default()

func initLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

type options struct {
	sampleRate int
	block      int
	orbits     int
	seed       uint64
	backend    string
	samples    string
	ir         string
	out        string
	tail       float64
	debug      bool
}

func parseFlags(fs *flag.FlagSet, args []string) (options, error) {
	var o options
	fs.IntVar(&o.sampleRate, "sr", envInt("ORBITS_SAMPLE_RATE", 48000), "sample rate in Hz")
	fs.IntVar(&o.block, "block", envInt("ORBITS_BLOCK", 512), "frames per block")
	fs.IntVar(&o.orbits, "orbits", 8, "number of orbits")
	fs.Uint64Var(&o.seed, "seed", 1, "random seed")
	fs.StringVar(&o.backend, "backend", envStr("ORBITS_BACKEND", "portaudio"), "audio backend: portaudio or oto")
	fs.StringVar(&o.samples, "samples", envStr("ORBITS_SAMPLES", "samples"), "sample bank directory")
	fs.StringVar(&o.ir, "ir", "", "impulse response WAV for convolution reverb")
	fs.StringVar(&o.out, "o", "out.wav", "output file for render")
	fs.Float64Var(&o.tail, "tail", 2, "seconds rendered after the last note")
	fs.BoolVar(&o.debug, "v", false, "debug logging")
	return o, fs.Parse(args)
}

func main() {
	o, err := parseFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		os.Exit(2)
	}
	initLogger(o.debug)
	if flag.NArg() != 2 {
		fmt.Fprintln(os.Stderr, "usage: orbits [flags] play|render FILE")
		flag.PrintDefaults()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, o, flag.Arg(0), flag.Arg(1)); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("orbits failed", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, o options, mode, path string) error {
	cfg, err := o.config()
	if err != nil {
		return err
	}
	events, err := loadEvents(ctx, path)
	if err != nil {
		return err
	}
	eng, err := orbits.New(cfg)
	if err != nil {
		return err
	}
	defer eng.Close()
	b := bank.New(o.samples, logger)
	frames := int64((events.length + cfg.AnchorLatency + o.tail) * cfg.SampleRate)
	logger.Info("loaded", "file", path, "commands", len(events.cmds), "seconds", events.length)

	switch mode {
	case "render":
		f, err := os.Create(o.out)
		if err != nil {
			return errors.Wrap(err, "creating output")
		}
		if err := renderOffline(ctx, eng, events.cmds, b, f, frames); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return errors.Wrap(err, "closing output")
		}
		logger.Info("rendered", "file", o.out, "frames", frames, "stats", fmt.Sprintf("%+v", eng.Stats()))
		return nil
	case "play":
		d, err := driver(o.backend, eng)
		if err != nil {
			return err
		}
		return playLive(ctx, eng, d, events.cmds, b, time.Duration(float64(frames)/cfg.SampleRate*float64(time.Second)))
	}
	return errors.Errorf("unknown mode %q", mode)
}

func (o options) config() (orbits.Config, error) {
	cfg := orbits.DefaultConfig()
	cfg.SampleRate = float64(o.sampleRate)
	cfg.BlockFrames = o.block
	cfg.LateTolerance = o.block
	cfg.Orbits = o.orbits
	cfg.Seed = o.seed
	cfg.Logger = logger
	if o.ir != "" {
		f, err := os.Open(o.ir)
		if err != nil {
			return cfg, errors.Wrap(err, "impulse response")
		}
		defer f.Close()
		smp, err := bank.DecodeWAV(f)
		if err != nil {
			return cfg, errors.Wrapf(err, "impulse response %s", o.ir)
		}
		cfg.ImpulseResponse = make([]float64, len(smp.Data))
		for i, x := range smp.Data {
			cfg.ImpulseResponse[i] = float64(x)
		}
	}
	return cfg, cfg.Validate()
}

type events struct {
	cmds   []command.Command
	length float64
}

func loadEvents(ctx context.Context, path string) (events, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".lua":
		src, err := os.ReadFile(path)
		if err != nil {
			return events{}, errors.Wrap(err, "reading script")
		}
		res, err := script.Run(ctx, path, string(src), script.Options{Logger: logger})
		if err != nil {
			return events{}, err
		}
		return events{res.Commands, res.Length}, nil
	case ".mid", ".midi":
		f, err := os.Open(path)
		if err != nil {
			return events{}, errors.Wrap(err, "opening midi file")
		}
		defer f.Close()
		res, err := midifile.Import(f, midifile.Options{Orbits: 4, Drums: gmDrums})
		if err != nil {
			return events{}, err
		}
		cmds := make([]command.Command, len(res.Commands))
		for i, c := range res.Commands {
			cmds[i] = c
		}
		return events{cmds, res.Length}, nil
	}
	return events{}, errors.Errorf("don't know how to play %s", path)
}

var gmDrums = map[uint8]string{
	35: "bd", 36: "bd", 37: "rim", 38: "sd", 39: "cp", 40: "sd",
	42: "hh", 44: "hh", 46: "oh", 49: "cr", 51: "rd",
}

func driver(backend string, eng *orbits.Engine) (play.Driver, error) {
	switch backend {
	case "portaudio":
		return play.NewPortAudio(eng, logger), nil
	case "oto":
		return play.NewOto(eng, logger), nil
	}
	return nil, errors.Errorf("unknown backend %q", backend)
}

// playLive runs the driver, the command feeder, the feedback pump and the
// sample bank until the song is over or ctx is cancelled.
func playLive(ctx context.Context, eng *orbits.Engine, d play.Driver, cmds []command.Command, b *bank.Bank, length time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, length)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)
	requests := make(chan sample.Key, 64)
	st := newStatus(os.Stderr)

	g.Go(func() error { return d.Run(ctx) })
	g.Go(func() error {
		for _, c := range cmds {
			if err := eng.Send(ctx, c); err != nil {
				return err
			}
		}
		return nil
	})
	g.Go(func() error {
		defer close(requests)
		for {
			select {
			case <-ctx.Done():
				return nil
			case f := <-eng.Feedback():
				if r, ok := f.(command.RequestSample); ok {
					select {
					case requests <- r.Key:
					case <-ctx.Done():
						return nil
					}
					continue
				}
				st.feedback(f)
			}
		}
	})
	g.Go(func() error { return b.Serve(ctx, requests, eng.Send) })

	err := g.Wait()
	st.done()
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
