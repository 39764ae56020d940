package script

import (
	"github.com/gordonklaus/orbits/dsp"
	"github.com/gordonklaus/orbits/voice"
	"github.com/pkg/errors"
	lua "github.com/yuin/gopher-lua"
)

func number(t *lua.LTable, key string, def float64) float64 {
	if n, ok := t.RawGetString(key).(lua.LNumber); ok {
		return float64(n)
	}
	return def
}

func str(t *lua.LTable, key, def string) string {
	if s, ok := t.RawGetString(key).(lua.LString); ok {
		return string(s)
	}
	return def
}

func boolean(t *lua.LTable, key string) bool {
	return lua.LVAsBool(t.RawGetString(key))
}

func has(t *lua.LTable, key string) bool {
	return t.RawGetString(key) != lua.LNil
}

// voiceData reads the synthesis parameters of one sound{} call.
func voiceData(t *lua.LTable) (voice.Data, error) {
	d := voice.Default()
	d.Sound = str(t, "s", str(t, "sound", d.Sound))
	d.Bank = str(t, "bank", "")
	d.Index = int(number(t, "index", 0))
	d.Note = number(t, "n", 0)
	d.Freq = number(t, "freq", 0)
	d.Gain = number(t, "gain", d.Gain)
	d.Velocity = number(t, "velocity", d.Velocity)
	d.PostGain = number(t, "postgain", d.PostGain)
	d.Pan = number(t, "pan", d.Pan)
	d.Orbit = int(number(t, "orbit", 0))

	d.Env = dsp.ADSR{
		Attack:  number(t, "attack", d.Env.Attack),
		Decay:   number(t, "decay", d.Env.Decay),
		Sustain: number(t, "sustain", d.Env.Sustain),
		Release: number(t, "release", d.Env.Release),
	}

	q := number(t, "resonance", .707)
	for _, f := range []struct {
		key  string
		kind voice.FilterKind
	}{
		{"lpf", voice.Lowpass},
		{"hpf", voice.Highpass},
		{"bpf", voice.Bandpass},
		{"notch", voice.Notch},
	} {
		if !has(t, f.key) {
			continue
		}
		def := voice.FilterDef{Kind: f.kind, Cutoff: number(t, f.key, 1000), Q: q}
		if depth := number(t, f.key+"env", 0); depth != 0 {
			def.EnvDepth = depth
			def.Env = &dsp.ADSR{
				Attack:  number(t, f.key+"attack", .01),
				Decay:   number(t, f.key+"decay", .1),
				Sustain: number(t, f.key+"sustain", 0),
				Release: number(t, f.key+"release", .1),
			}
		}
		d.Filters = append(d.Filters, def)
	}
	if v := str(t, "vowel", ""); v != "" {
		d.Filters = append(d.Filters, voice.FilterDef{Kind: voice.Formant, Vowel: v})
	}

	d.Crush = number(t, "crush", 0)
	d.Coarse = int(number(t, "coarse", 0))
	d.Distort = number(t, "distort", 0)
	d.Phaser = voice.Phaser{
		Rate:   number(t, "phaser", 0),
		Depth:  number(t, "phaserdepth", 0),
		Center: number(t, "phasercenter", 0),
		Sweep:  number(t, "phasersweep", 0),
	}
	d.Tremolo = voice.Tremolo{Rate: number(t, "tremolo", 0), Depth: number(t, "tremolodepth", .5)}
	d.Vibrato = voice.Vibrato{Rate: number(t, "vib", 0), Depth: number(t, "vibmod", .5)}
	d.Accelerate = number(t, "accelerate", 0)
	if st := number(t, "penv", 0); st != 0 {
		d.PitchEnv = &voice.PitchEnv{
			ADSR:      dsp.ADSR{Attack: number(t, "pattack", 0), Decay: number(t, "pdecay", .1), Release: number(t, "prelease", 0)},
			Semitones: st,
		}
	}
	if idx := number(t, "fm", 0); idx != 0 {
		d.FM = &voice.FM{Harmonicity: number(t, "fmh", 1), Index: idx}
		if has(t, "fmdecay") {
			d.FM.Env = &dsp.ADSR{Attack: number(t, "fmattack", 0), Decay: number(t, "fmdecay", 0), Sustain: number(t, "fmsustain", 0)}
		}
	}

	d.Delay = voice.DelaySend{
		Amount:   number(t, "delay", 0),
		Time:     number(t, "delaytime", 0),
		Feedback: number(t, "delayfeedback", 0),
	}
	d.Room = voice.RoomSend{Amount: number(t, "room", 0), Size: number(t, "size", 0)}
	if depth := number(t, "duckdepth", 0); depth > 0 {
		d.Duck = &voice.Duck{Orbit: int(number(t, "duckorbit", 0)), Depth: depth, Attack: number(t, "duckattack", .01)}
	}
	if has(t, "compressor") {
		c := dsp.DefaultCompressor
		c.Threshold = number(t, "compressor", c.Threshold)
		c.Ratio = number(t, "compressorratio", c.Ratio)
		d.Compressor = &c
	}

	d.Speed = number(t, "speed", d.Speed)
	d.Begin = number(t, "begin", 0)
	d.End = number(t, "end", d.End)
	d.Loop = boolean(t, "loop")
	d.LoopBegin = number(t, "loopbegin", 0)
	d.LoopEnd = number(t, "loopend", 0)
	d.Cut = int(number(t, "cut", 0))
	d.Solo = number(t, "solo", 0)
	d.Source = str(t, "source", "")
	d.Mute = boolean(t, "mute")

	if d.Sound == "" {
		return d, errors.New("sound: missing s")
	}
	if d.Orbit < 0 {
		return d, errors.Errorf("sound: negative orbit %d", d.Orbit)
	}
	return d, nil
}
