// Package script turns a Lua program into engine commands.
//
//	bpm(120)
//	for i = 0, 7 do
//	  sound{s = "bd", at = i, dur = .25, orbit = 0}
//	  sound{s = "saw", n = 48 + i, at = i + .5, lpf = 800, room = .3}
//	end
//
// Times are in beats.  cleanup() and clear() emit the matching playback
// commands at that point of the command list.
package script

import (
	"context"
	"log/slog"
	"sort"

	"github.com/google/uuid"
	"github.com/gordonklaus/orbits/command"
	"github.com/pkg/errors"
	lua "github.com/yuin/gopher-lua"
)

const defaultBPM = 120

// Result is everything one run of a script produced.
type Result struct {
	PlaybackID string
	Commands   []command.Command
	// Length is the end of the last gate, in seconds.
	Length float64
}

type Options struct {
	// PlaybackID is minted when empty.
	PlaybackID string
	Logger     *slog.Logger
}

type runner struct {
	res *Result
	bpm float64
	log *slog.Logger
}

// Run executes src and returns the commands it produced, ScheduleVoice
// commands sorted by start time.
func Run(ctx context.Context, name, src string, opt Options) (*Result, error) {
	if opt.PlaybackID == "" {
		opt.PlaybackID = uuid.NewString()
	}
	if opt.Logger == nil {
		opt.Logger = slog.Default()
	}
	r := &runner{res: &Result{PlaybackID: opt.PlaybackID}, bpm: defaultBPM, log: opt.Logger}

	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	defer L.Close()
	L.SetContext(ctx)
	for _, lib := range []struct {
		name string
		open lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		L.Push(L.NewFunction(lib.open))
		L.Push(lua.LString(lib.name))
		L.Call(1, 0)
	}
	L.SetGlobal("sound", L.NewFunction(r.sound))
	L.SetGlobal("bpm", L.NewFunction(r.setBPM))
	L.SetGlobal("cleanup", L.NewFunction(r.cleanup))
	L.SetGlobal("clear", L.NewFunction(r.clear))
	L.SetGlobal("print", L.NewFunction(r.print))

	if err := L.DoString(src); err != nil {
		return nil, errors.Wrapf(err, "script %s", name)
	}
	sortSchedules(r.res.Commands)
	r.log.Debug("script done", "script", name, "playback", r.res.PlaybackID, "commands", len(r.res.Commands))
	return r.res, nil
}

// sortSchedules orders each run of ScheduleVoice commands by start time,
// leaving cleanup and clear commands where the script put them.
func sortSchedules(cmds []command.Command) {
	start := 0
	for i := 0; i <= len(cmds); i++ {
		if i < len(cmds) {
			if _, ok := cmds[i].(command.ScheduleVoice); ok {
				continue
			}
		}
		run := cmds[start:i]
		sort.SliceStable(run, func(a, b int) bool {
			return run[a].(command.ScheduleVoice).StartTime < run[b].(command.ScheduleVoice).StartTime
		})
		start = i + 1
	}
}

func (r *runner) beats(b float64) float64 { return b * 60 / r.bpm }

func (r *runner) setBPM(L *lua.LState) int {
	b := float64(L.CheckNumber(1))
	if b <= 0 {
		L.ArgError(1, "bpm must be positive")
	}
	r.bpm = b
	return 0
}

func (r *runner) cleanup(L *lua.LState) int {
	r.res.Commands = append(r.res.Commands, command.Cleanup{PlaybackID: r.res.PlaybackID})
	return 0
}

func (r *runner) clear(L *lua.LState) int {
	r.res.Commands = append(r.res.Commands, command.ClearScheduled{PlaybackID: r.res.PlaybackID})
	return 0
}

func (r *runner) print(L *lua.LState) int {
	args := make([]any, 0, L.GetTop())
	for i := 1; i <= L.GetTop(); i++ {
		args = append(args, L.ToStringMeta(L.Get(i)).String())
	}
	r.log.Info("script", "args", args)
	return 0
}

func (r *runner) sound(L *lua.LState) int {
	t := L.CheckTable(1)
	d, err := voiceData(t)
	if err != nil {
		L.ArgError(1, err.Error())
	}
	at := number(t, "at", 0)
	dur := number(t, "dur", .25)
	if at < 0 || dur < 0 {
		L.ArgError(1, "at and dur must not be negative")
	}
	c := command.ScheduleVoice{
		PlaybackID:  r.res.PlaybackID,
		StartTime:   r.beats(at),
		GateEndTime: r.beats(at + dur),
		Data:        d,
	}
	r.res.Commands = append(r.res.Commands, c)
	r.res.Length = max(r.res.Length, c.GateEndTime+d.Env.Release)
	return 0
}
