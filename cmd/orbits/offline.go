package main

import (
	"context"
	"io"

	"github.com/gordonklaus/orbits"
	"github.com/gordonklaus/orbits/bank"
	"github.com/gordonklaus/orbits/command"
	"github.com/gordonklaus/orbits/play"
)

// renderOffline renders without a device.  Sample requests are answered
// synchronously between blocks so the output does not depend on disk speed.
func renderOffline(ctx context.Context, eng *orbits.Engine, cmds []command.Command, b *bank.Bank, w io.WriteSeeker, frames int64) error {
	backlog := append([]command.Command(nil), cmds...)
	queue := func(_ context.Context, c command.Command) error {
		backlog = append(backlog, c)
		return nil
	}
	var err error
	pump := func(cursor int64) {
		for drained := false; !drained && err == nil; {
			select {
			case f := <-eng.Feedback():
				if r, ok := f.(command.RequestSample); ok {
					err = b.Deliver(ctx, r.Key, queue)
				}
			default:
				drained = true
			}
		}
		n := 0
		for _, c := range backlog {
			if eng.TrySend(c) != nil {
				break
			}
			n++
		}
		backlog = backlog[n:]
		if err == nil {
			err = ctx.Err()
		}
	}
	if perr := play.Offline(eng, w, frames, pump); perr != nil {
		return perr
	}
	return err
}
