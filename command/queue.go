package command

import (
	"context"

	"github.com/pkg/errors"
)

var ErrFull = errors.New("command: queue full")

// Inbox carries commands from any number of control goroutines to the
// render goroutine.  The render side only ever drains without blocking.
type Inbox struct {
	c chan Command
}

func NewInbox(size int) *Inbox {
	if size < 1 {
		size = 1
	}
	return &Inbox{c: make(chan Command, size)}
}

// Push blocks until there is room or ctx is done.
func (q *Inbox) Push(ctx context.Context, c Command) error {
	select {
	case q.c <- c:
		return nil
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "command: push")
	}
}

// TryPush enqueues c without blocking.
func (q *Inbox) TryPush(c Command) error {
	select {
	case q.c <- c:
		return nil
	default:
		return ErrFull
	}
}

// Drain calls f for every command already queued and returns how many it
// saw.  Commands pushed while draining wait for the next call.
func (q *Inbox) Drain(f func(Command)) int {
	n := len(q.c)
	for i := 0; i < n; i++ {
		select {
		case c := <-q.c:
			f(c)
		default:
			return i
		}
	}
	return n
}

func (q *Inbox) Len() int { return len(q.c) }

// Outbox carries feedback from the render goroutine to one consumer.
// Lossy messages are dropped when the channel is full; reliable ones are
// held back in order and retried on the next Flush.
type Outbox struct {
	c        chan Feedback
	pending  []Feedback
	dropped  int
	overflow int
}

func NewOutbox(size int) *Outbox {
	if size < 1 {
		size = 1
	}
	return &Outbox{c: make(chan Feedback, size), pending: make([]Feedback, 0, size)}
}

// C is the receive side for the consumer.
func (q *Outbox) C() <-chan Feedback { return q.c }

// Send never blocks.
func (q *Outbox) Send(f Feedback) {
	if f.Reliable() && len(q.pending) > 0 {
		q.pending = append(q.pending, f)
		q.overflow++
		return
	}
	select {
	case q.c <- f:
	default:
		if f.Reliable() {
			q.pending = append(q.pending, f)
			q.overflow++
		} else {
			q.dropped++
		}
	}
}

// Flush moves held-back reliable messages into the channel as far as room
// allows and reports how many remain.
func (q *Outbox) Flush() int {
	i := 0
loop:
	for ; i < len(q.pending); i++ {
		select {
		case q.c <- q.pending[i]:
		default:
			break loop
		}
	}
	n := copy(q.pending, q.pending[i:])
	for j := n; j < len(q.pending); j++ {
		q.pending[j] = nil
	}
	q.pending = q.pending[:n]
	return n
}

// Dropped is the number of lossy messages discarded so far.
func (q *Outbox) Dropped() int { return q.dropped }

// Overflowed is the number of reliable messages that had to be held back.
func (q *Outbox) Overflowed() int { return q.overflow }
