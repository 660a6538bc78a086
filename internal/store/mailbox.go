package store

import (
	"context"
	"time"

	"github.com/nocturnekv/respd/internal/command"
	"github.com/nocturnekv/respd/internal/resp"
)

type request struct {
	cmd   command.Command
	reply chan resp.Frame
}

type sweepRequest struct {
	sample int
	done   chan int
}

// Mailbox is the single-writer actor that owns a StringStore and a
// ListStore for the lifetime of the process. Every mutating or reading
// access goes through Send, which posts a (command, reply) pair and
// blocks for the reply; the actor goroutine executes commands strictly
// in arrival order, so a caller that has observed its own reply is
// guaranteed that a subsequent Send will see at least those effects.
type Mailbox struct {
	reqCh   chan request
	sweepCh chan sweepRequest

	strings *StringStore
	lists   *ListStore
}

// NewMailbox starts the actor goroutine and returns a handle to it.
func NewMailbox() *Mailbox {
	m := &Mailbox{
		reqCh:   make(chan request),
		sweepCh: make(chan sweepRequest),
		strings: NewStringStore(),
		lists:   NewListStore(),
	}
	go m.run()
	return m
}

// Send posts cmd to the actor and waits for its reply, or for ctx to be
// cancelled. Once the actor has accepted the request, cancelling ctx
// does not cancel execution: a dropped reply slot never skips the
// command's effects. A Send cancelled before the actor accepts the
// request returns without the command being executed.
func (m *Mailbox) Send(ctx context.Context, cmd command.Command) resp.Frame {
	reply := make(chan resp.Frame, 1)
	select {
	case m.reqCh <- request{cmd: cmd, reply: reply}:
	case <-ctx.Done():
		return resp.Err("ERR server shutting down")
	}
	select {
	case f := <-reply:
		return f
	case <-ctx.Done():
		return resp.Err("ERR server shutting down")
	}
}

// TriggerSweep asks the actor to sample up to n keys for lazy
// active-expiration and blocks for the count removed.
func (m *Mailbox) TriggerSweep(ctx context.Context, n int) int {
	done := make(chan int, 1)
	select {
	case m.sweepCh <- sweepRequest{sample: n, done: done}:
	case <-ctx.Done():
		return 0
	}
	select {
	case removed := <-done:
		return removed
	case <-ctx.Done():
		return 0
	}
}

// QueueDepth reports the number of requests currently buffered ahead of
// the actor, for metrics purposes. The channel is unbuffered so this is
// always 0 but is provided for observability parity with a
// bounded-mailbox design.
func (m *Mailbox) QueueDepth() int {
	return len(m.reqCh)
}

func (m *Mailbox) run() {
	for {
		select {
		case req := <-m.reqCh:
			f := m.execute(req.cmd)
			select {
			case req.reply <- f:
			default:
				// Reply slot already abandoned by the caller; the
				// command's effects above are already committed.
			}
		case sw := <-m.sweepCh:
			removed := m.strings.Sweep(sw.sample)
			select {
			case sw.done <- removed:
			default:
			}
		}
	}
}

func (m *Mailbox) execute(cmd command.Command) resp.Frame {
	switch cmd.Kind {
	case command.Set:
		if m.lists.Has(cmd.Key) {
			return resp.Err(ErrWrongType.Error())
		}
		ttl := time.Duration(cmd.PXMs) * time.Millisecond
		m.strings.Set(cmd.Key, cmd.Value, ttl, cmd.HasPX)
		return resp.Simple("OK")

	case command.Get:
		if m.lists.Has(cmd.Key) {
			return resp.Err(ErrWrongType.Error())
		}
		v, ok := m.strings.Get(cmd.Key)
		if !ok {
			return resp.Null()
		}
		return resp.BulkOf(v)

	case command.Incr:
		if m.lists.Has(cmd.Key) {
			return resp.Err(ErrWrongType.Error())
		}
		n, err := m.strings.Incr(cmd.Key)
		if err != nil {
			return resp.Err(err.Error())
		}
		return resp.Int64(n)

	case command.RPush:
		if m.strings.Has(cmd.Key) {
			return resp.Err(ErrWrongType.Error())
		}
		return resp.Int64(int64(m.lists.RPush(cmd.Key, cmd.Values)))

	case command.LPush:
		if m.strings.Has(cmd.Key) {
			return resp.Err(ErrWrongType.Error())
		}
		return resp.Int64(int64(m.lists.LPush(cmd.Key, cmd.Values)))

	case command.LLen:
		if m.strings.Has(cmd.Key) {
			return resp.Err(ErrWrongType.Error())
		}
		return resp.Int64(int64(m.lists.LLen(cmd.Key)))

	case command.LPop:
		if m.strings.Has(cmd.Key) {
			return resp.Err(ErrWrongType.Error())
		}
		popped, existed := m.lists.LPop(cmd.Key, cmd.HasCount, cmd.Count)
		if !cmd.HasCount {
			if !existed {
				return resp.Null()
			}
			return resp.BulkOf(popped[0])
		}
		items := make([]resp.Frame, len(popped))
		for i, v := range popped {
			items[i] = resp.BulkOf(v)
		}
		return resp.ArrayOf(items...)

	case command.LRange:
		if m.strings.Has(cmd.Key) {
			return resp.Err(ErrWrongType.Error())
		}
		vals := m.lists.LRange(cmd.Key, cmd.Start, cmd.Stop)
		items := make([]resp.Frame, len(vals))
		for i, v := range vals {
			items[i] = resp.BulkOf(v)
		}
		return resp.ArrayOf(items...)

	case command.BLPop:
		return resp.Err(ErrUnsupported.Error())

	default:
		return resp.Err("ERR unsupported")
	}
}
