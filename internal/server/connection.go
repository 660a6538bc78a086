package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/rs/zerolog"

	"github.com/nocturnekv/respd/internal/command"
	"github.com/nocturnekv/respd/internal/metrics"
	"github.com/nocturnekv/respd/internal/resp"
	"github.com/nocturnekv/respd/internal/store"
)

// storageCommands is the set of command kinds forwarded to the mailbox
// rather than handled locally by the connection.
var storageCommands = map[command.Kind]bool{
	command.Set:    true,
	command.Get:    true,
	command.Incr:   true,
	command.RPush:  true,
	command.LPush:  true,
	command.LLen:   true,
	command.LPop:   true,
	command.BLPop:  true,
	command.LRange: true,
}

// Connection runs the read -> parse -> validate -> dispatch -> write
// loop for one accepted client, including the MULTI/EXEC transaction
// buffer and the role-aware branches (INFO/REPLCONF/PSYNC).
type Connection struct {
	conn    net.Conn
	reader  *resp.Reader
	writer  *bufio.Writer
	mailbox *store.Mailbox
	info    *Info
	metrics *metrics.Collectors
	log     zerolog.Logger

	inTransaction bool
	queue         []command.Command
}

// NewConnection wraps an accepted net.Conn.
func NewConnection(conn net.Conn, mailbox *store.Mailbox, info *Info, m *metrics.Collectors, log zerolog.Logger) *Connection {
	return &Connection{
		conn:    conn,
		reader:  resp.NewReader(conn),
		writer:  bufio.NewWriter(conn),
		mailbox: mailbox,
		info:    info,
		metrics: m,
		log:     log,
	}
}

// Serve runs the connection's loop until EOF, a codec error, or a write
// error, each decoded frame fully handled (reply sent and flushed)
// before the next is decoded, per spec.md §4.6.
func (c *Connection) Serve(ctx context.Context) {
	defer c.conn.Close()

	for {
		frame, err := c.reader.Next()
		if err != nil {
			var derr *resp.DecodeError
			if errors.As(err, &derr) {
				// Best-effort protocol error reply before closing.
				_ = c.writeAndFlush(resp.Err("ERR protocol error: " + derr.Message))
			}
			c.log.Debug().Err(err).Msg("connection closed")
			return
		}

		reply := c.handle(ctx, frame)
		if err := c.writeAndFlush(reply); err != nil {
			c.log.Debug().Err(err).Msg("write failed, closing connection")
			return
		}
	}
}

func (c *Connection) writeAndFlush(f resp.Frame) error {
	if _, err := c.writer.Write(resp.Encode(f)); err != nil {
		return err
	}
	return c.writer.Flush()
}

// handle processes one parsed frame and returns the reply to send. A
// codec-level error would already have ended Serve before reaching here;
// handle only ever sees fully decoded frames, which may still fail to
// parse as a command (spec.md §4.6's "Parse failure" path: reply with the
// diagnostic, keep the connection open).
func (c *Connection) handle(ctx context.Context, frame resp.Frame) resp.Frame {
	cmd, err := command.Parse(frame)
	if err != nil {
		if c.metrics != nil {
			c.metrics.ParseErrorsTotal.Inc()
		}
		return resp.Err(err.Error())
	}

	if c.inTransaction {
		return c.handleInTransaction(cmd)
	}
	return c.dispatch(ctx, cmd)
}

func (c *Connection) handleInTransaction(cmd command.Command) resp.Frame {
	switch cmd.Kind {
	case command.Exec:
		queued := c.queue
		c.queue = nil
		c.inTransaction = false
		return c.execTransaction(queued)

	case command.Discard:
		c.queue = nil
		c.inTransaction = false
		return resp.Simple("OK")

	case command.Multi:
		return resp.Err("ERR MULTI calls can not be nested")

	default:
		c.queue = append(c.queue, cmd)
		return resp.Simple("QUEUED")
	}
}

// execTransaction dispatches every queued command in order over the same
// mailbox serialisation point as any other client traffic. This is an
// explicit deviation from reference Redis (spec.md §9): EXEC is
// serialised with respect to itself but not atomic with respect to other
// connections, since each queued command is a separate mailbox round
// trip rather than one combined message.
func (c *Connection) execTransaction(queued []command.Command) resp.Frame {
	replies := make([]resp.Frame, 0, len(queued))
	ctx := context.Background()
	for _, cmd := range queued {
		replies = append(replies, c.dispatch(ctx, cmd))
	}
	return resp.ArrayOf(replies...)
}

// dispatch handles a single command outside of transaction queueing,
// whether it arrived directly or is being replayed from EXEC.
func (c *Connection) dispatch(ctx context.Context, cmd command.Command) resp.Frame {
	if c.metrics != nil {
		c.metrics.CommandsTotal.WithLabelValues(commandLabel(cmd.Kind)).Inc()
	}

	switch cmd.Kind {
	case command.Ping:
		return resp.Simple("PONG")

	case command.Echo:
		return resp.BulkOf(cmd.Value)

	case command.Multi:
		c.inTransaction = true
		c.queue = nil
		return resp.Simple("OK")

	case command.Exec:
		return resp.Err("ERR EXEC without MULTI")

	case command.Discard:
		return resp.Err("ERR DISCARD without MULTI")

	case command.Info:
		snap := c.info.Snapshot()
		body, err := renderInfo(snap, cmd.Section)
		if err != nil {
			return resp.Err(err.Error())
		}
		return resp.Bulk(body)

	case command.ReplConf:
		return resp.Simple("OK")

	case command.PSync:
		snap := c.info.Snapshot()
		c.info.IncSlaves()
		return resp.Simple(fmt.Sprintf("FULLRESYNC %s 0", snap.ReplID))

	default:
		if storageCommands[cmd.Kind] {
			if c.metrics != nil {
				c.metrics.MailboxQueueDepth.Set(float64(c.mailbox.QueueDepth()))
			}
			return c.mailbox.Send(ctx, cmd)
		}
		return resp.Err("ERR unsupported")
	}
}

func commandLabel(k command.Kind) string {
	switch k {
	case command.Ping:
		return "ping"
	case command.Echo:
		return "echo"
	case command.Set:
		return "set"
	case command.Get:
		return "get"
	case command.Incr:
		return "incr"
	case command.RPush:
		return "rpush"
	case command.LPush:
		return "lpush"
	case command.LLen:
		return "llen"
	case command.LPop:
		return "lpop"
	case command.BLPop:
		return "blpop"
	case command.LRange:
		return "lrange"
	case command.Multi:
		return "multi"
	case command.Exec:
		return "exec"
	case command.Discard:
		return "discard"
	case command.Info:
		return "info"
	case command.ReplConf:
		return "replconf"
	case command.PSync:
		return "psync"
	default:
		return "unknown"
	}
}
