package server

import (
	"context"
	"net"

	"github.com/rs/zerolog"

	"github.com/nocturnekv/respd/internal/metrics"
	"github.com/nocturnekv/respd/internal/store"
)

// Listener accepts TCP connections and spawns one goroutine per
// connection, each running its own Connection state machine against the
// shared mailbox and server-info snapshot.
type Listener struct {
	ln      net.Listener
	mailbox *store.Mailbox
	info    *Info
	metrics *metrics.Collectors
	log     zerolog.Logger
}

// Listen binds addr ("127.0.0.1:<port>" per spec.md §6) and returns a
// Listener ready to Serve.
func Listen(addr string, mailbox *store.Mailbox, info *Info, m *metrics.Collectors, log zerolog.Logger) (*Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Listener{ln: ln, mailbox: mailbox, info: info, metrics: m, log: log}, nil
}

// Addr returns the bound address, useful when binding to ":0" in tests.
func (l *Listener) Addr() net.Addr { return l.ln.Addr() }

// Close stops accepting new connections.
func (l *Listener) Close() error { return l.ln.Close() }

// Serve accepts connections until ctx is cancelled or the listener is
// closed. Each connection is handled independently; one connection's
// error never affects another's.
func (l *Listener) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		l.ln.Close()
	}()

	for {
		conn, err := l.ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return err
			}
		}

		if l.metrics != nil {
			l.metrics.ConnectionsTotal.Inc()
			l.metrics.ConnectionsActive.Inc()
		}

		go func() {
			defer func() {
				if l.metrics != nil {
					l.metrics.ConnectionsActive.Dec()
				}
			}()
			c := NewConnection(conn, l.mailbox, l.info, l.metrics, l.log.With().Str("remote", conn.RemoteAddr().String()).Logger())
			c.Serve(ctx)
		}()
	}
}
