package server

import (
	"net"
	"strconv"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nocturnekv/respd/internal/resp"
)

// fakeMaster plays the master side of the handshake once: it expects
// PING, REPLCONF listening-port, REPLCONF capa psync2, then PSYNC ? -1,
// replying +OK to each of the first three and +FULLRESYNC to PSYNC.
func fakeMaster(t *testing.T, replID string, offset int64) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		reader := resp.NewReader(conn)

		for i := 0; i < 3; i++ {
			if _, err := reader.Next(); err != nil {
				return
			}
			conn.Write(resp.Encode(resp.Simple("OK")))
		}

		if _, err := reader.Next(); err != nil {
			return
		}
		conn.Write(resp.Encode(resp.Simple("FULLRESYNC " + replID + " " + strconv.FormatInt(offset, 10))))
	}()

	return ln.Addr().String()
}

func TestHandshakeSuccess(t *testing.T) {
	addr := fakeMaster(t, "abc123", 42)
	host, portStr, err := net.SplitHostPort(addr)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	replID, offset, err := Handshake(host, port, 7000, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, "abc123", replID)
	assert.Equal(t, int64(42), offset)
}

func TestHandshakeDialFailure(t *testing.T) {
	_, _, err := Handshake("127.0.0.1", 1, 7000, zerolog.Nop())
	assert.Error(t, err)
}

func TestParseFullResyncMalformed(t *testing.T) {
	_, _, err := parseFullResync("not a fullresync reply")
	assert.Error(t, err)

	_, _, err = parseFullResync("FULLRESYNC onlyonefield")
	assert.Error(t, err)

	_, _, err = parseFullResync("FULLRESYNC abc notanumber")
	assert.Error(t, err)
}
