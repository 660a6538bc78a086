package server

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/nocturnekv/respd/internal/resp"
)

// HandshakeTimeout bounds each step of the outbound replication
// handshake; the steps themselves are not retried (spec.md §7).
const HandshakeTimeout = 5 * time.Second

// Handshake performs the four-message replica handshake against a master
// (spec.md §4.7): PING, REPLCONF listening-port, REPLCONF capa psync2,
// PSYNC ? -1. It returns the replid and offset from the master's
// FULLRESYNC reply.
func Handshake(masterHost string, masterPort int, selfPort int, log zerolog.Logger) (replID string, offset int64, err error) {
	addr := net.JoinHostPort(masterHost, strconv.Itoa(masterPort))
	conn, err := net.DialTimeout("tcp", addr, HandshakeTimeout)
	if err != nil {
		return "", 0, fmt.Errorf("dialing master %s: %w", addr, err)
	}
	defer conn.Close()

	reader := resp.NewReader(conn)

	steps := []resp.Frame{
		resp.ArrayOf(resp.Bulk("PING")),
		resp.ArrayOf(resp.Bulk("REPLCONF"), resp.Bulk("listening-port"), resp.Bulk(strconv.Itoa(selfPort))),
		resp.ArrayOf(resp.Bulk("REPLCONF"), resp.Bulk("capa"), resp.Bulk("psync2")),
	}
	for _, step := range steps {
		if err := sendAndExpectAny(conn, reader, step); err != nil {
			return "", 0, err
		}
	}

	conn.SetDeadline(time.Now().Add(HandshakeTimeout))
	if _, err := conn.Write(resp.Encode(resp.ArrayOf(resp.Bulk("PSYNC"), resp.Bulk("?"), resp.Bulk("-1")))); err != nil {
		return "", 0, fmt.Errorf("sending PSYNC: %w", err)
	}
	reply, err := reader.Next()
	if err != nil {
		return "", 0, fmt.Errorf("reading PSYNC reply: %w", err)
	}
	if reply.Kind != resp.SimpleString {
		return "", 0, fmt.Errorf("unexpected PSYNC reply kind %s", reply.Kind)
	}

	replID, offset, err = parseFullResync(reply.Str)
	if err != nil {
		return "", 0, err
	}

	log.Info().Str("master", addr).Str("replid", replID).Int64("offset", offset).Msg("replication handshake complete")
	return replID, offset, nil
}

func sendAndExpectAny(conn net.Conn, reader *resp.Reader, frame resp.Frame) error {
	conn.SetDeadline(time.Now().Add(HandshakeTimeout))
	if _, err := conn.Write(resp.Encode(frame)); err != nil {
		return fmt.Errorf("writing handshake step: %w", err)
	}
	if _, err := reader.Next(); err != nil {
		return fmt.Errorf("reading handshake reply: %w", err)
	}
	return nil
}

// parseFullResync parses "FULLRESYNC <replid> <offset>".
func parseFullResync(s string) (string, int64, error) {
	fields := strings.Fields(s)
	if len(fields) != 3 || fields[0] != "FULLRESYNC" {
		return "", 0, fmt.Errorf("malformed FULLRESYNC reply %q", s)
	}
	offset, err := strconv.ParseInt(fields[2], 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("malformed FULLRESYNC offset %q", fields[2])
	}
	return fields[1], offset, nil
}
