package command

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/nocturnekv/respd/internal/resp"
)

// ParseError is a command-validation failure. Its Error() text is the
// exact SimpleError payload the connection replies with; the connection
// stays open.
type ParseError struct {
	msg string
}

func (e *ParseError) Error() string { return e.msg }

func parseErrf(format string, a ...any) error {
	return &ParseError{msg: fmt.Sprintf(format, a...)}
}

// Parse validates a decoded RESP frame as a command array and returns the
// corresponding Command, or a *ParseError describing why it is invalid.
func Parse(f resp.Frame) (Command, error) {
	if f.Kind != resp.Array {
		return Command{}, parseErrf("ERR expected array")
	}
	if len(f.Items) == 0 {
		return Command{}, parseErrf("ERR empty command")
	}

	args := make([]string, len(f.Items))
	raw := make([][]byte, len(f.Items))
	for i, item := range f.Items {
		if item.Kind != resp.BulkString {
			return Command{}, parseErrf("ERR protocol error: expected bulk string")
		}
		args[i] = string(item.Bulk)
		raw[i] = item.Bulk
	}

	name := strings.ToUpper(args[0])
	rest := args[1:]
	rawRest := raw[1:]

	switch name {
	case "PING":
		if len(rest) != 0 {
			return Command{}, arityErr("ping")
		}
		return Command{Kind: Ping}, nil

	case "ECHO":
		if len(rest) != 1 {
			return Command{}, arityErr("echo")
		}
		return Command{Kind: Echo, Value: rawRest[0]}, nil

	case "SET":
		return parseSet(rest, rawRest)

	case "GET":
		if len(rest) != 1 {
			return Command{}, arityErr("get")
		}
		return Command{Kind: Get, Key: rest[0]}, nil

	case "INCR":
		if len(rest) != 1 {
			return Command{}, arityErr("incr")
		}
		return Command{Kind: Incr, Key: rest[0]}, nil

	case "RPUSH":
		return parsePush(RPush, "rpush", rest, rawRest)

	case "LPUSH":
		return parsePush(LPush, "lpush", rest, rawRest)

	case "LLEN":
		if len(rest) != 1 {
			return Command{}, arityErr("llen")
		}
		return Command{Kind: LLen, Key: rest[0]}, nil

	case "LPOP":
		return parseLPop(rest)

	case "BLPOP":
		return parseBLPop(rest)

	case "LRANGE":
		return parseLRange(rest)

	case "MULTI":
		if len(rest) != 0 {
			return Command{}, arityErr("multi")
		}
		return Command{Kind: Multi}, nil

	case "EXEC":
		if len(rest) != 0 {
			return Command{}, arityErr("exec")
		}
		return Command{Kind: Exec}, nil

	case "DISCARD":
		if len(rest) != 0 {
			return Command{}, arityErr("discard")
		}
		return Command{Kind: Discard}, nil

	case "INFO":
		// parts[1] (rest[0]) is the section name; spec.md §9(b) notes the
		// reference implementation this was distilled from reads parts[2]
		// by mistake.
		section := ""
		if len(rest) > 0 {
			section = rest[0]
		}
		return Command{Kind: Info, Section: section}, nil

	case "REPLCONF":
		return Command{Kind: ReplConf, ReplArgs: rest}, nil

	case "PSYNC":
		if len(rest) != 2 {
			return Command{}, arityErr("psync")
		}
		offset, err := strconv.ParseInt(rest[1], 10, 64)
		if err != nil {
			offset = -1
		}
		return Command{Kind: PSync, ReplID: rest[0], Offset: offset}, nil

	default:
		return Command{}, parseErrf("ERR unknown command '%s'", args[0])
	}
}

func arityErr(name string) error {
	return parseErrf("ERR wrong number of arguments for '%s'", name)
}

func parseSet(rest []string, rawRest [][]byte) (Command, error) {
	if len(rest) != 2 && len(rest) != 4 {
		return Command{}, arityErr("set")
	}
	cmd := Command{Kind: Set, Key: rest[0], Value: rawRest[1]}
	if len(rest) == 4 {
		if !strings.EqualFold(rest[2], "PX") {
			return Command{}, parseErrf("ERR syntax error")
		}
		ms, err := strconv.ParseInt(rest[3], 10, 64)
		if err != nil || ms < 0 {
			return Command{}, parseErrf("ERR value is not an integer or out of range")
		}
		cmd.HasPX = true
		cmd.PXMs = ms
	}
	return cmd, nil
}

func parsePush(kind Kind, name string, rest []string, rawRest [][]byte) (Command, error) {
	if len(rest) < 2 {
		return Command{}, arityErr(name)
	}
	return Command{Kind: kind, Key: rest[0], Values: rawRest[1:]}, nil
}

func parseLPop(rest []string) (Command, error) {
	if len(rest) != 1 && len(rest) != 2 {
		return Command{}, arityErr("lpop")
	}
	cmd := Command{Kind: LPop, Key: rest[0]}
	if len(rest) == 2 {
		n, err := strconv.ParseInt(rest[1], 10, 64)
		if err != nil {
			return Command{}, parseErrf("ERR value is not an integer or out of range")
		}
		cmd.HasCount = true
		cmd.Count = n
	}
	return cmd, nil
}

func parseBLPop(rest []string) (Command, error) {
	if len(rest) < 2 {
		return Command{}, arityErr("blpop")
	}
	timeout, err := strconv.ParseFloat(rest[len(rest)-1], 64)
	if err != nil {
		return Command{}, parseErrf("ERR timeout is not a float or out of range")
	}
	return Command{Kind: BLPop, Keys: rest[:len(rest)-1], Timeout: timeout}, nil
}

func parseLRange(rest []string) (Command, error) {
	if len(rest) != 3 {
		return Command{}, arityErr("lrange")
	}
	start, err1 := strconv.ParseInt(rest[1], 10, 64)
	stop, err2 := strconv.ParseInt(rest[2], 10, 64)
	if err1 != nil || err2 != nil {
		return Command{}, parseErrf("ERR value is not an integer or out of range")
	}
	return Command{Kind: LRange, Key: rest[0], Start: start, Stop: stop}, nil
}
