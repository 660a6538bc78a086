package command

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nocturnekv/respd/internal/resp"
)

func arrayOf(parts ...string) resp.Frame {
	items := make([]resp.Frame, len(parts))
	for i, p := range parts {
		items[i] = resp.Bulk(p)
	}
	return resp.ArrayOf(items...)
}

func TestParsePing(t *testing.T) {
	cmd, err := Parse(arrayOf("PING"))
	require.NoError(t, err)
	assert.Equal(t, Ping, cmd.Kind)
}

func TestParseCaseInsensitiveName(t *testing.T) {
	cmd, err := Parse(arrayOf("ping"))
	require.NoError(t, err)
	assert.Equal(t, Ping, cmd.Kind)
}

func TestParseSetWithPX(t *testing.T) {
	cmd, err := Parse(arrayOf("SET", "k", "v", "PX", "100"))
	require.NoError(t, err)
	assert.Equal(t, Set, cmd.Kind)
	assert.Equal(t, "k", cmd.Key)
	assert.Equal(t, []byte("v"), cmd.Value)
	assert.True(t, cmd.HasPX)
	assert.Equal(t, int64(100), cmd.PXMs)
}

func TestParseSetPXCaseInsensitive(t *testing.T) {
	cmd, err := Parse(arrayOf("SET", "k", "v", "px", "100"))
	require.NoError(t, err)
	assert.True(t, cmd.HasPX)
}

func TestParseSetBadOption(t *testing.T) {
	_, err := Parse(arrayOf("SET", "k", "v", "EX", "100"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "syntax error")
}

func TestParseSetNegativePX(t *testing.T) {
	_, err := Parse(arrayOf("SET", "k", "v", "PX", "-1"))
	require.Error(t, err)
}

func TestParseEmptyArray(t *testing.T) {
	_, err := Parse(resp.ArrayOf())
	require.Error(t, err)
}

func TestParseUnknownCommand(t *testing.T) {
	_, err := Parse(arrayOf("NOPE"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown command")
}

func TestParseWrongArity(t *testing.T) {
	_, err := Parse(arrayOf("GET"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wrong number of arguments")
}

func TestParseNonBulkElement(t *testing.T) {
	f := resp.ArrayOf(resp.Bulk("GET"), resp.Int64(1))
	_, err := Parse(f)
	require.Error(t, err)
}

func TestParseRPushLPush(t *testing.T) {
	cmd, err := Parse(arrayOf("RPUSH", "L", "a", "b", "c"))
	require.NoError(t, err)
	assert.Equal(t, RPush, cmd.Kind)
	assert.Equal(t, "L", cmd.Key)
	require.Len(t, cmd.Values, 3)
	assert.Equal(t, []byte("a"), cmd.Values[0])

	cmd, err = Parse(arrayOf("LPUSH", "L", "x", "y", "z"))
	require.NoError(t, err)
	assert.Equal(t, LPush, cmd.Kind)
}

func TestParseLPopWithAndWithoutCount(t *testing.T) {
	cmd, err := Parse(arrayOf("LPOP", "L"))
	require.NoError(t, err)
	assert.False(t, cmd.HasCount)

	cmd, err = Parse(arrayOf("LPOP", "L", "2"))
	require.NoError(t, err)
	assert.True(t, cmd.HasCount)
	assert.Equal(t, int64(2), cmd.Count)
}

func TestParseLRange(t *testing.T) {
	cmd, err := Parse(arrayOf("LRANGE", "L", "0", "-1"))
	require.NoError(t, err)
	assert.Equal(t, int64(0), cmd.Start)
	assert.Equal(t, int64(-1), cmd.Stop)
}

func TestParseBLPop(t *testing.T) {
	cmd, err := Parse(arrayOf("BLPOP", "a", "b", "1.5"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, cmd.Keys)
	assert.InDelta(t, 1.5, cmd.Timeout, 1e-9)
}

func TestParseInfoSectionFromIndexOne(t *testing.T) {
	cmd, err := Parse(arrayOf("INFO", "replication"))
	require.NoError(t, err)
	assert.Equal(t, "replication", cmd.Section)

	cmd, err = Parse(arrayOf("INFO"))
	require.NoError(t, err)
	assert.Equal(t, "", cmd.Section)
}

func TestParsePSync(t *testing.T) {
	cmd, err := Parse(arrayOf("PSYNC", "?", "-1"))
	require.NoError(t, err)
	assert.Equal(t, "?", cmd.ReplID)
	assert.Equal(t, int64(-1), cmd.Offset)
}
