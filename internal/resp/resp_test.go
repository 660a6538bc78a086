package resp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleFrames() []Frame {
	return []Frame{
		Simple("OK"),
		Err("ERR value is not an integer or out of range"),
		Int64(0),
		Int64(-42),
		Int64(9223372036854775807),
		Bulk("hello"),
		BulkOf([]byte{}),
		Null(),
		ArrayOf(),
		ArrayOf(Bulk("SET"), Bulk("k"), Bulk("v")),
		ArrayOf(ArrayOf(Bulk("nested")), Int64(7), Null()),
	}
}

func TestRoundTrip(t *testing.T) {
	for _, f := range sampleFrames() {
		encoded := Encode(f)
		decoded, consumed, err := Decode(encoded)
		require.NoError(t, err)
		assert.Equal(t, len(encoded), consumed)
		assert.Equal(t, f, decoded)
	}
}

func TestDecodeNeedMoreOnEveryPrefix(t *testing.T) {
	for _, f := range sampleFrames() {
		encoded := Encode(f)
		for i := 0; i < len(encoded); i++ {
			_, _, err := Decode(encoded[:i])
			assert.ErrorIs(t, err, ErrNeedMore, "prefix length %d of %q", i, encoded)
		}
	}
}

func TestDecodeFragmentation(t *testing.T) {
	for _, f := range sampleFrames() {
		encoded := Encode(f)
		for split := 0; split <= len(encoded); split++ {
			a, b := encoded[:split], encoded[split:]

			buf := append([]byte{}, a...)
			frame, consumed, err := Decode(buf)
			if err == ErrNeedMore {
				buf = append(buf, b...)
				frame, consumed, err = Decode(buf)
			}
			require.NoError(t, err)
			assert.Equal(t, f, frame)
			assert.Equal(t, len(buf), consumed)
		}
	}
}

func TestDecodeLeavesTrailingBytes(t *testing.T) {
	encoded := Encode(Simple("PONG"))
	buf := append(append([]byte{}, encoded...), Encode(Int64(1))...)

	frame, consumed, err := Decode(buf)
	require.NoError(t, err)
	assert.Equal(t, Simple("PONG"), frame)

	rest := buf[consumed:]
	frame2, consumed2, err := Decode(rest)
	require.NoError(t, err)
	assert.Equal(t, Int64(1), frame2)
	assert.Equal(t, len(rest), consumed2)
}

func TestDecodeErrors(t *testing.T) {
	cases := map[string]string{
		"invalid leading byte": "!oops\r\n",
		"empty simple string":  "+\r\n",
		"empty simple error":   "-\r\n",
		"bad integer":          ":abc\r\n",
		"bad bulk length":      "$abc\r\n",
		"negative bulk length": "$-5\r\n",
		"missing bulk CRLF":    "$5\r\nhelloXX",
		"null array":           "*-1\r\n",
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, _, err := Decode([]byte(input))
			require.Error(t, err)
			assert.NotErrorIs(t, err, ErrNeedMore)
		})
	}
}

func TestBulkStringCanContainArbitraryBytes(t *testing.T) {
	payload := []byte("has\r\nCRLF\x00and a nul byte")
	f := BulkOf(payload)
	decoded, consumed, err := Decode(Encode(f))
	require.NoError(t, err)
	assert.Equal(t, payload, decoded.Bulk)
	assert.Equal(t, len(Encode(f)), consumed)
}
