package resp

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type slowReader struct {
	chunks [][]byte
}

func (s *slowReader) Read(p []byte) (int, error) {
	if len(s.chunks) == 0 {
		return 0, io.EOF
	}
	n := copy(p, s.chunks[0])
	s.chunks[0] = s.chunks[0][n:]
	if len(s.chunks[0]) == 0 {
		s.chunks = s.chunks[1:]
	}
	return n, nil
}

func TestReaderAcrossFragmentedReads(t *testing.T) {
	full := Encode(ArrayOf(Bulk("SET"), Bulk("k"), Bulk("v")))
	chunks := [][]byte{full[:3], full[3:10], full[10:]}
	r := NewReader(&slowReader{chunks: chunks})

	frame, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, ArrayOf(Bulk("SET"), Bulk("k"), Bulk("v")), frame)
}

func TestReaderMultipleFramesOneBuffer(t *testing.T) {
	buf := append(Encode(Simple("PONG")), Encode(Int64(5))...)
	r := NewReader(bytes.NewReader(buf))

	f1, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, Simple("PONG"), f1)

	f2, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, Int64(5), f2)
}

func TestReaderEOFWithNoPendingFrame(t *testing.T) {
	r := NewReader(bytes.NewReader(nil))
	_, err := r.Next()
	assert.ErrorIs(t, err, io.EOF)
}
