package resp

import "io"

// Reader turns a byte stream into a sequence of Frames, accumulating
// partial reads across calls. It is the connection-facing wrapper around
// the stateless Decode function.
type Reader struct {
	r       io.Reader
	buf     []byte
	scratch [4096]byte
}

// NewReader wraps r.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

// Next blocks until a full frame is available, reading from the
// underlying stream as needed, and returns it. It returns the
// underlying read error (often io.EOF) when the stream ends before a
// complete frame arrives, or a *DecodeError for malformed input.
func (r *Reader) Next() (Frame, error) {
	for {
		frame, consumed, err := Decode(r.buf)
		if err == nil {
			r.buf = r.buf[consumed:]
			return frame, nil
		}
		if err != ErrNeedMore {
			return Frame{}, err
		}

		n, rerr := r.r.Read(r.scratch[:])
		if n > 0 {
			r.buf = append(r.buf, r.scratch[:n]...)
		}
		if rerr != nil {
			if n > 0 {
				// Try once more to drain a frame that completed exactly
				// at EOF before surfacing the read error.
				if frame, consumed, derr := Decode(r.buf); derr == nil {
					r.buf = r.buf[consumed:]
					return frame, nil
				}
			}
			return Frame{}, rerr
		}
	}
}
