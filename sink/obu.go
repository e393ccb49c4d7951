package sink

import (
	"fmt"
	"io"
)

// OBUSink writes units back to back as a raw low-overhead bitstream
// (.obu), the same layout the SVT-AV1 sample app produces without a
// container.
type OBUSink struct {
	out     io.Writer
	written int64
	closed  bool
}

func NewOBUSink(w io.Writer) *OBUSink {
	return &OBUSink{out: w}
}

func (s *OBUSink) WriteUnit(u Unit) error {
	n, err := s.out.Write(u.Data)
	s.written += int64(n)
	if err != nil {
		return fmt.Errorf("obu: %w", err)
	}
	return nil
}

// Written is the number of bytes written so far.
func (s *OBUSink) Written() int64 { return s.written }

func (s *OBUSink) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if c, ok := s.out.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
