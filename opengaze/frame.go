package opengaze

import (
	"bytes"
	"fmt"
)

const Terminator = "\r\n"

// DefaultFrameMax is generous, a full record with every field enabled is under 2KB.
const DefaultFrameMax = 64 << 10

var ErrFrameTooLong = fmt.Errorf("frame is too long")

// Framer accumulates bytes into CRLF terminated frames.
// Zero value is usable and unbounded.
type Framer struct {
	buf bytes.Buffer
	// Max accumulated length including terminator, 0 means no limit.
	Max int
}

func NewFramer(max int) *Framer { return &Framer{Max: max} }

// Feed appends one byte. When accumulator ends with terminator, returns
// frame text without terminator and ok=true, accumulator is reset.
// Exceeding Max discards accumulated bytes and returns ErrFrameTooLong.
func (self *Framer) Feed(c byte) (string, bool, error) {
	self.buf.WriteByte(c)
	n := self.buf.Len()
	if c == '\n' && n >= len(Terminator) && self.buf.Bytes()[n-2] == '\r' {
		frame := string(self.buf.Bytes()[:n-len(Terminator)])
		self.buf.Reset()
		return frame, true, nil
	}
	if self.Max > 0 && n >= self.Max {
		self.buf.Reset()
		return "", false, fmt.Errorf("%w max=%d", ErrFrameTooLong, self.Max)
	}
	return "", false, nil
}

// Pending is length of incomplete frame.
func (self *Framer) Pending() int { return self.buf.Len() }

func (self *Framer) Reset() { self.buf.Reset() }
