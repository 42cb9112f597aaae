package input

import (
	"io"
	"os"

	"github.com/juju/errors"
	"github.com/mattn/go-isatty"
)

const TerminalTag = "terminal"

// TerminalSource emits one event per byte typed.
// On a tty, line buffering and echo are disabled until Close.
type TerminalSource struct {
	r       io.Reader
	restore func() error
}

var _ Source = new(TerminalSource) // compile-time interface test

func NewTerminalSource(f *os.File) (*TerminalSource, error) {
	self := &TerminalSource{r: f}
	if isatty.IsTerminal(f.Fd()) {
		restore, err := setCbreak(int(f.Fd()))
		if err != nil {
			return nil, errors.Annotate(err, "terminal cbreak")
		}
		self.restore = restore
	}
	return self, nil
}

func NewReaderSource(r io.Reader) *TerminalSource { return &TerminalSource{r: r} }

func (self *TerminalSource) String() string { return TerminalTag }

func (self *TerminalSource) Read() (Event, error) {
	var b [1]byte
	for {
		n, err := self.r.Read(b[:])
		if n == 1 {
			return Event{Source: TerminalTag, Key: Key(b[0])}, nil
		}
		if err != nil {
			return Event{}, err
		}
	}
}

// Close restores terminal mode. Underlying file is left open.
func (self *TerminalSource) Close() error {
	if self.restore == nil {
		return nil
	}
	err := self.restore()
	self.restore = nil
	return err
}
