// Package display shows live sample status line to the operator.
package display

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/temoto/gazestream/log2"
	"github.com/temoto/gazestream/sample"
)

const DefaultLogInterval = time.Second

type Config struct {
	Enable bool `hcl:"enable"`
}

// Status rewrites single line in place on terminal.
// Without terminal it logs at most once per Interval.
type Status struct {
	mu       sync.Mutex
	w        io.Writer
	tty      bool
	log      *log2.Log
	width    int
	last     time.Time
	Interval time.Duration
	now      func() time.Time
}

// NewStdout returns nil when disabled, nil *Status is valid no-op.
func NewStdout(config Config, log *log2.Log) *Status {
	if !config.Enable {
		return nil
	}
	return New(os.Stdout, isatty.IsTerminal(os.Stdout.Fd()), log)
}

func New(w io.Writer, tty bool, log *log2.Log) *Status {
	return &Status{
		w:        w,
		tty:      tty,
		log:      log,
		Interval: DefaultLogInterval,
		now:      time.Now,
	}
}

func (self *Status) Show(s *sample.Sample) {
	if self == nil {
		return
	}
	line := s.String()
	self.mu.Lock()
	defer self.mu.Unlock()
	if !self.tty {
		now := self.now()
		if !self.last.IsZero() && now.Sub(self.last) < self.Interval {
			return
		}
		self.last = now
		self.log.Info(line)
		return
	}
	pad := ""
	if n := self.width - len(line); n > 0 {
		pad = strings.Repeat(" ", n)
	}
	self.width = len(line)
	_, _ = io.WriteString(self.w, "\r"+line+pad)
}

// Close moves terminal cursor off status line.
func (self *Status) Close() {
	if self == nil {
		return
	}
	self.mu.Lock()
	defer self.mu.Unlock()
	if self.tty && self.width != 0 {
		_, _ = io.WriteString(self.w, "\n")
		self.width = 0
	}
}
