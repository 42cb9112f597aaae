// Package bridge runs the device session: connect, enable data, read frames, publish samples, close.
package bridge

import (
	"bufio"
	"context"
	"io"
	"net"
	"sync/atomic"
	"time"

	"github.com/juju/errors"
	"github.com/temoto/alive/v2"
	"github.com/temoto/gazestream/display"
	"github.com/temoto/gazestream/helpers"
	"github.com/temoto/gazestream/log2"
	"github.com/temoto/gazestream/opengaze"
	"github.com/temoto/gazestream/outlet"
	"github.com/temoto/gazestream/sample"
	"github.com/temoto/gazestream/tele"
)

type Config struct {
	Address        string `hcl:"address"`
	DialTimeoutSec int    `hcl:"dial_timeout_sec"`
	ReadTimeoutSec int    `hcl:"read_timeout_sec"`
	FrameMax       int    `hcl:"frame_max"`
	LogDebug       bool   `hcl:"log_debug"`
}

type State int32

const (
	StateInvalid State = iota
	StateConnecting
	StateStreaming
	StateClosing
	StateClosed
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateStreaming:
		return "streaming"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	case StateFailed:
		return "failed"
	}
	return "invalid"
}

type DialFunc func(ctx context.Context, network, address string) (net.Conn, error)

type Bridge struct {
	config  Config
	info    sample.StreamInfo
	log     *log2.Log
	alive   *alive.Alive
	outlet  outlet.Outlet
	stat    *tele.Stat
	display *display.Status

	framer    *opengaze.Framer
	assembler sample.Assembler
	state     int32

	Dial DialFunc
	// OnState observes every transition, called from Run goroutine.
	OnState func(State)
}

func New(config Config, info sample.StreamInfo, o outlet.Outlet, a *alive.Alive, log *log2.Log, stat *tele.Stat) *Bridge {
	if config.Address == "" {
		config.Address = opengaze.DefaultServerAddress
	}
	if config.FrameMax == 0 {
		config.FrameMax = opengaze.DefaultFrameMax
	}
	if config.LogDebug {
		log = log.Clone(log2.LDebug)
	}
	if stat == nil {
		stat = tele.NewStat()
	}
	dialer := &net.Dialer{Timeout: helpers.IntSecondDefault(config.DialTimeoutSec, 0)}
	return &Bridge{
		config: config,
		info:   info,
		log:    log,
		alive:  a,
		outlet: o,
		stat:   stat,
		framer: opengaze.NewFramer(config.FrameMax),
		Dial:   dialer.DialContext,
	}
}

func (self *Bridge) SetDisplay(d *display.Status) { self.display = d }

func (self *Bridge) State() State { return State(atomic.LoadInt32(&self.state)) }

func (self *Bridge) setState(s State) {
	atomic.StoreInt32(&self.state, int32(s))
	self.log.Debugf("bridge state=%s", s)
	if self.OnState != nil {
		self.OnState(s)
	}
}

func (self *Bridge) running(ctx context.Context) bool {
	return self.alive.IsRunning() && ctx.Err() == nil
}

// Run blocks until alive is stopped, ctx is done or device closes connection.
// Returns nil in those cases. Connect, outlet open and transport errors are returned.
func (self *Bridge) Run(ctx context.Context) error {
	self.setState(StateConnecting)
	conn, err := self.Dial(ctx, "tcp", self.config.Address)
	if err != nil {
		self.log.Errorf("connect address=%s err=%v (is eye tracker control server running?)", self.config.Address, err)
		self.setState(StateFailed)
		return errors.Annotatef(err, "connect address=%s", self.config.Address)
	}
	self.log.Infof("connected address=%s", conn.RemoteAddr())

	stream, err := self.outlet.Open(ctx, self.info)
	if err != nil {
		if closeErr := closeConn(conn); closeErr != nil {
			self.log.Errorf("close err=%v", closeErr)
		}
		self.setState(StateFailed)
		return errors.Annotatef(err, "outlet open %s", self.outlet.String())
	}
	self.log.Infof("outlet %s stream=%s uid=%s", self.outlet.String(), self.info.Name, self.info.UID)

	self.setState(StateStreaming)
	err = self.stream(ctx, conn, stream)

	self.setState(StateClosing)
	self.display.Close()
	closeErr := helpers.FoldErrors([]error{
		closeConn(conn),
		errors.Annotate(stream.Close(), "outlet close"),
	})
	if closeErr != nil {
		self.log.Errorf("close err=%v", closeErr)
	}
	self.setState(StateClosed)
	return err
}

func (self *Bridge) stream(ctx context.Context, conn net.Conn, stream outlet.Stream) error {
	w := bufio.NewWriter(helpers.NewStatWriter(conn, self.stat.BytesSent, 0))
	if err := opengaze.WriteEnable(w, opengaze.StreamFeatures); err != nil {
		return errors.Annotate(err, "enable data")
	}

	done := make(chan struct{})
	defer close(done)
	go self.watchStop(ctx, conn, done)

	readTimeout := helpers.IntSecondDefault(self.config.ReadTimeoutSec, 0)
	r := bufio.NewReader(helpers.NewStatReader(conn, self.stat.BytesReceived, 0))
	for self.running(ctx) {
		if readTimeout != 0 && r.Buffered() == 0 {
			_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
			// stop watcher may have fired before the line above
			if !self.running(ctx) {
				break
			}
		}
		c, err := r.ReadByte()
		if err != nil {
			if err == io.EOF {
				if n := self.framer.Pending(); n != 0 {
					self.log.Debugf("partial frame discarded len=%d", n)
					self.framer.Reset()
				}
				self.log.Infof("device closed connection")
				return nil
			}
			if isTimeout(err) {
				// bufio and framer keep state, loop rechecks cancellation
				continue
			}
			return errors.Annotate(err, "device read")
		}
		frame, ok, err := self.framer.Feed(c)
		if err != nil {
			self.stat.Drop(tele.DropTooLong)
			self.log.Errorf("frame dropped err=%v", err)
			continue
		}
		if ok {
			self.handleFrame(frame, stream)
		}
	}
	self.log.Debugf("bridge stopped")
	return nil
}

// watchStop unblocks pending read on cancellation.
func (self *Bridge) watchStop(ctx context.Context, conn net.Conn, done <-chan struct{}) {
	select {
	case <-done:
		return
	case <-self.alive.StopChan():
	case <-ctx.Done():
	}
	_ = conn.SetReadDeadline(time.Now())
}

func (self *Bridge) handleFrame(frame string, stream outlet.Stream) {
	if !opengaze.IsRecord(frame) {
		self.stat.Frame(tele.FrameOther)
		self.log.Debugf("frame ignored %s", frame)
		return
	}
	self.stat.Frame(tele.FrameData)

	s, err := self.assembler.Assemble(frame)
	if err != nil {
		self.stat.Drop(dropReason(err))
		self.log.Errorf("frame dropped err=%v", err)
		return
	}
	if err = stream.Push(s.Values[:]); err != nil {
		self.stat.PublishError()
		self.log.Errorf("outlet push err=%v", err)
		return
	}
	self.stat.Published(s.Time(), s.Rate)
	self.display.Show(&s)
}

func dropReason(err error) string {
	if errors.IsNotFound(err) {
		return tele.DropMissing
	}
	return tele.DropMalformed
}

func isTimeout(err error) bool {
	if ne, ok := err.(net.Error); ok {
		return ne.Timeout()
	}
	return false
}

type halfCloser interface {
	CloseRead() error
	CloseWrite() error
}

// closeConn releases write half, read half, then transport. All steps are attempted.
func closeConn(conn net.Conn) error {
	errs := make([]error, 0, 3)
	if hc, ok := conn.(halfCloser); ok {
		errs = append(errs,
			errors.Annotate(hc.CloseWrite(), "close write"),
			errors.Annotate(hc.CloseRead(), "close read"),
		)
	}
	errs = append(errs, errors.Annotate(conn.Close(), "close transport"))
	return helpers.FoldErrors(errs)
}
