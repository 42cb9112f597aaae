package outlet

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/juju/errors"
	"github.com/nats-io/nats.go"
	"github.com/temoto/gazestream/log2"
	"github.com/temoto/gazestream/sample"
)

const (
	defaultNatsURL     = nats.DefaultURL
	defaultNatsSubject = "gazestream"
	natsDrainTimeout   = 2 * time.Second
)

type NATSConfig struct {
	URL     string `hcl:"url"`
	Subject string `hcl:"subject"`
}

func (c NATSConfig) SubjectInfo() string   { return c.subject() + ".info" }
func (c NATSConfig) SubjectSample() string { return c.subject() + ".sample" }
func (c NATSConfig) subject() string {
	if c.Subject == "" {
		return defaultNatsSubject
	}
	return c.Subject
}

// NATS outlet publishes info once and answers info requests for late subscribers.
type NATS struct {
	config NATSConfig
	enc    sample.Encoder
	log    *log2.Log
	stat   *Stat
}

func NewNATS(config NATSConfig, enc sample.Encoder, log *log2.Log, stat *Stat) *NATS {
	if config.URL == "" {
		config.URL = defaultNatsURL
	}
	return &NATS{config: config, enc: enc, log: log, stat: stat}
}

func (self *NATS) String() string { return fmt.Sprintf("nats(%s)", self.config.URL) }

func (self *NATS) Open(ctx context.Context, info sample.StreamInfo) (Stream, error) {
	infoPayload, err := sample.EncodeInfo(info)
	if err != nil {
		return nil, err
	}
	timeout := 5 * time.Second
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}
	closed := make(chan struct{})
	var closeOnce sync.Once
	nc, err := nats.Connect(self.config.URL,
		nats.Name(info.SourceID),
		nats.Timeout(timeout),
		nats.MaxReconnects(-1),
		nats.DrainTimeout(natsDrainTimeout),
		nats.ClosedHandler(func(*nats.Conn) { closeOnce.Do(func() { close(closed) }) }),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				self.log.Errorf("nats disconnected url=%s err=%v", self.config.URL, err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			self.log.Infof("nats reconnected url=%s", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, errors.Annotatef(err, "nats connect url=%s", self.config.URL)
	}
	subjectInfo := self.config.SubjectInfo()
	_, err = nc.Subscribe(subjectInfo, func(m *nats.Msg) {
		if m.Reply == "" {
			return
		}
		if err := m.Respond(infoPayload); err != nil {
			self.log.Debugf("nats info respond err=%v", err)
		}
	})
	if err != nil {
		nc.Close()
		return nil, errors.Annotatef(err, "nats subscribe %s", subjectInfo)
	}
	if err := nc.Publish(subjectInfo, infoPayload); err != nil {
		nc.Close()
		return nil, errors.Annotatef(err, "nats publish %s", subjectInfo)
	}
	return &natsStream{
		nc:      nc,
		closed:  closed,
		enc:     self.enc,
		stat:    self.stat,
		subject: self.config.SubjectSample(),
	}, nil
}

type natsStream struct {
	nc      *nats.Conn
	closed  <-chan struct{}
	enc     sample.Encoder
	stat    *Stat
	subject string
	seq     uint64
}

func (self *natsStream) Push(values []float64) error {
	self.seq++
	b, err := self.enc.Encode(self.seq, values)
	if err != nil {
		return errors.Annotate(err, "nats encode")
	}
	// buffered by client, no server ack
	if err := self.nc.Publish(self.subject, b); err != nil {
		return errors.Annotatef(err, "nats publish %s", self.subject)
	}
	self.stat.sent(len(b))
	return nil
}

// Close unsubscribes, flushes buffered samples and waits until connection is closed.
func (self *natsStream) Close() error {
	if err := self.nc.Drain(); err != nil {
		self.nc.Close()
		return errors.Annotate(err, "nats drain")
	}
	select {
	case <-self.closed:
		return nil
	case <-time.After(natsDrainTimeout + time.Second):
		self.nc.Close()
		return errors.Timeoutf("nats drain")
	}
}
