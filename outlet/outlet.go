// Package outlet republishes assembled samples to subscribers.
//
// Outlet contract:
// - Open declares stream info once, before any sample, returns publish handle
// - Push is best effort, no acknowledgement, no buffering beyond transport internals
// - Push with zero subscribers is a successful no-op
// - Push is called from single goroutine, Close after last Push
package outlet

import (
	"context"

	"github.com/juju/errors"
	"github.com/temoto/gazestream/log2"
	"github.com/temoto/gazestream/sample"
)

type Outlet interface {
	Open(ctx context.Context, info sample.StreamInfo) (Stream, error)
	String() string
}

type Stream interface {
	Push(values []float64) error
	Close() error
}

const (
	KindNone      = "none"
	KindMQTT      = "mqtt"
	KindWebsocket = "websocket"
	KindNATS      = "nats"
)

type Config struct {
	Kind     string `hcl:"kind"`
	Encoding string `hcl:"encoding"`
	LogDebug bool   `hcl:"log_debug"`

	MQTT      MQTTConfig      `hcl:"mqtt"`
	Websocket WebsocketConfig `hcl:"websocket"`
	NATS      NATSConfig      `hcl:"nats"`
}

// New picks backend by config.Kind. Network is not touched until Open.
func New(config Config, log *log2.Log, stat *Stat) (Outlet, error) {
	enc, err := sample.NewEncoder(config.Encoding)
	if err != nil {
		return nil, errors.Annotate(err, "outlet")
	}
	if config.LogDebug {
		log = log.Clone(log2.LDebug)
	}
	switch config.Kind {
	case KindNone:
		return None{}, nil
	case KindMQTT:
		return NewMQTT(config.MQTT, enc, log, stat), nil
	case "", KindWebsocket:
		return NewWebsocket(config.Websocket, enc, log, stat), nil
	case KindNATS:
		return NewNATS(config.NATS, enc, log, stat), nil
	}
	return nil, errors.NotSupportedf("outlet kind=%s", config.Kind)
}

// None discards everything.
type None struct{}

var _ Outlet = None{} // compile-time interface test

func (None) Open(context.Context, sample.StreamInfo) (Stream, error) { return None{}, nil }
func (None) String() string                                          { return KindNone }
func (None) Push([]float64) error                                    { return nil }
func (None) Close() error                                            { return nil }
