package input

import (
	"io"
	"os"

	"github.com/temoto/inputevent-go"
)

const DevInputEventTag = "dev-input-event"

// linux/input-event-codes.h
const (
	evKey    = 0x01
	KeyCodeQ = 16
)

type DevInputEventSource struct {
	f io.ReadCloser
}

var _ Source = new(DevInputEventSource) // compile-time interface test

func (self *DevInputEventSource) String() string { return DevInputEventTag }

func NewDevInputEventSource(device string) (*DevInputEventSource, error) {
	f, err := os.Open(device)
	if err != nil {
		return nil, err
	}
	return &DevInputEventSource{f: f}, nil
}

func (self *DevInputEventSource) Read() (Event, error) {
	for {
		ie, err := inputevent.ReadOne(self.f)
		if err != nil {
			return Event{}, err
		}
		if ie.Type == evKey {
			return Event{
				Source: DevInputEventTag,
				Key:    Key(ie.Code),
				Up:     ie.Value == int32(inputevent.KeyStateUp),
			}, nil
		}
	}
}

func (self *DevInputEventSource) Close() error { return self.f.Close() }
