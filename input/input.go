// Package input reads operator key events from terminal and Linux input devices.
package input

import (
	"io"
	"sync"

	"github.com/juju/errors"
	"github.com/temoto/gazestream/log2"
)

type Key uint32

type Event struct {
	Source string
	Key    Key
	Up     bool
}

type Source interface {
	Read() (Event, error)
	String() string
	Close() error
}

type EventFunc func(Event)

// Dispatch fans events from all sources to subscribers until stop is closed.
type Dispatch struct {
	Log  *log2.Log
	bus  chan Event
	mu   sync.Mutex
	subs map[string]EventFunc
	stop <-chan struct{}
}

func NewDispatch(log *log2.Log, stop <-chan struct{}) *Dispatch {
	return &Dispatch{
		Log:  log,
		bus:  make(chan Event),
		subs: make(map[string]EventFunc, 4),
		stop: stop,
	}
}

func (self *Dispatch) SubscribeFunc(name string, fun EventFunc) {
	self.mu.Lock()
	defer self.mu.Unlock()
	if _, ok := self.subs[name]; ok {
		panic("code error input duplicate subscribe name=" + name)
	}
	self.subs[name] = fun
}

// Run blocks until stop. Source read errors end that source only.
func (self *Dispatch) Run(sources []Source) {
	for _, source := range sources {
		go self.readSource(source)
	}
	for {
		select {
		case event := <-self.bus:
			self.mu.Lock()
			for _, fun := range self.subs {
				fun(event)
			}
			self.mu.Unlock()

		case <-self.stop:
			return
		}
	}
}

func (self *Dispatch) Emit(event Event) {
	select {
	case self.bus <- event:
		self.Log.Debugf("input emit=%#v", event)
	case <-self.stop:
	}
}

func (self *Dispatch) readSource(source Source) {
	tag := source.String()
	for {
		event, err := source.Read()
		if err != nil {
			select {
			case <-self.stop:
			default:
				if err == io.EOF {
					self.Log.Debugf("input source=%s closed", tag)
				} else {
					self.Log.Error(errors.Annotatef(err, "input source=%s", tag))
				}
			}
			return
		}
		self.Emit(event)
	}
}
