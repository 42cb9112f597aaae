package outlet

import (
	"context"
	"sync"

	"github.com/temoto/gazestream/sample"
)

// Mock records everything, for tests of outlet users.
type Mock struct {
	mu     sync.Mutex
	infos  []sample.StreamInfo
	pushed [][]float64
	closed bool

	OpenErr error
	// PushErr returned from Push, pushed vector is still recorded
	PushErr error
	// OnPush, if set, is called after recording each vector
	OnPush func(values []float64)
}

var _ Outlet = &Mock{} // compile-time interface test

func NewMock() *Mock { return &Mock{} }

func (self *Mock) String() string { return "mock" }

func (self *Mock) Open(ctx context.Context, info sample.StreamInfo) (Stream, error) {
	self.mu.Lock()
	defer self.mu.Unlock()
	if self.OpenErr != nil {
		return nil, self.OpenErr
	}
	self.infos = append(self.infos, info)
	return &mockStream{m: self}, nil
}

func (self *Mock) Infos() []sample.StreamInfo {
	self.mu.Lock()
	defer self.mu.Unlock()
	return append([]sample.StreamInfo(nil), self.infos...)
}

func (self *Mock) Pushed() [][]float64 {
	self.mu.Lock()
	defer self.mu.Unlock()
	return append([][]float64(nil), self.pushed...)
}

func (self *Mock) Closed() bool {
	self.mu.Lock()
	defer self.mu.Unlock()
	return self.closed
}

type mockStream struct{ m *Mock }

func (self *mockStream) Push(values []float64) error {
	v := make([]float64, len(values))
	copy(v, values)
	self.m.mu.Lock()
	self.m.pushed = append(self.m.pushed, v)
	err, fun := self.m.PushErr, self.m.OnPush
	self.m.mu.Unlock()
	if fun != nil {
		fun(v)
	}
	return err
}

func (self *mockStream) Close() error {
	self.m.mu.Lock()
	self.m.closed = true
	self.m.mu.Unlock()
	return nil
}
