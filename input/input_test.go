package input

import (
	"bytes"
	"encoding/binary"
	"io"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/temoto/alive/v2"
	"github.com/temoto/gazestream/log2"
	"github.com/temoto/inputevent-go"
)

func TestIsQuit(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name   string
		config Config
		event  Event
		expect bool
	}{
		{"default-lower", Config{}, Event{Source: TerminalTag, Key: 'q'}, true},
		{"default-upper", Config{}, Event{Source: TerminalTag, Key: 'Q'}, true},
		{"other-key", Config{}, Event{Source: TerminalTag, Key: 'w'}, false},
		{"custom-key", Config{QuitKey: "x"}, Event{Source: TerminalTag, Key: 'X'}, true},
		{"device-down", Config{}, Event{Source: DevInputEventTag, Key: KeyCodeQ}, true},
		{"device-up", Config{}, Event{Source: DevInputEventTag, Key: KeyCodeQ, Up: true}, false},
		{"device-custom", Config{InputKeyCode: 1}, Event{Source: DevInputEventTag, Key: 1}, true},
		{"device-other", Config{}, Event{Source: DevInputEventTag, Key: 17}, false},
		{"unknown-source", Config{}, Event{Source: "mystery", Key: 'q'}, false},
	}
	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.expect, c.config.IsQuit(c.event))
		})
	}
}

func TestReaderSource(t *testing.T) {
	t.Parallel()
	s := NewReaderSource(strings.NewReader("ab"))
	e, err := s.Read()
	require.NoError(t, err)
	assert.Equal(t, Event{Source: TerminalTag, Key: 'a'}, e)
	e, err = s.Read()
	require.NoError(t, err)
	assert.Equal(t, Key('b'), e.Key)
	_, err = s.Read()
	assert.Equal(t, io.EOF, err)
	assert.NoError(t, s.Close())
}

func TestStopOnQuit(t *testing.T) {
	t.Parallel()
	// source goroutines may outlive the test, t.Logf would panic
	var log *log2.Log
	a := alive.NewAlive()
	d := NewDispatch(log, a.StopChan())
	StopOnQuit(d, a, Config{}, log)

	done := make(chan struct{})
	go func() {
		d.Run([]Source{NewReaderSource(strings.NewReader("hello Quit"))})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("dispatch did not stop on quit key")
	}
	assert.False(t, a.IsRunning())
}

func TestNoQuitKeepsRunning(t *testing.T) {
	t.Parallel()
	// source goroutines may outlive the test, t.Logf would panic
	var log *log2.Log
	a := alive.NewAlive()
	d := NewDispatch(log, a.StopChan())
	StopOnQuit(d, a, Config{}, log)
	var got []Key
	d.SubscribeFunc("record", func(e Event) { got = append(got, e.Key) })

	done := make(chan struct{})
	go func() {
		d.Run([]Source{NewReaderSource(strings.NewReader("abc"))})
		close(done)
	}()
	assert.Eventually(t, func() bool {
		d.mu.Lock()
		defer d.mu.Unlock()
		return len(got) == 3
	}, 5*time.Second, time.Millisecond)
	assert.True(t, a.IsRunning())
	a.Stop()
	<-done
	assert.Equal(t, []Key{'a', 'b', 'c'}, got)
}

type nopCloser struct{ io.Reader }

func (nopCloser) Close() error { return nil }

func TestDevInputEvent(t *testing.T) {
	t.Parallel()
	buf := bytes.NewBuffer(nil)
	write := func(typ, code uint16, value int32) {
		ie := inputevent.InputEvent{Time: syscall.Timeval{}, Type: typ, Code: code, Value: value}
		require.NoError(t, binary.Write(buf, binary.NativeEndian, ie))
	}
	write(0x00, 0, 0) // EV_SYN
	write(evKey, KeyCodeQ, int32(inputevent.KeyStateDown))
	write(evKey, KeyCodeQ, int32(inputevent.KeyStateUp))
	require.Equal(t, 3*inputevent.EventSizeof, buf.Len())

	s := &DevInputEventSource{f: nopCloser{buf}}
	e, err := s.Read()
	require.NoError(t, err)
	assert.Equal(t, Event{Source: DevInputEventTag, Key: KeyCodeQ, Up: false}, e)
	e, err = s.Read()
	require.NoError(t, err)
	assert.True(t, e.Up)
	_, err = s.Read()
	assert.Equal(t, io.EOF, err)
	assert.NoError(t, s.Close())
}
