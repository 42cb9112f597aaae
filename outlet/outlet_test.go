package outlet

import (
	"context"
	"fmt"
	"testing"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/temoto/gazestream/log2"
	"github.com/temoto/gazestream/sample"
)

func TestNew(t *testing.T) {
	t.Parallel()
	log := log2.NewTest(t, log2.LDebug)
	cases := []struct {
		config Config
		expect string
	}{
		{Config{}, "websocket(127.0.0.1:8765/stream)"},
		{Config{Kind: KindNone}, "none"},
		{Config{Kind: KindMQTT, Encoding: sample.EncodingProtobuf}, "mqtt(tcp://127.0.0.1:1883)"},
		{Config{Kind: KindNATS, NATS: NATSConfig{URL: "nats://10.0.0.1:4222"}}, "nats(nats://10.0.0.1:4222)"},
		{Config{Kind: KindWebsocket, Websocket: WebsocketConfig{Listen: ":9000", Path: "/gaze"}}, "websocket(:9000/gaze)"},
	}
	for _, c := range cases {
		c := c
		t.Run(c.expect, func(t *testing.T) {
			o, err := New(c.config, log, nil)
			require.NoError(t, err)
			assert.Equal(t, c.expect, o.String())
		})
	}

	_, err := New(Config{Kind: "lsl"}, log, nil)
	assert.True(t, errors.IsNotSupported(err))
	_, err = New(Config{Encoding: "xml"}, log, nil)
	assert.True(t, errors.IsNotSupported(err))
}

func TestNone(t *testing.T) {
	t.Parallel()
	s, err := None{}.Open(context.Background(), sample.NewStreamInfo("", "", "", 0))
	require.NoError(t, err)
	assert.NoError(t, s.Push(make([]float64, sample.ChannelCount)))
	assert.NoError(t, s.Close())
}

func TestMock(t *testing.T) {
	t.Parallel()
	m := NewMock()
	info := sample.NewStreamInfo("", "", "", 0)
	s, err := m.Open(context.Background(), info)
	require.NoError(t, err)
	values := []float64{1, 2, 3}
	require.NoError(t, s.Push(values))
	values[0] = 99
	assert.Equal(t, [][]float64{{1, 2, 3}}, m.Pushed(), "mock must copy pushed vector")
	assert.Equal(t, []sample.StreamInfo{info}, m.Infos())
	assert.False(t, m.Closed())
	require.NoError(t, s.Close())
	assert.True(t, m.Closed())

	m.OpenErr = fmt.Errorf("no route")
	_, err = m.Open(context.Background(), info)
	assert.EqualError(t, err, "no route")
}
