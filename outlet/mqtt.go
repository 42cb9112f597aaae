package outlet

import (
	"context"
	"fmt"
	"net/url"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/juju/errors"
	"github.com/temoto/gazestream/helpers"
	"github.com/temoto/gazestream/log2"
	"github.com/temoto/gazestream/sample"
)

const (
	defaultMqttBroker      = "tcp://127.0.0.1:1883"
	defaultMqttTopicPrefix = "gazestream"
	defaultMqttKeepalive   = 30 * time.Second
	defaultMqttRetry       = 5 * time.Second
)

type MQTTConfig struct {
	Broker       string `hcl:"broker"`
	ClientID     string `hcl:"client_id"`
	Username     string `hcl:"username"`
	Password     string `hcl:"password"`
	TopicPrefix  string `hcl:"topic_prefix"`
	Qos          int    `hcl:"qos"`
	KeepaliveSec int    `hcl:"keepalive_sec"`
	RetrySec     int    `hcl:"retry_sec"`
}

func (c MQTTConfig) TopicInfo() string   { return c.prefix() + "/info" }
func (c MQTTConfig) TopicSample() string { return c.prefix() + "/sample" }
func (c MQTTConfig) TopicState() string  { return c.prefix() + "/state" }
func (c MQTTConfig) prefix() string {
	if c.TopicPrefix == "" {
		return defaultMqttTopicPrefix
	}
	return c.TopicPrefix
}

// MQTT outlet: stream info is retained so late subscribers learn channels before first sample.
// Connection state is retained "1" and last will "0".
// Broker may be down at Open, client keeps retrying in background.
type MQTT struct {
	config MQTTConfig
	enc    sample.Encoder
	log    *log2.Log
	stat   *Stat

	// tests replace client constructor
	newClient func(*mqtt.ClientOptions) mqtt.Client
}

func NewMQTT(config MQTTConfig, enc sample.Encoder, log *log2.Log, stat *Stat) *MQTT {
	mqttLog := log.Clone(log2.LInfo)
	mqtt.ERROR = mqttLog
	mqtt.CRITICAL = mqttLog
	mqtt.WARN = mqttLog
	if log.Enabled(log2.LDebug) {
		mqtt.DEBUG = log
	}
	return &MQTT{
		config:    config,
		enc:       enc,
		log:       log,
		stat:      stat,
		newClient: mqtt.NewClient,
	}
}

func (self *MQTT) String() string { return fmt.Sprintf("mqtt(%s)", self.broker()) }

func (self *MQTT) broker() string {
	if self.config.Broker == "" {
		return defaultMqttBroker
	}
	return self.config.Broker
}

func (self *MQTT) Open(ctx context.Context, info sample.StreamInfo) (Stream, error) {
	broker := self.broker()
	if _, err := url.ParseRequestURI(broker); err != nil {
		return nil, errors.Annotatef(err, "mqtt broker=%s", broker)
	}
	if self.config.Qos < 0 || self.config.Qos > 2 {
		return nil, errors.NotValidf("mqtt qos=%d", self.config.Qos)
	}
	infoPayload, err := sample.EncodeInfo(info)
	if err != nil {
		return nil, err
	}
	clientID := self.config.ClientID
	if clientID == "" {
		clientID = info.SourceID + "-" + info.UID[:8]
	}

	s := &mqttStream{
		log:         self.log,
		enc:         self.enc,
		stat:        self.stat,
		qos:         byte(self.config.Qos),
		topicSample: self.config.TopicSample(),
		topicState:  self.config.TopicState(),
	}
	onConnect := func(c mqtt.Client) {
		self.log.Infof("mqtt connected broker=%s", broker)
		// retained, so repeat on every reconnect is harmless
		c.Publish(self.config.TopicInfo(), 1, true, infoPayload)
		c.Publish(s.topicState, 1, true, []byte{'1'})
	}
	onLost := func(c mqtt.Client, err error) {
		self.log.Errorf("mqtt connection lost broker=%s err=%v", broker, err)
	}

	opt := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetUsername(self.config.Username).
		SetPassword(self.config.Password).
		SetCleanSession(true).
		SetOrderMatters(true).
		SetKeepAlive(helpers.IntSecondDefault(self.config.KeepaliveSec, defaultMqttKeepalive)).
		SetBinaryWill(s.topicState, []byte{'0'}, 1, true).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(helpers.IntSecondDefault(self.config.RetrySec, defaultMqttRetry)).
		SetOnConnectHandler(onConnect).
		SetConnectionLostHandler(onLost)
	s.m = self.newClient(opt)
	token := s.m.Connect()
	// with connect retry, token completes only after first success
	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return nil, errors.Annotatef(err, "mqtt connect broker=%s", broker)
		}
	case <-time.After(100 * time.Millisecond):
		self.log.Infof("mqtt broker=%s not connected yet, retrying in background", broker)
	case <-ctx.Done():
		s.m.Disconnect(0)
		return nil, ctx.Err()
	}
	return s, nil
}

type mqttStream struct {
	m           mqtt.Client
	log         *log2.Log
	enc         sample.Encoder
	stat        *Stat
	qos         byte
	seq         uint64
	dropped     uint64
	topicSample string
	topicState  string
}

func (self *mqttStream) Push(values []float64) error {
	self.seq++
	b, err := self.enc.Encode(self.seq, values)
	if err != nil {
		return errors.Annotate(err, "mqtt encode")
	}
	if !self.m.IsConnectionOpen() {
		// samples are live data, stale ones are useless after reconnect
		self.dropped++
		if self.dropped == 1 || self.dropped%1000 == 0 {
			self.log.Debugf("mqtt not connected, dropped=%d", self.dropped)
		}
		return nil
	}
	// no token wait: best effort
	self.m.Publish(self.topicSample, self.qos, false, b)
	self.stat.sent(len(b))
	return nil
}

func (self *mqttStream) Close() error {
	if self.m.IsConnectionOpen() {
		t := self.m.Publish(self.topicState, 1, true, []byte{'0'})
		t.WaitTimeout(time.Second)
	}
	self.m.Disconnect(250)
	return nil
}
