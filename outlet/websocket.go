package outlet

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/juju/errors"
	"github.com/temoto/gazestream/log2"
	"github.com/temoto/gazestream/sample"
)

const (
	defaultWebsocketListen = "127.0.0.1:8765"
	defaultWebsocketPath   = "/stream"
	defaultWriteTimeout    = 200 * time.Millisecond
)

type WebsocketConfig struct {
	Listen         string `hcl:"listen"`
	Path           string `hcl:"path"`
	WriteTimeoutMs int    `hcl:"write_timeout_ms"`
}

// Websocket outlet serves subscribers directly.
// Each subscriber receives stream info as first text message, then samples.
// Subscriber that fails a write within timeout is disconnected.
type Websocket struct {
	config WebsocketConfig
	enc    sample.Encoder
	log    *log2.Log
	stat   *Stat
}

func NewWebsocket(config WebsocketConfig, enc sample.Encoder, log *log2.Log, stat *Stat) *Websocket {
	if config.Listen == "" {
		config.Listen = defaultWebsocketListen
	}
	if config.Path == "" {
		config.Path = defaultWebsocketPath
	}
	return &Websocket{config: config, enc: enc, log: log, stat: stat}
}

func (self *Websocket) String() string {
	return fmt.Sprintf("websocket(%s%s)", self.config.Listen, self.config.Path)
}

func (self *Websocket) Open(ctx context.Context, info sample.StreamInfo) (Stream, error) {
	infoPayload, err := sample.EncodeInfo(info)
	if err != nil {
		return nil, err
	}
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", self.config.Listen)
	if err != nil {
		return nil, errors.Annotatef(err, "websocket listen=%s", self.config.Listen)
	}

	s := &wsStream{
		log:          self.log,
		enc:          self.enc,
		stat:         self.stat,
		info:         infoPayload,
		clients:      make(map[*websocket.Conn]struct{}),
		ln:           ln,
		writeTimeout: time.Duration(self.config.WriteTimeoutMs) * time.Millisecond,
		msgType:      websocket.TextMessage,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// subscribers are local tools and browsers, any origin
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	if s.writeTimeout <= 0 {
		s.writeTimeout = defaultWriteTimeout
	}
	if _, ok := self.enc.(sample.ProtobufEncoder); ok {
		s.msgType = websocket.BinaryMessage
	}
	mux := http.NewServeMux()
	mux.HandleFunc(self.config.Path, s.serveSubscriber)
	s.srv = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := s.srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			self.log.Errorf("websocket serve err=%v", err)
		}
	}()
	self.log.Infof("websocket outlet listen=%s path=%s", ln.Addr(), self.config.Path)
	return s, nil
}

type wsStream struct {
	log          *log2.Log
	enc          sample.Encoder
	stat         *Stat
	info         []byte
	ln           net.Listener
	srv          *http.Server
	upgrader     websocket.Upgrader
	writeTimeout time.Duration
	msgType      int
	seq          uint64

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
	closed  bool
}

func (self *wsStream) Addr() net.Addr { return self.ln.Addr() }

func (self *wsStream) Subscribers() int {
	self.mu.Lock()
	defer self.mu.Unlock()
	return len(self.clients)
}

func (self *wsStream) serveSubscriber(w http.ResponseWriter, r *http.Request) {
	conn, err := self.upgrader.Upgrade(w, r, nil)
	if err != nil {
		self.log.Debugf("websocket upgrade remote=%s err=%v", r.RemoteAddr, err)
		return
	}
	self.mu.Lock()
	if self.closed {
		self.mu.Unlock()
		_ = conn.Close()
		return
	}
	// info goes first, under lock so no sample can overtake it
	_ = conn.SetWriteDeadline(time.Now().Add(self.writeTimeout))
	if err := conn.WriteMessage(websocket.TextMessage, self.info); err != nil {
		self.mu.Unlock()
		self.log.Debugf("websocket info remote=%s err=%v", r.RemoteAddr, err)
		_ = conn.Close()
		return
	}
	self.clients[conn] = struct{}{}
	n := len(self.clients)
	self.stat.subscribers(n)
	self.log.Infof("websocket subscriber connected remote=%s total=%d", r.RemoteAddr, n)
	self.mu.Unlock()

	// subscribers only listen; read loop handles ping/close and notices disconnect
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	self.drop(conn)
}

func (self *wsStream) drop(conn *websocket.Conn) {
	self.mu.Lock()
	_, ok := self.clients[conn]
	if ok {
		delete(self.clients, conn)
		n := len(self.clients)
		self.stat.subscribers(n)
		self.log.Infof("websocket subscriber gone remote=%s total=%d", conn.RemoteAddr(), n)
	}
	self.mu.Unlock()
	if ok {
		_ = conn.Close()
	}
}

func (self *wsStream) Push(values []float64) error {
	self.seq++
	self.mu.Lock()
	if len(self.clients) == 0 {
		self.mu.Unlock()
		return nil
	}
	b, err := self.enc.Encode(self.seq, values)
	if err != nil {
		self.mu.Unlock()
		return errors.Annotate(err, "websocket encode")
	}
	failed := make([]*websocket.Conn, 0)
	deadline := time.Now().Add(self.writeTimeout)
	for conn := range self.clients {
		_ = conn.SetWriteDeadline(deadline)
		if err := conn.WriteMessage(self.msgType, b); err != nil {
			self.log.Debugf("websocket write remote=%s err=%v", conn.RemoteAddr(), err)
			failed = append(failed, conn)
			continue
		}
		self.stat.sent(len(b))
	}
	self.mu.Unlock()
	for _, conn := range failed {
		self.drop(conn)
	}
	return nil
}

func (self *wsStream) Close() error {
	err := self.srv.Close()
	self.mu.Lock()
	self.closed = true
	clients := self.clients
	self.clients = make(map[*websocket.Conn]struct{})
	self.mu.Unlock()
	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "stream closed")
	for conn := range clients {
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(self.writeTimeout))
		_ = conn.Close()
	}
	self.stat.subscribers(0)
	return errors.Annotate(err, "websocket close")
}
