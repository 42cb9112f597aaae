package tele

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/juju/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/temoto/gazestream/log2"
)

const DefaultPath = "/metrics"

type Config struct {
	Listen string `hcl:"listen"`
	Path   string `hcl:"path"`
}

type Server struct {
	ln  net.Listener
	srv *http.Server
}

// Serve exposes registry over HTTP in background. Empty config.Listen returns nil server and no error.
func (s *Stat) Serve(ctx context.Context, config Config, log *log2.Log) (*Server, error) {
	if config.Listen == "" {
		return nil, nil
	}
	path := config.Path
	if path == "" {
		path = DefaultPath
	}
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", config.Listen)
	if err != nil {
		return nil, errors.Annotatef(err, "metrics listen=%s", config.Listen)
	}
	mux := http.NewServeMux()
	mux.Handle(path, promhttp.HandlerFor(s.Registry, promhttp.HandlerOpts{ErrorLog: log}))
	self := &Server{
		ln: ln,
		srv: &http.Server{
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
	go func() {
		if err := self.srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.Errorf("metrics serve err=%v", err)
		}
	}()
	log.Infof("metrics listen=%s path=%s", ln.Addr(), path)
	return self, nil
}

func (self *Server) Addr() net.Addr { return self.ln.Addr() }

func (self *Server) Close() error {
	if self == nil {
		return nil
	}
	return self.srv.Close()
}
