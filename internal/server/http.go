package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/shutterloop/shutterloop/pkg/logger"
)

// Server serves the control API over HTTP.
type Server struct {
	addr string
	rpc  *RPCServer
	log  logger.Logger

	mu     sync.Mutex
	server *http.Server
	ln     net.Listener
	ready  chan struct{}
}

// New returns a server that will listen on addr, e.g. "127.0.0.1:8637".
func New(addr string, rpc *RPCServer, l logger.Logger) *Server {
	if l == nil {
		l = logger.NewNopLogger()
	}
	return &Server{addr: addr, rpc: rpc, log: l, ready: make(chan struct{})}
}

// Start listens and serves until Shutdown. It returns nil after a clean
// shutdown.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.ln = ln
	s.server = &http.Server{
		Handler:           s.rpc.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          logger.ToStdLogger(logger.Named(s.log, "http")),
	}
	srv := s.server
	s.mu.Unlock()
	close(s.ready)

	s.log.Info("control API listening on %s", ln.Addr())
	err = srv.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Addr returns the bound address once Start is listening, blocking until
// then or until ctx is done.
func (s *Server) Addr(ctx context.Context) (net.Addr, error) {
	select {
	case <-s.ready:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ln.Addr(), nil
}

// Shutdown disconnects WebSocket sessions and gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	rpcErr := s.rpc.Close()
	s.mu.Lock()
	srv := s.server
	s.mu.Unlock()
	if srv == nil {
		return rpcErr
	}
	if err := srv.Shutdown(ctx); err != nil {
		return err
	}
	return rpcErr
}
