package server

import (
	"context"
	"sync"
	"time"

	"github.com/creachadair/jrpc2"
	"github.com/shutterloop/shutterloop/pkg/logger"
)

// pushTimeout bounds a single notification so that a stalled session
// cannot hold up the capture loop.
const pushTimeout = 5 * time.Second

// RPCNotifier maintains the set of connected WebSocket sessions and
// broadcasts schedule and capture notifications to all of them.
type RPCNotifier struct {
	mu       sync.RWMutex
	sessions map[*jrpc2.Server]struct{}
	log      logger.Logger
}

// NewRPCNotifier creates a notifier. l may be nil.
func NewRPCNotifier(l logger.Logger) *RPCNotifier {
	if l == nil {
		l = logger.NewNopLogger()
	}
	return &RPCNotifier{
		sessions: make(map[*jrpc2.Server]struct{}),
		log:      l,
	}
}

func (n *RPCNotifier) Register(srv *jrpc2.Server) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sessions[srv] = struct{}{}
}

func (n *RPCNotifier) Unregister(srv *jrpc2.Server) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.sessions, srv)
}

// Broadcast pushes a notification to every session and drops the sessions
// that fail to take it.
func (n *RPCNotifier) Broadcast(method string, params any) {
	n.mu.RLock()
	sessions := make([]*jrpc2.Server, 0, len(n.sessions))
	for srv := range n.sessions {
		sessions = append(sessions, srv)
	}
	n.mu.RUnlock()

	var failed []*jrpc2.Server
	for _, srv := range sessions {
		ctx, cancel := context.WithTimeout(context.Background(), pushTimeout)
		err := srv.Notify(ctx, method, params)
		cancel()
		if err != nil {
			n.log.Warning("push %s: %v", method, err)
			failed = append(failed, srv)
		}
	}
	if len(failed) == 0 {
		return
	}
	n.mu.Lock()
	for _, srv := range failed {
		delete(n.sessions, srv)
	}
	n.mu.Unlock()
}

// Count returns the number of connected sessions.
func (n *RPCNotifier) Count() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.sessions)
}
