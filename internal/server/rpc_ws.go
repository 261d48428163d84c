package server

import (
	"context"
	"net/http"

	cws "github.com/coder/websocket"
	"github.com/creachadair/jrpc2"
	"github.com/shutterloop/shutterloop/common"
)

// serveWS upgrades the request and serves the RPC methods over it. The
// session also receives push notifications until either side closes it or
// the RPCServer is closed.
func (rs *RPCServer) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := cws.Accept(w, r, nil)
	if err != nil {
		// Accept has already written the HTTP error.
		return
	}
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	stop := context.AfterFunc(rs.ctx, cancel)
	defer stop()

	srv := jrpc2.NewServer(rs.methods, &jrpc2.ServerOptions{AllowPush: true})
	rs.notifier.Register(srv)
	defer rs.notifier.Unregister(srv)
	srv.Start(common.NewWSChannel(ctx, conn))
	_ = srv.Wait()
}
