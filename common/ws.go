package common

import (
	"context"

	cws "github.com/coder/websocket"
)

// WSChannel adapts a coder/websocket connection to the jrpc2 channel
// interface, one JSON-RPC message per text frame.
type WSChannel struct {
	conn *cws.Conn
	ctx  context.Context
}

// NewWSChannel returns a channel over conn. Reads and writes stop when ctx
// is done.
func NewWSChannel(ctx context.Context, conn *cws.Conn) *WSChannel {
	return &WSChannel{conn: conn, ctx: ctx}
}

func (c *WSChannel) Send(data []byte) error {
	return c.conn.Write(c.ctx, cws.MessageText, data)
}

func (c *WSChannel) Recv() ([]byte, error) {
	_, data, err := c.conn.Read(c.ctx)
	return data, err
}

// Close shuts down the connection with a normal closure status.
func (c *WSChannel) Close() error {
	return c.conn.Close(cws.StatusNormalClosure, "")
}
