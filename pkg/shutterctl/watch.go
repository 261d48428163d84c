package shutterctl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	cws "github.com/coder/websocket"
	"github.com/shutterloop/shutterloop/common"
)

// Handler processes the params of one push notification.
type Handler interface {
	Handle(json.RawMessage) error
}

// ScheduleHandler handles schedule.changed.
type ScheduleHandler func(*common.ScheduleEvent) error

func (h ScheduleHandler) Handle(m json.RawMessage) error {
	var v common.ScheduleEvent
	if err := json.Unmarshal(m, &v); err != nil {
		return err
	}
	return h(&v)
}

// CaptureHandler handles capture.fired.
type CaptureHandler func(*common.CaptureEvent) error

func (h CaptureHandler) Handle(m json.RawMessage) error {
	var v common.CaptureEvent
	if err := json.Unmarshal(m, &v); err != nil {
		return err
	}
	return h(&v)
}

// ErrStopWatch can be returned by a handler to end Watch without error.
var ErrStopWatch = errors.New("shutterctl: stop watching")

type message struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
	ID     json.RawMessage `json:"id"`
}

// Watch connects to the push endpoint and dispatches notifications to the
// handler registered for their method until ctx is done, the connection
// closes, or a handler fails. Notifications without a handler are ignored.
func (c *Client) Watch(ctx context.Context, handlers map[string]Handler) error {
	wsURL := "ws" + strings.TrimPrefix(c.base, "http") + common.WSPath
	conn, _, err := cws.Dial(ctx, wsURL, &cws.DialOptions{
		HTTPClient: c.httpc,
		HTTPHeader: c.authHeader(),
	})
	if err != nil {
		return fmt.Errorf("shutterctl: watch: %w", err)
	}
	ch := common.NewWSChannel(ctx, conn)
	defer ch.Close()

	for {
		data, err := ch.Recv()
		if err != nil {
			if ctx.Err() != nil || cws.CloseStatus(err) == cws.StatusNormalClosure {
				return nil
			}
			return fmt.Errorf("shutterctl: watch: %w", err)
		}
		var msg message
		if err := json.Unmarshal(data, &msg); err != nil {
			return fmt.Errorf("shutterctl: watch: bad message: %w", err)
		}
		if msg.ID != nil || msg.Method == "" {
			continue
		}
		h, ok := handlers[msg.Method]
		if !ok {
			continue
		}
		if err := h.Handle(msg.Params); err != nil {
			if errors.Is(err, ErrStopWatch) {
				return nil
			}
			return err
		}
	}
}
