package shutterctl

import (
	"context"
	"errors"
	"fmt"

	"github.com/creachadair/jrpc2"
	"github.com/shutterloop/shutterloop/common"
)

func invoke[T any](ctx context.Context, c *Client, method string, params any) (*T, error) {
	var out T
	if err := c.rpc.CallResult(ctx, method, params, &out); err != nil {
		var rerr *jrpc2.Error
		if errors.As(err, &rerr) {
			return nil, fmt.Errorf("%s: %s", method, rerr.Message)
		}
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	return &out, nil
}

func (c *Client) Version(ctx context.Context) (*common.VersionResponse, error) {
	return invoke[common.VersionResponse](ctx, c, common.MethodGetVersion, nil)
}

func (c *Client) Status(ctx context.Context) (*common.StatusResponse, error) {
	return invoke[common.StatusResponse](ctx, c, common.MethodScheduleStatus, nil)
}

// Press delivers a button edge and reports whether the daemon accepted it.
// A press is dropped while one is already pending or within the debounce
// window.
func (c *Client) Press(ctx context.Context, button string) (bool, error) {
	resp, err := invoke[common.PressResponse](ctx, c, common.MethodButtonPress, &common.PressParams{Button: button})
	if err != nil {
		return false, err
	}
	return resp.Accepted, nil
}

// Journal returns up to limit journal entries, newest first. A zero limit
// uses the daemon's default.
func (c *Client) Journal(ctx context.Context, limit int) ([]common.JournalEntry, error) {
	resp, err := invoke[common.JournalResponse](ctx, c, common.MethodJournalRecent, &common.JournalParams{Limit: limit})
	if err != nil {
		return nil, err
	}
	return resp.Entries, nil
}
