// Package shutterctl is a client for the shutterloop control API.
package shutterctl

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/jhttp"
	"github.com/shutterloop/shutterloop/common"
)

// Options configures a Client.
type Options struct {
	// HTTPClient carries requests. Nil means a client with a 30 second
	// timeout.
	HTTPClient *http.Client
}

// Client calls the control API of a running daemon.
type Client struct {
	base   string
	secret string
	httpc  *http.Client
	rpc    *jrpc2.Client
}

// NewClient returns a client for the daemon at baseURL, e.g.
// "http://127.0.0.1:8637", authenticating with secret.
func NewClient(baseURL, secret string, opts *Options) (*Client, error) {
	if secret == "" {
		return nil, fmt.Errorf("shutterctl: no RPC secret (set %s)", common.RPCSecretEnv)
	}
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		return nil, fmt.Errorf("shutterctl: invalid RPC URL %q", baseURL)
	}
	if opts == nil {
		opts = &Options{}
	}
	httpc := opts.HTTPClient
	if httpc == nil {
		httpc = &http.Client{Timeout: 30 * time.Second}
	}
	c := &Client{
		base:   strings.TrimRight(baseURL, "/"),
		secret: secret,
		httpc:  httpc,
	}
	ch := jhttp.NewChannel(c.base+common.RPCPath, &jhttp.ChannelOptions{
		Client: tokenClient{secret: secret, next: httpc},
	})
	c.rpc = jrpc2.NewClient(ch, nil)
	return c, nil
}

// Close releases the underlying RPC client.
func (c *Client) Close() error {
	return c.rpc.Close()
}

func (c *Client) authHeader() http.Header {
	return http.Header{"Authorization": []string{"Bearer " + c.secret}}
}

// tokenClient adds the bearer token to every request.
type tokenClient struct {
	secret string
	next   *http.Client
}

func (t tokenClient) Do(req *http.Request) (*http.Response, error) {
	req.Header.Set("Authorization", "Bearer "+t.secret)
	return t.next.Do(req)
}
