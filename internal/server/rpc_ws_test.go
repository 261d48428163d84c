package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	cws "github.com/coder/websocket"
	"github.com/shutterloop/shutterloop/common"
)

func dialWS(t *testing.T, ctx context.Context, srvURL, token string) (*cws.Conn, *http.Response, error) {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(srvURL, "http") + common.WSPath
	var opts *cws.DialOptions
	if token != "" {
		opts = &cws.DialOptions{HTTPHeader: http.Header{"Authorization": []string{"Bearer " + token}}}
	}
	return cws.Dial(ctx, wsURL, opts)
}

func TestWebSocket_AuthRequired(t *testing.T) {
	rs, _ := newTestRPC(t, testStatus(), nil)
	srv := httptest.NewServer(rs.Handler())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for _, token := range []string{"", "wrong"} {
		_, resp, err := dialWS(t, ctx, srv.URL, token)
		if err == nil {
			t.Fatalf("token %q: expected dial to fail", token)
		}
		if resp != nil && resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("token %q: expected 401, got %d", token, resp.StatusCode)
		}
	}
}

func TestWebSocket_CallAndPush(t *testing.T) {
	rs, _ := newTestRPC(t, testStatus(), nil)
	srv := httptest.NewServer(rs.Handler())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := dialWS(t, ctx, srv.URL, testSecret)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(cws.StatusNormalClosure, "")

	req, _ := json.Marshal(map[string]any{"jsonrpc": "2.0", "method": common.MethodScheduleStatus, "id": 7})
	if err := conn.Write(ctx, cws.MessageText, req); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var resp map[string]any
	if err := json.Unmarshal(data, &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp["id"].(float64) != 7 || result(t, resp)["period"] != "1h" {
		t.Fatalf("response = %v", resp)
	}

	// The session registers before its first reply, so it is counted now.
	if n := rs.Notifier().Count(); n != 1 {
		t.Fatalf("sessions = %d, want 1", n)
	}
	rs.Notifier().Broadcast(common.NotifyScheduleChanged, &common.ScheduleEvent{
		At:     testNow,
		Period: "1d",
		Next:   time.Date(2024, 3, 1, 21, 0, 0, 0, time.UTC),
	})
	_, data, err = conn.Read(ctx)
	if err != nil {
		t.Fatalf("read push: %v", err)
	}
	var push struct {
		Method string               `json:"method"`
		Params common.ScheduleEvent `json:"params"`
		ID     *json.RawMessage     `json:"id"`
	}
	if err := json.Unmarshal(data, &push); err != nil {
		t.Fatalf("unmarshal push: %v", err)
	}
	if push.Method != common.NotifyScheduleChanged || push.Params.Period != "1d" || push.ID != nil {
		t.Errorf("push = %s", data)
	}
}

func TestWebSocket_CloseDisconnectsSessions(t *testing.T) {
	rs, _ := newTestRPC(t, testStatus(), nil)
	srv := httptest.NewServer(rs.Handler())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := dialWS(t, ctx, srv.URL, testSecret)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.CloseNow()

	rs.Close()
	if _, _, err := conn.Read(ctx); err == nil {
		t.Fatal("expected the session to be closed")
	}
	deadline := time.Now().Add(2 * time.Second)
	for rs.Notifier().Count() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("session was not unregistered")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
