package server

import (
	"io"
	"sync"
	"testing"

	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/channel"
	"github.com/creachadair/jrpc2/handler"
	"github.com/shutterloop/shutterloop/common"
	"github.com/shutterloop/shutterloop/pkg/logger"
)

// newPushServer starts a push-capable jrpc2 server on an io.Pipe channel
// and returns the client end, which must be drained for pushes to complete.
func newPushServer(t *testing.T) (channel.Channel, *jrpc2.Server) {
	t.Helper()
	cr, sw := io.Pipe()
	sr, cw := io.Pipe()
	cli := channel.Line(cr, cw)
	srv := jrpc2.NewServer(handler.Map{}, &jrpc2.ServerOptions{AllowPush: true})
	srv.Start(channel.Line(sr, sw))
	t.Cleanup(func() {
		cli.Close()
		_ = srv.Wait()
	})
	return cli, srv
}

func TestRPCNotifier_RegisterUnregister(t *testing.T) {
	n := NewRPCNotifier(nil)
	_, srv := newPushServer(t)

	n.Register(srv)
	n.Register(srv)
	if n.Count() != 1 {
		t.Fatalf("expected 1 session, got %d", n.Count())
	}
	n.Unregister(srv)
	n.Unregister(srv)
	if n.Count() != 0 {
		t.Fatalf("expected 0 sessions, got %d", n.Count())
	}
	// no sessions: nothing to do
	n.Broadcast(common.NotifyCaptureFired, &common.CaptureEvent{Outcome: "captured"})
}

func TestRPCNotifier_BroadcastReachesAll(t *testing.T) {
	n := NewRPCNotifier(nil)
	var clients []channel.Channel
	for i := 0; i < 3; i++ {
		cli, srv := newPushServer(t)
		n.Register(srv)
		clients = append(clients, cli)
	}

	var wg sync.WaitGroup
	got := make([][]byte, len(clients))
	for i, cli := range clients {
		wg.Add(1)
		go func(i int, cli channel.Channel) {
			defer wg.Done()
			got[i], _ = cli.Recv()
		}(i, cli)
	}
	n.Broadcast(common.NotifyCaptureFired, &common.CaptureEvent{Outcome: "skipped_dark"})
	wg.Wait()

	for i, data := range got {
		if len(data) == 0 {
			t.Errorf("client %d received nothing", i)
		}
	}
	if n.Count() != 3 {
		t.Errorf("sessions = %d, want 3", n.Count())
	}
}

func TestRPCNotifier_DropsDisconnected(t *testing.T) {
	m := logger.NewMockLogger()
	n := NewRPCNotifier(m)

	live, liveSrv := newPushServer(t)
	dead, deadSrv := newPushServer(t)
	n.Register(liveSrv)
	n.Register(deadSrv)

	dead.Close()
	_ = deadSrv.Wait()

	done := make(chan struct{})
	go func() {
		live.Recv()
		close(done)
	}()
	n.Broadcast(common.NotifyScheduleChanged, &common.ScheduleEvent{Period: "1m"})
	<-done

	if n.Count() != 1 {
		t.Errorf("sessions = %d, want 1", n.Count())
	}
	if len(m.Warnings()) != 1 {
		t.Errorf("warnings = %q", m.Warnings())
	}
}

func TestRPCNotifier_Concurrent(t *testing.T) {
	n := NewRPCNotifier(nil)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		_, srv := newPushServer(t)
		wg.Add(1)
		go func() {
			defer wg.Done()
			n.Register(srv)
			_ = n.Count()
			n.Unregister(srv)
		}()
	}
	wg.Wait()
	if n.Count() != 0 {
		t.Errorf("sessions = %d, want 0", n.Count())
	}
}
