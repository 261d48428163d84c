package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/handler"
	"github.com/creachadair/jrpc2/jhttp"
	"github.com/shutterloop/shutterloop/common"
	"github.com/shutterloop/shutterloop/internal/button"
	"github.com/shutterloop/shutterloop/internal/controller"
	"github.com/shutterloop/shutterloop/internal/journal"
)

// Custom JSON-RPC error codes.
const (
	codeJournalDisabled = jrpc2.Code(-32010)
	codeJournalFailed   = jrpc2.Code(-32011)
	codeInvalidParams   = jrpc2.Code(-32602)
)

const (
	defaultJournalLimit = 20
	maxJournalLimit     = 1000
)

// RPCConfig holds configuration for the JSON-RPC endpoint.
type RPCConfig struct {
	Secret    string // Auth token (required -- empty means RPC disabled)
	Version   string
	Commit    string
	BuildType string
	// Now is the clock schedule.status reports against. Nil means time.Now.
	Now func() time.Time
}

// StatusSource publishes the capture loop's latest snapshot.
type StatusSource interface {
	Status() controller.Status
}

// JournalReader is the read side of the capture journal.
type JournalReader interface {
	Recent(ctx context.Context, n int) ([]journal.Entry, error)
}

// RPCServer manages the JSON-RPC 2.0 bridge, the WebSocket endpoint and the
// method handlers they share.
type RPCServer struct {
	methods  handler.Map
	bridge   jhttp.Bridge
	secret   string
	version  string
	commit   string
	build    string
	now      func() time.Time
	status   StatusSource
	buttons  *button.Service
	journal  JournalReader
	notifier *RPCNotifier

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
	closeErr  error
}

// NewRPCServer creates the method handlers and HTTP bridge. journal may be
// nil, in which case journal.recent reports the journal as disabled.
func NewRPCServer(cfg *RPCConfig, status StatusSource, buttons *button.Service, j JournalReader, n *RPCNotifier) *RPCServer {
	ctx, cancel := context.WithCancel(context.Background())
	rs := &RPCServer{
		secret:   cfg.Secret,
		version:  cfg.Version,
		commit:   cfg.Commit,
		build:    cfg.BuildType,
		now:      cfg.Now,
		status:   status,
		buttons:  buttons,
		journal:  j,
		notifier: n,
		ctx:      ctx,
		cancel:   cancel,
	}
	if rs.now == nil {
		rs.now = time.Now
	}
	if rs.notifier == nil {
		rs.notifier = NewRPCNotifier(nil)
	}

	rs.methods = handler.Map{
		common.MethodGetVersion:     handler.New(rs.systemGetVersion),
		common.MethodScheduleStatus: handler.New(rs.scheduleStatus),
		common.MethodButtonPress:    handler.New(rs.buttonPress),
		common.MethodJournalRecent:  handler.New(rs.journalRecent),
	}
	rs.bridge = jhttp.NewBridge(rs.methods, nil)
	return rs
}

// Handler returns the authenticated HTTP and WebSocket endpoints.
func (rs *RPCServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle(common.RPCPath, requireToken(rs.secret, rs.bridge))
	mux.Handle(common.WSPath, requireToken(rs.secret, http.HandlerFunc(rs.serveWS)))
	return mux
}

// Notifier returns the broadcaster WebSocket sessions register with.
func (rs *RPCServer) Notifier() *RPCNotifier {
	return rs.notifier
}

// Close stops the bridge and disconnects WebSocket clients. Later calls
// return the first result.
func (rs *RPCServer) Close() error {
	rs.closeOnce.Do(func() {
		rs.cancel()
		rs.closeErr = rs.bridge.Close()
	})
	return rs.closeErr
}

func (rs *RPCServer) systemGetVersion(_ context.Context) (*common.VersionResponse, error) {
	return &common.VersionResponse{
		Version:   rs.version,
		Commit:    rs.commit,
		BuildType: rs.build,
	}, nil
}

func (rs *RPCServer) scheduleStatus(_ context.Context) (*common.StatusResponse, error) {
	st := rs.status.Status()
	now := rs.now().UTC().Truncate(time.Second)
	resp := &common.StatusResponse{
		Period:      st.Period.String(),
		SpanSeconds: int64(st.Span / time.Second),
		Next:        st.Next,
		Due:         st.DueAt(now),
		Now:         now,
	}
	if st.LastPhoto.Unix() > 0 {
		t := st.LastPhoto
		resp.LastPhoto = &t
	}
	if st.Last != nil {
		resp.Last = st.Last.Event()
	}
	return resp, nil
}

// buttonPress delivers an edge to the button service, exactly as a
// physical press would.
func (rs *RPCServer) buttonPress(_ context.Context, p *common.PressParams) (*common.PressResponse, error) {
	id, err := button.ParseID(p.Button)
	if err != nil {
		return nil, &jrpc2.Error{Code: codeInvalidParams, Message: err.Error()}
	}
	return &common.PressResponse{Accepted: rs.buttons.HandlePress(id)}, nil
}

func (rs *RPCServer) journalRecent(ctx context.Context, p *common.JournalParams) (*common.JournalResponse, error) {
	if rs.journal == nil {
		return nil, &jrpc2.Error{Code: codeJournalDisabled, Message: "journal is disabled"}
	}
	limit := p.Limit
	switch {
	case limit < 0:
		return nil, &jrpc2.Error{Code: codeInvalidParams, Message: "limit must not be negative"}
	case limit == 0:
		limit = defaultJournalLimit
	case limit > maxJournalLimit:
		limit = maxJournalLimit
	}
	entries, err := rs.journal.Recent(ctx, limit)
	if err != nil {
		return nil, &jrpc2.Error{Code: codeJournalFailed, Message: err.Error()}
	}
	resp := &common.JournalResponse{Entries: make([]common.JournalEntry, 0, len(entries))}
	for _, e := range entries {
		resp.Entries = append(resp.Entries, common.JournalEntry{
			ID:       e.ID,
			At:       e.At,
			Kind:     string(e.Kind),
			Period:   e.Period,
			Light:    e.Light,
			BatteryV: e.BatteryV,
			Detail:   e.Detail,
		})
	}
	return resp, nil
}
