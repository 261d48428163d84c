// Package policy runs an operator script that may veto a due capture.
//
// The script is JavaScript and must define
//
//	function decide(reading) { ... }
//
// reading has the fields time (RFC 3339, UTC), hour, period, light and
// batteryV; unknown sensor values are null. decide returns true or nothing
// to let the capture proceed, false to skip it, or a string to skip it with
// that reason. Scripts may require() files relative to their own path.
package policy

import (
	"errors"
	"fmt"
	"os"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/require"
	"github.com/spf13/afero"
	"github.com/shutterloop/shutterloop/pkg/logger"
)

const (
	DecideFunc     = "decide"
	DefaultTimeout = time.Second

	// DefaultReason is recorded when decide returns false.
	DefaultReason = "vetoed by policy script"
)

var (
	ErrScriptNotFound   = errors.New("policy: script not found")
	ErrDecideNotDefined = errors.New("policy: decide function not defined")
	ErrInvalidReturn    = errors.New("policy: decide must return a boolean, a string or nothing")
	ErrTimeout          = errors.New("policy: decide timed out")
)

// Reading is the input handed to decide.
type Reading struct {
	At       time.Time
	Period   string
	Light    *int
	BatteryV *float64
}

type Options struct {
	// Timeout bounds one decide call. Zero means DefaultTimeout.
	Timeout time.Duration
	Log     logger.Logger
}

// Script is a loaded policy. It is safe for concurrent use; calls are
// serialized because a goja runtime is single-threaded.
type Script struct {
	mu      sync.Mutex
	vm      *goja.Runtime
	decide  goja.Callable
	name    string
	timeout time.Duration
	log     logger.Logger
}

// Load reads and runs the script at name from fsys.
func Load(fsys afero.Fs, name string, opts *Options) (*Script, error) {
	if opts == nil {
		opts = &Options{}
	}
	s := &Script{
		vm:      goja.New(),
		name:    name,
		timeout: opts.Timeout,
		log:     opts.Log,
	}
	if s.timeout <= 0 {
		s.timeout = DefaultTimeout
	}
	if s.log == nil {
		s.log = logger.NewNopLogger()
	}

	src, err := afero.ReadFile(fsys, name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrScriptNotFound, name)
		}
		return nil, fmt.Errorf("policy: %w", err)
	}

	registry := require.NewRegistry(require.WithLoader(loader(fsys)))
	registry.Enable(s.vm)
	if err := s.vm.Set("print", s.print); err != nil {
		return nil, fmt.Errorf("policy: %w", err)
	}

	if _, err := s.vm.RunScript(name, string(src)); err != nil {
		return nil, fmt.Errorf("policy: %s: %w", name, err)
	}
	fn, ok := goja.AssertFunction(s.vm.Get(DecideFunc))
	if !ok {
		return nil, ErrDecideNotDefined
	}
	s.decide = fn
	return s, nil
}

// loader resolves require() paths against fsys.
func loader(fsys afero.Fs) require.SourceLoader {
	return func(p string) ([]byte, error) {
		b, err := afero.ReadFile(fsys, path.Clean(p))
		if errors.Is(err, os.ErrNotExist) {
			return nil, require.ModuleFileDoesNotExistError
		}
		return b, err
	}
}

func (s *Script) print(call goja.FunctionCall) goja.Value {
	parts := make([]string, len(call.Arguments))
	for i, v := range call.Arguments {
		parts[i] = v.String()
	}
	s.log.Info("%s: %s", path.Base(s.name), strings.Join(parts, " "))
	return goja.Undefined()
}

// Decide calls the script's decide function. An empty reason means the
// capture should proceed.
func (s *Script) Decide(r Reading) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	at := r.At.UTC()
	arg := map[string]any{
		"time":     at.Format(time.RFC3339),
		"hour":     at.Hour(),
		"period":   r.Period,
		"light":    nil,
		"batteryV": nil,
	}
	if r.Light != nil {
		arg["light"] = *r.Light
	}
	if r.BatteryV != nil {
		arg["batteryV"] = *r.BatteryV
	}

	s.vm.ClearInterrupt()
	timer := time.AfterFunc(s.timeout, func() {
		s.vm.Interrupt(ErrTimeout)
	})
	v, err := s.decide(goja.Undefined(), s.vm.ToValue(arg))
	timer.Stop()
	s.vm.ClearInterrupt()
	if err != nil {
		var ie *goja.InterruptedError
		if errors.As(err, &ie) {
			return "", ErrTimeout
		}
		return "", fmt.Errorf("policy: %w", err)
	}
	return reason(v)
}

func reason(v goja.Value) (string, error) {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return "", nil
	}
	switch x := v.Export().(type) {
	case bool:
		if x {
			return "", nil
		}
		return DefaultReason, nil
	case string:
		return x, nil
	}
	return "", ErrInvalidReturn
}
