package daemon

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/afero"
	"github.com/shutterloop/shutterloop/internal/button"
	"github.com/shutterloop/shutterloop/internal/config"
	"github.com/shutterloop/shutterloop/internal/controller"
	"github.com/shutterloop/shutterloop/internal/hw"
	"github.com/shutterloop/shutterloop/internal/journal"
	"github.com/shutterloop/shutterloop/internal/policy"
	"github.com/shutterloop/shutterloop/internal/schedule"
	"github.com/shutterloop/shutterloop/internal/server"
	"github.com/shutterloop/shutterloop/pkg/eeprom"
	"github.com/shutterloop/shutterloop/pkg/logger"
)

// BuildInfo identifies the running binary to RPC clients.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildType string
}

// Dependencies holds the external dependencies of the daemon. Nil fields
// get the real implementations.
type Dependencies struct {
	// Fs holds the store image, the log file and the sensor files.
	Fs      afero.Fs
	Clock   controller.Clock
	Camera  controller.Camera
	Sensors controller.Sensors
	Sleeper controller.Sleeper
	// Log receives every message; the configured log file is added to it.
	Log logger.Logger
}

// Components holds everything the daemon runs, wired from one
// configuration.
type Components struct {
	Store      *eeprom.FileStore
	Engine     *schedule.Engine
	Buttons    *button.Service
	Journal    *journal.Journal // nil when the journal is disabled
	Notifier   *server.RPCNotifier
	Controller *controller.Controller
	RPC        *server.RPCServer // nil when no RPC secret is configured
	Server     *server.Server    // nil when no RPC secret is configured
	Log        logger.Logger

	fileLog *logger.FileLogger
}

// Build opens the store and journal and wires the capture loop and control
// API according to cfg. On error, anything already opened is closed.
func Build(cfg *config.Config, info BuildInfo, deps *Dependencies) (_ *Components, err error) {
	if deps == nil {
		deps = &Dependencies{}
	}
	fsys := deps.Fs
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	c := &Components{Log: deps.Log}
	if c.Log == nil {
		c.Log = logger.NewNopLogger()
	}
	defer func() {
		if err != nil {
			c.Close()
		}
	}()

	if cfg.Log.File != "" {
		c.fileLog, err = logger.OpenFile(fsys, cfg.Log.File)
		if err != nil {
			return nil, err
		}
		c.Log = logger.NewMultiLogger(c.Log, c.fileLog)
	}

	c.Store, err = eeprom.OpenFile(fsys, cfg.Store.Image, &eeprom.FileOptions{Size: cfg.Store.Size})
	if err != nil {
		c.Log.Error("store: %v", err)
		return nil, err
	}
	clock := deps.Clock
	if clock == nil {
		clock = hw.SystemClock{}
	}
	c.Engine = schedule.New(c.Store, cfg.ScheduleOptions(), clock.Now())
	if err = c.Store.Err(); err != nil {
		c.Log.Error("store: %v", err)
		return nil, err
	}
	c.Buttons = button.New(cfg.ButtonOptions())

	var jr controller.Journal
	if cfg.Journal.File != "" {
		c.Journal, err = journal.Open(cfg.Journal.File)
		if err != nil {
			c.Log.Error("journal: %v", err)
			return nil, err
		}
		jr = c.Journal
	}

	c.Notifier = server.NewRPCNotifier(logger.Named(c.Log, "rpc"))

	camera := deps.Camera
	if camera == nil {
		camera = &hw.CommandCamera{
			Command:  cfg.Camera.Command,
			Failsafe: cfg.Camera.Failsafe,
			Expose:   cfg.Camera.Expose,
			Log:      logger.Named(c.Log, "camera"),
		}
	}
	sensors := deps.Sensors
	if sensors == nil {
		sensors = hw.NewFileSensors(fsys, cfg.Sensors.LightFile, cfg.Sensors.BatteryFile)
	}
	var pol controller.Policy
	if cfg.Policy.Script != "" {
		script, err := policy.Load(fsys, cfg.Policy.Script, &policy.Options{
			Timeout: cfg.Policy.Timeout,
			Log:     logger.Named(c.Log, "policy"),
		})
		if err != nil {
			c.Log.Error("%v", err)
			return nil, err
		}
		c.Log.Info("capture policy loaded from %s", cfg.Policy.Script)
		pol = script
	}

	c.Controller = controller.New(c.Engine, c.Buttons, c.Store, controller.Options{
		Interval:      cfg.Schedule.Interval,
		DarkThreshold: cfg.Sensors.DarkThreshold,
		LowVolts:      cfg.Sensors.LowVolts,
		Divider: hw.Divider{
			ARef:   cfg.Sensors.ARef,
			Source: cfg.Sensors.DividerSource,
			Ground: cfg.Sensors.DividerGround,
			Adjust: cfg.Sensors.Adjust,
		},
		Clock:    clock,
		Camera:   camera,
		Sensors:  sensors,
		Sleeper:  deps.Sleeper,
		Display:  hw.LogDisplay{Log: c.Log},
		Journal:  jr,
		Notifier: c.Notifier,
		Policy:   pol,
		Log:      c.Log,
	})

	if cfg.RPC.Secret == "" {
		c.Log.Warning("no RPC secret configured; control API disabled")
		return c, nil
	}
	var reader server.JournalReader
	if c.Journal != nil {
		reader = c.Journal
	}
	c.RPC = server.NewRPCServer(&server.RPCConfig{
		Secret:    cfg.RPC.Secret,
		Version:   info.Version,
		Commit:    info.Commit,
		BuildType: info.BuildType,
		Now:       func() time.Time { return clock.Now() },
	}, c.Controller, c.Buttons, reader, c.Notifier)
	c.Server = server.New(cfg.RPC.Listen, c.RPC, logger.Named(c.Log, "rpc"))
	return c, nil
}

// Close releases the journal, the store and the log file, in that order.
// It is safe to call on partially built components.
func (c *Components) Close() error {
	var errs []error
	if c.RPC != nil {
		errs = append(errs, c.RPC.Close())
	}
	if c.Journal != nil {
		errs = append(errs, c.Journal.Close())
	}
	if c.Store != nil {
		if err := c.Store.Err(); err != nil {
			c.Log.Error("store: %v", err)
		}
		errs = append(errs, c.Store.Close())
	}
	if c.fileLog != nil {
		errs = append(errs, c.fileLog.Close())
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("daemon: close: %w", err)
	}
	return nil
}
