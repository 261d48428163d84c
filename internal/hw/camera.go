package hw

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/shutterloop/shutterloop/pkg/logger"
)

var (
	ErrNoCommand     = errors.New("hw: no camera command configured")
	ErrCameraTimeout = errors.New("hw: camera did not finish before the failsafe")
)

// ExposeEnv carries the configured shutter press duration, in milliseconds,
// to the capture command.
const ExposeEnv = "SHUTTERLOOP_EXPOSE_MS"

// CommandCamera triggers a capture by running an external command, e.g.
// gphoto2 --capture-image. The command must exit once the photo has been
// written; if it is still running when Failsafe elapses it is killed.
type CommandCamera struct {
	Command  []string
	Failsafe time.Duration
	Expose   time.Duration
	Log      logger.Logger
}

// Capture runs the command and waits for it.
func (c *CommandCamera) Capture(ctx context.Context) error {
	if len(c.Command) == 0 {
		return ErrNoCommand
	}
	if c.Failsafe > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Failsafe)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, c.Command[0], c.Command[1:]...)
	cmd.Env = append(os.Environ(), ExposeEnv+"="+strconv.FormatInt(c.Expose.Milliseconds(), 10))
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	cmd.WaitDelay = time.Second

	start := time.Now()
	err := cmd.Run()
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w (%v)", ErrCameraTimeout, c.Failsafe)
	}
	if err != nil {
		if msg := strings.TrimSpace(out.String()); msg != "" {
			return fmt.Errorf("hw: %s: %w: %s", c.Command[0], err, msg)
		}
		return fmt.Errorf("hw: %s: %w", c.Command[0], err)
	}
	if c.Log != nil {
		c.Log.Info("camera: %s finished in %v", c.Command[0], time.Since(start).Round(time.Millisecond))
	}
	return nil
}
