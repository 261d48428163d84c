package cmd

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli"
	"github.com/shutterloop/shutterloop/internal/daemon"
	"github.com/shutterloop/shutterloop/pkg/logger"
)

func run(ctx *cli.Context) error {
	if ctx.Args().First() == "help" {
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	stdLog := logger.NewStandardLogger(log.New(os.Stderr, "", log.LstdFlags))
	comps, err := daemon.Build(cfg, daemon.BuildInfo{
		Version:   currentBuildArgs.Version,
		Commit:    currentBuildArgs.Commit,
		BuildType: currentBuildArgs.BuildType,
	}, &daemon.Dependencies{Log: stdLog})
	if err != nil {
		return err
	}
	defer comps.Close()

	sctx, cancel := setupShutdownHandler()
	defer cancel()
	return daemon.New(comps, nil).Start(sctx)
}

// setupShutdownHandler returns a context that is canceled when SIGTERM or
// SIGINT is received.
func setupShutdownHandler() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		select {
		case <-sigChan:
		case <-ctx.Done():
		}
		signal.Stop(sigChan)
		cancel()
	}()

	return ctx, cancel
}
