package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/urfave/cli"
	"github.com/shutterloop/shutterloop/cmd/common"
	"github.com/shutterloop/shutterloop/internal/flatten"
	"github.com/shutterloop/shutterloop/internal/offload"
	"github.com/shutterloop/shutterloop/pkg/logger"
)

var (
	flatSSHKey     string
	flatKnownHosts string
	flatTimeout    time.Duration

	flattenFlags = []cli.Flag{
		cli.StringFlag{
			Name:        "ssh-key",
			Usage:       "private key for sftp destinations without a password",
			EnvVar:      "SHUTTERLOOP_SSH_KEY",
			Destination: &flatSSHKey,
		},
		cli.StringFlag{
			Name:        "known-hosts",
			Usage:       "file sftp host keys are pinned in",
			Destination: &flatKnownHosts,
		},
		cli.DurationFlag{
			Name:        "timeout",
			Usage:       "connect timeout for remote destinations",
			Value:       offload.DefaultTimeout,
			Destination: &flatTimeout,
		},
	}
)

func flattenCmd(ctx *cli.Context) error {
	if ctx.Args().First() == "help" {
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	}
	if ctx.NArg() != 2 {
		return common.PrintErrWithCmdHelp(ctx, errors.New("expected SRC and DST"))
	}
	l := logger.NewStandardLogger(log.New(os.Stderr, "", 0))
	dst, err := offload.Open(context.Background(), ctx.Args().Get(1), &offload.Options{
		Fs:         hostFs,
		SSHKeyPath: flatSSHKey,
		KnownHosts: flatKnownHosts,
		Timeout:    flatTimeout,
		Log:        l,
	})
	if err != nil {
		common.PrintRuntimeErr(ctx, "flatten", "open", err)
		return nil
	}
	defer dst.Close()

	res, err := flatten.Flatten(hostFs, ctx.Args().Get(0), dst, l)
	if err != nil {
		common.PrintRuntimeErr(ctx, "flatten", "copy", err)
		return nil
	}
	fmt.Fprintf(common.Out, "%s: copied %d files to %s, skipped %d\n", ctx.App.HelpName, res.Copied, dst, len(res.Skipped))
	for _, s := range res.Skipped {
		fmt.Fprintf(common.Out, "\t%s\n", s)
	}
	return nil
}
