package cmd

import (
	"fmt"
	"time"

	"github.com/urfave/cli"
	"github.com/shutterloop/shutterloop/cmd/common"
	shared "github.com/shutterloop/shutterloop/common"
	"github.com/shutterloop/shutterloop/pkg/shutterctl"
)

func watch(ctx *cli.Context) error {
	if ctx.Args().First() == "help" {
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	}
	client, err := newClient()
	if err != nil {
		common.PrintRuntimeErr(ctx, "watch", "new_client", err)
		return nil
	}
	defer client.Close()

	sctx, cancel := setupShutdownHandler()
	defer cancel()
	fmt.Fprintf(common.Out, "%s: watching, press Ctrl-C to stop\n", ctx.App.HelpName)
	err = client.Watch(sctx, map[string]shutterctl.Handler{
		shared.NotifyScheduleChanged: shutterctl.ScheduleHandler(printScheduleEvent),
		shared.NotifyCaptureFired:    shutterctl.CaptureHandler(printCaptureEvent),
	})
	if err != nil {
		common.PrintRuntimeErr(ctx, "watch", "watch", err)
	}
	return nil
}

func printScheduleEvent(e *shared.ScheduleEvent) error {
	fmt.Fprintf(common.Out, "%s  period %s, next capture %s\n",
		e.At.UTC().Format(time.RFC3339), e.Period, e.Next.UTC().Format(time.RFC3339))
	return nil
}

func printCaptureEvent(e *shared.CaptureEvent) error {
	fmt.Fprintf(common.Out, "%s  %s", e.At.UTC().Format(time.RFC3339), e.Outcome)
	if e.Light != nil {
		fmt.Fprintf(common.Out, " light=%d", *e.Light)
	}
	if e.BatteryV != nil {
		fmt.Fprintf(common.Out, " battery=%.2fV", *e.BatteryV)
	}
	if e.Detail != "" {
		fmt.Fprintf(common.Out, " (%s)", e.Detail)
	}
	fmt.Fprintf(common.Out, ", next %s\n", e.Next.UTC().Format(time.RFC3339))
	return nil
}
