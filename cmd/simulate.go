package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli"
	"github.com/vbauerster/mpb/v8"
	"github.com/shutterloop/shutterloop/cmd/common"
	"github.com/shutterloop/shutterloop/internal/button"
	"github.com/shutterloop/shutterloop/internal/schedule"
	"github.com/shutterloop/shutterloop/internal/simulate"
)

var (
	simFrom    string
	simFor     time.Duration
	simPeriod  string
	simVerbose bool

	// progressOut receives the progress bar. Nil discards it.
	progressOut io.Writer = os.Stderr

	simFlags = []cli.Flag{
		cli.StringFlag{
			Name:        "from",
			Usage:       "virtual boot time, RFC 3339 (default: now)",
			Destination: &simFrom,
		},
		cli.DurationFlag{
			Name:        "for",
			Usage:       "simulated horizon",
			Value:       24 * time.Hour,
			Destination: &simFor,
		},
		cli.StringSliceFlag{
			Name:  "press",
			Usage: "button press as [wake@|change@]TIME, repeatable",
		},
		cli.StringSliceFlag{
			Name:  "restart",
			Usage: "power cycle at TIME, repeatable",
		},
		cli.StringFlag{
			Name:        "period",
			Usage:       "period selected at boot: 1m, 10m, 1h or 1d (default: as stored)",
			Destination: &simPeriod,
		},
		cli.BoolFlag{
			Name:        "verbose, V",
			Usage:       "print every event instead of a progress bar",
			Destination: &simVerbose,
		},
	}
)

func simulateCmd(ctx *cli.Context) error {
	if ctx.Args().First() == "help" {
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	}
	opts, err := simOptions(ctx)
	if err != nil {
		return common.PrintErrWithCmdHelp(ctx, err)
	}

	var (
		p   *mpb.Progress
		bar *mpb.Bar
	)
	if simVerbose {
		opts.OnEvent = printSimEvent
	} else {
		p = mpb.New(mpb.WithOutput(progressOut))
		bar = common.InitSimBar(p, "Simulating", int64(opts.For/time.Second))
		from := opts.From
		opts.OnEvent = func(e simulate.Event) {
			bar.SetCurrent(int64(e.At.Sub(from) / time.Second))
		}
	}
	rep, err := simulate.Run(context.Background(), opts)
	if bar != nil {
		bar.SetCurrent(int64(opts.For / time.Second))
		p.Wait()
	}
	if err != nil {
		common.PrintRuntimeErr(ctx, "simulate", "run", err)
		return nil
	}

	out := common.Out
	fmt.Fprintf(out, "Simulated %s from %s\n", opts.For, opts.From.UTC().Format(time.RFC3339))
	fmt.Fprintf(out, "Captures: %d  Presses: %d (ignored %d)  Restarts: %d\n",
		rep.Fires, rep.Presses, rep.Ignored, rep.Restarts)
	fmt.Fprintf(out, "Final period %s, next capture %s\n",
		rep.Final.Period, rep.Final.Next.UTC().Format(time.RFC3339))
	if len(rep.Mismatches) == 0 {
		fmt.Fprintln(out, "All next-capture times match the cron reference.")
		return nil
	}
	for _, e := range rep.Mismatches {
		fmt.Fprintf(out, "MISMATCH %s %s: next %s, cron says %s\n",
			e.At.UTC().Format(time.RFC3339), e.Kind, e.Next.UTC().Format(time.RFC3339), e.Expected.UTC().Format(time.RFC3339))
	}
	return cli.NewExitError(fmt.Sprintf("%d cron mismatches", len(rep.Mismatches)), 1)
}

func simOptions(ctx *cli.Context) (simulate.Options, error) {
	cfg, err := loadConfig()
	if err != nil {
		return simulate.Options{}, err
	}
	opts := simulate.Options{
		From:     time.Now().UTC().Truncate(time.Second),
		For:      simFor,
		Schedule: cfg.ScheduleOptions(),
		Debounce: cfg.Buttons.Debounce,
	}
	if simFrom != "" {
		if opts.From, err = time.Parse(time.RFC3339, simFrom); err != nil {
			return opts, fmt.Errorf("invalid --from: %w", err)
		}
	}
	if simPeriod != "" {
		p, err := schedule.ParsePeriod(simPeriod)
		if err != nil {
			return opts, err
		}
		opts.Period = &p
	}
	for _, s := range ctx.StringSlice("press") {
		bp, err := parsePress(s, opts.From)
		if err != nil {
			return opts, err
		}
		opts.Presses = append(opts.Presses, bp)
	}
	for _, s := range ctx.StringSlice("restart") {
		t, err := parseAt(s, opts.From)
		if err != nil {
			return opts, fmt.Errorf("invalid --restart: %w", err)
		}
		opts.Restarts = append(opts.Restarts, t)
	}
	return opts, nil
}

// parseAt reads an RFC 3339 time or an offset from base such as "+90m".
func parseAt(s string, base time.Time) (time.Time, error) {
	if rest, ok := strings.CutPrefix(s, "+"); ok {
		d, err := time.ParseDuration(rest)
		if err != nil {
			return time.Time{}, err
		}
		return base.Add(d), nil
	}
	return time.Parse(time.RFC3339, s)
}

// parsePress reads "[button@]TIME"; the button defaults to change.
func parsePress(s string, base time.Time) (simulate.ButtonPress, error) {
	bp := simulate.ButtonPress{Button: button.Change}
	if name, at, ok := strings.Cut(s, "@"); ok {
		id, err := button.ParseID(name)
		if err != nil {
			return bp, fmt.Errorf("invalid --press %q: %w", s, err)
		}
		bp.Button = id
		s = at
	}
	t, err := parseAt(s, base)
	if err != nil {
		return bp, fmt.Errorf("invalid --press: %w", err)
	}
	bp.At = t
	return bp, nil
}

func printSimEvent(e simulate.Event) {
	what := e.Kind.String()
	if e.Kind == simulate.Press || e.Kind == simulate.PressIgnored {
		what += " " + e.Button.String()
	}
	fmt.Fprintf(common.Out, "%s  %-20s period %-3s next %s\n",
		e.At.UTC().Format(time.RFC3339), what, e.Period, e.Next.UTC().Format(time.RFC3339))
}
