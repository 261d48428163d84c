package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/urfave/cli"
	"github.com/shutterloop/shutterloop/cmd/common"
	shared "github.com/shutterloop/shutterloop/common"
	"github.com/shutterloop/shutterloop/internal/journal"
)

var (
	journalLimit int
	journalCSV   bool
	journalTZ    string

	journalFlags = []cli.Flag{
		cli.IntFlag{
			Name:        "limit, n",
			Usage:       "number of entries to list (default: 20)",
			Value:       20,
			Destination: &journalLimit,
		},
		cli.BoolFlag{
			Name:        "csv",
			Usage:       "export the whole journal as CSV from the local database",
			Destination: &journalCSV,
		},
		cli.StringFlag{
			Name:        "tz",
			Usage:       "time zone for dates, e.g. America/New_York (default: UTC)",
			Value:       "UTC",
			Destination: &journalTZ,
		},
	}
)

func journalCmd(ctx *cli.Context) error {
	if ctx.Args().First() == "help" {
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	}
	loc, err := time.LoadLocation(journalTZ)
	if err != nil {
		return common.PrintErrWithCmdHelp(ctx, err)
	}
	if journalCSV {
		return exportJournal(ctx, loc)
	}

	client, err := newClient()
	if err != nil {
		common.PrintRuntimeErr(ctx, "journal", "new_client", err)
		return nil
	}
	defer client.Close()
	c, cancel := callContext()
	defer cancel()
	entries, err := client.Journal(c, journalLimit)
	if err != nil {
		common.PrintRuntimeErr(ctx, "journal", "get_entries", err)
		return nil
	}
	if len(entries) == 0 {
		fmt.Fprintf(common.Out, "%s: journal is empty\n", ctx.App.HelpName)
		return nil
	}
	printEntries(entries, loc)
	return nil
}

func printEntries(entries []shared.JournalEntry, loc *time.Location) {
	out := common.Out
	fmt.Fprintf(out, "|%s|%s|%s|%s|%s|\n",
		common.Beaut("Date", 21), common.Beaut("Kind", 17), common.Beaut("Period", 8),
		common.Beaut("Light", 7), common.Beaut("Battery", 9))
	fmt.Fprintln(out, "|---------------------|-----------------|--------|-------|---------|")
	for _, e := range entries {
		light, volts := "-", "-"
		if e.Light != nil {
			light = fmt.Sprint(*e.Light)
		}
		if e.BatteryV != nil {
			volts = fmt.Sprintf("%.2f V", *e.BatteryV)
		}
		fmt.Fprintf(out, "| %s |%s|%s|%s|%s|",
			e.At.In(loc).Format("2006-01-02 15:04:05"), common.Beaut(e.Kind, 17),
			common.Beaut(e.Period, 8), common.Beaut(light, 7), common.Beaut(volts, 9))
		if e.Detail != "" {
			fmt.Fprintf(out, " %s", e.Detail)
		}
		fmt.Fprintln(out)
	}
}

func exportJournal(ctx *cli.Context, loc *time.Location) error {
	cfg, err := loadConfig()
	if err != nil {
		common.PrintRuntimeErr(ctx, "journal", "load_config", err)
		return nil
	}
	if cfg.Journal.File == "" {
		common.PrintRuntimeErr(ctx, "journal", "open", errors.New("journal.file is not configured"))
		return nil
	}
	j, err := journal.Open(cfg.Journal.File)
	if err != nil {
		common.PrintRuntimeErr(ctx, "journal", "open", err)
		return nil
	}
	defer j.Close()
	if _, err := j.ExportCSV(context.Background(), common.Out, loc); err != nil {
		common.PrintRuntimeErr(ctx, "journal", "export_csv", err)
	}
	return nil
}
