package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/afero"
	"github.com/urfave/cli"
	"github.com/shutterloop/shutterloop/cmd/common"
	"github.com/shutterloop/shutterloop/internal/schedule"
	"github.com/shutterloop/shutterloop/pkg/eeprom"
)

var (
	resetYes bool

	resetFlags = []cli.Flag{
		cli.BoolFlag{
			Name:        "yes, y",
			Usage:       "do not ask for confirmation",
			Destination: &resetYes,
		},
	}

	// hostFs backs the commands that touch local files.
	hostFs afero.Fs = afero.NewOsFs()
	// In is read for confirmations.
	In io.Reader = os.Stdin
)

// confirm asks before a destructive action unless force is set.
func confirm(action string, force bool) bool {
	if force {
		return true
	}
	fmt.Fprintf(common.Out, "Are you sure you want to proceed with the %s? (yes/no): ", action)
	line, _ := bufio.NewReader(In).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "yes", "y", "true", "1":
		return true
	}
	fmt.Fprintf(common.Out, "Cancelled %s!\n", action)
	return false
}

func reset(ctx *cli.Context) error {
	if ctx.Args().First() == "help" {
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	}
	cfg, err := loadConfig()
	if err != nil {
		common.PrintRuntimeErr(ctx, "reset", "load_config", err)
		return nil
	}
	if !confirm("schedule reset", resetYes) {
		return nil
	}
	store, err := eeprom.OpenFile(hostFs, cfg.Store.Image, &eeprom.FileOptions{Size: cfg.Store.Size})
	if errors.Is(err, eeprom.ErrLocked) {
		err = errors.New("the store is in use; stop the daemon first")
	}
	if err != nil {
		common.PrintRuntimeErr(ctx, "reset", "open_store", err)
		return nil
	}
	defer store.Close()
	rec := schedule.Reset(store, cfg.ScheduleOptions().Layout)
	if err := store.Err(); err != nil {
		common.PrintRuntimeErr(ctx, "reset", "write_store", err)
		return nil
	}
	fmt.Fprintf(common.Out, "%s: schedule reset to period %s in %s\n", ctx.App.HelpName, rec.Period, cfg.Store.Image)
	return nil
}
