package cmd

import (
	"fmt"
	"time"

	"github.com/urfave/cli"
	"github.com/shutterloop/shutterloop/cmd/common"
	"github.com/shutterloop/shutterloop/internal/button"
)

func status(ctx *cli.Context) error {
	if ctx.Args().First() == "help" {
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	}
	client, err := newClient()
	if err != nil {
		common.PrintRuntimeErr(ctx, "status", "new_client", err)
		return nil
	}
	defer client.Close()
	c, cancel := callContext()
	defer cancel()
	st, err := client.Status(c)
	if err != nil {
		common.PrintRuntimeErr(ctx, "status", "get_status", err)
		return nil
	}

	out := common.Out
	fmt.Fprintf(out, "Period:       %s\n", st.Period)
	fmt.Fprintf(out, "Next capture: %s", st.Next.UTC().Format(time.RFC3339))
	if st.Due {
		fmt.Fprint(out, " (due)\n")
	} else {
		fmt.Fprintf(out, " (in %s)\n", st.Next.Sub(st.Now).Round(time.Second))
	}
	if st.LastPhoto != nil {
		fmt.Fprintf(out, "Last photo:   %s\n", st.LastPhoto.UTC().Format(time.RFC3339))
	} else {
		fmt.Fprintln(out, "Last photo:   never")
	}
	if st.Last != nil {
		fmt.Fprintf(out, "Last result:  %s at %s", st.Last.Outcome, st.Last.At.UTC().Format(time.RFC3339))
		if st.Last.Detail != "" {
			fmt.Fprintf(out, " (%s)", st.Last.Detail)
		}
		fmt.Fprintln(out)
	}
	return nil
}

func press(ctx *cli.Context) error {
	arg := ctx.Args().First()
	switch arg {
	case "":
		return common.PrintErrWithCmdHelp(ctx, fmt.Errorf("no button provided"))
	case "help":
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	}
	id, err := button.ParseID(arg)
	if err != nil {
		return common.PrintErrWithCmdHelp(ctx, err)
	}
	client, err := newClient()
	if err != nil {
		common.PrintRuntimeErr(ctx, "press", "new_client", err)
		return nil
	}
	defer client.Close()
	c, cancel := callContext()
	defer cancel()
	ok, err := client.Press(c, id.String())
	if err != nil {
		common.PrintRuntimeErr(ctx, "press", "press", err)
		return nil
	}
	if ok {
		fmt.Fprintf(common.Out, "%s: %s press accepted\n", ctx.App.HelpName, id)
	} else {
		fmt.Fprintf(common.Out, "%s: %s press ignored (debounced or still pending)\n", ctx.App.HelpName, id)
	}
	return nil
}
