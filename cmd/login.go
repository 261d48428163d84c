package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli"
	"github.com/shutterloop/shutterloop/cmd/common"
	"github.com/shutterloop/shutterloop/pkg/credman"
)

// tokenStore returns where login keeps the control API token.
var tokenStore = func() *credman.Manager {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return credman.NewManager(
		credman.NewKeyring(),
		credman.NewFileStore(hostFs, filepath.Join(dir, "shutterloop", "token")),
	)
}

func login(ctx *cli.Context) error {
	token := ctx.Args().First()
	if token == "help" {
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	}
	if token == "" {
		fmt.Fprint(common.Out, "Token: ")
		line, _ := bufio.NewReader(In).ReadString('\n')
		token = strings.TrimSpace(line)
	}
	if token == "" {
		return common.PrintErrWithCmdHelp(ctx, errors.New("no token provided"))
	}
	where, err := tokenStore().Set(token)
	if err != nil {
		common.PrintRuntimeErr(ctx, "login", "store_token", err)
		return nil
	}
	fmt.Fprintf(common.Out, "%s: token saved to the %s store\n", ctx.App.HelpName, where)
	return nil
}

func logout(ctx *cli.Context) error {
	if ctx.Args().First() == "help" {
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	}
	if err := tokenStore().Delete(); err != nil {
		common.PrintRuntimeErr(ctx, "logout", "delete_token", err)
		return nil
	}
	fmt.Fprintf(common.Out, "%s: token removed\n", ctx.App.HelpName)
	return nil
}
