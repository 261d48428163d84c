package cmd

import (
	"fmt"
	"runtime"

	"github.com/urfave/cli"
	"github.com/shutterloop/shutterloop/cmd/common"
	shared "github.com/shutterloop/shutterloop/common"
)

type BuildArgs struct {
	Version   string
	BuildType string
	Date      string
	Commit    string
}

var currentBuildArgs BuildArgs

var (
	configPath string
	envFile    string
	rpcURL     string
	rpcSecret  string

	globalFlags = []cli.Flag{
		cli.StringFlag{
			Name:        "config, c",
			Usage:       "path of the TOML config file (default: " + shared.DefaultConfigPath + ")",
			EnvVar:      shared.ConfigEnv,
			Destination: &configPath,
		},
		cli.StringFlag{
			Name:        "env-file",
			Usage:       "dotenv file loaded before environment overrides",
			Destination: &envFile,
		},
		cli.StringFlag{
			Name:        "rpc",
			Usage:       "control API base URL (default: from rpc.listen)",
			EnvVar:      shared.RPCURLEnv,
			Destination: &rpcURL,
		},
		cli.StringFlag{
			Name:        "secret",
			Usage:       "control API token (default: rpc.secret)",
			EnvVar:      shared.RPCSecretEnv,
			Destination: &rpcSecret,
		},
	}
)

func Execute(args []string, bArgs BuildArgs) error {
	currentBuildArgs = bArgs
	app := cli.App{
		Name:                  "shutterloop",
		HelpName:              "shutterloop",
		Usage:                 "A timelapse camera trigger.",
		Version:               fmt.Sprintf("%s-%s", bArgs.Version, bArgs.BuildType),
		UsageText:             "shutterloop [global options] <command> [arguments...]",
		Description:           DESCRIPTION,
		CustomAppHelpTemplate: HELP_TEMPL,
		OnUsageError:          common.UsageErrorCallback,
		Writer:                common.Out,
		Flags:                 globalFlags,
		Commands: []cli.Command{
			{
				Name:               "run",
				Usage:              "runs the capture daemon",
				Description:        RunDescription,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				OnUsageError:       common.UsageErrorCallback,
				Action:             run,
			},
			{
				Name:               "status",
				Aliases:            []string{"s"},
				Usage:              "shows the daemon's schedule",
				Description:        StatusDescription,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				OnUsageError:       common.UsageErrorCallback,
				Action:             status,
			},
			{
				Name:               "press",
				Aliases:            []string{"p"},
				Usage:              "presses a button on the daemon",
				UsageText:          "<wake|change>",
				Description:        PressDescription,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				OnUsageError:       common.UsageErrorCallback,
				Action:             press,
			},
			{
				Name:                   "journal",
				Aliases:                []string{"j"},
				Usage:                  "lists or exports the capture journal",
				Description:            JournalDescription,
				CustomHelpTemplate:     CMD_HELP_TEMPL,
				OnUsageError:           common.UsageErrorCallback,
				Action:                 journalCmd,
				Flags:                  journalFlags,
				UseShortOptionHandling: true,
			},
			{
				Name:               "watch",
				Aliases:            []string{"w"},
				Usage:              "follows schedule changes and captures",
				Description:        WatchDescription,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				OnUsageError:       common.UsageErrorCallback,
				Action:             watch,
			},
			{
				Name:               "simulate",
				Usage:              "fast-forwards the schedule over a virtual clock",
				Description:        SimulateDescription,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				OnUsageError:       common.UsageErrorCallback,
				Action:             simulateCmd,
				Flags:              simFlags,
			},
			{
				Name:               "reset",
				Usage:              "rewrites the schedule store with defaults",
				Description:        ResetDescription,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				OnUsageError:       common.UsageErrorCallback,
				Action:             reset,
				Flags:              resetFlags,
			},
			{
				Name:               "flatten",
				Usage:              "renumbers photos from camera folders into one directory",
				UsageText:          "<SRC> <DST>",
				Description:        FlattenDescription,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				OnUsageError:       common.UsageErrorCallback,
				Action:             flattenCmd,
				Flags:              flattenFlags,
			},
			{
				Name:               "login",
				Usage:              "saves the control API token for client commands",
				UsageText:          "[TOKEN]",
				Description:        LoginDescription,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				OnUsageError:       common.UsageErrorCallback,
				Action:             login,
			},
			{
				Name:               "logout",
				Usage:              "removes the saved control API token",
				CustomHelpTemplate: CMD_HELP_TEMPL,
				OnUsageError:       common.UsageErrorCallback,
				Action:             logout,
			},
			{
				Name:    "help",
				Aliases: []string{"h"},
				Usage:   "prints the help message",
				Action:  common.Help,
			},
			{
				Name:               "version",
				Aliases:            []string{"v"},
				Usage:              "prints the installed version",
				UsageText:          " ",
				CustomHelpTemplate: CMD_HELP_TEMPL,
				Action:             common.GetVersion,
			},
		},
		HideHelp:    true,
		HideVersion: true,
	}
	common.VersionCmdStr = fmt.Sprintf("%s %s (%s_%s)\nBuild: %s=%s",
		app.Name,
		app.Version,
		runtime.GOOS,
		runtime.GOARCH,
		bArgs.Date, bArgs.Commit,
	)
	return app.Run(args)
}
