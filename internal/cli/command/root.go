package command

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/basant256/respkv/internal/cli/connection"
	"github.com/basant256/respkv/internal/cli/output"
	"github.com/basant256/respkv/internal/cli/repl"
	"github.com/basant256/respkv/internal/infra/buildinfo"
	"github.com/basant256/respkv/internal/server/config"
	"github.com/basant256/respkv/internal/server/redisserver"
)

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:            "respkv-cli",
		Usage:           "respkv command-line client",
		UsageText:       "respkv-cli [global options] [command [arguments...]]",
		Version:         buildinfo.String(),
		Flags:           globalFlags(),
		Action:          run,
		HideHelpCommand: true,
	}
}

// globalFlags returns the global CLI flags.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "server",
			Aliases: []string{"s"},
			Usage:   "respkv server address",
			EnvVars: []string{"RESPKV_SERVER"},
			Value:   config.DefaultRedisAddr,
		},
		&cli.DurationFlag{
			Name:    "timeout",
			Aliases: []string{"t"},
			Usage:   "dial and command timeout",
			Value:   connection.DefaultTimeout,
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "output format: text, raw, json, yaml",
			Value:   string(output.FormatText),
		},
		&cli.StringFlag{
			Name:    "history-file",
			Usage:   "interactive history file (empty disables persistence)",
			EnvVars: []string{"RESPKV_HISTORY_FILE"},
			Value:   repl.DefaultHistoryFile(),
		},
	}
}

// GlobalFlags holds the parsed global flags.
type GlobalFlags struct {
	Server      string
	Timeout     time.Duration
	Output      output.Format
	HistoryFile string
}

// ParseGlobalFlags extracts and validates the global flags.
func ParseGlobalFlags(c *cli.Context) (*GlobalFlags, error) {
	format, err := output.ParseFormat(c.String("output"))
	if err != nil {
		return nil, err
	}
	return &GlobalFlags{
		Server:      c.String("server"),
		Timeout:     c.Duration("timeout"),
		Output:      format,
		HistoryFile: c.String("history-file"),
	}, nil
}

func run(c *cli.Context) error {
	flags, err := ParseGlobalFlags(c)
	if err != nil {
		return err
	}

	client := connection.NewClient(flags.Server, flags.Timeout)
	defer client.Close()

	formatter := output.NewFormatter(flags.Output)
	execute := func(args []string) error {
		v, err := client.Do(c.Context, args...)
		if err != nil {
			return err
		}
		return formatter.Format(c.App.Writer, v)
	}

	if c.Args().Present() {
		return execute(c.Args().Slice())
	}

	in := c.App.Reader
	if in == nil {
		in = os.Stdin
	}
	return repl.New(execute,
		repl.WithIO(in, c.App.Writer),
		repl.WithPrompt(fmt.Sprintf("%s> ", flags.Server)),
		repl.WithHistory(repl.NewHistory(flags.HistoryFile)),
		repl.WithCommands(commandNames()...),
	).Run()
}

// commandNames lists the server commands offered by interactive help.
func commandNames() []string {
	names := redisserver.NewCommandTable().Names()
	sort.Strings(names)
	return names
}
