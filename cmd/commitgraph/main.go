// Command commitgraph is a reference CLI standing in for the "GC
// orchestrator" caller named in §6: write regenerates a graph file from a
// repository's branch tips, verify opens and validates one, dump prints
// the structural diagnostics C5's Stats() exposes, and serve regenerates
// on a cron schedule. It exercises the writer and reader end to end the
// way the teacher's own cmd/doctor.go exercises its subsystems through a
// urfave/cli/v2 sub-command tree.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/keyu98/commitgraph/internal/gclog"
)

func main() {
	app := &cli.App{
		Name:  "commitgraph",
		Usage: "build and inspect commit-graph acceleration files",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "repo",
				Aliases: []string{"r"},
				Value:   ".",
				Usage:   "path to the git repository",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Value: "info",
				Usage: "trace, debug, info, warn, error, fatal",
			},
		},
		Before: func(ctx *cli.Context) error {
			lvl, err := gclog.ParseLevel(ctx.String("log-level"))
			if err != nil {
				return err
			}
			gclog.SetLevel(lvl)
			return nil
		},
		Commands: []*cli.Command{
			cmdWrite,
			cmdVerify,
			cmdDump,
			cmdServe,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
