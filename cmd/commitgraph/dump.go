package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/urfave/cli/v2"

	"github.com/keyu98/commitgraph/commitgraph"
)

var cmdDump = &cli.Command{
	Name:   "dump",
	Usage:  "print structural diagnostics about the commit-graph file",
	Action: runDump,
}

func runDump(ctx *cli.Context) error {
	path := graphFilePath(ctx.String("repo"))

	r, err := commitgraph.OpenFile(path)
	if err != nil {
		return err
	}
	defer r.Close()

	stats := r.Stats()
	w := tabwriter.NewWriter(os.Stdout, 0, 8, 1, '\t', 0)
	fmt.Fprintf(w, "path\t%s\n", path)
	fmt.Fprintf(w, "commits\t%d\n", stats.CommitCount)
	fmt.Fprintf(w, "file size\t%d bytes\n", stats.FileSize)
	fmt.Fprintf(w, "extra-edge chunk\t%v\n", stats.HasExtraEdge)
	return w.Flush()
}
