package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/keyu98/commitgraph/commitgraph"
)

var cmdVerify = &cli.Command{
	Name:   "verify",
	Usage:  "open the commit-graph file and validate its checksum and chunk layout",
	Action: runVerify,
}

func runVerify(ctx *cli.Context) error {
	path := graphFilePath(ctx.String("repo"))

	r, err := commitgraph.OpenFile(path)
	if err != nil {
		return err
	}
	defer r.Close()

	stats := r.Stats()
	fmt.Printf("ok: %d commits, %d bytes, extra-edge=%v\n", stats.CommitCount, stats.FileSize, stats.HasExtraEdge)
	return nil
}
