package main

import (
	"context"
	"fmt"

	"github.com/go-git/go-git/v5"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/keyu98/commitgraph/commitgraph"
	"github.com/keyu98/commitgraph/objstore"
	"github.com/keyu98/commitgraph/progress"
)

var cmdWrite = &cli.Command{
	Name:   "write",
	Usage:  "regenerate the commit-graph file from the repository's branch tips",
	Action: runWrite,
}

func runWrite(ctx *cli.Context) error {
	repoPath := ctx.String("repo")

	repo, err := git.PlainOpen(repoPath)
	if err != nil {
		return errors.Wrap(err, "commitgraph: opening repository")
	}

	tips, err := discoverTips(repo)
	if err != nil {
		return errors.Wrap(err, "commitgraph: discovering branch tips")
	}
	if len(tips) == 0 {
		return fmt.Errorf("commitgraph: no branch tips found in %s", repoPath)
	}

	w := commitgraph.NewWriter(
		&objstore.GoGitReader{Storer: repo.Storer},
		commitgraph.WithProgress(progress.NewConsole()),
	)

	result, err := w.WriteFile(context.Background(), tips, graphFilePath(repoPath))
	if err != nil {
		return err
	}
	fmt.Printf("wrote %d commits in %s\n", result.CommitCount, result.Duration)
	return nil
}
