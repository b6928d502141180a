package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-git/go-git/v5"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"github.com/urfave/cli/v2"

	"github.com/keyu98/commitgraph/commitgraph"
	"github.com/keyu98/commitgraph/internal/gclog"
	"github.com/keyu98/commitgraph/objstore"
)

var cmdServe = &cli.Command{
	Name:  "serve",
	Usage: "periodically regenerate the commit-graph file on a cron schedule",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "schedule",
			Value: "@every 15m",
			Usage: "cron schedule (robfig/cron syntax) for regeneration",
		},
	},
	Action: runServe,
}

// runServe stands in for the GC orchestrator's regeneration trigger named
// in §6, without taking on any GC responsibility itself: it only ever
// calls Writer.WriteFile on a timer.
func runServe(ctx *cli.Context) error {
	repoPath := ctx.String("repo")
	schedule := ctx.String("schedule")

	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		if err := regenerate(repoPath); err != nil {
			gclog.Error("commitgraph: scheduled regeneration failed: %v", err)
		}
	})
	if err != nil {
		return errors.Wrap(err, "commitgraph: parsing schedule")
	}

	gclog.Info("commitgraph: serving %s, schedule=%q", repoPath, schedule)
	c.Start()
	defer c.Stop()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	gclog.Info("commitgraph: shutting down")
	return nil
}

func regenerate(repoPath string) error {
	repo, err := git.PlainOpen(repoPath)
	if err != nil {
		return errors.Wrap(err, "commitgraph: opening repository")
	}
	tips, err := discoverTips(repo)
	if err != nil {
		return errors.Wrap(err, "commitgraph: discovering branch tips")
	}
	if len(tips) == 0 {
		return nil
	}

	w := commitgraph.NewWriter(&objstore.GoGitReader{Storer: repo.Storer})
	_, err = w.WriteFile(context.Background(), tips, graphFilePath(repoPath))
	return err
}
