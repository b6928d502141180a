package main

import (
	"path/filepath"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/keyu98/commitgraph/commitgraph"
)

// graphFilePath mirrors git's own location for this file: under the repo's
// object database, not tracked by the repository itself (§5 "Shared
// resources").
func graphFilePath(repoPath string) string {
	return filepath.Join(repoPath, ".git", "objects", "info", "commit-graph")
}

// discoverTips collects the tip of every local branch, the wanted set
// (§1) a real GC hook would pass in.
func discoverTips(repo *git.Repository) ([]commitgraph.CommitHash, error) {
	refs, err := repo.Branches()
	if err != nil {
		return nil, err
	}
	defer refs.Close()

	var tips []commitgraph.CommitHash
	err = refs.ForEach(func(ref *plumbing.Reference) error {
		tips = append(tips, ref.Hash())
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tips, nil
}
