// Package objstore provides implementations of commitgraph.ObjectReader,
// the object-database collaborator named in §6 of the specification:
// packed/loose object storage itself is out of this module's scope, but a
// commit-graph Writer needs something to read raw commits from.
package objstore

import (
	"context"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"

	"github.com/keyu98/commitgraph/commitgraph"
)

// GoGitReader adapts a go-git encoded-object store to
// commitgraph.ObjectReader. This is the real-world collaborator: any
// go-git Repository's Storer satisfies storer.EncodedObjectStorer.
type GoGitReader struct {
	Storer storer.EncodedObjectStorer
}

// ReadCommit implements commitgraph.ObjectReader.
func (g *GoGitReader) ReadCommit(_ context.Context, hash commitgraph.CommitHash) (commitgraph.RawCommit, error) {
	c, err := object.GetCommit(g.Storer, hash)
	if err != nil {
		if err == plumbing.ErrObjectNotFound {
			return commitgraph.RawCommit{}, commitgraph.ErrObjectMissing
		}
		return commitgraph.RawCommit{}, err
	}

	parents := make([]commitgraph.CommitHash, len(c.ParentHashes))
	copy(parents, c.ParentHashes)

	return commitgraph.RawCommit{
		Tree:       c.TreeHash,
		Parents:    parents,
		CommitTime: c.Committer.When.Unix(),
	}, nil
}

// ReadMessage implements walk.ObjectReader's message-fetching extension:
// it's kept out of commitgraph.ObjectReader since the writer never needs a
// commit's message (§1 Non-goals), but the traversal hook's body-filter
// fallback (§4.7, §8 S6) does.
func (g *GoGitReader) ReadMessage(_ context.Context, hash commitgraph.CommitHash) (string, error) {
	c, err := object.GetCommit(g.Storer, hash)
	if err != nil {
		if err == plumbing.ErrObjectNotFound {
			return "", commitgraph.ErrObjectMissing
		}
		return "", err
	}
	return c.Message, nil
}
