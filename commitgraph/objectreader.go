package commitgraph

import (
	"context"
	"errors"
)

// RawCommit is what the object database collaborator (§6) hands back for
// one commit: just enough to build a CommitRecord. Message text is
// deliberately absent — this module never stores or needs it (§1
// Non-goals).
type RawCommit struct {
	Tree       CommitHash
	Parents    []CommitHash
	CommitTime int64
}

// Sentinel errors an ObjectReader may wrap (§6 "readCommit ... may fail
// with 'not a commit' or 'missing'").
var (
	ErrNotACommit    = errors.New("commitgraph: object is not a commit")
	ErrObjectMissing = errors.New("commitgraph: object is missing")
)

// ObjectReader is the object-database collaborator the writer consumes
// (§6). Implementations live outside this package — see the objstore
// package for a go-git-backed one and an in-memory test double — since
// packed/loose object storage is explicitly out of this module's scope
// (§1).
type ObjectReader interface {
	ReadCommit(ctx context.Context, hash CommitHash) (RawCommit, error)
}
