package walk

import (
	"context"

	"github.com/keyu98/commitgraph/commitgraph"
)

// CommitID aliases the core package's hash type at the walker's public
// boundary (§3 "ambient types"): callers of this package never see a
// Position, only CommitIDs and the Commit objects built from them.
type CommitID = commitgraph.CommitHash

// Commit is a lazily materialized node produced by a Walker. Metadata
// available from the commit-graph file — tree, commit time, parent list,
// generation — is populated eagerly by the resolver; the message body is
// fetched from the object database only on demand, via Message.
//
// A Commit resolved through the graph carries GenerationUnknown's opposite:
// a real Generation value. One resolved by falling back to raw parsing
// (because the graph didn't cover it) carries commitgraph.GenerationUnknown,
// matching §4.7's "behaves exactly as if the graph did not exist" guarantee
// for any commit outside the graph's coverage.
type Commit struct {
	ID         CommitID
	Tree       CommitID
	CommitTime int64
	Generation commitgraph.Generation
	ParentIDs  []CommitID

	w *Walker

	message       string
	messageLoaded bool
}

// FromGraph reports whether this Commit's metadata came from the
// commit-graph file rather than raw object parsing. Per §4.7's fallback
// rule, this is false for any commit the graph doesn't fully cover.
func (c *Commit) FromGraph() bool {
	return c.Generation != commitgraph.GenerationUnknown
}

// BodyFetched reports whether Message has already read this commit's raw
// body from the object database. A Commit resolved via the graph starts
// with this false — its raw buffer is explicitly left empty until a caller
// actually asks for the message (§4.7).
func (c *Commit) BodyFetched() bool { return c.messageLoaded }

// Message returns the commit's message, fetching it from the object
// database on first call and caching the result.
func (c *Commit) Message(ctx context.Context) (string, error) {
	if c.messageLoaded {
		return c.message, nil
	}
	msg, err := c.w.objects.ReadMessage(ctx, c.ID)
	if err != nil {
		return "", err
	}
	c.message = msg
	c.messageLoaded = true
	return c.message, nil
}

// Parent resolves and returns the n-th parent, reading through the same
// Walker (and its graph-aware short-circuit) that produced c.
func (c *Commit) Parent(ctx context.Context, n int) (*Commit, error) {
	if n < 0 || n >= len(c.ParentIDs) {
		return nil, ErrNoSuchParent
	}
	return c.w.resolve(ctx, c.ParentIDs[n])
}

// NumParents returns the number of direct parents.
func (c *Commit) NumParents() int { return len(c.ParentIDs) }
