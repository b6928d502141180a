// Package walk implements the traversal hook named C7 in the
// specification: a revision walker that consults a commit-graph Reader
// when one is available and falls back to raw object parsing, commit by
// commit, wherever the graph doesn't cover a commit — so that callers get
// an identical result set whether or not a graph file happens to exist
// (§4.7).
//
// The design mirrors the teacher's lazily-resolving git.Commit
// (modules/git/commit.go): a Commit's parents are identifiers until
// something actually asks to walk into them, at which point the Walker
// that produced the child resolves (and caches) the parent the same way.
package walk

import (
	"container/heap"
	"context"
	"sort"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/keyu98/commitgraph/commitgraph"
	"github.com/keyu98/commitgraph/internal/config"
)

// ObjectReader is the object-database collaborator the walker consumes. It
// embeds the writer's narrower commitgraph.ObjectReader and adds the one
// capability the writer never needs: reading a commit's message body,
// required for the raw-parsing fallback's message filter (§4.7, §8 S6).
type ObjectReader interface {
	commitgraph.ObjectReader
	ReadMessage(ctx context.Context, hash CommitID) (string, error)
}

// SortMode selects the traversal order Walk produces.
type SortMode int

const (
	// SortCommitTimeDesc orders commits by commit time, most recent
	// first, breaking ties on hash for a deterministic order.
	SortCommitTimeDesc SortMode = iota
	// SortTopological orders commits so that no commit is emitted before
	// all of its descendants within the walked set — git's --topo-order,
	// implemented as a commit-time-prioritized Kahn traversal so that,
	// among commits that become eligible at the same point, the most
	// recent one is still emitted first.
	SortTopological
)

// RevFilter narrows which commits of the walked set Walk returns.
type RevFilter int

const (
	// RevFilterAll returns every commit reachable from the tips.
	RevFilterAll RevFilter = iota
	// RevFilterMergeBase returns only commits reachable from every tip —
	// the common-ancestor set, generalizing two-tip merge-base to any
	// number of tips (up to the 64 a uint64 bitmask can track).
	RevFilterMergeBase
)

// TreeFilter decides whether a commit's tree change is interesting enough
// to keep. Real tree/blob diffing is delegated to the caller — the graph
// core has no tree-walking of its own (§1 Non-goals) — so this package
// defines the extension point plus one tree-hash-only implementation,
// TreeFilterChanged. TreeFilterAll (nil) disables tree filtering entirely.
type TreeFilter func(ctx context.Context, c *Commit) (bool, error)

// TreeFilterAll performs no tree filtering; pass nil (the zero value of
// TreeFilter) for the same effect. Kept as a named value so callers can
// write walk.TreeFilterAll the way they'd write a revwalk constant.
var TreeFilterAll TreeFilter

// TreeFilterChanged keeps a commit iff its tree hash differs from every
// parent's — the cheap "did this commit touch anything" check git itself
// runs before any real diff, using only the tree hash already carried by
// CommitRecord/RawCommit. A root commit (no parents) always passes. It
// cannot do path-scoped filtering: that needs tree content, which the
// ObjectReader contract deliberately doesn't expose (§1 Non-goals).
func TreeFilterChanged(ctx context.Context, c *Commit) (bool, error) {
	if len(c.ParentIDs) == 0 {
		return true, nil
	}
	for _, pid := range c.ParentIDs {
		parent, err := c.w.resolve(ctx, pid)
		if err != nil {
			return false, err
		}
		if parent.Tree == c.Tree {
			return false, nil
		}
	}
	return true, nil
}

// MessageFilter reports whether a commit's message should be kept.
type MessageFilter func(message string) bool

// WalkOptions configures one call to Walker.Walk.
type WalkOptions struct {
	Sort          SortMode
	Rev           RevFilter
	TreeFilter    TreeFilter
	MessageFilter MessageFilter
}

const defaultCacheSize = 4096

// Walker performs graph-aware revision walks over one object database,
// consulting a commit-graph Reader when configuration allows it and
// falling back to raw parsing commit by commit otherwise (§4.7).
type Walker struct {
	objects  ObjectReader
	graph    *commitgraph.Reader
	useGraph bool
	cache    *lru.Cache[CommitID, *Commit]
}

// NewWalker builds a Walker. graph may be nil (no commit-graph file
// present); cfg may be nil (defaults to consulting the graph whenever one
// is given, matching internal/config.Default).
func NewWalker(objects ObjectReader, graph *commitgraph.Reader, cfg *config.Config) *Walker {
	useGraph := graph != nil
	if cfg != nil {
		useGraph = useGraph && cfg.UseGraphWhenReading
	}
	cache, _ := lru.New[CommitID, *Commit](defaultCacheSize)
	return &Walker{objects: objects, graph: graph, useGraph: useGraph, cache: cache}
}

// resolve materializes the Commit for id, consulting the LRU first, then
// the graph (if enabled and it covers id completely), then falling back to
// a raw ObjectReader.ReadCommit.
func (w *Walker) resolve(ctx context.Context, id CommitID) (*Commit, error) {
	if c, ok := w.cache.Get(id); ok {
		return c, nil
	}
	c, err := w.resolveUncached(ctx, id)
	if err != nil {
		return nil, err
	}
	w.cache.Add(id, c)
	return c, nil
}

func (w *Walker) resolveUncached(ctx context.Context, id CommitID) (*Commit, error) {
	if w.useGraph {
		if c, ok, err := w.resolveFromGraph(id); err != nil {
			return nil, err
		} else if ok {
			return c, nil
		}
	}

	rc, err := w.objects.ReadCommit(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Commit{
		ID:         id,
		Tree:       rc.Tree,
		CommitTime: rc.CommitTime,
		Generation: commitgraph.GenerationUnknown,
		ParentIDs:  rc.Parents,
		w:          w,
	}, nil
}

// resolveFromGraph attempts the graph-only path. The second return is false
// when id isn't in the graph at all, or when any of its parent positions
// can't be resolved back to a hash — either way the caller falls back to
// raw parsing for id alone. The fallback does not extend to id's
// ancestors: each parent is resolved on its own later, from the graph
// whenever the graph holds it.
func (w *Walker) resolveFromGraph(id CommitID) (*Commit, bool, error) {
	pos, ok := w.graph.PositionOf(id)
	if !ok {
		return nil, false, nil
	}
	data, ok := w.graph.DataAt(pos)
	if !ok {
		return nil, false, nil
	}

	parents := make([]CommitID, len(data.Parents))
	for i, p := range data.Parents {
		h, ok := w.graph.HashAt(p)
		if !ok {
			return nil, false, nil
		}
		parents[i] = h
	}

	return &Commit{
		ID:         id,
		Tree:       data.Tree,
		CommitTime: data.CommitTime,
		Generation: data.Generation,
		ParentIDs:  parents,
		w:          w,
	}, true, nil
}

// Walk traverses every commit reachable from tips, applies opts.Rev and
// opts.TreeFilter/opts.MessageFilter, and returns the surviving commits in
// opts.Sort order.
func (w *Walker) Walk(ctx context.Context, tips []CommitID, opts WalkOptions) ([]*Commit, error) {
	visited, order, err := w.collect(ctx, tips)
	if err != nil {
		return nil, err
	}

	var ordered []*Commit
	switch opts.Sort {
	case SortTopological:
		ordered = topoSort(visited, tips)
	default:
		ordered = commitTimeDescSort(visited, order)
	}

	if opts.Rev == RevFilterMergeBase {
		ordered, err = w.filterMergeBase(ctx, tips, ordered)
		if err != nil {
			return nil, err
		}
	}

	return w.applyFilters(ctx, ordered, opts)
}

// collect performs a breadth-first traversal from tips to every ancestor
// reachable through resolve (graph-backed or raw, transparently).
func (w *Walker) collect(ctx context.Context, tips []CommitID) (map[CommitID]*Commit, []CommitID, error) {
	visited := make(map[CommitID]*Commit)
	order := make([]CommitID, 0)

	frontier := dedupe(tips)
	for len(frontier) > 0 {
		next := make([]CommitID, 0)
		for _, id := range frontier {
			if _, ok := visited[id]; ok {
				continue
			}
			c, err := w.resolve(ctx, id)
			if err != nil {
				return nil, nil, err
			}
			visited[id] = c
			order = append(order, id)
			next = append(next, c.ParentIDs...)
		}
		frontier = next
	}
	return visited, order, nil
}

func (w *Walker) applyFilters(ctx context.Context, commits []*Commit, opts WalkOptions) ([]*Commit, error) {
	if opts.TreeFilter == nil && opts.MessageFilter == nil {
		return commits, nil
	}
	filtered := make([]*Commit, 0, len(commits))
	for _, c := range commits {
		if opts.TreeFilter != nil {
			keep, err := opts.TreeFilter(ctx, c)
			if err != nil {
				return nil, err
			}
			if !keep {
				continue
			}
		}
		if opts.MessageFilter != nil {
			msg, err := c.Message(ctx)
			if err != nil {
				return nil, err
			}
			if !opts.MessageFilter(msg) {
				continue
			}
		}
		filtered = append(filtered, c)
	}
	return filtered, nil
}

// filterMergeBase keeps only commits reachable from every tip, by marking
// each commit with a bitmask of which tips can reach it and filtering for
// the full mask. Limited to 64 tips, the width of the mask.
func (w *Walker) filterMergeBase(ctx context.Context, tips []CommitID, commits []*Commit) ([]*Commit, error) {
	if len(tips) > 64 {
		tips = tips[:64]
	}
	full := uint64(1)<<len(tips) - 1
	if full == 0 {
		return nil, nil
	}

	mask := make(map[CommitID]uint64)
	for i, tip := range tips {
		bit := uint64(1) << i
		frontier := []CommitID{tip}
		seen := make(map[CommitID]bool)
		for len(frontier) > 0 {
			next := make([]CommitID, 0)
			for _, id := range frontier {
				if seen[id] {
					continue
				}
				seen[id] = true
				mask[id] |= bit
				c, err := w.resolve(ctx, id)
				if err != nil {
					return nil, err
				}
				next = append(next, c.ParentIDs...)
			}
			frontier = next
		}
	}

	kept := make([]*Commit, 0, len(commits))
	for _, c := range commits {
		if mask[c.ID] == full {
			kept = append(kept, c)
		}
	}
	return kept, nil
}

func dedupe(ids []CommitID) []CommitID {
	seen := make(map[CommitID]bool, len(ids))
	out := make([]CommitID, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

func commitTimeDescSort(visited map[CommitID]*Commit, order []CommitID) []*Commit {
	result := make([]*Commit, 0, len(order))
	for _, id := range order {
		result = append(result, visited[id])
	}
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].CommitTime != result[j].CommitTime {
			return result[i].CommitTime > result[j].CommitTime
		}
		return commitgraph.CompareHash(result[i].ID, result[j].ID) > 0
	})
	return result
}

// readyHeap is a max-heap over commits eligible for emission: the one
// with the highest commit time (ties broken by hash) pops first.
type readyHeap []*Commit

func (h readyHeap) Len() int { return len(h) }
func (h readyHeap) Less(i, j int) bool {
	if h[i].CommitTime != h[j].CommitTime {
		return h[i].CommitTime > h[j].CommitTime
	}
	return commitgraph.CompareHash(h[i].ID, h[j].ID) > 0
}
func (h readyHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *readyHeap) Push(x interface{}) { *h = append(*h, x.(*Commit)) }
func (h *readyHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// topoSort orders visited so no commit is emitted before every visited
// commit that names it as a parent, via Kahn's algorithm over the
// in-set parent relation, prioritizing by commit time among ready nodes.
func topoSort(visited map[CommitID]*Commit, tips []CommitID) []*Commit {
	indegree := make(map[CommitID]int, len(visited))
	for id := range visited {
		indegree[id] = 0
	}
	for _, c := range visited {
		for _, p := range c.ParentIDs {
			if _, ok := visited[p]; ok {
				indegree[p]++
			}
		}
	}

	h := &readyHeap{}
	heap.Init(h)
	pushed := make(map[CommitID]bool, len(visited))
	for _, t := range dedupe(tips) {
		if c, ok := visited[t]; ok && indegree[t] == 0 && !pushed[t] {
			heap.Push(h, c)
			pushed[t] = true
		}
	}

	result := make([]*Commit, 0, len(visited))
	for h.Len() > 0 {
		c := heap.Pop(h).(*Commit)
		result = append(result, c)
		for _, p := range c.ParentIDs {
			if _, ok := visited[p]; !ok {
				continue
			}
			indegree[p]--
			if indegree[p] == 0 && !pushed[p] {
				heap.Push(h, visited[p])
				pushed[p] = true
			}
		}
	}
	return result
}
