package objstore

import (
	"context"
	"crypto/sha1"
	"encoding/binary"
	"sync"

	"github.com/keyu98/commitgraph/commitgraph"
)

// MemoryReader is an in-memory commitgraph.ObjectReader, used by this
// module's own tests and by callers prototyping against a synthetic
// history rather than a real repository.
type MemoryReader struct {
	mu       sync.RWMutex
	commits  map[commitgraph.CommitHash]commitgraph.RawCommit
	messages map[commitgraph.CommitHash]string
	serial   uint64
}

// NewMemoryReader returns an empty MemoryReader.
func NewMemoryReader() *MemoryReader {
	return &MemoryReader{
		commits:  make(map[commitgraph.CommitHash]commitgraph.RawCommit),
		messages: make(map[commitgraph.CommitHash]string),
	}
}

// ReadMessage implements walk.ObjectReader's message-fetching extension.
func (m *MemoryReader) ReadMessage(_ context.Context, hash commitgraph.CommitHash) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.commits[hash]; !ok {
		return "", commitgraph.ErrObjectMissing
	}
	return m.messages[hash], nil
}

// SetMessage attaches a message to an already-registered commit, for tests
// exercising the body-filter fallback (§8 S6).
func (m *MemoryReader) SetMessage(hash commitgraph.CommitHash, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages[hash] = message
}

// ReadCommit implements commitgraph.ObjectReader.
func (m *MemoryReader) ReadCommit(_ context.Context, hash commitgraph.CommitHash) (commitgraph.RawCommit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rc, ok := m.commits[hash]
	if !ok {
		return commitgraph.RawCommit{}, commitgraph.ErrObjectMissing
	}
	return rc, nil
}

// Put registers a raw commit under an explicit hash, for tests that need
// control over the exact hash (e.g. to exercise fanout boundaries).
func (m *MemoryReader) Put(hash commitgraph.CommitHash, rc commitgraph.RawCommit) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commits[hash] = rc
}

// Commit synthesizes a deterministic hash for a commit with the given
// parents and commit time and registers it, returning the hash — the Go
// analog of the JGit test helper TestRepository.commit(parents...) used
// throughout CommitGraphTest.java. A monotonic serial is folded into the
// hash so that structurally identical commits (same tree, same parents,
// same second) still get distinct identities, the way a real commit's
// hash is disambiguated by its message and author/committer identity.
func (m *MemoryReader) Commit(tree commitgraph.CommitHash, parents []commitgraph.CommitHash, commitTime int64) commitgraph.CommitHash {
	m.mu.Lock()
	serial := m.serial
	m.serial++
	m.mu.Unlock()

	h := sha1.New()
	h.Write(tree[:])
	for _, p := range parents {
		h.Write(p[:])
	}
	var tbuf [16]byte
	binary.BigEndian.PutUint64(tbuf[0:8], uint64(commitTime))
	binary.BigEndian.PutUint64(tbuf[8:16], serial)
	h.Write(tbuf[:])

	var hash commitgraph.CommitHash
	copy(hash[:], h.Sum(nil))

	m.Put(hash, commitgraph.RawCommit{
		Tree:       tree,
		Parents:    append([]commitgraph.CommitHash(nil), parents...),
		CommitTime: commitTime,
	})
	return hash
}

// emptyTree is a stand-in tree hash used by tests that don't care about
// tree contents, matching the convention that most commit-graph behavior
// is independent of what a commit's tree actually contains.
var emptyTree = commitgraph.CommitHash(sha1.Sum([]byte("tree")))

// EmptyTree returns the stand-in tree hash used by Commit's callers by
// default.
func EmptyTree() commitgraph.CommitHash { return emptyTree }
