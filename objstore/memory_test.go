package objstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keyu98/commitgraph/commitgraph"
)

func TestMemoryReader_CommitProducesDistinctHashesForIdenticalInputs(t *testing.T) {
	m := NewMemoryReader()
	a := m.Commit(EmptyTree(), nil, 1000)
	b := m.Commit(EmptyTree(), nil, 1000)
	assert.NotEqual(t, a, b, "structurally identical commits must still get distinct hashes via the serial nonce")
}

func TestMemoryReader_ReadCommitRoundTrip(t *testing.T) {
	m := NewMemoryReader()
	parent := m.Commit(EmptyTree(), nil, 1000)
	child := m.Commit(EmptyTree(), []commitgraph.CommitHash{parent}, 1001)

	rc, err := m.ReadCommit(context.Background(), child)
	require.NoError(t, err)
	assert.Equal(t, EmptyTree(), rc.Tree)
	assert.Equal(t, []commitgraph.CommitHash{parent}, rc.Parents)
	assert.Equal(t, int64(1001), rc.CommitTime)
}

func TestMemoryReader_ReadCommitMissing(t *testing.T) {
	m := NewMemoryReader()
	var missing commitgraph.CommitHash
	missing[0] = 0xFF
	_, err := m.ReadCommit(context.Background(), missing)
	assert.Error(t, err)
}

func TestMemoryReader_ReadMessage(t *testing.T) {
	m := NewMemoryReader()
	c := m.Commit(EmptyTree(), nil, 1000)
	m.SetMessage(c, "initial commit")

	msg, err := m.ReadMessage(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, "initial commit", msg)
}
