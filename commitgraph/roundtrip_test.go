package commitgraph_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keyu98/commitgraph/commitgraph"
	"github.com/keyu98/commitgraph/objstore"
)

func writeAndOpen(t *testing.T, store *objstore.MemoryReader, tips []commitgraph.CommitHash) *commitgraph.Reader {
	t.Helper()
	w := commitgraph.NewWriter(store)

	var buf bytes.Buffer
	_, err := w.Write(context.Background(), tips, &buf)
	require.NoError(t, err)
	require.Greater(t, buf.Len(), 0)

	r, err := commitgraph.Open(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r
}

// S1: single commit, no parents.
func TestScenario_SingleCommit(t *testing.T) {
	store := objstore.NewMemoryReader()
	root := store.Commit(objstore.EmptyTree(), nil, 1000)

	r := writeAndOpen(t, store, []commitgraph.CommitHash{root})
	require.Equal(t, 1, r.CommitCount())

	pos, ok := r.PositionOf(root)
	require.True(t, ok)
	data, ok := r.DataAt(pos)
	require.True(t, ok)
	assert.Empty(t, data.Parents)
	assert.Equal(t, commitgraph.Generation(1), data.Generation)
}

// S2: 40-parent wide octopus merge (well past the 3-parent spill boundary).
func TestScenario_WideOctopusMerge(t *testing.T) {
	store := objstore.NewMemoryReader()
	parents := make([]commitgraph.CommitHash, 40)
	for i := range parents {
		parents[i] = store.Commit(objstore.EmptyTree(), nil, int64(1000+i))
	}
	merge := store.Commit(objstore.EmptyTree(), parents, 2000)

	r := writeAndOpen(t, store, []commitgraph.CommitHash{merge})
	require.Equal(t, 41, r.CommitCount())

	pos, ok := r.PositionOf(merge)
	require.True(t, ok)
	data, ok := r.DataAt(pos)
	require.True(t, ok)
	require.Len(t, data.Parents, 40)

	got := make(map[commitgraph.CommitHash]bool, 40)
	for _, p := range data.Parents {
		h, ok := r.HashAt(p)
		require.True(t, ok)
		got[h] = true
	}
	for _, p := range parents {
		assert.True(t, got[p], "parent %s missing from decoded octopus list", p)
	}
	assert.Equal(t, commitgraph.Generation(2), data.Generation)
}

// S3: a linear chain of 20 commits; generation increases by exactly 1 at
// each step and the chain doesn't trip any recursion limit.
func TestScenario_LinearChain(t *testing.T) {
	store := objstore.NewMemoryReader()
	var tip commitgraph.CommitHash
	var chain []commitgraph.CommitHash
	for i := 0; i < 20; i++ {
		var parents []commitgraph.CommitHash
		if i > 0 {
			parents = []commitgraph.CommitHash{tip}
		}
		tip = store.Commit(objstore.EmptyTree(), parents, int64(1000+i))
		chain = append(chain, tip)
	}

	r := writeAndOpen(t, store, []commitgraph.CommitHash{tip})
	require.Equal(t, 20, r.CommitCount())

	for i, h := range chain {
		pos, ok := r.PositionOf(h)
		require.True(t, ok)
		data, ok := r.DataAt(pos)
		require.True(t, ok)
		assert.Equal(t, commitgraph.Generation(i+1), data.Generation, "commit %d", i)
	}
}

// S4: a merge-heavy DAG; every commit's generation must equal the max of
// its parents' generations, plus one.
func TestScenario_MergeHeavyDAG(t *testing.T) {
	store := objstore.NewMemoryReader()
	a := store.Commit(objstore.EmptyTree(), nil, 1000)
	b := store.Commit(objstore.EmptyTree(), []commitgraph.CommitHash{a}, 1001)
	c := store.Commit(objstore.EmptyTree(), []commitgraph.CommitHash{a}, 1002)
	d := store.Commit(objstore.EmptyTree(), []commitgraph.CommitHash{c}, 1003)
	merge1 := store.Commit(objstore.EmptyTree(), []commitgraph.CommitHash{b, d}, 1004)
	merge2 := store.Commit(objstore.EmptyTree(), []commitgraph.CommitHash{merge1, a}, 1005)

	r := writeAndOpen(t, store, []commitgraph.CommitHash{merge2})

	genOf := func(h commitgraph.CommitHash) commitgraph.Generation {
		pos, ok := r.PositionOf(h)
		require.True(t, ok)
		data, ok := r.DataAt(pos)
		require.True(t, ok)
		return data.Generation
	}

	assert.Equal(t, commitgraph.Generation(1), genOf(a))
	assert.Equal(t, commitgraph.Generation(2), genOf(b))
	assert.Equal(t, commitgraph.Generation(2), genOf(c))
	assert.Equal(t, commitgraph.Generation(3), genOf(d))
	assert.Equal(t, commitgraph.Generation(4), genOf(merge1))
	assert.Equal(t, commitgraph.Generation(5), genOf(merge2))
}

// S7: a reader opened against a graph file observes a stable snapshot even
// after a second writer run atomically replaces the file at the same path.
func TestScenario_ReopenAfterRegeneration(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "commit-graph")

	store := objstore.NewMemoryReader()
	first := store.Commit(objstore.EmptyTree(), nil, 1000)

	w := commitgraph.NewWriter(store)
	_, err := w.WriteFile(context.Background(), []commitgraph.CommitHash{first}, path)
	require.NoError(t, err)

	r, err := commitgraph.OpenFile(path)
	require.NoError(t, err)
	defer r.Close()
	require.Equal(t, 1, r.CommitCount())

	second := store.Commit(objstore.EmptyTree(), []commitgraph.CommitHash{first}, 1001)
	_, err = w.WriteFile(context.Background(), []commitgraph.CommitHash{second}, path)
	require.NoError(t, err)

	// r still holds the original file's descriptor (rename doesn't affect
	// an already-open fd on a POSIX filesystem): its view is unchanged.
	assert.Equal(t, 1, r.CommitCount())

	r2, err := commitgraph.OpenFile(path)
	require.NoError(t, err)
	defer r2.Close()
	assert.Equal(t, 2, r2.CommitCount())
}

// S8: the octopus boundary is exact. A 2-parent commit never touches the
// EDGE chunk; a 3-parent commit always does.
func TestScenario_OctopusBoundaryIsExact(t *testing.T) {
	store := objstore.NewMemoryReader()
	a := store.Commit(objstore.EmptyTree(), nil, 1000)
	b := store.Commit(objstore.EmptyTree(), nil, 1001)
	c := store.Commit(objstore.EmptyTree(), nil, 1002)

	twoParents := store.Commit(objstore.EmptyTree(), []commitgraph.CommitHash{a, b}, 1003)
	threeParents := store.Commit(objstore.EmptyTree(), []commitgraph.CommitHash{a, b, c}, 1004)

	rTwo := writeAndOpen(t, store, []commitgraph.CommitHash{twoParents})
	assert.False(t, rTwo.Stats().HasExtraEdge)

	store2 := objstore.NewMemoryReader()
	store2.Put(a, mustRawCommit(store, a))
	store2.Put(b, mustRawCommit(store, b))
	store2.Put(c, mustRawCommit(store, c))
	store2.Put(threeParents, mustRawCommit(store, threeParents))

	rThree := writeAndOpen(t, store2, []commitgraph.CommitHash{threeParents})
	assert.True(t, rThree.Stats().HasExtraEdge)

	pos, ok := rThree.PositionOf(threeParents)
	require.True(t, ok)
	data, ok := rThree.DataAt(pos)
	require.True(t, ok)
	assert.Len(t, data.Parents, 3)
}

func mustRawCommit(store *objstore.MemoryReader, h commitgraph.CommitHash) commitgraph.RawCommit {
	rc, err := store.ReadCommit(context.Background(), h)
	if err != nil {
		panic(err)
	}
	return rc
}

func TestWriter_MissingAncestorFailsTheWholeWrite(t *testing.T) {
	store := objstore.NewMemoryReader()
	orphan := store.Commit(objstore.EmptyTree(), nil, 1000)
	missing := commitgraph.CommitHash{0xAA}
	store.Put(orphan, commitgraph.RawCommit{Tree: objstore.EmptyTree(), Parents: []commitgraph.CommitHash{missing}, CommitTime: 1001})

	w := commitgraph.NewWriter(store)
	var buf bytes.Buffer
	_, err := w.Write(context.Background(), []commitgraph.CommitHash{orphan}, &buf)
	assert.True(t, commitgraph.IsErrMissingObject(err))
}

func TestRemoveFile_ToleratesAlreadyAbsent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "does-not-exist")
	assert.NoError(t, commitgraph.RemoveFile(path))
}

func TestRemoveFile_RemovesExistingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "commit-graph")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	require.NoError(t, commitgraph.RemoveFile(path))
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}
