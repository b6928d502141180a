package commitgraph

import (
	"bytes"
	"crypto/sha1"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testHash(seed byte) CommitHash {
	return CommitHash(sha1.Sum([]byte{seed}))
}

func TestPackGenerationAndTime_RoundTrip(t *testing.T) {
	gen, ct := splitGenerationAndTime(packGenerationAndTime(42, 1_700_000_000))
	assert.Equal(t, Generation(42), gen)
	assert.Equal(t, int64(1_700_000_000), ct)
}

func TestPackGenerationAndTime_TruncatesCommitTimeTo34Bits(t *testing.T) {
	// 2^34, the smallest value that doesn't fit: it must wrap rather than
	// bleed into the generation field (§9 open question).
	overflowing := int64(1) << commitTimeBits
	_, ct := splitGenerationAndTime(packGenerationAndTime(1, overflowing))
	assert.Equal(t, int64(0), ct)
}

func TestEncodeRecordFields_NoParents(t *testing.T) {
	tree := testHash(1)
	rec := encodeRecordFields(tree, nil, 3, 100, 0)

	decodedTree, p1, p2, genAndTime := decodeRecordFields(rec.bytes[:])
	assert.Equal(t, tree, decodedTree)
	assert.Equal(t, parentNone, p1)
	assert.Equal(t, parentNone, p2)
	gen, ct := splitGenerationAndTime(genAndTime)
	assert.Equal(t, Generation(3), gen)
	assert.Equal(t, int64(100), ct)
	assert.Nil(t, directParents(p1, p2))
}

func TestEncodeRecordFields_OneParent(t *testing.T) {
	rec := encodeRecordFields(testHash(1), []Position{5}, 1, 0, 0)
	_, p1, p2, _ := decodeRecordFields(rec.bytes[:])
	assert.False(t, isOctopusSlot(p2))
	assert.Equal(t, []Position{5}, directParents(p1, p2))
}

func TestEncodeRecordFields_TwoParents(t *testing.T) {
	rec := encodeRecordFields(testHash(1), []Position{5, 9}, 1, 0, 0)
	_, p1, p2, _ := decodeRecordFields(rec.bytes[:])
	assert.False(t, isOctopusSlot(p2))
	assert.Equal(t, []Position{5, 9}, directParents(p1, p2))
}

func TestEncodeRecordFields_Octopus(t *testing.T) {
	edge := &extraEdgeBuilder{}
	offset := edge.append([]Position{20, 21, 22})

	rec := encodeRecordFields(testHash(1), []Position{7, 20, 21, 22}, 2, 0, offset)
	_, p1, p2, _ := decodeRecordFields(rec.bytes[:])
	require.True(t, isOctopusSlot(p2))
	assert.Equal(t, Position(7), Position(p1&parentOctopusMask))

	var buf bytes.Buffer
	require.NoError(t, edge.writeTo(&buf))
	reader := &extraEdgeReader{r: bytes.NewReader(buf.Bytes()), offset: 0, size: int64(buf.Len())}
	rest, err := reader.readList(p2 & parentOctopusMask)
	require.NoError(t, err)
	assert.Equal(t, []Position{20, 21, 22}, rest)
}

func TestReadRecordAt_RoundTripWithoutEdge(t *testing.T) {
	tree := testHash(2)
	records := []encodedRecord{
		encodeRecordFields(tree, []Position{0}, 2, 12345, 0),
	}
	var buf bytes.Buffer
	for _, r := range records {
		buf.Write(r.bytes[:])
	}

	rec, err := readRecordAt(bytes.NewReader(buf.Bytes()), 0, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, tree, rec.Tree)
	assert.Equal(t, []Position{0}, rec.Parents)
	assert.Equal(t, int64(12345), rec.CommitTime)
	assert.Equal(t, Generation(2), rec.Generation)
}

func TestReadRecordAt_OctopusWithoutEdgeChunkIsMalformed(t *testing.T) {
	rec := encodeRecordFields(testHash(3), []Position{1, 2, 3}, 1, 0, 0)
	_, err := readRecordAt(bytes.NewReader(rec.bytes[:]), 0, 0, nil)
	assert.True(t, IsErrMalformed(err))
}
