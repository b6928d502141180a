package commitgraph

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtraEdgeBuilder_MultipleListsShareOneChunk(t *testing.T) {
	b := &extraEdgeBuilder{}
	offsetA := b.append([]Position{10, 11})
	offsetB := b.append([]Position{20, 21, 22})

	assert.Equal(t, uint32(0), offsetA)
	assert.Equal(t, uint32(2), offsetB)
	assert.False(t, b.empty())

	var buf bytes.Buffer
	require.NoError(t, b.writeTo(&buf))

	reader := &extraEdgeReader{r: bytes.NewReader(buf.Bytes()), offset: 0, size: int64(buf.Len())}

	listA, err := reader.readList(offsetA)
	require.NoError(t, err)
	assert.Equal(t, []Position{10, 11}, listA)

	listB, err := reader.readList(offsetB)
	require.NoError(t, err)
	assert.Equal(t, []Position{20, 21, 22}, listB)
}

func TestExtraEdgeBuilder_Empty(t *testing.T) {
	b := &extraEdgeBuilder{}
	assert.True(t, b.empty())
}

func TestExtraEdgeReader_TruncatedChunkIsMalformed(t *testing.T) {
	b := &extraEdgeBuilder{}
	b.append([]Position{1, 2, 3})

	var buf bytes.Buffer
	require.NoError(t, b.writeTo(&buf))

	// Lie about the chunk's size, as if the file were truncated before the
	// parentLast-tagged final word.
	reader := &extraEdgeReader{r: bytes.NewReader(buf.Bytes()), offset: 0, size: int64(buf.Len()) - 4}
	_, err := reader.readList(0)
	assert.True(t, IsErrMalformed(err))
}
