package commitgraph

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

// parentLast marks the final entry of an extra-edge parent list (§4.4).
const parentLast uint32 = 0x80000000

// extraEdgeReader resolves octopus-merge parent lists (3rd parent
// onward) from the EDGE chunk.
type extraEdgeReader struct {
	r      io.ReaderAt
	offset int64 // start of the EDGE chunk
	size   int64 // byte length of the EDGE chunk
}

// readList reads positions starting at the given 4-byte-aligned offset
// (already stripped of its high bit by the caller) until an entry with
// its high bit set is found, per §4.4.
func (e *extraEdgeReader) readList(wordOffset uint32) ([]Position, error) {
	var parents []Position
	pos := e.offset + int64(wordOffset)*4
	var buf [4]byte
	for {
		if pos+4 > e.offset+e.size {
			return nil, ErrMalformed{Reason: "extra-edge list runs past end of EDGE chunk"}
		}
		if _, err := e.r.ReadAt(buf[:], pos); err != nil {
			return nil, errors.Wrap(err, "commitgraph: reading EDGE entry")
		}
		v := binary.BigEndian.Uint32(buf[:])
		parents = append(parents, Position(v&parentOctopusMask))
		if v&parentLast == parentLast {
			return parents, nil
		}
		pos += 4
	}
}

// extraEdgeBuilder accumulates the EDGE chunk during a write (§4.6 step 4).
// Each call to append returns the word offset to store in a record's
// parent2 slot.
type extraEdgeBuilder struct {
	words []uint32
}

// append writes overflow (parents[1:] of an octopus merge) and returns the
// word offset of its first entry.
func (b *extraEdgeBuilder) append(overflow []Position) uint32 {
	offset := uint32(len(b.words))
	for i, p := range overflow {
		v := uint32(p)
		if i == len(overflow)-1 {
			v |= parentLast
		}
		b.words = append(b.words, v)
	}
	return offset
}

func (b *extraEdgeBuilder) empty() bool { return len(b.words) == 0 }

func (b *extraEdgeBuilder) writeTo(w io.Writer) error {
	buf := make([]byte, len(b.words)*4)
	for i, v := range b.words {
		binary.BigEndian.PutUint32(buf[i*4:i*4+4], v)
	}
	_, err := w.Write(buf)
	return err
}
