package commitgraph

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

// Parent-slot sentinels (§4.3). parentNone marks an empty slot; the high
// bit of parent2 distinguishes a plain second parent from an octopus
// spill pointer.
const (
	parentNone        uint32 = 0x70000000
	parentOctopusUsed uint32 = 0x80000000
	parentOctopusMask uint32 = 0x7fffffff
)

// commitTimeBits is the width of the commit_time field packed into the
// low bits of the CDAT record's final 8 bytes (§4.3, §9 open question:
// this module truncates to 34 bits on encode and documents it rather than
// widening the on-disk record).
const commitTimeBits = 34

const commitTimeMask = 1<<commitTimeBits - 1

// CommitRecord is the decoded form of one 36-byte CDAT entry plus any
// extra-edge parents it spilled into EDGE (§3, §4.3, §4.4).
type CommitRecord struct {
	Tree       CommitHash
	Parents    []Position
	CommitTime int64
	Generation Generation
}

// decodeRecordFields splits the raw 36-byte record into its tree hash and
// two raw parent slots plus the packed generation/time word, without yet
// resolving the extra-edge chunk (the caller does that, since it needs
// access to the EDGE chunk's byte range).
func decodeRecordFields(buf []byte) (tree CommitHash, parent1, parent2 uint32, genAndTime uint64) {
	copy(tree[:], buf[0:20])
	parent1 = binary.BigEndian.Uint32(buf[20:24])
	parent2 = binary.BigEndian.Uint32(buf[24:28])
	genAndTime = binary.BigEndian.Uint64(buf[28:36])
	return
}

func splitGenerationAndTime(genAndTime uint64) (Generation, int64) {
	return Generation(genAndTime >> commitTimeBits), int64(genAndTime & commitTimeMask)
}

func packGenerationAndTime(gen Generation, commitTime int64) uint64 {
	return uint64(gen)<<commitTimeBits | (uint64(commitTime) & commitTimeMask)
}

// isOctopusSlot reports whether parent2 points into the extra-edge chunk
// rather than naming a second parent directly (§4.3).
func isOctopusSlot(parent2 uint32) bool {
	return parent2&parentOctopusUsed == parentOctopusUsed
}

// directParents decodes the non-octopus case: zero, one, or two parents
// named directly by the two slots.
func directParents(parent1, parent2 uint32) []Position {
	switch {
	case parent2 != parentNone:
		return []Position{Position(parent1 & parentOctopusMask), Position(parent2 & parentOctopusMask)}
	case parent1 != parentNone:
		return []Position{Position(parent1 & parentOctopusMask)}
	default:
		return nil
	}
}

// encodedRecord is the on-disk 36-byte CDAT entry for one commit.
type encodedRecord struct {
	bytes [commitDataSize]byte
}

// encodeRecordFields builds a CDAT entry for a commit whose parents have
// already been resolved to Positions (§4.6 step 4). When there are three
// or more parents, the caller must already have appended parents[1:] to
// the EDGE chunk (via extraEdgeBuilder.append) and pass the word offset
// that call returned as edgeOffset.
func encodeRecordFields(tree CommitHash, parents []Position, gen Generation, commitTime int64, edgeOffset uint32) encodedRecord {
	var rec encodedRecord
	copy(rec.bytes[0:20], tree[:])

	var parent1, parent2 uint32
	switch len(parents) {
	case 0:
		parent1, parent2 = parentNone, parentNone
	case 1:
		parent1, parent2 = uint32(parents[0]), parentNone
	case 2:
		parent1, parent2 = uint32(parents[0]), uint32(parents[1])
	default:
		parent1 = uint32(parents[0])
		parent2 = parentOctopusUsed | (edgeOffset & parentOctopusMask)
	}

	binary.BigEndian.PutUint32(rec.bytes[20:24], parent1)
	binary.BigEndian.PutUint32(rec.bytes[24:28], parent2)
	binary.BigEndian.PutUint64(rec.bytes[28:36], packGenerationAndTime(gen, commitTime))
	return rec
}

// readRecordAt reads and fully decodes the commit at position pos,
// resolving any extra-edge spill via edge (nil if the file has no EDGE
// chunk, which is only valid when no commit needed it).
func readRecordAt(r io.ReaderAt, commitDataOffset int64, pos Position, edge *extraEdgeReader) (CommitRecord, error) {
	var buf [commitDataSize]byte
	if _, err := r.ReadAt(buf[:], commitDataOffset+int64(pos)*commitDataSize); err != nil {
		return CommitRecord{}, errors.Wrap(err, "commitgraph: reading CDAT entry")
	}
	tree, parent1, parent2, genAndTime := decodeRecordFields(buf[:])

	var parents []Position
	if isOctopusSlot(parent2) {
		if edge == nil {
			return CommitRecord{}, ErrMalformed{Reason: "octopus parent slot with no EDGE chunk"}
		}
		rest, err := edge.readList(parent2 & parentOctopusMask)
		if err != nil {
			return CommitRecord{}, err
		}
		parents = append([]Position{Position(parent1 & parentOctopusMask)}, rest...)
	} else {
		parents = directParents(parent1, parent2)
	}

	gen, commitTime := splitGenerationAndTime(genAndTime)
	return CommitRecord{Tree: tree, Parents: parents, CommitTime: commitTime, Generation: gen}, nil
}
