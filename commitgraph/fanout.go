package commitgraph

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

// fanoutTable is the 256-entry cumulative distribution of commits by first
// hash byte (§4.2, §3 invariant 2): fanout[i] is the number of commits
// whose first hash byte is <= i.
type fanoutTable [256]uint32

func readFanout(r io.ReaderAt, offset int64) (fanoutTable, error) {
	var buf [oidFanoutSize]byte
	if _, err := r.ReadAt(buf[:], offset); err != nil {
		return fanoutTable{}, errors.Wrap(err, "commitgraph: reading fanout")
	}
	var f fanoutTable
	for i := range f {
		f[i] = binary.BigEndian.Uint32(buf[i*4 : i*4+4])
		if i > 0 && f[i] < f[i-1] {
			return fanoutTable{}, ErrMalformed{Reason: "fanout table is not monotonic"}
		}
	}
	return f, nil
}

func writeFanout(w io.Writer, f fanoutTable) error {
	var buf [oidFanoutSize]byte
	for i, v := range f {
		binary.BigEndian.PutUint32(buf[i*4:i*4+4], v)
	}
	_, err := w.Write(buf[:])
	return err
}

// buildFanout computes the fanout table for a set of hashes that are
// already sorted ascending (the writer's Position-assignment order, §4.6
// step 2).
func buildFanout(sorted []CommitHash) fanoutTable {
	var f fanoutTable
	var b byte
	var count uint32
	i := 0
	for {
		for i < len(sorted) && sorted[i][0] == b {
			i++
			count++
		}
		f[b] = count
		if b == 0xff {
			break
		}
		b++
	}
	return f
}

// count is the total number of commits described by the file (fanout[255]).
func (f fanoutTable) count() int { return int(f[0xff]) }

// rangeFor narrows the lookup-table search window for a given first hash
// byte, per §4.2.
func (f fanoutTable) rangeFor(firstByte byte) (lo, hi int) {
	if firstByte == 0 {
		lo = 0
	} else {
		lo = int(f[firstByte-1])
	}
	hi = int(f[firstByte])
	return lo, hi
}

// positionOf performs the binary search described in §4.2 over the OIDL
// chunk, narrowed by the fanout table. It returns NoPosition, false if the
// hash is absent (never an error: lookup failure is not a read error, §7
// "Query").
func positionOf(r io.ReaderAt, lookupOffset int64, f fanoutTable, hash CommitHash) (Position, bool, error) {
	lo, hi := f.rangeFor(hash[0])
	var probe CommitHash
	for lo < hi {
		mid := (lo + hi) / 2
		if _, err := r.ReadAt(probe[:], lookupOffset+int64(mid)*HashSize); err != nil {
			return NoPosition, false, errors.Wrap(err, "commitgraph: reading OIDL entry")
		}
		switch bytes.Compare(hash[:], probe[:]) {
		case 0:
			return Position(mid), true, nil
		case -1:
			hi = mid
		default:
			lo = mid + 1
		}
	}
	return NoPosition, false, nil
}

// hashAt performs the O(1) position->hash lookup of §4.2.
func hashAt(r io.ReaderAt, lookupOffset int64, count int, pos Position) (CommitHash, bool, error) {
	if pos < 0 || int(pos) >= count {
		return CommitHash{}, false, nil
	}
	var h CommitHash
	if _, err := r.ReadAt(h[:], lookupOffset+int64(pos)*HashSize); err != nil {
		return CommitHash{}, false, errors.Wrap(err, "commitgraph: reading OIDL entry")
	}
	return h, true, nil
}

func writeLookup(w io.Writer, sorted []CommitHash) error {
	for _, h := range sorted {
		if _, err := w.Write(h[:]); err != nil {
			return err
		}
	}
	return nil
}
