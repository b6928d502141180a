package commitgraph

import (
	"crypto/sha1"
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

// fileSignature is the 4-byte magic at offset 0 (§4.1, §6).
var fileSignature = [4]byte{'C', 'G', 'P', 'H'}

const (
	fileVersion  = 1
	hashKindSHA1 = 1

	headerSize     = 8  // signature + version + hash-kind + chunk-kind-count + present-chunk count
	dirEntrySize   = 12 // 4-byte id + 8-byte offset
	trailerSize    = HashSize
	oidFanoutSize  = 256 * 4
	commitDataSize = 36
)

// chunkID is one of the big-endian ASCII 4-byte chunk identifiers (§4.1).
type chunkID uint32

func chunkIDFromBytes(b []byte) chunkID {
	return chunkID(binary.BigEndian.Uint32(b))
}

func (c chunkID) bytes() [4]byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(c))
	return b
}

func mustChunkID(s string) chunkID {
	if len(s) != 4 {
		panic("commitgraph: chunk id must be 4 bytes")
	}
	return chunkIDFromBytes([]byte(s))
}

var (
	chunkOIDFanout  = mustChunkID("OIDF")
	chunkOIDLookup  = mustChunkID("OIDL")
	chunkCommitData = mustChunkID("CDAT")
	chunkExtraEdge  = mustChunkID("EDGE")

	// Recognized-but-unpopulated chunks: this module neither reads nor
	// writes their payload, but a reader must not reject a file that
	// carries them (SPEC_FULL.md §4.1) since peer implementations emit
	// them for features out of this module's scope (changed-path Bloom
	// filters, corrected commit-date generation numbers).
	chunkGenerationDataV2 = mustChunkID("GDA2")
	chunkBloomIndex       = mustChunkID("BIDX")
	chunkBloomData        = mustChunkID("BDAT")

	chunkZero = chunkID(0)
)

func isRecognizedOptionalChunk(id chunkID) bool {
	switch id {
	case chunkGenerationDataV2, chunkBloomIndex, chunkBloomData:
		return true
	default:
		return false
	}
}

// dirEntry is one (id, offset) pair from the chunk directory.
type dirEntry struct {
	id     chunkID
	offset int64
}

// header is the parsed fixed header plus directory (§4.1).
type header struct {
	version     byte
	hashKind    byte
	chunkCount  byte // present-chunk count C
	directory   []dirEntry
	chunkOffset map[chunkID]int64 // id -> start offset
	chunkEnd    map[chunkID]int64 // id -> end offset (next directory entry's offset)
}

// readHeader validates the signature, version and hash-kind, and reads the
// (C+1)-entry directory, checking that it is monotonically non-decreasing
// (§4.1 "Failure": directory not monotonic).
func readHeader(r io.ReaderAt) (*header, error) {
	var sig [4]byte
	if _, err := r.ReadAt(sig[:], 0); err != nil {
		return nil, errors.Wrap(err, "commitgraph: reading signature")
	}
	if sig != fileSignature {
		return nil, ErrMalformed{Reason: "bad signature"}
	}

	var fixed [4]byte
	if _, err := r.ReadAt(fixed[:], 4); err != nil {
		return nil, errors.Wrap(err, "commitgraph: reading header")
	}
	version, hashKind, _, chunkCount := fixed[0], fixed[1], fixed[2], fixed[3]
	if version != fileVersion {
		return nil, ErrUnsupportedVersion
	}
	if hashKind != hashKindSHA1 {
		return nil, ErrUnsupportedHash
	}

	n := int(chunkCount) + 1
	buf := make([]byte, n*dirEntrySize)
	if _, err := r.ReadAt(buf, headerSize); err != nil {
		return nil, errors.Wrap(err, "commitgraph: reading chunk directory")
	}

	directory := make([]dirEntry, n)
	for i := 0; i < n; i++ {
		off := i * dirEntrySize
		id := chunkIDFromBytes(buf[off : off+4])
		offset := int64(binary.BigEndian.Uint64(buf[off+4 : off+12]))
		directory[i] = dirEntry{id: id, offset: offset}
		if i > 0 && offset < directory[i-1].offset {
			return nil, ErrMalformed{Reason: "chunk directory offsets are not monotonic"}
		}
	}
	if directory[n-1].id != chunkZero {
		return nil, ErrMalformed{Reason: "final chunk directory entry must have id zero"}
	}

	h := &header{
		version:     version,
		hashKind:    hashKind,
		chunkCount:  chunkCount,
		directory:   directory,
		chunkOffset: make(map[chunkID]int64, n-1),
		chunkEnd:    make(map[chunkID]int64, n-1),
	}
	for i := 0; i < n-1; i++ {
		h.chunkOffset[directory[i].id] = directory[i].offset
		h.chunkEnd[directory[i].id] = directory[i+1].offset
	}
	return h, nil
}

// trailerOffset returns the byte offset of the trailing checksum, which is
// the offset carried by the final (id-zero) directory entry (§4.1).
func (h *header) trailerOffset() int64 {
	return h.directory[len(h.directory)-1].offset
}

// chunkSize returns the byte length of the named chunk.
func (h *header) chunkSize(id chunkID) int64 {
	return h.chunkEnd[id] - h.chunkOffset[id]
}

func (h *header) hasChunk(id chunkID) bool {
	_, ok := h.chunkOffset[id]
	return ok
}

// verifyChecksum recomputes the SHA-1 of every byte preceding the trailer
// and compares it against the stored trailer (§7 "ChecksumMismatch").
func verifyChecksum(r io.ReaderAt, trailerOffset int64) error {
	sum, err := checksumUpTo(r, trailerOffset)
	if err != nil {
		return err
	}
	got := make([]byte, trailerSize)
	if _, err := r.ReadAt(got, trailerOffset); err != nil {
		return errors.Wrap(err, "commitgraph: reading trailing checksum")
	}
	for i := range sum {
		if sum[i] != got[i] {
			return ErrChecksumMismatch
		}
	}
	return nil
}

func checksumUpTo(r io.ReaderAt, n int64) ([]byte, error) {
	h := sha1.New()
	sr := io.NewSectionReader(r, 0, n)
	if _, err := io.Copy(h, sr); err != nil {
		return nil, errors.Wrap(err, "commitgraph: computing checksum")
	}
	return h.Sum(nil), nil
}
