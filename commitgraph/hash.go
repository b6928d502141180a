package commitgraph

import (
	"bytes"

	"github.com/go-git/go-git/v5/plumbing"
)

// HashSize is the on-disk width of a CommitHash, corresponding to
// hash-kind byte 1 (SHA-1) in the file header (§4.1).
const HashSize = 20

// CommitHash identifies a commit object. It is the same 20-byte value the
// object database uses as a key, reused here rather than inventing a
// parallel identifier type, since this module already depends on go-git
// for object-database access (see objstore.GoGitReader).
type CommitHash = plumbing.Hash

// Position is the index of a commit within one GraphFile. It is only
// meaningful relative to the Reader (or in-progress Writer) that produced
// it; callers must never persist a Position across a regeneration or
// compare Positions from two different files.
type Position int32

// NoPosition is returned by queries that find nothing.
const NoPosition Position = -1

// compareHash orders two hashes lexicographically, matching the ascending
// order the OIDL chunk is required to hold (invariant 1).
func compareHash(a, b CommitHash) int {
	return bytes.Compare(a[:], b[:])
}

// CompareHash is the exported form of compareHash, for callers outside
// this package (e.g. walk's traversal sort) that need the same ascending
// order without reimplementing it.
func CompareHash(a, b CommitHash) int {
	return compareHash(a, b)
}

// Generation is the longest-path distance from a root commit. The zero
// value, GenerationUnknown, is the sentinel defined in §3: it marks a
// commit whose parent set is not fully known within the file.
type Generation uint32

// GenerationUnknown is the sentinel for "not computed" (§3, §9).
const GenerationUnknown Generation = 0

// MaxGeneration is the largest representable generation (30 bits, §3).
const MaxGeneration Generation = 1<<30 - 1
