package commitgraph

import (
	"io"
	"os"
	"time"

	"github.com/keyu98/commitgraph/internal/gclog"
	"github.com/pkg/errors"
)

// Reader is an immutable, validated view over one commit-graph file
// (§4.5). It is safe for concurrent use by multiple goroutines: all of
// its state is read-only after Open returns (§5 "Reader").
type Reader struct {
	r      io.ReaderAt
	closer io.Closer // non-nil when Open opened the backing file itself

	fanout           fanoutTable
	oidLookupOffset  int64
	commitDataOffset int64
	edge             *extraEdgeReader // nil if the file has no EDGE chunk

	fileSize int64
}

// OpenFile opens the commit-graph file at path, memory-owning the
// descriptor: Close on the returned Reader closes it. A random-access
// *os.File is sufficient for the reader's access pattern (§5 "File I/O");
// callers that want a memory-mapped backing store can call Open directly
// with their own io.ReaderAt instead.
func OpenFile(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "commitgraph: opening file")
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, errors.Wrap(err, "commitgraph: stat")
	}
	g, err := open(f, info.Size())
	if err != nil {
		f.Close()
		return nil, err
	}
	g.closer = f
	return g, nil
}

// Open validates and wraps an already-sized byte source (e.g. a
// memory-mapped buffer wrapped in bytes.NewReader, or any other
// io.ReaderAt). size is the total byte length of the source.
func Open(r io.ReaderAt, size int64) (*Reader, error) {
	return open(r, size)
}

func open(r io.ReaderAt, size int64) (*Reader, error) {
	h, err := readHeader(r)
	if err != nil {
		gclog.Debug("commitgraph: open failed during header parse: %v", err)
		return nil, err
	}

	if !h.hasChunk(chunkOIDFanout) || !h.hasChunk(chunkOIDLookup) || !h.hasChunk(chunkCommitData) {
		return nil, ErrMalformed{Reason: "missing required chunk (need OIDF, OIDL, CDAT)"}
	}
	for id := range h.chunkOffset {
		switch id {
		case chunkOIDFanout, chunkOIDLookup, chunkCommitData, chunkExtraEdge:
		default:
			if !isRecognizedOptionalChunk(id) {
				idBytes := id.bytes()
				gclog.Debug("commitgraph: skipping unrecognized chunk %q", string(idBytes[:]))
			}
		}
	}

	if h.chunkSize(chunkOIDFanout) != oidFanoutSize {
		return nil, ErrMalformed{Reason: "OIDF chunk has the wrong size"}
	}

	fanout, err := readFanout(r, h.chunkOffset[chunkOIDFanout])
	if err != nil {
		return nil, err
	}
	n := fanout.count()

	if h.chunkSize(chunkOIDLookup) != int64(n)*HashSize {
		return nil, ErrMalformed{Reason: "OIDL chunk size disagrees with fanout commit count"}
	}
	if h.chunkSize(chunkCommitData) != int64(n)*commitDataSize {
		return nil, ErrMalformed{Reason: "CDAT chunk size disagrees with fanout commit count"}
	}

	if err := verifyChecksum(r, h.trailerOffset()); err != nil {
		gclog.Warn("commitgraph: checksum verification failed: %v", err)
		return nil, err
	}

	g := &Reader{
		r:                r,
		fanout:           fanout,
		oidLookupOffset:  h.chunkOffset[chunkOIDLookup],
		commitDataOffset: h.chunkOffset[chunkCommitData],
		fileSize:         size,
	}
	if h.hasChunk(chunkExtraEdge) {
		g.edge = &extraEdgeReader{
			r:      r,
			offset: h.chunkOffset[chunkExtraEdge],
			size:   h.chunkSize(chunkExtraEdge),
		}
	}
	return g, nil
}

// Close releases the backing file, if Open (via OpenFile) opened one.
// Closing a Reader built over a caller-supplied io.ReaderAt is a no-op.
func (g *Reader) Close() error {
	if g.closer != nil {
		return g.closer.Close()
	}
	return nil
}

// CommitCount returns N, the number of commits described by this file.
func (g *Reader) CommitCount() int { return g.fanout.count() }

// PositionOf resolves a hash to its Position (§4.2). The returned bool is
// false, with NoPosition, when the hash is not present — this is not
// an error (§7 "Query").
func (g *Reader) PositionOf(hash CommitHash) (Position, bool) {
	start := time.Now()
	defer func() { readerLookupDuration.Observe(time.Since(start).Seconds()) }()
	readerLookups.Inc()

	pos, ok, err := positionOf(g.r, g.oidLookupOffset, g.fanout, hash)
	if err != nil {
		gclog.Warn("commitgraph: PositionOf(%s) failed: %v", hash, err)
		return NoPosition, false
	}
	return pos, ok
}

// HashAt resolves a Position to its hash (§4.2). False for any position
// outside [0, CommitCount()).
func (g *Reader) HashAt(pos Position) (CommitHash, bool) {
	h, ok, err := hashAt(g.r, g.oidLookupOffset, g.fanout.count(), pos)
	if err != nil {
		gclog.Warn("commitgraph: HashAt(%d) failed: %v", pos, err)
		return CommitHash{}, false
	}
	return h, ok
}

// DataAt resolves a Position to its decoded CommitRecord in O(1) (§4.3,
// §4.4).
func (g *Reader) DataAt(pos Position) (CommitRecord, bool) {
	if pos < 0 || int(pos) >= g.fanout.count() {
		return CommitRecord{}, false
	}
	rec, err := readRecordAt(g.r, g.commitDataOffset, pos, g.edge)
	if err != nil {
		gclog.Warn("commitgraph: DataAt(%d) failed: %v", pos, err)
		return CommitRecord{}, false
	}
	return rec, true
}

// ChunkStat describes one present chunk, for diagnostics (SPEC_FULL.md §4.5).
type ChunkStat struct {
	ID     string
	Offset int64
	Size   int64
}

// Stats summarizes the file's structure, used by the CLI's dump
// sub-command and exposed for callers wiring their own metrics.
type Stats struct {
	CommitCount int
	FileSize    int64
	HasExtraEdge bool
}

// Stats returns a structural summary of the open file.
func (g *Reader) Stats() Stats {
	return Stats{
		CommitCount:  g.fanout.count(),
		FileSize:     g.fileSize,
		HasExtraEdge: g.edge != nil,
	}
}

// RemoveFile deletes the commit-graph file at path if present. It is a
// thin convenience for the GC orchestrator collaborator named in §6,
// which is expected to call it when a repository's packs are pruned; this
// module does not itself watch pack state (§1 "Out of scope").
func RemoveFile(path string) error {
	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "commitgraph: removing file")
	}
	return nil
}
