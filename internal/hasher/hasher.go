// Package hasher computes content digests for candidate inodes, with an
// optional persistent cache stored in extended attributes.
//
// Grounded on ivoronin-dupedog/internal/verifier/verifier.go's per-file
// hashing mechanics (open/seek/copy idiom, stats+String() progress
// pattern), with progressive byte-range verification replaced by a
// simpler whole-file, mmap, 32 MiB chunk rule, and the original
// BoltDB-backed cache replaced by a per-file xattr cache (see
// DESIGN.md "dropped teacher dep: go.etcd.io/bbolt").
package hasher

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/filedup/dedupe/internal/fsutil"
	"github.com/filedup/dedupe/internal/inode"
	"github.com/filedup/dedupe/internal/progress"
	"github.com/filedup/dedupe/internal/report"
)

const (
	// chunkSize is the mmap read granularity: content is fed to the
	// digest primitive in fixed chunks of 32 MiB.
	chunkSize = 32 << 20

	hashXattrName  = "user.dedupe.hash"
	mtimeXattrName = "user.dedupe.hash_mtime"
)

// Hasher computes SHA-256 digests for every inode drawn from a size class
// of cardinality >= 2, in the ascending-size order sizegroup.Group already
// produces.
//
// The hasher is designed for single-use: create with New(), call Run() once.
type Hasher struct {
	useXattrs bool
	reporter  *report.Reporter
	showBar   bool
	boring    bool

	// cacheHits counts digests adopted from the xattr cache, exposed for
	// the xattr cache round-trip property: a test can assert
	// CacheHits() == len(inodes) on a second run over an unmodified tree.
	cacheHits   int
	cacheMisses int
}

// New creates a Hasher. useXattrs enables reading/writing the digest
// cache in user-namespace extended attributes.
func New(useXattrs bool, reporter *report.Reporter, showBar, boring bool) *Hasher {
	return &Hasher{useXattrs: useXattrs, reporter: reporter, showBar: showBar, boring: boring}
}

// CacheHits returns the number of digests adopted from the xattr cache
// during the last Run.
func (h *Hasher) CacheHits() int { return h.cacheHits }

// CacheMisses returns the number of digests computed (cache disabled, no
// cache entry, or stale entry) during the last Run.
func (h *Hasher) CacheMisses() int { return h.cacheMisses }

type stats struct {
	hashedBytes int64
	hashedFiles int
	startTime   time.Time
}

func (s *stats) String() string {
	return fmt.Sprintf("Hashed %d files (%s) in %.1fs",
		s.hashedFiles, humanize.IBytes(uint64(s.hashedBytes)), time.Since(s.startTime).Seconds())
}

// Run computes digests for every record in sizeGroups (each inner slice a
// size class already filtered to cardinality >= 2, outer slice already
// ascending by size — the shape sizegroup.Group produces) and returns the
// resulting digest map, keyed by digest bytes.
func (h *Hasher) Run(sizeGroups [][]*inode.Record) map[[32]byte][]*inode.Record {
	st := &stats{startTime: time.Now()}
	bar := progress.New(h.showBar, -1, h.boring)
	bar.Describe(st)

	digestMap := make(map[[32]byte][]*inode.Record)

	for _, group := range sizeGroups {
		for _, rec := range group {
			if err := h.hashOne(rec); err != nil {
				path := "<no path>"
				if len(rec.Paths) > 0 {
					path = rec.Paths[0]
				}
				h.reporter.Err(path, fmt.Errorf("hash: %w", err))
				continue
			}
			digestMap[rec.Digest] = append(digestMap[rec.Digest], rec)
			st.hashedFiles++
			st.hashedBytes += rec.Size
			bar.Describe(st)
		}
	}

	bar.Finish(st)
	return digestMap
}

// hashOne populates rec.Digest, trying the xattr cache first when enabled.
func (h *Hasher) hashOne(rec *inode.Record) error {
	f, openErr := openAny(rec.Paths)
	if f == nil {
		return fmt.Errorf("no path could be opened: %w", openErr)
	}
	defer func() { _ = f.Close() }()

	fd := int(f.Fd())

	if h.useXattrs {
		if digest, ok := cacheLookup(fd, rec); ok {
			rec.Digest = digest
			rec.HasDigest = true
			h.cacheHits++
			return nil
		}
	}

	digest, err := computeDigest(fd, rec.Size)
	if err != nil {
		return err
	}
	rec.Digest = digest
	rec.HasDigest = true
	h.cacheMisses++

	if h.useXattrs {
		// Failure to write is not fatal.
		cacheStore(fd, rec)
	}

	return nil
}

// openAny tries each path in turn, returning the first successful open.
func openAny(paths []string) (*os.File, error) {
	var lastErr error
	for _, p := range paths {
		f, err := fsutil.OpenPathNoFollow(p)
		if err != nil {
			lastErr = err
			continue
		}
		return f, nil
	}
	return nil, lastErr
}

// cacheLookup checks the xattr cache for fd. The cache hit condition is:
// the hash attribute is present and exactly 32 bytes, AND either the
// mtime attribute is absent (legacy entries) or present and matching
// rec's mtime exactly.
func cacheLookup(fd int, rec *inode.Record) (digest [32]byte, ok bool) {
	hashAttr, err := fsutil.Fgetxattr(fd, hashXattrName)
	if err != nil || len(hashAttr) != 32 {
		return digest, false
	}

	mtimeAttr, err := fsutil.Fgetxattr(fd, mtimeXattrName)
	if err == nil && mtimeAttr != nil {
		if !mtimeMatches(mtimeAttr, rec) {
			return digest, false
		}
	}
	// mtimeAttr absent or unreadable: treated as a legacy entry.

	copy(digest[:], hashAttr)
	return digest, true
}

// cacheStore writes back both xattrs. Gated only on useXattrs, not on a
// prior successful read (see SPEC_FULL.md §10, item 3). Write errors are
// ignored.
func cacheStore(fd int, rec *inode.Record) {
	_ = fsutil.Fsetxattr(fd, hashXattrName, rec.Digest[:])
	_ = fsutil.Fsetxattr(fd, mtimeXattrName, encodeMtime(rec))
}

// encodeMtime stores the mtime as an opaque seconds+nanoseconds pair,
// compared only for bytewise equality by the same build.
func encodeMtime(rec *inode.Record) []byte {
	buf := make([]byte, 16)
	binary.BigEndian.PutUint64(buf[0:8], uint64(rec.ModSec))
	binary.BigEndian.PutUint64(buf[8:16], uint64(rec.ModNsec))
	return buf
}

func mtimeMatches(buf []byte, rec *inode.Record) bool {
	if len(buf) != 16 {
		return false
	}
	sec := int64(binary.BigEndian.Uint64(buf[0:8]))
	nsec := int64(binary.BigEndian.Uint64(buf[8:16]))
	return sec == rec.ModSec && nsec == rec.ModNsec
}

// computeDigest hashes size bytes of fd via a read-only shared mmap, in
// chunkSize pieces. Size 0 skips the mapping entirely.
func computeDigest(fd int, size int64) ([32]byte, error) {
	if size == 0 {
		return sha256.Sum256(nil), nil
	}

	mapped, err := fsutil.Mmap(fd, size)
	if err != nil {
		return [32]byte{}, fmt.Errorf("mmap: %w", err)
	}
	defer func() { _ = fsutil.Munmap(mapped) }()

	h := sha256.New()
	for off := int64(0); off < size; off += chunkSize {
		end := off + chunkSize
		if end > size {
			end = size
		}
		h.Write(mapped[off:end])
	}

	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out, nil
}
