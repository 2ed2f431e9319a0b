// Package inode models the in-memory identity of an on-disk file.
//
// A Record aggregates every path by which the scanner reached one inode.
// Records are owned by a single Table for the lifetime of a run; size and
// digest buckets built from a Table hold non-owning references into it.
package inode

// Record is the in-memory identity of one on-disk file: a (device, inode
// number) pair, its size and modification time, its content digest (filled
// in by the hasher once computed), and every path the scanner observed
// pointing at it.
type Record struct {
	Dev  uint64
	Ino  uint64
	Size int64

	// ModSec/ModNsec are the file's modification time, split the way the
	// xattr cache stores it (seconds + nanoseconds), so a round trip
	// through the cache never loses precision.
	ModSec  int64
	ModNsec int64

	Digest    [32]byte
	HasDigest bool

	// Paths is unordered and append-only, with at least one element
	// once the scanner has observed this inode at all.
	Paths []string
}

// AddPath appends an observed path to the record.
func (r *Record) AddPath(path string) {
	r.Paths = append(r.Paths, path)
}

// Less orders two records by (ModSec, ModNsec, Ino), ascending — the
// winner-selection key used by the relinker. The key is total on
// conventional filesystems; Less never panics, but callers that need to
// assert totality should use Same to detect a tie.
func Less(a, b *Record) bool {
	if a.ModSec != b.ModSec {
		return a.ModSec < b.ModSec
	}
	if a.ModNsec != b.ModNsec {
		return a.ModNsec < b.ModNsec
	}
	return a.Ino < b.Ino
}

// Same reports whether a and b tie under the winner-selection key. Two
// distinct inodes tying is only possible on exotic filesystems where
// inode numbers aren't unique per device.
func Same(a, b *Record) bool {
	return a.ModSec == b.ModSec && a.ModNsec == b.ModNsec && a.Ino == b.Ino
}

// Table is the process-scoped owner of every Record discovered during a
// run, keyed by inode number (the scan is confined to one device, so the
// device id need not be part of the key).
type Table struct {
	byIno map[uint64]*Record
}

// NewTable creates an empty Table.
func NewTable() *Table {
	return &Table{byIno: make(map[uint64]*Record)}
}

// Lookup returns the record for ino, if the table already has one.
func (t *Table) Lookup(ino uint64) (*Record, bool) {
	r, ok := t.byIno[ino]
	return r, ok
}

// Insert adds a newly allocated record to the table.
func (t *Table) Insert(r *Record) {
	t.byIno[r.Ino] = r
}

// Len returns the number of distinct inodes in the table.
func (t *Table) Len() int {
	return len(t.byIno)
}

// Records returns every record in the table, in unspecified order.
func (t *Table) Records() []*Record {
	out := make([]*Record, 0, len(t.byIno))
	for _, r := range t.byIno {
		out = append(out, r)
	}
	return out
}
