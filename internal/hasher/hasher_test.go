package hasher

import (
	"bytes"
	"crypto/sha256"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/filedup/dedupe/internal/fsutil"
	"github.com/filedup/dedupe/internal/inode"
	"github.com/filedup/dedupe/internal/report"
)

func makeRecord(t *testing.T, dir, name, content string) *inode.Record {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	st, err := os.Stat(path)
	require.NoError(t, err)
	sys := fsutil.MustSysStat(st)
	return &inode.Record{
		Dev:     sys.Dev,
		Ino:     sys.Ino,
		Size:    int64(len(content)),
		ModSec:  sys.ModSec,
		ModNsec: sys.ModNsec,
		Paths:   []string{path},
	}
}

func TestHasherProducesMatchingDigestsForIdenticalContent(t *testing.T) {
	dir := t.TempDir()
	a := makeRecord(t, dir, "a", "duplicate-content")
	b := makeRecord(t, dir, "b", "duplicate-content")
	c := makeRecord(t, dir, "c", "different")

	h := New(false, report.New(&bytes.Buffer{}), false, false)
	digestMap := h.Run([][]*inode.Record{{a, b, c}})

	want := sha256.Sum256([]byte("duplicate-content"))
	group, ok := digestMap[want]
	require.True(t, ok)
	assert.ElementsMatch(t, []*inode.Record{a, b}, group)
	assert.NotContains(t, group, c)
}

func TestHasherHashesEmptyFiles(t *testing.T) {
	dir := t.TempDir()
	a := makeRecord(t, dir, "a", "")
	b := makeRecord(t, dir, "b", "")

	h := New(false, report.New(&bytes.Buffer{}), false, false)
	digestMap := h.Run([][]*inode.Record{{a, b}})

	want := sha256.Sum256(nil)
	require.Contains(t, digestMap, want)
	assert.Len(t, digestMap[want], 2)
}

func TestHasherReportsUnopenableInode(t *testing.T) {
	var errBuf bytes.Buffer
	rec := &inode.Record{Ino: 99, Size: 4, Paths: []string{"/nonexistent/path/does/not/exist"}}

	h := New(false, report.New(&errBuf), false, false)
	digestMap := h.Run([][]*inode.Record{{rec}})

	assert.Empty(t, digestMap)
	assert.NotEmpty(t, errBuf.String())
}

func skipIfNoXattrSupport(t *testing.T, dir string) {
	t.Helper()
	path := filepath.Join(dir, ".xattr-probe")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	f, err := os.Open(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	if err := fsutil.Fsetxattr(int(f.Fd()), "user.dedupe.probe", []byte("1")); err != nil {
		t.Skipf("filesystem at %s does not support user xattrs: %v", dir, err)
	}
}

func TestHasherXattrCacheRoundTrip(t *testing.T) {
	dir := t.TempDir()
	skipIfNoXattrSupport(t, dir)

	rec := makeRecord(t, dir, "a", "cacheable-content")

	h1 := New(true, report.New(&bytes.Buffer{}), false, false)
	h1.Run([][]*inode.Record{{rec}})
	assert.Equal(t, 0, h1.CacheHits())
	assert.Equal(t, 1, h1.CacheMisses())

	// Second run over the unmodified file: must hit the cache, not recompute.
	rec2 := &inode.Record{Dev: rec.Dev, Ino: rec.Ino, Size: rec.Size, ModSec: rec.ModSec, ModNsec: rec.ModNsec, Paths: rec.Paths}
	h2 := New(true, report.New(&bytes.Buffer{}), false, false)
	h2.Run([][]*inode.Record{{rec2}})
	assert.Equal(t, 1, h2.CacheHits())
	assert.Equal(t, 0, h2.CacheMisses())
	assert.Equal(t, rec.Digest, rec2.Digest)
}

func TestHasherXattrCacheInvalidatedByMtimeChange(t *testing.T) {
	dir := t.TempDir()
	skipIfNoXattrSupport(t, dir)

	rec := makeRecord(t, dir, "a", "content-v1")
	h1 := New(true, report.New(&bytes.Buffer{}), false, false)
	h1.Run([][]*inode.Record{{rec}})

	// Simulate a modification: new content, new mtime.
	path := rec.Paths[0]
	require.NoError(t, os.WriteFile(path, []byte("content-v2-longer"), 0o644))
	st, err := os.Stat(path)
	require.NoError(t, err)
	sys := fsutil.MustSysStat(st)

	rec2 := &inode.Record{Dev: sys.Dev, Ino: sys.Ino, Size: int64(len("content-v2-longer")), ModSec: sys.ModSec, ModNsec: sys.ModNsec, Paths: []string{path}}
	h2 := New(true, report.New(&bytes.Buffer{}), false, false)
	h2.Run([][]*inode.Record{{rec2}})

	assert.Equal(t, 0, h2.CacheHits())
	assert.Equal(t, 1, h2.CacheMisses())
	assert.Equal(t, sha256.Sum256([]byte("content-v2-longer")), rec2.Digest)
}
