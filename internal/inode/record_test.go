package inode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableInsertLookup(t *testing.T) {
	tbl := NewTable()
	r := &Record{Dev: 1, Ino: 42, Size: 4}
	tbl.Insert(r)

	got, ok := tbl.Lookup(42)
	require.True(t, ok)
	assert.Same(t, r, got)

	_, ok = tbl.Lookup(43)
	assert.False(t, ok)
	assert.Equal(t, 1, tbl.Len())
}

func TestRecordAddPath(t *testing.T) {
	r := &Record{Ino: 1}
	r.AddPath("/r/a")
	r.AddPath("/r/b")
	assert.Equal(t, []string{"/r/a", "/r/b"}, r.Paths)
}

func TestLess(t *testing.T) {
	early := &Record{ModSec: 100, ModNsec: 0, Ino: 9}
	late := &Record{ModSec: 200, ModNsec: 0, Ino: 1}
	assert.True(t, Less(early, late))
	assert.False(t, Less(late, early))

	sameSec := &Record{ModSec: 100, ModNsec: 5, Ino: 2}
	assert.True(t, Less(early, sameSec))

	tieBroken := &Record{ModSec: 100, ModNsec: 0, Ino: 10}
	assert.True(t, Less(early, tieBroken))
}

func TestSame(t *testing.T) {
	a := &Record{ModSec: 1, ModNsec: 2, Ino: 3}
	b := &Record{ModSec: 1, ModNsec: 2, Ino: 3}
	assert.True(t, Same(a, b))

	c := &Record{ModSec: 1, ModNsec: 2, Ino: 4}
	assert.False(t, Same(a, c))
}
