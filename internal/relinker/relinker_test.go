//go:build unix

package relinker

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/filedup/dedupe/internal/inode"
	"github.com/filedup/dedupe/internal/report"
)

func TestSelectWinnerPicksEarliestModified(t *testing.T) {
	early := &inode.Record{Ino: 1, ModSec: 100}
	late := &inode.Record{Ino: 2, ModSec: 200}
	winner := selectWinner([]*inode.Record{late, early})
	assert.Same(t, early, winner)
}

func TestSelectWinnerTieBreaksByInode(t *testing.T) {
	a := &inode.Record{Ino: 5, ModSec: 100}
	b := &inode.Record{Ino: 3, ModSec: 100}
	winner := selectWinner([]*inode.Record{a, b})
	assert.Same(t, b, winner)
}

func TestRunDryRunDoesNotModifyFilesystem(t *testing.T) {
	dir := t.TempDir()
	pathA := filepath.Join(dir, "a")
	pathB := filepath.Join(dir, "b")
	require.NoError(t, os.WriteFile(pathA, []byte("dup"), 0o644))
	require.NoError(t, os.WriteFile(pathB, []byte("dup"), 0o644))

	winner := &inode.Record{Ino: 1, Size: 3, Paths: []string{pathA}}
	loser := &inode.Record{Ino: 2, Size: 3, ModSec: 1, Paths: []string{pathB}}

	var errBuf, outBuf bytes.Buffer
	r := New(true, false, false, false, false, report.New(&errBuf), strings.NewReader(""), &outBuf)
	result := r.Run([][]*inode.Record{{winner, loser}})

	assert.Equal(t, 1, result.Relinks)
	assert.Equal(t, int64(3), result.SavedBytes)

	stA, err := os.Stat(pathA)
	require.NoError(t, err)
	stB, err := os.Stat(pathB)
	require.NoError(t, err)
	assert.NotEqual(t, stA.Sys(), stB.Sys())
}

func TestRunRelinksLoserToWinner(t *testing.T) {
	dir := t.TempDir()
	pathA := filepath.Join(dir, "a")
	pathB := filepath.Join(dir, "b")
	require.NoError(t, os.WriteFile(pathA, []byte("dup"), 0o644))
	require.NoError(t, os.WriteFile(pathB, []byte("dup"), 0o644))

	winner := &inode.Record{Ino: 1, Size: 3, Paths: []string{pathA}}
	loser := &inode.Record{Ino: 2, Size: 3, ModSec: 1, Paths: []string{pathB}}

	var errBuf, outBuf bytes.Buffer
	r := New(false, false, false, false, false, report.New(&errBuf), strings.NewReader(""), &outBuf)
	result := r.Run([][]*inode.Record{{winner, loser}})

	require.Equal(t, 1, result.Relinks)
	assert.Equal(t, "", errBuf.String())

	infoA, err := os.Stat(pathA)
	require.NoError(t, err)
	infoB, err := os.Stat(pathB)
	require.NoError(t, err)
	assert.True(t, os.SameFile(infoA, infoB))
}

func TestRunFallsBackToLaterWinnerPathWhenFirstIsGone(t *testing.T) {
	dir := t.TempDir()
	pathA := filepath.Join(dir, "a")
	pathALink := filepath.Join(dir, "a_link")
	pathB := filepath.Join(dir, "b")
	require.NoError(t, os.WriteFile(pathA, []byte("dup"), 0o644))
	require.NoError(t, os.Link(pathA, pathALink))
	require.NoError(t, os.WriteFile(pathB, []byte("dup"), 0o644))

	// Winner's first recorded path has since been removed (e.g. a
	// concurrent delete); only the second path of the same inode remains.
	require.NoError(t, os.Remove(pathA))

	winner := &inode.Record{Ino: 1, Size: 3, Paths: []string{pathA, pathALink}}
	loser := &inode.Record{Ino: 2, Size: 3, ModSec: 1, Paths: []string{pathB}}

	var errBuf, outBuf bytes.Buffer
	r := New(false, false, false, false, false, report.New(&errBuf), strings.NewReader(""), &outBuf)
	result := r.Run([][]*inode.Record{{winner, loser}})

	require.Equal(t, 1, result.Relinks)
	assert.Equal(t, "", errBuf.String())

	infoLink, err := os.Stat(pathALink)
	require.NoError(t, err)
	infoB, err := os.Stat(pathB)
	require.NoError(t, err)
	assert.True(t, os.SameFile(infoLink, infoB))
}

func TestConfirmAcceptsYes(t *testing.T) {
	var outBuf bytes.Buffer
	r := New(false, true, false, false, false, report.New(&bytes.Buffer{}), strings.NewReader("y\n"), &outBuf)
	assert.True(t, r.confirm())
}

func TestConfirmRejectsNo(t *testing.T) {
	var outBuf bytes.Buffer
	r := New(false, true, false, false, false, report.New(&bytes.Buffer{}), strings.NewReader("no\n"), &outBuf)
	assert.False(t, r.confirm())
}

func TestConfirmTreatsEOFAsNo(t *testing.T) {
	var outBuf bytes.Buffer
	r := New(false, true, false, false, false, report.New(&bytes.Buffer{}), strings.NewReader(""), &outBuf)
	assert.False(t, r.confirm())
}

func TestConfirmReprompsOnGarbage(t *testing.T) {
	var outBuf bytes.Buffer
	r := New(false, true, false, false, false, report.New(&bytes.Buffer{}), strings.NewReader("blah\nyes\n"), &outBuf)
	assert.True(t, r.confirm())
}

func TestInteractiveSkipsGroupOnNo(t *testing.T) {
	dir := t.TempDir()
	pathA := filepath.Join(dir, "a")
	pathB := filepath.Join(dir, "b")
	require.NoError(t, os.WriteFile(pathA, []byte("dup"), 0o644))
	require.NoError(t, os.WriteFile(pathB, []byte("dup"), 0o644))

	winner := &inode.Record{Ino: 1, Size: 3, Paths: []string{pathA}}
	loser := &inode.Record{Ino: 2, Size: 3, ModSec: 1, Paths: []string{pathB}}

	var errBuf, outBuf bytes.Buffer
	r := New(false, true, false, false, false, report.New(&errBuf), strings.NewReader("n\n"), &outBuf)
	result := r.Run([][]*inode.Record{{winner, loser}})

	assert.Equal(t, 0, result.Relinks)
	infoA, err := os.Stat(pathA)
	require.NoError(t, err)
	infoB, err := os.Stat(pathB)
	require.NoError(t, err)
	assert.False(t, os.SameFile(infoA, infoB))
}
