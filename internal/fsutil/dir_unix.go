//go:build unix

// Package fsutil wraps the raw filesystem primitives a single-device
// hardlink deduplicator needs for traversal and hashing (openat,
// fstatat(AT_SYMLINK_NOFOLLOW), xattr, mmap) behind small Go-idiomatic
// helpers; link and rename are not wrapped here (the relinker calls
// os.Link/os.Rename directly),
// the way
// opencontainers-umoci/internal/system wraps golang.org/x/sys/unix for
// its xattr and utime needs.
package fsutil

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"

	"golang.org/x/sys/unix"
)

// Dir is an open directory file descriptor, used to perform every child
// open/stat relative to it rather than by reconstructing a path string —
// this is what makes the scanner's recursion immune to a concurrent
// rename of an ancestor directory.
type Dir struct {
	fd   int
	path string // logical path, for diagnostics only — never used to open
	Dev  uint64
}

// OpenDir opens path as a directory, following symlinks only at the final
// component the way a plain os.Open(path) would (the caller is expected
// to call OpenDir only for root paths given on the command line; every
// descendant is opened via Dir.OpenChildDir instead, which never follows
// symlinks at all).
func OpenDir(path string) (*Dir, error) {
	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_DIRECTORY|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, &fs.PathError{Op: "open", Path: path, Err: err}
	}
	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil {
		_ = unix.Close(fd)
		return nil, &fs.PathError{Op: "fstat", Path: path, Err: err}
	}
	return &Dir{fd: fd, path: path, Dev: uint64(st.Dev)}, nil
}

// Close releases the directory's file descriptor.
func (d *Dir) Close() error {
	return unix.Close(d.fd)
}

// Path returns the logical path this Dir was opened at or recursed to.
func (d *Dir) Path() string {
	return d.path
}

// Entry is one directory entry as read by ReadEntries.
type Entry struct {
	Name string
	Type fs.FileMode // entry type bits only (Type().IsDir()/.IsRegular())
}

// ReadEntries lists the directory's entries. It duplicates the underlying
// fd before handing it to os.File, so the Dir's own fd remains valid and
// at a stable seek position for subsequent calls.
func (d *Dir) ReadEntries() ([]Entry, error) {
	dupFd, err := unix.Dup(d.fd)
	if err != nil {
		return nil, &fs.PathError{Op: "dup", Path: d.path, Err: err}
	}
	f := os.NewFile(uintptr(dupFd), d.path)
	defer func() { _ = f.Close() }()

	dirents, err := f.ReadDir(-1)
	if err != nil {
		return nil, err
	}

	out := make([]Entry, 0, len(dirents))
	for _, de := range dirents {
		out = append(out, Entry{Name: de.Name(), Type: de.Type()})
	}
	return out, nil
}

// StatNoFollow stats a direct child of d by name, without following a
// trailing symlink.
func (d *Dir) StatNoFollow(name string) (unix.Stat_t, error) {
	var st unix.Stat_t
	err := unix.Fstatat(d.fd, name, &st, unix.AT_SYMLINK_NOFOLLOW)
	if err != nil {
		return unix.Stat_t{}, &fs.PathError{Op: "fstatat", Path: filepath.Join(d.path, name), Err: err}
	}
	return st, nil
}

// OpenChildDir opens a subdirectory of d by name, relative to d's fd —
// never by reconstructing and re-resolving a path string. logicalPath is
// carried along purely for diagnostics and for the path records the
// scanner builds: the concatenation of the ancestor logical paths, not a
// realpath.
func (d *Dir) OpenChildDir(name, logicalPath string) (*Dir, error) {
	fd, err := unix.Openat(d.fd, name, unix.O_RDONLY|unix.O_DIRECTORY|unix.O_NOFOLLOW|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, &fs.PathError{Op: "openat", Path: logicalPath, Err: err}
	}
	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil {
		_ = unix.Close(fd)
		return nil, &fs.PathError{Op: "fstat", Path: logicalPath, Err: err}
	}
	return &Dir{fd: fd, path: logicalPath, Dev: uint64(st.Dev)}, nil
}

// OpenFileNoFollow opens a regular-file child of d by name, read-only,
// no-follow, close-on-exec.
func (d *Dir) OpenFileNoFollow(name, logicalPath string) (*os.File, error) {
	fd, err := unix.Openat(d.fd, name, unix.O_RDONLY|unix.O_NOFOLLOW|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, &fs.PathError{Op: "openat", Path: logicalPath, Err: err}
	}
	return os.NewFile(uintptr(fd), logicalPath), nil
}

// OpenPathNoFollow opens an absolute or relative path directly (used by
// the hasher, which re-opens an inode's path independent of the
// directory walk that discovered it, trying each of an inode's known
// paths in turn).
func OpenPathNoFollow(path string) (*os.File, error) {
	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_NOFOLLOW|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, &fs.PathError{Op: "open", Path: path, Err: err}
	}
	return os.NewFile(uintptr(fd), path), nil
}

// ErrCrossDevice is returned by CheckDevice when a subtree's device
// differs from the confinement device, detected by comparing st_dev.
var ErrCrossDevice = fmt.Errorf("cross-device")

// CheckDevice reports ErrCrossDevice if d's device doesn't match want.
func (d *Dir) CheckDevice(want uint64) error {
	if d.Dev != want {
		return fmt.Errorf("%w: %d != %d", ErrCrossDevice, d.Dev, want)
	}
	return nil
}

// SysStat is the subset of unix.Stat_t needed to build an inode.Record,
// extracted from an os.FileInfo by MustSysStat.
type SysStat struct {
	Dev     uint64
	Ino     uint64
	ModSec  int64
	ModNsec int64
}

// MustSysStat extracts device, inode and no-follow mtime fields from an
// os.FileInfo obtained via the standard library (os.Stat/os.Lstat), for
// callers outside the openat-relative walk — tests building fixtures, not
// the scanner itself, which always stats via Dir.StatNoFollow. Panics if
// fi's Sys() isn't a *syscall.Stat_t, which only happens off Unix.
func MustSysStat(fi os.FileInfo) SysStat {
	st, ok := fi.Sys().(*syscall.Stat_t)
	if !ok {
		panic("fsutil: MustSysStat: not a *syscall.Stat_t")
	}
	return SysStat{
		Dev:     uint64(st.Dev),
		Ino:     uint64(st.Ino),
		ModSec:  int64(st.Mtim.Sec),
		ModNsec: int64(st.Mtim.Nsec),
	}
}
