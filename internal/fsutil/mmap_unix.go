//go:build unix

package fsutil

import (
	"golang.org/x/sys/unix"
)

// Mmap maps size bytes of fd read-only and shared, starting at offset 0.
func Mmap(fd int, size int64) ([]byte, error) {
	return unix.Mmap(fd, 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
}

// Munmap unmaps a region returned by Mmap.
func Munmap(b []byte) error {
	return unix.Munmap(b)
}
