//go:build linux

// Extended-attribute access is scoped to Linux: the "user.*" xattr
// namespace the digest cache lives in is a Linux concept (the equivalent
// BSD/Darwin namespaces differ), and the cache is explicitly optional, so
// non-Linux builds simply never populate it (see the !linux fallback in
// xattr_other.go).
package fsutil

import (
	"golang.org/x/sys/unix"
)

// Fgetxattr reads a user-namespace extended attribute from an open file
// descriptor, resizing the buffer on ERANGE the way
// opencontainers-umoci/internal/system.Lgetxattr resizes for Lgetxattr —
// here against an fd (Fgetxattr) instead of a path (Lgetxattr), since the
// hasher already holds the file open.
//
// Returns (nil, nil) if the attribute is not set.
func Fgetxattr(fd int, name string) ([]byte, error) {
	var buf []byte
	for {
		sz, err := unix.Fgetxattr(fd, name, nil)
		if err != nil {
			if err == unix.ENODATA {
				return nil, nil
			}
			return nil, err
		}
		if sz == 0 {
			return []byte{}, nil
		}
		buf = make([]byte, sz)
		n, err := unix.Fgetxattr(fd, name, buf)
		if err != nil {
			if err == unix.ERANGE {
				continue
			}
			if err == unix.ENODATA {
				return nil, nil
			}
			return nil, err
		}
		return buf[:n], nil
	}
}

// Fsetxattr writes a user-namespace extended attribute to an open file
// descriptor.
func Fsetxattr(fd int, name string, value []byte) error {
	return unix.Fsetxattr(fd, name, value, 0)
}
