//go:build !linux

package fsutil

import "errors"

// ErrXattrUnsupported is returned by Fgetxattr/Fsetxattr on platforms
// without a "user." xattr namespace. The hasher treats any xattr error
// as a non-fatal cache miss, so --use-xattrs degrades to "always
// recompute" rather than failing the run.
var ErrXattrUnsupported = errors.New("xattr cache unsupported on this platform")

func Fgetxattr(fd int, name string) ([]byte, error) {
	return nil, ErrXattrUnsupported
}

func Fsetxattr(fd int, name string, value []byte) error {
	return ErrXattrUnsupported
}
