//go:build unix

package testfs

import (
	"fmt"
	"os"
	"path/filepath"
	"syscall"
)

// -----------------------------------------------------------------------------
// Reap Operations - Capture filesystem state
// -----------------------------------------------------------------------------

// ReapPaths captures the filesystem state for the given paths.
//
// Each path becomes a ReapVolume with files grouped by inode (hardlinks)
// and symlinks captured with their targets.
//
// root is the base directory to join paths against (t.TempDir() for
// integration tests); pass "" to treat paths as already absolute.
func ReapPaths(root string, paths []string) (*ReapResult, error) {
	result := &ReapResult{}

	for _, path := range paths {
		actualPath := path
		if root != "" && root != "/" {
			actualPath = filepath.Join(root, path)
		}

		vol, err := reapPath(actualPath, path)
		if err != nil {
			return nil, fmt.Errorf("reap %s: %w", path, err)
		}
		result.Volumes = append(result.Volumes, vol)
	}

	return result, nil
}

// reapPath scans a directory and returns its state.
// rootPath is the actual filesystem path to scan.
// logicalPath is the path to report in the result (for volume name).
func reapPath(rootPath, logicalPath string) (ReapVolume, error) {
	vol := ReapVolume{
		Name: logicalPath,
	}

	inodeToFile := make(map[uint64]*ReapFile)

	err := filepath.Walk(rootPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if path == rootPath {
			return nil
		}

		relPath, _ := filepath.Rel(rootPath, path)

		if info.Mode()&os.ModeSymlink != 0 {
			target, err := os.Readlink(path)
			if err != nil {
				return fmt.Errorf("readlink %s: %w", path, err)
			}
			vol.Symlinks = append(vol.Symlinks, ReapSymlink{
				Path:   relPath,
				Target: target,
			})
			return nil
		}

		if info.IsDir() {
			return nil
		}

		stat, ok := info.Sys().(*syscall.Stat_t)
		if !ok {
			return fmt.Errorf("cannot get stat for %s", path)
		}

		ino := stat.Ino
		nlink := uint64(stat.Nlink) //nolint:unconvert // platform-dependent type

		if existing, ok := inodeToFile[ino]; ok {
			existing.Path = append(existing.Path, relPath)
		} else {
			rf := &ReapFile{
				Path:  []string{relPath},
				Inode: ino,
				Nlink: nlink,
				Size:  info.Size(),
			}
			inodeToFile[ino] = rf
		}

		return nil
	})
	if err != nil {
		return vol, err
	}

	vol.Files = nil
	for _, rf := range inodeToFile {
		vol.Files = append(vol.Files, *rf)
	}

	return vol, nil
}
