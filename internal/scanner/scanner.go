// Package scanner performs recursive, single-device directory traversal
// with inode coalescing.
//
// Grounded on ivoronin-dupedog/internal/scanner/scanner.go's stage shape
// (New/Run, stats+String() progress reporting, exclude-pattern filtering)
// with its goroutine fan-out/fan-in removed: this pipeline runs
// single-threaded by design, so Run walks each root directly instead of
// spawning a walker goroutine per directory.
package scanner

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/filedup/dedupe/internal/fsutil"
	"github.com/filedup/dedupe/internal/inode"
	"github.com/filedup/dedupe/internal/progress"
	"github.com/filedup/dedupe/internal/report"
)

// Scanner discovers regular files under a set of roots, coalescing
// directory entries that share an inode number into one inode.Record.
//
// The scanner is designed for single-use: create with New(), call Run() once.
type Scanner struct {
	roots    []string
	excludes []string
	reporter *report.Reporter
	showBar  bool
	boring   bool

	bar   *progress.Bar
	stats stats
}

// New creates a Scanner over roots, skipping entries whose basename
// matches any exclude pattern.
func New(roots, excludes []string, reporter *report.Reporter, showBar, boring bool) *Scanner {
	return &Scanner{roots: roots, excludes: excludes, reporter: reporter, showBar: showBar, boring: boring}
}

// stats tracks scanning progress for the optional progress bar.
type stats struct {
	scannedFiles int64
	scannedBytes int64
	startTime    time.Time
}

func (s *stats) String() string {
	return fmt.Sprintf("Scanned %d files (%s) in %.1fs",
		s.scannedFiles, humanize.IBytes(uint64(s.scannedBytes)), time.Since(s.startTime).Seconds())
}

// Run walks every root and returns the coalesced inode table.
//
// The first root's device becomes the confinement device; any root or
// subtree on a different device is reported and skipped, never fatal.
// Only a failure to open/stat the FIRST root is fatal, because no
// confinement device can be established without it.
func (s *Scanner) Run() (*inode.Table, error) {
	table := inode.NewTable()
	s.stats = stats{startTime: time.Now()}
	s.bar = progress.New(s.showBar, -1, s.boring)
	s.bar.Describe(&s.stats)

	var confinementDev uint64
	haveDevice := false

	for _, root := range s.roots {
		absRoot, err := filepath.Abs(root)
		if err != nil {
			if !haveDevice {
				return nil, fmt.Errorf("resolve %s: %w", root, err)
			}
			s.reporter.Err(root, err)
			continue
		}

		d, err := fsutil.OpenDir(absRoot)
		if err != nil {
			if !haveDevice {
				return nil, fmt.Errorf("stat %s: %w", root, err)
			}
			s.reporter.Err(absRoot, err)
			continue
		}

		if !haveDevice {
			confinementDev = d.Dev
			haveDevice = true
		} else if err := d.CheckDevice(confinementDev); err != nil {
			s.reporter.Err(absRoot, err)
			_ = d.Close()
			continue
		}

		s.walk(d, absRoot, confinementDev, table)
		_ = d.Close()
	}

	s.bar.Finish(&s.stats)
	return table, nil
}

// walk recurses into dir (already open, confined to confinementDev),
// coalescing regular files into table by inode number.
func (s *Scanner) walk(dir *fsutil.Dir, logicalPath string, confinementDev uint64, table *inode.Table) {
	entries, err := dir.ReadEntries()
	if err != nil {
		s.reporter.Err(logicalPath, err)
		return
	}

	for _, e := range entries {
		// os.DirEntry-backed listings never yield "." or "..", but
		// state the exclusion explicitly rather than rely on that.
		if e.Name == "." || e.Name == ".." {
			continue
		}
		if fsutil.MatchesAny(e.Name, s.excludes) {
			continue
		}

		childPath := filepath.Join(logicalPath, e.Name)

		switch {
		case e.Type.IsDir():
			child, err := dir.OpenChildDir(e.Name, childPath)
			if err != nil {
				s.reporter.Err(childPath, err)
				continue
			}
			if err := child.CheckDevice(confinementDev); err != nil {
				s.reporter.Err(childPath, err)
				_ = child.Close()
				continue
			}
			s.walk(child, childPath, confinementDev, table)
			_ = child.Close()

		case e.Type.IsRegular():
			s.visitFile(dir, e.Name, childPath, table)

		default:
			// symlinks, devices, sockets, FIFOs: ignored
		}
	}
}

// visitFile stats a regular-file entry and coalesces it into table by
// inode number, appending childPath to the record's path list either way.
func (s *Scanner) visitFile(dir *fsutil.Dir, name, childPath string, table *inode.Table) {
	st, err := dir.StatNoFollow(name)
	if err != nil {
		s.reporter.Err(childPath, err)
		return
	}

	rec, ok := table.Lookup(st.Ino)
	if !ok {
		rec = &inode.Record{
			Dev:     uint64(st.Dev),
			Ino:     st.Ino,
			Size:    st.Size,
			ModSec:  int64(st.Mtim.Sec),
			ModNsec: int64(st.Mtim.Nsec),
		}
		table.Insert(rec)
	}
	rec.AddPath(childPath)

	s.stats.scannedFiles++
	s.stats.scannedBytes += st.Size
	s.bar.Describe(&s.stats)
}
