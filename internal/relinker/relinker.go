// Package relinker selects a winner inode within each digest group and
// replaces every other inode's paths with hardlinks to it.
//
// Grounded on ivoronin-dupedog/internal/deduper/deduper.go's stage shape
// (New/Run, stats+String() progress, verbose reporting, here one block per
// digest group), with
// path-priority/nlink source selection replaced by the earliest-modified
// winner rule and symlink-fallback dropped (single-device scans never hit
// EXDEV).
package relinker

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/filedup/dedupe/internal/inode"
	"github.com/filedup/dedupe/internal/progress"
	"github.com/filedup/dedupe/internal/report"
)

// Relinker replaces duplicate inodes with hardlinks to a chosen winner.
//
// The relinker is designed for single-use: create with New(), call Run() once.
type Relinker struct {
	dryRun      bool
	interactive bool
	verbose     bool
	showBar     bool
	boring      bool

	reporter *report.Reporter
	in       *bufio.Reader
	out      io.Writer
}

// New creates a Relinker. in is the source of interactive confirmations
// (os.Stdin in production); out is where verbose/interactive group
// reports are printed (os.Stdout in production).
func New(dryRun, interactive, verbose, showBar, boring bool, reporter *report.Reporter, in io.Reader, out io.Writer) *Relinker {
	return &Relinker{
		dryRun:      dryRun,
		interactive: interactive,
		verbose:     verbose,
		showBar:     showBar,
		boring:      boring,
		reporter:    reporter,
		in:          bufio.NewReader(in),
		out:         out,
	}
}

type stats struct {
	totalGroups     int
	processedGroups int
	relinks         int
	savedBytes      int64
	startTime       time.Time
}

func (s *stats) String() string {
	return fmt.Sprintf("Processed %d/%d group(s), performed %d relink(s), saved %s in %.1fs",
		s.processedGroups, s.totalGroups, s.relinks,
		humanize.IBytes(uint64(s.savedBytes)), time.Since(s.startTime).Seconds())
}

// Result summarizes one Run.
type Result struct {
	Relinks    int
	SavedBytes int64
}

// Run processes every digest group, winner-first: the earliest-modified
// inode in each group (inode.Less) is kept as the canonical source, and
// every other inode's paths are atomically replaced with hardlinks to
// one of the winner's paths.
func (r *Relinker) Run(digestGroups [][]*inode.Record) Result {
	st := &stats{totalGroups: len(digestGroups), startTime: time.Now()}
	bar := progress.New(r.showBar, -1, r.boring)
	bar.Describe(st)

	for _, group := range digestGroups {
		winner := selectWinner(group)

		if r.verbose || r.interactive {
			r.printGroup(group, winner)
		}

		if r.interactive && !r.confirm() {
			st.processedGroups++
			bar.Describe(st)
			continue
		}

		for _, rec := range group {
			if rec == winner {
				continue
			}
			saved := r.relinkRecord(winner, rec)
			st.relinks += saved.relinks
			st.savedBytes += saved.bytes
			bar.Describe(st)
		}

		st.processedGroups++
		bar.Describe(st)
	}

	bar.Finish(st)
	return Result{Relinks: st.relinks, SavedBytes: st.savedBytes}
}

// selectWinner returns the group member sorted first by inode.Less — the
// earliest-modified inode, tie-broken by inode number.
func selectWinner(group []*inode.Record) *inode.Record {
	winner := group[0]
	for _, rec := range group[1:] {
		if inode.Less(rec, winner) {
			winner = rec
		}
	}
	return winner
}

type relinkOutcome struct {
	relinks int
	bytes   int64
}

// relinkRecord replaces every path of rec with a hardlink to winner,
// one target path at a time so a failure on one path never blocks the
// others. Each link attempt tries every one of winner's paths in order,
// falling back to a later path if an earlier one no longer links.
func (r *Relinker) relinkRecord(winner, rec *inode.Record) relinkOutcome {
	var out relinkOutcome
	for _, target := range rec.Paths {
		if r.dryRun {
			out.relinks++
			out.bytes += rec.Size
			continue
		}
		if err := createHardlink(winner.Paths, target); err != nil {
			r.reporter.Err(target, fmt.Errorf("relink: %w", err))
			continue
		}
		out.relinks++
		out.bytes += rec.Size
	}
	return out
}

// printGroup writes a human-readable block describing one digest group:
// digest, winner, and every member's size/mtime/paths.
func (r *Relinker) printGroup(group []*inode.Record, winner *inode.Record) {
	fmt.Fprintf(r.out, "digest %s (%d inodes, %s each)\n",
		hex.EncodeToString(winner.Digest[:]), len(group), humanize.IBytes(uint64(winner.Size)))

	for _, rec := range group {
		mark := " "
		if rec == winner {
			mark = "*"
		}
		mtime := time.Unix(rec.ModSec, rec.ModNsec).UTC().Format(time.RFC3339)
		fmt.Fprintf(r.out, " %s inode %d  mtime %s\n", mark, rec.Ino, mtime)
		for _, p := range rec.Paths {
			fmt.Fprintf(r.out, "     %s\n", p)
		}
	}
}

// confirm prompts on r.out and reads a line from r.in. "y"/"yes"
// (case-insensitive) proceeds; "n"/"no" or EOF skips the group; anything
// else re-prompts.
func (r *Relinker) confirm() bool {
	for {
		fmt.Fprint(r.out, "relink this group? [y/N] ")
		line, err := r.in.ReadString('\n')
		answer := strings.ToLower(strings.TrimSpace(line))

		switch answer {
		case "y", "yes":
			return true
		case "n", "no":
			return false
		}

		if err != nil { // EOF or read error: treat as "no" and stop prompting this group.
			return false
		}
	}
}
