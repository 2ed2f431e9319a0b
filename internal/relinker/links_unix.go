//go:build unix

package relinker

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
)

// maxTempAttempts bounds the link-to-temp retry loop: each attempt draws a
// fresh random suffix, so a collision means another name collided by
// chance, not that this run's own temp file is stale.
const maxTempAttempts = 8

// ErrTempNameExhausted is returned when every temp-name attempt collided.
var ErrTempNameExhausted = errors.New("relinker: exhausted temp name attempts")

// createHardlink atomically replaces target with a hardlink to one of
// sources by linking to a randomly named temporary file in target's
// directory, then renaming over target. Grounded on
// ivoronin-dupedog/internal/deduper/links.go's CreateHardlink, adapted to
// draw a fresh CSPRNG suffix per attempt instead of a fixed ".dupedog.tmp"
// name: a collision is just retried against a new name, with no orphaned
// tmp file ever left behind to reap.
//
// sources is every path of the winner inode, tried in order against each
// temp name: if the winner's first path has gone stale (removed,
// permission change) since the scan, a later path of the same inode can
// still serve as the link source. Only a temp-name collision (EEXIST on
// the link itself) is retried with a fresh name; a source-side failure
// just moves on to the next source path against the same temp name.
func createHardlink(sources []string, target string) error {
	dir := filepath.Dir(target)

	var lastErr error
	for attempt := 0; attempt < maxTempAttempts; attempt++ {
		tmp := filepath.Join(dir, ".tmp"+randSuffix()+"~")

		linked, collided, err := linkFirstAvailable(sources, tmp)
		if linked {
			if err := os.Rename(tmp, target); err != nil {
				_ = os.Remove(tmp)
				return err
			}
			return nil
		}
		if !collided {
			return fmt.Errorf("relink: no source path linkable: %w", err)
		}
		lastErr = err
	}

	return fmt.Errorf("%w: %v", ErrTempNameExhausted, lastErr)
}

// linkFirstAvailable tries os.Link(source, tmp) for each source in order,
// stopping at the first success. A temp-name collision on any attempt
// means tmp itself is unusable, not that the source was bad, so it stops
// trying further sources against this tmp and reports collided=true so
// the caller draws a fresh name.
func linkFirstAvailable(sources []string, tmp string) (linked, collided bool, lastErr error) {
	for _, source := range sources {
		err := os.Link(source, tmp)
		if err == nil {
			return true, false, nil
		}
		if errors.Is(err, syscall.EEXIST) {
			return false, true, err
		}
		lastErr = err
	}
	return false, false, lastErr
}

// randSuffix returns 8 hex characters drawn from a CSPRNG (32 bits of
// entropy), enough that two concurrent runs' temp names practically
// never collide.
func randSuffix() string {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(fmt.Sprintf("relinker: crypto/rand unavailable: %v", err))
	}
	return hex.EncodeToString(b[:])
}
