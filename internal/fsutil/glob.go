package fsutil

import (
	"fmt"
	"path/filepath"
)

// ValidateGlobs checks that every pattern is a valid filepath.Match
// pattern, eagerly, before any traversal begins: a malformed pattern is
// a configuration error, not a per-path traversal error.
//
// Grounded on cmd/dupedog/util.go's validateGlobPatterns.
func ValidateGlobs(patterns []string) error {
	for _, pattern := range patterns {
		if _, err := filepath.Match(pattern, ""); err != nil {
			return fmt.Errorf("pattern %q: %w", pattern, err)
		}
	}
	return nil
}

// MatchesAny reports whether base matches any of patterns under
// filepath.Match's glob semantics (path-separator-significant: "*" does
// not cross "/").
func MatchesAny(base string, patterns []string) bool {
	for _, pattern := range patterns {
		if ok, _ := filepath.Match(pattern, base); ok {
			return true
		}
	}
	return false
}
