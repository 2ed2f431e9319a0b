// Package digestgroup partitions already-hashed inodes by content digest.
//
// Grounded on sizegroup's by-key bucketing shape, one level further down
// the pipeline: where sizegroup buckets by file size, digestgroup buckets
// the survivors of that stage by their 32-byte SHA-256 digest.
package digestgroup

import (
	"bytes"
	"sort"

	"github.com/filedup/dedupe/internal/inode"
)

// Group partitions hashed records by digest, keeping only digests shared
// by 2 or more inodes, ordered by digest bytes ascending for run-to-run
// determinism.
func Group(digestMap map[[32]byte][]*inode.Record) [][]*inode.Record {
	digests := make([][32]byte, 0, len(digestMap))
	for d, group := range digestMap {
		if len(group) >= 2 {
			digests = append(digests, d)
		}
	}
	sort.Slice(digests, func(i, j int) bool {
		return bytes.Compare(digests[i][:], digests[j][:]) < 0
	})

	out := make([][]*inode.Record, 0, len(digests))
	for _, d := range digests {
		out = append(out, digestMap[d])
	}
	return out
}
