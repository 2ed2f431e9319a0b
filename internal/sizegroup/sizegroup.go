// Package sizegroup partitions scanned inodes by file size.
//
// Grounded on ivoronin-dupedog/internal/screener/screener.go's
// by-size map-building loop, stripped of its dev+ino sibling-grouping
// step: that distinction is already resolved one level down, at the
// inode.Table itself (one Record per inode), so there is no separate
// sibling-group stage here.
package sizegroup

import (
	"slices"

	"github.com/filedup/dedupe/internal/inode"
)

// Group partitions records by size, in ascending size order, keeping only
// sizes occupied by 2 or more inodes: a size class of cardinality 1
// can contain no duplicate.
//
// All sizes are considered, including zero.
func Group(records []*inode.Record) [][]*inode.Record {
	bySize := make(map[int64][]*inode.Record)
	for _, r := range records {
		bySize[r.Size] = append(bySize[r.Size], r)
	}

	sizes := make([]int64, 0, len(bySize))
	for size, group := range bySize {
		if len(group) >= 2 {
			sizes = append(sizes, size)
		}
	}
	slices.Sort(sizes)

	out := make([][]*inode.Record, 0, len(sizes))
	for _, size := range sizes {
		out = append(out, bySize[size])
	}
	return out
}
