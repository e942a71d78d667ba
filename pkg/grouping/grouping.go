// Package grouping holds the records that flow through duplicate detection and
// the partition-then-filter primitive every stage is built on.
package grouping

// FileRecord is a regular file found by the collector.
type FileRecord struct {
	Path string
	Size uint64
}

// SizeGroup is a set of at least two files sharing the same size.
type SizeGroup struct {
	Size    uint64
	Members []FileRecord
}

// Paths returns the member paths in member order.
func (g SizeGroup) Paths() []string {
	paths := make([]string, len(g.Members))
	for i, m := range g.Members {
		paths[i] = m.Path
	}
	return paths
}

// DuplicateGroup is a set of at least two files with identical size and
// identical full-content digest.
type DuplicateGroup struct {
	Size  uint64   `json:"size"`
	Files []string `json:"files"`
}

// Wasted is the number of bytes that would be freed by keeping a single copy.
func (g DuplicateGroup) Wasted() uint64 {
	if len(g.Files) < 2 {
		return 0
	}
	return g.Size * uint64(len(g.Files)-1)
}

// Partition buckets items by key.
type Partition[K comparable, T any] map[K][]T

// PartitionBy buckets items by the key returned from key. Items for which key
// reports false are left out of every bucket.
func PartitionBy[K comparable, T any](items []T, key func(T) (K, bool)) Partition[K, T] {
	p := make(Partition[K, T])
	for _, item := range items {
		k, ok := key(item)
		if !ok {
			continue
		}
		p[k] = append(p[k], item)
	}
	return p
}

// Candidates returns the buckets holding two or more items.
func (p Partition[K, T]) Candidates() [][]T {
	out := make([][]T, 0, len(p))
	for _, bucket := range p {
		if len(bucket) < 2 {
			continue
		}
		out = append(out, bucket)
	}
	return out
}
