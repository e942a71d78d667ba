package hasher

import (
	"context"
	"sync"

	"github.com/autobrr/dedup/pkg/grouping"
)

// GroupBy digests every path and returns the buckets of two or more paths that
// share a digest. Paths whose digest fails are left out. sem bounds how many
// digests run at once; nil means unbounded. Nothing is returned once ctx is done.
func GroupBy(ctx context.Context, paths []string, digest DigestFunc, sem chan struct{}) [][]string {
	type result struct {
		digest Digest
		ok     bool
	}

	results := make([]result, len(paths))
	var wg sync.WaitGroup

spawn:
	for i, path := range paths {
		if sem != nil {
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				break spawn
			}
		} else if ctx.Err() != nil {
			break
		}

		wg.Add(1)
		go func(i int, path string) {
			defer wg.Done()
			if sem != nil {
				defer func() { <-sem }()
			}

			d, err := digest(path)
			if err != nil {
				return
			}
			results[i] = result{digest: d, ok: true}
		}(i, path)
	}

	wg.Wait()

	if ctx.Err() != nil {
		return nil
	}

	indices := make([]int, len(paths))
	for i := range indices {
		indices[i] = i
	}

	buckets := grouping.PartitionBy(indices, func(i int) (Digest, bool) {
		return results[i].digest, results[i].ok
	}).Candidates()

	out := make([][]string, 0, len(buckets))
	for _, bucket := range buckets {
		members := make([]string, len(bucket))
		for j, i := range bucket {
			members[j] = paths[i]
		}
		out = append(out, members)
	}

	return out
}
