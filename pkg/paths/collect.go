package paths

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/charlievieth/fastwalk"
	"github.com/pkg/errors"
	"github.com/scylladb/go-set/strset"

	"github.com/autobrr/dedup/pkg/expression"
	"github.com/autobrr/dedup/pkg/grouping"
	"github.com/autobrr/dedup/pkg/hardlink"
	"github.com/autobrr/dedup/pkg/logger"
)

/* Structs */

type CollectOptions struct {
	MinSize uint64
	// MaxSize of 0 means unbounded.
	MaxSize uint64
	Exclude *Matcher
	Include *Matcher
	Filter  *expression.CompiledExpression
	Workers int
}

/* Vars */

var (
	log = logger.GetLogger("paths")
)

/* Public */

// Collect walks roots and returns every regular file that passes the size
// bounds, the glob patterns and the filter. Symlinks are never followed.
// A path reached from more than one root is returned once.
func Collect(ctx context.Context, roots []string, opts CollectOptions) ([]grouping.FileRecord, error) {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	var (
		records []grouping.FileRecord
		mutex   sync.Mutex
		seen    = strset.New()
	)

	conf := fastwalk.Config{
		Follow:     false,
		NumWorkers: workers,
	}

	for _, root := range roots {
		root = filepath.Clean(root)
		if _, err := os.Stat(root); err != nil {
			return nil, errors.Wrapf(err, "scan root %s", root)
		}

		err := fastwalk.Walk(&conf, root, func(path string, d fs.DirEntry, err error) error {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}

			if err != nil {
				log.WithError(err).Warnf("Skipping unreadable path: %q", path)
				return nil
			}

			if d.IsDir() {
				if path != root && opts.Exclude.Match(path) {
					log.Tracef("Excluded directory: %q", path)
					return fs.SkipDir
				}
				return nil
			}

			record, ok := accept(path, d, &opts)
			if !ok {
				return nil
			}

			key := path
			if abs, err := filepath.Abs(path); err == nil {
				key = abs
			}

			mutex.Lock()
			if !seen.Has(key) {
				seen.Add(key)
				records = append(records, record)
			}
			mutex.Unlock()
			return nil
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, errors.Wrapf(err, "walk %s", root)
		}
	}

	log.Debugf("Collected %d files from %d roots", len(records), len(roots))
	return records, nil
}

/* Private */

func accept(path string, d fs.DirEntry, opts *CollectOptions) (grouping.FileRecord, bool) {
	if !d.Type().IsRegular() {
		return grouping.FileRecord{}, false
	}

	if hardlink.IsTempPath(path) {
		log.Tracef("Skipping staged link: %q", path)
		return grouping.FileRecord{}, false
	}

	if opts.Exclude.Match(path) {
		log.Tracef("Excluded file: %q", path)
		return grouping.FileRecord{}, false
	}

	if !opts.Include.Empty() && !opts.Include.Match(path) {
		return grouping.FileRecord{}, false
	}

	info, err := d.Info()
	if err != nil {
		log.WithError(err).Warnf("Failed to get file info for %q", path)
		return grouping.FileRecord{}, false
	}

	if info.Size() <= 0 {
		return grouping.FileRecord{}, false
	}

	size := uint64(info.Size())
	if size < opts.MinSize || (opts.MaxSize > 0 && size > opts.MaxSize) {
		return grouping.FileRecord{}, false
	}

	if opts.Filter != nil {
		match, err := opts.Filter.Match(expression.NewFile(path, info.Size(), info.ModTime()))
		if err != nil {
			log.WithError(err).Warnf("Filter failed for %q", path)
			return grouping.FileRecord{}, false
		}
		if !match {
			return grouping.FileRecord{}, false
		}
	}

	return grouping.FileRecord{Path: path, Size: size}, true
}
