// Package hardlink collapses groups of identical files into hardlinks to one
// canonical copy.
//
// A member is replaced by linking the canonical file to a temporary name in the
// member's directory and renaming it over the member, so the member path always
// resolves to either the old or the new file.
package hardlink

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/minio/highwayhash"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/autobrr/dedup/pkg/grouping"
)

const (
	tempPrefix = ".dedup-"
	tempSuffix = ".tmp"
)

var tempNameKey [highwayhash.Size]byte

type Options struct {
	DryRun bool
	// Verbose logs every link at info level instead of debug.
	Verbose bool
	// Jobs is the number of groups processed at once. Members of one group
	// are always processed in order.
	Jobs int
}

type Failure struct {
	Path string `json:"path"`
	Err  string `json:"error"`
}

type Outcome struct {
	FilesLinked    int       `json:"files_linked"`
	BytesReclaimed uint64    `json:"bytes_reclaimed"`
	Failures       []Failure `json:"failures"`
}

type Linker struct {
	log  *logrus.Entry
	opts Options
}

func New(log *logrus.Entry, opts Options) *Linker {
	if opts.Jobs <= 0 {
		opts.Jobs = 1
	}

	return &Linker{
		log:  log,
		opts: opts,
	}
}

// Canonical picks the file every other member is linked to: the shortest path,
// ties broken by byte order.
func Canonical(files []string) string {
	if len(files) == 0 {
		return ""
	}

	sorted := append([]string(nil), files...)
	sort.Slice(sorted, func(i, j int) bool {
		if len(sorted[i]) != len(sorted[j]) {
			return len(sorted[i]) < len(sorted[j])
		}
		return sorted[i] < sorted[j]
	})

	return sorted[0]
}

// TempPath is where the replacement link for path is staged. The name has a
// fixed length whatever the length of the member's name, and is the same
// across runs so a leftover from an interrupted run is found again.
func TempPath(path string) string {
	sum := highwayhash.Sum64([]byte(filepath.Base(path)), tempNameKey[:])
	return filepath.Join(filepath.Dir(path), fmt.Sprintf("%s%016x%s", tempPrefix, sum, tempSuffix))
}

// IsTempPath reports whether path names a staged replacement link.
func IsTempPath(path string) bool {
	name := filepath.Base(path)
	if len(name) != len(tempPrefix)+16+len(tempSuffix) ||
		!strings.HasPrefix(name, tempPrefix) || !strings.HasSuffix(name, tempSuffix) {
		return false
	}

	_, err := strconv.ParseUint(name[len(tempPrefix):len(tempPrefix)+16], 16, 64)
	return err == nil
}

// Link replaces every non-canonical member of each group with a hardlink to
// the group's canonical file. Failures are collected, never fatal. A cancelled
// ctx stops the action between groups.
func (l *Linker) Link(ctx context.Context, groups []grouping.DuplicateGroup) Outcome {
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		outcome Outcome
		sem     = make(chan struct{}, l.opts.Jobs)
	)

loop:
	for _, g := range groups {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			break loop
		}

		if ctx.Err() != nil {
			<-sem
			break
		}

		wg.Add(1)
		go func(g grouping.DuplicateGroup) {
			defer func() {
				<-sem
				wg.Done()
			}()

			res := l.linkGroup(g)

			mu.Lock()
			outcome.FilesLinked += res.FilesLinked
			outcome.BytesReclaimed += res.BytesReclaimed
			outcome.Failures = append(outcome.Failures, res.Failures...)
			mu.Unlock()
		}(g)
	}

	wg.Wait()

	sort.Slice(outcome.Failures, func(i, j int) bool {
		return outcome.Failures[i].Path < outcome.Failures[j].Path
	})

	return outcome
}

func (l *Linker) linkGroup(g grouping.DuplicateGroup) Outcome {
	var res Outcome
	if len(g.Files) < 2 {
		return res
	}

	original := Canonical(g.Files)

	for _, path := range g.Files {
		if path == original {
			continue
		}

		linked, err := l.replace(path, original, g.Size)
		if err != nil {
			l.log.WithError(err).Errorf("Failed linking %q", path)
			res.Failures = append(res.Failures, Failure{Path: path, Err: err.Error()})
			continue
		}

		if linked {
			res.FilesLinked++
			res.BytesReclaimed += g.Size
		}
	}

	return res
}

// replace links path to original and reports whether anything was (or, in a
// dry run, would be) done.
func (l *Linker) replace(path, original string, size uint64) (bool, error) {
	tmp := TempPath(path)

	if !l.opts.DryRun {
		if err := os.Remove(tmp); err != nil && !os.IsNotExist(err) {
			return false, errors.Wrap(err, "remove leftover temporary link")
		}
	}

	same, err := SameFile(path, original)
	if err != nil {
		return false, errors.Wrap(err, "compare identity")
	}

	if same {
		l.log.Tracef("Already linked: %q -> %q", path, original)
		return false, nil
	}

	level := logrus.DebugLevel
	if l.opts.Verbose {
		level = logrus.InfoLevel
	}

	if l.opts.DryRun {
		l.log.WithField("size", humanize.IBytes(size)).Logf(level, "[dry-run] %q -> %q", path, original)
		return true, nil
	}

	if err := os.Link(original, tmp); err != nil {
		return false, errors.Wrap(err, "create temporary link")
	}

	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return false, errors.Wrap(err, "replace with link")
	}

	l.log.WithField("size", humanize.IBytes(size)).Logf(level, "[linked] %q -> %q", path, original)
	return true, nil
}
