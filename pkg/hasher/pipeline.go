package hasher

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
	"go.uber.org/ratelimit"

	"github.com/autobrr/dedup/pkg/grouping"
)

type Options struct {
	// Jobs is the number of digests computed at once. <= 0 uses every CPU.
	Jobs int
	// FilesPerSecond caps how many files are opened per second. 0 is unlimited.
	FilesPerSecond int
	// OnGroupDone is called with the member count of every finished size group.
	OnGroupDone func(files int)
}

// Stats counts the work done by a pipeline.
type Stats struct {
	PartialDigests uint64
	FullDigests    uint64
	Unreadable     uint64
	BytesRead      uint64
}

// Pipeline reduces size groups to groups of byte-identical files.
type Pipeline struct {
	log     *logrus.Entry
	opts    Options
	sem     chan struct{}
	limiter ratelimit.Limiter

	partialDigests atomic.Uint64
	fullDigests    atomic.Uint64
	unreadable     atomic.Uint64
	bytesRead      atomic.Uint64
}

func New(log *logrus.Entry, opts Options) *Pipeline {
	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.NumCPU()
	}

	limiter := ratelimit.NewUnlimited()
	if opts.FilesPerSecond > 0 {
		limiter = ratelimit.New(opts.FilesPerSecond, ratelimit.WithoutSlack)
	}

	return &Pipeline{
		log:     log,
		opts:    opts,
		sem:     make(chan struct{}, jobs),
		limiter: limiter,
	}
}

// Jobs returns the effective degree of parallelism.
func (p *Pipeline) Jobs() int {
	return cap(p.sem)
}

func (p *Pipeline) Stats() Stats {
	return Stats{
		PartialDigests: p.partialDigests.Load(),
		FullDigests:    p.fullDigests.Load(),
		Unreadable:     p.unreadable.Load(),
		BytesRead:      p.bytesRead.Load(),
	}
}

// Run processes every size group and returns the confirmed duplicate groups.
// If ctx is cancelled, groups that already finished are returned along with
// ctx.Err(); groups in flight are discarded.
func (p *Pipeline) Run(ctx context.Context, groups []grouping.SizeGroup) ([]grouping.DuplicateGroup, error) {
	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		out []grouping.DuplicateGroup

		// groups in flight; digests are bounded separately by p.sem
		groupSem = make(chan struct{}, 2*cap(p.sem))
	)

loop:
	for _, g := range groups {
		select {
		case groupSem <- struct{}{}:
		case <-ctx.Done():
			break loop
		}

		if ctx.Err() != nil {
			<-groupSem
			break
		}

		wg.Add(1)
		go func(g grouping.SizeGroup) {
			defer func() {
				<-groupSem
				wg.Done()
			}()

			dups := p.processGroup(ctx, g)
			if ctx.Err() != nil {
				return
			}

			mu.Lock()
			out = append(out, dups...)
			mu.Unlock()

			if p.opts.OnGroupDone != nil {
				p.opts.OnGroupDone(len(g.Members))
			}
		}(g)
	}

	wg.Wait()

	return out, ctx.Err()
}

func (p *Pipeline) processGroup(ctx context.Context, g grouping.SizeGroup) []grouping.DuplicateGroup {
	partial := GroupBy(ctx, g.Paths(), p.partial, p.sem)
	if len(partial) == 0 {
		p.log.Tracef("Size group %d: no shared heads across %d files", g.Size, len(g.Members))
		return nil
	}

	var dups []grouping.DuplicateGroup

	// the head digest already covered the whole file
	if g.Size <= PartialSize {
		for _, files := range partial {
			dups = append(dups, grouping.DuplicateGroup{Size: g.Size, Files: files})
		}
		return dups
	}

	for _, bucket := range partial {
		for _, files := range GroupBy(ctx, bucket, p.full, p.sem) {
			dups = append(dups, grouping.DuplicateGroup{Size: g.Size, Files: files})
		}
	}

	p.log.Tracef("Size group %d: %d files, %d partial buckets, %d duplicate groups",
		g.Size, len(g.Members), len(partial), len(dups))

	return dups
}

func (p *Pipeline) partial(path string) (Digest, error) {
	d, err := p.digest(path, PartialSize)
	if err == nil {
		p.partialDigests.Add(1)
	}
	return d, err
}

func (p *Pipeline) full(path string) (Digest, error) {
	d, err := p.digest(path, -1)
	if err == nil {
		p.fullDigests.Add(1)
	}
	return d, err
}

func (p *Pipeline) digest(path string, limit int64) (Digest, error) {
	p.limiter.Take()

	d, n, err := digestFile(path, limit)
	p.bytesRead.Add(uint64(n))
	if err != nil {
		p.unreadable.Add(1)
		p.log.WithError(err).Debugf("Skipping unreadable file: %q", path)
		return d, err
	}

	return d, nil
}
