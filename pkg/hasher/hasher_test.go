package hasher

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autobrr/dedup/pkg/grouping"
)

func writeFile(t *testing.T, dir, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, content, 0o644))
	return path
}

func sizeGroup(t *testing.T, paths ...string) grouping.SizeGroup {
	t.Helper()
	var g grouping.SizeGroup
	for _, p := range paths {
		info, err := os.Stat(p)
		require.NoError(t, err)
		g.Size = uint64(info.Size())
		g.Members = append(g.Members, grouping.FileRecord{Path: p, Size: g.Size})
	}
	return g
}

func testLog() *logrus.Entry {
	return logrus.NewEntry(logrus.New())
}

func sortedGroups(groups [][]string) [][]string {
	for _, g := range groups {
		sort.Strings(g)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i][0] < groups[j][0] })
	return groups
}

func TestPartial_ShortFileDigestsWholeContent(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "short.txt", []byte("identical content"))

	partial, err := Partial(path)
	require.NoError(t, err)
	full, err := Full(path)
	require.NoError(t, err)

	assert.Equal(t, full, partial)
}

func TestPartial_OnlyReadsHead(t *testing.T) {
	dir := t.TempDir()

	head := bytes.Repeat([]byte{'A'}, PartialSize)
	a := writeFile(t, dir, "a.bin", append(append([]byte{}, head...), bytes.Repeat([]byte{'B'}, PartialSize)...))
	b := writeFile(t, dir, "b.bin", append(append([]byte{}, head...), bytes.Repeat([]byte{'C'}, PartialSize)...))

	pa, err := Partial(a)
	require.NoError(t, err)
	pb, err := Partial(b)
	require.NoError(t, err)
	assert.Equal(t, pa, pb, "heads are identical")

	fa, err := Full(a)
	require.NoError(t, err)
	fb, err := Full(b)
	require.NoError(t, err)
	assert.NotEqual(t, fa, fb, "tails differ")
}

func TestDigest_MissingFile(t *testing.T) {
	_, err := Partial(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)

	_, err = Full(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestDigest_CompareAndString(t *testing.T) {
	var low, high Digest
	high[0] = 1

	assert.Equal(t, -1, low.Compare(high))
	assert.Equal(t, 1, high.Compare(low))
	assert.Equal(t, 0, low.Compare(low))
	assert.Len(t, high.String(), 64)
	assert.Equal(t, "01", high.String()[:2])
}

func TestGroupBy_SyntheticDigests(t *testing.T) {
	digestOf := func(b byte) Digest {
		var d Digest
		d[0] = b
		return d
	}

	digests := map[string]Digest{
		"/a": digestOf(1),
		"/b": digestOf(1),
		"/c": digestOf(2),
		"/d": digestOf(3),
		"/e": digestOf(3),
		"/f": digestOf(3),
	}
	fn := func(path string) (Digest, error) {
		if path == "/gone" {
			return Digest{}, errors.New("vanished")
		}
		return digests[path], nil
	}

	tests := []struct {
		name     string
		sem      chan struct{}
		paths    []string
		expected [][]string
	}{
		{
			name:     "bounded",
			sem:      make(chan struct{}, 2),
			paths:    []string{"/a", "/b", "/c", "/d", "/e", "/f"},
			expected: [][]string{{"/a", "/b"}, {"/d", "/e", "/f"}},
		},
		{
			name:     "unbounded",
			paths:    []string{"/a", "/b", "/c"},
			expected: [][]string{{"/a", "/b"}},
		},
		{
			name:     "unreadable file dropped",
			sem:      make(chan struct{}, 1),
			paths:    []string{"/a", "/gone", "/c"},
			expected: [][]string{},
		},
		{
			name:     "empty",
			paths:    nil,
			expected: [][]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GroupBy(context.Background(), tt.paths, fn, tt.sem)
			assert.Equal(t, tt.expected, sortedGroups(got))
		})
	}
}

func TestGroupBy_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls atomic.Int32
	fn := func(string) (Digest, error) {
		calls.Add(1)
		return Digest{}, nil
	}

	got := GroupBy(ctx, []string{"/a", "/b"}, fn, make(chan struct{}, 1))
	assert.Nil(t, got)
}

func TestPipeline_Scenarios(t *testing.T) {
	t.Run("identical pair", func(t *testing.T) {
		dir := t.TempDir()
		a := writeFile(t, dir, "a.txt", []byte("identical content\n"))
		b := writeFile(t, dir, "b.txt", []byte("identical content\n"))

		p := New(testLog(), Options{Jobs: 2})
		dups, err := p.Run(context.Background(), []grouping.SizeGroup{sizeGroup(t, a, b)})
		require.NoError(t, err)
		require.Len(t, dups, 1)
		assert.Equal(t, uint64(18), dups[0].Size)
		assert.ElementsMatch(t, []string{a, b}, dups[0].Files)

		// files no larger than the head are read once
		assert.Equal(t, uint64(2), p.Stats().PartialDigests)
		assert.Equal(t, uint64(0), p.Stats().FullDigests)
		assert.Equal(t, uint64(36), p.Stats().BytesRead)
	})

	t.Run("identical pair larger than head", func(t *testing.T) {
		dir := t.TempDir()
		content := bytes.Repeat([]byte("0123456789abcdef"), PartialSize/8)
		a := writeFile(t, dir, "a.bin", content)
		b := writeFile(t, dir, "b.bin", content)

		p := New(testLog(), Options{Jobs: 2})
		dups, err := p.Run(context.Background(), []grouping.SizeGroup{sizeGroup(t, a, b)})
		require.NoError(t, err)
		require.Len(t, dups, 1)
		assert.Equal(t, uint64(2), p.Stats().FullDigests)
	})

	t.Run("equal size distinct content", func(t *testing.T) {
		dir := t.TempDir()
		a := writeFile(t, dir, "a.txt", []byte("content aaa"))
		b := writeFile(t, dir, "b.txt", []byte("content bbb"))
		c := writeFile(t, dir, "c.txt", []byte("content ccc"))

		p := New(testLog(), Options{Jobs: 2})
		dups, err := p.Run(context.Background(), []grouping.SizeGroup{sizeGroup(t, a, b, c)})
		require.NoError(t, err)
		assert.Empty(t, dups)
	})

	t.Run("shared head differing tail", func(t *testing.T) {
		dir := t.TempDir()
		head := bytes.Repeat([]byte{'x'}, PartialSize)
		a := writeFile(t, dir, "a.bin", append(append([]byte{}, head...), bytes.Repeat([]byte{'1'}, PartialSize)...))
		b := writeFile(t, dir, "b.bin", append(append([]byte{}, head...), bytes.Repeat([]byte{'2'}, PartialSize)...))

		p := New(testLog(), Options{Jobs: 2})
		dups, err := p.Run(context.Background(), []grouping.SizeGroup{sizeGroup(t, a, b)})
		require.NoError(t, err)
		assert.Empty(t, dups)

		stats := p.Stats()
		assert.Equal(t, uint64(2), stats.PartialDigests)
		assert.Equal(t, uint64(2), stats.FullDigests)
	})

	t.Run("partial rejects differing heads without full read", func(t *testing.T) {
		dir := t.TempDir()
		a := writeFile(t, dir, "a.bin", bytes.Repeat([]byte{'a'}, 2*PartialSize))
		b := writeFile(t, dir, "b.bin", bytes.Repeat([]byte{'b'}, 2*PartialSize))

		p := New(testLog(), Options{Jobs: 1})
		dups, err := p.Run(context.Background(), []grouping.SizeGroup{sizeGroup(t, a, b)})
		require.NoError(t, err)
		assert.Empty(t, dups)
		assert.Equal(t, uint64(0), p.Stats().FullDigests)
		assert.Equal(t, uint64(2*PartialSize), p.Stats().BytesRead)
	})

	t.Run("vanished file is dropped silently", func(t *testing.T) {
		dir := t.TempDir()
		a := writeFile(t, dir, "a.txt", []byte("same bytes"))
		b := writeFile(t, dir, "b.txt", []byte("same bytes"))
		c := writeFile(t, dir, "c.txt", []byte("same bytes"))
		g := sizeGroup(t, a, b, c)
		require.NoError(t, os.Remove(c))

		p := New(testLog(), Options{})
		dups, err := p.Run(context.Background(), []grouping.SizeGroup{g})
		require.NoError(t, err)
		require.Len(t, dups, 1)
		assert.ElementsMatch(t, []string{a, b}, dups[0].Files)
		assert.Equal(t, uint64(1), p.Stats().Unreadable)
	})
}

func TestPipeline_ManyGroupsAreDisjoint(t *testing.T) {
	dir := t.TempDir()

	var groups []grouping.SizeGroup
	for size := 1; size <= 20; size++ {
		content := bytes.Repeat([]byte{byte('a' + size%26)}, size)
		other := bytes.Repeat([]byte{byte('A' + size%26)}, size)
		paths := []string{
			writeFile(t, dir, filepath.Join("s", string(rune('a'+size)), "1"), content),
			writeFile(t, dir, filepath.Join("s", string(rune('a'+size)), "2"), content),
			writeFile(t, dir, filepath.Join("s", string(rune('a'+size)), "3"), other),
		}
		groups = append(groups, sizeGroup(t, paths...))
	}

	var done atomic.Int64
	p := New(testLog(), Options{Jobs: 3, OnGroupDone: func(n int) { done.Add(int64(n)) }})
	dups, err := p.Run(context.Background(), groups)
	require.NoError(t, err)
	require.Len(t, dups, 20)
	assert.Equal(t, int64(60), done.Load())

	seen := make(map[string]bool)
	for _, d := range dups {
		require.Len(t, d.Files, 2)
		for _, f := range d.Files {
			assert.False(t, seen[f], "file %s appears in two groups", f)
			seen[f] = true

			info, err := os.Stat(f)
			require.NoError(t, err)
			assert.Equal(t, d.Size, uint64(info.Size()))
		}

		first, err := Full(d.Files[0])
		require.NoError(t, err)
		second, err := Full(d.Files[1])
		require.NoError(t, err)
		assert.Equal(t, first, second)
	}
}

func TestPipeline_CancelledBeforeStart(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.txt", []byte("dup"))
	b := writeFile(t, dir, "b.txt", []byte("dup"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := New(testLog(), Options{Jobs: 1})
	dups, err := p.Run(ctx, []grouping.SizeGroup{sizeGroup(t, a, b)})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, dups)
}

func TestPipeline_BoundsGoroutines(t *testing.T) {
	dir := t.TempDir()

	var groups []grouping.SizeGroup
	for i := 0; i < 400; i++ {
		name := filepath.Join("g", strconv.Itoa(i))
		content := bytes.Repeat([]byte{'x'}, i+1)
		groups = append(groups, sizeGroup(t,
			writeFile(t, dir, filepath.Join(name, "a"), content),
			writeFile(t, dir, filepath.Join(name, "b"), content),
		))
	}

	baseline := runtime.NumGoroutine()
	var peak atomic.Int64
	sample := func(int) {
		n := int64(runtime.NumGoroutine())
		for {
			cur := peak.Load()
			if n <= cur || peak.CompareAndSwap(cur, n) {
				return
			}
		}
	}

	p := New(testLog(), Options{Jobs: 2, OnGroupDone: sample})
	dups, err := p.Run(context.Background(), groups)
	require.NoError(t, err)
	assert.Len(t, dups, 400)

	// two digest workers plus a handful of groups in flight
	assert.Less(t, peak.Load(), int64(baseline+20))
}

func TestNewKey_IsRandom(t *testing.T) {
	a, b := newKey(), newKey()
	assert.Len(t, a, 32)
	assert.NotEqual(t, a, b)
}

func TestPipeline_JobsDefaultsToCPUs(t *testing.T) {
	assert.Equal(t, 4, New(testLog(), Options{Jobs: 4}).Jobs())
	assert.Greater(t, New(testLog(), Options{}).Jobs(), 0)
}
