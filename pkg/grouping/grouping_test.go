package grouping

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rec(path string, size uint64) FileRecord {
	return FileRecord{Path: path, Size: size}
}

func TestBySize(t *testing.T) {
	tests := []struct {
		name          string
		records       []FileRecord
		expectedSizes map[uint64]int
		expectedStats Stats
	}{
		{
			name:          "empty input",
			records:       nil,
			expectedSizes: map[uint64]int{},
			expectedStats: Stats{},
		},
		{
			name:          "single file dropped",
			records:       []FileRecord{rec("/a.txt", 100)},
			expectedSizes: map[uint64]int{},
			expectedStats: Stats{TotalFiles: 1},
		},
		{
			name:          "all unique sizes",
			records:       []FileRecord{rec("/a", 1), rec("/b", 2), rec("/c", 3)},
			expectedSizes: map[uint64]int{},
			expectedStats: Stats{TotalFiles: 3},
		},
		{
			name: "mixed groups",
			records: []FileRecord{
				rec("/a", 100), rec("/b", 100), rec("/c", 100),
				rec("/d", 200), rec("/e", 200),
				rec("/f", 300),
			},
			expectedSizes: map[uint64]int{100: 3, 200: 2},
			expectedStats: Stats{TotalFiles: 6, CandidateGroups: 2, CandidateFiles: 5},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			groups, stats := BySize(tt.records)
			assert.Equal(t, tt.expectedStats, stats)

			sizes := make(map[uint64]int)
			for _, g := range groups {
				require.GreaterOrEqual(t, len(g.Members), 2, "singleton group leaked for size %d", g.Size)
				for _, m := range g.Members {
					assert.Equal(t, g.Size, m.Size)
				}
				sizes[g.Size] = len(g.Members)
			}
			assert.Equal(t, tt.expectedSizes, sizes)
		})
	}
}

func TestBySize_NeverEmitsSingletons(t *testing.T) {
	var records []FileRecord
	for i := 0; i < 200; i++ {
		// sizes 0..66 appear three times, some sizes once
		records = append(records, rec(string(rune('a'+i%26))+string(rune('0'+i%10)), uint64(i/3+i%2)))
	}

	groups, stats := BySize(records)
	total := 0
	for _, g := range groups {
		assert.GreaterOrEqual(t, len(g.Members), 2)
		total += len(g.Members)
	}
	assert.Equal(t, stats.CandidateFiles, total)
	assert.Equal(t, stats.CandidateGroups, len(groups))
}

func TestPartitionBy_DropsRejected(t *testing.T) {
	items := []string{"apple", "avocado", "banana", "blueberry", "cherry", "", "x"}

	p := PartitionBy(items, func(s string) (byte, bool) {
		if s == "" {
			return 0, false
		}
		return s[0], true
	})

	assert.ElementsMatch(t, []string{"apple", "avocado"}, p['a'])
	assert.ElementsMatch(t, []string{"banana", "blueberry"}, p['b'])
	assert.Len(t, p, 4)

	candidates := p.Candidates()
	require.Len(t, candidates, 2)
	flat := append(append([]string{}, candidates[0]...), candidates[1]...)
	sort.Strings(flat)
	assert.Equal(t, []string{"apple", "avocado", "banana", "blueberry"}, flat)
}

func TestDuplicateGroup_Wasted(t *testing.T) {
	assert.Equal(t, uint64(0), DuplicateGroup{Size: 10, Files: []string{"/a"}}.Wasted())
	assert.Equal(t, uint64(10), DuplicateGroup{Size: 10, Files: []string{"/a", "/b"}}.Wasted())
	assert.Equal(t, uint64(30), DuplicateGroup{Size: 10, Files: []string{"/a", "/b", "/c", "/d"}}.Wasted())
}

func TestSizeGroup_Paths(t *testing.T) {
	g := SizeGroup{Size: 5, Members: []FileRecord{rec("/x", 5), rec("/y", 5)}}
	assert.Equal(t, []string{"/x", "/y"}, g.Paths())
}
