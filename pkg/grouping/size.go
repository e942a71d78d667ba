package grouping

// Stats summarises the size partitioning stage.
type Stats struct {
	TotalFiles      int
	CandidateGroups int
	CandidateFiles  int
}

// BySize groups records by exact size and keeps only sizes shared by two or
// more files.
func BySize(records []FileRecord) ([]SizeGroup, Stats) {
	stats := Stats{TotalFiles: len(records)}

	partition := PartitionBy(records, func(r FileRecord) (uint64, bool) {
		return r.Size, true
	})

	groups := make([]SizeGroup, 0, len(partition))
	for size, members := range partition {
		if len(members) < 2 {
			continue
		}

		groups = append(groups, SizeGroup{Size: size, Members: members})
		stats.CandidateGroups++
		stats.CandidateFiles += len(members)
	}

	return groups, stats
}
