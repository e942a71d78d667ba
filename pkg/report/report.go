// Package report renders duplicate groups and hardlink outcomes.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/pterm/pterm"

	"github.com/autobrr/dedup/pkg/grouping"
	"github.com/autobrr/dedup/pkg/hardlink"
)

type Stats struct {
	TotalFiles     int    `json:"total_files"`
	DuplicateFiles int    `json:"duplicate_files"`
	WastedBytes    uint64 `json:"wasted_bytes"`
}

type Report struct {
	Stats  Stats                     `json:"stats"`
	Groups []grouping.DuplicateGroup `json:"groups"`
}

var (
	headingStyle = pterm.NewStyle(pterm.Bold, pterm.Underscore)
	countStyle   = pterm.NewStyle(pterm.FgCyan)
	bytesStyle   = pterm.NewStyle(pterm.FgYellow)
	okStyle      = pterm.NewStyle(pterm.FgGreen)
	errorStyle   = pterm.NewStyle(pterm.FgRed)
)

// New builds a report over groups. totalFiles is the number of files scanned.
// Groups are ordered by wasted bytes, largest first, and the files in each
// group are sorted.
func New(groups []grouping.DuplicateGroup, totalFiles int) Report {
	r := Report{
		Stats:  Stats{TotalFiles: totalFiles},
		Groups: make([]grouping.DuplicateGroup, 0, len(groups)),
	}

	for _, g := range groups {
		files := append([]string(nil), g.Files...)
		sort.Strings(files)

		r.Groups = append(r.Groups, grouping.DuplicateGroup{Size: g.Size, Files: files})
		r.Stats.DuplicateFiles += len(files)
		r.Stats.WastedBytes += g.Wasted()
	}

	sort.SliceStable(r.Groups, func(i, j int) bool {
		wi, wj := r.Groups[i].Wasted(), r.Groups[j].Wasted()
		if wi != wj {
			return wi > wj
		}
		return firstFile(r.Groups[i]) < firstFile(r.Groups[j])
	})

	return r
}

func (r Report) HasDuplicates() bool {
	return len(r.Groups) > 0
}

// WriteJSON writes the report as indented JSON.
func (r Report) WriteJSON(w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(r); err != nil {
		return errors.Wrap(err, "encode report")
	}
	return nil
}

// WriteHuman writes the summary, and every group when verbose is set.
func (r Report) WriteHuman(w io.Writer, verbose bool) error {
	ew := &errWriter{w: w}

	ew.printf("\n%s\n", headingStyle.Sprint("Duplicate Report"))
	ew.printf("  Scanned: %s files\n", countStyle.Sprint(humanize.Comma(int64(r.Stats.TotalFiles))))
	ew.printf("  Duplicate files: %s\n", countStyle.Sprint(humanize.Comma(int64(r.Stats.DuplicateFiles))))
	ew.printf("  Wasted space: %s\n", bytesStyle.Sprint(humanize.IBytes(r.Stats.WastedBytes)))

	if !r.HasDuplicates() {
		ew.printf("\n%s\n", okStyle.Sprint("No duplicates found."))
		return ew.err
	}

	if !verbose {
		return ew.err
	}

	for i, g := range r.Groups {
		ew.printf("\n%s %s (%s each)\n",
			pterm.Bold.Sprintf("Group %s:", humanize.Comma(int64(i+1))),
			countStyle.Sprintf("%s files", humanize.Comma(int64(len(g.Files)))),
			bytesStyle.Sprint(humanize.IBytes(g.Size)))

		for _, f := range g.Files {
			ew.printf("  %s\n", f)
		}
	}

	return ew.err
}

// WriteOutcome prints the hardlink summary to stdout and any failures to
// stderr.
func WriteOutcome(stdout, stderr io.Writer, outcome hardlink.Outcome, dryRun bool) error {
	out := &errWriter{w: stdout}
	if dryRun {
		out.printf("\n[dry-run] Would link %s files, saving %s\n",
			humanize.Comma(int64(outcome.FilesLinked)), humanize.IBytes(outcome.BytesReclaimed))
	} else {
		out.printf("\nLinked %s files, saved %s\n",
			humanize.Comma(int64(outcome.FilesLinked)), humanize.IBytes(outcome.BytesReclaimed))
	}
	if out.err != nil {
		return out.err
	}

	if len(outcome.Failures) == 0 {
		return nil
	}

	errOut := &errWriter{w: stderr}
	errOut.printf("\n%s\n", errorStyle.Sprintf("Errors (%d):", len(outcome.Failures)))
	for _, f := range outcome.Failures {
		errOut.printf("  %s: %s\n", f.Path, f.Err)
	}
	return errOut.err
}

/* Private */

func firstFile(g grouping.DuplicateGroup) string {
	if len(g.Files) == 0 {
		return ""
	}
	return g.Files[0]
}

// errWriter keeps the first write error and drops later writes.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}
