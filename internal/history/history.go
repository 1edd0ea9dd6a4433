// Package history answers which earlier bug reports fixed a given file.
package history

import (
	"strings"
	"time"

	"bugloc/internal/corpus"
)

// Fixes summarizes the earlier reports that fixed one file.
type Fixes struct {
	// Text is the normalized content of those reports, space-joined in
	// report index order.
	Text string
	// Last is the latest report time among them; zero when Count is 0.
	Last  time.Time
	Count int
}

// Index maps each fixed file path to the reports that fixed it.
type Index struct {
	bugs   []corpus.BugReport
	byPath map[string][]int
}

// New indexes bugs by the files they fixed. The slice must not be modified
// afterwards.
func New(bugs []corpus.BugReport) *Index {
	idx := &Index{
		bugs:   bugs,
		byPath: make(map[string][]int),
	}
	for i := range bugs {
		for _, path := range bugs[i].FixedFiles {
			idx.byPath[path] = append(idx.byPath[path], i)
		}
	}
	return idx
}

// PreviousFixes returns the reports other than bug that fixed path and were
// reported strictly before bug.
func (x *Index) PreviousFixes(bug *corpus.BugReport, path string) Fixes {
	var fixes Fixes
	var texts []string
	for _, i := range x.byPath[path] {
		if i == bug.Index {
			continue
		}
		prior := &x.bugs[i]
		if !prior.ReportTime.Before(bug.ReportTime) {
			continue
		}
		texts = append(texts, prior.NormContent)
		if fixes.Count == 0 || prior.ReportTime.After(fixes.Last) {
			fixes.Last = prior.ReportTime
		}
		fixes.Count++
	}
	fixes.Text = strings.Join(texts, " ")
	return fixes
}
