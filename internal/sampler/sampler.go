// Package sampler picks the labeled candidate files of each bug report: every
// fixed file as a positive and the least similar remaining files as
// negatives.
package sampler

import (
	"fmt"
	"sort"

	"bugloc/internal/index"
	"bugloc/internal/tfidf"
)

// DefaultNegatives is the number of negatives drawn per bug.
const DefaultNegatives = 300

// ResolutionError reports a fixed-file path with no matching source file.
type ResolutionError struct {
	BugIndex int
	Path     string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("bug %d: fixed file %s is not in the source corpus", e.BugIndex, e.Path)
}

// Candidate is one sampled file of a bug.
type Candidate struct {
	FileIndex int
	Label     int
}

// Sampler ranks negatives by the bulk similarity matrix.
type Sampler struct {
	matrix    *tfidf.Matrix
	corpus    *index.Corpus
	negatives int
}

// New creates a sampler drawing n negatives per bug.
func New(matrix *tfidf.Matrix, c *index.Corpus, n int) *Sampler {
	if n < 0 {
		n = 0
	}
	return &Sampler{matrix: matrix, corpus: c, negatives: n}
}

// Sample returns the positives of bug in ascending file order, followed by
// the min(n, non-fixed) files with the lowest similarity to the bug, also in
// ascending file order. Similarity ties are broken by the lower file index.
func (s *Sampler) Sample(bug int) ([]Candidate, error) {
	b := s.corpus.Bug(bug)

	positive := make(map[int]struct{}, len(b.FixedFiles))
	for _, path := range b.FixedFiles {
		i, ok := s.corpus.FileIndex(path)
		if !ok {
			return nil, &ResolutionError{BugIndex: bug, Path: path}
		}
		positive[i] = struct{}{}
	}

	out := make([]Candidate, 0, len(positive)+s.negatives)
	for i := range positive {
		out = append(out, Candidate{FileIndex: i, Label: 1})
	}
	sort.Slice(out, func(a, c int) bool { return out[a].FileIndex < out[c].FileIndex })

	sims := s.matrix.Row(bug)
	rest := make([]int, 0, len(sims)-len(positive))
	for i := range sims {
		if _, ok := positive[i]; !ok {
			rest = append(rest, i)
		}
	}
	sort.SliceStable(rest, func(a, c int) bool {
		return sims[rest[a]] < sims[rest[c]]
	})
	if len(rest) > s.negatives {
		rest = rest[:s.negatives]
	}
	sort.Ints(rest)

	for _, i := range rest {
		out = append(out, Candidate{FileIndex: i, Label: 0})
	}
	return out, nil
}
