package tfidf

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
)

// Matrix holds the similarity of every bug to every file, bugs by rows.
// Storage is dense: bugs x files float64 values.
type Matrix struct {
	dense *mat.Dense
}

// At returns the similarity of bug to file.
func (m *Matrix) At(bug, file int) float64 {
	return m.dense.At(bug, file)
}

// Dims returns the number of bugs and files.
func (m *Matrix) Dims() (bugs, files int) {
	return m.dense.Dims()
}

// Row returns a copy of the similarities of one bug to all files.
func (m *Matrix) Row(bug int) []float64 {
	return mat.Row(nil, bug, m.dense)
}

// posting is one file's weight for a term.
type posting struct {
	file   int
	weight float64
}

// BulkSimilarity computes the cosine similarity of every bug text to every
// file text in one pass. File vectors are inverted into per-term posting
// lists; each bug row is then accumulated by walking the bug's terms in
// index order, so every cell is summed in the same order on every run.
func (m *Model) BulkSimilarity(ctx context.Context, bugs, files []string, workers int) (*Matrix, error) {
	if m == nil || m.vocab == nil {
		return nil, ErrNotFitted
	}
	if len(bugs) == 0 || len(files) == 0 {
		return nil, fmt.Errorf("similarity matrix needs bugs and files, got %dx%d", len(bugs), len(files))
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	fileVecs := make([]Vector, len(files))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, text := range files {
		i, text := i, text
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			v, err := m.Transform(text)
			if err != nil {
				return err
			}
			fileVecs[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	postings := make([][]posting, len(m.terms))
	for f, v := range fileVecs {
		for k, term := range v.Indices {
			postings[term] = append(postings[term], posting{file: f, weight: v.Values[k]})
		}
	}

	dense := mat.NewDense(len(bugs), len(files), nil)
	g, gCtx = errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for b, text := range bugs {
		b, text := b, text
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			v, err := m.Transform(text)
			if err != nil {
				return err
			}
			// Rows are disjoint, so workers write without locking.
			row := dense.RawRowView(b)
			for k, term := range v.Indices {
				w := v.Values[k]
				for _, p := range postings[term] {
					row[p.file] += w * p.weight
				}
			}
			for f, x := range row {
				if x > 1 {
					row[f] = 1
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &Matrix{dense: dense}, nil
}
