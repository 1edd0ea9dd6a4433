package features

import (
	"errors"
	"fmt"

	"bugloc/internal/history"
	"bugloc/internal/index"
	"bugloc/internal/tfidf"
)

// ComputationError reports a failed feature computation for one pair.
type ComputationError struct {
	BugIndex  int
	FileIndex int
	Err       error
}

func (e *ComputationError) Error() string {
	return fmt.Sprintf("features for bug %d, file %d: %v", e.BugIndex, e.FileIndex, e.Err)
}

func (e *ComputationError) Unwrap() error {
	return e.Err
}

type bugVectors struct {
	content, summary, description tfidf.Vector
}

type fileVectors struct {
	classNames, methodNames, variables, comments tfidf.Vector
}

// Computer derives feature vectors from a fitted model, the bulk similarity
// matrix and the fix history. It only reads shared state and is safe for
// concurrent use.
type Computer struct {
	model   *tfidf.Model
	matrix  *tfidf.Matrix
	corpus  *index.Corpus
	history *history.Index

	bugs  []bugVectors
	files []fileVectors
}

// NewComputer transforms every bug text and file fact once up front.
func NewComputer(model *tfidf.Model, matrix *tfidf.Matrix, c *index.Corpus, hist *history.Index) (*Computer, error) {
	rows, cols := matrix.Dims()
	if rows != c.NumBugs() || cols != c.NumSources() {
		return nil, fmt.Errorf("similarity matrix is %dx%d, corpus has %d bugs and %d files",
			rows, cols, c.NumBugs(), c.NumSources())
	}

	comp := &Computer{
		model:   model,
		matrix:  matrix,
		corpus:  c,
		history: hist,
		bugs:    make([]bugVectors, c.NumBugs()),
		files:   make([]fileVectors, c.NumSources()),
	}

	var err error
	transform := func(text string) tfidf.Vector {
		if err != nil {
			return tfidf.Vector{}
		}
		var v tfidf.Vector
		v, err = model.Transform(text)
		return v
	}

	for i := range c.Bugs {
		b := c.Bug(i)
		comp.bugs[i] = bugVectors{
			content:     transform(b.NormContent),
			summary:     transform(b.NormSummary),
			description: transform(b.NormDescription),
		}
	}
	for i := range c.Sources {
		s := c.Source(i)
		comp.files[i] = fileVectors{
			classNames:  transform(s.NormClassNames),
			methodNames: transform(s.NormMethodNames),
			variables:   transform(s.NormVariables),
			comments:    transform(s.NormComments),
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to transform corpus: %w", err)
	}
	return comp, nil
}

// Compute builds the feature vector of (bug, file). Any failed similarity
// fails the whole pair with a *ComputationError.
func (c *Computer) Compute(bug, file int) (Vector, error) {
	fail := func(err error) (Vector, error) {
		return Vector{}, &ComputationError{BugIndex: bug, FileIndex: file, Err: err}
	}
	if bug < 0 || bug >= len(c.bugs) || file < 0 || file >= len(c.files) {
		return fail(errors.New("index out of range"))
	}

	b := c.corpus.Bug(bug)
	src := c.corpus.Source(file)
	bv, fv := &c.bugs[bug], &c.files[file]

	v := Vector{BugIndex: bug, FileIndex: file}
	v.TextSimilarity = c.matrix.At(bug, file)

	fixes := c.history.PreviousFixes(b, src.Path)
	if fixes.Text != "" {
		hv, err := c.model.Transform(fixes.Text)
		if err != nil {
			return fail(err)
		}
		if v.CollaborativeFiltering, err = tfidf.Cosine(hv, bv.content); err != nil {
			return fail(err)
		}
	}

	v.ClassNameOverlap = float64(ClassNameOverlap(b.Content(), src.ClassNames))
	v.FixRecency = Recency(fixes, b.ReportTime)
	v.FixFrequency = float64(fixes.Count)

	pairs := []struct {
		dst       *float64
		bug, file tfidf.Vector
	}{
		{&v.SummaryClassNames, bv.summary, fv.classNames},
		{&v.SummaryMethodNames, bv.summary, fv.methodNames},
		{&v.SummaryVariables, bv.summary, fv.variables},
		{&v.SummaryComments, bv.summary, fv.comments},
		{&v.DescriptionClassNames, bv.description, fv.classNames},
		{&v.DescriptionMethodNames, bv.description, fv.methodNames},
		{&v.DescriptionVariables, bv.description, fv.variables},
		{&v.DescriptionComments, bv.description, fv.comments},
	}
	for _, p := range pairs {
		s, err := tfidf.Cosine(p.bug, p.file)
		if err != nil {
			return fail(err)
		}
		*p.dst = s
	}

	if b.Fixes(src.Path) {
		v.Label = 1
	}
	return v, nil
}
