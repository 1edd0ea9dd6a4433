// Package tfidf implements the vector space model used to compare bug
// reports with source files: sublinear term frequency, unsmoothed inverse
// document frequency and L2-normalized vectors compared by dot product.
package tfidf

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
)

var (
	// ErrNotFitted is returned when a model is used before Fit.
	ErrNotFitted = errors.New("tfidf model not fitted")
	// ErrEmptyVocabulary is returned when the fitted documents contain no terms.
	ErrEmptyVocabulary = errors.New("empty vocabulary")
)

// Terms are runs of two or more word characters.
var termPattern = regexp.MustCompile(`[\p{L}\p{N}_]{2,}`)

// Model is a fitted vectorizer. It is read-only after Fit and safe for
// concurrent use.
type Model struct {
	vocab map[string]int
	terms []string
	idf   []float64
	docs  int
}

// Fit learns the vocabulary and document frequencies of docs. A term found
// in df of n documents gets idf = ln(n/df) + 1.
func Fit(docs []string) (*Model, error) {
	df := make(map[string]int)
	for _, doc := range docs {
		seen := make(map[string]struct{})
		for _, term := range tokenize(doc) {
			if _, ok := seen[term]; ok {
				continue
			}
			seen[term] = struct{}{}
			df[term]++
		}
	}
	if len(df) == 0 {
		return nil, fmt.Errorf("fit over %d documents: %w", len(docs), ErrEmptyVocabulary)
	}

	terms := make([]string, 0, len(df))
	for term := range df {
		terms = append(terms, term)
	}
	sort.Strings(terms)

	m := &Model{
		vocab: make(map[string]int, len(terms)),
		terms: terms,
		idf:   make([]float64, len(terms)),
		docs:  len(docs),
	}
	n := float64(len(docs))
	for i, term := range terms {
		m.vocab[term] = i
		m.idf[i] = math.Log(n/float64(df[term])) + 1
	}
	return m, nil
}

// VocabularySize returns the number of fitted terms.
func (m *Model) VocabularySize() int {
	if m == nil {
		return 0
	}
	return len(m.terms)
}

// Documents returns the number of documents the model was fitted on.
func (m *Model) Documents() int {
	if m == nil {
		return 0
	}
	return m.docs
}

// termIDF returns the inverse document frequency of term.
func (m *Model) termIDF(term string) (float64, bool) {
	if m == nil {
		return 0, false
	}
	i, ok := m.vocab[term]
	if !ok {
		return 0, false
	}
	return m.idf[i], true
}

// Transform maps text to its normalized TF-IDF vector. Terms outside the
// vocabulary carry no weight; text without known terms yields the zero
// vector.
func (m *Model) Transform(text string) (Vector, error) {
	if m == nil || m.vocab == nil {
		return Vector{}, ErrNotFitted
	}

	counts := make(map[int]int)
	for _, term := range tokenize(text) {
		if i, ok := m.vocab[term]; ok {
			counts[i]++
		}
	}
	if len(counts) == 0 {
		return Vector{}, nil
	}

	v := Vector{
		Indices: make([]int, 0, len(counts)),
		Values:  make([]float64, 0, len(counts)),
	}
	for i := range counts {
		v.Indices = append(v.Indices, i)
	}
	sort.Ints(v.Indices)
	for _, i := range v.Indices {
		tf := 1 + math.Log(float64(counts[i]))
		v.Values = append(v.Values, tf*m.idf[i])
	}
	v.normalize()
	return v, nil
}

// Similarity returns the cosine similarity of a and b under the model.
func (m *Model) Similarity(a, b string) (float64, error) {
	va, err := m.Transform(a)
	if err != nil {
		return 0, err
	}
	vb, err := m.Transform(b)
	if err != nil {
		return 0, err
	}
	return Cosine(va, vb)
}

func tokenize(text string) []string {
	return termPattern.FindAllString(strings.ToLower(text), -1)
}
