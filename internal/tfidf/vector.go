package tfidf

import (
	"fmt"
	"math"
)

// Vector is a sparse, L2-normalized term vector. Indices are ascending.
type Vector struct {
	Indices []int
	Values  []float64
}

// IsZero reports whether the vector has no weight.
func (v Vector) IsZero() bool {
	return len(v.Indices) == 0
}

func (v *Vector) normalize() {
	var sum float64
	for _, x := range v.Values {
		sum += x * x
	}
	if sum == 0 {
		return
	}
	norm := math.Sqrt(sum)
	for i := range v.Values {
		v.Values[i] /= norm
	}
}

// Cosine returns the dot product of two normalized vectors, clamped to
// [0, 1]. A non-finite result is reported as an error.
func Cosine(a, b Vector) (float64, error) {
	var dot float64
	for i, j := 0, 0; i < len(a.Indices) && j < len(b.Indices); {
		switch {
		case a.Indices[i] < b.Indices[j]:
			i++
		case a.Indices[i] > b.Indices[j]:
			j++
		default:
			dot += a.Values[i] * b.Values[j]
			i++
			j++
		}
	}
	if math.IsNaN(dot) || math.IsInf(dot, 0) {
		return 0, fmt.Errorf("non-finite similarity %v", dot)
	}
	return math.Min(math.Max(dot, 0), 1), nil
}
