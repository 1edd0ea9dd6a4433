// Package features computes the 13-feature vector of a (bug report, source
// file) pair.
package features

import "strconv"

// NumFeatures is the width of a feature vector.
const NumFeatures = 13

// Vector is the feature row of one candidate pair. Field order matches the
// column order feature_1..feature_13.
type Vector struct {
	BugIndex  int
	FileIndex int

	TextSimilarity         float64 // 1: bug content vs file content
	CollaborativeFiltering float64 // 2: earlier fixing reports vs bug content
	ClassNameOverlap       float64 // 3
	FixRecency             float64 // 4
	FixFrequency           float64 // 5
	SummaryClassNames      float64 // 6
	SummaryMethodNames     float64 // 7
	SummaryVariables       float64 // 8
	SummaryComments        float64 // 9
	DescriptionClassNames  float64 // 10
	DescriptionMethodNames float64 // 11
	DescriptionVariables   float64 // 12
	DescriptionComments    float64 // 13

	Label int
}

// Values returns the features in column order.
func (v *Vector) Values() [NumFeatures]float64 {
	return [NumFeatures]float64{
		v.TextSimilarity,
		v.CollaborativeFiltering,
		v.ClassNameOverlap,
		v.FixRecency,
		v.FixFrequency,
		v.SummaryClassNames,
		v.SummaryMethodNames,
		v.SummaryVariables,
		v.SummaryComments,
		v.DescriptionClassNames,
		v.DescriptionMethodNames,
		v.DescriptionVariables,
		v.DescriptionComments,
	}
}

// FromValues builds a vector from features in column order.
func FromValues(bug, file int, values [NumFeatures]float64, label int) Vector {
	return Vector{
		BugIndex:               bug,
		FileIndex:              file,
		TextSimilarity:         values[0],
		CollaborativeFiltering: values[1],
		ClassNameOverlap:       values[2],
		FixRecency:             values[3],
		FixFrequency:           values[4],
		SummaryClassNames:      values[5],
		SummaryMethodNames:     values[6],
		SummaryVariables:       values[7],
		SummaryComments:        values[8],
		DescriptionClassNames:  values[9],
		DescriptionMethodNames: values[10],
		DescriptionVariables:   values[11],
		DescriptionComments:    values[12],
		Label:                  label,
	}
}

// Columns returns the table header: bug_index, file_index, feature_1..13, label.
func Columns() []string {
	cols := make([]string, 0, NumFeatures+3)
	cols = append(cols, "bug_index", "file_index")
	for i := 1; i <= NumFeatures; i++ {
		cols = append(cols, "feature_"+strconv.Itoa(i))
	}
	return append(cols, "label")
}
