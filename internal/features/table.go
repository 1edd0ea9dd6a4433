package features

// Table is the labeled feature table of a project: one row per sampled
// pair, bug-major, positives before negatives within a bug.
type Table struct {
	Rows []Vector
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Positives counts rows labeled 1.
func (t *Table) Positives() int {
	n := 0
	for i := range t.Rows {
		if t.Rows[i].Label == 1 {
			n++
		}
	}
	return n
}
