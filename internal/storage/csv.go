package storage

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/cespare/xxhash/v2"

	"bugloc/internal/features"
)

// WriteCSV writes the table with a header row. Floats use the shortest
// representation that round-trips, so equal tables produce equal bytes.
func WriteCSV(w io.Writer, table *features.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(features.Columns()); err != nil {
		return err
	}

	record := make([]string, 0, features.NumFeatures+3)
	for i := range table.Rows {
		row := &table.Rows[i]
		record = append(record[:0], strconv.Itoa(row.BugIndex), strconv.Itoa(row.FileIndex))
		for _, v := range row.Values() {
			record = append(record, strconv.FormatFloat(v, 'g', -1, 64))
		}
		record = append(record, strconv.Itoa(row.Label))
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteCSVFile writes the table to path.
func WriteCSVFile(path string, table *features.Table) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create table file: %w", err)
	}
	if err := WriteCSV(f, table); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Digest is the xxhash of the table's CSV encoding, as 16 hex digits.
func Digest(table *features.Table) (string, error) {
	h := xxhash.New()
	if err := WriteCSV(h, table); err != nil {
		return "", err
	}
	return fmt.Sprintf("%016x", h.Sum64()), nil
}
