package index

import (
	"encoding/json"
	"fmt"
	"os"
)

// SaveSnapshot persists the normalized corpus to a JSON file. Raw file
// content is not written.
func SaveSnapshot(c *Corpus, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create snapshot file: %w", err)
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(c); err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot loads a corpus from a JSON file.
func LoadSnapshot(path string) (*Corpus, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot file: %w", err)
	}
	defer f.Close()

	c := &Corpus{}
	decoder := json.NewDecoder(f)
	if err := decoder.Decode(c); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}

	if err := c.rebuildIndices(); err != nil {
		return nil, fmt.Errorf("invalid snapshot: %w", err)
	}
	return c, nil
}
