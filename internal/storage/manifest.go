package storage

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Manifest describes one feature build.
type Manifest struct {
	RunID          string    `yaml:"run_id"`
	Project        string    `yaml:"project"`
	CreatedAt      time.Time `yaml:"created_at"`
	Files          int       `yaml:"files"`
	Bugs           int       `yaml:"bugs"`
	DegradedFiles  int       `yaml:"degraded_files"`
	VocabularySize int       `yaml:"vocabulary_size"`
	Rows           int       `yaml:"rows"`
	Positives      int       `yaml:"positives"`
	SkippedPairs   int       `yaml:"skipped_pairs"`
	DroppedBugs    []int     `yaml:"dropped_bugs,omitempty"`
	Interrupted    bool      `yaml:"interrupted"`
	Digest         string    `yaml:"digest"`
}

// WriteManifest writes m to path as YAML.
func WriteManifest(path string, m *Manifest) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}

// ReadManifest loads a manifest written by WriteManifest.
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to decode manifest: %w", err)
	}
	return &m, nil
}
