package config

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed presets.yaml
var presetsYAML []byte

// Preset is a known benchmark project layout.
type Preset struct {
	Name       string `yaml:"name"`
	SourceRoot string `yaml:"source_root"`
	BugsPath   string `yaml:"bugs_path"`
	Stem       bool   `yaml:"stem"`
}

// Presets returns the built-in project presets.
func Presets() ([]Preset, error) {
	var doc struct {
		Presets []Preset `yaml:"presets"`
	}
	if err := yaml.Unmarshal(presetsYAML, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode presets: %w", err)
	}
	return doc.Presets, nil
}

// LookupPreset finds a preset by case-insensitive name.
func LookupPreset(name string) (Preset, bool, error) {
	presets, err := Presets()
	if err != nil {
		return Preset{}, false, err
	}
	for _, p := range presets {
		if strings.EqualFold(p.Name, name) {
			return p, true, nil
		}
	}
	return Preset{}, false, nil
}

// applyPreset fills unset project paths from the preset named by the project.
func applyPreset(cfg *Config) error {
	if cfg.Project.Name == "" {
		return nil
	}
	p, ok, err := LookupPreset(cfg.Project.Name)
	if err != nil || !ok {
		return err
	}
	if cfg.Project.SourceRoot == "" {
		cfg.Project.SourceRoot = p.SourceRoot
	}
	if cfg.Project.BugsPath == "" {
		cfg.Project.BugsPath = p.BugsPath
	}
	return nil
}
