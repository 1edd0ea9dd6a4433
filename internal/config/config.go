package config

import (
	"errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// ProjectSettings names the project and where its inputs live.
type ProjectSettings struct {
	Name       string `mapstructure:"name"`
	SourceRoot string `mapstructure:"source_root"`
	BugsPath   string `mapstructure:"bugs_path"`
	Stem       bool   `mapstructure:"stem"`
}

// PipelineSettings tune the feature build.
type PipelineSettings struct {
	Workers          int  `mapstructure:"workers"`
	Negatives        int  `mapstructure:"negatives"`
	StrictResolution bool `mapstructure:"strict_resolution"`
}

// OutputSettings name the files a run writes. Empty paths are skipped.
type OutputSettings struct {
	CSV      string `mapstructure:"csv"`
	DB       string `mapstructure:"db"`
	Manifest string `mapstructure:"manifest"`
	Snapshot string `mapstructure:"snapshot"`
}

// LogSettings select the slog handler.
type LogSettings struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Config is the resolved configuration of one run.
type Config struct {
	Project  ProjectSettings  `mapstructure:"project"`
	Pipeline PipelineSettings `mapstructure:"pipeline"`
	Output   OutputSettings   `mapstructure:"output"`
	Log      LogSettings      `mapstructure:"log"`
}

// flagKeys maps CLI flag names to config keys.
var flagKeys = map[string]string{
	"project":           "project.name",
	"source-root":       "project.source_root",
	"bugs":              "project.bugs_path",
	"stem":              "project.stem",
	"workers":           "pipeline.workers",
	"negatives":         "pipeline.negatives",
	"strict-resolution": "pipeline.strict_resolution",
	"csv":               "output.csv",
	"db":                "output.db",
	"manifest":          "output.manifest",
	"snapshot":          "output.snapshot",
	"log-level":         "log.level",
	"log-format":        "log.format",
}

// Load resolves the configuration.
// Priority: CLI flags > BUGLOC_* environment variables > YAML file > defaults.
// A .env file in the working directory is loaded into the environment first.
// path may be empty; flags may be nil.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	// 1. Load .env if exists
	_ = godotenv.Load()

	v := viper.New()

	// Default values
	v.SetDefault("project.name", "")
	v.SetDefault("project.source_root", "")
	v.SetDefault("project.bugs_path", "")
	v.SetDefault("project.stem", true)
	v.SetDefault("pipeline.workers", runtime.NumCPU())
	v.SetDefault("pipeline.negatives", 300)
	v.SetDefault("pipeline.strict_resolution", true)
	v.SetDefault("output.csv", "features.csv")
	v.SetDefault("output.db", "")
	v.SetDefault("output.manifest", "")
	v.SetDefault("output.snapshot", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	// 2. Load YAML config
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// 3. Override with environment variables
	v.SetEnvPrefix("BUGLOC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 4. Bind CLI flags if provided (highest priority)
	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				_ = v.BindPFlag(key, f)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := applyPreset(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// RegisterFlags adds the flags Load understands to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("project", "", "Project name; a preset name fills in its paths")
	fs.String("source-root", "", "Root directory of the project's Java sources")
	fs.String("bugs", "", "Tab-separated bug report table")
	fs.Bool("stem", true, "Apply Porter stemming during normalization")
	fs.Int("workers", runtime.NumCPU(), "Number of concurrent workers")
	fs.Int("negatives", 300, "Negatives sampled per bug report")
	fs.Bool("strict-resolution", true, "Abort when a fixed file is missing from the corpus")
	fs.String("csv", "features.csv", "Feature table CSV output")
	fs.String("db", "", "SQLite feature store (optional)")
	fs.String("manifest", "", "YAML run manifest (optional)")
	fs.String("snapshot", "", "JSON corpus snapshot to reuse or create (optional)")
	fs.String("log-level", "info", "Log level: debug, info, warn, error")
	fs.String("log-format", "text", "Log format: text or json")
}

// Validate checks that the configuration can drive a run.
func Validate(cfg *Config) error {
	if cfg.Project.SourceRoot == "" {
		return errors.New("project source root is required (source-root)")
	}
	if cfg.Project.BugsPath == "" {
		return errors.New("bug report table is required (bugs)")
	}
	if cfg.Pipeline.Workers <= 0 {
		return errors.New("workers must be positive")
	}
	if cfg.Pipeline.Negatives <= 0 {
		return errors.New("negatives must be positive")
	}
	if _, err := parseLevel(cfg.Log.Level); err != nil {
		return err
	}
	switch cfg.Log.Format {
	case "text", "json":
		// valid
	default:
		return errors.New("log format must be 'text' or 'json', got: " + cfg.Log.Format)
	}
	return nil
}
