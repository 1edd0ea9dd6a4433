package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"bugloc/internal/config"
	"bugloc/internal/corpus"
	"bugloc/internal/crawler"
	"bugloc/internal/extractor"
	"bugloc/internal/index"
	"bugloc/internal/pipeline"
	"bugloc/internal/storage"
)

var (
	rootCmd = &cobra.Command{
		Use:   "bugloc",
		Short: "Bug localization feature builder for Java projects",
	}
	configPath string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a YAML config file")

	config.RegisterFlags(buildCmd.Flags())
	runsCmd.Flags().String("db", "bugloc.db", "SQLite feature store")

	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(presetsCmd)
	rootCmd.AddCommand(runsCmd)
}

// loadConfig resolves and validates the settings of a build.
func loadConfig(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(configPath, cmd.Flags())
	if err != nil {
		return nil, nil, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}
	logger, err := config.NewLogger(cfg.Log, os.Stderr)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the labeled feature table of a project",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		config.LogWithLogger(cfg, logger)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		input, err := loadInput(cfg)
		if err != nil {
			log.Fatalf("Failed to load project: %v", err)
		}

		fmt.Println("🚀 Computing features...")
		start := time.Now()
		driver := pipeline.New(cfg, logger)
		if err := driver.Run(ctx, input); err != nil {
			if !driver.Report().Interrupted {
				log.Fatalf("Build failed: %v", err)
			}
			fmt.Println("⚠️  Interrupted, writing the rows computed so far.")
		}

		report := driver.Report()
		fmt.Printf("✅ Features built in %v. Rows=%d (positives=%d)\n", time.Since(start), report.Rows, report.Positives)
		if report.DegradedFiles > 0 || report.SkippedPairs > 0 || len(report.DroppedBugs) > 0 {
			fmt.Printf("  -> Degraded files: %d, skipped pairs: %d, dropped bugs: %d\n",
				report.DegradedFiles, report.SkippedPairs, len(report.DroppedBugs))
		}

		if err := writeOutputs(context.Background(), cfg, driver, input.Corpus == nil); err != nil {
			log.Fatalf("Failed to write outputs: %v", err)
		}
		fmt.Println("🎉 Build complete!")
	},
}

// loadInput discovers the sources and reads the bug table, then reuses the
// corpus snapshot when it still matches them.
func loadInput(cfg *config.Config) (pipeline.Input, error) {
	fmt.Printf("📂 Scanning sources: %s\n", cfg.Project.SourceRoot)
	paths, err := crawler.Discover(cfg.Project.SourceRoot)
	if err != nil {
		return pipeline.Input{}, err
	}
	bugs, err := corpus.LoadBugReports(cfg.Project.BugsPath)
	if err != nil {
		return pipeline.Input{}, err
	}
	fmt.Printf("📝 Found %d Java files and %d bug reports.\n", len(paths), len(bugs))

	input := pipeline.Input{Root: cfg.Project.SourceRoot, Paths: paths, Bugs: bugs}
	if cfg.Output.Snapshot == "" {
		return input, nil
	}
	if _, err := os.Stat(cfg.Output.Snapshot); err != nil {
		return input, nil
	}

	fmt.Printf("🔄 Loading corpus snapshot %s...\n", cfg.Output.Snapshot)
	c, err := index.LoadSnapshot(cfg.Output.Snapshot)
	if err != nil {
		return pipeline.Input{}, err
	}
	opts := index.Options{Root: cfg.Project.SourceRoot, Stem: cfg.Project.Stem}
	if err := c.Verify(opts, paths, bugs); err != nil {
		if !errors.Is(err, index.ErrStaleSnapshot) {
			return pipeline.Input{}, err
		}
		fmt.Printf("⚠️  %v, rebuilding the corpus.\n", err)
		return input, nil
	}
	input.Corpus = c
	return input, nil
}

func writeOutputs(ctx context.Context, cfg *config.Config, driver *pipeline.Driver, saveSnapshot bool) error {
	table, err := driver.Table()
	if err != nil {
		return err
	}
	digest, err := storage.Digest(table)
	if err != nil {
		return err
	}
	run := storage.Run{
		ID:        uuid.NewString(),
		Project:   cfg.Project.Name,
		CreatedAt: time.Now().UTC(),
		Rows:      table.Len(),
		Digest:    digest,
	}

	if cfg.Output.CSV != "" {
		if err := storage.WriteCSVFile(cfg.Output.CSV, table); err != nil {
			return err
		}
		fmt.Printf("💾 Table written to %s\n", cfg.Output.CSV)
	}

	if cfg.Output.DB != "" {
		store, err := storage.NewSQLiteStore(cfg.Output.DB)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		defer store.Close()
		if err := store.SaveTable(ctx, run, table); err != nil {
			return err
		}
		fmt.Printf("💾 Run %s saved to %s\n", run.ID, cfg.Output.DB)
	}

	if cfg.Output.Manifest != "" {
		report := driver.Report()
		m := &storage.Manifest{
			RunID:          run.ID,
			Project:        run.Project,
			CreatedAt:      run.CreatedAt,
			Files:          report.Files,
			Bugs:           report.Bugs,
			DegradedFiles:  report.DegradedFiles,
			VocabularySize: report.VocabularySize,
			Rows:           report.Rows,
			Positives:      report.Positives,
			SkippedPairs:   report.SkippedPairs,
			DroppedBugs:    report.DroppedBugs,
			Interrupted:    report.Interrupted,
			Digest:         digest,
		}
		if err := storage.WriteManifest(cfg.Output.Manifest, m); err != nil {
			return err
		}
	}

	if saveSnapshot && cfg.Output.Snapshot != "" {
		c, err := driver.Corpus()
		if err != nil {
			return err
		}
		if err := index.SaveSnapshot(c, cfg.Output.Snapshot); err != nil {
			return err
		}
		fmt.Printf("💾 Corpus snapshot written to %s\n", cfg.Output.Snapshot)
	}
	return nil
}

var inspectCmd = &cobra.Command{
	Use:   "inspect [file]",
	Short: "Print the structural facts of a Java file, a run manifest or a corpus snapshot, as JSON",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		path := args[0]

		var out any
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			m, err := storage.ReadManifest(path)
			if err != nil {
				log.Fatalf("Failed to read manifest: %v", err)
			}
			out = m
		case ".json":
			summary, err := summarizeSnapshot(path)
			if err != nil {
				log.Fatalf("Failed to read snapshot: %v", err)
			}
			out = summary
		default:
			ext, err := extractor.NewExtractor("java")
			if err != nil {
				log.Fatalf("Failed to create extractor: %v", err)
			}
			res, err := ext.ExtractFromFile(cmd.Context(), path)
			if err != nil {
				log.Fatalf("Failed to extract %s: %v", path, err)
			}
			out = res
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			log.Fatalf("Failed to encode result: %v", err)
		}
	},
}

// snapshotSummary is what inspect prints for a corpus snapshot.
type snapshotSummary struct {
	Root       string   `json:"root"`
	Stem       bool     `json:"stem"`
	Files      int      `json:"files"`
	Bugs       int      `json:"bugs"`
	Degraded   int      `json:"degraded_files"`
	Vocabulary []string `json:"vocabulary"`
}

func summarizeSnapshot(path string) (*snapshotSummary, error) {
	c, err := index.LoadSnapshot(path)
	if err != nil {
		return nil, err
	}
	vocab, err := c.Vocabulary()
	if err != nil {
		return nil, err
	}
	return &snapshotSummary{
		Root:       c.Root,
		Stem:       c.Stem,
		Files:      c.NumSources(),
		Bugs:       c.NumBugs(),
		Degraded:   c.Degraded(),
		Vocabulary: vocab,
	}, nil
}

var presetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "List the built-in project presets",
	Run: func(cmd *cobra.Command, args []string) {
		presets, err := config.Presets()
		if err != nil {
			log.Fatalf("Failed to load presets: %v", err)
		}
		for _, p := range presets {
			fmt.Printf("%-10s stem=%-5t sources=%s bugs=%s\n", p.Name, p.Stem, p.SourceRoot, p.BugsPath)
		}
	},
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List the runs stored in a SQLite feature store",
	Run: func(cmd *cobra.Command, args []string) {
		dbPath, _ := cmd.Flags().GetString("db")
		if _, err := os.Stat(dbPath); errors.Is(err, os.ErrNotExist) {
			log.Fatalf("No feature store at %s", dbPath)
		}

		store, err := storage.NewSQLiteStore(dbPath)
		if err != nil {
			log.Fatalf("Failed to initialize database: %v", err)
		}
		defer store.Close()

		runs, err := store.Runs(cmd.Context())
		if err != nil {
			log.Fatalf("Failed to list runs: %v", err)
		}
		if len(runs) == 0 {
			fmt.Println("No runs stored.")
			return
		}
		for _, r := range runs {
			fmt.Printf("%s  %-10s %s  rows=%d digest=%s\n",
				r.ID, r.Project, r.CreatedAt.Format(time.RFC3339), r.Rows, r.Digest)
		}
	},
}
