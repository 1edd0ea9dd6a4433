package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bugloc/internal/config"
	"bugloc/internal/corpus"
	"bugloc/internal/crawler"
	"bugloc/internal/features"
	"bugloc/internal/history"
	"bugloc/internal/index"
	"bugloc/internal/sampler"
	"bugloc/internal/storage"
	"bugloc/internal/tfidf"
)

var toyFiles = map[string]string{
	"org/demo/AxisRenderer.java": `package org.demo;

import java.awt.Graphics;

/** Paints the chart axis and its tick labels. */
public class AxisRenderer {
    private int tickCount;

    public void paintAxis(Graphics g) {
        int spacing = 10;
        g.drawLine(0, 0, tickCount * spacing, 0);
    }
}`,
	"org/demo/ReportLoader.java": `package org.demo;

import java.io.File;

/** Reads report definitions from disk. */
public class ReportLoader {
    private File directory;

    public String loadReport(String name) {
        File target = new File(directory, name);
        return target.getPath();
    }
}`,
	"org/demo/ReportCache.java": `package org.demo;

import java.util.HashMap;
import java.util.Map;

/** Keeps loaded reports in memory. */
public class ReportCache {
    private Map<String, String> entries = new HashMap<>();

    public void evictReport(String name) {
        entries.remove(name);
    }
}`,
}

func toyBugs() []corpus.BugReport {
	return []corpus.BugReport{
		{
			Summary:     "Axis ticks overlap",
			Description: "AxisRenderer paints tick labels on top of each other.",
			ReportTime:  time.Date(2012, 3, 14, 0, 0, 0, 0, time.UTC),
			FixedFiles:  []string{"org/demo/AxisRenderer.java"},
		},
		{
			Summary:     "Stale report after reload",
			Description: "ReportLoader returns a cached report; ReportCache never evicts it.",
			ReportTime:  time.Date(2012, 6, 2, 0, 0, 0, 0, time.UTC),
			FixedFiles:  []string{"org/demo/ReportLoader.java", "org/demo/ReportCache.java"},
		},
	}
}

func writeToyProject(t *testing.T) (string, []string) {
	t.Helper()
	root := t.TempDir()
	for rel, content := range toyFiles {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	paths, err := crawler.Discover(root)
	require.NoError(t, err)
	return root, paths
}

func testConfig() *config.Config {
	return &config.Config{
		Project: config.ProjectSettings{Stem: true},
		Pipeline: config.PipelineSettings{
			Workers:          2,
			Negatives:        sampler.DefaultNegatives,
			StrictResolution: true,
		},
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func runToy(t *testing.T, cfg *config.Config, bugs []corpus.BugReport) *Driver {
	t.Helper()
	root, paths := writeToyProject(t)
	d := New(cfg, quietLogger())
	require.NoError(t, d.Run(context.Background(), Input{Root: root, Paths: paths, Bugs: bugs}))
	return d
}

func TestDriver_Run(t *testing.T) {
	d := runToy(t, testConfig(), toyBugs())
	assert.Equal(t, Computed, d.State())

	table, err := d.Table()
	require.NoError(t, err)
	c, err := d.Corpus()
	require.NoError(t, err)

	t.Run("positives and negatives per bug", func(t *testing.T) {
		// Files sort as AxisRenderer, ReportCache, ReportLoader.
		type pair struct{ bug, file, label int }
		var got []pair
		for _, row := range table.Rows {
			got = append(got, pair{row.BugIndex, row.FileIndex, row.Label})
		}
		assert.Equal(t, []pair{
			{0, 0, 1},
			{0, 1, 0},
			{0, 2, 0},
			{1, 1, 1},
			{1, 2, 1},
			{1, 0, 0},
		}, got)
	})

	t.Run("label matches fixed files", func(t *testing.T) {
		for _, row := range table.Rows {
			fixed := c.Bug(row.BugIndex).Fixes(c.Source(row.FileIndex).Path)
			assert.Equal(t, fixed, row.Label == 1, "bug %d file %d", row.BugIndex, row.FileIndex)
		}
	})

	t.Run("features are in range", func(t *testing.T) {
		for _, row := range table.Rows {
			for i, v := range row.Values() {
				if i == 2 || i == 4 {
					assert.GreaterOrEqual(t, v, 0.0)
					continue
				}
				assert.GreaterOrEqual(t, v, 0.0, "feature %d", i+1)
				assert.LessOrEqual(t, v, 1.0, "feature %d", i+1)
			}
		}
	})

	t.Run("class name overlap uses raw bug content", func(t *testing.T) {
		assert.Equal(t, float64(len("AxisRenderer")), table.Rows[0].ClassNameOverlap)
	})

	t.Run("report", func(t *testing.T) {
		r := d.Report()
		assert.Equal(t, 3, r.Files)
		assert.Equal(t, 2, r.Bugs)
		assert.Equal(t, 6, r.Rows)
		assert.Equal(t, 3, r.Positives)
		assert.Zero(t, r.SkippedPairs)
		assert.Empty(t, r.DroppedBugs)
		assert.False(t, r.Interrupted)
		assert.Positive(t, r.VocabularySize)
	})
}

func TestDriver_Deterministic(t *testing.T) {
	first, err := runToy(t, testConfig(), toyBugs()).Table()
	require.NoError(t, err)
	second, err := runToy(t, testConfig(), toyBugs()).Table()
	require.NoError(t, err)

	assert.Empty(t, cmp.Diff(first, second))

	d1, err := storage.Digest(first)
	require.NoError(t, err)
	d2, err := storage.Digest(second)
	require.NoError(t, err)
	assert.Equal(t, d1, d2)
}

func TestDriver_NegativesCap(t *testing.T) {
	cfg := testConfig()
	cfg.Pipeline.Negatives = 1
	table, err := runToy(t, cfg, toyBugs()).Table()
	require.NoError(t, err)

	negatives := map[int]int{}
	for _, row := range table.Rows {
		if row.Label == 0 {
			negatives[row.BugIndex]++
		}
	}
	assert.Equal(t, map[int]int{0: 1, 1: 1}, negatives)
}

func TestDriver_NotComputed(t *testing.T) {
	d := New(testConfig(), quietLogger())
	assert.Equal(t, Uncomputed, d.State())

	_, err := d.Table()
	assert.ErrorIs(t, err, ErrNotComputed)
	_, err = d.Corpus()
	assert.ErrorIs(t, err, ErrNotComputed)
}

func TestDriver_EmptyCorpus(t *testing.T) {
	d := New(testConfig(), quietLogger())
	err := d.Run(context.Background(), Input{Root: t.TempDir(), Bugs: toyBugs()})
	assert.ErrorIs(t, err, corpus.ErrEmptyCorpus)
	assert.Equal(t, Uncomputed, d.State())

	root, paths := writeToyProject(t)
	err = d.Run(context.Background(), Input{Root: root, Paths: paths})
	assert.ErrorIs(t, err, corpus.ErrEmptyCorpus)
}

func TestDriver_Resolution(t *testing.T) {
	bugs := toyBugs()
	bugs[0].FixedFiles = []string{"org/demo/Missing.java"}

	t.Run("strict aborts", func(t *testing.T) {
		root, paths := writeToyProject(t)
		d := New(testConfig(), quietLogger())
		err := d.Run(context.Background(), Input{Root: root, Paths: paths, Bugs: bugs})

		var resErr *sampler.ResolutionError
		require.True(t, errors.As(err, &resErr))
		assert.Equal(t, 0, resErr.BugIndex)
		assert.Equal(t, "org/demo/Missing.java", resErr.Path)
		assert.Equal(t, Uncomputed, d.State())
	})

	t.Run("lenient drops the bug", func(t *testing.T) {
		cfg := testConfig()
		cfg.Pipeline.StrictResolution = false
		d := runToy(t, cfg, bugs)

		assert.Equal(t, []int{0}, d.Report().DroppedBugs)
		table, err := d.Table()
		require.NoError(t, err)
		require.Equal(t, 3, table.Len())
		for _, row := range table.Rows {
			assert.Equal(t, 1, row.BugIndex)
		}
	})
}

func TestDriver_SnapshotInput(t *testing.T) {
	root, paths := writeToyProject(t)
	c, err := index.Build(context.Background(), index.Options{Root: root, Stem: true, Workers: 1}, paths, toyBugs())
	require.NoError(t, err)

	snap := filepath.Join(t.TempDir(), "corpus.json")
	require.NoError(t, index.SaveSnapshot(c, snap))
	loaded, err := index.LoadSnapshot(snap)
	require.NoError(t, err)

	fromSnapshot := New(testConfig(), quietLogger())
	require.NoError(t, fromSnapshot.Run(context.Background(), Input{Corpus: loaded}))
	fromFiles := runToy(t, testConfig(), toyBugs())

	a, err := fromSnapshot.Table()
	require.NoError(t, err)
	b, err := fromFiles.Table()
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(b, a))
}

func TestDriver_SnapshotStemMismatch(t *testing.T) {
	root, paths := writeToyProject(t)
	c, err := index.Build(context.Background(), index.Options{Root: root, Stem: false, Workers: 1}, paths, toyBugs())
	require.NoError(t, err)

	d := New(testConfig(), quietLogger())
	err = d.Run(context.Background(), Input{Corpus: c})
	assert.ErrorIs(t, err, index.ErrStaleSnapshot)
	assert.Equal(t, Uncomputed, d.State())
}

func TestComputeStage_Interrupted(t *testing.T) {
	root, paths := writeToyProject(t)
	c, err := index.Build(context.Background(), index.Options{Root: root, Workers: 1}, paths, toyBugs())
	require.NoError(t, err)

	model, err := tfidf.Fit(append(c.SourceTexts(), c.BugTexts()...))
	require.NoError(t, err)
	matrix, err := model.BulkSimilarity(context.Background(), c.BugTexts(), c.SourceTexts(), 1)
	require.NoError(t, err)
	comp, err := features.NewComputer(model, matrix, c, history.New(c.Bugs))
	require.NoError(t, err)

	d := New(testConfig(), quietLogger())
	jobs := []pairJob{{bug: 0, file: 0}, {bug: 0, file: 1}, {bug: 1, file: 2}}

	t.Run("completes", func(t *testing.T) {
		table, skipped, interrupted := d.computeStage(context.Background(), comp, jobs)
		assert.Equal(t, 3, table.Len())
		assert.Zero(t, skipped)
		assert.False(t, interrupted)
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		table, skipped, interrupted := d.computeStage(ctx, comp, jobs)
		assert.Equal(t, 0, table.Len())
		assert.Zero(t, skipped)
		assert.True(t, interrupted)
	})

	t.Run("failed pairs are skipped", func(t *testing.T) {
		bad := append([]pairJob{{bug: 0, file: 99}}, jobs...)
		table, skipped, interrupted := d.computeStage(context.Background(), comp, bad)
		assert.Equal(t, 3, table.Len())
		assert.Equal(t, 1, skipped)
		assert.False(t, interrupted)
	})
}
