package index

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bugloc/internal/corpus"
	"bugloc/internal/crawler"
)

var projectFiles = map[string]string{
	"org/example/Chart.java": `package org.example;

/** Draws a chart on the canvas. */
public class Chart {
    private int width;

    public void render(Canvas canvas) {
        int height = width * 2;
        canvas.draw(height);
    }
}`,
	"org/example/ReportLoader.java": `package org.example;

import java.util.List;

public class ReportLoader {
    public List<String> loadReports(String path) {
        return null;
    }
}`,
	"org/example/Broken.java": `public class Broken { void x( { }`,
}

func writeProject(t *testing.T) (string, []string) {
	t.Helper()
	root := t.TempDir()
	for rel, content := range projectFiles {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	paths, err := crawler.Discover(root)
	require.NoError(t, err)
	return root, paths
}

func projectBugs() []corpus.BugReport {
	return []corpus.BugReport{
		{
			Summary:     "Chart renders with wrong height",
			Description: "The chart height is twice the width.",
			ReportTime:  time.Date(2010, 1, 10, 0, 0, 0, 0, time.UTC),
			FixedFiles:  []string{"org/example/Chart.java"},
		},
		{
			Summary:    "Reports fail to load",
			ReportTime: time.Date(2010, 2, 10, 0, 0, 0, 0, time.UTC),
			FixedFiles: []string{"org/example/ReportLoader.java"},
		},
	}
}

func TestBuild(t *testing.T) {
	root, paths := writeProject(t)

	c, err := Build(context.Background(), Options{Root: root, Stem: true, Workers: 2}, paths, projectBugs())
	require.NoError(t, err)

	t.Run("files are indexed in sorted path order", func(t *testing.T) {
		require.Equal(t, 3, c.NumSources())
		assert.Equal(t, "org/example/Broken.java", c.Source(0).Path)
		assert.Equal(t, "org/example/Chart.java", c.Source(1).Path)
		assert.Equal(t, "org/example/ReportLoader.java", c.Source(2).Path)
		for i := range c.Sources {
			assert.Equal(t, i, c.Source(i).Index)
		}
	})

	t.Run("path lookup", func(t *testing.T) {
		i, ok := c.FileIndex("org/example/Chart.java")
		require.True(t, ok)
		assert.Equal(t, 1, i)
		_, ok = c.FileIndex("org/example/Missing.java")
		assert.False(t, ok)
	})

	t.Run("structural facts", func(t *testing.T) {
		chart := c.Source(1)
		assert.False(t, chart.Degraded)
		assert.Equal(t, []string{"width"}, chart.Attributes)
		assert.Equal(t, []string{"height"}, chart.Variables)
		require.NotNil(t, chart.PackageName)
		assert.Equal(t, "org.example", *chart.PackageName)
		assert.NotEmpty(t, chart.Normalized)
		assert.NotZero(t, chart.ContentHash)

		assert.True(t, c.Source(0).Degraded)
		assert.Equal(t, 1, c.Degraded())
	})

	t.Run("bugs are normalized", func(t *testing.T) {
		require.Equal(t, 2, c.NumBugs())
		assert.Equal(t, 0, c.Bug(0).Index)
		assert.Contains(t, c.Bug(0).NormContent, "chart")
		assert.NotEmpty(t, c.Bug(1).NormSummary)
		assert.Empty(t, c.Bug(1).NormDescription)
	})

	t.Run("vocabulary", func(t *testing.T) {
		vocab, err := c.Vocabulary()
		require.NoError(t, err)
		assert.True(t, sort.StringsAreSorted(vocab))
		assert.Contains(t, vocab, "chart")
	})
}

func TestBuild_Deterministic(t *testing.T) {
	root, paths := writeProject(t)

	first, err := Build(context.Background(), Options{Root: root, Workers: 1}, paths, projectBugs())
	require.NoError(t, err)
	second, err := Build(context.Background(), Options{Root: root, Workers: 4}, paths, projectBugs())
	require.NoError(t, err)

	assert.Empty(t, cmp.Diff(first, second, cmpopts.IgnoreUnexported(Corpus{})))
}

func TestBuild_EmptyCorpus(t *testing.T) {
	root, paths := writeProject(t)

	_, err := Build(context.Background(), Options{Root: root}, nil, projectBugs())
	assert.ErrorIs(t, err, corpus.ErrEmptyCorpus)

	_, err = Build(context.Background(), Options{Root: root}, paths, nil)
	assert.ErrorIs(t, err, corpus.ErrEmptyCorpus)
}

func TestBuild_Cancelled(t *testing.T) {
	root, paths := writeProject(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Build(ctx, Options{Root: root}, paths, projectBugs())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestVocabulary_NotNormalized(t *testing.T) {
	_, err := (&Corpus{}).Vocabulary()
	assert.ErrorIs(t, err, ErrNotNormalized)
}

func TestSnapshot(t *testing.T) {
	root, paths := writeProject(t)
	c, err := Build(context.Background(), Options{Root: root, Stem: true}, paths, projectBugs())
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "corpus.json")
	require.NoError(t, SaveSnapshot(c, path))

	loaded, err := LoadSnapshot(path)
	require.NoError(t, err)

	diff := cmp.Diff(c, loaded,
		cmpopts.IgnoreUnexported(Corpus{}),
		cmpopts.IgnoreFields(corpus.SourceFile{}, "Content"),
	)
	assert.Empty(t, diff)

	i, ok := loaded.FileIndex("org/example/ReportLoader.java")
	require.True(t, ok)
	assert.Equal(t, 2, i)
}

func TestVerify(t *testing.T) {
	build := func(t *testing.T) (string, []string, *Corpus) {
		t.Helper()
		root, paths := writeProject(t)
		c, err := Build(context.Background(), Options{Root: root, Stem: true, Workers: 2}, paths, projectBugs())
		require.NoError(t, err)
		return root, paths, c
	}

	t.Run("fresh snapshot", func(t *testing.T) {
		root, paths, c := build(t)
		path := filepath.Join(t.TempDir(), "corpus.json")
		require.NoError(t, SaveSnapshot(c, path))
		loaded, err := LoadSnapshot(path)
		require.NoError(t, err)

		assert.NoError(t, loaded.Verify(Options{Root: root, Stem: true}, paths, projectBugs()))
	})

	t.Run("stem setting differs", func(t *testing.T) {
		root, paths, c := build(t)
		err := c.Verify(Options{Root: root, Stem: false}, paths, projectBugs())
		assert.ErrorIs(t, err, ErrStaleSnapshot)
	})

	t.Run("different root", func(t *testing.T) {
		_, _, c := build(t)
		otherRoot, otherPaths := writeProject(t)
		err := c.Verify(Options{Root: otherRoot, Stem: true}, otherPaths, projectBugs())
		assert.ErrorIs(t, err, ErrStaleSnapshot)
	})

	t.Run("file edited", func(t *testing.T) {
		root, paths, c := build(t)
		target := filepath.Join(root, "org", "example", "Chart.java")
		require.NoError(t, os.WriteFile(target, []byte("public class Chart {}"), 0o644))
		err := c.Verify(Options{Root: root, Stem: true}, paths, projectBugs())
		assert.ErrorIs(t, err, ErrStaleSnapshot)
	})

	t.Run("file added", func(t *testing.T) {
		root, _, c := build(t)
		extra := filepath.Join(root, "org", "example", "Axis.java")
		require.NoError(t, os.WriteFile(extra, []byte("public class Axis {}"), 0o644))
		paths, err := crawler.Discover(root)
		require.NoError(t, err)
		err = c.Verify(Options{Root: root, Stem: true}, paths, projectBugs())
		assert.ErrorIs(t, err, ErrStaleSnapshot)
	})

	t.Run("bug reports changed", func(t *testing.T) {
		root, paths, c := build(t)
		bugs := projectBugs()
		bugs[1].FixedFiles = append(bugs[1].FixedFiles, "org/example/Chart.java")
		err := c.Verify(Options{Root: root, Stem: true}, paths, bugs)
		assert.ErrorIs(t, err, ErrStaleSnapshot)
	})
}
