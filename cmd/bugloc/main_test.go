package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bugloc/internal/corpus"
	"bugloc/internal/index"
)

func TestSummarizeSnapshot(t *testing.T) {
	c, err := index.NewCorpus(
		[]corpus.SourceFile{
			{Index: 0, Path: "org/demo/Axis.java", Normalized: "axis paint tick"},
			{Index: 1, Path: "org/demo/Cache.java", Normalized: "cache evict report", Degraded: true},
		},
		[]corpus.BugReport{{Index: 0, Summary: "Axis ticks overlap", FixedFiles: []string{"org/demo/Axis.java"}}},
		true,
	)
	require.NoError(t, err)
	c.Root = "/src/demo"

	path := filepath.Join(t.TempDir(), "corpus.json")
	require.NoError(t, index.SaveSnapshot(c, path))

	got, err := summarizeSnapshot(path)
	require.NoError(t, err)
	assert.Equal(t, &snapshotSummary{
		Root:       "/src/demo",
		Stem:       true,
		Files:      2,
		Bugs:       1,
		Degraded:   1,
		Vocabulary: []string{"axis", "cache", "evict", "paint", "report", "tick"},
	}, got)
}

func TestSummarizeSnapshot_Missing(t *testing.T) {
	_, err := summarizeSnapshot(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}
