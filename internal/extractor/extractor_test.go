package extractor

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newJavaExtractor(t *testing.T) *Extractor {
	t.Helper()
	ext, err := NewExtractor("java")
	require.NoError(t, err)
	return ext
}

func TestNewExtractor_Unsupported(t *testing.T) {
	_, err := NewExtractor("cobol")
	assert.Error(t, err)
}

func TestExtractor_ExtractFromFile(t *testing.T) {
	ext := newJavaExtractor(t)

	res, err := ext.ExtractFromFile(context.Background(), filepath.Join("testdata", "ReportLoader.java"))
	require.NoError(t, err)

	t.Run("Parse succeeded", func(t *testing.T) {
		assert.False(t, res.Degraded)
		assert.Empty(t, res.DegradedReason)
	})

	t.Run("Package Name", func(t *testing.T) {
		require.NotNil(t, res.PackageName)
		assert.Equal(t, "org.example.report", *res.PackageName)
	})

	t.Run("Attributes", func(t *testing.T) {
		assert.Equal(t, []string{"MAX_RETRIES", "basePath", "PRIORITY"}, res.Attributes)
	})

	t.Run("Variables", func(t *testing.T) {
		assert.Equal(t, []string{"loaded", "name", "path"}, res.Variables)
	})

	t.Run("Comments skip the license header", func(t *testing.T) {
		assert.Contains(t, res.Comments, "Loads reports from disk.")
		assert.Contains(t, res.Comments, "Reads every report below the base path.")
		assert.NotContains(t, res.Comments, "Licensed")
	})

	t.Run("Class and method names", func(t *testing.T) {
		assert.Contains(t, res.ClassNames, "ReportLoader")
		assert.Contains(t, res.MethodNames, "loadReports")
		assert.Contains(t, res.MethodNames, "onLoad")
		assert.NotContains(t, res.MethodNames, "add")
	})
}

func TestExtractor_InvalidSource(t *testing.T) {
	ext := newJavaExtractor(t)

	res, err := ext.ExtractFromFile(context.Background(), filepath.Join("testdata", "Broken.java"))
	require.NoError(t, err)

	assert.True(t, res.Degraded)
	assert.NotEmpty(t, res.DegradedReason)
	assert.Nil(t, res.PackageName)
	assert.NotNil(t, res.Attributes)
	assert.Empty(t, res.Attributes)
	assert.NotNil(t, res.Variables)
	assert.Empty(t, res.Variables)

	t.Run("lexical scan still runs", func(t *testing.T) {
		assert.Contains(t, res.ClassNames, "Broken")
		assert.Contains(t, res.Comments, "Explains the broken method.")
	})

	t.Run("leading comment is treated as a header", func(t *testing.T) {
		assert.NotContains(t, res.Comments, "Copyright")
	})
}

func TestExtractor_NoPackageOrImports(t *testing.T) {
	ext := newJavaExtractor(t)

	res, err := ext.ExtractFromFile(context.Background(), filepath.Join("testdata", "NoHeader.java"))
	require.NoError(t, err)

	assert.False(t, res.Degraded)
	assert.Nil(t, res.PackageName)
	assert.Equal(t, []string{"count"}, res.Attributes)
	assert.Equal(t, "/* Body comment. */", res.Comments)
}

func TestExtractor_NeverPanics(t *testing.T) {
	ext := newJavaExtractor(t)

	inputs := []string{
		"",
		"}}}{{{",
		"class",
		"\x00\xff\xfe garbage",
		"/* unterminated comment",
		"package ;",
	}
	for _, in := range inputs {
		assert.NotPanics(t, func() {
			res := ext.Extract(context.Background(), in)
			assert.NotNil(t, res.ClassNames)
			assert.NotNil(t, res.MethodNames)
			assert.NotNil(t, res.Attributes)
			assert.NotNil(t, res.Variables)
		}, "input %q", in)
	}
}

func TestExtractor_Parse(t *testing.T) {
	ext := newJavaExtractor(t)

	switch p := ext.Parse(context.Background(), "class A { int x; }").(type) {
	case *Parsed:
		assert.Equal(t, "program", p.Tree.RootNode().Type())
	default:
		t.Fatalf("expected a parsed tree, got %T", p)
	}

	switch p := ext.Parse(context.Background(), "class A { int x = ; }").(type) {
	case *ParseFailed:
		assert.Contains(t, p.Reason, "line 1")
	default:
		t.Fatalf("expected a failed parse, got %T", p)
	}
}
