package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/errgroup"

	"bugloc/internal/corpus"
	"bugloc/internal/crawler"
	"bugloc/internal/extractor"
	"bugloc/internal/textnorm"
)

// ErrNotNormalized is returned by queries that need normalized content on a
// corpus that was never built.
var ErrNotNormalized = errors.New("corpus not normalized")

// ErrStaleSnapshot is returned when a saved corpus no longer matches the
// project it would be reused for.
var ErrStaleSnapshot = errors.New("corpus snapshot is stale")

// Options control how a corpus is built.
type Options struct {
	// Root is stripped from file paths to produce the paths bug reports use.
	Root    string
	Stem    bool
	Workers int
	Logger  *slog.Logger
}

// Corpus owns the normalized source files and bug reports of one project.
// It is immutable once built. Root and BugsHash record what it was built
// from so a snapshot can be checked before reuse.
type Corpus struct {
	Sources  []corpus.SourceFile `json:"sources"`
	Bugs     []corpus.BugReport  `json:"bugs"`
	Stem     bool                `json:"stem"`
	Root     string              `json:"root,omitempty"`
	BugsHash uint64              `json:"bugs_hash,omitempty"`

	byPath map[string]int
}

// Build reads, extracts and normalizes every file in paths and normalizes
// every bug report. Files are processed concurrently; each result is stored
// at the file's position in paths, so indices do not depend on scheduling.
func Build(ctx context.Context, opts Options, paths []string, bugs []corpus.BugReport) (*Corpus, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("no source files: %w", corpus.ErrEmptyCorpus)
	}
	if len(bugs) == 0 {
		return nil, fmt.Errorf("no bug reports: %w", corpus.ErrEmptyCorpus)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	ext, err := extractor.NewExtractor("java")
	if err != nil {
		return nil, err
	}

	sources := make([]corpus.SourceFile, len(paths))
	var degraded atomic.Int64

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			src, err := buildSource(gCtx, ext, opts, i, path)
			if err != nil {
				return err
			}
			if src.Degraded {
				degraded.Add(1)
				logger.Debug("parse degraded, using lexical facts only", "path", src.Path)
			}
			sources[i] = src
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to build source corpus: %w", err)
	}

	normBugs := make([]corpus.BugReport, len(bugs))
	g, gCtx = errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range bugs {
		i := i
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			normBugs[i] = normalizeBug(bugs[i], i, opts.Stem)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to normalize bug reports: %w", err)
	}

	c, err := NewCorpus(sources, normBugs, opts.Stem)
	if err != nil {
		return nil, err
	}
	c.Root = absRoot(opts.Root)
	c.BugsHash = HashBugs(bugs)

	logger.Info("corpus loaded",
		"files", len(sources),
		"bugs", len(normBugs),
		"degraded", degraded.Load(),
	)
	return c, nil
}

// NewCorpus assembles a corpus from already normalized records. Each
// record's Index must equal its position.
func NewCorpus(sources []corpus.SourceFile, bugs []corpus.BugReport, stem bool) (*Corpus, error) {
	c := &Corpus{Sources: sources, Bugs: bugs, Stem: stem}
	if err := c.rebuildIndices(); err != nil {
		return nil, err
	}
	return c, nil
}

func buildSource(ctx context.Context, ext *extractor.Extractor, opts Options, i int, path string) (corpus.SourceFile, error) {
	rel, err := crawler.RelativePath(opts.Root, path)
	if err != nil {
		return corpus.SourceFile{}, err
	}
	content, err := crawler.ReadContent(path)
	if err != nil {
		return corpus.SourceFile{}, err
	}

	facts := ext.Extract(ctx, content)
	return corpus.SourceFile{
		Index:       i,
		Path:        rel,
		Content:     content,
		ContentHash: xxhash.Sum64String(content),
		Normalized:  textnorm.NormalizeSource(content, opts.Stem),
		Comments:    facts.Comments,
		ClassNames:  facts.ClassNames,
		MethodNames: facts.MethodNames,
		Attributes:  facts.Attributes,
		Variables:   facts.Variables,
		PackageName: facts.PackageName,
		Degraded:    facts.Degraded,

		NormComments:    textnorm.NormalizeNatural(facts.Comments, opts.Stem, true),
		NormClassNames:  textnorm.NormalizeNatural(strings.Join(facts.ClassNames, " "), opts.Stem, false),
		NormMethodNames: textnorm.NormalizeNatural(strings.Join(facts.MethodNames, " "), opts.Stem, false),
		NormVariables:   textnorm.NormalizeNatural(strings.Join(facts.Variables, " "), opts.Stem, false),
	}, nil
}

// Verify checks that c was built with the same stemming from the same
// files, byte for byte, and the same bug reports. Any mismatch wraps
// ErrStaleSnapshot.
func (c *Corpus) Verify(opts Options, paths []string, bugs []corpus.BugReport) error {
	if c.Stem != opts.Stem {
		return fmt.Errorf("%w: built with stem=%t, want stem=%t", ErrStaleSnapshot, c.Stem, opts.Stem)
	}
	if root := absRoot(opts.Root); c.Root != root {
		return fmt.Errorf("%w: built from %q, want %q", ErrStaleSnapshot, c.Root, root)
	}
	if HashBugs(bugs) != c.BugsHash {
		return fmt.Errorf("%w: bug reports changed", ErrStaleSnapshot)
	}
	if len(paths) != len(c.Sources) {
		return fmt.Errorf("%w: %d files on disk, %d in snapshot", ErrStaleSnapshot, len(paths), len(c.Sources))
	}
	for i, path := range paths {
		rel, err := crawler.RelativePath(opts.Root, path)
		if err != nil {
			return err
		}
		if c.Sources[i].Path != rel {
			return fmt.Errorf("%w: file %d is %s, snapshot has %s", ErrStaleSnapshot, i, rel, c.Sources[i].Path)
		}
		content, err := crawler.ReadContent(path)
		if err != nil {
			return err
		}
		if xxhash.Sum64String(content) != c.Sources[i].ContentHash {
			return fmt.Errorf("%w: %s changed", ErrStaleSnapshot, rel)
		}
	}
	return nil
}

// HashBugs digests the raw fields of bug reports that feed normalization
// and labeling.
func HashBugs(bugs []corpus.BugReport) uint64 {
	h := xxhash.New()
	for i := range bugs {
		b := &bugs[i]
		h.WriteString(b.Summary)
		h.WriteString("\x00")
		h.WriteString(b.Description)
		h.WriteString("\x00")
		h.WriteString(b.ReportTime.UTC().Format(time.RFC3339Nano))
		h.WriteString("\x00")
		h.WriteString(strings.Join(b.FixedFiles, "\x1f"))
		h.WriteString("\x1e")
	}
	return h.Sum64()
}

func absRoot(root string) string {
	abs, err := filepath.Abs(root)
	if err != nil {
		return filepath.Clean(root)
	}
	return abs
}

func normalizeBug(b corpus.BugReport, i int, stem bool) corpus.BugReport {
	b.Index = i
	b.NormSummary = textnorm.NormalizeNatural(b.Summary, stem, true)
	b.NormDescription = textnorm.NormalizeNatural(b.Description, stem, true)
	b.NormContent = textnorm.NormalizeNatural(b.Content(), stem, true)
	return b
}

// rebuildIndices restores the lookup tables that are not serialized.
func (c *Corpus) rebuildIndices() error {
	c.byPath = make(map[string]int, len(c.Sources))
	for i, src := range c.Sources {
		if src.Index != i {
			return fmt.Errorf("source %s has index %d at position %d", src.Path, src.Index, i)
		}
		if prev, ok := c.byPath[src.Path]; ok {
			return fmt.Errorf("duplicate source path %s (files %d and %d)", src.Path, prev, i)
		}
		c.byPath[src.Path] = i
	}
	for i := range c.Bugs {
		if c.Bugs[i].Index != i {
			return fmt.Errorf("bug report has index %d at position %d", c.Bugs[i].Index, i)
		}
	}
	return nil
}

// Source returns the file with index i.
func (c *Corpus) Source(i int) *corpus.SourceFile {
	return &c.Sources[i]
}

// Bug returns the bug report with index i.
func (c *Corpus) Bug(i int) *corpus.BugReport {
	return &c.Bugs[i]
}

// FileIndex resolves a relative path to its file index.
func (c *Corpus) FileIndex(path string) (int, bool) {
	i, ok := c.byPath[path]
	return i, ok
}

// NumSources returns the number of source files.
func (c *Corpus) NumSources() int { return len(c.Sources) }

// NumBugs returns the number of bug reports.
func (c *Corpus) NumBugs() int { return len(c.Bugs) }

// Degraded counts files whose syntactic parse failed.
func (c *Corpus) Degraded() int {
	n := 0
	for i := range c.Sources {
		if c.Sources[i].Degraded {
			n++
		}
	}
	return n
}

// SourceTexts returns the normalized content of every file in index order.
func (c *Corpus) SourceTexts() []string {
	out := make([]string, len(c.Sources))
	for i := range c.Sources {
		out[i] = c.Sources[i].Normalized
	}
	return out
}

// BugTexts returns the normalized content of every bug in index order.
func (c *Corpus) BugTexts() []string {
	out := make([]string, len(c.Bugs))
	for i := range c.Bugs {
		out[i] = c.Bugs[i].NormContent
	}
	return out
}

// Vocabulary returns the sorted distinct tokens of all normalized source
// content.
func (c *Corpus) Vocabulary() ([]string, error) {
	if c == nil || len(c.Sources) == 0 {
		return nil, ErrNotNormalized
	}
	seen := make(map[string]struct{})
	for i := range c.Sources {
		for _, tok := range strings.Fields(c.Sources[i].Normalized) {
			seen[tok] = struct{}{}
		}
	}
	vocab := make([]string, 0, len(seen))
	for tok := range seen {
		vocab = append(vocab, tok)
	}
	sort.Strings(vocab)
	return vocab, nil
}
