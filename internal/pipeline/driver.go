// Package pipeline runs the feature build of one project: corpus, TF-IDF
// model, bulk similarity, candidate sampling and per-pair features.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"bugloc/internal/config"
	"bugloc/internal/corpus"
	"bugloc/internal/features"
	"bugloc/internal/history"
	"bugloc/internal/index"
	"bugloc/internal/sampler"
	"bugloc/internal/tfidf"
)

// ErrNotComputed is returned when results are requested before a run.
var ErrNotComputed = errors.New("feature table not computed")

// State is the lifecycle of a Driver.
type State int

const (
	Uncomputed State = iota
	Computed
)

func (s State) String() string {
	if s == Computed {
		return "computed"
	}
	return "uncomputed"
}

// Input is what a run consumes. When Corpus is set, Root, Paths and Bugs
// are ignored and the prebuilt corpus is used as is. Its stemming must
// match the driver's; callers check the rest with Corpus.Verify.
type Input struct {
	Root   string
	Paths  []string
	Bugs   []corpus.BugReport
	Corpus *index.Corpus
}

// Report summarizes a run.
type Report struct {
	Files          int
	Bugs           int
	DegradedFiles  int
	VocabularySize int
	Rows           int
	Positives      int
	SkippedPairs   int
	DroppedBugs    []int
	Interrupted    bool
	Elapsed        time.Duration
}

// Driver orchestrates a feature build. A Driver is not safe for concurrent
// use; call Run once and then read Table and Report.
type Driver struct {
	stem      bool
	workers   int
	negatives int
	strict    bool
	logger    *slog.Logger

	state  State
	corpus *index.Corpus
	table  *features.Table
	report Report
}

// New creates a driver from the pipeline and project settings of cfg.
func New(cfg *config.Config, logger *slog.Logger) *Driver {
	if logger == nil {
		logger = slog.Default()
	}
	workers := cfg.Pipeline.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Driver{
		stem:      cfg.Project.Stem,
		workers:   workers,
		negatives: cfg.Pipeline.Negatives,
		strict:    cfg.Pipeline.StrictResolution,
		logger:    logger,
	}
}

// State returns the lifecycle state.
func (d *Driver) State() State {
	return d.state
}

// pairJob is one sampled (bug, file) pair at its position in the table.
type pairJob struct {
	bug  int
	file int
}

// Run builds the feature table. A corpus or ground-truth problem aborts the
// run. A failed pair is logged and skipped. When ctx is cancelled during
// feature computation the rows finished so far are kept, the driver still
// becomes Computed, and the returned error wraps ctx.Err().
func (d *Driver) Run(ctx context.Context, in Input) error {
	start := time.Now()
	d.state = Uncomputed
	d.corpus, d.table, d.report = nil, nil, Report{}

	c, err := d.corpusStage(ctx, in)
	if err != nil {
		return err
	}

	model, matrix, err := d.similarityStage(ctx, c)
	if err != nil {
		return err
	}

	comp, err := features.NewComputer(model, matrix, c, history.New(c.Bugs))
	if err != nil {
		return err
	}

	jobs, dropped, err := d.samplingStage(c, sampler.New(matrix, c, d.negatives))
	if err != nil {
		return err
	}

	table, skipped, interrupted := d.computeStage(ctx, comp, jobs)

	d.corpus = c
	d.table = table
	d.report = Report{
		Files:          c.NumSources(),
		Bugs:           c.NumBugs(),
		DegradedFiles:  c.Degraded(),
		VocabularySize: model.VocabularySize(),
		Rows:           table.Len(),
		Positives:      table.Positives(),
		SkippedPairs:   skipped,
		DroppedBugs:    dropped,
		Interrupted:    interrupted,
		Elapsed:        time.Since(start),
	}
	d.state = Computed

	d.logger.Info("feature table assembled",
		"rows", d.report.Rows,
		"positives", d.report.Positives,
		"skipped_pairs", skipped,
		"dropped_bugs", len(dropped),
		"elapsed", d.report.Elapsed,
	)
	if interrupted {
		return fmt.Errorf("feature computation interrupted: %w", ctx.Err())
	}
	return nil
}

func (d *Driver) corpusStage(ctx context.Context, in Input) (*index.Corpus, error) {
	if in.Corpus != nil {
		if in.Corpus.Stem != d.stem {
			return nil, fmt.Errorf("snapshot built with stem=%t, run uses stem=%t: %w",
				in.Corpus.Stem, d.stem, index.ErrStaleSnapshot)
		}
		if in.Corpus.NumSources() == 0 || in.Corpus.NumBugs() == 0 {
			return nil, fmt.Errorf("snapshot has %d files and %d bugs: %w",
				in.Corpus.NumSources(), in.Corpus.NumBugs(), corpus.ErrEmptyCorpus)
		}
		d.logger.Info("corpus loaded from snapshot",
			"files", in.Corpus.NumSources(),
			"bugs", in.Corpus.NumBugs(),
		)
		return in.Corpus, nil
	}

	return index.Build(ctx, index.Options{
		Root:    in.Root,
		Stem:    d.stem,
		Workers: d.workers,
		Logger:  d.logger,
	}, in.Paths, in.Bugs)
}

// similarityStage fits one model over the union of file and bug texts and
// computes the bugs x files matrix.
func (d *Driver) similarityStage(ctx context.Context, c *index.Corpus) (*tfidf.Model, *tfidf.Matrix, error) {
	sources, bugs := c.SourceTexts(), c.BugTexts()
	docs := make([]string, 0, len(sources)+len(bugs))
	docs = append(docs, sources...)
	docs = append(docs, bugs...)

	model, err := tfidf.Fit(docs)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fit vectorizer: %w", err)
	}
	d.logger.Info("vectorizer fitted",
		"vocabulary", model.VocabularySize(),
		"documents", model.Documents(),
	)

	matrix, err := model.BulkSimilarity(ctx, bugs, sources, d.workers)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to compute similarity matrix: %w", err)
	}
	return model, matrix, nil
}

// samplingStage lays out the table: bug-major, in sampler order.
func (d *Driver) samplingStage(c *index.Corpus, s *sampler.Sampler) ([]pairJob, []int, error) {
	var jobs []pairJob
	var dropped []int
	for bug := 0; bug < c.NumBugs(); bug++ {
		cands, err := s.Sample(bug)
		if err != nil {
			var resErr *sampler.ResolutionError
			if !errors.As(err, &resErr) {
				return nil, nil, err
			}
			d.logger.Error("fixed file not in corpus",
				"bug", resErr.BugIndex,
				"path", resErr.Path,
			)
			if d.strict {
				return nil, nil, err
			}
			dropped = append(dropped, bug)
			continue
		}
		for _, cand := range cands {
			jobs = append(jobs, pairJob{bug: bug, file: cand.FileIndex})
		}
	}
	return jobs, dropped, nil
}

func (d *Driver) computeStage(ctx context.Context, comp *features.Computer, jobs []pairJob) (*features.Table, int, bool) {
	rows := make([]features.Vector, len(jobs))
	done := make([]bool, len(jobs))
	var skipped atomic.Int64

	var g errgroup.Group
	g.SetLimit(d.workers)
	for i, job := range jobs {
		i, job := i, job
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			v, err := comp.Compute(job.bug, job.file)
			if err != nil {
				skipped.Add(1)
				d.logger.Warn("skipping pair", "bug", job.bug, "file", job.file, "error", err)
				return nil
			}
			rows[i] = v
			done[i] = true
			return nil
		})
	}
	_ = g.Wait()

	table := &features.Table{Rows: make([]features.Vector, 0, len(jobs))}
	for i := range rows {
		if done[i] {
			table.Rows = append(table.Rows, rows[i])
		}
	}

	interrupted := ctx.Err() != nil && table.Len()+int(skipped.Load()) < len(jobs)
	if interrupted {
		d.logger.Warn("interrupted, keeping computed rows",
			"rows", table.Len(),
			"pending", len(jobs)-table.Len()-int(skipped.Load()),
		)
	}
	return table, int(skipped.Load()), interrupted
}

// Table returns the assembled feature table.
func (d *Driver) Table() (*features.Table, error) {
	if d.state != Computed {
		return nil, ErrNotComputed
	}
	return d.table, nil
}

// Corpus returns the corpus the table was built from.
func (d *Driver) Corpus() (*index.Corpus, error) {
	if d.state != Computed {
		return nil, ErrNotComputed
	}
	return d.corpus, nil
}

// Report returns the run summary. It is the zero Report before a run.
func (d *Driver) Report() Report {
	return d.report
}
