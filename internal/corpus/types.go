// Package corpus defines the source-file and bug-report records the pipeline
// reads, and loads bug reports from the tab-separated tables that ship with
// the benchmark projects.
package corpus

import (
	"errors"
	"time"
)

// ErrEmptyCorpus is returned when a project has no source files or no bug
// reports; nothing can be fitted on it.
var ErrEmptyCorpus = errors.New("empty corpus")

// SourceFile is one Java file of a project, identified by its position in
// the sorted file list.
type SourceFile struct {
	Index       int      `json:"index"`
	Path        string   `json:"path"`
	Content     string   `json:"-"`
	ContentHash uint64   `json:"content_hash"`
	Normalized  string   `json:"normalized"`
	Comments    string   `json:"comments"`
	ClassNames  []string `json:"class_names"`
	MethodNames []string `json:"method_names"`
	Attributes  []string `json:"attributes"`
	Variables   []string `json:"variables"`
	PackageName *string  `json:"package_name"`
	Degraded    bool     `json:"degraded"`

	// Normalized joins of the structural facts, compared against bug text.
	NormComments    string `json:"norm_comments"`
	NormClassNames  string `json:"norm_class_names"`
	NormMethodNames string `json:"norm_method_names"`
	NormVariables   string `json:"norm_variables"`
}

// BugReport is one row of a project's bug table.
type BugReport struct {
	Index       int       `json:"index"`
	Summary     string    `json:"summary"`
	Description string    `json:"description"`
	ReportTime  time.Time `json:"report_time"`
	FixedFiles  []string  `json:"fixed_files"`

	// Provenance columns, kept as read.
	ID              string `json:"id,omitempty"`
	BugID           string `json:"bug_id,omitempty"`
	Status          string `json:"status,omitempty"`
	Commit          string `json:"commit,omitempty"`
	CommitTimestamp string `json:"commit_timestamp,omitempty"`

	NormSummary     string `json:"norm_summary"`
	NormDescription string `json:"norm_description"`
	NormContent     string `json:"norm_content"`
}

// Content is the summary and description joined the way reports are compared
// against class names.
func (b *BugReport) Content() string {
	return b.Summary + ". " + b.Description
}

// Fixes reports whether path is among the files fixed for this bug.
func (b *BugReport) Fixes(path string) bool {
	for _, f := range b.FixedFiles {
		if f == path {
			return true
		}
	}
	return false
}
