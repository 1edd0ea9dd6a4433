package corpus

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var summaryPrefix = regexp.MustCompile(`Bug[ \d]+(.+)`)

var reportTimeLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// CleanSummary drops the "Bug 12345" prefix bug trackers put in front of a
// summary. Summaries without the prefix are returned unchanged.
func CleanSummary(summary string) string {
	m := summaryPrefix.FindStringSubmatch(summary)
	if m == nil {
		return summary
	}
	return strings.TrimSpace(m[1])
}

// LoadBugReports reads a tab-separated bug table from path.
func LoadBugReports(path string) ([]BugReport, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open bug table: %w", err)
	}
	defer f.Close()

	return ReadBugReports(f, slog.Default())
}

// ReadBugReports parses a bug table with a header row. The summary,
// description, report_time (or report_timestamp) and files columns are used;
// rows listing no fixed files are skipped. Report indices follow the order
// of the rows kept.
func ReadBugReports(r io.Reader, logger *slog.Logger) ([]BugReport, error) {
	if logger == nil {
		logger = slog.Default()
	}

	reader := csv.NewReader(r)
	reader.Comma = '\t'
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("bug table has no header: %w", ErrEmptyCorpus)
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{"summary", "files"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("bug table is missing column %q", required)
		}
	}
	_, hasTime := cols["report_time"]
	_, hasTimestamp := cols["report_timestamp"]
	if !hasTime && !hasTimestamp {
		return nil, errors.New("bug table needs a report_time or report_timestamp column")
	}

	field := func(record []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(record) {
			return ""
		}
		return record[i]
	}

	var bugs []BugReport
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		files := uniqueFields(field(record, "files"))
		if len(files) == 0 {
			logger.Debug("skipping bug report without fixed files", "line", line, "bug_id", field(record, "bug_id"))
			continue
		}

		reported, err := parseReportTime(field(record, "report_time"), field(record, "report_timestamp"))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		bugs = append(bugs, BugReport{
			Index:           len(bugs),
			Summary:         CleanSummary(field(record, "summary")),
			Description:     field(record, "description"),
			ReportTime:      reported,
			FixedFiles:      files,
			ID:              field(record, "id"),
			BugID:           field(record, "bug_id"),
			Status:          field(record, "status"),
			Commit:          field(record, "commit"),
			CommitTimestamp: field(record, "commit_timestamp"),
		})
	}
	return bugs, nil
}

func parseReportTime(reportTime, reportTimestamp string) (time.Time, error) {
	reportTime = strings.TrimSpace(reportTime)
	for _, layout := range reportTimeLayouts {
		if t, err := time.Parse(layout, reportTime); err == nil {
			return t.UTC(), nil
		}
	}

	if ts := strings.TrimSpace(reportTimestamp); ts != "" {
		secs, err := strconv.ParseInt(ts, 10, 64)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid report_timestamp %q: %w", ts, err)
		}
		return time.Unix(secs, 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("unparsable report_time %q", reportTime)
}

func uniqueFields(s string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, f := range strings.Fields(s) {
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}
