package features

import (
	"strings"
	"time"
	"unicode/utf8"

	"bugloc/internal/history"
)

// MonthsBetween counts the whole calendar months from earlier to later. A
// month is complete once later reaches the same day and time of day as
// earlier; a negative gap counts as zero.
func MonthsBetween(earlier, later time.Time) int {
	earlier, later = earlier.UTC(), later.UTC()
	if !later.After(earlier) {
		return 0
	}
	months := (later.Year()-earlier.Year())*12 + int(later.Month()) - int(earlier.Month())
	if later.Day() < earlier.Day() ||
		later.Day() == earlier.Day() && clock(later) < clock(earlier) {
		months--
	}
	if months < 0 {
		return 0
	}
	return months
}

func clock(t time.Time) time.Duration {
	return t.Sub(time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location()))
}

// Recency is 1/(months+1) for the gap between the latest earlier fix and the
// report, or 0 when the file was never fixed before.
func Recency(fixes history.Fixes, reported time.Time) float64 {
	if fixes.Count == 0 {
		return 0
	}
	return 1 / float64(MonthsBetween(fixes.Last, reported)+1)
}

// ClassNameOverlap returns the length in characters of the longest class
// name that occurs verbatim in content, or 0.
func ClassNameOverlap(content string, classNames []string) int {
	best := 0
	for _, name := range classNames {
		if name == "" || !strings.Contains(content, name) {
			continue
		}
		if n := utf8.RuneCountInString(name); n > best {
			best = n
		}
	}
	return best
}
