package crawler

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"bugloc/internal/textnorm"
)

// Crawler scans a project directory for Java source files.
type Crawler struct {
	ignored []string
	suffix  string
}

// NewCrawler creates a new crawler instance.
func NewCrawler() *Crawler {
	return &Crawler{
		ignored: []string{".git", ".svn", ".hg"},
		suffix:  ".java",
	}
}

// Discover walks root and returns every Java file below it, sorted so that
// repeated scans of the same tree assign the same file indices.
func (c *Crawler) Discover(root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to stat source root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("source root %s is not a directory", root)
	}

	var paths []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		// Skip VCS metadata
		if d.IsDir() {
			for _, ign := range c.ignored {
				if d.Name() == ign {
					return filepath.SkipDir
				}
			}
			return nil
		}

		if !d.Type().IsRegular() || !strings.HasSuffix(d.Name(), c.suffix) {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan failed: %w", err)
	}

	sort.Strings(paths)
	return paths, nil
}

// Discover scans root with a default crawler.
func Discover(root string) ([]string, error) {
	return NewCrawler().Discover(root)
}

// ReadContent returns the file's text. Each invalid UTF-8 byte is replaced
// with U+FFFD instead of failing the read.
func ReadContent(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	data = trimBOM(data)
	return textnorm.ValidUTF8(string(data)), nil
}

// RelativePath strips root from path and returns a slash-separated path,
// the form used by bug reports to name fixed files.
func RelativePath(root, path string) (string, error) {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return "", fmt.Errorf("failed to relativize %s: %w", path, err)
	}
	return filepath.ToSlash(rel), nil
}

func trimBOM(data []byte) []byte {
	if len(data) >= 3 && data[0] == 0xEF && data[1] == 0xBB && data[2] == 0xBF {
		return data[3:]
	}
	return data
}
