package scraper

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// LoadLines reads a UTF-8 list file, one entry per line. Blank lines and
// lines starting with '#' are skipped; order is preserved.
func LoadLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open list file %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck // read-only handle

	var items []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		items = append(items, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read list file %s: %w", path, err)
	}
	return items, nil
}
