package file

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// Entry is one line of a batch list: a source URI plus an optional delimiter
// hint given as a second whitespace-separated token.
type Entry struct {
	URI       string
	Delimiter string
}

// ReadList reads a batch list file. Blank lines and lines starting with '#'
// are skipped; order is preserved.
//
//	# nightly exports
//	data/sales.csv
//	s3://reports/eu.csv  semicolon
func ReadList(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []Entry
	scanner := bufio.NewScanner(f)
	for n := 1; scanner.Scan(); n++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.Fields(line)
		switch len(parts) {
		case 1:
			out = append(out, Entry{URI: parts[0]})
		case 2:
			out = append(out, Entry{URI: parts[0], Delimiter: parts[1]})
		default:
			return nil, fmt.Errorf("%s:%d: expected \"uri [delimiter]\", got %d fields", path, n, len(parts))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
