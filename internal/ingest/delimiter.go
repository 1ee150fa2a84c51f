package ingest

import (
	"fmt"
	"strings"
)

// Delimiter is the single-rune field separator of a delimited file.
// The zero value means Comma.
type Delimiter rune

// Supported delimiters.
const (
	Comma     Delimiter = ','
	Semicolon Delimiter = ';'
	Tab       Delimiter = '\t'
	Pipe      Delimiter = '|'

	// Auto asks Load to sniff the separator from the head of the input.
	Auto Delimiter = -1
)

// candidates is the fixed order in which delimiter recovery tries separators.
var candidates = []Delimiter{Comma, Semicolon, Tab, Pipe}

// Rune returns the separator rune, defaulting to ','.
func (d Delimiter) Rune() rune {
	if d == 0 || d == Auto {
		return ','
	}
	return rune(d)
}

// String returns the separator itself, e.g. ";", or "auto".
func (d Delimiter) String() string {
	if d == Auto {
		return "auto"
	}
	return string(d.Rune())
}

// Label returns a human-readable name such as "Semicolon (;)".
func (d Delimiter) Label() string {
	if d == Auto {
		return "Auto"
	}
	switch Delimiter(d.Rune()) {
	case Comma:
		return "Comma (,)"
	case Semicolon:
		return "Semicolon (;)"
	case Tab:
		return "Tab"
	case Pipe:
		return "Pipe (|)"
	default:
		return fmt.Sprintf("Custom (%c)", d.Rune())
	}
}

// ParseDelimiter decodes a user-supplied delimiter. It accepts the separator
// character itself or its name (comma, semicolon, tab, pipe, auto); an empty
// string selects Comma.
func ParseDelimiter(s string) (Delimiter, error) {
	switch strings.ToLower(s) {
	case "", ",", "comma":
		return Comma, nil
	case ";", "semicolon":
		return Semicolon, nil
	case "\t", `\t`, "tab":
		return Tab, nil
	case "|", "pipe":
		return Pipe, nil
	case "auto":
		return Auto, nil
	}
	return 0, fmt.Errorf("ingest: unsupported delimiter %q (use comma, semicolon, tab or pipe)", s)
}

// firstLine returns raw up to (not including) the first newline.
func firstLine(raw []byte) string {
	line := string(raw)
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	return strings.TrimSuffix(line, "\r")
}

// detectDelimiter inspects only the first line of raw and returns the first
// candidate that occurs in it and differs from failed.
func detectDelimiter(raw []byte, failed Delimiter) (Delimiter, bool) {
	line := firstLine(raw)
	for _, c := range candidates {
		if c == Delimiter(failed.Rune()) {
			continue
		}
		if strings.Count(line, string(rune(c))) > 0 {
			return c, true
		}
	}
	return 0, false
}

// mostFrequent returns the candidate occurring most often in the first line;
// ties go to the earlier candidate. ok is false when none occurs.
func mostFrequent(raw []byte) (Delimiter, bool) {
	line := firstLine(raw)
	best, bestN := Comma, 0
	for _, c := range candidates {
		if n := strings.Count(line, string(rune(c))); n > bestN {
			best, bestN = c, n
		}
	}
	return best, bestN > 0
}
