// Package export serializes pipeline results: the filtered table as
// delimited text and a chart scene as a PNG image.
package export

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/zeebo/xxh3"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Artifact is a named, typed blob ready to be written or served.
type Artifact struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Data        []byte `json:"-"`
	// Checksum is the xxh3 digest of Data in hex; it doubles as an ETag.
	Checksum string `json:"checksum"`
}

func newArtifact(name, contentType string, data []byte) Artifact {
	return Artifact{
		Filename:    name,
		ContentType: contentType,
		Data:        data,
		Checksum:    Checksum(data),
	}
}

// Checksum returns the hex xxh3 digest of data.
func Checksum(data []byte) string {
	return strconv.FormatUint(xxh3.Hash(data), 16)
}

// Slug lowercases title, strips accents, turns whitespace runs and path
// separators into "-" and drops leading or trailing dashes.
func Slug(title string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	s, _, err := transform.String(t, strings.ToLower(strings.TrimSpace(title)))
	if err != nil {
		s = strings.ToLower(strings.TrimSpace(title))
	}

	var b strings.Builder
	dash := false
	for _, r := range s {
		if unicode.IsSpace(r) || r == '/' || r == '\\' {
			if !dash {
				b.WriteByte('-')
				dash = true
			}
			continue
		}
		b.WriteRune(r)
		dash = false
	}
	return strings.Trim(b.String(), "-")
}
