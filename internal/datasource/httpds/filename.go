package httpds

import (
	"net/url"
	"path"
	"regexp"
	"strconv"

	"github.com/zeebo/xxh3"
)

// filenameCleaner collapses runs of non-alphanumeric characters into "_".
var filenameCleaner = regexp.MustCompile(`[^a-zA-Z0-9]+`)

// HashString returns a stable hex digest of s.
func HashString(s string) string {
	return strconv.FormatUint(xxh3.HashString(s), 16)
}

// FileName derives a display file name for a download URL.
//
// The last path segment wins when present ("…/exports/sales.csv" gives
// "sales.csv"). Otherwise the query string is cleaned into a name, and as a
// last resort the whole URL is hashed. Names without an extension get ".csv".
func FileName(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "download-" + HashString(rawURL) + ".csv"
	}

	name := path.Base(u.Path)
	if name == "." || name == "/" || name == "" {
		name = filenameCleaner.ReplaceAllString(u.RawQuery, "_")
	}
	if name == "" || name == "_" {
		name = "download-" + HashString(rawURL)
	}
	if path.Ext(name) == "" {
		name += ".csv"
	}
	return name
}
