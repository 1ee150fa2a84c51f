package export

import (
	"bytes"
	"encoding/csv"
	"path/filepath"
	"strings"

	"csvviz/internal/coerce"
	"csvviz/internal/ingest"
	"csvviz/internal/records"
)

// CSVContentType is the media type of table exports.
const CSVContentType = "text/csv; charset=utf-8"

// Table writes t as delimited text: header in Fields order, then one line
// per row. Absent cells are written empty. Rows are not re-filtered.
func Table(t records.Table, suggestedName string, delim ingest.Delimiter) (Artifact, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = delim.Rune()

	if err := w.Write(t.Fields); err != nil {
		return Artifact{}, err
	}
	rec := make([]string, len(t.Fields))
	for _, row := range t.Rows {
		for i, f := range t.Fields {
			rec[i] = coerce.String(row[f])
		}
		if err := w.Write(rec); err != nil {
			return Artifact{}, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return Artifact{}, err
	}
	return newArtifact(FilteredName(suggestedName), CSVContentType, buf.Bytes()), nil
}

// FilteredName derives the export file name: "sales.csv" becomes
// "sales_filtered.csv". A name without ".csv" loses its extension and gets
// the suffix; an empty name yields "data_filtered.csv".
func FilteredName(name string) string {
	name = filepath.Base(strings.TrimSpace(name))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return "data_filtered.csv"
	}
	if strings.Contains(name, ".csv") {
		return strings.Replace(name, ".csv", "_filtered.csv", 1)
	}
	return strings.TrimSuffix(name, filepath.Ext(name)) + "_filtered.csv"
}
