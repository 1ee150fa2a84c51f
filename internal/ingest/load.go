package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"

	"csvviz/internal/datasource"
	"csvviz/internal/logging"
)

// DefaultMaxBytes caps how much Load reads when Options.MaxBytes is zero.
const DefaultMaxBytes = 64 << 20

// ErrTooLarge is returned when the input exceeds Options.MaxBytes.
var ErrTooLarge = errors.New("input exceeds the configured size limit")

// Options tunes Load.
type Options struct {
	// Delimiter is the requested separator; zero means comma and Auto sniffs.
	Delimiter Delimiter
	// Encoding is an IANA or WHATWG charset label such as "windows-1252".
	// Empty means UTF-8.
	Encoding string
	// MaxBytes bounds the input size; zero means DefaultMaxBytes.
	MaxBytes int64
}

// Result is a loaded table plus how it was obtained.
type Result struct {
	Parsed
	// Name is the display file name of the source.
	Name string
	// Bytes is the raw input size before decoding.
	Bytes int64
}

// LookupEncoding resolves a charset label. It returns nil for UTF-8 and the
// empty label.
func LookupEncoding(label string) (encoding.Encoding, error) {
	label = strings.TrimSpace(label)
	switch strings.ToLower(label) {
	case "", "utf-8", "utf8":
		return nil, nil
	}
	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, fmt.Errorf("ingest: unknown encoding %q: %w", label, err)
	}
	return enc, nil
}

// Load reads src fully, decodes it to UTF-8 and parses it. Every byte source
// goes through the same Parse, so a local file and a download of the same
// content produce the same Table.
func Load(ctx context.Context, src datasource.Source, opt Options) (Result, error) {
	start := time.Now()
	name := datasource.NameOf(src, "data.csv")

	enc, err := LookupEncoding(opt.Encoding)
	if err != nil {
		return Result{}, err
	}
	limit := opt.MaxBytes
	if limit <= 0 {
		limit = DefaultMaxBytes
	}

	delim := opt.Delimiter
	if delim == Auto {
		if delim, err = Sniff(ctx, src); err != nil {
			return Result{}, err
		}
		logging.Logger().Debug("ingest: sniffed delimiter", "source", name, "delimiter", delim.Label())
	}

	rc, err := src.Open(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("ingest: open %s: %w", name, err)
	}
	defer rc.Close()

	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(rc, limit+1))
	if err != nil {
		return Result{}, fmt.Errorf("ingest: read %s: %w", name, err)
	}
	if n > limit {
		return Result{}, fmt.Errorf("ingest: %s: %w (%s)", name, ErrTooLarge, humanize.IBytes(uint64(limit)))
	}

	raw := buf.Bytes()
	if enc != nil {
		if raw, err = enc.NewDecoder().Bytes(raw); err != nil {
			return Result{}, fmt.Errorf("ingest: decode %s as %s: %w", name, opt.Encoding, err)
		}
	}

	parsed, err := Parse(raw, delim)
	if err != nil {
		return Result{}, err
	}

	logging.Logger().Info("ingest: loaded",
		"source", name,
		"size", humanize.Bytes(uint64(n)),
		"rows", parsed.Table.Len(),
		"fields", len(parsed.Table.Fields),
		"delimiter", parsed.Delimiter.Label(),
		"blank", parsed.Blank,
		"skipped", parsed.Skipped,
		"took", time.Since(start).Truncate(time.Millisecond),
	)
	return Result{Parsed: parsed, Name: name, Bytes: n}, nil
}
