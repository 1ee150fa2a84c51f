// Package resolve builds a datasource.Source from a URI or a job's source
// block. It sits above the concrete source packages so they stay unaware of
// each other.
package resolve

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"csvviz/internal/config"
	"csvviz/internal/datasource"
	"csvviz/internal/datasource/file"
	"csvviz/internal/datasource/httpds"
	"csvviz/internal/datasource/s3ds"
	"csvviz/internal/datasource/sqlds"
)

// Options carries connection settings for sources named by URI.
type Options struct {
	HTTP    httpds.Config
	Headers http.Header
	S3      s3ds.Config
}

// FromURI maps a local path, an http(s) URL or an s3://bucket/key URI to a
// Source.
func FromURI(uri string, opt Options) (datasource.Source, error) {
	uri = strings.TrimSpace(uri)
	switch {
	case uri == "":
		return nil, fmt.Errorf("resolve: empty source")
	case hasScheme(uri, "http"), hasScheme(uri, "https"):
		return httpds.NewURL(httpds.NewClient(opt.HTTP), uri, opt.Headers), nil
	case hasScheme(uri, "s3"):
		bucket, key, err := s3ds.ParseURI(uri)
		if err != nil {
			return nil, err
		}
		store, err := s3ds.NewStore(opt.S3, bucket)
		if err != nil {
			return nil, err
		}
		return store.Object(key), nil
	case strings.Contains(uri, "://"):
		return nil, fmt.Errorf("resolve: unsupported scheme in %q", uri)
	default:
		return file.NewLocal(strings.TrimPrefix(uri, "file://")), nil
	}
}

// FromConfig builds the Source described by a job's source block. SQL
// backends must be registered, usually by importing sqlds/all.
func FromConfig(s config.Source) (datasource.Source, error) {
	switch s.Kind {
	case "file":
		if s.File.Path == "" {
			return nil, fmt.Errorf("resolve: file source needs a path")
		}
		return file.NewLocal(s.File.Path), nil

	case "http":
		hdr := http.Header{}
		for k, v := range s.HTTP.Headers {
			hdr.Set(k, v)
		}
		cfg := httpds.Config{
			Timeout:            time.Duration(s.HTTP.TimeoutSeconds) * time.Second,
			MaxRetries:         s.HTTP.MaxRetries,
			InsecureSkipVerify: s.HTTP.Insecure,
		}
		if !hasScheme(s.HTTP.URL, "http") && !hasScheme(s.HTTP.URL, "https") {
			return nil, fmt.Errorf("resolve: %q is not an http(s) URL", s.HTTP.URL)
		}
		return httpds.NewURL(httpds.NewClient(cfg), s.HTTP.URL, hdr), nil

	case "s3":
		store, err := s3ds.NewStore(S3Config(s.S3), s.S3.Bucket)
		if err != nil {
			return nil, err
		}
		if s.S3.Key == "" {
			return nil, fmt.Errorf("resolve: s3 source needs a key")
		}
		return store.Object(s.S3.Key), nil

	case "sql":
		src, err := sqlds.New(sqlds.Config{
			Kind:  s.SQL.Driver,
			DSN:   s.SQL.DSN,
			Query: s.SQL.Query,
			Args:  s.SQL.Args,
			Name:  s.SQL.Name,
		})
		if err != nil {
			return nil, err
		}
		return src, nil
	}
	return nil, fmt.Errorf("resolve: unknown source kind %q", s.Kind)
}

// S3Config converts a job's S3 block to connection settings.
func S3Config(s config.SourceS3) s3ds.Config {
	return s3ds.Config{
		Endpoint:  s.Endpoint,
		Region:    s.Region,
		AccessKey: s.AccessKey,
		SecretKey: s.SecretKey,
		UseSSL:    !s.Insecure,
	}
}

func hasScheme(uri, scheme string) bool {
	return len(uri) > len(scheme)+3 && strings.EqualFold(uri[:len(scheme)+3], scheme+"://")
}
