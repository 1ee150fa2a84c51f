// Package s3ds reads delimited exports from S3-compatible object storage and
// writes artifacts back to it.
package s3ds

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ErrNotFound is returned when the bucket or key does not exist.
var ErrNotFound = errors.New("s3ds: object not found")

// Config holds connection settings. Region defaults to us-east-1.
type Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

// Store is a bucket handle.
type Store struct {
	client *minio.Client
	bucket string
}

// NewStore validates cfg and builds a client bound to bucket.
func NewStore(cfg Config, bucket string) (*Store, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("s3ds: endpoint is required")
	}
	access := strings.TrimSpace(cfg.AccessKey)
	secret := strings.TrimSpace(cfg.SecretKey)
	if access == "" || secret == "" {
		return nil, fmt.Errorf("s3ds: access key and secret key are required")
	}
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		return nil, fmt.Errorf("s3ds: bucket is required")
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(access, secret, ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("s3ds: init client: %w", err)
	}
	return &Store{client: client, bucket: bucket}, nil
}

// Bucket returns the bound bucket name.
func (s *Store) Bucket() string { return s.bucket }

// Object returns a source for key. Nothing is fetched until Open.
func (s *Store) Object(key string) *Object {
	return &Object{store: s, key: strings.TrimLeft(key, "/")}
}

// Put uploads data under key.
func (s *Store) Put(ctx context.Context, key string, data []byte, contentType string) error {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	key = strings.TrimLeft(key, "/")
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("s3ds: put %s/%s: %w", s.bucket, key, err)
	}
	return nil
}

// Object is a datasource.Source for one key.
type Object struct {
	store *Store
	key   string
}

// Name implements datasource.Named with the key's base name.
func (o *Object) Name() string { return path.Base(o.key) }

// Open fetches the object. A missing bucket or key maps to ErrNotFound.
func (o *Object) Open(ctx context.Context) (io.ReadCloser, error) {
	obj, err := o.store.client.GetObject(ctx, o.store.bucket, o.key, minio.GetObjectOptions{})
	if err != nil {
		return nil, o.wrap(err)
	}
	// GetObject is lazy; Stat forces the request so errors surface here.
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		return nil, o.wrap(err)
	}
	return obj, nil
}

func (o *Object) wrap(err error) error {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchBucket":
		return fmt.Errorf("s3ds: %s/%s: %w", o.store.bucket, o.key, ErrNotFound)
	}
	return fmt.Errorf("s3ds: get %s/%s: %w", o.store.bucket, o.key, err)
}

// ParseURI splits "s3://bucket/some/key.csv" into bucket and key.
func ParseURI(raw string) (bucket, key string, err error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", fmt.Errorf("s3ds: parse %q: %w", raw, err)
	}
	if u.Scheme != "s3" {
		return "", "", fmt.Errorf("s3ds: %q is not an s3:// URI", raw)
	}
	key = strings.TrimLeft(u.Path, "/")
	if u.Host == "" || key == "" {
		return "", "", fmt.Errorf("s3ds: %q needs both bucket and key", raw)
	}
	return u.Host, key, nil
}

// ParsePrefix splits "s3://bucket/some/prefix" into bucket and prefix. The
// prefix may be empty.
func ParsePrefix(raw string) (bucket, prefix string, err error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", fmt.Errorf("s3ds: parse %q: %w", raw, err)
	}
	if u.Scheme != "s3" || u.Host == "" {
		return "", "", fmt.Errorf("s3ds: %q is not an s3://bucket URI", raw)
	}
	return u.Host, strings.Trim(u.Path, "/"), nil
}
