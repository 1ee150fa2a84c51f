package main

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"csvviz/internal/datasource/s3ds"
	"csvviz/internal/export"
)

// sink stores artifacts and reports where each one went.
type sink interface {
	Put(ctx context.Context, a export.Artifact) (string, error)
	String() string
}

// newSink returns an S3 sink for s3:// destinations and a directory sink
// otherwise.
func newSink(dest string, s3cfg s3ds.Config) (sink, error) {
	if strings.HasPrefix(strings.ToLower(dest), "s3://") {
		bucket, prefix, err := s3ds.ParsePrefix(dest)
		if err != nil {
			return nil, err
		}
		store, err := s3ds.NewStore(s3cfg, bucket)
		if err != nil {
			return nil, err
		}
		return &s3Sink{store: store, prefix: prefix}, nil
	}
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return nil, fmt.Errorf("output dir: %w", err)
	}
	return dirSink(dest), nil
}

type dirSink string

func (d dirSink) Put(_ context.Context, a export.Artifact) (string, error) {
	p := filepath.Join(string(d), a.Filename)
	if err := os.WriteFile(p, a.Data, 0o644); err != nil {
		return "", err
	}
	return p, nil
}

func (d dirSink) String() string { return string(d) }

type s3Sink struct {
	store  *s3ds.Store
	prefix string
}

func (s *s3Sink) Put(ctx context.Context, a export.Artifact) (string, error) {
	key := path.Join(s.prefix, a.Filename)
	if err := s.store.Put(ctx, key, a.Data, a.ContentType); err != nil {
		return "", err
	}
	return "s3://" + s.store.Bucket() + "/" + key, nil
}

func (s *s3Sink) String() string { return "s3://" + path.Join(s.store.Bucket(), s.prefix) }
