// Package storage defines the contract for persisting named blobs under a
// single managed root. Backends live in sub-packages: local (filesystem),
// s3 (aws-sdk-go-v2) and miniostore (minio-go).
package storage

import (
	"context"
	"io"
	"iter"
	"time"
)

// Service persists and serves blobs identified only by their filename.
type Service interface {
	// Init makes sure the storage root exists. It is idempotent.
	Init(ctx context.Context) error

	// Store writes content under filename, replacing any existing entry.
	Store(ctx context.Context, filename string, content io.Reader, size int64) error

	// Load resolves filename to a handle without checking that it exists.
	Load(ctx context.Context, filename string) (Resource, error)

	// LoadAsResource resolves filename and fails with *FileNotFoundError
	// unless the entry exists and is readable.
	LoadAsResource(ctx context.Context, filename string) (Resource, error)

	// LoadAll enumerates the names of the entries directly below the root.
	LoadAll(ctx context.Context) iter.Seq2[string, error]

	// DeleteAll removes the root and everything in it.
	DeleteAll(ctx context.Context) error
}

// Resource is a handle to a stored entry.
type Resource interface {
	Filename() string
	// Location is the absolute path or object URL of the entry.
	Location() string
	Exists(ctx context.Context) bool
	Open(ctx context.Context) (io.ReadCloser, error)
	Stat(ctx context.Context) (FileInfo, error)
}

type FileInfo struct {
	Size        int64
	ModTime     time.Time
	ContentType string
}

// Names drains svc.LoadAll into a slice.
func Names(ctx context.Context, svc Service) ([]string, error) {
	names := []string{}
	for name, err := range svc.LoadAll(ctx) {
		if err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, nil
}
