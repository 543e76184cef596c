package local

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/CaioWing/filedrop/internal/storage"
)

type fileResource struct {
	name string
	path string
}

func (r *fileResource) Filename() string { return r.name }
func (r *fileResource) Location() string { return r.path }

func (r *fileResource) Exists(_ context.Context) bool {
	info, err := os.Stat(r.path)
	return err == nil && !info.IsDir()
}

func (r *fileResource) Open(_ context.Context) (io.ReadCloser, error) {
	f, err := os.Open(r.path)
	if err != nil {
		return nil, storage.NotFound(r.name, err)
	}
	return f, nil
}

func (r *fileResource) Stat(_ context.Context) (storage.FileInfo, error) {
	f, err := os.Open(r.path)
	if err != nil {
		return storage.FileInfo{}, storage.NotFound(r.name, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return storage.FileInfo{}, &storage.Error{Op: "stat", Filename: r.name, Err: err}
	}

	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return storage.FileInfo{}, &storage.Error{Op: "stat", Filename: r.name, Err: fmt.Errorf("read head: %w", err)}
	}

	return storage.FileInfo{
		Size:        info.Size(),
		ModTime:     info.ModTime(),
		ContentType: storage.DetectContentType(r.name, head[:n]),
	}, nil
}
