package miniostore

import (
	"context"
	"io"

	"github.com/minio/minio-go/v7"

	"github.com/CaioWing/filedrop/internal/storage"
)

type objectResource struct {
	store *MinioStorage
	name  string
	key   string
}

func (r *objectResource) Filename() string { return r.name }
func (r *objectResource) Location() string { return r.store.URL(r.key) }

func (r *objectResource) Exists(ctx context.Context) bool {
	_, err := r.Stat(ctx)
	return err == nil
}

// Open fetches the object. GetObject is lazy, so the object is stat'ed first
// to surface a missing key here instead of on the first Read.
func (r *objectResource) Open(ctx context.Context) (io.ReadCloser, error) {
	obj, err := r.store.client.GetObject(ctx, r.store.bucket, r.key, minio.GetObjectOptions{})
	if err != nil {
		return nil, classifyError(err, "open", r.name)
	}
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		return nil, classifyError(err, "open", r.name)
	}
	return obj, nil
}

func (r *objectResource) Stat(ctx context.Context) (storage.FileInfo, error) {
	info, err := r.store.client.StatObject(ctx, r.store.bucket, r.key, minio.StatObjectOptions{})
	if err != nil {
		return storage.FileInfo{}, classifyError(err, "stat", r.name)
	}
	ct := info.ContentType
	if ct == "" {
		ct = storage.DetectContentType(r.name, nil)
	}
	return storage.FileInfo{Size: info.Size, ModTime: info.LastModified, ContentType: ct}, nil
}
