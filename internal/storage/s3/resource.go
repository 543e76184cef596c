package s3

import (
	"context"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	s3aws "github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/CaioWing/filedrop/internal/storage"
)

type objectResource struct {
	store *S3Storage
	name  string
	key   string
}

func (r *objectResource) Filename() string { return r.name }
func (r *objectResource) Location() string { return r.store.URL(r.key) }

func (r *objectResource) Exists(ctx context.Context) bool {
	_, err := r.Stat(ctx)
	return err == nil
}

func (r *objectResource) Open(ctx context.Context) (io.ReadCloser, error) {
	out, err := r.store.client.GetObject(ctx, &s3aws.GetObjectInput{
		Bucket: aws.String(r.store.bucket),
		Key:    aws.String(r.key),
	})
	if err != nil {
		return nil, classifyS3Error(err, "open", r.name)
	}
	return out.Body, nil
}

func (r *objectResource) Stat(ctx context.Context) (storage.FileInfo, error) {
	out, err := r.store.client.HeadObject(ctx, &s3aws.HeadObjectInput{
		Bucket: aws.String(r.store.bucket),
		Key:    aws.String(r.key),
	})
	if err != nil {
		return storage.FileInfo{}, classifyS3Error(err, "stat", r.name)
	}

	ct := aws.ToString(out.ContentType)
	if ct == "" {
		ct = storage.DetectContentType(r.name, nil)
	}
	return storage.FileInfo{
		Size:        aws.ToInt64(out.ContentLength),
		ModTime:     aws.ToTime(out.LastModified),
		ContentType: ct,
	}, nil
}
