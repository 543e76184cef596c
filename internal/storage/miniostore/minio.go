package miniostore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"net/http"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/CaioWing/filedrop/internal/storage"
)

var _ storage.Service = (*MinioStorage)(nil)

// MinioStorage keeps entries in a MinIO (or any S3-compatible) bucket. Only
// objects directly below the prefix are treated as entries.
type MinioStorage struct {
	client     *minio.Client
	bucket     string
	region     string
	prefix     string
	publicBase string
	log        *slog.Logger
}

// Config holds the connection settings for a MinIO backend.
type Config struct {
	Endpoint   string
	AccessKey  string
	SecretKey  string
	Bucket     string
	Region     string
	Prefix     string
	PublicBase string
	UseSSL     bool
}

// New creates a MinIO client. No request is made until Init.
func New(cfg Config, log *slog.Logger) (*MinioStorage, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" || strings.TrimSpace(cfg.Bucket) == "" {
		return nil, &storage.Error{Op: "configure", Err: storage.ErrEmptyLocation}
	}
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, &storage.Error{Op: "configure", Err: fmt.Errorf("create minio client: %w", err)}
	}

	prefix := strings.Trim(cfg.Prefix, "/")
	if prefix != "" {
		prefix += "/"
	}

	publicBase := strings.TrimRight(cfg.PublicBase, "/")
	if publicBase == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		publicBase = scheme + "://" + cfg.Endpoint + "/" + cfg.Bucket
	}

	return &MinioStorage{
		client:     client,
		bucket:     cfg.Bucket,
		region:     cfg.Region,
		prefix:     prefix,
		publicBase: publicBase,
		log:        log,
	}, nil
}

func (s *MinioStorage) Init(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return &storage.InitError{Root: s.root(), Err: fmt.Errorf("check bucket existence: %w", err)}
	}
	if exists {
		return nil
	}

	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
		if minio.ToErrorResponse(err).Code == "BucketAlreadyOwnedByYou" {
			return nil
		}
		return &storage.InitError{Root: s.root(), Err: fmt.Errorf("create bucket %q: %w", s.bucket, err)}
	}
	s.log.Info("bucket created", "bucket", s.bucket)
	return nil
}

func (s *MinioStorage) Store(ctx context.Context, filename string, content io.Reader, size int64) error {
	if content == nil || size <= 0 {
		return &storage.Error{Op: "store", Filename: filename, Err: storage.ErrEmptyFile}
	}
	name, err := storage.ResolveName(filename)
	if err != nil {
		return &storage.Error{Op: "store", Filename: filename, Err: err}
	}

	_, err = s.client.PutObject(ctx, s.bucket, s.key(name), content, size, minio.PutObjectOptions{
		ContentType: storage.DetectContentType(name, nil),
	})
	if err != nil {
		return classifyError(err, "store", filename)
	}
	s.log.Debug("object stored", "bucket", s.bucket, "key", s.key(name), "bytes", size)
	return nil
}

func (s *MinioStorage) Load(_ context.Context, filename string) (storage.Resource, error) {
	name, err := storage.ResolveName(filename)
	if err != nil {
		return nil, &storage.Error{Op: "load", Filename: filename, Err: err}
	}
	return &objectResource{store: s, name: name, key: s.key(name)}, nil
}

func (s *MinioStorage) LoadAsResource(ctx context.Context, filename string) (storage.Resource, error) {
	res, err := s.Load(ctx, filename)
	if err != nil {
		return nil, storage.NotFound(filename, err)
	}
	// An object that exists but cannot be read is reported as not found too.
	if _, err := res.Stat(ctx); err != nil {
		return nil, storage.NotFound(filename, err)
	}
	return res, nil
}

// LoadAll streams the non-recursive listing below the prefix. Breaking out of
// the range cancels the listing request.
func (s *MinioStorage) LoadAll(ctx context.Context) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: s.prefix}) {
			if obj.Err != nil {
				if minio.ToErrorResponse(obj.Err).Code == "NoSuchBucket" {
					return
				}
				yield("", classifyError(obj.Err, "list", ""))
				return
			}
			name := strings.TrimSuffix(strings.TrimPrefix(obj.Key, s.prefix), "/")
			if name == "" {
				continue
			}
			if !yield(name, nil) {
				return
			}
		}
	}
}

func (s *MinioStorage) DeleteAll(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	objects := make(chan minio.ObjectInfo)
	listErr := make(chan error, 1)
	go func() {
		defer close(objects)
		for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: s.prefix, Recursive: true}) {
			if obj.Err != nil {
				listErr <- obj.Err
				return
			}
			select {
			case objects <- obj:
			case <-ctx.Done():
				return
			}
		}
	}()

	var errs []error
	for rerr := range s.client.RemoveObjects(ctx, s.bucket, objects, minio.RemoveObjectsOptions{}) {
		errs = append(errs, fmt.Errorf("remove %s: %w", rerr.ObjectName, rerr.Err))
	}

	select {
	case err := <-listErr:
		if minio.ToErrorResponse(err).Code != "NoSuchBucket" {
			errs = append(errs, err)
		}
	default:
	}

	if len(errs) > 0 {
		return &storage.Error{Op: "delete all", Err: errors.Join(errs...)}
	}
	s.log.Info("objects deleted", "bucket", s.bucket, "prefix", s.prefix)
	return nil
}

// URL returns the browser-accessible URL for an object key.
func (s *MinioStorage) URL(key string) string {
	return s.publicBase + "/" + key
}

func (s *MinioStorage) key(name string) string {
	return s.prefix + name
}

func (s *MinioStorage) root() string {
	return "minio://" + s.bucket + "/" + s.prefix
}

func classifyError(err error, op, filename string) error {
	if err == nil {
		return nil
	}
	resp := minio.ToErrorResponse(err)
	if filename != "" && (resp.Code == "NoSuchKey" || (resp.StatusCode == http.StatusNotFound && resp.Code != "NoSuchBucket")) {
		return storage.NotFound(filename, err)
	}
	if resp.Code != "" {
		return &storage.Error{Op: op, Filename: filename, Err: fmt.Errorf("minio %s (code: %s): %w", op, resp.Code, err)}
	}
	return &storage.Error{Op: op, Filename: filename, Err: err}
}
