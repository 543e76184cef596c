package s3

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	s3aws "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/CaioWing/filedrop/internal/storage"
)

var _ storage.Service = (*S3Storage)(nil)

// deleteBatchSize is the S3 DeleteObjects limit.
const deleteBatchSize = 1000

// S3Client is the subset of the S3 API used by S3Storage.
type S3Client interface {
	HeadBucket(ctx context.Context, params *s3aws.HeadBucketInput, optFns ...func(*s3aws.Options)) (*s3aws.HeadBucketOutput, error)
	CreateBucket(ctx context.Context, params *s3aws.CreateBucketInput, optFns ...func(*s3aws.Options)) (*s3aws.CreateBucketOutput, error)
	PutObject(ctx context.Context, params *s3aws.PutObjectInput, optFns ...func(*s3aws.Options)) (*s3aws.PutObjectOutput, error)
	HeadObject(ctx context.Context, params *s3aws.HeadObjectInput, optFns ...func(*s3aws.Options)) (*s3aws.HeadObjectOutput, error)
	GetObject(ctx context.Context, params *s3aws.GetObjectInput, optFns ...func(*s3aws.Options)) (*s3aws.GetObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3aws.ListObjectsV2Input, optFns ...func(*s3aws.Options)) (*s3aws.ListObjectsV2Output, error)
	DeleteObjects(ctx context.Context, params *s3aws.DeleteObjectsInput, optFns ...func(*s3aws.Options)) (*s3aws.DeleteObjectsOutput, error)
}

// S3Storage keeps entries as objects in one bucket, optionally below a key
// prefix that plays the role of the storage root.
type S3Storage struct {
	client         S3Client
	bucket         string
	region         string
	prefix         string
	endpoint       string
	baseURL        string
	forcePathStyle bool
	uploadTimeout  time.Duration
	log            *slog.Logger
}

// S3Config contains configuration for S3 storage.
type S3Config struct {
	Bucket         string
	Region         string
	Prefix         string // Key prefix acting as the storage root, e.g. "uploads/"
	AccessKeyID    string
	SecretKey      string
	Endpoint       string // For S3-compatible services like MinIO, Wasabi
	BaseURL        string // Public URL base used for Location (auto-generated if empty)
	ForcePathStyle bool   // Required for MinIO and some S3-compatible services
}

// S3Option configures S3Storage.
type S3Option func(*s3Options)

type s3Options struct {
	httpClient    *http.Client
	s3Client      S3Client
	uploadTimeout time.Duration
	log           *slog.Logger
}

// WithS3Client sets a pre-configured client, mostly for tests.
func WithS3Client(client S3Client) S3Option {
	return func(o *s3Options) { o.s3Client = client }
}

func WithHTTPClient(client *http.Client) S3Option {
	return func(o *s3Options) { o.httpClient = client }
}

// WithUploadTimeout bounds a single Store call.
func WithUploadTimeout(timeout time.Duration) S3Option {
	return func(o *s3Options) { o.uploadTimeout = timeout }
}

func WithLogger(log *slog.Logger) S3Option {
	return func(o *s3Options) { o.log = log }
}

// New creates an S3 storage backend. Static credentials are used when both
// keys are set; otherwise the default AWS credential chain applies.
func New(ctx context.Context, cfg S3Config, opts ...S3Option) (*S3Storage, error) {
	if strings.TrimSpace(cfg.Bucket) == "" || cfg.Region == "" {
		return nil, &storage.Error{Op: "configure", Err: storage.ErrEmptyLocation}
	}

	options := &s3Options{}
	for _, opt := range opts {
		opt(options)
	}
	if options.log == nil {
		options.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	client := options.s3Client
	if client == nil {
		awsOptions := []func(*config.LoadOptions) error{
			config.WithRegion(cfg.Region),
		}
		if cfg.AccessKeyID != "" && cfg.SecretKey != "" {
			awsOptions = append(awsOptions, config.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretKey, ""),
			))
		}
		if options.httpClient != nil {
			awsOptions = append(awsOptions, config.WithHTTPClient(options.httpClient))
		}

		awsConfig, err := config.LoadDefaultConfig(ctx, awsOptions...)
		if err != nil {
			return nil, &storage.Error{Op: "configure", Err: fmt.Errorf("load AWS config: %w", err)}
		}

		client = s3aws.NewFromConfig(awsConfig, func(o *s3aws.Options) {
			if cfg.Endpoint != "" {
				o.BaseEndpoint = aws.String(cfg.Endpoint)
			}
			o.UsePathStyle = cfg.ForcePathStyle
		})
	}

	prefix := strings.Trim(cfg.Prefix, "/")
	if prefix != "" {
		prefix += "/"
	}

	return &S3Storage{
		client:         client,
		bucket:         cfg.Bucket,
		region:         cfg.Region,
		prefix:         prefix,
		endpoint:       cfg.Endpoint,
		baseURL:        cfg.BaseURL,
		forcePathStyle: cfg.ForcePathStyle,
		uploadTimeout:  options.uploadTimeout,
		log:            options.log,
	}, nil
}

// Init creates the bucket when it does not exist yet.
func (s *S3Storage) Init(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3aws.HeadBucketInput{Bucket: aws.String(s.bucket)})
	if err == nil {
		return nil
	}
	if !isNotFound(err) && !isNoSuchBucket(err) {
		return &storage.InitError{Root: s.root(), Err: classifyS3Error(err, "head bucket", "")}
	}

	input := &s3aws.CreateBucketInput{Bucket: aws.String(s.bucket)}
	if s.region != "" && s.region != "us-east-1" {
		input.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(s.region),
		}
	}
	if _, err := s.client.CreateBucket(ctx, input); err != nil {
		var owned *types.BucketAlreadyOwnedByYou
		if errors.As(err, &owned) {
			return nil
		}
		return &storage.InitError{Root: s.root(), Err: classifyS3Error(err, "create bucket", "")}
	}

	s.log.Info("bucket created", "bucket", s.bucket)
	return nil
}

func (s *S3Storage) Store(ctx context.Context, filename string, content io.Reader, size int64) error {
	if content == nil || size <= 0 {
		return &storage.Error{Op: "store", Filename: filename, Err: storage.ErrEmptyFile}
	}
	name, err := storage.ResolveName(filename)
	if err != nil {
		return &storage.Error{Op: "store", Filename: filename, Err: err}
	}

	if s.uploadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.uploadTimeout)
		defer cancel()
	}

	body, head, err := peekHead(content)
	if err != nil {
		return &storage.Error{Op: "store", Filename: filename, Err: fmt.Errorf("read content: %w", err)}
	}

	_, err = s.client.PutObject(ctx, &s3aws.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.key(name)),
		Body:          body,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(storage.DetectContentType(name, head)),
	})
	if err != nil {
		return classifyS3Error(err, "store", filename)
	}

	s.log.Debug("object stored", "bucket", s.bucket, "key", s.key(name), "bytes", size)
	return nil
}

func (s *S3Storage) Load(_ context.Context, filename string) (storage.Resource, error) {
	name, err := storage.ResolveName(filename)
	if err != nil {
		return nil, &storage.Error{Op: "load", Filename: filename, Err: err}
	}
	return &objectResource{store: s, name: name, key: s.key(name)}, nil
}

func (s *S3Storage) LoadAsResource(ctx context.Context, filename string) (storage.Resource, error) {
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

// LoadAll lists one level below the prefix, fetching pages lazily.
func (s *S3Storage) LoadAll(ctx context.Context) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		var token *string
		for {
			page, err := s.client.ListObjectsV2(ctx, &s3aws.ListObjectsV2Input{
				Bucket:            aws.String(s.bucket),
				Prefix:            aws.String(s.prefix),
				Delimiter:         aws.String("/"),
				ContinuationToken: token,
			})
			if err != nil {
				if isNoSuchBucket(err) {
					return
				}
				yield("", classifyS3Error(err, "list", ""))
				return
			}

			for _, cp := range page.CommonPrefixes {
				name := strings.TrimSuffix(strings.TrimPrefix(aws.ToString(cp.Prefix), s.prefix), "/")
				if name != "" && !yield(name, nil) {
					return
				}
			}
			for _, obj := range page.Contents {
				name := strings.TrimPrefix(aws.ToString(obj.Key), s.prefix)
				if name == "" || strings.Contains(name, "/") {
					continue
				}
				if !yield(name, nil) {
					return
				}
			}

			if !aws.ToBool(page.IsTruncated) || page.NextContinuationToken == nil {
				return
			}
			token = page.NextContinuationToken
		}
	}
}

// DeleteAll removes every object below the prefix in batches. A missing
// bucket is treated as already empty.
func (s *S3Storage) DeleteAll(ctx context.Context) error {
	var objects []types.ObjectIdentifier
	var token *string
	for {
		page, err := s.client.ListObjectsV2(ctx, &s3aws.ListObjectsV2Input{
			Bucket:            aws.String(s.bucket),
			Prefix:            aws.String(s.prefix),
			ContinuationToken: token,
		})
		if err != nil {
			if isNoSuchBucket(err) {
				return nil
			}
			return classifyS3Error(err, "delete all", "")
		}
		for _, obj := range page.Contents {
			objects = append(objects, types.ObjectIdentifier{Key: obj.Key})
		}
		if !aws.ToBool(page.IsTruncated) || page.NextContinuationToken == nil {
			break
		}
		token = page.NextContinuationToken
	}

	for start := 0; start < len(objects); start += deleteBatchSize {
		end := min(start+deleteBatchSize, len(objects))
		out, err := s.client.DeleteObjects(ctx, &s3aws.DeleteObjectsInput{
			Bucket: aws.String(s.bucket),
			Delete: &types.Delete{Objects: objects[start:end], Quiet: aws.Bool(true)},
		})
		if err != nil {
			return classifyS3Error(err, "delete all", "")
		}
		if len(out.Errors) > 0 {
			first := out.Errors[0]
			return &storage.Error{
				Op:  "delete all",
				Err: fmt.Errorf("%d objects not deleted, first %s: %s", len(out.Errors), aws.ToString(first.Key), aws.ToString(first.Message)),
			}
		}
	}

	s.log.Info("objects deleted", "bucket", s.bucket, "prefix", s.prefix, "count", len(objects))
	return nil
}

// URL returns the public URL of an object key, in the same formats the S3
// API serves them.
func (s *S3Storage) URL(key string) string {
	if s.baseURL != "" {
		return strings.TrimSuffix(s.baseURL, "/") + "/" + key
	}

	if s.endpoint != "" {
		endpoint := strings.TrimSuffix(s.endpoint, "/")
		protocol := "https://"
		if after, ok := strings.CutPrefix(endpoint, "http://"); ok {
			protocol = "http://"
			endpoint = after
		} else if after, ok := strings.CutPrefix(endpoint, "https://"); ok {
			endpoint = after
		}
		if s.forcePathStyle {
			return fmt.Sprintf("%s%s/%s/%s", protocol, endpoint, s.bucket, key)
		}
		return fmt.Sprintf("%s%s.%s/%s", protocol, s.bucket, endpoint, key)
	}

	if s.forcePathStyle {
		return fmt.Sprintf("https://s3.%s.amazonaws.com/%s/%s", s.region, s.bucket, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)
}

func (s *S3Storage) key(name string) string {
	return s.prefix + name
}

func (s *S3Storage) root() string {
	return "s3://" + s.bucket + "/" + s.prefix
}

// peekHead returns up to 512 leading bytes of r for content sniffing plus a
// reader that still yields the full content. Seekable readers are rewound so
// the SDK can keep treating them as seekable.
func peekHead(r io.Reader) (io.Reader, []byte, error) {
	if rs, ok := r.(io.ReadSeeker); ok {
		head := make([]byte, 512)
		n, err := io.ReadFull(rs, head)
		if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
			return nil, nil, err
		}
		if _, err := rs.Seek(int64(-n), io.SeekCurrent); err != nil {
			return nil, nil, err
		}
		return rs, head[:n], nil
	}

	br := bufio.NewReaderSize(r, 512)
	head, err := br.Peek(512)
	if err != nil && err != io.EOF && !errors.Is(err, bufio.ErrBufferFull) {
		return nil, nil, err
	}
	return br, head, nil
}
