package s3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	s3aws "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CaioWing/filedrop/internal/storage"
)

type fakeObject struct {
	data        []byte
	contentType string
	modified    time.Time
}

// fakeS3 is an in-memory bucket store implementing S3Client.
type fakeS3 struct {
	mu       sync.Mutex
	buckets  map[string]map[string]fakeObject
	pageSize int
	listErr  error
	headErr  error
	created  []string
}

func newFakeS3(buckets ...string) *fakeS3 {
	f := &fakeS3{buckets: make(map[string]map[string]fakeObject), pageSize: 1000}
	for _, b := range buckets {
		f.buckets[b] = make(map[string]fakeObject)
	}
	return f
}

func (f *fakeS3) bucket(name *string) (map[string]fakeObject, error) {
	b, ok := f.buckets[aws.ToString(name)]
	if !ok {
		return nil, &types.NoSuchBucket{Message: aws.String("no such bucket")}
	}
	return b, nil
}

func (f *fakeS3) HeadBucket(_ context.Context, in *s3aws.HeadBucketInput, _ ...func(*s3aws.Options)) (*s3aws.HeadBucketOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.buckets[aws.ToString(in.Bucket)]; !ok {
		return nil, &types.NotFound{}
	}
	return &s3aws.HeadBucketOutput{}, nil
}

func (f *fakeS3) CreateBucket(_ context.Context, in *s3aws.CreateBucketInput, _ ...func(*s3aws.Options)) (*s3aws.CreateBucketOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	name := aws.ToString(in.Bucket)
	if _, ok := f.buckets[name]; ok {
		return nil, &types.BucketAlreadyOwnedByYou{}
	}
	f.buckets[name] = make(map[string]fakeObject)
	f.created = append(f.created, name)
	return &s3aws.CreateBucketOutput{}, nil
}

func (f *fakeS3) PutObject(_ context.Context, in *s3aws.PutObjectInput, _ ...func(*s3aws.Options)) (*s3aws.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	b, err := f.bucket(in.Bucket)
	if err != nil {
		return nil, err
	}
	b[aws.ToString(in.Key)] = fakeObject{data: data, contentType: aws.ToString(in.ContentType), modified: time.Now()}
	return &s3aws.PutObjectOutput{}, nil
}

func (f *fakeS3) HeadObject(_ context.Context, in *s3aws.HeadObjectInput, _ ...func(*s3aws.Options)) (*s3aws.HeadObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.headErr != nil {
		return nil, f.headErr
	}
	b, err := f.bucket(in.Bucket)
	if err != nil {
		return nil, err
	}
	obj, ok := b[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NotFound{}
	}
	return &s3aws.HeadObjectOutput{
		ContentLength: aws.Int64(int64(len(obj.data))),
		ContentType:   aws.String(obj.contentType),
		LastModified:  aws.Time(obj.modified),
	}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3aws.GetObjectInput, _ ...func(*s3aws.Options)) (*s3aws.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, err := f.bucket(in.Bucket)
	if err != nil {
		return nil, err
	}
	obj, ok := b[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3aws.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(obj.data))}, nil
}

func (f *fakeS3) ListObjectsV2(_ context.Context, in *s3aws.ListObjectsV2Input, _ ...func(*s3aws.Options)) (*s3aws.ListObjectsV2Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	b, err := f.bucket(in.Bucket)
	if err != nil {
		return nil, err
	}

	prefix := aws.ToString(in.Prefix)
	delim := aws.ToString(in.Delimiter)

	keys := make([]string, 0, len(b))
	for k := range b {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	type item struct {
		key      string
		isPrefix bool
	}
	var items []item
	seen := map[string]bool{}
	for _, k := range keys {
		rest, ok := strings.CutPrefix(k, prefix)
		if !ok {
			continue
		}
		if delim != "" {
			if i := strings.Index(rest, delim); i >= 0 {
				cp := prefix + rest[:i+len(delim)]
				if !seen[cp] {
					seen[cp] = true
					items = append(items, item{key: cp, isPrefix: true})
				}
				continue
			}
		}
		items = append(items, item{key: k})
	}

	start := 0
	if in.ContinuationToken != nil {
		start, _ = strconv.Atoi(*in.ContinuationToken)
	}
	end := min(start+f.pageSize, len(items))

	out := &s3aws.ListObjectsV2Output{IsTruncated: aws.Bool(end < len(items))}
	for _, it := range items[start:end] {
		if it.isPrefix {
			out.CommonPrefixes = append(out.CommonPrefixes, types.CommonPrefix{Prefix: aws.String(it.key)})
			continue
		}
		out.Contents = append(out.Contents, types.Object{Key: aws.String(it.key), Size: aws.Int64(int64(len(b[it.key].data)))})
	}
	if end < len(items) {
		out.NextContinuationToken = aws.String(strconv.Itoa(end))
	}
	return out, nil
}

func (f *fakeS3) DeleteObjects(_ context.Context, in *s3aws.DeleteObjectsInput, _ ...func(*s3aws.Options)) (*s3aws.DeleteObjectsOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, err := f.bucket(in.Bucket)
	if err != nil {
		return nil, err
	}
	if len(in.Delete.Objects) > deleteBatchSize {
		return nil, &smithy.GenericAPIError{Code: "MalformedXML", Message: "too many keys"}
	}
	for _, obj := range in.Delete.Objects {
		delete(b, aws.ToString(obj.Key))
	}
	return &s3aws.DeleteObjectsOutput{}, nil
}

func newTestStorage(t *testing.T, client S3Client, prefix string) *S3Storage {
	t.Helper()
	s, err := New(context.Background(), S3Config{
		Bucket:         "uploads",
		Region:         "eu-west-1",
		Prefix:         prefix,
		Endpoint:       "http://localhost:9000",
		ForcePathStyle: true,
	}, WithS3Client(client))
	require.NoError(t, err)
	return s
}

func put(t *testing.T, s *S3Storage, name, content string) error {
	t.Helper()
	return s.Store(context.Background(), name, strings.NewReader(content), int64(len(content)))
}

func TestNew_RequiresBucketAndRegion(t *testing.T) {
	t.Parallel()

	_, err := New(context.Background(), S3Config{Region: "us-east-1"}, WithS3Client(newFakeS3()))
	require.ErrorIs(t, err, storage.ErrEmptyLocation)

	_, err = New(context.Background(), S3Config{Bucket: "b"}, WithS3Client(newFakeS3()))
	require.ErrorIs(t, err, storage.ErrEmptyLocation)
}

func TestInit_CreatesMissingBucket(t *testing.T) {
	t.Parallel()
	fake := newFakeS3()
	s := newTestStorage(t, fake, "")

	require.NoError(t, s.Init(context.Background()))
	require.NoError(t, s.Init(context.Background()))
	assert.Equal(t, []string{"uploads"}, fake.created)
}

func TestStoreAndLoadAsResource(t *testing.T) {
	t.Parallel()
	fake := newFakeS3("uploads")
	s := newTestStorage(t, fake, "files")
	ctx := context.Background()

	require.NoError(t, put(t, s, "foo.txt", "Hello, World"))
	assert.Contains(t, fake.buckets["uploads"], "files/foo.txt")

	res, err := s.LoadAsResource(ctx, "foo.txt")
	require.NoError(t, err)
	assert.Equal(t, "foo.txt", res.Filename())
	assert.Equal(t, "http://localhost:9000/uploads/files/foo.txt", res.Location())

	rc, err := res.Open(ctx)
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "Hello, World", string(data))

	info, err := res.Stat(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(12), info.Size)
	assert.Equal(t, "text/plain; charset=utf-8", info.ContentType)
}

func TestStore_SniffsContentTypeFromStream(t *testing.T) {
	t.Parallel()
	fake := newFakeS3("uploads")
	s := newTestStorage(t, fake, "")

	content := "<html><body>hello</body></html>"
	// io.MultiReader hides the Seeker so the buffered path is exercised.
	err := s.Store(context.Background(), "page", io.MultiReader(strings.NewReader(content)), int64(len(content)))
	require.NoError(t, err)

	obj := fake.buckets["uploads"]["page"]
	assert.Equal(t, content, string(obj.data))
	assert.Equal(t, "text/html; charset=utf-8", obj.contentType)
}

func TestStore_RejectsUnsafeNames(t *testing.T) {
	t.Parallel()
	fake := newFakeS3("uploads")
	s := newTestStorage(t, fake, "")

	for _, name := range []string{"../x", "a/../../x", "/etc/passwd", `\etc\passwd`, "dir/file.txt"} {
		err := put(t, s, name, "data")
		require.ErrorIs(t, err, storage.ErrOutsideRoot, name)
	}
	for _, name := range []string{"", "   "} {
		err := put(t, s, name, "data")
		require.ErrorIs(t, err, storage.ErrEmptyFile)
	}
	err := s.Store(context.Background(), "zero.txt", strings.NewReader(""), 0)
	require.ErrorIs(t, err, storage.ErrEmptyFile)

	assert.Empty(t, fake.buckets["uploads"])
}

func TestLoadAsResource_NotFound(t *testing.T) {
	t.Parallel()
	s := newTestStorage(t, newFakeS3("uploads"), "")

	_, err := s.LoadAsResource(context.Background(), "missing.txt")
	require.ErrorIs(t, err, storage.ErrFileNotFound)
	name, ok := storage.IsNotFound(err)
	require.True(t, ok)
	assert.Equal(t, "missing.txt", name)

	_, err = s.LoadAsResource(context.Background(), "../escape")
	require.ErrorIs(t, err, storage.ErrFileNotFound)
}

func TestLoadAsResource_UnreadableIsNotFound(t *testing.T) {
	t.Parallel()
	fake := newFakeS3("uploads")
	s := newTestStorage(t, fake, "")
	require.NoError(t, put(t, s, "secret.txt", "content"))

	fake.headErr = &smithy.GenericAPIError{Code: "Forbidden", Message: "access denied"}

	_, err := s.LoadAsResource(context.Background(), "secret.txt")
	require.ErrorIs(t, err, storage.ErrFileNotFound)
	name, ok := storage.IsNotFound(err)
	require.True(t, ok)
	assert.Equal(t, "secret.txt", name)

	var apiErr smithy.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "Forbidden", apiErr.ErrorCode())
}

func TestLoad_DoesNotCheckExistence(t *testing.T) {
	t.Parallel()
	s := newTestStorage(t, newFakeS3("uploads"), "")

	res, err := s.Load(context.Background(), "later.txt")
	require.NoError(t, err)
	assert.False(t, res.Exists(context.Background()))

	_, err = res.Open(context.Background())
	require.ErrorIs(t, err, storage.ErrFileNotFound)
}

func TestLoadAll_PaginatesAndStaysAtTopLevel(t *testing.T) {
	t.Parallel()
	fake := newFakeS3("uploads")
	fake.pageSize = 2
	s := newTestStorage(t, fake, "root")

	for _, name := range []string{"a.txt", "b.txt", "c.txt", "d.txt", "e.txt"} {
		require.NoError(t, put(t, s, name, name))
	}
	fake.buckets["uploads"]["root/nested/deep.txt"] = fakeObject{data: []byte("x")}
	fake.buckets["uploads"]["other/ignored.txt"] = fakeObject{data: []byte("x")}

	names, err := storage.Names(context.Background(), s)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a.txt", "b.txt", "c.txt", "d.txt", "e.txt", "nested"}, names)
}

func TestLoadAll_MissingBucketIsEmpty(t *testing.T) {
	t.Parallel()
	s := newTestStorage(t, newFakeS3(), "")

	names, err := storage.Names(context.Background(), s)
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestLoadAll_Error(t *testing.T) {
	t.Parallel()
	fake := newFakeS3("uploads")
	fake.listErr = &smithy.GenericAPIError{Code: "AccessDenied", Message: "denied"}
	s := newTestStorage(t, fake, "")

	_, err := storage.Names(context.Background(), s)
	require.ErrorIs(t, err, storage.ErrStorage)
	assert.Contains(t, err.Error(), "AccessDenied")
}

func TestDeleteAll(t *testing.T) {
	t.Parallel()
	fake := newFakeS3("uploads")
	fake.pageSize = 400
	s := newTestStorage(t, fake, "root")
	ctx := context.Background()

	for i := range 1200 {
		fake.buckets["uploads"]["root/f"+strconv.Itoa(i)] = fakeObject{data: []byte("x")}
	}
	fake.buckets["uploads"]["keep/outside.txt"] = fakeObject{data: []byte("x")}

	require.NoError(t, s.DeleteAll(ctx))
	assert.Len(t, fake.buckets["uploads"], 1)

	names, err := storage.Names(ctx, s)
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestDeleteAll_MissingBucketIsNoop(t *testing.T) {
	t.Parallel()
	s := newTestStorage(t, newFakeS3(), "")
	require.NoError(t, s.DeleteAll(context.Background()))
}

func TestClassifyS3Error(t *testing.T) {
	t.Parallel()

	err := classifyS3Error(&types.NoSuchKey{}, "open", "a.txt")
	assert.ErrorIs(t, err, storage.ErrFileNotFound)

	err = classifyS3Error(&smithy.GenericAPIError{Code: "SlowDown"}, "store", "a.txt")
	assert.ErrorIs(t, err, storage.ErrStorage)
	assert.NotErrorIs(t, err, storage.ErrFileNotFound)
	assert.Contains(t, err.Error(), "SlowDown")

	err = classifyS3Error(context.DeadlineExceeded, "store", "a.txt")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.ErrorIs(t, err, storage.ErrStorage)

	assert.NoError(t, classifyS3Error(nil, "store", ""))
	assert.False(t, errors.Is(classifyS3Error(errors.New("boom"), "list", ""), storage.ErrFileNotFound))
}

func TestURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  S3Config
		want string
	}{
		{
			name: "base_url",
			cfg:  S3Config{Bucket: "b", Region: "us-east-1", BaseURL: "https://cdn.example.com/"},
			want: "https://cdn.example.com/k.txt",
		},
		{
			name: "endpoint_virtual_host",
			cfg:  S3Config{Bucket: "b", Region: "us-east-1", Endpoint: "https://s3.wasabisys.com"},
			want: "https://b.s3.wasabisys.com/k.txt",
		},
		{
			name: "aws_virtual_host",
			cfg:  S3Config{Bucket: "b", Region: "eu-central-1"},
			want: "https://b.s3.eu-central-1.amazonaws.com/k.txt",
		},
		{
			name: "aws_path_style",
			cfg:  S3Config{Bucket: "b", Region: "eu-central-1", ForcePathStyle: true},
			want: "https://s3.eu-central-1.amazonaws.com/b/k.txt",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(context.Background(), tt.cfg, WithS3Client(newFakeS3()))
			require.NoError(t, err)
			assert.Equal(t, tt.want, s.URL("k.txt"))
		})
	}
}
