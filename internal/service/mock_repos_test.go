package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"iter"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/CaioWing/filedrop/internal/domain"
	"github.com/CaioWing/filedrop/internal/storage"
)

// --- Mock Event Repository ---

type mockEventRepo struct {
	mu        sync.RWMutex
	events    []*domain.UploadEvent
	createErr error
}

func newMockEventRepo() *mockEventRepo {
	return &mockEventRepo{}
}

func (m *mockEventRepo) Create(_ context.Context, e *domain.UploadEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	e.ID = uuid.New()
	e.CreatedAt = time.Now()
	m.events = append(m.events, e)
	return nil
}

func (m *mockEventRepo) List(_ context.Context, f domain.EventFilter) ([]*domain.UploadEvent, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.UploadEvent
	for _, e := range m.events {
		if f.Action != nil && e.Action != *f.Action {
			continue
		}
		if f.Filename != nil && e.Filename != *f.Filename {
			continue
		}
		result = append(result, e)
	}
	return result, len(result), nil
}

// --- Mock Storage ---

type mockStore struct {
	mu          sync.RWMutex
	files       map[string][]byte
	initialized bool
	initCalls   int
	deleteCalls int
	initErr     error
	deleteErr   error
	calls       []string
}

func newMockStore() *mockStore {
	return &mockStore{files: make(map[string][]byte)}
}

func (m *mockStore) Init(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "init")
	m.initCalls++
	if m.initErr != nil {
		return &storage.InitError{Root: "/mock", Err: m.initErr}
	}
	m.initialized = true
	return nil
}

func (m *mockStore) Store(_ context.Context, filename string, content io.Reader, size int64) error {
	if content == nil || size <= 0 {
		return &storage.Error{Op: "store", Filename: filename, Err: storage.ErrEmptyFile}
	}
	name, err := storage.ResolveName(filename)
	if err != nil {
		return &storage.Error{Op: "store", Filename: filename, Err: err}
	}
	data, err := io.ReadAll(content)
	if err != nil {
		return &storage.Error{Op: "store", Filename: filename, Err: err}
	}
	m.mu.Lock()
	m.files[name] = data
	m.mu.Unlock()
	return nil
}

func (m *mockStore) Load(_ context.Context, filename string) (storage.Resource, error) {
	name, err := storage.ResolveName(filename)
	if err != nil {
		return nil, &storage.Error{Op: "load", Filename: filename, Err: err}
	}
	return &mockResource{store: m, name: name}, nil
}

func (m *mockStore) LoadAsResource(ctx context.Context, filename string) (storage.Resource, error) {
	res, err := m.Load(ctx, filename)
	if err != nil || !res.Exists(ctx) {
		return nil, storage.NotFound(filename, err)
	}
	return res, nil
}

func (m *mockStore) LoadAll(_ context.Context) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		m.mu.RLock()
		names := make([]string, 0, len(m.files))
		for name := range m.files {
			names = append(names, name)
		}
		m.mu.RUnlock()
		sort.Strings(names)
		for _, name := range names {
			if !yield(name, nil) {
				return
			}
		}
	}
}

func (m *mockStore) DeleteAll(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "delete_all")
	m.deleteCalls++
	if m.deleteErr != nil {
		return &storage.Error{Op: "delete all", Err: m.deleteErr}
	}
	m.files = make(map[string][]byte)
	m.initialized = false
	return nil
}

type mockResource struct {
	store *mockStore
	name  string
}

func (r *mockResource) Filename() string { return r.name }
func (r *mockResource) Location() string { return "/mock/storage/" + r.name }

func (r *mockResource) Exists(_ context.Context) bool {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	_, ok := r.store.files[r.name]
	return ok
}

func (r *mockResource) Open(_ context.Context) (io.ReadCloser, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	data, ok := r.store.files[r.name]
	if !ok {
		return nil, storage.NotFound(r.name, nil)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (r *mockResource) Stat(_ context.Context) (storage.FileInfo, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	data, ok := r.store.files[r.name]
	if !ok {
		return storage.FileInfo{}, storage.NotFound(r.name, nil)
	}
	return storage.FileInfo{Size: int64(len(data)), ContentType: storage.DetectContentType(r.name, data)}, nil
}

var errMockFailure = errors.New("mock failure")
