package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"

	"github.com/CaioWing/filedrop/internal/domain"
	"github.com/CaioWing/filedrop/internal/storage"
)

type FileService struct {
	store    storage.Service
	events   *EventService
	log      *slog.Logger
	onUpload []func(StoredFile)
}

func NewFileService(store storage.Service, events *EventService, log *slog.Logger) *FileService {
	return &FileService{store: store, events: events, log: log}
}

type UploadInput struct {
	Filename   string
	Size       int64
	File       io.Reader
	RemoteAddr string
}

// OnUpload registers fn to run after every successful upload. It must be
// called before the service is shared between goroutines.
func (s *FileService) OnUpload(fn func(StoredFile)) {
	s.onUpload = append(s.onUpload, fn)
}

// StoredFile describes an entry after a successful upload.
type StoredFile struct {
	Name     string `json:"name"`
	Size     int64  `json:"size"`
	Checksum string `json:"checksum_sha256"`
}

func (s *FileService) Upload(ctx context.Context, input UploadInput) (*StoredFile, error) {
	// Hash and count the content while storing it
	hasher := sha256.New()
	var written byteCounter
	var body io.Reader
	if input.File != nil {
		body = io.TeeReader(input.File, io.MultiWriter(hasher, &written))
	}

	if err := s.store.Store(ctx, input.Filename, body, input.Size); err != nil {
		return nil, err
	}

	name, err := storage.ResolveName(input.Filename)
	if err != nil {
		return nil, err
	}

	stored := &StoredFile{
		Name:     name,
		Size:     int64(written),
		Checksum: hex.EncodeToString(hasher.Sum(nil)),
	}

	s.events.Log(ctx, &domain.UploadEvent{
		Action:         domain.ActionFileStore,
		Filename:       stored.Name,
		Size:           stored.Size,
		ChecksumSHA256: stored.Checksum,
		RemoteAddr:     input.RemoteAddr,
	})

	for _, fn := range s.onUpload {
		fn(*stored)
	}

	s.log.Info("file stored", "name", stored.Name, "size", stored.Size)
	return stored, nil
}

// List returns the names of all stored entries.
func (s *FileService) List(ctx context.Context) ([]string, error) {
	return storage.Names(ctx, s.store)
}

// Open returns the resource for filename, or a *storage.FileNotFoundError.
func (s *FileService) Open(ctx context.Context, filename string) (storage.Resource, error) {
	return s.store.LoadAsResource(ctx, filename)
}

// Reset removes every entry and recreates an empty root.
func (s *FileService) Reset(ctx context.Context, remoteAddr string) error {
	if err := s.store.DeleteAll(ctx); err != nil {
		return err
	}
	if err := s.store.Init(ctx); err != nil {
		return err
	}

	s.events.Log(ctx, &domain.UploadEvent{
		Action:     domain.ActionFileDeleteAll,
		RemoteAddr: remoteAddr,
	})
	s.log.Info("storage reset")
	return nil
}

// Bootstrap prepares storage at startup: an optional wipe, then Init. The
// caller must not serve requests when it fails.
func (s *FileService) Bootstrap(ctx context.Context, wipe bool) error {
	if wipe {
		if err := s.store.DeleteAll(ctx); err != nil {
			return fmt.Errorf("wipe storage: %w", err)
		}
		s.log.Info("storage wiped")
	}
	if err := s.store.Init(ctx); err != nil {
		return fmt.Errorf("init storage: %w", err)
	}
	return nil
}

// byteCounter counts the bytes written to it.
type byteCounter int64

func (c *byteCounter) Write(p []byte) (int, error) {
	*c += byteCounter(len(p))
	return len(p), nil
}
