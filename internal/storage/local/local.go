package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"iter"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/CaioWing/filedrop/internal/storage"
)

var _ storage.Service = (*LocalStore)(nil)

// readDirBatch bounds how many directory entries LoadAll reads at a time.
const readDirBatch = 64

// LocalStore keeps entries as regular files directly below root.
type LocalStore struct {
	root string
	log  *slog.Logger
}

// New returns a store rooted at location. The location is made absolute but
// nothing is created on disk until Init.
func New(location string, log *slog.Logger) (*LocalStore, error) {
	if strings.TrimSpace(location) == "" {
		return nil, &storage.Error{Op: "configure", Err: storage.ErrEmptyLocation}
	}
	root, err := filepath.Abs(location)
	if err != nil {
		return nil, &storage.Error{Op: "configure", Err: fmt.Errorf("resolve root %q: %w", location, err)}
	}
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &LocalStore{root: filepath.Clean(root), log: log}, nil
}

// Root returns the absolute storage root.
func (s *LocalStore) Root() string {
	return s.root
}

func (s *LocalStore) Init(_ context.Context) error {
	if err := os.MkdirAll(s.root, 0755); err != nil {
		return &storage.InitError{Root: s.root, Err: err}
	}
	s.log.Debug("storage root ready", "root", s.root)
	return nil
}

func (s *LocalStore) Store(ctx context.Context, filename string, content io.Reader, size int64) error {
	if content == nil || size <= 0 {
		return &storage.Error{Op: "store", Filename: filename, Err: storage.ErrEmptyFile}
	}

	target, err := s.resolve(filename)
	if err != nil {
		return &storage.Error{Op: "store", Filename: filename, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return &storage.Error{Op: "store", Filename: filename, Err: err}
	}

	if err := replaceable(target); err != nil {
		return &storage.Error{Op: "store", Filename: filename, Err: err}
	}

	f, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return &storage.Error{Op: "store", Filename: filename, Err: fmt.Errorf("create file: %w", err)}
	}

	n, err := io.Copy(f, content)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(target)
		return &storage.Error{Op: "store", Filename: filename, Err: fmt.Errorf("write file: %w", err)}
	}

	s.log.Debug("file stored", "name", filepath.Base(target), "bytes", n)
	return nil
}

func (s *LocalStore) Load(_ context.Context, filename string) (storage.Resource, error) {
	target, err := s.resolve(filename)
	if err != nil {
		return nil, &storage.Error{Op: "load", Filename: filename, Err: err}
	}
	return &fileResource{name: filepath.Base(target), path: target}, nil
}

func (s *LocalStore) LoadAsResource(ctx context.Context, filename string) (storage.Resource, error) {
	res, err := s.Load(ctx, filename)
	if err != nil {
		return nil, storage.NotFound(filename, err)
	}

	f, err := os.Open(res.Location())
	if err != nil {
		return nil, storage.NotFound(filename, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, storage.NotFound(filename, err)
	}
	if info.IsDir() {
		return nil, storage.NotFound(filename, fmt.Errorf("%s is a directory", info.Name()))
	}
	return res, nil
}

// LoadAll reads the root lazily, one batch of entries at a time. A missing
// root yields nothing.
func (s *LocalStore) LoadAll(ctx context.Context) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		dir, err := os.Open(s.root)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return
			}
			yield("", &storage.Error{Op: "list", Err: fmt.Errorf("failed to read stored files: %w", err)})
			return
		}
		defer dir.Close()

		for {
			if err := ctx.Err(); err != nil {
				yield("", &storage.Error{Op: "list", Err: err})
				return
			}

			entries, err := dir.ReadDir(readDirBatch)
			for _, e := range entries {
				if !yield(e.Name(), nil) {
					return
				}
			}
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield("", &storage.Error{Op: "list", Err: fmt.Errorf("failed to read stored files: %w", err)})
				return
			}
		}
	}
}

func (s *LocalStore) DeleteAll(_ context.Context) error {
	if err := os.RemoveAll(s.root); err != nil {
		return &storage.Error{Op: "delete all", Err: err}
	}
	s.log.Info("storage root deleted", "root", s.root)
	return nil
}

// resolve maps filename to an absolute path that is a direct child of root.
func (s *LocalStore) resolve(filename string) (string, error) {
	name, err := storage.ResolveName(filename)
	if err != nil {
		return "", err
	}
	target := filepath.Join(s.root, name)
	if filepath.Dir(target) != s.root {
		return "", storage.ErrOutsideRoot
	}
	return target, nil
}

// replaceable removes a symlink or other non-regular entry at target so the
// following create never writes through it to a path outside the root.
func replaceable(target string) error {
	info, err := os.Lstat(target)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("inspect target: %w", err)
	}
	if info.Mode().IsRegular() {
		return nil
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", info.Name())
	}
	if err := os.Remove(target); err != nil {
		return fmt.Errorf("replace %s: %w", info.Name(), err)
	}
	return nil
}
