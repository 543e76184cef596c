package storage

import (
	"errors"
	"fmt"
)

var (
	// ErrStorage is matched by every error a Service returns.
	ErrStorage = errors.New("storage error")

	ErrFileNotFound   = errors.New("file not found")
	ErrInitialization = errors.New("could not initialize storage")

	ErrEmptyFile     = errors.New("failed to store empty file")
	ErrOutsideRoot   = errors.New("cannot store file outside current directory")
	ErrEmptyLocation = errors.New("file upload location can not be empty")
)

// Error describes a failed storage operation on a single entry.
type Error struct {
	Op       string
	Filename string
	Err      error
}

func (e *Error) Error() string {
	if e.Filename == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %q: %v", e.Op, e.Filename, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool { return target == ErrStorage }

// FileNotFoundError reports that a named entry does not exist or cannot be read.
type FileNotFoundError struct {
	Filename string
	Err      error
}

func (e *FileNotFoundError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("could not read file: %s", e.Filename)
	}
	return fmt.Sprintf("could not read file: %s: %v", e.Filename, e.Err)
}

func (e *FileNotFoundError) Unwrap() error { return e.Err }

func (e *FileNotFoundError) Is(target error) bool {
	return target == ErrFileNotFound || target == ErrStorage
}

// InitError reports that the storage root could not be established.
type InitError struct {
	Root string
	Err  error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("could not initialize storage at %s: %v", e.Root, e.Err)
}

func (e *InitError) Unwrap() error { return e.Err }

func (e *InitError) Is(target error) bool {
	return target == ErrInitialization || target == ErrStorage
}

// NotFound wraps err (which may be nil) as a *FileNotFoundError for filename.
func NotFound(filename string, err error) error {
	return &FileNotFoundError{Filename: filename, Err: err}
}

// IsNotFound reports whether err is a not-found error and returns the
// filename it carries.
func IsNotFound(err error) (string, bool) {
	var nf *FileNotFoundError
	if errors.As(err, &nf) {
		return nf.Filename, true
	}
	return "", errors.Is(err, ErrFileNotFound)
}
