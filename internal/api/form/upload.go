package form

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
)

// FileField is the multipart field carrying the upload.
const FileField = "file"

// memoryLimit is how much of a multipart body is kept in memory before
// parts spill to temporary files.
const memoryLimit = 32 << 20

var (
	ErrMissingFile = errors.New("required part 'file' is not present")
	ErrInvalidForm = errors.New("failed to parse multipart form")
)

// Upload is a file read from a multipart request.
type Upload struct {
	File     multipart.File
	Filename string
	Size     int64

	form *multipart.Form
}

// Close releases the file and any temporary files of the form.
func (u *Upload) Close() error {
	err := u.File.Close()
	if u.form != nil {
		err = errors.Join(err, u.form.RemoveAll())
	}
	return err
}

// ReadFile parses the multipart body of r, limited to maxSize bytes, and
// returns its file field. Callers must Close the result.
func ReadFile(w http.ResponseWriter, r *http.Request, maxSize int64) (*Upload, error) {
	if maxSize > 0 {
		if r.ContentLength > maxSize {
			return nil, fmt.Errorf("%w: %w", ErrInvalidForm, &http.MaxBytesError{Limit: maxSize})
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxSize)
	}
	if err := r.ParseMultipartForm(memoryLimit); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidForm, err)
	}

	file, header, err := r.FormFile(FileField)
	if err != nil {
		r.MultipartForm.RemoveAll()
		if errors.Is(err, http.ErrMissingFile) {
			return nil, ErrMissingFile
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalidForm, err)
	}

	return &Upload{
		File:     file,
		Filename: header.Filename,
		Size:     header.Size,
		form:     r.MultipartForm,
	}, nil
}

// Status maps a ReadFile error to an HTTP status.
func Status(err error) int {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadRequest
}
