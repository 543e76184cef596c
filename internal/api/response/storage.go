package response

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/CaioWing/filedrop/internal/storage"
)

// StatusFor maps a storage error to an HTTP status.
func StatusFor(err error) int {
	var maxErr *http.MaxBytesError
	switch {
	case errors.Is(err, storage.ErrFileNotFound):
		return http.StatusNotFound
	case errors.As(err, &maxErr):
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the client-facing text for a storage error. Causes that
// could expose server paths are hidden.
func Message(err error) string {
	if name, ok := storage.IsNotFound(err); ok {
		return "could not read file: " + name
	}
	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxErr):
		return fmt.Sprintf("request body exceeds %d bytes", maxErr.Limit)
	case errors.Is(err, storage.ErrEmptyFile):
		return storage.ErrEmptyFile.Error()
	case errors.Is(err, storage.ErrOutsideRoot):
		return storage.ErrOutsideRoot.Error()
	default:
		return "storage failure"
	}
}

// StorageError writes err as a JSON error with the status from StatusFor.
func StorageError(w http.ResponseWriter, err error) {
	Error(w, StatusFor(err), Message(err))
}

var dispositionEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// ContentDisposition returns an attachment disposition for filename.
func ContentDisposition(filename string) string {
	return fmt.Sprintf(`attachment; filename="%s"`, dispositionEscaper.Replace(filename))
}

// Attachment streams res as a download. Errors before the first byte is
// written are reported through StorageError; later ones are only logged.
func Attachment(w http.ResponseWriter, r *http.Request, res storage.Resource, log *slog.Logger) {
	ctx := r.Context()

	info, err := res.Stat(ctx)
	if err != nil {
		StorageError(w, err)
		return
	}
	body, err := res.Open(ctx)
	if err != nil {
		StorageError(w, err)
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", info.ContentType)
	w.Header().Set("Content-Length", strconv.FormatInt(info.Size, 10))
	w.Header().Set("Content-Disposition", ContentDisposition(res.Filename()))
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, body); err != nil {
		log.Warn("download interrupted", "filename", res.Filename(), "err", err)
	}
}
