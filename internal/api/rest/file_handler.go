package rest

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/CaioWing/filedrop/internal/api/form"
	"github.com/CaioWing/filedrop/internal/api/response"
	"github.com/CaioWing/filedrop/internal/service"
	"github.com/CaioWing/filedrop/internal/storage"
)

type FileEntry struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

type FileHandler struct {
	fileSvc       *service.FileService
	maxUploadSize int64
	log           *slog.Logger
}

func NewFileHandler(fileSvc *service.FileService, maxUploadSize int64, log *slog.Logger) *FileHandler {
	return &FileHandler{fileSvc: fileSvc, maxUploadSize: maxUploadSize, log: log}
}

func fileURL(name string) string {
	return "/api/v1/files/" + url.PathEscape(name)
}

func (h *FileHandler) List(w http.ResponseWriter, r *http.Request) {
	names, err := h.fileSvc.List(r.Context())
	if err != nil {
		h.log.Error("list files", "err", err)
		response.StorageError(w, err)
		return
	}

	entries := make([]FileEntry, 0, len(names))
	for _, name := range names {
		entries = append(entries, FileEntry{Name: name, URL: fileURL(name)})
	}
	response.JSON(w, http.StatusOK, entries)
}

func (h *FileHandler) Upload(w http.ResponseWriter, r *http.Request) {
	up, err := form.ReadFile(w, r, h.maxUploadSize)
	if err != nil {
		response.Error(w, form.Status(err), err.Error())
		return
	}
	defer up.Close()

	stored, err := h.fileSvc.Upload(r.Context(), service.UploadInput{
		Filename:   up.Filename,
		Size:       up.Size,
		File:       up.File,
		RemoteAddr: r.RemoteAddr,
	})
	if err != nil {
		if !errors.Is(err, storage.ErrEmptyFile) && !errors.Is(err, storage.ErrOutsideRoot) {
			h.log.Error("store upload", "filename", up.Filename, "err", err)
		}
		response.StorageError(w, err)
		return
	}

	w.Header().Set("Location", fileURL(stored.Name))
	w.Header().Set("X-Checksum-SHA256", stored.Checksum)
	response.JSON(w, http.StatusCreated, stored)
}

func (h *FileHandler) Download(w http.ResponseWriter, r *http.Request) {
	res, err := h.fileSvc.Open(r.Context(), form.PathParam(r, "filename"))
	if err != nil {
		response.StorageError(w, err)
		return
	}
	response.Attachment(w, r, res, h.log)
}

// DeleteAll wipes the storage root and recreates it empty.
func (h *FileHandler) DeleteAll(w http.ResponseWriter, r *http.Request) {
	if err := h.fileSvc.Reset(r.Context(), r.RemoteAddr); err != nil {
		h.log.Error("reset storage", "err", err)
		response.StorageError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
