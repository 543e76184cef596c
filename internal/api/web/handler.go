package web

import (
	"embed"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/CaioWing/filedrop/internal/api/form"
	"github.com/CaioWing/filedrop/internal/api/response"
	"github.com/CaioWing/filedrop/internal/service"
)

const flashCookie = "filedrop_flash"

//go:embed templates/index.html
var templatesFS embed.FS

var indexTmpl = template.Must(template.ParseFS(templatesFS, "templates/index.html"))

type fileLink struct {
	Name string
	URL  string
}

type indexPage struct {
	Message string
	Files   []fileLink
}

// Handler serves the browser upload form and file downloads.
type Handler struct {
	files         *service.FileService
	maxUploadSize int64
	log           *slog.Logger
}

func NewHandler(files *service.FileService, maxUploadSize int64, log *slog.Logger) *Handler {
	return &Handler{files: files, maxUploadSize: maxUploadSize, log: log}
}

// FileURL is the download path of a stored entry.
func FileURL(name string) string {
	return "/files/" + url.PathEscape(name)
}

func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	names, err := h.files.List(r.Context())
	if err != nil {
		http.Error(w, response.Message(err), response.StatusFor(err))
		return
	}

	page := indexPage{Message: popFlash(w, r), Files: make([]fileLink, 0, len(names))}
	for _, name := range names {
		page.Files = append(page.Files, fileLink{Name: name, URL: FileURL(name)})
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTmpl.Execute(w, page); err != nil {
		h.log.Error("render index", "err", err)
	}
}

func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	up, err := form.ReadFile(w, r, h.maxUploadSize)
	if err != nil {
		http.Error(w, err.Error(), form.Status(err))
		return
	}
	defer up.Close()

	_, err = h.files.Upload(r.Context(), service.UploadInput{
		Filename:   up.Filename,
		Size:       up.Size,
		File:       up.File,
		RemoteAddr: r.RemoteAddr,
	})
	if err != nil {
		http.Error(w, response.Message(err), response.StatusFor(err))
		return
	}

	setFlash(w, "You successfully uploaded "+up.Filename+"!")
	http.Redirect(w, r, "/", http.StatusFound)
}

func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	res, err := h.files.Open(r.Context(), form.PathParam(r, "filename"))
	if err != nil {
		http.Error(w, response.Message(err), response.StatusFor(err))
		return
	}
	response.Attachment(w, r, res, h.log)
}

func setFlash(w http.ResponseWriter, msg string) {
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    url.QueryEscape(msg),
		Path:     "/",
		MaxAge:   60,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// popFlash returns the pending flash message and clears it.
func popFlash(w http.ResponseWriter, r *http.Request) string {
	c, err := r.Cookie(flashCookie)
	if err != nil {
		return ""
	}
	http.SetCookie(w, &http.Cookie{Name: flashCookie, Path: "/", MaxAge: -1, HttpOnly: true})
	msg, err := url.QueryUnescape(c.Value)
	if err != nil {
		return ""
	}
	return msg
}
