package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/klauspost/compress/gzhttp"

	"github.com/CaioWing/filedrop/internal/api/docs"
	"github.com/CaioWing/filedrop/internal/api/middleware"
	"github.com/CaioWing/filedrop/internal/api/response"
	"github.com/CaioWing/filedrop/internal/api/rest"
	"github.com/CaioWing/filedrop/internal/api/web"
	"github.com/CaioWing/filedrop/internal/service"
)

type RouterDeps struct {
	FileSvc        *service.FileService
	EventSvc       *service.EventService
	UploadLimiter  *middleware.RateLimiter // optional
	CORSOrigins    []string
	MaxUploadSize  int64
	// AllowDeleteAll mounts the unauthenticated DELETE /api/v1/files.
	AllowDeleteAll bool
	Logger         *slog.Logger
}

func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	// Metrics
	metrics := middleware.NewMetrics()
	deps.FileSvc.OnUpload(func(f service.StoredFile) { metrics.RecordUpload(f.Size) })

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.Logger(deps.Logger))
	r.Use(metrics.Middleware())
	r.Use(func(next http.Handler) http.Handler { return gzhttp.GzipHandler(next) })

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		ExposedHeaders:   []string{"X-Checksum-SHA256", "Content-Disposition", "Location"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	uploadLimit := func(next http.Handler) http.Handler { return next }
	if deps.UploadLimiter != nil {
		uploadLimit = deps.UploadLimiter.Middleware
	}

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Prometheus metrics
	r.Get("/metrics", metrics.Handler())

	// API docs
	r.Get("/api/docs", http.RedirectHandler("/api/docs/", http.StatusMovedPermanently).ServeHTTP)
	r.Handle("/api/docs/*", http.StripPrefix("/api/docs", docs.Handler()))

	// Browser UI
	webHandler := web.NewHandler(deps.FileSvc, deps.MaxUploadSize, deps.Logger)
	r.Get("/", webHandler.Index)
	r.With(uploadLimit).Post("/", webHandler.Upload)
	r.Get("/files/{filename}", webHandler.Download)

	// REST API
	fileHandler := rest.NewFileHandler(deps.FileSvc, deps.MaxUploadSize, deps.Logger)
	eventHandler := rest.NewEventHandler(deps.EventSvc)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/files", fileHandler.List)
		r.With(uploadLimit).Post("/files", fileHandler.Upload)
		r.Get("/files/{filename}", fileHandler.Download)
		if deps.AllowDeleteAll {
			r.Delete("/files", fileHandler.DeleteAll)
		}

		r.Get("/events", eventHandler.List)
	})

	return r
}
