package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/video-stream/autosub/internal/api/handlers"
	"github.com/video-stream/autosub/internal/api/middleware"
	"github.com/video-stream/autosub/internal/job"
	"github.com/video-stream/autosub/internal/storage"
)

// Deps are the collaborators the HTTP layer needs.
type Deps struct {
	Uploads     *storage.Uploads
	Store       *job.Store
	Launcher    handlers.Launcher
	RateLimiter *middleware.RateLimiter // nil disables upload rate limiting
	OutputPath  string
	StaticDir   string
	CORSOrigins []string
	Logger      *slog.Logger
}

func NewRouter(d Deps) *chi.Mux {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(cors.Handler(middleware.CORSHandler(d.CORSOrigins)))

	uploadHandler := handlers.NewUploadHandler(d.Uploads, d.Launcher, logger)
	jobHandler := handlers.NewJobHandler(d.Store, logger)
	subtitleHandler := handlers.NewSubtitleHandler(d.OutputPath)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", handlers.Health)
		r.Get("/status/{jobId}", jobHandler.GetStatus)

		r.Group(func(r chi.Router) {
			if d.RateLimiter != nil {
				r.Use(d.RateLimiter.Handler)
			}
			r.Use(middleware.MaxUploadSize(d.Uploads.MaxBytes()))
			r.Post("/upload", uploadHandler.Upload)
		})
	})

	r.Get("/output/*", subtitleHandler.ServeSubtitle)

	if d.StaticDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(d.StaticDir)))
	}

	return r
}
