package handler

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/astrachat/astra/internal/handler/process"
	"github.com/astrachat/astra/internal/surface/web"
)

// NewRouter wires the responder routes: /process and the static media tree.
func NewRouter(proc *process.Handler, mediaDir string) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	proc.RegisterRoutes(r)

	fs := http.StripPrefix("/static/", http.FileServer(http.Dir(mediaDir)))
	r.Get("/static/*", fs.ServeHTTP)

	return r
}

// EnsureMediaDirs creates the media subdirectories the responder writes into.
func EnsureMediaDirs(mediaDir string) error {
	for _, sub := range []string{"audio", "video"} {
		if err := os.MkdirAll(filepath.Join(mediaDir, sub), 0o755); err != nil {
			return err
		}
	}
	return nil
}

// NewSurfaceRouter wires the browser rendering surface.
func NewSurfaceRouter(hub *web.Hub) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	hub.RegisterRoutes(r)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	return r
}
