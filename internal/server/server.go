// Package server exposes uploads, browsing sessions and histograms over HTTP.
package server

import (
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/robert-malhotra/h5view/internal/catalog"
	"github.com/robert-malhotra/h5view/internal/metrics"
	"github.com/robert-malhotra/h5view/internal/session"
)

// Server routes API requests to the catalog and the session manager.
type Server struct {
	catalog  *catalog.Catalog
	sessions *session.Manager
	metrics  *metrics.Metrics
	log      *slog.Logger
	router   *chi.Mux
}

// New builds the router. A nil logger discards log output.
func New(cat *catalog.Catalog, sessions *session.Manager, m *metrics.Metrics, log *slog.Logger) *Server {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := &Server{
		catalog:  cat,
		sessions: sessions,
		metrics:  m,
		log:      log,
	}
	s.router = s.routes()
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.instrument)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", s.metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Route("/files", func(r chi.Router) {
			r.Get("/", s.listFiles)
			r.Post("/", s.uploadFiles)
			r.Delete("/", s.clearFiles)
			r.Delete("/{id}", s.deleteFile)
		})

		r.Post("/sessions", s.createSession)
		r.Route("/sessions/{sid}", func(r chi.Router) {
			r.Use(s.withSession)
			r.Get("/", s.getSession)
			r.Delete("/", s.deleteSession)
			r.Post("/files", s.openFiles)
			r.Post("/clear", s.clearSession)
			r.Post("/select-file", s.selectFile)
			r.Get("/groups", s.listGroups)
			r.Post("/select-group", s.selectGroup)
			r.Delete("/group", s.clearGroup)
			r.Get("/search", s.search)

			r.Get("/parameters", s.listParameters)
			r.Post("/parameters", s.addParameter)
			r.Route("/parameters/{idx}", func(r chi.Router) {
				r.Get("/", s.getParameter)
				r.Delete("/", s.removeParameter)
				r.Post("/show", s.showParameter)
				r.Post("/hide", s.hideParameter)
				r.Put("/filter", s.applyFilter)
				r.Delete("/filter", s.resetFilter)
			})

			r.Get("/histograms", s.histograms)
			r.Get("/histograms.png", s.histogramImage)
		})
	})
	return r
}

// instrument logs every request and records it in the HTTP metrics.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		defer func() {
			route := chi.RouteContext(r.Context()).RoutePattern()
			if route == "" {
				route = "unmatched"
			}
			s.metrics.Requests.WithLabelValues(r.Method, route, strconv.Itoa(ww.Status())).Inc()
			s.metrics.RequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
			s.log.Debug("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()))
		}()
		next.ServeHTTP(ww, r)
	})
}
