package api

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/kexy2025/leadgen/web"
)

// Server wraps the HTTP server.
type Server struct {
	srv *http.Server
}

// NewServer wires routes and returns a ready-to-start Server.
func NewServer(addr string, h *Handler) *Server {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", h.Health)
	mux.HandleFunc("/api/stats", h.Stats)
	mux.HandleFunc("/api/leads", h.Leads)
	mux.HandleFunc("/api/leads/", h.LeadByID)
	mux.HandleFunc("/api/upload", h.Upload)
	mux.HandleFunc("/api/apply_mapping", h.ApplyMapping)
	mux.HandleFunc("/api/import/sheets", h.ImportSheets)
	mux.HandleFunc("/api/export", h.Export)
	mux.HandleFunc("/api/config", h.Config)
	mux.Handle("/", web.Handler())

	return &Server{
		srv: &http.Server{
			Addr:         addr,
			Handler:      loggingMiddleware(mux),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 2 * time.Minute, // large uploads and exports
			IdleTimeout:  60 * time.Second,
		},
	}
}

// Start begins listening and blocks until the server stops.
func (s *Server) Start() error {
	log.Printf("leadgen listening on %s", s.srv.Addr)
	return s.srv.ListenAndServe()
}

// Shutdown gracefully shuts down with the given context.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// loggingMiddleware logs each request with method, path and duration.
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		log.Printf("%s %s %d %s", r.Method, r.URL.Path, rw.status, time.Since(start))
	})
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(status int) {
	rw.status = status
	rw.ResponseWriter.WriteHeader(status)
}
