// Package server exposes the rotation over HTTP: status, manual control and
// Prometheus metrics.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"immich-wallpaper/internal/app/controller"
)

const (
	readTimeout     = 10 * time.Second
	writeTimeout    = 3 * time.Minute
	shutdownTimeout = 5 * time.Second
)

// Controller is the part of [controller.Controller] the server drives.
type Controller interface {
	Status() controller.Status
	Advance(ctx context.Context) error
	Restart()
}

// Config holds the control API settings.
type Config struct {
	// Listen is the address to serve on, e.g. "127.0.0.1:8421". Empty
	// disables the server.
	Listen string `toml:"listen"`
}

// Server is the control API.
type Server struct {
	httpServer *http.Server
}

// New creates a server for ctrl listening on addr.
func New(addr string, ctrl Controller) *Server {
	return &Server{httpServer: &http.Server{
		Addr:         addr,
		Handler:      NewRouter(ctrl),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}}
}

// NewRouter returns the control API routes.
func NewRouter(ctrl Controller) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(instrument)

	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, ctrl.Status())
	})
	r.Post("/advance", func(w http.ResponseWriter, r *http.Request) {
		err := ctrl.Advance(r.Context())
		switch {
		case err == nil:
			writeJSON(w, http.StatusOK, ctrl.Status())
		case errors.Is(err, controller.ErrNotActive):
			writeError(w, http.StatusConflict, err)
		case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
			writeError(w, http.StatusGatewayTimeout, err)
		default:
			writeError(w, http.StatusBadGateway, err)
		}
	})
	r.Post("/restart", func(w http.ResponseWriter, r *http.Request) {
		ctrl.Restart()
		w.WriteHeader(http.StatusAccepted)
	})
	r.Handle("/metrics", promhttp.Handler())
	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is like Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("control API listening", "addr", ln.Addr().String())
		err := s.httpServer.Serve(ln)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		errCh <- err
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	slog.Info("control API stopped")
	return <-errCh
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
