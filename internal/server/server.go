package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/plipowczan/google-file-search-agent/internal/config"
	"github.com/plipowczan/google-file-search-agent/internal/handlers"
)

// Version is reported by the root endpoint.
const Version = "1.0.0"

// Server is the HTTP front of the lifecycle coordinator.
type Server struct {
	cfg     config.ServerConfig
	metrics config.MetricsConfig
	service handlers.Service
	logger  *slog.Logger
	handler http.Handler
}

func New(cfg config.ServerConfig, metricsCfg config.MetricsConfig, service handlers.Service, logger *slog.Logger) *Server {
	s := &Server{
		cfg:     cfg,
		metrics: metricsCfg,
		service: service,
		logger:  logger.With("component", "http"),
	}
	s.handler = s.RecoveryMiddleware(
		s.RequestIDMiddleware(
			s.LoggingMiddleware(
				s.CORSMiddleware(s.routes()),
			),
		),
	)
	return s
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) routes() *http.ServeMux {
	stores := &handlers.StoreHandler{Service: s.service, Logger: s.logger}
	files := &handlers.FileHandler{Service: s.service, Logger: s.logger, MaxUploadBytes: s.cfg.MaxUploadBytes}
	chat := &handlers.ChatHandler{Service: s.service, Logger: s.logger}
	health := &handlers.HealthHandler{Service: s.service, Logger: s.logger, Version: Version}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", health.Root)
	mux.HandleFunc("GET /health", health.Health)

	mux.HandleFunc("POST /stores", stores.CreateStore)
	mux.HandleFunc("POST /stores/{$}", stores.CreateStore)
	mux.HandleFunc("GET /stores", stores.ListStores)
	mux.HandleFunc("GET /stores/{$}", stores.ListStores)
	mux.HandleFunc("GET /stores/{id}", stores.GetStore)
	mux.HandleFunc("DELETE /stores/{id}", stores.DeleteStore)

	mux.HandleFunc("POST /stores/{id}/files", files.UploadFile)
	mux.HandleFunc("POST /stores/{id}/files/{$}", files.UploadFile)
	mux.HandleFunc("GET /stores/{id}/files", files.ListFiles)
	mux.HandleFunc("GET /stores/{id}/files/{$}", files.ListFiles)
	mux.HandleFunc("DELETE /stores/{id}/files/{file_id}", files.DeleteFile)

	mux.HandleFunc("POST /chat", chat.Chat)
	mux.HandleFunc("POST /chat/{$}", chat.Chat)
	mux.HandleFunc("GET /models", chat.ListModels)

	if s.metrics.Enabled {
		mux.Handle("GET "+s.metrics.Path, promhttp.Handler())
	}

	return mux
}

// Run serves HTTP on the configured address until ctx is cancelled, then
// shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.HTTPAddr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.cfg.HTTPAddr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// In-flight requests keep running until they finish or the timeout
	// expires; only then are their connections closed.
	s.logger.Info("shutting down http server", "timeout", timeout)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		_ = srv.Close()
		return fmt.Errorf("shutting down http server: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}
