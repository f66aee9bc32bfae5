// File: internal/server/server.go
// Description: The background service HTTP surface. The extension panel
// submits scan snapshots for processing here, and relay-mode gateways on the
// panel side message-pass their generation calls to this process, which owns
// the provider credential.

package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/formpilot/formpilot-cli/api/schemas"
	"github.com/formpilot/formpilot-cli/internal/autofill"
	"github.com/formpilot/formpilot-cli/internal/config"
)

// Server hosts the autofill and generation endpoints.
type Server struct {
	cfg     config.ServerConfig
	logger  *zap.Logger
	service *autofill.Service
	gateway schemas.Gateway
	limiter *clientLimiter
	httpSrv *http.Server
}

// New builds the server and its router.
func New(cfg config.ServerConfig, service *autofill.Service, gw schemas.Gateway, logger *zap.Logger) *Server {
	s := &Server{
		cfg:     cfg,
		logger:  logger.Named("server"),
		service: service,
		gateway: gw,
		limiter: newClientLimiter(cfg.RequestsPerSecond, cfg.RequestBurst),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.rateLimit)

	r.Get("/healthz", s.handleHealth)
	r.Post("/v1/autofill", s.handleAutofill)
	r.Post("/v1/generate", s.handleGenerate)

	s.httpSrv = &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

// Handler exposes the router, primarily for httptest.
func (s *Server) Handler() http.Handler {
	return s.httpSrv.Handler
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("Background service listening", zap.String("addr", s.cfg.ListenAddr))
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down background service")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	return s.httpSrv.Shutdown(shutdownCtx)
}
