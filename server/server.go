// Package server exposes the market-intel HTTP API: execution ingestion
// and report retrieval for the automation engine, schedule and webhook
// management for the dashboard.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/quantitva/market-intel/auth"
	"github.com/quantitva/market-intel/config"
	"github.com/quantitva/market-intel/errors"
	"github.com/quantitva/market-intel/registry"
	"github.com/quantitva/market-intel/schedule"
	"github.com/quantitva/market-intel/webhook"
)

// Server is the market-intel HTTP server
type Server struct {
	config *config.Config
	db     *sql.DB
	logger *zap.SugaredLogger

	authService *auth.Service
	authMW      *auth.Middleware

	scheduleStore  *schedule.Store
	executionStore *schedule.ExecutionStore
	metadataStore  *schedule.MetadataStore
	ingestor       *schedule.Ingestor
	webhookStore   *webhook.Store
	relay          *webhook.Relay

	schedules *registry.ScheduleRegistry
	reports   *registry.ReportRegistry

	mux  *http.ServeMux
	http *http.Server
}

// New creates a server wired to db.
func New(cfg *config.Config, db *sql.DB, logger *zap.SugaredLogger) (*Server, error) {
	authService, err := auth.NewService(db, cfg.Auth, logger)
	if err != nil {
		return nil, errors.Wrap(err, "failed to initialize auth")
	}

	s := &Server{
		config:         cfg,
		db:             db,
		logger:         logger,
		authService:    authService,
		authMW:         auth.NewMiddleware(authService, logger),
		scheduleStore:  schedule.NewStore(db),
		executionStore: schedule.NewExecutionStore(db),
		metadataStore:  schedule.NewMetadataStore(db),
		ingestor:       schedule.NewIngestor(db),
		webhookStore:   webhook.NewStore(db),
		relay:          webhook.NewRelay(cfg.Relay),
		schedules:      registry.NewScheduleRegistry(db),
		reports:        registry.NewReportRegistry(0),
		mux:            http.NewServeMux(),
	}
	s.setupRoutes()
	return s, nil
}

// Handler returns the routed handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start begins serving on the configured port and blocks until shutdown.
func (s *Server) Start() error {
	port := s.config.Server.Port
	if port == 0 {
		port = config.DefaultServerPort
	}

	s.http = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      s.mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * time.Minute,
	}

	s.logger.Infow("Starting market-intel server", "port", port)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server failed")
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	s.logger.Infow("Shutting down market-intel server")
	return s.http.Shutdown(ctx)
}
