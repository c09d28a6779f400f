// Package server exposes the lifecycle controller to the local UI shell
// over HTTP. It is a thin adapter: every handler delegates to the
// in-process controller operations.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/selfserve/proxyctl/internal/controller"
	"github.com/selfserve/proxyctl/internal/journal"
	"github.com/selfserve/proxyctl/internal/observability"
)

// Config carries the listener settings for the control surface.
type Config struct {
	ListenAddr  string
	CorsOrigins []string
	Logger      zerolog.Logger
}

// Server routes control requests to the lifecycle controller.
type Server struct {
	cfg       Config
	ctl       *controller.Controller
	jr        *journal.Journal
	engine    *gin.Engine
	startedAt time.Time
}

// New builds the HTTP surface. The journal is optional; without it the
// history route reports unavailable.
func New(cfg Config, ctl *controller.Controller, jr *journal.Journal) *Server {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Middleware: keep it lean
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(cfg.Logger))
	r.Use(observability.RequestMetricsMiddleware())
	if len(cfg.CorsOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins: cfg.CorsOrigins,
			AllowMethods: []string{"GET", "POST"},
			AllowHeaders: []string{"Origin", "Content-Type"},
			MaxAge:       12 * time.Hour,
		}))
	}

	s := &Server{
		cfg:       cfg,
		ctl:       ctl,
		jr:        jr,
		engine:    r,
		startedAt: time.Now(),
	}
	s.registerRoutes()
	return s
}

// Engine exposes the router for tests and embedding.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.cfg.ListenAddr,
		Handler: s.engine,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	s.cfg.Logger.Info().Str("addr", s.cfg.ListenAddr).Msg("control surface listening")

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
