package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/citegap/citegap/internal/api"
	"github.com/citegap/citegap/internal/config"
	"github.com/citegap/citegap/internal/database"
	"github.com/citegap/citegap/internal/logger"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	defaultReadTimeout  = 30 * time.Second
	defaultWriteTimeout = 10 * time.Minute
	defaultIdleTimeout  = 120 * time.Second
	healthCheckTimeout  = 2 * time.Second
	shutdownTimeout     = 15 * time.Second
)

// Server wraps the HTTP server with lifecycle management.
type Server struct {
	router *gin.Engine
	server *http.Server
	log    logger.Logger
}

// SetupHTTPServer creates the HTTP server with all handlers wired. The
// write timeout is generous because a triggered pipeline run executes
// inside the request.
func SetupHTTPServer(
	cfg *config.Config,
	db *database.Connection,
	pipeline *Pipeline,
	log logger.Logger,
) *Server {
	if cfg.Service.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(RecoveryMiddleware(log))
	router.Use(LoggerMiddleware(log))

	router.GET("/healthz", healthHandler(cfg, db))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	pipelineHandler := api.NewPipelineHandler(pipeline.Orchestrator, log)
	probeHandler := api.NewProbeHandler(pipeline.Prober, pipeline.Adapters)
	gapHandler := api.NewGapHandler(pipeline.Analyzer, pipeline.Gaps, pipeline.Generator, cfg.Analysis.WindowDays)
	contentHandler := api.NewContentHandler(pipeline.Content)

	api.SetupRoutes(router, pipelineHandler, probeHandler, gapHandler, contentHandler, cfg.Auth.SchedulerSecret)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Service.Port),
		Handler:      router,
		ReadTimeout:  defaultReadTimeout,
		WriteTimeout: defaultWriteTimeout,
		IdleTimeout:  defaultIdleTimeout,
	}

	return &Server{
		router: router,
		server: httpServer,
		log:    log,
	}
}

// Router returns the underlying Gin engine.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Start runs the server until shutdown or a listener error.
func (s *Server) Start() error {
	s.log.Info("Starting HTTP server", logger.String("address", s.server.Addr))

	if serveErr := s.server.ListenAndServe(); serveErr != nil && serveErr != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", serveErr)
	}

	return nil
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	if shutdownErr := s.server.Shutdown(shutdownCtx); shutdownErr != nil {
		return fmt.Errorf("server shutdown: %w", shutdownErr)
	}

	s.log.Info("HTTP server stopped gracefully")
	return nil
}

// healthHandler reports service liveness and database reachability.
func healthHandler(cfg *config.Config, db *database.Connection) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
		defer cancel()

		status := http.StatusOK
		dbStatus := "ok"
		if pingErr := db.Ping(ctx); pingErr != nil {
			status = http.StatusServiceUnavailable
			dbStatus = pingErr.Error()
		}

		c.JSON(status, gin.H{
			"service":  cfg.Service.Name,
			"version":  cfg.Service.Version,
			"database": dbStatus,
		})
	}
}
