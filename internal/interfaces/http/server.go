// Package http provides the HTTP adapter over the application layer.
// It translates requests to engine and query service calls; authentication
// happens upstream and reaches this layer as the X-Actor-ID header.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/civicdesk/caseflow/internal/application/engine"
	"github.com/civicdesk/caseflow/internal/application/port"
	"github.com/civicdesk/caseflow/internal/application/service"
	"github.com/civicdesk/caseflow/internal/report"
)

// Logger interface for logging operations
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:         "0.0.0.0",
		Port:         8080,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}

// Server is the HTTP server adapter
type Server struct {
	config     ServerConfig
	httpServer *http.Server
	router     *gin.Engine
	engine     engine.Engine
	queries    service.TaskQueryService
	users      port.UserDirectory
	exporter   *report.RegisterExporter
	logger     Logger
}

// NewServer creates a new HTTP server wired to the workflow engine and the
// read-side query service.
func NewServer(
	config ServerConfig,
	eng engine.Engine,
	queries service.TaskQueryService,
	users port.UserDirectory,
	exporter *report.RegisterExporter,
	logger Logger,
) *Server {
	gin.SetMode(gin.ReleaseMode)

	server := &Server{
		config:   config,
		router:   gin.New(),
		engine:   eng,
		queries:  queries,
		users:    users,
		exporter: exporter,
		logger:   logger,
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())
}

func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		s.logger.Info("HTTP request",
			"method", method,
			"path", path,
			"status", status,
			"latency", latency.String(),
			"client_ip", c.ClientIP(),
		)
	}
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	handlers := NewHandlers(s.engine, s.queries, s.exporter, s.logger)

	// Health check
	s.router.GET("/health", handlers.HealthCheck)

	// API routes; every mutating route needs an authenticated principal.
	api := s.router.Group("/api")
	{
		api.GET("/requests", handlers.ListRequests)
		api.GET("/requests/:id", handlers.GetRequest)
		api.GET("/requests/:id/history", handlers.GetHistory)
		api.GET("/references/:reference", handlers.GetRequestByReference)

		api.GET("/offices/:id/tasks", handlers.ListOfficeTasks)
		api.GET("/offices/:id/register", handlers.ExportOfficeRegister)
		api.GET("/users/:id/tasks", handlers.ListUserTasks)

		acting := api.Group("", s.principalMiddleware())
		{
			acting.POST("/requests", handlers.CreateRequest)
			acting.POST("/requests/:id/claim", handlers.ClaimTask)
			acting.POST("/requests/:id/submit", handlers.SubmitTask)
			acting.POST("/requests/:id/approve", handlers.ApproveStep)
			acting.POST("/requests/:id/reject", handlers.RejectStep)
			acting.POST("/requests/:id/correction", handlers.RequestCorrection)
		}
	}
}

// principalMiddleware resolves the X-Actor-ID header against the user
// directory and attaches the principal to the gin context.
func (s *Server) principalMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		actorID := c.GetHeader("X-Actor-ID")
		if actorID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, Response{
				Success: false,
				Error:   "missing X-Actor-ID header",
			})
			return
		}

		user, err := s.users.GetByID(c.Request.Context(), actorID)
		if err != nil {
			s.logger.Error("failed to resolve principal", "actor_id", actorID, "error", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, Response{
				Success: false,
				Error:   "failed to resolve acting user",
			})
			return
		}
		if user == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, Response{
				Success: false,
				Error:   "unknown acting user",
			})
			return
		}

		c.Set(principalKey, user)
		c.Next()
	}
}

// Start starts the HTTP server and blocks until the context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info("Starting HTTP server", "address", addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("HTTP server shutdown requested")
		return s.Stop()
	case err := <-errCh:
		s.logger.Error("HTTP server error", "error", err)
		return err
	}
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	s.logger.Info("Stopping HTTP server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
		return err
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

// Router returns the underlying gin router (for testing)
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Address returns the server address
func (s *Server) Address() string {
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}
