// Package server exposes the request façade over HTTP for out-of-process UIs.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/kutbudev/promptvault/internal/facade"
	"github.com/kutbudev/promptvault/internal/logging"
)

const shutdownTimeout = 5 * time.Second

// Options configures the listener and CORS policy. An empty CORSOrigins
// list rejects every request that carries an Origin header; "*" allows
// every origin. When Token is set, /v1 requires it as a bearer token.
type Options struct {
	Addr        string
	CORSOrigins []string
	Token       string
}

type Server struct {
	facade *facade.Facade
	opts   Options
	logger *zap.Logger
	router *gin.Engine
}

func New(f *facade.Facade, opts Options, log *zap.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	s := &Server{facade: f, opts: opts, logger: logging.OrNop(log)}
	s.router = s.routes()
	return s
}

// Handler returns the HTTP handler, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())
	if policy, ok := corsPolicy(s.opts.CORSOrigins); ok {
		r.Use(cors.New(policy))
	}

	// Ping endpoint for health check
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	v1 := r.Group("/v1", s.checkOrigin(), s.requireToken())
	{
		v1.POST("/rpc", requireJSON(), s.handleRPC)
		v1.GET("/operations", s.handleOperations)
	}
	return r
}

func corsPolicy(origins []string) (cors.Config, bool) {
	if len(origins) == 0 {
		return cors.Config{}, false
	}
	cfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
		MaxAge:       12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			return cfg, true
		}
	}
	cfg.AllowOrigins = origins
	return cfg, true
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP bridge listening", zap.String("addr", s.opts.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.logger.Info("Shutting down HTTP bridge")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)))
	}
}
