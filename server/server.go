// Package server exposes the sales assistant over HTTP: a streaming endpoint
// delivering the turn's events as server-sent events, a synchronous variant
// returning the collected answer, and a health probe.
package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hupe1980/salesmesh/logging"
	"github.com/hupe1980/salesmesh/runner"
)

// Options holds dependency + configuration overrides passed to New().
type Options struct {
	// Logger receives structured request records.
	Logger logging.Logger
}

// Server routes assistant requests to a Runner.
type Server struct {
	runner *runner.Runner
	engine *gin.Engine
	logger logging.Logger
}

// New constructs a Server with optional overrides.
func New(r *runner.Runner, optFns ...func(o *Options)) *Server {
	opts := Options{Logger: logging.NoOpLogger{}}

	for _, fn := range optFns {
		fn(&opts)
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), cors())

	s := &Server{runner: r, engine: engine, logger: opts.Logger}

	engine.GET("/healthz", s.handleHealth)
	engine.POST("/v1/assist", s.handleAssist)
	engine.POST("/v1/assist/sync", s.handleAssistSync)

	return s
}

// Handler returns the HTTP handler, mainly for tests and embedding.
func (s *Server) Handler() http.Handler { return s.engine }

// Run serves until the listener fails.
func (s *Server) Run(addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return srv.ListenAndServe()
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// cors allows requests from all origins, matching the deployment behind a
// browser frontend.
func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
