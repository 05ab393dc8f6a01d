// Package server serves the MCP endpoint and a health check over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/agenthands/lila/internal/core"
	"github.com/agenthands/lila/internal/dispatch"
)

const (
	MCPPath    = "/mcp"
	HealthPath = "/health"

	shutdownTimeout = 10 * time.Second
)

type Server struct {
	Engine    *core.Engine
	StoreName string

	mcp *mcpserver.StreamableHTTPServer
	log *zap.Logger
}

func NewServer(e *core.Engine, m *mcpserver.MCPServer, storeName string, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		Engine:    e,
		StoreName: storeName,
		mcp:       mcpserver.NewStreamableHTTPServer(m, mcpserver.WithEndpointPath(MCPPath)),
		log:       log,
	}
}

func (s *Server) SetupRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	r.GET(HealthPath, s.Health)
	r.Any(MCPPath, gin.WrapH(s.mcp))

	return r
}

type HealthResponse struct {
	Status         string `json:"status"`
	Service        string `json:"service"`
	Store          string `json:"store"`
	StoreConnected bool   `json:"store_connected"`
}

func (s *Server) Health(c *gin.Context) {
	resp := HealthResponse{
		Status:         "healthy",
		Service:        dispatch.ServerName,
		Store:          s.StoreName,
		StoreConnected: true,
	}
	if err := s.Engine.Ping(c.Request.Context()); err != nil {
		s.log.Warn("health check failed", zap.Error(err))
		resp.Status = "degraded"
		resp.StoreConnected = false
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.SetupRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", zap.String("addr", addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.log.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.mcp.Shutdown(shutdownCtx); err != nil {
		s.log.Warn("mcp shutdown", zap.Error(err))
	}
	return srv.Shutdown(shutdownCtx)
}
