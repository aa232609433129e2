// Package api is the transport layer: an echo/v5 HTTP server exposing the
// REST surface, a WebSocket endpoint for bidirectional runs, and an SSE
// endpoint for request-only streaming.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	echo "github.com/labstack/echo/v5"

	"github.com/maestro-ai/maestro/pkg/routing"
	"github.com/maestro-ai/maestro/pkg/session"
	"github.com/maestro-ai/maestro/pkg/store"
)

// wsWriteTimeout bounds a single WebSocket frame write.
const wsWriteTimeout = 10 * time.Second

// Config holds the transport settings.
type Config struct {
	Addr           string
	AllowedOrigins []string
}

// Server wires the HTTP routes to the session manager and stores.
type Server struct {
	cfg           Config
	sessions      *session.Manager
	conversations store.ConversationStore
	history       store.HistorySink
	cache         *routing.Cache

	echo *echo.Echo
	http *http.Server
}

// NewServer builds the server and registers all routes. conversations,
// history, and cache may be nil; their endpoints then return 503.
func NewServer(cfg Config, sessions *session.Manager, conversations store.ConversationStore, history store.HistorySink, cache *routing.Cache) *Server {
	s := &Server{
		cfg:           cfg,
		sessions:      sessions,
		conversations: conversations,
		history:       history,
		cache:         cache,
		echo:          echo.New(),
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	e := s.echo
	e.Use(securityHeaders())
	e.Use(requestLogger())

	e.GET("/healthz", s.healthHandler)
	e.GET("/ws", s.wsHandler)

	v1 := e.Group("/api/v1")
	v1.GET("/conversations", s.listConversationsHandler)
	v1.POST("/conversations", s.createConversationHandler)
	v1.GET("/conversations/:id", s.getConversationHandler)
	v1.GET("/history", s.historyHandler)
	v1.GET("/debug/routing-cache", s.routingCacheHandler)
	v1.GET("/runs/:id", s.getRunHandler)
	v1.POST("/runs/:id/respond", s.respondHandler)
	v1.POST("/runs/:id/cancel", s.cancelRunHandler)
	v1.POST("/stream", s.streamHandler)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler { return s.echo }

// Start listens on the configured address. Blocks until the listener fails
// or Shutdown is called.
func (s *Server) Start() error {
	s.http = &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.echo,
		ReadHeaderTimeout: 10 * time.Second,
	}
	slog.Info("HTTP server listening", "addr", s.cfg.Addr)
	return s.http.ListenAndServe()
}

// Shutdown drains in-flight requests within the context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}
