package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/zjrosen/symtab/internal/cachemanager"
	"github.com/zjrosen/symtab/internal/flags"
	"github.com/zjrosen/symtab/internal/log"
	"github.com/zjrosen/symtab/internal/symtab"
)

// Server wraps the Handler with an http.Server for lifecycle management.
type Server struct {
	handler  *Handler
	server   *http.Server
	listener net.Listener
	addr     string
	port     int // Actual port after binding (useful when using :0)
}

// ServerConfig configures the API server.
type ServerConfig struct {
	// Addr is the address to listen on (e.g., "localhost:5555" or ":0").
	Addr string
	// Registry is the symbol table to expose via HTTP.
	Registry *symtab.Registry
	// Flags gates optional endpoints.
	Flags *flags.Registry
	// Tracer wraps routes in server spans. Optional.
	Tracer trace.Tracer
	// MemoryLimit reports the current byte limit. Optional.
	MemoryLimit func() int64
	// PreviewThreshold is the default preview truncation threshold.
	PreviewThreshold int64
	// ReplayCache backs idempotent creates. Optional.
	ReplayCache cachemanager.CacheManager[string, Replay]
	// IdempotencyTTL is how long a create response is replayable.
	IdempotencyTTL time.Duration
	// ReadTimeout is the maximum duration for reading the entire request.
	ReadTimeout time.Duration
	// WriteTimeout is the maximum duration before timing out writes of the response.
	// Zero leaves SSE streams unbounded.
	WriteTimeout time.Duration
}

// NewServer creates a new API server.
// If Addr uses port 0 (e.g., "localhost:0" or ":0"), the OS will assign an available port.
// Use Port() after Start() to get the actual port.
func NewServer(cfg ServerConfig) (*Server, error) {
	handler := NewHandlerWithConfig(HandlerConfig{
		Registry:         cfg.Registry,
		Flags:            cfg.Flags,
		Tracer:           cfg.Tracer,
		MemoryLimit:      cfg.MemoryLimit,
		PreviewThreshold: cfg.PreviewThreshold,
		ReplayCache:      cfg.ReplayCache,
		IdempotencyTTL:   cfg.IdempotencyTTL,
	})

	readTimeout := cfg.ReadTimeout
	if readTimeout == 0 {
		readTimeout = 30 * time.Second
	}

	// Create listener first to get the actual port (important for :0)
	listener, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", cfg.Addr, err)
	}

	port := 0
	if tcpAddr, ok := listener.Addr().(*net.TCPAddr); ok {
		port = tcpAddr.Port
	}

	return &Server{
		handler:  handler,
		addr:     cfg.Addr,
		port:     port,
		listener: listener,
		server: &http.Server{
			Handler:           handler.Routes(),
			ReadTimeout:       readTimeout,
			ReadHeaderTimeout: 10 * time.Second,
			WriteTimeout:      cfg.WriteTimeout,
		},
	}, nil
}

// Start starts the HTTP server. It blocks until the server is stopped or fails.
func (s *Server) Start() error {
	log.Info(log.CatAPI, "Starting API server", "addr", s.listener.Addr().String(), "port", s.port)
	return s.server.Serve(s.listener)
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	log.Info(log.CatAPI, "Stopping API server")
	err := s.server.Shutdown(ctx)
	// Shutdown only closes listeners that Serve is using.
	_ = s.listener.Close()
	return err
}

// Port returns the actual port the server is listening on.
func (s *Server) Port() int {
	return s.port
}

// Addr returns the bound listener address.
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}
