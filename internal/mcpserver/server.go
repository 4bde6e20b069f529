// Package mcpserver exposes negotiation sessions as MCP tools, over stdio or
// streamable HTTP.
package mcpserver

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"

	"github.com/mark3labs/dualai/internal/logger"
	"github.com/mark3labs/dualai/internal/negotiation"
	"github.com/mark3labs/dualai/internal/session"
	"github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NegotiateParams are the arguments of the negotiate tool.
type NegotiateParams struct {
	Request     string
	Rounds      int                     // 0 means the configured default
	Implementer negotiation.Implementer // Empty means the configured default
}

// NegotiateFunc runs one session to completion.
type NegotiateFunc func(ctx context.Context, p NegotiateParams) (*negotiation.Result, error)

// Config wires the server to the rest of the application.
type Config struct {
	Name      string
	Version   string
	Negotiate NegotiateFunc
	Store     *session.Store      // nil disables the sessions and session tools
	Gatherer  prometheus.Gatherer // Served on /metrics in HTTP mode when set
}

// Server manages an MCP server exposing negotiate, sessions and session tools.
type Server struct {
	cfg        Config
	mcpServer  *server.MCPServer
	httpServer *server.StreamableHTTPServer
	stdServer  *http.Server
	addr       string
	mu         sync.Mutex
}

// New creates a server with its tools registered. Nothing listens until
// Start or ServeStdio is called.
func New(cfg Config) (*Server, error) {
	if cfg.Negotiate == nil {
		return nil, fmt.Errorf("mcpserver: Negotiate is required")
	}
	if cfg.Name == "" {
		cfg.Name = "dualai"
	}
	if cfg.Version == "" {
		cfg.Version = "dev"
	}

	s := &Server{cfg: cfg}
	s.mcpServer = server.NewMCPServer(
		cfg.Name,
		cfg.Version,
		server.WithToolCapabilities(true),
	)
	if err := s.registerTools(); err != nil {
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}
	return s, nil
}

// ServeStdio serves MCP over the given streams until ctx is cancelled or in
// reaches EOF.
func (s *Server) ServeStdio(ctx context.Context, in io.Reader, out io.Writer) error {
	logger.Info("Serving MCP over stdio")
	return server.NewStdioServer(s.mcpServer).Listen(ctx, in, out)
}

// Start listens on addr ("127.0.0.1:0" picks a free port) and serves /mcp,
// plus /metrics when a Gatherer is configured. It returns once the listener
// is bound.
func (s *Server) Start(ctx context.Context, addr string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stdServer != nil {
		return "", fmt.Errorf("server already started")
	}
	if addr == "" {
		addr = "127.0.0.1:0"
	}

	// Bind first and hand the listener to Serve to avoid a port race.
	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return "", fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.addr = listener.Addr().String()

	mux := http.NewServeMux()
	mcpHandler := server.NewStreamableHTTPServer(
		s.mcpServer,
		server.WithStateLess(true),
	)
	mux.Handle("/mcp", mcpHandler)
	if s.cfg.Gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(s.cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	s.stdServer = &http.Server{Handler: mux}
	s.httpServer = mcpHandler

	stdServer := s.stdServer
	go func() {
		if err := stdServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			logger.Error("MCP server error: %v", err)
		}
	}()

	logger.Info("MCP server listening on %s", s.addr)
	return s.addr, nil
}

// Stop shuts the HTTP server down. It is a no-op when not started.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stdServer == nil {
		return nil
	}

	logger.Debug("Stopping MCP server")
	if err := s.stdServer.Shutdown(ctx); err != nil {
		logger.Warn("Error stopping MCP server: %v", err)
		return fmt.Errorf("failed to stop server: %w", err)
	}

	s.httpServer = nil
	s.stdServer = nil
	logger.Debug("MCP server stopped")
	return nil
}

// URL returns the HTTP URL of the MCP endpoint.
func (s *Server) URL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fmt.Sprintf("http://%s/mcp", s.addr)
}
