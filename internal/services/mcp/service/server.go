package service

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/louisbranch/hiring.space/internal/platform/logger"
	"github.com/louisbranch/hiring.space/internal/platform/timeouts"
	"github.com/louisbranch/hiring.space/internal/services/mcp/domain"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

const (
	serverName    = "hiring.space operator"
	serverVersion = "0.1.0"
)

// Dependencies are the collaborators the tools call. Drainer and Attempts are
// optional; their tools are only registered when set.
type Dependencies struct {
	Pipeline domain.Pipeline
	Drainer  domain.Drainer
	Attempts domain.AttemptLister
	Logger   *zap.Logger
}

// Server is an MCP server exposing the pipeline operator tools.
type Server struct {
	mcpServer *mcp.Server
	log       *zap.Logger
}

// New builds the MCP server and registers every tool module.
func New(deps Dependencies) (*Server, error) {
	if deps.Pipeline == nil {
		return nil, errors.New("pipeline is required")
	}
	mcpServer := mcp.NewServer(&mcp.Implementation{Name: serverName, Version: serverVersion}, nil)
	for _, module := range registrationModules(deps) {
		if err := module.register(mcpServer); err != nil {
			return nil, fmt.Errorf("register MCP module %q: %w", module.name, err)
		}
	}
	return &Server{mcpServer: mcpServer, log: logger.OrNop(deps.Logger)}, nil
}

// ServeTransport runs the server on transport until ctx ends or the peer
// disconnects.
func (s *Server) ServeTransport(ctx context.Context, transport mcp.Transport) error {
	if s == nil || s.mcpServer == nil {
		return fmt.Errorf("MCP server is not configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	err := s.mcpServer.Run(ctx, transport)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("serve MCP: %w", err)
	}
	return nil
}

// Handler returns the streamable HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.mcpServer
	}, nil)
}

// ServeHTTP serves streamable HTTP on listener until ctx ends.
func (s *Server) ServeHTTP(ctx context.Context, listener net.Listener) error {
	if ctx == nil {
		ctx = context.Background()
	}
	httpServer := &http.Server{
		Handler:           otelhttp.NewHandler(s.Handler(), "mcp.http"),
		ReadHeaderTimeout: timeouts.ReadHeader,
	}
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- httpServer.Serve(listener)
	}()
	s.log.Info("mcp listening", zap.String("http_addr", listener.Addr().String()))

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve MCP http: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown MCP http: %w", err)
	}
	return nil
}
