package application

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"

	"github.com/mark3labs/mcp-go/server"

	"jira-mcp-server/internal/domain"
)

// Server identity reported in the MCP initialize handshake.
const (
	ServerName    = "jira-mcp"
	ServerVersion = "1.0.0"
)

// Server wraps the MCP protocol server and the transport it is exposed on.
// The protocol framing, schema validation, and tool routing are owned by the
// MCP SDK; this wrapper selects the transport and manages the serve lifecycle.
type Server struct {
	mcpServer *server.MCPServer
	config    *domain.Config
	logger    *slog.Logger
}

// NewServer assembles the MCP server with the handler's tool catalog
// registered. A nil logger discards log output.
func NewServer(handler *JiraHandler, config *domain.Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	mcpServer := server.NewMCPServer(
		ServerName,
		ServerVersion,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)
	mcpServer.AddTools(handler.Tools()...)

	return &Server{
		mcpServer: mcpServer,
		config:    config,
		logger:    logger,
	}
}

// Run serves MCP on the configured transport until the context is cancelled
// or the transport closes. Stdout carries the protocol on the stdio
// transport, so all logging goes to stderr.
func (s *Server) Run(ctx context.Context) error {
	switch s.config.Transport.Type {
	case "stdio":
		s.logger.Info("starting MCP server", "transport", "stdio")
		stdio := server.NewStdioServer(s.mcpServer)
		stdio.SetErrorLogger(log.New(os.Stderr, "[mcp] ", log.LstdFlags))
		return stdio.Listen(ctx, os.Stdin, os.Stdout)
	case "http":
		return s.runHTTP(ctx)
	default:
		return fmt.Errorf("invalid transport type: %s", s.config.Transport.Type)
	}
}

// runHTTP serves the streamable HTTP transport, shutting down gracefully when
// the context is cancelled.
func (s *Server) runHTTP(ctx context.Context) error {
	addr := s.config.Transport.HTTP.Addr()
	s.logger.Info("starting MCP server", "transport", "http", "addr", addr)

	httpServer := server.NewStreamableHTTPServer(s.mcpServer)

	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down MCP server")
		return httpServer.Shutdown(context.Background())
	case err := <-errCh:
		return fmt.Errorf("http server failed: %w", err)
	}
}
