// Package agent exposes the list write tool to agents over MCP.
package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"spconnect/application"
	"spconnect/logging"
)

// ListTool is the agent tool served over MCP.
type ListTool interface {
	Descriptor(ctx context.Context) (*application.ToolDescriptor, error)
	Invoke(ctx context.Context, input map[string]any) (string, error)
}

// ServerConfig configures the MCP server
type ServerConfig struct {
	// Name is the server name (default: "spconnect")
	Name string

	// Version is the spconnect version
	Version string

	// ToolName overrides the registered tool name
	ToolName string
}

// Server wraps the MCP server and the list write tool
type Server struct {
	mcpServer *server.MCPServer
	tool      ListTool
	version   string
	logger    *logging.Logger
}

// NewServer reads the tool descriptor, which needs the list schema, and registers the tool.
func NewServer(ctx context.Context, config ServerConfig, tool ListTool, logger *logging.Logger) (*Server, error) {
	if config.Name == "" {
		config.Name = "spconnect"
	}
	if config.Version == "" {
		config.Version = "dev"
	}
	if config.ToolName == "" {
		config.ToolName = application.WriteListToolName
	}
	if logger == nil {
		logger = logging.Default()
	}

	s := &Server{
		mcpServer: server.NewMCPServer(config.Name, config.Version),
		tool:      tool,
		version:   config.Version,
		logger:    logger.WithComponent("mcp_server"),
	}

	descriptor, err := tool.Descriptor(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to build tool descriptor: %w", err)
	}
	schema, err := json.Marshal(descriptor.InputSchema)
	if err != nil {
		return nil, fmt.Errorf("failed to encode tool input schema: %w", err)
	}
	s.mcpServer.AddTool(mcp.NewToolWithRawSchema(config.ToolName, descriptor.Description, schema), s.handleWriteList)

	return s, nil
}

// handleWriteList adds the call arguments as one list item.
func (s *Server) handleWriteList(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	if len(args) == 0 {
		return mcp.NewToolResultError("Missing item fields"), nil
	}

	output, err := s.tool.Invoke(ctx, map[string]any{"input": args})
	if err != nil {
		s.logger.Error("List write tool failed", "error", err)
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(output), nil
}

// Run serves the tool over stdio until stdin closes.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("Starting MCP server", "version", s.version)
	if err := server.ServeStdio(s.mcpServer); err != nil {
		return fmt.Errorf("MCP server error: %w", err)
	}
	return nil
}
