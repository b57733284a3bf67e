package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/srtux/sre-agent-sub000/internal/agent/tools"
)

// NewMCPServer exposes the diagnostic tool registry over MCP so non-chat
// clients (IDEs, other agents) can call the same telemetry tools the
// investigation agent uses.
func NewMCPServer(registry *tools.Registry, version string) (*server.MCPServer, error) {
	mcpServer := server.NewMCPServer(
		"SRE Agent MCP Server",
		version,
		server.WithToolCapabilities(false),
		server.WithLogging(),
	)

	for _, t := range registry.List() {
		schemaJSON, err := json.Marshal(t.InputSchema())
		if err != nil {
			return nil, fmt.Errorf("failed to marshal schema for tool %s: %w", t.Name(), err)
		}

		mcpTool := mcp.NewToolWithRawSchema(t.Name(), t.Description(), schemaJSON)
		mcpServer.AddTool(mcpTool, newToolHandler(registry, t.Name()))
	}

	return mcpServer, nil
}

// newToolHandler adapts a registry tool to the mcp-go handler contract. Tool
// failures become MCP tool-result errors, never transport errors.
func newToolHandler(registry *tools.Registry, name string) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, err := json.Marshal(request.Params.Arguments)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Invalid arguments: %v", err)), nil
		}

		result, err := registry.Execute(ctx, name, args)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Tool execution failed: %v", err)), nil
		}

		resultJSON, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to format result: %v", err)), nil
		}

		return mcp.NewToolResultText(string(resultJSON)), nil
	}
}
