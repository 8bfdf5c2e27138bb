// Package mcp exposes the linter over the Model Context Protocol so agents
// can lint tool definitions without shelling out.
package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// NewServer creates a new MCP server with toollint tools registered.
func NewServer(version string) *server.MCPServer {
	s := server.NewMCPServer(
		"toollint",
		version,
		server.WithToolCapabilities(true),
	)

	s.AddTool(
		mcp.NewTool("toollint/lint",
			mcp.WithDescription("Lint the tests section of a tool-definition XML file"),
			mcp.WithString("path", mcp.Required(), mcp.Description("Path to the tool XML file")),
			mcp.WithString("level", mcp.Description("Minimum severity to report: all, info, warn, or error")),
		),
		HandleLint,
	)

	s.AddTool(
		mcp.NewTool("toollint/schema",
			mcp.WithDescription("Export the JSON Schema for toollint profile files"),
		),
		HandleSchema,
	)

	return s
}
