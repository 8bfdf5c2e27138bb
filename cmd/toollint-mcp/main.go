// Package main provides the toollint-mcp binary — MCP server for AI agents.
package main

import (
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/server"

	tmcp "github.com/ormasoftchile/toollint/pkg/mcp"
)

var version = "dev"

func main() {
	s := tmcp.NewServer(version)
	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
