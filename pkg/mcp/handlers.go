package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ormasoftchile/toollint/pkg/lint"
	"github.com/ormasoftchile/toollint/pkg/linters"
	"github.com/ormasoftchile/toollint/pkg/profile"
	"github.com/ormasoftchile/toollint/pkg/toolxml"
)

// HandleLint implements the toollint/lint MCP tool.
func HandleLint(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	path, _ := args["path"].(string)
	if path == "" {
		return errorResult("path argument is required"), nil
	}

	min := lint.LevelValid
	if levelArg, _ := args["level"].(string); levelArg != "" {
		parsed, err := lint.ParseLevel(levelArg)
		if err != nil {
			return errorResult(err.Error()), nil
		}
		min = parsed
	}

	doc, err := toolxml.LoadFile(path)
	if err != nil {
		return errorResult(err.Error()), nil
	}
	if !toolxml.IsLintable(doc) {
		return textResult(fmt.Sprintf("skipped: tool type %q is not linted", toolxml.ToolType(doc))), nil
	}

	lctx := lint.NewContext()
	lctx.Lint(doc, linters.All()...)

	findings := []map[string]any{}
	counts := map[string]int{}
	for _, m := range lctx.Messages {
		counts[m.Level.String()]++
		if m.Level < min {
			continue
		}
		finding := map[string]any{
			"level":   m.Level.String(),
			"linter":  m.Linter,
			"message": m.Text,
		}
		if p := m.XPath(); p != "" {
			finding["xpath"] = p
		}
		findings = append(findings, finding)
	}

	response := map[string]any{
		"path":     path,
		"toolType": toolxml.ToolType(doc),
		"findings": findings,
		"summary":  counts,
	}
	data, _ := json.MarshalIndent(response, "", "  ")

	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.NewTextContent(string(data))},
		IsError: lctx.FoundErrors(),
	}, nil
}

// HandleSchema implements the toollint/schema MCP tool.
func HandleSchema(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	data, err := profile.GenerateJSONSchema()
	if err != nil {
		return errorResult(err.Error()), nil
	}
	return textResult(string(data)), nil
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(text),
		},
	}
}

func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(msg),
		},
		IsError: true,
	}
}
