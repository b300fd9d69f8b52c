package webaudit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// RegisterMCP registers the audit tool on an MCP server. Tool errors are
// reported through the MCP result, never as protocol errors, so an invalid
// URL surfaces to the model as a readable message.
func (a *Auditor) RegisterMCP(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name: "audit_website",
		Description: "Audit a website for privacy-compliance signals: consent behaviour, " +
			"third-party trackers, form PII collection, security headers, and policy documents. " +
			"Returns a structured report. Never submits forms or authenticates.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"url": map[string]any{
					"type":        "string",
					"description": "Target page URL (http or https)",
				},
				"mode": map[string]any{
					"type":        "string",
					"enum":        []string{string(ModeGeneric), string(ModeLogin), string(ModeSignup)},
					"description": "Declared intent of the page; gates the data-minimization flag",
				},
				"maxWaitMs": map[string]any{
					"type":        "integer",
					"description": "Dynamic page-load wait bound in milliseconds (default 15000)",
				},
			},
			"required": []string{"url"},
		},
	}

	srv.AddTool(tool, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var r Request
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			var res mcp.CallToolResult
			res.SetError(fmt.Errorf("audit_website: invalid arguments: %w", err))
			return &res, nil
		}

		result, err := a.Audit(ctx, r)
		if err != nil {
			var res mcp.CallToolResult
			res.SetError(errors.New(err.Error()))
			return &res, nil
		}

		data, err := json.Marshal(result)
		if err != nil {
			var res mcp.CallToolResult
			res.SetError(fmt.Errorf("audit_website: marshal: %w", err))
			return &res, nil
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
		}, nil
	})
}
