package mcpserver

import (
	"context"
	"encoding/json"

	"github.com/danielolaszy/prlink/internal/logging"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	serverName         = "prlink"
	serverInstructions = "prlink correlates tracker tickets with pull requests. Use find_prs_for_ticket to see which pull requests implement a ticket, find_tickets_for_pr to see which tickets a pull request references, and batch_match_tickets for release notes spanning many tickets. Every answer carries a confidence score and the evidence behind it."
)

// NewServer creates an MCP server with every engine tool registered.
func NewServer(h *Handler, version string) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    serverName,
		Version: version,
	}, &mcp.ServerOptions{
		Instructions: serverInstructions,
	})

	for _, toolDef := range GetToolDefinitions() {
		td := toolDef
		server.AddTool(&mcp.Tool{
			Name:        td.Name,
			Description: td.Description,
			InputSchema: td.InputSchema,
		}, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return h.Call(ctx, td.Name, req.Params.Arguments), nil
		})
	}
	return server
}

// Call executes a tool and renders its envelope as a tool result.
func (h *Handler) Call(ctx context.Context, name string, args json.RawMessage) *mcp.CallToolResult {
	resp, err := h.Execute(ctx, name, args)
	if err != nil {
		return textResult("Error: "+err.Error(), true)
	}

	output, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		logging.Error("failed to encode tool response", "tool", name, "error", err)
		return textResult("Error: "+err.Error(), true)
	}
	return textResult(string(output), !resp.Success)
}

func textResult(text string, isError bool) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
		IsError: isError,
	}
}

// Serve runs the server on stdio until the client disconnects or ctx ends.
func Serve(ctx context.Context, server *mcp.Server) error {
	logging.Info("tool server started", "tools", len(GetToolDefinitions()))
	return server.Run(ctx, &mcp.StdioTransport{})
}
