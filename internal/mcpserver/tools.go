// Package mcpserver exposes the correlation engine as Model Context Protocol
// tools. Every tool answers with the JSON result envelope.
package mcpserver

import (
	"encoding/json"
)

// Tool names.
const (
	ToolFindPRsForTicket = "find_prs_for_ticket"
	ToolFindTicketsForPR = "find_tickets_for_pr"
	ToolBatchMatch       = "batch_match_tickets"
)

// ToolDefinition defines a tool for the MCP SDK
type ToolDefinition struct {
	Name        string
	Description string
	InputSchema json.RawMessage
}

// GetToolDefinitions returns the tools served by the engine.
func GetToolDefinitions() []ToolDefinition {
	return []ToolDefinition{
		{
			Name:        ToolFindPRsForTicket,
			Description: "Find the pull requests that implement a ticket. Combines tracker links with evidence from branch names, titles, descriptions and commit messages, ranked by confidence.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"ticketKey": {
						"type": "string",
						"description": "Ticket key such as ABC-123"
					},
					"repository": {
						"type": "string",
						"description": "Repository as owner/name or a bare name. When omitted the tracker's dev-status integration is consulted first"
					},
					"states": {
						"type": "array",
						"items": {"type": "string", "enum": ["OPEN", "MERGED", "DECLINED"]},
						"description": "Pull request states to search (default: OPEN, MERGED)"
					},
					"maxResults": {
						"type": "integer",
						"description": "Maximum number of pull requests to return (default: 100)"
					}
				},
				"required": ["ticketKey"]
			}`),
		},
		{
			Name:        ToolFindTicketsForPR,
			Description: "Find the tickets a pull request references in its title, description, branch name and commit messages.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"prId": {
						"type": "integer",
						"description": "Pull request number"
					},
					"repository": {
						"type": "string",
						"description": "Repository as owner/name or a bare name"
					}
				},
				"required": ["prId"]
			}`),
		},
		{
			Name:        ToolBatchMatch,
			Description: "Match many tickets against one repository in a single pass over its recent pull requests.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"ticketKeys": {
						"type": "array",
						"items": {"type": "string"},
						"description": "Ticket keys such as ABC-123"
					},
					"repository": {
						"type": "string",
						"description": "Repository as owner/name or a bare name"
					},
					"states": {
						"type": "array",
						"items": {"type": "string", "enum": ["OPEN", "MERGED", "DECLINED"]},
						"description": "Pull request states to search (default: OPEN, MERGED)"
					},
					"maxResults": {
						"type": "integer",
						"description": "Maximum number of pull requests to scan (default: 200)"
					}
				},
				"required": ["ticketKeys"]
			}`),
		},
	}
}
