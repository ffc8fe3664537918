package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/danielolaszy/prlink/internal/logging"
	"github.com/danielolaszy/prlink/internal/matcher"
)

// Service is the part of the engine the tools call. *matcher.Matcher
// implements it.
type Service interface {
	FindPRsForTicket(ctx context.Context, ticketKey, repo string, opts matcher.FindOptions) (*matcher.TicketResult, error)
	FindTicketsForPR(ctx context.Context, prID int, repo string) (*matcher.PRResult, error)
	BatchMatchTickets(ctx context.Context, ticketKeys []string, repo string, opts matcher.BatchOptions) (*matcher.BatchResult, error)
}

type findPRsArgs struct {
	TicketKey  string   `json:"ticketKey"`
	Repository string   `json:"repository"`
	States     []string `json:"states"`
	MaxResults int      `json:"maxResults"`
}

type findTicketsArgs struct {
	PRID       int    `json:"prId"`
	Repository string `json:"repository"`
}

type batchArgs struct {
	TicketKeys []string `json:"ticketKeys"`
	Repository string   `json:"repository"`
	States     []string `json:"states"`
	MaxResults int      `json:"maxResults"`
}

// Handler dispatches tool calls to the engine.
type Handler struct {
	svc         Service
	defaultRepo string
}

// NewHandler creates a Handler. defaultRepo is used when a call names no
// repository; it may be empty.
func NewHandler(svc Service, defaultRepo string) *Handler {
	return &Handler{svc: svc, defaultRepo: defaultRepo}
}

// Execute runs the named tool. Failures of the lookup itself are reported in
// the envelope; the error return is reserved for unknown tools.
func (h *Handler) Execute(ctx context.Context, name string, raw json.RawMessage) (matcher.Response, error) {
	start := time.Now()
	var resp matcher.Response

	switch name {
	case ToolFindPRsForTicket:
		var args findPRsArgs
		if err := decodeArgs(raw, &args); err != nil {
			return matcher.NewResponse(nil, false, err), nil
		}
		result, err := h.svc.FindPRsForTicket(ctx, args.TicketKey, h.repository(args.Repository), matcher.FindOptions{
			States:     normalizeStates(args.States),
			MaxResults: args.MaxResults,
		})
		resp = respond(result, func() bool { return result.FromCache }, err)

	case ToolFindTicketsForPR:
		var args findTicketsArgs
		if err := decodeArgs(raw, &args); err != nil {
			return matcher.NewResponse(nil, false, err), nil
		}
		result, err := h.svc.FindTicketsForPR(ctx, args.PRID, h.repository(args.Repository))
		resp = respond(result, func() bool { return result.FromCache }, err)

	case ToolBatchMatch:
		var args batchArgs
		if err := decodeArgs(raw, &args); err != nil {
			return matcher.NewResponse(nil, false, err), nil
		}
		result, err := h.svc.BatchMatchTickets(ctx, args.TicketKeys, h.repository(args.Repository), matcher.BatchOptions{
			States:     normalizeStates(args.States),
			MaxResults: args.MaxResults,
		})
		resp = respond(result, func() bool { return result.FromCache }, err)

	default:
		return matcher.Response{}, fmt.Errorf("unknown tool: %s", name)
	}

	logging.Info("tool call complete",
		"tool", name,
		"success", resp.Success,
		"from_cache", resp.FromCache,
		"duration", time.Since(start))
	return resp, nil
}

func (h *Handler) repository(repo string) string {
	if repo != "" {
		return repo
	}
	return h.defaultRepo
}

// respond wraps an engine result in the envelope. fromCache is only read on
// success.
func respond(result any, fromCache func() bool, err error) matcher.Response {
	if err != nil {
		return matcher.NewResponse(nil, false, err)
	}
	return matcher.NewResponse(result, fromCache(), nil)
}

func decodeArgs(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return matcher.InvalidArgument("error parsing arguments: %v", err)
	}
	return nil
}

func normalizeStates(states []string) []string {
	var out []string
	for _, state := range states {
		if state = strings.ToUpper(strings.TrimSpace(state)); state != "" {
			out = append(out, state)
		}
	}
	return out
}
