package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	ierr "github.com/mark3labs/dualai/internal/errors"
	"github.com/mark3labs/dualai/internal/logger"
	"github.com/mark3labs/dualai/internal/negotiation"
	"github.com/mark3labs/dualai/internal/session"
	"github.com/mark3labs/mcp-go/mcp"
)

// registerTools registers the negotiate, sessions and session tools.
func (s *Server) registerTools() error {
	s.mcpServer.AddTool(
		mcp.NewTool("negotiate",
			mcp.WithDescription("Have Claude and Gemini debate a request until they agree, then implement it"),
			mcp.WithString("request", mcp.Required(),
				mcp.Description("The request to negotiate, in natural language"),
			),
			mcp.WithNumber("rounds",
				mcp.Description("Maximum number of debate rounds (default: configured value)"),
			),
			mcp.WithString("implementer",
				mcp.Description("Tool that writes the final solution"),
				mcp.Enum(string(negotiation.Claude), string(negotiation.Gemini)),
			),
		),
		s.handleNegotiate,
	)

	if s.cfg.Store == nil {
		return nil
	}

	s.mcpServer.AddTool(
		mcp.NewTool("sessions",
			mcp.WithDescription("List recorded negotiation sessions, newest first"),
		),
		s.handleSessions,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("session",
			mcp.WithDescription("Show a recorded session with its rounds and solution as JSON"),
			mcp.WithString("id", mcp.Required(),
				mcp.Description("Session ID or a unique prefix of at least 8 characters"),
			),
		),
		s.handleSession,
	)

	return nil
}

// handleNegotiate runs a full session and returns the artifact.
func (s *Server) handleNegotiate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	if args == nil {
		return mcp.NewToolResultError("no arguments provided"), nil
	}

	text, ok := args["request"].(string)
	if !ok || strings.TrimSpace(text) == "" {
		return mcp.NewToolResultError("missing or empty 'request' parameter"), nil
	}

	params := NegotiateParams{Request: text}

	// JSON numbers come as float64
	if r, ok := args["rounds"].(float64); ok {
		if r < 1 || r != float64(int(r)) {
			return mcp.NewToolResultError("'rounds' must be a positive integer"), nil
		}
		params.Rounds = int(r)
	}

	if v, ok := args["implementer"].(string); ok && v != "" {
		impl, err := negotiation.ParseImplementer(v)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		params.Implementer = impl
	}

	var res *negotiation.Result
	err := ierr.Recover(func() error {
		var err error
		res, err = s.cfg.Negotiate(ctx, params)
		return err
	})
	if err != nil {
		var pe *ierr.PanicError
		if errors.As(err, &pe) {
			logger.Error("negotiate panicked: %v\n%s", pe.Value, pe.StackTrace)
		}
		return mcp.NewToolResultError(fmt.Sprintf("session failed: %v", err)), nil
	}

	consensus := "no"
	if res.Consensus {
		consensus = "yes"
	}
	header := fmt.Sprintf("Session %s (consensus: %s, rounds: %d, implemented by: %s)",
		res.Record.ID, consensus, res.RoundsUsed, res.Implementer.DisplayName())
	return mcp.NewToolResultText(header + "\n\n" + res.Artifact), nil
}

// handleSessions lists recorded sessions, one per line.
func (s *Server) handleSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	summaries, err := s.cfg.Store.List(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list sessions: %v", err)), nil
	}
	if len(summaries) == 0 {
		return mcp.NewToolResultText("No sessions"), nil
	}

	lines := make([]string, 0, len(summaries))
	for _, sum := range summaries {
		lines = append(lines, formatSummary(sum))
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

// formatSummary renders: <id> [STATE] consensus=<bool> rounds=<n> implementer=<name> <time>: <request>
func formatSummary(sum session.Summary) string {
	state := string(sum.State)
	if state == "" {
		state = "RUNNING"
	}
	impl := string(sum.Implementer)
	if impl == "" {
		impl = "-"
	}
	return fmt.Sprintf("%s [%s] consensus=%t rounds=%d implementer=%s %s: %s",
		sum.ID, state, sum.Consensus, sum.RoundsUsed, impl,
		sum.StartedAt.UTC().Format("2006-01-02T15:04:05Z"),
		strings.Join(strings.Fields(sum.Request), " "))
}

// handleSession returns one session record as indented JSON.
func (s *Server) handleSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	if args == nil {
		return mcp.NewToolResultError("no arguments provided"), nil
	}
	idOrPrefix, ok := args["id"].(string)
	if !ok || idOrPrefix == "" {
		return mcp.NewToolResultError("missing or empty 'id' parameter"), nil
	}

	id, err := s.cfg.Store.ResolveID(ctx, idOrPrefix)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rec, err := s.cfg.Store.LoadRecord(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal session: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
