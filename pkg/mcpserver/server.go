// Package mcpserver exposes the website workflow as MCP tools over stdio so an
// editor or agent can drive sessions without the web UI.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"sitesmith/pkg/logx"
	"sitesmith/pkg/sandbox"
	"sitesmith/pkg/version"
	"sitesmith/pkg/workflow"
)

const (
	ToolSubmitRequest = "submit_request"
	ToolGetWebsite    = "get_website"
	ToolGetHistory    = "get_history"
)

// Server binds MCP tools to a session registry.
type Server struct {
	sessions   *workflow.Sessions
	store      *sandbox.Store
	defaultKey string
	mcp        *server.MCPServer
	logger     *logx.Logger
}

// NewServer registers the tools. defaultKey is used when a call omits session.
func NewServer(sessions *workflow.Sessions, store *sandbox.Store, defaultKey string) *Server {
	s := &Server{
		sessions:   sessions,
		store:      store,
		defaultKey: defaultKey,
		logger:     logx.NewLogger("mcp"),
		mcp: server.NewMCPServer(
			"sitesmith",
			version.Version,
			server.WithToolCapabilities(false),
			server.WithRecovery(),
		),
	}
	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	sessionArg := mcp.WithString("session", mcp.Description("Session key; defaults to the server's session"))

	s.mcp.AddTool(mcp.NewTool(ToolSubmitRequest,
		mcp.WithDescription("Describe a website or a change to it. Runs the plan and code steps and returns the agent replies."),
		mcp.WithString("request", mcp.Required(), mcp.Description("What to build or change")),
		sessionArg,
	), s.handleSubmit)

	s.mcp.AddTool(mcp.NewTool(ToolGetWebsite,
		mcp.WithDescription("Return the current generated page, stylesheet and script."),
		mcp.WithReadOnlyHintAnnotation(true),
	), s.handleGetWebsite)

	s.mcp.AddTool(mcp.NewTool(ToolGetHistory,
		mcp.WithDescription("Return the conversation history of a session as JSON."),
		mcp.WithReadOnlyHintAnnotation(true),
		sessionArg,
	), s.handleGetHistory)
}

// MCPServer returns the underlying server, for transports other than stdio.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// ServeStdio serves on in/out until ctx is cancelled or in is closed.
func (s *Server) ServeStdio(ctx context.Context, in io.Reader, out io.Writer) error {
	s.logger.Info("Serving MCP over stdio")
	stdio := server.NewStdioServer(s.mcp)
	if err := stdio.Listen(ctx, in, out); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("mcp stdio: %w", err)
	}
	return nil
}

func (s *Server) sessionKey(req mcp.CallToolRequest) string {
	if key := req.GetString("session", ""); key != "" {
		return key
	}
	return s.defaultKey
}

// handleSubmit fails fast with a tool error if the session is already running.
func (s *Server) handleSubmit(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	request, err := req.RequireString("request")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	before := len(s.sessions.Snapshot(s.sessionKey(req)).History)
	st, err := s.sessions.TrySubmit(ctx, s.sessionKey(req), request)
	switch {
	case errors.Is(err, workflow.ErrSessionBusy):
		return mcp.NewToolResultError("session is busy with another request; retry shortly"), nil
	case errors.Is(err, workflow.ErrEmptyRequest):
		return mcp.NewToolResultError("request must not be empty"), nil
	case err != nil:
		s.logger.Error("Workflow error: %v", err)
		return mcp.NewToolResultErrorFromErr("workflow failed", err), nil
	}

	var replies []string
	for i := before; i < len(st.History); i++ {
		if st.History[i].Origin == workflow.OriginAgent {
			replies = append(replies, st.History[i].Content)
		}
	}
	return jsonResult(map[string]any{
		"replies":      replies,
		"last_error":   st.LastError,
		"has_markup":   st.WebsiteMarkup != "",
		"history_size": len(st.History),
	})
}

func (s *Server) handleGetWebsite(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	snap, err := s.store.Load()
	if errors.Is(err, fs.ErrNotExist) {
		return mcp.NewToolResultText(sandbox.NoCodeSentinel), nil
	}
	if err != nil {
		return mcp.NewToolResultErrorFromErr("failed to read sandbox", err), nil
	}
	return jsonResult(snap)
}

func (s *Server) handleGetHistory(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.sessions.Snapshot(s.sessionKey(req)).History)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal tool result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}
