// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Second Brain operations for LLM integration via stdio
// transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/secondbrain/internal/engine"
)

// Server wraps the MCP server with Second Brain tools.
type Server struct {
	mcp *server.MCPServer
	eng *engine.Engine
}

// New creates a new MCP server with all tools registered.
func New(eng *engine.Engine) *Server {
	s := &Server{eng: eng}

	s.mcp = server.NewMCPServer(
		"SecondBrain",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("find_notes",
		mcp.WithDescription("Find notes in the vault whose name matches a query. "+
			"Matches exact names, substrings, and acronyms of multi-word queries."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Note name or fragment to search for")),
	), s.findNotes)

	s.mcp.AddTool(mcp.NewTool("query_note",
		mcp.WithDescription("Ask a question about a single note. The answer is returned "+
			"directly and nothing is written to the vault."),
		mcp.WithString("note", mcp.Required(), mcp.Description("Note path or unique name")),
		mcp.WithString("question", mcp.Required(), mcp.Description("Question about the note content")),
	), s.queryNote)

	s.mcp.AddTool(mcp.NewTool("process_note",
		mcp.WithDescription("Run the full processing pipeline for one note: classify it, "+
			"summarize it with the language model, and write the result back into the vault."),
		mcp.WithString("note", mcp.Required(), mcp.Description("Note path or unique name")),
	), s.processNote)

	s.mcp.AddTool(mcp.NewTool("analyze_connections",
		mcp.WithDescription("Compare two notes and describe the connections, overlaps, "+
			"and contradictions between them."),
		mcp.WithString("first", mcp.Required(), mcp.Description("First note path or unique name")),
		mcp.WithString("second", mcp.Required(), mcp.Description("Second note path or unique name")),
	), s.analyzeConnections)

	s.mcp.AddTool(mcp.NewTool("daily_review",
		mcp.WithDescription("Create the daily note for a date if absent, then summarize it "+
			"into its review section."),
		mcp.WithString("date", mcp.Description("Date as YYYY-MM-DD (empty for today)")),
	), s.dailyReview)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) findNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	matches, err := s.eng.FindNotes(ctx, query)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(matches) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("no notes match %q", query)), nil
	}
	out, _ := json.MarshalIndent(matches, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) queryNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	note, err := req.RequireString("note")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	question, err := req.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	answer, err := s.eng.QueryNote(ctx, note, question)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(answer), nil
}

func (s *Server) processNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	note, err := req.RequireString("note")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	outcome, err := s.eng.ProcessNote(ctx, note)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(outcome, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) analyzeConnections(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	first, err := req.RequireString("first")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	second, err := req.RequireString("second")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	answer, err := s.eng.AnalyzeConnections(ctx, first, second)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(answer), nil
}

func (s *Server) dailyReview(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	date := time.Now()
	if raw, rawErr := req.RequireString("date"); rawErr == nil && raw != "" {
		parsed, parseErr := time.Parse("2006-01-02", raw)
		if parseErr != nil {
			return mcp.NewToolResultError("invalid date, expected YYYY-MM-DD"), nil
		}
		date = parsed
	}
	outcome, err := s.eng.DailyReview(ctx, date)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(outcome, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}
