// Package mcpserver provides an MCP (Model Context Protocol) server that
// exposes gebo's sync controls and task views for LLM integration via stdio
// transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/gebo/internal/orchestrator"
	"github.com/starford/gebo/internal/parser"
	"github.com/starford/gebo/internal/storage"
)

// Controller is the orchestrator surface the MCP tools need.
type Controller interface {
	Status() orchestrator.Status
	TriggerSync()
}

// Server wraps the MCP server with gebo tools.
type Server struct {
	mcp   *server.MCPServer
	ctrl  Controller
	store storage.Provider
}

// New creates a new MCP server with all gebo tools registered.
func New(ctrl Controller, store storage.Provider) *Server {
	s := &Server{ctrl: ctrl, store: store}

	s.mcp = server.NewMCPServer(
		"gebo",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	s.mcp.AddTool(mcp.NewTool("sync_now",
		mcp.WithDescription("Queue an on-demand synchronization pass between the vault and the remote task service."),
	), s.syncNow)

	s.mcp.AddTool(mcp.NewTool("sync_status",
		mcp.WithDescription("Return the current sync loop status: last pass outcome, pass count, next scheduled run."),
	), s.syncStatus)

	s.mcp.AddTool(mcp.NewTool("list_tasks",
		mcp.WithDescription("List the checklist tasks found in a vault document, or across the whole vault."),
		mcp.WithString("doc", mcp.Description("Optional document path relative to the vault root (empty for all)")),
	), s.listTasks)

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

func (s *Server) syncNow(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.ctrl.TriggerSync()
	return mcp.NewToolResultText("sync queued"), nil
}

func (s *Server) syncStatus(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(s.ctrl.Status(), "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listTasks(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	doc := req.GetString("doc", "")

	var paths []string
	if doc != "" {
		paths = []string{doc}
	} else {
		refs, err := s.store.List("")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		for _, ref := range refs {
			paths = append(paths, ref.Path)
		}
	}

	type taskView struct {
		Doc      string `json:"doc"`
		Line     int    `json:"line"`
		Title    string `json:"title"`
		Done     bool   `json:"done"`
		Due      string `json:"due,omitempty"`
		Priority string `json:"priority"`
		RemoteID string `json:"remote_id,omitempty"`
	}

	var views []taskView
	for _, p := range paths {
		data, err := s.store.Read(p)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("not found: %s", p)), nil
		}
		for _, t := range parser.ParseDocument(p, string(data)) {
			views = append(views, taskView{
				Doc:      t.Doc,
				Line:     t.Line,
				Title:    parser.NormalizeTitle(t.Text),
				Done:     t.Done,
				Due:      t.Due,
				Priority: string(t.Priority),
				RemoteID: t.RemoteID,
			})
		}
	}

	out, _ := json.MarshalIndent(views, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}
