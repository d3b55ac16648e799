// Package mcp exposes the glyph index to AI agents over the Model
// Context Protocol: search, show, callers/callees, and impact tools on a
// read-only store handle.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/1S33dp1sk/glyph/internal/report"
	"github.com/1S33dp1sk/glyph/internal/store"
)

// ServerVersion is reported during MCP initialisation.
const ServerVersion = "1.0.0"

// Server wraps an MCP server over one store handle.
type Server struct {
	mcpServer *server.MCPServer
	store     *store.Store
}

// New creates the MCP server and registers all tools.
func New(dbPath string) (*Server, error) {
	st, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	mcpServer := server.NewMCPServer(
		"glyph",
		ServerVersion,
		server.WithToolCapabilities(false),
	)
	s := &Server{mcpServer: mcpServer, store: st}
	s.registerTools()
	return s, nil
}

// ServeStdio runs the server over stdio until the client disconnects.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// Close releases the store handle.
func (s *Server) Close() error {
	return s.store.Close()
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("glyph_search",
		mcp.WithDescription("Search indexed entities by name or free text (exact name first, then full-text)."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Identifier or free-text query"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum results (default: 20)"),
		),
	), s.handleSearch)

	s.mcpServer.AddTool(mcp.NewTool("glyph_show",
		mcp.WithDescription("Show an entity's metadata by GID."),
		mcp.WithString("gid",
			mcp.Required(),
			mcp.Description("GLYPH ID of the entity"),
		),
	), s.handleShow)

	s.mcpServer.AddTool(mcp.NewTool("glyph_callers",
		mcp.WithDescription("List the GIDs of functions calling the given entity."),
		mcp.WithString("gid",
			mcp.Required(),
			mcp.Description("GLYPH ID of the callee"),
		),
	), s.handleCallers)

	s.mcpServer.AddTool(mcp.NewTool("glyph_callees",
		mcp.WithDescription("List the call targets of the given function, resolved or by name."),
		mcp.WithString("gid",
			mcp.Required(),
			mcp.Description("GLYPH ID of the caller"),
		),
	), s.handleCallees)

	s.mcpServer.AddTool(mcp.NewTool("glyph_impact",
		mcp.WithDescription("Compute the callers blast radius for a symbol name."),
		mcp.WithString("symbol",
			mcp.Required(),
			mcp.Description("Symbol name to analyze"),
		),
	), s.handleImpact)
}

func asJSON(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) handleSearch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	query, ok := args["query"].(string)
	if !ok || query == "" {
		return mcp.NewToolResultError("query parameter is required"), nil
	}
	limit := 20
	if l, ok := args["limit"].(float64); ok && l > 0 {
		limit = int(l)
	}

	type hit struct {
		GID     string `json:"gid"`
		Name    string `json:"name"`
		Kind    string `json:"kind"`
		DeclSig string `json:"decl_sig"`
		File    string `json:"file"`
	}
	var out []hit
	seen := make(map[string]bool)

	exact, err := s.store.LookupByName(query)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	for _, e := range exact {
		if len(out) >= limit {
			break
		}
		seen[e.GID] = true
		out = append(out, hit{GID: e.GID, Name: e.Name, Kind: e.Kind, DeclSig: e.DeclSig, File: e.FilePath})
	}
	if len(out) < limit {
		hits, err := s.store.FTSSearch(query, limit)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		for _, h := range hits {
			if seen[h.GID] || len(out) >= limit {
				continue
			}
			e, err := s.store.GetEntity(h.GID)
			if err != nil || e == nil {
				continue
			}
			seen[h.GID] = true
			out = append(out, hit{GID: e.GID, Name: e.Name, Kind: e.Kind, DeclSig: e.DeclSig, File: e.FilePath})
		}
	}
	return asJSON(out)
}

func (s *Server) handleShow(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	gid, ok := req.GetArguments()["gid"].(string)
	if !ok || gid == "" {
		return mcp.NewToolResultError("gid parameter is required"), nil
	}
	e, err := s.store.GetEntity(gid)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if e == nil {
		return mcp.NewToolResultError(fmt.Sprintf("entity not found: %s", gid)), nil
	}
	return asJSON(e)
}

func (s *Server) handleCallers(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	gid, ok := req.GetArguments()["gid"].(string)
	if !ok || gid == "" {
		return mcp.NewToolResultError("gid parameter is required"), nil
	}
	callers, err := s.store.Callers(gid)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return asJSON(callers)
}

func (s *Server) handleCallees(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	gid, ok := req.GetArguments()["gid"].(string)
	if !ok || gid == "" {
		return mcp.NewToolResultError("gid parameter is required"), nil
	}
	callees, err := s.store.Callees(gid)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return asJSON(callees)
}

func (s *Server) handleImpact(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	symbol, ok := req.GetArguments()["symbol"].(string)
	if !ok || symbol == "" {
		return mcp.NewToolResultError("symbol parameter is required"), nil
	}
	rep, err := report.Impact(s.store, symbol)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return asJSON(rep)
}
