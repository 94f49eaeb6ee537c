// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Snaption tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/rewdy/snaption/internal/api"
	"github.com/rewdy/snaption/internal/catalog"
)

// Server wraps the MCP server with Snaption tools.
type Server struct {
	mcp *server.MCPServer
	svc *api.Service
}

// New creates a new MCP server with all Snaption tools registered.
func New(svc *api.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Snaption",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_photos",
		mcp.WithDescription("Substring search across photo filenames, notes, tags, and label texts."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchPhotos)

	s.mcp.AddTool(mcp.NewTool("list_photos",
		mcp.WithDescription("List the photos of the open library in the active sort order, "+
			"optionally grouped by folder."),
		mcp.WithString("sort", mcp.Description("Sort mode: filename_asc, filename_desc, modified_asc, modified_desc")),
		mcp.WithString("group", mcp.Description("Set to true to group photos by folder")),
	), s.listPhotos)

	s.mcp.AddTool(mcp.NewTool("read_sidecar",
		mcp.WithDescription("Read the annotation sidecar of a photo: notes, tags, and point labels."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Root-relative photo path (e.g. trips/rome/a.jpg)")),
	), s.readSidecar)

	s.mcp.AddTool(mcp.NewTool("update_notes",
		mcp.WithDescription("Replace the Markdown notes body of a photo's sidecar. Tags and labels "+
			"are kept as they are. Read the contract first via the get_sidecar_contract tool or the "+
			"snaption://sidecar-format resource."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Root-relative photo path")),
		mcp.WithString("notes", mcp.Required(), mcp.Description("New Markdown notes body")),
	), s.updateNotes)

	s.mcp.AddTool(mcp.NewTool("add_label",
		mcp.WithDescription("Pin a short text label onto a point of a photo. Coordinates are "+
			"unit-interval values relative to the image bounds and are clamped into [0,1]."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Root-relative photo path")),
		mcp.WithString("x", mcp.Required(), mcp.Description("Horizontal coordinate in [0,1]")),
		mcp.WithString("y", mcp.Required(), mcp.Description("Vertical coordinate in [0,1]")),
		mcp.WithString("text", mcp.Required(), mcp.Description("Label text, must be non-empty")),
	), s.addLabel)

	s.mcp.AddTool(mcp.NewTool("get_sidecar_contract",
		mcp.WithDescription("Returns the canonical Snaption sidecar format contract. "+
			"Call this before writing notes to understand the on-disk format."),
	), s.getSidecarContract)

	// Resource: sidecar format contract.
	s.mcp.AddResource(
		mcp.NewResource("snaption://sidecar-format", "Sidecar Format Contract",
			mcp.WithResourceDescription("Canonical annotation sidecar format used next to every photo."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readSidecarFormatResource,
	)

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

func (s *Server) searchPhotos(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	resp := s.svc.ListPhotos(&query, nil, nil)
	out, _ := json.MarshalIndent(resp, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listPhotos(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var sort *catalog.SortMode
	if v, err := req.RequireString("sort"); err == nil && v != "" {
		mode, err := catalog.ParseSortMode(v)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		sort = &mode
	}

	var group *bool
	if v, err := req.RequireString("group"); err == nil && v != "" {
		on, err := strconv.ParseBool(v)
		if err != nil {
			return mcp.NewToolResultError("group must be true or false"), nil
		}
		group = &on
	}

	resp := s.svc.ListPhotos(nil, sort, group)
	out, _ := json.MarshalIndent(resp, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readSidecar(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	detail, err := s.svc.GetSidecar(path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path)), nil
	}
	out, _ := json.MarshalIndent(detail, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) updateNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	notes, err := req.RequireString("notes")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	current, err := s.svc.GetSidecar(path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path)), nil
	}
	detail, err := s.svc.UpdateSidecar(path, notes, current.Tags, current.Labels, current.Checksum)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(detail, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) addLabel(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	xs, err := req.RequireString("x")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	ys, err := req.RequireString("y")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	x, err := strconv.ParseFloat(xs, 64)
	if err != nil {
		return mcp.NewToolResultError("x must be a number"), nil
	}
	y, err := strconv.ParseFloat(ys, 64)
	if err != nil {
		return mcp.NewToolResultError("y must be a number"), nil
	}

	detail, err := s.svc.AddLabel(path, x, y, text)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(detail, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getSidecarContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(SidecarFormatContract), nil
}

func (s *Server) readSidecarFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "snaption://sidecar-format",
			MIMEType: "text/markdown",
			Text:     SidecarFormatContract,
		},
	}, nil
}
