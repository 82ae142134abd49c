package mcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/a3tai/mcp-pdf-graphics/internal/config"
	"github.com/a3tai/mcp-pdf-graphics/internal/descriptions"
	"github.com/a3tai/mcp-pdf-graphics/internal/pdf"
)

const shutdownTimeout = 5 * time.Second

// Server represents the MCP server instance
type Server struct {
	config     *config.Config
	pdfService *pdf.Service
	mcpServer  *server.MCPServer
	panics     panicRecorder

	// stdio transport, replaced in tests
	stdin  io.Reader
	stdout io.Writer
}

// NewServer creates a new MCP server instance
func NewServer(cfg *config.Config, pdfService *pdf.Service) (*Server, error) {
	if pdfService == nil {
		return nil, fmt.Errorf("pdfService cannot be nil")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	s := &Server{
		config:     cfg,
		pdfService: pdfService,
		stdin:      os.Stdin,
		stdout:     os.Stdout,
	}

	s.mcpServer = server.NewMCPServer(
		cfg.ServerName,
		cfg.Version,
		server.WithToolCapabilities(false), // We don't support dynamic tool capabilities
		server.WithToolHandlerMiddleware(s.toolMiddleware),
	)

	s.registerTools()

	return s, nil
}

// scopeOptions are the arguments shared by every tool that addresses a sequence
func scopeOptions() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("Session id returned by pdf_graphics_open"),
		),
		mcp.WithNumber("page",
			mcp.Description("1-based page number (default 1)"),
		),
		mcp.WithString("form",
			mcp.Description("Edit the form XObject with this resource name instead of the page"),
		),
		mcp.WithArray("container",
			mcp.Description("Indices of nested containers (q/Q or marked-content groups) to descend into"),
			mcp.Items(map[string]any{"type": "number"}),
		),
	}
}

func tool(name, description string, opts ...mcp.ToolOption) mcp.Tool {
	return mcp.NewTool(name, append([]mcp.ToolOption{mcp.WithDescription(description)}, opts...)...)
}

func scopedTool(name, description string, opts ...mcp.ToolOption) mcp.Tool {
	return tool(name, description, append(scopeOptions(), opts...)...)
}

// registerTools registers all available MCP tools
func (s *Server) registerTools() {
	s.mcpServer.AddTool(tool("pdf_graphics_open", descriptions.PDFGraphicsOpenDescription,
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Path to the PDF file, absolute or relative to the default directory"),
		),
	), s.handleOpen)

	s.mcpServer.AddTool(tool("pdf_graphics_close", descriptions.PDFGraphicsCloseDescription,
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session to close")),
		mcp.WithBoolean("force", mcp.Description("Discard uncommitted edits")),
	), s.handleClose)

	s.mcpServer.AddTool(scopedTool("pdf_graphics_list", descriptions.PDFGraphicsListDescription,
		mcp.WithString("kinds",
			mcp.Description("Comma separated kinds to list: text, path, image, form, shading, container, annotation"),
		),
	), s.handleList)

	s.mcpServer.AddTool(scopedTool("pdf_graphics_get", descriptions.PDFGraphicsGetDescription,
		mcp.WithString("position", mcp.Description("Position token from pdf_graphics_list")),
		mcp.WithNumber("index", mcp.Description("0-based index, used when no position is given")),
	), s.handleGet)

	s.mcpServer.AddTool(scopedTool("pdf_graphics_insert", descriptions.PDFGraphicsInsertDescription,
		mcp.WithString("type",
			mcp.Required(),
			mcp.Description("Object to insert"),
			mcp.Enum("rect", "text", "xobject"),
		),
		mcp.WithString("after", mcp.Description("Insert after this position token; omit to insert at the front")),
		mcp.WithArray("rect",
			mcp.Description("rect: [x, y, width, height]"),
			mcp.Items(map[string]any{"type": "number"}),
		),
		mcp.WithArray("color",
			mcp.Description("rect: fill colour [r, g, b] in 0..1 (default black)"),
			mcp.Items(map[string]any{"type": "number"}),
		),
		mcp.WithString("text", mcp.Description("text: the string to show")),
		mcp.WithString("font", mcp.Description("text: font resource name or standard 14 font name (default Helvetica)")),
		mcp.WithNumber("font_size", mcp.Description("text: font size (default 12)")),
		mcp.WithNumber("x", mcp.Description("text: baseline start x")),
		mcp.WithNumber("y", mcp.Description("text: baseline start y")),
		mcp.WithString("name", mcp.Description("xobject: XObject resource name")),
		mcp.WithArray("matrix",
			mcp.Description("xobject: placement matrix [a, b, c, d, e, f]"),
			mcp.Items(map[string]any{"type": "number"}),
		),
	), s.handleInsert)

	s.mcpServer.AddTool(scopedTool("pdf_graphics_remove", descriptions.PDFGraphicsRemoveDescription,
		mcp.WithString("position", mcp.Required(), mcp.Description("Position token of the object to remove")),
	), s.handleRemove)

	s.mcpServer.AddTool(scopedTool("pdf_graphics_move", descriptions.PDFGraphicsMoveDescription,
		mcp.WithString("position", mcp.Required(), mcp.Description("Position token of the object to move")),
		mcp.WithString("after", mcp.Description("Move after this position token; omit to move to the front")),
	), s.handleMove)

	s.mcpServer.AddTool(scopedTool("pdf_graphics_commit", descriptions.PDFGraphicsCommitDescription,
		mcp.WithArray("merge",
			mcp.Description("Merge options: none, text, brackets, all (default from server configuration)"),
			mcp.Items(map[string]any{"type": "string"}),
		),
		mcp.WithBoolean("all", mcp.Description("Commit every edited page, form and container of the session")),
	), s.handleCommit)

	s.mcpServer.AddTool(tool("pdf_graphics_save", descriptions.PDFGraphicsSaveDescription,
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session to save")),
		mcp.WithString("output_path", mcp.Description("Destination path (default: overwrite the opened file)")),
		mcp.WithBoolean("force", mcp.Description("Save even with uncommitted edits")),
	), s.handleSave)

	s.mcpServer.AddTool(scopedTool("pdf_graphics_hit_test", descriptions.PDFGraphicsHitTestDescription,
		mcp.WithNumber("x", mcp.Description("Point x in user space")),
		mcp.WithNumber("y", mcp.Description("Point y in user space")),
		mcp.WithArray("rect",
			mcp.Description("Query rectangle [llx, lly, urx, ury] instead of a point"),
			mcp.Items(map[string]any{"type": "number"}),
		),
		mcp.WithString("kinds", mcp.Description("Comma separated kinds to consider")),
	), s.handleHitTest)

	s.mcpServer.AddTool(tool("pdf_graphics_verify_text", descriptions.PDFGraphicsVerifyTextDescription,
		mcp.WithString("path", mcp.Required(), mcp.Description("Path to a saved PDF")),
		mcp.WithNumber("page", mcp.Description("1-based page number (default 1)")),
		mcp.WithArray("expected",
			mcp.Required(),
			mcp.Description("Strings the page must contain"),
			mcp.Items(map[string]any{"type": "string"}),
		),
	), s.handleVerifyText)

	s.mcpServer.AddTool(tool("pdf_server_info", descriptions.PDFServerInfoDescription), s.handlePDFServerInfo)
}

// Handler functions

func toolError(err error) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultError(err.Error()), nil
}

func (s *Server) handleOpen(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return toolError(err)
	}

	result, err := s.pdfService.OpenDocument(pdf.OpenDocumentRequest{Path: path})
	if err != nil {
		return toolError(err)
	}

	return mcp.NewToolResultText(formatOpenResult(result)), nil
}

func (s *Server) handleClose(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request.GetArguments())

	id, err := args.requireStr("session_id")
	if err != nil {
		return toolError(err)
	}
	force, err := args.boolean("force")
	if err != nil {
		return toolError(err)
	}

	result, err := s.pdfService.CloseDocument(pdf.CloseDocumentRequest{SessionID: id, Force: force})
	if err != nil {
		return toolError(err)
	}

	return mcp.NewToolResultText(fmt.Sprintf("Closed session %s\n", result.SessionID)), nil
}

func (s *Server) handleList(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request.GetArguments())

	ref, err := args.scope()
	if err != nil {
		return toolError(err)
	}

	result, err := s.pdfService.ListGraphics(ctx, pdf.ListGraphicsRequest{ScopeRef: ref, Kinds: args.str("kinds")})
	if err != nil {
		return toolError(err)
	}

	return mcp.NewToolResultText(formatListResult(result)), nil
}

func (s *Server) handleGet(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request.GetArguments())

	ref, err := args.scope()
	if err != nil {
		return toolError(err)
	}
	index, err := args.optionalInt("index")
	if err != nil {
		return toolError(err)
	}

	result, err := s.pdfService.GetGraphic(ctx, pdf.GetGraphicRequest{
		ScopeRef: ref,
		Position: args.str("position"),
		Index:    index,
	})
	if err != nil {
		return toolError(err)
	}

	text := fmt.Sprintf("Generation: %d\n", result.Generation)
	text += formatGraphic(result.Graphic)
	text += "\nOperators:\n" + result.Operators
	return mcp.NewToolResultText(text), nil
}

func (s *Server) handleInsert(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	req, err := insertRequest(arguments(request.GetArguments()))
	if err != nil {
		return toolError(err)
	}

	result, err := s.pdfService.InsertGraphic(ctx, req)
	if err != nil {
		return toolError(err)
	}

	text := fmt.Sprintf("Inserted %s as %s at %s\n", req.Type, result.Graphic.Kind, result.Graphic.Position)
	text += fmt.Sprintf("Generation: %d, objects: %d\n", result.Generation, result.Count)
	text += formatGraphic(result.Graphic)
	return mcp.NewToolResultText(text), nil
}

func insertRequest(args arguments) (pdf.InsertGraphicRequest, error) {
	var req pdf.InsertGraphicRequest
	var err error

	if req.ScopeRef, err = args.scope(); err != nil {
		return req, err
	}
	if req.Type, err = args.requireStr("type"); err != nil {
		return req, err
	}
	req.After = args.str("after")
	req.Text = args.str("text")
	req.Font = args.str("font")
	req.Name = args.str("name")

	if req.FontSize, err = args.float("font_size"); err != nil {
		return req, err
	}
	if req.X, err = args.float("x"); err != nil {
		return req, err
	}
	if req.Y, err = args.float("y"); err != nil {
		return req, err
	}

	rect, err := args.floats("rect", 4)
	if err != nil {
		return req, err
	}
	copy(req.Rect[:], rect)

	color, err := args.floats("color", 3)
	if err != nil {
		return req, err
	}
	copy(req.Color[:], color)

	matrix, err := args.floats("matrix", 6)
	if err != nil {
		return req, err
	}
	copy(req.Matrix[:], matrix)

	return req, nil
}

func (s *Server) handleRemove(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request.GetArguments())

	ref, err := args.scope()
	if err != nil {
		return toolError(err)
	}
	position, err := args.requireStr("position")
	if err != nil {
		return toolError(err)
	}

	result, err := s.pdfService.RemoveGraphic(ctx, pdf.RemoveGraphicRequest{ScopeRef: ref, Position: position})
	if err != nil {
		return toolError(err)
	}

	text := fmt.Sprintf("Removed %s\n", position)
	text += fmt.Sprintf("Generation: %d, objects: %d\n", result.Generation, result.Count)
	return mcp.NewToolResultText(text), nil
}

func (s *Server) handleMove(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request.GetArguments())

	ref, err := args.scope()
	if err != nil {
		return toolError(err)
	}
	position, err := args.requireStr("position")
	if err != nil {
		return toolError(err)
	}

	result, err := s.pdfService.MoveGraphic(ctx, pdf.MoveGraphicRequest{
		ScopeRef: ref,
		Position: position,
		After:    args.str("after"),
	})
	if err != nil {
		return toolError(err)
	}

	text := fmt.Sprintf("Moved %s to %s\n", position, result.Graphic.Position)
	text += fmt.Sprintf("Generation: %d\n", result.Generation)
	text += formatGraphic(result.Graphic)
	return mcp.NewToolResultText(text), nil
}

func (s *Server) handleCommit(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request.GetArguments())

	ref, err := args.scope()
	if err != nil {
		return toolError(err)
	}
	merge, err := args.strings("merge")
	if err != nil {
		return toolError(err)
	}
	all, err := args.boolean("all")
	if err != nil {
		return toolError(err)
	}

	result, err := s.pdfService.CommitPage(ctx, pdf.CommitPageRequest{ScopeRef: ref, Merge: merge, All: all})
	if err != nil {
		return toolError(err)
	}

	text := fmt.Sprintf("Committed %s (merge: %s)\n", result.Scope, result.Merge)
	if result.Generation > 0 {
		text += fmt.Sprintf("Generation: %d\n", result.Generation)
	}
	if len(result.Dirty) > 0 {
		text += fmt.Sprintf("Still uncommitted: %s\n", strings.Join(result.Dirty, ", "))
	} else {
		text += "No uncommitted edits remain\n"
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) handleSave(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request.GetArguments())

	id, err := args.requireStr("session_id")
	if err != nil {
		return toolError(err)
	}
	force, err := args.boolean("force")
	if err != nil {
		return toolError(err)
	}

	result, err := s.pdfService.SaveDocument(pdf.SaveDocumentRequest{
		SessionID:  id,
		OutputPath: args.str("output_path"),
		Force:      force,
	})
	if err != nil {
		return toolError(err)
	}

	return mcp.NewToolResultText(fmt.Sprintf("Saved %s (%d bytes)\n", result.Path, result.Size)), nil
}

func (s *Server) handleHitTest(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request.GetArguments())

	req := pdf.HitTestRequest{Kinds: args.str("kinds")}
	var err error
	if req.ScopeRef, err = args.scope(); err != nil {
		return toolError(err)
	}
	if req.X, err = args.float("x"); err != nil {
		return toolError(err)
	}
	if req.Y, err = args.float("y"); err != nil {
		return toolError(err)
	}
	rect, err := args.floats("rect", 4)
	if err != nil {
		return toolError(err)
	}
	if rect != nil {
		req.Rect = &[4]float64{rect[0], rect[1], rect[2], rect[3]}
	}

	result, err := s.pdfService.HitTest(ctx, req)
	if err != nil {
		return toolError(err)
	}

	return mcp.NewToolResultText(formatHitTestResult(result)), nil
}

func (s *Server) handleVerifyText(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request.GetArguments())

	path, err := args.requireStr("path")
	if err != nil {
		return toolError(err)
	}
	pageNr, err := args.integer("page")
	if err != nil {
		return toolError(err)
	}
	expected, err := args.strings("expected")
	if err != nil {
		return toolError(err)
	}

	result, err := s.pdfService.VerifyText(pdf.VerifyTextRequest{Path: path, Page: pageNr, Expected: expected})
	if err != nil {
		return toolError(err)
	}

	return mcp.NewToolResultText(formatVerifyTextResult(result)), nil
}

func (s *Server) handlePDFServerInfo(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := s.pdfService.ServerInfo(pdf.ServerInfoRequest{}, s.config.ServerName, s.config.Version)
	if err != nil {
		return toolError(err)
	}

	return mcp.NewToolResultText(formatServerInfoResult(result) + formatPanics(s.Panics())), nil
}

// Run starts the MCP server in the configured mode and returns when ctx
// is cancelled or the transport fails
func (s *Server) Run(ctx context.Context) error {
	if s.config.IsServerMode() {
		return s.runServerMode(ctx)
	}
	return s.runStdioMode(ctx)
}

// runStdioMode runs the server in stdio mode
func (s *Server) runStdioMode(ctx context.Context) error {
	if s.config.IsDebug() {
		log.Printf("Starting PDF graphics MCP server in stdio mode")
		log.Printf("PDF directory: %s", s.config.PDFDirectory)
	}

	stdio := server.NewStdioServer(s.mcpServer)
	stdio.SetErrorLogger(log.Default())

	err := stdio.Listen(ctx, s.stdin, s.stdout)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("failed to serve stdio: %w", err)
	}
	return nil
}

// runServerMode serves MCP over HTTP with server-sent events
func (s *Server) runServerMode(ctx context.Context) error {
	addr := s.config.Address()
	httpServer := &http.Server{
		Addr:              addr,
		ReadHeaderTimeout: 10 * time.Second,
	}
	sse := server.NewSSEServer(s.mcpServer,
		server.WithHTTPServer(httpServer),
		server.WithBaseURL("http://"+addr),
		server.WithKeepAlive(true),
	)

	log.Printf("Starting PDF graphics MCP server on %s (SSE endpoint /sse)", addr)
	log.Printf("PDF directory: %s", s.config.PDFDirectory)

	errCh := make(chan error, 1)
	go func() {
		errCh <- sse.Start(addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("failed to serve sse: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := sse.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down sse server: %w", err)
		}
		return nil
	}
}
