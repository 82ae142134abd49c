package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-pdf-graphics/internal/config"
	"github.com/a3tai/mcp-pdf-graphics/internal/pdf"
	"github.com/a3tai/mcp-pdf-graphics/internal/pdf/pdftest"
)

const testContent = `BT /F1 12 Tf 72 700 Td (Hello) Tj ET
0 0 1 rg 100 100 200 200 re f
q 50 0 0 50 150 150 cm /Im1 Do Q`

func testConfig() *config.Config {
	return &config.Config{
		Mode:         config.ModeStdio,
		Host:         "127.0.0.1",
		Port:         0,
		PDFDirectory: "/work",
		Version:      "1.0.0",
		ServerName:   "test-server",
		LogLevel:     "info",
		MaxFileSize:  1 << 20,
		Sessions:     4,
		Merge:        "none",
	}
}

func newTestServer(t *testing.T) *Server {
	t.Helper()

	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/work/out", 0o755))
	data := pdftest.Document(pdftest.Page{
		Content: testContent,
		Form:    "0 0 100 100 re f",
		Annots:  []string{"/Subtype /Square /Rect [400 400 450 450]"},
	})
	require.NoError(t, afero.WriteFile(fs, "/work/sample.pdf", data, 0o644))

	cfg := testConfig()
	svc, err := pdf.NewService(fs, pdf.ServiceConfig{
		Directory:   cfg.PDFDirectory,
		MaxFileSize: cfg.MaxFileSize,
		Sessions:    cfg.Sessions,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })

	server, err := NewServer(cfg, svc)
	require.NoError(t, err)
	return server
}

type handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)

func call(t *testing.T, h handler, args map[string]any) (string, bool) {
	t.Helper()
	request := mcp.CallToolRequest{}
	request.Params.Arguments = args

	result, err := h(context.Background(), request)
	require.NoError(t, err)
	require.NotNil(t, result)
	return extractTextFromResult(result), result.IsError
}

func mustCall(t *testing.T, h handler, args map[string]any) string {
	t.Helper()
	text, isError := call(t, h, args)
	require.False(t, isError, text)
	return text
}

func openSession(t *testing.T, s *Server) string {
	t.Helper()
	text := mustCall(t, s.handleOpen, map[string]any{"path": "sample.pdf"})
	for _, line := range strings.Split(text, "\n") {
		if id, ok := strings.CutPrefix(line, "Session: "); ok {
			return id
		}
	}
	t.Fatalf("no session id in %q", text)
	return ""
}

// tokenAt returns the position token listed for index in list or hit-test output
func tokenAt(t *testing.T, text string, index int) string {
	t.Helper()
	marker := fmt.Sprintf("] #%d ", index)
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "[") && strings.Contains(line, marker) {
			return line[1:strings.Index(line, marker)]
		}
	}
	t.Fatalf("no position for #%d in %q", index, text)
	return ""
}

func TestNewServer(t *testing.T) {
	_, err := NewServer(testConfig(), nil)
	assert.Error(t, err)

	server := newTestServer(t)
	assert.NotNil(t, server.mcpServer)
	assert.NotNil(t, server.pdfService)
}

func TestServer_ToolsList(t *testing.T) {
	server := newTestServer(t)

	response := server.mcpServer.HandleMessage(context.Background(),
		json.RawMessage(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
	raw, err := json.Marshal(response)
	require.NoError(t, err)

	var decoded struct {
		Result struct {
			Tools []struct {
				Name        string `json:"name"`
				InputSchema struct {
					Required []string `json:"required"`
				} `json:"inputSchema"`
			} `json:"tools"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(raw, &decoded))

	names := map[string][]string{}
	for _, tool := range decoded.Result.Tools {
		names[tool.Name] = tool.InputSchema.Required
	}
	assert.Len(t, names, 12)
	for _, name := range []string{
		"pdf_graphics_open", "pdf_graphics_close", "pdf_graphics_list", "pdf_graphics_get",
		"pdf_graphics_insert", "pdf_graphics_remove", "pdf_graphics_move", "pdf_graphics_commit",
		"pdf_graphics_save", "pdf_graphics_hit_test", "pdf_graphics_verify_text", "pdf_server_info",
	} {
		assert.Contains(t, names, name)
	}
	assert.ElementsMatch(t, []string{"session_id", "type"}, names["pdf_graphics_insert"])
}

func TestServer_EditWorkflow(t *testing.T) {
	server := newTestServer(t)
	id := openSession(t, server)

	text := mustCall(t, server.handleList, map[string]any{"session_id": id, "page": float64(1)})
	assert.Contains(t, text, "Graphics in page 1 (generation 1)")
	assert.Contains(t, text, "Objects: 4")
	assert.Regexp(t, `\[\d+:1:0\] #0 text`, text)
	assert.Regexp(t, `\[\d+:1:3\] #3 annotation`, text)

	text = mustCall(t, server.handleGet, map[string]any{"session_id": id, "position": tokenAt(t, text, 1)})
	assert.Contains(t, text, "0 0 1 rg\n100 100 200 200 re\nf\n")

	text = mustCall(t, server.handleInsert, map[string]any{
		"session_id": id,
		"type":       "rect",
		"rect":       []any{10.0, 10.0, 20.0, 20.0},
		"color":      "1, 0, 0",
	})
	assert.Regexp(t, `Inserted rect as container at \d+:2:0\n`, text)
	assert.Contains(t, text, "objects: 5")

	text = mustCall(t, server.handleList, map[string]any{"session_id": id})
	moving := tokenAt(t, text, 0)
	text = mustCall(t, server.handleMove, map[string]any{"session_id": id, "position": moving, "after": tokenAt(t, text, 2)})
	assert.Contains(t, text, "Moved "+moving+" to ")
	assert.Regexp(t, `to \d+:3:2\n`, text)
	assert.Contains(t, text, "Generation: 3")

	text, isError := call(t, server.handleSave, map[string]any{"session_id": id, "output_path": "out/edited.pdf"})
	assert.True(t, isError)
	assert.Contains(t, text, "UNCOMMITTED_CHANGES")

	text = mustCall(t, server.handleCommit, map[string]any{"session_id": id, "page": "1", "merge": []any{"text", "brackets"}})
	assert.Contains(t, text, "Committed page 1")
	assert.Contains(t, text, "No uncommitted edits remain")

	text = mustCall(t, server.handleSave, map[string]any{"session_id": id, "output_path": "out/edited.pdf"})
	assert.Contains(t, text, "Saved /work/out/edited.pdf")

	text = mustCall(t, server.handleVerifyText, map[string]any{"path": "out/edited.pdf", "expected": "Hello"})
	assert.Contains(t, text, "Text verification PASSED")
	assert.Contains(t, text, `Found: "Hello"`)

	text = mustCall(t, server.handleVerifyText, map[string]any{"path": "out/edited.pdf", "expected": []any{"Goodbye"}})
	assert.Contains(t, text, "Text verification FAILED")
	assert.Contains(t, text, `Missing: "Goodbye"`)

	text = mustCall(t, server.handleClose, map[string]any{"session_id": id})
	assert.Contains(t, text, "Closed session "+id)
}

func TestServer_HitTest(t *testing.T) {
	server := newTestServer(t)
	id := openSession(t, server)

	text := mustCall(t, server.handleHitTest, map[string]any{"session_id": id, "x": 250, "y": "250"})
	assert.Contains(t, text, "Hits: 1")
	assert.Regexp(t, `\[\d+:1:1\] #1 path`, text)

	text = mustCall(t, server.handleHitTest, map[string]any{"session_id": id, "rect": []any{0, 0, 612, 792}, "kinds": "annotation"})
	assert.Contains(t, text, "Hits: 1")
	assert.Contains(t, text, "annotation")
}

func TestServer_RemoveAndStalePositions(t *testing.T) {
	server := newTestServer(t)
	id := openSession(t, server)

	list := mustCall(t, server.handleList, map[string]any{"session_id": id})
	text := mustCall(t, server.handleRemove, map[string]any{"session_id": id, "position": tokenAt(t, list, 1)})
	assert.Contains(t, text, "Removed "+tokenAt(t, list, 1))
	assert.Contains(t, text, "objects: 3")

	text, isError := call(t, server.handleRemove, map[string]any{"session_id": id, "position": tokenAt(t, list, 0)})
	assert.True(t, isError)
	assert.Contains(t, text, "INVALID_POSITION")

	text = mustCall(t, server.handleGet, map[string]any{"session_id": id, "index": 0})
	assert.Regexp(t, `\[\d+:2:0\] #0 text`, text)

	// A page token does not address the form's sequence
	text, isError = call(t, server.handleRemove, map[string]any{"session_id": id, "form": "Fm1", "position": tokenAt(t, text, 0)})
	assert.True(t, isError)
	assert.Contains(t, text, "INVALID_POSITION")
}

func TestServer_ToolErrors(t *testing.T) {
	server := newTestServer(t)
	id := openSession(t, server)

	tests := []struct {
		name    string
		handler handler
		args    map[string]any
		want    string
	}{
		{"open without path", server.handleOpen, map[string]any{}, "path"},
		{"open outside directory", server.handleOpen, map[string]any{"path": "/etc/x.pdf"}, "SECURITY_RESTRICTION"},
		{"unknown session", server.handleList, map[string]any{"session_id": "nope"}, "UNKNOWN_SESSION"},
		{"missing session", server.handleList, map[string]any{}, "session_id"},
		{"bad page", server.handleList, map[string]any{"session_id": id, "page": "one"}, "must be an integer"},
		{"bad kinds", server.handleList, map[string]any{"session_id": id, "kinds": "circle"}, "INVALID_ARGUMENT"},
		{"short rect", server.handleInsert, map[string]any{"session_id": id, "type": "rect", "rect": []any{1, 2, 3}}, "must have 4 numbers"},
		{"missing type", server.handleInsert, map[string]any{"session_id": id}, "type"},
		{"bad position", server.handleMove, map[string]any{"session_id": id, "position": "x:y"}, "INVALID_ARGUMENT"},
		{"bad merge", server.handleCommit, map[string]any{"session_id": id, "merge": "squash"}, "INVALID_ARGUMENT"},
		{"missing expected file", server.handleVerifyText, map[string]any{"path": "nope.pdf", "expected": "x"}, "INVALID_DOCUMENT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, isError := call(t, tt.handler, tt.args)
			assert.True(t, isError, text)
			assert.Contains(t, text, tt.want)
		})
	}
}

func TestServer_HandlePDFServerInfo(t *testing.T) {
	server := newTestServer(t)
	openSession(t, server)

	text := mustCall(t, server.handlePDFServerInfo, map[string]any{})
	assert.Contains(t, text, "test-server v1.0.0")
	assert.Contains(t, text, "Default Directory: /work")
	assert.Contains(t, text, "Open Sessions (1 of 4")
	assert.Contains(t, text, "sample.pdf")
	assert.Contains(t, text, "• pdf_graphics_insert")
}

// extractTextFromResult extracts text content from MCP result
func extractTextFromResult(result *mcp.CallToolResult) string {
	var text strings.Builder
	for _, content := range result.Content {
		if textContent, ok := content.(mcp.TextContent); ok {
			text.WriteString(textContent.Text)
		}
		// Handle pointer to TextContent as well
		if textContentPtr, ok := content.(*mcp.TextContent); ok {
			text.WriteString(textContentPtr.Text)
		}
	}
	return text.String()
}
