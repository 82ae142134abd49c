package pdf

import (
	"github.com/a3tai/mcp-pdf-graphics/internal/pdf/session"
	"github.com/a3tai/mcp-pdf-graphics/internal/pdf/textcheck"
)

// FileInfo represents information about a PDF file
type FileInfo struct {
	Path         string `json:"path"`
	Name         string `json:"name"`
	Size         int64  `json:"size"`
	ModifiedTime string `json:"modified_time"`
}

// ScopeRef addresses one editable sequence of an open document: a page, a
// form XObject on the page, or a container nested in either.
type ScopeRef struct {
	SessionID string `json:"session_id"`
	Page      int    `json:"page"`
	Form      string `json:"form,omitempty"`
	Container []int  `json:"container,omitempty"`
}

// GraphicInfo describes one element of a sequence
type GraphicInfo struct {
	Position string     `json:"position"`
	Index    int        `json:"index"`
	Kind     string     `json:"kind"`
	BBox     [4]float64 `json:"bbox"`
	Matrix   [6]float64 `json:"matrix"`
	Summary  string     `json:"summary"`

	// Text runs
	Font     string  `json:"font,omitempty"`
	FontSize float64 `json:"font_size,omitempty"`
	Text     string  `json:"text,omitempty"`

	// XObjects, shadings and annotations
	Name    string `json:"name,omitempty"`
	Subtype string `json:"subtype,omitempty"`

	// Containers
	Tag      string `json:"tag,omitempty"`
	Children int    `json:"children,omitempty"`

	StateOperators int `json:"state_operators,omitempty"`
}

// Request Types

// OpenDocumentRequest opens a document for editing
type OpenDocumentRequest struct {
	Path string `json:"path"`
}

// CloseDocumentRequest ends a session
type CloseDocumentRequest struct {
	SessionID string `json:"session_id"`
	Force     bool   `json:"force"`
}

// ListGraphicsRequest lists the elements of a sequence
type ListGraphicsRequest struct {
	ScopeRef
	// Kinds is a comma separated kind filter, empty for all kinds
	Kinds string `json:"kinds,omitempty"`
}

// GetGraphicRequest reads one element by position token or by index
type GetGraphicRequest struct {
	ScopeRef
	Position string `json:"position,omitempty"`
	Index    *int   `json:"index,omitempty"`
}

// InsertGraphicRequest creates an element after a position, or at the
// front of the sequence when After is empty.
type InsertGraphicRequest struct {
	ScopeRef
	After string `json:"after,omitempty"`
	// Type is "rect", "text" or "xobject"
	Type string `json:"type"`

	// rect: x, y, width, height; Color is RGB in 0..1
	Rect  [4]float64 `json:"rect,omitempty"`
	Color [3]float64 `json:"color,omitempty"`

	// text: Font is a font resource name or a standard 14 font name
	Text     string  `json:"text,omitempty"`
	Font     string  `json:"font,omitempty"`
	FontSize float64 `json:"font_size,omitempty"`
	X        float64 `json:"x,omitempty"`
	Y        float64 `json:"y,omitempty"`

	// xobject: resource name placed through Matrix
	Name   string     `json:"name,omitempty"`
	Matrix [6]float64 `json:"matrix,omitempty"`
}

// RemoveGraphicRequest removes the element at a position
type RemoveGraphicRequest struct {
	ScopeRef
	Position string `json:"position"`
}

// MoveGraphicRequest moves the element at Position after After, or to the
// front when After is empty.
type MoveGraphicRequest struct {
	ScopeRef
	Position string `json:"position"`
	After    string `json:"after,omitempty"`
}

// CommitPageRequest commits one sequence, or every dirty sequence of the
// session when All is set.
type CommitPageRequest struct {
	ScopeRef
	// Merge lists merge options: none, text, brackets, all. Empty uses the server default.
	Merge []string `json:"merge,omitempty"`
	All   bool     `json:"all,omitempty"`
}

// PreviewContentRequest regenerates a sequence's content stream
type PreviewContentRequest struct {
	ScopeRef
	Merge []string `json:"merge,omitempty"`
}

// SaveDocumentRequest writes a session's document
type SaveDocumentRequest struct {
	SessionID string `json:"session_id"`
	// OutputPath defaults to the path the document was opened from
	OutputPath string `json:"output_path,omitempty"`
	Force      bool   `json:"force,omitempty"`
}

// HitTestRequest finds the elements under a point or inside a rectangle
type HitTestRequest struct {
	ScopeRef
	X     float64     `json:"x"`
	Y     float64     `json:"y"`
	Rect  *[4]float64 `json:"rect,omitempty"`
	Kinds string      `json:"kinds,omitempty"`
}

// VerifyTextRequest checks a saved file for expected text
type VerifyTextRequest struct {
	Path     string   `json:"path"`
	Page     int      `json:"page"`
	Expected []string `json:"expected"`
}

// ServerInfoRequest asks for server information
type ServerInfoRequest struct{}

// Response Types

// OpenDocumentResult describes a newly opened document
type OpenDocumentResult struct {
	SessionID   string   `json:"session_id"`
	Path        string   `json:"path"`
	Pages       int      `json:"pages"`
	Encrypted   bool     `json:"encrypted"`
	Permissions string   `json:"permissions"`
	Fonts       []string `json:"fonts"`
	XObjects    []string `json:"xobjects"`
}

// CloseDocumentResult confirms a closed session
type CloseDocumentResult struct {
	SessionID string `json:"session_id"`
	Closed    bool   `json:"closed"`
}

// ListGraphicsResult lists the elements of a sequence
type ListGraphicsResult struct {
	Scope      string        `json:"scope"`
	Generation uint64        `json:"generation"`
	Count      int           `json:"count"`
	Dirty      bool          `json:"dirty"`
	Filter     string        `json:"filter"`
	Graphics   []GraphicInfo `json:"graphics"`
}

// GetGraphicResult describes one element and its regenerated operators
type GetGraphicResult struct {
	Generation uint64      `json:"generation"`
	Graphic    GraphicInfo `json:"graphic"`
	Operators  string      `json:"operators"`
}

// InsertGraphicResult reports an inserted element
type InsertGraphicResult struct {
	Generation uint64      `json:"generation"`
	Count      int         `json:"count"`
	Graphic    GraphicInfo `json:"graphic"`
}

// RemoveGraphicResult reports a removal
type RemoveGraphicResult struct {
	Removed    bool   `json:"removed"`
	Generation uint64 `json:"generation"`
	Count      int    `json:"count"`
}

// MoveGraphicResult reports the new position of a moved element
type MoveGraphicResult struct {
	Generation uint64      `json:"generation"`
	Graphic    GraphicInfo `json:"graphic"`
}

// CommitPageResult reports committed sequences
type CommitPageResult struct {
	Scope      string   `json:"scope"`
	Generation uint64   `json:"generation,omitempty"`
	Merge      string   `json:"merge"`
	Dirty      []string `json:"dirty"`
}

// PreviewContentResult holds a regenerated content stream
type PreviewContentResult struct {
	Scope      string `json:"scope"`
	Generation uint64 `json:"generation"`
	Merge      string `json:"merge"`
	Content    []byte `json:"content"`
}

// SaveDocumentResult reports a written file
type SaveDocumentResult struct {
	Path string `json:"path"`
	Size int64  `json:"size"`
}

// HitTestResult lists hits in paint order; Top is the topmost one
type HitTestResult struct {
	Generation uint64        `json:"generation"`
	Hits       []GraphicInfo `json:"hits"`
	Top        *GraphicInfo  `json:"top,omitempty"`
}

// VerifyTextResult reports which expected strings a saved page contains
type VerifyTextResult struct {
	Path string `json:"path"`
	OK   bool   `json:"ok"`
	*textcheck.Result
}

// ToolInfo describes an available MCP tool
type ToolInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Usage       string `json:"usage"`
	Parameters  string `json:"parameters"`
}

// ServerInfoResult holds server information and usage guidance
type ServerInfoResult struct {
	ServerName        string         `json:"server_name"`
	Version           string         `json:"version"`
	DefaultDirectory  string         `json:"default_directory"`
	MaxFileSize       int64          `json:"max_file_size"`
	DefaultMerge      string         `json:"default_merge"`
	Kinds             []string       `json:"kinds"`
	Sessions          []session.Info `json:"sessions"`
	SessionStats      session.Stats  `json:"session_stats"`
	AvailableTools    []ToolInfo     `json:"available_tools"`
	DirectoryContents []FileInfo     `json:"directory_contents"`
	UsageGuidance     string         `json:"usage_guidance"`
}
