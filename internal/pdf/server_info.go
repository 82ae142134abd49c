package pdf

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/a3tai/mcp-pdf-graphics/internal/graphics"
)

const (
	scanFileLimit = 100
	scanMaxDepth  = 3
)

var errScanLimit = errors.New("scan limit reached")

// listPDFs walks the configured directory for PDF files, skipping hidden
// entries and stopping after scanFileLimit files
func (s *Service) listPDFs() []FileInfo {
	root := s.pathValidator.Root()
	files := []FileInfo{}

	err := afero.Walk(s.fs, root, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if path != root && strings.HasPrefix(info.Name(), ".") {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if info.IsDir() {
			rel, _ := filepath.Rel(root, path)
			if rel != "." && strings.Count(rel, string(filepath.Separator)) >= scanMaxDepth-1 {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.EqualFold(filepath.Ext(path), ".pdf") {
			return nil
		}

		files = append(files, FileInfo{
			Path:         path,
			Name:         info.Name(),
			Size:         info.Size(),
			ModifiedTime: info.ModTime().Format(time.RFC3339),
		})
		if len(files) >= scanFileLimit {
			return errScanLimit
		}
		return nil
	})
	if err != nil && !errors.Is(err, errScanLimit) {
		s.logger.Printf("directory scan of %s failed: %v", root, err)
	}
	return files
}

// ServerInfo returns server information, open sessions and usage guidance
func (s *Service) ServerInfo(_ ServerInfoRequest, serverName, version string) (*ServerInfoResult, error) {
	kinds := []string{}
	for k := graphics.KindText; k <= graphics.KindPage; k <<= 1 {
		kinds = append(kinds, k.String())
	}

	availableTools := []ToolInfo{
		{
			Name:        "pdf_graphics_open",
			Description: "Open a PDF for graphics editing",
			Usage:       "Start here. Returns the session_id every other editing tool needs.",
			Parameters:  "path (required): PDF path, relative to the default directory or absolute within it",
		},
		{
			Name:        "pdf_graphics_list",
			Description: "List the graphics objects of a page in paint order",
			Usage:       "Returns position tokens. Tokens expire after any edit, so list again after editing.",
			Parameters:  "session_id, page (required); form, container, kinds (optional)",
		},
		{
			Name:        "pdf_graphics_get",
			Description: "Describe one graphics object and its operators",
			Usage:       "Address the object by position token or by index.",
			Parameters:  "session_id, page (required); position or index; form, container (optional)",
		},
		{
			Name:        "pdf_graphics_insert",
			Description: "Insert a rectangle, a line of text or an XObject placement",
			Usage:       "Without 'after' the object goes to the front and is painted underneath everything else.",
			Parameters:  "session_id, page, type (required); after, rect, color, text, font, font_size, x, y, name, matrix",
		},
		{
			Name:        "pdf_graphics_remove",
			Description: "Remove a graphics object",
			Usage:       "Removing an annotation also drops it from /Annots on commit.",
			Parameters:  "session_id, page, position (required)",
		},
		{
			Name:        "pdf_graphics_move",
			Description: "Change the paint order of a graphics object",
			Usage:       "Move after the last object to bring it to the top; omit 'after' to send it to the back.",
			Parameters:  "session_id, page, position (required); after (optional)",
		},
		{
			Name:        "pdf_graphics_commit",
			Description: "Write edits back into the page content stream",
			Usage:       "Required before saving. 'all' commits every edited page, form and group.",
			Parameters:  "session_id (required); page, form, container, merge, all (optional)",
		},
		{
			Name:        "pdf_graphics_save",
			Description: "Save the edited document",
			Usage:       "Refuses while edits are uncommitted unless force is set.",
			Parameters:  "session_id (required); output_path, force (optional)",
		},
		{
			Name:        "pdf_graphics_hit_test",
			Description: "Find graphics objects at a point or inside a rectangle",
			Usage:       "The 'top' hit is the object visible at the point.",
			Parameters:  "session_id, page (required); x, y or rect; kinds (optional)",
		},
		{
			Name:        "pdf_graphics_verify_text",
			Description: "Check a saved page for expected text",
			Usage:       "Run after saving to confirm text edits.",
			Parameters:  "path, expected (required); page (optional, default 1)",
		},
		{
			Name:        "pdf_graphics_close",
			Description: "Close an editing session",
			Usage:       "Use force to discard uncommitted edits.",
			Parameters:  "session_id (required); force (optional)",
		},
		{
			Name:        "pdf_server_info",
			Description: "Server information and usage guidance",
			Usage:       "Shows the default directory, limits and open sessions.",
			Parameters:  "none",
		},
	}

	usageGuidance := `PDF Graphics MCP Server Usage Guide:

1. OPEN:
   - Use 'pdf_graphics_open' with a PDF path to get a session_id

2. INSPECT:
   - Use 'pdf_graphics_list' to see a page's graphics objects in paint order
   - Later objects paint over earlier ones
   - Use 'pdf_graphics_hit_test' to find what is drawn at a location

3. EDIT:
   - Use 'pdf_graphics_insert', 'pdf_graphics_remove' and 'pdf_graphics_move'
   - Every edit invalidates all position tokens; list again before the next edit
   - Use 'container' to edit inside a q/Q or marked-content group, 'form' to edit a form XObject

4. PERSIST:
   - Use 'pdf_graphics_commit' to write edits into the page
   - Use 'pdf_graphics_save' to write the file
   - Use 'pdf_graphics_verify_text' to confirm the saved text

IMPORTANT NOTES:
- Paths are confined to the default directory
- The server can handle files up to ` + fmt.Sprintf("%d", s.maxFileSize/(1024*1024)) + `MB
- Save never commits for you`

	stats := s.sessions.Stats()
	return &ServerInfoResult{
		ServerName:        serverName,
		Version:           version,
		DefaultDirectory:  s.pathValidator.Root(),
		MaxFileSize:       s.maxFileSize,
		DefaultMerge:      s.merge.String(),
		Kinds:             kinds,
		Sessions:          s.sessions.List(),
		SessionStats:      stats,
		AvailableTools:    availableTools,
		DirectoryContents: s.listPDFs(),
		UsageGuidance:     usageGuidance,
	}, nil
}
