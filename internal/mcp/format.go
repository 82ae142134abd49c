package mcp

import (
	"fmt"
	"strings"
	"time"

	"github.com/a3tai/mcp-pdf-graphics/internal/pdf"
)

func formatOpenResult(result *pdf.OpenDocumentResult) string {
	text := fmt.Sprintf("Opened PDF: %s\n", result.Path)
	text += fmt.Sprintf("Session: %s\n", result.SessionID)
	text += fmt.Sprintf("Pages: %d\n", result.Pages)
	if result.Encrypted {
		text += fmt.Sprintf("Encrypted: yes (permissions: %s)\n", result.Permissions)
	}
	if len(result.Fonts) > 0 {
		text += fmt.Sprintf("Page 1 fonts: %s\n", strings.Join(result.Fonts, ", "))
	}
	if len(result.XObjects) > 0 {
		text += fmt.Sprintf("Page 1 XObjects: %s\n", strings.Join(result.XObjects, ", "))
	}
	return text
}

func formatNumbers(values []float64) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprintf("%.4g", v)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// formatGraphic renders one element as an indented block
func formatGraphic(g pdf.GraphicInfo) string {
	text := fmt.Sprintf("[%s] #%d %s: %s\n", g.Position, g.Index, g.Kind, g.Summary)
	text += fmt.Sprintf("    bbox %s\n", formatNumbers(g.BBox[:]))
	if g.Matrix != [6]float64{1, 0, 0, 1, 0, 0} {
		text += fmt.Sprintf("    matrix %s\n", formatNumbers(g.Matrix[:]))
	}
	if g.StateOperators > 0 {
		text += fmt.Sprintf("    carries %d graphics state operators\n", g.StateOperators)
	}
	return text
}

func formatListResult(result *pdf.ListGraphicsResult) string {
	text := fmt.Sprintf("Graphics in %s (generation %d)\n", result.Scope, result.Generation)
	if result.Filter != "" {
		text += fmt.Sprintf("Filter: %s\n", result.Filter)
	}
	if result.Dirty {
		text += "Uncommitted edits: yes\n"
	}
	text += fmt.Sprintf("Objects: %d\n", result.Count)

	if len(result.Graphics) == 0 {
		return text + "\nNo graphics objects found\n"
	}

	text += "\n"
	for _, g := range result.Graphics {
		text += formatGraphic(g)
	}
	return text
}

func formatHitTestResult(result *pdf.HitTestResult) string {
	text := fmt.Sprintf("Hits: %d (generation %d)\n", len(result.Hits), result.Generation)
	if result.Top == nil {
		return text
	}

	text += "\nTopmost:\n" + formatGraphic(*result.Top)
	if len(result.Hits) > 1 {
		text += "\nAll hits, bottom to top:\n"
		for _, g := range result.Hits {
			text += formatGraphic(g)
		}
	}
	return text
}

func formatVerifyTextResult(result *pdf.VerifyTextResult) string {
	status := "PASSED"
	if !result.OK {
		status = "FAILED"
	}

	text := fmt.Sprintf("Text verification %s for %s page %d\n", status, result.Path, result.Page)
	if len(result.Found) > 0 {
		text += fmt.Sprintf("Found: %s\n", strings.Join(quoteAll(result.Found), ", "))
	}
	if len(result.Missing) > 0 {
		text += fmt.Sprintf("Missing: %s\n", strings.Join(quoteAll(result.Missing), ", "))
	}
	return text
}

func quoteAll(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = fmt.Sprintf("%q", v)
	}
	return out
}

func formatServerInfoResult(result *pdf.ServerInfoResult) string {
	text := fmt.Sprintf("📋 %s v%s - Server Information\n", result.ServerName, result.Version)
	text += fmt.Sprintf("📁 Default Directory: %s\n", result.DefaultDirectory)
	text += fmt.Sprintf("📏 Max File Size: %d MB\n", result.MaxFileSize/(1024*1024))
	text += fmt.Sprintf("🔀 Default Merge: %s\n", result.DefaultMerge)
	text += fmt.Sprintf("🧩 Kinds: %s\n\n", strings.Join(result.Kinds, ", "))

	// Open sessions
	text += fmt.Sprintf("🗂️  Open Sessions (%d of %d, hit rate %.0f%%):\n",
		result.SessionStats.Size, result.SessionStats.Capacity, result.SessionStats.HitRate)
	if len(result.Sessions) == 0 {
		text += "   none\n"
	}
	for _, info := range result.Sessions {
		text += fmt.Sprintf("   • %s %s (%d pages)", info.ID, info.Path, info.Pages)
		if len(info.Dirty) > 0 {
			text += fmt.Sprintf(" uncommitted: %s", strings.Join(info.Dirty, ", "))
		}
		text += "\n"
	}
	text += "\n"

	// Directory contents
	if len(result.DirectoryContents) > 0 {
		text += fmt.Sprintf("📂 Directory Contents (%d PDF files found):\n", len(result.DirectoryContents))
		for i, file := range result.DirectoryContents {
			if i >= 10 { // Limit to first 10 files for readability
				text += fmt.Sprintf("   ... and %d more files\n", len(result.DirectoryContents)-10)
				break
			}
			text += fmt.Sprintf("   %d. %s (%d bytes)\n", i+1, file.Name, file.Size)
		}
		text += "\n"
	} else {
		text += "📂 Directory Contents: No PDF files found in default directory\n\n"
	}

	// Available tools
	text += "🛠️  Available Tools:\n"
	for _, tool := range result.AvailableTools {
		text += fmt.Sprintf("\n• %s\n", tool.Name)
		text += fmt.Sprintf("  Description: %s\n", tool.Description)
		text += fmt.Sprintf("  Usage: %s\n", tool.Usage)
		text += fmt.Sprintf("  Parameters: %s\n", tool.Parameters)
	}

	text += "\n" + result.UsageGuidance

	return text
}

func formatPanics(panics []PanicRecord) string {
	if len(panics) == 0 {
		return ""
	}

	text := fmt.Sprintf("\n⚠️  Recovered Panics (%d):\n", len(panics))
	for _, p := range panics {
		text += fmt.Sprintf("   %s %s: %s\n", p.Timestamp.Format(time.RFC3339), p.Tool, p.Message)
	}
	return text
}
