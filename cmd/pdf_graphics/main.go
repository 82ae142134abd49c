package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/midbel/hexdump"
	"github.com/spf13/afero"
	"github.com/spf13/pflag"

	"github.com/a3tai/mcp-pdf-graphics/internal/config"
	"github.com/a3tai/mcp-pdf-graphics/internal/pdf"
)

// options holds the flags shared by every command
type options struct {
	page      int
	form      string
	container []int
	kinds     string
	format    string
	hex       bool
	merge     []string
	output    string
	position  string
	index     int
	after     string
	expected  []string
	verbose   bool
}

// cli runs one command against one file
type cli struct {
	stdout io.Writer
	stderr io.Writer
	opts   options

	// opened is the resolved path of the current document
	opened string
}

func main() {
	c := &cli{stdout: os.Stdout, stderr: os.Stderr}
	os.Exit(c.run(os.Args[1:]))
}

func (c *cli) run(args []string) int {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		c.printHelp()
		return 0
	}

	command := args[0]
	flags := c.flagSet(command)
	if err := flags.Parse(args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 2
	}

	if command == "verify" {
		if flags.NArg() != 1 {
			return c.usageError("verify needs exactly one PDF file")
		}
		return c.exit(c.verify(flags.Arg(0)))
	}

	if flags.NArg() != 1 {
		return c.usageError(command + " needs exactly one PDF file")
	}
	path := flags.Arg(0)

	var err error
	switch command {
	case "list":
		err = c.withDocument(path, c.list)
	case "show":
		err = c.withDocument(path, c.show)
	case "stream":
		err = c.withDocument(path, c.stream)
	case "remove":
		err = c.withDocument(path, c.remove)
	case "move":
		err = c.withDocument(path, c.move)
	default:
		return c.usageError("unknown command: " + command)
	}
	return c.exit(err)
}

func (c *cli) flagSet(command string) *pflag.FlagSet {
	flags := pflag.NewFlagSet("pdf_graphics "+command, pflag.ContinueOnError)
	flags.SetOutput(c.stderr)

	o := &c.opts
	flags.IntVar(&o.page, "page", 1, "1-based page number")
	flags.StringVar(&o.form, "form", "", "edit this form XObject of the page instead of the page")
	flags.IntSliceVar(&o.container, "container", nil, "indices of nested containers to descend into")
	flags.StringVar(&o.kinds, "kinds", "", "comma separated kind filter")
	flags.StringVar(&o.format, "format", "text", "output format: text, json")
	flags.BoolVar(&o.hex, "hex", false, "hex dump regenerated content")
	flags.StringSliceVar(&o.merge, "merge", nil, "merge options for commits: none, text, brackets, all")
	flags.StringVarP(&o.output, "output", "o", "", "output file (default <name>.edited.pdf)")
	flags.StringVar(&o.position, "position", "", "position token of the object")
	flags.IntVarP(&o.index, "index", "i", -1, "0-based index of the object")
	flags.StringVar(&o.after, "after", "", "position token, or 0-based index, to move after; empty moves to the front")
	flags.StringSliceVar(&o.expected, "expected", nil, "text the page must contain")
	flags.BoolVarP(&o.verbose, "verbose", "v", false, "enable verbose output")
	return flags
}

func (c *cli) exit(err error) int {
	if err != nil {
		fmt.Fprintf(c.stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func (c *cli) usageError(msg string) int {
	fmt.Fprintf(c.stderr, "Error: %s\n\n", msg)
	c.printUsage(c.stderr)
	return 2
}

func (c *cli) printHelp() {
	fmt.Fprintln(c.stdout, "PDF Graphics - inspect and edit the graphics objects of PDF pages")
	fmt.Fprintln(c.stdout)
	c.printUsage(c.stdout)
	fmt.Fprintln(c.stdout)
	fmt.Fprintln(c.stdout, "COMMANDS:")
	fmt.Fprintln(c.stdout, "  list      List the graphics objects of a page in paint order")
	fmt.Fprintln(c.stdout, "  show      Describe one object and print its operators")
	fmt.Fprintln(c.stdout, "  stream    Print the content stream a commit would write")
	fmt.Fprintln(c.stdout, "  remove    Remove one object and save a copy")
	fmt.Fprintln(c.stdout, "  move      Change the paint order of one object and save a copy")
	fmt.Fprintln(c.stdout, "  verify    Check that a page contains expected text")
	fmt.Fprintln(c.stdout)
	fmt.Fprintln(c.stdout, "EXAMPLES:")
	fmt.Fprintln(c.stdout, "  pdf_graphics list --kinds text,path report.pdf")
	fmt.Fprintln(c.stdout, "  pdf_graphics show --index 3 --hex report.pdf")
	fmt.Fprintln(c.stdout, "  pdf_graphics stream --merge all --page 2 report.pdf")
	fmt.Fprintln(c.stdout, "  pdf_graphics move --index 0 --after 4 -o fixed.pdf report.pdf")
	fmt.Fprintln(c.stdout, "  pdf_graphics verify --expected Total,Signature fixed.pdf")
}

func (c *cli) printUsage(w io.Writer) {
	fmt.Fprintln(w, "USAGE:")
	fmt.Fprintln(w, "  pdf_graphics <command> [OPTIONS] <pdf_file>")
}

// withDocument opens path in a single-document service rooted at its directory
func (c *cli) withDocument(path string, fn func(context.Context, *pdf.Service, pdf.ScopeRef) error) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to get absolute path: %w", err)
	}

	svc, err := newService(filepath.Dir(absPath))
	if err != nil {
		return err
	}
	defer svc.Close()

	opened, err := svc.OpenDocument(pdf.OpenDocumentRequest{Path: absPath})
	if err != nil {
		return err
	}
	c.opened = opened.Path
	if c.opts.verbose {
		fmt.Fprintf(c.stderr, "🔍 Opened %s (%d pages)\n", opened.Path, opened.Pages)
	}

	ref := pdf.ScopeRef{
		SessionID: opened.SessionID,
		Page:      c.opts.page,
		Form:      c.opts.form,
		Container: c.opts.container,
	}
	err = fn(context.Background(), svc, ref)

	// Nothing committed is ever left behind, so closing can always be forced
	if _, closeErr := svc.CloseDocument(pdf.CloseDocumentRequest{SessionID: opened.SessionID, Force: true}); err == nil {
		err = closeErr
	}
	return err
}

func newService(dir string) (*pdf.Service, error) {
	return pdf.NewService(afero.NewOsFs(), pdf.ServiceConfig{
		Directory:   dir,
		MaxFileSize: config.DefaultMaxFileSize,
		Sessions:    1,
	})
}

func (c *cli) printJSON(v any) error {
	encoder := json.NewEncoder(c.stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func (c *cli) list(ctx context.Context, svc *pdf.Service, ref pdf.ScopeRef) error {
	result, err := svc.ListGraphics(ctx, pdf.ListGraphicsRequest{ScopeRef: ref, Kinds: c.opts.kinds})
	if err != nil {
		return err
	}
	if c.opts.format == "json" {
		return c.printJSON(result)
	}

	fmt.Fprintf(c.stdout, "%s: %d objects (filter %s)\n\n", result.Scope, result.Count, result.Filter)
	for _, g := range result.Graphics {
		fmt.Fprintf(c.stdout, "[%3d] %-10s %-40s bbox (%.1f, %.1f) to (%.1f, %.1f)\n",
			g.Index, g.Kind, truncate(g.Summary, 40), g.BBox[0], g.BBox[1], g.BBox[2], g.BBox[3])
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

// resolve turns --position or --index into a position token
func (c *cli) resolve(ctx context.Context, svc *pdf.Service, ref pdf.ScopeRef, token string, index int) (string, error) {
	if token != "" {
		return token, nil
	}
	if index < 0 {
		return "", errors.New("either --position or --index is required")
	}

	result, err := svc.ListGraphics(ctx, pdf.ListGraphicsRequest{ScopeRef: ref})
	if err != nil {
		return "", err
	}
	if index >= len(result.Graphics) {
		return "", fmt.Errorf("index %d out of range, %s has %d objects", index, result.Scope, result.Count)
	}
	return result.Graphics[index].Position, nil
}

func (c *cli) show(ctx context.Context, svc *pdf.Service, ref pdf.ScopeRef) error {
	position, err := c.resolve(ctx, svc, ref, c.opts.position, c.opts.index)
	if err != nil {
		return err
	}

	result, err := svc.GetGraphic(ctx, pdf.GetGraphicRequest{ScopeRef: ref, Position: position})
	if err != nil {
		return err
	}
	if c.opts.format == "json" {
		return c.printJSON(result)
	}

	g := result.Graphic
	fmt.Fprintf(c.stdout, "[%d] %s\n", g.Index, g.Kind)
	fmt.Fprintf(c.stdout, "    %s\n", g.Summary)
	fmt.Fprintf(c.stdout, "    BBox: (%.1f, %.1f) to (%.1f, %.1f)\n", g.BBox[0], g.BBox[1], g.BBox[2], g.BBox[3])
	if g.Children > 0 {
		fmt.Fprintf(c.stdout, "    Children: %d\n", g.Children)
	}
	fmt.Fprintln(c.stdout)
	c.printContent([]byte(result.Operators))
	return nil
}

func (c *cli) printContent(data []byte) {
	if c.opts.hex {
		fmt.Fprintln(c.stdout, hexdump.Dump(data))
		return
	}
	fmt.Fprint(c.stdout, string(data))
}

func (c *cli) stream(ctx context.Context, svc *pdf.Service, ref pdf.ScopeRef) error {
	result, err := svc.PreviewContent(ctx, pdf.PreviewContentRequest{ScopeRef: ref, Merge: c.opts.merge})
	if err != nil {
		return err
	}
	if c.opts.verbose {
		fmt.Fprintf(c.stderr, "%s, merge %s, %d bytes\n", result.Scope, result.Merge, len(result.Content))
	}
	c.printContent(result.Content)
	return nil
}

func (c *cli) remove(ctx context.Context, svc *pdf.Service, ref pdf.ScopeRef) error {
	position, err := c.resolve(ctx, svc, ref, c.opts.position, c.opts.index)
	if err != nil {
		return err
	}

	if _, err := svc.RemoveGraphic(ctx, pdf.RemoveGraphicRequest{ScopeRef: ref, Position: position}); err != nil {
		return err
	}
	return c.commitAndSave(ctx, svc, ref)
}

func (c *cli) move(ctx context.Context, svc *pdf.Service, ref pdf.ScopeRef) error {
	position, err := c.resolve(ctx, svc, ref, c.opts.position, c.opts.index)
	if err != nil {
		return err
	}

	after := c.opts.after
	if after != "" && !strings.Contains(after, ":") {
		var index int
		if _, err := fmt.Sscanf(after, "%d", &index); err != nil {
			return fmt.Errorf("invalid --after %q", after)
		}
		if after, err = c.resolve(ctx, svc, ref, "", index); err != nil {
			return err
		}
	}

	result, err := svc.MoveGraphic(ctx, pdf.MoveGraphicRequest{ScopeRef: ref, Position: position, After: after})
	if err != nil {
		return err
	}
	if c.opts.verbose {
		fmt.Fprintf(c.stderr, "Moved to index %d\n", result.Graphic.Index)
	}
	return c.commitAndSave(ctx, svc, ref)
}

func (c *cli) commitAndSave(ctx context.Context, svc *pdf.Service, ref pdf.ScopeRef) error {
	if _, err := svc.CommitPage(ctx, pdf.CommitPageRequest{ScopeRef: ref, Merge: c.opts.merge, All: true}); err != nil {
		return err
	}

	output := c.opts.output
	if output == "" {
		output = editedName(c.opened)
	}

	saved, err := svc.SaveDocument(pdf.SaveDocumentRequest{SessionID: ref.SessionID, OutputPath: output})
	if err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "✅ Saved %s (%d bytes)\n", saved.Path, saved.Size)
	return nil
}

// editedName returns report.edited.pdf for report.pdf
func editedName(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ".edited.pdf"
}

func (c *cli) verify(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to get absolute path: %w", err)
	}
	if len(c.opts.expected) == 0 {
		return errors.New("--expected is required")
	}

	svc, err := newService(filepath.Dir(absPath))
	if err != nil {
		return err
	}
	defer svc.Close()

	result, err := svc.VerifyText(pdf.VerifyTextRequest{Path: absPath, Page: c.opts.page, Expected: c.opts.expected})
	if err != nil {
		return err
	}
	if c.opts.format == "json" {
		if err := c.printJSON(result); err != nil {
			return err
		}
	} else {
		for _, s := range result.Found {
			fmt.Fprintf(c.stdout, "✅ %q\n", s)
		}
		for _, s := range result.Missing {
			fmt.Fprintf(c.stdout, "❌ %q\n", s)
		}
	}
	if !result.OK {
		return fmt.Errorf("%d of %d expected strings missing", len(result.Missing), len(c.opts.expected))
	}
	return nil
}
