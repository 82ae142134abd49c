package pdf

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"slices"

	"github.com/spf13/afero"

	"github.com/a3tai/mcp-pdf-graphics/internal/geom"
	"github.com/a3tai/mcp-pdf-graphics/internal/graphics"
	"github.com/a3tai/mcp-pdf-graphics/internal/graphics/spatial"
	"github.com/a3tai/mcp-pdf-graphics/internal/pdf/content"
	pdferrors "github.com/a3tai/mcp-pdf-graphics/internal/pdf/errors"
	"github.com/a3tai/mcp-pdf-graphics/internal/pdf/page"
	"github.com/a3tai/mcp-pdf-graphics/internal/pdf/security"
	"github.com/a3tai/mcp-pdf-graphics/internal/pdf/session"
	"github.com/a3tai/mcp-pdf-graphics/internal/pdf/textcheck"
)

// ServiceConfig configures a Service
type ServiceConfig struct {
	Directory   string
	MaxFileSize int64
	// Sessions is the number of documents kept open at once
	Sessions int
	// Merge is used by commits that do not name merge options
	Merge  graphics.MergeOption
	Logger *log.Logger
}

// Service edits the graphics of PDF documents by orchestrating sessions,
// sequences and stores
type Service struct {
	fs            afero.Fs
	maxFileSize   int64
	merge         graphics.MergeOption
	sessions      *session.Manager
	pathValidator *security.PathValidator
	logger        *log.Logger
}

// NewService creates a service working on fs
func NewService(fs afero.Fs, cfg ServiceConfig) (*Service, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	pathValidator, err := security.NewPathValidator(fs, cfg.Directory, cfg.MaxFileSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create path validator: %w", err)
	}

	return &Service{
		fs:            fs,
		maxFileSize:   cfg.MaxFileSize,
		merge:         cfg.Merge,
		sessions:      session.NewManager(fs, cfg.Sessions, logger),
		pathValidator: pathValidator,
		logger:        logger,
	}, nil
}

// GetMaxFileSize returns the maximum file size limit
func (s *Service) GetMaxFileSize() int64 {
	return s.maxFileSize
}

// Directory returns the directory documents are confined to
func (s *Service) Directory() string {
	return s.pathValidator.Root()
}

// Close ends every session, reporting those discarded with uncommitted changes
func (s *Service) Close() error {
	return s.sessions.CloseAll()
}

// OpenDocument opens a document in a new editing session
func (s *Service) OpenDocument(req OpenDocumentRequest) (*OpenDocumentResult, error) {
	path, err := s.pathValidator.ValidateInput(req.Path)
	if err != nil {
		return nil, err
	}

	sess, err := s.sessions.Open(path)
	if err != nil {
		return nil, err
	}
	sess.Lock()
	defer sess.Unlock()

	doc := sess.Document()
	perms, encrypted := doc.Permissions()
	result := &OpenDocumentResult{
		SessionID:   sess.ID,
		Path:        path,
		Pages:       doc.PageCount(),
		Encrypted:   encrypted,
		Permissions: perms.String(),
		Fonts:       []string{},
		XObjects:    []string{},
	}
	if doc.PageCount() > 0 {
		if fonts, err := doc.FontNames(1); err == nil && fonts != nil {
			result.Fonts = fonts
		}
		if xobjects, err := doc.XObjectNames(1); err == nil && xobjects != nil {
			result.XObjects = xobjects
		}
	}
	return result, nil
}

// CloseDocument ends a session
func (s *Service) CloseDocument(req CloseDocumentRequest) (*CloseDocumentResult, error) {
	if err := s.sessions.Close(req.SessionID, req.Force); err != nil {
		return nil, err
	}
	return &CloseDocumentResult{SessionID: req.SessionID, Closed: true}, nil
}

func (ref ScopeRef) scope() session.Scope {
	page := ref.Page
	if page == 0 {
		page = 1
	}
	return session.Scope{Page: page, Form: ref.Form, Path: ref.Container}
}

// withSequence runs fn on the sequence addressed by ref while holding the session lock
func (s *Service) withSequence(ctx context.Context, ref ScopeRef,
	fn func(*session.Session, *graphics.Sequence) error,
) error {
	sess, err := s.sessions.Get(ref.SessionID)
	if err != nil {
		return err
	}
	sess.Lock()
	defer sess.Unlock()

	seq, err := sess.Sequence(ctx, ref.scope())
	if err != nil {
		return err
	}
	return fn(sess, seq)
}

// position resolves a position token; an empty token is NoPosition
func position(seq *graphics.Sequence, token string) (graphics.Position, error) {
	tok, ok, err := graphics.ParseToken(token)
	if err != nil {
		return graphics.NoPosition, pdferrors.WrapError(pdferrors.ErrorTypeInvalidArgument, "invalid position token", err)
	}
	if !ok {
		return graphics.NoPosition, nil
	}
	p, err := seq.PositionAt(tok)
	if err != nil {
		return graphics.NoPosition, graphicsError(err)
	}
	return p, nil
}

func requiredPosition(seq *graphics.Sequence, token string) (graphics.Position, error) {
	p, err := position(seq, token)
	if err != nil {
		return p, err
	}
	if p.IsNone() {
		return p, pdferrors.NewPDFError(pdferrors.ErrorTypeInvalidArgument, "position is required")
	}
	return p, nil
}

// graphicsError maps sequence errors onto typed errors
func graphicsError(err error) error {
	var pdfErr *pdferrors.PDFError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &pdfErr):
		return err
	case errors.Is(err, graphics.ErrInvalidPosition):
		return pdferrors.WrapError(pdferrors.ErrorTypeInvalidPosition, "stale or foreign position", err)
	case errors.Is(err, graphics.ErrIndexOutOfRange):
		return pdferrors.WrapError(pdferrors.ErrorTypeIndexOutOfRange, "index out of range", err)
	case errors.Is(err, graphics.ErrNilElement), errors.Is(err, graphics.ErrDuplicateElement),
		errors.Is(err, graphics.ErrNotContainer):
		return pdferrors.WrapError(pdferrors.ErrorTypeInvalidArgument, "invalid element", err)
	}
	return err
}

func parseFilter(kinds string) (graphics.Filter, error) {
	f, err := graphics.ParseFilter(kinds)
	if err != nil {
		return 0, pdferrors.WrapError(pdferrors.ErrorTypeInvalidArgument, "invalid kind filter", err)
	}
	return f, nil
}

// ListGraphics lists the elements of a sequence matching a kind filter
func (s *Service) ListGraphics(ctx context.Context, req ListGraphicsRequest) (*ListGraphicsResult, error) {
	filter, err := parseFilter(req.Kinds)
	if err != nil {
		return nil, err
	}

	var result *ListGraphicsResult
	err = s.withSequence(ctx, req.ScopeRef, func(_ *session.Session, seq *graphics.Sequence) error {
		result = &ListGraphicsResult{
			Scope:      req.scope().String(),
			Generation: seq.Generation(),
			Count:      seq.Count(),
			Dirty:      seq.Dirty(),
			Filter:     filter.String(),
			Graphics:   []GraphicInfo{},
		}
		seq.Each(filter, func(p graphics.Position, e *graphics.Element) bool {
			result.Graphics = append(result.Graphics, describe(p, e))
			return true
		})
		return nil
	})
	return result, err
}

// GetGraphic reads one element by position token, or by index when Index is set
func (s *Service) GetGraphic(ctx context.Context, req GetGraphicRequest) (*GetGraphicResult, error) {
	var result *GetGraphicResult
	err := s.withSequence(ctx, req.ScopeRef, func(_ *session.Session, seq *graphics.Sequence) error {
		var (
			elem *graphics.Element
			p    graphics.Position
			err  error
		)
		if req.Index != nil {
			elem, err = seq.At(*req.Index)
			if err != nil {
				return graphicsError(err)
			}
			p, _ = seq.PositionOf(elem)
		} else {
			p, err = requiredPosition(seq, req.Position)
			if err != nil {
				return err
			}
			elem, err = seq.Get(p)
			if err != nil {
				return graphicsError(err)
			}
		}

		result = &GetGraphicResult{
			Generation: seq.Generation(),
			Graphic:    describe(p, elem),
			Operators:  string(content.Bytes(graphics.Flatten([]*graphics.Element{elem}, graphics.MergeNone))),
		}
		return nil
	})
	return result, err
}

// InsertGraphic builds a new element and inserts it after req.After
func (s *Service) InsertGraphic(ctx context.Context, req InsertGraphicRequest) (*InsertGraphicResult, error) {
	var result *InsertGraphicResult
	err := s.withSequence(ctx, req.ScopeRef, func(sess *session.Session, seq *graphics.Sequence) error {
		anchor, err := position(seq, req.After)
		if err != nil {
			return err
		}

		elem, addResources, err := s.buildElement(sess, req)
		if err != nil {
			return err
		}

		p, err := seq.InsertAfter(anchor, elem)
		if err != nil {
			return graphicsError(err)
		}
		if addResources != nil {
			if err := addResources(); err != nil {
				seq.Remove(elem)
				return err
			}
		}
		s.logger.Printf("session %s: inserted %s into %s at %s", sess.ID, req.Type, req.scope(), p)

		result = &InsertGraphicResult{
			Generation: seq.Generation(),
			Count:      seq.Count(),
			Graphic:    describe(p, elem),
		}
		return nil
	})
	return result, err
}

var standardFonts = []string{
	"Courier", "Courier-Bold", "Courier-BoldOblique", "Courier-Oblique",
	"Helvetica", "Helvetica-Bold", "Helvetica-BoldOblique", "Helvetica-Oblique",
	"Symbol", "Times-Bold", "Times-BoldItalic", "Times-Italic", "Times-Roman", "ZapfDingbats",
}

// buildElement creates the element for req. Resources the element needs
// that the page lacks are added by the returned func, which the caller
// runs once the element is in place.
func (s *Service) buildElement(sess *session.Session, req InsertGraphicRequest) (*graphics.Element, func() error, error) {
	doc := sess.Document()
	pageNr := req.scope().Page

	switch req.Type {
	case "rect":
		if req.Rect[2] <= 0 || req.Rect[3] <= 0 {
			return nil, nil, pdferrors.NewPDFError(pdferrors.ErrorTypeInvalidArgument, "rect needs a positive width and height")
		}
		for _, c := range req.Color {
			if c < 0 || c > 1 {
				return nil, nil, pdferrors.NewPDFError(pdferrors.ErrorTypeInvalidArgument, "color components must be within 0..1")
			}
		}
		return graphics.NewRectPath(geom.NewRect(req.Rect[0], req.Rect[1], req.Rect[2], req.Rect[3]), req.Color), nil, nil

	case "text":
		if req.Text == "" {
			return nil, nil, pdferrors.NewPDFError(pdferrors.ErrorTypeInvalidArgument, "text is required")
		}
		encoded, err := textcheck.Encode(req.Text)
		if err != nil {
			return nil, nil, pdferrors.WrapError(pdferrors.ErrorTypeInvalidArgument, "text cannot be encoded as WinAnsi", err)
		}
		size := req.FontSize
		if size <= 0 {
			size = 12
		}
		font, addFont, err := fontResource(doc, pageNr, req.Font)
		if err != nil {
			return nil, nil, err
		}
		return graphics.NewTextRun(font, size, req.X, req.Y, string(encoded)), addFont, nil

	case "xobject":
		if req.Name == "" {
			return nil, nil, pdferrors.NewPDFError(pdferrors.ErrorTypeInvalidArgument, "name is required")
		}
		if req.Matrix == [6]float64{} {
			return nil, nil, pdferrors.NewPDFError(pdferrors.ErrorTypeInvalidArgument, "matrix is required")
		}
		info, err := doc.XObject(pageNr, req.Name)
		if err != nil {
			return nil, nil, err
		}

		m := geom.Matrix(req.Matrix)
		kind := graphics.KindForm
		if info.Subtype == "Image" {
			kind = graphics.KindImage
		}
		elem, err := graphics.NewFormPlacement(req.Name, m, kind)
		if err != nil {
			return nil, nil, pdferrors.WrapError(pdferrors.ErrorTypeInvalidArgument, "cannot place XObject", err)
		}
		if kind == graphics.KindForm && !info.BBox.IsEmpty() {
			placed := elem.Payload.(*graphics.Container).Children[0]
			placed.BBox = info.BBox.Transform(info.Matrix.Multiply(m))
			elem.BBox = placed.BBox
		}
		return elem, nil, nil
	}

	return nil, nil, pdferrors.NewPDFErrorWithContext(pdferrors.ErrorTypeInvalidArgument,
		"unknown graphic type", fmt.Sprintf("%q (want rect, text or xobject)", req.Type))
}

// fontResource resolves a font argument to a page font resource name
func fontResource(doc *page.Document, pageNr int, font string) (string, func() error, error) {
	if font == "" {
		font = "Helvetica"
	}
	existing, err := doc.FontNames(pageNr)
	if err != nil {
		return "", nil, err
	}
	if slices.Contains(existing, font) {
		return font, nil, nil
	}
	if slices.Contains(standardFonts, font) {
		return doc.StandardFont(pageNr, font)
	}
	return "", nil, pdferrors.NewPDFErrorWithContext(pdferrors.ErrorTypeResourceNotFound,
		"font is neither a page font resource nor a standard font", font).WithPage(pageNr)
}

// RemoveGraphic removes the element at a position
func (s *Service) RemoveGraphic(ctx context.Context, req RemoveGraphicRequest) (*RemoveGraphicResult, error) {
	var result *RemoveGraphicResult
	err := s.withSequence(ctx, req.ScopeRef, func(sess *session.Session, seq *graphics.Sequence) error {
		p, err := requiredPosition(seq, req.Position)
		if err != nil {
			return err
		}
		removed := seq.RemoveAt(p)
		result = &RemoveGraphicResult{Removed: removed, Generation: seq.Generation(), Count: seq.Count()}
		return nil
	})
	return result, err
}

// MoveGraphic moves an element after another one, or to the front
func (s *Service) MoveGraphic(ctx context.Context, req MoveGraphicRequest) (*MoveGraphicResult, error) {
	var result *MoveGraphicResult
	err := s.withSequence(ctx, req.ScopeRef, func(_ *session.Session, seq *graphics.Sequence) error {
		cur, err := requiredPosition(seq, req.Position)
		if err != nil {
			return err
		}
		target, err := position(seq, req.After)
		if err != nil {
			return err
		}
		elem, err := seq.Get(cur)
		if err != nil {
			return graphicsError(err)
		}

		p, err := seq.MoveAfter(cur, target)
		if err != nil {
			return graphicsError(err)
		}
		result = &MoveGraphicResult{Generation: seq.Generation(), Graphic: describe(p, elem)}
		return nil
	})
	return result, err
}

// CommitPage commits a sequence to its page or form, or every dirty
// sequence of the session
func (s *Service) CommitPage(ctx context.Context, req CommitPageRequest) (*CommitPageResult, error) {
	opt := s.merge
	if len(req.Merge) > 0 {
		var err error
		if opt, err = graphics.ParseMergeOption(req.Merge...); err != nil {
			return nil, pdferrors.WrapError(pdferrors.ErrorTypeInvalidArgument, "invalid merge option", err)
		}
	}

	sess, err := s.sessions.Get(req.SessionID)
	if err != nil {
		return nil, err
	}
	sess.Lock()
	defer sess.Unlock()

	result := &CommitPageResult{Merge: opt.String()}
	if req.All {
		result.Scope = "all"
		err = sess.CommitAll(ctx, opt)
	} else {
		scope := req.scope()
		result.Scope = scope.String()
		if err = sess.Commit(ctx, scope, opt); err == nil {
			seq, _ := sess.Sequence(ctx, scope)
			result.Generation = seq.Generation()
		}
	}
	result.Dirty = sess.Dirty()
	if result.Dirty == nil {
		result.Dirty = []string{}
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

// PreviewContent regenerates the content stream a commit of the sequence
// would write, without committing
func (s *Service) PreviewContent(ctx context.Context, req PreviewContentRequest) (*PreviewContentResult, error) {
	opt := s.merge
	if len(req.Merge) > 0 {
		var err error
		if opt, err = graphics.ParseMergeOption(req.Merge...); err != nil {
			return nil, pdferrors.WrapError(pdferrors.ErrorTypeInvalidArgument, "invalid merge option", err)
		}
	}

	var result *PreviewContentResult
	err := s.withSequence(ctx, req.ScopeRef, func(_ *session.Session, seq *graphics.Sequence) error {
		result = &PreviewContentResult{
			Scope:      req.scope().String(),
			Generation: seq.Generation(),
			Merge:      opt.String(),
			Content:    content.Bytes(graphics.Flatten(seq.Elements(), opt)),
		}
		return nil
	})
	return result, err
}

// SaveDocument writes a session's document. Uncommitted changes are
// refused unless Force is set.
func (s *Service) SaveDocument(req SaveDocumentRequest) (*SaveDocumentResult, error) {
	sess, err := s.sessions.Get(req.SessionID)
	if err != nil {
		return nil, err
	}
	sess.Lock()
	defer sess.Unlock()

	out := sess.Path
	if req.OutputPath != "" {
		if out, err = s.pathValidator.ValidateOutput(req.OutputPath); err != nil {
			return nil, err
		}
	}

	if err := sess.Save(out, req.Force); err != nil {
		return nil, err
	}

	result := &SaveDocumentResult{Path: out}
	if info, err := s.fs.Stat(out); err == nil {
		result.Size = info.Size()
	}
	return result, nil
}

// HitTest finds the elements under a point, or intersecting a rectangle
// when Rect is set
func (s *Service) HitTest(ctx context.Context, req HitTestRequest) (*HitTestResult, error) {
	filter, err := parseFilter(req.Kinds)
	if err != nil {
		return nil, err
	}

	var result *HitTestResult
	err = s.withSequence(ctx, req.ScopeRef, func(sess *session.Session, seq *graphics.Sequence) error {
		bounds, err := sess.Document().MediaBox(req.scope().Page)
		if err != nil {
			return err
		}
		index := spatial.Build(seq, bounds, filter)

		var hits []spatial.Hit
		if req.Rect != nil {
			hits = index.Query(geom.NewRect(req.Rect[0], req.Rect[1], req.Rect[2], req.Rect[3]))
		} else {
			hits = index.At(geom.Point{X: req.X, Y: req.Y})
		}

		result = &HitTestResult{Generation: index.Generation(), Hits: make([]GraphicInfo, 0, len(hits))}
		for _, h := range hits {
			result.Hits = append(result.Hits, describe(h.Position, h.Element))
		}
		if len(result.Hits) > 0 {
			top := result.Hits[len(result.Hits)-1]
			result.Top = &top
		}
		return nil
	})
	return result, err
}

// VerifyText re-reads a saved file and checks a page for expected text
func (s *Service) VerifyText(req VerifyTextRequest) (*VerifyTextResult, error) {
	path, err := s.pathValidator.ValidateInput(req.Path)
	if err != nil {
		return nil, err
	}
	pageNr := req.Page
	if pageNr == 0 {
		pageNr = 1
	}

	check, err := textcheck.Verify(s.fs, path, pageNr, req.Expected)
	if err != nil {
		return nil, err
	}
	return &VerifyTextResult{Path: path, OK: check.OK(), Result: check}, nil
}
