// Package session keeps open documents and their editable graphics
// sequences between requests.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/multierr"

	"github.com/a3tai/mcp-pdf-graphics/internal/graphics"
	pdferrors "github.com/a3tai/mcp-pdf-graphics/internal/pdf/errors"
	"github.com/a3tai/mcp-pdf-graphics/internal/pdf/page"
)

// Scope addresses one editable sequence of a session: a page, a form
// XObject used by the page, or a container nested in either.
type Scope struct {
	Page int
	// Form is the XObject resource name of a form on Page, empty for the page content
	Form string
	// Path holds container indices, outermost first
	Path []int
}

func (s Scope) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "page %d", s.Page)
	if s.Form != "" {
		fmt.Fprintf(&sb, " form %s", s.Form)
	}
	for _, i := range s.Path {
		fmt.Fprintf(&sb, "/%d", i)
	}
	return sb.String()
}

type rootKey struct {
	page int
	form string
}

// nested is the sequence over the children of a container element
type nested struct {
	label  string
	depth  int
	seq    *graphics.Sequence
	parent *graphics.Sequence
}

// Session is one open document. A session is not safe for concurrent use:
// callers hold Lock for the duration of every request.
type Session struct {
	ID       string
	Path     string
	OpenedAt time.Time

	mu     sync.Mutex
	doc    *page.Document
	roots  map[rootKey]*graphics.Sequence
	nested map[*graphics.Element]*nested
	logger *log.Logger
}

func newSession(id string, doc *page.Document, logger *log.Logger) *Session {
	return &Session{
		ID:       id,
		Path:     doc.Path,
		OpenedAt: time.Now(),
		doc:      doc,
		roots:    make(map[rootKey]*graphics.Sequence),
		nested:   make(map[*graphics.Element]*nested),
		logger:   logger,
	}
}

func (s *Session) Lock()   { s.mu.Lock() }
func (s *Session) Unlock() { s.mu.Unlock() }

// Document returns the underlying document
func (s *Session) Document() *page.Document {
	return s.doc
}

// Sequence returns the sequence addressed by scope, importing it on first use
func (s *Session) Sequence(ctx context.Context, scope Scope) (*graphics.Sequence, error) {
	key := rootKey{page: scope.Page, form: scope.Form}
	seq, ok := s.roots[key]
	if !ok {
		var store graphics.Store
		if scope.Form == "" {
			ps, err := s.doc.PageStore(scope.Page)
			if err != nil {
				return nil, err
			}
			store = ps
		} else {
			fs, err := s.doc.FormStore(scope.Page, scope.Form)
			if err != nil {
				return nil, err
			}
			store = fs
		}

		var err error
		seq, err = graphics.New(ctx, store)
		if err != nil {
			return nil, err
		}
		s.roots[key] = seq
		s.logger.Printf("session %s: loaded %s with %d elements", s.ID, Scope{Page: scope.Page, Form: scope.Form}, seq.Count())
	}

	for depth, idx := range scope.Path {
		elem, err := seq.At(idx)
		if err != nil {
			return nil, pdferrors.WrapError(pdferrors.ErrorTypeIndexOutOfRange, "container path", err).
				WithContext(Scope{Page: scope.Page, Form: scope.Form, Path: scope.Path[:depth+1]}.String())
		}
		if n, ok := s.nested[elem]; ok {
			seq = n.seq
			continue
		}
		if _, ok := elem.Payload.(*graphics.Container); !ok {
			return nil, pdferrors.WrapError(pdferrors.ErrorTypeInvalidArgument, "container path", graphics.ErrNotContainer).
				WithContext(fmt.Sprintf("element %d is %s", idx, elem.Kind()))
		}

		child, err := graphics.New(ctx, graphics.ContainerStore{Parent: elem})
		if err != nil {
			return nil, err
		}
		s.nested[elem] = &nested{
			label:  Scope{Page: scope.Page, Form: scope.Form, Path: append([]int(nil), scope.Path[:depth+1]...)}.String(),
			depth:  depth + 1,
			seq:    child,
			parent: seq,
		}
		seq = child
	}

	return seq, nil
}

// Commit commits the sequence addressed by scope. Committing a nested
// container leaves its parent sequence dirty.
func (s *Session) Commit(ctx context.Context, scope Scope, opt graphics.MergeOption) error {
	seq, err := s.Sequence(ctx, scope)
	if err != nil {
		return err
	}
	return s.commit(ctx, seq, scope.String(), opt)
}

func (s *Session) commit(ctx context.Context, seq *graphics.Sequence, label string, opt graphics.MergeOption) error {
	if err := seq.Commit(ctx, opt); err != nil {
		return pdferrors.WrapError(pdferrors.ErrorTypeStoreFailure, "commit failed", err).
			WithContext(label).WithSession(s.ID)
	}
	for elem, n := range s.nested {
		if n.seq == seq && n.parent.IndexOf(elem) >= 0 {
			n.parent.MarkDirty()
		}
	}
	s.logger.Printf("session %s: committed %s at generation %d", s.ID, label, seq.Generation())
	return nil
}

// Dirty lists the sequences holding uncommitted changes
func (s *Session) Dirty() []string {
	var dirty []string
	for key, seq := range s.roots {
		if seq.Dirty() {
			dirty = append(dirty, Scope{Page: key.page, Form: key.form}.String())
		}
	}
	for elem, n := range s.nested {
		if n.seq.Dirty() && n.parent.IndexOf(elem) >= 0 {
			dirty = append(dirty, n.label)
		}
	}
	sort.Strings(dirty)
	return dirty
}

// Sequences returns the number of sequences loaded so far
func (s *Session) Sequences() int {
	return len(s.roots) + len(s.nested)
}

// CommitAll commits every dirty sequence, nested containers before the
// sequences holding them. Failures are collected and do not stop the others.
func (s *Session) CommitAll(ctx context.Context, opt graphics.MergeOption) error {
	var inner []*nested
	for elem, n := range s.nested {
		if n.parent.IndexOf(elem) < 0 {
			// The container left its parent; its edits have nowhere to go
			delete(s.nested, elem)
			continue
		}
		inner = append(inner, n)
	}
	sort.Slice(inner, func(i, j int) bool {
		if inner[i].depth != inner[j].depth {
			return inner[i].depth > inner[j].depth
		}
		return inner[i].label < inner[j].label
	})

	var errs error
	for _, n := range inner {
		if n.seq.Dirty() {
			errs = multierr.Append(errs, s.commit(ctx, n.seq, n.label, opt))
		}
	}

	keys := make([]rootKey, 0, len(s.roots))
	for key := range s.roots {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].page != keys[j].page {
			return keys[i].page < keys[j].page
		}
		return keys[i].form > keys[j].form
	})
	for _, key := range keys {
		if seq := s.roots[key]; seq.Dirty() {
			errs = multierr.Append(errs, s.commit(ctx, seq, Scope{Page: key.page, Form: key.form}.String(), opt))
		}
	}

	return errs
}

// Save writes the document to path, or back to its own path when path is
// empty. Uncommitted changes are refused unless force is set; they are
// never committed implicitly.
func (s *Session) Save(path string, force bool) error {
	if dirty := s.Dirty(); len(dirty) > 0 && !force {
		return pdferrors.NewPDFErrorWithContext(pdferrors.ErrorTypeUncommittedChanges,
			"document has uncommitted changes", strings.Join(dirty, ", ")).WithSession(s.ID)
	}
	if path == "" {
		path = s.Path
	}

	if err := s.doc.SaveAs(path); err != nil {
		var pdfErr *pdferrors.PDFError
		if errors.As(err, &pdfErr) {
			return pdfErr.WithSession(s.ID)
		}
		return err
	}
	return nil
}

// Info summarises a session
type Info struct {
	ID        string    `json:"id"`
	Path      string    `json:"path"`
	Pages     int       `json:"pages"`
	OpenedAt  time.Time `json:"opened_at"`
	Sequences int       `json:"sequences"`
	Dirty     []string  `json:"dirty,omitempty"`
}

// Info returns a summary of the session
func (s *Session) Info() Info {
	return Info{
		ID:        s.ID,
		Path:      s.Path,
		Pages:     s.doc.PageCount(),
		OpenedAt:  s.OpenedAt,
		Sequences: s.Sequences(),
		Dirty:     s.Dirty(),
	}
}
