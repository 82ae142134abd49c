package session

import (
	"io"
	"log"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"go.uber.org/multierr"

	pdferrors "github.com/a3tai/mcp-pdf-graphics/internal/pdf/errors"
	"github.com/a3tai/mcp-pdf-graphics/internal/pdf/page"
	"github.com/a3tai/mcp-pdf-graphics/internal/pdf/security"
)

// DefaultCapacity is the number of sessions kept when none is configured
const DefaultCapacity = 16

// Manager holds the open sessions. The least recently used session is
// dropped, uncommitted changes included, once capacity is exceeded.
type Manager struct {
	fs     afero.Fs
	cache  *lruCache
	logger *log.Logger
}

// NewManager creates a manager reading documents from fs
func NewManager(fs afero.Fs, capacity int, logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	m := &Manager{fs: fs, logger: logger}
	m.cache = newLRUCache(capacity, func(s *Session) {
		// Wait for a request still working on the evicted session
		s.Lock()
		defer s.Unlock()
		if dirty := s.Dirty(); len(dirty) > 0 {
			m.logger.Printf("session %s evicted with uncommitted changes: %v", s.ID, dirty)
			return
		}
		m.logger.Printf("session %s evicted", s.ID)
	})
	return m
}

// Open opens the document at path in a new session
func (m *Manager) Open(path string) (*Session, error) {
	doc, err := page.Open(m.fs, path, m.logger)
	if err != nil {
		return nil, err
	}
	if perms, encrypted := doc.Permissions(); encrypted {
		if err := security.CheckEditable(perms, false); err != nil {
			return nil, err
		}
	}

	s := newSession(uuid.NewString(), doc, m.logger)
	m.cache.put(s.ID, s)
	m.logger.Printf("session %s: opened %s (%d pages)", s.ID, path, doc.PageCount())
	return s, nil
}

// Get returns the session with the given id
func (m *Manager) Get(id string) (*Session, error) {
	if s, ok := m.cache.get(id); ok {
		return s, nil
	}
	return nil, pdferrors.NewPDFError(pdferrors.ErrorTypeUnknownSession, "no such session").WithSession(id)
}

// Close ends a session. A session with uncommitted changes is kept open
// unless force is set.
func (m *Manager) Close(id string, force bool) error {
	s, err := m.Get(id)
	if err != nil {
		return err
	}

	s.Lock()
	defer s.Unlock()
	if dirty := s.Dirty(); len(dirty) > 0 && !force {
		return pdferrors.NewPDFErrorWithContext(pdferrors.ErrorTypeUncommittedChanges,
			"session has uncommitted changes", strings.Join(dirty, ", ")).WithSession(id)
	}

	m.cache.remove(id)
	m.logger.Printf("session %s: closed", id)
	return nil
}

// CloseAll ends every session and reports those that were discarded with
// uncommitted changes.
func (m *Manager) CloseAll() error {
	var errs error
	for _, s := range m.cache.drain() {
		s.Lock()
		if dirty := s.Dirty(); len(dirty) > 0 {
			errs = multierr.Append(errs, pdferrors.NewPDFErrorWithContext(pdferrors.ErrorTypeUncommittedChanges,
				"session closed with uncommitted changes", strings.Join(dirty, ", ")).WithSession(s.ID))
		}
		s.Unlock()
	}
	return errs
}

// List returns a summary of every open session, most recently used first
func (m *Manager) List() []Info {
	sessions := m.cache.values()
	infos := make([]Info, 0, len(sessions))
	for _, s := range sessions {
		s.Lock()
		infos = append(infos, s.Info())
		s.Unlock()
	}
	return infos
}

// Len returns the number of open sessions
func (m *Manager) Len() int {
	return m.cache.len()
}

// Stats returns session cache statistics
func (m *Manager) Stats() Stats {
	return m.cache.stats()
}
