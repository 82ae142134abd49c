package session

import (
	"bytes"
	"context"
	"log"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/a3tai/mcp-pdf-graphics/internal/geom"
	"github.com/a3tai/mcp-pdf-graphics/internal/graphics"
	pdferrors "github.com/a3tai/mcp-pdf-graphics/internal/pdf/errors"
	"github.com/a3tai/mcp-pdf-graphics/internal/pdf/pdftest"
)

func newManager(t *testing.T, capacity int) (*Manager, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	data := pdftest.Document(
		pdftest.Page{
			Content: "q 0 0 10 10 re f 20 20 10 10 re f Q BT /F1 10 Tf 1 0 0 1 72 72 Tm (Hi) Tj ET",
			Form:    "0 0 5 5 re f",
		},
		pdftest.Page{Content: "0 0 1 1 re f"},
	)
	require.NoError(t, afero.WriteFile(fs, "/in.pdf", data, 0o644))
	return NewManager(fs, capacity, nil), fs
}

func TestScope_String(t *testing.T) {
	assert.Equal(t, "page 1", Scope{Page: 1}.String())
	assert.Equal(t, "page 2 form Fm1/0/3", Scope{Page: 2, Form: "Fm1", Path: []int{0, 3}}.String())
}

func TestManager_OpenGetClose(t *testing.T) {
	m, _ := newManager(t, 4)

	s, err := m.Open("/in.pdf")
	require.NoError(t, err)
	assert.NotEmpty(t, s.ID)
	assert.Equal(t, 1, m.Len())

	got, err := m.Get(s.ID)
	require.NoError(t, err)
	assert.Same(t, s, got)

	_, err = m.Get("missing")
	assert.True(t, pdferrors.IsType(err, pdferrors.ErrorTypeUnknownSession))

	_, err = m.Open("/nope.pdf")
	assert.True(t, pdferrors.IsType(err, pdferrors.ErrorTypeInvalidDocument))

	require.NoError(t, m.Close(s.ID, false))
	assert.Equal(t, 0, m.Len())
	assert.True(t, pdferrors.IsType(m.Close(s.ID, false), pdferrors.ErrorTypeUnknownSession))
}

func TestManager_Eviction(t *testing.T) {
	m, _ := newManager(t, 2)

	a, err := m.Open("/in.pdf")
	require.NoError(t, err)
	b, err := m.Open("/in.pdf")
	require.NoError(t, err)

	_, err = m.Get(a.ID) // a is now the most recent
	require.NoError(t, err)

	c, err := m.Open("/in.pdf")
	require.NoError(t, err)

	_, err = m.Get(b.ID)
	assert.Error(t, err, "least recently used session is evicted")
	ids := []string{}
	for _, info := range m.List() {
		ids = append(ids, info.ID)
	}
	assert.Equal(t, []string{c.ID, a.ID}, ids)

	stats := m.Stats()
	assert.Equal(t, int64(1), stats.Evicted)
	assert.Equal(t, 2, stats.Capacity)
}

func TestManager_EvictionWaitsForSessionLock(t *testing.T) {
	_, fs := newManager(t, 1)
	var logs bytes.Buffer
	m := NewManager(fs, 1, log.New(&logs, "", 0))

	busy, err := m.Open("/in.pdf")
	require.NoError(t, err)

	busy.Lock()
	done := make(chan error, 1)
	go func() {
		_, err := m.Open("/in.pdf")
		done <- err
	}()

	// Keep working on the session while the second Open evicts it
	ctx := context.Background()
	for i := 0; i < 20; i++ {
		for _, scope := range []Scope{{Page: 1}, {Page: 2}, {Page: 1, Form: "Fm1"}, {Page: 1, Path: []int{0}}} {
			_, err := busy.Sequence(ctx, scope)
			require.NoError(t, err)
		}
	}
	seq, err := busy.Sequence(ctx, Scope{Page: 2})
	require.NoError(t, err)
	_, err = seq.InsertAfter(graphics.NoPosition, graphics.NewRectPath(geom.NewRect(1, 1, 1, 1), [3]float64{}))
	require.NoError(t, err)

	select {
	case <-done:
		t.Fatal("eviction finished while the session was locked")
	case <-time.After(50 * time.Millisecond):
	}

	busy.Unlock()
	require.NoError(t, <-done)
	assert.Contains(t, logs.String(), "evicted with uncommitted changes: [page 2]")
	assert.Equal(t, 1, m.Len())
}

func TestSession_SequencesAndScopes(t *testing.T) {
	m, _ := newManager(t, 4)
	s, err := m.Open("/in.pdf")
	require.NoError(t, err)
	ctx := context.Background()

	pageSeq, err := s.Sequence(ctx, Scope{Page: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, pageSeq.Count())

	again, err := s.Sequence(ctx, Scope{Page: 1})
	require.NoError(t, err)
	assert.Same(t, pageSeq, again, "sequences are imported once")

	inner, err := s.Sequence(ctx, Scope{Page: 1, Path: []int{0}})
	require.NoError(t, err)
	assert.Equal(t, 2, inner.Count())

	form, err := s.Sequence(ctx, Scope{Page: 1, Form: "Fm1"})
	require.NoError(t, err)
	assert.Equal(t, 1, form.Count())
	assert.Equal(t, 3, s.Sequences())

	_, err = s.Sequence(ctx, Scope{Page: 1, Path: []int{1}})
	assert.True(t, pdferrors.IsType(err, pdferrors.ErrorTypeInvalidArgument), "text run is not a container")
	_, err = s.Sequence(ctx, Scope{Page: 1, Path: []int{9}})
	assert.True(t, pdferrors.IsType(err, pdferrors.ErrorTypeIndexOutOfRange))
	_, err = s.Sequence(ctx, Scope{Page: 7})
	assert.True(t, pdferrors.IsType(err, pdferrors.ErrorTypeInvalidArgument))
}

func TestSession_SaveRequiresCommit(t *testing.T) {
	m, fs := newManager(t, 4)
	s, err := m.Open("/in.pdf")
	require.NoError(t, err)
	ctx := context.Background()

	seq, err := s.Sequence(ctx, Scope{Page: 2})
	require.NoError(t, err)
	_, err = seq.InsertAfter(graphics.NoPosition, graphics.NewRectPath(geom.NewRect(1, 1, 2, 2), [3]float64{1, 0, 0}))
	require.NoError(t, err)
	assert.Equal(t, []string{"page 2"}, s.Dirty())

	err = s.Save("/out.pdf", false)
	assert.True(t, pdferrors.IsType(err, pdferrors.ErrorTypeUncommittedChanges))
	exists, _ := afero.Exists(fs, "/out.pdf")
	assert.False(t, exists)
	assert.True(t, seq.Dirty(), "save never commits")

	assert.True(t, pdferrors.IsType(m.Close(s.ID, false), pdferrors.ErrorTypeUncommittedChanges))

	require.NoError(t, s.Commit(ctx, Scope{Page: 2}, graphics.MergeNone))
	assert.Empty(t, s.Dirty())
	require.NoError(t, s.Save("/out.pdf", false))

	reopened, err := m.Open("/out.pdf")
	require.NoError(t, err)
	seq2, err := reopened.Sequence(ctx, Scope{Page: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, seq2.Count())
}

func TestSession_NestedCommitDirtiesParent(t *testing.T) {
	m, _ := newManager(t, 4)
	s, err := m.Open("/in.pdf")
	require.NoError(t, err)
	ctx := context.Background()

	scope := Scope{Page: 1, Path: []int{0}}
	inner, err := s.Sequence(ctx, scope)
	require.NoError(t, err)
	p, ok := inner.Last(graphics.AllKinds)
	require.True(t, ok)
	require.True(t, inner.RemoveAt(p))

	require.NoError(t, s.Commit(ctx, scope, graphics.MergeNone))
	assert.Equal(t, []string{"page 1"}, s.Dirty())

	parent, err := s.Sequence(ctx, Scope{Page: 1})
	require.NoError(t, err)
	group, err := parent.At(0)
	require.NoError(t, err)
	assert.Len(t, group.Payload.(*graphics.Container).Children, 1)
}

func TestSession_CommitAll(t *testing.T) {
	m, _ := newManager(t, 4)
	s, err := m.Open("/in.pdf")
	require.NoError(t, err)
	ctx := context.Background()

	inner, err := s.Sequence(ctx, Scope{Page: 1, Path: []int{0}})
	require.NoError(t, err)
	first, _ := inner.First(graphics.AllKinds)
	require.True(t, inner.RemoveAt(first))

	form, err := s.Sequence(ctx, Scope{Page: 1, Form: "Fm1"})
	require.NoError(t, err)
	_, err = form.InsertAfter(graphics.NoPosition, graphics.NewRectPath(geom.NewRect(0, 0, 1, 1), [3]float64{}))
	require.NoError(t, err)

	require.NoError(t, s.CommitAll(ctx, graphics.MergeAll))
	assert.Empty(t, s.Dirty())
	require.NoError(t, s.Save("", false))
}

func TestManager_CloseAll(t *testing.T) {
	m, _ := newManager(t, 4)
	clean, err := m.Open("/in.pdf")
	require.NoError(t, err)
	dirty, err := m.Open("/in.pdf")
	require.NoError(t, err)
	_ = clean

	seq, err := dirty.Sequence(context.Background(), Scope{Page: 2})
	require.NoError(t, err)
	first, _ := seq.First(graphics.AllKinds)
	require.True(t, seq.RemoveAt(first))

	err = m.CloseAll()
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 1)
	assert.True(t, pdferrors.IsType(err, pdferrors.ErrorTypeUncommittedChanges))
	assert.Equal(t, 0, m.Len())
}
