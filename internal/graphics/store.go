package graphics

import (
	"context"
	"slices"

	"github.com/a3tai/mcp-pdf-graphics/internal/geom"
	"github.com/a3tai/mcp-pdf-graphics/internal/pdf/content"
)

// Store is the backing representation of a sequence. Load yields the
// initial ordered element list; Save is the serialization sink invoked
// by Commit.
type Store interface {
	Load(ctx context.Context) ([]*Element, error)
	Save(ctx context.Context, elems []*Element, opt MergeOption) error
}

// MemoryStore keeps elements in memory and records every regenerated
// content stream.
type MemoryStore struct {
	elems []*Element

	// Commits holds the serialized content of every successful Save
	Commits [][]byte
	// SaveErr, when set, makes Save fail without recording anything
	SaveErr error
}

// NewMemoryStore creates a store whose initial element list is elems
func NewMemoryStore(elems ...*Element) *MemoryStore {
	return &MemoryStore{elems: elems}
}

func (m *MemoryStore) Load(ctx context.Context) ([]*Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return slices.Clone(m.elems), nil
}

func (m *MemoryStore) Save(ctx context.Context, elems []*Element, opt MergeOption) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m.elems = slices.Clone(elems)
	m.Commits = append(m.Commits, content.Bytes(Flatten(elems, opt)))
	return nil
}

// Last returns the most recently committed content, or nil
func (m *MemoryStore) Last() []byte {
	if len(m.Commits) == 0 {
		return nil
	}
	return m.Commits[len(m.Commits)-1]
}

// ContainerStore exposes the children of a container element as their own
// sequence. Save replaces the children in place; merge options are applied
// later, when the enclosing sequence is flattened.
type ContainerStore struct {
	Parent *Element
}

func (c ContainerStore) container() (*Container, error) {
	if c.Parent == nil {
		return nil, ErrNotContainer
	}
	group, ok := c.Parent.Payload.(*Container)
	if !ok {
		return nil, ErrNotContainer
	}
	return group, nil
}

func (c ContainerStore) Load(ctx context.Context) ([]*Element, error) {
	group, err := c.container()
	if err != nil {
		return nil, err
	}
	return slices.Clone(group.Children), nil
}

func (c ContainerStore) Save(ctx context.Context, elems []*Element, opt MergeOption) error {
	group, err := c.container()
	if err != nil {
		return err
	}
	group.Children = slices.Clone(elems)

	var bbox geom.Rect
	for _, e := range elems {
		bbox = bbox.Union(e.BBox)
	}
	c.Parent.BBox = bbox
	return nil
}
