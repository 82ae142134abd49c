// Package spatial answers hit-testing queries over the elements of a sequence.
package spatial

import (
	"slices"

	"github.com/a3tai/mcp-pdf-graphics/internal/geom"
	"github.com/a3tai/mcp-pdf-graphics/internal/graphics"
)

// Hit is an element found by a query, with its index and position in the
// sequence generation the index was built from.
type Hit struct {
	Index    int
	Position graphics.Position
	Element  *graphics.Element
}

// Index is a snapshot of one sequence generation. It must be rebuilt after
// the sequence changes.
type Index struct {
	tree    *QuadTree
	outside []Item
	hits    []Hit
	gen     uint64
}

// Build indexes the bounding boxes of the elements of seq matching f.
// Elements with an empty box are not indexed.
func Build(seq *graphics.Sequence, bounds geom.Rect, f graphics.Filter) *Index {
	idx := &Index{
		tree: NewQuadTree(bounds, defaultCapacity),
		gen:  seq.Generation(),
	}

	seq.Each(f, func(p graphics.Position, e *graphics.Element) bool {
		hit := Hit{Index: p.Index(), Position: p, Element: e}
		key := len(idx.hits)
		idx.hits = append(idx.hits, hit)
		if e.BBox.IsEmpty() {
			return true
		}
		if !idx.tree.Insert(e.BBox, key) {
			idx.outside = append(idx.outside, Item{Rect: e.BBox, Index: key})
		}
		return true
	})

	return idx
}

// Generation returns the sequence generation the index was built from
func (idx *Index) Generation() uint64 {
	return idx.gen
}

// Query returns the elements whose box intersects r, in paint order
func (idx *Index) Query(r geom.Rect) []Hit {
	keys := idx.tree.Query(r)
	for _, it := range idx.outside {
		if it.Rect.Intersects(r) {
			keys = append(keys, it.Index)
		}
	}

	slices.Sort(keys)
	keys = slices.Compact(keys)

	hits := make([]Hit, len(keys))
	for i, k := range keys {
		hits[i] = idx.hits[k]
	}
	return hits
}

// At returns every element whose box contains pt, in paint order
func (idx *Index) At(pt geom.Point) []Hit {
	var hits []Hit
	for _, h := range idx.Query(geom.Rect{LLX: pt.X, LLY: pt.Y, URX: pt.X, URY: pt.Y}) {
		if h.Element.BBox.ContainsPoint(pt) {
			hits = append(hits, h)
		}
	}
	return hits
}

// TopAt returns the topmost element at pt, the one painted last
func (idx *Index) TopAt(pt geom.Point) (Hit, bool) {
	hits := idx.At(pt)
	if len(hits) == 0 {
		return Hit{}, false
	}
	return hits[len(hits)-1], true
}
