package spatial

import (
	"github.com/a3tai/mcp-pdf-graphics/internal/geom"
)

const (
	defaultCapacity = 10
	maxDepth        = 12
)

// QuadTree is a region quadtree over rectangles tagged with an integer key
type QuadTree struct {
	Bounds   geom.Rect
	Capacity int
	Items    []Item
	Nodes    []*QuadTree

	depth int
}

// Item is one indexed rectangle
type Item struct {
	Rect  geom.Rect
	Index int
}

// NewQuadTree creates an empty tree covering bounds
func NewQuadTree(bounds geom.Rect, capacity int) *QuadTree {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &QuadTree{
		Bounds:   bounds,
		Capacity: capacity,
		Items:    make([]Item, 0, capacity),
	}
}

// Insert adds rect under index. It returns false when rect lies entirely
// outside the tree bounds.
func (qt *QuadTree) Insert(rect geom.Rect, index int) bool {
	if !qt.Bounds.Intersects(rect) {
		return false
	}

	if qt.Nodes != nil {
		for _, node := range qt.Nodes {
			if node.Bounds.Contains(rect) && node.Insert(rect, index) {
				return true
			}
		}
		// Straddles a split line, keep it here
		qt.Items = append(qt.Items, Item{Rect: rect, Index: index})
		return true
	}

	if len(qt.Items) < qt.Capacity || qt.depth >= maxDepth {
		qt.Items = append(qt.Items, Item{Rect: rect, Index: index})
		return true
	}

	qt.subdivide()
	old := qt.Items
	qt.Items = make([]Item, 0, qt.Capacity)
	for _, it := range old {
		qt.Insert(it.Rect, it.Index)
	}
	return qt.Insert(rect, index)
}

func (qt *QuadTree) subdivide() {
	b := qt.Bounds
	xMid := (b.LLX + b.URX) / 2
	yMid := (b.LLY + b.URY) / 2

	quads := []geom.Rect{
		{LLX: b.LLX, LLY: yMid, URX: xMid, URY: b.URY},
		{LLX: xMid, LLY: yMid, URX: b.URX, URY: b.URY},
		{LLX: b.LLX, LLY: b.LLY, URX: xMid, URY: yMid},
		{LLX: xMid, LLY: b.LLY, URX: b.URX, URY: yMid},
	}
	qt.Nodes = make([]*QuadTree, len(quads))
	for i, q := range quads {
		qt.Nodes[i] = NewQuadTree(q, qt.Capacity)
		qt.Nodes[i].depth = qt.depth + 1
	}
}

// Query returns the keys of every rectangle intersecting r, in no particular
// order. Rectangles crossing the tree bounds are found outside the bounds
// too: items stored below the root lie inside their node, so only the
// descent into child nodes is pruned.
func (qt *QuadTree) Query(r geom.Rect) []int {
	var found []int
	for _, it := range qt.Items {
		if it.Rect.Intersects(r) {
			found = append(found, it.Index)
		}
	}
	for _, node := range qt.Nodes {
		if node.Bounds.Intersects(r) {
			found = append(found, node.Query(r)...)
		}
	}
	return found
}
