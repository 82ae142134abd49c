package spatial

import (
	"context"
	"testing"

	"github.com/a3tai/mcp-pdf-graphics/internal/geom"
	"github.com/a3tai/mcp-pdf-graphics/internal/graphics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var page = geom.Rect{URX: 612, URY: 792}

func buildSeq(t *testing.T, elems ...*graphics.Element) *graphics.Sequence {
	t.Helper()
	seq, err := graphics.New(context.Background(), graphics.NewMemoryStore(elems...))
	require.NoError(t, err)
	return seq
}

func TestIndex_TopAtReturnsLastPainted(t *testing.T) {
	bottom := graphics.NewRectPath(geom.NewRect(0, 0, 200, 200), [3]float64{1, 0, 0})
	middle := graphics.NewRectPath(geom.NewRect(50, 50, 100, 100), [3]float64{0, 1, 0})
	elsewhere := graphics.NewRectPath(geom.NewRect(400, 400, 10, 10), [3]float64{0, 0, 1})
	seq := buildSeq(t, bottom, middle, elsewhere)

	idx := Build(seq, page, graphics.AllKinds)
	assert.Equal(t, seq.Generation(), idx.Generation())

	top, ok := idx.TopAt(geom.Point{X: 75, Y: 75})
	require.True(t, ok)
	assert.Same(t, middle, top.Element)
	assert.Equal(t, 1, top.Index)

	all := idx.At(geom.Point{X: 75, Y: 75})
	require.Len(t, all, 2)
	assert.Same(t, bottom, all[0].Element)

	_, ok = idx.TopAt(geom.Point{X: 300, Y: 300})
	assert.False(t, ok)
}

func TestIndex_QueryManyElementsInPaintOrder(t *testing.T) {
	var elems []*graphics.Element
	for i := 0; i < 60; i++ {
		x := float64(i%10) * 60
		y := float64(i/10) * 120
		elems = append(elems, graphics.NewRectPath(geom.NewRect(x, y, 50, 50), [3]float64{}))
	}
	seq := buildSeq(t, elems...)
	idx := Build(seq, page, graphics.AllKinds)

	hits := idx.Query(geom.Rect{LLX: 0, LLY: 0, URX: 612, URY: 792})
	require.Len(t, hits, 60)
	for i, h := range hits {
		assert.Equal(t, i, h.Index)
	}

	hits = idx.Query(geom.Rect{LLX: 0, LLY: 0, URX: 55, URY: 55})
	require.Len(t, hits, 1)
	assert.Same(t, elems[0], hits[0].Element)
}

func TestIndex_OffPageAndEmptyBoxes(t *testing.T) {
	offPage := graphics.NewRectPath(geom.NewRect(-500, -500, 10, 10), [3]float64{})
	noBox := &graphics.Element{Payload: &graphics.PageObject{}}
	seq := buildSeq(t, offPage, noBox)

	idx := Build(seq, page, graphics.AllKinds)
	hits := idx.Query(geom.Rect{LLX: -1000, LLY: -1000, URX: 1000, URY: 1000})
	require.Len(t, hits, 1)
	assert.Same(t, offPage, hits[0].Element)
}

func TestIndex_ElementsCrossingThePageEdge(t *testing.T) {
	var elems []*graphics.Element
	for i := 0; i < 30; i++ {
		elems = append(elems, graphics.NewRectPath(geom.NewRect(float64(i*20), 10, 10, 10), [3]float64{}))
	}
	bleed := graphics.NewRectPath(geom.NewRect(590, 770, 60, 60), [3]float64{1, 0, 0})
	seq := buildSeq(t, append(elems, bleed)...)
	idx := Build(seq, page, graphics.AllKinds)

	top, ok := idx.TopAt(geom.Point{X: 630, Y: 800})
	require.True(t, ok, "a point just off the page still hits the bleeding element")
	assert.Same(t, bleed, top.Element)

	top, ok = idx.TopAt(geom.Point{X: 600, Y: 780})
	require.True(t, ok)
	assert.Same(t, bleed, top.Element)

	_, ok = idx.TopAt(geom.Point{X: 700, Y: 900})
	assert.False(t, ok)
}

func TestIndex_Filter(t *testing.T) {
	rect := graphics.NewRectPath(geom.NewRect(0, 0, 100, 100), [3]float64{})
	text := graphics.NewTextRun("F1", 12, 10, 10, "hello")
	seq := buildSeq(t, rect, text)

	idx := Build(seq, page, graphics.Only(graphics.KindContainer))
	assert.Len(t, idx.At(geom.Point{X: 12, Y: 12}), 2)

	hits := Build(seq, page, graphics.Only(graphics.KindText)).At(geom.Point{X: 12, Y: 12})
	assert.Empty(t, hits)
}

func TestQuadTree_DeepSplitTerminates(t *testing.T) {
	qt := NewQuadTree(page, 2)
	for i := 0; i < 50; i++ {
		require.True(t, qt.Insert(geom.Rect{LLX: 1, LLY: 1, URX: 1.001, URY: 1.001}, i))
	}
	assert.Len(t, qt.Query(geom.Rect{LLX: 0, LLY: 0, URX: 2, URY: 2}), 50)
}
