// Package page binds graphics sequences to PDF pages and form XObjects.
package page

import (
	"github.com/a3tai/mcp-pdf-graphics/internal/geom"
	"github.com/a3tai/mcp-pdf-graphics/internal/graphics"
	"github.com/a3tai/mcp-pdf-graphics/internal/pdf/content"
)

// XObjectInfo describes a named XObject of a resource dictionary
type XObjectInfo struct {
	Subtype string // Image, Form or PS
	BBox    geom.Rect
	Matrix  geom.Matrix
}

// Resolver looks up named resources referenced from a content stream
type Resolver interface {
	XObject(name string) (XObjectInfo, bool)
}

// MapResolver is a Resolver over a fixed set of XObjects
type MapResolver map[string]XObjectInfo

func (m MapResolver) XObject(name string) (XObjectInfo, bool) {
	info, ok := m[name]
	return info, ok
}

// Import groups content stream operations into graphics elements. bounds
// is the page or form box; it is used as the extent of shadings, which
// paint the whole clip region.
//
// Flatten(Import(ops), MergeNone) reproduces ops, except that groups left
// open at the end of the stream stay open.
func Import(ops []content.Operation, res Resolver, bounds geom.Rect) []*graphics.Element {
	if res == nil {
		res = MapResolver(nil)
	}
	im := &importer{
		ops:     ops,
		tracker: content.NewTracker(),
		res:     res,
		bounds:  bounds,
	}
	elems, trailer, _ := im.group("")
	if len(trailer) > 0 {
		elems = append(elems, pageObject(trailer))
	}
	return elems
}

type importer struct {
	ops     []content.Operation
	pos     int
	tracker *content.Tracker
	res     Resolver
	bounds  geom.Rect
}

func (im *importer) more() bool {
	return im.pos < len(im.ops)
}

func (im *importer) peek() content.Operation {
	return im.ops[im.pos]
}

func (im *importer) take() content.Operation {
	op := im.ops[im.pos]
	im.pos++
	im.tracker.Apply(op)
	return op
}

// group reads elements until the closing operator (Q or EMC) or the end of
// the stream. It returns the elements, state operators left after the last
// element and the closing operation, which has an empty operator at the end
// of the stream.
func (im *importer) group(closing string) ([]*graphics.Element, []content.Operation, content.Operation) {
	var (
		elems   []*graphics.Element
		pending []content.Operation
	)

	emit := func(e *graphics.Element) {
		e.State = pending
		pending = nil
		elems = append(elems, e)
	}

	for im.more() {
		op := im.peek()

		switch content.Class(op.Operator) {
		case content.ClassSave:
			emit(im.container(false))

		case content.ClassMarkedBegin:
			emit(im.container(true))

		case content.ClassRestore, content.ClassMarkedEnd:
			im.take()
			if op.Operator == closing {
				return elems, pending, op
			}
			// Unbalanced, kept in place
			emit(pageObject([]content.Operation{op}))

		case content.ClassTextBegin:
			emit(im.textRun())

		case content.ClassPathConstruct, content.ClassClip, content.ClassPathPaint:
			emit(im.path())

		case content.ClassXObject:
			emit(im.xobject())

		case content.ClassShading:
			im.take()
			emit(&graphics.Element{
				BBox:    im.bounds,
				Matrix:  im.tracker.CTM,
				Payload: &graphics.Shading{Name: op.Name(0), Ops: []content.Operation{op}},
			})

		case content.ClassInlineImage:
			im.take()
			emit(&graphics.Element{
				BBox:    im.tracker.UnitSquare(),
				Matrix:  im.tracker.CTM,
				Payload: &graphics.Image{Inline: true, Ops: []content.Operation{op}},
			})

		default:
			pending = append(pending, im.take())
		}
	}

	return elems, pending, content.Operation{}
}

func (im *importer) container(marked bool) *graphics.Element {
	matrix := im.tracker.CTM
	open := im.take()

	c := &graphics.Container{Marked: marked, Open: open}
	closing := "Q"
	if marked {
		c.Tag = open.Name(0)
		closing = "EMC"
	}
	c.Children, c.Trailer, c.Close = im.group(closing)

	var bbox geom.Rect
	for _, child := range c.Children {
		bbox = bbox.Union(child.BBox)
	}
	return &graphics.Element{BBox: bbox, Matrix: matrix, Payload: c}
}

func (im *importer) textRun() *graphics.Element {
	im.take() // BT

	run := &graphics.TextRun{}
	elem := &graphics.Element{Matrix: im.tracker.Text.Matrix, Payload: run}
	shown := false

	for im.more() {
		op := im.peek()
		if op.Operator == "ET" {
			im.take()
			break
		}

		if content.Class(op.Operator) == content.ClassTextShow && !shown {
			// The run is anchored where its first glyph is drawn
			shown = true
			elem.Matrix = im.tracker.Text.Matrix
			if op.Operator == "'" || op.Operator == "\"" {
				elem.Matrix = geom.Translate(0, -im.tracker.Text.Leading).Multiply(im.tracker.Text.LineMatrix)
			}
			run.Font = im.tracker.Text.FontName
			run.Size = im.tracker.Text.FontSize
		}

		im.pos++
		if box, ok := im.tracker.Apply(op); ok {
			elem.BBox = elem.BBox.Union(box)
			run.Text = append(run.Text, shownBytes(op)...)
		}
		run.Ops = append(run.Ops, op)
	}

	if !shown {
		run.Font = im.tracker.Text.FontName
		run.Size = im.tracker.Text.FontSize
	}
	return elem
}

func shownBytes(op content.Operation) []byte {
	var out []byte
	for _, operand := range op.Operands {
		switch v := operand.(type) {
		case content.String:
			out = append(out, v.Value...)
		case content.Array:
			for _, part := range v.Elements {
				if s, ok := part.(content.String); ok {
					out = append(out, s.Value...)
				}
			}
		}
	}
	return out
}

// path reads construction, clipping and painting operators. A path that is
// never painted is returned as a page object holding its operators.
func (im *importer) path() *graphics.Element {
	p := &graphics.Path{}
	matrix := im.tracker.CTM

	for im.more() {
		op := im.peek()
		class := content.Class(op.Operator)

		switch class {
		case content.ClassPathConstruct:
			p.Ops = append(p.Ops, im.take())
			continue
		case content.ClassClip:
			p.Clip = true
			p.Ops = append(p.Ops, im.take())
			continue
		case content.ClassPathPaint:
			im.pos++
			bbox, _ := im.tracker.Apply(op)
			p.Ops = append(p.Ops, op)
			p.Paint = op.Operator
			return &graphics.Element{BBox: bbox, Matrix: matrix, Payload: p}
		}
		break
	}

	return pageObject(p.Ops)
}

func (im *importer) xobject() *graphics.Element {
	op := im.take()
	name := op.Name(0)
	ops := []content.Operation{op}
	ctm := im.tracker.CTM

	info, found := im.res.XObject(name)
	if found && info.Subtype == "Image" {
		return &graphics.Element{
			BBox:    geom.NewRect(0, 0, 1, 1).Transform(ctm),
			Matrix:  ctm,
			Payload: &graphics.Image{Name: name, Ops: ops},
		}
	}

	bbox := geom.NewRect(0, 0, 1, 1).Transform(ctm)
	if found && !info.BBox.IsEmpty() {
		m := info.Matrix
		if m == (geom.Matrix{}) {
			m = geom.Identity()
		}
		bbox = info.BBox.Transform(m.Multiply(ctm))
	}
	return &graphics.Element{
		BBox:    bbox,
		Matrix:  ctm,
		Payload: &graphics.Form{Name: name, Ops: ops},
	}
}

func pageObject(ops []content.Operation) *graphics.Element {
	return &graphics.Element{
		Matrix:  geom.Identity(),
		Payload: &graphics.PageObject{Ops: ops},
	}
}
