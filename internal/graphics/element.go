package graphics

import (
	"fmt"

	"github.com/a3tai/mcp-pdf-graphics/internal/geom"
	"github.com/a3tai/mcp-pdf-graphics/internal/pdf/content"
)

// Element is one graphics object of a page or form. Identity is pointer
// identity: two distinct *Element values are different elements even when
// their contents are equal.
type Element struct {
	// BBox is the painted extent in the owner's coordinate space
	BBox geom.Rect
	// Matrix is the element's local transform: the CTM for images and
	// forms, the text matrix for text runs.
	Matrix geom.Matrix
	// State holds graphics state operators emitted just before the payload
	State []content.Operation

	Payload Payload
}

// Kind returns the element's kind tag, derived from its payload
func (e *Element) Kind() Kind {
	if e == nil || e.Payload == nil {
		return KindPage
	}
	return e.Payload.Kind()
}

func (e *Element) String() string {
	return fmt.Sprintf("%s %s", e.Kind(), e.BBox)
}

// Payload is the kind specific part of an element. The set of payloads is closed.
type Payload interface {
	Kind() Kind
	payload()
}

// TextRun is a BT..ET text object
type TextRun struct {
	Font string
	Size float64
	// Text is the concatenation of every shown string, undecoded
	Text []byte
	// Ops are the operators between BT and ET
	Ops []content.Operation
}

// Path is a constructed and painted path, optionally used as a clip
type Path struct {
	Paint string
	Clip  bool
	Ops   []content.Operation
}

// Image is an image XObject placement or an inline image
type Image struct {
	Name   string
	Inline bool
	Ops    []content.Operation
}

// Shading is an sh operation
type Shading struct {
	Name string
	Ops  []content.Operation
}

// Form is a form XObject placement
type Form struct {
	Name string
	Ops  []content.Operation
}

// Container is a q..Q group or a BMC/BDC..EMC marked-content sequence
type Container struct {
	Marked bool
	// Tag is the marked-content tag, empty for q..Q groups
	Tag      string
	Open     content.Operation
	Children []*Element
	// Trailer holds state operators after the last child
	Trailer []content.Operation
	// Close has an empty operator when the stream ended inside the group
	Close content.Operation
}

// Annotation is an entry of the page /Annots array. Its appearance is not
// part of the content stream.
type Annotation struct {
	Subtype string
	Name    string
	Ref     string
	// Handle is the store specific annotation object
	Handle any
}

// PageObject holds operators that belong to no other element, such as
// trailing state operators or unbalanced Q and EMC.
type PageObject struct {
	Ops []content.Operation
}

func (*TextRun) Kind() Kind    { return KindText }
func (*Path) Kind() Kind       { return KindPath }
func (*Image) Kind() Kind      { return KindImage }
func (*Shading) Kind() Kind    { return KindShading }
func (*Form) Kind() Kind       { return KindForm }
func (*Container) Kind() Kind  { return KindContainer }
func (*Annotation) Kind() Kind { return KindAnnotation }
func (*PageObject) Kind() Kind { return KindPage }

func (*TextRun) payload()    {}
func (*Path) payload()       {}
func (*Image) payload()      {}
func (*Shading) payload()    {}
func (*Form) payload()       {}
func (*Container) payload()  {}
func (*Annotation) payload() {}
func (*PageObject) payload() {}

// NewSaveGroup returns a q..Q container holding children. Its bounding box
// is the union of the children's boxes.
func NewSaveGroup(children ...*Element) *Element {
	var bbox geom.Rect
	for _, c := range children {
		bbox = bbox.Union(c.BBox)
	}
	return &Element{
		BBox:   bbox,
		Matrix: geom.Identity(),
		Payload: &Container{
			Open:     content.Op("q"),
			Children: children,
			Close:    content.Op("Q"),
		},
	}
}

// NewRectPath returns a filled rectangle in the given RGB colour. The path
// is wrapped in a q..Q group so the colour does not leak into later elements.
func NewRectPath(r geom.Rect, rgb [3]float64) *Element {
	path := &Element{
		BBox:   r,
		Matrix: geom.Identity(),
		State:  []content.Operation{content.Op("rg", content.Real(rgb[0]), content.Real(rgb[1]), content.Real(rgb[2]))},
		Payload: &Path{
			Paint: "f",
			Ops: []content.Operation{
				content.Op("re", content.Real(r.LLX), content.Real(r.LLY), content.Real(r.Width()), content.Real(r.Height())),
				content.Op("f"),
			},
		},
	}
	return NewSaveGroup(path)
}

// NewTextRun returns a single line of text at (x, y) using a font resource
// name. The text box is estimated at half an em per byte.
func NewTextRun(font string, size, x, y float64, text string) *Element {
	tm := geom.Translate(x, y)
	width := float64(len(text)) * size * 0.5
	run := &Element{
		BBox:   geom.Rect{LLX: x, LLY: y - 0.2*size, URX: x + width, URY: y + 0.8*size},
		Matrix: tm,
		Payload: &TextRun{
			Font: font,
			Size: size,
			Text: []byte(text),
			Ops: []content.Operation{
				content.Op("Tf", content.Name{Value: font}, content.Real(size)),
				content.Op("Tm", content.Int(1), content.Int(0), content.Int(0), content.Int(1), content.Real(x), content.Real(y)),
				content.Op("Tj", content.String{Value: []byte(text)}),
			},
		},
	}
	return NewSaveGroup(run)
}

// NewFormPlacement paints the named XObject through matrix m. kind must be
// KindImage or KindForm.
func NewFormPlacement(name string, m geom.Matrix, kind Kind) (*Element, error) {
	ops := []content.Operation{content.Op("Do", content.Name{Value: name})}

	var payload Payload
	switch kind {
	case KindImage:
		payload = &Image{Name: name, Ops: ops}
	case KindForm:
		payload = &Form{Name: name, Ops: ops}
	default:
		return nil, fmt.Errorf("cannot place XObject %s as %s", name, kind)
	}

	placed := &Element{
		BBox:   geom.NewRect(0, 0, 1, 1).Transform(m),
		Matrix: m,
		State: []content.Operation{content.Op("cm",
			content.Real(m[0]), content.Real(m[1]), content.Real(m[2]),
			content.Real(m[3]), content.Real(m[4]), content.Real(m[5]))},
		Payload: payload,
	}
	return NewSaveGroup(placed), nil
}
