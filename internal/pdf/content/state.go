package content

import (
	"github.com/a3tai/mcp-pdf-graphics/internal/geom"
)

// defaultGlyphWidth is the advance used for every glyph, in thousandths of
// an em, when no font metrics are consulted.
const defaultGlyphWidth = 500.0

// TextState holds the text parameters of the graphics state
type TextState struct {
	FontName    string
	FontSize    float64
	CharSpacing float64
	WordSpacing float64
	HScale      float64 // horizontal scaling as a fraction, 1 is 100%
	Leading     float64
	Rise        float64

	Matrix     geom.Matrix
	LineMatrix geom.Matrix
}

// State is the subset of the PDF graphics state needed to place marks on the page
type State struct {
	CTM       geom.Matrix
	LineWidth float64
	Text      TextState
}

// NewState returns the initial graphics state of a page
func NewState() State {
	return State{
		CTM:       geom.Identity(),
		LineWidth: 1,
		Text: TextState{
			HScale:     1,
			Matrix:     geom.Identity(),
			LineMatrix: geom.Identity(),
		},
	}
}

// Tracker replays operations against a graphics state and reports the
// device space extent of every marking operation.
type Tracker struct {
	State
	stack []State

	path     []geom.Point
	clipNext bool
}

// NewTracker creates a tracker starting from the initial graphics state
func NewTracker() *Tracker {
	return &Tracker{State: NewState()}
}

// Depth returns the number of saved graphics states
func (t *Tracker) Depth() int {
	return len(t.stack)
}

// Apply updates the state with op. When op paints something the returned
// rectangle is its bounding box in page space and ok is true.
func (t *Tracker) Apply(op Operation) (bbox geom.Rect, ok bool) {
	switch op.Operator {
	case "q":
		t.stack = append(t.stack, t.State)
	case "Q":
		// Unbalanced Q is ignored
		if n := len(t.stack); n > 0 {
			t.State = t.stack[n-1]
			t.stack = t.stack[:n-1]
		}
	case "cm":
		if len(op.Operands) == 6 {
			t.CTM = operandMatrix(op).Multiply(t.CTM)
		}
	case "w":
		t.LineWidth = op.Number(0)

	case "BT":
		t.Text.Matrix = geom.Identity()
		t.Text.LineMatrix = geom.Identity()
	case "Tf":
		t.Text.FontName = op.Name(0)
		t.Text.FontSize = op.Number(1)
	case "Tc":
		t.Text.CharSpacing = op.Number(0)
	case "Tw":
		t.Text.WordSpacing = op.Number(0)
	case "Tz":
		t.Text.HScale = op.Number(0) / 100
	case "TL":
		t.Text.Leading = op.Number(0)
	case "Ts":
		t.Text.Rise = op.Number(0)
	case "Td":
		t.moveText(op.Number(0), op.Number(1))
	case "TD":
		t.Text.Leading = -op.Number(1)
		t.moveText(op.Number(0), op.Number(1))
	case "Tm":
		if len(op.Operands) == 6 {
			t.Text.LineMatrix = operandMatrix(op)
			t.Text.Matrix = t.Text.LineMatrix
		}
	case "T*":
		t.moveText(0, -t.Text.Leading)
	case "Tj":
		if s, isString := firstString(op.Operands); isString {
			return t.showText([]Object{s}), true
		}
	case "TJ":
		if len(op.Operands) == 1 {
			if arr, isArray := op.Operands[0].(Array); isArray {
				return t.showText(arr.Elements), true
			}
		}
	case "'":
		t.moveText(0, -t.Text.Leading)
		if s, isString := firstString(op.Operands); isString {
			return t.showText([]Object{s}), true
		}
	case "\"":
		if len(op.Operands) == 3 {
			t.Text.WordSpacing = op.Number(0)
			t.Text.CharSpacing = op.Number(1)
			t.moveText(0, -t.Text.Leading)
			return t.showText(op.Operands[2:]), true
		}

	case "m", "l":
		t.addPoints(op.Number(0), op.Number(1))
	case "c":
		t.addPoints(op.Number(0), op.Number(1), op.Number(2), op.Number(3), op.Number(4), op.Number(5))
	case "v", "y":
		t.addPoints(op.Number(0), op.Number(1), op.Number(2), op.Number(3))
	case "re":
		x, y, w, h := op.Number(0), op.Number(1), op.Number(2), op.Number(3)
		t.addPoints(x, y, x+w, y, x+w, y+h, x, y+h)
	case "W", "W*":
		t.clipNext = true
	case "S", "s", "f", "F", "f*", "B", "B*", "b", "b*", "n":
		return t.paintPath(op.Operator)

	case "Do", "BI":
		return t.UnitSquare(), true
	}

	return geom.Rect{}, false
}

// UnitSquare returns the unit square mapped through the CTM, which is
// where images and XObjects are painted.
func (t *Tracker) UnitSquare() geom.Rect {
	return geom.NewRect(0, 0, 1, 1).Transform(t.CTM)
}

// PendingPath reports whether path construction operators have been seen
// since the last painting operator.
func (t *Tracker) PendingPath() bool {
	return len(t.path) > 0
}

func (t *Tracker) moveText(tx, ty float64) {
	t.Text.LineMatrix = geom.Translate(tx, ty).Multiply(t.Text.LineMatrix)
	t.Text.Matrix = t.Text.LineMatrix
}

func (t *Tracker) addPoints(coords ...float64) {
	for i := 0; i+1 < len(coords); i += 2 {
		t.path = append(t.path, t.CTM.Transform(geom.Point{X: coords[i], Y: coords[i+1]}))
	}
}

func (t *Tracker) paintPath(operator string) (geom.Rect, bool) {
	points := t.path
	t.path = nil
	t.clipNext = false

	if len(points) == 0 {
		return geom.Rect{}, false
	}

	bbox := geom.RectFromPoints(points...)
	switch operator {
	case "S", "s", "B", "B*", "b", "b*":
		half := t.LineWidth / 2
		bbox = geom.Rect{LLX: bbox.LLX - half, LLY: bbox.LLY - half, URX: bbox.URX + half, URY: bbox.URY + half}
	}
	return bbox, true
}

// showText advances the text matrix over the shown strings and returns
// the box they cover, from the descender to the ascender of the font size.
func (t *Tracker) showText(parts []Object) geom.Rect {
	ts := &t.Text
	start := ts.Matrix
	width := 0.0

	for _, part := range parts {
		switch v := part.(type) {
		case String:
			for _, b := range v.Value {
				advance := defaultGlyphWidth/1000*ts.FontSize + ts.CharSpacing
				if b == ' ' {
					advance += ts.WordSpacing
				}
				width += advance * ts.HScale
			}
		case Number:
			width -= v.Value / 1000 * ts.FontSize * ts.HScale
		}
	}

	ts.Matrix = geom.Translate(width, 0).Multiply(ts.Matrix)

	box := geom.Rect{
		LLX: 0,
		LLY: ts.Rise - 0.2*ts.FontSize,
		URX: width,
		URY: ts.Rise + 0.8*ts.FontSize,
	}
	return box.Transform(start.Multiply(t.CTM))
}

func operandMatrix(op Operation) geom.Matrix {
	return geom.Matrix{op.Number(0), op.Number(1), op.Number(2), op.Number(3), op.Number(4), op.Number(5)}
}

func firstString(operands []Object) (String, bool) {
	if len(operands) == 0 {
		return String{}, false
	}
	s, ok := operands[len(operands)-1].(String)
	return s, ok
}
