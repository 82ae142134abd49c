package graphics

import (
	"fmt"
	"strings"

	"github.com/a3tai/mcp-pdf-graphics/internal/pdf/content"
)

// MergeOption selects optional coalescing applied when elements are
// flattened back into a content stream.
type MergeOption uint8

const (
	MergeNone MergeOption = 0

	// MergeTextRuns emits adjacent text runs sharing font, size and
	// baseline inside one BT..ET object when the later run positions
	// itself absolutely with Tm.
	MergeTextRuns MergeOption = 1 << (iota - 1)
	// MergeBrackets drops empty containers and collapses a q..Q group
	// whose only child is another q..Q group.
	MergeBrackets

	MergeAll = MergeTextRuns | MergeBrackets
)

func (o MergeOption) String() string {
	if o == MergeNone {
		return "none"
	}
	var names []string
	if o&MergeTextRuns != 0 {
		names = append(names, "text")
	}
	if o&MergeBrackets != 0 {
		names = append(names, "brackets")
	}
	return strings.Join(names, ",")
}

// ParseMergeOption parses names such as "text", "brackets", "all" or "none"
func ParseMergeOption(names ...string) (MergeOption, error) {
	opt := MergeNone
	for _, name := range names {
		for _, part := range strings.Split(name, ",") {
			switch strings.ToLower(strings.TrimSpace(part)) {
			case "", "none":
			case "text":
				opt |= MergeTextRuns
			case "brackets":
				opt |= MergeBrackets
			case "all":
				opt |= MergeAll
			default:
				return MergeNone, fmt.Errorf("unknown merge option: %q", part)
			}
		}
	}
	return opt, nil
}

// Flatten regenerates the operators of elems in order. Annotation elements
// produce no operators. Elements are never modified.
func Flatten(elems []*Element, opt MergeOption) []content.Operation {
	var ops []content.Operation
	return flattenInto(ops, elems, opt)
}

func flattenInto(ops []content.Operation, elems []*Element, opt MergeOption) []content.Operation {
	for i := 0; i < len(elems); i++ {
		e := elems[i]
		ops = append(ops, e.State...)

		switch p := e.Payload.(type) {
		case *TextRun:
			ops = append(ops, content.Op("BT"))
			ops = append(ops, p.Ops...)
			if opt&MergeTextRuns != 0 {
				for i+1 < len(elems) && canMergeText(e, elems[i+1]) {
					i++
					ops = append(ops, elems[i].Payload.(*TextRun).Ops...)
				}
			}
			ops = append(ops, content.Op("ET"))
		case *Path:
			ops = append(ops, p.Ops...)
		case *Image:
			ops = append(ops, p.Ops...)
		case *Shading:
			ops = append(ops, p.Ops...)
		case *Form:
			ops = append(ops, p.Ops...)
		case *PageObject:
			ops = append(ops, p.Ops...)
		case *Container:
			ops = flattenContainer(ops, p, opt)
		case *Annotation:
		}
	}
	return ops
}

func flattenContainer(ops []content.Operation, c *Container, opt MergeOption) []content.Operation {
	if opt&MergeBrackets != 0 {
		for !c.Marked && len(c.Children) == 1 && len(c.Trailer) == 0 {
			inner, ok := c.Children[0].Payload.(*Container)
			if !ok || inner.Marked || len(c.Children[0].State) > 0 {
				break
			}
			c = inner
		}
		if len(c.Children) == 0 && len(c.Trailer) == 0 {
			return ops
		}
	}

	ops = append(ops, c.Open)
	ops = flattenInto(ops, c.Children, opt)
	ops = append(ops, c.Trailer...)
	if c.Close.Operator == "" {
		// Unterminated at the end of the stream
		return ops
	}
	return append(ops, c.Close)
}

// canMergeText reports whether next can share the BT..ET object of prev
func canMergeText(prev, next *Element) bool {
	a, ok := prev.Payload.(*TextRun)
	if !ok {
		return false
	}
	b, ok := next.Payload.(*TextRun)
	if !ok || len(next.State) > 0 || len(b.Ops) == 0 || b.Ops[0].Operator != "Tm" {
		return false
	}
	if a.Font != b.Font || a.Size != b.Size {
		return false
	}
	pm, nm := prev.Matrix, next.Matrix
	return pm[0] == nm[0] && pm[1] == nm[1] && pm[2] == nm[2] && pm[3] == nm[3] && pm[5] == nm[5]
}
