package pdf

import (
	"fmt"

	"github.com/a3tai/mcp-pdf-graphics/internal/geom"
	"github.com/a3tai/mcp-pdf-graphics/internal/graphics"
	"github.com/a3tai/mcp-pdf-graphics/internal/pdf/textcheck"
)

func rectArray(r geom.Rect) [4]float64 {
	return [4]float64{r.LLX, r.LLY, r.URX, r.URY}
}

// describe summarises an element for clients
func describe(p graphics.Position, e *graphics.Element) GraphicInfo {
	info := GraphicInfo{
		Position:       p.String(),
		Index:          p.Index(),
		Kind:           e.Kind().String(),
		BBox:           rectArray(e.BBox),
		Matrix:         e.Matrix,
		StateOperators: len(e.State),
	}

	switch pl := e.Payload.(type) {
	case *graphics.TextRun:
		info.Font = pl.Font
		info.FontSize = pl.Size
		info.Text = textcheck.Decode(pl.Text)
		info.Summary = fmt.Sprintf("text %q in /%s %g", info.Text, pl.Font, pl.Size)
	case *graphics.Path:
		info.Summary = fmt.Sprintf("path painted with %s", pl.Paint)
		if pl.Clip {
			info.Summary += ", clipping"
		}
	case *graphics.Image:
		info.Name = pl.Name
		if pl.Inline {
			info.Summary = "inline image"
		} else {
			info.Summary = fmt.Sprintf("image XObject /%s", pl.Name)
		}
	case *graphics.Shading:
		info.Name = pl.Name
		info.Summary = fmt.Sprintf("shading /%s", pl.Name)
	case *graphics.Form:
		info.Name = pl.Name
		info.Summary = fmt.Sprintf("form XObject /%s", pl.Name)
	case *graphics.Container:
		info.Tag = pl.Tag
		info.Children = len(pl.Children)
		if pl.Marked {
			info.Summary = fmt.Sprintf("marked content /%s with %d children", pl.Tag, len(pl.Children))
		} else {
			info.Summary = fmt.Sprintf("q/Q group with %d children", len(pl.Children))
		}
	case *graphics.Annotation:
		info.Name = pl.Name
		info.Subtype = pl.Subtype
		info.Summary = fmt.Sprintf("%s annotation", pl.Subtype)
		if pl.Ref != "" {
			info.Summary += " " + pl.Ref
		}
	case *graphics.PageObject:
		info.Summary = fmt.Sprintf("%d page level operators", len(pl.Ops))
	default:
		info.Summary = e.String()
	}
	return info
}
