// Package pdftest generates small, well-formed PDF files for tests.
package pdftest

import (
	"fmt"
	"strings"
)

// Page describes one page of a generated document. Every page has the
// font resource /F1 (Helvetica) and the 1x1 image resource /Im1.
type Page struct {
	// Content is the page content stream, stored uncompressed
	Content string
	// Form, when set, is the content of the form XObject /Fm1 with BBox [0 0 100 100]
	Form string
	// Annots are annotation dictionary bodies, e.g. "/Subtype /Square /Rect [0 0 10 10]"
	Annots []string
	// Inherit drops the page's own /Resources. The page inherits one
	// resource dictionary, shared by every such page, from the page tree
	// root. Form is ignored.
	Inherit bool
}

type builder struct {
	objects []string
}

func (b *builder) add(body string) int {
	b.objects = append(b.objects, body)
	return len(b.objects)
}

func (b *builder) set(num int, body string) {
	b.objects[num-1] = body
}

func stream(dict, data string) string {
	return fmt.Sprintf("<< %s /Length %d >>\nstream\n%s\nendstream", dict, len(data), data)
}

// Document returns the bytes of a PDF with the given pages, letter sized
func Document(pages ...Page) []byte {
	b := &builder{}
	catalog := b.add("")
	pagesObj := b.add("")
	font := b.add("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>")
	image := b.add(stream("/Type /XObject /Subtype /Image /Width 1 /Height 1 /ColorSpace /DeviceGray /BitsPerComponent 8", "\x80"))

	shared := 0
	kids := make([]string, 0, len(pages))
	for _, p := range pages {
		pageObj := b.add("")
		contents := b.add(stream("", p.Content))

		xobjects := fmt.Sprintf("/Im1 %d 0 R", image)
		if p.Form != "" && !p.Inherit {
			form := b.add(stream("/Type /XObject /Subtype /Form /BBox [0 0 100 100]", p.Form))
			xobjects += fmt.Sprintf(" /Fm1 %d 0 R", form)
		}

		var annots []string
		for _, a := range p.Annots {
			ref := b.add(fmt.Sprintf("<< /Type /Annot %s >>", a))
			annots = append(annots, fmt.Sprintf("%d 0 R", ref))
		}

		resources := fmt.Sprintf(" /Resources << /Font << /F1 %d 0 R >> /XObject << %s >> >>", font, xobjects)
		if p.Inherit {
			if shared == 0 {
				shared = b.add(fmt.Sprintf("<< /Font << /F1 %d 0 R >> /XObject << /Im1 %d 0 R >> >>", font, image))
			}
			resources = ""
		}
		dict := fmt.Sprintf("<< /Type /Page /Parent %d 0 R /MediaBox [0 0 612 792]%s /Contents %d 0 R",
			pagesObj, resources, contents)
		if len(annots) > 0 {
			dict += " /Annots [" + strings.Join(annots, " ") + "]"
		}
		b.set(pageObj, dict+" >>")
		kids = append(kids, fmt.Sprintf("%d 0 R", pageObj))
	}

	b.set(catalog, fmt.Sprintf("<< /Type /Catalog /Pages %d 0 R >>", pagesObj))
	inherited := ""
	if shared != 0 {
		inherited = fmt.Sprintf(" /Resources %d 0 R", shared)
	}
	b.set(pagesObj, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d%s >>", strings.Join(kids, " "), len(pages), inherited))

	return b.bytes(catalog)
}

func (b *builder) bytes(root int) []byte {
	var sb strings.Builder
	sb.WriteString("%PDF-1.4\n")

	offsets := make([]int, len(b.objects))
	for i, body := range b.objects {
		offsets[i] = sb.Len()
		fmt.Fprintf(&sb, "%d 0 obj\n%s\nendobj\n", i+1, body)
	}

	xref := sb.Len()
	fmt.Fprintf(&sb, "xref\n0 %d\n0000000000 65535 f \n", len(b.objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&sb, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&sb, "trailer\n<< /Size %d /Root %d 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(b.objects)+1, root, xref)

	return []byte(sb.String())
}
