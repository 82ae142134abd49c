package page

import (
	"context"
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/a3tai/mcp-pdf-graphics/internal/geom"
	"github.com/a3tai/mcp-pdf-graphics/internal/graphics"
	"github.com/a3tai/mcp-pdf-graphics/internal/pdf/content"
	pdferrors "github.com/a3tai/mcp-pdf-graphics/internal/pdf/errors"
)

// PageStore backs a sequence with a page: its content stream and its
// /Annots array. Annotation elements follow the content elements on load.
type PageStore struct {
	doc    *Document
	pageNr int
}

// PageStore returns the store of a page, numbered from 1
func (d *Document) PageStore(pageNr int) (*PageStore, error) {
	if err := d.checkPage(pageNr); err != nil {
		return nil, err
	}
	return &PageStore{doc: d, pageNr: pageNr}, nil
}

// PageNumber returns the page the store is bound to
func (s *PageStore) PageNumber() int {
	return s.pageNr
}

func (s *PageStore) Load(ctx context.Context) ([]*graphics.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	info, err := s.doc.page(s.pageNr)
	if err != nil {
		return nil, err
	}

	var data []byte
	if obj, found := info.dict.Find("Contents"); found {
		data, err = s.doc.decodeContents(obj)
		if err != nil {
			return nil, pdferrors.WrapError(pdferrors.ErrorTypeMalformedPage, "failed to read page contents", err).WithPage(s.pageNr)
		}
	}

	ops, err := content.Parse(data)
	if err != nil {
		return nil, pdferrors.WrapError(pdferrors.ErrorTypeMalformedContent, "failed to parse content stream", err).WithPage(s.pageNr)
	}

	elems := Import(ops, resolver{doc: s.doc, resources: info.resources}, info.mediaBox)
	annots, err := s.loadAnnotations(info.dict)
	if err != nil {
		return nil, err
	}

	s.doc.logger.Printf("page %d: imported %d operators into %d elements and %d annotations",
		s.pageNr, len(ops), len(elems), len(annots))
	return append(elems, annots...), nil
}

func (s *PageStore) loadAnnotations(dict types.Dict) ([]*graphics.Element, error) {
	obj, found := dict.Find("Annots")
	if !found {
		return nil, nil
	}
	arr, err := s.doc.ctx.DereferenceArray(obj)
	if err != nil {
		return nil, pdferrors.WrapError(pdferrors.ErrorTypeMalformedPage, "invalid /Annots", err).WithPage(s.pageNr)
	}

	elems := make([]*graphics.Element, 0, len(arr))
	for _, entry := range arr {
		annot := &graphics.Annotation{Handle: entry}
		elem := &graphics.Element{Matrix: geom.Identity(), Payload: annot}

		if ref, ok := entry.(types.IndirectRef); ok {
			annot.Ref = fmt.Sprintf("%d %d R", ref.ObjectNumber.Value(), ref.GenerationNumber.Value())
		}

		ad, err := s.doc.ctx.DereferenceDict(entry)
		if err == nil && ad != nil {
			if subtype := ad.NameEntry("Subtype"); subtype != nil {
				annot.Subtype = *subtype
			}
			if nm, found := ad.Find("NM"); found {
				if name, err := s.doc.ctx.DereferenceStringOrHexLiteral(nm, model.V10, nil); err == nil {
					annot.Name = name
				}
			}
			if r, found := ad.Find("Rect"); found {
				elem.BBox, _ = s.doc.rect(r)
			}
		}
		elems = append(elems, elem)
	}
	return elems, nil
}

func (s *PageStore) Save(ctx context.Context, elems []*graphics.Element, opt graphics.MergeOption) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	info, err := s.doc.page(s.pageNr)
	if err != nil {
		return err
	}

	var annots types.Array
	for _, e := range elems {
		if a, ok := e.Payload.(*graphics.Annotation); ok {
			obj, ok := a.Handle.(types.Object)
			if !ok || obj == nil {
				return pdferrors.NewPDFErrorWithContext(pdferrors.ErrorTypeStoreFailure,
					"annotation has no PDF object", a.Subtype).WithPage(s.pageNr)
			}
			annots = append(annots, obj)
		}
	}

	data := content.Bytes(graphics.Flatten(elems, opt))
	ref, err := s.doc.newContentStream(data)
	if err != nil {
		return pdferrors.WrapError(pdferrors.ErrorTypeStoreFailure, "failed to write content stream", err).WithPage(s.pageNr)
	}

	info.dict.Update("Contents", *ref)
	if len(annots) > 0 {
		info.dict.Update("Annots", annots)
	} else {
		info.dict.Delete("Annots")
	}

	s.doc.logger.Printf("page %d: committed %d elements (%d bytes, merge=%s)", s.pageNr, len(elems), len(data), opt)
	return nil
}

// FormStore backs a sequence with the content stream of a form XObject
type FormStore struct {
	doc    *Document
	pageNr int
	name   string
	ref    types.IndirectRef
}

// FormStore returns the store of the form XObject resource name on a page
func (d *Document) FormStore(pageNr int, name string) (*FormStore, error) {
	info, err := d.page(pageNr)
	if err != nil {
		return nil, err
	}

	notFound := pdferrors.NewPDFErrorWithContext(pdferrors.ErrorTypeResourceNotFound,
		"form XObject not found", name).WithPage(pageNr)
	if info.resources == nil {
		return nil, notFound
	}
	obj, found := info.resources.Find("XObject")
	if !found {
		return nil, notFound
	}
	xobjects, err := d.ctx.DereferenceDict(obj)
	if err != nil || xobjects == nil {
		return nil, notFound
	}
	entry, found := xobjects.Find(name)
	if !found {
		return nil, notFound
	}
	ref, ok := entry.(types.IndirectRef)
	if !ok {
		return nil, notFound
	}

	store := &FormStore{doc: d, pageNr: pageNr, name: name, ref: ref}
	sd, err := store.stream()
	if err != nil {
		return nil, err
	}
	if subtype := sd.NameEntry("Subtype"); subtype == nil || *subtype != "Form" {
		return nil, pdferrors.NewPDFErrorWithContext(pdferrors.ErrorTypeInvalidArgument,
			"XObject is not a form", name).WithPage(pageNr)
	}
	return store, nil
}

// Name returns the XObject resource name
func (s *FormStore) Name() string {
	return s.name
}

func (s *FormStore) stream() (*types.StreamDict, error) {
	sd, _, err := s.doc.ctx.DereferenceStreamDict(s.ref)
	if err != nil || sd == nil {
		return nil, pdferrors.WrapError(pdferrors.ErrorTypeResourceNotFound, "failed to read form XObject", err).
			WithContext(s.name).WithPage(s.pageNr)
	}
	return sd, nil
}

func (s *FormStore) Load(ctx context.Context) ([]*graphics.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sd, err := s.stream()
	if err != nil {
		return nil, err
	}
	if err := sd.Decode(); err != nil {
		return nil, pdferrors.WrapError(pdferrors.ErrorTypeMalformedContent, "failed to decode form XObject", err).WithContext(s.name)
	}

	ops, err := content.Parse(sd.Content)
	if err != nil {
		return nil, pdferrors.WrapError(pdferrors.ErrorTypeMalformedContent, "failed to parse form content", err).WithContext(s.name)
	}

	var res types.Dict
	if obj, found := sd.Find("Resources"); found {
		res, _ = s.doc.ctx.DereferenceDict(obj)
	}
	if res == nil {
		// Forms without resources use the page's
		if info, err := s.doc.page(s.pageNr); err == nil {
			res = info.resources
		}
	}

	var bounds geom.Rect
	if obj, found := sd.Find("BBox"); found {
		bounds, _ = s.doc.rect(obj)
	}

	return Import(ops, resolver{doc: s.doc, resources: res}, bounds), nil
}

func (s *FormStore) Save(ctx context.Context, elems []*graphics.Element, opt graphics.MergeOption) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	sd, err := s.stream()
	if err != nil {
		return err
	}
	entry, found := s.doc.ctx.FindTableEntryForIndRef(&s.ref)
	if !found || entry == nil {
		return pdferrors.NewPDFErrorWithContext(pdferrors.ErrorTypeStoreFailure, "form XObject vanished", s.name)
	}

	updated := *sd
	updated.Content = content.Bytes(graphics.Flatten(elems, opt))
	updated.Raw = nil
	updated.FilterPipeline = []types.PDFFilter{{Name: "FlateDecode"}}
	updated.Update("Filter", types.Name("FlateDecode"))
	updated.Delete("DecodeParms")
	if err := updated.Encode(); err != nil {
		return pdferrors.WrapError(pdferrors.ErrorTypeStoreFailure, "failed to encode form XObject", err).WithContext(s.name)
	}

	entry.Object = updated
	s.doc.logger.Printf("form %s on page %d: committed %d elements", s.name, s.pageNr, len(elems))
	return nil
}
