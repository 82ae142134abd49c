package page

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"sort"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"github.com/spf13/afero"

	"github.com/a3tai/mcp-pdf-graphics/internal/geom"
	pdferrors "github.com/a3tai/mcp-pdf-graphics/internal/pdf/errors"
	"github.com/a3tai/mcp-pdf-graphics/internal/pdf/security"
)

// Document is a PDF opened for graphics editing. Pages and forms are edited
// through stores bound to the document; SaveAs writes every committed change.
type Document struct {
	Path string

	fs     afero.Fs
	ctx    *model.Context
	logger *log.Logger
}

// Open reads the PDF at path from fs
func Open(fs afero.Fs, path string, logger *log.Logger) (*Document, error) {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	file, err := fs.Open(path)
	if err != nil {
		return nil, pdferrors.WrapError(pdferrors.ErrorTypeInvalidDocument, "failed to open file", err).WithFile(path)
	}
	defer file.Close()

	return Read(file, path, fs, logger)
}

// Read parses a PDF from rs. path and fs are used by SaveAs.
func Read(rs io.ReadSeeker, path string, fs afero.Fs, logger *log.Logger) (*Document, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadContext(rs, conf)
	if err != nil {
		return nil, pdferrors.WrapError(pdferrors.ErrorTypeInvalidDocument, "failed to read PDF context", err).WithFile(path)
	}

	if err := ctx.EnsurePageCount(); err != nil {
		return nil, pdferrors.WrapError(pdferrors.ErrorTypeInvalidDocument, "failed to ensure page count", err).WithFile(path)
	}

	logger.Printf("opened %s: %d pages", path, ctx.PageCount)
	return &Document{Path: path, fs: fs, ctx: ctx, logger: logger}, nil
}

// PageCount returns the number of pages
func (d *Document) PageCount() int {
	return d.ctx.PageCount
}

func (d *Document) checkPage(pageNr int) error {
	if pageNr < 1 || pageNr > d.ctx.PageCount {
		return pdferrors.NewPDFErrorWithContext(pdferrors.ErrorTypeInvalidArgument,
			"page number out of range", fmt.Sprintf("page %d of %d", pageNr, d.ctx.PageCount)).WithPage(pageNr)
	}
	return nil
}

// Permissions returns the user permissions of the document and whether it
// is encrypted. Unencrypted documents permit everything.
func (d *Document) Permissions() (security.Permissions, bool) {
	if d.ctx.E == nil {
		return security.NewFullPermissions(), false
	}
	return security.NewPermissions(int32(d.ctx.E.P)), true
}

// pageInfo is the part of a page dictionary needed to import and commit its content
type pageInfo struct {
	dict      types.Dict
	resources types.Dict
	mediaBox  geom.Rect
}

func (d *Document) page(pageNr int) (*pageInfo, error) {
	if err := d.checkPage(pageNr); err != nil {
		return nil, err
	}

	dict, _, inherited, err := d.ctx.PageDict(pageNr, false)
	if err != nil {
		return nil, pdferrors.WrapError(pdferrors.ErrorTypeMalformedPage, "failed to read page dictionary", err).WithPage(pageNr)
	}
	if dict == nil {
		return nil, pdferrors.NewPDFError(pdferrors.ErrorTypeMalformedPage, "page dictionary missing").WithPage(pageNr)
	}

	info := &pageInfo{dict: dict, mediaBox: geom.Rect{URX: 612, URY: 792}}

	if obj, found := dict.Find("Resources"); found {
		if res, err := d.ctx.DereferenceDict(obj); err == nil {
			info.resources = res
		}
	}
	if inherited != nil {
		if info.resources == nil {
			info.resources = inherited.Resources
		}
		if mb := inherited.MediaBox; mb != nil {
			info.mediaBox = geom.Rect{LLX: mb.LL.X, LLY: mb.LL.Y, URX: mb.UR.X, URY: mb.UR.Y}
		}
	}
	if obj, found := dict.Find("MediaBox"); found {
		if box, ok := d.rect(obj); ok {
			info.mediaBox = box
		}
	}

	return info, nil
}

// MediaBox returns the media box of a page
func (d *Document) MediaBox(pageNr int) (geom.Rect, error) {
	info, err := d.page(pageNr)
	if err != nil {
		return geom.Rect{}, err
	}
	return info.mediaBox, nil
}

// rect reads a four number array
func (d *Document) rect(obj types.Object) (geom.Rect, bool) {
	arr, err := d.ctx.DereferenceArray(obj)
	if err != nil || len(arr) != 4 {
		return geom.Rect{}, false
	}
	var v [4]float64
	for i, o := range arr {
		f, err := d.ctx.DereferenceNumber(o)
		if err != nil {
			return geom.Rect{}, false
		}
		v[i] = f
	}
	return geom.RectFromPoints(geom.Point{X: v[0], Y: v[1]}, geom.Point{X: v[2], Y: v[3]}), true
}

func (d *Document) matrix(obj types.Object) (geom.Matrix, bool) {
	arr, err := d.ctx.DereferenceArray(obj)
	if err != nil || len(arr) != 6 {
		return geom.Matrix{}, false
	}
	var m geom.Matrix
	for i, o := range arr {
		f, err := d.ctx.DereferenceNumber(o)
		if err != nil {
			return geom.Matrix{}, false
		}
		m[i] = f
	}
	return m, true
}

// resourceNames lists the keys of one category of a resource dictionary
func (d *Document) resourceNames(resources types.Dict, category string) []string {
	if resources == nil {
		return nil
	}
	obj, found := resources.Find(category)
	if !found {
		return nil
	}
	dict, err := d.ctx.DereferenceDict(obj)
	if err != nil || dict == nil {
		return nil
	}
	names := make([]string, 0, len(dict))
	for name := range dict {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FontNames returns the font resource names available to a page
func (d *Document) FontNames(pageNr int) ([]string, error) {
	info, err := d.page(pageNr)
	if err != nil {
		return nil, err
	}
	return d.resourceNames(info.resources, "Font"), nil
}

// XObjectNames returns the XObject resource names available to a page
func (d *Document) XObjectNames(pageNr int) ([]string, error) {
	info, err := d.page(pageNr)
	if err != nil {
		return nil, err
	}
	return d.resourceNames(info.resources, "XObject"), nil
}

// StandardFont resolves a standard 14 font to a page font resource name.
// An existing entry for the same base font is reused and add is nil.
// Otherwise add registers the font under name; it writes page-local copies
// of /Resources and /Font, so pages sharing or inheriting those dictionaries
// are left untouched. Nothing changes until add is called.
func (d *Document) StandardFont(pageNr int, baseFont string) (name string, add func() error, err error) {
	info, err := d.page(pageNr)
	if err != nil {
		return "", nil, err
	}

	var fonts types.Dict
	if info.resources != nil {
		if obj, found := info.resources.Find("Font"); found {
			fonts, err = d.ctx.DereferenceDict(obj)
			if err != nil {
				return "", nil, pdferrors.WrapError(pdferrors.ErrorTypeMalformedPage, "invalid font resources", err).WithPage(pageNr)
			}
		}
	}

	for existing, obj := range fonts {
		fd, err := d.ctx.DereferenceDict(obj)
		if err != nil || fd == nil {
			continue
		}
		if base := fd.NameEntry("BaseFont"); base != nil && *base == baseFont {
			return existing, nil, nil
		}
	}

	name = "GFx0"
	for i := 1; fonts[name] != nil; i++ {
		name = fmt.Sprintf("GFx%d", i)
	}

	add = func() error {
		font := types.Dict(map[string]types.Object{
			"Type":     types.Name("Font"),
			"Subtype":  types.Name("Type1"),
			"BaseFont": types.Name(baseFont),
			"Encoding": types.Name("WinAnsiEncoding"),
		})
		ref, err := d.ctx.IndRefForNewObject(font)
		if err != nil {
			return pdferrors.WrapError(pdferrors.ErrorTypeStoreFailure, "failed to add font object", err).WithPage(pageNr)
		}

		ownFonts := types.NewDict()
		for k, v := range fonts {
			ownFonts[k] = v
		}
		ownFonts.Update(name, *ref)

		own := types.NewDict()
		for k, v := range info.resources {
			own[k] = v
		}
		own.Update("Font", ownFonts)
		info.dict.Update("Resources", own)

		d.logger.Printf("page %d: added font resource %s (%s)", pageNr, name, baseFont)
		return nil
	}
	return name, add, nil
}

// XObject looks up an XObject resource of a page
func (d *Document) XObject(pageNr int, name string) (XObjectInfo, error) {
	info, err := d.page(pageNr)
	if err != nil {
		return XObjectInfo{}, err
	}
	xo, ok := resolver{doc: d, resources: info.resources}.XObject(name)
	if !ok {
		return XObjectInfo{}, pdferrors.NewPDFErrorWithContext(pdferrors.ErrorTypeResourceNotFound,
			"XObject not found", name).WithPage(pageNr)
	}
	return xo, nil
}

// resolver resolves XObjects against a resource dictionary
type resolver struct {
	doc       *Document
	resources types.Dict
}

func (r resolver) XObject(name string) (XObjectInfo, bool) {
	if r.resources == nil {
		return XObjectInfo{}, false
	}
	obj, found := r.resources.Find("XObject")
	if !found {
		return XObjectInfo{}, false
	}
	xobjects, err := r.doc.ctx.DereferenceDict(obj)
	if err != nil || xobjects == nil {
		return XObjectInfo{}, false
	}
	entry, found := xobjects.Find(name)
	if !found {
		return XObjectInfo{}, false
	}
	sd, _, err := r.doc.ctx.DereferenceStreamDict(entry)
	if err != nil || sd == nil {
		return XObjectInfo{}, false
	}

	info := XObjectInfo{Matrix: geom.Identity()}
	if subtype := sd.NameEntry("Subtype"); subtype != nil {
		info.Subtype = *subtype
	}
	if obj, found := sd.Find("BBox"); found {
		info.BBox, _ = r.doc.rect(obj)
	}
	if obj, found := sd.Find("Matrix"); found {
		if m, ok := r.doc.matrix(obj); ok {
			info.Matrix = m
		}
	}
	return info, true
}

// decodeContents concatenates the decoded streams of a /Contents entry
func (d *Document) decodeContents(obj types.Object) ([]byte, error) {
	switch o := obj.(type) {
	case types.IndirectRef:
		deref, err := d.ctx.Dereference(o)
		if err != nil {
			return nil, fmt.Errorf("failed to dereference contents: %w", err)
		}
		return d.decodeContents(deref)

	case types.StreamDict:
		if err := o.Decode(); err != nil {
			return nil, fmt.Errorf("failed to decode stream: %w", err)
		}
		return o.Content, nil

	case types.Array:
		var buf bytes.Buffer
		for i, item := range o {
			data, err := d.decodeContents(item)
			if err != nil {
				return nil, fmt.Errorf("contents array item %d: %w", i, err)
			}
			buf.Write(data)
			// Streams are split at token boundaries only
			buf.WriteByte('\n')
		}
		return buf.Bytes(), nil

	case nil:
		return nil, nil

	default:
		return nil, fmt.Errorf("unexpected contents type %T", obj)
	}
}

// newContentStream stores data as a new Flate encoded stream object
func (d *Document) newContentStream(data []byte) (*types.IndirectRef, error) {
	sd, err := d.ctx.NewStreamDictForBuf(data)
	if err != nil {
		return nil, err
	}
	if err := sd.Encode(); err != nil {
		return nil, err
	}
	return d.ctx.IndRefForNewObject(*sd)
}

// SaveAs writes the document to path. The file is written to a temporary
// file in the same directory and renamed into place.
func (d *Document) SaveAs(path string) error {
	dir := filepath.Dir(path)
	tmp, err := afero.TempFile(d.fs, dir, ".pdfgraphics-*.tmp")
	if err != nil {
		return pdferrors.WrapError(pdferrors.ErrorTypeStoreFailure, "failed to create temporary file", err).WithFile(path)
	}
	tmpName := tmp.Name()

	if err := api.WriteContext(d.ctx, tmp); err != nil {
		tmp.Close()
		_ = d.fs.Remove(tmpName)
		return pdferrors.WrapError(pdferrors.ErrorTypeStoreFailure, "failed to write PDF", err).WithFile(path)
	}
	if err := tmp.Close(); err != nil {
		_ = d.fs.Remove(tmpName)
		return pdferrors.WrapError(pdferrors.ErrorTypeStoreFailure, "failed to flush PDF", err).WithFile(path)
	}
	if err := d.fs.Rename(tmpName, path); err != nil {
		_ = d.fs.Remove(tmpName)
		return pdferrors.WrapError(pdferrors.ErrorTypeStoreFailure, "failed to replace file", err).WithFile(path)
	}

	d.logger.Printf("saved %s", path)
	return nil
}
