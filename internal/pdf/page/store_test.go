package page

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-pdf-graphics/internal/geom"
	"github.com/a3tai/mcp-pdf-graphics/internal/graphics"
	"github.com/a3tai/mcp-pdf-graphics/internal/pdf/content"
	pdferrors "github.com/a3tai/mcp-pdf-graphics/internal/pdf/errors"
	"github.com/a3tai/mcp-pdf-graphics/internal/pdf/pdftest"
)

const samplePage = `1 0 0 rg 10 10 100 50 re f
BT /F1 12 Tf 72 700 Td (Hello) Tj ET
q 50 0 0 50 300 300 cm /Im1 Do Q
/Fm1 Do`

func openSample(t *testing.T, fs afero.Fs) *Document {
	t.Helper()
	data := pdftest.Document(pdftest.Page{
		Content: samplePage,
		Form:    "0 0 50 50 re f 50 50 50 50 re f",
		Annots: []string{
			"/Subtype /Square /Rect [400 400 450 450] /NM (first)",
			"/Subtype /Text /Rect [10 700 30 720]",
		},
	}, pdftest.Page{Content: "0 0 1 1 re f"})
	require.NoError(t, afero.WriteFile(fs, "/docs/sample.pdf", data, 0o644))

	doc, err := Open(fs, "/docs/sample.pdf", nil)
	require.NoError(t, err)
	return doc
}

func TestDocument_Open(t *testing.T) {
	fs := afero.NewMemMapFs()
	doc := openSample(t, fs)
	assert.Equal(t, 2, doc.PageCount())

	perms, encrypted := doc.Permissions()
	assert.False(t, encrypted)
	assert.True(t, perms.Modify)

	box, err := doc.MediaBox(1)
	require.NoError(t, err)
	assert.Equal(t, geom.Rect{URX: 612, URY: 792}, box)

	fonts, err := doc.FontNames(1)
	require.NoError(t, err)
	assert.Equal(t, []string{"F1"}, fonts)

	xobjects, err := doc.XObjectNames(1)
	require.NoError(t, err)
	assert.Equal(t, []string{"Fm1", "Im1"}, xobjects)

	xo, err := doc.XObject(1, "Fm1")
	require.NoError(t, err)
	assert.Equal(t, "Form", xo.Subtype)
	assert.Equal(t, geom.Rect{URX: 100, URY: 100}, xo.BBox)
	_, err = doc.XObject(1, "Nope")
	assert.True(t, pdferrors.IsType(err, pdferrors.ErrorTypeResourceNotFound))

	_, err = doc.PageStore(3)
	assert.True(t, pdferrors.IsType(err, pdferrors.ErrorTypeInvalidArgument))

	_, err = Open(fs, "/docs/missing.pdf", nil)
	assert.True(t, pdferrors.IsType(err, pdferrors.ErrorTypeInvalidDocument))
}

func TestPageStore_Load(t *testing.T) {
	doc := openSample(t, afero.NewMemMapFs())
	store, err := doc.PageStore(1)
	require.NoError(t, err)

	seq, err := graphics.New(context.Background(), store)
	require.NoError(t, err)

	require.Equal(t, []graphics.Kind{
		graphics.KindPath, graphics.KindText, graphics.KindContainer, graphics.KindForm,
		graphics.KindAnnotation, graphics.KindAnnotation,
	}, kinds(seq.Elements()))

	img := seq.Elements()[2].Payload.(*graphics.Container).Children[0]
	assert.Equal(t, graphics.KindImage, img.Kind(), "Im1 resolves to an image XObject")

	first, err := seq.At(4)
	require.NoError(t, err)
	annot := first.Payload.(*graphics.Annotation)
	assert.Equal(t, "Square", annot.Subtype)
	assert.Equal(t, "first", annot.Name)
	assert.NotEmpty(t, annot.Ref)
	assert.Equal(t, geom.Rect{LLX: 400, LLY: 400, URX: 450, URY: 450}, first.BBox)
}

func TestPageStore_CommitAndReload(t *testing.T) {
	fs := afero.NewMemMapFs()
	doc := openSample(t, fs)
	store, err := doc.PageStore(1)
	require.NoError(t, err)

	ctx := context.Background()
	seq, err := graphics.New(ctx, store)
	require.NoError(t, err)

	// Drop the rectangle, put the square annotation last and add a new path
	first, _ := seq.First(graphics.Only(graphics.KindPath))
	require.True(t, seq.RemoveAt(first))
	square, _ := seq.First(graphics.Only(graphics.KindAnnotation))
	last, _ := seq.Last(graphics.AllKinds)
	_, err = seq.MoveAfter(square, last)
	require.NoError(t, err)
	_, err = seq.InsertAfter(graphics.NoPosition, graphics.NewRectPath(geom.NewRect(0, 0, 5, 5), [3]float64{0, 0, 1}))
	require.NoError(t, err)

	require.NoError(t, seq.Commit(ctx, graphics.MergeNone))
	require.NoError(t, doc.SaveAs("/docs/out.pdf"))

	saved, err := Open(fs, "/docs/out.pdf", nil)
	require.NoError(t, err)
	savedStore, err := saved.PageStore(1)
	require.NoError(t, err)
	reloaded, err := graphics.New(ctx, savedStore)
	require.NoError(t, err)

	elems := reloaded.Elements()
	require.Equal(t, []graphics.Kind{
		graphics.KindContainer, graphics.KindText, graphics.KindContainer, graphics.KindForm,
		graphics.KindAnnotation, graphics.KindAnnotation,
	}, kinds(elems))
	assert.Equal(t, "Text", elems[4].Payload.(*graphics.Annotation).Subtype)
	assert.Equal(t, "Square", elems[5].Payload.(*graphics.Annotation).Subtype)

	want := content.Bytes(graphics.Flatten(seq.Elements(), graphics.MergeNone))
	got := content.Bytes(graphics.Flatten(elems, graphics.MergeNone))
	assert.Equal(t, string(want), string(got))

	// The temporary file is renamed away
	entries, err := afero.ReadDir(fs, "/docs")
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestFormStore_EditForm(t *testing.T) {
	fs := afero.NewMemMapFs()
	doc := openSample(t, fs)
	ctx := context.Background()

	form, err := doc.FormStore(1, "Fm1")
	require.NoError(t, err)
	assert.Equal(t, "Fm1", form.Name())

	seq, err := graphics.New(ctx, form)
	require.NoError(t, err)
	require.Equal(t, 2, seq.Count())

	p, _ := seq.Last(graphics.AllKinds)
	require.True(t, seq.RemoveAt(p))
	require.NoError(t, seq.Commit(ctx, graphics.MergeNone))
	require.NoError(t, doc.SaveAs("/docs/sample.pdf"))

	saved, err := Open(fs, "/docs/sample.pdf", nil)
	require.NoError(t, err)
	savedForm, err := saved.FormStore(1, "Fm1")
	require.NoError(t, err)
	elems, err := savedForm.Load(ctx)
	require.NoError(t, err)
	require.Len(t, elems, 1)
	assert.Equal(t, geom.Rect{URX: 50, URY: 50}, elems[0].BBox)

	_, err = doc.FormStore(1, "Im1")
	assert.True(t, pdferrors.IsType(err, pdferrors.ErrorTypeInvalidArgument))
	_, err = doc.FormStore(1, "Nope")
	assert.True(t, pdferrors.IsType(err, pdferrors.ErrorTypeResourceNotFound))
}

func TestDocument_StandardFont(t *testing.T) {
	doc := openSample(t, afero.NewMemMapFs())

	name, add, err := doc.StandardFont(1, "Helvetica")
	require.NoError(t, err)
	assert.Equal(t, "F1", name, "existing Helvetica resource is reused")
	assert.Nil(t, add)

	name, add, err = doc.StandardFont(1, "Courier")
	require.NoError(t, err)
	assert.Equal(t, "GFx0", name)
	require.NotNil(t, add)

	fonts, err := doc.FontNames(1)
	require.NoError(t, err)
	assert.Equal(t, []string{"F1"}, fonts, "nothing is added before add runs")

	require.NoError(t, add())
	fonts, err = doc.FontNames(1)
	require.NoError(t, err)
	assert.Equal(t, []string{"F1", "GFx0"}, fonts)

	name, add, err = doc.StandardFont(1, "Courier")
	require.NoError(t, err)
	assert.Equal(t, "GFx0", name)
	assert.Nil(t, add)
}

func TestDocument_StandardFontKeepsSharedResources(t *testing.T) {
	fs := afero.NewMemMapFs()
	data := pdftest.Document(
		pdftest.Page{Content: "0 0 1 1 re f", Inherit: true},
		pdftest.Page{Content: "0 0 2 2 re f", Inherit: true},
	)
	require.NoError(t, afero.WriteFile(fs, "/docs/shared.pdf", data, 0o644))
	doc, err := Open(fs, "/docs/shared.pdf", nil)
	require.NoError(t, err)

	name, add, err := doc.StandardFont(1, "Times-Roman")
	require.NoError(t, err)
	require.NotNil(t, add)
	require.NoError(t, add())

	fonts, err := doc.FontNames(1)
	require.NoError(t, err)
	assert.Equal(t, []string{"F1", name}, fonts)

	fonts, err = doc.FontNames(2)
	require.NoError(t, err)
	assert.Equal(t, []string{"F1"}, fonts, "the sibling page keeps the inherited fonts")
	xobjects, err := doc.XObjectNames(1)
	require.NoError(t, err)
	assert.Equal(t, []string{"Im1"}, xobjects, "other resource categories are carried over")
}
