// Package textcheck re-reads saved documents with an independent PDF
// reader to confirm that edited pages still carry the expected text.
package textcheck

import (
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/spf13/afero"

	pdferrors "github.com/a3tai/mcp-pdf-graphics/internal/pdf/errors"
)

// Result reports which expected strings occur on a page
type Result struct {
	Page    int      `json:"page"`
	Text    string   `json:"text"`
	Found   []string `json:"found"`
	Missing []string `json:"missing"`
}

// OK reports whether every expected string was found
func (r *Result) OK() bool {
	return len(r.Missing) == 0
}

// PageText returns the plain text of a page of the PDF at path
func PageText(fs afero.Fs, path string, pageNr int) (text string, err error) {
	file, err := fs.Open(path)
	if err != nil {
		return "", pdferrors.WrapError(pdferrors.ErrorTypeInvalidDocument, "failed to open file", err).WithFile(path)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return "", pdferrors.WrapError(pdferrors.ErrorTypeInvalidDocument, "failed to stat file", err).WithFile(path)
	}

	// The reader panics on some malformed streams
	defer func() {
		if r := recover(); r != nil {
			err = pdferrors.WrapError(pdferrors.ErrorTypeMalformedContent, "text extraction failed",
				fmt.Errorf("panic: %v", r)).WithFile(path).WithPage(pageNr)
		}
	}()

	reader, err := pdf.NewReader(file, info.Size())
	if err != nil {
		return "", pdferrors.WrapError(pdferrors.ErrorTypeInvalidDocument, "failed to read PDF", err).WithFile(path)
	}
	if pageNr < 1 || pageNr > reader.NumPage() {
		return "", pdferrors.NewPDFErrorWithContext(pdferrors.ErrorTypeInvalidArgument, "page number out of range",
			fmt.Sprintf("page %d of %d", pageNr, reader.NumPage())).WithFile(path)
	}

	page := reader.Page(pageNr)
	if page.V.IsNull() {
		return "", pdferrors.NewPDFError(pdferrors.ErrorTypeMalformedPage, "invalid page").WithFile(path).WithPage(pageNr)
	}

	text, err = page.GetPlainText(nil)
	if err != nil {
		return "", pdferrors.WrapError(pdferrors.ErrorTypeMalformedContent, "failed to extract text", err).WithFile(path).WithPage(pageNr)
	}
	return text, nil
}

// Verify extracts the text of a page and checks each expected string
// against it. Whitespace runs compare equal to a single space.
func Verify(fs afero.Fs, path string, pageNr int, expected []string) (*Result, error) {
	text, err := PageText(fs, path, pageNr)
	if err != nil {
		return nil, err
	}

	result := &Result{Page: pageNr, Text: text, Found: []string{}, Missing: []string{}}
	haystack := normalize(text)
	compact := strings.ReplaceAll(haystack, " ", "")
	for _, want := range expected {
		needle := normalize(want)
		if strings.Contains(haystack, needle) || strings.Contains(compact, strings.ReplaceAll(needle, " ", "")) {
			result.Found = append(result.Found, want)
		} else {
			result.Missing = append(result.Missing, want)
		}
	}
	return result, nil
}

func normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
