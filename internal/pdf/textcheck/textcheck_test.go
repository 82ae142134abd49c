package textcheck

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pdferrors "github.com/a3tai/mcp-pdf-graphics/internal/pdf/errors"
	"github.com/a3tai/mcp-pdf-graphics/internal/pdf/pdftest"
)

func writeSample(t *testing.T) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	data := pdftest.Document(
		pdftest.Page{Content: "BT /F1 12 Tf 72 700 Td (Hello) Tj ET"},
		pdftest.Page{Content: "0 0 10 10 re f"},
	)
	require.NoError(t, afero.WriteFile(fs, "/doc.pdf", data, 0o644))
	return fs
}

func TestVerify(t *testing.T) {
	fs := writeSample(t)

	result, err := Verify(fs, "/doc.pdf", 1, []string{"Hello", "Goodbye"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Hello"}, result.Found)
	assert.Equal(t, []string{"Goodbye"}, result.Missing)
	assert.False(t, result.OK())

	result, err = Verify(fs, "/doc.pdf", 2, nil)
	require.NoError(t, err)
	assert.True(t, result.OK())
	assert.Empty(t, result.Found)
}

func TestVerify_Errors(t *testing.T) {
	fs := writeSample(t)

	_, err := Verify(fs, "/doc.pdf", 3, []string{"x"})
	assert.True(t, pdferrors.IsType(err, pdferrors.ErrorTypeInvalidArgument))

	_, err = Verify(fs, "/missing.pdf", 1, nil)
	assert.True(t, pdferrors.IsType(err, pdferrors.ErrorTypeInvalidDocument))

	require.NoError(t, afero.WriteFile(fs, "/junk.pdf", []byte("not a pdf"), 0o644))
	_, err = Verify(fs, "/junk.pdf", 1, nil)
	assert.Error(t, err)
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want string
	}{
		{"ascii", []byte("Hello"), "Hello"},
		{"win ansi", []byte{'c', 'a', 'f', 0xE9, ' ', 0x80}, "café €"},
		{"utf16 bom", []byte{0xFE, 0xFF, 0x00, 'H', 0x00, 'i', 0x26, 0x3A}, "Hi☺"},
		{"empty", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Decode(tt.in))
		})
	}
}

func TestEncode(t *testing.T) {
	b, err := Encode("café €")
	require.NoError(t, err)
	assert.Equal(t, []byte{'c', 'a', 'f', 0xE9, ' ', 0x80}, b)
	assert.Equal(t, "café €", Decode(b))

	_, err = Encode("☺")
	assert.Error(t, err)
}
