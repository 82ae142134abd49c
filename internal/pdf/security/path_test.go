package security

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pdferrors "github.com/a3tai/mcp-pdf-graphics/internal/pdf/errors"
)

func memValidator(t *testing.T) *PathValidator {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/data/sub", 0o755))
	require.NoError(t, afero.WriteFile(fs, "/data/a.pdf", make([]byte, 10), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/data/big.pdf", make([]byte, 100), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/data/notes.txt", nil, 0o644))
	require.NoError(t, fs.MkdirAll("/data/dir.pdf", 0o755))

	v, err := NewPathValidator(fs, "/data", 50)
	require.NoError(t, err)
	return v
}

func TestNewPathValidator(t *testing.T) {
	_, err := NewPathValidator(afero.NewMemMapFs(), "", 0)
	assert.Error(t, err)

	v, err := NewPathValidator(afero.NewMemMapFs(), "/data/../data/", 0)
	require.NoError(t, err)
	assert.Equal(t, "/data", v.Root())
}

func TestPathValidator_Resolve(t *testing.T) {
	v := memValidator(t)

	tests := []struct {
		name string
		path string
		want string
		kind pdferrors.ErrorType
	}{
		{name: "relative", path: "a.pdf", want: "/data/a.pdf"},
		{name: "absolute", path: "/data/sub/x.pdf", want: "/data/sub/x.pdf"},
		{name: "root itself", path: "/data", want: "/data"},
		{name: "null bytes stripped", path: "a\x00.pdf", want: "/data/a.pdf"},
		{name: "empty", path: "", kind: pdferrors.ErrorTypeInvalidArgument},
		{name: "traversal", path: "../etc/passwd", kind: pdferrors.ErrorTypeSecurityRestriction},
		{name: "sibling prefix", path: "/database/a.pdf", kind: pdferrors.ErrorTypeSecurityRestriction},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := v.Resolve(tt.path)
			if tt.kind != pdferrors.ErrorTypeUnknown {
				assert.True(t, pdferrors.IsType(err, tt.kind), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPathValidator_ValidateInput(t *testing.T) {
	v := memValidator(t)

	got, err := v.ValidateInput("a.pdf")
	require.NoError(t, err)
	assert.Equal(t, "/data/a.pdf", got)

	tests := map[string]pdferrors.ErrorType{
		"missing.pdf": pdferrors.ErrorTypeInvalidDocument,
		"notes.txt":   pdferrors.ErrorTypeInvalidArgument,
		"big.pdf":     pdferrors.ErrorTypeInvalidArgument,
		"dir.pdf":     pdferrors.ErrorTypeInvalidArgument,
		"/tmp/x.pdf":  pdferrors.ErrorTypeSecurityRestriction,
	}
	for path, kind := range tests {
		t.Run(path, func(t *testing.T) {
			_, err := v.ValidateInput(path)
			assert.True(t, pdferrors.IsType(err, kind), "got %v", err)
		})
	}
}

func TestPathValidator_ValidateOutput(t *testing.T) {
	v := memValidator(t)

	got, err := v.ValidateOutput("sub/new.PDF")
	require.NoError(t, err)
	assert.Equal(t, "/data/sub/new.PDF", got)

	_, err = v.ValidateOutput("a.pdf")
	assert.NoError(t, err, "overwriting an existing file is allowed")

	tests := map[string]pdferrors.ErrorType{
		"nodir/new.pdf": pdferrors.ErrorTypeInvalidArgument,
		"out.txt":       pdferrors.ErrorTypeInvalidArgument,
		"dir.pdf":       pdferrors.ErrorTypeInvalidArgument,
		"../out.pdf":    pdferrors.ErrorTypeSecurityRestriction,
	}
	for path, kind := range tests {
		t.Run(path, func(t *testing.T) {
			_, err := v.ValidateOutput(path)
			assert.True(t, pdferrors.IsType(err, kind), "got %v", err)
		})
	}
}

func TestPathValidator_Symlinks(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	target := filepath.Join(outside, "secret.pdf")
	require.NoError(t, os.WriteFile(target, []byte("%PDF"), 0o644))

	link := filepath.Join(root, "link.pdf")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}
	require.NoError(t, os.WriteFile(filepath.Join(root, "ok.pdf"), []byte("%PDF"), 0o644))

	v, err := NewPathValidator(afero.NewOsFs(), root, 0)
	require.NoError(t, err)

	_, err = v.ValidateInput("link.pdf")
	assert.True(t, pdferrors.IsType(err, pdferrors.ErrorTypeSecurityRestriction), "got %v", err)

	_, err = v.ValidateInput("ok.pdf")
	assert.NoError(t, err)
}
