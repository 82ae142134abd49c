package security

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	pdferrors "github.com/a3tai/mcp-pdf-graphics/internal/pdf/errors"
)

// PathValidator confines document reads and writes to one directory
type PathValidator struct {
	root        string
	fs          afero.Fs
	maxFileSize int64
}

// NewPathValidator creates a validator for root on fs. A maxFileSize of
// zero disables the size check.
func NewPathValidator(fs afero.Fs, root string, maxFileSize int64) (*PathValidator, error) {
	if root == "" {
		return nil, fmt.Errorf("configured directory cannot be empty")
	}

	if _, ok := fs.(*afero.OsFs); ok {
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve configured directory: %w", err)
		}
		root = abs
	}

	return &PathValidator{root: filepath.Clean(root), fs: fs, maxFileSize: maxFileSize}, nil
}

// Root returns the configured directory
func (v *PathValidator) Root() string {
	return v.root
}

func restricted(msg, path string) error {
	return pdferrors.NewPDFError(pdferrors.ErrorTypeSecurityRestriction, msg).WithFile(path)
}

// Resolve maps path to a clean path inside the configured directory.
// Relative paths are taken relative to it.
func (v *PathValidator) Resolve(path string) (string, error) {
	path = strings.ReplaceAll(path, "\x00", "")
	if path == "" {
		return "", pdferrors.NewPDFError(pdferrors.ErrorTypeInvalidArgument, "path cannot be empty")
	}

	if !filepath.IsAbs(path) {
		path = filepath.Join(v.root, path)
	}
	clean := filepath.Clean(path)
	if !v.within(clean) {
		return "", restricted("path is outside configured directory", path)
	}

	// Symlinks only exist on the OS filesystem
	if _, ok := v.fs.(*afero.OsFs); ok {
		realRoot := v.root
		if resolved, err := filepath.EvalSymlinks(v.root); err == nil {
			realRoot = resolved
		}
		if resolved, err := filepath.EvalSymlinks(clean); err == nil && !isWithin(realRoot, resolved) && !v.within(resolved) {
			return "", restricted("path resolves outside configured directory", path)
		}
	}

	return clean, nil
}

func (v *PathValidator) within(path string) bool {
	return isWithin(v.root, path)
}

func isWithin(dir, path string) bool {
	if path == dir {
		return true
	}
	prefix := dir
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	return strings.HasPrefix(path, prefix)
}

func hasPDFExtension(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".pdf")
}

// ValidateInput resolves a document to open. It must be an existing PDF
// file within the size limit.
func (v *PathValidator) ValidateInput(path string) (string, error) {
	resolved, err := v.Resolve(path)
	if err != nil {
		return "", err
	}
	if !hasPDFExtension(resolved) {
		return "", pdferrors.NewPDFError(pdferrors.ErrorTypeInvalidArgument, "not a PDF file").WithFile(resolved)
	}

	info, err := v.fs.Stat(resolved)
	if err != nil {
		return "", pdferrors.WrapError(pdferrors.ErrorTypeInvalidDocument, "cannot access file", err).WithFile(resolved)
	}
	if info.IsDir() {
		return "", pdferrors.NewPDFError(pdferrors.ErrorTypeInvalidArgument, "path is a directory").WithFile(resolved)
	}
	if v.maxFileSize > 0 && info.Size() > v.maxFileSize {
		return "", pdferrors.NewPDFErrorWithContext(pdferrors.ErrorTypeInvalidArgument, "file too large",
			fmt.Sprintf("%d bytes exceeds limit of %d", info.Size(), v.maxFileSize)).WithFile(resolved)
	}
	return resolved, nil
}

// ValidateOutput resolves a save target. Its directory must exist and the
// target must not be a directory.
func (v *PathValidator) ValidateOutput(path string) (string, error) {
	resolved, err := v.Resolve(path)
	if err != nil {
		return "", err
	}
	if !hasPDFExtension(resolved) {
		return "", pdferrors.NewPDFError(pdferrors.ErrorTypeInvalidArgument, "output must have a .pdf extension").WithFile(resolved)
	}

	dir, err := v.fs.Stat(filepath.Dir(resolved))
	if err != nil || !dir.IsDir() {
		return "", pdferrors.WrapError(pdferrors.ErrorTypeInvalidArgument, "output directory does not exist", err).WithFile(resolved)
	}
	if info, err := v.fs.Stat(resolved); err == nil && info.IsDir() {
		return "", pdferrors.NewPDFError(pdferrors.ErrorTypeInvalidArgument, "path is a directory").WithFile(resolved)
	}
	return resolved, nil
}
