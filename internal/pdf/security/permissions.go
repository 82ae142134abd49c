package security

import (
	"fmt"
	"strings"

	pdferrors "github.com/a3tai/mcp-pdf-graphics/internal/pdf/errors"
)

// Permissions are the user access flags from the P entry of an encryption dictionary
type Permissions struct {
	Print            bool // Bit 3
	Modify           bool // Bit 4
	Copy             bool // Bit 5
	Annotate         bool // Bit 6
	FillForms        bool // Bit 9
	Extract          bool // Bit 10
	Assemble         bool // Bit 11
	PrintHighQuality bool // Bit 12
}

// NewPermissions decodes a P value
func NewPermissions(perms int32) Permissions {
	return Permissions{
		Print:            perms&0x04 != 0,
		Modify:           perms&0x08 != 0,
		Copy:             perms&0x10 != 0,
		Annotate:         perms&0x20 != 0,
		FillForms:        perms&0x200 != 0,
		Extract:          perms&0x400 != 0,
		Assemble:         perms&0x800 != 0,
		PrintHighQuality: perms&0x1000 != 0,
	}
}

// NewFullPermissions grants everything, as for an unencrypted document
func NewFullPermissions() Permissions {
	return NewPermissions(-1)
}

func (p Permissions) flags() []struct {
	name    string
	allowed bool
} {
	return []struct {
		name    string
		allowed bool
	}{
		{"print", p.Print},
		{"modify", p.Modify},
		{"copy", p.Copy},
		{"annotate", p.Annotate},
		{"fill_forms", p.FillForms},
		{"extract", p.Extract},
		{"assemble", p.Assemble},
		{"print_high_quality", p.PrintHighQuality},
	}
}

// Denied lists the operations the document does not permit
func (p Permissions) Denied() []string {
	var denied []string
	for _, f := range p.flags() {
		if !f.allowed {
			denied = append(denied, f.name)
		}
	}
	return denied
}

func (p Permissions) String() string {
	var allowed []string
	for _, f := range p.flags() {
		if f.allowed {
			allowed = append(allowed, f.name)
		}
	}
	if len(allowed) == 0 {
		return "none"
	}
	return strings.Join(allowed, ",")
}

// CheckEditable rejects documents whose permissions forbid rewriting page
// content. Annotation-only edits need Annotate; everything else needs Modify.
func CheckEditable(p Permissions, annotationsOnly bool) error {
	if p.Modify || (annotationsOnly && p.Annotate) {
		return nil
	}
	return pdferrors.NewPDFErrorWithContext(pdferrors.ErrorTypeSecurityRestriction,
		"document permissions forbid editing", fmt.Sprintf("denied: %s", strings.Join(p.Denied(), ",")))
}
