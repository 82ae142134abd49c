package security

import (
	"testing"

	"github.com/stretchr/testify/assert"

	pdferrors "github.com/a3tai/mcp-pdf-graphics/internal/pdf/errors"
)

func TestNewPermissions(t *testing.T) {
	tests := []struct {
		name   string
		perms  int32
		want   Permissions
		denied []string
	}{
		{
			name:  "all granted",
			perms: -1,
			want:  Permissions{true, true, true, true, true, true, true, true},
		},
		{
			name:   "print only",
			perms:  -8000 | 0x04, // 0xFFFFE0C0 plus print
			want:   Permissions{Print: true},
			denied: []string{"modify", "copy", "annotate", "fill_forms", "extract", "assemble", "print_high_quality"},
		},
		{
			name:   "no modify",
			perms:  -1 &^ 0x08,
			want:   Permissions{true, false, true, true, true, true, true, true},
			denied: []string{"modify"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewPermissions(tt.perms)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.denied, got.Denied())
		})
	}
}

func TestPermissions_String(t *testing.T) {
	assert.Equal(t, "none", Permissions{}.String())
	assert.Equal(t, "print,annotate", Permissions{Print: true, Annotate: true}.String())
	assert.Equal(t, NewPermissions(-1), NewFullPermissions())
}

func TestCheckEditable(t *testing.T) {
	assert.NoError(t, CheckEditable(NewFullPermissions(), false))
	assert.NoError(t, CheckEditable(Permissions{Annotate: true}, true))

	err := CheckEditable(Permissions{Annotate: true}, false)
	assert.True(t, pdferrors.IsType(err, pdferrors.ErrorTypeSecurityRestriction))
	assert.Contains(t, err.Error(), "modify")
}
