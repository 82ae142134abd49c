package textcheck

import (
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// Decode turns the bytes of a shown PDF string into text for display.
// Strings with a UTF-16BE byte order mark are decoded as such; everything
// else is read as Windows-1252, the WinAnsiEncoding of simple fonts.
func Decode(b []byte) string {
	if len(b) >= 2 && b[0] == 0xFE && b[1] == 0xFF {
		out, err := unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder().Bytes(b)
		if err == nil {
			return string(out)
		}
	}

	out, err := charmap.Windows1252.NewDecoder().Bytes(b)
	if err != nil {
		return string(b)
	}
	return string(out)
}

// Encode converts text to Windows-1252 bytes for a WinAnsiEncoding font.
// Characters outside the code page are an error.
func Encode(s string) ([]byte, error) {
	return charmap.Windows1252.NewEncoder().Bytes([]byte(s))
}
