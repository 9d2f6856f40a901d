package escpos

import (
	"fmt"
	"strings"

	"golang.org/x/text/encoding/charmap"
)

// CodePage is a printer character code table together with its host-side charmap
type CodePage struct {
	Name    string
	Number  byte // ESC t argument
	charmap *charmap.Charmap
}

// Code pages supported by most Epson-compatible printers
var (
	PC437   = CodePage{Name: "PC437", Number: 0, charmap: charmap.CodePage437}
	PC850   = CodePage{Name: "PC850", Number: 2, charmap: charmap.CodePage850}
	WPC1252 = CodePage{Name: "WPC1252", Number: 16, charmap: charmap.Windows1252}
	PC858   = CodePage{Name: "PC858", Number: 19, charmap: charmap.CodePage858}
)

var codePages = []CodePage{PC437, PC850, WPC1252, PC858}

// LookupCodePage finds a code page by name, case-insensitively
func LookupCodePage(name string) (CodePage, error) {
	for _, cp := range codePages {
		if strings.EqualFold(cp.Name, name) {
			return cp, nil
		}
	}
	return CodePage{}, fmt.Errorf("unsupported code page: %s", name)
}

// Encode transcodes s into the code page; runes outside it become '?'
func (cp CodePage) Encode(s string) []byte {
	out := make([]byte, 0, len(s))
	for _, r := range s {
		b, ok := cp.charmap.EncodeRune(r)
		if !ok {
			b = '?'
		}
		out = append(out, b)
	}
	return out
}
