// Package textx holds small text helpers shared by the HTTP boundary and the
// document extraction path.
package textx

import (
	"strings"
)

// SanitizeText strips control characters from free-form input before it is
// stored or injected into a prompt. Tabs, newlines, and carriage returns
// survive because resume and note structure depends on them; everything else
// below 0x20, plus DEL, is dropped. Leading and trailing whitespace is
// trimmed.
func SanitizeText(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '\n' || r == '\r' || r == '\t':
			b.WriteRune(r)
		case r >= 32 && r != 127:
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}
