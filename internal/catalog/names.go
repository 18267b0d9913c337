package catalog

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// normalizeName trims surrounding whitespace and applies Unicode NFC so
// composed and decomposed spellings of an identifier compare equal.
func normalizeName(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}
