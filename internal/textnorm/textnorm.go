// Package textnorm canonicalizes raw text ahead of pattern matching. All
// functions are pure.
package textnorm

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

var dashReplacer = strings.NewReplacer(
	"–", "-", // en dash
	"—", "-", // em dash
	"−", "-", // minus sign
)

// Dashes maps the Unicode dash variants to a plain hyphen.
func Dashes(s string) string {
	return dashReplacer.Replace(s)
}

// CollapseLines folds a multi-line body onto a single line, collapsing every
// whitespace run to one space. Field extraction is line-oriented and must not
// go through this; only the service-selection path does.
func CollapseLines(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Selection prepares a body for service selection: line breaks collapsed,
// dash variants normalized.
func Selection(s string) string {
	return Dashes(CollapseLines(s))
}

// NFC applies Unicode canonical composition. Property names arriving from the
// record store may be composed differently than configured literals.
func NFC(s string) string {
	return norm.NFC.String(s)
}

// Key reduces a property name to a comparison key: NFC-composed, lowercased,
// all whitespace removed. Container schemas spell the same property with
// varying case and spacing.
func Key(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(NFC(s)), ""))
}
