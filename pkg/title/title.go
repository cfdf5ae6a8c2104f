// Package title normalizes display titles scraped from HTML so that the same
// series spelled "SALAH ET FATI" and "salah et fati" maps to one identity.
package title

import (
	"html"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// Normalize decodes HTML entities, composes the string to NFC, collapses
// whitespace and title-cases every word.
// Returns "" when nothing printable remains.
func Normalize(s string) string {
	s = html.UnescapeString(s)
	s = norm.NFC.String(s)
	s = strings.Join(strings.FieldsFunc(s, unicode.IsSpace), " ")
	if s == "" {
		return ""
	}
	// cases.Caser keeps state; one per call keeps Normalize goroutine-safe.
	return cases.Title(language.Und).String(strings.ToLower(s))
}

// FromSlug turns a URL slug such as "australias-open" into "Australias Open".
func FromSlug(slug string) string {
	return Normalize(strings.NewReplacer("-", " ", "_", " ").Replace(slug))
}

// OrDefault returns the normalized title, or def when normalization leaves
// nothing behind. def itself is returned untouched.
func OrDefault(s, def string) string {
	if n := Normalize(s); n != "" {
		return n
	}
	return def
}
