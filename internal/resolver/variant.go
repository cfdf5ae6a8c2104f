package resolver

import "strings"

// Variant is one rendition of a stream, e.g. an HLS source named "High".
type Variant struct {
	Name string `json:"Name"`
	Link string `json:"Link"`
}

// DefaultPreference picks the highest quality rendition feeds expose.
var DefaultPreference = []string{"High"}

// SelectVariant walks preference in order and returns the first variant
// whose name matches (case-insensitive). It reports false when no preferred
// name is present.
func SelectVariant(variants []Variant, preference []string) (Variant, bool) {
	for _, want := range preference {
		for _, v := range variants {
			if strings.EqualFold(strings.TrimSpace(v.Name), want) {
				return v, true
			}
		}
	}
	return Variant{}, false
}
