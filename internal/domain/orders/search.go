package orders

import (
	"slices"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold lowercases s, trims it and strips diacritics so "São" and "sao" compare equal.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(strings.TrimSpace(out))
}

// ContainsFolded reports whether query occurs in s, ignoring case and accents.
// An empty query matches everything.
func ContainsFolded(s, query string) bool {
	q := Fold(query)
	if q == "" {
		return true
	}
	return strings.Contains(Fold(s), q)
}

// SearchMunicipios returns the names in Municipios matching query, sorted by folded name.
func SearchMunicipios(query string) []string {
	return SearchNames(Municipios, query)
}

// SearchNames filters names by accent-insensitive substring and sorts by folded form.
func SearchNames(names []string, query string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if ContainsFolded(n, query) {
			out = append(out, n)
		}
	}
	slices.SortStableFunc(out, func(a, b string) int {
		return strings.Compare(Fold(a), Fold(b))
	})
	return out
}

// IsKnownMunicipio reports whether name is in Municipios.
func IsKnownMunicipio(name string) bool {
	return slices.Contains(Municipios, name)
}

// Municipality is a backend municipality record.
type Municipality struct {
	ID              string `json:"id"`
	Nome            string `json:"nome"`
	NumeroLideranca string `json:"numero_lideranca"`
}

// FilterMunicipalities keeps records whose name matches query, ignoring accents.
func FilterMunicipalities(list []Municipality, query string) []Municipality {
	if Fold(query) == "" {
		return list
	}
	out := make([]Municipality, 0, len(list))
	for _, m := range list {
		if ContainsFolded(m.Nome, query) {
			out = append(out, m)
		}
	}
	return out
}
