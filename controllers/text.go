package controllers

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// removeDiacritics strips combining marks so "João" matches "joao".
func removeDiacritics(s string) string {
	t := norm.NFD.String(s)
	var b strings.Builder
	for _, r := range t {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// searchKey lowercases s and drops spaces and accents.
func searchKey(s string) string {
	return removeDiacritics(strings.ToLower(strings.ReplaceAll(s, " ", "")))
}
