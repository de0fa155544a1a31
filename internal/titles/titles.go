// Package titles turns raw game titles into a canonical comparable form.
//
// Two titles are loosely equivalent when their normalized forms are equal:
// case, trademark and currency symbols, the ':' and '-' punctuation, and the
// standalone word "the" are ignored. There is no similarity scoring, so
// "Hades" and "Hades II" stay distinct.
package titles

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	stripper = strings.NewReplacer(
		"™", "", "©", "", "®", "",
		"$", "", "€", "", "£", "", "¥", "",
		"•", "", "…", "",
		":", "", "-", "",
	)
	article = regexp.MustCompile(`\bthe\b`)
)

// Normalize returns the canonical form of title. It never fails and
// Normalize(Normalize(s)) == Normalize(s) for every s.
func Normalize(title string) string {
	if title == "" {
		return ""
	}
	s := stripper.Replace(title)
	s = cases.Lower(language.Und).String(s)
	s = article.ReplaceAllString(s, " ")
	return strings.Join(strings.Fields(s), " ")
}

// LooselyEquivalent reports whether a and b normalize to the same form.
func LooselyEquivalent(a, b string) bool {
	return Normalize(a) == Normalize(b)
}
