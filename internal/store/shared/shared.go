package shared

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var folder = cases.Fold()

// Normalize prepares a user-typed term for a query string or cache key:
// NFC, trimmed, inner whitespace collapsed to single spaces.
func Normalize(s string) string {
	s = norm.NFC.String(s)
	return strings.Join(strings.Fields(s), " ")
}

// Fold is Normalize plus case folding and accent stripping, for
// case- and diacritic-insensitive matching ("Đắc Nhân Tâm" ~ "dac nhan tam").
func Fold(s string) string {
	t := transform.Chain(
		norm.NFKD,
		transform.RemoveFunc(func(r rune) bool { return unicode.Is(unicode.Mn, r) }),
		norm.NFC,
	)
	out, _, _ := transform.String(t, Normalize(s))
	out = strings.NewReplacer("đ", "d", "Đ", "D").Replace(out)
	return folder.String(out)
}

// Contains reports whether term matches inside s under Fold. An empty term matches.
func Contains(s, term string) bool {
	term = Fold(term)
	return term == "" || strings.Contains(Fold(s), term)
}

// Page converts an optional 1-based page number to its query form.
func Page(n int) string {
	if n < 1 {
		n = 1
	}
	return strconv.Itoa(n)
}

// Dedup normalizes and deduplicates under Fold, keeping first spellings.
func Dedup(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = Normalize(s)
		if s == "" {
			continue
		}
		k := Fold(s)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, s)
	}
	return out
}
