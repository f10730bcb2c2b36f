package classify

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/adrg/strutil/metrics"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// indel is Levenshtein without substitution: a replace costs a delete plus
// an insert.
var indel = &metrics.Levenshtein{CaseSensitive: true, InsertCost: 1, DeleteCost: 1, ReplaceCost: 2}

// Ratio is the normalized Indel similarity of a and b in percent:
// 100 * (1 - distance / (len(a) + len(b))), counted in runes.
func Ratio(a, b string) float64 {
	total := utf8.RuneCountInString(a) + utf8.RuneCountInString(b)
	if total == 0 {
		return 100
	}

	return 100 * (1 - float64(indel.Distance(a, b))/float64(total))
}

// removeAccents strips diacritical marks from a string.
func removeAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)

	return result
}

type subdivision struct {
	name  string
	key   string
	words int
}

func newSubdivisions(names []string) []subdivision {
	out := make([]subdivision, 0, len(names))

	for _, n := range names {
		key := removeAccents(fold(n))
		out = append(out, subdivision{name: n, key: key, words: len(strings.Fields(key))})
	}

	return out
}

// matchSubdivisions returns, in table order, every subdivision whose name is
// close enough to a window of as many consecutive tokens of text.
func matchSubdivisions(subdivisions []subdivision, text string) []string {
	tokens := strings.Fields(removeAccents(fold(text)))
	found := make([]string, 0)

	for _, sub := range subdivisions {
		if sub.words == 0 || sub.words > len(tokens) {
			continue
		}

		for i := 0; i+sub.words <= len(tokens); i++ {
			window := strings.Join(tokens[i:i+sub.words], " ")
			if Ratio(sub.key, window) > fuzzyThreshold {
				found = append(found, sub.name)

				break
			}
		}
	}

	return found
}
