package normalize

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/lueurxax/assembly-questions-etl/internal/core/domain"
)

// Analysis holds lexical features of a cleaned text.
type Analysis struct {
	Keywords  []string
	Entities  domain.Entities
	WordCount int
	Language  string
}

// Analyze extracts keywords, named entities, the word count and the
// language of an already cleaned text.
func (n *Normalizer) Analyze(text string) Analysis {
	return Analysis{
		Keywords:  Keywords(text),
		Entities:  n.entities(text),
		WordCount: WordCount(text),
		Language:  DetectLanguage(text),
	}
}

// WordCount counts whitespace-separated words.
func WordCount(text string) int {
	return len(strings.Fields(text))
}

// DetectLanguage returns LanguageFrench when French function words make up
// more than a tenth of the words.
func DetectLanguage(text string) string {
	words := strings.Fields(cases.Lower(language.French).String(text))
	if len(words) == 0 {
		return LanguageOther
	}

	hits := 0

	for _, w := range words {
		if _, ok := frenchIndicators[w]; ok {
			hits++
		}
	}

	if float64(hits) > float64(len(words))*frenchIndicatorRatio {
		return LanguageFrench
	}

	return LanguageOther
}

// Keywords ranks non-stopword tokens of at least three letters by frequency,
// ties broken alphabetically.
func Keywords(text string) []string {
	tokens := strings.FieldsFunc(cases.Lower(language.French).String(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-'
	})

	counts := make(map[string]int)

	for _, tok := range tokens {
		tok = strings.Trim(tok, "-")
		if utf8.RuneCountInString(tok) < minKeywordRunes || isNumeric(tok) {
			continue
		}

		if _, stop := stopWords[tok]; stop {
			continue
		}

		counts[tok]++
	}

	keywords := make([]string, 0, len(counts))
	for k := range counts {
		keywords = append(keywords, k)
	}

	sort.Slice(keywords, func(i, j int) bool {
		if counts[keywords[i]] != counts[keywords[j]] {
			return counts[keywords[i]] > counts[keywords[j]]
		}

		return keywords[i] < keywords[j]
	})

	if len(keywords) > maxKeywords {
		keywords = keywords[:maxKeywords]
	}

	return keywords
}

func isNumeric(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}

	return true
}

func (n *Normalizer) entities(text string) domain.Entities {
	ents := domain.Entities{
		Persons:       []string{},
		Places:        []string{},
		Organizations: []string{},
		Dates:         []string{},
		Amounts:       []string{},
	}

	for _, m := range personPattern.FindAllStringSubmatch(text, -1) {
		ents.Persons = appendUnique(ents.Persons, m[1])
	}

	lower := " " + strings.ToLower(text) + " "
	for _, place := range n.places {
		if strings.Contains(lower, " "+strings.ToLower(place)+" ") {
			ents.Places = appendUnique(ents.Places, place)
		}
	}

	for _, m := range orgPattern.FindAllString(text, -1) {
		ents.Organizations = appendUnique(ents.Organizations, m)
	}

	for _, m := range datePattern.FindAllString(text, -1) {
		ents.Dates = appendUnique(ents.Dates, collapseSpaces(m))
	}

	for _, m := range amountPattern.FindAllString(text, -1) {
		ents.Amounts = appendUnique(ents.Amounts, collapseSpaces(m))
	}

	return ents
}

func appendUnique(list []string, v string) []string {
	v = strings.TrimSpace(v)
	if v == "" {
		return list
	}

	for _, existing := range list {
		if existing == v {
			return list
		}
	}

	return append(list, v)
}
