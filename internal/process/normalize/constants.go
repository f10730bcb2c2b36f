package normalize

import (
	"regexp"
	"strings"
)

const (
	LanguageFrench = "fr"
	LanguageOther  = "autre"

	// A text is French when function words exceed this share of its words.
	frenchIndicatorRatio = 0.1

	maxKeywords     = 20
	minKeywordRunes = 3

	imgSelector = "img"
)

// Phrases that introduce an official answer inside a question document.
var responseMarkers = []string{
	"Réponse du gouvernement",
	"Réponse du ministre",
	"Réponse de l'administration",
	"Réponse officielle",
}

var (
	markerPattern   = regexp.MustCompile(markerExpr(responseMarkers))
	responseTail    = regexp.MustCompile(`(?:` + markerExpr(responseMarkers) + `)\s*:?\s*`)
	blankLine       = regexp.MustCompile(`\n\s*\n`)
	journalRef      = regexp.MustCompile(`(J\.O\.|Journal Officiel).*?\d+`)
	questionRef     = regexp.MustCompile(`Question [nN]°\s*\d+`)
	disallowedChars = regexp.MustCompile(`[^\p{L}\p{N}_\s.,;:!?()-]`)
	whitespaceRun   = regexp.MustCompile(`\s+`)
)

// markerExpr builds a case-insensitive alternation that tolerates runs of
// whitespace, typographic apostrophes and an unaccented "reponse".
func markerExpr(markers []string) string {
	alts := make([]string, 0, len(markers))

	for _, m := range markers {
		words := strings.Fields(m)
		for i, w := range words {
			w = regexp.QuoteMeta(w)
			w = strings.ReplaceAll(w, "'", `['’]\s*`)
			w = strings.Replace(w, "Réponse", "R[eé]ponse", 1)
			words[i] = w
		}

		alts = append(alts, strings.Join(words, `\s+`))
	}

	return `(?i)(?:` + strings.Join(alts, "|") + `)`
}

var frenchIndicators = map[string]struct{}{
	"le": {}, "la": {}, "les": {}, "de": {}, "du": {}, "des": {}, "et": {}, "est": {},
	"pour": {}, "dans": {}, "sur": {}, "avec": {}, "par": {},
}

var stopWords = map[string]struct{}{
	"les": {}, "des": {}, "est": {}, "pour": {}, "dans": {}, "sur": {}, "avec": {}, "par": {},
	"une": {}, "que": {}, "qui": {}, "pas": {}, "plus": {}, "ces": {}, "son": {}, "ses": {},
	"aux": {}, "leur": {}, "leurs": {}, "mais": {}, "ont": {}, "sont": {}, "été": {}, "être": {},
	"cette": {}, "cet": {}, "comme": {}, "tout": {}, "tous": {}, "toutes": {}, "elle": {},
	"elles": {}, "ils": {}, "nous": {}, "vous": {}, "notre": {}, "votre": {}, "quel": {},
	"quelle": {}, "quels": {}, "quelles": {}, "afin": {}, "ainsi": {}, "donc": {}, "car": {},
	"sans": {}, "sous": {}, "entre": {}, "depuis": {}, "lors": {}, "fait": {}, "faire": {},
	"peut": {}, "doit": {}, "avoir": {}, "très": {}, "aussi": {}, "même": {}, "dont": {},
	"où": {}, "non": {}, "oui": {}, "quand": {}, "alors": {}, "monsieur": {}, "madame": {},
	"ministre": {}, "question": {}, "certains": {}, "certaines": {}, "selon": {}, "vers": {},
	"chez": {}, "encore": {}, "déjà": {}, "souhaite": {}, "savoir": {}, "mesures": {},
}

var (
	personPattern = regexp.MustCompile(`(?:^|\s)(?:M\.|Mme|Monsieur|Madame)\s+((?:\p{Lu}[\p{L}'-]+)(?:\s+\p{Lu}[\p{L}'-]+)*)`)
	orgPattern    = regexp.MustCompile(`\p{Lu}{3,}`)
	datePattern   = regexp.MustCompile(`(?i)\d{1,2}(?:er)?\s+(?:janvier|février|mars|avril|mai|juin|juillet|août|septembre|octobre|novembre|décembre)\s+\d{4}|\d{1,2}/\d{1,2}/\d{4}`)
	amountPattern = regexp.MustCompile(`(?i)\d[\d\s.,]*\s*(?:f\s?cfa|francs?|milliards?|millions?|euros?)`)
)
