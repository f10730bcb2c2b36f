package classify

import (
	"math"
	"strings"
	"unicode/utf8"
)

// urgency adds 0.2 per distinct urgency phrase, capped at 1.
func (c *Classifier) urgency(folded string) float64 {
	hits := len(c.urgencyPhrases.distinct(folded))

	return math.Min(float64(hits)*urgencyStep, maxScore)
}

// complexity averages four capped factors: length, sentence count,
// technical vocabulary and explicit legal references.
func (c *Classifier) complexity(text string) float64 {
	folded := fold(text)

	length := math.Min(float64(utf8.RuneCountInString(text))/complexityLengthNorm, maxScore)
	periods := math.Min(float64(strings.Count(text, "."))/complexityPeriodNorm, maxScore)
	technical := math.Min(float64(len(c.technicalTerms.distinct(folded)))/complexityTechnicalNorm, maxScore)
	legal := math.Min(float64(len(legalReference.FindAllStringIndex(folded, -1)))/complexityLegalRefNorm, maxScore)

	return (length + periods + technical + legal) / 4
}
