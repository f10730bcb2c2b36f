package classify

import "regexp"

// Origin of the theme label, persisted as part of the processing version.
const (
	SourceRules = "rules"
	SourceModel = "model"
)

const (
	sentimentMaxRunes          = 512
	neutralSentimentConfidence = 0.5

	urgencyStep = 0.2
	maxScore    = 1.0

	complexityLengthNorm    = 1000.0
	complexityPeriodNorm    = 10.0
	complexityTechnicalNorm = 10.0
	complexityLegalRefNorm  = 5.0

	// Subdivision matches need a similarity strictly above this, in percent.
	fuzzyThreshold = 80.0
)

const (
	LogFieldTheme  = "theme"
	LogFieldSource = "source"
)

var legalReference = regexp.MustCompile(`article\s+\d+|loi\s+n°|décret\s+n°`)
