// Package classify scores a question along several axes: theme, sentiment,
// urgency, complexity and the administrative subdivisions it mentions.
package classify

import (
	"context"
	"math"

	"github.com/rs/zerolog"

	"github.com/lueurxax/assembly-questions-etl/internal/core/rules"
	"github.com/lueurxax/assembly-questions-etl/internal/platform/observability"
)

// Result is the classification of one question.
type Result struct {
	Theme          string
	SecondaryTheme *string
	Sentiment      float64
	Urgency        float64
	Complexity     float64
	Subdivisions   []string
	Confidence     float64
	Source         string
}

// Classifier is safe for concurrent use. The theme and sentiment variants
// are fixed at construction.
type Classifier struct {
	theme          ThemeClassifier
	sentiment      SentimentAnalyzer
	urgencyPhrases *phraseSet
	technicalTerms *phraseSet
	subdivisions   []subdivision
	logger         *zerolog.Logger
}

// Option overrides a default variant.
type Option func(*Classifier)

// WithThemeClassifier replaces the rule-based theme classifier.
func WithThemeClassifier(tc ThemeClassifier) Option {
	return func(c *Classifier) {
		c.theme = tc
	}
}

// WithSentimentAnalyzer replaces the neutral sentiment analyzer.
func WithSentimentAnalyzer(sa SentimentAnalyzer) Option {
	return func(c *Classifier) {
		c.sentiment = sa
	}
}

// New builds a rule-based classifier unless options supply model-backed
// variants.
func New(tables rules.Tables, logger *zerolog.Logger, opts ...Option) *Classifier {
	c := &Classifier{
		theme:          NewRuleTheme(tables.Themes),
		sentiment:      NeutralSentiment{},
		urgencyPhrases: newPhraseSet(tables.UrgencyPhrases),
		technicalTerms: newPhraseSet(tables.TechnicalTerms),
		subdivisions:   newSubdivisions(tables.Subdivisions),
		logger:         logger,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Classify never fails: backend errors degrade to the rule-based or neutral
// result. Panics from rule evaluation are left to the caller.
func (c *Classifier) Classify(ctx context.Context, text, subject string) Result {
	combined := subject + " " + text

	theme := c.theme.ClassifyTheme(ctx, combined)
	sentiment := c.sentiment.AnalyzeSentiment(ctx, text)
	urgency := c.urgency(fold(combined))

	res := Result{
		Theme:          theme.Primary,
		SecondaryTheme: theme.Secondary,
		Sentiment:      sentiment.Score,
		Urgency:        urgency,
		Complexity:     c.complexity(text),
		Subdivisions:   matchSubdivisions(c.subdivisions, combined),
		Confidence:     math.Min(sentiment.Confidence, urgency),
		Source:         theme.Source,
	}

	observability.ThemeAssignments.WithLabelValues(res.Source).Inc()

	c.logger.Debug().
		Str(LogFieldTheme, res.Theme).
		Str(LogFieldSource, res.Source).
		Float64("urgency", res.Urgency).
		Msg("question classified")

	return res
}
