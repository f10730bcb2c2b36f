package classify

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/lueurxax/assembly-questions-etl/internal/core/inference"
)

// Sentiment is a score in [-1, 1] with the model confidence in [0, 1].
type Sentiment struct {
	Score      float64
	Confidence float64
}

// SentimentAnalyzer scores the tone of a question.
type SentimentAnalyzer interface {
	AnalyzeSentiment(ctx context.Context, text string) Sentiment
}

// SentimentModel is the backend of ModelSentiment.
type SentimentModel interface {
	Sentiment(ctx context.Context, text string) (inference.SentimentPrediction, error)
}

// NeutralSentiment is used when no sentiment model is configured.
type NeutralSentiment struct{}

func (NeutralSentiment) AnalyzeSentiment(context.Context, string) Sentiment {
	return Sentiment{Score: 0, Confidence: neutralSentimentConfidence}
}

type ModelSentiment struct {
	model  SentimentModel
	logger *zerolog.Logger
}

func NewModelSentiment(model SentimentModel, logger *zerolog.Logger) *ModelSentiment {
	return &ModelSentiment{model: model, logger: logger}
}

// AnalyzeSentiment sends the first 512 characters; a NEGATIVE label with
// probability p scores -p. Backend failures yield the neutral result.
func (m *ModelSentiment) AnalyzeSentiment(ctx context.Context, text string) Sentiment {
	pred, err := m.model.Sentiment(ctx, truncateRunes(text, sentimentMaxRunes))
	if err != nil {
		m.logger.Warn().Err(err).Msg("sentiment model failed, using neutral score")

		return NeutralSentiment{}.AnalyzeSentiment(ctx, text)
	}

	score := pred.Score
	if pred.Label == inference.SentimentNegative {
		score = -score
	}

	return Sentiment{Score: clamp(score, -maxScore, maxScore), Confidence: clamp(pred.Score, 0, maxScore)}
}

func truncateRunes(s string, limit int) string {
	count := 0

	for i := range s {
		if count == limit {
			return s[:i]
		}

		count++
	}

	return s
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}

	if v > hi {
		return hi
	}

	return v
}
