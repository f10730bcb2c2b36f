package classify

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lueurxax/assembly-questions-etl/internal/core/inference"
	"github.com/lueurxax/assembly-questions-etl/internal/core/rules"
)

func newClassifier(opts ...Option) *Classifier {
	logger := zerolog.Nop()

	return New(rules.Default(), &logger, opts...)
}

func TestClassifyBudgetQuestion(t *testing.T) {
	res := newClassifier().Classify(context.Background(), "Pourquoi le budget agricole est-il réduit ?", "")

	assert.Equal(t, "agriculture", res.Theme)
	require.NotNil(t, res.SecondaryTheme)
	assert.Equal(t, "economie", *res.SecondaryTheme)
	assert.InDelta(t, 0.0, res.Urgency, 1e-9)
	assert.GreaterOrEqual(t, res.Complexity, 0.0)
	assert.InDelta(t, 0.0, res.Sentiment, 1e-9)
	assert.InDelta(t, 0.0, res.Confidence, 1e-9)
	assert.Equal(t, SourceRules, res.Source)
}

func TestClassifyFallbackTheme(t *testing.T) {
	c := newClassifier()

	first := c.Classify(context.Background(), "Xyz qwv.", "Zzz")
	second := c.Classify(context.Background(), "Xyz qwv.", "Zzz")

	assert.Equal(t, rules.FallbackTheme, first.Theme)
	assert.Nil(t, first.SecondaryTheme)
	assert.Equal(t, first, second)
}

func TestClassifyThemeTieUsesTableOrder(t *testing.T) {
	res := newClassifier().Classify(context.Background(), "L'école et l'hôpital", "")

	assert.Equal(t, "sante", res.Theme)
	require.NotNil(t, res.SecondaryTheme)
	assert.Equal(t, "education", *res.SecondaryTheme)
}

func TestClassifyThemeCountsDistinctKeywords(t *testing.T) {
	res := newClassifier().Classify(context.Background(), "prison prison prison prison", "Les écoles et l'université")

	assert.Equal(t, "education", res.Theme)
}

func TestClassifyThemeUsesSubject(t *testing.T) {
	res := newClassifier().Classify(context.Background(), "Quand ?", "Coupures d'électricité à Pikine")

	assert.Equal(t, "energie", res.Theme)
	assert.Equal(t, []string{"Pikine"}, res.Subdivisions)
}

func TestUrgencyBound(t *testing.T) {
	c := newClassifier()

	all := strings.Join(rules.Default().UrgencyPhrases, " ")
	res := c.Classify(context.Background(), all+" "+all, "URGENT")
	assert.InDelta(t, 1.0, res.Urgency, 1e-9)

	res = c.Classify(context.Background(), "Une crise urgente", "")
	assert.InDelta(t, 0.4, res.Urgency, 1e-9)
	assert.InDelta(t, 0.4, res.Confidence, 1e-9)
}

func TestComplexity(t *testing.T) {
	c := newClassifier()

	tests := []struct {
		name string
		text string
		want float64
	}{
		{name: "empty", text: "", want: 0},
		{name: "long with many sentences", text: strings.Repeat("a.", 500), want: 0.5},
		{name: "legal references", text: "article 1 article 2", want: (19.0/1000 + 0 + 0.1 + 0.4) / 4},
		{name: "decree", text: "Le Décret n° 12.", want: (16.0/1000 + 0.1 + 0.1 + 0.2) / 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.complexity(tt.text)

			assert.InDelta(t, tt.want, got, 1e-9)
			assert.GreaterOrEqual(t, got, 0.0)
			assert.LessOrEqual(t, got, 1.0)
		})
	}
}

func TestSubdivisions(t *testing.T) {
	res := newClassifier().Classify(context.Background(), "Les routes de Thiès et de kaolack, ainsi que Nioro du Rip", "")

	assert.Equal(t, []string{"Kaolack", "Nioro du Rip", "Thies"}, res.Subdivisions)
}

func TestSubdivisionsNone(t *testing.T) {
	res := newClassifier().Classify(context.Background(), "Aucune localité", "")

	assert.NotNil(t, res.Subdivisions)
	assert.Empty(t, res.Subdivisions)
}

func TestRatio(t *testing.T) {
	assert.InDelta(t, 100.0, Ratio("dakar", "dakar"), 1e-9)
	assert.InDelta(t, 100.0, Ratio("", ""), 1e-9)
	assert.InDelta(t, 0.0, Ratio("abc", ""), 1e-9)
	assert.InDelta(t, 80.0, Ratio("thies", "thiès"), 1e-9)
	assert.InDelta(t, 200.0*7/15, Ratio("kaolack", "kaolack,"), 1e-9)
	assert.InDelta(t, 200.0*2/8, Ratio("abcd", "dcba"), 1e-9, "substitution costs a delete and an insert")
}

type fakeLabeler struct {
	label string
	err   error
}

func (f fakeLabeler) Label(context.Context, string) (string, error) {
	return f.label, f.err
}

func TestModelTheme(t *testing.T) {
	logger := zerolog.Nop()
	fallback := NewRuleTheme(rules.Default().Themes)

	ok := NewModelTheme(fakeLabeler{label: "justice"}, fallback, &logger)
	res := ok.ClassifyTheme(context.Background(), "budget agricole")
	assert.Equal(t, ThemeResult{Primary: "justice", Source: SourceModel}, res)

	failing := NewModelTheme(fakeLabeler{err: errors.New("boom")}, fallback, &logger)
	res = failing.ClassifyTheme(context.Background(), "budget agricole")
	assert.Equal(t, "agriculture", res.Primary)
	assert.Equal(t, SourceRules, res.Source)
}

type fakeSentimentModel struct {
	pred inference.SentimentPrediction
	err  error
	seen string
}

func (f *fakeSentimentModel) Sentiment(_ context.Context, text string) (inference.SentimentPrediction, error) {
	f.seen = text
	return f.pred, f.err
}

func TestModelSentiment(t *testing.T) {
	logger := zerolog.Nop()

	model := &fakeSentimentModel{pred: inference.SentimentPrediction{Label: inference.SentimentNegative, Score: 0.8}}
	s := NewModelSentiment(model, &logger).AnalyzeSentiment(context.Background(), strings.Repeat("é", 600))

	assert.InDelta(t, -0.8, s.Score, 1e-9)
	assert.InDelta(t, 0.8, s.Confidence, 1e-9)
	assert.Equal(t, 512, utf8.RuneCountInString(model.seen))

	failing := &fakeSentimentModel{err: errors.New("down")}
	s = NewModelSentiment(failing, &logger).AnalyzeSentiment(context.Background(), "x")
	assert.Equal(t, Sentiment{Score: 0, Confidence: 0.5}, s)
}

func TestClassifyWithModelVariants(t *testing.T) {
	logger := zerolog.Nop()
	model := &fakeSentimentModel{pred: inference.SentimentPrediction{Label: inference.SentimentPositive, Score: 0.9}}

	c := newClassifier(
		WithThemeClassifier(NewModelTheme(fakeLabeler{label: "culture"}, NewRuleTheme(rules.Default().Themes), &logger)),
		WithSentimentAnalyzer(NewModelSentiment(model, &logger)),
	)

	res := c.Classify(context.Background(), "Situation urgente", "")

	assert.Equal(t, "culture", res.Theme)
	assert.Equal(t, SourceModel, res.Source)
	assert.InDelta(t, 0.9, res.Sentiment, 1e-9)
	assert.InDelta(t, 0.2, res.Confidence, 1e-9)
}

func TestClassifyConcurrent(t *testing.T) {
	c := newClassifier()

	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			res := c.Classify(context.Background(), "Le budget agricole de Kolda", "")
			assert.Equal(t, "agriculture", res.Theme)
		}()
	}

	wg.Wait()
}
