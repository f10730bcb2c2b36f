package classify

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/lueurxax/assembly-questions-etl/internal/core/rules"
)

// ThemeResult is a primary theme, an optional runner-up and the path that
// produced them.
type ThemeResult struct {
	Primary   string
	Secondary *string
	Source    string
}

// ThemeClassifier assigns a theme to "subject text" input.
type ThemeClassifier interface {
	ClassifyTheme(ctx context.Context, text string) ThemeResult
}

// Labeler is a model backend that returns one label for a text.
type Labeler interface {
	Label(ctx context.Context, text string) (string, error)
}

// RuleTheme counts distinct keyword hits per theme.
type RuleTheme struct {
	names   []string
	owners  map[string][]int
	phrases *phraseSet
}

func NewRuleTheme(themes []rules.Theme) *RuleTheme {
	names := make([]string, 0, len(themes))
	owners := make(map[string][]int)

	var all []string

	for i, th := range themes {
		names = append(names, th.Name)

		for _, kw := range th.Keywords {
			key := fold(kw)
			if key == "" {
				continue
			}

			owners[key] = appendIndex(owners[key], i)
			all = append(all, key)
		}
	}

	return &RuleTheme{names: names, owners: owners, phrases: newPhraseSet(all)}
}

func appendIndex(list []int, idx int) []int {
	for _, existing := range list {
		if existing == idx {
			return list
		}
	}

	return append(list, idx)
}

// ClassifyTheme picks the theme with the most distinct keyword hits. Ties go
// to the theme declared first; no hit at all yields rules.FallbackTheme.
func (r *RuleTheme) ClassifyTheme(_ context.Context, text string) ThemeResult {
	counts := make([]int, len(r.names))

	for _, kw := range r.phrases.distinct(fold(text)) {
		for _, idx := range r.owners[kw] {
			counts[idx]++
		}
	}

	first, second := -1, -1

	for i, c := range counts {
		if c == 0 {
			continue
		}

		switch {
		case first < 0 || c > counts[first]:
			first, second = i, first
		case second < 0 || c > counts[second]:
			second = i
		}
	}

	if first < 0 {
		return ThemeResult{Primary: rules.FallbackTheme, Source: SourceRules}
	}

	res := ThemeResult{Primary: r.names[first], Source: SourceRules}
	if second >= 0 {
		name := r.names[second]
		res.Secondary = &name
	}

	return res
}

// ModelTheme asks a model backend and falls back to rules for the call when
// the backend fails.
type ModelTheme struct {
	model    Labeler
	fallback *RuleTheme
	logger   *zerolog.Logger
}

func NewModelTheme(model Labeler, fallback *RuleTheme, logger *zerolog.Logger) *ModelTheme {
	return &ModelTheme{model: model, fallback: fallback, logger: logger}
}

func (m *ModelTheme) ClassifyTheme(ctx context.Context, text string) ThemeResult {
	label, err := m.model.Label(ctx, text)
	if err != nil {
		m.logger.Warn().Err(err).Msg("theme model failed, using rules")

		return m.fallback.ClassifyTheme(ctx, text)
	}

	return ThemeResult{Primary: label, Source: SourceModel}
}
