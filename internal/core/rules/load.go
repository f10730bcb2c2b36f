package rules

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	apperrors "github.com/lueurxax/assembly-questions-etl/internal/core/errors"
)

// Load returns the built-in tables, with any section present in the YAML
// file at path replacing the built-in one. An empty path yields Default().
func Load(path string) (Tables, error) {
	base := Default()
	if path == "" {
		return base, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return Tables{}, fmt.Errorf("reading rules file %s: %w", path, err)
	}

	var override Tables
	if err := yaml.Unmarshal(raw, &override); err != nil {
		return Tables{}, fmt.Errorf("parsing rules file %s: %w", path, err)
	}

	merged := merge(base, override)
	if err := merged.Validate(); err != nil {
		return Tables{}, fmt.Errorf("validating rules file %s: %w", path, err)
	}

	return merged, nil
}

func merge(base, override Tables) Tables {
	if len(override.Themes) > 0 {
		base.Themes = override.Themes
	}

	if len(override.Subdivisions) > 0 {
		base.Subdivisions = override.Subdivisions
	}

	if len(override.UrgencyPhrases) > 0 {
		base.UrgencyPhrases = override.UrgencyPhrases
	}

	if len(override.TechnicalTerms) > 0 {
		base.TechnicalTerms = override.TechnicalTerms
	}

	return base
}

// Validate rejects unnamed or duplicate themes and themes without keywords.
func (t Tables) Validate() error {
	seen := make(map[string]struct{}, len(t.Themes))

	for i, th := range t.Themes {
		name := strings.TrimSpace(th.Name)
		if name == "" {
			return fmt.Errorf("theme #%d has no name: %w", i, apperrors.ErrInvalidInput)
		}

		if _, dup := seen[name]; dup {
			return fmt.Errorf("theme %q declared twice: %w", name, apperrors.ErrInvalidInput)
		}

		seen[name] = struct{}{}

		if len(th.Keywords) == 0 {
			return fmt.Errorf("theme %q has no keywords: %w", name, apperrors.ErrInvalidInput)
		}
	}

	return nil
}
