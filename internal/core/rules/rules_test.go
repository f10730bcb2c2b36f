package rules

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/lueurxax/assembly-questions-etl/internal/core/errors"
)

func TestDefaultTables(t *testing.T) {
	tables := Default()

	assert.Equal(t, []string{
		"sante", "education", "justice", "environnement", "securite", "agriculture",
		"economie", "transport", "energie", "logement", "fonction_publique", "culture", "numerique",
	}, tables.ThemeNames())
	assert.Len(t, tables.Subdivisions, 45)
	assert.Len(t, tables.UrgencyPhrases, 8)
	assert.Contains(t, tables.TechnicalTerms, "jurisprudence")
	require.NoError(t, tables.Validate())
}

func TestDefaultReturnsCopy(t *testing.T) {
	first := Default()
	first.Themes[0].Keywords[0] = "mutated"
	first.Subdivisions[0] = "mutated"

	second := Default()
	assert.Equal(t, "santé", second.Themes[0].Keywords[0])
	assert.Equal(t, "Dakar", second.Subdivisions[0])
}

func TestLoadEmptyPath(t *testing.T) {
	tables, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), tables)
}

func TestLoadOverridesSections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	content := `
themes:
  - name: peche
    keywords: [pirogue, pêcheur]
  - name: mines
    keywords: [or, mine]
urgency: [alerte]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	tables, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"peche", "mines"}, tables.ThemeNames())
	assert.Equal(t, []string{"alerte"}, tables.UrgencyPhrases)
	assert.Len(t, tables.Subdivisions, 45, "sections absent from the file keep built-in values")
}

func TestLoadRejectsInvalidTables(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "duplicate theme", content: "themes:\n  - {name: a, keywords: [x]}\n  - {name: a, keywords: [y]}\n"},
		{name: "unnamed theme", content: "themes:\n  - {name: '', keywords: [x]}\n"},
		{name: "no keywords", content: "themes:\n  - {name: a, keywords: []}\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "rules.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o600))

			_, err := Load(path)
			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}
