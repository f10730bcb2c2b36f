// Package app provides the application bootstrap and runtime orchestration.
//
// The App type wires together all dependencies and exposes one method per
// operational mode:
//
//   - Questions: question flow, incremental unless asked otherwise
//   - Representatives: deputy flow
//   - All: both flows concurrently
//   - Responses: late answers for questions stored as pending
//   - Respond: manual answer for one question
//   - Maintenance: derived columns and the statistics view
//   - Schedule: cron-driven All plus maintenance, with health and metrics
package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/lueurxax/assembly-questions-etl/internal/core/inference"
	"github.com/lueurxax/assembly-questions-etl/internal/core/rules"
	"github.com/lueurxax/assembly-questions-etl/internal/ingest/assembly"
	"github.com/lueurxax/assembly-questions-etl/internal/platform/config"
	"github.com/lueurxax/assembly-questions-etl/internal/process/classify"
	"github.com/lueurxax/assembly-questions-etl/internal/process/normalize"
	"github.com/lueurxax/assembly-questions-etl/internal/process/pipeline"
	db "github.com/lueurxax/assembly-questions-etl/internal/storage"
)

const (
	logFieldBackend = "backend"
	logFieldMode    = "mode"
)

// App holds the application dependencies and provides methods to run different modes.
type App struct {
	cfg      *config.Config
	database *db.DB
	pipeline *pipeline.Pipeline
	logger   *zerolog.Logger
}

// New builds every component from cfg. database serves the maintenance,
// respond and health paths; pipeline runs open their own pool.
func New(cfg *config.Config, database *db.DB, logger *zerolog.Logger) (*App, error) {
	tables, err := rules.Load(cfg.Classifier.RulesPath)
	if err != nil {
		return nil, fmt.Errorf("load rule tables: %w", err)
	}

	a := &App{
		cfg:      cfg,
		database: database,
		logger:   logger,
	}

	clientLogger := logger.With().Str("component", "assembly").Logger()
	pipelineLogger := logger.With().Str("component", "pipeline").Logger()

	a.pipeline = pipeline.New(
		cfg.Pipeline,
		assembly.New(cfg.API, &clientLogger),
		a.openStore,
		normalize.New(tables),
		a.newClassifier(tables),
		&pipelineLogger,
	)

	return a, nil
}

// openStore gives each run its own pool, released when the run closes.
func (a *App) openStore(ctx context.Context) (pipeline.Store, error) {
	storeLogger := a.logger.With().Str("component", "storage").Logger()

	store, err := db.NewWithOptions(ctx, a.cfg.Database.DSN(), db.PoolOptionsFromConfig(a.cfg.Database), &storeLogger)
	if err != nil {
		return nil, err
	}

	return store, nil
}

// newClassifier selects the theme and sentiment variants. A model backend
// that cannot be set up leaves the rule-based variant in place.
func (a *App) newClassifier(tables rules.Tables) *classify.Classifier {
	cc := a.cfg.Classifier
	logger := a.logger.With().Str("component", "classifier").Logger()

	var opts []classify.Option

	switch cc.Backend {
	case config.BackendSidecar:
		opts = append(opts, a.sidecarOptions(tables, &logger)...)
	case config.BackendOpenAI:
		if cc.LLMAPIKey == "" {
			logger.Warn().Str(logFieldBackend, cc.Backend).Msg("LLM_API_KEY not set, using rule-based themes")

			break
		}

		labeler := inference.NewOpenAILabeler(cc.LLMAPIKey, cc.LLMModel, tables.ThemeNames())
		opts = append(opts, classify.WithThemeClassifier(classify.NewModelTheme(labeler, classify.NewRuleTheme(tables.Themes), &logger)))
	case config.BackendRules, "":
	default:
		logger.Warn().Str(logFieldBackend, cc.Backend).Msg("unknown classifier backend, using rules")
	}

	if cc.SentimentModelURL != "" {
		model := inference.NewSidecar(cc.SentimentModelURL, cc.Timeout)
		opts = append(opts, classify.WithSentimentAnalyzer(classify.NewModelSentiment(model, &logger)))
	}

	logger.Info().Str(logFieldBackend, cc.Backend).Int("options", len(opts)).Msg("classifier ready")

	return classify.New(tables, &logger, opts...)
}

func (a *App) sidecarOptions(tables rules.Tables, logger *zerolog.Logger) []classify.Option {
	cc := a.cfg.Classifier

	if cc.ModelURL == "" {
		logger.Warn().Msg("CLASSIFIER_MODEL_URL not set, using rule-based themes")

		return nil
	}

	labels := tables.ThemeNames()

	if cc.LabelsPath != "" {
		loaded, err := inference.LoadLabels(cc.LabelsPath)
		if err != nil {
			logger.Warn().Err(err).Msg("label mapping unavailable, using rule-based themes")

			return nil
		}

		labels = loaded
	}

	labeler := inference.NewLogitsLabeler(inference.NewSidecar(cc.ModelURL, cc.Timeout), labels)

	return []classify.Option{
		classify.WithThemeClassifier(classify.NewModelTheme(labeler, classify.NewRuleTheme(tables.Themes), logger)),
	}
}
