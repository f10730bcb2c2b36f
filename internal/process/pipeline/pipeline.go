// Package pipeline sequences one ETL run: extract from the assembly API,
// drop records already stored, normalize and classify, then load in
// batches. Every run owns its state; concurrent runs share nothing but the
// collaborators handed to New.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lueurxax/assembly-questions-etl/internal/core/domain"
	apperrors "github.com/lueurxax/assembly-questions-etl/internal/core/errors"
	"github.com/lueurxax/assembly-questions-etl/internal/ingest/assembly"
	"github.com/lueurxax/assembly-questions-etl/internal/platform/config"
	"github.com/lueurxax/assembly-questions-etl/internal/platform/observability"
	"github.com/lueurxax/assembly-questions-etl/internal/process/classify"
	"github.com/lueurxax/assembly-questions-etl/internal/process/normalize"
)

// Source is the remote collection reader.
type Source interface {
	FetchQuestions(ctx context.Context, q assembly.QuestionQuery) ([]domain.Question, error)
	FetchRepresentatives(ctx context.Context, q assembly.RepresentativeQuery) ([]domain.Representative, error)
}

// Store is the loader side of a run. A store is opened per run and closed
// when the run ends, whatever the outcome.
type Store interface {
	UpsertQuestions(ctx context.Context, batch []domain.Question) (int, error)
	UpsertRepresentatives(ctx context.Context, batch []domain.Representative) (int, error)
	ApplyResponse(ctx context.Context, upd domain.ResponseUpdate) (bool, error)
	ListKnownQuestionNumbers(ctx context.Context) (map[int64]struct{}, error)
	ListPendingQuestionNumbers(ctx context.Context) (map[int64]struct{}, error)
	RunMaintenance(ctx context.Context) error
	Close()
}

// StoreFactory opens a store for one run.
type StoreFactory func(ctx context.Context) (Store, error)

type Normalizer interface {
	Normalize(raw string, answered bool) normalize.Result
}

type Classifier interface {
	Classify(ctx context.Context, text, subject string) classify.Result
}

// RunConfig parameterizes one run. From and To bound the question deposit
// date; Incremental enables the known-number filter for questions.
type RunConfig struct {
	Kind        Kind
	From        *time.Time
	To          *time.Time
	Incremental bool
}

// Counts tallies records per stage.
type Counts struct {
	Extracted   int
	Skipped     int
	Transformed int
	Failed      int
	Loaded      int
	Batches     int
}

// RunResult describes a finished run. State is StateClosed or StateAborted.
type RunResult struct {
	RunID    string
	Kind     Kind
	Counts   Counts
	Duration time.Duration
	State    State
}

type Pipeline struct {
	source              Source
	stores              StoreFactory
	normalizer          Normalizer
	classifier          Classifier
	batchSize           int
	maintenanceAfterRun bool
	logger              *zerolog.Logger
}

func New(cfg config.PipelineConfig, source Source, stores StoreFactory, normalizer Normalizer, classifier Classifier, logger *zerolog.Logger) *Pipeline {
	batchSize := cfg.BatchSize
	switch {
	case batchSize <= 0:
		batchSize = DefaultBatchSize
	case batchSize > MaxBatchSize:
		logger.Warn().Int("requested", batchSize).Int("max", MaxBatchSize).Msg("batch size clamped")

		batchSize = MaxBatchSize
	}

	return &Pipeline{
		source:              source,
		stores:              stores,
		normalizer:          normalizer,
		classifier:          classifier,
		batchSize:           batchSize,
		maintenanceAfterRun: cfg.MaintenanceAfterRun,
		logger:              logger,
	}
}

// run holds the mutable state of a single Run call.
type run struct {
	*Pipeline

	cfg    RunConfig
	result RunResult
	logger zerolog.Logger
}

func (r *run) enter(s State) {
	r.result.State = s
	r.logger.Debug().Str(LogFieldState, string(s)).Msg("run state")
}

// Run executes one flow end to end. The store is released on every path
// before Run returns; the returned error is the first unrecovered one.
func (p *Pipeline) Run(ctx context.Context, cfg RunConfig) (RunResult, error) {
	start := time.Now()

	r := &run{
		Pipeline: p,
		cfg:      cfg,
		result:   RunResult{RunID: uuid.NewString(), Kind: cfg.Kind, State: StateIdle},
	}
	r.logger = p.logger.With().Str(LogFieldRunID, r.result.RunID).Str(LogFieldKind, string(cfg.Kind)).Logger()

	r.logger.Info().Bool("incremental", cfg.Incremental).Msg("run started")

	err := r.execute(ctx)

	r.result.Duration = time.Since(start)
	if err != nil {
		r.logger.Error().Err(err).Str(LogFieldState, string(r.result.State)).Msg("run aborted")
		r.enter(StateAborted)
	} else {
		r.enter(StateClosed)
		observability.Runs.RecordSuccess(string(cfg.Kind), time.Now())
	}

	observability.PipelineRuns.WithLabelValues(string(cfg.Kind), string(r.result.State)).Inc()
	observability.PipelineRunDurationSeconds.WithLabelValues(string(cfg.Kind)).Observe(r.result.Duration.Seconds())

	c := r.result.Counts
	r.logger.Info().
		Int(observability.StageExtracted, c.Extracted).
		Int(observability.StageSkipped, c.Skipped).
		Int(observability.StageTransformed, c.Transformed).
		Int(observability.StageFailed, c.Failed).
		Int(observability.StageLoaded, c.Loaded).
		Int(LogFieldBatches, c.Batches).
		Dur("duration", r.result.Duration).
		Str(LogFieldState, string(r.result.State)).
		Msg("run finished")

	return r.result, err
}

func (r *run) execute(ctx context.Context) error {
	var flow func(ctx context.Context, store Store) error

	switch r.cfg.Kind {
	case KindQuestions:
		flow = r.questions
	case KindRepresentatives:
		flow = r.representatives
	case KindResponses:
		flow = r.responses
	default:
		return fmt.Errorf("run kind %q: %w", r.cfg.Kind, apperrors.ErrUnknownMode)
	}

	r.enter(StateInitializing)

	store, err := r.stores(ctx)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}

	defer store.Close()

	return flow(ctx, store)
}

func (r *run) count(stage string, n int) {
	if n == 0 {
		return
	}

	observability.PipelineRecords.WithLabelValues(string(r.cfg.Kind), stage).Add(float64(n))

	c := &r.result.Counts

	switch stage {
	case observability.StageExtracted:
		c.Extracted += n
	case observability.StageSkipped:
		c.Skipped += n
	case observability.StageTransformed:
		c.Transformed += n
	case observability.StageFailed:
		c.Failed += n
	case observability.StageLoaded:
		c.Loaded += n
	}
}

// loadBatches hands fixed-size copies of items to load, sequentially. A
// failing batch stops the loop; earlier batches stay committed.
func loadBatches[T any](ctx context.Context, r *run, items []T, load func(context.Context, []T) (int, error)) error {
	total := (len(items) + r.batchSize - 1) / r.batchSize

	for i := 0; i < len(items); i += r.batchSize {
		end := min(i+r.batchSize, len(items))
		batch := append([]T(nil), items[i:end]...)
		n := i/r.batchSize + 1

		written, err := load(ctx, batch)
		if err != nil {
			return fmt.Errorf("load batch %d/%d: %w", n, total, err)
		}

		r.result.Counts.Batches++
		r.count(observability.StageLoaded, written)

		r.logger.Info().Int(LogFieldBatch, n).Int(LogFieldBatches, total).Int(LogFieldCount, written).Msg("batch loaded")
	}

	return nil
}

// FilterNew returns the records whose number is not in known, preserving
// order.
func FilterNew(records []domain.Question, known map[int64]struct{}) []domain.Question {
	return filterByNumber(records, known, false)
}

// KeepPending returns the records whose number is in pending.
func KeepPending(records []domain.Question, pending map[int64]struct{}) []domain.Question {
	return filterByNumber(records, pending, true)
}

func filterByNumber(records []domain.Question, set map[int64]struct{}, keepMembers bool) []domain.Question {
	out := make([]domain.Question, 0, len(records))

	for _, q := range records {
		if _, ok := set[q.Number]; ok == keepMembers {
			out = append(out, q)
		}
	}

	return out
}

var errRecordPanic = errors.New("record transformation panicked")
