package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/lueurxax/assembly-questions-etl/internal/core/domain"
	"github.com/lueurxax/assembly-questions-etl/internal/ingest/assembly"
	"github.com/lueurxax/assembly-questions-etl/internal/platform/observability"
	"github.com/lueurxax/assembly-questions-etl/internal/process/normalize"
)

func (r *run) questions(ctx context.Context, store Store) error {
	r.enter(StateExtracting)

	records, err := r.source.FetchQuestions(ctx, assembly.QuestionQuery{
		From:   r.cfg.From,
		To:     r.cfg.To,
		Status: assembly.StatusPublished,
	})
	if err != nil {
		return fmt.Errorf("extract questions: %w", err)
	}

	r.count(observability.StageExtracted, len(records))

	if r.cfg.Incremental {
		r.enter(StateFiltering)

		known, err := store.ListKnownQuestionNumbers(ctx)
		if err != nil {
			return fmt.Errorf("list known questions: %w", err)
		}

		fresh := FilterNew(records, known)
		r.count(observability.StageSkipped, len(records)-len(fresh))
		records = fresh
	}

	if len(records) == 0 {
		r.logger.Info().Msg("no new questions")

		return nil
	}

	r.enter(StateTransforming)

	enriched := make([]domain.Question, 0, len(records))

	for _, q := range records {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("transform questions: %w", err)
		}

		out, err := r.transformQuestion(ctx, q)
		if err != nil {
			r.logger.Error().Err(err).Int64(LogFieldQuestion, q.Number).Msg("skipping question")
			r.count(observability.StageFailed, 1)

			continue
		}

		enriched = append(enriched, out)
	}

	r.count(observability.StageTransformed, len(enriched))

	r.enter(StateLoading)

	if err := loadBatches(ctx, r, enriched, store.UpsertQuestions); err != nil {
		return err
	}

	if r.maintenanceAfterRun {
		if err := store.RunMaintenance(ctx); err != nil {
			r.logger.Warn().Err(err).Msg("maintenance after run failed")
		}
	}

	return nil
}

// transformQuestion normalizes and classifies one question. A panic in
// either step is turned into an error so only this record is lost.
func (r *run) transformQuestion(ctx context.Context, q domain.Question) (out domain.Question, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%w: %v", errRecordPanic, rec)
		}
	}()

	norm := r.normalizer.Normalize(q.Body, q.Answered())
	cls := r.classifier.Classify(ctx, norm.Question, q.Subject)

	q.Body = norm.Question
	q.Response = norm.Response
	q.Keywords = norm.Analysis.Keywords
	q.Language = norm.Analysis.Language

	if !norm.Analysis.Entities.Empty() {
		entities := norm.Analysis.Entities
		q.Entities = &entities
	}

	words := norm.Analysis.WordCount
	q.QuestionWords = &words

	if q.Response != nil {
		n := normalize.WordCount(*q.Response)
		q.ResponseWords = &n
	}

	if q.Response != nil && q.ResponseDate != nil {
		days := int(q.ResponseDate.Sub(q.DepositDate).Hours() / hoursPerDay)
		q.ResponseDelay = &days
	}

	theme := cls.Theme
	q.Theme = &theme
	q.SecondaryTheme = cls.SecondaryTheme
	q.Sentiment = &cls.Sentiment
	q.Urgency = &cls.Urgency
	q.Complexity = &cls.Complexity
	q.Confidence = &cls.Confidence
	q.Subdivisions = cls.Subdivisions
	q.ProcessingTag = ProcessingTag(cls.Source)

	return q, nil
}

const hoursPerDay = 24

// ProcessingTag is the version_traitement value for a classifier source.
func ProcessingTag(source string) string {
	if source == "" {
		return processingVersion
	}

	return processingVersion + "-" + source
}

func (r *run) representatives(ctx context.Context, store Store) error {
	r.enter(StateExtracting)

	reps, err := r.source.FetchRepresentatives(ctx, assembly.RepresentativeQuery{Status: assembly.StatusActive})
	if err != nil {
		return fmt.Errorf("extract representatives: %w", err)
	}

	r.count(observability.StageExtracted, len(reps))

	if len(reps) == 0 {
		r.logger.Info().Msg("no representatives to load")

		return nil
	}

	r.enter(StateTransforming)
	r.count(observability.StageTransformed, len(reps))

	r.enter(StateLoading)

	return loadBatches(ctx, r, reps, store.UpsertRepresentatives)
}

// responses fetches answered questions, keeps those stored as pending and
// writes their extracted response.
func (r *run) responses(ctx context.Context, store Store) error {
	r.enter(StateExtracting)

	records, err := r.source.FetchQuestions(ctx, assembly.QuestionQuery{
		From:         r.cfg.From,
		To:           r.cfg.To,
		Status:       assembly.StatusPublished,
		AnsweredOnly: true,
	})
	if err != nil {
		return fmt.Errorf("extract answered questions: %w", err)
	}

	r.count(observability.StageExtracted, len(records))

	r.enter(StateFiltering)

	pending, err := store.ListPendingQuestionNumbers(ctx)
	if err != nil {
		return fmt.Errorf("list pending questions: %w", err)
	}

	candidates := KeepPending(records, pending)
	r.count(observability.StageSkipped, len(records)-len(candidates))

	r.enter(StateTransforming)

	updates := make([]domain.ResponseUpdate, 0, len(candidates))

	for _, q := range candidates {
		upd, ok, err := r.extractResponse(q)
		if err != nil {
			r.logger.Error().Err(err).Int64(LogFieldQuestion, q.Number).Msg("skipping response")
			r.count(observability.StageFailed, 1)

			continue
		}

		if !ok {
			r.logger.Debug().Int64(LogFieldQuestion, q.Number).Msg("answered question without response text")
			r.count(observability.StageSkipped, 1)

			continue
		}

		updates = append(updates, upd)
	}

	r.count(observability.StageTransformed, len(updates))

	if len(updates) == 0 {
		return nil
	}

	r.enter(StateLoading)

	return loadBatches(ctx, r, updates, func(ctx context.Context, batch []domain.ResponseUpdate) (int, error) {
		applied := 0

		for _, upd := range batch {
			ok, err := store.ApplyResponse(ctx, upd)
			if err != nil {
				return applied, err
			}

			if ok {
				applied++
			}
		}

		return applied, nil
	})
}

func (r *run) extractResponse(q domain.Question) (upd domain.ResponseUpdate, ok bool, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%w: %v", errRecordPanic, rec)
		}
	}()

	norm := r.normalizer.Normalize(q.Body, true)
	if norm.Response == nil || strings.TrimSpace(*norm.Response) == "" {
		return domain.ResponseUpdate{}, false, nil
	}

	return domain.ResponseUpdate{
		Number:     q.Number,
		Text:       *norm.Response,
		Date:       q.ResponseDate,
		MinistryID: q.ResponderID,
	}, true, nil
}
