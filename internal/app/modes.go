package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/lueurxax/assembly-questions-etl/internal/core/domain"
	apperrors "github.com/lueurxax/assembly-questions-etl/internal/core/errors"
	"github.com/lueurxax/assembly-questions-etl/internal/platform/observability"
	"github.com/lueurxax/assembly-questions-etl/internal/process/pipeline"
)

// QuestionOptions bounds a question run. Full disables the incremental
// filter for this run only.
type QuestionOptions struct {
	From *time.Time
	To   *time.Time
	Full bool
}

// RespondOptions is a manual answer for one stored question.
type RespondOptions struct {
	Number     int64
	Text       string
	Date       *time.Time
	MinistryID *int64
}

// StartHealthServer serves /healthz, /readyz and /metrics until ctx ends.
func (a *App) StartHealthServer(ctx context.Context) error {
	srv := observability.NewServer(a.database, a.cfg.Schedule.HealthPort, a.logger)

	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("health server start: %w", err)
	}

	return nil
}

func (a *App) RunQuestions(ctx context.Context, opts QuestionOptions) error {
	return a.runFlow(ctx, pipeline.RunConfig{
		Kind:        pipeline.KindQuestions,
		From:        opts.From,
		To:          opts.To,
		Incremental: a.cfg.Pipeline.Incremental && !opts.Full,
	})
}

func (a *App) RunRepresentatives(ctx context.Context) error {
	return a.runFlow(ctx, pipeline.RunConfig{Kind: pipeline.KindRepresentatives})
}

func (a *App) RunResponses(ctx context.Context, opts QuestionOptions) error {
	return a.runFlow(ctx, pipeline.RunConfig{Kind: pipeline.KindResponses, From: opts.From, To: opts.To})
}

// RunAll runs the question and representative flows concurrently. They
// write disjoint tables and share nothing: a failing flow does not cancel
// the other, and both errors are reported.
func (a *App) RunAll(ctx context.Context, opts QuestionOptions) error {
	var (
		g    errgroup.Group
		errs [2]error
	)

	g.Go(func() error {
		errs[0] = a.RunQuestions(ctx, opts)

		return nil
	})

	g.Go(func() error {
		errs[1] = a.RunRepresentatives(ctx)

		return nil
	})

	_ = g.Wait()

	if err := errors.Join(errs[:]...); err != nil {
		return fmt.Errorf("run all flows: %w", err)
	}

	return nil
}

func (a *App) runFlow(ctx context.Context, cfg pipeline.RunConfig) error {
	res, err := a.pipeline.Run(ctx, cfg)
	if err != nil {
		return fmt.Errorf("%s run %s: %w", res.Kind, res.RunID, err)
	}

	a.logger.Info().Str(logFieldMode, string(res.Kind)).Str("run_id", res.RunID).Msg("run finished")

	return nil
}

// RunRespond stores a manual answer. The text is only whitespace-collapsed.
func (a *App) RunRespond(ctx context.Context, opts RespondOptions) error {
	text := strings.Join(strings.Fields(opts.Text), " ")
	if text == "" {
		return fmt.Errorf("empty response for question %d: %w", opts.Number, apperrors.ErrInvalidInput)
	}

	ok, err := a.database.ApplyResponse(ctx, domain.ResponseUpdate{
		Number:     opts.Number,
		Text:       text,
		Date:       opts.Date,
		MinistryID: opts.MinistryID,
	})
	if err != nil {
		return fmt.Errorf("apply response: %w", err)
	}

	if !ok {
		return fmt.Errorf("question %d: %w", opts.Number, apperrors.ErrNotFound)
	}

	a.logger.Info().Int64("numero_question", opts.Number).Msg("response stored")

	return nil
}

func (a *App) RunMaintenance(ctx context.Context) error {
	if err := a.database.RunMaintenance(ctx); err != nil {
		return fmt.Errorf("run maintenance: %w", err)
	}

	return nil
}

// RunSchedule runs All then maintenance on every cron tick until ctx ends.
// A tick that fires while the previous one is still running is skipped.
func (a *App) RunSchedule(ctx context.Context) error {
	loc, err := time.LoadLocation(a.cfg.Schedule.Timezone)
	if err != nil {
		return fmt.Errorf("load schedule timezone %q: %w", a.cfg.Schedule.Timezone, err)
	}

	cronLogger := cronLogAdapter{logger: a.logger.With().Str("component", "schedule").Logger()}
	cronParser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

	c := cron.New(
		cron.WithLocation(loc),
		cron.WithParser(cronParser),
		cron.WithLogger(cronLogger),
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
	)

	if _, err := c.AddFunc(a.cfg.Schedule.Cron, func() { a.scheduledRun(ctx) }); err != nil {
		return fmt.Errorf("parse schedule %q: %w", a.cfg.Schedule.Cron, err)
	}

	healthErr := make(chan error, 1)

	go func() {
		healthErr <- a.StartHealthServer(ctx)
	}()

	c.Start()
	a.logger.Info().Str("cron", a.cfg.Schedule.Cron).Str("timezone", loc.String()).Msg("scheduler started")

	select {
	case <-ctx.Done():
	case err = <-healthErr:
	}

	<-c.Stop().Done()

	if err != nil {
		return err
	}

	return fmt.Errorf("scheduler stopped: %w", ctx.Err())
}

func (a *App) scheduledRun(ctx context.Context) {
	if err := a.RunAll(ctx, QuestionOptions{}); err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}

		a.logger.Error().Err(err).Msg("scheduled run failed")
	}

	if err := a.RunMaintenance(ctx); err != nil {
		a.logger.Error().Err(err).Msg("scheduled maintenance failed")
	}
}

// PushMetrics sends the metrics of a one-shot run to the Pushgateway when
// one is configured.
func (a *App) PushMetrics(ctx context.Context) {
	if a.cfg.Metrics.PushgatewayURL == "" {
		return
	}

	if err := observability.Push(ctx, a.cfg.Metrics.PushgatewayURL, a.cfg.Metrics.Job); err != nil {
		a.logger.Warn().Err(err).Msg("metrics push failed")
	}
}

type cronLogAdapter struct {
	logger zerolog.Logger
}

func (l cronLogAdapter) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogAdapter) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
