package app

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lueurxax/assembly-questions-etl/internal/core/domain"
	apperrors "github.com/lueurxax/assembly-questions-etl/internal/core/errors"
	"github.com/lueurxax/assembly-questions-etl/internal/core/rules"
	"github.com/lueurxax/assembly-questions-etl/internal/ingest/assembly"
	"github.com/lueurxax/assembly-questions-etl/internal/platform/config"
	"github.com/lueurxax/assembly-questions-etl/internal/process/classify"
	"github.com/lueurxax/assembly-questions-etl/internal/process/normalize"
	"github.com/lueurxax/assembly-questions-etl/internal/process/pipeline"
	db "github.com/lueurxax/assembly-questions-etl/internal/storage"
)

func newTestApp(t *testing.T) (*App, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	logger := zerolog.Nop()
	cfg := &config.Config{}
	cfg.Classifier.Backend = config.BackendRules

	a, err := New(cfg, &db.DB{SQL: sqlDB, Logger: &logger}, &logger)
	require.NoError(t, err)

	return a, mock
}

func TestRunRespond(t *testing.T) {
	a, mock := newTestApp(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE questions SET texte_reponse = $1")).
		WithArgs("Les travaux ont repris.", nil, nil, "repondue", int64(4), int64(17)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := a.RunRespond(context.Background(), RespondOptions{Number: 17, Text: "  Les travaux\n\n ont   repris.\n"})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRunRespondUnknownQuestion(t *testing.T) {
	a, mock := newTestApp(t)

	mock.ExpectExec("UPDATE questions").WillReturnResult(sqlmock.NewResult(0, 0))

	err := a.RunRespond(context.Background(), RespondOptions{Number: 404, Text: "Réponse"})
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestRunRespondRejectsEmptyText(t *testing.T) {
	a, _ := newTestApp(t)

	err := a.RunRespond(context.Background(), RespondOptions{Number: 1, Text: " \n\t"})
	require.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestRunMaintenanceWrapsFailure(t *testing.T) {
	a, mock := newTestApp(t)

	mock.ExpectExec("UPDATE questions").WillReturnError(assert.AnError)

	err := a.RunMaintenance(context.Background())
	require.ErrorIs(t, err, assert.AnError)
}

func TestRunScheduleRejectsBadTimezone(t *testing.T) {
	a, _ := newTestApp(t)
	a.cfg.Schedule.Timezone = "Mars/Olympus"

	err := a.RunSchedule(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timezone")
}

func TestNewClassifierFallsBackWithoutModel(t *testing.T) {
	tests := []struct {
		name    string
		backend string
	}{
		{name: "sidecar without url", backend: config.BackendSidecar},
		{name: "openai without key", backend: config.BackendOpenAI},
		{name: "unknown backend", backend: "bert"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := zerolog.Nop()
			cfg := &config.Config{}
			cfg.Classifier.Backend = tt.backend

			a, err := New(cfg, nil, &logger)
			require.NoError(t, err)

			res := a.newClassifier(rules.Default()).Classify(context.Background(), "Le forage du village est en panne", "Eau potable")
			assert.Equal(t, "rules", res.Source)
		})
	}
}

var errDeputyAPI = errors.New("deputy api down")

// slowQuestionsSource answers questions after a delay unless ctx ends first,
// and fails representatives immediately.
type slowQuestionsSource struct {
	questionsErr chan error
}

func (s *slowQuestionsSource) FetchQuestions(ctx context.Context, _ assembly.QuestionQuery) ([]domain.Question, error) {
	select {
	case <-ctx.Done():
		s.questionsErr <- ctx.Err()

		return nil, ctx.Err()
	case <-time.After(200 * time.Millisecond):
		s.questionsErr <- nil

		return nil, nil
	}
}

func (s *slowQuestionsSource) FetchRepresentatives(context.Context, assembly.RepresentativeQuery) ([]domain.Representative, error) {
	return nil, errDeputyAPI
}

type nopStore struct{}

func (nopStore) UpsertQuestions(context.Context, []domain.Question) (int, error) { return 0, nil }

func (nopStore) UpsertRepresentatives(context.Context, []domain.Representative) (int, error) {
	return 0, nil
}

func (nopStore) ApplyResponse(context.Context, domain.ResponseUpdate) (bool, error) { return false, nil }

func (nopStore) ListKnownQuestionNumbers(context.Context) (map[int64]struct{}, error) {
	return map[int64]struct{}{}, nil
}

func (nopStore) ListPendingQuestionNumbers(context.Context) (map[int64]struct{}, error) {
	return map[int64]struct{}{}, nil
}

func (nopStore) RunMaintenance(context.Context) error { return nil }

func (nopStore) Close() {}

func TestRunAllFlowsAreIndependent(t *testing.T) {
	logger := zerolog.Nop()
	tables := rules.Default()
	source := &slowQuestionsSource{questionsErr: make(chan error, 1)}

	a := &App{
		cfg:    &config.Config{},
		logger: &logger,
		pipeline: pipeline.New(
			config.PipelineConfig{},
			source,
			func(context.Context) (pipeline.Store, error) { return nopStore{}, nil },
			normalize.New(tables),
			classify.New(tables, &logger),
			&logger,
		),
	}

	err := a.RunAll(context.Background(), QuestionOptions{})

	require.ErrorIs(t, err, errDeputyAPI)
	assert.NotErrorIs(t, err, context.Canceled)
	assert.NoError(t, <-source.questionsErr, "question flow must not be cancelled by the deputy failure")
}
