package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

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
)

type fakeSource struct {
	questions       []domain.Question
	representatives []domain.Representative
	err             error
	queries         []assembly.QuestionQuery
}

func (f *fakeSource) FetchQuestions(_ context.Context, q assembly.QuestionQuery) ([]domain.Question, error) {
	f.queries = append(f.queries, q)

	return f.questions, f.err
}

func (f *fakeSource) FetchRepresentatives(_ context.Context, _ assembly.RepresentativeQuery) ([]domain.Representative, error) {
	return f.representatives, f.err
}

type fakeStore struct {
	known        map[int64]struct{}
	pending      map[int64]struct{}
	failOnBatch  int
	batches      [][]domain.Question
	reps         [][]domain.Representative
	responses    []domain.ResponseUpdate
	maintenances int
	closed       bool
}

func (s *fakeStore) UpsertQuestions(_ context.Context, batch []domain.Question) (int, error) {
	if s.failOnBatch > 0 && len(s.batches)+1 == s.failOnBatch {
		return 0, errors.New("connection lost")
	}

	s.batches = append(s.batches, batch)

	return len(batch), nil
}

func (s *fakeStore) UpsertRepresentatives(_ context.Context, batch []domain.Representative) (int, error) {
	s.reps = append(s.reps, batch)

	return len(batch), nil
}

func (s *fakeStore) ApplyResponse(_ context.Context, upd domain.ResponseUpdate) (bool, error) {
	s.responses = append(s.responses, upd)

	return true, nil
}

func (s *fakeStore) ListKnownQuestionNumbers(context.Context) (map[int64]struct{}, error) {
	return s.known, nil
}

func (s *fakeStore) ListPendingQuestionNumbers(context.Context) (map[int64]struct{}, error) {
	return s.pending, nil
}

func (s *fakeStore) RunMaintenance(context.Context) error {
	s.maintenances++

	return nil
}

func (s *fakeStore) Close() {
	s.closed = true
}

func (s *fakeStore) loaded() []int64 {
	var out []int64

	for _, b := range s.batches {
		for _, q := range b {
			out = append(out, q.Number)
		}
	}

	return out
}

type panickingClassifier struct {
	inner Classifier
}

func (p panickingClassifier) Classify(ctx context.Context, text, subject string) classify.Result {
	if subject == "boom" {
		panic("rule table corrupted")
	}

	return p.inner.Classify(ctx, text, subject)
}

func newTestPipeline(t *testing.T, src Source, store *fakeStore, cfg config.PipelineConfig) *Pipeline {
	t.Helper()

	logger := zerolog.Nop()
	tables := rules.Default()

	classifier := panickingClassifier{inner: classify.New(tables, &logger)}

	return New(cfg, src, func(context.Context) (Store, error) { return store, nil },
		normalize.New(tables), classifier, &logger)
}

func questionsNumbered(numbers ...int64) []domain.Question {
	out := make([]domain.Question, 0, len(numbers))

	for _, n := range numbers {
		out = append(out, domain.Question{
			Number:      n,
			DepositDate: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
			Type:        domain.QuestionTypeWritten,
			Status:      domain.StatusPending,
			Subject:     fmt.Sprintf("Question %d", n),
			Body:        "<p>Le forage du village est en panne depuis des mois.</p>",
		})
	}

	return out
}

func TestRunQuestionsIncremental(t *testing.T) {
	src := &fakeSource{questions: questionsNumbered(1, 2, 3, 4, 5)}
	store := &fakeStore{known: map[int64]struct{}{2: {}, 4: {}, 99: {}}}

	p := newTestPipeline(t, src, store, config.PipelineConfig{BatchSize: 100})

	res, err := p.Run(context.Background(), RunConfig{Kind: KindQuestions, Incremental: true})
	require.NoError(t, err)

	assert.Equal(t, StateClosed, res.State)
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, []int64{1, 3, 5}, store.loaded())
	assert.Equal(t, Counts{Extracted: 5, Skipped: 2, Transformed: 3, Loaded: 3, Batches: 1}, res.Counts)
	assert.True(t, store.closed)
	require.Len(t, src.queries, 1)
	assert.Equal(t, assembly.StatusPublished, src.queries[0].Status)
}

func TestRunQuestionsFullReload(t *testing.T) {
	src := &fakeSource{questions: questionsNumbered(1, 2)}
	store := &fakeStore{known: map[int64]struct{}{1: {}, 2: {}}}

	p := newTestPipeline(t, src, store, config.PipelineConfig{})

	res, err := p.Run(context.Background(), RunConfig{Kind: KindQuestions})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, store.loaded())
	assert.Zero(t, res.Counts.Skipped)
}

func TestRunQuestionsBatches(t *testing.T) {
	numbers := make([]int64, 250)
	for i := range numbers {
		numbers[i] = int64(i + 1)
	}

	src := &fakeSource{questions: questionsNumbered(numbers...)}
	store := &fakeStore{}

	p := newTestPipeline(t, src, store, config.PipelineConfig{})

	res, err := p.Run(context.Background(), RunConfig{Kind: KindQuestions})
	require.NoError(t, err)

	require.Len(t, store.batches, 3)
	assert.Len(t, store.batches[0], 100)
	assert.Len(t, store.batches[1], 100)
	assert.Len(t, store.batches[2], 50)
	assert.Equal(t, 3, res.Counts.Batches)
	assert.Equal(t, 250, res.Counts.Loaded)
}

func TestNewClampsBatchSize(t *testing.T) {
	tests := []struct {
		name      string
		requested int
		want      int
	}{
		{name: "unset", requested: 0, want: DefaultBatchSize},
		{name: "within bounds", requested: 500, want: 500},
		{name: "over bind parameter limit", requested: 5000, want: MaxBatchSize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestPipeline(t, &fakeSource{}, &fakeStore{}, config.PipelineConfig{BatchSize: tt.requested})
			assert.Equal(t, tt.want, p.batchSize)
		})
	}
}

func TestRunQuestionsSkipsPanickingRecord(t *testing.T) {
	records := questionsNumbered(1, 2, 3)
	records[1].Subject = "boom"

	store := &fakeStore{}
	p := newTestPipeline(t, &fakeSource{questions: records}, store, config.PipelineConfig{})

	res, err := p.Run(context.Background(), RunConfig{Kind: KindQuestions})
	require.NoError(t, err)

	assert.Equal(t, []int64{1, 3}, store.loaded())
	assert.Equal(t, 1, res.Counts.Failed)
	assert.Equal(t, 2, res.Counts.Transformed)
}

func TestRunQuestionsEnrichesRecord(t *testing.T) {
	records := []domain.Question{{
		Number:      10,
		DepositDate: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		Type:        domain.QuestionTypeWritten,
		Status:      domain.StatusAnswered,
		Body:        "<p>Pourquoi le budget agricole est-il réduit ?</p><h3>Réponse du gouvernement</h3><p>Le budget a été ajusté.</p>",
	}}

	store := &fakeStore{}
	p := newTestPipeline(t, &fakeSource{questions: records}, store, config.PipelineConfig{})

	_, err := p.Run(context.Background(), RunConfig{Kind: KindQuestions})
	require.NoError(t, err)
	require.Len(t, store.batches, 1)

	q := store.batches[0][0]
	assert.Equal(t, "Pourquoi le budget agricole est-il réduit ?", q.Body)
	require.NotNil(t, q.Response)
	assert.Equal(t, "Le budget a été ajusté.", *q.Response)
	require.NotNil(t, q.Theme)
	assert.Equal(t, "agriculture", *q.Theme)
	require.NotNil(t, q.Urgency)
	assert.InDelta(t, 0.0, *q.Urgency, 1e-9)
	require.NotNil(t, q.Complexity)
	assert.GreaterOrEqual(t, *q.Complexity, 0.0)
	assert.Equal(t, "1.0-rules", q.ProcessingTag)
	require.NotNil(t, q.ResponseWords)
	assert.Equal(t, 5, *q.ResponseWords)
}

func TestRunQuestionsLoadFailureAborts(t *testing.T) {
	numbers := make([]int64, 150)
	for i := range numbers {
		numbers[i] = int64(i + 1)
	}

	store := &fakeStore{failOnBatch: 2}
	p := newTestPipeline(t, &fakeSource{questions: questionsNumbered(numbers...)}, store, config.PipelineConfig{})

	res, err := p.Run(context.Background(), RunConfig{Kind: KindQuestions})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load batch 2/2")

	assert.Equal(t, StateAborted, res.State)
	assert.True(t, store.closed)
	assert.Len(t, store.batches, 1)
	assert.Equal(t, 100, res.Counts.Loaded)
}

func TestRunExtractionFailureReleasesStore(t *testing.T) {
	store := &fakeStore{}
	p := newTestPipeline(t, &fakeSource{err: context.Canceled}, store, config.PipelineConfig{})

	res, err := p.Run(context.Background(), RunConfig{Kind: KindQuestions})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateAborted, res.State)
	assert.True(t, store.closed)
}

func TestRunStoreFactoryFailure(t *testing.T) {
	logger := zerolog.Nop()
	src := &fakeSource{}
	p := New(config.PipelineConfig{}, src, func(context.Context) (Store, error) {
		return nil, errors.New("pool exhausted")
	}, nil, nil, &logger)

	res, err := p.Run(context.Background(), RunConfig{Kind: KindRepresentatives})
	require.Error(t, err)
	assert.Equal(t, StateAborted, res.State)
	assert.Empty(t, src.queries)
}

func TestRunUnknownKind(t *testing.T) {
	store := &fakeStore{}
	p := newTestPipeline(t, &fakeSource{}, store, config.PipelineConfig{})

	res, err := p.Run(context.Background(), RunConfig{Kind: "ministries"})
	require.ErrorIs(t, err, apperrors.ErrUnknownMode)
	assert.Equal(t, StateAborted, res.State)
	assert.False(t, store.closed)
}

func TestRunRepresentatives(t *testing.T) {
	src := &fakeSource{representatives: []domain.Representative{
		{ID: 1, Surname: "Ndiaye", GivenName: "Awa", Group: domain.GroupPastef},
		{ID: 2, Surname: "Fall", GivenName: "Moussa", Group: domain.GroupUnaffiliated},
	}}
	store := &fakeStore{}

	p := newTestPipeline(t, src, store, config.PipelineConfig{})

	res, err := p.Run(context.Background(), RunConfig{Kind: KindRepresentatives})
	require.NoError(t, err)
	require.Len(t, store.reps, 1)
	assert.Len(t, store.reps[0], 2)
	assert.Equal(t, 2, res.Counts.Loaded)
	assert.True(t, store.closed)
}

func TestRunResponses(t *testing.T) {
	answered := questionsNumbered(1, 2, 3)
	for i := range answered {
		answered[i].Status = domain.StatusAnswered
	}

	answered[1].Body = "<p>Question ?</p><h3>Réponse du ministre</h3><p>Les travaux démarrent en mars.</p>"

	store := &fakeStore{pending: map[int64]struct{}{2: {}, 3: {}}}
	src := &fakeSource{questions: answered}

	p := newTestPipeline(t, src, store, config.PipelineConfig{})

	res, err := p.Run(context.Background(), RunConfig{Kind: KindResponses})
	require.NoError(t, err)

	require.Len(t, store.responses, 1)
	assert.Equal(t, int64(2), store.responses[0].Number)
	assert.Equal(t, "Les travaux démarrent en mars.", store.responses[0].Text)
	assert.Equal(t, 1, res.Counts.Loaded)
	assert.Equal(t, 2, res.Counts.Skipped)

	require.Len(t, src.queries, 1)
	assert.True(t, src.queries[0].AnsweredOnly)
}

func TestRunMaintenanceAfterRun(t *testing.T) {
	store := &fakeStore{}
	p := newTestPipeline(t, &fakeSource{questions: questionsNumbered(1)}, store,
		config.PipelineConfig{MaintenanceAfterRun: true})

	_, err := p.Run(context.Background(), RunConfig{Kind: KindQuestions})
	require.NoError(t, err)
	assert.Equal(t, 1, store.maintenances)
}

func TestFilterNew(t *testing.T) {
	tests := []struct {
		name  string
		in    []int64
		known map[int64]struct{}
		want  []int64
	}{
		{name: "empty known set", in: []int64{1, 2}, known: nil, want: []int64{1, 2}},
		{name: "all known", in: []int64{1, 2}, known: map[int64]struct{}{1: {}, 2: {}}, want: nil},
		{name: "difference", in: []int64{5, 1, 7}, known: map[int64]struct{}{1: {}, 8: {}}, want: []int64{5, 7}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterNew(questionsNumbered(tt.in...), tt.known)

			var numbers []int64
			for _, q := range got {
				numbers = append(numbers, q.Number)
			}

			assert.Equal(t, tt.want, numbers)
		})
	}
}

func TestProcessingTag(t *testing.T) {
	assert.Equal(t, "1.0-model", ProcessingTag(classify.SourceModel))
	assert.Equal(t, "1.0", ProcessingTag(""))
}
