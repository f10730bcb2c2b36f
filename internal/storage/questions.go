package db

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"github.com/lueurxax/assembly-questions-etl/internal/core/domain"
	apperrors "github.com/lueurxax/assembly-questions-etl/internal/core/errors"
	"github.com/lueurxax/assembly-questions-etl/internal/platform/observability"
)

var questionColumns = []string{
	"id",
	"numero_question",
	"date_depot",
	"type_question",
	"statut",
	"objet",
	"texte_question",
	"texte_reponse",
	"date_reponse",
	"thematique_principale",
	"thematique_secondaire",
	"mots_cles",
	"entites_nommees",
	"score_sentiment",
	"score_urgence",
	"score_complexite",
	"confiance_classification",
	"departements_concernes",
	"nombre_mots_question",
	"nombre_mots_reponse",
	"delai_reponse_jours",
	"langue",
	"version_traitement",
	"depute_id",
	"ministere_destinataire_id",
	"ministere_repondant_id",
	"date_modification",
}

// Columns never overwritten with NULL once a response has been stored.
var questionKeepColumns = map[string]bool{
	"texte_reponse":          true,
	"date_reponse":           true,
	"nombre_mots_reponse":    true,
	"delai_reponse_jours":    true,
	"ministere_repondant_id": true,
}

// questionConflict is the ON CONFLICT clause of the questions upsert. id,
// numero_question and date_creation are left untouched. A stored answer
// survives a batch that carries none, and so does its answered status.
var questionConflict = buildQuestionConflict()

func buildQuestionConflict() string {
	sets := make([]string, 0, len(questionColumns))

	for _, col := range questionColumns {
		switch {
		case col == "id" || col == "numero_question":
			continue
		case col == "date_modification":
			sets = append(sets, "date_modification = NOW()")
		case col == "statut":
			sets = append(sets, "statut = CASE WHEN EXCLUDED.texte_reponse IS NULL AND questions.texte_reponse IS NOT NULL "+
				"THEN questions.statut ELSE EXCLUDED.statut END")
		case questionKeepColumns[col]:
			sets = append(sets, fmt.Sprintf("%s = COALESCE(EXCLUDED.%s, questions.%s)", col, col, col))
		default:
			sets = append(sets, fmt.Sprintf("%s = EXCLUDED.%s", col, col))
		}
	}

	return "ON CONFLICT (numero_question) DO UPDATE SET " + strings.Join(sets, ", ")
}

// UpsertQuestions writes one batch in a single statement, so the batch is
// atomic. Duplicate numbers inside the batch collapse to the last
// occurrence. It returns the number of distinct questions written.
func (db *DB) UpsertQuestions(ctx context.Context, batch []domain.Question) (int, error) {
	if len(batch) == 0 {
		return 0, apperrors.ErrEmptyBatch
	}

	rows := lastByKey(batch, func(q domain.Question) int64 { return q.Number })

	builder := psql().Insert(TableQuestions).Columns(questionColumns...)

	for _, q := range rows {
		values, err := questionValues(q)
		if err != nil {
			return 0, err
		}

		builder = builder.Values(values...)
	}

	query, args, err := builder.Suffix(questionConflict).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build questions upsert: %w", err)
	}

	start := time.Now()

	res, err := db.SQL.ExecContext(ctx, query, args...)

	observability.LoaderBatchDurationSeconds.WithLabelValues(TableQuestions).Observe(time.Since(start).Seconds())

	if err != nil {
		return 0, fmt.Errorf("upsert questions: %w", err)
	}

	affected, _ := res.RowsAffected()

	db.Logger.Debug().Str(LogFieldTable, TableQuestions).Int64(LogFieldRows, affected).Msg("batch upserted")

	return len(rows), nil
}

func questionValues(q domain.Question) ([]interface{}, error) {
	var entities interface{}

	if q.Entities != nil {
		raw, err := json.Marshal(q.Entities)
		if err != nil {
			return nil, fmt.Errorf("encode entities of question %d: %w", q.Number, err)
		}

		entities = SanitizeUTF8(string(raw))
	}

	var language interface{}
	if q.Language != "" {
		language = q.Language
	}

	var version interface{}
	if q.ProcessingTag != "" {
		version = q.ProcessingTag
	}

	return []interface{}{
		q.Number,
		q.Number,
		dateOnly(&q.DepositDate),
		q.Type,
		string(q.Status),
		SanitizeUTF8(q.Subject),
		SanitizeUTF8(q.Body),
		sanitizePtr(q.Response),
		dateOnly(q.ResponseDate),
		q.Theme,
		q.SecondaryTheme,
		pq.Array(sanitizeAll(q.Keywords)),
		entities,
		q.Sentiment,
		q.Urgency,
		q.Complexity,
		q.Confidence,
		pq.Array(q.Subdivisions),
		q.QuestionWords,
		q.ResponseWords,
		q.ResponseDelay,
		language,
		version,
		q.RepresentativeID,
		q.AddresseeID,
		q.ResponderID,
		sq.Expr("NOW()"),
	}, nil
}

// ApplyResponse stores a late answer and forces the answered status. It
// reports whether a question with that number exists.
func (db *DB) ApplyResponse(ctx context.Context, upd domain.ResponseUpdate) (bool, error) {
	text := SanitizeUTF8(upd.Text)
	words := len(strings.Fields(text))

	query, args, err := psql().Update(TableQuestions).
		Set("texte_reponse", text).
		Set("date_reponse", dateOnly(upd.Date)).
		Set("ministere_repondant_id", sq.Expr("COALESCE(?, ministere_repondant_id)", upd.MinistryID)).
		Set("statut", string(domain.StatusAnswered)).
		Set("nombre_mots_reponse", words).
		Set("date_modification", sq.Expr("NOW()")).
		Where(sq.Eq{"numero_question": upd.Number}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build response update: %w", err)
	}

	res, err := db.SQL.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("update response of question %d: %w", upd.Number, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}

	if affected == 0 {
		db.Logger.Warn().Int64(LogFieldQuestion, upd.Number).Msg("response for unknown question")
	}

	return affected > 0, nil
}

// ListKnownQuestionNumbers returns every stored question number.
func (db *DB) ListKnownQuestionNumbers(ctx context.Context) (map[int64]struct{}, error) {
	return db.questionNumbers(ctx, psql().Select("numero_question").From(TableQuestions))
}

// ListPendingQuestionNumbers returns the numbers of questions still waiting
// for an answer.
func (db *DB) ListPendingQuestionNumbers(ctx context.Context) (map[int64]struct{}, error) {
	return db.questionNumbers(ctx, psql().Select("numero_question").From(TableQuestions).
		Where(sq.Eq{"statut": string(domain.StatusPending)}))
}

func (db *DB) questionNumbers(ctx context.Context, sel sq.SelectBuilder) (map[int64]struct{}, error) {
	query, args, err := sel.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build question number query: %w", err)
	}

	rows, err := db.SQL.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list question numbers: %w", err)
	}

	defer func() {
		_ = rows.Close()
	}()

	out := make(map[int64]struct{})

	for rows.Next() {
		var n int64
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("scan question number: %w", err)
		}

		out[n] = struct{}{}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate question numbers: %w", err)
	}

	return out, nil
}

// lastByKey keeps the last occurrence of every key, in the order those last
// occurrences appear.
func lastByKey[T any](in []T, key func(T) int64) []T {
	last := make(map[int64]int, len(in))
	for i, v := range in {
		last[key(v)] = i
	}

	out := make([]T, 0, len(last))

	for i, v := range in {
		if last[key(v)] == i {
			out = append(out, v)
		}
	}

	return out
}
