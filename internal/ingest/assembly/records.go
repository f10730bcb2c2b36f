package assembly

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/lueurxax/assembly-questions-etl/internal/core/domain"
	apperrors "github.com/lueurxax/assembly-questions-etl/internal/core/errors"
)

// QuestionQuery filters the questions collection. Zero values are omitted.
type QuestionQuery struct {
	From         *time.Time
	To           *time.Time
	Status       string
	AnsweredOnly bool
	Sort         string
	Fields       []string
}

// RepresentativeQuery filters the deputies collection.
type RepresentativeQuery struct {
	Status string
	Sort   string
	Fields []string
}

// FetchQuestions walks the questions collection and maps every record.
// Records that cannot be mapped are dropped with a warning.
func (c *Client) FetchQuestions(ctx context.Context, q QuestionQuery) ([]domain.Question, error) {
	filters := map[string]string{}

	if q.From != nil {
		filters[paramDateFrom] = q.From.Format(DateLayout)
	}

	if q.To != nil {
		filters[paramDateTo] = q.To.Format(DateLayout)
	}

	if q.Status != "" {
		filters[paramStatus] = q.Status
	}

	if q.AnsweredOnly {
		filters[paramAnswered] = "true"
	}

	raw, err := c.FetchCollection(ctx, Request{
		Resource: ResourceQuestions,
		URL:      c.cfg.QuestionsURL,
		Filters:  filters,
		Sort:     q.Sort,
		Fields:   q.Fields,
		PageSize: c.cfg.PageSize,
	})

	out := make([]domain.Question, 0, len(raw))

	for i, rec := range raw {
		question, mapErr := MapQuestion(rec)
		if mapErr != nil {
			c.logger.Warn().Err(mapErr).Str(LogFieldResource, ResourceQuestions).Int(LogFieldRecordID, i).
				Msg("dropping unmappable record")

			continue
		}

		out = append(out, question)
	}

	return out, err
}

// FetchRepresentatives walks the deputies collection and maps every record.
func (c *Client) FetchRepresentatives(ctx context.Context, q RepresentativeQuery) ([]domain.Representative, error) {
	filters := map[string]string{}
	if q.Status != "" {
		filters[paramStatus] = q.Status
	}

	raw, err := c.FetchCollection(ctx, Request{
		Resource: ResourceDeputies,
		URL:      c.cfg.DeputiesURL,
		Filters:  filters,
		Sort:     q.Sort,
		Fields:   q.Fields,
		PageSize: c.cfg.DeputyPageSize,
	})

	out := make([]domain.Representative, 0, len(raw))

	for i, rec := range raw {
		rep, mapErr := MapRepresentative(rec)
		if mapErr != nil {
			c.logger.Warn().Err(mapErr).Str(LogFieldResource, ResourceDeputies).Int(LogFieldRecordID, i).
				Msg("dropping unmappable record")

			continue
		}

		out = append(out, rep)
	}

	return out, err
}

type questionRecord struct {
	ID           flexInt  `json:"id"`
	QuestionDate string   `json:"question_date"`
	IsAnswered   flexBool `json:"is_answered"`
	Subject      *string  `json:"subject"`
	QuestionText *string  `json:"question_text"`
	Deputy       flexInt  `json:"deputy"`
}

// MapQuestion converts one API record. The id doubles as the question number.
func MapQuestion(raw json.RawMessage) (domain.Question, error) {
	var rec questionRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return domain.Question{}, fmt.Errorf("decode question: %w", err)
	}

	if !rec.ID.valid {
		return domain.Question{}, fmt.Errorf("question without id: %w", apperrors.ErrInvalidID)
	}

	deposit, err := dateparse.ParseAny(strings.TrimSpace(rec.QuestionDate))
	if err != nil {
		return domain.Question{}, fmt.Errorf("question %d date %q: %w", rec.ID.value, rec.QuestionDate, apperrors.ErrInvalidInput)
	}

	q := domain.Question{
		Number:      rec.ID.value,
		DepositDate: deposit,
		Type:        domain.QuestionTypeWritten,
		Status:      domain.StatusFromAnswered(rec.IsAnswered.value),
		Subject:     deref(rec.Subject),
		Body:        deref(rec.QuestionText),
	}

	if rec.Deputy.valid {
		id := rec.Deputy.value
		q.RepresentativeID = &id
	}

	return q, nil
}

type deputyRecord struct {
	ID        flexInt `json:"id"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Group     flexInt `json:"group"`
}

// MapRepresentative converts one API record: last_name is the surname and
// first_name the given name.
func MapRepresentative(raw json.RawMessage) (domain.Representative, error) {
	var rec deputyRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return domain.Representative{}, fmt.Errorf("decode deputy: %w", err)
	}

	if !rec.ID.valid {
		return domain.Representative{}, fmt.Errorf("deputy without id: %w", apperrors.ErrInvalidID)
	}

	return domain.Representative{
		ID:        rec.ID.value,
		Surname:   strings.TrimSpace(deref(rec.LastName)),
		GivenName: strings.TrimSpace(deref(rec.FirstName)),
		Group:     domain.GroupFromCode(rec.Group.value),
	}, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}

	return *s
}

// flexInt accepts a JSON number, a numeric string, or an expanded relation
// object carrying an "id". null and "" leave it unset.
type flexInt struct {
	value int64
	valid bool
}

func (f *flexInt) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		return nil
	}

	switch b[0] {
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return fmt.Errorf("decode id string: %w", err)
		}

		s = strings.TrimSpace(s)
		if s == "" {
			return nil
		}

		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return fmt.Errorf("id %q: %w", s, apperrors.ErrInvalidID)
		}

		f.value, f.valid = v, true
	case '{':
		var obj struct {
			ID flexInt `json:"id"`
		}
		if err := json.Unmarshal(b, &obj); err != nil {
			return fmt.Errorf("decode id object: %w", err)
		}

		*f = obj.ID
	default:
		var n float64
		if err := json.Unmarshal(b, &n); err != nil {
			return fmt.Errorf("id %s: %w", b, apperrors.ErrInvalidID)
		}

		if n != math.Trunc(n) {
			return fmt.Errorf("id %s is not integral: %w", b, apperrors.ErrInvalidID)
		}

		f.value, f.valid = int64(n), true
	}

	return nil
}

// flexBool accepts true/false, 0/1 and their string forms.
type flexBool struct {
	value bool
}

func (f *flexBool) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)

	switch strings.ToLower(s) {
	case "true", "1":
		f.value = true
	case "false", "0", "", "null":
		f.value = false
	default:
		return fmt.Errorf("boolean %s: %w", b, apperrors.ErrInvalidInput)
	}

	return nil
}
