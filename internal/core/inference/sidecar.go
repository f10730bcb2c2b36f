// Package inference talks to model backends: an HTTP sidecar serving the
// fine-tuned text classifier and sentiment model, and the OpenAI chat API
// constrained to a fixed label set.
package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	apperrors "github.com/lueurxax/assembly-questions-etl/internal/core/errors"
)

const (
	defaultTimeout = 10 * time.Second

	SentimentPositive = "POSITIVE"
	SentimentNegative = "NEGATIVE"

	contentTypeJSON = "application/json"
)

// Sidecar posts text to a model server and decodes its prediction.
type Sidecar struct {
	url        string
	httpClient *http.Client
}

func NewSidecar(url string, timeout time.Duration) *Sidecar {
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Sidecar{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type predictRequest struct {
	Text string `json:"text"`
}

type logitsResponse struct {
	Logits []float64 `json:"logits"`
}

// SentimentPrediction is the top label of a binary sentiment model.
type SentimentPrediction struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Logits returns the raw class scores for text.
func (s *Sidecar) Logits(ctx context.Context, text string) ([]float64, error) {
	var out logitsResponse
	if err := s.post(ctx, text, &out); err != nil {
		return nil, err
	}

	if len(out.Logits) == 0 {
		return nil, fmt.Errorf("empty logits: %w", apperrors.ErrModelUnavailable)
	}

	return out.Logits, nil
}

// Sentiment returns the label and probability of the sentiment model.
func (s *Sidecar) Sentiment(ctx context.Context, text string) (SentimentPrediction, error) {
	var out SentimentPrediction
	if err := s.post(ctx, text, &out); err != nil {
		return SentimentPrediction{}, err
	}

	out.Label = strings.ToUpper(out.Label)
	if out.Label != SentimentPositive && out.Label != SentimentNegative {
		return SentimentPrediction{}, fmt.Errorf("sentiment label %q: %w", out.Label, apperrors.ErrUnknownLabel)
	}

	return out, nil
}

func (s *Sidecar) post(ctx context.Context, text string, out any) error {
	body, err := json.Marshal(predictRequest{Text: text})
	if err != nil {
		return fmt.Errorf("marshal predict request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create predict request: %w", err)
	}

	req.Header.Set("Content-Type", contentTypeJSON)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("predict request: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", apperrors.ErrModelUnavailable, resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read predict response: %w", err)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode predict response: %w", err)
	}

	return nil
}

// LoadLabels reads the label mapping of the theme model: a JSON array whose
// index i names class i.
func LoadLabels(path string) ([]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read labels %s: %w", path, err)
	}

	var labels []string
	if err := json.Unmarshal(raw, &labels); err != nil {
		return nil, fmt.Errorf("decode labels %s: %w", path, err)
	}

	if len(labels) == 0 {
		return nil, fmt.Errorf("labels %s are empty: %w", path, apperrors.ErrModelUnavailable)
	}

	return labels, nil
}

// LogitsLabeler maps the argmax of sidecar logits onto a label.
type LogitsLabeler struct {
	model  *Sidecar
	labels []string
}

func NewLogitsLabeler(model *Sidecar, labels []string) *LogitsLabeler {
	return &LogitsLabeler{model: model, labels: labels}
}

func (l *LogitsLabeler) Label(ctx context.Context, text string) (string, error) {
	logits, err := l.model.Logits(ctx, text)
	if err != nil {
		return "", err
	}

	idx := Argmax(logits)
	if idx < 0 || idx >= len(l.labels) {
		return "", fmt.Errorf("class %d of %d labels: %w", idx, len(l.labels), apperrors.ErrUnknownLabel)
	}

	return l.labels[idx], nil
}

// Argmax returns the index of the largest value, the first one on ties, or
// -1 for an empty slice.
func Argmax(values []float64) int {
	best := -1

	for i, v := range values {
		if best < 0 || v > values[best] {
			best = i
		}
	}

	return best
}
