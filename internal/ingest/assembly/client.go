// Package assembly reads questions and deputies from the National Assembly
// content API: a paginated, token-protected JSON collection endpoint.
package assembly

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	apperrors "github.com/lueurxax/assembly-questions-etl/internal/core/errors"
	"github.com/lueurxax/assembly-questions-etl/internal/platform/config"
	"github.com/lueurxax/assembly-questions-etl/internal/platform/observability"
)

// Request describes one collection walk. Filters are sent as-is.
type Request struct {
	Resource string
	URL      string
	Filters  map[string]string
	Sort     string
	Fields   []string
	PageSize int
}

// Client is safe for concurrent use; every call paginates sequentially.
type Client struct {
	cfg         config.APIConfig
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	logger      *zerolog.Logger
	sleep       func(ctx context.Context, d time.Duration) error
}

func New(cfg config.APIConfig, logger *zerolog.Logger) *Client {
	if cfg.PageSize <= 0 {
		cfg.PageSize = defaultPageSize
	}

	if cfg.DeputyPageSize <= 0 {
		cfg.DeputyPageSize = cfg.PageSize
	}

	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}

	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = defaultBackoffBase
	}

	if cfg.RetryAfterDefault <= 0 {
		cfg.RetryAfterDefault = defaultRetryAfter
	}

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}

	return &Client{
		cfg:         cfg,
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		rateLimiter: rate.NewLimiter(limit, 1),
		logger:      logger,
		sleep:       sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return fmt.Errorf("wait interrupted: %w", ctx.Err())
	case <-t.C:
		return nil
	}
}

type collectionResponse struct {
	Data []json.RawMessage `json:"data"`
}

// FetchCollection walks pages from 1 until an empty or short page. When a
// page keeps failing after the retry budget, the walk stops and the records
// gathered so far are returned with a nil error. The only error returned is
// context cancellation. Without a token nothing is sent.
func (c *Client) FetchCollection(ctx context.Context, req Request) ([]json.RawMessage, error) {
	logger := c.logger.With().Str(LogFieldResource, req.Resource).Logger()

	if c.cfg.Token == "" {
		logger.Error().Err(apperrors.ErrMissingToken).Msg("skipping extraction")

		return nil, nil
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = c.cfg.PageSize
	}

	var records []json.RawMessage

	for page := 1; ; page++ {
		batch, err := c.fetchPage(ctx, &logger, req, pageSize, page)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return records, fmt.Errorf("fetch %s page %d: %w", req.Resource, page, ctxErr)
			}

			logger.Error().Err(err).Int(LogFieldPage, page).Int(LogFieldRecords, len(records)).
				Msg("giving up on pagination, keeping records fetched so far")

			break
		}

		records = append(records, batch...)
		observability.APIRecordsFetched.WithLabelValues(req.Resource).Add(float64(len(batch)))

		logger.Debug().Int(LogFieldPage, page).Int(LogFieldRecords, len(batch)).Msg("page fetched")

		if len(batch) < pageSize {
			break
		}
	}

	logger.Info().Int(LogFieldRecords, len(records)).Msg("collection fetched")

	return records, nil
}

func (c *Client) fetchPage(ctx context.Context, logger *zerolog.Logger, req Request, pageSize, page int) ([]json.RawMessage, error) {
	pageURL, err := buildURL(req, pageSize, page)
	if err != nil {
		return nil, err
	}

	delay := c.cfg.BackoffBase
	attempt := 0

	for {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("assembly rate limit: %w", err)
		}

		records, retryAfter, err := c.doRequest(ctx, pageURL)
		if err == nil {
			observability.APIRequests.WithLabelValues(req.Resource, observability.OutcomeOK).Inc()

			return records, nil
		}

		if ctx.Err() != nil {
			return nil, err
		}

		// 429 waits as long as the server asks and never uses up an attempt.
		if errors.Is(err, apperrors.ErrRateLimited) {
			observability.APIRequests.WithLabelValues(req.Resource, observability.OutcomeRateLimited).Inc()
			logger.Warn().Int(LogFieldPage, page).Dur(LogFieldWait, retryAfter).Msg("rate limited by api")

			if err := c.sleep(ctx, retryAfter); err != nil {
				return nil, err
			}

			continue
		}

		attempt++
		if attempt >= c.cfg.MaxAttempts {
			observability.APIRequests.WithLabelValues(req.Resource, observability.OutcomeExhausted).Inc()

			return nil, fmt.Errorf("%w after %d attempts: %w", apperrors.ErrAttemptsExhausted, attempt, err)
		}

		observability.APIRequests.WithLabelValues(req.Resource, observability.OutcomeRetry).Inc()
		logger.Warn().Err(err).Int(LogFieldPage, page).Int(LogFieldAttempt, attempt).Dur(LogFieldWait, delay).
			Msg("page request failed, retrying")

		if err := c.sleep(ctx, delay); err != nil {
			return nil, err
		}

		delay *= delayMultiplier
	}
}

// doRequest returns the page records, or the wait requested by a 429.
func (c *Client) doRequest(ctx context.Context, pageURL string) ([]json.RawMessage, time.Duration, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("create assembly request: %w", err)
	}

	httpReq.Header.Set(headerAuthorization, bearerPrefix+c.cfg.Token)
	httpReq.Header.Set(headerAccept, contentTypeJSON)

	if c.cfg.UserAgent != "" {
		httpReq.Header.Set(headerUserAgent, c.cfg.UserAgent)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, 0, fmt.Errorf("assembly request: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, c.retryAfter(resp.Header.Get(headerRetryAfter)), apperrors.ErrRateLimited
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))

		return nil, 0, fmt.Errorf("%w %d: %s", apperrors.ErrUnexpectedStatus, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var body collectionResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, 0, fmt.Errorf("decode assembly response: %w", err)
	}

	return body.Data, 0, nil
}

// retryAfter reads delay-seconds or an HTTP date.
func (c *Client) retryAfter(header string) time.Duration {
	header = strings.TrimSpace(header)
	if header == "" {
		return c.cfg.RetryAfterDefault
	}

	if secs, err := strconv.Atoi(header); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}

	if at, err := http.ParseTime(header); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}

		return 0
	}

	return c.cfg.RetryAfterDefault
}

func buildURL(req Request, pageSize, page int) (string, error) {
	u, err := url.Parse(req.URL)
	if err != nil {
		return "", fmt.Errorf("parse assembly url %q: %w", req.URL, err)
	}

	params := u.Query()
	params.Set(paramLimit, strconv.Itoa(pageSize))
	params.Set(paramPage, strconv.Itoa(page))

	for k, v := range req.Filters {
		params.Set(k, v)
	}

	if req.Sort != "" {
		params.Set(paramSort, req.Sort)
	}

	if len(req.Fields) > 0 {
		params.Set(paramFields, strings.Join(req.Fields, fieldsSeparator))
	}

	u.RawQuery = params.Encode()

	return u.String(), nil
}
