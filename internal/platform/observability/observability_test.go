package observability

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePinger struct {
	err error
}

func (f fakePinger) Ping(context.Context) error {
	return f.err
}

func TestHealthHandler(t *testing.T) {
	logger := zerolog.Nop()

	tests := []struct {
		name   string
		pinger fakePinger
		path   string
		want   int
	}{
		{name: "healthz", path: "/healthz", want: http.StatusOK},
		{name: "ready", path: "/readyz", want: http.StatusOK},
		{name: "not ready", pinger: fakePinger{err: errors.New("down")}, path: "/readyz", want: http.StatusServiceUnavailable},
		{name: "metrics", path: "/metrics", want: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewServer(tt.pinger, 0, &logger).Handler()

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestReadyzReportsLastSuccess(t *testing.T) {
	logger := zerolog.Nop()
	at := time.Date(2026, 3, 2, 6, 0, 0, 0, time.UTC)

	srv := NewServer(fakePinger{}, 0, &logger)
	srv.runs = NewRunTracker()
	srv.runs.RecordSuccess("questions", at)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var body readiness
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.True(t, at.Equal(body.LastSuccess["questions"]))
	assert.NotContains(t, body.LastSuccess, "representatives")

	srv.db = fakePinger{err: errors.New("down")}
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "unavailable", body.Status)
	assert.Equal(t, "down", body.Error)
}

func TestPushFrom(t *testing.T) {
	var gotPath string

	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer gateway.Close()

	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_total", Help: "test"})
	reg.MustRegister(counter)
	counter.Inc()

	require.NoError(t, PushFrom(context.Background(), reg, gateway.URL, "questions_etl"))
	assert.Equal(t, "/metrics/job/questions_etl", gotPath)
}

func TestPushFromError(t *testing.T) {
	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer gateway.Close()

	err := PushFrom(context.Background(), prometheus.NewRegistry(), gateway.URL, "questions_etl")
	assert.Error(t, err)
}
