package observability

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

const (
	shutdownTimeout   = 5 * time.Second
	readHeaderTimeout = 10 * time.Second
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	db     Pinger
	runs   *RunTracker
	port   int
	logger *zerolog.Logger
}

func NewServer(db Pinger, port int, logger *zerolog.Logger) *Server {
	return &Server{
		db:     db,
		runs:   Runs,
		port:   port,
		logger: logger,
	}
}

// readiness is the /readyz body. LastSuccess is keyed by pipeline kind.
type readiness struct {
	Status      string               `json:"status"`
	Error       string               `json:"error,omitempty"`
	LastSuccess map[string]time.Time `json:"last_success"`
}

// Handler serves /healthz, /readyz and /metrics. /readyz also reports the
// last successful run of every pipeline kind since start.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprint(w, "OK")
	})

	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		body := readiness{Status: "ok", LastSuccess: s.runs.LastSuccess()}
		code := http.StatusOK

		if err := s.db.Ping(r.Context()); err != nil {
			body.Status = "unavailable"
			body.Error = err.Error()
			code = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)

		if err := json.NewEncoder(w).Encode(body); err != nil {
			s.logger.Warn().Err(err).Msg("write readiness")
		}
	})

	mux.Handle("/metrics", promhttp.Handler())

	return mux
}

// Start blocks until ctx is cancelled or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)

		defer cancel()

		//nolint:errcheck,contextcheck // shutdown in signal handler is best-effort, non-inherited context intentional
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info().Int("port", s.port).Msg("Health check server starting")

	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server error: %w", err)
	}

	return nil
}
