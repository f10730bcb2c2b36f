package observability

import (
	"sync"
	"time"
)

// RunTracker remembers when each pipeline kind last reached the closed
// state in this process.
type RunTracker struct {
	mu   sync.RWMutex
	last map[string]time.Time
}

func NewRunTracker() *RunTracker {
	return &RunTracker{last: make(map[string]time.Time)}
}

// Runs is the process-wide tracker read by /readyz.
var Runs = NewRunTracker()

// RecordSuccess stores at for kind and mirrors it to the last-success gauge.
func (t *RunTracker) RecordSuccess(kind string, at time.Time) {
	t.mu.Lock()
	t.last[kind] = at
	t.mu.Unlock()

	PipelineLastSuccessTimestamp.WithLabelValues(kind).Set(float64(at.Unix()))
}

// LastSuccess returns a copy of the last success time per kind.
func (t *RunTracker) LastSuccess() map[string]time.Time {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make(map[string]time.Time, len(t.last))
	for k, v := range t.last {
		out[k] = v
	}

	return out
}
