package db

import (
	"time"
)

// Table names.
const (
	TableQuestions  = "questions"
	TableDeputes    = "deputes"
	TableMinisteres = "ministeres"

	statsView = "vue_stats_deputes"
)

// Database connection constants
const (
	// ConnectionRetrySleep is the sleep duration between connection retries
	ConnectionRetrySleep = 2 * time.Second
	// maxConnectionRetries is the number of retries for initial connection
	maxConnectionRetries = 10
)

// Database pool default constants
const (
	defaultMaxConns          int32         = 20
	defaultMinConns          int32         = 5
	defaultMaxConnIdleTime   time.Duration = 30 * time.Minute
	defaultMaxConnLifetime   time.Duration = time.Hour
	defaultHealthCheckPeriod time.Duration = time.Minute
)

const (
	LogFieldTable    = "table"
	LogFieldRows     = "rows"
	LogFieldQuestion = "numero_question"
)
