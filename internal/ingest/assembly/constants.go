package assembly

import "time"

// Resource labels used in logs and metrics.
const (
	ResourceQuestions = "questions"
	ResourceDeputies  = "deputies"
)

// Publication states understood by the API.
const (
	StatusPublished = "published"
	StatusActive    = "active"
)

const (
	paramLimit      = "limit"
	paramPage       = "page"
	paramDateFrom   = "filter[question_date][_gte]"
	paramDateTo     = "filter[question_date][_lte]"
	paramStatus     = "filter[status]"
	paramAnswered   = "filter[is_answered][_eq]"
	paramSort       = "sort"
	paramFields     = "fields"
	fieldsSeparator = ","

	headerAuthorization = "Authorization"
	headerUserAgent     = "User-Agent"
	headerAccept        = "Accept"
	headerRetryAfter    = "Retry-After"
	bearerPrefix        = "Bearer "
	contentTypeJSON     = "application/json"

	// DateLayout is the format of question_date filters.
	DateLayout = "2006-01-02"
)

const (
	defaultPageSize    = 100
	defaultMaxAttempts = 3
	defaultBackoffBase = time.Second
	defaultRetryAfter  = 60 * time.Second
	delayMultiplier    = 2
	maxErrorBodyBytes  = 512
)

const (
	LogFieldResource = "resource"
	LogFieldPage     = "page"
	LogFieldAttempt  = "attempt"
	LogFieldRecords  = "records"
	LogFieldRecordID = "record_id"
	LogFieldWait     = "wait"
)
