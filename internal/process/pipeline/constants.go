package pipeline

// State is a step of the run state machine.
type State string

const (
	StateIdle         State = "idle"
	StateInitializing State = "initializing"
	StateExtracting   State = "extracting"
	StateFiltering    State = "filtering"
	StateTransforming State = "transforming"
	StateLoading      State = "loading"
	StateClosed       State = "closed"
	StateAborted      State = "aborted"
)

// Kind selects the flow a run executes.
type Kind string

const (
	KindQuestions       Kind = "questions"
	KindRepresentatives Kind = "representatives"
	KindResponses       Kind = "responses"
)

// DefaultBatchSize is the number of records per loader call.
const DefaultBatchSize = 100

// MaxBatchSize keeps a question batch under the PostgreSQL limit of 65535
// bind parameters per statement.
const MaxBatchSize = 2000

// processingVersion prefixes version_traitement; the classifier source follows.
const processingVersion = "1.0"

// Log field constants
const (
	LogFieldRunID    = "run_id"
	LogFieldKind     = "kind"
	LogFieldState    = "state"
	LogFieldQuestion = "numero_question"
	LogFieldBatch    = "batch"
	LogFieldBatches  = "batches"
	LogFieldCount    = "count"
)
