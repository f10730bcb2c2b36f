package config

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is read once at process start and passed to constructors by value.
// Nothing mutates it after Load returns.
type Config struct {
	AppEnv   string `env:"APP_ENV" envDefault:"local"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	Database   DatabaseConfig
	API        APIConfig
	Pipeline   PipelineConfig
	Classifier ClassifierConfig
	Schedule   ScheduleConfig
	Metrics    MetricsConfig
}

type DatabaseConfig struct {
	URL               string        `env:"DATABASE_URL"`
	Host              string        `env:"POSTGRES_HOST" envDefault:"localhost"`
	Port              int           `env:"POSTGRES_PORT" envDefault:"5432"`
	Name              string        `env:"POSTGRES_DB" envDefault:"questions"`
	User              string        `env:"POSTGRES_USER" envDefault:"airflow"`
	Password          string        `env:"POSTGRES_PASSWORD" envDefault:"airflow"`
	MinConnections    int32         `env:"DB_MIN_CONNECTIONS" envDefault:"5"`
	MaxConnections    int32         `env:"DB_MAX_CONNECTIONS" envDefault:"20"`
	MaxConnIdleTime   time.Duration `env:"DB_MAX_CONN_IDLE_TIME" envDefault:"30m"`
	MaxConnLifetime   time.Duration `env:"DB_MAX_CONN_LIFETIME" envDefault:"1h"`
	HealthCheckPeriod time.Duration `env:"DB_HEALTH_CHECK_PERIOD" envDefault:"1m"`
}

// DSN returns DATABASE_URL when set, otherwise a URL assembled from the
// individual POSTGRES_* variables.
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}

	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		Path:   "/" + d.Name,
	}

	return u.String()
}

type APIConfig struct {
	QuestionsURL      string        `env:"API_URL" envDefault:"https://cms.vie-publique.sn/items/assembly_question"`
	DeputiesURL       string        `env:"API_DEPUTY_URL" envDefault:"https://cms.vie-publique.sn/items/assembly_deputy"`
	Token             string        `env:"API_TOKEN"`
	RateLimit         float64       `env:"API_RATE_LIMIT" envDefault:"2000"`
	Timeout           time.Duration `env:"API_TIMEOUT" envDefault:"30s"`
	PageSize          int           `env:"API_PAGE_SIZE" envDefault:"100"`
	DeputyPageSize    int           `env:"API_DEPUTY_PAGE_SIZE" envDefault:"200"`
	MaxAttempts       int           `env:"API_MAX_ATTEMPTS" envDefault:"3"`
	BackoffBase       time.Duration `env:"API_BACKOFF_BASE" envDefault:"1s"`
	RetryAfterDefault time.Duration `env:"API_RETRY_AFTER_DEFAULT" envDefault:"60s"`
	UserAgent         string        `env:"API_USER_AGENT" envDefault:"Parliamentary-ETL/1.0"`
}

type PipelineConfig struct {
	BatchSize           int  `env:"PIPELINE_BATCH_SIZE" envDefault:"100"`
	Incremental         bool `env:"PIPELINE_INCREMENTAL" envDefault:"true"`
	MaintenanceAfterRun bool `env:"PIPELINE_MAINTENANCE_AFTER_RUN" envDefault:"false"`
}

// Classifier backends.
const (
	BackendRules   = "rules"
	BackendSidecar = "sidecar"
	BackendOpenAI  = "openai"
)

type ClassifierConfig struct {
	Backend           string        `env:"CLASSIFIER_BACKEND" envDefault:"rules"`
	RulesPath         string        `env:"RULES_PATH"`
	LabelsPath        string        `env:"CLASSIFIER_LABELS_PATH"`
	ModelURL          string        `env:"CLASSIFIER_MODEL_URL"`
	SentimentModelURL string        `env:"SENTIMENT_MODEL_URL"`
	Timeout           time.Duration `env:"CLASSIFIER_TIMEOUT" envDefault:"10s"`
	LLMAPIKey         string        `env:"LLM_API_KEY"`
	LLMModel          string        `env:"LLM_MODEL" envDefault:"gpt-4o-mini"`
}

type ScheduleConfig struct {
	Cron       string `env:"SCHEDULE_CRON" envDefault:"0 6 * * *"`
	Timezone   string `env:"SCHEDULE_TIMEZONE" envDefault:"Africa/Dakar"`
	HealthPort int    `env:"HEALTH_PORT" envDefault:"8080"`
}

type MetricsConfig struct {
	PushgatewayURL string `env:"METRICS_PUSHGATEWAY_URL"`
	Job            string `env:"METRICS_JOB" envDefault:"questions_etl"`
}

func Load() (*Config, error) {
	_ = godotenv.Load() //nolint:errcheck // .env file is optional, error is expected when not present

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment config: %w", err)
	}

	cfg.Classifier.Backend = strings.ToLower(strings.TrimSpace(cfg.Classifier.Backend))

	return cfg, nil
}
