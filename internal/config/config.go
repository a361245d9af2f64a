package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig
	DB         DBConfig
	Log        LogConfig
	Pipeline   PipelineConfig
	DocAI      DocAIConfig
	Claude     ClaudeConfig
	Vertex     VertexConfig
	Storage    StorageConfig
	S3         S3Config
	GCS        GCSConfig
	Queue      QueueConfig
	NATS       NATSConfig
	Resilience ResilienceConfig
	Webhook    WebhookConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Environment  string        `mapstructure:"environment"`
}

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxOpen  int    `mapstructure:"max_open"`
	MaxIdle  int    `mapstructure:"max_idle"`
}

// DSN returns the PostgreSQL connection string.
func (d *DBConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// PrefixConfig names the blob areas a document moves through.
type PrefixConfig struct {
	Inbox      string `mapstructure:"inbox"`
	Processing string `mapstructure:"processing"`
	Complete   string `mapstructure:"complete"`
	Failed     string `mapstructure:"failed"`
	Archive    string `mapstructure:"archive"`
}

// PipelineConfig holds extraction and validation pipeline settings.
type PipelineConfig struct {
	ConfidenceThreshold  float64       `mapstructure:"confidence_threshold"`
	ProcessingTimeout    time.Duration `mapstructure:"processing_timeout"`
	ExtractorCallTimeout time.Duration `mapstructure:"extractor_call_timeout"`
	PersistTimeout       time.Duration `mapstructure:"persist_timeout"`
	StructuredProvider   string        `mapstructure:"structured_provider"`
	SemanticProvider     string        `mapstructure:"semantic_provider"`
	RulesFile            string        `mapstructure:"rules_file"`
	Prefixes             PrefixConfig  `mapstructure:"prefixes"`
}

// DocAIConfig holds Google Document AI settings.
type DocAIConfig struct {
	ProjectID          string `mapstructure:"project_id"`
	Location           string `mapstructure:"location"`
	FormProcessorID    string `mapstructure:"form_processor_id"`
	InvoiceProcessorID string `mapstructure:"invoice_processor_id"`
	OCRProcessorID     string `mapstructure:"ocr_processor_id"`
	CredentialsFile    string `mapstructure:"credentials_file"`
	Endpoint           string `mapstructure:"endpoint"`
}

// ClaudeConfig holds Anthropic Messages API settings.
type ClaudeConfig struct {
	APIKey            string        `mapstructure:"api_key"`
	Model             string        `mapstructure:"model"`
	MaxTokens         int           `mapstructure:"max_tokens"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
	Endpoint          string        `mapstructure:"endpoint"`
}

// VertexConfig holds Vertex AI Gemini settings.
type VertexConfig struct {
	ProjectID       string `mapstructure:"project_id"`
	Region          string `mapstructure:"region"`
	Model           string `mapstructure:"model"`
	CredentialsFile string `mapstructure:"credentials_file"`
}

// StorageConfig selects the blob backend.
type StorageConfig struct {
	Backend   string `mapstructure:"backend"`
	LocalPath string `mapstructure:"local_path"`
}

// S3Config holds AWS S3 settings.
type S3Config struct {
	Region    string `mapstructure:"region"`
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
}

// GCSConfig holds Google Cloud Storage settings.
type GCSConfig struct {
	Bucket          string `mapstructure:"bucket"`
	CredentialsFile string `mapstructure:"credentials_file"`
}

// QueueConfig holds process queue worker settings.
type QueueConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
	Concurrency  int           `mapstructure:"concurrency"`
	BatchSize    int           `mapstructure:"batch_size"`
	GracePeriod  time.Duration `mapstructure:"grace_period"`
}

// NATSConfig holds NATS messaging settings.
type NATSConfig struct {
	Enabled          bool   `mapstructure:"enabled"`
	URL              string `mapstructure:"url"`
	RunSubject       string `mapstructure:"run_subject"`
	ProcessedSubject string `mapstructure:"processed_subject"`
	QueueGroup       string `mapstructure:"queue_group"`
}

// ResilienceConfig holds retry and circuit breaker settings for extractor calls.
type ResilienceConfig struct {
	RetryMaxAttempts     int           `mapstructure:"retry_max_attempts"`
	RetryInitialBackoff  time.Duration `mapstructure:"retry_initial_backoff"`
	RetryMaxBackoff      time.Duration `mapstructure:"retry_max_backoff"`
	BreakerEnabled       bool          `mapstructure:"breaker_enabled"`
	BreakerMinRequests   uint32        `mapstructure:"breaker_min_requests"`
	BreakerFailureRatio  float64       `mapstructure:"breaker_failure_ratio"`
	BreakerOpenTimeout   time.Duration `mapstructure:"breaker_open_timeout"`
	BreakerHalfOpenCalls uint32        `mapstructure:"breaker_half_open_calls"`
}

// WebhookConfig holds push-notification settings.
type WebhookConfig struct {
	PubSubToken string `mapstructure:"pubsub_token"`
}

// Load reads configuration from environment variables with the DOCINTAKE_ prefix.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("DOCINTAKE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Server defaults
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.environment", "development")

	// DB defaults
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "docintake")
	v.SetDefault("db.password", "docintake_secret")
	v.SetDefault("db.name", "docintake_db")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.max_open", 25)
	v.SetDefault("db.max_idle", 10)

	// Log defaults
	v.SetDefault("log.level", "debug")
	v.SetDefault("log.format", "console")

	// Pipeline defaults
	v.SetDefault("pipeline.confidence_threshold", 0.85)
	v.SetDefault("pipeline.processing_timeout", "300s")
	v.SetDefault("pipeline.extractor_call_timeout", "120s")
	v.SetDefault("pipeline.persist_timeout", "15s")
	v.SetDefault("pipeline.structured_provider", "pdftext")
	v.SetDefault("pipeline.semantic_provider", "claude")
	v.SetDefault("pipeline.rules_file", "")
	v.SetDefault("pipeline.prefixes.inbox", "inbox")
	v.SetDefault("pipeline.prefixes.processing", "processing")
	v.SetDefault("pipeline.prefixes.complete", "complete")
	v.SetDefault("pipeline.prefixes.failed", "failed")
	v.SetDefault("pipeline.prefixes.archive", "archive")

	// Document AI defaults
	v.SetDefault("docai.project_id", "")
	v.SetDefault("docai.location", "us")
	v.SetDefault("docai.form_processor_id", "")
	v.SetDefault("docai.invoice_processor_id", "")
	v.SetDefault("docai.ocr_processor_id", "")
	v.SetDefault("docai.credentials_file", "")
	v.SetDefault("docai.endpoint", "")

	// Claude defaults
	v.SetDefault("claude.api_key", "")
	v.SetDefault("claude.model", "claude-sonnet-4-20250514")
	v.SetDefault("claude.max_tokens", 4096)
	v.SetDefault("claude.timeout", "120s")
	v.SetDefault("claude.requests_per_minute", 50)
	v.SetDefault("claude.endpoint", "")

	// Vertex defaults
	v.SetDefault("vertex.project_id", "")
	v.SetDefault("vertex.region", "us-central1")
	v.SetDefault("vertex.model", "gemini-2.0-flash")
	v.SetDefault("vertex.credentials_file", "")

	// Storage defaults
	v.SetDefault("storage.backend", "local")
	v.SetDefault("storage.local_path", "./data/blobs")
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.bucket", "docintake-documents")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("gcs.bucket", "docintake-documents")
	v.SetDefault("gcs.credentials_file", "")

	// Queue defaults
	v.SetDefault("queue.poll_interval", "30s")
	v.SetDefault("queue.concurrency", 4)
	v.SetDefault("queue.batch_size", 20)
	v.SetDefault("queue.grace_period", "2m")

	// NATS defaults
	v.SetDefault("nats.enabled", false)
	v.SetDefault("nats.url", "nats://127.0.0.1:4222")
	v.SetDefault("nats.run_subject", "docintake.document.run")
	v.SetDefault("nats.processed_subject", "docintake.document.processed")
	v.SetDefault("nats.queue_group", "docintake-workers")

	// Resilience defaults
	v.SetDefault("resilience.retry_max_attempts", 1)
	v.SetDefault("resilience.retry_initial_backoff", "500ms")
	v.SetDefault("resilience.retry_max_backoff", "5s")
	v.SetDefault("resilience.breaker_enabled", true)
	v.SetDefault("resilience.breaker_min_requests", 5)
	v.SetDefault("resilience.breaker_failure_ratio", 0.5)
	v.SetDefault("resilience.breaker_open_timeout", "30s")
	v.SetDefault("resilience.breaker_half_open_calls", 1)

	// Webhook defaults
	v.SetDefault("webhook.pubsub_token", "")

	// Bind environment variables explicitly for nested keys
	envBindings := map[string]string{
		"server.port":                        "DOCINTAKE_SERVER_PORT",
		"server.read_timeout":                "DOCINTAKE_SERVER_READ_TIMEOUT",
		"server.write_timeout":               "DOCINTAKE_SERVER_WRITE_TIMEOUT",
		"server.environment":                 "DOCINTAKE_SERVER_ENVIRONMENT",
		"db.host":                            "DOCINTAKE_DB_HOST",
		"db.port":                            "DOCINTAKE_DB_PORT",
		"db.user":                            "DOCINTAKE_DB_USER",
		"db.password":                        "DOCINTAKE_DB_PASSWORD",
		"db.name":                            "DOCINTAKE_DB_NAME",
		"db.sslmode":                         "DOCINTAKE_DB_SSLMODE",
		"db.max_open":                        "DOCINTAKE_DB_MAX_OPEN",
		"db.max_idle":                        "DOCINTAKE_DB_MAX_IDLE",
		"log.level":                          "DOCINTAKE_LOG_LEVEL",
		"log.format":                         "DOCINTAKE_LOG_FORMAT",
		"pipeline.confidence_threshold":      "DOCINTAKE_PIPELINE_CONFIDENCE_THRESHOLD",
		"pipeline.processing_timeout":        "DOCINTAKE_PIPELINE_PROCESSING_TIMEOUT",
		"pipeline.extractor_call_timeout":    "DOCINTAKE_PIPELINE_EXTRACTOR_CALL_TIMEOUT",
		"pipeline.persist_timeout":           "DOCINTAKE_PIPELINE_PERSIST_TIMEOUT",
		"pipeline.structured_provider":       "DOCINTAKE_PIPELINE_STRUCTURED_PROVIDER",
		"pipeline.semantic_provider":         "DOCINTAKE_PIPELINE_SEMANTIC_PROVIDER",
		"pipeline.rules_file":                "DOCINTAKE_PIPELINE_RULES_FILE",
		"pipeline.prefixes.inbox":            "DOCINTAKE_PIPELINE_PREFIXES_INBOX",
		"pipeline.prefixes.processing":       "DOCINTAKE_PIPELINE_PREFIXES_PROCESSING",
		"pipeline.prefixes.complete":         "DOCINTAKE_PIPELINE_PREFIXES_COMPLETE",
		"pipeline.prefixes.failed":           "DOCINTAKE_PIPELINE_PREFIXES_FAILED",
		"pipeline.prefixes.archive":          "DOCINTAKE_PIPELINE_PREFIXES_ARCHIVE",
		"docai.project_id":                   "DOCINTAKE_DOCAI_PROJECT_ID",
		"docai.location":                     "DOCINTAKE_DOCAI_LOCATION",
		"docai.form_processor_id":            "DOCINTAKE_DOCAI_FORM_PROCESSOR_ID",
		"docai.invoice_processor_id":         "DOCINTAKE_DOCAI_INVOICE_PROCESSOR_ID",
		"docai.ocr_processor_id":             "DOCINTAKE_DOCAI_OCR_PROCESSOR_ID",
		"docai.credentials_file":             "DOCINTAKE_DOCAI_CREDENTIALS_FILE",
		"docai.endpoint":                     "DOCINTAKE_DOCAI_ENDPOINT",
		"claude.api_key":                     "DOCINTAKE_CLAUDE_API_KEY",
		"claude.model":                       "DOCINTAKE_CLAUDE_MODEL",
		"claude.max_tokens":                  "DOCINTAKE_CLAUDE_MAX_TOKENS",
		"claude.timeout":                     "DOCINTAKE_CLAUDE_TIMEOUT",
		"claude.requests_per_minute":         "DOCINTAKE_CLAUDE_REQUESTS_PER_MINUTE",
		"claude.endpoint":                    "DOCINTAKE_CLAUDE_ENDPOINT",
		"vertex.project_id":                  "DOCINTAKE_VERTEX_PROJECT_ID",
		"vertex.region":                      "DOCINTAKE_VERTEX_REGION",
		"vertex.model":                       "DOCINTAKE_VERTEX_MODEL",
		"vertex.credentials_file":            "DOCINTAKE_VERTEX_CREDENTIALS_FILE",
		"storage.backend":                    "DOCINTAKE_STORAGE_BACKEND",
		"storage.local_path":                 "DOCINTAKE_STORAGE_LOCAL_PATH",
		"s3.region":                          "DOCINTAKE_S3_REGION",
		"s3.bucket":                          "DOCINTAKE_S3_BUCKET",
		"s3.endpoint":                        "DOCINTAKE_S3_ENDPOINT",
		"s3.access_key":                      "DOCINTAKE_S3_ACCESS_KEY",
		"s3.secret_key":                      "DOCINTAKE_S3_SECRET_KEY",
		"gcs.bucket":                         "DOCINTAKE_GCS_BUCKET",
		"gcs.credentials_file":               "DOCINTAKE_GCS_CREDENTIALS_FILE",
		"queue.poll_interval":                "DOCINTAKE_QUEUE_POLL_INTERVAL",
		"queue.concurrency":                  "DOCINTAKE_QUEUE_CONCURRENCY",
		"queue.batch_size":                   "DOCINTAKE_QUEUE_BATCH_SIZE",
		"queue.grace_period":                 "DOCINTAKE_QUEUE_GRACE_PERIOD",
		"nats.enabled":                       "DOCINTAKE_NATS_ENABLED",
		"nats.url":                           "DOCINTAKE_NATS_URL",
		"nats.run_subject":                   "DOCINTAKE_NATS_RUN_SUBJECT",
		"nats.processed_subject":             "DOCINTAKE_NATS_PROCESSED_SUBJECT",
		"nats.queue_group":                   "DOCINTAKE_NATS_QUEUE_GROUP",
		"resilience.retry_max_attempts":      "DOCINTAKE_RESILIENCE_RETRY_MAX_ATTEMPTS",
		"resilience.retry_initial_backoff":   "DOCINTAKE_RESILIENCE_RETRY_INITIAL_BACKOFF",
		"resilience.retry_max_backoff":       "DOCINTAKE_RESILIENCE_RETRY_MAX_BACKOFF",
		"resilience.breaker_enabled":         "DOCINTAKE_RESILIENCE_BREAKER_ENABLED",
		"resilience.breaker_min_requests":    "DOCINTAKE_RESILIENCE_BREAKER_MIN_REQUESTS",
		"resilience.breaker_failure_ratio":   "DOCINTAKE_RESILIENCE_BREAKER_FAILURE_RATIO",
		"resilience.breaker_open_timeout":    "DOCINTAKE_RESILIENCE_BREAKER_OPEN_TIMEOUT",
		"resilience.breaker_half_open_calls": "DOCINTAKE_RESILIENCE_BREAKER_HALF_OPEN_CALLS",
		"webhook.pubsub_token":               "DOCINTAKE_WEBHOOK_PUBSUB_TOKEN",
	}
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	cfg := &Config{}

	// Cloud Run and similar platforms set PORT. Use it if DOCINTAKE_SERVER_PORT is not explicitly set.
	serverPort := v.GetString("server.port")
	if port := os.Getenv("PORT"); port != "" && os.Getenv("DOCINTAKE_SERVER_PORT") == "" {
		serverPort = ":" + port
	}

	cfg.Server = ServerConfig{
		Port:         serverPort,
		ReadTimeout:  v.GetDuration("server.read_timeout"),
		WriteTimeout: v.GetDuration("server.write_timeout"),
		Environment:  v.GetString("server.environment"),
	}
	cfg.DB = DBConfig{
		Host:     v.GetString("db.host"),
		Port:     v.GetInt("db.port"),
		User:     v.GetString("db.user"),
		Password: v.GetString("db.password"),
		Name:     v.GetString("db.name"),
		SSLMode:  v.GetString("db.sslmode"),
		MaxOpen:  v.GetInt("db.max_open"),
		MaxIdle:  v.GetInt("db.max_idle"),
	}
	cfg.Log = LogConfig{
		Level:  v.GetString("log.level"),
		Format: v.GetString("log.format"),
	}
	cfg.Pipeline = PipelineConfig{
		ConfidenceThreshold:  v.GetFloat64("pipeline.confidence_threshold"),
		ProcessingTimeout:    v.GetDuration("pipeline.processing_timeout"),
		ExtractorCallTimeout: v.GetDuration("pipeline.extractor_call_timeout"),
		PersistTimeout:       v.GetDuration("pipeline.persist_timeout"),
		StructuredProvider:   v.GetString("pipeline.structured_provider"),
		SemanticProvider:     v.GetString("pipeline.semantic_provider"),
		RulesFile:            v.GetString("pipeline.rules_file"),
		Prefixes: PrefixConfig{
			Inbox:      strings.Trim(v.GetString("pipeline.prefixes.inbox"), "/"),
			Processing: strings.Trim(v.GetString("pipeline.prefixes.processing"), "/"),
			Complete:   strings.Trim(v.GetString("pipeline.prefixes.complete"), "/"),
			Failed:     strings.Trim(v.GetString("pipeline.prefixes.failed"), "/"),
			Archive:    strings.Trim(v.GetString("pipeline.prefixes.archive"), "/"),
		},
	}
	cfg.DocAI = DocAIConfig{
		ProjectID:          v.GetString("docai.project_id"),
		Location:           v.GetString("docai.location"),
		FormProcessorID:    v.GetString("docai.form_processor_id"),
		InvoiceProcessorID: v.GetString("docai.invoice_processor_id"),
		OCRProcessorID:     v.GetString("docai.ocr_processor_id"),
		CredentialsFile:    v.GetString("docai.credentials_file"),
		Endpoint:           v.GetString("docai.endpoint"),
	}
	cfg.Claude = ClaudeConfig{
		APIKey:            v.GetString("claude.api_key"),
		Model:             v.GetString("claude.model"),
		MaxTokens:         v.GetInt("claude.max_tokens"),
		Timeout:           v.GetDuration("claude.timeout"),
		RequestsPerMinute: v.GetInt("claude.requests_per_minute"),
		Endpoint:          v.GetString("claude.endpoint"),
	}
	cfg.Vertex = VertexConfig{
		ProjectID:       v.GetString("vertex.project_id"),
		Region:          v.GetString("vertex.region"),
		Model:           v.GetString("vertex.model"),
		CredentialsFile: v.GetString("vertex.credentials_file"),
	}
	cfg.Storage = StorageConfig{
		Backend:   v.GetString("storage.backend"),
		LocalPath: v.GetString("storage.local_path"),
	}
	cfg.S3 = S3Config{
		Region:    v.GetString("s3.region"),
		Bucket:    v.GetString("s3.bucket"),
		Endpoint:  v.GetString("s3.endpoint"),
		AccessKey: v.GetString("s3.access_key"),
		SecretKey: v.GetString("s3.secret_key"),
	}
	cfg.GCS = GCSConfig{
		Bucket:          v.GetString("gcs.bucket"),
		CredentialsFile: v.GetString("gcs.credentials_file"),
	}
	cfg.Queue = QueueConfig{
		PollInterval: v.GetDuration("queue.poll_interval"),
		Concurrency:  v.GetInt("queue.concurrency"),
		BatchSize:    v.GetInt("queue.batch_size"),
		GracePeriod:  v.GetDuration("queue.grace_period"),
	}
	cfg.NATS = NATSConfig{
		Enabled:          v.GetBool("nats.enabled"),
		URL:              v.GetString("nats.url"),
		RunSubject:       v.GetString("nats.run_subject"),
		ProcessedSubject: v.GetString("nats.processed_subject"),
		QueueGroup:       v.GetString("nats.queue_group"),
	}
	cfg.Resilience = ResilienceConfig{
		RetryMaxAttempts:     v.GetInt("resilience.retry_max_attempts"),
		RetryInitialBackoff:  v.GetDuration("resilience.retry_initial_backoff"),
		RetryMaxBackoff:      v.GetDuration("resilience.retry_max_backoff"),
		BreakerEnabled:       v.GetBool("resilience.breaker_enabled"),
		BreakerMinRequests:   v.GetUint32("resilience.breaker_min_requests"),
		BreakerFailureRatio:  v.GetFloat64("resilience.breaker_failure_ratio"),
		BreakerOpenTimeout:   v.GetDuration("resilience.breaker_open_timeout"),
		BreakerHalfOpenCalls: v.GetUint32("resilience.breaker_half_open_calls"),
	}
	cfg.Webhook = WebhookConfig{
		PubSubToken: v.GetString("webhook.pubsub_token"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var (
	structuredProviders = map[string]bool{"docai": true, "pdftext": true}
	semanticProviders   = map[string]bool{"claude": true, "vertex": true}
	storageBackends     = map[string]bool{"s3": true, "gcs": true, "local": true}
)

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if t := c.Pipeline.ConfidenceThreshold; t < 0 || t > 1 {
		errs = append(errs, fmt.Errorf("pipeline.confidence_threshold must be within [0,1], got %v", t))
	}
	if c.Pipeline.ProcessingTimeout <= 0 {
		errs = append(errs, errors.New("pipeline.processing_timeout must be positive"))
	}
	if !structuredProviders[c.Pipeline.StructuredProvider] {
		errs = append(errs, fmt.Errorf("unknown pipeline.structured_provider %q", c.Pipeline.StructuredProvider))
	}
	if !semanticProviders[c.Pipeline.SemanticProvider] {
		errs = append(errs, fmt.Errorf("unknown pipeline.semantic_provider %q", c.Pipeline.SemanticProvider))
	}
	if !storageBackends[c.Storage.Backend] {
		errs = append(errs, fmt.Errorf("unknown storage.backend %q", c.Storage.Backend))
	}
	if c.Queue.Concurrency <= 0 {
		errs = append(errs, fmt.Errorf("queue.concurrency must be positive, got %d", c.Queue.Concurrency))
	}
	if c.Queue.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("queue.batch_size must be positive, got %d", c.Queue.BatchSize))
	}
	// Relocation replaces the first path segment, so every area is exactly one.
	for name, prefix := range map[string]string{
		"inbox":    c.Pipeline.Prefixes.Inbox,
		"complete": c.Pipeline.Prefixes.Complete,
		"failed":   c.Pipeline.Prefixes.Failed,
	} {
		if prefix == "" || strings.Contains(prefix, "/") {
			errs = append(errs, fmt.Errorf("pipeline.prefixes.%s must be a single path segment, got %q", name, prefix))
		}
	}
	return errors.Join(errs...)
}
