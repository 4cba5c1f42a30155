package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

type LookupFunc func(string) (string, bool)

type Profile string

const (
	ProfileDev  Profile = "dev"
	ProfileTest Profile = "test"
	ProfileProd Profile = "prod"
)

// OracleServices are the Oracle-backed backend identifiers, each with its own
// service name and credentials on a shared host.
var OracleServices = []string{"SINONIMI", "SHOPSTER", "VIRGA_TEST", "VIRGA"}

type Config struct {
	Profile       Profile
	Service       ServiceConfig
	HTTP          HTTPConfig
	Slack         SlackConfig
	Pipeline      PipelineConfig
	AI            AIConfig
	Backends      BackendsConfig
	Results       ResultsConfig
	Archive       ArchiveConfig
	Idempotency   IdempotencyConfig
	Audit         AuditConfig
	Retention     RetentionConfig
	Observability ObservabilityConfig
	Auth          AuthConfig
}

type ServiceConfig struct {
	Name string
}

type HTTPConfig struct {
	Address      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type SlackConfig struct {
	BotToken   string
	AppToken   string
	Mode       string
	APIBaseURL string
	Timeout    time.Duration
}

type PipelineConfig struct {
	TriggerWord    string
	DefaultBackend string
	Timeout        time.Duration
	// DownloadDir receives files shared into a channel.
	DownloadDir    string
}

type AIConfig struct {
	Provider    string
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
	Schema      string
}

type BackendsConfig struct {
	QueryTimeout time.Duration
	MaxRows      int
	Vertica      VerticaConfig
	Oracle       OracleConfig
	Postgres     PostgresConfig
	DuckDB       DuckDBConfig
}

type VerticaConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
}

type OracleConfig struct {
	Host     string
	Port     int
	Services map[string]OracleServiceConfig
}

type OracleServiceConfig struct {
	ServiceName string
	User        string
	Password    string
}

type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

type DuckDBConfig struct {
	Path string
}

type ResultsConfig struct {
	Dir            string
	Prefix         string
	Format         string
	PreviewRows    int
	PreviewColumns int
}

type ArchiveConfig struct {
	Enabled          bool
	Endpoint         string
	Region           string
	Bucket           string
	AccessKeyID      string
	SecretAccessKey  string
	UseSSL           bool
	Prefix           string
	AutoCreateBucket bool
}

type IdempotencyConfig struct {
	Store       string
	RedisURL    string
	KeyPrefix   string
	TTL         time.Duration
	PostgresDSN string
}

type AuditConfig struct {
	Sink           string
	NATSURL        string
	NATSToken      string
	NATSSubject    string
	AMQPURL        string
	AMQPExchange   string
	AMQPRoutingKey string
}

type RetentionConfig struct {
	Enabled      bool
	Interval     time.Duration
	MaxFileAge   time.Duration
	SlackFileTTL time.Duration
}

type ObservabilityConfig struct {
	LogLevel slog.Level
	LogJSON  bool
}

type AuthConfig struct {
	Required   bool
	StaticKeys string
}

func LoadFromEnv(serviceName string) (Config, error) {
	return Load(serviceName, os.LookupEnv)
}

func Load(serviceName string, lookup LookupFunc) (Config, error) {
	if lookup == nil {
		return Config{}, fmt.Errorf("lookup function is required")
	}

	profile := ProfileDev
	if raw, ok := lookup("SQLOSLAV_PROFILE"); ok {
		profile = Profile(strings.ToLower(strings.TrimSpace(raw)))
	}
	if !isValidProfile(profile) {
		return Config{}, fmt.Errorf("invalid SQLOSLAV_PROFILE: %q", profile)
	}

	cfg := defaultsForProfile(profile)
	if serviceName != "" {
		cfg.Service.Name = serviceName
	}

	loaders := []func(LookupFunc, *Config) error{
		loadService,
		loadSlack,
		loadPipeline,
		loadAI,
		loadBackends,
		loadResults,
		loadArchive,
		loadIdempotency,
		loadAudit,
		loadRetention,
		loadObservability,
	}
	for _, load := range loaders {
		if err := load(lookup, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadService(lookup LookupFunc, cfg *Config) error {
	if err := applyString(lookup, "SQLOSLAV_SERVICE_NAME", &cfg.Service.Name); err != nil {
		return err
	}
	if err := applyString(lookup, "SQLOSLAV_HTTP_ADDR", &cfg.HTTP.Address); err != nil {
		return err
	}
	if err := applyDuration(lookup, "SQLOSLAV_HTTP_READ_TIMEOUT", &cfg.HTTP.ReadTimeout); err != nil {
		return err
	}
	if err := applyDuration(lookup, "SQLOSLAV_HTTP_WRITE_TIMEOUT", &cfg.HTTP.WriteTimeout); err != nil {
		return err
	}
	if err := applyDuration(lookup, "SQLOSLAV_HTTP_IDLE_TIMEOUT", &cfg.HTTP.IdleTimeout); err != nil {
		return err
	}
	if err := applyBool(lookup, "SQLOSLAV_AUTH_REQUIRED", &cfg.Auth.Required); err != nil {
		return err
	}
	return applyString(lookup, "SQLOSLAV_AUTH_STATIC_KEYS", &cfg.Auth.StaticKeys)
}

func loadSlack(lookup LookupFunc, cfg *Config) error {
	if err := applyString(lookup, "SLACK_BOT_TOKEN", &cfg.Slack.BotToken); err != nil {
		return err
	}
	if err := applyString(lookup, "SQLOSLAV_SLACK_BOT_TOKEN", &cfg.Slack.BotToken); err != nil {
		return err
	}
	if err := applyString(lookup, "SLACK_APP_TOKEN", &cfg.Slack.AppToken); err != nil {
		return err
	}
	if err := applyString(lookup, "SQLOSLAV_SLACK_APP_TOKEN", &cfg.Slack.AppToken); err != nil {
		return err
	}
	if err := applyString(lookup, "SQLOSLAV_SLACK_MODE", &cfg.Slack.Mode); err != nil {
		return err
	}
	cfg.Slack.Mode = strings.ToLower(cfg.Slack.Mode)
	if err := applyString(lookup, "SQLOSLAV_SLACK_API_BASE_URL", &cfg.Slack.APIBaseURL); err != nil {
		return err
	}
	return applyDuration(lookup, "SQLOSLAV_SLACK_TIMEOUT", &cfg.Slack.Timeout)
}

func loadPipeline(lookup LookupFunc, cfg *Config) error {
	if err := applyString(lookup, "SQLOSLAV_TRIGGER_WORD", &cfg.Pipeline.TriggerWord); err != nil {
		return err
	}
	if err := applyString(lookup, "SQLOSLAV_DEFAULT_BACKEND", &cfg.Pipeline.DefaultBackend); err != nil {
		return err
	}
	cfg.Pipeline.DefaultBackend = strings.ToUpper(cfg.Pipeline.DefaultBackend)
	if err := applyString(lookup, "SQLOSLAV_DOWNLOAD_DIR", &cfg.Pipeline.DownloadDir); err != nil {
		return err
	}
	return applyDuration(lookup, "SQLOSLAV_PIPELINE_TIMEOUT", &cfg.Pipeline.Timeout)
}

func loadAI(lookup LookupFunc, cfg *Config) error {
	legacy := []struct {
		key string
		dst *string
	}{
		{"LLM_PROVIDER", &cfg.AI.Provider},
		{"MISTRAL_API_KEY", &cfg.AI.APIKey},
		{"MISTRAL_MODEL", &cfg.AI.Model},
		{"DB_SCHEMA", &cfg.AI.Schema},
	}
	for _, item := range legacy {
		if err := applyString(lookup, item.key, item.dst); err != nil {
			return err
		}
	}
	if err := applyString(lookup, "SQLOSLAV_AI_PROVIDER", &cfg.AI.Provider); err != nil {
		return err
	}
	cfg.AI.Provider = strings.ToLower(cfg.AI.Provider)
	if err := applyString(lookup, "SQLOSLAV_AI_BASE_URL", &cfg.AI.BaseURL); err != nil {
		return err
	}
	if err := applyString(lookup, "SQLOSLAV_AI_API_KEY", &cfg.AI.APIKey); err != nil {
		return err
	}
	if err := applyString(lookup, "SQLOSLAV_AI_MODEL", &cfg.AI.Model); err != nil {
		return err
	}
	if err := applyFloat(lookup, "SQLOSLAV_AI_TEMPERATURE", &cfg.AI.Temperature); err != nil {
		return err
	}
	if err := applyInt(lookup, "SQLOSLAV_AI_MAX_TOKENS", &cfg.AI.MaxTokens); err != nil {
		return err
	}
	if err := applyDuration(lookup, "SQLOSLAV_AI_TIMEOUT", &cfg.AI.Timeout); err != nil {
		return err
	}
	return applyString(lookup, "SQLOSLAV_AI_SCHEMA", &cfg.AI.Schema)
}

func loadBackends(lookup LookupFunc, cfg *Config) error {
	if err := applyDuration(lookup, "SQLOSLAV_QUERY_TIMEOUT", &cfg.Backends.QueryTimeout); err != nil {
		return err
	}
	if err := applyInt(lookup, "SQLOSLAV_QUERY_MAX_ROWS", &cfg.Backends.MaxRows); err != nil {
		return err
	}

	v := &cfg.Backends.Vertica
	if err := applyString(lookup, "VERTICA_HOST", &v.Host); err != nil {
		return err
	}
	if err := applyInt(lookup, "VERTICA_PORT", &v.Port); err != nil {
		return err
	}
	if err := applyString(lookup, "VERTICA_USER", &v.User); err != nil {
		return err
	}
	if err := applyString(lookup, "VERTICA_PASSWORD", &v.Password); err != nil {
		return err
	}
	if err := applyString(lookup, "VERTICA_DATABASE", &v.Database); err != nil {
		return err
	}

	o := &cfg.Backends.Oracle
	if err := applyString(lookup, "ORACLE_HOST", &o.Host); err != nil {
		return err
	}
	if err := applyInt(lookup, "ORACLE_PORT", &o.Port); err != nil {
		return err
	}
	for _, name := range OracleServices {
		service := o.Services[name]
		if err := applyString(lookup, "ORACLE_"+name+"_SERVICE_NAME", &service.ServiceName); err != nil {
			return err
		}
		if err := applyString(lookup, "ORACLE_"+name+"_USER", &service.User); err != nil {
			return err
		}
		if err := applyString(lookup, "ORACLE_"+name+"_PASSWORD", &service.Password); err != nil {
			return err
		}
		o.Services[name] = service
	}

	p := &cfg.Backends.Postgres
	if err := applyString(lookup, "POSTGRES_HOST", &p.Host); err != nil {
		return err
	}
	if err := applyInt(lookup, "POSTGRES_PORT", &p.Port); err != nil {
		return err
	}
	if err := applyString(lookup, "POSTGRES_USER", &p.User); err != nil {
		return err
	}
	if err := applyString(lookup, "POSTGRES_PASSWORD", &p.Password); err != nil {
		return err
	}
	if err := applyString(lookup, "POSTGRES_DB", &p.Database); err != nil {
		return err
	}
	if err := applyString(lookup, "POSTGRES_SSLMODE", &p.SSLMode); err != nil {
		return err
	}

	return applyString(lookup, "SQLOSLAV_DUCKDB_PATH", &cfg.Backends.DuckDB.Path)
}

func loadResults(lookup LookupFunc, cfg *Config) error {
	if err := applyString(lookup, "SQLOSLAV_RESULTS_DIR", &cfg.Results.Dir); err != nil {
		return err
	}
	if err := applyString(lookup, "SQLOSLAV_RESULTS_PREFIX", &cfg.Results.Prefix); err != nil {
		return err
	}
	if err := applyString(lookup, "SQLOSLAV_RESULTS_FORMAT", &cfg.Results.Format); err != nil {
		return err
	}
	cfg.Results.Format = strings.ToLower(cfg.Results.Format)
	if err := applyInt(lookup, "SQLOSLAV_RESULTS_PREVIEW_ROWS", &cfg.Results.PreviewRows); err != nil {
		return err
	}
	return applyInt(lookup, "SQLOSLAV_RESULTS_PREVIEW_COLUMNS", &cfg.Results.PreviewColumns)
}

func loadArchive(lookup LookupFunc, cfg *Config) error {
	a := &cfg.Archive
	if err := applyBool(lookup, "SQLOSLAV_ARCHIVE_ENABLED", &a.Enabled); err != nil {
		return err
	}
	if err := applyString(lookup, "SQLOSLAV_ARCHIVE_ENDPOINT", &a.Endpoint); err != nil {
		return err
	}
	if err := applyString(lookup, "SQLOSLAV_ARCHIVE_REGION", &a.Region); err != nil {
		return err
	}
	if err := applyString(lookup, "SQLOSLAV_ARCHIVE_BUCKET", &a.Bucket); err != nil {
		return err
	}
	if err := applyString(lookup, "SQLOSLAV_ARCHIVE_ACCESS_KEY", &a.AccessKeyID); err != nil {
		return err
	}
	if err := applyString(lookup, "SQLOSLAV_ARCHIVE_SECRET_KEY", &a.SecretAccessKey); err != nil {
		return err
	}
	if err := applyBool(lookup, "SQLOSLAV_ARCHIVE_USE_SSL", &a.UseSSL); err != nil {
		return err
	}
	if err := applyString(lookup, "SQLOSLAV_ARCHIVE_PREFIX", &a.Prefix); err != nil {
		return err
	}
	return applyBool(lookup, "SQLOSLAV_ARCHIVE_AUTO_CREATE_BUCKET", &a.AutoCreateBucket)
}

func loadIdempotency(lookup LookupFunc, cfg *Config) error {
	i := &cfg.Idempotency
	if err := applyString(lookup, "SQLOSLAV_IDEMPOTENCY_STORE", &i.Store); err != nil {
		return err
	}
	i.Store = strings.ToLower(i.Store)
	if err := applyString(lookup, "SQLOSLAV_IDEMPOTENCY_REDIS_URL", &i.RedisURL); err != nil {
		return err
	}
	if err := applyString(lookup, "SQLOSLAV_IDEMPOTENCY_KEY_PREFIX", &i.KeyPrefix); err != nil {
		return err
	}
	if err := applyDuration(lookup, "SQLOSLAV_IDEMPOTENCY_TTL", &i.TTL); err != nil {
		return err
	}
	return applyString(lookup, "SQLOSLAV_IDEMPOTENCY_POSTGRES_DSN", &i.PostgresDSN)
}

func loadAudit(lookup LookupFunc, cfg *Config) error {
	a := &cfg.Audit
	if err := applyString(lookup, "SQLOSLAV_AUDIT_SINK", &a.Sink); err != nil {
		return err
	}
	a.Sink = strings.ToLower(a.Sink)
	if err := applyString(lookup, "SQLOSLAV_AUDIT_NATS_URL", &a.NATSURL); err != nil {
		return err
	}
	if err := applyString(lookup, "SQLOSLAV_AUDIT_NATS_TOKEN", &a.NATSToken); err != nil {
		return err
	}
	if err := applyString(lookup, "SQLOSLAV_AUDIT_NATS_SUBJECT", &a.NATSSubject); err != nil {
		return err
	}
	if err := applyString(lookup, "SQLOSLAV_AUDIT_AMQP_URL", &a.AMQPURL); err != nil {
		return err
	}
	if err := applyString(lookup, "SQLOSLAV_AUDIT_AMQP_EXCHANGE", &a.AMQPExchange); err != nil {
		return err
	}
	return applyString(lookup, "SQLOSLAV_AUDIT_AMQP_ROUTING_KEY", &a.AMQPRoutingKey)
}

func loadRetention(lookup LookupFunc, cfg *Config) error {
	r := &cfg.Retention
	if err := applyBool(lookup, "SQLOSLAV_RETENTION_ENABLED", &r.Enabled); err != nil {
		return err
	}
	if err := applyDuration(lookup, "SQLOSLAV_RETENTION_INTERVAL", &r.Interval); err != nil {
		return err
	}
	if err := applyDuration(lookup, "SQLOSLAV_RETENTION_MAX_AGE", &r.MaxFileAge); err != nil {
		return err
	}
	return applyDuration(lookup, "SQLOSLAV_RETENTION_SLACK_FILE_TTL", &r.SlackFileTTL)
}

func loadObservability(lookup LookupFunc, cfg *Config) error {
	if err := applyBool(lookup, "SQLOSLAV_LOG_JSON", &cfg.Observability.LogJSON); err != nil {
		return err
	}
	return applyLogLevel(lookup, "SQLOSLAV_LOG_LEVEL", &cfg.Observability.LogLevel)
}

func validate(cfg Config) error {
	if cfg.Service.Name == "" {
		return fmt.Errorf("service name is required")
	}
	if cfg.HTTP.Address == "" {
		return fmt.Errorf("http address is required")
	}
	if strings.TrimSpace(cfg.Pipeline.TriggerWord) == "" {
		return fmt.Errorf("trigger word is required")
	}
	if cfg.Pipeline.DefaultBackend == "" {
		return fmt.Errorf("default backend is required")
	}
	if err := oneOf("SQLOSLAV_SLACK_MODE", cfg.Slack.Mode, "webhook", "socket"); err != nil {
		return err
	}
	if cfg.Slack.Mode == "socket" && cfg.Slack.AppToken == "" {
		return fmt.Errorf("slack app token is required in socket mode")
	}
	if cfg.Profile == ProfileProd && cfg.Slack.BotToken == "" {
		return fmt.Errorf("slack bot token is required in prod")
	}
	if err := oneOf("SQLOSLAV_AI_PROVIDER", cfg.AI.Provider, "mistral", "openai", "anthropic"); err != nil {
		return err
	}
	if cfg.Backends.MaxRows < 0 {
		return fmt.Errorf("query max rows must not be negative")
	}
	if err := oneOf("SQLOSLAV_RESULTS_FORMAT", cfg.Results.Format, "csv", "parquet", "jsonl"); err != nil {
		return err
	}
	if cfg.Results.PreviewRows <= 0 || cfg.Results.PreviewColumns <= 0 {
		return fmt.Errorf("results preview rows and columns must be positive")
	}
	if err := oneOf("SQLOSLAV_IDEMPOTENCY_STORE", cfg.Idempotency.Store, "memory", "redis", "postgres"); err != nil {
		return err
	}
	if cfg.Idempotency.Store == "postgres" && cfg.Idempotency.PostgresDSN == "" {
		return fmt.Errorf("idempotency postgres dsn is required when store is postgres")
	}
	if err := oneOf("SQLOSLAV_AUDIT_SINK", cfg.Audit.Sink, "none", "nats", "amqp"); err != nil {
		return err
	}
	if cfg.Audit.Sink == "nats" && cfg.Audit.NATSURL == "" {
		return fmt.Errorf("audit nats url is required when sink is nats")
	}
	if cfg.Audit.Sink == "amqp" && cfg.Audit.AMQPURL == "" {
		return fmt.Errorf("audit amqp url is required when sink is amqp")
	}
	if cfg.Retention.Enabled && cfg.Retention.Interval <= 0 {
		return fmt.Errorf("retention interval must be positive")
	}
	return nil
}

func defaultsForProfile(profile Profile) Config {
	cfg := Config{
		Profile: profile,
		Service: ServiceConfig{Name: "sqloslav"},
		HTTP: HTTPConfig{
			Address:      ":8080",
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Slack: SlackConfig{
			Mode:       "webhook",
			APIBaseURL: "https://slack.com/api",
			Timeout:    30 * time.Second,
		},
		Pipeline: PipelineConfig{
			TriggerWord:    "sqloslav",
			DefaultBackend: "POSTGRES",
			Timeout:        5 * time.Minute,
			DownloadDir:    "downloads",
		},
		AI: AIConfig{
			Provider:    "mistral",
			Temperature: 0.1,
			MaxTokens:   1000,
			Timeout:     30 * time.Second,
			Schema:      "star_dwh",
		},
		Backends: BackendsConfig{
			QueryTimeout: 60 * time.Second,
			MaxRows:      100000,
			Vertica:      VerticaConfig{Port: 5433},
			Oracle: OracleConfig{
				Port:     1521,
				Services: map[string]OracleServiceConfig{},
			},
			Postgres: PostgresConfig{
				Host:     "postgres",
				Port:     5432,
				User:     "admin",
				Password: "admin",
				Database: "sqloslav_dwh",
				SSLMode:  "disable",
			},
		},
		Results: ResultsConfig{
			Dir:            "output",
			Prefix:         "query_result",
			Format:         "csv",
			PreviewRows:    5,
			PreviewColumns: 5,
		},
		Archive: ArchiveConfig{
			Enabled:          false,
			Endpoint:         "localhost:9000",
			Region:           "us-east-1",
			Bucket:           "sqloslav",
			AccessKeyID:      "minio",
			SecretAccessKey:  "miniostorage",
			Prefix:           "results",
			AutoCreateBucket: true,
		},
		Idempotency: IdempotencyConfig{
			Store:     "memory",
			RedisURL:  "redis://localhost:6379/0",
			KeyPrefix: "sqloslav:event:",
			TTL:       24 * time.Hour,
		},
		Audit: AuditConfig{
			Sink:           "none",
			NATSSubject:    "sqloslav.query.executed",
			AMQPExchange:   "sqloslav.audit",
			AMQPRoutingKey: "query.executed",
		},
		Retention: RetentionConfig{
			Enabled:    true,
			Interval:   10 * time.Minute,
			MaxFileAge: 24 * time.Hour,
		},
		Observability: ObservabilityConfig{
			LogLevel: slog.LevelDebug,
			LogJSON:  true,
		},
	}

	switch profile {
	case ProfileTest:
		cfg.HTTP.Address = ":18080"
		cfg.Observability.LogLevel = slog.LevelWarn
		cfg.Retention.Enabled = false
	case ProfileProd:
		cfg.Observability.LogLevel = slog.LevelInfo
		cfg.Auth.Required = true
		cfg.Archive.UseSSL = true
		cfg.Archive.AutoCreateBucket = false
	}

	return cfg
}

func isValidProfile(profile Profile) bool {
	switch profile {
	case ProfileDev, ProfileTest, ProfileProd:
		return true
	default:
		return false
	}
}

func oneOf(key, value string, allowed ...string) error {
	for _, candidate := range allowed {
		if value == candidate {
			return nil
		}
	}
	return fmt.Errorf("invalid %s: %q (allowed: %s)", key, value, strings.Join(allowed, ", "))
}

func applyString(lookup LookupFunc, key string, dst *string) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	*dst = strings.TrimSpace(raw)
	return nil
}

func applyDuration(lookup LookupFunc, key string, dst *time.Duration) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyBool(lookup LookupFunc, key string, dst *bool) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyInt(lookup LookupFunc, key string, dst *int) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyFloat(lookup LookupFunc, key string, dst *float64) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyLogLevel(lookup LookupFunc, key string, dst *slog.Level) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	level := strings.ToLower(strings.TrimSpace(raw))
	switch level {
	case "debug":
		*dst = slog.LevelDebug
	case "info":
		*dst = slog.LevelInfo
	case "warn", "warning":
		*dst = slog.LevelWarn
	case "error":
		*dst = slog.LevelError
	default:
		return fmt.Errorf("invalid %s: %q", key, raw)
	}
	return nil
}
