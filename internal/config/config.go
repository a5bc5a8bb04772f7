package config

import (
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Box         BoxConfig         `yaml:"box" mapstructure:"box"`
	Metadata    MetadataConfig    `yaml:"metadata" mapstructure:"metadata"`
	Search      SearchConfig      `yaml:"search" mapstructure:"search"`
	FileRequest FileRequestConfig `yaml:"file_request" mapstructure:"file_request"`
	Anthropic   AnthropicConfig   `yaml:"anthropic" mapstructure:"anthropic"`
	Notion      NotionConfig      `yaml:"notion" mapstructure:"notion"`
	Store       StoreConfig       `yaml:"store" mapstructure:"store"`
	Retry       RetryConfig       `yaml:"retry" mapstructure:"retry"`
	Circuit     CircuitConfig     `yaml:"circuit" mapstructure:"circuit"`
	Batch       BatchConfig       `yaml:"batch" mapstructure:"batch"`
	Server      ServerConfig      `yaml:"server" mapstructure:"server"`
	Log         LogConfig         `yaml:"log" mapstructure:"log"`
}

// BoxConfig holds Box API endpoints and credentials. DeveloperToken, when
// set, bypasses the client-credentials grant.
type BoxConfig struct {
	BaseURL        string  `yaml:"base_url" mapstructure:"base_url"`
	TokenURL       string  `yaml:"token_url" mapstructure:"token_url"`
	ClientID       string  `yaml:"client_id" mapstructure:"client_id"`
	ClientSecret   string  `yaml:"client_secret" mapstructure:"client_secret"`
	EnterpriseID   string  `yaml:"enterprise_id" mapstructure:"enterprise_id"`
	DeveloperToken string  `yaml:"developer_token" mapstructure:"developer_token"`
	RateLimit      float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// MetadataConfig configures the invoice/PO metadata workflow.
type MetadataConfig struct {
	Scope               string `yaml:"scope" mapstructure:"scope"`
	TemplateKey         string `yaml:"template_key" mapstructure:"template_key"`
	TemplateDisplayName string `yaml:"template_display_name" mapstructure:"template_display_name"`
	SchemaFile          string `yaml:"schema_file" mapstructure:"schema_file"`
	FolderID            string `yaml:"folder_id" mapstructure:"folder_id"`
	Confidence          string `yaml:"confidence" mapstructure:"confidence"`
	Suggester           string `yaml:"suggester" mapstructure:"suggester"` // box, claude
	LenientDates        bool   `yaml:"lenient_dates" mapstructure:"lenient_dates"`
	StrictPatch         bool   `yaml:"strict_patch" mapstructure:"strict_patch"`
}

// SearchConfig configures metadata queries.
type SearchConfig struct {
	StalenessBound time.Duration `yaml:"staleness_bound" mapstructure:"staleness_bound"`
	PageLimit      int           `yaml:"page_limit" mapstructure:"page_limit"`
	OrderBy        string        `yaml:"order_by" mapstructure:"order_by"`
}

// FileRequestConfig holds the template file request and its default
// destination folder.
type FileRequestConfig struct {
	TemplateID string `yaml:"template_id" mapstructure:"template_id"`
	FolderID   string `yaml:"folder_id" mapstructure:"folder_id"`
}

// AnthropicConfig holds Anthropic API settings for the Claude suggester.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// NotionConfig holds Notion API credentials for report export.
type NotionConfig struct {
	Token     string  `yaml:"token" mapstructure:"token"`
	ReportDB  string  `yaml:"report_db" mapstructure:"report_db"`
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// StoreConfig configures the local index database.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// RetryConfig configures retries of transient vendor failures.
type RetryConfig struct {
	MaxAttempts      int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int     `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int     `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
	Multiplier       float64 `yaml:"multiplier" mapstructure:"multiplier"`
	JitterFraction   float64 `yaml:"jitter_fraction" mapstructure:"jitter_fraction"`
}

// CircuitConfig configures per-service circuit breakers.
type CircuitConfig struct {
	FailureThreshold int `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	ResetTimeoutSecs int `yaml:"reset_timeout_secs" mapstructure:"reset_timeout_secs"`
}

// BatchConfig configures folder reconciliation.
type BatchConfig struct {
	MaxConcurrentFiles int `yaml:"max_concurrent_files" mapstructure:"max_concurrent_files"`
	DLQMaxRetries      int `yaml:"dlq_max_retries" mapstructure:"dlq_max_retries"`
}

// ServerConfig configures the webhook server.
type ServerConfig struct {
	Port                int      `yaml:"port" mapstructure:"port"`
	WebhookPrimaryKey   string   `yaml:"webhook_primary_key" mapstructure:"webhook_primary_key"`
	WebhookSecondaryKey string   `yaml:"webhook_secondary_key" mapstructure:"webhook_secondary_key"`
	CORSOrigins         []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Modes accepted by Validate.
const (
	ModeBox         = "box"
	ModeReconcile   = "reconcile"
	ModeSearch      = "search"
	ModeFileRequest = "file_request"
	ModeServe       = "serve"
	ModeStore       = "store"
)

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("BOXFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Every key gets a default so AutomaticEnv can see it during Unmarshal.
	v.SetDefault("box.base_url", "https://api.box.com/2.0")
	v.SetDefault("box.token_url", "https://api.box.com/oauth2/token")
	v.SetDefault("box.client_id", "")
	v.SetDefault("box.client_secret", "")
	v.SetDefault("box.enterprise_id", "")
	v.SetDefault("box.developer_token", "")
	v.SetDefault("box.rate_limit", 10.0)
	v.SetDefault("metadata.scope", "enterprise")
	v.SetDefault("metadata.template_key", "invoicePO")
	v.SetDefault("metadata.template_display_name", "Invoice & PO")
	v.SetDefault("metadata.schema_file", "")
	v.SetDefault("metadata.folder_id", "")
	v.SetDefault("metadata.confidence", "experimental")
	v.SetDefault("metadata.suggester", "box")
	v.SetDefault("metadata.lenient_dates", false)
	v.SetDefault("metadata.strict_patch", false)
	v.SetDefault("search.staleness_bound", 5*time.Minute)
	v.SetDefault("search.page_limit", 100)
	v.SetDefault("search.order_by", "invoiceNumber")
	v.SetDefault("file_request.template_id", "")
	v.SetDefault("file_request.folder_id", "")
	v.SetDefault("anthropic.key", "")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 1024)
	v.SetDefault("notion.token", "")
	v.SetDefault("notion.report_db", "")
	v.SetDefault("notion.rate_limit", 3.0)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "boxflow.db")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.initial_backoff_ms", 500)
	v.SetDefault("retry.max_backoff_ms", 30000)
	v.SetDefault("retry.multiplier", 2.0)
	v.SetDefault("retry.jitter_fraction", 0.25)
	v.SetDefault("circuit.failure_threshold", 5)
	v.SetDefault("circuit.reset_timeout_secs", 30)
	v.SetDefault("batch.max_concurrent_files", 5)
	v.SetDefault("batch.dlq_max_retries", 3)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.webhook_primary_key", "")
	v.SetDefault("server.webhook_secondary_key", "")
	v.SetDefault("server.cors_origins", []string{})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks that the settings a command mode depends on are present.
func (c *Config) Validate(mode string) error {
	var err error
	switch mode {
	case ModeBox:
		err = c.validateBox()
	case ModeReconcile:
		err = c.validateBox()
		if err == nil {
			err = validation.ValidateStruct(&c.Metadata,
				validation.Field(&c.Metadata.Scope, validation.Required),
				validation.Field(&c.Metadata.TemplateKey, validation.Required, validation.Length(1, 64)),
				validation.Field(&c.Metadata.Suggester, validation.In("box", "claude")),
			)
		}
		if err == nil && c.Metadata.Suggester == "claude" {
			err = validation.Validate(c.Anthropic.Key, validation.Required.Error("anthropic.key is required for the claude suggester"))
		}
	case ModeSearch:
		err = c.validateBox()
		if err == nil {
			err = validation.ValidateStruct(&c.Search,
				validation.Field(&c.Search.StalenessBound, validation.Required),
				validation.Field(&c.Search.PageLimit, validation.Min(1), validation.Max(100)),
			)
		}
	case ModeFileRequest:
		err = c.validateBox()
	case ModeServe:
		err = c.validateBox()
		if err == nil {
			err = validation.ValidateStruct(&c.Server,
				validation.Field(&c.Server.Port, validation.Required, validation.Min(1), validation.Max(65535)),
				validation.Field(&c.Server.WebhookPrimaryKey, validation.Required),
			)
		}
	case ModeStore:
		err = validation.ValidateStruct(&c.Store,
			validation.Field(&c.Store.Driver, validation.Required, validation.In("sqlite", "postgres")),
			validation.Field(&c.Store.DatabaseURL, validation.Required),
		)
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}
	if err != nil {
		return eris.Wrapf(err, "config: validate %s", mode)
	}
	return nil
}

func (c *Config) validateBox() error {
	if c.Box.DeveloperToken != "" {
		return nil
	}
	return validation.ValidateStruct(&c.Box,
		validation.Field(&c.Box.ClientID, validation.Required),
		validation.Field(&c.Box.ClientSecret, validation.Required),
		validation.Field(&c.Box.EnterpriseID, validation.Required),
	)
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
