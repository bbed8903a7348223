package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Apollo     ApolloConfig     `yaml:"apollo" mapstructure:"apollo"`
	AI         AIConfig         `yaml:"ai" mapstructure:"ai"`
	Enrich     EnrichConfig     `yaml:"enrich" mapstructure:"enrich"`
	Search     SearchConfig     `yaml:"search" mapstructure:"search"`
	Pipeline   PipelineConfig   `yaml:"pipeline" mapstructure:"pipeline"`
	Salesforce SalesforceConfig `yaml:"salesforce" mapstructure:"salesforce"`
	NATS       NATSConfig       `yaml:"nats" mapstructure:"nats"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
	AgentCache AgentCacheConfig `yaml:"agent_cache" mapstructure:"agent_cache"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver           string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL      string `yaml:"database_url" mapstructure:"database_url"`
	WriteTimeoutSecs int    `yaml:"write_timeout_secs" mapstructure:"write_timeout_secs"`
}

// ApolloConfig holds the contact-search provider settings.
type ApolloConfig struct {
	Key       string  `yaml:"key" mapstructure:"key"`
	BaseURL   string  `yaml:"base_url" mapstructure:"base_url"`
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// AIConfig selects and tunes the completion provider.
type AIConfig struct {
	Provider        string          `yaml:"provider" mapstructure:"provider"`
	CallTimeoutSecs int             `yaml:"call_timeout_secs" mapstructure:"call_timeout_secs"`
	Anthropic       ModelConfig     `yaml:"anthropic" mapstructure:"anthropic"`
	Gemini          ModelConfig     `yaml:"gemini" mapstructure:"gemini"`
	Retry           RetryConfig     `yaml:"retry" mapstructure:"retry"`
	Circuit         CircuitConfig   `yaml:"circuit" mapstructure:"circuit"`
	Temperature     TemperatureSets `yaml:"temperature" mapstructure:"temperature"`
}

// ModelConfig is an API key and model id for one provider.
type ModelConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// RetryConfig tunes transient retries of completion calls.
type RetryConfig struct {
	MaxAttempts      int `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
}

// CircuitConfig tunes the per-provider circuit breaker.
type CircuitConfig struct {
	FailureThreshold int `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	ResetTimeoutSecs int `yaml:"reset_timeout_secs" mapstructure:"reset_timeout_secs"`
}

// TemperatureSets holds sampling temperatures per generation stage.
type TemperatureSets struct {
	Enrich float64 `yaml:"enrich" mapstructure:"enrich"`
	Email  float64 `yaml:"email" mapstructure:"email"`
	Voice  float64 `yaml:"voice" mapstructure:"voice"`
}

// EnrichConfig configures the enrichment worker pool.
type EnrichConfig struct {
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency"`
}

// SearchConfig configures lead search.
type SearchConfig struct {
	TimeoutSecs int `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// PipelineConfig configures a full run.
type PipelineConfig struct {
	RunTimeoutSecs int  `yaml:"run_timeout_secs" mapstructure:"run_timeout_secs"`
	ExportHotLeads bool `yaml:"export_hot_leads" mapstructure:"export_hot_leads"`
}

// SalesforceConfig holds Salesforce JWT auth settings.
type SalesforceConfig struct {
	ClientID  string  `yaml:"client_id" mapstructure:"client_id"`
	Username  string  `yaml:"username" mapstructure:"username"`
	KeyPath   string  `yaml:"key_path" mapstructure:"key_path"`
	LoginURL  string  `yaml:"login_url" mapstructure:"login_url"`
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	BatchSize int     `yaml:"batch_size" mapstructure:"batch_size"`
}

// Enabled reports whether enough settings exist to authenticate.
func (c SalesforceConfig) Enabled() bool {
	return c.ClientID != "" && c.Username != "" && c.KeyPath != ""
}

// NATSConfig configures the engagement event consumer.
type NATSConfig struct {
	URL     string `yaml:"url" mapstructure:"url"`
	Subject string `yaml:"subject" mapstructure:"subject"`
	Queue   string `yaml:"queue" mapstructure:"queue"`
}

// ServerConfig configures the webhook server.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// AgentCacheConfig configures the voice agent lookup cache.
type AgentCacheConfig struct {
	TTLMinutes int               `yaml:"ttl_minutes" mapstructure:"ttl_minutes"`
	Seed       map[string]string `yaml:"seed" mapstructure:"seed"`
}

// MonitoringConfig configures run health alerts.
type MonitoringConfig struct {
	WebhookURL            string  `yaml:"webhook_url" mapstructure:"webhook_url"`
	DegradedRateThreshold float64 `yaml:"degraded_rate_threshold" mapstructure:"degraded_rate_threshold"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("LEADFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults. Secrets default to "" so AutomaticEnv can bind them.
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.write_timeout_secs", 10)
	v.SetDefault("apollo.key", "")
	v.SetDefault("apollo.base_url", "https://api.apollo.io")
	v.SetDefault("apollo.rate_limit", 2.0)
	v.SetDefault("ai.provider", "anthropic")
	v.SetDefault("ai.call_timeout_secs", 90)
	v.SetDefault("ai.anthropic.key", "")
	v.SetDefault("ai.anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("ai.gemini.key", "")
	v.SetDefault("ai.gemini.model", "gemini-2.5-flash")
	v.SetDefault("ai.retry.max_attempts", 3)
	v.SetDefault("ai.retry.initial_backoff_ms", 500)
	v.SetDefault("ai.retry.max_backoff_ms", 10000)
	v.SetDefault("ai.circuit.failure_threshold", 5)
	v.SetDefault("ai.circuit.reset_timeout_secs", 30)
	v.SetDefault("ai.temperature.enrich", 0.4)
	v.SetDefault("ai.temperature.email", 0.7)
	v.SetDefault("ai.temperature.voice", 0.7)
	v.SetDefault("enrich.concurrency", 5)
	v.SetDefault("search.timeout_secs", 30)
	v.SetDefault("pipeline.run_timeout_secs", 900)
	v.SetDefault("pipeline.export_hot_leads", false)
	v.SetDefault("salesforce.client_id", "")
	v.SetDefault("salesforce.username", "")
	v.SetDefault("salesforce.key_path", "")
	v.SetDefault("salesforce.login_url", "https://login.salesforce.com")
	v.SetDefault("salesforce.rate_limit", 5.0)
	v.SetDefault("salesforce.batch_size", 200)
	v.SetDefault("nats.url", "")
	v.SetDefault("nats.subject", "leadflow.engagement.email")
	v.SetDefault("nats.queue", "leadflow")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("agent_cache.ttl_minutes", 60)
	v.SetDefault("monitoring.webhook_url", "")
	v.SetDefault("monitoring.degraded_rate_threshold", 0.5)

	// Read config file (optional)
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
