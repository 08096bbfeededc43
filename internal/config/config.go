// Package config loads and validates indexer configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/showcaselabs/showcase-indexer/internal/indexer"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Indexer IndexerConfig `mapstructure:"indexer"`
	AI      AIConfig      `mapstructure:"ai"`
	Storage StorageConfig `mapstructure:"storage"`
	Store   StoreConfig   `mapstructure:"store"`
	PubSub  PubSubConfig  `mapstructure:"pubsub"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior in serve mode.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// IndexerConfig governs the scheduler and extraction stage.
type IndexerConfig struct {
	Concurrency     int    `mapstructure:"concurrency"`
	NavTimeoutSec   int    `mapstructure:"nav_timeout_seconds"`
	QuietTimeoutSec int    `mapstructure:"quiet_timeout_seconds"`
	UserAgent       string `mapstructure:"user_agent"`
}

// AIConfig selects and tunes the enrichment provider. Exactly one of the
// two API keys must be set.
type AIConfig struct {
	OpenAIAPIKey    string  `mapstructure:"openai_api_key"`
	AnthropicAPIKey string  `mapstructure:"anthropic_api_key"`
	OpenAIModel     string  `mapstructure:"openai_model"`
	AnthropicModel  string  `mapstructure:"anthropic_model"`
	Temperature     float64 `mapstructure:"temperature"`
}

// StorageConfig selects the screenshot blob store. Provider "none" disables
// image persistence; screenshots are still produced.
type StorageConfig struct {
	Provider string `mapstructure:"provider"`
	Bucket   string `mapstructure:"bucket"`
	Prefix   string `mapstructure:"prefix"`

	// S3/R2 settings.
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	PublicURL       string `mapstructure:"public_url"`
}

// StoreConfig selects the app upsert sink.
type StoreConfig struct {
	Provider string `mapstructure:"provider"`

	// rpc settings.
	Endpoint string `mapstructure:"endpoint"`
	APIKey   string `mapstructure:"api_key"`

	// postgres settings.
	DSN   string `mapstructure:"dsn"`
	Table string `mapstructure:"table"`
}

// PubSubConfig holds metadata for completion-event notifications.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("INDEXER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("indexer.concurrency", 3)
	v.SetDefault("indexer.nav_timeout_seconds", 30)
	v.SetDefault("indexer.quiet_timeout_seconds", 5)
	v.SetDefault("indexer.user_agent", "showcase-indexer/1.0")
	v.SetDefault("ai.openai_api_key", "")
	v.SetDefault("ai.anthropic_api_key", "")
	v.SetDefault("ai.openai_model", "gpt-4o-mini")
	v.SetDefault("ai.anthropic_model", "claude-3-5-haiku-20241022")
	v.SetDefault("ai.temperature", 0.3)
	v.SetDefault("storage.provider", "none")
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.prefix", "")
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.region", "auto")
	v.SetDefault("storage.access_key_id", "")
	v.SetDefault("storage.secret_access_key", "")
	v.SetDefault("storage.public_url", "")
	v.SetDefault("store.provider", "none")
	v.SetDefault("store.endpoint", "")
	v.SetDefault("store.api_key", "")
	v.SetDefault("store.dsn", "")
	v.SetDefault("store.table", "apps")
	v.SetDefault("pubsub.project_id", "")
	v.SetDefault("pubsub.topic_name", "")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits. All violations
// are configuration errors: the run must not start.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return indexer.NewConfigError("server.port must be > 0")
	}
	if c.Indexer.Concurrency <= 0 {
		return indexer.NewConfigError("indexer.concurrency must be > 0")
	}
	if c.Indexer.NavTimeoutSec <= 0 {
		return indexer.NewConfigError("indexer.nav_timeout_seconds must be > 0")
	}
	if c.AI.OpenAIAPIKey == "" && c.AI.AnthropicAPIKey == "" {
		return indexer.NewConfigError("either ai.openai_api_key or ai.anthropic_api_key must be set")
	}
	if c.AI.OpenAIAPIKey != "" && c.AI.AnthropicAPIKey != "" {
		return indexer.NewConfigError("ai.openai_api_key and ai.anthropic_api_key are mutually exclusive")
	}
	switch c.Storage.Provider {
	case "none", "memory":
	case "s3":
		if c.Storage.Bucket == "" {
			return indexer.NewConfigError("storage.bucket is required for provider s3")
		}
	case "gcs":
		if c.Storage.Bucket == "" {
			return indexer.NewConfigError("storage.bucket is required for provider gcs")
		}
	default:
		return indexer.NewConfigError("unknown storage.provider %q", c.Storage.Provider)
	}
	switch c.Store.Provider {
	case "none", "memory":
	case "rpc":
		if c.Store.Endpoint == "" {
			return indexer.NewConfigError("store.endpoint is required for provider rpc")
		}
	case "postgres":
		if c.Store.DSN == "" {
			return indexer.NewConfigError("store.dsn is required for provider postgres")
		}
	default:
		return indexer.NewConfigError("unknown store.provider %q", c.Store.Provider)
	}
	return nil
}

// NavTimeout returns the hard navigation timeout as a duration.
func (c Config) NavTimeout() time.Duration {
	return time.Duration(c.Indexer.NavTimeoutSec) * time.Second
}

// QuietTimeout returns the soft network-quiet wait as a duration.
func (c Config) QuietTimeout() time.Duration {
	return time.Duration(c.Indexer.QuietTimeoutSec) * time.Second
}
