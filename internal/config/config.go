package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ErrConfiguration marks missing or invalid settings
var ErrConfiguration = errors.New("configuration error")

// Config represents the application configuration
type Config struct {
	v *viper.Viper
}

// New creates a new configuration instance. An explicit path must exist;
// otherwise config.yaml is looked up in the usual places and defaults are
// used when none is found.
func New(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("$HOME/.email-agent")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	setDefaults(v)

	// Environment variables
	v.AutomaticEnv()
	v.SetEnvPrefix("EMAIL_AGENT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, fmt.Errorf("%w: failed to read config file: %w", ErrConfiguration, err)
		}
	}

	return &Config{v: v}, nil
}

// NewFromViper creates a new configuration instance from an existing Viper instance
func NewFromViper(v *viper.Viper) *Config {
	return &Config{v: v}
}

// NewEmptyViper creates a new Viper instance with defaults
func NewEmptyViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

func setDefaults(v *viper.Viper) {
	// LLM defaults
	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.parser_model", "gpt-4o-mini")
	v.SetDefault("llm.writer_model", "gpt-4o-mini")
	v.SetDefault("llm.parser_temperature", 0.0)
	v.SetDefault("llm.writer_temperature", 0.4)
	v.SetDefault("llm.max_tokens", 1000)
	v.SetDefault("llm.max_prompt_size", 8192)

	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.base_url", "")

	v.SetDefault("gemini.api_key", "")

	v.SetDefault("bedrock.region", "us-east-1")

	// Delivery defaults
	v.SetDefault("delivery.provider", "gmail")
	v.SetDefault("delivery.max_attempts", 5)
	v.SetDefault("delivery.backoff_base", 1.5)
	v.SetDefault("delivery.max_backoff", "30s")
	v.SetDefault("delivery.retry_drafts", false)
	v.SetDefault("delivery.use_html", true)

	v.SetDefault("gmail.credentials_file", "credentials.json")
	v.SetDefault("gmail.token_file", "token.json")
	v.SetDefault("gmail.user_id", "me")

	v.SetDefault("smtp.host", "")
	v.SetDefault("smtp.port", 465)
	v.SetDefault("smtp.username", "")
	v.SetDefault("smtp.password", "")
	v.SetDefault("smtp.imap_host", "")
	v.SetDefault("smtp.imap_port", 993)
	v.SetDefault("smtp.drafts_mailbox", "Drafts")
	v.SetDefault("smtp.security", "tls")
	v.SetDefault("smtp.timeout", "30s")

	v.SetDefault("ses.region", "us-east-1")
	v.SetDefault("ses.sender", "")
	v.SetDefault("ses.access_key_id", "")
	v.SetDefault("ses.secret_access_key", "")

	v.SetDefault("policy.allowed_domains", []string{})

	// History defaults
	v.SetDefault("history.enabled", false)
	v.SetDefault("history.type", "sqlite")
	v.SetDefault("history.sqlite_path", "email_agent_history.db")
	v.SetDefault("history.mysql_dsn", "user:password@tcp(localhost:3306)/email_agent")
	v.SetDefault("history.retention", "720h")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}

// Set overrides a value
func (c *Config) Set(key string, value interface{}) {
	c.v.Set(key, value)
}

// GetString gets a string value from the configuration
func (c *Config) GetString(key string) string {
	return c.v.GetString(key)
}

// GetInt gets an integer value from the configuration
func (c *Config) GetInt(key string) int {
	return c.v.GetInt(key)
}

// GetFloat64 gets a float64 value from the configuration
func (c *Config) GetFloat64(key string) float64 {
	return c.v.GetFloat64(key)
}

// GetBool gets a boolean value from the configuration
func (c *Config) GetBool(key string) bool {
	return c.v.GetBool(key)
}

// GetStringSlice gets a string slice value from the configuration
func (c *Config) GetStringSlice(key string) []string {
	return c.v.GetStringSlice(key)
}

// GetDuration gets a duration value from the configuration
func (c *Config) GetDuration(key string) (time.Duration, error) {
	return time.ParseDuration(c.GetString(key))
}

// GetViper returns the underlying Viper instance
func (c *Config) GetViper() *viper.Viper {
	return c.v
}
