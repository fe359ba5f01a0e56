package config

import (
	"fmt"
	"strings"
	"time"
)

// LLMConfig represents the shared LLM settings
type LLMConfig struct {
	Provider          string
	ParserModel       string
	WriterModel       string
	ParserTemperature float32
	WriterTemperature float32
	MaxTokens         int
	MaxPromptSize     int
}

// OpenAIConfig represents the configuration for OpenAI compatible endpoints
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
}

// GeminiConfig represents the configuration for Google Gemini
type GeminiConfig struct {
	APIKey string
}

// BedrockConfig represents the configuration for Amazon Bedrock
type BedrockConfig struct {
	Region string
}

// DeliveryConfig selects the mail transport and its retry policy
type DeliveryConfig struct {
	Provider    string
	MaxAttempts int
	BackoffBase float64
	MaxBackoff  time.Duration
	RetryDrafts bool
	UseHTML     bool
}

// GmailConfig represents the Gmail API settings
type GmailConfig struct {
	CredentialsFile string
	TokenFile       string
	UserID          string
}

// SMTPConfig represents SMTP submission and IMAP draft settings
type SMTPConfig struct {
	Host          string
	Port          int
	Username      string
	Password      string
	IMAPHost      string
	IMAPPort      int
	DraftsMailbox string
	Security      string
	Timeout       time.Duration
}

// SESConfig represents the Amazon SES settings
type SESConfig struct {
	Region          string
	Sender          string
	AccessKeyID     string
	SecretAccessKey string
}

// HistoryConfig represents the delivery history store
type HistoryConfig struct {
	Enabled    bool
	Type       string
	SQLitePath string
	MySQLDSN   string
	Retention  time.Duration
}

// GetLLM returns the LLM configuration
func (c *Config) GetLLM() LLMConfig {
	return LLMConfig{
		Provider:          c.GetString("llm.provider"),
		ParserModel:       c.GetString("llm.parser_model"),
		WriterModel:       c.GetString("llm.writer_model"),
		ParserTemperature: float32(c.GetFloat64("llm.parser_temperature")),
		WriterTemperature: float32(c.GetFloat64("llm.writer_temperature")),
		MaxTokens:         c.GetInt("llm.max_tokens"),
		MaxPromptSize:     c.GetInt("llm.max_prompt_size"),
	}
}

// GetOpenAI returns the OpenAI configuration
func (c *Config) GetOpenAI() OpenAIConfig {
	return OpenAIConfig{
		APIKey:  c.GetString("openai.api_key"),
		BaseURL: c.GetString("openai.base_url"),
	}
}

// GetGemini returns the Gemini configuration
func (c *Config) GetGemini() GeminiConfig {
	return GeminiConfig{APIKey: c.GetString("gemini.api_key")}
}

// GetBedrock returns the Bedrock configuration
func (c *Config) GetBedrock() BedrockConfig {
	return BedrockConfig{Region: c.GetString("bedrock.region")}
}

// GetDelivery returns the delivery configuration. An unparsable
// max_backoff yields zero, which Validate reports.
func (c *Config) GetDelivery() DeliveryConfig {
	maxBackoff, _ := c.GetDuration("delivery.max_backoff")
	return DeliveryConfig{
		Provider:    strings.ToLower(c.GetString("delivery.provider")),
		MaxAttempts: c.GetInt("delivery.max_attempts"),
		BackoffBase: c.GetFloat64("delivery.backoff_base"),
		MaxBackoff:  maxBackoff,
		RetryDrafts: c.GetBool("delivery.retry_drafts"),
		UseHTML:     c.GetBool("delivery.use_html"),
	}
}

// GetGmail returns the Gmail configuration
func (c *Config) GetGmail() GmailConfig {
	return GmailConfig{
		CredentialsFile: c.GetString("gmail.credentials_file"),
		TokenFile:       c.GetString("gmail.token_file"),
		UserID:          c.GetString("gmail.user_id"),
	}
}

// GetSMTP returns the SMTP configuration
func (c *Config) GetSMTP() SMTPConfig {
	timeout, _ := c.GetDuration("smtp.timeout")
	return SMTPConfig{
		Host:          c.GetString("smtp.host"),
		Port:          c.GetInt("smtp.port"),
		Username:      c.GetString("smtp.username"),
		Password:      c.GetString("smtp.password"),
		IMAPHost:      c.GetString("smtp.imap_host"),
		IMAPPort:      c.GetInt("smtp.imap_port"),
		DraftsMailbox: c.GetString("smtp.drafts_mailbox"),
		Security:      strings.ToLower(c.GetString("smtp.security")),
		Timeout:       timeout,
	}
}

// GetSES returns the SES configuration
func (c *Config) GetSES() SESConfig {
	return SESConfig{
		Region:          c.GetString("ses.region"),
		Sender:          c.GetString("ses.sender"),
		AccessKeyID:     c.GetString("ses.access_key_id"),
		SecretAccessKey: c.GetString("ses.secret_access_key"),
	}
}

// GetHistory returns the history configuration
func (c *Config) GetHistory() HistoryConfig {
	retention, _ := c.GetDuration("history.retention")
	return HistoryConfig{
		Enabled:    c.GetBool("history.enabled"),
		Type:       strings.ToLower(c.GetString("history.type")),
		SQLitePath: c.GetString("history.sqlite_path"),
		MySQLDSN:   c.GetString("history.mysql_dsn"),
		Retention:  retention,
	}
}

// GetAllowedDomains returns the recipient domain allow list
func (c *Config) GetAllowedDomains() []string {
	return c.GetStringSlice("policy.allowed_domains")
}

// Validate checks the settings the selected providers need
func (c *Config) Validate() error {
	llm := c.GetLLM()
	switch llm.Provider {
	case "openai":
		if c.GetOpenAI().APIKey == "" {
			return fmt.Errorf("%w: openai.api_key is required", ErrConfiguration)
		}
	case "gemini":
		if c.GetGemini().APIKey == "" {
			return fmt.Errorf("%w: gemini.api_key is required", ErrConfiguration)
		}
	case "bedrock":
		if c.GetBedrock().Region == "" {
			return fmt.Errorf("%w: bedrock.region is required", ErrConfiguration)
		}
	default:
		return fmt.Errorf("%w: unsupported LLM provider: %s", ErrConfiguration, llm.Provider)
	}
	if llm.ParserModel == "" || llm.WriterModel == "" {
		return fmt.Errorf("%w: llm.parser_model and llm.writer_model are required", ErrConfiguration)
	}

	d := c.GetDelivery()
	if d.MaxAttempts < 1 {
		return fmt.Errorf("%w: delivery.max_attempts must be at least 1", ErrConfiguration)
	}
	if d.BackoffBase <= 0 {
		return fmt.Errorf("%w: delivery.backoff_base must be positive", ErrConfiguration)
	}
	if d.MaxBackoff <= 0 {
		return fmt.Errorf("%w: invalid delivery.max_backoff %q", ErrConfiguration, c.GetString("delivery.max_backoff"))
	}
	switch d.Provider {
	case "gmail":
		g := c.GetGmail()
		if g.CredentialsFile == "" || g.TokenFile == "" {
			return fmt.Errorf("%w: gmail.credentials_file and gmail.token_file are required", ErrConfiguration)
		}
	case "smtp":
		s := c.GetSMTP()
		if s.Host == "" || s.Username == "" {
			return fmt.Errorf("%w: smtp.host and smtp.username are required", ErrConfiguration)
		}
		switch s.Security {
		case "tls", "starttls", "none":
		default:
			return fmt.Errorf("%w: unsupported smtp.security: %s", ErrConfiguration, s.Security)
		}
	case "ses":
		if c.GetSES().Sender == "" {
			return fmt.Errorf("%w: ses.sender is required", ErrConfiguration)
		}
	default:
		return fmt.Errorf("%w: unsupported delivery provider: %s", ErrConfiguration, d.Provider)
	}

	h := c.GetHistory()
	if h.Enabled {
		switch h.Type {
		case "memory", "sqlite", "mysql":
		default:
			return fmt.Errorf("%w: unsupported history type: %s", ErrConfiguration, h.Type)
		}
		if h.Retention <= 0 {
			return fmt.Errorf("%w: invalid history.retention %q", ErrConfiguration, c.GetString("history.retention"))
		}
	}
	return nil
}
