package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/duke-git/lancet/v2/slice"
	"github.com/duke-git/lancet/v2/strutil"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("configuration validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}

// HasErrors returns true if there are any validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Validator validates configuration values.
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates a new configuration validator.
func NewValidator() *Validator {
	return &Validator{
		errors: make(ValidationErrors, 0),
	}
}

func (v *Validator) addError(field, message string) {
	v.errors = append(v.errors, ValidationError{Field: field, Message: message})
}

// Validate validates the entire configuration and returns any errors.
func (v *Validator) Validate(cfg *Config) error {
	v.errors = make(ValidationErrors, 0)

	v.validatePortalConfig(&cfg.Portal)
	v.validateJobConfig(&cfg.Job)
	v.validateRetryConfig(&cfg.Retry)
	v.validateBatchConfig(&cfg.Batch)
	v.validateJournalConfig(&cfg.Journal)
	v.validateLoggingConfig(&cfg.Logging)

	if v.errors.HasErrors() {
		return v.errors
	}
	return nil
}

func (v *Validator) validatePortalConfig(cfg *PortalConfig) {
	if strutil.IsBlank(cfg.ServiceURL) {
		v.addError("portal.service_url", "service url is required")
	} else if u, err := url.Parse(cfg.ServiceURL); err != nil || u.Host == "" ||
		(u.Scheme != "http" && u.Scheme != "https") {
		v.addError("portal.service_url", "service url must be an absolute http(s) url")
	}

	if cfg.RequestTimeout < 0 {
		v.addError("portal.request_timeout", "request timeout must be non-negative")
	}
}

func (v *Validator) validateJobConfig(cfg *JobConfig) {
	if cfg.PollInterval <= 0 {
		v.addError("job.poll_interval", "poll interval must be positive")
	}
	if cfg.MaxPolls < 0 {
		v.addError("job.max_polls", "max polls must be non-negative")
	}
	if cfg.MaxWait < 0 {
		v.addError("job.max_wait", "max wait must be non-negative")
	}
	if cfg.MaxWait > 0 && cfg.PollInterval > 0 && cfg.MaxWait < cfg.PollInterval {
		v.addError("job.max_wait", "max wait should be at least one poll interval")
	}
}

func (v *Validator) validateRetryConfig(cfg *RetryConfig) {
	if cfg.MaxAttempts < 1 {
		v.addError("retry.max_attempts", "max attempts must be at least 1")
	}
	if cfg.InitialBackoff < 0 {
		v.addError("retry.initial_backoff", "initial backoff must be non-negative")
	}
	if cfg.MaxBackoff < 0 {
		v.addError("retry.max_backoff", "max backoff must be non-negative")
	}
	if cfg.MaxBackoff > 0 && cfg.InitialBackoff > cfg.MaxBackoff {
		v.addError("retry.max_backoff", "max backoff should not be less than initial backoff")
	}
	if cfg.JitterPercent > 100 {
		v.addError("retry.jitter_percent", "jitter percent must be between 0 and 100")
	}
}

func (v *Validator) validateBatchConfig(cfg *BatchConfig) {
	if cfg.Concurrency < 0 {
		v.addError("batch.concurrency", "concurrency must be non-negative")
	}
}

func (v *Validator) validateJournalConfig(cfg *JournalConfig) {
	backends := []string{JournalNone, JournalMemory, JournalRedis, JournalPostgres, JournalMySQL}
	if !slice.Contain(backends, cfg.Backend) {
		v.addError("journal.backend", fmt.Sprintf("invalid journal backend '%s', must be one of: %s", cfg.Backend, strings.Join(backends, ", ")))
		return
	}

	switch cfg.Backend {
	case JournalRedis:
		if cfg.Redis.Host == "" {
			v.addError("journal.redis.host", "host is required")
		}
		if cfg.Redis.Port <= 0 || cfg.Redis.Port > 65535 {
			v.addError("journal.redis.port", "port must be between 1 and 65535")
		}
		if cfg.Redis.TTL < 0 {
			v.addError("journal.redis.ttl", "ttl must be non-negative")
		}
	case JournalPostgres, JournalMySQL:
		if cfg.Database.Host == "" {
			v.addError("journal.database.host", "host is required")
		}
		if cfg.Database.Port <= 0 || cfg.Database.Port > 65535 {
			v.addError("journal.database.port", "port must be between 1 and 65535")
		}
		if cfg.Database.Database == "" {
			v.addError("journal.database.database", "database name is required")
		}
		if cfg.Database.MaxOpenConns < 0 || cfg.Database.MaxIdleConns < 0 {
			v.addError("journal.database.max_open_conns", "pool sizes must be non-negative")
		}
	}
}

func (v *Validator) validateLoggingConfig(cfg *LoggingConfig) {
	levels := []string{"debug", "info", "warn", "error"}
	if cfg.Level == "" {
		v.addError("logging.level", "log level is required")
	} else if !slice.Contain(levels, strings.ToLower(cfg.Level)) {
		v.addError("logging.level", fmt.Sprintf("invalid log level '%s', must be one of: debug, info, warn, error", cfg.Level))
	}

	formats := []string{"json", "text"}
	if cfg.Format == "" {
		v.addError("logging.format", "log format is required")
	} else if !slice.Contain(formats, strings.ToLower(cfg.Format)) {
		v.addError("logging.format", fmt.Sprintf("invalid log format '%s', must be one of: json, text", cfg.Format))
	}

	switch strings.ToLower(cfg.Output) {
	case "", "stdout", "stderr":
	case "file", "both":
		if cfg.FilePath == "" {
			v.addError("logging.file_path", "file path is required when logging to a file")
		}
	default:
		v.addError("logging.output", fmt.Sprintf("invalid log output '%s', must be one of: stdout, stderr, file, both", cfg.Output))
	}
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	return NewValidator().Validate(c)
}

// LoadAndValidate loads configuration from a file and validates it.
func LoadAndValidate(path string) (*Config, error) {
	cfg, err := LoadFromFile(path)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}
