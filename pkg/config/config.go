package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultEnvPrefix is prepended to every env tag.
const DefaultEnvPrefix = "GA_"

// Journal backends.
const (
	JournalNone     = "none"
	JournalMemory   = "memory"
	JournalRedis    = "redis"
	JournalPostgres = "postgres"
	JournalMySQL    = "mysql"
)

// Config is the complete client configuration.
type Config struct {
	Portal  PortalConfig  `yaml:"portal"`
	Job     JobConfig     `yaml:"job"`
	Retry   RetryConfig   `yaml:"retry"`
	Batch   BatchConfig   `yaml:"batch"`
	Journal JournalConfig `yaml:"journal"`
	Logging LoggingConfig `yaml:"logging"`
}

// PortalConfig holds the analysis service endpoint and credentials.
type PortalConfig struct {
	ServiceURL     string        `yaml:"service_url" env:"SERVICE_URL"`
	Token          string        `yaml:"token" env:"TOKEN"`
	Referer        string        `yaml:"referer" env:"REFERER"`
	UserAgent      string        `yaml:"user_agent" env:"USER_AGENT"`
	RequestTimeout time.Duration `yaml:"request_timeout" env:"REQUEST_TIMEOUT"`
}

// JobConfig holds the job observation policy. Zero max_polls and max_wait mean
// the job is observed until the server reports a terminal status.
type JobConfig struct {
	PollInterval time.Duration `yaml:"poll_interval" env:"JOB_POLL_INTERVAL"`
	MaxPolls     int           `yaml:"max_polls" env:"JOB_MAX_POLLS"`
	MaxWait      time.Duration `yaml:"max_wait" env:"JOB_MAX_WAIT"`
}

// RetryConfig holds the whole-job retry policy.
type RetryConfig struct {
	MaxAttempts    int           `yaml:"max_attempts" env:"RETRY_MAX_ATTEMPTS"`
	InitialBackoff time.Duration `yaml:"initial_backoff" env:"RETRY_INITIAL_BACKOFF"`
	MaxBackoff     time.Duration `yaml:"max_backoff" env:"RETRY_MAX_BACKOFF"`
	JitterPercent  uint64        `yaml:"jitter_percent" env:"RETRY_JITTER_PERCENT"`
}

// BatchConfig holds batch execution settings.
type BatchConfig struct {
	Concurrency int `yaml:"concurrency" env:"BATCH_CONCURRENCY"`
}

// JournalConfig selects and configures the job journal.
type JournalConfig struct {
	Backend  string         `yaml:"backend" env:"JOURNAL_BACKEND"`
	Redis    RedisConfig    `yaml:"redis"`
	Database DatabaseConfig `yaml:"database"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Host      string        `yaml:"host" env:"REDIS_HOST"`
	Port      int           `yaml:"port" env:"REDIS_PORT"`
	Password  string        `yaml:"password" env:"REDIS_PASSWORD"`
	DB        int           `yaml:"db" env:"REDIS_DB"`
	KeyPrefix string        `yaml:"key_prefix" env:"REDIS_KEY_PREFIX"`
	TTL       time.Duration `yaml:"ttl" env:"REDIS_TTL"`
}

// Addr returns host:port.
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Host            string        `yaml:"host" env:"DB_HOST"`
	Port            int           `yaml:"port" env:"DB_PORT"`
	Username        string        `yaml:"username" env:"DB_USERNAME"`
	Password        string        `yaml:"password" env:"DB_PASSWORD"`
	Database        string        `yaml:"database" env:"DB_DATABASE"`
	Charset         string        `yaml:"charset" env:"DB_CHARSET"`
	SSLMode         string        `yaml:"ssl_mode" env:"DB_SSL_MODE"`
	MaxIdleConns    int           `yaml:"max_idle_conns" env:"DB_MAX_IDLE_CONNS"`
	MaxOpenConns    int           `yaml:"max_open_conns" env:"DB_MAX_OPEN_CONNS"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env:"DB_CONN_MAX_LIFETIME"`
}

// DSN builds the connection string for driver (mysql or postgres).
func (c DatabaseConfig) DSN(driver string) (string, error) {
	switch driver {
	case JournalMySQL:
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=True&loc=Local",
			c.Username, c.Password, c.Host, c.Port, c.Database, c.Charset), nil
	case JournalPostgres:
		sslMode := c.SSLMode
		if sslMode == "" {
			sslMode = "disable"
		}
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			c.Host, c.Port, c.Username, c.Password, c.Database, sslMode), nil
	default:
		return "", fmt.Errorf("unsupported database driver: %s", driver)
	}
}

// LoggingConfig 日志配置
type LoggingConfig struct {
	Level      string `yaml:"level" env:"LOG_LEVEL"`   // debug, info, warn, error
	Format     string `yaml:"format" env:"LOG_FORMAT"` // json, text
	Output     string `yaml:"output" env:"LOG_OUTPUT"` // stdout, stderr, file, both
	FilePath   string `yaml:"file_path" env:"LOG_FILE_PATH"`
	MaxSize    int    `yaml:"max_size" env:"LOG_MAX_SIZE"` // MB
	MaxBackups int    `yaml:"max_backups" env:"LOG_MAX_BACKUPS"`
	MaxAge     int    `yaml:"max_age" env:"LOG_MAX_AGE"` // days
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Portal: PortalConfig{
			UserAgent:      "geoanalysis/0.1",
			RequestTimeout: 60 * time.Second,
		},
		Job: JobConfig{
			PollInterval: 5 * time.Second,
		},
		Retry: RetryConfig{
			MaxAttempts:    1,
			InitialBackoff: 10 * time.Second,
			MaxBackoff:     2 * time.Minute,
			JitterPercent:  10,
		},
		Batch: BatchConfig{
			Concurrency: 4,
		},
		Journal: JournalConfig{
			Backend: JournalNone,
			Redis: RedisConfig{
				Host:      "localhost",
				Port:      6379,
				KeyPrefix: "geoanalysis:journal",
				TTL:       7 * 24 * time.Hour,
			},
			Database: DatabaseConfig{
				Host:            "localhost",
				Port:            5432,
				Charset:         "utf8mb4",
				MaxIdleConns:    2,
				MaxOpenConns:    10,
				ConnMaxLifetime: time.Hour,
			},
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "json",
			Output:     "stdout",
			MaxSize:    100,
			MaxBackups: 3,
			MaxAge:     7,
		},
	}
}

// Loader handles configuration loading from multiple sources.
type Loader struct {
	configPath string
	envPrefix  string
	overrides  map[string]string
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	return &Loader{
		envPrefix: DefaultEnvPrefix,
		overrides: make(map[string]string),
	}
}

// WithConfigPath sets the path to the YAML configuration file.
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix sets the prefix for environment variables.
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// WithOverrides sets dot-path overrides such as "job.max_polls" => "10".
func (l *Loader) WithOverrides(overrides map[string]string) *Loader {
	l.overrides = overrides
	return l
}

// Load loads configuration from all sources with proper precedence:
// defaults < YAML file < environment variables < overrides
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, fmt.Errorf("从文件加载配置失败: %w", err)
		}
	}

	if err := l.applyEnvToStruct(reflect.ValueOf(cfg).Elem()); err != nil {
		return nil, fmt.Errorf("应用环境变量覆盖失败: %w", err)
	}

	for key, value := range l.overrides {
		if err := setConfigValue(cfg, key, value); err != nil {
			return nil, fmt.Errorf("设置配置值 %s 失败: %w", key, err)
		}
	}

	return cfg, nil
}

// loadFromFile loads configuration from a YAML file. A missing file keeps the defaults.
func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("读取配置文件失败: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("解析配置文件失败: %w", err)
	}
	return nil
}

// applyEnvToStruct recursively applies environment variables to struct fields.
func (l *Loader) applyEnvToStruct(v reflect.Value) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		if field.Kind() == reflect.Struct {
			if err := l.applyEnvToStruct(field); err != nil {
				return err
			}
			continue
		}

		envTag := fieldType.Tag.Get("env")
		if envTag == "" {
			continue
		}

		name := l.envPrefix + envTag
		envValue := os.Getenv(name)
		if envValue == "" {
			continue
		}

		if err := setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("从环境变量 %s 设置字段 %s 失败: %w", name, fieldType.Name, err)
		}
	}

	return nil
}

// setConfigValue sets a configuration value by dot-notation path. Path parts
// match yaml keys.
func setConfigValue(cfg *Config, path, value string) error {
	parts := strings.Split(path, ".")
	v := reflect.ValueOf(cfg).Elem()

	for i, part := range parts {
		field, ok := fieldByYAMLName(v, part)
		if !ok {
			return fmt.Errorf("未知的配置路径: %s", path)
		}

		if i == len(parts)-1 {
			return setFieldValue(field, value)
		}

		if field.Kind() != reflect.Struct {
			return fmt.Errorf("期望 %s 是结构体，实际是 %s", part, field.Kind())
		}
		v = field
	}

	return nil
}

func fieldByYAMLName(v reflect.Value, name string) (reflect.Value, bool) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		tag := strings.Split(t.Field(i).Tag.Get("yaml"), ",")[0]
		if tag == name || strings.EqualFold(t.Field(i).Name, strings.ReplaceAll(name, "_", "")) {
			return v.Field(i), true
		}
	}
	return reflect.Value{}, false
}

// setFieldValue sets a reflect.Value from a string value.
func setFieldValue(field reflect.Value, value string) error {
	if !field.CanSet() {
		return fmt.Errorf("无法设置字段")
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return fmt.Errorf("无效的时间格式: %w", err)
			}
			field.SetInt(int64(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return fmt.Errorf("无效的整数: %w", err)
			}
			field.SetInt(i)
		}

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return fmt.Errorf("无效的无符号整数: %w", err)
		}
		field.SetUint(u)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("无效的布尔值: %w", err)
		}
		field.SetBool(b)

	default:
		return fmt.Errorf("不支持的字段类型: %s", field.Kind())
	}

	return nil
}

// Serialize serializes the configuration to YAML bytes.
func (c *Config) Serialize() ([]byte, error) {
	return yaml.Marshal(c)
}

// ParseConfig parses a YAML configuration from bytes on top of the defaults.
func ParseConfig(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}
	return cfg, nil
}

// LoadFromFile loads configuration from a YAML file path.
func LoadFromFile(path string) (*Config, error) {
	return NewLoader().WithConfigPath(path).Load()
}
