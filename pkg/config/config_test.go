package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 5*time.Second, cfg.Job.PollInterval)
	assert.Zero(t, cfg.Job.MaxPolls)
	assert.Zero(t, cfg.Job.MaxWait)
	assert.Equal(t, 60*time.Second, cfg.Portal.RequestTimeout)
	assert.Equal(t, JournalNone, cfg.Journal.Backend)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
portal:
  service_url: https://analysis.example.com/arcgis/rest/services/tasks/GPServer
  token: abc
  request_timeout: 30s

job:
  poll_interval: 2s
  max_polls: 120
  max_wait: 10m

retry:
  max_attempts: 3

journal:
  backend: redis
  redis:
    host: cache.internal
    ttl: 24h

logging:
  level: debug
  format: text
`
	require.NoError(t, os.WriteFile(configPath, []byte(configContent), 0644))

	cfg, err := LoadFromFile(configPath)
	require.NoError(t, err)

	assert.Equal(t, "https://analysis.example.com/arcgis/rest/services/tasks/GPServer", cfg.Portal.ServiceURL)
	assert.Equal(t, "abc", cfg.Portal.Token)
	assert.Equal(t, 30*time.Second, cfg.Portal.RequestTimeout)
	assert.Equal(t, 2*time.Second, cfg.Job.PollInterval)
	assert.Equal(t, 120, cfg.Job.MaxPolls)
	assert.Equal(t, 10*time.Minute, cfg.Job.MaxWait)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.Equal(t, JournalRedis, cfg.Journal.Backend)
	assert.Equal(t, "cache.internal:6379", cfg.Journal.Redis.Addr())
	assert.Equal(t, 24*time.Hour, cfg.Journal.Redis.TTL)
	assert.Equal(t, "debug", cfg.Logging.Level)
	// untouched defaults survive
	assert.Equal(t, "geoanalysis/0.1", cfg.Portal.UserAgent)
	assert.Equal(t, 4, cfg.Batch.Concurrency)

	require.NoError(t, cfg.Validate())
}

func TestLoadFromNonExistentFile(t *testing.T) {
	cfg, err := LoadFromFile("/nonexistent/path/config.yaml")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Job, cfg.Job)
}

func TestLoadInvalidYAML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("job: [unclosed"), 0644))

	_, err := LoadFromFile(configPath)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("GA_SERVICE_URL", "https://env.example.com/GPServer")
	t.Setenv("GA_JOB_POLL_INTERVAL", "750ms")
	t.Setenv("GA_JOB_MAX_POLLS", "40")
	t.Setenv("GA_RETRY_JITTER_PERCENT", "25")
	t.Setenv("GA_JOURNAL_BACKEND", "postgres")
	t.Setenv("GA_DB_DATABASE", "jobs")
	t.Setenv("GA_LOG_LEVEL", "warn")

	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, "https://env.example.com/GPServer", cfg.Portal.ServiceURL)
	assert.Equal(t, 750*time.Millisecond, cfg.Job.PollInterval)
	assert.Equal(t, 40, cfg.Job.MaxPolls)
	assert.Equal(t, uint64(25), cfg.Retry.JitterPercent)
	assert.Equal(t, JournalPostgres, cfg.Journal.Backend)
	assert.Equal(t, "jobs", cfg.Journal.Database.Database)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestEnvPrefix(t *testing.T) {
	t.Setenv("MYAPP_TOKEN", "from-custom-prefix")
	t.Setenv("GA_TOKEN", "from-default-prefix")

	cfg, err := NewLoader().WithEnvPrefix("MYAPP_").Load()
	require.NoError(t, err)
	assert.Equal(t, "from-custom-prefix", cfg.Portal.Token)
}

func TestInvalidEnvValue(t *testing.T) {
	t.Setenv("GA_JOB_MAX_POLLS", "many")

	_, err := NewLoader().Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GA_JOB_MAX_POLLS")
}

func TestOverridesWinOverEnv(t *testing.T) {
	t.Setenv("GA_JOB_MAX_POLLS", "40")

	cfg, err := NewLoader().WithOverrides(map[string]string{
		"job.max_polls":             "7",
		"journal.redis.key_prefix":  "ga:test",
		"portal.request_timeout":    "15s",
		"journal.database.ssl_mode": "require",
		"logging.max_backups":       "9",
	}).Load()
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Job.MaxPolls)
	assert.Equal(t, "ga:test", cfg.Journal.Redis.KeyPrefix)
	assert.Equal(t, 15*time.Second, cfg.Portal.RequestTimeout)
	assert.Equal(t, "require", cfg.Journal.Database.SSLMode)
	assert.Equal(t, 9, cfg.Logging.MaxBackups)
}

func TestOverrideErrors(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"unknown section", "nope.value", "1"},
		{"unknown field", "job.nope", "1"},
		{"not a struct", "job.max_polls.deeper", "1"},
		{"bad duration", "job.poll_interval", "soon"},
		{"bad uint", "retry.jitter_percent", "-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLoader().WithOverrides(map[string]string{tt.key: tt.value}).Load()
			assert.Error(t, err)
		})
	}
}

func TestDatabaseDSN(t *testing.T) {
	db := DatabaseConfig{
		Host:     "db.internal",
		Port:     5432,
		Username: "ga",
		Password: "pw",
		Database: "jobs",
		Charset:  "utf8mb4",
	}

	dsn, err := db.DSN(JournalPostgres)
	require.NoError(t, err)
	assert.Equal(t, "host=db.internal port=5432 user=ga password=pw dbname=jobs sslmode=disable", dsn)

	db.Port = 3306
	dsn, err = db.DSN(JournalMySQL)
	require.NoError(t, err)
	assert.Equal(t, "ga:pw@tcp(db.internal:3306)/jobs?charset=utf8mb4&parseTime=True&loc=Local", dsn)

	_, err = db.DSN("sqlite")
	assert.Error(t, err)
}
