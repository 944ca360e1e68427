package analysis

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"yqhp/geoanalysis/common/logger"
	"yqhp/geoanalysis/pkg/config"
	"yqhp/geoanalysis/pkg/connection"
	"yqhp/geoanalysis/pkg/geoprocessing"
	"yqhp/geoanalysis/pkg/journal"
)

// LoggerConfig maps the logging section to the logger package. The text format
// is zap's console encoder.
func LoggerConfig(cfg config.LoggingConfig) *logger.Config {
	format := strings.ToLower(cfg.Format)
	if format == "text" {
		format = "console"
	}
	return &logger.Config{
		Level:      cfg.Level,
		Format:     format,
		Output:     cfg.Output,
		FilePath:   cfg.FilePath,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
	}
}

// ConnectionConfig maps the portal section to the connection package.
func ConnectionConfig(cfg config.PortalConfig) *connection.Config {
	return &connection.Config{
		Token:          cfg.Token,
		Referer:        cfg.Referer,
		UserAgent:      cfg.UserAgent,
		RequestTimeout: cfg.RequestTimeout,
	}
}

// PollPolicy maps the job section to a poll policy.
func PollPolicy(cfg config.JobConfig) geoprocessing.PollPolicy {
	return geoprocessing.PollPolicy{
		Interval: cfg.PollInterval,
		MaxPolls: cfg.MaxPolls,
		MaxWait:  cfg.MaxWait,
	}
}

// RetryPolicy maps the retry section to a retry policy.
func RetryPolicy(cfg config.RetryConfig) geoprocessing.RetryPolicy {
	return geoprocessing.RetryPolicy{
		MaxAttempts:    cfg.MaxAttempts,
		InitialBackoff: cfg.InitialBackoff,
		MaxBackoff:     cfg.MaxBackoff,
		JitterPercent:  cfg.JitterPercent,
	}
}

// OpenJournal opens the configured journal backend. The returned closer is nil
// for backends without resources.
func OpenJournal(ctx context.Context, cfg config.JournalConfig, l *zap.Logger) (journal.Journal, func() error, error) {
	switch cfg.Backend {
	case config.JournalNone, "":
		return journal.Nop{}, nil, nil

	case config.JournalMemory:
		return journal.NewMemory(), nil, nil

	case config.JournalRedis:
		r, err := journal.OpenRedis(ctx, journal.RedisOptions{
			Addr:      cfg.Redis.Addr(),
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			KeyPrefix: cfg.Redis.KeyPrefix,
			TTL:       cfg.Redis.TTL,
		})
		if err != nil {
			return nil, nil, err
		}
		return r, r.Close, nil

	case config.JournalPostgres, config.JournalMySQL:
		dsn, err := cfg.Database.DSN(cfg.Backend)
		if err != nil {
			return nil, nil, err
		}
		db, err := journal.OpenDatabase(cfg.Backend, dsn,
			cfg.Database.MaxIdleConns, cfg.Database.MaxOpenConns, cfg.Database.ConnMaxLifetime, l)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open %s journal: %w", cfg.Backend, err)
		}
		g, err := journal.NewGorm(db)
		if err != nil {
			return nil, nil, err
		}
		return g, g.Close, nil

	default:
		return nil, nil, fmt.Errorf("unsupported journal backend: %s", cfg.Backend)
	}
}
