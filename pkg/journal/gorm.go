package journal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"yqhp/geoanalysis/common/logger"
	"yqhp/geoanalysis/pkg/types"
)

// JobRecord is the table row of a journal entry.
type JobRecord struct {
	ID           uint      `gorm:"primaryKey"`
	InvocationID string    `gorm:"size:64;uniqueIndex"`
	Task         string    `gorm:"size:128;index"`
	JobID        string    `gorm:"size:128"`
	Status       string    `gorm:"size:32"`
	Outcome      string    `gorm:"size:32"`
	Error        string    `gorm:"type:text"`
	Messages     int
	Outputs      string    `gorm:"size:1024"`
	SubmittedAt  time.Time `gorm:"index"`
	FinishedAt   time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TableName 表名
func (JobRecord) TableName() string {
	return "geoanalysis_jobs"
}

// Gorm stores entries in a SQL database.
type Gorm struct {
	db *gorm.DB
}

// OpenDatabase opens a mysql or postgres connection with the pool settings applied.
func OpenDatabase(driver, dsn string, maxIdle, maxOpen int, maxLifetime time.Duration, l *zap.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "mysql":
		dialector = mysql.Open(dsn)
	case "postgres":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.NewGormLogger(l),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(maxIdle)
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetConnMaxLifetime(maxLifetime)

	return db, nil
}

// NewGorm migrates the journal table and returns a journal over db.
func NewGorm(db *gorm.DB) (*Gorm, error) {
	if err := db.AutoMigrate(&JobRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate journal table: %w", err)
	}
	return &Gorm{db: db}, nil
}

// Record upserts entry by invocation id.
func (g *Gorm) Record(ctx context.Context, entry *Entry) error {
	rec := toRecord(entry)
	err := g.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "invocation_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"task", "job_id", "status", "outcome", "error", "messages",
			"outputs", "submitted_at", "finished_at", "updated_at",
		}),
	}).Create(rec).Error
	if err != nil {
		return fmt.Errorf("failed to record journal entry %s: %w", entry.InvocationID, err)
	}
	return nil
}

// Get retrieves an entry by invocation id.
func (g *Gorm) Get(ctx context.Context, invocationID string) (*Entry, error) {
	var rec JobRecord
	err := g.db.WithContext(ctx).Where("invocation_id = ?", invocationID).First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get journal entry %s: %w", invocationID, err)
	}
	return fromRecord(&rec), nil
}

// List returns up to limit entries, most recently submitted first.
func (g *Gorm) List(ctx context.Context, limit int) ([]*Entry, error) {
	var recs []JobRecord
	q := g.db.WithContext(ctx).Order("submitted_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("failed to list journal entries: %w", err)
	}

	out := make([]*Entry, 0, len(recs))
	for i := range recs {
		out = append(out, fromRecord(&recs[i]))
	}
	return out, nil
}

// Close closes the underlying connection pool.
func (g *Gorm) Close() error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func toRecord(e *Entry) *JobRecord {
	return &JobRecord{
		InvocationID: e.InvocationID,
		Task:         e.Task,
		JobID:        e.JobID,
		Status:       string(e.Status),
		Outcome:      e.Outcome,
		Error:        e.Error,
		Messages:     e.Messages,
		Outputs:      strings.Join(e.Outputs, ","),
		SubmittedAt:  e.SubmittedAt,
		FinishedAt:   e.FinishedAt,
	}
}

func fromRecord(r *JobRecord) *Entry {
	var outputs []string
	if r.Outputs != "" {
		outputs = strings.Split(r.Outputs, ",")
	}
	return &Entry{
		InvocationID: r.InvocationID,
		Task:         r.Task,
		JobID:        r.JobID,
		Status:       types.JobStatus(r.Status),
		Outcome:      r.Outcome,
		Error:        r.Error,
		Messages:     r.Messages,
		Outputs:      outputs,
		SubmittedAt:  r.SubmittedAt,
		FinishedAt:   r.FinishedAt,
	}
}
