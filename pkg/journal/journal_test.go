package journal

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"yqhp/geoanalysis/pkg/types"
)

func newEntry(task string, submitted time.Time) *Entry {
	return &Entry{
		InvocationID: uuid.New().String(),
		Task:         task,
		JobID:        "j-" + task,
		Status:       types.JobStatusSucceeded,
		Outcome:      "succeeded",
		Messages:     2,
		Outputs:      []string{"resultLayer"},
		SubmittedAt:  submitted,
		FinishedAt:   submitted.Add(30 * time.Second),
	}
}

// exerciseJournal runs the behaviour every backend must share.
func exerciseJournal(t *testing.T, j Journal) {
	ctx := context.Background()
	base := time.Now().Truncate(time.Millisecond)

	first := newEntry("CalculateDensity", base)
	second := newEntry("FindHotSpots", base.Add(time.Minute))

	require.NoError(t, j.Record(ctx, first))
	require.NoError(t, j.Record(ctx, second))

	got, err := j.Get(ctx, first.InvocationID)
	require.NoError(t, err)
	assert.Equal(t, first.Task, got.Task)
	assert.Equal(t, first.JobID, got.JobID)
	assert.Equal(t, types.JobStatusSucceeded, got.Status)
	assert.Equal(t, []string{"resultLayer"}, got.Outputs)
	assert.Equal(t, 30*time.Second, got.Duration())

	// re-recording replaces
	first.Outcome = "failed"
	first.Error = "Job failed."
	require.NoError(t, j.Record(ctx, first))
	got, err = j.Get(ctx, first.InvocationID)
	require.NoError(t, err)
	assert.Equal(t, "failed", got.Outcome)
	assert.Equal(t, "Job failed.", got.Error)

	list, err := j.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, second.InvocationID, list[0].InvocationID)

	_, err = j.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemory(t *testing.T) {
	exerciseJournal(t, NewMemory())
}

func TestMemory_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	e := newEntry("CreateBuffers", time.Now())
	require.NoError(t, m.Record(ctx, e))

	e.Outputs[0] = "mutated"
	got, err := m.Get(ctx, e.InvocationID)
	require.NoError(t, err)
	assert.Equal(t, "resultLayer", got.Outputs[0])

	got.Task = "changed"
	again, _ := m.Get(ctx, e.InvocationID)
	assert.Equal(t, "CreateBuffers", again.Task)
}

func TestNop(t *testing.T) {
	ctx := context.Background()
	var j Journal = Nop{}
	assert.NoError(t, j.Record(ctx, newEntry("x", time.Now())))
	_, err := j.Get(ctx, "x")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedis(t *testing.T) {
	addr := os.Getenv("GA_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("GA_TEST_REDIS_ADDR not set")
	}

	r, err := OpenRedis(context.Background(), RedisOptions{
		Addr:      addr,
		KeyPrefix: fmt.Sprintf("geoanalysis:test:%d", time.Now().UnixNano()),
		TTL:       time.Minute,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })

	exerciseJournal(t, r)

	ctx := context.Background()
	expired := newEntry("SummarizeNearby", time.Now().Add(time.Hour))
	require.NoError(t, r.Record(ctx, expired))
	require.NoError(t, r.client.Del(ctx, r.entryKey(expired.InvocationID)).Err())

	list, err := r.List(ctx, 0)
	require.NoError(t, err)
	for _, e := range list {
		assert.NotEqual(t, expired.InvocationID, e.InvocationID)
	}
	_, err = r.client.ZScore(ctx, r.indexKey(), expired.InvocationID).Result()
	assert.ErrorIs(t, err, redis.Nil)
}

func TestGorm(t *testing.T) {
	driver := os.Getenv("GA_TEST_DATABASE_DRIVER")
	dsn := os.Getenv("GA_TEST_DATABASE_DSN")
	if driver == "" || dsn == "" {
		t.Skip("GA_TEST_DATABASE_DRIVER / GA_TEST_DATABASE_DSN not set")
	}

	db, err := OpenDatabase(driver, dsn, 2, 4, time.Minute, zap.NewNop())
	require.NoError(t, err)

	g, err := NewGorm(db)
	require.NoError(t, err)
	t.Cleanup(func() {
		db.Where("1 = 1").Delete(&JobRecord{})
		_ = g.Close()
	})

	exerciseJournal(t, g)
}

func TestOpenDatabase_UnsupportedDriver(t *testing.T) {
	_, err := OpenDatabase("sqlite", "file::memory:", 1, 1, time.Minute, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database driver")
}
