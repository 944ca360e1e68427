package journal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"yqhp/geoanalysis/common/utils"
)

// RedisOptions configures the Redis connection used by RedisJournal.
type RedisOptions struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
	TTL       time.Duration
}

// Redis stores each entry as a JSON string plus a sorted-set index ordered by
// submission time.
type Redis struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// OpenRedis connects to Redis and verifies the connection.
func OpenRedis(ctx context.Context, opts RedisOptions) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis %s: %w", opts.Addr, err)
	}

	return NewRedis(client, opts.KeyPrefix, opts.TTL), nil
}

// NewRedis wraps an existing client. ttl <= 0 keeps entries forever.
func NewRedis(client *redis.Client, prefix string, ttl time.Duration) *Redis {
	if prefix == "" {
		prefix = "geoanalysis:journal"
	}
	return &Redis{client: client, prefix: prefix, ttl: ttl}
}

func (r *Redis) entryKey(id string) string {
	return r.prefix + ":entry:" + id
}

func (r *Redis) indexKey() string {
	return r.prefix + ":index"
}

// Record stores entry and indexes it by submission time.
func (r *Redis) Record(ctx context.Context, entry *Entry) error {
	data, err := utils.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal journal entry: %w", err)
	}

	ttl := r.ttl
	if ttl < 0 {
		ttl = 0
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.entryKey(entry.InvocationID), data, ttl)
	pipe.ZAdd(ctx, r.indexKey(), redis.Z{
		Score:  float64(entry.SubmittedAt.UnixMilli()),
		Member: entry.InvocationID,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to record journal entry %s: %w", entry.InvocationID, err)
	}
	return nil
}

// Get retrieves an entry by invocation id.
func (r *Redis) Get(ctx context.Context, invocationID string) (*Entry, error) {
	data, err := r.client.Get(ctx, r.entryKey(invocationID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get journal entry %s: %w", invocationID, err)
	}

	entry, err := utils.FromJSONBytes[Entry](data)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal journal entry %s: %w", invocationID, err)
	}
	return &entry, nil
}

// List returns up to limit entries, most recently submitted first. Index members
// whose entry expired are pruned.
func (r *Redis) List(ctx context.Context, limit int) ([]*Entry, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit) - 1
	}

	ids, err := r.client.ZRevRange(ctx, r.indexKey(), 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list journal index: %w", err)
	}

	out := make([]*Entry, 0, len(ids))
	var stale []any
	for _, id := range ids {
		entry, err := r.Get(ctx, id)
		if errors.Is(err, ErrNotFound) {
			stale = append(stale, id)
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, entry)
	}

	if len(stale) > 0 {
		if err := r.client.ZRem(ctx, r.indexKey(), stale...).Err(); err != nil {
			return nil, fmt.Errorf("failed to prune %d expired journal entries: %w", len(stale), err)
		}
	}
	return out, nil
}

// Close closes the Redis client.
func (r *Redis) Close() error {
	return r.client.Close()
}
