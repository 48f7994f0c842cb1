package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// directoryKey is the Redis key holding the cached directory document.
	directoryKey = "eventboard:directory"
	// generationKey is bumped on every write. A document read before the
	// bump is never stored.
	generationKey = "eventboard:directory:gen"
)

// DirectoryCache stores the rendered directory document between writes.
type DirectoryCache interface {
	// Get returns the cached document, or nil on a miss.
	Get(ctx context.Context) (*Directory, error)

	// Generation returns the current write generation. Read it before
	// loading the document from the database and pass it to Set.
	Generation(ctx context.Context) (int64, error)

	// Set stores d unless a write has happened since gen was read.
	Set(ctx context.Context, d *Directory, gen int64) error

	// Invalidate bumps the generation and drops the cached document.
	Invalidate(ctx context.Context) error
}

// redisDirectoryCache is the Redis implementation of DirectoryCache.
type redisDirectoryCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewDirectoryCache returns a Redis-backed cache whose entries expire after
// ttl. A zero ttl keeps entries until the next write invalidates them.
func NewDirectoryCache(rdb *redis.Client, ttl time.Duration) DirectoryCache {
	return &redisDirectoryCache{rdb: rdb, ttl: ttl}
}

func (c *redisDirectoryCache) Get(ctx context.Context) (*Directory, error) {
	data, err := c.rdb.Get(ctx, directoryKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading directory cache: %w", err)
	}

	var d Directory
	if err := json.Unmarshal(data, &d); err != nil {
		// A corrupt entry is treated as a miss and dropped.
		_ = c.rdb.Del(ctx, directoryKey).Err()
		return nil, nil
	}
	return &d, nil
}

func (c *redisDirectoryCache) Generation(ctx context.Context) (int64, error) {
	return readGeneration(ctx, c.rdb)
}

// getter is the part of *redis.Client and *redis.Tx readGeneration needs.
type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func readGeneration(ctx context.Context, cmd getter) (int64, error) {
	gen, err := cmd.Get(ctx, generationKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading directory generation: %w", err)
	}
	return gen, nil
}

func (c *redisDirectoryCache) Set(ctx context.Context, d *Directory, gen int64) error {
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encoding directory: %w", err)
	}

	err = c.rdb.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := readGeneration(ctx, tx)
		if err != nil {
			return err
		}
		if cur != gen {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, directoryKey, data, c.ttl)
			return nil
		})
		return err
	}, generationKey)

	// A write landed between WATCH and EXEC; the document is stale.
	if errors.Is(err, redis.TxFailedErr) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("writing directory cache: %w", err)
	}
	return nil
}

func (c *redisDirectoryCache) Invalidate(ctx context.Context) error {
	if err := c.rdb.Incr(ctx, generationKey).Err(); err != nil {
		return fmt.Errorf("bumping directory generation: %w", err)
	}
	if err := c.rdb.Del(ctx, directoryKey).Err(); err != nil {
		return fmt.Errorf("invalidating directory cache: %w", err)
	}
	return nil
}

// noCache is used when no Redis client is configured.
type noCache struct{}

func (noCache) Get(context.Context) (*Directory, error)      { return nil, nil }
func (noCache) Generation(context.Context) (int64, error)    { return 0, nil }
func (noCache) Set(context.Context, *Directory, int64) error { return nil }
func (noCache) Invalidate(context.Context) error             { return nil }
