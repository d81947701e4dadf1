package query

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultOpTimeout = 150 * time.Millisecond

// RedisStore shares the cache between processes. Each entity has a version
// counter at lib:ver:<entity>; invalidation is an INCR, never a scan.
type RedisStore struct {
	rdb     *redis.Client
	shortTO time.Duration

	warnMu sync.Mutex
	warned bool
}

func NewRedisStore(rdb *redis.Client, opTimeout time.Duration) *RedisStore {
	if opTimeout <= 0 {
		opTimeout = defaultOpTimeout
	}
	return &RedisStore{rdb: rdb, shortTO: opTimeout}
}

func versionKey(e Entity) string { return keyPrefix + ":ver:" + string(e) }

// Version reads the counter; a missing counter is version 1.
func (s *RedisStore) Version(ctx context.Context, e Entity) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.shortTO)
	defer cancel()
	n, err := s.rdb.Get(ctx, versionKey(e)).Int64()
	if errors.Is(err, redis.Nil) {
		return 1, nil
	}
	if err != nil {
		s.warnOnce("version %s failed: %v; bypassing cache", e, err)
		return 0, err
	}
	return n + 1, nil
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.shortTO)
	defer cancel()
	b, err := s.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		s.warnOnce("get failed: %v; treating as miss", err)
		return nil, false, err
	}
	return b, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, s.shortTO)
	defer cancel()
	if err := s.rdb.Set(ctx, key, val, ttl).Err(); err != nil {
		s.warnOnce("set failed: %v (muted next)", err)
		return err
	}
	return nil
}

// Bump increments every entity counter in one pipeline.
func (s *RedisStore) Bump(ctx context.Context, entities ...Entity) error {
	if len(entities) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.shortTO)
	defer cancel()
	pipe := s.rdb.Pipeline()
	for _, e := range entities {
		pipe.Incr(ctx, versionKey(e))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("query: bump versions: %w", err)
	}
	return nil
}

func (s *RedisStore) warnOnce(format string, args ...any) {
	s.warnMu.Lock()
	defer s.warnMu.Unlock()
	if s.warned {
		return
	}
	s.warned = true
	log.Printf("[query][redis] "+format, args...)
}
