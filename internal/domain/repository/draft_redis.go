package repository

import (
	"context"
	"errors"
	"fmt"
	"oj_workbench/internal/common"
	"time"

	"github.com/redis/go-redis/v9"
)

type redisDraftRepository struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisDraftRepository stores drafts under prefix:key. A zero ttl keeps
// drafts until they are deleted.
func NewRedisDraftRepository(rdb *redis.Client, prefix string, ttl time.Duration) DraftRepository {
	return &redisDraftRepository{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (r *redisDraftRepository) buildKey(key string) string {
	if r.prefix == "" {
		return key
	}
	return r.prefix + ":" + key
}

func (r *redisDraftRepository) Save(ctx context.Context, key string, value []byte) error {
	if key == "" {
		return fmt.Errorf("redisDraftRepository.Save: empty key not allowed")
	}
	if err := r.rdb.Set(ctx, r.buildKey(key), value, r.ttl).Err(); err != nil {
		return fmt.Errorf("redisDraftRepository.Save: %w", err)
	}
	return nil
}

func (r *redisDraftRepository) Load(ctx context.Context, key string) ([]byte, error) {
	val, err := r.rdb.Get(ctx, r.buildKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("redisDraftRepository.Load: %w", err)
	}
	return val, nil
}

func (r *redisDraftRepository) Delete(ctx context.Context, key string) error {
	if err := r.rdb.Del(ctx, r.buildKey(key)).Err(); err != nil {
		return fmt.Errorf("redisDraftRepository.Delete: %w", err)
	}
	return nil
}
