package repository

import (
	"context"
	"errors"
	"fmt"
	"oj_workbench/internal/common"

	"github.com/coocood/freecache"
)

type memoryDraftRepository struct {
	cache *freecache.Cache
}

// NewMemoryDraftRepository keeps drafts in a process-local freecache of sizeMB
// megabytes. When the cache is full freecache evicts the oldest entries;
// a single draft may not exceed 1/1024 of the cache size.
func NewMemoryDraftRepository(sizeMB int) DraftRepository {
	if sizeMB <= 0 {
		sizeMB = 64
	}
	return &memoryDraftRepository{cache: freecache.NewCache(sizeMB * 1024 * 1024)}
}

func (m *memoryDraftRepository) Save(_ context.Context, key string, value []byte) error {
	if key == "" {
		return fmt.Errorf("memoryDraftRepository.Save: empty key not allowed")
	}
	// expireSeconds <= 0 means no expiry.
	if err := m.cache.Set([]byte(key), value, 0); err != nil {
		return fmt.Errorf("memoryDraftRepository.Save: %w", err)
	}
	return nil
}

func (m *memoryDraftRepository) Load(_ context.Context, key string) ([]byte, error) {
	val, err := m.cache.Get([]byte(key))
	if err != nil {
		if errors.Is(err, freecache.ErrNotFound) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("memoryDraftRepository.Load: %w", err)
	}
	return val, nil
}

func (m *memoryDraftRepository) Delete(_ context.Context, key string) error {
	m.cache.Del([]byte(key))
	return nil
}
