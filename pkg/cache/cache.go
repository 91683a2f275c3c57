// Package cache stores rendered event listings per owner. Entries are
// invalidated by key prefix whenever an owner's events or reminders change.
package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Cache is a byte cache with prefix invalidation.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	DeletePrefix(ctx context.Context, prefix string) error
}

// EventListPrefix is the key prefix for every cached listing of one owner.
func EventListPrefix(ownerID fmt.Stringer) string {
	return "events:" + ownerID.String() + ":"
}

type memoryCache struct {
	c *gocache.Cache
}

// NewMemory returns a process-local cache.
func NewMemory(defaultTTL, cleanupInterval time.Duration) Cache {
	return &memoryCache{c: gocache.New(defaultTTL, cleanupInterval)}
}

func (m *memoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := m.c.Get(key)
	if !ok {
		return nil, false, nil
	}
	b, ok := v.([]byte)
	return b, ok, nil
}

func (m *memoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.c.Set(key, value, ttl)
	return nil
}

func (m *memoryCache) DeletePrefix(_ context.Context, prefix string) error {
	for key := range m.c.Items() {
		if strings.HasPrefix(key, prefix) {
			m.c.Delete(key)
		}
	}
	return nil
}
