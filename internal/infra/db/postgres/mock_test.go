//go:build !integration

package postgres

import (
	"context"
	"errors"
	"sync"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"hotspot-billing/internal/domain"
	"hotspot-billing/internal/domain/model"
	"hotspot-billing/internal/domain/ports/repository"
	red "hotspot-billing/internal/infra/redis"
)

// memPackages is a map-backed PackageRepository that counts reads.
type memPackages struct {
	mu    sync.Mutex
	byID  map[string]model.Package
	reads int
}

func newMemPackages(pkgs ...*model.Package) *memPackages {
	m := &memPackages{byID: map[string]model.Package{}}
	for _, p := range pkgs {
		m.byID[p.ID] = *p
	}
	return m
}

func (m *memPackages) Save(_ context.Context, _ repository.Tx, p *model.Package) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[p.ID] = *p
	return nil
}

func (m *memPackages) FindByID(_ context.Context, _ repository.Tx, id string) (*model.Package, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads++
	p, ok := m.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

func (m *memPackages) MarkSynced(_ context.Context, _ repository.Tx, id, profileName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.ProfileName, p.IsSynced = profileName, true
	m.byID[id] = p
	return nil
}

// memCache is a map-backed RedisClient. Expirations are recorded, not enforced.
type memCache struct {
	mu      sync.Mutex
	data    map[string]string
	ttls    map[string]time.Duration
	down    bool
	deleted []string
}

var _ red.RedisClient = (*memCache)(nil)

var errCacheDown = errors.New("cache unavailable")

func newMemCache() *memCache {
	return &memCache{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (c *memCache) Get(_ context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.down {
		return "", errCacheDown
	}
	v, ok := c.data[key]
	if !ok {
		return "", goredis.Nil
	}
	return v, nil
}

func (c *memCache) Set(_ context.Context, key string, value interface{}, exp time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.down {
		return errCacheDown
	}
	switch v := value.(type) {
	case []byte:
		c.data[key] = string(v)
	case string:
		c.data[key] = v
	}
	c.ttls[key] = exp
	return nil
}

func (c *memCache) Del(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deleted = append(c.deleted, keys...)
	if c.down {
		return errCacheDown
	}
	for _, k := range keys {
		delete(c.data, k)
	}
	return nil
}

func (c *memCache) Ping(context.Context) error { return nil }
func (c *memCache) Incr(context.Context, string) (int64, error) { return 0, nil }
func (c *memCache) Expire(context.Context, string, time.Duration) error { return nil }
func (c *memCache) Close() error { return nil }
