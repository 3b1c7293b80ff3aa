package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"hotspot-billing/internal/domain/model"
	"hotspot-billing/internal/domain/ports/repository"
	"hotspot-billing/internal/infra/metrics"
	red "hotspot-billing/internal/infra/redis"
)

var _ repository.PackageRepository = (*packageRepoCacheDecorator)(nil)

// packageRepoCacheDecorator caches package reads outside transactions.
// Reads inside a transaction always hit the database.
type packageRepoCacheDecorator struct {
	inner repository.PackageRepository
	cache red.RedisClient
	ttl   time.Duration
}

func NewPackageRepoCacheDecorator(inner repository.PackageRepository, cache red.RedisClient, ttl time.Duration) repository.PackageRepository {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &packageRepoCacheDecorator{
		inner: inner,
		cache: cache,
		ttl:   ttl,
	}
}

func packageKey(id string) string { return fmt.Sprintf("package:%s", id) }

func (d *packageRepoCacheDecorator) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Package, error) {
	if tx != nil {
		return d.inner.FindByID(ctx, tx, id)
	}
	key := packageKey(id)
	val, err := d.cache.Get(ctx, key)
	switch {
	case err == nil:
		var pkg model.Package
		if json.Unmarshal([]byte(val), &pkg) == nil {
			metrics.IncCacheRequest("package", "hit")
			return &pkg, nil
		}
		metrics.IncCacheRequest("package", "corrupt")
	case red.IsMiss(err):
		metrics.IncCacheRequest("package", "miss")
	default:
		metrics.IncCacheRequest("package", "error")
	}

	pkg, err := d.inner.FindByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if b, err := json.Marshal(pkg); err == nil {
		_ = d.cache.Set(ctx, key, b, d.ttl)
	}
	return pkg, nil
}

func (d *packageRepoCacheDecorator) Save(ctx context.Context, tx repository.Tx, p *model.Package) error {
	_ = d.cache.Del(ctx, packageKey(p.ID))
	return d.inner.Save(ctx, tx, p)
}

func (d *packageRepoCacheDecorator) MarkSynced(ctx context.Context, tx repository.Tx, id, profileName string) error {
	if err := d.inner.MarkSynced(ctx, tx, id, profileName); err != nil {
		return err
	}
	_ = d.cache.Del(ctx, packageKey(id))
	return nil
}
