// Package ristretto caches the property collaborator with dgraph-io/ristretto.
package ristretto

import (
	"context"
	"time"

	"github.com/dgraph-io/ristretto/v2"

	"github.com/neomorfeo/tenancyd/internal/domain"
)

// CachedPropertyDirectory is a read-through cache in front of a
// domain.PropertyDirectory. Property owners and unit parents are cached;
// access checks and property listings always reach the backing directory
// so revoked grants take effect immediately.
type CachedPropertyDirectory struct {
	next domain.PropertyDirectory
	c    *ristretto.Cache[string, string]
	ttl  time.Duration
}

var _ domain.PropertyDirectory = (*CachedPropertyDirectory)(nil)

// NewCachedPropertyDirectory creates a cache holding up to maxEntries
// lookups, each kept for ttl.
func NewCachedPropertyDirectory(next domain.PropertyDirectory, maxEntries int64, ttl time.Duration) (*CachedPropertyDirectory, error) {
	c, err := ristretto.NewCache(&ristretto.Config[string, string]{
		NumCounters: maxEntries * 10, // ~10x expected items
		MaxCost:     maxEntries,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &CachedPropertyDirectory{next: next, c: c, ttl: ttl}, nil
}

func (d *CachedPropertyDirectory) GetPropertyOwner(ctx context.Context, propertyID string) (string, error) {
	return d.lookup("owner:"+propertyID, func() (string, error) {
		return d.next.GetPropertyOwner(ctx, propertyID)
	})
}

func (d *CachedPropertyDirectory) GetParentPropertyForUnit(ctx context.Context, unitID string) (string, error) {
	return d.lookup("unit:"+unitID, func() (string, error) {
		return d.next.GetParentPropertyForUnit(ctx, unitID)
	})
}

func (d *CachedPropertyDirectory) CheckPropertyAccess(ctx context.Context, propertyID, userID string) (bool, error) {
	return d.next.CheckPropertyAccess(ctx, propertyID, userID)
}

func (d *CachedPropertyDirectory) ListOwnedProperties(ctx context.Context, ownerID string) ([]string, error) {
	return d.next.ListOwnedProperties(ctx, ownerID)
}

// lookup returns the cached value for key or loads and caches it. Errors
// are never cached.
func (d *CachedPropertyDirectory) lookup(key string, load func() (string, error)) (string, error) {
	if v, ok := d.c.Get(key); ok {
		return v, nil
	}
	v, err := load()
	if err != nil {
		return "", err
	}
	d.c.SetWithTTL(key, v, 1, d.ttl)
	return v, nil
}

// Wait blocks until pending cache writes are applied.
func (d *CachedPropertyDirectory) Wait() {
	d.c.Wait()
}

// Close shuts down the cache and releases resources.
func (d *CachedPropertyDirectory) Close() {
	d.c.Close()
}
