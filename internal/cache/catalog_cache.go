package cache

import (
	"context"
	"sync"
	"time"

	"github.com/Cheertaboi/farmshop-subscription-service/internal/models"
)

// OfferingSource is the catalog lookup behind the cache.
type OfferingSource interface {
	GetOffering(ctx context.Context, productID string) (*models.Offering, error)
}

type entry struct {
	offering models.Offering
	expires  time.Time
}

// CatalogCache is a read-through TTL cache for product offerings. Basket
// edits hit the same handful of products repeatedly; prices used at
// subscription creation are never older than the TTL.
type CatalogCache struct {
	source OfferingSource
	ttl    time.Duration
	now    func() time.Time

	mu    sync.RWMutex
	store map[string]entry
}

func NewCatalogCache(source OfferingSource, ttl time.Duration) *CatalogCache {
	return &CatalogCache{
		source: source,
		ttl:    ttl,
		now:    time.Now,
		store:  make(map[string]entry),
	}
}

func (c *CatalogCache) GetOffering(ctx context.Context, productID string) (*models.Offering, error) {
	if c.ttl <= 0 {
		return c.source.GetOffering(ctx, productID)
	}
	c.mu.RLock()
	e, ok := c.store[productID]
	c.mu.RUnlock()
	if ok && c.now().Before(e.expires) {
		o := e.offering
		return &o, nil
	}

	o, err := c.source.GetOffering(ctx, productID)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.store[productID] = entry{offering: *o, expires: c.now().Add(c.ttl)}
	c.mu.Unlock()
	return o, nil
}

// Invalidate drops a cached product, or everything when productID is empty.
func (c *CatalogCache) Invalidate(productID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if productID == "" {
		c.store = make(map[string]entry)
		return
	}
	delete(c.store, productID)
}
