package cache

import (
	"context"
	"time"

	"github.com/kjstillabower/solar-dashboard-service/internal/circuitbreaker"
	"github.com/kjstillabower/solar-dashboard-service/internal/models"
)

// BreakerCache guards a remote Cache with a circuit breaker so an unreachable
// memcached costs one fast error per call instead of a network timeout.
// A miss is a success; only backend errors count as failures.
type BreakerCache struct {
	inner   Cache
	breaker *circuitbreaker.CircuitBreaker
}

// NewBreakerCache wraps inner with breaker.
func NewBreakerCache(inner Cache, breaker *circuitbreaker.CircuitBreaker) *BreakerCache {
	return &BreakerCache{inner: inner, breaker: breaker}
}

func (c *BreakerCache) Get(ctx context.Context, key string) (models.Dataset, bool, error) {
	var (
		ds models.Dataset
		ok bool
	)
	err := c.breaker.Call(ctx, func() error {
		var err error
		ds, ok, err = c.inner.Get(ctx, key)
		return err
	})
	return ds, ok, err
}

func (c *BreakerCache) Set(ctx context.Context, key string, value models.Dataset, ttl time.Duration) error {
	return c.breaker.Call(ctx, func() error {
		return c.inner.Set(ctx, key, value, ttl)
	})
}

func (c *BreakerCache) Delete(ctx context.Context, key string) error {
	return c.breaker.Call(ctx, func() error {
		return c.inner.Delete(ctx, key)
	})
}

// State returns the breaker state.
func (c *BreakerCache) State() circuitbreaker.State {
	return c.breaker.State()
}
