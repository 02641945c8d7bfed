package cache

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"strings"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/klauspost/compress/zstd"

	"github.com/kjstillabower/solar-dashboard-service/internal/models"
)

const keyPrefix = "solar:"

// MemcachedCache implements Cache using memcached. Values are gob-encoded
// (gob keeps NaN cells that JSON rejects) and zstd-compressed.
type MemcachedCache struct {
	client  *memcache.Client
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// NewMemcachedCache creates a MemcachedCache. addrs is a comma-separated list
// (e.g. "localhost:11211" or "host1:11211,host2:11211"). timeout and maxIdleConns
// configure the client; both use package defaults if zero.
func NewMemcachedCache(addrs string, timeout time.Duration, maxIdleConns int) (*MemcachedCache, error) {
	servers := parseAddrs(addrs)
	if len(servers) == 0 {
		servers = []string{"localhost:11211"}
	}
	client := memcache.New(servers...)
	if timeout > 0 {
		client.Timeout = timeout
	}
	if maxIdleConns > 0 {
		client.MaxIdleConns = maxIdleConns
	}
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, err
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	return &MemcachedCache{client: client, encoder: enc, decoder: dec}, nil
}

func parseAddrs(s string) []string {
	var out []string
	for _, a := range strings.Split(s, ",") {
		a = strings.TrimSpace(a)
		if a != "" {
			out = append(out, a)
		}
	}
	return out
}

func (c *MemcachedCache) key(k string) string {
	return keyPrefix + k
}

// Get implements Cache.Get. Returns false, nil on cache miss; false, err on error.
func (c *MemcachedCache) Get(ctx context.Context, key string) (models.Dataset, bool, error) {
	if ctx.Err() != nil {
		return models.Dataset{}, false, ctx.Err()
	}
	item, err := c.client.Get(c.key(key))
	if err != nil {
		if errors.Is(err, memcache.ErrCacheMiss) {
			return models.Dataset{}, false, nil
		}
		return models.Dataset{}, false, err
	}
	raw, err := c.decoder.DecodeAll(item.Value, nil)
	if err != nil {
		return models.Dataset{}, false, err
	}
	var data models.Dataset
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&data); err != nil {
		return models.Dataset{}, false, err
	}
	return data, true, nil
}

// Set implements Cache.Set. Datasets larger than the server's item size limit
// are rejected by memcached; callers treat that like any other set failure.
func (c *MemcachedCache) Set(ctx context.Context, key string, value models.Dataset, ttl time.Duration) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(value); err != nil {
		return err
	}
	expSec := int32(ttl.Seconds())
	const maxRelativeExp = 30 * 24 * 60 * 60 // 30 days
	if expSec <= 0 || expSec > maxRelativeExp {
		expSec = 3600 // fallback 1h if invalid
	}
	return c.client.Set(&memcache.Item{
		Key:        c.key(key),
		Value:      c.encoder.EncodeAll(buf.Bytes(), nil),
		Expiration: expSec,
	})
}

// Delete implements Cache.Delete. A missing key is not an error.
func (c *MemcachedCache) Delete(ctx context.Context, key string) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err := c.client.Delete(c.key(key)); err != nil && !errors.Is(err, memcache.ErrCacheMiss) {
		return err
	}
	return nil
}

// Ping checks if memcached is reachable. Used for health checks.
func (c *MemcachedCache) Ping() error {
	return c.client.Ping()
}

// Close closes the memcached client connections. Call during shutdown.
func (c *MemcachedCache) Close() error {
	c.decoder.Close()
	_ = c.encoder.Close()
	return c.client.Close()
}
