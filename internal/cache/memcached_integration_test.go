//go:build integration
// +build integration

package cache

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/kjstillabower/solar-dashboard-service/internal/models"
)

// TestMemcachedCache_GetSet_Integration verifies that MemcachedCache round-trips
// a dataset, NaN cells included, when a memcached server is available.
func TestMemcachedCache_GetSet_Integration(t *testing.T) {
	c, err := NewMemcachedCache("localhost:11211", 500*time.Millisecond, 2)
	if err != nil {
		t.Fatalf("NewMemcachedCache() error = %v", err)
	}
	defer c.Close()

	ctx := context.Background()
	val := testDataset()
	val.Records = append(val.Records, models.Record{Country: "Benin", GHI: math.NaN()})
	if err := c.Set(ctx, "integration", val, time.Minute); err != nil {
		t.Skipf("Set failed (memcached may not be running): %v", err)
	}
	defer c.Delete(ctx, "integration")

	got, ok, err := c.Get(ctx, "integration")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !ok {
		t.Fatal("Get() ok = false, want true")
	}
	if got.Len() != 2 || got.Records[0].GHI != 12.5 || !math.IsNaN(got.Records[1].GHI) {
		t.Errorf("Get() = %+v, want %+v", got, val)
	}
}

// TestMemcachedCache_Get_Miss_Integration verifies that MemcachedCache returns
// ok=false when requested key does not exist in memcached.
func TestMemcachedCache_Get_Miss_Integration(t *testing.T) {
	c, err := NewMemcachedCache("localhost:11211", 500*time.Millisecond, 2)
	if err != nil {
		t.Fatalf("NewMemcachedCache() error = %v", err)
	}
	defer c.Close()

	ctx := context.Background()
	_, ok, err := c.Get(ctx, "nonexistent")
	if err != nil {
		t.Skipf("Get failed (memcached may not be running): %v", err)
	}
	if ok {
		t.Error("Get() ok = true, want false for miss")
	}
}
