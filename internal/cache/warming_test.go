package cache

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kjstillabower/solar-dashboard-service/internal/models"
)

type mockDatasetFetcher struct {
	dataset models.Dataset
	err     error
	calls   atomic.Int32
}

func (m *mockDatasetFetcher) Dataset(ctx context.Context) (models.Dataset, error) {
	m.calls.Add(1)
	if m.err != nil {
		return models.Dataset{}, m.err
	}
	return m.dataset, nil
}

func TestCacheWarmer_Warm_Success(t *testing.T) {
	fetcher := &mockDatasetFetcher{dataset: models.Dataset{Records: []models.Record{{Country: "Benin", GHI: 5}}}}
	warmer := NewCacheWarmer(fetcher, nil)

	if err := warmer.Warm(context.Background()); err != nil {
		t.Fatalf("Warm() error = %v, want nil", err)
	}
	if fetcher.calls.Load() != 1 {
		t.Errorf("fetcher calls = %d, want 1", fetcher.calls.Load())
	}
}

func TestCacheWarmer_Warm_FetcherError(t *testing.T) {
	cause := errors.New("disk gone")
	fetcher := &mockDatasetFetcher{err: cause}
	warmer := NewCacheWarmer(fetcher, nil)

	err := warmer.Warm(context.Background())
	if !errors.Is(err, cause) {
		t.Fatalf("Warm() error = %v, want wrapped %v", err, cause)
	}
	if !strings.Contains(err.Error(), "cache warming") {
		t.Errorf("Warm() error = %q, want cache warming prefix", err)
	}
}

func TestCacheWarmer_WarmPeriodic_StopsOnCancel(t *testing.T) {
	fetcher := &mockDatasetFetcher{}
	warmer := NewCacheWarmer(fetcher, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 35*time.Millisecond)
	defer cancel()

	err := warmer.WarmPeriodic(ctx, 10*time.Millisecond)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("WarmPeriodic() error = %v, want DeadlineExceeded", err)
	}
	if fetcher.calls.Load() < 2 {
		t.Errorf("fetcher calls = %d, want initial warm plus at least one tick", fetcher.calls.Load())
	}
}
