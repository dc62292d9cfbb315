package cache

import (
	"context"
	"time"
)

// AnalyticsCache holds marshaled analytics responses keyed by window and
// offset. A miss is (nil, false, nil); errors are reserved for transport
// failures so callers can log and fall through to a fresh computation.
type AnalyticsCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error
}

type NoopAnalyticsCache struct{}

func (NoopAnalyticsCache) Get(_ context.Context, _ string) ([]byte, bool, error) {
	return nil, false, nil
}

func (NoopAnalyticsCache) Set(_ context.Context, _ string, _ []byte, _ time.Duration) error {
	return nil
}
