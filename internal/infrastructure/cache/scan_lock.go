package cache

import (
	"context"
	"time"
)

// ScanLock provides cross-instance mutual exclusion for the batch scan using
// Redis SET NX. The TTL bounds how long a crashed holder can block other
// instances.
type ScanLock struct {
	cache Cache
}

// NewScanLock creates a scan lock backed by the given cache.
func NewScanLock(cache Cache) *ScanLock {
	return &ScanLock{cache: cache}
}

// Acquire attempts to take the lock. It returns false without error when
// another holder already has it.
func (l *ScanLock) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return l.cache.SetNX(ctx, key, "locked", ttl)
}

// Release frees the lock so the next scan can run.
func (l *ScanLock) Release(ctx context.Context, key string) error {
	return l.cache.Delete(ctx, key)
}
