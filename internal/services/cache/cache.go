package cache

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"debridops/internal/domain"
	"debridops/internal/metrics"
)

const (
	DefaultTTL        = 15 * time.Minute
	DefaultMaxEntries = 10000
)

type Config struct {
	// TTL applies when a redis hit is copied back into memory and when a
	// caller passes no per-entry TTL.
	TTL        time.Duration
	MaxEntries int
	// Redis is optional; without it the cache is memory-only.
	Redis  *RedisBackend
	Logger *slog.Logger
}

// Layered is the file-metadata cache: an in-memory TTL layer in front of an
// optional Redis layer. Redis trouble degrades the cache to memory-only and
// never fails the caller.
type Layered struct {
	memory *memoryStore
	redis  *RedisBackend
	logger *slog.Logger

	ttlMu sync.RWMutex
	ttl   time.Duration
}

func NewLayered(cfg Config) *Layered {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Layered{
		memory: newMemoryStore(cfg.MaxEntries),
		redis:  cfg.Redis,
		logger: logger,
		ttl:    ttl,
	}
}

func (l *Layered) defaultTTL() time.Duration {
	l.ttlMu.RLock()
	defer l.ttlMu.RUnlock()
	return l.ttl
}

func (l *Layered) Get(ctx context.Context, id domain.FileID) (domain.RemoteFile, bool, error) {
	now := time.Now()
	if file, ok := l.memory.get(id, now); ok {
		metrics.CacheHitsTotal.WithLabelValues("memory").Inc()
		return file, true, nil
	}

	if l.redis != nil {
		file, ok, err := l.redis.Get(ctx, id)
		switch {
		case err != nil:
			l.logger.Warn("redis cache get failed",
				slog.String("fileId", string(id)),
				slog.String("error", err.Error()),
			)
		case ok:
			metrics.CacheHitsTotal.WithLabelValues("redis").Inc()
			// Keep a local copy so repeat lookups skip the round-trip.
			l.memory.set(file, now, l.defaultTTL())
			return file, true, nil
		}
	}

	metrics.CacheMissesTotal.Inc()
	return domain.RemoteFile{}, false, nil
}

func (l *Layered) Set(ctx context.Context, file domain.RemoteFile, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = l.defaultTTL()
	}
	l.memory.set(file, time.Now(), ttl)

	if l.redis != nil {
		if err := l.redis.Set(ctx, file, ttl); err != nil {
			l.logger.Warn("redis cache set failed",
				slog.String("fileId", string(file.ID)),
				slog.String("error", err.Error()),
			)
		}
	}
	return nil
}

// Remove clears both layers. The redis error is returned so callers can log
// it; the memory layer is always cleared first.
func (l *Layered) Remove(ctx context.Context, id domain.FileID) error {
	l.memory.remove(id)
	if l.redis != nil {
		return l.redis.Delete(ctx, id)
	}
	return nil
}

func (l *Layered) Ping(ctx context.Context) error {
	if l.redis == nil {
		return nil
	}
	return l.redis.Ping(ctx)
}

// SetMaxEntries resizes the memory layer, trimming immediately when the new
// cap is smaller.
func (l *Layered) SetMaxEntries(n int) {
	l.memory.setMaxEntries(n)
}

// CacheTTL reports the default entry TTL. Part of the settings-manager
// surface (app.CacheSettingsEngine).
func (l *Layered) CacheTTL() time.Duration {
	return l.defaultTTL()
}

// CacheMaxEntries reports the memory layer's entry cap.
func (l *Layered) CacheMaxEntries() int {
	return l.memory.maxEntriesLimit()
}

// UpdateCacheSettings applies new tuning values. Entries already cached keep
// the TTL they were stored with; a smaller cap trims immediately.
func (l *Layered) UpdateCacheSettings(ttl time.Duration, maxEntries int) {
	if ttl > 0 {
		l.ttlMu.Lock()
		l.ttl = ttl
		l.ttlMu.Unlock()
	}
	l.memory.setMaxEntries(maxEntries)
}

// Len reports how many entries the memory layer currently holds.
func (l *Layered) Len() int {
	return l.memory.len()
}
