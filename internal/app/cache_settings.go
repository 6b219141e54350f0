package app

import (
	"context"
	"time"
)

type CacheSettings struct {
	TTLMinutes int `json:"ttlMinutes"`
	MaxEntries int `json:"maxEntries"`
}

type CacheSettingsEngine interface {
	CacheTTL() time.Duration
	CacheMaxEntries() int
	UpdateCacheSettings(ttl time.Duration, maxEntries int)
}

type CacheSettingsStore interface {
	GetCacheSettings(ctx context.Context) (CacheSettings, bool, error)
	SetCacheSettings(ctx context.Context, settings CacheSettings) error
}

// CacheSettingsManager tunes the file cache and persists the chosen values,
// reverting the cache when the store write fails.
type CacheSettingsManager struct {
	engine  CacheSettingsEngine
	store   CacheSettingsStore
	timeout time.Duration
}

func NewCacheSettingsManager(engine CacheSettingsEngine, store CacheSettingsStore) *CacheSettingsManager {
	return &CacheSettingsManager{
		engine:  engine,
		store:   store,
		timeout: 5 * time.Second,
	}
}

func (m *CacheSettingsManager) Get() CacheSettings {
	return CacheSettings{
		TTLMinutes: int(m.engine.CacheTTL() / time.Minute),
		MaxEntries: m.engine.CacheMaxEntries(),
	}
}

func (m *CacheSettingsManager) Update(settings CacheSettings) error {
	prevTTL := m.engine.CacheTTL()
	prevMax := m.engine.CacheMaxEntries()
	m.engine.UpdateCacheSettings(time.Duration(settings.TTLMinutes)*time.Minute, settings.MaxEntries)

	if m.store == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()
	if err := m.store.SetCacheSettings(ctx, m.Get()); err != nil {
		m.engine.UpdateCacheSettings(prevTTL, prevMax)
		return err
	}
	return nil
}
