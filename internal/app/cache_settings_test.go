package app

import (
	"context"
	"errors"
	"testing"
	"time"
)

// ---- fakes ----

type fakeCacheEngine struct {
	ttl         time.Duration
	maxEntries  int
	updateCalls int
}

func (f *fakeCacheEngine) CacheTTL() time.Duration { return f.ttl }
func (f *fakeCacheEngine) CacheMaxEntries() int    { return f.maxEntries }
func (f *fakeCacheEngine) UpdateCacheSettings(ttl time.Duration, maxEntries int) {
	f.ttl = ttl
	f.maxEntries = maxEntries
	f.updateCalls++
}

type fakeCacheStore struct {
	settings CacheSettings
	setErr   error
	setCalls int
}

func (f *fakeCacheStore) GetCacheSettings(_ context.Context) (CacheSettings, bool, error) {
	return f.settings, false, nil
}

func (f *fakeCacheStore) SetCacheSettings(_ context.Context, s CacheSettings) error {
	f.setCalls++
	if f.setErr != nil {
		return f.setErr
	}
	f.settings = s
	return nil
}

// ---- tests ----

func TestCacheSettingsManager_Get(t *testing.T) {
	engine := &fakeCacheEngine{ttl: 15 * time.Minute, maxEntries: 10000}
	mgr := NewCacheSettingsManager(engine, nil)

	got := mgr.Get()

	if got.TTLMinutes != 15 {
		t.Errorf("expected ttlMinutes 15, got %d", got.TTLMinutes)
	}
	if got.MaxEntries != 10000 {
		t.Errorf("expected maxEntries 10000, got %d", got.MaxEntries)
	}
}

func TestCacheSettingsManager_Update_NoStore(t *testing.T) {
	engine := &fakeCacheEngine{ttl: 15 * time.Minute, maxEntries: 10000}
	mgr := NewCacheSettingsManager(engine, nil)

	err := mgr.Update(CacheSettings{TTLMinutes: 5, MaxEntries: 500})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if engine.ttl != 5*time.Minute {
		t.Errorf("expected ttl 5m, got %v", engine.ttl)
	}
	if engine.maxEntries != 500 {
		t.Errorf("expected maxEntries 500, got %d", engine.maxEntries)
	}
}

func TestCacheSettingsManager_Update_WithStore(t *testing.T) {
	engine := &fakeCacheEngine{ttl: 15 * time.Minute, maxEntries: 10000}
	store := &fakeCacheStore{}
	mgr := NewCacheSettingsManager(engine, store)

	err := mgr.Update(CacheSettings{TTLMinutes: 30, MaxEntries: 2000})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if store.setCalls != 1 {
		t.Errorf("expected 1 store set call, got %d", store.setCalls)
	}
	if store.settings.TTLMinutes != 30 {
		t.Errorf("expected stored ttlMinutes 30, got %d", store.settings.TTLMinutes)
	}
}

func TestCacheSettingsManager_Update_StoreError_Rollback(t *testing.T) {
	engine := &fakeCacheEngine{ttl: 15 * time.Minute, maxEntries: 10000}
	store := &fakeCacheStore{setErr: errors.New("db error")}
	mgr := NewCacheSettingsManager(engine, store)

	err := mgr.Update(CacheSettings{TTLMinutes: 1, MaxEntries: 10})
	if err == nil {
		t.Fatal("expected error from store")
	}

	if engine.ttl != 15*time.Minute {
		t.Errorf("expected rollback to ttl 15m, got %v", engine.ttl)
	}
	if engine.maxEntries != 10000 {
		t.Errorf("expected rollback to maxEntries 10000, got %d", engine.maxEntries)
	}
	if engine.updateCalls != 2 {
		t.Errorf("expected 2 update calls (set + rollback), got %d", engine.updateCalls)
	}
}
