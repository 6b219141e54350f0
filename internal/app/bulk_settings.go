package app

import (
	"context"
	"time"

	"debridops/internal/domain"
)

// BulkSettings is the wire/storage form of the engine-wide default bulk
// options: durations flattened to milliseconds.
type BulkSettings struct {
	MaxConcurrency  int   `json:"maxConcurrency"`
	ItemDelayMs     int64 `json:"itemDelayMs"`
	ContinueOnError bool  `json:"continueOnError"`
	ItemTimeoutMs   int64 `json:"itemTimeoutMs"`
}

// Options converts the flattened settings into engine options.
func (s BulkSettings) Options() domain.BulkOptions {
	return domain.BulkOptions{
		MaxConcurrency:  s.MaxConcurrency,
		ItemDelay:       time.Duration(s.ItemDelayMs) * time.Millisecond,
		ContinueOnError: s.ContinueOnError,
		ItemTimeout:     time.Duration(s.ItemTimeoutMs) * time.Millisecond,
	}
}

func BulkSettingsFromOptions(opts domain.BulkOptions) BulkSettings {
	return BulkSettings{
		MaxConcurrency:  opts.MaxConcurrency,
		ItemDelayMs:     opts.ItemDelay.Milliseconds(),
		ContinueOnError: opts.ContinueOnError,
		ItemTimeoutMs:   opts.ItemTimeout.Milliseconds(),
	}
}

type BulkSettingsEngine interface {
	DefaultOptions() domain.BulkOptions
	UpdateDefaultOptions(opts domain.BulkOptions)
}

type BulkSettingsStore interface {
	GetBulkSettings(ctx context.Context) (BulkSettings, bool, error)
	SetBulkSettings(ctx context.Context, settings BulkSettings) error
}

// BulkSettingsManager applies default-option updates to the engine and
// persists them, reverting the engine when the store write fails.
type BulkSettingsManager struct {
	engine  BulkSettingsEngine
	store   BulkSettingsStore
	timeout time.Duration
}

func NewBulkSettingsManager(engine BulkSettingsEngine, store BulkSettingsStore) *BulkSettingsManager {
	return &BulkSettingsManager{
		engine:  engine,
		store:   store,
		timeout: 5 * time.Second,
	}
}

func (m *BulkSettingsManager) Get() BulkSettings {
	return BulkSettingsFromOptions(m.engine.DefaultOptions())
}

func (m *BulkSettingsManager) Update(settings BulkSettings) error {
	prev := m.engine.DefaultOptions()
	m.engine.UpdateDefaultOptions(settings.Options())

	if m.store == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()
	if err := m.store.SetBulkSettings(ctx, m.Get()); err != nil {
		m.engine.UpdateDefaultOptions(prev)
		return err
	}
	return nil
}
