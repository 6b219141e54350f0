package domain

import "time"

const (
	DefaultMaxConcurrency = 3
	DefaultItemDelay      = 100 * time.Millisecond
	DefaultItemTimeout    = 30 * time.Second
)

// BulkOptions tunes one bulk operation. Immutable once the operation starts.
type BulkOptions struct {
	// MaxConcurrency bounds how many item actions run at the same instant.
	MaxConcurrency int
	// ItemDelay paces admissions to avoid tripping provider rate limits.
	// Zero disables pacing.
	ItemDelay time.Duration
	// ContinueOnError keeps the batch going after item failures. The engine
	// always continues; the flag is carried for callers that inspect it.
	ContinueOnError bool
	// ItemTimeout caps a single item action, enforced via context deadline.
	ItemTimeout time.Duration
}

func DefaultBulkOptions() BulkOptions {
	return BulkOptions{
		MaxConcurrency:  DefaultMaxConcurrency,
		ItemDelay:       DefaultItemDelay,
		ContinueOnError: true,
		ItemTimeout:     DefaultItemTimeout,
	}
}

// Normalize fills unusable values with defaults so a partially filled
// options struct is always safe to run with.
func (o BulkOptions) Normalize() BulkOptions {
	if o.MaxConcurrency < 1 {
		o.MaxConcurrency = DefaultMaxConcurrency
	}
	if o.ItemDelay < 0 {
		o.ItemDelay = DefaultItemDelay
	}
	if o.ItemTimeout <= 0 {
		o.ItemTimeout = DefaultItemTimeout
	}
	return o
}
