package ports

import "debridops/internal/domain"

// ProgressNotifier pushes progress snapshots to connected clients.
// Implementations must not block the caller.
type ProgressNotifier interface {
	PublishProgress(p domain.BulkProgress)
}
