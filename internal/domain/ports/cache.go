package ports

import (
	"context"
	"time"

	"debridops/internal/domain"
)

// FileCache is the local cache of remote file metadata. Invalidation after a
// delete is best-effort: callers swallow Remove errors.
type FileCache interface {
	Get(ctx context.Context, id domain.FileID) (domain.RemoteFile, bool, error)
	Set(ctx context.Context, file domain.RemoteFile, ttl time.Duration) error
	Remove(ctx context.Context, id domain.FileID) error
	Ping(ctx context.Context) error
}
