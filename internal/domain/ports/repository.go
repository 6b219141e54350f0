package ports

import (
	"context"

	"debridops/internal/domain"
)

// FileRepository is the persistent index of the user's remote library,
// refreshed from the provider and queried by the API and the bulk engine.
type FileRepository interface {
	Upsert(ctx context.Context, f domain.RemoteFile) error
	Get(ctx context.Context, id domain.FileID) (domain.RemoteFile, error)
	GetMany(ctx context.Context, ids []domain.FileID) ([]domain.RemoteFile, error)
	List(ctx context.Context, filter domain.FileFilter) ([]domain.RemoteFile, error)
	Delete(ctx context.Context, id domain.FileID) error
}

// OperationRepository stores bulk operation history.
type OperationRepository interface {
	Insert(ctx context.Context, rec domain.OperationRecord) error
	Finish(ctx context.Context, rec domain.OperationRecord) error
	Get(ctx context.Context, id domain.OperationID) (domain.OperationRecord, error)
	List(ctx context.Context, filter domain.OperationFilter) ([]domain.OperationRecord, error)
	PruneOlderThan(ctx context.Context, cutoffMs int64) (int64, error)
}
