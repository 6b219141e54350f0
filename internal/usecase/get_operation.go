package usecase

import (
	"context"
	"errors"

	"debridops/internal/domain"
	"debridops/internal/domain/ports"
)

type GetOperationProgress struct {
	Engine  BulkEngine
	History ports.OperationRepository
}

// Execute returns a live snapshot while the operation is registered, then
// falls back to the persisted history row once it has finished.
func (uc GetOperationProgress) Execute(ctx context.Context, id domain.OperationID) (domain.BulkProgress, error) {
	p, err := uc.Engine.Progress(id)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return domain.BulkProgress{}, wrapEngine(err)
	}

	if uc.History == nil {
		return domain.BulkProgress{}, domain.ErrNotFound
	}
	rec, err := uc.History.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.BulkProgress{}, domain.ErrNotFound
		}
		return domain.BulkProgress{}, wrapRepo(err)
	}
	return domain.ProgressFromRecord(rec), nil
}
