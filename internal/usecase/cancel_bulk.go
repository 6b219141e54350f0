package usecase

import (
	"context"

	"debridops/internal/domain"
)

type CancelBulkOperation struct {
	Engine BulkEngine
}

// Execute requests cooperative cancellation. Unknown or already-finished
// operations report domain.ErrNotFound.
func (uc CancelBulkOperation) Execute(_ context.Context, id domain.OperationID) error {
	if id == "" || !uc.Engine.Cancel(id) {
		return domain.ErrNotFound
	}
	return nil
}
