package usecase

import (
	"context"

	"debridops/internal/domain"
)

type ListActiveOperations struct {
	Engine BulkEngine
}

func (uc ListActiveOperations) Execute(_ context.Context) []domain.BulkProgress {
	return uc.Engine.Active()
}
