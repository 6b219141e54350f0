package usecase

import (
	"context"

	"debridops/internal/domain"
	"debridops/internal/domain/ports"
)

type ListOperationHistory struct {
	History ports.OperationRepository
}

func (uc ListOperationHistory) Execute(ctx context.Context, filter domain.OperationFilter) ([]domain.OperationRecord, error) {
	records, err := uc.History.List(ctx, filter)
	if err != nil {
		return nil, wrapRepo(err)
	}
	return records, nil
}
