package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"debridops/internal/domain"
)

func TestGetOperationProgress_Live(t *testing.T) {
	engine := newFakeEngine(t, "op-live", 0)
	engine.progressByID["op-live"] = domain.BulkProgress{
		OperationID:    "op-live",
		Type:           domain.BulkDelete,
		TotalItems:     4,
		CompletedItems: 2,
	}
	uc := GetOperationProgress{Engine: engine, History: &fakeHistory{}}

	got, err := uc.Execute(context.Background(), "op-live")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.CompletedItems != 2 || got.IsCompleted {
		t.Errorf("expected live running snapshot, got %+v", got)
	}
}

func TestGetOperationProgress_History(t *testing.T) {
	now := time.Now().UTC()
	history := &fakeHistory{records: map[domain.OperationID]domain.OperationRecord{
		"op-done": {
			ID:             "op-done",
			Type:           domain.BulkDownload,
			Status:         domain.OperationCompleted,
			TotalItems:     3,
			CompletedItems: 3,
			StartedAt:      now.Add(-time.Minute),
			FinishedAt:     now,
			DurationMs:     60000,
		},
	}}
	uc := GetOperationProgress{Engine: newFakeEngine(t, "", 0), History: history}

	got, err := uc.Execute(context.Background(), "op-done")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.IsCompleted {
		t.Error("expected a terminal snapshot from history")
	}
	if got.ProgressPercentage != 100 {
		t.Errorf("expected derived progress 100, got %v", got.ProgressPercentage)
	}
}

func TestGetOperationProgress_NotFound(t *testing.T) {
	uc := GetOperationProgress{Engine: newFakeEngine(t, "", 0), History: &fakeHistory{}}

	_, err := uc.Execute(context.Background(), "ghost")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetOperationProgress_HistoryError(t *testing.T) {
	history := &fakeHistory{getErr: errors.New("mongo down")}
	uc := GetOperationProgress{Engine: newFakeEngine(t, "", 0), History: history}

	_, err := uc.Execute(context.Background(), "op-x")
	if !errors.Is(err, ErrRepository) {
		t.Fatalf("expected ErrRepository, got %v", err)
	}
}

func TestListOperationHistory(t *testing.T) {
	history := &fakeHistory{records: map[domain.OperationID]domain.OperationRecord{
		"op-1": {ID: "op-1", Type: domain.BulkDelete, Status: domain.OperationCompleted},
	}}
	uc := ListOperationHistory{History: history}

	got, err := uc.Execute(context.Background(), domain.OperationFilter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].ID != "op-1" {
		t.Errorf("unexpected history list: %+v", got)
	}
}
