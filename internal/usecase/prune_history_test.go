package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"debridops/internal/domain"
)

func TestPruneOperationHistorySweepUsesConfiguredRetention(t *testing.T) {
	history := &fakeHistory{records: map[domain.OperationID]domain.OperationRecord{}, pruned: 3}
	uc := PruneOperationHistory{History: history, Retention: 7 * 24 * time.Hour}

	uc.sweep(context.Background())

	want := time.Now().Add(-7 * 24 * time.Hour).UnixMilli()
	if diff := history.lastCutoff - want; diff < -int64(time.Minute/time.Millisecond) || diff > int64(time.Minute/time.Millisecond) {
		t.Errorf("cutoff = %d, want about %d (7 days ago)", history.lastCutoff, want)
	}
}

func TestPruneOperationHistorySweepDefaultRetention(t *testing.T) {
	history := &fakeHistory{records: map[domain.OperationID]domain.OperationRecord{}}
	uc := PruneOperationHistory{History: history}

	uc.sweep(context.Background())

	want := time.Now().Add(-30 * 24 * time.Hour).UnixMilli()
	if diff := history.lastCutoff - want; diff < -int64(time.Minute/time.Millisecond) || diff > int64(time.Minute/time.Millisecond) {
		t.Errorf("cutoff = %d, want about %d (30 days ago)", history.lastCutoff, want)
	}
}

func TestPruneOperationHistorySweepSurvivesRepositoryError(t *testing.T) {
	history := &fakeHistory{
		records:  map[domain.OperationID]domain.OperationRecord{},
		pruneErr: errors.New("mongo down"),
	}
	uc := PruneOperationHistory{History: history, Retention: time.Hour}

	// A failed sweep logs and moves on; the next tick retries.
	uc.sweep(context.Background())

	if history.lastCutoff == 0 {
		t.Error("sweep never reached the repository")
	}
}
