package domain

import (
	"errors"
	"time"
)

// OperationRecord is the persisted history row for one bulk operation:
// the terminal snapshot flattened for storage and listing.
type OperationRecord struct {
	ID             OperationID       `json:"id"`
	Type           BulkOperationType `json:"type"`
	Status         OperationStatus   `json:"status"`
	TotalItems     int               `json:"totalItems"`
	CompletedItems int               `json:"completedItems"`
	FailedItems    int               `json:"failedItems"`
	Errors         []ItemError       `json:"errors,omitempty"`
	Results        BulkResults       `json:"results"`
	StartedAt      time.Time         `json:"startedAt"`
	FinishedAt     time.Time         `json:"finishedAt,omitempty"`
	DurationMs     int64             `json:"durationMs"`
}

// Validate checks domain invariants for OperationRecord.
func (r OperationRecord) Validate() error {
	if r.ID == "" {
		return errors.New("operation id is required")
	}
	if err := r.Type.Validate(); err != nil {
		return errors.New("invalid operation type: " + string(r.Type))
	}
	if r.TotalItems < 0 {
		return errors.New("totalItems must not be negative")
	}
	if r.CompletedItems < 0 || r.FailedItems < 0 {
		return errors.New("counters must not be negative")
	}
	if r.CompletedItems+r.FailedItems > r.TotalItems {
		return errors.New("processed items must not exceed totalItems")
	}
	switch r.Status {
	case OperationRunning, OperationCompleted, OperationFailed, OperationCancelled:
		// valid
	case "":
		return errors.New("status is required")
	default:
		return errors.New("invalid status: " + string(r.Status))
	}
	return nil
}

// RecordFromProgress flattens a snapshot into a history record.
func RecordFromProgress(p BulkProgress) OperationRecord {
	rec := OperationRecord{
		ID:             p.OperationID,
		Type:           p.Type,
		Status:         p.Status(),
		TotalItems:     p.TotalItems,
		CompletedItems: p.CompletedItems,
		FailedItems:    p.FailedItems,
		Errors:         append([]ItemError(nil), p.Errors...),
		Results:        p.Results.Clone(),
		StartedAt:      p.StartedAt,
	}
	if p.IsCompleted {
		rec.FinishedAt = p.UpdatedAt
		rec.DurationMs = p.UpdatedAt.Sub(p.StartedAt).Milliseconds()
	}
	return rec
}

// ProgressFromRecord rebuilds a terminal snapshot from a stored record, for
// callers that ask about an operation after it left the registry.
func ProgressFromRecord(r OperationRecord) BulkProgress {
	p := BulkProgress{
		OperationID:    r.ID,
		Type:           r.Type,
		TotalItems:     r.TotalItems,
		CompletedItems: r.CompletedItems,
		FailedItems:    r.FailedItems,
		Errors:         append([]ItemError(nil), r.Errors...),
		Results:        r.Results.Clone(),
		IsCompleted:    r.Status != OperationRunning,
		IsFailed:       r.Status == OperationFailed,
		IsCancelled:    r.Status == OperationCancelled,
		StartedAt:      r.StartedAt,
		UpdatedAt:      r.FinishedAt,
	}
	return p.Derived()
}
