package domain

import "time"

type ItemError struct {
	FileID   FileID `json:"fileId"`
	Filename string `json:"filename"`
	Message  string `json:"message"`
}

// BulkProgress is an immutable point-in-time snapshot of one bulk operation,
// emitted on the progress stream and broadcast to clients. Counters are exact;
// CurrentItem is last-writer-wins across workers and only suitable for display.
type BulkProgress struct {
	OperationID    OperationID       `json:"operationId"`
	Type           BulkOperationType `json:"type"`
	TotalItems     int               `json:"totalItems"`
	CompletedItems int               `json:"completedItems"`
	FailedItems    int               `json:"failedItems"`
	CurrentItem    string            `json:"currentItem,omitempty"`
	Errors         []ItemError       `json:"errors,omitempty"`
	Results        BulkResults       `json:"results"`
	IsCompleted    bool              `json:"isCompleted"`
	IsFailed       bool              `json:"isFailed"`
	IsCancelled    bool              `json:"isCancelled"`

	ProgressPercentage float64 `json:"progressPercentage"`
	SuccessRate        float64 `json:"successRate"`
	RemainingItems     int     `json:"remainingItems"`
	HasErrors          bool    `json:"hasErrors"`
	IsSuccessful       bool    `json:"isSuccessful"`

	StartedAt time.Time `json:"startedAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Derived returns a copy with the computed fields filled from the raw
// counters and flags. Division by zero yields 0, never NaN.
func (p BulkProgress) Derived() BulkProgress {
	processed := p.CompletedItems + p.FailedItems
	if p.TotalItems > 0 {
		p.ProgressPercentage = float64(processed) / float64(p.TotalItems) * 100
	} else {
		p.ProgressPercentage = 0
	}
	if processed > 0 {
		p.SuccessRate = float64(p.CompletedItems) / float64(processed) * 100
	} else {
		p.SuccessRate = 0
	}
	p.RemainingItems = p.TotalItems - processed
	p.HasErrors = len(p.Errors) > 0
	p.IsSuccessful = p.IsCompleted && p.FailedItems == 0 && !p.IsFailed
	return p
}

// Status maps the snapshot flags onto the persisted operation status.
func (p BulkProgress) Status() OperationStatus {
	switch {
	case p.IsFailed:
		return OperationFailed
	case p.IsCompleted && p.IsCancelled:
		return OperationCancelled
	case p.IsCompleted:
		return OperationCompleted
	default:
		return OperationRunning
	}
}
