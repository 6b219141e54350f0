package domain

type OperationID string

// BulkOperationType is the closed set of actions a bulk operation can apply
// to a batch of remote files.
type BulkOperationType string

const (
	BulkDelete         BulkOperationType = "delete"
	BulkDownload       BulkOperationType = "download"
	BulkPlay           BulkOperationType = "play"
	BulkAddToFavorites BulkOperationType = "add_to_favorites"
)

func (t BulkOperationType) Validate() error {
	switch t {
	case BulkDelete, BulkDownload, BulkPlay, BulkAddToFavorites:
		return nil
	default:
		return ErrUnsupported
	}
}

// OperationStatus is the persisted state of a finished or running operation.
type OperationStatus string

const (
	OperationRunning   OperationStatus = "running"
	OperationCompleted OperationStatus = "completed"
	OperationFailed    OperationStatus = "failed"
	OperationCancelled OperationStatus = "cancelled"
)
