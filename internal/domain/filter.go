package domain

type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

type OperationFilter struct {
	Status    *OperationStatus   `json:"status,omitempty"`
	Type      *BulkOperationType `json:"type,omitempty"`
	SortBy    string             `json:"sortBy,omitempty"`
	SortOrder SortOrder          `json:"sortOrder,omitempty"`
	Limit     int                `json:"limit,omitempty"`
	Offset    int                `json:"offset,omitempty"`
}

type FileFilter struct {
	Source    *FileSource `json:"source,omitempty"`
	Host      string      `json:"host,omitempty"`
	Playable  *bool       `json:"playable,omitempty"`
	Search    string      `json:"search,omitempty"`
	SortBy    string      `json:"sortBy,omitempty"`
	SortOrder SortOrder   `json:"sortOrder,omitempty"`
	Limit     int         `json:"limit,omitempty"`
	Offset    int         `json:"offset,omitempty"`
}
