package apihttp

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"debridops/internal/domain"
	"debridops/internal/usecase"
)

// maxBulkItems caps one request's batch size so a single call cannot tie up
// the engine for hours.
const maxBulkItems = 100

func (s *Server) handleOperations(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleStartOperation(w, r)
	case http.MethodGet:
		s.handleListOperations(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

type bulkOptionsRequest struct {
	MaxConcurrency  int   `json:"maxConcurrency,omitempty"`
	ItemDelayMs     int64 `json:"itemDelayMs,omitempty"`
	ContinueOnError *bool `json:"continueOnError,omitempty"`
	ItemTimeoutMs   int64 `json:"itemTimeoutMs,omitempty"`
}

type startOperationRequest struct {
	Type    string              `json:"type"`
	FileIDs []string            `json:"fileIds"`
	Options *bulkOptionsRequest `json:"options,omitempty"`
}

func (s *Server) handleStartOperation(w http.ResponseWriter, r *http.Request) {
	if s.executeBulk == nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "execute bulk use case not configured")
		return
	}

	var body startOperationRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid json")
		return
	}

	opType := domain.BulkOperationType(strings.TrimSpace(body.Type))
	if err := opType.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid operation type")
		return
	}
	if len(body.FileIDs) == 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "fileIds is required")
		return
	}
	if len(body.FileIDs) > maxBulkItems {
		writeError(w, http.StatusBadRequest, "invalid_request", "too many items in one batch")
		return
	}

	fileIDs := make([]domain.FileID, 0, len(body.FileIDs))
	for _, raw := range body.FileIDs {
		id := strings.TrimSpace(raw)
		if id == "" {
			writeError(w, http.StatusBadRequest, "invalid_request", "empty file id")
			return
		}
		fileIDs = append(fileIDs, domain.FileID(id))
	}

	input := usecase.ExecuteBulkOperationInput{
		Type:    opType,
		FileIDs: fileIDs,
		Options: body.Options.toDomain(),
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	initial, err := s.executeBulk.Execute(ctx, input)
	if err != nil {
		writeUseCaseError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, initial)
}

func (o *bulkOptionsRequest) toDomain() *domain.BulkOptions {
	if o == nil {
		return nil
	}
	opts := domain.BulkOptions{
		MaxConcurrency:  o.MaxConcurrency,
		ItemDelay:       time.Duration(o.ItemDelayMs) * time.Millisecond,
		ContinueOnError: true,
		ItemTimeout:     time.Duration(o.ItemTimeoutMs) * time.Millisecond,
	}
	if o.ContinueOnError != nil {
		opts.ContinueOnError = *o.ContinueOnError
	}
	return &opts
}

func (s *Server) handleListOperations(w http.ResponseWriter, r *http.Request) {
	if s.listHistory == nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "operation history not configured")
		return
	}

	query := r.URL.Query()

	status, err := parseOperationStatus(query.Get("status"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid status")
		return
	}
	opType, err := parseOperationType(query.Get("type"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid type")
		return
	}
	sortOrder, err := parseSortOrder(query.Get("sortOrder"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid sortOrder")
		return
	}
	limit, err := parseNonNegativeInt(query.Get("limit"), 50)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid limit")
		return
	}
	offset, err := parseNonNegativeInt(query.Get("offset"), 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid offset")
		return
	}

	filter := domain.OperationFilter{
		Status:    status,
		Type:      opType,
		SortBy:    strings.TrimSpace(query.Get("sortBy")),
		SortOrder: sortOrder,
		Limit:     limit,
		Offset:    offset,
	}

	records, err := s.listHistory.Execute(r.Context(), filter)
	if err != nil {
		writeUseCaseError(w, err)
		return
	}
	if records == nil {
		records = []domain.OperationRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleOperationByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/operations/")
	if rest == "active" {
		s.handleActiveOperations(w, r)
		return
	}
	if rest == "" || strings.Contains(rest, "/") {
		writeError(w, http.StatusNotFound, "not_found", "operation not found")
		return
	}
	id := domain.OperationID(rest)

	switch r.Method {
	case http.MethodGet:
		s.handleGetOperation(w, r, id)
	case http.MethodDelete:
		s.handleCancelOperation(w, r, id)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleActiveOperations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.listActive == nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "list active use case not configured")
		return
	}
	active := s.listActive.Execute(r.Context())
	if active == nil {
		active = []domain.BulkProgress{}
	}
	writeJSON(w, http.StatusOK, active)
}

func (s *Server) handleGetOperation(w http.ResponseWriter, r *http.Request, id domain.OperationID) {
	if s.getProgress == nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "get progress use case not configured")
		return
	}
	progress, err := s.getProgress.Execute(r.Context(), id)
	if err != nil {
		writeUseCaseError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, progress)
}

func (s *Server) handleCancelOperation(w http.ResponseWriter, r *http.Request, id domain.OperationID) {
	if s.cancelBulk == nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "cancel use case not configured")
		return
	}
	if err := s.cancelBulk.Execute(r.Context(), id); err != nil {
		writeUseCaseError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
