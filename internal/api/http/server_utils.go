package apihttp

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"debridops/internal/domain"
	"debridops/internal/usecase"
)

type errorEnvelope struct {
	Error errorPayload `json:"error"`
}

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeUseCaseError(w http.ResponseWriter, err error) {
	if errors.Is(err, domain.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found", err.Error())
		return
	}
	if errors.Is(err, domain.ErrUnsupported) {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if errors.Is(err, domain.ErrEngineClosed) {
		writeError(w, http.StatusServiceUnavailable, "shutting_down", "service is shutting down")
		return
	}
	if errors.Is(err, usecase.ErrRepository) {
		writeError(w, http.StatusInternalServerError, "repository_error", err.Error())
		return
	}
	if errors.Is(err, usecase.ErrDebrid) {
		writeError(w, http.StatusBadGateway, "debrid_error", err.Error())
		return
	}
	if errors.Is(err, usecase.ErrEngine) {
		writeError(w, http.StatusInternalServerError, "engine_error", err.Error())
		return
	}

	writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorEnvelope{Error: errorPayload{Code: code, Message: message}})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func parseOperationStatus(value string) (*domain.OperationStatus, error) {
	value = strings.TrimSpace(value)
	if value == "" || value == "all" {
		return nil, nil
	}
	switch value {
	case string(domain.OperationRunning), string(domain.OperationCompleted),
		string(domain.OperationFailed), string(domain.OperationCancelled):
		status := domain.OperationStatus(value)
		return &status, nil
	default:
		return nil, errors.New("invalid status")
	}
}

func parseOperationType(value string) (*domain.BulkOperationType, error) {
	value = strings.TrimSpace(value)
	if value == "" || value == "all" {
		return nil, nil
	}
	opType := domain.BulkOperationType(value)
	if err := opType.Validate(); err != nil {
		return nil, err
	}
	return &opType, nil
}

func parseFileSource(value string) (*domain.FileSource, error) {
	value = strings.TrimSpace(value)
	if value == "" || value == "all" {
		return nil, nil
	}
	switch value {
	case string(domain.SourceDownload), string(domain.SourceTorrent):
		source := domain.FileSource(value)
		return &source, nil
	default:
		return nil, errors.New("invalid source")
	}
}

func parseSortOrder(value string) (domain.SortOrder, error) {
	trimmed := strings.TrimSpace(strings.ToLower(value))
	if trimmed == "" {
		return domain.SortDesc, nil
	}
	switch domain.SortOrder(trimmed) {
	case domain.SortAsc:
		return domain.SortAsc, nil
	case domain.SortDesc:
		return domain.SortDesc, nil
	default:
		return "", errors.New("invalid sort order")
	}
}

func parseOptionalBool(value string) (*bool, error) {
	value = strings.TrimSpace(strings.ToLower(value))
	if value == "" {
		return nil, nil
	}
	switch value {
	case "true":
		v := true
		return &v, nil
	case "false":
		v := false
		return &v, nil
	default:
		return nil, errors.New("invalid bool")
	}
}

func parseNonNegativeInt(value string, defaultValue int) (int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, err
	}
	if parsed < 0 {
		return 0, errors.New("must be >= 0")
	}
	return parsed, nil
}
