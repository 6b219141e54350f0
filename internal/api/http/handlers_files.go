package apihttp

import (
	"context"
	"net/http"
	"strings"
	"time"

	"debridops/internal/domain"
)

func (s *Server) handleFiles(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.files == nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "file repository not configured")
		return
	}

	query := r.URL.Query()

	source, err := parseFileSource(query.Get("source"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid source")
		return
	}
	playable, err := parseOptionalBool(query.Get("playable"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid playable")
		return
	}
	sortOrder, err := parseSortOrder(query.Get("sortOrder"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid sortOrder")
		return
	}
	limit, err := parseNonNegativeInt(query.Get("limit"), 100)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid limit")
		return
	}
	offset, err := parseNonNegativeInt(query.Get("offset"), 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid offset")
		return
	}

	filter := domain.FileFilter{
		Source:    source,
		Host:      strings.TrimSpace(query.Get("host")),
		Playable:  playable,
		Search:    strings.TrimSpace(query.Get("search")),
		SortBy:    strings.TrimSpace(query.Get("sortBy")),
		SortOrder: sortOrder,
		Limit:     limit,
		Offset:    offset,
	}

	files, err := s.files.List(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "repository_error", err.Error())
		return
	}
	if files == nil {
		files = []domain.RemoteFile{}
	}
	writeJSON(w, http.StatusOK, files)
}

type syncResponse struct {
	Synced int `json:"synced"`
}

func (s *Server) handleFilesSync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.syncLibrary == nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "library sync not configured")
		return
	}

	// A full sync pages the whole remote library; give it room.
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Minute)
	defer cancel()

	count, err := s.syncLibrary.Execute(ctx)
	if err != nil {
		writeUseCaseError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, syncResponse{Synced: count})
}
