package apihttp

import (
	"encoding/json"
	"net/http"

	"debridops/internal/app"
)

func (s *Server) handleBulkSettings(w http.ResponseWriter, r *http.Request) {
	if s.bulkSettings == nil {
		writeError(w, http.StatusNotImplemented, "not_configured", "bulk settings are not configured")
		return
	}
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, s.bulkSettings.Get())
	case http.MethodPut:
		var body app.BulkSettings
		decoder := json.NewDecoder(r.Body)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "invalid json")
			return
		}
		if body.MaxConcurrency < 0 || body.ItemDelayMs < 0 || body.ItemTimeoutMs < 0 {
			writeError(w, http.StatusBadRequest, "invalid_request", "values must not be negative")
			return
		}
		if err := s.bulkSettings.Update(body); err != nil {
			writeError(w, http.StatusInternalServerError, "settings_error", err.Error())
			return
		}
		writeJSON(w, http.StatusOK, s.bulkSettings.Get())
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleCacheSettings(w http.ResponseWriter, r *http.Request) {
	if s.cacheSettings == nil {
		writeError(w, http.StatusNotImplemented, "not_configured", "cache settings are not configured")
		return
	}
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, s.cacheSettings.Get())
	case http.MethodPut:
		var body app.CacheSettings
		decoder := json.NewDecoder(r.Body)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "invalid json")
			return
		}
		if body.TTLMinutes <= 0 || body.MaxEntries <= 0 {
			writeError(w, http.StatusBadRequest, "invalid_request", "values must be positive")
			return
		}
		if err := s.cacheSettings.Update(body); err != nil {
			writeError(w, http.StatusInternalServerError, "settings_error", err.Error())
			return
		}
		writeJSON(w, http.StatusOK, s.cacheSettings.Get())
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}
