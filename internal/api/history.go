package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleListHistory(w http.ResponseWriter, r *http.Request) {
	s.writeHistory(w, r, "")
}

func (s *Server) handleDeviceHistory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.manager.Get(id); err != nil {
		writeDomainError(w, err)
		return
	}
	s.writeHistory(w, r, id)
}

// writeHistory serves ?limit=N (default 50, max 200) newest first.
func (s *Server) writeHistory(w http.ResponseWriter, r *http.Request, deviceID string) {
	if s.history == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "command history is not enabled")
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeBadRequest(w, "limit must be a positive integer")
			return
		}
		limit = n
	}

	entries, err := s.history.List(r.Context(), deviceID, limit)
	if err != nil {
		s.logger.Error("listing command history failed", "device_id", deviceID, "error", err)
		writeInternalError(w, "failed to read command history")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"device_id": deviceID,
		"entries":   entries,
		"count":     len(entries),
	})
}
