package api

import (
	"net/http"
	"strconv"

	"github.com/nerrad567/gray-logic-av/internal/audit"
)

// recordAudit stores an operator action. Failures are logged only.
func (s *Server) recordAudit(r *http.Request, action, deviceID string, details map[string]any) {
	if s.audit == nil {
		return
	}
	e := &audit.Entry{
		Action:   action,
		DeviceID: deviceID,
		Source:   audit.SourceAPI,
		Details:  details,
	}
	if claims := claimsFrom(r.Context()); claims != nil {
		e.Subject = claims.Subject
	}
	if err := s.audit.Create(r.Context(), e); err != nil {
		s.logger.Warn("audit write failed", "action", action, "device_id", deviceID, "error", err)
	}
}

// handleListAudit serves GET /audit?action=&device_id=&limit=&offset=.
func (s *Server) handleListAudit(w http.ResponseWriter, r *http.Request) {
	if s.audit == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "audit trail is not enabled")
		return
	}

	q := r.URL.Query()
	filter := audit.Filter{
		Action:   q.Get("action"),
		DeviceID: q.Get("device_id"),
	}
	for key, dst := range map[string]*int{"limit": &filter.Limit, "offset": &filter.Offset} {
		v := q.Get(key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeBadRequest(w, key+" must be a non-negative integer")
			return
		}
		*dst = n
	}

	res, err := s.audit.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("listing audit trail failed", "error", err)
		writeInternalError(w, "failed to read audit trail")
		return
	}
	writeJSON(w, http.StatusOK, res)
}
