package api

import (
	"encoding/json"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-av/internal/audit"
	"github.com/nerrad567/gray-logic-av/internal/command"
	"github.com/nerrad567/gray-logic-av/internal/dispatch"
	"github.com/nerrad567/gray-logic-av/internal/driver"
)

// deviceView is a device's static description plus its live dispatcher
// status.
type deviceView struct {
	driver.Info
	Status dispatch.Status `json:"status"`
}

// commandView is one entry of a device's command table.
type commandView struct {
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Group       command.Group    `json:"group"`
	Priority    command.Priority `json:"priority"`
	IsPolling   bool             `json:"is_polling"`
	Role        command.Role     `json:"role,omitempty"`
}

// commandResult is the body returned by POST /devices/{id}/commands/{name}.
type commandResult struct {
	DeviceID  string           `json:"device_id"`
	Command   string           `json:"command"`
	Result    string           `json:"result"`
	Reason    string           `json:"reason"`
	Priority  command.Priority `json:"priority"`
	RequestID string           `json:"request_id,omitempty"`
	QueueLen  int              `json:"queue_len"`
}

// Command result values.
const (
	resultSent     = "sent"
	resultQueued   = "queued"
	resultDropped  = "dropped"
	resultOverflow = "queue_full"
)

// dispatcherFor resolves the {id} URL parameter, writing a 404 on failure.
func (s *Server) dispatcherFor(w http.ResponseWriter, r *http.Request) (*dispatch.Dispatcher, bool) {
	d, err := s.manager.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return nil, false
	}
	return d, true
}

func (s *Server) viewOf(d *dispatch.Dispatcher) deviceView {
	v := deviceView{Status: d.Snapshot()}
	if dev, ok := s.devices[d.DeviceID()]; ok {
		v.Info = dev.Info()
	} else {
		v.Info = driver.Info{ID: d.DeviceID(), Name: d.DeviceID(), Commands: d.Table().Len()}
	}
	return v
}

func (s *Server) handleListDevices(w http.ResponseWriter, _ *http.Request) {
	ids := s.manager.IDs()
	views := make([]deviceView, 0, len(ids))
	for _, id := range ids {
		d, err := s.manager.Get(id)
		if err != nil {
			continue
		}
		views = append(views, s.viewOf(d))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"devices": views,
		"count":   len(views),
	})
}

func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	d, ok := s.dispatcherFor(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.viewOf(d))
}

func (s *Server) handleListCommands(w http.ResponseWriter, r *http.Request) {
	d, ok := s.dispatcherFor(w, r)
	if !ok {
		return
	}
	table := d.Table()
	descs := table.Descriptors()
	views := make([]commandView, 0, len(descs))
	for _, c := range descs {
		views = append(views, commandView{
			Name:        c.Name,
			Description: c.Description,
			Group:       c.Group,
			Priority:    c.Priority,
			IsPolling:   c.IsPolling,
			Role:        table.Role(c.Name),
		})
	}
	sort.Slice(views, func(i, j int) bool { return views[i].Name < views[j].Name })
	writeJSON(w, http.StatusOK, map[string]any{
		"device_id": d.DeviceID(),
		"commands":  views,
		"count":     len(views),
	})
}

// handleSendCommand submits a named command and reports what the gate did
// with it.
func (s *Server) handleSendCommand(w http.ResponseWriter, r *http.Request) {
	d, ok := s.dispatcherFor(w, r)
	if !ok {
		return
	}
	name := chi.URLParam(r, "name")

	out, err := d.Submit(r.Context(), name)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	res := commandResult{
		DeviceID:  d.DeviceID(),
		Command:   name,
		Reason:    string(out.Decision.Reason),
		Priority:  out.Priority,
		RequestID: out.RequestID,
		QueueLen:  len(d.Snapshot().Queue),
	}

	status := http.StatusOK
	switch {
	case out.Overflow:
		res.Result, status = resultOverflow, http.StatusTooManyRequests
	case out.Decision.SendToTransport:
		res.Result = resultSent
	case out.Decision.SendToQueue:
		res.Result, status = resultQueued, http.StatusAccepted
	default:
		res.Result, status = resultDropped, http.StatusConflict
	}

	if claims := claimsFrom(r.Context()); claims != nil {
		s.logger.Info("api command",
			"device_id", res.DeviceID,
			"command", name,
			"result", res.Result,
			"reason", res.Reason,
			"subject", claims.Subject,
		)
	}
	writeJSON(w, status, res)
}

func (s *Server) handleGetQueue(w http.ResponseWriter, r *http.Request) {
	d, ok := s.dispatcherFor(w, r)
	if !ok {
		return
	}
	st := d.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"device_id": st.DeviceID,
		"pending":   st.Pending,
		"queue":     st.Queue,
		"capacity":  st.QueueCapacity,
	})
}

func (s *Server) handleClearQueue(w http.ResponseWriter, r *http.Request) {
	d, ok := s.dispatcherFor(w, r)
	if !ok {
		return
	}
	n := d.ClearQueue()
	s.recordAudit(r, audit.ActionQueueClear, d.DeviceID(), map[string]any{"removed": n})
	writeJSON(w, http.StatusOK, map[string]any{
		"device_id": d.DeviceID(),
		"removed":   n,
	})
}

func (s *Server) handleWithdrawCommand(w http.ResponseWriter, r *http.Request) {
	d, ok := s.dispatcherFor(w, r)
	if !ok {
		return
	}
	name := chi.URLParam(r, "name")
	if err := d.RemoveQueued(name); err != nil {
		writeDomainError(w, err)
		return
	}
	s.recordAudit(r, audit.ActionQueueWithdraw, d.DeviceID(), map[string]any{"command": name})
	w.WriteHeader(http.StatusNoContent)
}

type dispatchRequest struct {
	CanSend *bool `json:"can_send"`
}

// handleSetDispatch pauses or resumes sending to a device.
func (s *Server) handleSetDispatch(w http.ResponseWriter, r *http.Request) {
	d, ok := s.dispatcherFor(w, r)
	if !ok {
		return
	}
	var req dispatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.CanSend == nil {
		writeBadRequest(w, `body must be {"can_send": true|false}`)
		return
	}
	d.SetCanSend(*req.CanSend)
	s.recordAudit(r, audit.ActionDispatchSet, d.DeviceID(), map[string]any{"can_send": *req.CanSend})
	writeJSON(w, http.StatusOK, s.viewOf(d).Status)
}

type powerRequest struct {
	HasPower *bool `json:"has_power"`
}

// handleSetPower overrides the tracked power state, for devices switched by
// hand or by another controller.
func (s *Server) handleSetPower(w http.ResponseWriter, r *http.Request) {
	d, ok := s.dispatcherFor(w, r)
	if !ok {
		return
	}
	var req powerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.HasPower == nil {
		writeBadRequest(w, `body must be {"has_power": true|false}`)
		return
	}
	d.SetPower(*req.HasPower)
	s.recordAudit(r, audit.ActionPowerSet, d.DeviceID(), map[string]any{"has_power": *req.HasPower})
	writeJSON(w, http.StatusOK, s.viewOf(d).Status)
}
