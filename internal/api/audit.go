package api

import (
	"net/http"
	"strconv"

	"github.com/nerrad567/scale-registry/internal/audit"
	"github.com/nerrad567/scale-registry/internal/device"
)

// recordAudit appends a write to the audit trail. Failures are logged only;
// the write itself has already committed.
func (s *Server) recordAudit(r *http.Request, action audit.Action, id device.Identity, details map[string]any) {
	if s.audit == nil {
		return
	}
	entry := &audit.Entry{
		Action:  action,
		Device:  id.String(),
		Subject: subjectOf(r),
		Source:  audit.SourceAPI,
		Details: details,
	}
	if err := s.audit.Record(r.Context(), entry); err != nil {
		s.logger.Warn("failed to record audit entry", "device", id.String(), "action", string(action), "error", err)
	}
}

// configDetails summarises a config for the audit trail.
func configDetails(cfg device.Config) map[string]any {
	return map[string]any{
		"phidgetId":  cfg.PhidgetID,
		"loadCellId": cfg.LoadCellID,
		"location":   cfg.Location,
		"ingredient": cfg.Ingredient,
	}
}

// handleListAudit returns one page of the audit trail.
//
// Query parameters: device (canonical identity), action, limit, offset.
func (s *Server) handleListAudit(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := audit.Filter{
		Action: audit.Action(q.Get("action")),
		Device: q.Get("device"),
	}

	if filter.Device != "" {
		if _, err := device.ParseIdentity(filter.Device); err != nil {
			writeBadRequest(w, err.Error())
			return
		}
	}
	for name, dst := range map[string]*int{"limit": &filter.Limit, "offset": &filter.Offset} {
		v := q.Get(name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			writeBadRequest(w, name+" must be an integer")
			return
		}
		*dst = n
	}

	result, err := s.audit.List(r.Context(), filter)
	if err != nil {
		s.writeMirrorError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
