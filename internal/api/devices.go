package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/scale-registry/internal/audit"
	"github.com/nerrad567/scale-registry/internal/device"
)

// addressBody is the JSON shape of the address sub-resource.
type addressBody struct {
	Address string `json:"address"`
}

// handleListDevices returns every mirrored device with its address.
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	records, err := s.repo.List(r.Context())
	if err != nil {
		s.writeMirrorError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"devices": records, "count": len(records)})
}

// handleCreateDevice stores a config under a newly assigned serial and
// returns the identity with 201.
func (s *Server) handleCreateDevice(w http.ResponseWriter, r *http.Request) {
	model, err := device.ParseModel(chi.URLParam(r, "model"))
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	cfg, ok := s.decodeConfig(w, r)
	if !ok {
		return
	}

	id, err := s.repo.Create(r.Context(), model, cfg)
	if err != nil {
		s.writeMirrorError(w, r, err)
		return
	}

	s.logger.Info("device created", "device", id.String(), "subject", subjectOf(r))
	s.recordAudit(r, audit.ActionCreate, id, configDetails(cfg))
	s.publishConfig(id, cfg)
	writeJSON(w, http.StatusCreated, id)
}

// handleGetConfig returns the config of one device.
func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	id, ok := pathIdentity(w, r)
	if !ok {
		return
	}

	cfg, err := s.repo.Get(r.Context(), id)
	if err != nil {
		s.writeMirrorError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

// handlePutConfig replaces the config of one device.
func (s *Server) handlePutConfig(w http.ResponseWriter, r *http.Request) {
	id, ok := pathIdentity(w, r)
	if !ok {
		return
	}

	cfg, ok := s.decodeConfig(w, r)
	if !ok {
		return
	}

	if err := s.repo.Update(r.Context(), id, cfg); err != nil {
		s.writeMirrorError(w, r, err)
		return
	}

	s.logger.Info("device config updated", "device", id.String(), "subject", subjectOf(r))
	s.recordAudit(r, audit.ActionUpdate, id, configDetails(cfg))
	s.publishConfig(id, cfg)
	writeJSON(w, http.StatusOK, cfg)
}

// handleGetAddress returns the address a device last reported.
func (s *Server) handleGetAddress(w http.ResponseWriter, r *http.Request) {
	id, ok := pathIdentity(w, r)
	if !ok {
		return
	}

	address, err := s.repo.GetAddress(r.Context(), id)
	if err != nil {
		s.writeMirrorError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, addressBody{Address: address})
}

// handlePutAddress records the address of a device.
func (s *Server) handlePutAddress(w http.ResponseWriter, r *http.Request) {
	id, ok := pathIdentity(w, r)
	if !ok {
		return
	}

	var body addressBody
	if err := decodeStrict(r.Body, &body); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := s.repo.SetAddress(r.Context(), id, body.Address); err != nil {
		s.writeMirrorError(w, r, err)
		return
	}

	// Read back the stored (trimmed) form for the response and the feed.
	address, err := s.repo.GetAddress(r.Context(), id)
	if err != nil {
		s.writeMirrorError(w, r, err)
		return
	}

	s.logger.Info("device address updated", "device", id.String(), "address", address)
	s.recordAudit(r, audit.ActionAddress, id, map[string]any{"address": address})
	if s.publisher != nil {
		if err := s.publisher.PublishAddress(id, address); err != nil {
			s.logger.Warn("failed to publish address change", "device", id.String(), "error", err)
		}
	}
	writeJSON(w, http.StatusOK, addressBody{Address: address})
}

// handleExport serves a config without authentication for pull.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	id, err := device.ParseIdentity(chi.URLParam(r, "identity"))
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	cfg, err := s.repo.Get(r.Context(), id)
	if err != nil {
		s.writeMirrorError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

// decodeConfig reads and validates a config body, writing a 400 on failure.
func (s *Server) decodeConfig(w http.ResponseWriter, r *http.Request) (device.Config, bool) {
	var cfg device.Config
	if err := decodeStrict(r.Body, &cfg); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, ErrCodeBadRequest, "request body too large")
			return device.Config{}, false
		}
		writeBadRequest(w, "invalid JSON body: "+err.Error())
		return device.Config{}, false
	}
	if err := cfg.Validate(); err != nil {
		s.writeMirrorError(w, r, err)
		return device.Config{}, false
	}
	return cfg, true
}

// publishConfig announces a config change; failures are logged only.
func (s *Server) publishConfig(id device.Identity, cfg device.Config) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishConfig(id, cfg); err != nil {
		s.logger.Warn("failed to publish config change", "device", id.String(), "error", err)
	}
}

// pathIdentity builds the identity from the {model} and {serial} URL
// parameters, writing a 400 on failure.
func pathIdentity(w http.ResponseWriter, r *http.Request) (device.Identity, bool) {
	id, err := device.NewIdentity(device.Model(chi.URLParam(r, "model")), chi.URLParam(r, "serial"))
	if err != nil {
		writeBadRequest(w, err.Error())
		return device.Identity{}, false
	}
	return id, true
}

// decodeStrict decodes exactly one JSON value and rejects unknown fields.
func decodeStrict(body io.Reader, v any) error {
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return fmt.Errorf("unexpected data after JSON value")
	}
	return nil
}

// subjectOf returns the token subject for logging.
func subjectOf(r *http.Request) string {
	if claims := claimsFromContext(r.Context()); claims != nil {
		return claims.Subject
	}
	return ""
}
