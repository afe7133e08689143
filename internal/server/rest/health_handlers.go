package rest

import (
	"context"
	"net/http"
	"time"
)

const probeTimeout = 5 * time.Second

type healthDTO struct {
	Version   string    `json:"version,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type probeDTO struct {
	Connected bool      `json:"connected"`
	Timestamp time.Time `json:"timestamp"`
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeOK(w, healthDTO{Version: h.version, Timestamp: h.now().UTC()}, "DiagNexus API is running")
}

func (h *Handler) runProbe(w http.ResponseWriter, r *http.Request, name string, p Probe) {
	if p == nil {
		writeFail(w, http.StatusServiceUnavailable, name+" is not configured")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), probeTimeout)
	defer cancel()

	if err := p(ctx); err != nil {
		h.logger.Warn(r.Context(), name+" probe failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, envelope{
			Success: false,
			Data:    probeDTO{Connected: false, Timestamp: h.now().UTC()},
			Message: name + " is unreachable",
		})
		return
	}
	writeOK(w, probeDTO{Connected: true, Timestamp: h.now().UTC()}, name+" connection is ready")
}

func (h *Handler) healthDatabase(w http.ResponseWriter, r *http.Request) {
	h.runProbe(w, r, "database", h.dbProbe)
}

func (h *Handler) healthStorage(w http.ResponseWriter, r *http.Request) {
	h.runProbe(w, r, "storage", h.s3Probe)
}
