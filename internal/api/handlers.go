package api

import (
	"net/http"
	"strconv"

	"github.com/starford/gebo/internal/history"
	"github.com/starford/gebo/internal/orchestrator"
)

// Controller is the orchestrator surface the API needs.
type Controller interface {
	Status() orchestrator.Status
	TriggerSync()
}

// HistorySource provides recent pass history. *history.Store satisfies it.
type HistorySource interface {
	Recent(n int) ([]history.Pass, error)
}

// Handler serves the status endpoints.
type Handler struct {
	ctrl    Controller
	history HistorySource // nil when history is disabled
}

// NewHandler creates a Handler. hist may be nil.
func NewHandler(ctrl Controller, hist HistorySource) *Handler {
	return &Handler{ctrl: ctrl, history: hist}
}

// StatusResponse is the GET /status payload.
type StatusResponse struct {
	orchestrator.Status
	History []history.Pass `json:"history,omitempty"`
}

// GetStatus returns the current sync status plus recent pass history.
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{Status: h.ctrl.Status()}

	if h.history != nil {
		n := 10
		if q := r.URL.Query().Get("limit"); q != "" {
			if v, err := strconv.Atoi(q); err == nil && v > 0 && v <= 100 {
				n = v
			}
		}
		passes, err := h.history.Recent(n)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, errorBody(err.Error()))
			return
		}
		resp.History = passes
	}

	writeJSON(w, http.StatusOK, resp)
}

// TriggerSync queues an on-demand pass.
func (h *Handler) TriggerSync(w http.ResponseWriter, _ *http.Request) {
	h.ctrl.TriggerSync()
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}
