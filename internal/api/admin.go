package api

import (
	"net/http"

	"github.com/prisken/client-crm-sub000/internal/planner"
)

type AdminHandler struct {
	refresher *planner.Refresher
}

func NewAdminHandler(r *planner.Refresher) *AdminHandler {
	return &AdminHandler{refresher: r}
}

// Refresh rebuilds and republishes queues: one agent when ?agent= is given,
// otherwise every agent with open tasks.
func (h *AdminHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if agent := r.URL.Query().Get("agent"); agent != "" {
		if err := h.refresher.RefreshAgent(r.Context(), agent, planner.TriggerAdmin); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "refreshed", "agent": agent})
		return
	}
	n := h.refresher.RefreshAll(r.Context(), planner.TriggerAdmin)
	writeJSON(w, http.StatusOK, map[string]any{"status": "refreshed", "agents": n})
}
