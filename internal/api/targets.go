package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/prisken/client-crm-sub000/internal/planner"
	"github.com/prisken/client-crm-sub000/internal/store"
)

type TargetsHandler struct {
	svc *planner.Service
}

func NewTargetsHandler(svc *planner.Service) *TargetsHandler {
	return &TargetsHandler{svc: svc}
}

func (h *TargetsHandler) Get(w http.ResponseWriter, r *http.Request) {
	ct, err := h.svc.GetTarget(r.Context(), AgentID(r), chi.URLParam(r, "month"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ct)
}

type TargetRequest struct {
	Target decimal.Decimal `json:"target"`
	Earned decimal.Decimal `json:"earned"`
}

func (h *TargetsHandler) Put(w http.ResponseWriter, r *http.Request) {
	var req TargetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	ct := &store.CommissionTarget{
		AgentID: AgentID(r),
		Month:   chi.URLParam(r, "month"),
		Target:  req.Target,
		Earned:  req.Earned,
	}
	if err := h.svc.SetTarget(r.Context(), ct); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ct)
}
