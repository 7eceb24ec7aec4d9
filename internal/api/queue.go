package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/prisken/client-crm-sub000/internal/optimizer"
	"github.com/prisken/client-crm-sub000/internal/planner"
	"github.com/prisken/client-crm-sub000/internal/store"
)

type QueueHandler struct {
	svc *planner.Service
}

func NewQueueHandler(svc *planner.Service) *QueueHandler {
	return &QueueHandler{svc: svc}
}

type QueueEntry struct {
	Task        *store.Task `json:"task"`
	Value       float64     `json:"value"`
	EffortHours float64     `json:"effort_hours"`
	Mandatory   bool        `json:"mandatory"`
}

type QueueResponse struct {
	AgentID            string       `json:"agent_id"`
	Date               string       `json:"date"`
	Tasks              []QueueEntry `json:"tasks"`
	OverloadDetected   bool         `json:"overload_detected"`
	TotalExpectedValue float64      `json:"total_expected_value"`
	TotalEffortHours   float64      `json:"total_effort_hours"`
	Beta               float64      `json:"beta"`
	CapacityHours      float64      `json:"capacity_hours"`
	MandatoryHours     float64      `json:"mandatory_hours"`
}

func (h *QueueHandler) response(agentID string, date time.Time, res optimizer.Result) QueueResponse {
	g := float64(h.svc.Engine().Params().Granularity)
	if date.IsZero() {
		date = h.svc.Today()
	}
	entries := make([]QueueEntry, len(res.Entries))
	for i, e := range res.Entries {
		entries[i] = QueueEntry{
			Task:        e.Task,
			Value:       e.Value,
			EffortHours: float64(e.EffortUnits) / g,
			Mandatory:   e.Mandatory,
		}
	}
	return QueueResponse{
		AgentID:            agentID,
		Date:               date.Format(dateLayout),
		Tasks:              entries,
		OverloadDetected:   res.OverloadDetected,
		TotalExpectedValue: res.TotalExpectedValue,
		TotalEffortHours:   res.TotalEffortHours,
		Beta:               res.Beta,
		CapacityHours:      float64(res.CapacityUnits) / g,
		MandatoryHours:     float64(res.MandatoryUnits) / g,
	}
}

func (h *QueueHandler) Get(w http.ResponseWriter, r *http.Request) {
	date, hours, err := planParams(r)
	if err != nil {
		writeError(w, err)
		return
	}
	agentID := AgentID(r)
	res, err := h.svc.BuildQueue(r.Context(), agentID, date, hours)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.response(agentID, date, res))
}

type WhatIfRequest struct {
	Task       json.RawMessage `json:"task"`
	Date       string          `json:"date,omitempty"`
	DailyHours float64         `json:"daily_hours,omitempty"`
}

// WhatIf previews the queue with one task added or changed. When task_id names
// an existing task of the agent, the preview starts from the stored task and
// only the fields present in the body are changed.
func (h *QueueHandler) WhatIf(w http.ResponseWriter, r *http.Request) {
	var req WhatIfRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if len(req.Task) == 0 {
		badRequest(w, "task is required")
		return
	}
	var ref struct {
		TaskID *uuid.UUID `json:"task_id"`
	}
	if err := json.Unmarshal(req.Task, &ref); err != nil {
		badRequest(w, "invalid task")
		return
	}
	date, _, err := parsePlan(req.Date, "")
	if err != nil {
		writeError(w, err)
		return
	}

	agentID := AgentID(r)
	modified := &store.Task{AgentID: agentID, Status: store.StatusOpen, Probability: 1}
	var in TaskInput
	if ref.TaskID != nil {
		modified.ID = *ref.TaskID
		if existing, err := h.svc.GetTask(r.Context(), agentID, modified.ID); err == nil {
			modified = existing
			modified.Status = store.StatusOpen
			modified.CompletedAt = nil
			in = inputFrom(existing)
		}
	}
	if err := json.Unmarshal(req.Task, &in); err != nil {
		badRequest(w, "invalid task")
		return
	}
	if err := in.apply(modified); err != nil {
		writeError(w, err)
		return
	}
	if modified.ID == uuid.Nil {
		modified.ID = uuid.New()
	}

	res, err := h.svc.WhatIf(r.Context(), agentID, modified, date, req.DailyHours)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.response(agentID, date, res))
}

type MetricsResponse struct {
	optimizer.Summary
	Queue QueueResponse `json:"queue"`
}

func (h *QueueHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	date, hours, err := planParams(r)
	if err != nil {
		writeError(w, err)
		return
	}
	agentID := AgentID(r)
	summary, res, err := h.svc.Metrics(r.Context(), agentID, date, hours)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MetricsResponse{Summary: summary, Queue: h.response(agentID, date, res)})
}
