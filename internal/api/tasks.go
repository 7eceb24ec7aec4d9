package api

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/prisken/client-crm-sub000/internal/planner"
	"github.com/prisken/client-crm-sub000/internal/store"
)

type TasksHandler struct {
	svc *planner.Service
}

func NewTasksHandler(svc *planner.Service) *TasksHandler {
	return &TasksHandler{svc: svc}
}

func (h *TasksHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req TaskInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	// Task IDs are always assigned by the store.
	task := &store.Task{Probability: 1}
	if err := req.apply(task); err != nil {
		writeError(w, err)
		return
	}
	if err := h.svc.CreateTask(r.Context(), AgentID(r), task); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

func (h *TasksHandler) List(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.svc.ListOpenTasks(r.Context(), AgentID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	if tasks == nil {
		tasks = []*store.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

func parseTaskID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "invalid task id")
		return uuid.Nil, false
	}
	return id, true
}

func (h *TasksHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseTaskID(w, r)
	if !ok {
		return
	}
	task, err := h.svc.GetTask(r.Context(), AgentID(r), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// Update changes the planning fields of an open task. Fields missing from the
// body keep their stored values; an empty due_date clears the due date.
func (h *TasksHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseTaskID(w, r)
	if !ok {
		return
	}
	task, err := h.svc.GetTask(r.Context(), AgentID(r), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if task.Status != store.StatusOpen {
		writeError(w, planner.ErrTaskClosed)
		return
	}

	req := inputFrom(task)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if err := req.apply(task); err != nil {
		writeError(w, err)
		return
	}
	if err := h.svc.UpdateTask(r.Context(), task); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

type CompleteRequest struct {
	Earned decimal.Decimal `json:"earned"`
}

// Complete closes a task. The body is optional; earned credits the month's target.
func (h *TasksHandler) Complete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseTaskID(w, r)
	if !ok {
		return
	}

	var body CompleteRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && err != io.EOF {
		badRequest(w, "invalid request body")
		return
	}

	task, err := h.svc.CompleteTask(r.Context(), AgentID(r), id, body.Earned)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}
