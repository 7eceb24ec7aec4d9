package hermes

import "time"

type QueueEntry struct {
	TaskID      string  `json:"task_id"`
	Title       string  `json:"title"`
	Value       float64 `json:"value"`
	EffortHours float64 `json:"effort_hours"`
	Mandatory   bool    `json:"mandatory"`
}

type QueueBuiltEvent struct {
	AgentID            string       `json:"agent_id"`
	Date               string       `json:"date"`
	Entries            []QueueEntry `json:"entries"`
	OverloadDetected   bool         `json:"overload_detected"`
	TotalExpectedValue float64      `json:"total_expected_value"`
	TotalEffortHours   float64      `json:"total_effort_hours"`
	Beta               float64      `json:"beta"`
	Timestamp          time.Time    `json:"timestamp"`
}

type OverloadEvent struct {
	AgentID        string    `json:"agent_id"`
	Date           string    `json:"date"`
	MandatoryHours float64   `json:"mandatory_hours"`
	CapacityHours  float64   `json:"capacity_hours"`
	MandatoryTasks int       `json:"mandatory_tasks"`
	Timestamp      time.Time `json:"timestamp"`
}

type TaskChangedEvent struct {
	TaskID  string `json:"task_id"`
	AgentID string `json:"agent_id"`
	// Change is one of created, updated, completed.
	Change string `json:"change"`
}

// RefreshRequestEvent asks the planner to rebuild one agent's queue, or every
// agent's when AgentID is empty.
type RefreshRequestEvent struct {
	AgentID string `json:"agent_id,omitempty"`
}
