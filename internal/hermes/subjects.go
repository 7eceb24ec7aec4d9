package hermes

import "strings"

const (
	SubjectTaskChangedAll = "crm.task.*.changed"
	SubjectRefreshAll     = "crm.planner.refresh"

	StreamName   = "PLANNER_EVENTS"
	StreamMaxAge = "168h" // 7 days
)

func SubjectTaskChanged(taskID string) string { return "crm.task." + taskID + ".changed" }

func SubjectQueueBuilt(agentID string) string { return "crm.planner." + agentID + ".queue.built" }
func SubjectOverload(agentID string) string   { return "crm.planner." + agentID + ".overload" }

// TaskIDFromSubject extracts the task id from a crm.task.<id>.changed subject.
func TaskIDFromSubject(subject string) (string, bool) {
	parts := strings.Split(subject, ".")
	if len(parts) != 4 || parts[0] != "crm" || parts[1] != "task" || parts[3] != "changed" || parts[2] == "" {
		return "", false
	}
	return parts[2], true
}
