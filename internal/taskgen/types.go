// Package taskgen converts reconciled metrics snapshots into prioritized,
// stateful work items for the named automation agents.
package taskgen

import "time"

// Task priorities. Ranked high < medium < low for ordering purposes.
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// Task statuses. Completed and failed are terminal.
const (
	StatusPending        = "pending"
	StatusInProgress     = "in_progress"
	StatusNeedsAttention = "needs_attention"
	StatusCompleted      = "completed"
	StatusFailed         = "failed"
)

// Task is one unit of work for an agent.
type Task struct {
	ID          string     `json:"id"`
	AgentID     string     `json:"agent_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Priority    string     `json:"priority"`
	Status      string     `json:"status"`
	Category    string     `json:"category"`
	Result      string     `json:"result,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// PriorityRank maps a priority to its sort rank. Unknown priorities sort last.
func PriorityRank(p string) int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	case PriorityLow:
		return 2
	default:
		return 3
	}
}

// Terminal reports whether a status admits no further transitions.
func Terminal(status string) bool {
	return status == StatusCompleted || status == StatusFailed
}

// CanTransition reports whether from → to is a legal lifecycle transition.
func CanTransition(from, to string) bool {
	if Terminal(from) {
		return false
	}
	switch to {
	case StatusInProgress:
		return from == StatusPending || from == StatusInProgress || from == StatusNeedsAttention
	case StatusCompleted, StatusFailed:
		return from == StatusInProgress
	case StatusNeedsAttention:
		// Escalation is allowed from any non-terminal state.
		return true
	default:
		return false
	}
}
