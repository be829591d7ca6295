package taskgen

import (
	"fmt"
	"sync"
	"time"
)

// History is a bounded, most-recent-first task history. Insertion at capacity
// evicts the oldest entry (fixed-size FIFO window). Instances are injected
// rather than shared module state so tests can construct isolated histories.
type History struct {
	mu       sync.Mutex
	capacity int
	tasks    []Task // index 0 = most recent
}

// NewHistory creates a history with the given capacity. Non-positive
// capacities default to 50.
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = 50
	}
	return &History{capacity: capacity}
}

// Add inserts a task at the head, evicting the oldest entry when full.
func (h *History) Add(t Task) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.tasks = append([]Task{t}, h.tasks...)
	if len(h.tasks) > h.capacity {
		h.tasks = h.tasks[:h.capacity]
	}
}

// AddAll inserts tasks in order, so the last one ends up most recent.
func (h *History) AddAll(ts []Task) {
	for _, t := range ts {
		h.Add(t)
	}
}

// List returns a copy of the history, most recent first.
func (h *History) List() []Task {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Task, len(h.tasks))
	copy(out, h.tasks)
	return out
}

// Get returns a task by id, or nil when unknown.
func (h *History) Get(id string) *Task {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i := range h.tasks {
		if h.tasks[i].ID == id {
			t := h.tasks[i]
			return &t
		}
	}
	return nil
}

// UpdateStatus transitions a task. An unknown id is a no-op and returns
// (false, nil); an illegal transition is an explicit error. On completion the
// timestamp and optional result payload are recorded.
func (h *History) UpdateStatus(id, status, result string) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i := range h.tasks {
		if h.tasks[i].ID != id {
			continue
		}
		from := h.tasks[i].Status
		if !CanTransition(from, status) {
			return false, fmt.Errorf("task %s: illegal transition %s -> %s", id, from, status)
		}
		now := time.Now()
		h.tasks[i].Status = status
		h.tasks[i].UpdatedAt = now
		if result != "" {
			h.tasks[i].Result = result
		}
		if status == StatusCompleted || status == StatusFailed {
			h.tasks[i].CompletedAt = &now
		}
		return true, nil
	}
	return false, nil
}

// Len returns the current number of retained tasks.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.tasks)
}
