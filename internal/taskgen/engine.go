package taskgen

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/OpsPulse/opspulse/internal/config"
	"github.com/OpsPulse/opspulse/internal/metrics"
)

// Rule is one condition→task entry in an agent's rule table. Rules are pure
// functions of the snapshot; the same snapshot always fires the same rules.
type Rule struct {
	Title    string
	Category string
	Priority string
	// Alert rules skip pending and start directly at needs_attention.
	Alert    bool
	When     func(*metrics.Snapshot) bool
	Describe func(*metrics.Snapshot) string
}

// Agent is a named automation worker with an ordered rule table.
type Agent struct {
	ID    string
	Name  string
	Rules []Rule
}

// Engine evaluates agent rule tables against metrics snapshots.
type Engine struct {
	agents []Agent
	now    func() time.Time
	newID  func() string
}

// New builds an engine with the default agent roster, thresholds taken from
// cfg.
func New(cfg config.AgentsConfig) *Engine {
	return &Engine{
		agents: defaultAgents(cfg),
		now:    time.Now,
		newID:  func() string { return uuid.NewString() },
	}
}

// Agents returns the registered agents in registration order.
func (e *Engine) Agents() []Agent {
	return e.agents
}

// TasksForAgent evaluates one agent's rule table against the snapshot.
// An unknown agent id yields an empty result, not an error.
func (e *Engine) TasksForAgent(agentID string, snap *metrics.Snapshot) []Task {
	for _, agent := range e.agents {
		if agent.ID == agentID {
			return e.evaluate(agent, snap)
		}
	}
	return nil
}

// AllTasks evaluates every agent and returns the concatenated batch, stably
// sorted by priority rank. Equal priorities retain agent-registration order
// then within-agent rule order, keeping output deterministic.
func (e *Engine) AllTasks(snap *metrics.Snapshot) []Task {
	var out []Task
	for _, agent := range e.agents {
		out = append(out, e.evaluate(agent, snap)...)
	}
	sort.SliceStable(out, func(a, b int) bool {
		return PriorityRank(out[a].Priority) < PriorityRank(out[b].Priority)
	})
	return out
}

func (e *Engine) evaluate(agent Agent, snap *metrics.Snapshot) []Task {
	var out []Task
	now := e.now()
	for _, rule := range agent.Rules {
		if rule.When != nil && !rule.When(snap) {
			continue
		}
		status := StatusPending
		if rule.Alert {
			status = StatusNeedsAttention
		}
		desc := ""
		if rule.Describe != nil {
			desc = rule.Describe(snap)
		}
		out = append(out, Task{
			ID:          e.newID(),
			AgentID:     agent.ID,
			Title:       rule.Title,
			Description: desc,
			Priority:    rule.Priority,
			Status:      status,
			Category:    rule.Category,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}
	return out
}

// aov is the combined average order value over the month window. Zero when no
// transactions were recorded.
func aov(snap *metrics.Snapshot) float64 {
	if snap.Combined.Month.Transactions == 0 {
		return 0
	}
	return snap.Combined.Month.Revenue / float64(snap.Combined.Month.Transactions)
}

func defaultAgents(cfg config.AgentsConfig) []Agent {
	return []Agent{
		{
			ID:   "analyst",
			Name: "Revenue Analyst",
			Rules: []Rule{
				{
					Title:    "Compile daily revenue digest",
					Category: "reporting",
					Priority: PriorityLow,
					Describe: func(s *metrics.Snapshot) string {
						return fmt.Sprintf("Combined revenue today %.2f across %d transactions (online: %s, store: %s).",
							s.Combined.Today.Revenue, s.Combined.Today.Transactions, s.Online.Source, s.Store.Source)
					},
				},
				{
					Title:    "Investigate revenue decline",
					Category: "revenue",
					Priority: PriorityHigh,
					When: func(s *metrics.Snapshot) bool {
						ev := s.Combined.Evolution
						return !ev.IsPositive && float64(ev.Percent) >= cfg.RevenueDropPct
					},
					Describe: func(s *metrics.Snapshot) string {
						return fmt.Sprintf("Combined revenue is down %d%% against the same day last week.", s.Combined.Evolution.Percent)
					},
				},
			},
		},
		{
			ID:   "merchandiser",
			Name: "Merchandising Agent",
			Rules: []Rule{
				{
					Title:    "Refresh featured product rotation",
					Category: "merchandising",
					Priority: PriorityLow,
				},
				{
					Title:    "Review average order value",
					Category: "pricing",
					Priority: PriorityMedium,
					When: func(s *metrics.Snapshot) bool {
						v := aov(s)
						return v > 0 && v < cfg.AOVFloor
					},
					Describe: func(s *metrics.Snapshot) string {
						return fmt.Sprintf("Monthly AOV %.2f is below the %.2f floor; consider bundles or upsells.", aov(s), cfg.AOVFloor)
					},
				},
			},
		},
		{
			ID:   "bookkeeper",
			Name: "Bookkeeping Agent",
			Rules: []Rule{
				{
					Title:    "Reconcile supplier invoices",
					Category: "accounting",
					Priority: PriorityLow,
				},
				{
					Title:    "Plan push to close objective gap",
					Category: "objective",
					Priority: PriorityMedium,
					When: func(s *metrics.Snapshot) bool {
						return s.Objective.Target > 0 && float64(s.Objective.Progress) < cfg.ProgressFloorPct
					},
					Describe: func(s *metrics.Snapshot) string {
						return fmt.Sprintf("Monthly objective at %d%% (%.2f of %.2f); %.2f remaining.",
							s.Objective.Progress, s.Objective.Current, s.Objective.Target, s.Objective.Remaining)
					},
				},
			},
		},
		{
			ID:   "watchdog",
			Name: "Data Watchdog",
			Rules: []Rule{
				{
					Title:    "Online channel reporting offline",
					Category: "monitoring",
					Priority: PriorityHigh,
					Alert:    true,
					When: func(s *metrics.Snapshot) bool {
						return s.Online.Source == metrics.SourceNone
					},
					Describe: func(s *metrics.Snapshot) string {
						return "No online-channel data from the live provider or the ledger; metrics are degraded."
					},
				},
				{
					Title:    "Store ledger has no sales recorded today",
					Category: "monitoring",
					Priority: PriorityMedium,
					Alert:    true,
					When: func(s *metrics.Snapshot) bool {
						return s.Store.Source != metrics.SourceNone && s.Store.Today.Transactions == 0
					},
					Describe: func(s *metrics.Snapshot) string {
						return "The POS ledger returned zero rows for today; check that the register sync is running."
					},
				},
			},
		},
	}
}
