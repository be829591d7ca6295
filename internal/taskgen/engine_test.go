package taskgen

import (
	"testing"

	"github.com/OpsPulse/opspulse/internal/config"
	"github.com/OpsPulse/opspulse/internal/metrics"
)

func testConfig() config.AgentsConfig {
	return config.AgentsConfig{
		HistoryCapacity:  50,
		AOVFloor:         60,
		RevenueDropPct:   20,
		ProgressFloorPct: 50,
	}
}

// healthySnapshot trips no threshold rule: positive evolution, AOV above
// floor, objective over half, both sources live.
func healthySnapshot() *metrics.Snapshot {
	return &metrics.Snapshot{
		Online: metrics.ChannelSnapshot{
			Today:     metrics.PeriodMetrics{Revenue: 500, Transactions: 5},
			Month:     metrics.PeriodMetrics{Revenue: 20000, Transactions: 200},
			Source:    metrics.SourcePrimary,
			Evolution: metrics.Evolution{Percent: 10, IsPositive: true},
		},
		Store: metrics.ChannelSnapshot{
			Today:  metrics.PeriodMetrics{Revenue: 300, Transactions: 3},
			Month:  metrics.PeriodMetrics{Revenue: 15000, Transactions: 150},
			Source: metrics.SourceLedger,
		},
		Combined: metrics.ChannelSnapshot{
			Today:     metrics.PeriodMetrics{Revenue: 800, Transactions: 8},
			Month:     metrics.PeriodMetrics{Revenue: 35000, Transactions: 350},
			Source:    metrics.SourcePrimary,
			Evolution: metrics.Evolution{Percent: 10, IsPositive: true},
		},
		Objective: metrics.Objective{Target: 63000, Current: 35000, Progress: 56, Remaining: 28000},
	}
}

func TestAllTasksBaselineOnly(t *testing.T) {
	e := New(testConfig())
	tasks := e.AllTasks(healthySnapshot())
	// One baseline rule per informational agent: analyst digest, merchandiser
	// rotation, bookkeeper reconcile.
	if len(tasks) != 3 {
		t.Fatalf("expected 3 baseline tasks, got %d: %+v", len(tasks), tasks)
	}
	for _, task := range tasks {
		if task.Priority != PriorityLow {
			t.Errorf("baseline task %q should be low priority, got %s", task.Title, task.Priority)
		}
		if task.Status != StatusPending {
			t.Errorf("baseline task %q should be pending, got %s", task.Title, task.Status)
		}
	}
}

func TestAllTasksStablePrioritySort(t *testing.T) {
	e := New(testConfig())
	snap := healthySnapshot()
	// Degrade everything: revenue down 25%, AOV below floor, objective behind,
	// online dark, store silent today.
	snap.Combined.Evolution = metrics.Evolution{Percent: 25, IsPositive: false}
	snap.Combined.Month = metrics.PeriodMetrics{Revenue: 5000, Transactions: 100} // AOV 50
	snap.Objective = metrics.Objective{Target: 63000, Current: 5000, Progress: 8, Remaining: 58000}
	snap.Online.Source = metrics.SourceNone
	snap.Store.Today.Transactions = 0

	tasks := e.AllTasks(snap)
	if len(tasks) != 8 {
		t.Fatalf("expected all 8 rules to fire, got %d", len(tasks))
	}

	wantTitles := []string{
		// high, in agent-registration order
		"Investigate revenue decline",
		"Online channel reporting offline",
		// medium
		"Review average order value",
		"Plan push to close objective gap",
		"Store ledger has no sales recorded today",
		// low
		"Compile daily revenue digest",
		"Refresh featured product rotation",
		"Reconcile supplier invoices",
	}
	for i, want := range wantTitles {
		if tasks[i].Title != want {
			t.Errorf("position %d: got %q, want %q", i, tasks[i].Title, want)
		}
	}

	// Same snapshot, same ordering.
	again := e.AllTasks(snap)
	for i := range again {
		if again[i].Title != tasks[i].Title {
			t.Errorf("second evaluation diverged at %d: %q vs %q", i, again[i].Title, tasks[i].Title)
		}
	}
}

func TestAlertRulesStartAtNeedsAttention(t *testing.T) {
	e := New(testConfig())
	snap := healthySnapshot()
	snap.Online.Source = metrics.SourceNone

	tasks := e.TasksForAgent("watchdog", snap)
	if len(tasks) != 1 {
		t.Fatalf("expected 1 watchdog task, got %d", len(tasks))
	}
	if tasks[0].Status != StatusNeedsAttention {
		t.Errorf("alert rule should start at needs_attention, got %s", tasks[0].Status)
	}
	if tasks[0].Priority != PriorityHigh {
		t.Errorf("expected high priority, got %s", tasks[0].Priority)
	}
}

func TestTasksForAgentUnknown(t *testing.T) {
	e := New(testConfig())
	if tasks := e.TasksForAgent("intern", healthySnapshot()); tasks != nil {
		t.Errorf("unknown agent should yield nil, got %+v", tasks)
	}
}

func TestRevenueDropThresholdIsInclusive(t *testing.T) {
	e := New(testConfig())
	snap := healthySnapshot()
	snap.Combined.Evolution = metrics.Evolution{Percent: 20, IsPositive: false}
	tasks := e.TasksForAgent("analyst", snap)
	if len(tasks) != 2 {
		t.Fatalf("a 20%% drop should trip the 20%% threshold, got %d tasks", len(tasks))
	}

	snap.Combined.Evolution = metrics.Evolution{Percent: 19, IsPositive: false}
	tasks = e.TasksForAgent("analyst", snap)
	if len(tasks) != 1 {
		t.Fatalf("a 19%% drop should not trip the threshold, got %d tasks", len(tasks))
	}
}

func TestAOVZeroTransactionsDoesNotFire(t *testing.T) {
	e := New(testConfig())
	snap := healthySnapshot()
	snap.Combined.Month = metrics.PeriodMetrics{}
	tasks := e.TasksForAgent("merchandiser", snap)
	if len(tasks) != 1 {
		t.Fatalf("zero transactions must not trip the AOV floor, got %d tasks", len(tasks))
	}
}

func TestPriorityRank(t *testing.T) {
	if !(PriorityRank(PriorityHigh) < PriorityRank(PriorityMedium) &&
		PriorityRank(PriorityMedium) < PriorityRank(PriorityLow) &&
		PriorityRank(PriorityLow) < PriorityRank("bogus")) {
		t.Error("priority ranks out of order")
	}
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to string
		want     bool
	}{
		{StatusPending, StatusInProgress, true},
		{StatusNeedsAttention, StatusInProgress, true},
		{StatusInProgress, StatusCompleted, true},
		{StatusInProgress, StatusFailed, true},
		{StatusPending, StatusCompleted, false},
		{StatusPending, StatusNeedsAttention, true},
		{StatusInProgress, StatusNeedsAttention, true},
		{StatusCompleted, StatusInProgress, false},
		{StatusFailed, StatusNeedsAttention, false},
		{StatusCompleted, StatusNeedsAttention, false},
	}
	for _, tc := range tests {
		if got := CanTransition(tc.from, tc.to); got != tc.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}
