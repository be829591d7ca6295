package metrics

import (
	"context"
	"log/slog"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/OpsPulse/opspulse/internal/store"
)

// Ledger is the persisted fallback tier for a channel: filtered-sum queries
// over date buckets. The store's POS sales table satisfies it.
type Ledger interface {
	SumSalesByDate(date string) (store.LedgerAggregate, error)
	SumSalesSince(date string) (store.LedgerAggregate, error)
}

// Channel describes one revenue channel's data sources. Either tier may be
// nil: a nil Provider skips straight to the ledger, a nil Ledger means the
// persisted tier is unconfigured.
type Channel struct {
	Name     string
	Provider Provider
	Ledger   Ledger
}

// Reconciler builds snapshots by merging the online channel and the
// physical-store channel under the three-tier fallback policy. It is
// read-only and safe for concurrent use.
type Reconciler struct {
	Online        Channel
	Store         Channel
	MonthlyTarget float64
}

// Snapshot reconciles both channels anchored at the given date. It never
// fails: every tier failure is caught locally and degrades to the next tier,
// ending at an all-zero channel tagged "none". The result is only assembled
// once every constituent fetch has resolved.
func (r *Reconciler) Snapshot(ctx context.Context, anchor time.Time) *Snapshot {
	snap := &Snapshot{Date: anchor}
	snap.Online = r.channelSnapshot(ctx, r.Online, anchor)
	snap.Store = r.channelSnapshot(ctx, r.Store, anchor)
	snap.Combined = combine(snap.Online, snap.Store)
	snap.Objective = ComputeObjective(r.MonthlyTarget, snap.Combined.Month.Revenue)
	return snap
}

func (r *Reconciler) channelSnapshot(ctx context.Context, ch Channel, anchor time.Time) ChannelSnapshot {
	// Tier 1: live provider.
	if ch.Provider != nil {
		m, err := ch.Provider.GetMetrics(ctx)
		if err == nil && (m.Today.Revenue > 0 || m.Month.Revenue > 0) {
			cs := ChannelSnapshot{
				Today:           roundPeriod(m.Today),
				Yesterday:       roundPeriod(m.Yesterday),
				SameDayLastWeek: roundPeriod(m.SameDayLastWeek),
				Week:            roundPeriod(m.Week),
				Month:           roundPeriod(m.Month),
				Source:          SourcePrimary,
			}
			cs.Evolution = ComputeEvolution(cs.Today.Revenue, cs.SameDayLastWeek.Revenue)
			return cs
		}
		if err != nil {
			slog.Warn("metrics: primary tier failed, falling back", "channel", ch.Name, "error", err)
		}
	}

	// Tier 2: persisted ledger.
	if ch.Ledger != nil {
		cs, err := r.ledgerSnapshot(ctx, ch.Ledger, anchor)
		if err == nil {
			return cs
		}
		slog.Warn("metrics: ledger tier failed", "channel", ch.Name, "error", err)
	}

	// Tier 3: no data. Source "none" lets callers distinguish "no data" from
	// "zero activity".
	return ChannelSnapshot{Source: SourceNone, Evolution: ComputeEvolution(0, 0)}
}

// ledgerSnapshot runs the five date-bucket aggregates concurrently and awaits
// them jointly.
func (r *Reconciler) ledgerSnapshot(ctx context.Context, ledger Ledger, anchor time.Time) (ChannelSnapshot, error) {
	const layout = "2006-01-02"
	today := anchor.Format(layout)
	yesterday := anchor.AddDate(0, 0, -1).Format(layout)
	lastWeekDay := anchor.AddDate(0, 0, -7).Format(layout)
	weekStart := anchor.AddDate(0, 0, -7).Format(layout)
	monthStart := anchor.AddDate(0, 0, -30).Format(layout)

	var cs ChannelSnapshot
	g, _ := errgroup.WithContext(ctx)
	fetchEq := func(date string, dst *PeriodMetrics) {
		g.Go(func() error {
			agg, err := ledger.SumSalesByDate(date)
			if err != nil {
				return err
			}
			*dst = PeriodMetrics{Revenue: Round2(agg.Total), Transactions: agg.Count}
			return nil
		})
	}
	fetchGte := func(date string, dst *PeriodMetrics) {
		g.Go(func() error {
			agg, err := ledger.SumSalesSince(date)
			if err != nil {
				return err
			}
			*dst = PeriodMetrics{Revenue: Round2(agg.Total), Transactions: agg.Count}
			return nil
		})
	}
	fetchEq(today, &cs.Today)
	fetchEq(yesterday, &cs.Yesterday)
	fetchEq(lastWeekDay, &cs.SameDayLastWeek)
	fetchGte(weekStart, &cs.Week)
	fetchGte(monthStart, &cs.Month)
	if err := g.Wait(); err != nil {
		return ChannelSnapshot{}, err
	}
	cs.Source = SourceLedger
	cs.Evolution = ComputeEvolution(cs.Today.Revenue, cs.SameDayLastWeek.Revenue)
	return cs, nil
}

func combine(a, b ChannelSnapshot) ChannelSnapshot {
	cs := ChannelSnapshot{
		Today:           addPeriods(a.Today, b.Today),
		Yesterday:       addPeriods(a.Yesterday, b.Yesterday),
		SameDayLastWeek: addPeriods(a.SameDayLastWeek, b.SameDayLastWeek),
		Week:            addPeriods(a.Week, b.Week),
		Month:           addPeriods(a.Month, b.Month),
	}
	cs.Source = combinedSource(a.Source, b.Source)
	cs.Evolution = ComputeEvolution(cs.Today.Revenue, cs.SameDayLastWeek.Revenue)
	return cs
}

func combinedSource(a, b string) string {
	if a == SourceNone {
		return b
	}
	if b == SourceNone || a == b {
		return a
	}
	return SourcePrimary
}

func addPeriods(a, b PeriodMetrics) PeriodMetrics {
	return PeriodMetrics{
		Revenue:      Round2(a.Revenue + b.Revenue),
		Transactions: a.Transactions + b.Transactions,
	}
}

// ComputeEvolution returns the percent change of today against the same day
// last week. A zero baseline with activity today counts as +100%; two zeros
// count as a flat, positive 0%.
func ComputeEvolution(today, sameDayLastWeek float64) Evolution {
	if sameDayLastWeek == 0 {
		if today > 0 {
			return Evolution{Percent: 100, IsPositive: true}
		}
		return Evolution{Percent: 0, IsPositive: true}
	}
	pct := math.Round((today - sameDayLastWeek) / sameDayLastWeek * 100)
	return Evolution{
		Percent:    int(math.Abs(pct)),
		IsPositive: pct >= 0,
	}
}

// ComputeObjective tracks progress toward the monthly target.
func ComputeObjective(target, current float64) Objective {
	obj := Objective{Target: target, Current: Round2(current)}
	if target > 0 {
		obj.Progress = int(math.Round(current / target * 100))
	}
	obj.Remaining = math.Max(0, Round2(target-current))
	return obj
}

// Round2 rounds a money value to two decimal places. Applied after summation,
// never before, so rounding error does not compound.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func roundPeriod(m PeriodMetrics) PeriodMetrics {
	m.Revenue = Round2(m.Revenue)
	return m
}
