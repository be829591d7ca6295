// Package metrics reconciles revenue and transaction figures from the online
// sales channel and the physical point of sale into a single snapshot.
package metrics

import "time"

// Source tags indicate which fallback tier produced a channel's figures.
const (
	SourcePrimary = "primary"
	SourceLedger  = "ledger"
	SourceNone    = "none"
)

// PeriodMetrics is a revenue/transaction pair for one lookback period.
type PeriodMetrics struct {
	Revenue      float64 `json:"revenue"`
	Transactions int     `json:"transactions"`
}

// ChannelSnapshot holds one channel's reconciled figures across all lookback
// periods, tagged with the tier that produced them.
type ChannelSnapshot struct {
	Today           PeriodMetrics `json:"today"`
	Yesterday       PeriodMetrics `json:"yesterday"`
	SameDayLastWeek PeriodMetrics `json:"same_day_last_week"`
	Week            PeriodMetrics `json:"week"`
	Month           PeriodMetrics `json:"month"`
	Source          string        `json:"source"`
	Evolution       Evolution     `json:"evolution"`
}

// Evolution is the percent change of today's revenue against the same day last
// week. Percent is an absolute magnitude; IsPositive carries the sign.
type Evolution struct {
	Percent    int  `json:"percent"`
	IsPositive bool `json:"is_positive"`
}

// Objective tracks progress toward the monthly revenue target.
type Objective struct {
	Target    float64 `json:"target"`
	Current   float64 `json:"current"`
	Progress  int     `json:"progress"`
	Remaining float64 `json:"remaining"`
}

// Snapshot is the immutable, per-request reconciled metrics result.
type Snapshot struct {
	Date      time.Time       `json:"date"`
	Online    ChannelSnapshot `json:"online"`
	Store     ChannelSnapshot `json:"store"`
	Combined  ChannelSnapshot `json:"combined"`
	Objective Objective       `json:"objective"`
}
