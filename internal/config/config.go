// Package config provides configuration types and loading for opspulse.
package config

import "time"

// Config is the root configuration struct.
// Top-level groups: Store, Primary, Objective, Entity, Classify, Ingest,
// Gateway, Scheduler, Notify, Agents.
type Config struct {
	Store     StoreConfig     `json:"store"`
	Primary   PrimaryConfig   `json:"primary"`
	Objective ObjectiveConfig `json:"objective"`
	Entity    EntityConfig    `json:"entity"`
	Classify  ClassifyConfig  `json:"classify"`
	Ingest    IngestConfig    `json:"ingest"`
	Gateway   GatewayConfig   `json:"gateway"`
	Scheduler SchedulerConfig `json:"scheduler"`
	Notify    NotifyConfig    `json:"notify"`
	Agents    AgentsConfig    `json:"agents"`
}

// ---------------------------------------------------------------------------
// Store – entity store and POS ledger
// ---------------------------------------------------------------------------

// StoreConfig groups storage settings. An empty Path means the ledger tier is
// unconfigured; reconciliation then degrades to source "none".
type StoreConfig struct {
	Path string `json:"path" envconfig:"PATH"`
}

// ---------------------------------------------------------------------------
// Primary – online-channel metrics provider
// ---------------------------------------------------------------------------

// PrimaryConfig configures the primary (online channel) metrics provider.
type PrimaryConfig struct {
	BaseURL string        `json:"baseUrl" envconfig:"BASE_URL"`
	Token   string        `json:"token" envconfig:"TOKEN"`
	Timeout time.Duration `json:"timeout" envconfig:"TIMEOUT"`
}

// ObjectiveConfig holds the monthly revenue objective.
type ObjectiveConfig struct {
	MonthlyTarget float64 `json:"monthlyTarget" envconfig:"MONTHLY_TARGET"`
}

// ---------------------------------------------------------------------------
// Entity – identity of the legal entity invoices are addressed to
// ---------------------------------------------------------------------------

// EntityConfig identifies the business entity. The classifier's
// addressed-to-entity gate matches correspondence against these values.
type EntityConfig struct {
	LegalName  string   `json:"legalName" envconfig:"LEGAL_NAME"`
	TradeName  string   `json:"tradeName" envconfig:"TRADE_NAME"`
	Street     string   `json:"street" envconfig:"STREET"`
	PostalCode string   `json:"postalCode" envconfig:"POSTAL_CODE"`
	Aliases    []string `json:"aliases" envconfig:"ALIASES"`
}

// ClassifyConfig holds the known-supplier registry and the keyword-to-category
// table used by the classification engine. Empty means built-in defaults.
type ClassifyConfig struct {
	Suppliers  []SupplierFingerprint `json:"suppliers"`
	Categories []CategoryRule        `json:"categories"`
}

// SupplierFingerprint is one known-supplier registry entry. A correspondence
// sender matching Domain (or containing Match as a substring) is recognized
// without exact-id matching.
type SupplierFingerprint struct {
	Domain   string `json:"domain"`
	Match    string `json:"match,omitempty"`
	Name     string `json:"name"`
	Category string `json:"category"`
	Notes    string `json:"notes,omitempty"`
}

// CategoryRule maps keywords to a commodity category. First matching rule wins.
type CategoryRule struct {
	Keywords []string `json:"keywords"`
	Category string   `json:"category"`
}

// ---------------------------------------------------------------------------
// Ingest – correspondence intake
// ---------------------------------------------------------------------------

// IngestConfig configures the Kafka correspondence intake.
type IngestConfig struct {
	Enabled       bool   `json:"enabled" envconfig:"ENABLED"`
	KafkaBrokers  string `json:"kafkaBrokers" envconfig:"KAFKA_BROKERS"`
	Topic         string `json:"topic" envconfig:"TOPIC"`
	ConsumerGroup string `json:"consumerGroup" envconfig:"CONSUMER_GROUP"`
}

// GatewayConfig configures the HTTP gateway.
type GatewayConfig struct {
	Enabled   bool   `json:"enabled" envconfig:"ENABLED"`
	Addr      string `json:"addr" envconfig:"ADDR"`
	AuthToken string `json:"authToken" envconfig:"AUTH_TOKEN"`
}

// SchedulerConfig holds scheduler settings.
type SchedulerConfig struct {
	Enabled       bool          `json:"enabled" envconfig:"ENABLED"`
	TickInterval  time.Duration `json:"tickInterval" envconfig:"TICK_INTERVAL"`
	ReconcileCron string        `json:"reconcileCron" envconfig:"RECONCILE_CRON"`
	SweepCron     string        `json:"sweepCron" envconfig:"SWEEP_CRON"`
	LockPath      string        `json:"lockPath" envconfig:"LOCK_PATH"`
	MaxConcurrent int           `json:"maxConcurrent" envconfig:"MAX_CONCURRENT"`
}

// NotifyConfig configures the optional Slack alert notifier.
type NotifyConfig struct {
	SlackToken   string `json:"slackToken" envconfig:"SLACK_TOKEN"`
	SlackChannel string `json:"slackChannel" envconfig:"SLACK_CHANNEL"`
}

// ---------------------------------------------------------------------------
// Agents – task generation thresholds
// ---------------------------------------------------------------------------

// AgentsConfig holds task-generation tuning knobs.
type AgentsConfig struct {
	HistoryCapacity  int     `json:"historyCapacity" envconfig:"HISTORY_CAPACITY"`
	AOVFloor         float64 `json:"aovFloor" envconfig:"AOV_FLOOR"`
	RevenueDropPct   float64 `json:"revenueDropPct" envconfig:"REVENUE_DROP_PCT"`
	ProgressFloorPct float64 `json:"progressFloorPct" envconfig:"PROGRESS_FLOOR_PCT"`
}
