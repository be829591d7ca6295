package store

import (
	"regexp"
	"strings"
	"time"
)

// Supplier statuses.
const (
	SupplierActive   = "active"
	SupplierInactive = "inactive"
	SupplierPending  = "pending"
)

// Invoice statuses.
const (
	InvoiceDraft   = "draft"
	InvoicePending = "pending"
	InvoicePaid    = "paid"
	InvoiceOverdue = "overdue"
)

// Invoice source channels.
const (
	InvoiceSourceMail   = "mail"
	InvoiceSourcePOS    = "pos"
	InvoiceSourceManual = "manual"
)

// Shipment statuses. Delivered and exception are terminal.
const (
	ShipmentPending        = "pending"
	ShipmentInTransit      = "in_transit"
	ShipmentOutForDelivery = "out_for_delivery"
	ShipmentDelivered      = "delivered"
	ShipmentException      = "exception"
)

// Supplier represents a registered supplier. The ID is a deterministic slug of
// the identifying key (domain or name), so re-detecting the same sender never
// creates a duplicate row.
type Supplier struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	LegalName        string    `json:"legal_name,omitempty"`
	Status           string    `json:"status"`
	Email            string    `json:"email,omitempty"`
	Phone            string    `json:"phone,omitempty"`
	Website          string    `json:"website,omitempty"`
	Address          string    `json:"address,omitempty"`
	Categories       []string  `json:"categories,omitempty"`
	FeaturedProducts []string  `json:"featured_products,omitempty"`
	Rating           float64   `json:"rating"`
	Notes            string    `json:"notes,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Invoice represents a supplier invoice. SupplierID stays empty until the
// linking engine resolves it. Paid invoices are immutable except through
// administrative correction.
type Invoice struct {
	ID           int64         `json:"id"`
	Number       string        `json:"number"`
	SupplierID   string        `json:"supplier_id,omitempty"`
	SupplierName string        `json:"supplier_name,omitempty"`
	Amount       float64       `json:"amount"`
	Status       string        `json:"status"`
	Source       string        `json:"source"`
	IssuedAt     time.Time     `json:"issued_at"`
	DueAt        *time.Time    `json:"due_at,omitempty"`
	Items        []InvoiceItem `json:"items,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// InvoiceItem is one line item of an invoice.
type InvoiceItem struct {
	ID          int64   `json:"id"`
	InvoiceID   int64   `json:"invoice_id"`
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
}

// Shipment represents an inbound shipment. SupplierID and InvoiceID stay empty
// until linked. Events is an append-only ordered timeline.
type Shipment struct {
	ID             int64           `json:"id"`
	TrackingNumber string          `json:"tracking_number"`
	Carrier        string          `json:"carrier,omitempty"`
	Status         string          `json:"status"`
	SupplierID     string          `json:"supplier_id,omitempty"`
	SupplierName   string          `json:"supplier_name,omitempty"`
	InvoiceID      int64           `json:"invoice_id,omitempty"`
	Origin         string          `json:"origin,omitempty"`
	Destination    string          `json:"destination,omitempty"`
	Description    string          `json:"description,omitempty"`
	Events         []ShipmentEvent `json:"events,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// ShipmentEvent is one entry in a shipment's tracking timeline.
type ShipmentEvent struct {
	ID         int64     `json:"id"`
	ShipmentID int64     `json:"shipment_id"`
	Status     string    `json:"status"`
	Location   string    `json:"location,omitempty"`
	Detail     string    `json:"detail,omitempty"`
	HappenedAt time.Time `json:"happened_at"`
}

// POSSale is one physical-store ledger row.
type POSSale struct {
	ID        int64     `json:"id"`
	SaleDate  string    `json:"sale_date"` // YYYY-MM-DD
	Total     float64   `json:"total"`
	Reference string    `json:"reference,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ShipmentTerminal reports whether a shipment status admits no further
// transitions.
func ShipmentTerminal(status string) bool {
	return status == ShipmentDelivered || status == ShipmentException
}

var slugStrip = regexp.MustCompile(`[^a-z0-9]+`)

// SupplierID derives the deterministic supplier id from an identifying key
// (domain or name). Same key always yields the same id.
func SupplierID(key string) string {
	s := strings.ToLower(strings.TrimSpace(key))
	s = slugStrip.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

const Schema = `
CREATE TABLE IF NOT EXISTS suppliers (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	legal_name TEXT DEFAULT '',
	status TEXT NOT NULL DEFAULT 'pending',
	email TEXT DEFAULT '',
	phone TEXT DEFAULT '',
	website TEXT DEFAULT '',
	address TEXT DEFAULT '',
	categories TEXT DEFAULT '[]',
	featured_products TEXT DEFAULT '[]',
	rating REAL NOT NULL DEFAULT 0,
	notes TEXT DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_suppliers_status ON suppliers(status);

CREATE TABLE IF NOT EXISTS invoices (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	number TEXT NOT NULL,
	supplier_id TEXT,
	supplier_name TEXT DEFAULT '',
	amount REAL NOT NULL DEFAULT 0,
	status TEXT NOT NULL DEFAULT 'draft',
	source TEXT NOT NULL DEFAULT 'manual',
	issued_at DATETIME,
	due_at DATETIME,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_invoices_supplier ON invoices(supplier_id);
CREATE INDEX IF NOT EXISTS idx_invoices_status ON invoices(status);

CREATE TABLE IF NOT EXISTS invoice_items (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	invoice_id INTEGER NOT NULL,
	description TEXT NOT NULL,
	quantity REAL NOT NULL DEFAULT 1,
	unit_price REAL NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_invoice_items_invoice ON invoice_items(invoice_id);

CREATE TABLE IF NOT EXISTS shipments (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	tracking_number TEXT UNIQUE NOT NULL,
	carrier TEXT DEFAULT '',
	status TEXT NOT NULL DEFAULT 'pending',
	supplier_id TEXT,
	supplier_name TEXT DEFAULT '',
	invoice_id INTEGER,
	origin TEXT DEFAULT '',
	destination TEXT DEFAULT '',
	description TEXT DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_shipments_supplier ON shipments(supplier_id);
CREATE INDEX IF NOT EXISTS idx_shipments_status ON shipments(status);

CREATE TABLE IF NOT EXISTS shipment_events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	shipment_id INTEGER NOT NULL,
	status TEXT NOT NULL,
	location TEXT DEFAULT '',
	detail TEXT DEFAULT '',
	happened_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_shipment_events_shipment ON shipment_events(shipment_id);

CREATE TABLE IF NOT EXISTS pos_sales (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	sale_date TEXT NOT NULL,
	total REAL NOT NULL,
	reference TEXT DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_pos_sales_date ON pos_sales(sale_date);

CREATE TABLE IF NOT EXISTS settings (
	key TEXT PRIMARY KEY,
	value TEXT,
	updated_at DATETIME
);
`
