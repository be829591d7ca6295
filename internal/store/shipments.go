package store

import (
	"database/sql"
	"fmt"
	"time"
)

const shipmentColumns = `id, tracking_number, COALESCE(carrier,''), status,
	COALESCE(supplier_id,''), COALESCE(supplier_name,''), COALESCE(invoice_id,0),
	COALESCE(origin,''), COALESCE(destination,''), COALESCE(description,''),
	created_at, updated_at`

// CreateShipment inserts a shipment and records its initial timeline event.
func (s *Store) CreateShipment(sh *Shipment) (*Shipment, error) {
	if sh.Status == "" {
		sh.Status = ShipmentPending
	}
	var supplierID any
	if sh.SupplierID != "" {
		supplierID = sh.SupplierID
	}
	var invoiceID any
	if sh.InvoiceID != 0 {
		invoiceID = sh.InvoiceID
	}
	res, err := s.db.Exec(`
		INSERT INTO shipments (tracking_number, carrier, status, supplier_id, supplier_name, invoice_id, origin, destination, description)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, sh.TrackingNumber, sh.Carrier, sh.Status, supplierID, sh.SupplierName, invoiceID, sh.Origin, sh.Destination, sh.Description)
	if err != nil {
		return nil, fmt.Errorf("create shipment: %w", err)
	}
	id, _ := res.LastInsertId()
	if _, err := s.db.Exec(`
		INSERT INTO shipment_events (shipment_id, status, detail) VALUES (?, ?, 'shipment registered')
	`, id, sh.Status); err != nil {
		return nil, fmt.Errorf("create shipment event: %w", err)
	}
	return s.GetShipment(id)
}

// GetShipment returns a shipment with its event timeline, or nil when absent.
func (s *Store) GetShipment(id int64) (*Shipment, error) {
	row := s.db.QueryRow(`SELECT `+shipmentColumns+` FROM shipments WHERE id = ?`, id)
	sh, err := scanShipment(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get shipment: %w", err)
	}
	rows, err := s.db.Query(`
		SELECT id, shipment_id, status, COALESCE(location,''), COALESCE(detail,''), happened_at
		FROM shipment_events WHERE shipment_id = ? ORDER BY happened_at ASC, id ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("get shipment events: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var ev ShipmentEvent
		if err := rows.Scan(&ev.ID, &ev.ShipmentID, &ev.Status, &ev.Location, &ev.Detail, &ev.HappenedAt); err != nil {
			return nil, fmt.Errorf("get shipment events: %w", err)
		}
		sh.Events = append(sh.Events, ev)
	}
	return sh, rows.Err()
}

// ListShipments returns shipments filtered by optional status, most recent first.
func (s *Store) ListShipments(status string, limit int) ([]Shipment, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT ` + shipmentColumns + ` FROM shipments WHERE 1=1`
	var args []any
	if status != "" {
		query += ` AND status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list shipments: %w", err)
	}
	defer rows.Close()

	var out []Shipment
	for rows.Next() {
		sh, err := scanShipment(rows)
		if err != nil {
			return nil, fmt.Errorf("list shipments: %w", err)
		}
		out = append(out, *sh)
	}
	return out, rows.Err()
}

// AddShipmentEvent appends a tracking event and advances the shipment status.
// Terminal shipments (delivered, exception) reject further events.
func (s *Store) AddShipmentEvent(shipmentID int64, status, location, detail string, happenedAt time.Time) error {
	sh, err := s.GetShipment(shipmentID)
	if err != nil {
		return err
	}
	if sh == nil {
		return fmt.Errorf("add shipment event: unknown shipment %d", shipmentID)
	}
	if ShipmentTerminal(sh.Status) {
		return fmt.Errorf("add shipment event: shipment %d is %s", shipmentID, sh.Status)
	}
	if happenedAt.IsZero() {
		happenedAt = time.Now()
	}
	if _, err := s.db.Exec(`
		INSERT INTO shipment_events (shipment_id, status, location, detail, happened_at)
		VALUES (?, ?, ?, ?, ?)
	`, shipmentID, status, location, detail, happenedAt); err != nil {
		return fmt.Errorf("add shipment event: %w", err)
	}
	if _, err := s.db.Exec(`UPDATE shipments SET status = ?, updated_at = datetime('now') WHERE id = ?`, status, shipmentID); err != nil {
		return fmt.Errorf("add shipment event: update status: %w", err)
	}
	return nil
}

// SaveShipmentLink persists the supplier link for a shipment.
func (s *Store) SaveShipmentLink(id int64, supplierID string) error {
	sup, err := s.GetSupplier(supplierID)
	if err != nil {
		return err
	}
	if sup == nil {
		return fmt.Errorf("save shipment link: unknown supplier %s", supplierID)
	}
	res, err := s.db.Exec(`UPDATE shipments SET supplier_id = ?, updated_at = datetime('now') WHERE id = ?`, supplierID, id)
	if err != nil {
		return fmt.Errorf("save shipment link: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("save shipment link: unknown shipment %d", id)
	}
	return nil
}

func scanShipment(r rowScanner) (*Shipment, error) {
	var sh Shipment
	err := r.Scan(&sh.ID, &sh.TrackingNumber, &sh.Carrier, &sh.Status,
		&sh.SupplierID, &sh.SupplierName, &sh.InvoiceID,
		&sh.Origin, &sh.Destination, &sh.Description,
		&sh.CreatedAt, &sh.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &sh, nil
}
