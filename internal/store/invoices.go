package store

import (
	"database/sql"
	"fmt"
)

const invoiceColumns = `id, number, COALESCE(supplier_id,''), COALESCE(supplier_name,''),
	amount, status, source, issued_at, due_at, created_at, updated_at`

// CreateInvoice inserts an invoice and its line items.
func (s *Store) CreateInvoice(inv *Invoice) (*Invoice, error) {
	if inv.Status == "" {
		inv.Status = InvoiceDraft
	}
	if inv.Source == "" {
		inv.Source = InvoiceSourceManual
	}
	var supplierID any
	if inv.SupplierID != "" {
		supplierID = inv.SupplierID
	}
	res, err := s.db.Exec(`
		INSERT INTO invoices (number, supplier_id, supplier_name, amount, status, source, issued_at, due_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, inv.Number, supplierID, inv.SupplierName, inv.Amount, inv.Status, inv.Source, inv.IssuedAt, inv.DueAt)
	if err != nil {
		return nil, fmt.Errorf("create invoice: %w", err)
	}
	id, _ := res.LastInsertId()
	for _, item := range inv.Items {
		if _, err := s.db.Exec(`
			INSERT INTO invoice_items (invoice_id, description, quantity, unit_price)
			VALUES (?, ?, ?, ?)
		`, id, item.Description, item.Quantity, item.UnitPrice); err != nil {
			return nil, fmt.Errorf("create invoice item: %w", err)
		}
	}
	return s.GetInvoice(id)
}

// GetInvoice returns an invoice with its line items, or nil when absent.
func (s *Store) GetInvoice(id int64) (*Invoice, error) {
	row := s.db.QueryRow(`SELECT `+invoiceColumns+` FROM invoices WHERE id = ?`, id)
	inv, err := scanInvoice(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get invoice: %w", err)
	}
	rows, err := s.db.Query(`SELECT id, invoice_id, description, quantity, unit_price FROM invoice_items WHERE invoice_id = ? ORDER BY id ASC`, id)
	if err != nil {
		return nil, fmt.Errorf("get invoice items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var item InvoiceItem
		if err := rows.Scan(&item.ID, &item.InvoiceID, &item.Description, &item.Quantity, &item.UnitPrice); err != nil {
			return nil, fmt.Errorf("get invoice items: %w", err)
		}
		inv.Items = append(inv.Items, item)
	}
	return inv, rows.Err()
}

// ListInvoices returns invoices filtered by optional status and supplier id,
// most recent first.
func (s *Store) ListInvoices(status, supplierID string, limit int) ([]Invoice, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE 1=1`
	var args []any
	if status != "" {
		query += ` AND status = ?`
		args = append(args, status)
	}
	if supplierID != "" {
		query += ` AND supplier_id = ?`
		args = append(args, supplierID)
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	defer rows.Close()

	var out []Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("list invoices: %w", err)
		}
		out = append(out, *inv)
	}
	return out, rows.Err()
}

// SaveInvoiceLink persists the supplier link for an invoice. Paid invoices are
// immutable: the link is rejected unless admin is set.
func (s *Store) SaveInvoiceLink(id int64, supplierID string, admin bool) error {
	inv, err := s.GetInvoice(id)
	if err != nil {
		return err
	}
	if inv == nil {
		return fmt.Errorf("save invoice link: unknown invoice %d", id)
	}
	if inv.Status == InvoicePaid && !admin {
		return fmt.Errorf("save invoice link: invoice %d is paid", id)
	}
	sup, err := s.GetSupplier(supplierID)
	if err != nil {
		return err
	}
	if sup == nil {
		return fmt.Errorf("save invoice link: unknown supplier %s", supplierID)
	}
	_, err = s.db.Exec(`UPDATE invoices SET supplier_id = ?, updated_at = datetime('now') WHERE id = ?`, supplierID, id)
	if err != nil {
		return fmt.Errorf("save invoice link: %w", err)
	}
	return nil
}

// UpdateInvoiceStatus transitions an invoice's status. Paid invoices are
// immutable except for administrative correction.
func (s *Store) UpdateInvoiceStatus(id int64, status string, admin bool) error {
	inv, err := s.GetInvoice(id)
	if err != nil {
		return err
	}
	if inv == nil {
		return fmt.Errorf("update invoice status: unknown invoice %d", id)
	}
	if inv.Status == InvoicePaid && !admin {
		return fmt.Errorf("update invoice status: invoice %d is paid", id)
	}
	_, err = s.db.Exec(`UPDATE invoices SET status = ?, updated_at = datetime('now') WHERE id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("update invoice status: %w", err)
	}
	return nil
}

func scanInvoice(r rowScanner) (*Invoice, error) {
	var inv Invoice
	var issuedAt, dueAt sql.NullTime
	err := r.Scan(&inv.ID, &inv.Number, &inv.SupplierID, &inv.SupplierName,
		&inv.Amount, &inv.Status, &inv.Source, &issuedAt, &dueAt,
		&inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if issuedAt.Valid {
		inv.IssuedAt = issuedAt.Time
	}
	if dueAt.Valid {
		inv.DueAt = &dueAt.Time
	}
	return &inv, nil
}
