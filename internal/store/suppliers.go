package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
)

const supplierColumns = `id, name, COALESCE(legal_name,''), status, COALESCE(email,''),
	COALESCE(phone,''), COALESCE(website,''), COALESCE(address,''),
	COALESCE(categories,'[]'), COALESCE(featured_products,'[]'), rating,
	COALESCE(notes,''), created_at, updated_at`

// CreateSupplier inserts a supplier. If sup.ID is empty it is derived from the
// website domain or, failing that, the name. Returns the stored row.
func (s *Store) CreateSupplier(sup *Supplier) (*Supplier, error) {
	if sup.ID == "" {
		key := domainOf(sup.Email)
		if key == "" {
			key = sup.Website
		}
		if key == "" {
			key = sup.Name
		}
		sup.ID = SupplierID(key)
	}
	if sup.ID == "" {
		return nil, fmt.Errorf("create supplier: empty identifying key")
	}
	if sup.Status == "" {
		sup.Status = SupplierPending
	}
	cats, _ := json.Marshal(emptyIfNil(sup.Categories))
	feats, _ := json.Marshal(emptyIfNil(sup.FeaturedProducts))

	_, err := s.db.Exec(`
		INSERT INTO suppliers (id, name, legal_name, status, email, phone, website, address, categories, featured_products, rating, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, sup.ID, sup.Name, sup.LegalName, sup.Status, sup.Email, sup.Phone, sup.Website,
		sup.Address, string(cats), string(feats), sup.Rating, sup.Notes)
	if err != nil {
		return nil, fmt.Errorf("create supplier: %w", err)
	}
	return s.GetSupplier(sup.ID)
}

// UpsertSupplier inserts the supplier or, when the deterministic id already
// exists, refreshes the mutable fields. Registration order is preserved: an
// existing row keeps its created_at and its position in iteration order.
func (s *Store) UpsertSupplier(sup *Supplier) (*Supplier, error) {
	existing, err := s.GetSupplier(sup.ID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return s.CreateSupplier(sup)
	}
	cats, _ := json.Marshal(emptyIfNil(sup.Categories))
	_, err = s.db.Exec(`
		UPDATE suppliers SET name = ?, legal_name = ?, email = ?, categories = ?, notes = ?, updated_at = datetime('now')
		WHERE id = ?
	`, pick(sup.Name, existing.Name), pick(sup.LegalName, existing.LegalName),
		pick(sup.Email, existing.Email), string(cats), pick(sup.Notes, existing.Notes), sup.ID)
	if err != nil {
		return nil, fmt.Errorf("upsert supplier: %w", err)
	}
	return s.GetSupplier(sup.ID)
}

// GetSupplier returns a supplier by id, or nil when absent.
func (s *Store) GetSupplier(id string) (*Supplier, error) {
	row := s.db.QueryRow(`SELECT `+supplierColumns+` FROM suppliers WHERE id = ?`, id)
	sup, err := scanSupplier(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get supplier: %w", err)
	}
	return sup, nil
}

// ListSuppliers returns all suppliers in registration order. The linking
// engine depends on this ordering for its documented tie-break.
func (s *Store) ListSuppliers() ([]Supplier, error) {
	rows, err := s.db.Query(`SELECT ` + supplierColumns + ` FROM suppliers ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list suppliers: %w", err)
	}
	defer rows.Close()

	var out []Supplier
	for rows.Next() {
		sup, err := scanSupplier(rows)
		if err != nil {
			return nil, fmt.Errorf("list suppliers: %w", err)
		}
		out = append(out, *sup)
	}
	return out, rows.Err()
}

// UpdateSupplierStatus sets the supplier status.
func (s *Store) UpdateSupplierStatus(id, status string) error {
	res, err := s.db.Exec(`UPDATE suppliers SET status = ?, updated_at = datetime('now') WHERE id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("update supplier status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update supplier status: unknown supplier %s", id)
	}
	return nil
}

// DeleteSupplier removes a supplier after unlinking its dependents. Invoices
// and shipments referencing it are kept but reset to unlinked.
func (s *Store) DeleteSupplier(id string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("delete supplier: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`UPDATE invoices SET supplier_id = NULL WHERE supplier_id = ?`, id); err != nil {
		return fmt.Errorf("delete supplier: unlink invoices: %w", err)
	}
	if _, err := tx.Exec(`UPDATE shipments SET supplier_id = NULL WHERE supplier_id = ?`, id); err != nil {
		return fmt.Errorf("delete supplier: unlink shipments: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM suppliers WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete supplier: %w", err)
	}
	return tx.Commit()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSupplier(r rowScanner) (*Supplier, error) {
	var sup Supplier
	var cats, feats string
	err := r.Scan(&sup.ID, &sup.Name, &sup.LegalName, &sup.Status, &sup.Email,
		&sup.Phone, &sup.Website, &sup.Address, &cats, &feats, &sup.Rating,
		&sup.Notes, &sup.CreatedAt, &sup.UpdatedAt)
	if err != nil {
		return nil, err
	}
	_ = json.Unmarshal([]byte(cats), &sup.Categories)
	_ = json.Unmarshal([]byte(feats), &sup.FeaturedProducts)
	return &sup, nil
}

func domainOf(email string) string {
	if i := strings.LastIndex(email, "@"); i >= 0 {
		return email[i+1:]
	}
	return ""
}

func emptyIfNil(ss []string) []string {
	if ss == nil {
		return []string{}
	}
	return ss
}

func pick(v, fallback string) string {
	if strings.TrimSpace(v) != "" {
		return v
	}
	return fallback
}
