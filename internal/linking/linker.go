// Package linking infers supplier foreign keys for invoices and shipments
// that arrive without one.
package linking

import (
	"log/slog"
	"strings"

	"github.com/OpsPulse/opspulse/internal/store"
)

// SupplierSource supplies the registered suppliers in registration order.
type SupplierSource interface {
	ListSuppliers() ([]store.Supplier, error)
}

// Linker resolves supplier references. All Link methods are read-only and
// return a copy; callers persist the returned value. An unresolvable record
// is valid domain state, not an error.
type Linker struct {
	Suppliers SupplierSource
}

func New(src SupplierSource) *Linker {
	return &Linker{Suppliers: src}
}

// LinkShipment returns a copy of sh with SupplierID populated when a supplier
// can be resolved, else the input unchanged. Relinking an already-linked
// shipment is a no-op.
func (l *Linker) LinkShipment(sh store.Shipment) store.Shipment {
	if sh.SupplierID != "" {
		return sh
	}
	suppliers, err := l.listSuppliers()
	if err != nil {
		return sh
	}
	haystack := strings.ToLower(sh.Origin + " " + sh.Description)
	if sup := resolve(suppliers, sh.SupplierName, haystack); sup != nil {
		sh.SupplierID = sup.ID
	}
	return sh
}

// LinkInvoice returns a copy of inv with SupplierID populated when a supplier
// can be resolved, else the input unchanged.
func (l *Linker) LinkInvoice(inv store.Invoice) store.Invoice {
	if inv.SupplierID != "" {
		return inv
	}
	suppliers, err := l.listSuppliers()
	if err != nil {
		return inv
	}
	var sb strings.Builder
	sb.WriteString(inv.SupplierName)
	for _, item := range inv.Items {
		sb.WriteString(" ")
		sb.WriteString(item.Description)
	}
	if sup := resolve(suppliers, inv.SupplierName, strings.ToLower(sb.String())); sup != nil {
		inv.SupplierID = sup.ID
	}
	return inv
}

func (l *Linker) listSuppliers() ([]store.Supplier, error) {
	if l.Suppliers == nil {
		return nil, nil
	}
	suppliers, err := l.Suppliers.ListSuppliers()
	if err != nil {
		// Read path stays total: an unreadable supplier list just leaves the
		// record unlinked for a later retry.
		slog.Warn("linking: supplier list unavailable", "error", err)
		return nil, err
	}
	return suppliers, nil
}

// resolve finds the first supplier matching the declared counterparty name
// exactly (case-insensitive, display or legal name), then falls back to a
// token-substring scan of the haystack. Ties resolve by supplier registration
// order, not specificity; downstream behavior depends on this.
func resolve(suppliers []store.Supplier, counterparty, haystack string) *store.Supplier {
	name := strings.TrimSpace(strings.ToLower(counterparty))
	if name != "" {
		for i := range suppliers {
			if strings.EqualFold(suppliers[i].Name, counterparty) ||
				(suppliers[i].LegalName != "" && strings.EqualFold(suppliers[i].LegalName, counterparty)) {
				return &suppliers[i]
			}
		}
	}
	if strings.TrimSpace(haystack) == "" {
		return nil
	}
	for i := range suppliers {
		for _, tok := range supplierTokens(&suppliers[i]) {
			if strings.Contains(haystack, tok) {
				return &suppliers[i]
			}
		}
	}
	return nil
}

// supplierTokens builds the match token set from the supplier's display name,
// legal name, and address words.
func supplierTokens(sup *store.Supplier) []string {
	var out []string
	for _, field := range []string{sup.Name, sup.LegalName, sup.Address} {
		for _, tok := range strings.Fields(strings.ToLower(field)) {
			if tok != "" {
				out = append(out, tok)
			}
		}
	}
	return out
}
