package classify

import (
	"sort"
	"time"
)

// SupplierSummary is the per-supplier reduction of a classified batch.
type SupplierSummary struct {
	Key             string    `json:"key"` // domain, or sender address when absent
	Name            string    `json:"name"`
	Category        string    `json:"category"`
	Known           bool      `json:"known"`
	InvoiceCount    int       `json:"invoice_count"`
	TotalAmount     float64   `json:"total_amount"`
	LastInvoiceDate time.Time `json:"last_invoice_date"`
}

// ConsolidateSuppliers groups candidates by domain (falling back to the
// sender address), counting invoices, summing the defined amounts, and
// keeping the most recent invoice date. Dates are compared as parsed times,
// not strings, so mixed formats cannot misorder. The result is sorted most
// recent first.
func ConsolidateSuppliers(pairs []Candidate) []SupplierSummary {
	index := make(map[string]int)
	var out []SupplierSummary

	for _, p := range pairs {
		key := p.Supplier.Domain
		if key == "" {
			key = p.Record.From
		}
		i, seen := index[key]
		if !seen {
			index[key] = len(out)
			out = append(out, SupplierSummary{
				Key:             key,
				Name:            p.Supplier.Name,
				Category:        p.Supplier.Category,
				Known:           p.Supplier.Known,
				InvoiceCount:    1,
				LastInvoiceDate: p.Invoice.Date,
			})
			if p.Invoice.Amount != nil {
				out[len(out)-1].TotalAmount = *p.Invoice.Amount
			}
			continue
		}
		out[i].InvoiceCount++
		if p.Invoice.Amount != nil {
			out[i].TotalAmount += *p.Invoice.Amount
		}
		if p.Invoice.Date.After(out[i].LastInvoiceDate) {
			out[i].LastInvoiceDate = p.Invoice.Date
		}
	}

	sort.SliceStable(out, func(a, b int) bool {
		return out[a].LastInvoiceDate.After(out[b].LastInvoiceDate)
	})
	return out
}
