package classify

import "strings"

// The batch gate is an OR of three independent predicates. Any one firing is
// sufficient: the gate favors recall, and false positives are expected and
// tolerated downstream. The predicates are exported separately so callers can
// recompose them with different precision/recall trade-offs.

// MatchesKnownSupplier reports whether the sender matches a known-supplier
// fingerprint (domain or raw-address substring).
func (c *Classifier) MatchesKnownSupplier(rec Record) bool {
	return c.lookupFingerprint(rec.From, DomainOf(rec.From)) != nil
}

// AddressedToEntity reports whether the subject or body mentions the business
// entity: legal name, trade name, street address, or postal code.
func (c *Classifier) AddressedToEntity(rec Record) bool {
	if len(c.entityTerms) == 0 {
		return false
	}
	text := strings.ToLower(rec.Subject + " " + rec.Body)
	for _, term := range c.entityTerms {
		if strings.Contains(text, term) {
			return true
		}
	}
	return false
}

// LooksLikeInvoice reports whether the subject matches the generic
// invoice/order/receipt lexicon.
func (c *Classifier) LooksLikeInvoice(rec Record) bool {
	subject := strings.ToLower(rec.Subject)
	for _, word := range c.invoiceWords {
		if strings.Contains(subject, word) {
			return true
		}
	}
	return false
}

// FilterSupplierInvoices classifies a batch of correspondence, keeping only
// records that pass the permissive gate, and returns their candidate pairs.
func (c *Classifier) FilterSupplierInvoices(records []Record) []Candidate {
	var out []Candidate
	for _, rec := range records {
		if !c.MatchesKnownSupplier(rec) && !c.AddressedToEntity(rec) && !c.LooksLikeInvoice(rec) {
			continue
		}
		cand, ok := c.ExtractSupplierFromEmail(rec)
		if !ok {
			continue
		}
		out = append(out, cand)
	}
	return out
}
