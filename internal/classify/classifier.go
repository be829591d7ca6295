// Package classify inspects inbound correspondence and decides whether it is
// a supplier invoice addressed to the business entity, using deterministic
// pattern rules only.
package classify

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/OpsPulse/opspulse/internal/config"
)

// Record is one correspondence record as supplied by the mail bridge. The
// engine never fetches these itself and treats every field as optional.
type Record struct {
	ID            string    `json:"id"`
	From          string    `json:"from"`
	Subject       string    `json:"subject"`
	Date          time.Time `json:"date"`
	Body          string    `json:"body,omitempty"`
	HasAttachment bool      `json:"has_attachment,omitempty"`
}

// SupplierCandidate is the supplier half of a classification result.
type SupplierCandidate struct {
	Domain   string `json:"domain"`
	Name     string `json:"name"`
	Category string `json:"category"`
	Notes    string `json:"notes,omitempty"`
	Known    bool   `json:"known"`
}

// InvoiceStub is the invoice half of a classification result. Amount stays
// nil when no monetary figure could be extracted.
type InvoiceStub struct {
	Number  string    `json:"number"`
	Subject string    `json:"subject"`
	Amount  *float64  `json:"amount,omitempty"`
	Date    time.Time `json:"date"`
}

// Candidate pairs a supplier candidate with its invoice stub.
type Candidate struct {
	Supplier SupplierCandidate `json:"supplier"`
	Invoice  InvoiceStub       `json:"invoice"`
	Record   Record            `json:"record"`
}

// DefaultCategory is assigned when no keyword rule matches.
const DefaultCategory = "general"

// Classifier applies the fingerprint registry, the keyword-to-category table,
// and the addressed-to-entity patterns. All methods are pure and never fail;
// malformed input degrades to empty defaults.
type Classifier struct {
	fingerprints []config.SupplierFingerprint
	categories   []config.CategoryRule
	entityTerms  []string
	amountRe     *regexp.Regexp
	invoiceWords []string
}

// New builds a classifier. Empty registry or category tables fall back to
// built-in defaults; entity terms come from the entity config.
func New(cfg config.ClassifyConfig, entity config.EntityConfig) *Classifier {
	c := &Classifier{
		fingerprints: cfg.Suppliers,
		categories:   cfg.Categories,
		amountRe:     amountPattern,
		invoiceWords: invoiceLexicon,
	}
	if len(c.categories) == 0 {
		c.categories = defaultCategories
	}
	for _, term := range []string{entity.LegalName, entity.TradeName, entity.Street, entity.PostalCode} {
		if t := strings.TrimSpace(strings.ToLower(term)); t != "" {
			c.entityTerms = append(c.entityTerms, t)
		}
	}
	for _, alias := range entity.Aliases {
		if t := strings.TrimSpace(strings.ToLower(alias)); t != "" {
			c.entityTerms = append(c.entityTerms, t)
		}
	}
	return c
}

var (
	// A number next to a currency marker, either side. "Facture 123.45€",
	// "Invoice $ 99", "Total: EUR 1 234,56" all match.
	amountPattern = regexp.MustCompile(`(?i)(\d+(?:[ \x{202f}]\d{3})*(?:[.,]\d{1,2})?)\s*(?:€|eur\b|euros?\b)|(?:€|\$|£|usd\b|eur\b)\s*(\d+(?:[ \x{202f}]\d{3})*(?:[.,]\d{1,2})?)`)

	invoiceLexicon = []string{
		"facture", "invoice", "commande", "order", "reçu", "receipt",
		"bon de livraison", "livraison", "paiement", "payment",
	}

	defaultCategories = []config.CategoryRule{
		{Keywords: []string{"packaging", "emballage", "carton", "étiquette", "label"}, Category: "packaging"},
		{Keywords: []string{"transport", "livraison", "shipping", "colis", "fret", "carrier"}, Category: "logistics"},
		{Keywords: []string{"matière", "ingrédient", "raw", "fournitures", "supplies"}, Category: "raw-materials"},
		{Keywords: []string{"marketing", "pub", "ads", "campagne", "newsletter"}, Category: "marketing"},
		{Keywords: []string{"comptab", "accounting", "banque", "bank", "assurance"}, Category: "services"},
	}
)

// ExtractSupplierFromEmail derives a candidate supplier and invoice stub from
// one record. ok is false only when the record carries no usable sender.
func (c *Classifier) ExtractSupplierFromEmail(rec Record) (Candidate, bool) {
	domain := DomainOf(rec.From)
	display := displayName(rec.From)
	if domain == "" && display == "" {
		return Candidate{}, false
	}

	cand := Candidate{Record: rec}
	cand.Supplier.Domain = domain

	if fp := c.lookupFingerprint(rec.From, domain); fp != nil {
		cand.Supplier.Known = true
		cand.Supplier.Name = fp.Name
		cand.Supplier.Category = fp.Category
		cand.Supplier.Notes = fp.Notes
	} else {
		cand.Supplier.Name = display
		if cand.Supplier.Name == "" {
			cand.Supplier.Name = firstLabel(domain)
		}
		cand.Supplier.Category = c.categorize(rec.Subject + " " + domain + " " + rec.Body)
	}

	cand.Invoice = InvoiceStub{
		Number:  rec.ID,
		Subject: rec.Subject,
		Date:    rec.Date,
		Amount:  c.ExtractAmount(rec.Subject),
	}
	return cand, true
}

// ExtractAmount pulls a currency-adjacent monetary value out of text.
// Returns nil rather than erroring when no amount is present.
func (c *Classifier) ExtractAmount(text string) *float64 {
	m := c.amountRe.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	raw := m[1]
	if raw == "" {
		raw = m[2]
	}
	raw = strings.NewReplacer(" ", "", " ", "", ",", ".").Replace(raw)
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	return &v
}

func (c *Classifier) lookupFingerprint(from, domain string) *config.SupplierFingerprint {
	lowFrom := strings.ToLower(from)
	for i := range c.fingerprints {
		fp := &c.fingerprints[i]
		if fp.Domain != "" && strings.EqualFold(fp.Domain, domain) {
			return fp
		}
		if fp.Match != "" && strings.Contains(lowFrom, strings.ToLower(fp.Match)) {
			return fp
		}
	}
	return nil
}

// categorize scans text against the keyword table. First matching rule wins.
func (c *Classifier) categorize(text string) string {
	lower := strings.ToLower(text)
	for _, rule := range c.categories {
		for _, kw := range rule.Keywords {
			if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
				return rule.Category
			}
		}
	}
	return DefaultCategory
}

// DomainOf extracts the sender domain from an address like
// "Acme <billing@acme.fr>" or "billing@acme.fr".
func DomainOf(from string) string {
	addr := from
	if i := strings.Index(addr, "<"); i >= 0 {
		addr = addr[i+1:]
		if j := strings.Index(addr, ">"); j >= 0 {
			addr = addr[:j]
		}
	}
	if i := strings.LastIndex(addr, "@"); i >= 0 {
		return strings.ToLower(strings.TrimSpace(addr[i+1:]))
	}
	return ""
}

// displayName returns the text before "<" in a From header, if any.
func displayName(from string) string {
	if i := strings.Index(from, "<"); i > 0 {
		return strings.Trim(strings.TrimSpace(from[:i]), `"`)
	}
	return ""
}

// firstLabel turns "acme.fr" into "Acme".
func firstLabel(domain string) string {
	label := domain
	if i := strings.Index(label, "."); i > 0 {
		label = label[:i]
	}
	if label == "" {
		return ""
	}
	return strings.ToUpper(label[:1]) + label[1:]
}
