package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/OpsPulse/opspulse/internal/bus"
	"github.com/OpsPulse/opspulse/internal/classify"
	"github.com/OpsPulse/opspulse/internal/linking"
	"github.com/OpsPulse/opspulse/internal/store"
)

// Processor consumes correspondence records from the intake bus, classifies
// them, merges supplier stubs into the entity store, and links the resulting
// invoice drafts.
type Processor struct {
	Bus        *bus.IntakeBus
	Store      *store.Store
	Classifier *classify.Classifier
	Linker     *linking.Linker
}

// NewProcessor wires a processor.
func NewProcessor(b *bus.IntakeBus, st *store.Store, cl *classify.Classifier, lk *linking.Linker) *Processor {
	return &Processor{Bus: b, Store: st, Classifier: cl, Linker: lk}
}

// Run consumes the intake bus until the context is cancelled. Classification
// is total; only persistence failures are logged as errors.
func (p *Processor) Run(ctx context.Context) error {
	for {
		rec, err := p.Bus.Consume(ctx)
		if err != nil {
			return err
		}
		if err := p.Process(rec.Record); err != nil {
			slog.Error("ingest: persist failed", "source", rec.Source, "record", rec.Record.ID, "error", err)
		}
	}
}

// Bridge decodes raw consumer messages into correspondence records and
// publishes them on the intake bus. Malformed payloads are dropped with a
// warning.
func (p *Processor) Bridge(ctx context.Context, consumer Consumer) error {
	if err := consumer.Start(ctx); err != nil {
		return fmt.Errorf("ingest: start consumer: %w", err)
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-consumer.Messages():
			if !ok {
				return nil
			}
			var rec classify.Record
			if err := json.Unmarshal(msg.Value, &rec); err != nil {
				slog.Warn("ingest: malformed correspondence payload", "topic", msg.Topic, "error", err)
				continue
			}
			p.Bus.Publish(&bus.InboundRecord{Source: "kafka", Record: rec})
		}
	}
}

// Process runs one record through the gate, merges the supplier stub, and
// persists a linked invoice draft. Records that do not pass the gate are
// skipped silently; that is expected traffic, not an error.
func (p *Processor) Process(rec classify.Record) error {
	if !p.Classifier.MatchesKnownSupplier(rec) &&
		!p.Classifier.AddressedToEntity(rec) &&
		!p.Classifier.LooksLikeInvoice(rec) {
		return nil
	}
	cand, ok := p.Classifier.ExtractSupplierFromEmail(rec)
	if !ok {
		return nil
	}

	key := cand.Supplier.Domain
	if key == "" {
		key = cand.Supplier.Name
	}
	sup := &store.Supplier{
		ID:     store.SupplierID(key),
		Name:   cand.Supplier.Name,
		Email:  rec.From,
		Status: store.SupplierPending,
		Notes:  cand.Supplier.Notes,
	}
	if cand.Supplier.Category != "" {
		sup.Categories = []string{cand.Supplier.Category}
	}
	if _, err := p.Store.UpsertSupplier(sup); err != nil {
		return fmt.Errorf("upsert supplier: %w", err)
	}

	inv := store.Invoice{
		Number:       cand.Invoice.Number,
		SupplierName: cand.Supplier.Name,
		Status:       store.InvoiceDraft,
		Source:       store.InvoiceSourceMail,
		IssuedAt:     orNow(cand.Invoice.Date),
	}
	if cand.Invoice.Amount != nil {
		inv.Amount = *cand.Invoice.Amount
	}
	created, err := p.Store.CreateInvoice(&inv)
	if err != nil {
		return fmt.Errorf("create invoice: %w", err)
	}

	linked := p.Linker.LinkInvoice(*created)
	if linked.SupplierID != "" {
		if err := p.Store.SaveInvoiceLink(created.ID, linked.SupplierID, false); err != nil {
			return fmt.Errorf("link invoice: %w", err)
		}
	}
	slog.Info("ingest: invoice drafted", "invoice", created.ID, "supplier", linked.SupplierID, "amount", inv.Amount)
	return nil
}

func orNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now()
	}
	return t
}
