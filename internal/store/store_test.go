package store

import (
	"path/filepath"
	"testing"
	"time"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSupplierIDDeterministicSlug(t *testing.T) {
	tests := []struct{ in, want string }{
		{"nordkarton.de", "nordkarton-de"},
		{"NordKarton GmbH", "nordkarton-gmbh"},
		{"  Éco Pack!  ", "co-pack"},
		{"", ""},
	}
	for _, tc := range tests {
		if got := SupplierID(tc.in); got != tc.want {
			t.Errorf("SupplierID(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestCreateSupplierDerivesID(t *testing.T) {
	s := testStore(t)
	sup, err := s.CreateSupplier(&Supplier{Name: "NordKarton", Email: "billing@nordkarton.de"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if sup.ID != "nordkarton-de" {
		t.Errorf("expected id from email domain, got %q", sup.ID)
	}
	if sup.Status != SupplierPending {
		t.Errorf("expected default pending status, got %q", sup.Status)
	}

	// Same key re-detected: create would violate the primary key, upsert is a
	// refresh.
	again, err := s.UpsertSupplier(&Supplier{ID: "nordkarton-de", Name: "NordKarton", Notes: "updated"})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if !again.CreatedAt.Equal(sup.CreatedAt) {
		t.Error("upsert must preserve created_at")
	}
	if again.Notes != "updated" {
		t.Errorf("upsert should refresh notes, got %q", again.Notes)
	}

	all, err := s.ListSuppliers()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected 1 supplier after upsert, got %d", len(all))
	}
}

func TestGetSupplierAbsent(t *testing.T) {
	s := testStore(t)
	sup, err := s.GetSupplier("ghost")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if sup != nil {
		t.Errorf("expected nil for absent supplier, got %+v", sup)
	}
}

func TestDeleteSupplierUnlinksDependents(t *testing.T) {
	s := testStore(t)
	if _, err := s.CreateSupplier(&Supplier{ID: "belpack", Name: "BelPack"}); err != nil {
		t.Fatalf("create supplier: %v", err)
	}
	inv, err := s.CreateInvoice(&Invoice{Number: "F-1", SupplierID: "belpack", Amount: 10})
	if err != nil {
		t.Fatalf("create invoice: %v", err)
	}
	if err := s.DeleteSupplier("belpack"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	got, err := s.GetInvoice(inv.ID)
	if err != nil {
		t.Fatalf("get invoice: %v", err)
	}
	if got.SupplierID != "" {
		t.Errorf("invoice should be unlinked, got %q", got.SupplierID)
	}
}

func TestInvoiceLifecycle(t *testing.T) {
	s := testStore(t)
	if _, err := s.CreateSupplier(&Supplier{ID: "belpack", Name: "BelPack"}); err != nil {
		t.Fatalf("create supplier: %v", err)
	}
	inv, err := s.CreateInvoice(&Invoice{
		Number:       "F-2231",
		SupplierName: "BelPack",
		Amount:       240.80,
		Source:       InvoiceSourceMail,
		IssuedAt:     time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		Items: []InvoiceItem{
			{Description: "Cartons simple cannelure", Quantity: 200, UnitPrice: 1.204},
		},
	})
	if err != nil {
		t.Fatalf("create invoice: %v", err)
	}
	if inv.Status != InvoiceDraft {
		t.Errorf("expected default draft status, got %q", inv.Status)
	}
	if len(inv.Items) != 1 {
		t.Fatalf("expected 1 line item, got %d", len(inv.Items))
	}

	if err := s.SaveInvoiceLink(inv.ID, "belpack", false); err != nil {
		t.Fatalf("link: %v", err)
	}
	if err := s.UpdateInvoiceStatus(inv.ID, InvoicePaid, false); err != nil {
		t.Fatalf("mark paid: %v", err)
	}

	// Paid invoices are immutable without the admin override.
	if err := s.SaveInvoiceLink(inv.ID, "belpack", false); err == nil {
		t.Error("expected paid invoice to reject relink")
	}
	if err := s.UpdateInvoiceStatus(inv.ID, InvoiceOverdue, false); err == nil {
		t.Error("expected paid invoice to reject status change")
	}
	if err := s.UpdateInvoiceStatus(inv.ID, InvoicePending, true); err != nil {
		t.Errorf("admin override should pass: %v", err)
	}
}

func TestSaveInvoiceLinkValidatesSupplier(t *testing.T) {
	s := testStore(t)
	inv, err := s.CreateInvoice(&Invoice{Number: "F-3"})
	if err != nil {
		t.Fatalf("create invoice: %v", err)
	}
	if err := s.SaveInvoiceLink(inv.ID, "ghost", false); err == nil {
		t.Error("expected unknown supplier to be rejected")
	}
}

func TestListInvoicesFilters(t *testing.T) {
	s := testStore(t)
	if _, err := s.CreateSupplier(&Supplier{ID: "belpack", Name: "BelPack"}); err != nil {
		t.Fatalf("create supplier: %v", err)
	}
	if _, err := s.CreateInvoice(&Invoice{Number: "A", SupplierID: "belpack", Status: InvoicePending}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.CreateInvoice(&Invoice{Number: "B", Status: InvoiceDraft}); err != nil {
		t.Fatalf("create: %v", err)
	}

	pending, err := s.ListInvoices(InvoicePending, "", 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(pending) != 1 || pending[0].Number != "A" {
		t.Errorf("status filter: got %+v", pending)
	}

	bySupplier, err := s.ListInvoices("", "belpack", 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(bySupplier) != 1 || bySupplier[0].Number != "A" {
		t.Errorf("supplier filter: got %+v", bySupplier)
	}
}

func TestShipmentEventsAdvanceStatus(t *testing.T) {
	s := testStore(t)
	sh, err := s.CreateShipment(&Shipment{TrackingNumber: "TRK-1", Origin: "Hamburg"})
	if err != nil {
		t.Fatalf("create shipment: %v", err)
	}
	if sh.Status != ShipmentPending {
		t.Errorf("expected default pending, got %q", sh.Status)
	}
	if len(sh.Events) != 1 {
		t.Fatalf("expected registration event, got %d", len(sh.Events))
	}

	if err := s.AddShipmentEvent(sh.ID, ShipmentInTransit, "Hamburg", "picked up", time.Time{}); err != nil {
		t.Fatalf("event: %v", err)
	}
	if err := s.AddShipmentEvent(sh.ID, ShipmentDelivered, "Paris", "left at door", time.Time{}); err != nil {
		t.Fatalf("event: %v", err)
	}

	got, err := s.GetShipment(sh.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != ShipmentDelivered {
		t.Errorf("expected delivered, got %q", got.Status)
	}
	if len(got.Events) != 3 {
		t.Errorf("expected 3 events, got %d", len(got.Events))
	}

	// Delivered is terminal.
	if err := s.AddShipmentEvent(sh.ID, ShipmentInTransit, "", "", time.Time{}); err == nil {
		t.Error("expected terminal shipment to reject further events")
	}
}

func TestLedgerAggregates(t *testing.T) {
	s := testStore(t)
	sales := []struct {
		date  string
		total float64
	}{
		{"2026-03-10", 45.50},
		{"2026-03-10", 40.00},
		{"2026-03-09", 30.00},
		{"2026-03-01", 100.00},
	}
	for _, sale := range sales {
		if _, err := s.RecordPOSSale(sale.date, sale.total, ""); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	today, err := s.SumSalesByDate("2026-03-10")
	if err != nil {
		t.Fatalf("sum by date: %v", err)
	}
	if today.Total != 85.50 || today.Count != 2 {
		t.Errorf("today: got %+v", today)
	}

	empty, err := s.SumSalesByDate("2026-03-08")
	if err != nil {
		t.Fatalf("sum by date: %v", err)
	}
	if empty.Total != 0 || empty.Count != 0 {
		t.Errorf("empty bucket should be zero, got %+v", empty)
	}

	week, err := s.SumSalesSince("2026-03-03")
	if err != nil {
		t.Fatalf("sum since: %v", err)
	}
	if week.Total != 115.50 || week.Count != 3 {
		t.Errorf("week: got %+v", week)
	}
}

func TestCheckLedgerFlagsBadRows(t *testing.T) {
	s := testStore(t)
	if _, err := s.RecordPOSSale("2026-03-10", 10, ""); err != nil {
		t.Fatalf("record: %v", err)
	}
	if _, err := s.RecordPOSSale("10/03/2026", 20, ""); err != nil {
		t.Fatalf("record: %v", err)
	}
	if _, err := s.RecordPOSSale("2026-03-11", -5, ""); err != nil {
		t.Fatalf("record: %v", err)
	}

	issues, err := s.CheckLedger()
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if issues.MalformedDates != 1 {
		t.Errorf("expected 1 malformed date, got %d", issues.MalformedDates)
	}
	if issues.NegativeTotals != 1 {
		t.Errorf("expected 1 negative total, got %d", issues.NegativeTotals)
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	s := testStore(t)
	if err := s.SetSetting("scheduler.reconcile.last_run", "completed 2026-03-10T12:00:00Z"); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := s.GetSetting("scheduler.reconcile.last_run")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != "completed 2026-03-10T12:00:00Z" {
		t.Errorf("round trip mismatch: %q", got)
	}
	if v, err := s.GetSetting("missing"); err != nil || v != "" {
		t.Errorf("missing key should be empty, got %q err=%v", v, err)
	}
}
