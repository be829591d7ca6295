package cli

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/OpsPulse/opspulse/internal/bus"
	"github.com/OpsPulse/opspulse/internal/classify"
	"github.com/OpsPulse/opspulse/internal/config"
	"github.com/OpsPulse/opspulse/internal/linking"
	"github.com/OpsPulse/opspulse/internal/store"
	"github.com/OpsPulse/opspulse/internal/taskgen"
)

type gatewayFixture struct {
	mux    *http.ServeMux
	cfg    *config.Config
	st     *store.Store
	intake *bus.IntakeBus
}

func newGatewayFixture(t *testing.T, withStore bool) *gatewayFixture {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Classify.Suppliers = []config.SupplierFingerprint{
		{Domain: "nordkarton.de", Name: "NordKarton", Category: "packaging"},
	}

	var st *store.Store
	if withStore {
		var err error
		st, err = store.Open(filepath.Join(t.TempDir(), "gateway.db"))
		if err != nil {
			t.Fatalf("store.Open: %v", err)
		}
		t.Cleanup(func() { st.Close() })
	}

	rec := buildReconciler(cfg, st)
	classifier := classify.New(cfg.Classify, cfg.Entity)
	linker := linking.New(nil)
	if st != nil {
		linker = linking.New(st)
	}
	engine := taskgen.New(cfg.Agents)
	history := taskgen.NewHistory(cfg.Agents.HistoryCapacity)
	intake := bus.NewIntakeBus()

	return &gatewayFixture{
		mux:    buildGatewayMux(cfg, rec, classifier, linker, engine, history, intake, st),
		cfg:    cfg,
		st:     st,
		intake: intake,
	}
}

func (f *gatewayFixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	if f.cfg.Gateway.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+f.cfg.Gateway.AuthToken)
	}
	w := httptest.NewRecorder()
	f.mux.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(dst); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestStatusEndpointStaysOpen(t *testing.T) {
	f := newGatewayFixture(t, true)
	f.cfg.Gateway.AuthToken = "secret"

	// No Authorization header on purpose.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
	w := httptest.NewRecorder()
	f.mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var resp map[string]any
	decodeBody(t, w, &resp)
	if resp["store_configured"] != true {
		t.Errorf("store_configured = %v, want true", resp["store_configured"])
	}
}

func TestBearerTokenGuardsAPI(t *testing.T) {
	f := newGatewayFixture(t, false)
	f.cfg.Gateway.AuthToken = "secret"

	req := httptest.NewRequest(http.MethodGet, "/api/v1/metrics", nil)
	w := httptest.NewRecorder()
	f.mux.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("without token = %d, want 401", w.Code)
	}

	if w := f.do(t, http.MethodGet, "/api/v1/metrics", ""); w.Code != http.StatusOK {
		t.Errorf("with token = %d, want 200", w.Code)
	}
}

func TestStoreEndpointsDegradeWithoutStore(t *testing.T) {
	f := newGatewayFixture(t, false)
	for _, path := range []string{"/api/v1/suppliers", "/api/v1/invoices", "/api/v1/shipments"} {
		if w := f.do(t, http.MethodGet, path, ""); w.Code != http.StatusServiceUnavailable {
			t.Errorf("%s = %d, want 503", path, w.Code)
		}
	}
}

func TestPOSSaleFeedsLedgerTier(t *testing.T) {
	f := newGatewayFixture(t, true)

	w := f.do(t, http.MethodPost, "/api/v1/pos/sales", `{"total": 42.50, "reference": "till-1"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("record sale = %d, want 201: %s", w.Code, w.Body.String())
	}

	w = f.do(t, http.MethodGet, "/api/v1/metrics", "")
	if w.Code != http.StatusOK {
		t.Fatalf("metrics = %d, want 200", w.Code)
	}
	var snap struct {
		Store struct {
			Today struct {
				Revenue      float64 `json:"revenue"`
				Transactions int     `json:"transactions"`
			} `json:"today"`
			Source string `json:"source"`
		} `json:"store"`
	}
	decodeBody(t, w, &snap)
	if snap.Store.Source != "ledger" {
		t.Errorf("store source = %q, want ledger", snap.Store.Source)
	}
	if snap.Store.Today.Revenue != 42.50 || snap.Store.Today.Transactions != 1 {
		t.Errorf("store today = %.2f/%d, want 42.50/1", snap.Store.Today.Revenue, snap.Store.Today.Transactions)
	}
}

func TestPOSSaleRejectsBadDate(t *testing.T) {
	f := newGatewayFixture(t, true)
	w := f.do(t, http.MethodPost, "/api/v1/pos/sales", `{"sale_date": "08/03/2026", "total": 10}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad date = %d, want 400", w.Code)
	}
}

func TestManualTaskLifecycle(t *testing.T) {
	f := newGatewayFixture(t, false)

	w := f.do(t, http.MethodPost, "/api/v1/tasks", `{"title": "Call the carrier", "agent_id": "logistics"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create task = %d, want 201: %s", w.Code, w.Body.String())
	}
	var created taskgen.Task
	decodeBody(t, w, &created)
	if created.ID == "" || created.Status != taskgen.StatusPending || created.Priority != taskgen.PriorityMedium {
		t.Fatalf("created task = %+v, want pending/medium with id", created)
	}

	w = f.do(t, http.MethodPost, "/api/v1/tasks/"+created.ID+"/status", `{"status": "in_progress"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("advance = %d, want 200: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Updated bool `json:"updated"`
	}
	decodeBody(t, w, &resp)
	if !resp.Updated {
		t.Error("advance to in_progress not applied")
	}

	// pending -> completed is not a legal jump once we reset on a fresh task.
	w = f.do(t, http.MethodPost, "/api/v1/tasks", `{"title": "Second task"}`)
	var second taskgen.Task
	decodeBody(t, w, &second)
	w = f.do(t, http.MethodPost, "/api/v1/tasks/"+second.ID+"/status", `{"status": "completed"}`)
	if w.Code != http.StatusConflict {
		t.Errorf("illegal transition = %d, want 409", w.Code)
	}

	// Unknown ids are a no-op, not an error.
	w = f.do(t, http.MethodPost, "/api/v1/tasks/no-such-task/status", `{"status": "in_progress"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("unknown id = %d, want 200", w.Code)
	}
	decodeBody(t, w, &resp)
	if resp.Updated {
		t.Error("unknown id reported updated=true")
	}
}

func TestTaskCreateRequiresTitle(t *testing.T) {
	f := newGatewayFixture(t, false)
	if w := f.do(t, http.MethodPost, "/api/v1/tasks", `{"agent_id": "sales"}`); w.Code != http.StatusBadRequest {
		t.Errorf("missing title = %d, want 400", w.Code)
	}
}

func TestClassifyEndpointFeedsIntake(t *testing.T) {
	f := newGatewayFixture(t, true)

	records := []classify.Record{
		{ID: "m-1", From: "billing@nordkarton.de", Subject: "Facture 2026-117 Total 123.45€", Date: time.Now()},
		{ID: "m-2", From: "noreply@spam.example", Subject: "You won a prize"},
	}
	body, _ := json.Marshal(map[string]any{"records": records})

	w := f.do(t, http.MethodPost, "/api/v1/classify", string(body))
	if w.Code != http.StatusOK {
		t.Fatalf("classify = %d, want 200: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Candidates []classify.Candidate       `json:"candidates"`
		Suppliers  []classify.SupplierSummary `json:"suppliers"`
	}
	decodeBody(t, w, &resp)
	if len(resp.Candidates) != 1 {
		t.Fatalf("candidates = %d, want 1", len(resp.Candidates))
	}
	if resp.Candidates[0].Supplier.Domain != "nordkarton.de" {
		t.Errorf("candidate domain = %q", resp.Candidates[0].Supplier.Domain)
	}
	if len(resp.Suppliers) != 1 || !resp.Suppliers[0].Known {
		t.Errorf("suppliers = %+v, want one known entry", resp.Suppliers)
	}
	if f.intake.Size() != 1 {
		t.Errorf("intake size = %d, want 1 accepted record published", f.intake.Size())
	}
}

func TestLinkEndpointRejectsUnknownType(t *testing.T) {
	f := newGatewayFixture(t, true)
	if w := f.do(t, http.MethodPost, "/api/v1/link", `{"type": "parcel", "id": 1}`); w.Code != http.StatusBadRequest {
		t.Errorf("unknown type = %d, want 400", w.Code)
	}
}

func TestSupplierCreateAndList(t *testing.T) {
	f := newGatewayFixture(t, true)

	w := f.do(t, http.MethodPost, "/api/v1/suppliers", `{"name": "NordKarton", "email": "billing@nordkarton.de"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create supplier = %d, want 201: %s", w.Code, w.Body.String())
	}
	var created store.Supplier
	decodeBody(t, w, &created)
	if created.ID == "" {
		t.Fatal("created supplier has no id")
	}

	w = f.do(t, http.MethodGet, "/api/v1/suppliers", "")
	if w.Code != http.StatusOK {
		t.Fatalf("list suppliers = %d, want 200", w.Code)
	}
	var list struct {
		Suppliers []store.Supplier `json:"suppliers"`
	}
	decodeBody(t, w, &list)
	if len(list.Suppliers) != 1 || list.Suppliers[0].ID != created.ID {
		t.Errorf("suppliers = %+v, want the created one", list.Suppliers)
	}
}
