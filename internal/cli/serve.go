package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/OpsPulse/opspulse/internal/bus"
	"github.com/OpsPulse/opspulse/internal/classify"
	"github.com/OpsPulse/opspulse/internal/config"
	"github.com/OpsPulse/opspulse/internal/ingest"
	"github.com/OpsPulse/opspulse/internal/linking"
	"github.com/OpsPulse/opspulse/internal/metrics"
	"github.com/OpsPulse/opspulse/internal/notify"
	"github.com/OpsPulse/opspulse/internal/scheduler"
	"github.com/OpsPulse/opspulse/internal/store"
	"github.com/OpsPulse/opspulse/internal/taskgen"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP gateway, ingest pipeline, and scheduler",
	Run:   runServe,
}

var serveStartTime = time.Now()

func runServe(cmd *cobra.Command, args []string) {
	printHeader("🌐 OpsPulse Serve")

	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Config error: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 2. Open the entity store. An empty path is a valid degraded mode: the
	// ledger tier and all persistence-backed endpoints report unconfigured.
	var st *store.Store
	if cfg.Store.Path != "" {
		st, err = store.Open(cfg.Store.Path)
		if err != nil {
			fmt.Printf("Store error: %v\n", err)
			os.Exit(1)
		}
		defer st.Close()
	} else {
		slog.Warn("Store path not configured, running without persistence")
	}

	// 3. Core engines
	reconciler := buildReconciler(cfg, st)
	classifier := classify.New(cfg.Classify, cfg.Entity)
	var linker *linking.Linker
	if st != nil {
		linker = linking.New(st)
	} else {
		linker = linking.New(nil)
	}
	engine := taskgen.New(cfg.Agents)
	history := taskgen.NewHistory(cfg.Agents.HistoryCapacity)
	notifier := notify.NewSlackNotifier(cfg.Notify)

	// 4. Ingest pipeline (bus + processor + optional Kafka bridge)
	intake := bus.NewIntakeBus()
	if st != nil {
		processor := ingest.NewProcessor(intake, st, classifier, linker)
		go func() {
			if err := processor.Run(ctx); err != nil && ctx.Err() == nil {
				slog.Error("Processor stopped", "error", err)
			}
		}()
		if cfg.Ingest.Enabled {
			consumer := ingest.NewKafkaConsumer(cfg.Ingest.KafkaBrokers, cfg.Ingest.ConsumerGroup, cfg.Ingest.Topic)
			if err := consumer.Start(ctx); err != nil {
				slog.Error("Kafka consumer failed to start", "error", err)
			} else {
				defer consumer.Close()
				go func() {
					if err := processor.Bridge(ctx, consumer); err != nil && ctx.Err() == nil {
						slog.Error("Kafka bridge stopped", "error", err)
					}
				}()
			}
		}
	}

	// 5. Scheduler
	if cfg.Scheduler.Enabled {
		var recorder scheduler.RunRecorder
		if st != nil {
			recorder = st
		}
		sched := scheduler.New(cfg.Scheduler, recorder)
		registerJobs(sched, cfg, reconciler, engine, history, notifier, st)
		go func() {
			if err := sched.Run(ctx); err != nil && ctx.Err() == nil {
				slog.Error("Scheduler stopped", "error", err)
			}
		}()
	}

	// 6. HTTP gateway
	mux := buildGatewayMux(cfg, reconciler, classifier, linker, engine, history, intake, st)
	addr := cfg.Gateway.Addr
	if addr == "" {
		addr = ":8090"
	}
	go func() {
		slog.Info("Gateway listening", "addr", addr)
		if err := http.ListenAndServe(addr, mux); err != nil {
			fmt.Printf("Gateway error: %v\n", err)
			os.Exit(1)
		}
	}()

	fmt.Printf("OpsPulse serving on %s (store=%v, ingest=%v, scheduler=%v)\n",
		addr, st != nil, cfg.Ingest.Enabled, cfg.Scheduler.Enabled)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
	fmt.Println("\nShutting down...")
	cancel()
}

// buildReconciler wires the online channel (primary HTTP provider) and the
// physical-store channel (POS ledger) into a Reconciler.
func buildReconciler(cfg *config.Config, st *store.Store) *metrics.Reconciler {
	online := metrics.Channel{Name: "online"}
	if cfg.Primary.BaseURL != "" {
		online.Provider = metrics.NewHTTPProvider(cfg.Primary.BaseURL, cfg.Primary.Token, cfg.Primary.Timeout)
	}
	storeCh := metrics.Channel{Name: "store"}
	if st != nil {
		storeCh.Ledger = st
	}
	return &metrics.Reconciler{
		Online:        online,
		Store:         storeCh,
		MonthlyTarget: cfg.Objective.MonthlyTarget,
	}
}

// registerJobs installs the default scheduler jobs: the periodic
// reconcile-and-generate pass and the nightly ledger sweep.
func registerJobs(sched *scheduler.Scheduler, cfg *config.Config, rec *metrics.Reconciler, engine *taskgen.Engine, history *taskgen.History, notifier *notify.SlackNotifier, st *store.Store) {
	if expr, err := scheduler.ParseCron(cfg.Scheduler.ReconcileCron); err != nil {
		slog.Error("Invalid reconcile cron", "expr", cfg.Scheduler.ReconcileCron, "error", err)
	} else {
		sched.Register(&scheduler.Job{
			Name: "reconcile",
			Cron: expr,
			Run: func(ctx context.Context) error {
				snap := rec.Snapshot(ctx, time.Now())
				tasks := engine.AllTasks(snap)
				history.AddAll(tasks)
				notifier.NotifyTasks(ctx, tasks)
				slog.Info("Reconcile pass complete",
					"online_source", snap.Online.Source,
					"store_source", snap.Store.Source,
					"tasks", len(tasks))
				return nil
			},
		})
	}

	if st == nil {
		return
	}
	if expr, err := scheduler.ParseCron(cfg.Scheduler.SweepCron); err != nil {
		slog.Error("Invalid sweep cron", "expr", cfg.Scheduler.SweepCron, "error", err)
	} else {
		sched.Register(&scheduler.Job{
			Name: "ledger-sweep",
			Cron: expr,
			Run: func(ctx context.Context) error {
				issues, err := st.CheckLedger()
				if err != nil {
					return err
				}
				if issues.NegativeTotals > 0 || issues.MalformedDates > 0 {
					slog.Warn("Ledger sweep found issues",
						"negative_totals", issues.NegativeTotals,
						"malformed_dates", issues.MalformedDates)
				} else {
					slog.Info("Ledger sweep clean")
				}
				return nil
			},
		})
	}
}

// buildGatewayMux assembles the JSON API. Handlers are inline; read paths
// degrade rather than fail, write paths surface errors.
func buildGatewayMux(cfg *config.Config, rec *metrics.Reconciler, classifier *classify.Classifier, linker *linking.Linker, engine *taskgen.Engine, history *taskgen.History, intake *bus.IntakeBus, st *store.Store) *http.ServeMux {
	mux := http.NewServeMux()

	writeJSON := func(w http.ResponseWriter, status int, payload any) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(payload)
	}
	writeError := func(w http.ResponseWriter, status int, msg string) {
		writeJSON(w, status, map[string]any{"error": msg})
	}

	// requireAuth enforces the optional bearer token. The health check stays
	// open.
	requireAuth := func(w http.ResponseWriter, r *http.Request) bool {
		if cfg.Gateway.AuthToken == "" {
			return true
		}
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if token != cfg.Gateway.AuthToken {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return false
		}
		return true
	}

	requireStore := func(w http.ResponseWriter) bool {
		if st == nil {
			writeError(w, http.StatusServiceUnavailable, "store not configured")
			return false
		}
		return true
	}

	// API: Status (unauthenticated health check)
	mux.HandleFunc("/api/v1/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"version":           version,
			"uptime_seconds":    int(time.Since(serveStartTime).Seconds()),
			"store_configured":  st != nil,
			"ingest_enabled":    cfg.Ingest.Enabled,
			"scheduler_enabled": cfg.Scheduler.Enabled,
		})
	})

	// API: Reconciled metrics snapshot. Tier failures never surface as 5xx;
	// a degraded snapshot carries its source tags instead.
	mux.HandleFunc("/api/v1/metrics", func(w http.ResponseWriter, r *http.Request) {
		if !requireAuth(w, r) {
			return
		}
		anchor := time.Now()
		if v := r.URL.Query().Get("days"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				anchor = anchor.AddDate(0, 0, -n)
			}
		}
		writeJSON(w, http.StatusOK, rec.Snapshot(r.Context(), anchor))
	})

	// API: Generated tasks + bounded history
	mux.HandleFunc("/api/v1/tasks", func(w http.ResponseWriter, r *http.Request) {
		if !requireAuth(w, r) {
			return
		}
		switch r.Method {
		case http.MethodGet:
			snap := rec.Snapshot(r.Context(), time.Now())
			agent := r.URL.Query().Get("agent")
			var tasks []taskgen.Task
			if agent != "" {
				tasks = engine.TasksForAgent(agent, snap)
			} else {
				tasks = engine.AllTasks(snap)
			}
			hist := history.List()
			if v := r.URL.Query().Get("limit"); v != "" {
				if n, err := strconv.Atoi(v); err == nil && n >= 0 && n < len(hist) {
					hist = hist[:n]
				}
			}
			writeJSON(w, http.StatusOK, map[string]any{"tasks": tasks, "history": hist})
		case http.MethodPost:
			var req struct {
				AgentID     string `json:"agent_id"`
				Title       string `json:"title"`
				Description string `json:"description"`
				Priority    string `json:"priority"`
				Category    string `json:"category"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, "invalid json")
				return
			}
			if strings.TrimSpace(req.Title) == "" {
				writeError(w, http.StatusBadRequest, "title is required")
				return
			}
			if req.Priority == "" {
				req.Priority = taskgen.PriorityMedium
			}
			now := time.Now()
			task := taskgen.Task{
				ID:          uuid.NewString(),
				AgentID:     req.AgentID,
				Title:       req.Title,
				Description: req.Description,
				Priority:    req.Priority,
				Status:      taskgen.StatusPending,
				Category:    req.Category,
				CreatedAt:   now,
				UpdatedAt:   now,
			}
			history.Add(task)
			writeJSON(w, http.StatusCreated, task)
		default:
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
	})

	// API: Task status transition
	mux.HandleFunc("/api/v1/tasks/", func(w http.ResponseWriter, r *http.Request) {
		if !requireAuth(w, r) {
			return
		}
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		rest := strings.TrimPrefix(r.URL.Path, "/api/v1/tasks/")
		id, ok := strings.CutSuffix(rest, "/status")
		if !ok || id == "" {
			writeError(w, http.StatusNotFound, "not found")
			return
		}
		var req struct {
			Status string `json:"status"`
			Result string `json:"result"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json")
			return
		}
		updated, err := history.UpdateStatus(id, req.Status, req.Result)
		if err != nil {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"updated": updated})
	})

	// API: Link an unlinked invoice or shipment (best effort)
	mux.HandleFunc("/api/v1/link", func(w http.ResponseWriter, r *http.Request) {
		if !requireAuth(w, r) || !requireStore(w) {
			return
		}
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		var req struct {
			Type string `json:"type"`
			ID   int64  `json:"id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json")
			return
		}
		switch req.Type {
		case "invoice":
			inv, err := st.GetInvoice(req.ID)
			if err != nil {
				writeError(w, http.StatusInternalServerError, err.Error())
				return
			}
			if inv == nil {
				writeError(w, http.StatusNotFound, "invoice not found")
				return
			}
			linked := linker.LinkInvoice(*inv)
			if linked.SupplierID != inv.SupplierID {
				if err := st.SaveInvoiceLink(linked.ID, linked.SupplierID, false); err != nil {
					writeError(w, http.StatusInternalServerError, err.Error())
					return
				}
			}
			writeJSON(w, http.StatusOK, linked)
		case "shipment":
			sh, err := st.GetShipment(req.ID)
			if err != nil {
				writeError(w, http.StatusInternalServerError, err.Error())
				return
			}
			if sh == nil {
				writeError(w, http.StatusNotFound, "shipment not found")
				return
			}
			linked := linker.LinkShipment(*sh)
			if linked.SupplierID != sh.SupplierID {
				if err := st.SaveShipmentLink(linked.ID, linked.SupplierID); err != nil {
					writeError(w, http.StatusInternalServerError, err.Error())
					return
				}
			}
			writeJSON(w, http.StatusOK, linked)
		default:
			writeError(w, http.StatusBadRequest, "type must be invoice or shipment")
		}
	})

	// API: Classify a correspondence batch. Accepted records also feed the
	// intake bus so the processor persists supplier stubs + invoice drafts.
	mux.HandleFunc("/api/v1/classify", func(w http.ResponseWriter, r *http.Request) {
		if !requireAuth(w, r) {
			return
		}
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		var req struct {
			Records []classify.Record `json:"records"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json")
			return
		}
		candidates := classifier.FilterSupplierInvoices(req.Records)
		if st != nil {
			for _, cand := range candidates {
				intake.Publish(&bus.InboundRecord{Source: "http", Record: cand.Record})
			}
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"candidates": candidates,
			"suppliers":  classify.ConsolidateSuppliers(candidates),
		})
	})

	// API: Suppliers (list + create)
	mux.HandleFunc("/api/v1/suppliers", func(w http.ResponseWriter, r *http.Request) {
		if !requireAuth(w, r) || !requireStore(w) {
			return
		}
		switch r.Method {
		case http.MethodGet:
			suppliers, err := st.ListSuppliers()
			if err != nil {
				writeError(w, http.StatusInternalServerError, err.Error())
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"suppliers": suppliers})
		case http.MethodPost:
			var sup store.Supplier
			if err := json.NewDecoder(r.Body).Decode(&sup); err != nil {
				writeError(w, http.StatusBadRequest, "invalid json")
				return
			}
			created, err := st.CreateSupplier(&sup)
			if err != nil {
				writeError(w, http.StatusInternalServerError, err.Error())
				return
			}
			writeJSON(w, http.StatusCreated, created)
		default:
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
	})

	// API: Invoices (list)
	mux.HandleFunc("/api/v1/invoices", func(w http.ResponseWriter, r *http.Request) {
		if !requireAuth(w, r) || !requireStore(w) {
			return
		}
		limit := queryInt(r, "limit", 100)
		invoices, err := st.ListInvoices(r.URL.Query().Get("status"), r.URL.Query().Get("supplier"), limit)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"invoices": invoices})
	})

	// API: Shipments (list)
	mux.HandleFunc("/api/v1/shipments", func(w http.ResponseWriter, r *http.Request) {
		if !requireAuth(w, r) || !requireStore(w) {
			return
		}
		limit := queryInt(r, "limit", 100)
		shipments, err := st.ListShipments(r.URL.Query().Get("status"), limit)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"shipments": shipments})
	})

	// API: Record a physical-store sale (feeds the ledger tier)
	mux.HandleFunc("/api/v1/pos/sales", func(w http.ResponseWriter, r *http.Request) {
		if !requireAuth(w, r) || !requireStore(w) {
			return
		}
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		var req struct {
			SaleDate  string  `json:"sale_date"`
			Total     float64 `json:"total"`
			Reference string  `json:"reference"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json")
			return
		}
		if req.SaleDate == "" {
			req.SaleDate = time.Now().Format("2006-01-02")
		}
		if _, err := time.Parse("2006-01-02", req.SaleDate); err != nil {
			writeError(w, http.StatusBadRequest, "sale_date must be YYYY-MM-DD")
			return
		}
		sale, err := st.RecordPOSSale(req.SaleDate, req.Total, req.Reference)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusCreated, sale)
	})

	return mux
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
