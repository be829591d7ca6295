package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/OpsPulse/opspulse/internal/config"
	"github.com/OpsPulse/opspulse/internal/metrics"
	"github.com/OpsPulse/opspulse/internal/store"
)

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Print the reconciled revenue snapshot",
	RunE:  runMetrics,
}

func init() {
	metricsCmd.Flags().Bool("json", false, "Output machine-readable JSON")
	metricsCmd.Flags().Int("days", 0, "Anchor the snapshot N days in the past")
}

func runMetrics(cmd *cobra.Command, args []string) error {
	asJSON, _ := cmd.Flags().GetBool("json")
	days, _ := cmd.Flags().GetInt("days")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	var st *store.Store
	if cfg.Store.Path != "" {
		st, err = store.Open(cfg.Store.Path)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer st.Close()
	}

	rec := buildReconciler(cfg, st)
	anchor := time.Now()
	if days > 0 {
		anchor = anchor.AddDate(0, 0, -days)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	snap := rec.Snapshot(ctx, anchor)

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	}

	printHeader("📈 OpsPulse Metrics")
	fmt.Printf("Date: %s\n\n", snap.Date.Format("2006-01-02"))
	printChannel("Online", snap.Online)
	printChannel("Store", snap.Store)
	printChannel("Combined", snap.Combined)
	fmt.Printf("Objective: %.2f / %.2f (%d%%, %.2f remaining)\n",
		snap.Objective.Current, snap.Objective.Target, snap.Objective.Progress, snap.Objective.Remaining)
	return nil
}

func printChannel(name string, ch metrics.ChannelSnapshot) {
	sign := "+"
	if !ch.Evolution.IsPositive {
		sign = "-"
	}
	fmt.Printf("%s [%s]\n", name, ch.Source)
	fmt.Printf("  Today:     %.2f (%d tx)  %s%d%% vs same day last week\n",
		ch.Today.Revenue, ch.Today.Transactions, sign, ch.Evolution.Percent)
	fmt.Printf("  Yesterday: %.2f (%d tx)\n", ch.Yesterday.Revenue, ch.Yesterday.Transactions)
	fmt.Printf("  Week:      %.2f (%d tx)\n", ch.Week.Revenue, ch.Week.Transactions)
	fmt.Printf("  Month:     %.2f (%d tx)\n\n", ch.Month.Revenue, ch.Month.Transactions)
}
