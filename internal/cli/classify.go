package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/OpsPulse/opspulse/internal/classify"
	"github.com/OpsPulse/opspulse/internal/config"
)

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Classify a correspondence batch from a JSON file",
	RunE:  runClassify,
}

func init() {
	classifyCmd.Flags().String("file", "", "Path to a JSON array of correspondence records")
	classifyCmd.Flags().Bool("json", false, "Output machine-readable JSON")
}

func runClassify(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("file")
	asJSON, _ := cmd.Flags().GetBool("json")
	if path == "" {
		return fmt.Errorf("--file is required")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read batch: %w", err)
	}
	var records []classify.Record
	if err := json.Unmarshal(data, &records); err != nil {
		// Also accept the gateway's request envelope.
		var envelope struct {
			Records []classify.Record `json:"records"`
		}
		if err2 := json.Unmarshal(data, &envelope); err2 != nil {
			return fmt.Errorf("parse batch: %w", err)
		}
		records = envelope.Records
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	classifier := classify.New(cfg.Classify, cfg.Entity)
	candidates := classifier.FilterSupplierInvoices(records)
	summaries := classify.ConsolidateSuppliers(candidates)

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{"candidates": candidates, "suppliers": summaries})
	}

	printHeader("📬 OpsPulse Classify")
	fmt.Printf("Records: %d, accepted: %d, suppliers: %d\n\n", len(records), len(candidates), len(summaries))
	for _, s := range summaries {
		known := " "
		if s.Known {
			known = "✓"
		}
		fmt.Printf("%s %-30s %-14s invoices=%d total=%.2f last=%s\n",
			known, s.Name, s.Category, s.InvoiceCount, s.TotalAmount, s.LastInvoiceDate.Format("2006-01-02"))
	}
	return nil
}
