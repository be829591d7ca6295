package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/OpsPulse/opspulse/internal/config"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		printHeader("🏷️ OpsPulse Version")
		fmt.Printf("Version: %s\n", version)
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show system status",
	Run: func(cmd *cobra.Command, args []string) {
		printHeader("📊 OpsPulse Status")
		fmt.Printf("Version: %s\n", version)

		if configPath, err := config.ConfigPath(); err == nil {
			if _, statErr := os.Stat(configPath); statErr == nil {
				fmt.Println("Config:   ✓ Found (" + configPath + ")")
			} else {
				fmt.Println("Config:   ✗ Not found (defaults in effect)")
			}
		}

		cfg, err := config.Load()
		if err != nil {
			fmt.Println("Config:   ? Unable to load:", err)
			return
		}

		if cfg.Store.Path != "" {
			if _, err := os.Stat(cfg.Store.Path); err == nil {
				fmt.Println("Store:    ✓ " + cfg.Store.Path)
			} else {
				fmt.Println("Store:    ✗ Configured but missing (" + cfg.Store.Path + ")")
			}
		} else {
			fmt.Println("Store:    ✗ Not configured (ledger tier disabled)")
		}

		if cfg.Primary.BaseURL != "" {
			fmt.Println("Primary:  ✓ " + cfg.Primary.BaseURL)
		} else {
			fmt.Println("Primary:  ✗ Not configured (online channel falls back)")
		}

		if cfg.Ingest.Enabled {
			fmt.Printf("Ingest:   ✓ Kafka %s topic %s\n", cfg.Ingest.KafkaBrokers, cfg.Ingest.Topic)
		} else {
			fmt.Println("Ingest:   ✗ Disabled")
		}

		if cfg.Notify.SlackToken != "" {
			fmt.Println("Slack:    ✓ Configured")
		} else {
			fmt.Println("Slack:    ✗ Not configured")
		}

		fmt.Println("Status:   Ready")
	},
}
