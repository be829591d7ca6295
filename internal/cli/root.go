package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	// version can be overridden at build time via:
	// go build -ldflags "-X github.com/OpsPulse/opspulse/internal/cli.version=1.2.3"
	version = "0.4.1"
	logo    = "\n" +
		"   ___              ____        _\n" +
		"  / _ \\ _ __  ___  |  _ \\ _   _| |___  ___\n" +
		" | | | | '_ \\/ __| | |_) | | | | / __|/ _ \\\n" +
		" | |_| | |_) \\__ \\ |  __/| |_| | \\__ \\  __/\n" +
		"  \\___/| .__/|___/ |_|    \\__,_|_|___/\\___|\n" +
		"       |_|\n"
)

var rootCmd = &cobra.Command{
	Use:   "opspulse",
	Short: "OpsPulse - Retail back-office operations engine",
	Long:  color.CyanString(logo) + "\nReconciles revenue metrics, links supplier records, classifies correspondence, and generates agent tasks.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func printHeader(title string) {
	fmt.Println(color.CyanString(logo))
	if title != "" {
		fmt.Println(title)
		fmt.Println("─────────────────────")
	}
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(metricsCmd)
	rootCmd.AddCommand(tasksCmd)
	rootCmd.AddCommand(classifyCmd)
}
