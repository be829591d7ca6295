package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/OpsPulse/opspulse/internal/config"
	"github.com/OpsPulse/opspulse/internal/store"
	"github.com/OpsPulse/opspulse/internal/taskgen"
)

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "Generate prioritized agent tasks from the current snapshot",
	RunE:  runTasks,
}

func init() {
	tasksCmd.Flags().String("agent", "", "Restrict to one agent (analyst, merchandiser, bookkeeper, watchdog)")
	tasksCmd.Flags().Bool("json", false, "Output machine-readable JSON")
}

func runTasks(cmd *cobra.Command, args []string) error {
	agent, _ := cmd.Flags().GetString("agent")
	asJSON, _ := cmd.Flags().GetBool("json")

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
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	snap := rec.Snapshot(ctx, time.Now())

	engine := taskgen.New(cfg.Agents)
	var tasks []taskgen.Task
	if agent != "" {
		known := false
		for _, a := range engine.Agents() {
			if a.ID == agent {
				known = true
				break
			}
		}
		if !known {
			return fmt.Errorf("unknown agent %q", agent)
		}
		tasks = engine.TasksForAgent(agent, snap)
	} else {
		tasks = engine.AllTasks(snap)
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(tasks)
	}

	printHeader("📋 OpsPulse Tasks")
	if len(tasks) == 0 {
		fmt.Println("No tasks generated.")
		return nil
	}
	for i, t := range tasks {
		fmt.Printf("%d. [%s/%s] %s (%s)\n", i+1, t.AgentID, t.Priority, t.Title, t.Status)
		if t.Description != "" {
			fmt.Printf("   %s\n", t.Description)
		}
	}
	return nil
}
