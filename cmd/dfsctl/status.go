package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zax-lab/nascar-dfs-engine/pkg/core"
	"github.com/zax-lab/nascar-dfs-engine/pkg/reporting"
)

var statusCmd = &cobra.Command{
	Use:   "status <run_id>",
	Args:  cobra.ExactArgs(1),
	Short: "Report a run's persisted status",
	Long:  `Since dfsctl submit runs each submission to completion in-process, status reconstructs a best-effort get_status view from the artifacts submit persisted, rather than from live in-memory state.`,
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	runID := args[0]

	_, storage, _, err := newRuntime()
	if err != nil {
		return fmt.Errorf("failed to initialize engine: %w", err)
	}

	var diag core.RunDiagnostics
	hasDiag := storage.LoadArtifact(runID, reporting.ArtifactDiagnostics, &diag) == nil

	var pf interface{}
	hasPortfolio := storage.LoadArtifact(runID, reporting.ArtifactPortfolio, &pf) == nil

	status := core.StatusQueued
	switch {
	case hasPortfolio:
		status = core.StatusCompleted
	case hasDiag:
		status = core.StatusFailed
	}

	fmt.Printf("run_id=%s status=%s\n", runID, status)
	if hasDiag {
		fmt.Printf("  scenarios_drawn=%d scenarios_rejected=%d regime_resamples=%d\n",
			diag.ScenariosDrawn, diag.ScenariosRejected, diag.RegimeResamples)
		for _, e := range diag.Events {
			fmt.Printf("  [%s] %s: %s\n", e.Timestamp.Format("15:04:05"), e.Phase, e.Message)
		}
	}
	if !hasDiag && !hasPortfolio {
		fmt.Println("  no artifacts found for this run_id under the configured output_dir")
	}
	return nil
}
