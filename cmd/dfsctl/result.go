package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zax-lab/nascar-dfs-engine/pkg/portfolio"
	"github.com/zax-lab/nascar-dfs-engine/pkg/reporting"
)

var resultCmd = &cobra.Command{
	Use:   "result <run_id>",
	Args:  cobra.ExactArgs(1),
	Short: "Print a completed run's portfolio result",
	RunE:  runResult,
}

func runResult(cmd *cobra.Command, args []string) error {
	runID := args[0]

	_, storage, _, err := newRuntime()
	if err != nil {
		return fmt.Errorf("failed to initialize engine: %w", err)
	}

	var pf portfolio.Portfolio
	if err := storage.LoadArtifact(runID, reporting.ArtifactPortfolio, &pf); err != nil {
		return fmt.Errorf("get_result failed: no completed portfolio for run_id %s: %w", runID, err)
	}

	if pf.Incomplete {
		fmt.Printf("portfolio_incomplete: %s (class=%s)\n", pf.StopReason, pf.StopClass)
	}
	for _, l := range pf.Lineups {
		fmt.Printf("lineup %d  objective=%.2f  salary=%d  drivers=%v\n", l.LineupIndex, l.ObjectiveValue, l.TotalSalary, l.DriverIDs)
	}
	return nil
}
