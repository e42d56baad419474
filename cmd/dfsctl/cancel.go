package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var cancelCmd = &cobra.Command{
	Use:   "cancel <run_id>",
	Args:  cobra.ExactArgs(1),
	Short: "Request cooperative cancellation of a run",
	Long: `cancel_run only has an effect while the submitting process is still
alive: once dfsctl submit returns, the run has already reached a terminal
state in this single-process CLI deployment, so cancel always reports noop
here. A long-running Core API deployment would route this to the same
core.Service instance that owns the run's emergency.Controller.`,
	RunE: runCancel,
}

func runCancel(cmd *cobra.Command, args []string) error {
	runID := args[0]

	service, _, _, err := newRuntime()
	if err != nil {
		return fmt.Errorf("failed to initialize engine: %w", err)
	}

	result, err := service.CancelRun(runID)
	if err != nil {
		fmt.Printf("run_id=%s result=noop (%v)\n", runID, err)
		return nil
	}
	fmt.Printf("run_id=%s result=%s\n", runID, result)
	return nil
}
