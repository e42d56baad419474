package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/zax-lab/nascar-dfs-engine/pkg/constraintspec"
	"github.com/zax-lab/nascar-dfs-engine/pkg/core"
	"github.com/zax-lab/nascar-dfs-engine/pkg/objective"
)

var submitCmd = &cobra.Command{
	Use:   "submit",
	Args:  cobra.NoArgs,
	Short: "Compile a slate and run a full portfolio generation",
	RunE:  runSubmit,
}

func init() {
	submitCmd.Flags().String("slate", "", "path to slate YAML file")
	submitCmd.Flags().Int64("seed", 0, "random seed (0 uses the configured default)")
	submitCmd.Flags().Int("scenarios", 0, "number of scenarios (0 uses the configured minimum)")
	submitCmd.Flags().Int("lineups", 20, "number of lineups to generate")
	submitCmd.Flags().String("objective", string(objective.KindCVaRUpside), "objective kind: cvar_upside, chance, expected_payout")
	submitCmd.Flags().Float64("tail-q", 0.01, "tail fraction q for cvar_upside/chance objectives")
	submitCmd.Flags().Int("overlap-cap", 4, "max shared drivers between any two lineups")
	submitCmd.Flags().String("format", "text", "output format (text, json)")
}

func runSubmit(cmd *cobra.Command, args []string) error {
	slatePath, _ := cmd.Flags().GetString("slate")
	if slatePath == "" {
		return fmt.Errorf("--slate flag is required")
	}
	seed, _ := cmd.Flags().GetInt64("seed")
	numScenarios, _ := cmd.Flags().GetInt("scenarios")
	numLineups, _ := cmd.Flags().GetInt("lineups")
	objectiveKind, _ := cmd.Flags().GetString("objective")
	tailQ, _ := cmd.Flags().GetFloat64("tail-q")
	overlapCap, _ := cmd.Flags().GetInt("overlap-cap")
	outputFormat, _ := cmd.Flags().GetString("format")

	data, err := os.ReadFile(slatePath)
	if err != nil {
		return fmt.Errorf("failed to read slate file: %w", err)
	}
	var slate constraintspec.SlateInput
	if err := yaml.Unmarshal(data, &slate); err != nil {
		return fmt.Errorf("failed to parse slate file: %w", err)
	}

	service, _, logger, err := newRuntime()
	if err != nil {
		return fmt.Errorf("failed to initialize engine: %w", err)
	}

	req := core.SubmitRequest{
		Slate:         slate,
		RandomSeed:    seed,
		NumScenarios:  numScenarios,
		ObjectiveKind: objective.Kind(objectiveKind),
		TailQ:         tailQ,
		PortfolioSize: numLineups,
		OverlapCapMax: overlapCap,
	}

	runID, err := service.SubmitRun(req)
	if err != nil {
		return fmt.Errorf("submit_run rejected the request: %w", err)
	}
	logger.Info("run submitted", "run_id", runID)

	reporter := core.NewProgressReporter(core.OutputFormat(outputFormat), logger)
	for {
		snap, err := service.GetStatus(runID)
		if err != nil {
			return fmt.Errorf("get_status failed: %w", err)
		}
		reporter.ReportSnapshot(snap)
		if snap.Status == core.StatusCompleted || snap.Status == core.StatusFailed || snap.Status == core.StatusCancelled {
			break
		}
		time.Sleep(500 * time.Millisecond)
	}

	result, err := service.GetResult(runID)
	if err != nil {
		return fmt.Errorf("get_result failed: %w", err)
	}
	reporter.ReportRunCompleted(result)

	if result.Status == core.StatusFailed {
		return fmt.Errorf("run failed: %s: %s", result.FailureReason, result.Message)
	}
	return nil
}
