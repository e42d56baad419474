package core

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/zax-lab/nascar-dfs-engine/pkg/reporting"
)

// OutputFormat selects how ProgressReporter renders run progress.
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
)

// ProgressReporter prints run lifecycle events to stdout in text or JSON,
// adapted from the teacher's dual-format live-test reporter.
type ProgressReporter struct {
	format OutputFormat
	logger *reporting.Logger
}

// NewProgressReporter creates a progress reporter.
func NewProgressReporter(format OutputFormat, logger *reporting.Logger) *ProgressReporter {
	return &ProgressReporter{format: format, logger: logger}
}

// RunSnapshot is the progress-reportable view of a run at a point in time.
type RunSnapshot struct {
	RunID     string    `json:"run_id"`
	Status    RunStatus `json:"status"`
	Phase     RunPhase  `json:"phase"`
	Progress  float64   `json:"progress"` // 0..1 within the current phase
	StartTime time.Time `json:"start_time"`
	Elapsed   time.Duration `json:"elapsed"`
}

// ReportSnapshot reports the current run state.
func (pr *ProgressReporter) ReportSnapshot(s RunSnapshot) {
	if pr.format == FormatJSON {
		data, err := json.Marshal(s)
		if err != nil {
			pr.logger.Error("failed to marshal run snapshot", "error", err)
			return
		}
		fmt.Println(string(data))
		return
	}

	fmt.Printf("[%s] run=%s phase=%s status=%s progress=%.0f%% elapsed=%s\n",
		time.Now().Format("15:04:05"), s.RunID, s.Phase, s.Status, s.Progress*100,
		s.Elapsed.Round(time.Second))
}

// ReportStateTransition reports a phase or status transition.
func (pr *ProgressReporter) ReportStateTransition(runID, from, to string) {
	if pr.format == FormatJSON {
		data, _ := json.Marshal(map[string]interface{}{
			"event":     "state_transition",
			"run_id":    runID,
			"from":      from,
			"to":        to,
			"timestamp": time.Now(),
		})
		fmt.Println(string(data))
		return
	}
	fmt.Printf("[STATE] run=%s %s -> %s\n", runID, from, to)
}

// ReportRunCompleted reports the terminal result of a run.
func (pr *ProgressReporter) ReportRunCompleted(result *RunResult) {
	if pr.format == FormatJSON {
		data, _ := json.Marshal(map[string]interface{}{
			"event":     "run_completed",
			"result":    result,
			"timestamp": time.Now(),
		})
		fmt.Println(string(data))
		return
	}
	pr.printTextSummary(result)
}

func (pr *ProgressReporter) printTextSummary(result *RunResult) {
	fmt.Printf("\n[RUN SUMMARY] %s\n", result.Status)
	fmt.Printf("  Run ID:   %s\n", result.RunID)
	fmt.Printf("  Duration: %s\n", result.Duration)
	fmt.Printf("  Lineups:  %d\n", result.LineupCount)
	if result.FailureReason != "" {
		fmt.Printf("  Failure:  %s\n", result.FailureReason)
	}
	fmt.Println()
}
