package calibration

import (
	"bytes"
	"fmt"
	"os"
	"sort"
	"text/template"
	"time"

	"github.com/zax-lab/nascar-dfs-engine/pkg/constraintspec"
	"github.com/zax-lab/nascar-dfs-engine/pkg/kernel"
)

// Report is the input to GenerateReport: per-target metrics, joint-event
// results, an optional convergence check, and kernel rejection stats.
type Report struct {
	RunID           string
	GeneratedAt     time.Time
	TrackArchetype  constraintspec.TrackArchetype
	MetricsByTarget map[string]Metrics
	Events          map[string]EventResult
	Convergence     ConvergenceReport
	RejectionCounts map[kernel.ReasonCode]uint64
}

// GenerateReport renders a Markdown calibration report to outputPath. Only
// Markdown is produced — the teacher's formatter also emitted HTML and a
// degenerate JSON branch; neither fits spec.md §4.3's generate_report
// contract, which names Markdown specifically.
func GenerateReport(r Report, outputPath string) error {
	tmpl, err := template.New("calibration").Parse(reportTemplate)
	if err != nil {
		return fmt.Errorf("failed to parse report template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, toView(r)); err != nil {
		return fmt.Errorf("failed to execute report template: %w", err)
	}

	if err := os.WriteFile(outputPath, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write calibration report: %w", err)
	}

	return nil
}

type reportView struct {
	RunID           string
	GeneratedAt     string
	TrackArchetype  constraintspec.TrackArchetype
	Targets         []targetView
	Events          []eventView
	Convergence     ConvergenceReport
	Rejections      []rejectionView
	TotalRejections uint64
}

type targetView struct {
	Name string
	Metrics
}

type eventView struct {
	Name string
	EventResult
}

type rejectionView struct {
	Reason kernel.ReasonCode
	Count  uint64
}

func toView(r Report) reportView {
	v := reportView{
		RunID:          r.RunID,
		GeneratedAt:    r.GeneratedAt.Format("2006-01-02 15:04:05"),
		TrackArchetype: r.TrackArchetype,
		Convergence:    r.Convergence,
	}

	targetNames := make([]string, 0, len(r.MetricsByTarget))
	for name := range r.MetricsByTarget {
		targetNames = append(targetNames, name)
	}
	sort.Strings(targetNames)
	for _, name := range targetNames {
		v.Targets = append(v.Targets, targetView{Name: name, Metrics: r.MetricsByTarget[name]})
	}

	eventNames := make([]string, 0, len(r.Events))
	for name := range r.Events {
		eventNames = append(eventNames, name)
	}
	sort.Strings(eventNames)
	for _, name := range eventNames {
		v.Events = append(v.Events, eventView{Name: name, EventResult: r.Events[name]})
	}

	reasons := make([]kernel.ReasonCode, 0, len(r.RejectionCounts))
	for reason := range r.RejectionCounts {
		reasons = append(reasons, reason)
	}
	sort.Slice(reasons, func(i, j int) bool { return reasons[i] < reasons[j] })
	for _, reason := range reasons {
		count := r.RejectionCounts[reason]
		v.TotalRejections += count
		if reason == kernel.ReasonOK {
			continue
		}
		v.Rejections = append(v.Rejections, rejectionView{Reason: reason, Count: count})
	}

	return v
}

const reportTemplate = `# Calibration Report — {{.RunID}}

Generated: {{.GeneratedAt}}
{{- if .TrackArchetype}}
Track archetype: {{.TrackArchetype}}
{{- end}}

## Scoring-rule metrics by target

| Target | CRPS | Log score | Coverage 50% | Coverage 80% | Coverage 95% |
|---|---|---|---|---|---|
{{- range .Targets}}
| {{.Name}} | {{printf "%.4f" .CRPS}} | {{printf "%.4f" .LogScore}} | {{printf "%.3f" .Coverage50}} | {{printf "%.3f" .Coverage80}} | {{printf "%.3f" .Coverage95}} |
{{- end}}

## Joint event validation

| Event | Empirical | Reference | Calibration error |
|---|---|---|---|
{{- range .Events}}
| {{.Name}} | {{printf "%.4f" .EmpiricalFrequency}} | {{printf "%.4f" .ReferenceFrequency}} | {{printf "%.4f" .CalibrationError}} |
{{- end}}

## MCMC convergence

Method: {{.Convergence.CalibrationMethod}}
{{- if eq .Convergence.CalibrationMethod "mcmc"}}
R-hat: {{printf "%.4f" .Convergence.RHat}}
ESS: {{printf "%.1f" .Convergence.ESS}}
{{- end}}

## Kernel rejections

Total validations: {{.TotalRejections}}

| Reason | Count |
|---|---|
{{- range .Rejections}}
| {{.Reason}} | {{.Count}} |
{{- end}}
`
