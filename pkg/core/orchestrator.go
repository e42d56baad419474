package core

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/zax-lab/nascar-dfs-engine/pkg/config"
	"github.com/zax-lab/nascar-dfs-engine/pkg/constraintspec"
	"github.com/zax-lab/nascar-dfs-engine/pkg/emergency"
	"github.com/zax-lab/nascar-dfs-engine/pkg/kernel"
	"github.com/zax-lab/nascar-dfs-engine/pkg/objective"
	"github.com/zax-lab/nascar-dfs-engine/pkg/portfolio"
	"github.com/zax-lab/nascar-dfs-engine/pkg/reporting"
	"github.com/zax-lab/nascar-dfs-engine/pkg/scenario"
	"github.com/zax-lab/nascar-dfs-engine/pkg/scoring"
	"github.com/zax-lab/nascar-dfs-engine/pkg/solver"
)

// runRecord is one run's live, mutable state, visible to get_status/
// get_result/cancel_run while executeRun drives it forward on its own
// goroutine.
type runRecord struct {
	mu        sync.RWMutex
	runID     string
	status    RunStatus
	phase     RunPhase
	progress  float64
	startTime time.Time
	endTime   time.Time
	result    *RunResult
	diag      *RunDiagnostics
	cancel    *emergency.Controller
}

func (r *runRecord) snapshot() RunSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	elapsed := time.Since(r.startTime)
	if !r.endTime.IsZero() {
		elapsed = r.endTime.Sub(r.startTime)
	}
	return RunSnapshot{
		RunID:     r.runID,
		Status:    r.status,
		Phase:     r.phase,
		Progress:  r.progress,
		StartTime: r.startTime,
		Elapsed:   elapsed,
	}
}

func (r *runRecord) setPhase(phase RunPhase, progress float64) {
	r.mu.Lock()
	r.phase = phase
	r.progress = progress
	r.mu.Unlock()
}

func (r *runRecord) event(d *RunDiagnostics, phase RunPhase, msg string) {
	d.Events = append(d.Events, DiagnosticEvent{Timestamp: time.Now(), Phase: phase, Message: msg})
}

// Service is the Core API: it owns every in-flight and completed run this
// process knows about and wires CS/SE/TO/LS/PG/K together to execute one.
type Service struct {
	cfg         *config.Config
	storage     *reporting.Storage
	logger      *reporting.Logger
	metrics     *RunMetrics
	kernelInstr *kernel.Instrumentation
	progress    *ProgressReporter

	mu      sync.RWMutex
	runs    map[string]*runRecord
	counter uint64
}

// NewService wires a Core API service from its already-constructed
// collaborators.
func NewService(cfg *config.Config, storage *reporting.Storage, logger *reporting.Logger, metrics *RunMetrics, kernelInstr *kernel.Instrumentation) *Service {
	return &Service{
		cfg:         cfg,
		storage:     storage,
		logger:      logger,
		metrics:     metrics,
		kernelInstr: kernelInstr,
		progress:    NewProgressReporter(FormatText, logger),
		runs:        make(map[string]*runRecord),
	}
}

// SubmitRun validates the request, registers a queued run, and launches its
// execution in the background, returning immediately with the run_id.
func (s *Service) SubmitRun(req SubmitRequest) (string, error) {
	if err := validateSubmitRequest(req); err != nil {
		return "", err
	}

	runID := s.newRunID()
	rec := &runRecord{
		runID:     runID,
		status:    StatusQueued,
		phase:     PhaseCompile,
		startTime: time.Now(),
		diag:      &RunDiagnostics{RunID: runID},
		cancel:    emergency.New(),
	}

	s.mu.Lock()
	s.runs[runID] = rec
	s.mu.Unlock()

	go s.executeRun(rec, req)

	return runID, nil
}

// GetStatus returns a run's current lifecycle snapshot.
func (s *Service) GetStatus(runID string) (RunSnapshot, error) {
	rec, err := s.lookup(runID)
	if err != nil {
		return RunSnapshot{}, err
	}
	return rec.snapshot(), nil
}

// GetResult returns a run's terminal result, or an error if it hasn't
// finished yet.
func (s *Service) GetResult(runID string) (*RunResult, error) {
	rec, err := s.lookup(runID)
	if err != nil {
		return nil, err
	}
	rec.mu.RLock()
	defer rec.mu.RUnlock()
	if rec.result == nil {
		return nil, fmt.Errorf("run %s has not completed", runID)
	}
	return rec.result, nil
}

// CancelRun requests cooperative cancellation of a run, acknowledged within
// the SLA documented on emergency.Controller / pkg/scenario / pkg/portfolio.
func (s *Service) CancelRun(runID string) (string, error) {
	rec, err := s.lookup(runID)
	if err != nil {
		return "", err
	}
	rec.mu.RLock()
	status := rec.status
	rec.mu.RUnlock()
	if status == StatusCompleted || status == StatusFailed || status == StatusCancelled {
		return "noop", nil
	}
	rec.cancel.Cancel("cancel_run requested")
	return "ok", nil
}

func (s *Service) lookup(runID string) (*runRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.runs[runID]
	if !ok {
		return nil, NewRunError(ErrUnknownSlate, "no such run_id: "+runID, nil)
	}
	return rec, nil
}

// defaultedRejectionCeiling returns maxRate, or spec.md §7/§8's 2% default
// when the configured ceiling is unset.
func defaultedRejectionCeiling(maxRate float64) float64 {
	if maxRate <= 0 {
		return 0.02
	}
	return maxRate
}

// rejectionRateExceedsCeiling computes the kernel rejection rate over all
// scenario draws attempted (accepted + rejected) and reports whether it
// exceeds the configured ceiling. Returns rate=0, exceeded=false when no
// scenarios were attempted.
func rejectionRateExceedsCeiling(accepted, rejected int, maxRate float64) (rate float64, exceeded bool) {
	generated := accepted + rejected
	if generated == 0 {
		return 0, false
	}
	rate = float64(rejected) / float64(generated)
	return rate, rate > defaultedRejectionCeiling(maxRate)
}

func (s *Service) newRunID() string {
	s.mu.Lock()
	s.counter++
	n := s.counter
	s.mu.Unlock()
	return fmt.Sprintf("run-%d-%s", n, uuid.NewString())
}

func validateSubmitRequest(req SubmitRequest) error {
	if req.Slate.SlateID == "" {
		return NewRunError(ErrInvalidRequestSchema, "slate.slate_id is required", nil)
	}
	if len(req.Slate.Drivers) == 0 {
		return NewRunError(ErrInvalidRequestSchema, "slate.drivers must be non-empty", nil)
	}
	if req.NumScenarios < 0 {
		return NewRunError(ErrInvalidParameterRange, "num_scenarios must be non-negative", nil)
	}
	if req.PortfolioSize <= 0 || req.PortfolioSize > 1000 {
		return NewRunError(ErrInvalidParameterRange, "portfolio_size (n_lineups) must be in [1, 1000]", nil)
	}
	if req.NumScenarios > 0 {
		if req.NumScenarios < 2000 {
			return NewRunError(ErrInvalidParameterRange, "num_scenarios must be >= 2000 when specified", nil)
		}
		if req.NumScenarios%10 != 0 {
			return NewRunError(ErrInvalidParameterRange, "num_scenarios must be divisible by 10", nil)
		}
	}
	if req.TailQ < 0 || req.TailQ >= 1 {
		return NewRunError(ErrInvalidParameterRange, "tail_q must be in (0, 1)", nil)
	}
	if req.OverlapCapMax < 0 || req.OverlapCapMax > 6 {
		return NewRunError(ErrInvalidParameterRange, "overlap_cap must be in [1, 6]", nil)
	}
	switch req.ObjectiveKind {
	case "", objective.KindCVaRUpside, objective.KindChance, objective.KindExpectedPayout, objective.KindExpectedValue:
	default:
		return NewRunError(ErrInvalidParameterRange, "objective must be one of cvar_upside, chance, expected_payout, expected_value", nil)
	}
	return nil
}

// executeRun drives one run through compile -> simulate -> optimize ->
// finalize, updating rec as it goes. It never returns an error directly:
// every failure path instead writes a terminal RunResult with a typed
// FailureReason, matching the Core API's documented failure model.
func (s *Service) executeRun(rec *runRecord, req SubmitRequest) {
	rec.mu.Lock()
	rec.status = StatusRunning
	rec.mu.Unlock()
	activePhase := PhaseCompile
	s.metrics.SetPhaseActive(activePhase, 1)
	defer func() { s.metrics.SetPhaseActive(activePhase, -1) }()
	enterPhase := func(phase RunPhase, progress float64) {
		s.metrics.SetPhaseActive(activePhase, -1)
		activePhase = phase
		s.metrics.SetPhaseActive(activePhase, 1)
		rec.setPhase(phase, progress)
	}

	diag := rec.diag
	logger := s.logger.WithRunID(rec.runID)

	// --- compile ---
	rec.setPhase(PhaseCompile, 0)
	cs, err := constraintspec.Compile(req.Slate)
	if err != nil {
		s.fail(rec, diag, compileFailureReason(err), err.Error(), err)
		return
	}
	diag.Events = nil
	rec.event(diag, PhaseCompile, "constraint spec compiled: "+cs.SpecHash)

	runConfig := &constraintspec.RunConfig{
		SpecHash:     cs.SpecHash,
		SimParams:    req.SimParams,
		RandomSeed:   req.RandomSeed,
		NumScenarios: req.NumScenarios,
	}
	if _, err := s.storage.SaveArtifact(rec.runID, reporting.ArtifactRunConfig, runConfig); err != nil {
		logger.Warn("failed to persist run_config artifact", "error", err)
	}

	if rec.cancel.Cancelled() {
		s.cancelled(rec, diag)
		return
	}

	// --- simulate ---
	enterPhase(PhaseSimulate, 0)
	fields := driverFields(cs)

	numScenarios := req.NumScenarios
	if numScenarios <= 0 {
		numScenarios = s.cfg.Scenario.MinScenarios
	}

	validator := kernelValidatorAdapter{v: kernel.New(s.kernelInstr)}
	engine := scenario.NewEngine(s.cfg.Scenario.MaxRegimeResamples)
	seed := req.RandomSeed
	if seed == 0 {
		seed = s.cfg.Scenario.RNGSeedDefault
	}

	scenarios, rejected, _ := engine.GenerateMany(cs, fields, req.SimParams.PaceCorrelation, validator, rec.cancel, seed, numScenarios)
	diag.ScenariosDrawn = len(scenarios)
	diag.ScenariosRejected = rejected
	rec.event(diag, PhaseSimulate, fmt.Sprintf("generated %d scenarios (%d rejected)", len(scenarios), rejected))

	if rec.cancel.Cancelled() {
		s.cancelled(rec, diag)
		return
	}
	if len(scenarios) == 0 {
		s.fail(rec, diag, ErrScenarioInfeasibleRegime, "no scenarios survived kernel validation", nil)
		return
	}
	if rate, exceeded := rejectionRateExceedsCeiling(len(scenarios), rejected, s.cfg.Scenario.MaxRejectionRate); exceeded {
		s.fail(rec, diag, ErrKernelRejectionExcessive,
			fmt.Sprintf("kernel rejection rate %.4f exceeds ceiling %.4f after retries", rate, defaultedRejectionCeiling(s.cfg.Scenario.MaxRejectionRate)), nil)
		return
	}

	if _, err := s.storage.SaveArtifact(rec.runID, reporting.ArtifactScenarios, scenarios); err != nil {
		logger.Warn("failed to persist scenarios artifact", "error", err)
	}

	// --- optimize ---
	enterPhase(PhaseOptimize, 0)
	coeffs := scoring.Resolve(cs)
	matrix := objective.BuildMatrix(coeffs, cs, scenarios)

	kind := req.ObjectiveKind
	if kind == "" {
		kind = objective.KindCVaRUpside
	}
	tailQ := req.TailQ
	if tailQ <= 0 {
		tailQ = 0.01
	}
	ir, err := objective.Build(matrix, objective.Params{
		Kind:         kind,
		Quantile:     tailQ,
		MinScenarios: s.cfg.Scenario.MinScenarios,
	})
	if err != nil {
		s.fail(rec, diag, ErrTailSampleTooSmall, err.Error(), err)
		return
	}
	if ir.Downgraded {
		rec.event(diag, PhaseOptimize, "objective downgraded: "+ir.DowngradeReason)
	}

	overlapCap := req.OverlapCapMax
	if overlapCap <= 0 {
		overlapCap = 4
	}
	exposureCaps := make(map[string]int, len(req.ExposureCaps))
	for driverID, frac := range req.ExposureCaps {
		cap := int(frac * float64(req.PortfolioSize))
		// frac == 0 means "never play this driver" and must stay a hard
		// exclusion (cap 0); the floor-of-1 rounding guard only applies
		// to strictly positive fractions that truncate down to 0.
		if frac > 0 && cap < 1 {
			cap = 1
		}
		exposureCaps[driverID] = cap
	}

	solverProblem := solver.Problem{
		TimeLimit:     s.cfg.SolverTimeLimit(),
		OptimalityGap: s.cfg.Solver.OptimalityGap,
	}

	pf := portfolio.Generate(cs, matrix, ir, solverProblem, portfolio.Params{
		NumLineups:     req.PortfolioSize,
		BaseOverlapCap: overlapCap,
		OverlapCeiling: overlapCap + s.cfg.Solver.MaxPortfolioRelaxations,
		ExposureCaps:   exposureCaps,
	}, kernel.New(s.kernelInstr), rec.cancel)

	if pf.Incomplete {
		rec.event(diag, PhaseOptimize, "portfolio incomplete: "+pf.StopReason)
	}

	if rec.cancel.Cancelled() {
		s.cancelled(rec, diag)
		return
	}
	if pf.KernelRejected {
		s.fail(rec, diag, ErrKernelRejectedLineup, pf.StopReason, nil)
		return
	}
	if len(pf.Lineups) == 0 {
		s.fail(rec, diag, ErrPortfolioIncomplete, pf.StopReason, nil)
		return
	}

	if _, err := s.storage.SaveArtifact(rec.runID, reporting.ArtifactPortfolio, pf); err != nil {
		logger.Warn("failed to persist portfolio artifact", "error", err)
	}

	// --- finalize ---
	enterPhase(PhaseFinalize, 1)
	endTime := time.Now()
	diag.RegimeResamples = sumRegimeResamples(scenarios)
	result := &RunResult{
		RunID:       rec.runID,
		SpecHash:    cs.SpecHash,
		Status:      StatusCompleted,
		StartTime:   rec.startTime,
		EndTime:     endTime,
		Duration:    endTime.Sub(rec.startTime).String(),
		LineupCount: len(pf.Lineups),
		Partial:     pf.Incomplete,
		Portfolio:   &pf,
		Diagnostics: s.buildResultDiagnostics(diag, ir, pf),
	}
	if pf.Incomplete {
		result.Message = pf.StopReason
	}

	if _, err := s.storage.SaveArtifact(rec.runID, reporting.ArtifactDiagnostics, diag); err != nil {
		logger.Warn("failed to persist diagnostics artifact", "error", err)
	}

	rec.mu.Lock()
	rec.status = StatusCompleted
	rec.endTime = endTime
	rec.result = result
	rec.mu.Unlock()

	s.metrics.ObserveRunDuration(StatusCompleted, endTime.Sub(rec.startTime).Seconds())
	s.progress.ReportRunCompleted(result)
}

func (s *Service) fail(rec *runRecord, diag *RunDiagnostics, reason FailureReason, message string, cause error) {
	endTime := time.Now()
	result := &RunResult{
		RunID:         rec.runID,
		Status:        StatusFailed,
		StartTime:     rec.startTime,
		EndTime:       endTime,
		Duration:      endTime.Sub(rec.startTime).String(),
		Partial:       diag.ScenariosDrawn > 0,
		Diagnostics:   s.buildResultDiagnostics(diag, nil, portfolio.Portfolio{}),
		FailureReason: reason,
		Message:       message,
	}
	rec.event(diag, rec.phase, "failed: "+string(reason)+": "+message)
	s.storage.SaveArtifact(rec.runID, reporting.ArtifactDiagnostics, diag)

	rec.mu.Lock()
	rec.status = StatusFailed
	rec.endTime = endTime
	rec.result = result
	rec.mu.Unlock()

	s.metrics.ObserveRunDuration(StatusFailed, endTime.Sub(rec.startTime).Seconds())
	s.progress.ReportRunCompleted(result)
}

func (s *Service) cancelled(rec *runRecord, diag *RunDiagnostics) {
	endTime := time.Now()
	result := &RunResult{
		RunID:         rec.runID,
		Status:        StatusCancelled,
		StartTime:     rec.startTime,
		EndTime:       endTime,
		Duration:      endTime.Sub(rec.startTime).String(),
		Partial:       true,
		Diagnostics:   s.buildResultDiagnostics(diag, nil, portfolio.Portfolio{}),
		FailureReason: ErrCancelled,
		Message:       rec.cancel.Reason(),
	}
	rec.event(diag, rec.phase, "cancelled: "+rec.cancel.Reason())
	s.storage.SaveArtifact(rec.runID, reporting.ArtifactDiagnostics, diag)

	rec.mu.Lock()
	rec.status = StatusCancelled
	rec.endTime = endTime
	rec.result = result
	rec.mu.Unlock()

	s.metrics.ObserveRunDuration(StatusCancelled, endTime.Sub(rec.startTime).Seconds())
	s.progress.ReportRunCompleted(result)
}

func driverFields(cs *constraintspec.ConstraintSpec) []scenario.DriverField {
	fields := make([]scenario.DriverField, len(cs.Drivers))

	for i, d := range cs.Drivers {
		fields[i] = scenario.DriverField{
			DriverID:      d.DriverID,
			Archetype:     scenario.Archetype(d.Archetype),
			StartPosition: d.StartPosition,
			ShadowRisk:    d.ShadowRisk,
			Aggression:    d.Aggression,
			MinLapsLed:    d.MinLapsLed,
			MaxLapsLed:    d.MaxLapsLed,
			PaceRank:      d.PaceRank,
		}
	}
	return fields
}

// compileFailureReason maps a constraintspec.CompileError's reason string
// onto the Core API's FailureReason taxonomy, defaulting to the generic
// invariant code for any error type Compile doesn't itself produce.
func compileFailureReason(err error) FailureReason {
	ce, ok := err.(*constraintspec.CompileError)
	if !ok {
		return ErrCompileInvariant
	}
	switch ce.Reason {
	case "COMPILE_MISSING_ENTITY":
		return ErrCompileMissingEntity
	case "COMPILE_RANGE_VIOLATION":
		return ErrCompileRangeViolation
	case "COMPILE_STORE_UNAVAILABLE":
		return ErrCompileStoreUnavailable
	default:
		return ErrCompileInvariant
	}
}

// buildResultDiagnostics assembles the response-facing diagnostics block
// from a run's internal event log, the kernel's process-wide rejection
// counters, the objective IR's tail sample size (if the run reached
// optimize), and the emitted portfolio's exposure trajectory (if the run
// reached finalize). ir and an empty pf are both valid for partial/failed
// runs that never got that far.
func (s *Service) buildResultDiagnostics(diag *RunDiagnostics, ir *objective.IR, pf portfolio.Portfolio) *ResultDiagnostics {
	rd := &ResultDiagnostics{
		NScenariosGenerated: diag.ScenariosDrawn + diag.ScenariosRejected,
		NScenariosAccepted:  diag.ScenariosDrawn,
	}
	if rd.NScenariosGenerated > 0 {
		rd.RejectionRate = float64(diag.ScenariosRejected) / float64(rd.NScenariosGenerated)
	}
	if ir != nil {
		rd.TailEffectiveSampleSize = ir.EffectiveTail
	}
	if len(pf.Exposure) > 0 {
		rd.ExposureTrajectory = pf.Exposure
	}
	if s.kernelInstr != nil {
		rd.TopVetoReasons = topVetoReasons(s.kernelInstr.RejectionCounts(), 5)
	}
	return rd
}

// topVetoReasons returns the n reason codes with the highest rejection
// counts, descending, ties broken lexicographically on the reason code for
// determinism.
func topVetoReasons(counts map[kernel.ReasonCode]uint64, n int) []VetoReasonCount {
	out := make([]VetoReasonCount, 0, len(counts))
	for reason, count := range counts {
		if reason == kernel.ReasonOK || count == 0 {
			continue
		}
		out = append(out, VetoReasonCount{Reason: string(reason), Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Reason < out[j].Reason
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func sumRegimeResamples(scenarios []scenario.ScenarioComponents) int {
	total := 0
	for _, sc := range scenarios {
		total += sc.RegimeResamples
	}
	return total
}
