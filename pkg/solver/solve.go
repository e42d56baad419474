package solver

import (
	"fmt"
	"sort"
	"time"

	"github.com/zax-lab/nascar-dfs-engine/pkg/objective"
)

const tieBreakEpsilon = 1e-6

// searchOptions lets classifyInfeasibility re-solve the same problem with
// individual constraint families relaxed, without mutating the immutable
// ConstraintSpec or Problem the caller passed in.
type searchOptions struct {
	ignoreTeamCap    bool
	ignoreSalaryCap  bool
	ignoreOverlap    bool
	ignoreNoGoods    bool
	feasibilityOnly  bool // stop at the first feasible leaf, ignore the objective
}

type searchState struct {
	p         Problem
	opts      searchOptions
	eligible  []int // column indices into p.Matrix, sorted by driver_id
	salaryOf  []int
	teamOf    []string
	deadline  time.Time
	timedOut  bool
	nodes     int
	best      *Result
	anyLeaf   bool
}

// Solve runs the branch-and-bound search for one lineup and returns the
// best incumbent found, optimal if the search completed, feasible_time_limit
// if the time limit cut it short, or a classified infeasibility.
func Solve(p Problem) Result {
	start := time.Now()
	eligible := eligibleColumns(p, searchOptions{})
	if len(eligible) < p.CS.Track.LineupSize {
		return Result{Status: StatusInfeasible, InfeasibilityClass: InfeasSalary, Message: "fewer eligible drivers than lineup_size after vetoes and exposure exclusions", TimeTaken: time.Since(start)}
	}

	res := runSearch(p, searchOptions{})
	res.TimeTaken = time.Since(start)
	if res.Status != StatusInfeasible {
		return res
	}

	class, msg := classifyInfeasibility(p)
	return Result{Status: StatusInfeasible, InfeasibilityClass: class, Message: msg, TimeTaken: time.Since(start)}
}

func runSearch(p Problem, opts searchOptions) Result {
	eligible := eligibleColumns(p, opts)

	st := &searchState{
		p:        p,
		opts:     opts,
		eligible: eligible,
		salaryOf: make([]int, len(p.Matrix.DriverIDs)),
		teamOf:   make([]string, len(p.Matrix.DriverIDs)),
	}
	for i, id := range p.Matrix.DriverIDs {
		dc, _ := p.CS.DriverByID(id)
		st.salaryOf[i] = dc.Salary
		st.teamOf[i] = dc.Team
	}
	if p.TimeLimit > 0 {
		st.deadline = time.Now().Add(p.TimeLimit)
	}

	st.search(0, nil, 0, map[string]int{})

	if st.best != nil {
		status := StatusOptimal
		gap := 0.0
		if st.timedOut {
			status = StatusFeasibleTimeLimit
			gap = p.OptimalityGap
		}
		st.best.Status = status
		st.best.Gap = gap
		st.best.NodesExplored = st.nodes
		return *st.best
	}

	return Result{Status: StatusInfeasible, NodesExplored: st.nodes}
}

func (st *searchState) search(pos int, chosen []int, salary int, teamCounts map[string]int) {
	if st.timedOut {
		return
	}
	st.nodes++
	if st.nodes%2048 == 0 && !st.deadline.IsZero() && time.Now().After(st.deadline) {
		st.timedOut = true
		return
	}

	lineupSize := st.p.CS.Track.LineupSize
	if len(chosen) == lineupSize {
		st.considerLeaf(chosen)
		if st.opts.feasibilityOnly && st.anyLeaf {
			st.timedOut = true // short-circuits the remaining search; feasibility established
		}
		return
	}
	if pos >= len(st.eligible) {
		return
	}
	if len(chosen)+(len(st.eligible)-pos) < lineupSize {
		return
	}

	col := st.eligible[pos]
	salaryCap := st.p.CS.Track.SalaryCap
	maxPerTeam := st.p.CS.Track.MaxPerTeam

	// Branch: include col.
	newSalary := salary + st.salaryOf[col]
	if st.opts.ignoreSalaryCap || newSalary <= salaryCap {
		team := st.teamOf[col]
		newCount := teamCounts[team] + 1
		if st.opts.ignoreTeamCap || newCount <= maxPerTeam {
			teamCounts[team] = newCount
			st.search(pos+1, append(chosen, col), newSalary, teamCounts)
			teamCounts[team]--
			if st.timedOut {
				return
			}
		}
	}

	// Branch: exclude col.
	st.search(pos+1, chosen, salary, teamCounts)
}

func (st *searchState) considerLeaf(chosen []int) {
	ids := make([]string, len(chosen))
	for i, col := range chosen {
		ids[i] = st.p.Matrix.DriverIDs[col]
	}

	if !st.opts.ignoreNoGoods && violatesNoGood(ids, st.p.Extra.NoGoods) {
		return
	}
	if !st.opts.ignoreOverlap && violatesOverlap(ids, st.p.Extra.OverlapCaps) {
		return
	}

	st.anyLeaf = true
	if st.opts.feasibilityOnly {
		st.best = &Result{DriverIDs: append([]string(nil), ids...)}
		return
	}

	value := objective.Evaluate(st.p.IR, st.p.Matrix, chosen)
	indexSum := 0
	for _, col := range chosen {
		indexSum += col
	}
	tieBroken := value - tieBreakEpsilon*float64(indexSum)

	if st.best == nil || tieBroken > st.best.ObjectiveValue {
		sort.Strings(ids)
		st.best = &Result{DriverIDs: ids, ObjectiveValue: tieBroken}
	}
}

func violatesNoGood(ids []string, noGoods [][]string) bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	for _, ng := range noGoods {
		if len(ng) != len(ids) {
			continue
		}
		allMatch := true
		for _, id := range ng {
			if !set[id] {
				allMatch = false
				break
			}
		}
		if allMatch {
			return true
		}
	}
	return false
}

func violatesOverlap(ids []string, caps []OverlapCap) bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	for _, c := range caps {
		overlap := 0
		for _, prior := range c.Lineup {
			if set[prior] {
				overlap++
			}
		}
		if overlap > c.Max {
			return true
		}
	}
	return false
}

func eligibleColumns(p Problem, opts searchOptions) []int {
	cols := make([]int, 0, len(p.Matrix.DriverIDs))
	for i, id := range p.Matrix.DriverIDs {
		if p.Extra.Forbidden[id] {
			continue
		}
		dc, found := p.CS.DriverByID(id)
		if !found || dc.VetoRule != "" {
			continue
		}
		cols = append(cols, i)
	}
	return cols
}

// classifyInfeasibility re-solves the problem with one constraint family
// relaxed at a time, in the order the spec lists hard constraints, and
// reports the first relaxation that becomes feasible as the binding cause.
func classifyInfeasibility(p Problem) (InfeasibilityClass, string) {
	if feasible(p, searchOptions{ignoreTeamCap: true, feasibilityOnly: true}) {
		return InfeasTeamCap, "relaxing max_per_team yields a feasible lineup"
	}
	if feasible(p, searchOptions{ignoreNoGoods: true, feasibilityOnly: true}) {
		return InfeasNoGoods, "relaxing no-good cuts yields a feasible lineup"
	}
	if feasible(p, searchOptions{ignoreOverlap: true, feasibilityOnly: true}) {
		return InfeasExposure, "relaxing overlap/exposure caps yields a feasible lineup"
	}
	if feasible(p, searchOptions{ignoreSalaryCap: true, feasibilityOnly: true}) {
		return InfeasSalary, "relaxing salary_cap yields a feasible lineup"
	}
	return InfeasSalary, fmt.Sprintf("no single relaxation yielded a feasible lineup among %d eligible drivers", len(eligibleColumns(p, searchOptions{})))
}

func feasible(p Problem, opts searchOptions) bool {
	res := runSearch(p, opts)
	return res.Status != StatusInfeasible
}
