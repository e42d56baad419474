package constraintspec

import (
	"fmt"
	"sort"
)

// CompileError names which invariant a slate failed, mirroring the
// COMPILE_* reason codes the Core API surfaces as a FailureReason.
type CompileError struct {
	Reason  string
	Message string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("%s: %s", e.Reason, e.Message)
}

// Store is the external ontology/graph-store collaborator CS compiles
// from (a Neo4j-backed implementation in production; spec.md §6 names its
// two required batch read operations). Compile's contract is that the
// store is queried in a bounded number of round trips here and never
// again once the ConstraintSpec exists — any later query against Store
// from SE/TO/LS/PG/CA is a programming error, not a runtime one.
type Store interface {
	// ListDrivers returns every driver eligible for slateID in one batch
	// call, matching spec.md §6's driver field list.
	ListDrivers(slateID string) ([]DriverConstraint, error)
	// ListTrack returns the single track a slate races on, matching
	// spec.md §6's track field list.
	ListTrack(slateID string) (TrackConstraint, error)
}

// CompileFromStore fetches a slate's drivers and track from an external
// Store in exactly two batch round trips — O(1) each, per spec.md §4.2 —
// and compiles them via Compile. A store error (unreachable, timeout)
// surfaces as COMPILE_STORE_UNAVAILABLE rather than bubbling the
// underlying transport error, matching spec.md §7's reason taxonomy.
func CompileFromStore(slateID string, store Store, scoring *ScoringOverride, version string) (*ConstraintSpec, error) {
	drivers, err := store.ListDrivers(slateID)
	if err != nil {
		return nil, &CompileError{Reason: "COMPILE_STORE_UNAVAILABLE", Message: fmt.Sprintf("ListDrivers(%s): %v", slateID, err)}
	}
	track, err := store.ListTrack(slateID)
	if err != nil {
		return nil, &CompileError{Reason: "COMPILE_STORE_UNAVAILABLE", Message: fmt.Sprintf("ListTrack(%s): %v", slateID, err)}
	}

	return Compile(SlateInput{
		SlateID: slateID,
		Track:   track,
		Drivers: drivers,
		Scoring: scoring,
		Version: version,
	})
}

// Compile validates a raw SlateInput and produces an immutable
// ConstraintSpec with its canonical spec_hash set. Drivers are sorted by
// driver_id so the compiled artifact — and therefore its hash — does not
// depend on submission order.
func Compile(input SlateInput) (*ConstraintSpec, error) {
	if input.SlateID == "" {
		return nil, &CompileError{Reason: "COMPILE_MISSING_ENTITY", Message: "slate_id is required"}
	}
	if len(input.Drivers) == 0 {
		return nil, &CompileError{Reason: "COMPILE_MISSING_ENTITY", Message: "slate has no drivers"}
	}
	switch input.Track.Archetype {
	case ArchetypeSuperspeedway, ArchetypeIntermediate, ArchetypeShortTrack, ArchetypeRoadCourse, ArchetypeFlat:
	default:
		return nil, &CompileError{Reason: "COMPILE_RANGE_VIOLATION", Message: fmt.Sprintf("track.archetype %q is not one of superspeedway/intermediate/short_track/road_course/flat", input.Track.Archetype)}
	}
	if input.Track.RaceLengthLaps <= 0 {
		return nil, &CompileError{Reason: "COMPILE_RANGE_VIOLATION", Message: "track.race_length_laps must be positive"}
	}
	if input.Track.SalaryCap <= 0 {
		return nil, &CompileError{Reason: "COMPILE_RANGE_VIOLATION", Message: "track.salary_cap must be positive"}
	}
	if input.Track.LineupSize <= 0 {
		return nil, &CompileError{Reason: "COMPILE_RANGE_VIOLATION", Message: "track.lineup_size must be positive"}
	}
	if input.Track.MaxPerTeam <= 0 {
		return nil, &CompileError{Reason: "COMPILE_RANGE_VIOLATION", Message: "track.max_per_team must be positive"}
	}

	seen := make(map[string]bool, len(input.Drivers))
	for _, d := range input.Drivers {
		if d.DriverID == "" {
			return nil, &CompileError{Reason: "COMPILE_MISSING_ENTITY", Message: "driver missing driver_id"}
		}
		if seen[d.DriverID] {
			return nil, &CompileError{Reason: "COMPILE_INVARIANT", Message: fmt.Sprintf("duplicate driver_id %q", d.DriverID)}
		}
		seen[d.DriverID] = true

		if d.Salary <= 0 || d.Salary > input.Track.SalaryCap {
			return nil, &CompileError{Reason: "COMPILE_RANGE_VIOLATION", Message: fmt.Sprintf("driver %s salary out of range", d.DriverID)}
		}
		if d.MinLapsLed < 0 || d.MaxLapsLed < d.MinLapsLed || d.MaxLapsLed > input.Track.RaceLengthLaps {
			return nil, &CompileError{Reason: "COMPILE_RANGE_VIOLATION", Message: fmt.Sprintf("driver %s laps_led bounds invalid", d.DriverID)}
		}
		if d.ShadowRisk < 0 || d.ShadowRisk > 1 || d.Aggression < 0 || d.Aggression > 1 {
			return nil, &CompileError{Reason: "COMPILE_RANGE_VIOLATION", Message: fmt.Sprintf("driver %s risk/aggression must be in [0,1]", d.DriverID)}
		}
	}

	teamCounts := make(map[string]int)
	for _, d := range input.Drivers {
		teamCounts[d.Team]++
	}
	minFieldForLineup := input.Track.LineupSize
	if len(input.Drivers) < minFieldForLineup {
		return nil, &CompileError{Reason: "COMPILE_INVARIANT", Message: "fewer drivers than lineup_size; no valid lineup can be formed"}
	}

	drivers := make([]DriverConstraint, len(input.Drivers))
	copy(drivers, input.Drivers)
	sort.Slice(drivers, func(i, j int) bool { return drivers[i].DriverID < drivers[j].DriverID })

	scoring := ScoringOverride{}
	if input.Scoring != nil {
		scoring = *input.Scoring
	}

	cs := &ConstraintSpec{
		SlateID: input.SlateID,
		Track:   input.Track,
		Drivers: drivers,
		Scoring: scoring,
		Version: input.Version,
	}

	hash, err := CanonicalHash(cs)
	if err != nil {
		return nil, &CompileError{Reason: "COMPILE_INVARIANT", Message: fmt.Sprintf("failed to hash compiled spec: %v", err)}
	}
	cs.SpecHash = hash

	return cs, nil
}
