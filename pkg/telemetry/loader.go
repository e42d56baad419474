// Package telemetry loads pre-race driver feature rows for a slate and
// enforces the features_contract: post-race fields (things only known once
// the race has run) must never leak into anything the Scenario Engine or
// Lineup Solver consumes.
package telemetry

import (
	"context"
	"fmt"
	"sync"
)

// forbiddenFields names post-race columns the features_contract rejects.
// Adapted from the teacher's periodic-collection-into-series pattern: here
// the "collection" is a one-shot columnar read instead of a polling loop,
// since pre-race features don't change during a run.
var forbiddenFields = map[string]bool{
	"race_laps_led":         true,
	"race_finish_position":  true,
	"race_incidents":        true,
	"race_dnf_lap":          true,
	"race_fastest_laps":     true,
}

// Row is one driver's pre-race feature vector.
type Row struct {
	DriverID string
	Features map[string]float64
}

// Source loads raw columnar rows for a slate. A concrete Source might read
// CSV, Parquet, or a feature store; the loader's only job is to enforce the
// contract on whatever a Source returns.
type Source interface {
	Load(ctx context.Context, slateID string) ([]Row, error)
}

// Loader wraps a Source and caches its last successful load per slate,
// mirroring the teacher's mutex-guarded in-memory sample store.
type Loader struct {
	source Source
	mutex  sync.RWMutex
	cache  map[string][]Row
}

// New creates a Loader backed by source.
func New(source Source) *Loader {
	return &Loader{source: source, cache: make(map[string][]Row)}
}

// Load fetches and validates a slate's feature rows, rejecting any row that
// carries a forbidden post-race field.
func (l *Loader) Load(ctx context.Context, slateID string) ([]Row, error) {
	rows, err := l.source.Load(ctx, slateID)
	if err != nil {
		return nil, fmt.Errorf("failed to load telemetry for slate %s: %w", slateID, err)
	}

	for _, row := range rows {
		for field := range row.Features {
			if forbiddenFields[field] {
				return nil, fmt.Errorf("features_contract violation: row for driver %s carries forbidden post-race field %q", row.DriverID, field)
			}
		}
	}

	l.mutex.Lock()
	l.cache[slateID] = rows
	l.mutex.Unlock()

	return rows, nil
}

// Cached returns the last successfully loaded rows for a slate, if any.
func (l *Loader) Cached(slateID string) ([]Row, bool) {
	l.mutex.RLock()
	defer l.mutex.RUnlock()
	rows, ok := l.cache[slateID]
	return rows, ok
}
