package constraintspec

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// hashable is the subset of ConstraintSpec that feeds spec_hash: everything
// except the hash field itself. Go's encoding/json already gives the
// canonical serialization spec.md requires — fixed struct field order,
// sorted map keys, and shortest-round-trip float formatting — so no custom
// encoder is needed; see DESIGN.md for why this is the idiomatic choice
// here rather than reaching for a third-party canonical-JSON library.
type hashable struct {
	SlateID string             `json:"slate_id"`
	Track   TrackConstraint    `json:"track"`
	Drivers []DriverConstraint `json:"drivers"`
	Scoring ScoringOverride    `json:"scoring"`
	Version string             `json:"version"`
}

// CanonicalHash computes the spec_hash: the hex-encoded SHA-256 digest of
// cs's canonical JSON encoding, excluding the hash field itself. Drivers
// must already be sorted by driver_id (Compile guarantees this) so the hash
// is independent of submission order.
func CanonicalHash(cs *ConstraintSpec) (string, error) {
	h := hashable{
		SlateID: cs.SlateID,
		Track:   cs.Track,
		Drivers: cs.Drivers,
		Scoring: cs.Scoring,
		Version: cs.Version,
	}

	data, err := json.Marshal(h)
	if err != nil {
		return "", fmt.Errorf("failed to marshal canonical form: %w", err)
	}

	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// VerifyHash reports whether cs.SpecHash matches its current content —
// used to detect a ConstraintSpec that was mutated after compilation.
func VerifyHash(cs *ConstraintSpec) (bool, error) {
	want, err := CanonicalHash(cs)
	if err != nil {
		return false, err
	}
	return want == cs.SpecHash, nil
}
