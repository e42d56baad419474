// Package scoring implements the fixed DraftKings NASCAR scorer: a
// monotone finish-to-points table plus place-differential, laps-led, and
// fastest-laps bonuses with a DNF penalty. spec.md defers the exact
// coefficients to "the original system"; no original source was retrievable
// (see DESIGN.md), so this package ships one authoritative constants block
// that a ConstraintSpec may override per slate.
package scoring

// FinishTable maps a 1-indexed finish position to its base points. Index 0
// is unused so FinishTable[pos] reads naturally; positions beyond the table
// length score zero base points.
var FinishTable = []float64{
	0,  // unused
	45, 42, 41, 40, 39, 38, 37, 36, 35, 34,
	33, 32, 31, 30, 29, 28, 27, 26, 25, 24,
	23, 22, 21, 20, 19, 18, 17, 16, 15, 14,
	13, 12, 11, 10, 9, 8, 7, 6, 5, 4,
}

const (
	// Alpha scales place-differential points: alpha * (start - finish),
	// clamped to [-PlaceDiffCap, PlaceDiffCap].
	Alpha = 1.0
	// PlaceDiffCap bounds the place-differential bonus/penalty magnitude.
	PlaceDiffCap = 25.0
	// Beta scales laps-led points.
	Beta = 0.25
	// Gamma scales fastest-laps points.
	Gamma = 0.5
	// DNFPenalty is subtracted once if a driver does not finish.
	DNFPenalty = 10.0
)

// FinishPoints returns the base points for a 1-indexed finish position.
func FinishPoints(table []float64, pos int) float64 {
	if pos <= 0 || pos >= len(table) {
		return 0
	}
	return table[pos]
}
