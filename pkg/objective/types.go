// Package objective implements the Tail Objective Builder (TO): it converts
// a realized scenario matrix into a solver-agnostic linear intermediate
// representation aligned with top-quantile outcomes rather than expected
// value, for pkg/solver to consume.
package objective

// Kind selects which tail-aware objective a run uses.
type Kind string

const (
	KindCVaRUpside      Kind = "cvar_upside"
	KindChance          Kind = "chance"
	KindExpectedPayout  Kind = "expected_payout"
	KindExpectedValue   Kind = "expected_value" // plain scenario mean; also the downgrade target
)

// VarKind distinguishes the 0/1 lineup decision variables from the
// continuous auxiliary variables a CVaR-style objective introduces.
type VarKind string

const (
	VarBinary     VarKind = "binary"
	VarContinuous VarKind = "continuous"
)

// Var is one decision or auxiliary variable in the solver-agnostic IR.
type Var struct {
	Name string
	Kind VarKind
}

// ConstraintSense is the relational operator of one linear constraint.
type ConstraintSense string

const (
	SenseLE ConstraintSense = "<="
	SenseGE ConstraintSense = ">="
	SenseEQ ConstraintSense = "="
)

// Constraint is one linear constraint over named variables:
// Σ Terms[v]·v {<=,>=,=} RHS.
type Constraint struct {
	Name  string
	Terms map[string]float64
	Sense ConstraintSense
	RHS   float64
}

// IR is the canonical, solver-agnostic intermediate representation TO
// emits and LS consumes: decision variables, the linearized objective's
// per-variable coefficients, any auxiliary variables the objective
// requires (τ and z_k for cvar_upside), and the constraints those
// auxiliaries impose.
type IR struct {
	Kind            Kind
	Vars            []Var
	LinearTerms     map[string]float64
	AuxVars         []Var
	Constraints     []Constraint
	Quantile        float64
	Threshold       float64
	EffectiveTail   int
	NScenarios      int
	Downgraded      bool
	DowngradeReason string
}
