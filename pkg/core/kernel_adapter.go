package core

import (
	"github.com/zax-lab/nascar-dfs-engine/pkg/constraintspec"
	"github.com/zax-lab/nascar-dfs-engine/pkg/kernel"
	"github.com/zax-lab/nascar-dfs-engine/pkg/scenario"
)

// kernelValidatorAdapter satisfies scenario.Validator by delegating to a
// kernel.Validator and translating kernel.Result into scenario's own
// ValidationResult shape. It lives here rather than in pkg/kernel or
// pkg/scenario to avoid either package importing the other.
type kernelValidatorAdapter struct {
	v *kernel.Validator
}

func (a kernelValidatorAdapter) ValidateState(cs *constraintspec.ConstraintSpec, regime scenario.RaceFlowRegime) scenario.ValidationResult {
	res := a.v.ValidateState(cs, regime)
	return scenario.ValidationResult{Valid: res.Valid, Reason: string(res.Reason)}
}

func (a kernelValidatorAdapter) ValidateRealized(cs *constraintspec.ConstraintSpec, regime scenario.RaceFlowRegime, outcomes []scenario.DriverOutcome) scenario.ValidationResult {
	res := a.v.ValidateRealized(cs, regime, outcomes)
	return scenario.ValidationResult{Valid: res.Valid, Reason: string(res.Reason)}
}
