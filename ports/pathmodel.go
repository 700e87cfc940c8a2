package ports

import (
	"context"

	"gotrial/domain/cohort"
	"gotrial/domain/core"
	"gotrial/domain/study"
)

// IPMARunnerPort runs importance-performance map analysis on an external
// statistical backend.
type IPMARunnerPort interface {
	// Available reports whether the backend can execute at all
	Available() bool

	// Run analyzes outcome against the predictors. A missing or failing
	// backend yields the zero IPMAResult plus a wrapped error; callers
	// decide whether that degrades or aborts their flow.
	Run(ctx context.Context, table *cohort.Table, predictors []core.VariableKey, outcome core.VariableKey) (study.IPMAResult, error)
}

// SEMFitterPort estimates a structural model on an external backend.
//
// Fit returns (nil, err) when the model itself fails to fit. When the fit
// succeeds but the importance table cannot be derived, it returns the
// partial fit with Importance empty alongside the wrapped cause, mirroring
// the two failure stages of the underlying estimator.
type SEMFitterPort interface {
	Fit(ctx context.Context, table *cohort.Table, spec *study.ModelSpec, target core.VariableKey) (*study.SEMFit, error)
}
