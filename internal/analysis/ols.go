package analysis

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"gotrial/domain/cohort"
	"gotrial/domain/core"
	"gotrial/domain/study"
)

// OLS fits linear models by QR decomposition
type OLS struct {
	dist *StatisticalDistributions
}

// NewOLS creates a least-squares fitter
func NewOLS() *OLS {
	return &OLS{dist: NewDistributions()}
}

// DefaultModel fits the composite performance score on the treatment flags
// and the baseline psychological covariates.
func (o *OLS) DefaultModel(table *cohort.Table) (study.RegressionResult, error) {
	return o.Fit(table, cohort.VarPerformance, cohort.DefaultPredictors())
}

// Fit estimates outcome ~ predictors plus an intercept by ordinary least
// squares. Rank deficiency in the design matrix refuses the fit with an
// error distinguishable from any successful estimate.
func (o *OLS) Fit(table *cohort.Table, outcome core.VariableKey, predictors []core.VariableKey) (study.RegressionResult, error) {
	if len(predictors) == 0 {
		return study.RegressionResult{}, core.NewInvalidArgument("predictors", "at least one required")
	}

	y, ok := table.Floats(outcome)
	if !ok {
		return study.RegressionResult{}, core.NewUnknownVariableError(string(outcome))
	}
	n := len(y)
	k := len(predictors) + 1
	if n < k {
		return study.RegressionResult{}, fmt.Errorf("%w: %d rows for %d terms", core.ErrTooFewRows, n, k)
	}

	// Design matrix with the intercept in column 0
	X := mat.NewDense(n, k, nil)
	for i := 0; i < n; i++ {
		X.Set(i, 0, 1)
	}
	for j, key := range predictors {
		values, ok := table.Floats(key)
		if !ok {
			return study.RegressionResult{}, core.NewUnknownVariableError(string(key))
		}
		for i, v := range values {
			X.Set(i, j+1, v)
		}
	}

	var qr mat.QR
	qr.Factorize(X)

	if err := checkRank(&qr, k); err != nil {
		return study.RegressionResult{}, err
	}

	beta := mat.NewVecDense(k, nil)
	if err := qr.SolveVecTo(beta, false, mat.NewVecDense(n, y)); err != nil {
		return study.RegressionResult{}, fmt.Errorf("%w: %v", core.ErrRankDeficient, err)
	}

	// Residual and total sums of squares
	var fitted mat.VecDense
	fitted.MulVec(X, beta)
	var sse, sst, yMean float64
	for i := 0; i < n; i++ {
		yMean += y[i]
	}
	yMean /= float64(n)
	for i := 0; i < n; i++ {
		r := y[i] - fitted.AtVec(i)
		sse += r * r
		d := y[i] - yMean
		sst += d * d
	}

	dfResid := n - k
	dfModel := k - 1
	sigma2 := math.NaN()
	if dfResid > 0 {
		sigma2 = sse / float64(dfResid)
	}

	// Coefficient covariance from (X'X)^-1
	var xtx mat.Dense
	xtx.Mul(X.T(), X)
	var xtxInv mat.Dense
	if err := xtxInv.Inverse(&xtx); err != nil {
		return study.RegressionResult{}, fmt.Errorf("%w: %v", core.ErrRankDeficient, err)
	}

	rSquared := 1 - sse/sst
	adjRSquared := math.NaN()
	if dfResid > 0 {
		adjRSquared = 1 - (1-rSquared)*float64(n-1)/float64(dfResid)
	}
	fStat := (rSquared / float64(dfModel)) / ((1 - rSquared) / float64(dfResid))

	tCrit := o.dist.TCritical(0.95, dfResid)
	terms := make([]study.CoefEstimate, k)
	names := append([]string{"Intercept"}, keysToStrings(predictors)...)
	for j := 0; j < k; j++ {
		coef := beta.AtVec(j)
		se := math.Sqrt(sigma2 * xtxInv.At(j, j))
		t := coef / se
		terms[j] = study.CoefEstimate{
			Term:    names[j],
			Coef:    coef,
			StdErr:  se,
			TStat:   t,
			PValue:  o.dist.TTestPValue(t, dfResid),
			CILower: coef - tCrit*se,
			CIUpper: coef + tCrit*se,
		}
	}

	return study.RegressionResult{
		Outcome:     outcome,
		Terms:       terms,
		N:           n,
		RSquared:    rSquared,
		AdjRSquared: adjRSquared,
		FStat:       fStat,
		FPValue:     o.dist.FTestPValue(fStat, dfModel, dfResid),
		DFModel:     dfModel,
		DFResid:     dfResid,
	}, nil
}

// checkRank inspects the R diagonal for a numerically zero pivot
func checkRank(qr *mat.QR, k int) error {
	var r mat.Dense
	qr.RTo(&r)

	maxDiag := 0.0
	for j := 0; j < k; j++ {
		if d := math.Abs(r.At(j, j)); d > maxDiag {
			maxDiag = d
		}
	}
	const rankTol = 1e-12
	for j := 0; j < k; j++ {
		if math.Abs(r.At(j, j)) <= rankTol*maxDiag {
			return fmt.Errorf("%w: pivot %d is zero", core.ErrRankDeficient, j)
		}
	}
	return nil
}

func keysToStrings(keys []core.VariableKey) []string {
	out := make([]string, len(keys))
	for i, key := range keys {
		out[i] = string(key)
	}
	return out
}
