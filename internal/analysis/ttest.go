package analysis

import (
	"math"

	"github.com/montanaflynn/stats"

	"gotrial/domain/cohort"
	"gotrial/domain/core"
	"gotrial/domain/study"
)

// CompareArms runs an independent two-sample t-test of each outcome column
// between the groupKey=1 and groupKey=0 subsets, pooling variances.
// Degenerate subsets (fewer than 2 observations, zero variance) surface as
// NaN statistics rather than being dropped from the result.
func (a *Analyzer) CompareArms(table *cohort.Table, groupKey core.VariableKey) ([]study.TTestComparison, error) {
	group, ok := table.Floats(groupKey)
	if !ok {
		return nil, core.NewUnknownVariableError(string(groupKey))
	}

	var results []study.TTestComparison
	for _, outcome := range cohort.OutcomeVariables() {
		values, ok := table.Floats(outcome)
		if !ok {
			return nil, core.NewUnknownVariableError(string(outcome))
		}
		treated, control := splitByFlag(values, group)
		results = append(results, a.pooledTTest(outcome, groupKey, treated, control))
	}
	return results, nil
}

// pooledTTest computes the equal-variance two-sample t statistic with
// n1+n2-2 degrees of freedom.
func (a *Analyzer) pooledTTest(outcome, groupKey core.VariableKey, treated, control []float64) study.TTestComparison {
	n1, n2 := len(treated), len(control)
	m1 := meanOf(treated)
	m2 := meanOf(control)
	df := n1 + n2 - 2

	v1 := sampleVariance(treated)
	v2 := sampleVariance(control)

	t := math.NaN()
	if df > 0 {
		pooled := (float64(n1-1)*v1 + float64(n2-1)*v2) / float64(df)
		se := math.Sqrt(pooled * (1/float64(n1) + 1/float64(n2)))
		t = (m1 - m2) / se
	}

	return study.TTestComparison{
		Outcome:     outcome,
		GroupVar:    groupKey,
		TreatedN:    n1,
		ControlN:    n2,
		TreatedMean: m1,
		ControlMean: m2,
		MeanDiff:    m1 - m2,
		TStat:       t,
		DF:          float64(df),
		PValue:      a.dist.TTestPValue(t, df),
	}
}

// splitByFlag partitions values by the paired binary column
func splitByFlag(values, flags []float64) (on, off []float64) {
	for i, v := range values {
		if i >= len(flags) {
			break
		}
		if flags[i] == 1 {
			on = append(on, v)
		} else {
			off = append(off, v)
		}
	}
	return on, off
}

func meanOf(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	m, _ := stats.Mean(values)
	return m
}

func sampleVariance(values []float64) float64 {
	if len(values) < 2 {
		return math.NaN()
	}
	v, _ := stats.SampleVariance(values)
	return v
}
