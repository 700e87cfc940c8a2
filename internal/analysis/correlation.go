package analysis

import (
	"math"

	"github.com/montanaflynn/stats"

	"gotrial/domain/cohort"
	"gotrial/domain/core"
	"gotrial/domain/study"
)

// OutcomeCorrelations computes the Pearson matrix over the three outcome
// columns: final self-efficacy, final anxiety, performance.
func (a *Analyzer) OutcomeCorrelations(table *cohort.Table) (study.CorrelationMatrix, error) {
	return a.CorrelationsFor(table, cohort.OutcomeVariables())
}

// CorrelationsFor computes a symmetric Pearson matrix over the given keys.
// A constant column correlates as NaN with everything; the NaN is carried
// in the matrix, not suppressed.
func (a *Analyzer) CorrelationsFor(table *cohort.Table, keys []core.VariableKey) (study.CorrelationMatrix, error) {
	columns := make([][]float64, len(keys))
	for i, key := range keys {
		values, ok := table.Floats(key)
		if !ok {
			return study.CorrelationMatrix{}, core.NewUnknownVariableError(string(key))
		}
		columns[i] = values
	}

	cells := make([][]float64, len(keys))
	for i := range cells {
		cells[i] = make([]float64, len(keys))
		cells[i][i] = 1
	}
	for i := 0; i < len(keys); i++ {
		for j := i + 1; j < len(keys); j++ {
			r := pearsonOrNaN(columns[i], columns[j])
			cells[i][j] = r
			cells[j][i] = r
		}
	}

	matrixKeys := make([]core.VariableKey, len(keys))
	copy(matrixKeys, keys)
	return study.CorrelationMatrix{Keys: matrixKeys, Cells: cells}, nil
}

// pearsonOrNaN reports the undefined correlation of a zero-variance column
// as NaN; stats.Pearson would map it to 0.
func pearsonOrNaN(x, y []float64) float64 {
	sx, _ := stats.StandardDeviationPopulation(x)
	sy, _ := stats.StandardDeviationPopulation(y)
	if sx == 0 || sy == 0 || math.IsNaN(sx) || math.IsNaN(sy) {
		return math.NaN()
	}
	r, err := stats.Pearson(x, y)
	if err != nil {
		return math.NaN()
	}
	return r
}
