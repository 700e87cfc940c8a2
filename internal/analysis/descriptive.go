package analysis

import (
	"github.com/montanaflynn/stats"

	"gotrial/domain/cohort"
	"gotrial/domain/core"
	"gotrial/domain/study"
)

// Analyzer computes the descriptive battery over a participant table.
// Every method is a pure function of its inputs: calling one twice on the
// same table yields identical results.
type Analyzer struct {
	dist *StatisticalDistributions
}

// NewAnalyzer creates an analyzer
func NewAnalyzer() *Analyzer {
	return &Analyzer{dist: NewDistributions()}
}

// Summarize computes count, mean, sd, and the five-number summary for
// every quantitative column, in schema order.
func (a *Analyzer) Summarize(table *cohort.Table) (study.Descriptives, error) {
	if table.RowCount() == 0 {
		return study.Descriptives{}, core.ErrEmptyTable
	}

	var rows []study.SummaryStats
	for _, col := range table.Columns {
		switch col.Spec.Type {
		case cohort.TypeIdentifier, cohort.TypeNumeric, cohort.TypeBinary:
		default:
			continue
		}
		rows = append(rows, summarizeColumn(col.Spec.Key, col.Values))
	}
	if len(rows) == 0 {
		return study.Descriptives{}, core.NewDataShapeError("no quantitative columns to summarize")
	}

	return study.Descriptives{Rows: rows, GeneratedAt: core.Now()}, nil
}

func summarizeColumn(key core.VariableKey, values []float64) study.SummaryStats {
	mean, _ := stats.Mean(values)
	sd, _ := stats.StandardDeviationSample(values)
	min, _ := stats.Min(values)
	max, _ := stats.Max(values)
	median, _ := stats.Median(values)
	q1, _ := stats.Percentile(values, 25)
	q3, _ := stats.Percentile(values, 75)

	return study.SummaryStats{
		Key:    key,
		Count:  len(values),
		Mean:   mean,
		SD:     sd,
		Min:    min,
		Q1:     q1,
		Median: median,
		Q3:     q3,
		Max:    max,
	}
}
