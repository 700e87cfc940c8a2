package analysis

import (
	"fmt"
	"math"
	"sort"

	"github.com/montanaflynn/stats"

	"gotrial/domain/cohort"
	"gotrial/domain/core"
)

// Preprocess builds the model-ready feature table from a raw cohort:
// identity and raw outcome columns are dropped, every categorical column is
// expanded into one indicator per declared level (no reference level
// dropped), numeric columns are standardized against location/scale fitted
// on this same table, and the composite Performance target is re-attached
// unscaled as the last column.
//
// Column handling dispatches on the declared schema type, never on value
// inspection, so binary treatment flags and fresh indicators keep their 0/1
// coding. The input table is never mutated.
func Preprocess(table *cohort.Table) (*cohort.Table, error) {
	if table.RowCount() == 0 {
		return nil, core.ErrEmptyTable
	}

	dropped := make(map[core.VariableKey]bool)
	for _, key := range cohort.DroppedFromFeatures() {
		dropped[key] = true
	}

	out := cohort.NewTable(table.EntityIDs)
	scaledNumeric := 0

	// Non-categorical features first, in input order
	for _, col := range table.Columns {
		if dropped[col.Spec.Key] {
			continue
		}
		switch col.Spec.Type {
		case cohort.TypeNumeric:
			if err := out.AddColumn(col.Spec, standardize(col.Values)); err != nil {
				return nil, err
			}
			scaledNumeric++
		case cohort.TypeBinary:
			values := make([]float64, len(col.Values))
			copy(values, col.Values)
			if err := out.AddColumn(col.Spec, values); err != nil {
				return nil, err
			}
		}
	}

	// Indicator expansion appends after the retained features, one block
	// per categorical column, levels in lexical order.
	for _, col := range table.Columns {
		if dropped[col.Spec.Key] || !col.Spec.IsCategorical() {
			continue
		}
		for _, level := range sortedLevels(col.Spec.Levels) {
			code := levelCode(col.Spec.Levels, level)
			values := make([]float64, len(col.Values))
			for i, v := range col.Values {
				if int(v) == code {
					values[i] = 1
				}
			}
			spec := cohort.ColumnSpec{
				Key:  indicatorKey(col.Spec.Key, level),
				Type: cohort.TypeBinary,
			}
			if err := out.AddColumn(spec, values); err != nil {
				return nil, err
			}
		}
	}

	if scaledNumeric == 0 {
		return nil, fmt.Errorf("%w: feature set %v", core.ErrNoNumericColumns, out.Schema().Keys())
	}

	// Modeling target rides along untouched
	if target, ok := table.Floats(cohort.VarPerformance); ok {
		spec, _ := table.Schema().Spec(cohort.VarPerformance)
		if err := out.AddColumn(spec, target); err != nil {
			return nil, err
		}
	}

	return out, nil
}

// standardize transforms values to zero mean and unit sample variance.
// A constant column is centered only.
func standardize(values []float64) []float64 {
	mean, _ := stats.Mean(values)
	sd, _ := stats.StandardDeviationSample(values)
	if sd == 0 || math.IsNaN(sd) {
		sd = 1
	}

	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = (v - mean) / sd
	}
	return out
}

func sortedLevels(levels []string) []string {
	out := make([]string, len(levels))
	copy(out, levels)
	sort.Strings(out)
	return out
}

func levelCode(levels []string, label string) int {
	for i, l := range levels {
		if l == label {
			return i
		}
	}
	return -1
}

func indicatorKey(key core.VariableKey, level string) core.VariableKey {
	return core.VariableKey(fmt.Sprintf("%s_%s", key, level))
}
