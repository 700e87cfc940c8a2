package analysis

import (
	"errors"
	"math"
	"strconv"
	"testing"

	"gotrial/domain/cohort"
	"gotrial/domain/core"
	"gotrial/internal/simulate"
)

// makeOutcomeTable builds a minimal table carrying the treatment flag and
// all three outcome columns set to the same values.
func makeOutcomeTable(t *testing.T, flags, values []float64) *cohort.Table {
	t.Helper()
	ids := make([]string, len(flags))
	for i := range ids {
		ids[i] = "P" + strconv.Itoa(i+1)
	}
	table := cohort.NewTable(ids)
	if err := table.AddColumn(cohort.ColumnSpec{Key: cohort.VarLLMUsage, Type: cohort.TypeBinary}, flags); err != nil {
		t.Fatalf("AddColumn failed: %v", err)
	}
	for _, key := range cohort.OutcomeVariables() {
		copied := make([]float64, len(values))
		copy(copied, values)
		if err := table.AddColumn(cohort.ColumnSpec{Key: key, Type: cohort.TypeNumeric}, copied); err != nil {
			t.Fatalf("AddColumn failed: %v", err)
		}
	}
	return table
}

// TestSummarize_StudyCohort verifies the summary battery covers every
// quantitative column of a generated cohort, in schema order.
func TestSummarize_StudyCohort(t *testing.T) {
	table := generateCohort(t)
	analyzer := NewAnalyzer()

	desc, err := analyzer.Summarize(table)
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}

	// 21 schema columns minus the two categoricals
	if len(desc.Rows) != 19 {
		t.Fatalf("Expected 19 summary rows, got %d", len(desc.Rows))
	}
	if desc.Rows[0].Key != cohort.VarParticipantID {
		t.Errorf("Expected first row %s, got %s", cohort.VarParticipantID, desc.Rows[0].Key)
	}
	for _, excluded := range []core.VariableKey{cohort.VarGender, cohort.VarProgrammingExperience} {
		if _, ok := desc.Row(excluded); ok {
			t.Errorf("Categorical column %s should not have a summary row", excluded)
		}
	}

	ids, _ := desc.Row(cohort.VarParticipantID)
	if ids.Count != 40 || ids.Min != 1 || ids.Max != 40 || ids.Mean != 20.5 {
		t.Errorf("ParticipantID summary off: %+v", ids)
	}

	age, _ := desc.Row(cohort.VarAge)
	if age.Min < 18 || age.Max > 29 {
		t.Errorf("Age range [%g, %g] outside [18, 29]", age.Min, age.Max)
	}

	llm, _ := desc.Row(cohort.VarLLMUsage)
	if llm.Mean != 0.5 {
		t.Errorf("Expected balanced LLM flag mean 0.5, got %g", llm.Mean)
	}

	for _, row := range desc.Rows {
		if row.Min > row.Q1 || row.Q1 > row.Median || row.Median > row.Q3 || row.Q3 > row.Max {
			t.Errorf("%s: five-number summary out of order: %+v", row.Key, row)
		}
	}
}

// TestSummarize_KnownColumn checks the summary math on a hand-built column
func TestSummarize_KnownColumn(t *testing.T) {
	table := cohort.NewTable([]string{"P1", "P2", "P3", "P4", "P5"})
	spec := cohort.ColumnSpec{Key: cohort.VarAge, Type: cohort.TypeNumeric}
	if err := table.AddColumn(spec, []float64{1, 2, 3, 4, 5}); err != nil {
		t.Fatalf("AddColumn failed: %v", err)
	}

	desc, err := NewAnalyzer().Summarize(table)
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}

	row, ok := desc.Row(cohort.VarAge)
	if !ok {
		t.Fatal("Missing summary row")
	}
	if row.Count != 5 {
		t.Errorf("Expected count 5, got %d", row.Count)
	}
	if row.Mean != 3 {
		t.Errorf("Expected mean 3, got %g", row.Mean)
	}
	if math.Abs(row.SD-math.Sqrt(2.5)) > 1e-12 {
		t.Errorf("Expected sample sd sqrt(2.5), got %g", row.SD)
	}
	if row.Min != 1 || row.Max != 5 || row.Median != 3 {
		t.Errorf("Five-number summary off: %+v", row)
	}
}

// TestSummarize_Idempotent verifies two passes over one table agree
func TestSummarize_Idempotent(t *testing.T) {
	table := generateCohort(t)
	analyzer := NewAnalyzer()

	first, err := analyzer.Summarize(table)
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}
	second, err := analyzer.Summarize(table)
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}

	for i, row := range first.Rows {
		if second.Rows[i] != row {
			t.Errorf("Row %s changed between passes: %+v vs %+v", row.Key, row, second.Rows[i])
		}
	}
}

// TestSummarize_Errors covers the empty and all-categorical tables
func TestSummarize_Errors(t *testing.T) {
	analyzer := NewAnalyzer()

	if _, err := analyzer.Summarize(cohort.NewTable(nil)); !errors.Is(err, core.ErrEmptyTable) {
		t.Errorf("Expected ErrEmptyTable, got %v", err)
	}

	table := cohort.NewTable([]string{"P1", "P2"})
	spec := cohort.ColumnSpec{Key: cohort.VarGender, Type: cohort.TypeCategorical, Levels: cohort.GenderLevels}
	if err := table.AddColumn(spec, []float64{0, 1}); err != nil {
		t.Fatalf("AddColumn failed: %v", err)
	}
	if _, err := analyzer.Summarize(table); !core.IsDataShapeError(err) {
		t.Errorf("Expected data shape error, got %v", err)
	}
}

// TestOutcomeCorrelations_Structure verifies the matrix covers exactly the
// outcome triple with a unit diagonal and symmetric finite cells.
func TestOutcomeCorrelations_Structure(t *testing.T) {
	table := generateCohort(t)

	matrix, err := NewAnalyzer().OutcomeCorrelations(table)
	if err != nil {
		t.Fatalf("OutcomeCorrelations failed: %v", err)
	}

	expected := cohort.OutcomeVariables()
	if len(matrix.Keys) != len(expected) {
		t.Fatalf("Expected %d keys, got %d", len(expected), len(matrix.Keys))
	}
	for i, key := range expected {
		if matrix.Keys[i] != key {
			t.Errorf("Key %d: expected %s, got %s", i, key, matrix.Keys[i])
		}
	}

	for i := range matrix.Cells {
		if matrix.Cells[i][i] != 1 {
			t.Errorf("Diagonal [%d][%d] = %g, expected exactly 1", i, i, matrix.Cells[i][i])
		}
		for j := range matrix.Cells[i] {
			r := matrix.Cells[i][j]
			if matrix.Cells[j][i] != r {
				t.Errorf("Matrix not symmetric at [%d][%d]", i, j)
			}
			if math.IsNaN(r) || math.Abs(r) > 1+1e-12 {
				t.Errorf("Cell [%d][%d] = %g outside [-1, 1]", i, j, r)
			}
		}
	}
}

// TestCorrelationsFor_PerfectPairs checks the sign and magnitude on
// constructed exact relationships.
func TestCorrelationsFor_PerfectPairs(t *testing.T) {
	table := cohort.NewTable([]string{"P1", "P2", "P3", "P4"})
	base := []float64{1, 2, 3, 4}
	negated := []float64{-1, -2, -3, -4}
	if err := table.AddColumn(cohort.ColumnSpec{Key: "x", Type: cohort.TypeNumeric}, base); err != nil {
		t.Fatalf("AddColumn failed: %v", err)
	}
	if err := table.AddColumn(cohort.ColumnSpec{Key: "neg", Type: cohort.TypeNumeric}, negated); err != nil {
		t.Fatalf("AddColumn failed: %v", err)
	}

	matrix, err := NewAnalyzer().CorrelationsFor(table, []core.VariableKey{"x", "neg"})
	if err != nil {
		t.Fatalf("CorrelationsFor failed: %v", err)
	}

	r, _ := matrix.At("x", "neg")
	if math.Abs(r+1) > 1e-9 {
		t.Errorf("Expected correlation -1, got %g", r)
	}
}

// TestCorrelationsFor_ConstantColumn verifies the undefined correlation of
// a zero-variance column is surfaced as NaN, not silently zeroed.
func TestCorrelationsFor_ConstantColumn(t *testing.T) {
	table := cohort.NewTable([]string{"P1", "P2", "P3"})
	if err := table.AddColumn(cohort.ColumnSpec{Key: "x", Type: cohort.TypeNumeric}, []float64{1, 2, 3}); err != nil {
		t.Fatalf("AddColumn failed: %v", err)
	}
	if err := table.AddColumn(cohort.ColumnSpec{Key: "flat", Type: cohort.TypeNumeric}, []float64{7, 7, 7}); err != nil {
		t.Fatalf("AddColumn failed: %v", err)
	}

	matrix, err := NewAnalyzer().CorrelationsFor(table, []core.VariableKey{"x", "flat"})
	if err != nil {
		t.Fatalf("CorrelationsFor failed: %v", err)
	}

	r, _ := matrix.At("x", "flat")
	if !math.IsNaN(r) {
		t.Errorf("Expected NaN for constant column, got %g", r)
	}
	diag, _ := matrix.At("flat", "flat")
	if diag != 1 {
		t.Errorf("Expected diagonal 1, got %g", diag)
	}
}

// TestCorrelationsFor_UnknownKey verifies missing columns are refused
func TestCorrelationsFor_UnknownKey(t *testing.T) {
	table := generateCohort(t)

	_, err := NewAnalyzer().CorrelationsFor(table, []core.VariableKey{"NoSuchColumn"})
	if err == nil {
		t.Fatal("Expected error for unknown key")
	}
	if !errors.Is(err, core.ErrUnknownVariable) {
		t.Errorf("Expected ErrUnknownVariable, got %v", err)
	}
	if !core.IsInvalidArgument(err) {
		t.Errorf("Expected invalid argument kind, got %v", err)
	}
}

// TestCompareArms_StudyCohort verifies the comparison battery on a large
// cohort where the built-in treatment effects are visible.
func TestCompareArms_StudyCohort(t *testing.T) {
	table, err := simulate.Generate(simulate.Config{Participants: 400, Seed: 42})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	results, err := NewAnalyzer().CompareArms(table, cohort.VarLLMUsage)
	if err != nil {
		t.Fatalf("CompareArms failed: %v", err)
	}

	if len(results) != 3 {
		t.Fatalf("Expected 3 comparisons, got %d", len(results))
	}
	for i, key := range cohort.OutcomeVariables() {
		if results[i].Outcome != key {
			t.Errorf("Comparison %d: expected %s, got %s", i, key, results[i].Outcome)
		}
	}

	for _, result := range results {
		if result.TreatedN != 200 || result.ControlN != 200 {
			t.Errorf("%s: expected 200/200 split, got %d/%d", result.Outcome, result.TreatedN, result.ControlN)
		}
		if result.DF != 398 {
			t.Errorf("%s: expected df 398, got %g", result.Outcome, result.DF)
		}
		if result.Degenerate() {
			t.Errorf("%s: unexpected degenerate result", result.Outcome)
		}
		if result.PValue < 0 || result.PValue > 1 {
			t.Errorf("%s: p-value %g outside [0, 1]", result.Outcome, result.PValue)
		}
		if math.Abs(result.MeanDiff-(result.TreatedMean-result.ControlMean)) > 1e-12 {
			t.Errorf("%s: mean diff inconsistent", result.Outcome)
		}
	}

	// Assistance lifts self-efficacy and lowers anxiety at this sample size
	selfEfficacy := results[0]
	if selfEfficacy.TStat <= 0 || selfEfficacy.PValue >= 0.05 {
		t.Errorf("Expected a clear positive self-efficacy shift, got t=%g p=%g", selfEfficacy.TStat, selfEfficacy.PValue)
	}
	anxiety := results[1]
	if anxiety.TStat >= 0 || anxiety.PValue >= 0.05 {
		t.Errorf("Expected a clear negative anxiety shift, got t=%g p=%g", anxiety.TStat, anxiety.PValue)
	}
}

// TestCompareArms_IdenticalGroups verifies equal groups with spread give
// t=0 and p=1.
func TestCompareArms_IdenticalGroups(t *testing.T) {
	table := makeOutcomeTable(t, []float64{1, 1, 0, 0}, []float64{1, 2, 1, 2})

	results, err := NewAnalyzer().CompareArms(table, cohort.VarLLMUsage)
	if err != nil {
		t.Fatalf("CompareArms failed: %v", err)
	}

	for _, result := range results {
		if result.TStat != 0 {
			t.Errorf("%s: expected t 0, got %g", result.Outcome, result.TStat)
		}
		if math.Abs(result.PValue-1) > 1e-12 {
			t.Errorf("%s: expected p 1, got %g", result.Outcome, result.PValue)
		}
	}
}

// TestCompareArms_DegenerateGroups verifies undersized and zero-variance
// subsets surface NaN rows instead of dropping the comparison.
func TestCompareArms_DegenerateGroups(t *testing.T) {
	tests := []struct {
		name   string
		flags  []float64
		values []float64
	}{
		{"single treated observation", []float64{1, 0, 0, 0}, []float64{5, 1, 2, 3}},
		{"zero variance both arms", []float64{1, 1, 0, 0}, []float64{3, 3, 3, 3}},
		{"empty treated arm", []float64{0, 0, 0, 0}, []float64{1, 2, 3, 4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := makeOutcomeTable(t, tt.flags, tt.values)

			results, err := NewAnalyzer().CompareArms(table, cohort.VarLLMUsage)
			if err != nil {
				t.Fatalf("CompareArms failed: %v", err)
			}
			if len(results) != 3 {
				t.Fatalf("Expected 3 comparisons, got %d", len(results))
			}
			for _, result := range results {
				if !result.Degenerate() {
					t.Errorf("%s: expected NaN statistics, got t=%g p=%g", result.Outcome, result.TStat, result.PValue)
				}
			}
		})
	}
}

// TestCompareArms_UnknownGroup verifies a missing group column is refused
func TestCompareArms_UnknownGroup(t *testing.T) {
	table := generateCohort(t)

	_, err := NewAnalyzer().CompareArms(table, "NoSuchFlag")
	if !errors.Is(err, core.ErrUnknownVariable) {
		t.Errorf("Expected ErrUnknownVariable, got %v", err)
	}
}
