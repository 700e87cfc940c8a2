package simulate

import (
	"errors"
	"testing"

	"gotrial/domain/cohort"
	"gotrial/domain/core"
)

func TestGenerate_Deterministic(t *testing.T) {
	cfg := Config{Participants: 40, Seed: 42}

	// Generate twice with same seed
	table1, err := Generate(cfg)
	if err != nil {
		t.Fatalf("First generation failed: %v", err)
	}
	table2, err := Generate(cfg)
	if err != nil {
		t.Fatalf("Second generation failed: %v", err)
	}

	// Should be identical down to the hash
	if table1.Fingerprint() != table2.Fingerprint() {
		t.Errorf("Fingerprints differ: %s vs %s", table1.Fingerprint(), table2.Fingerprint())
	}

	// Spot-check raw values column by column
	for _, col := range table1.Columns {
		values2, ok := table2.Floats(col.Spec.Key)
		if !ok {
			t.Fatalf("Column %s missing from second table", col.Spec.Key)
		}
		for i, v := range col.Values {
			if v != values2[i] {
				t.Errorf("Column %s differs at row %d: %v vs %v", col.Spec.Key, i, v, values2[i])
				break
			}
		}
	}
}

func TestGenerate_SeedChangesOutput(t *testing.T) {
	table1, err := Generate(Config{Participants: 40, Seed: 42})
	if err != nil {
		t.Fatalf("Generation failed: %v", err)
	}
	table2, err := Generate(Config{Participants: 40, Seed: 43})
	if err != nil {
		t.Fatalf("Generation failed: %v", err)
	}

	if table1.Fingerprint() == table2.Fingerprint() {
		t.Error("Different seeds produced identical tables")
	}
}

func TestGenerate_BalancedAssignment(t *testing.T) {
	table, err := Generate(Config{Participants: 40, Seed: 42})
	if err != nil {
		t.Fatalf("Generation failed: %v", err)
	}

	llm, _ := table.Floats(cohort.VarLLMUsage)
	herbal, _ := table.Floats(cohort.VarHerbalBlend)

	llmOn := 0
	herbalOn := 0
	cells := map[[2]float64]int{}
	for i := range llm {
		if llm[i] == 1 {
			llmOn++
		}
		if herbal[i] == 1 {
			herbalOn++
		}
		cells[[2]float64{llm[i], herbal[i]}]++
	}

	if llmOn != 20 {
		t.Errorf("Expected 20 LLM users, got %d", llmOn)
	}
	if herbalOn != 20 {
		t.Errorf("Expected 20 herbal users, got %d", herbalOn)
	}

	// 2x2 design: every cell holds a quarter of the cohort
	for cell, count := range cells {
		if count != 10 {
			t.Errorf("Cell llm=%v herbal=%v has %d participants, want 10", cell[0], cell[1], count)
		}
	}
}

func TestGenerate_Bounds(t *testing.T) {
	for _, seed := range []int64{1, 42, 99, 777} {
		table, err := Generate(Config{Participants: 80, Seed: seed})
		if err != nil {
			t.Fatalf("Generation failed for seed %d: %v", seed, err)
		}

		checks := []struct {
			key    core.VariableKey
			lo, hi float64
		}{
			{cohort.VarFinalSelfEfficacy, 1, 5},
			{cohort.VarFinalAnxiety, 1, 4},
			{cohort.VarAge, 18, 29},
		}
		for _, check := range checks {
			values, _ := table.Floats(check.key)
			for i, v := range values {
				if v < check.lo || v > check.hi {
					t.Errorf("seed %d: %s row %d = %v outside [%v, %v]",
						seed, check.key, i, v, check.lo, check.hi)
				}
			}
		}

		errorsFound, _ := table.Floats(cohort.VarErrorsIdentified)
		for i, v := range errorsFound {
			if v < 0 {
				t.Errorf("seed %d: ErrorsIdentified row %d negative: %v", seed, i, v)
			}
		}
		completion, _ := table.Floats(cohort.VarCompletionTime)
		for i, v := range completion {
			if v < 60 {
				t.Errorf("seed %d: CompletionTime row %d below floor: %v", seed, i, v)
			}
		}
	}
}

func TestGenerate_PerformanceFormula(t *testing.T) {
	table, err := Generate(Config{Participants: 40, Seed: 42})
	if err != nil {
		t.Fatalf("Generation failed: %v", err)
	}

	errorsFound, _ := table.Floats(cohort.VarErrorsIdentified)
	completion, _ := table.Floats(cohort.VarCompletionTime)
	performance, _ := table.Floats(cohort.VarPerformance)

	for i := range performance {
		want := (errorsFound[i] + (500-completion[i])/10) / 2
		if performance[i] != want {
			t.Errorf("Performance row %d = %v, want %v", i, performance[i], want)
		}
	}
}

func TestGenerate_SchemaComplete(t *testing.T) {
	table, err := Generate(Config{Participants: 40, Seed: 42})
	if err != nil {
		t.Fatalf("Generation failed: %v", err)
	}

	if table.RowCount() != 40 {
		t.Errorf("Expected 40 rows, got %d", table.RowCount())
	}

	want := cohort.StudySchema()
	if table.ColumnCount() != len(want) {
		t.Fatalf("Expected %d columns, got %d", len(want), table.ColumnCount())
	}
	got := table.Schema()
	for i, spec := range want {
		if got[i].Key != spec.Key {
			t.Errorf("Column %d: got %s, want %s", i, got[i].Key, spec.Key)
		}
		if got[i].Type != spec.Type {
			t.Errorf("Column %s: got type %s, want %s", spec.Key, got[i].Type, spec.Type)
		}
	}

	if err := table.Validate(); err != nil {
		t.Errorf("Generated table failed validation: %v", err)
	}
}

func TestGenerate_CategoricalLabels(t *testing.T) {
	table, err := Generate(Config{Participants: 40, Seed: 42})
	if err != nil {
		t.Fatalf("Generation failed: %v", err)
	}

	genders, ok := table.Labels(cohort.VarGender)
	if !ok {
		t.Fatal("Gender labels unavailable")
	}
	valid := map[string]bool{"Male": true, "Female": true, "Other": true}
	for i, g := range genders {
		if !valid[g] {
			t.Errorf("Row %d: unexpected gender label %q", i, g)
		}
	}
}

func TestGenerate_RejectsBadCounts(t *testing.T) {
	cases := []struct {
		name  string
		count int
		want  error
	}{
		{"zero", 0, core.ErrNonPositiveCount},
		{"negative", -4, core.ErrNonPositiveCount},
		{"not multiple of four", 10, core.ErrUnbalancedCount},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Generate(Config{Participants: tc.count, Seed: 42})
			if err == nil {
				t.Fatalf("Expected error for count %d", tc.count)
			}
			if !errors.Is(err, tc.want) {
				t.Errorf("Expected %v, got %v", tc.want, err)
			}
			if !core.IsInvalidArgument(err) {
				t.Errorf("Error should classify as invalid argument: %v", err)
			}
		})
	}
}

func TestGenerate_InterventionEffects(t *testing.T) {
	// Group means should reflect the simulated effects at n large enough
	// to swamp sampling noise.
	table, err := Generate(Config{Participants: 400, Seed: 42})
	if err != nil {
		t.Fatalf("Generation failed: %v", err)
	}

	llm, _ := table.Floats(cohort.VarLLMUsage)
	finalSE, _ := table.Floats(cohort.VarFinalSelfEfficacy)

	var onSum, offSum float64
	var onN, offN int
	for i := range llm {
		if llm[i] == 1 {
			onSum += finalSE[i]
			onN++
		} else {
			offSum += finalSE[i]
			offN++
		}
	}
	onMean := onSum / float64(onN)
	offMean := offSum / float64(offN)

	if onMean <= offMean {
		t.Errorf("LLM group self-efficacy %v not above control %v", onMean, offMean)
	}
}
