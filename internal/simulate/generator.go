package simulate

import (
	"fmt"
	"math"
	"math/rand"

	"gotrial/domain/cohort"
	"gotrial/domain/core"
)

// Config controls cohort generation. The seed fully determines the output:
// equal (Participants, Seed) pairs produce byte-identical tables.
type Config struct {
	Participants int
	Seed         int64
}

func DefaultConfig() Config {
	return Config{
		Participants: 40,
		Seed:         42,
	}
}

// Generate simulates a balanced debugging-experiment cohort: demographics,
// a 2x2 LLM/herbal assignment, psychological measures before and after the
// task, performance, and neurophysiological channels.
//
// Columns are drawn one at a time from a single seeded source, so the draw
// sequence is part of the reproducibility contract. Intervention effects
// are applied after all base draws, then bounds, then the combined
// Performance score.
func Generate(cfg Config) (*cohort.Table, error) {
	if cfg.Participants <= 0 {
		return nil, fmt.Errorf("%w: got %d", core.ErrNonPositiveCount, cfg.Participants)
	}
	if cfg.Participants%4 != 0 {
		return nil, fmt.Errorf("%w: got %d", core.ErrUnbalancedCount, cfg.Participants)
	}

	n := cfg.Participants
	rng := rand.New(rand.NewSource(cfg.Seed))

	// Demographics
	age := drawIntn(rng, 18, 30, n)
	gender := drawChoice(rng, cohort.GenderLevels, n)
	experience := drawChoice(rng, cohort.ExperienceLevels, n)

	// Group assignment (balanced 2x2 blocks)
	llmUsage := repeatPattern([]float64{1, 1, 0, 0}, n)
	herbalBlend := repeatPattern([]float64{1, 0, 1, 0}, n)

	// Psychological measures (initial and final)
	initialSelfEfficacy := drawNormal(rng, 3.5, 0.5, n)
	initialAnxiety := drawNormal(rng, 2.5, 0.6, n)
	finalSelfEfficacy := copyColumn(initialSelfEfficacy)
	finalAnxiety := copyColumn(initialAnxiety)

	// Performance measures
	errorsIdentified := drawIntn(rng, 5, 20, n)
	completionTime := drawUniform(rng, 180, 400, n)

	// Intervention effects
	for i := 0; i < n; i++ {
		if llmUsage[i] == 1 {
			finalSelfEfficacy[i] += 0.5
			finalAnxiety[i] -= 0.4
			errorsIdentified[i] += 3
			completionTime[i] -= 15
		}
		if herbalBlend[i] == 1 {
			finalAnxiety[i] -= 0.3
			errorsIdentified[i] += 1
		}
	}

	// Bounds
	for i := 0; i < n; i++ {
		finalSelfEfficacy[i] = clip(finalSelfEfficacy[i], 1, 5)
		finalAnxiety[i] = clip(finalAnxiety[i], 1, 4)
		errorsIdentified[i] = math.Max(0, errorsIdentified[i])
		completionTime[i] = math.Max(60, completionTime[i])
	}

	// Combined performance score: errors found plus inverted, rescaled time
	performance := make([]float64, n)
	for i := 0; i < n; i++ {
		performance[i] = (errorsIdentified[i] + (500-completionTime[i])/10) / 2
	}

	// Neurophysiological channels
	eegAlpha := drawNormal(rng, 10, 2, n)
	eegBeta := drawNormal(rng, 18, 3, n)
	ecgHR := drawNormal(rng, 75, 10, n)
	edaSCR := drawNormal(rng, 0.5, 0.2, n)
	pogFixations := drawIntn(rng, 20, 100, n)
	pogFixationDuration := drawUniform(rng, 200, 500, n)
	pogPupilDiameter := drawNormal(rng, 3.5, 0.5, n)
	pogBlinkRate := drawUniform(rng, 10, 30, n)

	// Intervention effects on physiology
	for i := 0; i < n; i++ {
		if llmUsage[i] == 1 {
			eegBeta[i] += 2
			pogFixations[i] -= 5
			pogFixationDuration[i] += 50
		}
		if herbalBlend[i] == 1 {
			ecgHR[i] -= 5
			edaSCR[i] -= 0.1
		}
	}

	participantID := make([]float64, n)
	entityIDs := make([]string, n)
	for i := 0; i < n; i++ {
		participantID[i] = float64(i + 1)
		entityIDs[i] = fmt.Sprintf("P%d", i+1)
	}

	table := cohort.NewTable(entityIDs)
	schema := cohort.StudySchema()
	columns := map[core.VariableKey][]float64{
		cohort.VarParticipantID:         participantID,
		cohort.VarAge:                   age,
		cohort.VarGender:                gender,
		cohort.VarProgrammingExperience: experience,
		cohort.VarLLMUsage:              llmUsage,
		cohort.VarHerbalBlend:           herbalBlend,
		cohort.VarInitialSelfEfficacy:   initialSelfEfficacy,
		cohort.VarFinalSelfEfficacy:     finalSelfEfficacy,
		cohort.VarInitialAnxiety:        initialAnxiety,
		cohort.VarFinalAnxiety:          finalAnxiety,
		cohort.VarErrorsIdentified:      errorsIdentified,
		cohort.VarCompletionTime:        completionTime,
		cohort.VarPerformance:           performance,
		cohort.VarEEGAlpha:              eegAlpha,
		cohort.VarEEGBeta:               eegBeta,
		cohort.VarECGHeartRate:          ecgHR,
		cohort.VarEDASkinConductance:    edaSCR,
		cohort.VarPOGFixations:          pogFixations,
		cohort.VarPOGFixationDuration:   pogFixationDuration,
		cohort.VarPOGPupilDiameter:      pogPupilDiameter,
		cohort.VarPOGBlinkRate:          pogBlinkRate,
	}
	for _, spec := range schema {
		if err := table.AddColumn(spec, columns[spec.Key]); err != nil {
			return nil, err
		}
	}
	return table, nil
}

// drawIntn fills a column with integers from [lo, hi)
func drawIntn(rng *rand.Rand, lo, hi, n int) []float64 {
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = float64(lo + rng.Intn(hi-lo))
	}
	return out
}

// drawNormal fills a column with draws from N(mean, sd)
func drawNormal(rng *rand.Rand, mean, sd float64, n int) []float64 {
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = mean + rng.NormFloat64()*sd
	}
	return out
}

// drawUniform fills a column with draws from U[lo, hi)
func drawUniform(rng *rand.Rand, lo, hi float64, n int) []float64 {
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = lo + rng.Float64()*(hi-lo)
	}
	return out
}

// drawChoice fills a column with uniform level codes
func drawChoice(rng *rand.Rand, levels []string, n int) []float64 {
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = float64(rng.Intn(len(levels)))
	}
	return out
}

// repeatPattern tiles the block pattern across n rows
func repeatPattern(pattern []float64, n int) []float64 {
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = pattern[i%len(pattern)]
	}
	return out
}

func copyColumn(src []float64) []float64 {
	out := make([]float64, len(src))
	copy(out, src)
	return out
}

func clip(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
