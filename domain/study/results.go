package study

import (
	"math"

	"gotrial/domain/core"
)

// SummaryStats is one variable's descriptive row: count, mean, sd, and the
// five-number summary.
type SummaryStats struct {
	Key    core.VariableKey `json:"key"`
	Count  int              `json:"count"`
	Mean   float64          `json:"mean"`
	SD     float64          `json:"sd"`
	Min    float64          `json:"min"`
	Q1     float64          `json:"q1"`
	Median float64          `json:"median"`
	Q3     float64          `json:"q3"`
	Max    float64          `json:"max"`
}

// Descriptives holds the summary rows for every quantitative column,
// in table order.
type Descriptives struct {
	Rows        []SummaryStats `json:"rows"`
	GeneratedAt core.Timestamp `json:"generated_at"`
}

// Row returns the summary for a variable key
func (d Descriptives) Row(key core.VariableKey) (SummaryStats, bool) {
	for _, row := range d.Rows {
		if row.Key == key {
			return row, true
		}
	}
	return SummaryStats{}, false
}

// CorrelationMatrix is a symmetric Pearson matrix over the listed keys
type CorrelationMatrix struct {
	Keys  []core.VariableKey `json:"keys"`
	Cells [][]float64        `json:"cells"`
}

// At returns the correlation between two keys
func (m CorrelationMatrix) At(a, b core.VariableKey) (float64, bool) {
	ai, bi := -1, -1
	for i, key := range m.Keys {
		if key == a {
			ai = i
		}
		if key == b {
			bi = i
		}
	}
	if ai < 0 || bi < 0 {
		return 0, false
	}
	return m.Cells[ai][bi], true
}

// TTestComparison is an independent two-sample t-test between treatment arms.
// Degenerate groups leave TStat and PValue as NaN rather than hiding the row.
type TTestComparison struct {
	Outcome     core.VariableKey `json:"outcome"`
	GroupVar    core.VariableKey `json:"group_var"`
	TreatedN    int              `json:"treated_n"`
	ControlN    int              `json:"control_n"`
	TreatedMean float64          `json:"treated_mean"`
	ControlMean float64          `json:"control_mean"`
	MeanDiff    float64          `json:"mean_diff"`
	TStat       float64          `json:"t_stat"`
	DF          float64          `json:"df"`
	PValue      float64          `json:"p_value"`
}

// Degenerate reports whether the test could not produce a finite statistic
func (t TTestComparison) Degenerate() bool {
	return math.IsNaN(t.TStat) || math.IsNaN(t.PValue)
}

// CoefEstimate is one regression term's estimate with its inference
// columns, including the 95% interval.
type CoefEstimate struct {
	Term    string  `json:"term"`
	Coef    float64 `json:"coef"`
	StdErr  float64 `json:"std_err"`
	TStat   float64 `json:"t_stat"`
	PValue  float64 `json:"p_value"`
	CILower float64 `json:"ci_lower"`
	CIUpper float64 `json:"ci_upper"`
}

// RegressionResult is a fitted least-squares model with fit diagnostics
type RegressionResult struct {
	Outcome     core.VariableKey `json:"outcome"`
	Terms       []CoefEstimate   `json:"terms"`
	N           int              `json:"n"`
	RSquared    float64          `json:"r_squared"`
	AdjRSquared float64          `json:"adj_r_squared"`
	FStat       float64          `json:"f_stat"`
	FPValue     float64          `json:"f_p_value"`
	DFModel     int              `json:"df_model"`
	DFResid     int              `json:"df_resid"`
}

// Term returns the estimate for a named term ("Intercept" included)
func (r RegressionResult) Term(name string) (CoefEstimate, bool) {
	for _, term := range r.Terms {
		if term.Term == name {
			return term, true
		}
	}
	return CoefEstimate{}, false
}

// BottleneckStep is one row of an IPMA bottleneck table: the predictor
// levels required to reach a target outcome level.
type BottleneckStep struct {
	OutcomeLevel float64            `json:"outcome_level"`
	Required     map[string]float64 `json:"required"`
}

// IPMAResult holds importance-performance output from the R backend.
// EffectSizes may carry nil entries when the backend could not estimate a
// predictor. The zero value is the documented empty result.
type IPMAResult struct {
	Outcome     core.VariableKey    `json:"outcome"`
	EffectSizes map[string]*float64 `json:"effect_sizes"`
	Bottlenecks []BottleneckStep    `json:"bottlenecks"`
	XCeiling    []float64           `json:"x_ceiling"`
	YCeiling    []float64           `json:"y_ceiling"`
	Backend     string              `json:"backend,omitempty"`
}

// IsEmpty reports whether the analysis produced nothing usable
func (r IPMAResult) IsEmpty() bool {
	return len(r.EffectSizes) == 0 && len(r.Bottlenecks) == 0 &&
		len(r.XCeiling) == 0 && len(r.YCeiling) == 0
}

// PathEstimate is one structural relation from a fitted SEM
type PathEstimate struct {
	LHS      string  `json:"lhs"`
	Op       string  `json:"op"`
	RHS      string  `json:"rhs"`
	Estimate float64 `json:"estimate"`
	StdErr   float64 `json:"std_err"`
	ZValue   float64 `json:"z_value"`
	PValue   float64 `json:"p_value"`
}

// ImportanceRow pairs a predictor's total effect with its importance for
// the IPMA scatter.
type ImportanceRow struct {
	Variable   string  `json:"variable"`
	Total      float64 `json:"total"`
	Importance float64 `json:"importance"`
}

// SEMFit is a fitted structural model plus its importance table. A nil
// *SEMFit means the fit failed; Importance may be empty when only the fit
// succeeded.
type SEMFit struct {
	Spec       string          `json:"spec"`
	Converged  bool            `json:"converged"`
	Paths      []PathEstimate  `json:"paths"`
	Importance []ImportanceRow `json:"importance,omitempty"`
	Backend    string          `json:"backend,omitempty"`
}

// KeywordCount is a keyword with its occurrence count across all prompts
type KeywordCount struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

// PromptAnalysis summarizes the simulated participant prompts
type PromptAnalysis struct {
	Prompts       []string       `json:"prompts"`
	AverageLength float64        `json:"average_prompt_length"`
	TopKeywords   []KeywordCount `json:"most_common_keywords"`
	QuestionTypes []string       `json:"question_types"`
}

// InterviewAnalysis summarizes the simulated exit interviews
type InterviewAnalysis struct {
	PerceivedUsefulnessLLM float64  `json:"perceived_usefulness_llm"`
	AnxietyReductionLLM    float64  `json:"anxiety_reduction_llm"`
	AnxietyReductionHerbal float64  `json:"anxiety_reduction_herbal"`
	Feedback               []string `json:"qualitative_feedback"`
}

// QualitativeSummary bundles both qualitative analyses
type QualitativeSummary struct {
	Prompts    PromptAnalysis    `json:"prompts"`
	Interviews InterviewAnalysis `json:"interviews"`
}
