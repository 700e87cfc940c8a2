package qualitative

import (
	"fmt"

	"gotrial/domain/cohort"
	"gotrial/domain/core"
	"gotrial/domain/study"
)

var assistedFeedback = []string{
	"The LLM helped me find the bug quickly.",
	"I understood the code better with the LLM's explanation.",
	"The LLM gave me suggestions I wouldn't have thought of.",
}

var unassistedFeedback = []string{
	"I wish I had a tool to help me understand the code.",
	"I spent a lot of time trying to find the error myself.",
	"It was difficult to debug without assistance.",
}

// AnalyzeInterviews simulates one exit-interview quote per participant and
// scores the perceived effect of each intervention. Cohorts without an
// exposed arm score on the lower band.
func (s *Simulator) AnalyzeInterviews(table *cohort.Table) (study.InterviewAnalysis, error) {
	llm, ok := table.Floats(cohort.VarLLMUsage)
	if !ok {
		return study.InterviewAnalysis{}, core.NewUnknownVariableError(string(cohort.VarLLMUsage))
	}
	herbal, ok := table.Floats(cohort.VarHerbalBlend)
	if !ok {
		return study.InterviewAnalysis{}, core.NewUnknownVariableError(string(cohort.VarHerbalBlend))
	}

	feedback := make([]string, 0, len(llm))
	for i, flag := range llm {
		var quote string
		if flag == 1 {
			quote = s.choose(assistedFeedback)
		} else {
			quote = s.choose(unassistedFeedback)
		}
		feedback = append(feedback, fmt.Sprintf("P%d: %s", i+1, quote))
	}

	result := study.InterviewAnalysis{Feedback: feedback}
	if anyFlag(llm) {
		result.PerceivedUsefulnessLLM = s.uniform(3, 5)
		result.AnxietyReductionLLM = s.uniform(1, 3)
	} else {
		result.PerceivedUsefulnessLLM = s.uniform(1, 3)
		result.AnxietyReductionLLM = s.uniform(0, 1)
	}
	if anyFlag(herbal) {
		result.AnxietyReductionHerbal = s.uniform(1, 3)
	} else {
		result.AnxietyReductionHerbal = s.uniform(0, 1)
	}
	return result, nil
}

// Summarize runs both qualitative analyses in their fixed order
func (s *Simulator) Summarize(table *cohort.Table) (study.QualitativeSummary, error) {
	prompts, err := s.AnalyzePrompts(table)
	if err != nil {
		return study.QualitativeSummary{}, err
	}
	interviews, err := s.AnalyzeInterviews(table)
	if err != nil {
		return study.QualitativeSummary{}, err
	}
	return study.QualitativeSummary{Prompts: prompts, Interviews: interviews}, nil
}

func (s *Simulator) choose(options []string) string {
	return options[s.rng.Intn(len(options))]
}

func (s *Simulator) uniform(lo, hi float64) float64 {
	return lo + s.rng.Float64()*(hi-lo)
}

func anyFlag(values []float64) bool {
	for _, v := range values {
		if v == 1 {
			return true
		}
	}
	return false
}
