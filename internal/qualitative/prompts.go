package qualitative

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"

	"gotrial/domain/cohort"
	"gotrial/domain/core"
	"gotrial/domain/study"
)

// Simulator generates and analyzes the qualitative side channels of a
// study run: participant prompts and exit interviews. All randomness comes
// from one seeded source, so a seed fixes both analyses.
type Simulator struct {
	rng *rand.Rand
}

// NewSimulator creates a simulator with its own seeded source
func NewSimulator(seed int64) *Simulator {
	return &Simulator{rng: rand.New(rand.NewSource(seed))}
}

var promptKinds = []string{"debug", "explain", "optimize"}

// Filler words excluded from keyword counting
var promptStopwords = map[string]bool{
	"i": true, "this": true, "the": true, "a": true, "in": true,
	"on": true, "can": true, "you": true, "me": true, "what": true,
	"how": true, "is": true, "do": true, "does": true, "an": true,
	"here": true, "fix": true,
}

// AnalyzePrompts simulates one prompt per participant and summarizes the
// corpus. Assisted participants ask a specific debug, explain, or optimize
// question; the rest ask for a generic hint.
func (s *Simulator) AnalyzePrompts(table *cohort.Table) (study.PromptAnalysis, error) {
	flags, ok := table.Floats(cohort.VarLLMUsage)
	if !ok {
		return study.PromptAnalysis{}, core.NewUnknownVariableError(string(cohort.VarLLMUsage))
	}

	prompts := make([]string, 0, len(flags))
	for i, flag := range flags {
		if flag == 1 {
			switch s.rng.Intn(len(promptKinds)) {
			case 0:
				prompts = append(prompts, fmt.Sprintf("P%d: Find the error in this code: `x = 10; y = 0; z = x / y`", i+1))
			case 1:
				prompts = append(prompts, fmt.Sprintf("P%d: Explain what this function does: `def add(a, b): return a + b`", i+1))
			default:
				prompts = append(prompts, fmt.Sprintf("P%d: How can I make this code faster: `for i in range(1000000): pass`", i+1))
			}
		} else {
			prompts = append(prompts, fmt.Sprintf("P%d: I'm stuck on this task, can you give me a hint?", i+1))
		}
	}

	return study.PromptAnalysis{
		Prompts:       prompts,
		AverageLength: averageWordCount(prompts),
		TopKeywords:   topKeywords(prompts, 5),
		QuestionTypes: []string{"debug", "explain", "optimize", "general help"},
	}, nil
}

func averageWordCount(prompts []string) float64 {
	if len(prompts) == 0 {
		return 0
	}
	total := 0
	for _, p := range prompts {
		total += len(strings.Fields(p))
	}
	return float64(total) / float64(len(prompts))
}

// topKeywords counts non-stopword tokens across all prompts and returns the
// n most frequent. Ties keep first-appearance order.
func topKeywords(prompts []string, n int) []study.KeywordCount {
	counts := make(map[string]int)
	var order []string
	for _, p := range prompts {
		for _, word := range strings.Fields(strings.ToLower(p)) {
			if promptStopwords[word] {
				continue
			}
			if counts[word] == 0 {
				order = append(order, word)
			}
			counts[word]++
		}
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	if len(order) > n {
		order = order[:n]
	}

	top := make([]study.KeywordCount, len(order))
	for i, word := range order {
		top[i] = study.KeywordCount{Word: word, Count: counts[word]}
	}
	return top
}
