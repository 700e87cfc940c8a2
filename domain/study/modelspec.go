package study

import (
	"fmt"
	"strings"

	"gotrial/domain/cohort"
	"gotrial/domain/core"
)

// Relation is one structural equation: an outcome regressed on predictors
type Relation struct {
	Outcome    string   `json:"outcome"`
	Predictors []string `json:"predictors"`
}

// ModelSpec is a parsed structural model. The source text uses one relation
// per line, `outcome ~ pred + pred`, with `#` starting a comment.
type ModelSpec struct {
	Source    string     `json:"source"`
	Relations []Relation `json:"relations"`
}

// ParseModelSpec parses structural-model text into relations
func ParseModelSpec(text string) (*ModelSpec, error) {
	spec := &ModelSpec{Source: text}
	for lineNo, raw := range strings.Split(text, "\n") {
		line := raw
		if idx := strings.Index(line, "#"); idx >= 0 {
			line = line[:idx]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, "~", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("%w: line %d: missing '~'", core.ErrInvalidModelSpec, lineNo+1)
		}
		outcome := strings.TrimSpace(parts[0])
		if outcome == "" || strings.ContainsAny(outcome, " \t+~") {
			return nil, fmt.Errorf("%w: line %d: bad outcome %q", core.ErrInvalidModelSpec, lineNo+1, parts[0])
		}
		var predictors []string
		for _, term := range strings.Split(parts[1], "+") {
			term = strings.TrimSpace(term)
			if term == "" {
				return nil, fmt.Errorf("%w: line %d: empty predictor term", core.ErrInvalidModelSpec, lineNo+1)
			}
			if strings.ContainsAny(term, " \t~") {
				return nil, fmt.Errorf("%w: line %d: bad predictor %q", core.ErrInvalidModelSpec, lineNo+1, term)
			}
			predictors = append(predictors, term)
		}
		if len(predictors) == 0 {
			return nil, fmt.Errorf("%w: line %d: no predictors", core.ErrInvalidModelSpec, lineNo+1)
		}
		spec.Relations = append(spec.Relations, Relation{Outcome: outcome, Predictors: predictors})
	}
	if len(spec.Relations) == 0 {
		return nil, fmt.Errorf("%w: no relations", core.ErrInvalidModelSpec)
	}
	return spec, nil
}

// DefaultModelSpec is the basic study model: LLM use shifts self-efficacy
// and anxiety, the herbal blend shifts anxiety, and both mediators carry
// into performance alongside the direct LLM path.
func DefaultModelSpec() *ModelSpec {
	text := strings.Join([]string{
		"FinalSelfEfficacy ~ LLMUsage",
		"FinalAnxiety ~ LLMUsage + HerbalBlend",
		"Performance ~ LLMUsage + FinalSelfEfficacy + FinalAnxiety",
	}, "\n")
	spec, err := ParseModelSpec(text)
	if err != nil {
		panic(fmt.Sprintf("default model spec invalid: %v", err))
	}
	return spec
}

// Variables returns every distinct variable named in the model, outcomes
// first, in first-appearance order.
func (m *ModelSpec) Variables() []string {
	seen := make(map[string]bool)
	var vars []string
	add := func(v string) {
		if !seen[v] {
			seen[v] = true
			vars = append(vars, v)
		}
	}
	for _, rel := range m.Relations {
		add(rel.Outcome)
	}
	for _, rel := range m.Relations {
		for _, p := range rel.Predictors {
			add(p)
		}
	}
	return vars
}

// Validate checks every named variable against the table schema
func (m *ModelSpec) Validate(schema cohort.Schema) error {
	for _, v := range m.Variables() {
		if !schema.Has(core.VariableKey(v)) {
			return core.NewUnknownVariableError(v)
		}
	}
	return nil
}
