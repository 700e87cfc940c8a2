package render

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"

	"golang.org/x/sync/semaphore"

	"gotrial/domain/cohort"
	"gotrial/domain/core"
)

// Battery renders the standard figure set for a study cohort: violins for
// each intervention against the task outcomes, stacked group means across
// the demographic splits, and the hypothesized path diagram. Figures render
// concurrently under a weighted semaphore.
type Battery struct {
	renderer *Renderer
	sem      *semaphore.Weighted
}

// NewBattery wraps a renderer with bounded parallelism. maxParallel values
// below one fall back to four concurrent figures.
func NewBattery(renderer *Renderer, maxParallel int64) *Battery {
	if maxParallel < 1 {
		maxParallel = 4
	}
	return &Battery{
		renderer: renderer,
		sem:      semaphore.NewWeighted(maxParallel),
	}
}

type chartJob struct {
	filename string
	build    func() ([]byte, error)
}

// RenderStudyCharts writes the full figure battery into outDir and returns
// the paths written, sorted. Figures that fail leave the rest of the battery
// running; the joined error reports every failure.
func (b *Battery) RenderStudyCharts(ctx context.Context, table *cohort.Table, outDir string) ([]string, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("create chart directory %s: %w", outDir, err)
	}

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		written []string
		errs    []error
	)
	for _, job := range b.studyJobs(table) {
		if err := b.sem.Acquire(ctx, 1); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", job.filename, err))
			break
		}
		wg.Add(1)
		go func(job chartJob) {
			defer wg.Done()
			defer b.sem.Release(1)
			path := filepath.Join(outDir, job.filename)
			data, err := job.build()
			if err == nil {
				err = os.WriteFile(path, data, 0o644)
			}
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				log.Printf("[ChartBattery] %s failed: %v", job.filename, err)
				errs = append(errs, fmt.Errorf("%s: %w", job.filename, err))
				return
			}
			log.Printf("[ChartBattery] wrote %s", path)
			written = append(written, path)
		}(job)
	}
	wg.Wait()

	sort.Strings(written)
	if len(errs) > 0 {
		return written, errors.Join(errs...)
	}
	return written, nil
}

func (b *Battery) studyJobs(table *cohort.Table) []chartJob {
	return []chartJob{
		b.violinJob(table, "llm_completion_violin.png", cohort.VarLLMUsage, cohort.VarCompletionTime),
		b.violinJob(table, "llm_errors_violin.png", cohort.VarLLMUsage, cohort.VarErrorsIdentified),
		b.violinJob(table, "herbal_completion_violin.png", cohort.VarHerbalBlend, cohort.VarCompletionTime),
		b.violinJob(table, "herbal_errors_violin.png", cohort.VarHerbalBlend, cohort.VarErrorsIdentified),
		b.violinJob(table, "llm_selfefficacy_violin.png", cohort.VarLLMUsage, cohort.VarFinalSelfEfficacy),
		b.violinJob(table, "herbal_anxiety_violin.png", cohort.VarHerbalBlend, cohort.VarFinalAnxiety),
		b.stackedJob(table, "experience_completion_llm_stackedbar.png", cohort.VarProgrammingExperience, cohort.VarCompletionTime, cohort.VarLLMUsage),
		b.stackedJob(table, "experience_errors_llm_stackedbar.png", cohort.VarProgrammingExperience, cohort.VarErrorsIdentified, cohort.VarLLMUsage),
		b.stackedJob(table, "experience_selfefficacy_llm_stackedbar.png", cohort.VarProgrammingExperience, cohort.VarFinalSelfEfficacy, cohort.VarLLMUsage),
		b.stackedJob(table, "experience_anxiety_llm_stackedbar.png", cohort.VarProgrammingExperience, cohort.VarFinalAnxiety, cohort.VarLLMUsage),
		b.stackedJob(table, "gender_completion_herbal_stackedbar.png", cohort.VarGender, cohort.VarCompletionTime, cohort.VarHerbalBlend),
		b.stackedJob(table, "gender_errors_herbal_stackedbar.png", cohort.VarGender, cohort.VarErrorsIdentified, cohort.VarHerbalBlend),
		{filename: "sem_diagram_basic.png", build: func() ([]byte, error) {
			return b.renderer.PathDiagram(DefaultDiagram())
		}},
	}
}

func (b *Battery) violinJob(table *cohort.Table, filename string, groupKey, valueKey core.VariableKey) chartJob {
	return chartJob{filename: filename, build: func() ([]byte, error) {
		groups, order, err := GroupValues(table, groupKey, valueKey)
		if err != nil {
			return nil, err
		}
		return b.renderer.Violin(groups, order, string(groupKey), string(valueKey))
	}}
}

func (b *Battery) stackedJob(table *cohort.Table, filename string, categoryKey, valueKey, stackKey core.VariableKey) chartJob {
	return chartJob{filename: filename, build: func() ([]byte, error) {
		categories, stacks, err := stackedMeans(table, categoryKey, valueKey, stackKey)
		if err != nil {
			return nil, err
		}
		return b.renderer.StackedGroupMeans(categories, stacks, string(categoryKey), string(valueKey), string(stackKey))
	}}
}

// GroupValues splits a value column by the labels of a discrete grouping
// column. Group labels come back sorted, which is also the display order.
func GroupValues(table *cohort.Table, groupKey, valueKey core.VariableKey) (map[string][]float64, []string, error) {
	labels, err := rowLabels(table, groupKey)
	if err != nil {
		return nil, nil, err
	}
	spec, ok := table.Schema().Spec(valueKey)
	if !ok {
		return nil, nil, core.NewUnknownVariableError(string(valueKey))
	}
	if spec.Type != cohort.TypeNumeric && spec.Type != cohort.TypeBinary {
		return nil, nil, core.NewDataShapeError(fmt.Sprintf(
			"column %s is %s, cannot be plotted as values", valueKey, spec.Type))
	}
	values, _ := table.Floats(valueKey)

	groups := make(map[string][]float64)
	var order []string
	for i, label := range labels {
		if _, seen := groups[label]; !seen {
			order = append(order, label)
		}
		groups[label] = append(groups[label], values[i])
	}
	sort.Strings(order)
	return groups, order, nil
}

// stackedMeans computes the mean of the value column for every category and
// stack level pair. Cells with no observations come back NaN.
func stackedMeans(table *cohort.Table, categoryKey, valueKey, stackKey core.VariableKey) ([]string, [][]float64, error) {
	catLabels, err := rowLabels(table, categoryKey)
	if err != nil {
		return nil, nil, err
	}
	stackLabels, err := rowLabels(table, stackKey)
	if err != nil {
		return nil, nil, err
	}
	values, ok := table.Floats(valueKey)
	if !ok {
		return nil, nil, core.NewUnknownVariableError(string(valueKey))
	}

	categories := distinctSorted(catLabels)
	levels := distinctSorted(stackLabels)
	catIndex := indexOf(categories)
	levelIndex := indexOf(levels)

	sums := make([][]float64, len(levels))
	counts := make([][]int, len(levels))
	for k := range levels {
		sums[k] = make([]float64, len(categories))
		counts[k] = make([]int, len(categories))
	}
	for i := range values {
		k := levelIndex[stackLabels[i]]
		c := catIndex[catLabels[i]]
		sums[k][c] += values[i]
		counts[k][c]++
	}

	stacks := make([][]float64, len(levels))
	for k := range levels {
		stacks[k] = make([]float64, len(categories))
		for c := range categories {
			if counts[k][c] == 0 {
				stacks[k][c] = math.NaN()
				continue
			}
			stacks[k][c] = sums[k][c] / float64(counts[k][c])
		}
	}
	return categories, stacks, nil
}

// rowLabels resolves a discrete grouping column to one label per row.
// Categorical columns decode their level labels, binary columns format the
// flag value. Continuous columns cannot group.
func rowLabels(table *cohort.Table, key core.VariableKey) ([]string, error) {
	spec, ok := table.Schema().Spec(key)
	if !ok {
		return nil, core.NewUnknownVariableError(string(key))
	}
	switch spec.Type {
	case cohort.TypeCategorical:
		labels, _ := table.Labels(key)
		return labels, nil
	case cohort.TypeBinary:
		values, _ := table.Floats(key)
		labels := make([]string, len(values))
		for i, v := range values {
			labels[i] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		return labels, nil
	default:
		return nil, core.NewDataShapeError(fmt.Sprintf(
			"column %s is %s, grouping needs a binary or categorical column", key, spec.Type))
	}
}

func distinctSorted(labels []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, l := range labels {
		if !seen[l] {
			seen[l] = true
			out = append(out, l)
		}
	}
	sort.Strings(out)
	return out
}

func indexOf(labels []string) map[string]int {
	idx := make(map[string]int, len(labels))
	for i, l := range labels {
		idx[l] = i
	}
	return idx
}
