package app

import (
	"context"
	"fmt"

	"gotrial/adapters/render"
	"gotrial/domain/cohort"
	"gotrial/domain/core"
	"gotrial/domain/study"
	"gotrial/internal/analysis"
	"gotrial/ports"
)

const defaultBins = 10

// PlotKind names a figure the explorer can draw
type PlotKind string

const (
	PlotHistogram PlotKind = "histogram"
	PlotViolin    PlotKind = "violin"
	PlotScatter   PlotKind = "scatter"
	PlotBox       PlotKind = "box"
	PlotDensity2D PlotKind = "density2d"
)

// ExploreService answers ad-hoc figure and analysis requests against the
// resolved cohort. Every front end marshals into these requests; there is
// no callback wiring between the UI and the analysis code.
type ExploreService struct {
	resolver ports.CohortResolverPort
	analyzer *analysis.Analyzer
	ols      *analysis.OLS
	ipma     ports.IPMARunnerPort
	sem      ports.SEMFitterPort
	render   RenderOptions
}

// ExploreRequest describes one figure. Violin and box plots group by
// GroupBy when set, else by X; scatter and density need both axes;
// histograms need only X.
type ExploreRequest struct {
	Kind    PlotKind
	X       core.VariableKey
	Y       core.VariableKey
	GroupBy core.VariableKey
	Bins    int    // histogram bin count, below one uses the default
	Style   string // theme name override
}

// ExploreResult carries the rendered figure plus the resolved parameters
type ExploreResult struct {
	Kind    PlotKind         `json:"kind"`
	X       core.VariableKey `json:"x,omitempty"`
	Y       core.VariableKey `json:"y,omitempty"`
	GroupBy core.VariableKey `json:"group_by,omitempty"`
	Bins    int              `json:"bins,omitempty"`
	Style   string           `json:"style"`
	PNG     []byte           `json:"-"`
}

// RegressionRequest selects a model for an on-demand fit. Leaving both
// fields empty fits the default performance model.
type RegressionRequest struct {
	Outcome    core.VariableKey
	Predictors []core.VariableKey
}

// IPMARequest mirrors the explorer's variable pickers. Both sides must be
// chosen.
type IPMARequest struct {
	Predictors []core.VariableKey
	Outcome    core.VariableKey
}

// SEMRequest carries structural model text to estimate. Empty text selects
// the default study model; an empty target defaults to Performance.
type SEMRequest struct {
	ModelSpec string
	Target    core.VariableKey
}

// NewExploreService creates an explorer over the given cohort source
func NewExploreService(resolver ports.CohortResolverPort, analyzer *analysis.Analyzer,
	ols *analysis.OLS, ipma ports.IPMARunnerPort, sem ports.SEMFitterPort,
	render RenderOptions) *ExploreService {

	return &ExploreService{
		resolver: resolver,
		analyzer: analyzer,
		ols:      ols,
		ipma:     ipma,
		sem:      sem,
		render:   render,
	}
}

// Explore renders one figure from the request. Validation failures come
// back as plot request errors before any drawing happens.
func (es *ExploreService) Explore(ctx context.Context, req ExploreRequest) (*ExploreResult, error) {
	table, err := es.resolver.Resolve(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve cohort: %w", err)
	}

	theme := render.ThemeByName(req.Style)
	renderer := render.NewRendererSize(theme, es.render.Width, es.render.Height)
	png, err := es.renderPlot(renderer, table, &req)
	if err != nil {
		return nil, err
	}
	return &ExploreResult{
		Kind:    req.Kind,
		X:       req.X,
		Y:       req.Y,
		GroupBy: req.GroupBy,
		Bins:    req.Bins,
		Style:   theme.Name,
		PNG:     png,
	}, nil
}

// renderPlot dispatches on the plot kind. It normalizes the request in
// place so the caller can echo the resolved parameters.
func (es *ExploreService) renderPlot(renderer *render.Renderer, table *cohort.Table, req *ExploreRequest) ([]byte, error) {
	switch req.Kind {
	case PlotHistogram:
		values, err := plotValues(table, req.X, "x")
		if err != nil {
			return nil, err
		}
		if req.Bins < 1 {
			req.Bins = defaultBins
		}
		return renderer.HistogramBins(values, string(req.X), req.Bins)

	case PlotViolin, PlotBox:
		if req.GroupBy == "" {
			req.GroupBy = req.X
		}
		groups, order, err := plotGroups(table, req.GroupBy, req.Y)
		if err != nil {
			return nil, err
		}
		if req.Kind == PlotViolin {
			return renderer.Violin(groups, order, string(req.GroupBy), string(req.Y))
		}
		return renderer.Box(groups, order, string(req.GroupBy), string(req.Y))

	case PlotScatter, PlotDensity2D:
		xs, err := plotValues(table, req.X, "x")
		if err != nil {
			return nil, err
		}
		ys, err := plotValues(table, req.Y, "y")
		if err != nil {
			return nil, err
		}
		if req.Kind == PlotScatter {
			return renderer.Scatter(xs, ys, string(req.X), string(req.Y))
		}
		return renderer.Density2D(xs, ys, string(req.X), string(req.Y))

	default:
		return nil, fmt.Errorf("%w: unknown plot kind %q", core.ErrInvalidPlotRequest, req.Kind)
	}
}

// Summarize recomputes descriptive statistics for the resolved cohort
func (es *ExploreService) Summarize(ctx context.Context) (study.Descriptives, error) {
	table, err := es.resolver.Resolve(ctx)
	if err != nil {
		return study.Descriptives{}, fmt.Errorf("resolve cohort: %w", err)
	}
	return es.analyzer.Summarize(table)
}

// Regress fits a linear model on demand
func (es *ExploreService) Regress(ctx context.Context, req RegressionRequest) (*study.RegressionResult, error) {
	table, err := es.resolver.Resolve(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve cohort: %w", err)
	}
	if req.Outcome == "" && len(req.Predictors) == 0 {
		res, err := es.ols.DefaultModel(table)
		if err != nil {
			return nil, err
		}
		return &res, nil
	}
	if req.Outcome == "" {
		return nil, core.NewInvalidArgument("outcome", "required when predictors are given")
	}
	if len(req.Predictors) == 0 {
		return nil, core.NewInvalidArgument("predictors", "required when an outcome is given")
	}
	res, err := es.ols.Fit(table, req.Outcome, req.Predictors)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// RunIPMA triggers an importance-performance analysis on the external
// backend. Unlike the study pipeline, failures surface to the caller.
func (es *ExploreService) RunIPMA(ctx context.Context, req IPMARequest) (*study.IPMAResult, error) {
	if len(req.Predictors) == 0 || req.Outcome == "" {
		return nil, core.NewInvalidArgument("ipma", "both predictors and outcome are required")
	}
	table, err := es.resolver.Resolve(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve cohort: %w", err)
	}
	res, err := es.ipma.Run(ctx, table, req.Predictors, req.Outcome)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// IPMAPlot renders the observation scatter with the attainment ceiling, the
// companion figure to RunIPMA. The overlay only exists for a single
// predictor, so anything else is refused up front.
func (es *ExploreService) IPMAPlot(ctx context.Context, req IPMARequest, style string) ([]byte, error) {
	if len(req.Predictors) != 1 {
		return nil, fmt.Errorf("%w: ceiling figure needs exactly one predictor", core.ErrInvalidPlotRequest)
	}
	table, err := es.resolver.Resolve(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve cohort: %w", err)
	}
	xs, err := plotValues(table, req.Predictors[0], "x")
	if err != nil {
		return nil, err
	}
	ys, err := plotValues(table, req.Outcome, "y")
	if err != nil {
		return nil, err
	}
	res, err := es.ipma.Run(ctx, table, req.Predictors, req.Outcome)
	if err != nil {
		return nil, err
	}
	renderer := render.NewRendererSize(render.ThemeByName(style), es.render.Width, es.render.Height)
	return renderer.CeilingScatter(xs, ys, res.XCeiling, res.YCeiling,
		string(req.Predictors[0]), string(req.Outcome))
}

// FitSEM estimates a structural model on the external backend
func (es *ExploreService) FitSEM(ctx context.Context, req SEMRequest) (*study.SEMFit, error) {
	spec, err := resolveModelSpec(req.ModelSpec)
	if err != nil {
		return nil, err
	}
	table, err := es.resolver.Resolve(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve cohort: %w", err)
	}
	if err := spec.Validate(table.Schema()); err != nil {
		return nil, err
	}
	target := req.Target
	if target == "" {
		target = cohort.VarPerformance
	}
	return es.sem.Fit(ctx, table, spec, target)
}

// ImportancePlot renders total effects against importance weights from a
// structural fit, the companion figure to FitSEM.
func (es *ExploreService) ImportancePlot(ctx context.Context, req SEMRequest, style string) ([]byte, error) {
	fit, err := es.FitSEM(ctx, req)
	if err != nil {
		return nil, err
	}
	if fit == nil || len(fit.Importance) == 0 {
		return nil, fmt.Errorf("structural fit has no importance table to plot")
	}
	totals := make([]float64, len(fit.Importance))
	importances := make([]float64, len(fit.Importance))
	for i, row := range fit.Importance {
		totals[i] = row.Total
		importances[i] = row.Importance
	}
	renderer := render.NewRendererSize(render.ThemeByName(style), es.render.Width, es.render.Height)
	return renderer.ImportanceScatter(totals, importances)
}

// plotValues resolves a column that can be drawn as observation values
func plotValues(table *cohort.Table, key core.VariableKey, axis string) ([]float64, error) {
	if key == "" {
		return nil, fmt.Errorf("%w: missing %s variable", core.ErrInvalidPlotRequest, axis)
	}
	spec, ok := table.Schema().Spec(key)
	if !ok {
		return nil, core.NewUnknownVariableError(string(key))
	}
	if spec.Type != cohort.TypeNumeric && spec.Type != cohort.TypeBinary {
		return nil, fmt.Errorf("%w: %s is %s, %s needs a numeric column",
			core.ErrInvalidPlotRequest, key, spec.Type, axis)
	}
	values, _ := table.Floats(key)
	return values, nil
}

// plotGroups validates the grouping pair and splits the values by group
func plotGroups(table *cohort.Table, groupBy, value core.VariableKey) (map[string][]float64, []string, error) {
	if groupBy == "" {
		return nil, nil, fmt.Errorf("%w: missing grouping variable", core.ErrInvalidPlotRequest)
	}
	spec, ok := table.Schema().Spec(groupBy)
	if !ok {
		return nil, nil, core.NewUnknownVariableError(string(groupBy))
	}
	if spec.Type != cohort.TypeBinary && spec.Type != cohort.TypeCategorical {
		return nil, nil, fmt.Errorf("%w: %s is %s, grouping needs a binary or categorical column",
			core.ErrInvalidPlotRequest, groupBy, spec.Type)
	}
	if _, err := plotValues(table, value, "y"); err != nil {
		return nil, nil, err
	}
	return render.GroupValues(table, groupBy, value)
}
