package ui

import (
	"encoding/json"
	"log"
	"net/http"

	"gotrial/adapters/render"
	"gotrial/app"
	"gotrial/domain/cohort"
	"gotrial/domain/core"
)

func (a *App) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[API] Failed to encode response: %v", err)
	}
}

func (a *App) writeAPIError(w http.ResponseWriter, err error) {
	a.writeJSON(w, statusFor(err), map[string]string{"error": err.Error()})
}

func (a *App) writePNG(w http.ResponseWriter, png []byte) {
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(png); err != nil {
		log.Printf("[API] Failed to write figure: %v", err)
	}
}

func (a *App) handleExplorerHome(w http.ResponseWriter, r *http.Request) {
	table := a.testkit.Table()
	data := map[string]interface{}{
		"Title":     "Cohort Explorer",
		"Themes":    render.ThemeNames(),
		"Variables": cohort.StudySchema(),
		"PlotKinds": []string{
			string(app.PlotHistogram),
			string(app.PlotViolin),
			string(app.PlotScatter),
			string(app.PlotBox),
			string(app.PlotDensity2D),
		},
		"CohortSize":  table.RowCount(),
		"Fingerprint": table.Fingerprint(),
	}
	a.renderTemplate(w, "explorer.html", data)
}

// handleCohortInfo reports the demo cohort shape and fingerprint
func (a *App) handleCohortInfo(w http.ResponseWriter, r *http.Request) {
	table := a.testkit.Table()
	a.writeJSON(w, http.StatusOK, map[string]interface{}{
		"rows":        table.RowCount(),
		"columns":     table.ColumnCount(),
		"fingerprint": table.Fingerprint(),
	})
}

func (a *App) handleVariableList(w http.ResponseWriter, r *http.Request) {
	schema := cohort.StudySchema()
	a.writeJSON(w, http.StatusOK, map[string]interface{}{
		"variables": schema,
		"count":     len(schema),
	})
}

func (a *App) handleDescribeJSON(w http.ResponseWriter, r *http.Request) {
	desc, err := a.explore.Summarize(r.Context())
	if err != nil {
		a.writeAPIError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, desc)
}

// handleDescribeRows serves the summary table fragment for HTMX swaps.
// Direct navigation falls back to the explorer page.
func (a *App) handleDescribeRows(w http.ResponseWriter, r *http.Request) {
	if !isHTMX(r) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	desc, err := a.explore.Summarize(r.Context())
	if err != nil {
		http.Error(w, "Failed to summarize cohort", http.StatusInternalServerError)
		return
	}
	a.renderPartial(w, "describe_rows.html", desc)
}

func (a *App) handlePlot(w http.ResponseWriter, r *http.Request) {
	var req plotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request data", http.StatusBadRequest)
		return
	}

	result, err := a.explore.Explore(r.Context(), req.toExplore())
	if err != nil {
		a.writeAPIError(w, err)
		return
	}
	a.writePNG(w, result.PNG)
}

func (a *App) handleRegressionFit(w http.ResponseWriter, r *http.Request) {
	var req modelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request data", http.StatusBadRequest)
		return
	}

	result, err := a.explore.Regress(r.Context(), app.RegressionRequest{
		Outcome:    core.VariableKey(req.Outcome),
		Predictors: req.keys(),
	})
	if err != nil {
		a.writeAPIError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, result)
}

func (a *App) handleIPMAFit(w http.ResponseWriter, r *http.Request) {
	var req modelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request data", http.StatusBadRequest)
		return
	}

	result, err := a.explore.RunIPMA(r.Context(), app.IPMARequest{
		Predictors: req.keys(),
		Outcome:    core.VariableKey(req.Outcome),
	})
	if err != nil {
		a.writeAPIError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, result)
}

func (a *App) handleIPMAFigure(w http.ResponseWriter, r *http.Request) {
	var req modelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request data", http.StatusBadRequest)
		return
	}

	png, err := a.explore.IPMAPlot(r.Context(), app.IPMARequest{
		Predictors: req.keys(),
		Outcome:    core.VariableKey(req.Outcome),
	}, req.Style)
	if err != nil {
		a.writeAPIError(w, err)
		return
	}
	a.writePNG(w, png)
}

func (a *App) handleSEMFit(w http.ResponseWriter, r *http.Request) {
	var req semRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request data", http.StatusBadRequest)
		return
	}

	fit, err := a.explore.FitSEM(r.Context(), app.SEMRequest{
		ModelSpec: req.ModelSpec,
		Target:    core.VariableKey(req.Target),
	})
	if err != nil {
		a.writeAPIError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, fit)
}

func (a *App) handleSEMFigure(w http.ResponseWriter, r *http.Request) {
	var req semRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request data", http.StatusBadRequest)
		return
	}

	png, err := a.explore.ImportancePlot(r.Context(), app.SEMRequest{
		ModelSpec: req.ModelSpec,
		Target:    core.VariableKey(req.Target),
	}, req.Style)
	if err != nil {
		a.writeAPIError(w, err)
		return
	}
	a.writePNG(w, png)
}
