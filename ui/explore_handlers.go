package ui

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"gotrial/adapters/render"
	"gotrial/app"
	"gotrial/domain/cohort"
	"gotrial/domain/core"
)

// plotRequest is the wire form of an explorer figure request
type plotRequest struct {
	Kind    string `json:"kind"`
	X       string `json:"x"`
	Y       string `json:"y"`
	GroupBy string `json:"group_by"`
	Bins    int    `json:"bins"`
	Style   string `json:"style"`
}

func (r plotRequest) toExplore() app.ExploreRequest {
	return app.ExploreRequest{
		Kind:    app.PlotKind(r.Kind),
		X:       core.VariableKey(r.X),
		Y:       core.VariableKey(r.Y),
		GroupBy: core.VariableKey(r.GroupBy),
		Bins:    r.Bins,
		Style:   r.Style,
	}
}

// modelRequest selects predictors and an outcome for regression or IPMA
type modelRequest struct {
	Outcome    string   `json:"outcome"`
	Predictors []string `json:"predictors"`
	Style      string   `json:"style"`
}

func (r modelRequest) keys() []core.VariableKey {
	keys := make([]core.VariableKey, len(r.Predictors))
	for i, p := range r.Predictors {
		keys[i] = core.VariableKey(p)
	}
	return keys
}

// semRequest carries structural model text for the sidecar
type semRequest struct {
	ModelSpec string `json:"model_spec"`
	Target    string `json:"target"`
	Style     string `json:"style"`
}

func (s *Server) handleExplorerPage(c *gin.Context) {
	data := gin.H{
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
	}
	s.renderTemplate(c, "explorer.html", data)
}

// handleVariables lists the cohort schema for explorer dropdowns
func (s *Server) handleVariables(c *gin.Context) {
	schema := cohort.StudySchema()
	c.JSON(http.StatusOK, gin.H{
		"variables": schema,
		"count":     len(schema),
	})
}

func (s *Server) handleDescribe(c *gin.Context) {
	desc, err := s.explore.Summarize(c.Request.Context())
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, desc)
}

func (s *Server) handleDescribeFragment(c *gin.Context) {
	desc, err := s.explore.Summarize(c.Request.Context())
	if err != nil {
		c.String(statusFor(err), "Could not summarize cohort: %v", err)
		return
	}
	s.renderPartial(c, "describe_rows.html", desc)
}

func (s *Server) handleExplorePlot(c *gin.Context) {
	var req plotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data"})
		return
	}

	result, err := s.explore.Explore(c.Request.Context(), req.toExplore())
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "image/png", result.PNG)
}

func (s *Server) handleRegression(c *gin.Context) {
	var req modelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data"})
		return
	}

	result, err := s.explore.Regress(c.Request.Context(), app.RegressionRequest{
		Outcome:    core.VariableKey(req.Outcome),
		Predictors: req.keys(),
	})
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleIPMA(c *gin.Context) {
	var req modelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data"})
		return
	}

	result, err := s.explore.RunIPMA(c.Request.Context(), app.IPMARequest{
		Predictors: req.keys(),
		Outcome:    core.VariableKey(req.Outcome),
	})
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleIPMAPlot(c *gin.Context) {
	var req modelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data"})
		return
	}

	png, err := s.explore.IPMAPlot(c.Request.Context(), app.IPMARequest{
		Predictors: req.keys(),
		Outcome:    core.VariableKey(req.Outcome),
	}, req.Style)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

func (s *Server) handleSEM(c *gin.Context) {
	var req semRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data"})
		return
	}

	fit, err := s.explore.FitSEM(c.Request.Context(), app.SEMRequest{
		ModelSpec: req.ModelSpec,
		Target:    core.VariableKey(req.Target),
	})
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, fit)
}

func (s *Server) handleSEMImportance(c *gin.Context) {
	var req semRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data"})
		return
	}

	png, err := s.explore.ImportancePlot(c.Request.Context(), app.SEMRequest{
		ModelSpec: req.ModelSpec,
		Target:    core.VariableKey(req.Target),
	}, req.Style)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}
