package semfit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"gotrial/domain/cohort"
	"gotrial/domain/core"
	"gotrial/domain/study"
)

// Client fits structural equation models through a semopy sidecar service.
// The sidecar is opaque: any transport or estimation failure comes back as
// an adapter error so callers can degrade instead of aborting a run.
type Client struct {
	baseURL string
	timeout time.Duration
	http    *http.Client
}

// NewClient creates a client for the sidecar at baseURL. An empty baseURL
// builds a client that reports the backend unavailable on every call.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		timeout: timeout,
		http:    &http.Client{Timeout: timeout},
	}
}

// fitRequest carries the model text plus the column-oriented data slice
type fitRequest struct {
	Model   string      `json:"model"`
	Target  string      `json:"target"`
	Columns []string    `json:"columns"`
	Rows    [][]float64 `json:"rows"`
}

// fitResponse mirrors the sidecar's two failure stages: Error means the
// model never fit, ImportanceError means the fit succeeded but the
// importance table could not be derived from it.
type fitResponse struct {
	Converged       bool                  `json:"converged"`
	Paths           []study.PathEstimate  `json:"paths"`
	Importance      []study.ImportanceRow `json:"importance"`
	Error           string                `json:"error"`
	ImportanceError string                `json:"importance_error"`
}

// Fit estimates the model over the table and derives the importance table
// for the target variable.
func (c *Client) Fit(ctx context.Context, table *cohort.Table, spec *study.ModelSpec, target core.VariableKey) (*study.SEMFit, error) {
	if spec == nil || len(spec.Relations) == 0 {
		return nil, core.NewInvalidArgument("model", "no structural relations")
	}
	if err := spec.Validate(table.Schema()); err != nil {
		return nil, err
	}
	columns := spec.Variables()
	if !containsColumn(columns, string(target)) {
		return nil, core.NewInvalidArgument("target", fmt.Sprintf("%s not part of the model", target))
	}
	if c.baseURL == "" {
		return nil, core.NewAdapterUnavailableError("semopy", "no service URL configured")
	}

	request := fitRequest{
		Model:   spec.Source,
		Target:  string(target),
		Columns: columns,
		Rows:    rowsFor(table, columns),
	}
	body, err := json.Marshal(request)
	if err != nil {
		return nil, core.NewAdapterError("semopy", err)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	log.Printf("[SEMFit] fitting %d-relation model over %d rows via %s", len(spec.Relations), table.RowCount(), c.baseURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/fit", bytes.NewReader(body))
	if err != nil {
		return nil, core.NewAdapterError("semopy", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		log.Printf("[SEMFit] request failed: %v", err)
		return nil, core.NewAdapterError("semopy", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		log.Printf("[SEMFit] sidecar returned status %d", resp.StatusCode)
		return nil, fmt.Errorf("%w: semopy: status %d: %s", core.ErrAdapterFailed, resp.StatusCode, firstBytes(raw, 200))
	}

	var payload fitResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: semopy: decoding response: %v", core.ErrAdapterFailed, err)
	}
	if payload.Error != "" {
		log.Printf("[SEMFit] model fit failed: %s", payload.Error)
		return nil, fmt.Errorf("%w: semopy: %s", core.ErrAdapterFailed, payload.Error)
	}

	fit := &study.SEMFit{
		Spec:      spec.Source,
		Converged: payload.Converged,
		Paths:     payload.Paths,
		Backend:   "semopy",
	}
	if payload.ImportanceError != "" {
		log.Printf("[SEMFit] fit succeeded but importance failed: %s", payload.ImportanceError)
		return fit, fmt.Errorf("%w: semopy importance: %s", core.ErrAdapterFailed, payload.ImportanceError)
	}
	fit.Importance = payload.Importance

	log.Printf("[SEMFit] completed: converged=%v, %d paths, %d importance rows", fit.Converged, len(fit.Paths), len(fit.Importance))
	return fit, nil
}

// rowsFor slices the table row-major in column order
func rowsFor(table *cohort.Table, columns []string) [][]float64 {
	values := make([][]float64, len(columns))
	for i, name := range columns {
		values[i], _ = table.Floats(core.VariableKey(name))
	}

	rows := make([][]float64, table.RowCount())
	for r := range rows {
		row := make([]float64, len(columns))
		for c := range columns {
			row[c] = values[c][r]
		}
		rows[r] = row
	}
	return rows
}

func containsColumn(columns []string, name string) bool {
	for _, c := range columns {
		if c == name {
			return true
		}
	}
	return false
}

func firstBytes(raw []byte, n int) string {
	if len(raw) > n {
		raw = raw[:n]
	}
	return string(raw)
}
