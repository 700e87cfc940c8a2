package rstats

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"strings"
	"time"

	"gotrial/domain/cohort"
	"gotrial/domain/core"
	"gotrial/domain/study"
)

// Runner executes importance-performance analysis through the R IPMA
// package in an Rscript subprocess. The host R installation is an opaque
// dependency: when it is missing or the call fails, callers get an empty
// result plus an adapter error and are expected to degrade, not abort.
type Runner struct {
	binary  string
	timeout time.Duration
}

// NewRunner creates a runner for the given Rscript binary
func NewRunner(binary string, timeout time.Duration) *Runner {
	if binary == "" {
		binary = "Rscript"
	}
	return &Runner{binary: binary, timeout: timeout}
}

// Available reports whether the Rscript binary resolves on PATH
func (r *Runner) Available() bool {
	_, err := exec.LookPath(r.binary)
	return err == nil
}

// Run estimates effect sizes, the bottleneck table, and the ceiling line
// for outcome ~ predictors over the table's rows.
func (r *Runner) Run(ctx context.Context, table *cohort.Table, predictors []core.VariableKey, outcome core.VariableKey) (study.IPMAResult, error) {
	if len(predictors) == 0 {
		return study.IPMAResult{}, core.NewInvalidArgument("predictors", "at least one required")
	}
	columns := append(append([]core.VariableKey{}, predictors...), outcome)
	for _, key := range columns {
		if _, ok := table.Floats(key); !ok {
			return study.IPMAResult{}, core.NewUnknownVariableError(string(key))
		}
	}

	if !r.Available() {
		return study.IPMAResult{}, fmt.Errorf("%w: %s not on PATH", core.ErrAdapterUnavailable, r.binary)
	}

	csvPath, err := writeCSV(table, columns)
	if err != nil {
		return study.IPMAResult{}, fmt.Errorf("%w: staging data: %v", core.ErrAdapterFailed, err)
	}
	defer os.Remove(csvPath)

	scriptPath, err := writeScript()
	if err != nil {
		return study.IPMAResult{}, fmt.Errorf("%w: staging script: %v", core.ErrAdapterFailed, err)
	}
	defer os.Remove(scriptPath)

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	formula := formulaFor(outcome, predictors)
	log.Printf("[IPMA] running %s: %s over %d rows", r.binary, formula, table.RowCount())

	cmd := exec.CommandContext(ctx, r.binary, "--vanilla", scriptPath, csvPath, formula)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		log.Printf("[IPMA] %s failed: %v: %s", r.binary, err, firstLine(stderr.String()))
		return study.IPMAResult{}, fmt.Errorf("%w: %v: %s", core.ErrAdapterFailed, err, firstLine(stderr.String()))
	}

	result, err := decodeResult(stdout.Bytes(), predictors, outcome)
	if err != nil {
		log.Printf("[IPMA] bad response: %v", err)
		return study.IPMAResult{}, err
	}
	log.Printf("[IPMA] completed: %d effect sizes, %d bottleneck rows", len(result.EffectSizes), len(result.Bottlenecks))
	return result, nil
}

// formulaFor builds the R model formula string
func formulaFor(outcome core.VariableKey, predictors []core.VariableKey) string {
	names := make([]string, len(predictors))
	for i, key := range predictors {
		names[i] = string(key)
	}
	return fmt.Sprintf("%s ~ %s", outcome, strings.Join(names, "+"))
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
