package rstats

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"gotrial/domain/cohort"
	"gotrial/domain/core"
	"gotrial/domain/study"
)

// ipmaProgram is the R shim run by the subprocess. It reads the staged CSV
// and a formula from argv, calls IPMA::IPMA, and prints one JSON document
// on stdout. Each optional field is extracted independently so one missing
// piece does not blank the rest.
const ipmaProgram = `args <- commandArgs(trailingOnly = TRUE)
frame <- read.csv(args[1])
spec <- as.formula(args[2])

grab <- function(expr) tryCatch(expr, error = function(e) NULL)

fit <- grab(IPMA::IPMA(frame, spec))
if (is.null(fit)) {
  cat(jsonlite::toJSON(list(error = "IPMA call failed"), auto_unbox = TRUE))
  quit(save = "no", status = 0)
}

effects <- grab({
  raw <- fit[[1]]
  as.list(setNames(as.numeric(raw), names(raw)))
})

ceiling <- grab(list(x = as.numeric(fit[[5]][[1]]), y = as.numeric(fit[[5]][[2]])))

bottleneck <- grab({
  steps <- as.data.frame(fit[[7]])
  lapply(seq_len(nrow(steps)), function(i) {
    row <- steps[i, , drop = FALSE]
    list(outcome_level = as.numeric(row[[1]]),
         required = as.list(setNames(as.numeric(row[-1]), names(row)[-1])))
  })
})

out <- list(
  effect_sizes = effects,
  bottleneck = bottleneck,
  x_ceiling = if (is.null(ceiling)) NULL else I(ceiling$x),
  y_ceiling = if (is.null(ceiling)) NULL else I(ceiling$y)
)
cat(jsonlite::toJSON(out, auto_unbox = TRUE, na = "null", digits = 10))
`

// ipmaPayload is the JSON document the R shim prints
type ipmaPayload struct {
	Error       string              `json:"error"`
	EffectSizes map[string]*float64 `json:"effect_sizes"`
	Bottleneck  []bottleneckRow     `json:"bottleneck"`
	XCeiling    []float64           `json:"x_ceiling"`
	YCeiling    []float64           `json:"y_ceiling"`
}

type bottleneckRow struct {
	OutcomeLevel float64            `json:"outcome_level"`
	Required     map[string]float64 `json:"required"`
}

// writeScript stages the R shim in a temp file
func writeScript() (string, error) {
	file, err := os.CreateTemp("", "ipma-*.R")
	if err != nil {
		return "", err
	}
	if _, err := file.WriteString(ipmaProgram); err != nil {
		file.Close()
		os.Remove(file.Name())
		return "", err
	}
	if err := file.Close(); err != nil {
		os.Remove(file.Name())
		return "", err
	}
	return file.Name(), nil
}

// writeCSV stages the selected columns as a temp CSV for read.csv
func writeCSV(table *cohort.Table, columns []core.VariableKey) (string, error) {
	file, err := os.CreateTemp("", "ipma-*.csv")
	if err != nil {
		return "", err
	}

	writer := csv.NewWriter(file)
	header := make([]string, len(columns))
	values := make([][]float64, len(columns))
	for i, key := range columns {
		header[i] = string(key)
		values[i], _ = table.Floats(key)
	}
	if err := writer.Write(header); err != nil {
		file.Close()
		os.Remove(file.Name())
		return "", err
	}

	record := make([]string, len(columns))
	for row := 0; row < table.RowCount(); row++ {
		for i := range columns {
			record[i] = strconv.FormatFloat(values[i][row], 'g', -1, 64)
		}
		if err := writer.Write(record); err != nil {
			file.Close()
			os.Remove(file.Name())
			return "", err
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		file.Close()
		os.Remove(file.Name())
		return "", err
	}
	if err := file.Close(); err != nil {
		os.Remove(file.Name())
		return "", err
	}
	return file.Name(), nil
}

// decodeResult maps the shim's JSON onto the domain result. Every requested
// predictor gets an effect-size entry, nil when the backend had none.
func decodeResult(data []byte, predictors []core.VariableKey, outcome core.VariableKey) (study.IPMAResult, error) {
	var payload ipmaPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return study.IPMAResult{}, fmt.Errorf("%w: decoding response: %v", core.ErrAdapterFailed, err)
	}
	if payload.Error != "" {
		return study.IPMAResult{}, fmt.Errorf("%w: R: %s", core.ErrAdapterFailed, payload.Error)
	}

	effects := make(map[string]*float64, len(predictors))
	for _, key := range predictors {
		effects[string(key)] = payload.EffectSizes[string(key)]
	}

	steps := make([]study.BottleneckStep, len(payload.Bottleneck))
	for i, row := range payload.Bottleneck {
		steps[i] = study.BottleneckStep{OutcomeLevel: row.OutcomeLevel, Required: row.Required}
	}

	return study.IPMAResult{
		Outcome:     outcome,
		EffectSizes: effects,
		Bottlenecks: steps,
		XCeiling:    payload.XCeiling,
		YCeiling:    payload.YCeiling,
		Backend:     "Rscript",
	}, nil
}
