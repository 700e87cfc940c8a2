package excel

import (
	"encoding/csv"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"gotrial/domain/cohort"
	"gotrial/domain/study"
)

// Cohort exports land on Sheet1 so round-trips through DataReader work
// without configuration. Descriptives get their own sheet when provided.
const (
	cohortSheet       = "Sheet1"
	descriptivesSheet = "Descriptives"
)

// Writer exports cohorts to spreadsheet formats. Categorical columns export
// their level labels, not the internal codes.
type Writer struct{}

// NewWriter creates a cohort exporter
func NewWriter() *Writer {
	return &Writer{}
}

// WriteCohortXLSX writes the participant table to an .xlsx workbook. When
// desc is non-nil a second sheet carries the descriptive table.
func (w *Writer) WriteCohortXLSX(path string, table *cohort.Table, desc *study.Descriptives) error {
	start := time.Now()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create export directory: %w", err)
	}

	f := excelize.NewFile()
	if idx, err := f.GetSheetIndex(cohortSheet); err != nil || idx == -1 {
		idx, err := f.NewSheet(cohortSheet)
		if err != nil {
			return fmt.Errorf("create sheet %s: %w", cohortSheet, err)
		}
		f.SetActiveSheet(idx)
	}

	for i, col := range table.Columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(cohortSheet, cell, string(col.Spec.Key)); err != nil {
			return fmt.Errorf("write header %s: %w", col.Spec.Key, err)
		}
	}
	for rowIdx := 0; rowIdx < table.RowCount(); rowIdx++ {
		for colIdx, col := range table.Columns {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			if err := f.SetCellValue(cohortSheet, cell, cellValue(col, rowIdx)); err != nil {
				return fmt.Errorf("write cell %s: %w", cell, err)
			}
		}
	}

	if desc != nil {
		if err := writeDescriptives(f, *desc); err != nil {
			return err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	log.Printf("[DataWriter] wrote %s (%d rows, %d columns) in %.2fms",
		path, table.RowCount(), table.ColumnCount(), float64(time.Since(start).Nanoseconds())/1e6)
	return nil
}

// WriteCohortCSV writes the participant table as a plain CSV file
func (w *Writer) WriteCohortCSV(path string, table *cohort.Table) error {
	start := time.Now()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create export directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv file: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	header := make([]string, table.ColumnCount())
	for i, col := range table.Columns {
		header[i] = string(col.Spec.Key)
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	record := make([]string, table.ColumnCount())
	for rowIdx := 0; rowIdx < table.RowCount(); rowIdx++ {
		for colIdx, col := range table.Columns {
			record[colIdx] = cellString(col, rowIdx)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv row %d: %w", rowIdx+2, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	log.Printf("[DataWriter] wrote %s (%d rows, %d columns) in %.2fms",
		path, table.RowCount(), table.ColumnCount(), float64(time.Since(start).Nanoseconds())/1e6)
	return nil
}

// cellValue picks the spreadsheet representation of one cell: level labels
// for categorical columns, numbers for everything else.
func cellValue(col cohort.Column, rowIdx int) interface{} {
	if col.Spec.IsCategorical() {
		return col.Spec.Levels[int(col.Values[rowIdx])]
	}
	v := col.Values[rowIdx]
	if math.IsNaN(v) {
		return "NaN"
	}
	return v
}

func cellString(col cohort.Column, rowIdx int) string {
	if col.Spec.IsCategorical() {
		return col.Spec.Levels[int(col.Values[rowIdx])]
	}
	v := col.Values[rowIdx]
	if math.IsNaN(v) {
		return "NaN"
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func writeDescriptives(f *excelize.File, desc study.Descriptives) error {
	if _, err := f.NewSheet(descriptivesSheet); err != nil {
		return fmt.Errorf("create sheet %s: %w", descriptivesSheet, err)
	}
	headers := []string{"", "count", "mean", "std", "min", "25%", "50%", "75%", "max"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(descriptivesSheet, cell, h); err != nil {
			return fmt.Errorf("write descriptives header: %w", err)
		}
	}
	for rowIdx, row := range desc.Rows {
		values := []interface{}{
			string(row.Key), row.Count,
			statCell(row.Mean), statCell(row.SD), statCell(row.Min),
			statCell(row.Q1), statCell(row.Median), statCell(row.Q3), statCell(row.Max),
		}
		for colIdx, v := range values {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			if err := f.SetCellValue(descriptivesSheet, cell, v); err != nil {
				return fmt.Errorf("write descriptives row %d: %w", rowIdx+2, err)
			}
		}
	}
	return nil
}

// Excel has no NaN cell value, so undefined statistics export as text.
func statCell(v float64) interface{} {
	if math.IsNaN(v) {
		return "NaN"
	}
	return v
}
