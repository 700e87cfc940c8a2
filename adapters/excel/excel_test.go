package excel

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"gotrial/domain/cohort"
	"gotrial/domain/core"
	"gotrial/domain/study"
)

func sampleSchema() cohort.Schema {
	return cohort.Schema{
		{Key: "ParticipantID", Type: cohort.TypeIdentifier},
		{Key: "Score", Type: cohort.TypeNumeric},
		{Key: "LLMUsage", Type: cohort.TypeBinary},
		{Key: "Gender", Type: cohort.TypeCategorical, Levels: []string{"Male", "Female", "Other"}},
	}
}

func sampleTable(t *testing.T) *cohort.Table {
	t.Helper()
	table := cohort.NewTable([]string{"1", "2", "3"})
	schema := sampleSchema()
	require.NoError(t, table.AddColumn(schema[0], []float64{1, 2, 3}))
	require.NoError(t, table.AddColumn(schema[1], []float64{4.5, math.NaN(), 2}))
	require.NoError(t, table.AddColumn(schema[2], []float64{1, 0, 1}))
	require.NoError(t, table.AddColumn(schema[3], []float64{0, 1, 2}))
	return table
}

func TestWriteReadXLSXRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cohort.xlsx")
	require.NoError(t, NewWriter().WriteCohortXLSX(path, sampleTable(t), nil))

	reader, err := NewDataReader(path)
	require.NoError(t, err)
	got, err := reader.ReadCohort(sampleSchema())
	require.NoError(t, err)

	assert.Equal(t, 3, got.RowCount())
	assert.Equal(t, []string{"1", "2", "3"}, got.EntityIDs)

	score, ok := got.Floats("Score")
	require.True(t, ok)
	assert.InDelta(t, 4.5, score[0], 1e-9)
	assert.True(t, math.IsNaN(score[1]))
	assert.InDelta(t, 2, score[2], 1e-9)

	labels, ok := got.Labels("Gender")
	require.True(t, ok)
	assert.Equal(t, []string{"Male", "Female", "Other"}, labels)
}

func TestWriteReadCSVRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cohort.csv")
	require.NoError(t, NewWriter().WriteCohortCSV(path, sampleTable(t)))

	reader, err := NewDataReader(path)
	require.NoError(t, err)
	got, err := reader.ReadCohort(sampleSchema())
	require.NoError(t, err)

	assert.Equal(t, []string{"1", "2", "3"}, got.EntityIDs)
	usage, ok := got.Floats("LLMUsage")
	require.True(t, ok)
	assert.Equal(t, []float64{1, 0, 1}, usage)
	score, ok := got.Floats("Score")
	require.True(t, ok)
	assert.True(t, math.IsNaN(score[1]))
}

func TestWriteCohortXLSX_DescriptivesSheet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cohort.xlsx")
	desc := &study.Descriptives{Rows: []study.SummaryStats{{
		Key: "Score", Count: 3, Mean: 3.25, SD: 1.25,
		Min: 2, Q1: math.NaN(), Median: 3.25, Q3: math.NaN(), Max: 4.5,
	}}}
	require.NoError(t, NewWriter().WriteCohortXLSX(path, sampleTable(t), desc))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(descriptivesSheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"", "count", "mean", "std", "min", "25%", "50%", "75%", "max"}, rows[0])
	assert.Equal(t, "Score", rows[1][0])
	assert.Equal(t, "NaN", rows[1][5])
}

func TestNewDataReader_UnsupportedExtension(t *testing.T) {
	_, err := NewDataReader("cohort.txt")
	require.Error(t, err)
	assert.True(t, core.IsInvalidArgument(err))
}

func TestReadCohort_FileNotFound(t *testing.T) {
	reader, err := NewDataReader(filepath.Join(t.TempDir(), "missing.csv"))
	require.NoError(t, err)
	_, err = reader.ReadCohort(sampleSchema())
	assert.Error(t, err)
}

func TestReadCohort_MissingDeclaredColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cohort.csv")
	content := "ParticipantID,Score,LLMUsage\n1,4.5,1\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	reader, err := NewDataReader(path)
	require.NoError(t, err)
	_, err = reader.ReadCohort(sampleSchema())
	require.Error(t, err)
	assert.True(t, core.IsDataShapeError(err))
	assert.Contains(t, err.Error(), "Gender")
}

func TestReadCohort_HeaderOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cohort.csv")
	require.NoError(t, os.WriteFile(path, []byte("ParticipantID,Score,LLMUsage,Gender\n"), 0o644))

	reader, err := NewDataReader(path)
	require.NoError(t, err)
	_, err = reader.ReadCohort(sampleSchema())
	require.Error(t, err)
	assert.True(t, core.IsDataShapeError(err))
}

func TestReadCohort_BadCells(t *testing.T) {
	cases := []struct {
		name string
		row  string
		want string
	}{
		{"non-numeric score", "1,abc,1,Male", "Score"},
		{"binary out of range", "1,4.5,2,Male", "LLMUsage"},
		{"unknown level", "1,4.5,1,male", "Gender"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "cohort.csv")
			content := "ParticipantID,Score,LLMUsage,Gender\n" + tc.row + "\n"
			require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

			reader, err := NewDataReader(path)
			require.NoError(t, err)
			_, err = reader.ReadCohort(sampleSchema())
			require.Error(t, err)
			assert.True(t, core.IsDataShapeError(err))
			assert.Contains(t, err.Error(), "row 2")
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestReadCohort_NonNumericIdentifier(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cohort.csv")
	content := "ParticipantID,Score,LLMUsage,Gender\nP7,4.5,1,Female\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	reader, err := NewDataReader(path)
	require.NoError(t, err)
	got, err := reader.ReadCohort(sampleSchema())
	require.NoError(t, err)

	assert.Equal(t, []string{"P7"}, got.EntityIDs)
	ids, ok := got.Floats("ParticipantID")
	require.True(t, ok)
	assert.Equal(t, []float64{0}, ids)
}

func TestReadCohort_IgnoresUndeclaredColumns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cohort.csv")
	content := "ParticipantID,Score,LLMUsage,Gender,Notes\n1,4.5,1,Other,keep out\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	reader, err := NewDataReader(path)
	require.NoError(t, err)
	got, err := reader.ReadCohort(sampleSchema())
	require.NoError(t, err)
	assert.Equal(t, 4, got.ColumnCount())
	assert.False(t, got.Schema().Has("Notes"))
}
