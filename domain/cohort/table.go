package cohort

import (
	"fmt"

	"gotrial/domain/core"
)

// Table is the canonical column-oriented participant table. Every column
// carries its ColumnSpec, so the schema travels with the data. Categorical
// columns store level codes (indexes into Spec.Levels); numeric and binary
// columns store values directly.
type Table struct {
	EntityIDs []string
	Columns   []Column
	CreatedAt core.Timestamp
}

// Column is one variable's values plus its declaration
type Column struct {
	Spec   ColumnSpec
	Values []float64
}

// NewTable creates an empty table over the given entity ids
func NewTable(entityIDs []string) *Table {
	ids := make([]string, len(entityIDs))
	copy(ids, entityIDs)
	return &Table{
		EntityIDs: ids,
		CreatedAt: core.Now(),
	}
}

// AddColumn appends a column; values must align with the entity rows
func (t *Table) AddColumn(spec ColumnSpec, values []float64) error {
	if len(values) != len(t.EntityIDs) {
		return fmt.Errorf("%w: column %s has %d values for %d rows",
			core.ErrColumnLengthSkew, spec.Key, len(values), len(t.EntityIDs))
	}
	if t.Schema().Has(spec.Key) {
		return core.NewInvalidArgument(string(spec.Key), "duplicate column key")
	}
	t.Columns = append(t.Columns, Column{Spec: spec, Values: values})
	return nil
}

// Validate ensures the table is internally consistent
func (t *Table) Validate() error {
	if len(t.EntityIDs) == 0 {
		return core.ErrEmptyTable
	}
	for _, col := range t.Columns {
		if len(col.Values) != len(t.EntityIDs) {
			return fmt.Errorf("%w: column %s has %d values, expected %d",
				core.ErrColumnLengthSkew, col.Spec.Key, len(col.Values), len(t.EntityIDs))
		}
		if col.Spec.IsCategorical() {
			for i, v := range col.Values {
				code := int(v)
				if code < 0 || code >= len(col.Spec.Levels) {
					return core.NewDataShapeError(fmt.Sprintf(
						"column %s row %d: level code %d outside %d levels",
						col.Spec.Key, i, code, len(col.Spec.Levels)))
				}
			}
		}
	}
	return nil
}

// Schema returns the ordered column declarations
func (t *Table) Schema() Schema {
	schema := make(Schema, len(t.Columns))
	for i, col := range t.Columns {
		schema[i] = col.Spec
	}
	return schema
}

// Column returns the column for a variable key
func (t *Table) Column(key core.VariableKey) (*Column, bool) {
	for i := range t.Columns {
		if t.Columns[i].Spec.Key == key {
			return &t.Columns[i], true
		}
	}
	return nil, false
}

// Floats returns a copy of a column's raw values
func (t *Table) Floats(key core.VariableKey) ([]float64, bool) {
	col, ok := t.Column(key)
	if !ok {
		return nil, false
	}
	out := make([]float64, len(col.Values))
	copy(out, col.Values)
	return out, true
}

// Labels decodes a categorical column into its level labels per row
func (t *Table) Labels(key core.VariableKey) ([]string, bool) {
	col, ok := t.Column(key)
	if !ok || !col.Spec.IsCategorical() {
		return nil, false
	}
	out := make([]string, len(col.Values))
	for i, v := range col.Values {
		out[i] = col.Spec.Levels[int(v)]
	}
	return out, true
}

// RowCount returns the number of participants
func (t *Table) RowCount() int {
	return len(t.EntityIDs)
}

// ColumnCount returns the number of variables
func (t *Table) ColumnCount() int {
	return len(t.Columns)
}

// Clone returns a deep copy; derived tables never mutate their source
func (t *Table) Clone() *Table {
	out := NewTable(t.EntityIDs)
	out.CreatedAt = t.CreatedAt
	out.Columns = make([]Column, len(t.Columns))
	for i, col := range t.Columns {
		values := make([]float64, len(col.Values))
		copy(values, col.Values)
		spec := col.Spec
		if len(col.Spec.Levels) > 0 {
			spec.Levels = make([]string, len(col.Spec.Levels))
			copy(spec.Levels, col.Spec.Levels)
		}
		out.Columns[i] = Column{Spec: spec, Values: values}
	}
	return out
}

// SelectRows returns a new table holding only the rows where keep is true
func (t *Table) SelectRows(keep []bool) (*Table, error) {
	if len(keep) != t.RowCount() {
		return nil, core.NewDataShapeError("row mask length mismatch")
	}
	var ids []string
	for i, k := range keep {
		if k {
			ids = append(ids, t.EntityIDs[i])
		}
	}
	out := NewTable(ids)
	for _, col := range t.Columns {
		values := make([]float64, 0, len(ids))
		for i, k := range keep {
			if k {
				values = append(values, col.Values[i])
			}
		}
		if err := out.AddColumn(col.Spec, values); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Fingerprint hashes the table contents for run manifests
func (t *Table) Fingerprint() core.CohortHash {
	keys := make([]string, len(t.Columns))
	columns := make([][]float64, len(t.Columns))
	for i, col := range t.Columns {
		keys[i] = string(col.Spec.Key)
		columns[i] = col.Values
	}
	return core.ComputeCohortHash(t.EntityIDs, keys, columns)
}
