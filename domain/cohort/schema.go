package cohort

import (
	"gotrial/domain/core"
)

// StatisticalType defines variable types for analysis
type StatisticalType string

const (
	TypeNumeric     StatisticalType = "numeric"
	TypeCategorical StatisticalType = "categorical"
	TypeBinary      StatisticalType = "binary"
	TypeIdentifier  StatisticalType = "identifier"
	TypeTimestamp   StatisticalType = "timestamp"
)

// ColumnSpec declares a column's key and statistical type up front.
// Downstream components dispatch on the declared type, never on runtime
// value inspection.
type ColumnSpec struct {
	Key  core.VariableKey `json:"key"`
	Type StatisticalType  `json:"type"`
	// Levels lists the category labels for TypeCategorical columns, in code
	// order. Empty for other types.
	Levels []string `json:"levels,omitempty"`
}

// IsCategorical reports whether the column carries level codes
func (s ColumnSpec) IsCategorical() bool {
	return s.Type == TypeCategorical
}

// Schema is the ordered set of column declarations for a table
type Schema []ColumnSpec

// Spec returns the declaration for a variable key
func (s Schema) Spec(key core.VariableKey) (ColumnSpec, bool) {
	for _, spec := range s {
		if spec.Key == key {
			return spec, true
		}
	}
	return ColumnSpec{}, false
}

// Has reports whether the schema declares the key
func (s Schema) Has(key core.VariableKey) bool {
	_, ok := s.Spec(key)
	return ok
}

// Keys returns all declared variable keys in order
func (s Schema) Keys() []core.VariableKey {
	keys := make([]core.VariableKey, len(s))
	for i, spec := range s {
		keys[i] = spec.Key
	}
	return keys
}

// KeysOfType returns the declared keys carrying one of the given types
func (s Schema) KeysOfType(types ...StatisticalType) []core.VariableKey {
	var keys []core.VariableKey
	for _, spec := range s {
		for _, t := range types {
			if spec.Type == t {
				keys = append(keys, spec.Key)
				break
			}
		}
	}
	return keys
}
