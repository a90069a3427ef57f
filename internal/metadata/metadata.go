package metadata

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/tssbas/SDV/internal/domain"
	"github.com/tssbas/SDV/internal/table"
)

type OnMissingColumn string

const (
	OnMissingColumnDrop  OnMissingColumn = "drop"
	OnMissingColumnError OnMissingColumn = "error"
)

// TransformedSuffix is appended to column names when they are encoded
// into generator-signal space.
const TransformedSuffix = ".value"

// Metadata describes a table's fields and implements the schema-level
// capabilities the sampling engine consumes: encoding condition values
// into generator-signal space, filtering structurally invalid rows,
// and regenerating synthetic identifier columns.
type Metadata struct {
	schema     *domain.Schema
	fields     map[string]domain.Field
	order      []string
	categories map[string][]interface{}
	catSignal  map[string]map[string]float64
	fitted     bool
}

func New(schema *domain.Schema) *Metadata {
	m := &Metadata{
		schema:     schema,
		fields:     make(map[string]domain.Field),
		categories: make(map[string][]interface{}),
		catSignal:  make(map[string]map[string]float64),
	}
	if schema != nil {
		for _, f := range schema.Fields {
			m.fields[f.Name] = f
			m.order = append(m.order, f.Name)
		}
	}
	return m
}

// Fit learns the categorical domains present in the reference data.
// Columns not declared in the schema are detected from their values.
func (m *Metadata) Fit(data *table.Table) error {
	if data == nil || data.Len() == 0 {
		return fmt.Errorf("cannot fit metadata on empty data")
	}

	for _, col := range data.Columns() {
		if _, ok := m.fields[col]; !ok {
			m.fields[col] = detectField(col, data)
			m.order = append(m.order, col)
		}
	}

	for _, col := range data.Columns() {
		field := m.fields[col]
		if field.Type != domain.FieldTypeCategorical {
			continue
		}
		signal := make(map[string]float64)
		var seen []interface{}
		for i := 0; i < data.Len(); i++ {
			v, _ := data.Value(i, col)
			key := categoryKey(v)
			if _, ok := signal[key]; !ok {
				signal[key] = float64(len(seen))
				seen = append(seen, v)
			}
		}
		m.categories[col] = seen
		m.catSignal[col] = signal
	}

	m.fitted = true
	return nil
}

func detectField(name string, data *table.Table) domain.Field {
	// The first cell may be nil; type from the first present value.
	var v interface{}
	for i := 0; i < data.Len(); i++ {
		if cell, _ := data.Value(i, name); cell != nil {
			v = cell
			break
		}
	}
	switch v.(type) {
	case bool:
		return domain.Field{Name: name, Type: domain.FieldTypeBoolean}
	case int, int64, float64:
		return domain.Field{Name: name, Type: domain.FieldTypeNumerical, Subtype: numericSubtype(data.Column(name))}
	case time.Time:
		return domain.Field{Name: name, Type: domain.FieldTypeDatetime}
	default:
		return domain.Field{Name: name, Type: domain.FieldTypeCategorical}
	}
}

func numericSubtype(values []interface{}) string {
	for _, v := range values {
		if _, ok := v.(float64); ok {
			f := v.(float64)
			if f != math.Trunc(f) {
				return domain.SubtypeFloat
			}
		}
	}
	return domain.SubtypeInteger
}

// GetFields returns the field descriptors keyed by column name.
func (m *Metadata) GetFields() map[string]domain.Field {
	out := make(map[string]domain.Field, len(m.fields))
	for k, v := range m.fields {
		out[k] = v
	}
	return out
}

// FieldNames returns the column names in schema order.
func (m *Metadata) FieldNames() []string {
	return append([]string{}, m.order...)
}

func (m *Metadata) PrimaryKey() string {
	if m.schema == nil {
		return ""
	}
	return m.schema.PrimaryKey
}

// Categories returns the fitted categorical domain of a column in
// first-seen order, or nil for non-categorical columns.
func (m *Metadata) Categories(column string) []interface{} {
	return m.categories[column]
}

// EncodeCategory maps a native categorical value to its signal, if it
// was seen during fitting.
func (m *Metadata) EncodeCategory(column string, v interface{}) (float64, bool) {
	signal, ok := m.catSignal[column][categoryKey(v)]
	return signal, ok
}

// Transform encodes native column values into generator-signal space.
// Columns that cannot be encoded (unknown field, unseen category) are
// dropped when onMissing is OnMissingColumnDrop, otherwise the first
// offending column produces an error. The output may have zero
// columns; its row count always matches the input.
func (m *Metadata) Transform(t *table.Table, onMissing OnMissingColumn) (*table.Table, error) {
	type encoded struct {
		name   string
		values []float64
	}
	var kept []encoded

	for _, col := range t.Columns() {
		field, known := m.fields[col]
		if !known {
			if onMissing == OnMissingColumnError {
				return nil, fmt.Errorf("cannot transform unknown column: %s", col)
			}
			continue
		}

		values := make([]float64, t.Len())
		ok := true
		for i := 0; i < t.Len() && ok; i++ {
			v, _ := t.Value(i, col)
			signal, err := m.encodeValue(field, v)
			if err != nil {
				if onMissing == OnMissingColumnError {
					return nil, fmt.Errorf("cannot transform column %s: %w", col, err)
				}
				ok = false
				break
			}
			values[i] = signal
		}
		if ok {
			kept = append(kept, encoded{name: col + TransformedSuffix, values: values})
		}
	}

	columns := make([]string, len(kept))
	for i, e := range kept {
		columns[i] = e.name
	}
	out := table.New(columns...)
	for i := 0; i < t.Len(); i++ {
		row := make([]interface{}, len(kept))
		for j, e := range kept {
			row[j] = e.values[i]
		}
		if err := out.Append(row); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (m *Metadata) encodeValue(field domain.Field, v interface{}) (float64, error) {
	switch field.Type {
	case domain.FieldTypeCategorical:
		signal, ok := m.catSignal[field.Name][categoryKey(v)]
		if !ok {
			return 0, fmt.Errorf("unseen category: %v", v)
		}
		return signal, nil
	case domain.FieldTypeBoolean:
		b, ok := v.(bool)
		if !ok {
			return 0, fmt.Errorf("not a boolean: %v", v)
		}
		if b {
			return 1, nil
		}
		return 0, nil
	case domain.FieldTypeDatetime:
		ts, ok := v.(time.Time)
		if !ok {
			return 0, fmt.Errorf("not a datetime: %v", v)
		}
		return float64(ts.Unix()), nil
	default:
		f, ok := ToFloat64(v)
		if !ok {
			return 0, fmt.Errorf("not numeric: %v", v)
		}
		return f, nil
	}
}

// NativeColumn maps a transformed column name back to its native one.
func NativeColumn(transformed string) string {
	if len(transformed) > len(TransformedSuffix) &&
		transformed[len(transformed)-len(TransformedSuffix):] == TransformedSuffix {
		return transformed[:len(transformed)-len(TransformedSuffix)]
	}
	return transformed
}

// DecodeValue maps a signal-space value back into the native domain of
// the given column.
func (m *Metadata) DecodeValue(column string, signal float64) (interface{}, error) {
	field, ok := m.fields[column]
	if !ok {
		return nil, fmt.Errorf("unknown column: %s", column)
	}
	switch field.Type {
	case domain.FieldTypeCategorical:
		seen := m.categories[column]
		idx := int(math.Round(signal))
		if idx < 0 || idx >= len(seen) {
			return nil, fmt.Errorf("signal %v out of categorical range for %s", signal, column)
		}
		return seen[idx], nil
	case domain.FieldTypeBoolean:
		return signal >= 0.5, nil
	case domain.FieldTypeDatetime:
		return time.Unix(int64(signal), 0).UTC(), nil
	default:
		if field.Subtype == domain.SubtypeFloat {
			return signal, nil
		}
		return int64(math.Round(signal)), nil
	}
}

// FilterValid returns the subset of rows satisfying the declared
// schema constraints: no nil cells in declared columns, numerical
// values inside declared bounds, categorical values inside the fitted
// domain, and primary key values unique within the table. It never
// fails; an empty result is valid.
func (m *Metadata) FilterValid(t *table.Table) *table.Table {
	if t == nil {
		return table.New()
	}
	pk := m.PrimaryKey()
	seenPK := make(map[string]struct{})

	return t.Filter(func(i int) bool {
		for _, col := range t.Columns() {
			field, known := m.fields[col]
			if !known {
				continue
			}
			v, _ := t.Value(i, col)
			if v == nil {
				return false
			}
			if !m.valueValid(field, v) {
				return false
			}
		}
		if pk != "" && t.HasColumn(pk) {
			v, _ := t.Value(i, pk)
			key := categoryKey(v)
			if _, dup := seenPK[key]; dup {
				return false
			}
			seenPK[key] = struct{}{}
		}
		return true
	})
}

func (m *Metadata) valueValid(field domain.Field, v interface{}) bool {
	switch field.Type {
	case domain.FieldTypeNumerical:
		f, ok := ToFloat64(v)
		if !ok {
			return false
		}
		if field.Min != nil && f < *field.Min {
			return false
		}
		if field.Max != nil && f > *field.Max {
			return false
		}
		if field.Subtype == domain.SubtypeInteger && f != math.Trunc(f) {
			return false
		}
	case domain.FieldTypeCategorical:
		if domainValues, fitted := m.catSignal[field.Name]; fitted {
			if _, ok := domainValues[categoryKey(v)]; !ok {
				return false
			}
		}
	case domain.FieldTypeBoolean:
		if _, ok := v.(bool); !ok {
			return false
		}
	case domain.FieldTypeID:
		if field.Subtype == domain.SubtypeInteger {
			if _, ok := ToInt64(v); !ok {
				return false
			}
		}
	}
	return true
}

// categoryKey canonicalizes a value for map lookups so that 0, 0.0 and
// int64(0) key identically.
func categoryKey(v interface{}) string {
	if f, ok := ToFloat64(v); ok {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	return fmt.Sprintf("%v", v)
}

func ToFloat64(v interface{}) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case int32:
		return float64(val), true
	default:
		return 0, false
	}
}

func ToInt64(v interface{}) (int64, bool) {
	switch val := v.(type) {
	case int64:
		return val, true
	case int:
		return int64(val), true
	case int32:
		return int64(val), true
	case float64:
		if val == math.Trunc(val) {
			return int64(val), true
		}
		return 0, false
	default:
		return 0, false
	}
}
