package table

import (
	"fmt"
)

// Table is an ordered set of named columns over a contiguous, 0-based
// row index. Cells hold scalar values (string, bool, int64, float64,
// time.Time). Rows are stored positionally; appending keeps the index
// contiguous, so a finalized table always satisfies index == position.
type Table struct {
	columns []string
	index   map[string]int
	rows    [][]interface{}
}

func New(columns ...string) *Table {
	t := &Table{
		columns: append([]string{}, columns...),
		index:   make(map[string]int, len(columns)),
	}
	for i, c := range t.columns {
		t.index[c] = i
	}
	return t
}

// FromRows builds a table over the given columns. Every row must have
// one cell per column.
func FromRows(columns []string, rows [][]interface{}) (*Table, error) {
	t := New(columns...)
	for i, row := range rows {
		if len(row) != len(columns) {
			return nil, fmt.Errorf("row %d has %d cells, want %d", i, len(row), len(columns))
		}
		t.rows = append(t.rows, append([]interface{}{}, row...))
	}
	return t, nil
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.rows)
}

func (t *Table) IsEmpty() bool {
	return t.Len() == 0
}

func (t *Table) NumColumns() int {
	if t == nil {
		return 0
	}
	return len(t.columns)
}

func (t *Table) Columns() []string {
	if t == nil {
		return nil
	}
	return append([]string{}, t.columns...)
}

func (t *Table) HasColumn(name string) bool {
	if t == nil {
		return false
	}
	_, ok := t.index[name]
	return ok
}

// Row returns the cells of row i in column order. The returned slice
// is the backing storage; callers must not modify it.
func (t *Table) Row(i int) []interface{} {
	return t.rows[i]
}

// RowMap returns row i as a column name to value mapping.
func (t *Table) RowMap(i int) map[string]interface{} {
	m := make(map[string]interface{}, len(t.columns))
	for j, c := range t.columns {
		m[c] = t.rows[i][j]
	}
	return m
}

func (t *Table) Value(i int, column string) (interface{}, bool) {
	j, ok := t.index[column]
	if !ok {
		return nil, false
	}
	return t.rows[i][j], true
}

// Append adds one row given in column order.
func (t *Table) Append(row []interface{}) error {
	if len(row) != len(t.columns) {
		return fmt.Errorf("row has %d cells, want %d", len(row), len(t.columns))
	}
	t.rows = append(t.rows, append([]interface{}{}, row...))
	return nil
}

// AppendMap adds one row from a column name to value mapping. Columns
// absent from the mapping are filled with nil.
func (t *Table) AppendMap(values map[string]interface{}) {
	row := make([]interface{}, len(t.columns))
	for j, c := range t.columns {
		row[j] = values[c]
	}
	t.rows = append(t.rows, row)
}

// Column returns a copy of the named column's values, or nil if the
// column does not exist.
func (t *Table) Column(name string) []interface{} {
	j, ok := t.index[name]
	if !ok {
		return nil
	}
	out := make([]interface{}, len(t.rows))
	for i, row := range t.rows {
		out[i] = row[j]
	}
	return out
}

// SetValue overwrites a single cell.
func (t *Table) SetValue(i int, column string, value interface{}) error {
	j, ok := t.index[column]
	if !ok {
		return fmt.Errorf("unknown column: %s", column)
	}
	t.rows[i][j] = value
	return nil
}

// SetConstant overwrites every cell of the named column with value,
// adding the column if it does not exist yet.
func (t *Table) SetConstant(column string, value interface{}) {
	j, ok := t.index[column]
	if !ok {
		j = len(t.columns)
		t.columns = append(t.columns, column)
		t.index[column] = j
		for i := range t.rows {
			t.rows[i] = append(t.rows[i], nil)
		}
	}
	for i := range t.rows {
		t.rows[i][j] = value
	}
}

// Select returns a new table holding only the named columns, in the
// given order.
func (t *Table) Select(columns []string) (*Table, error) {
	out := New(columns...)
	indices := make([]int, len(columns))
	for k, c := range columns {
		j, ok := t.index[c]
		if !ok {
			return nil, fmt.Errorf("unknown column: %s", c)
		}
		indices[k] = j
	}
	for _, row := range t.rows {
		picked := make([]interface{}, len(columns))
		for k, j := range indices {
			picked[k] = row[j]
		}
		out.rows = append(out.rows, picked)
	}
	return out, nil
}

// Head returns a new table with at most n leading rows, preserving
// accumulation order.
func (t *Table) Head(n int) *Table {
	if t == nil {
		return nil
	}
	if n > len(t.rows) {
		n = len(t.rows)
	}
	if n < 0 {
		n = 0
	}
	return t.Slice(0, n)
}

// Slice returns a copy of rows [from, to).
func (t *Table) Slice(from, to int) *Table {
	out := New(t.columns...)
	for i := from; i < to; i++ {
		out.rows = append(out.rows, append([]interface{}{}, t.rows[i]...))
	}
	return out
}

func (t *Table) Copy() *Table {
	if t == nil {
		return nil
	}
	return t.Slice(0, len(t.rows))
}

// Concat appends other's rows to a copy of t, aligning other's columns
// by name. If t is nil or has no columns, the result adopts other's
// column order. Appending an empty or nil table is a no-op copy.
func (t *Table) Concat(other *Table) (*Table, error) {
	if t == nil || len(t.columns) == 0 {
		if other == nil {
			return New(), nil
		}
		base := other.Copy()
		if t != nil && len(t.rows) > 0 {
			return nil, fmt.Errorf("cannot concat: receiver has rows but no columns")
		}
		return base, nil
	}
	out := t.Copy()
	if other == nil || other.Len() == 0 {
		return out, nil
	}
	if len(other.columns) != len(t.columns) {
		return nil, fmt.Errorf("cannot concat: %d columns vs %d", len(other.columns), len(t.columns))
	}
	indices := make([]int, len(t.columns))
	for k, c := range t.columns {
		j, ok := other.index[c]
		if !ok {
			return nil, fmt.Errorf("cannot concat: missing column %s", c)
		}
		indices[k] = j
	}
	for _, row := range other.rows {
		aligned := make([]interface{}, len(t.columns))
		for k, j := range indices {
			aligned[k] = row[j]
		}
		out.rows = append(out.rows, aligned)
	}
	return out, nil
}

// Filter returns the rows for which keep reports true. Relative order
// is preserved and the result is reindexed contiguously.
func (t *Table) Filter(keep func(i int) bool) *Table {
	out := New(t.columns...)
	for i := range t.rows {
		if keep(i) {
			out.rows = append(out.rows, append([]interface{}{}, t.rows[i]...))
		}
	}
	return out
}

// SameColumnSet reports whether both tables constrain the exact same
// set of columns, independent of order.
func SameColumnSet(a, b *Table) bool {
	if a.NumColumns() != b.NumColumns() {
		return false
	}
	for _, c := range a.columns {
		if !b.HasColumn(c) {
			return false
		}
	}
	return true
}
