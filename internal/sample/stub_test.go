package sample

import (
	"math/rand"
	"testing"

	"github.com/tssbas/SDV/internal/domain"
	"github.com/tssbas/SDV/internal/logging"
	"github.com/tssbas/SDV/internal/metadata"
	"github.com/tssbas/SDV/internal/table"
)

type generateCall struct {
	n         int
	condition map[string]float64
}

// stubModel returns canned values for its columns; every generated row
// repeats the same cells, so tests control validity entirely through
// the stub metadata's filter.
type stubModel struct {
	columns []string
	cells   []interface{}
	calls   []generateCall
}

func (m *stubModel) Generate(rng *rand.Rand, n int, condition map[string]float64) (*table.Table, error) {
	m.calls = append(m.calls, generateCall{n: n, condition: condition})
	out := table.New(m.columns...)
	for i := 0; i < n; i++ {
		out.Append(append([]interface{}{}, m.cells...))
	}
	return out, nil
}

type stubMeta struct {
	fields    map[string]domain.Field
	transform func(t *table.Table) *table.Table
	filter    func(t *table.Table) *table.Table
}

func (m *stubMeta) GetFields() map[string]domain.Field {
	return m.fields
}

func (m *stubMeta) Transform(t *table.Table, onMissing metadata.OnMissingColumn) (*table.Table, error) {
	if m.transform == nil {
		return table.New(), nil
	}
	return m.transform(t), nil
}

func (m *stubMeta) FilterValid(t *table.Table) *table.Table {
	if m.filter == nil {
		return t.Copy()
	}
	return m.filter(t)
}

func (m *stubMeta) MakeIDsUnique(t *table.Table, rng *rand.Rand) (*table.Table, error) {
	return t, nil
}

// keepEvery keeps one of every k rows, a deterministic stand-in for a
// generator with yield probability 1/k.
func keepEvery(k int) func(t *table.Table) *table.Table {
	return func(t *table.Table) *table.Table {
		return t.Filter(func(i int) bool { return i%k == 0 })
	}
}

func rejectAll(t *table.Table) *table.Table {
	return t.Filter(func(int) bool { return false })
}

func fieldsFor(names ...string) map[string]domain.Field {
	fields := make(map[string]domain.Field, len(names))
	for _, name := range names {
		fields[name] = domain.Field{Name: name, Type: domain.FieldTypeCategorical}
	}
	return fields
}

func newTestSampler(t *testing.T, model Generator, meta Metadata, params Params) *Sampler {
	t.Helper()
	return NewSampler(model, meta, logging.NewLogger("error"), params)
}

func mustColumn(t *testing.T, tbl *table.Table, name string) []interface{} {
	t.Helper()
	col := tbl.Column(name)
	if col == nil {
		t.Fatalf("missing column %s, have %v", name, tbl.Columns())
	}
	return col
}
