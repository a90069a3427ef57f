package sample

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/tssbas/SDV/internal/sink"
	"github.com/tssbas/SDV/internal/table"
)

// A first attempt with zero valid rows followed by a full second
// attempt must produce the requested rows in exactly two generator
// invocations.
func TestSampleBatch_ZeroValidThenFull(t *testing.T) {
	model := &stubModel{columns: []string{"column1"}, cells: []interface{}{"a"}}
	call := 0
	meta := &stubMeta{
		fields: fieldsFor("column1"),
		filter: func(tbl *table.Table) *table.Table {
			call++
			if call == 1 {
				return rejectAll(tbl)
			}
			return tbl.Copy()
		},
	}
	s := newTestSampler(t, model, meta, Params{})

	out, err := s.sampleBatch(batchRequest{numRows: 5})
	if err != nil {
		t.Fatal(err)
	}
	if out.Len() != 5 {
		t.Fatalf("expected 5 rows, got %d", out.Len())
	}
	if len(model.calls) != 2 {
		t.Fatalf("expected 2 generator invocations, got %d", len(model.calls))
	}
}

func TestSampleBatch_NeverExceedsTarget(t *testing.T) {
	model := &stubModel{columns: []string{"column1"}, cells: []interface{}{"a"}}
	s := newTestSampler(t, model, &stubMeta{fields: fieldsFor("column1")}, Params{})

	out, err := s.sampleBatch(batchRequest{numRows: 3, batchSizePerTry: 10})
	if err != nil {
		t.Fatal(err)
	}
	sampled := out.Head(3)
	if sampled.Len() != 3 {
		t.Fatalf("expected truncation to 3 rows, got %d", sampled.Len())
	}
}

func TestSampleBatch_PreviousRowsSeedTheResult(t *testing.T) {
	model := &stubModel{columns: []string{"column1"}, cells: []interface{}{"new"}}
	s := newTestSampler(t, model, &stubMeta{fields: fieldsFor("column1")}, Params{})

	previous, err := table.FromRows([]string{"column1"}, [][]interface{}{{"old"}, {"old"}, {"old"}})
	if err != nil {
		t.Fatal(err)
	}

	out, err := s.sampleBatch(batchRequest{numRows: 5, batchSizePerTry: 2, previousRows: previous})
	if err != nil {
		t.Fatal(err)
	}
	sampled := out.Head(5)
	if sampled.Len() != 5 {
		t.Fatalf("expected 5 rows, got %d", sampled.Len())
	}

	column := mustColumn(t, sampled, "column1")
	want := []interface{}{"old", "old", "old", "new", "new"}
	for i, v := range want {
		if column[i] != v {
			t.Fatalf("row %d: expected %v, got %v", i, v, column[i])
		}
	}
}

func TestSampleBatch_ZeroYieldNeverGrowsBatchSize(t *testing.T) {
	model := &stubModel{columns: []string{"column1"}, cells: []interface{}{"a"}}
	meta := &stubMeta{fields: fieldsFor("column1"), filter: rejectAll}
	s := newTestSampler(t, model, meta, Params{MaxRetries: 4})

	out, err := s.sampleBatch(batchRequest{numRows: 5, batchSizePerTry: 10})
	if err != nil {
		t.Fatal(err)
	}
	if out.Len() != 0 {
		t.Fatalf("expected no rows, got %d", out.Len())
	}
	if len(model.calls) != 4 {
		t.Fatalf("expected the full retry budget of 4 calls, got %d", len(model.calls))
	}
	for i, call := range model.calls {
		if call.n != 10 {
			t.Fatalf("call %d requested %d rows, batch size must not grow on zero yield", i, call.n)
		}
	}
}

func TestSampleBatch_LowYieldGrowsBatchSizeGeometrically(t *testing.T) {
	model := &stubModel{columns: []string{"column1"}, cells: []interface{}{"a"}}
	meta := &stubMeta{fields: fieldsFor("column1"), filter: keepEvery(10)}
	s := newTestSampler(t, model, meta, Params{MinValidFraction: 0.5, MaxRowsMultiplier: 10})

	_, err := s.sampleBatch(batchRequest{numRows: 20, batchSizePerTry: 10})
	if err != nil {
		t.Fatal(err)
	}
	if len(model.calls) < 2 {
		t.Fatalf("expected at least 2 calls, got %d", len(model.calls))
	}
	if model.calls[0].n != 10 {
		t.Fatalf("first call requested %d rows, want 10", model.calls[0].n)
	}
	if model.calls[1].n != 100 {
		t.Fatalf("second call requested %d rows, want geometric growth to 100", model.calls[1].n)
	}
	for _, call := range model.calls {
		if call.n > 20*10 {
			t.Fatalf("batch size %d exceeds the target*multiplier cap", call.n)
		}
	}
}

func TestSampleBatch_BudgetExhaustionReturnsPartialWithoutError(t *testing.T) {
	model := &stubModel{columns: []string{"column1"}, cells: []interface{}{"a"}}
	call := 0
	meta := &stubMeta{
		fields: fieldsFor("column1"),
		filter: func(tbl *table.Table) *table.Table {
			call++
			if call == 1 {
				return tbl.Head(2)
			}
			return rejectAll(tbl)
		},
	}
	s := newTestSampler(t, model, meta, Params{MaxRetries: 3})

	out, err := s.sampleBatch(batchRequest{numRows: 5, batchSizePerTry: 5})
	if err != nil {
		t.Fatal(err)
	}
	if out.Len() != 2 {
		t.Fatalf("expected the 2 accumulated rows, got %d", out.Len())
	}
}

// Three successive non-empty writes into an initially empty sink must
// produce one header line followed by all rows in accumulation order.
func TestSampleBatch_SinkHeaderWrittenOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")

	model := &stubModel{columns: []string{"column1"}, cells: []interface{}{"a"}}
	meta := &stubMeta{fields: fieldsFor("column1")}
	s := newTestSampler(t, model, meta, Params{})

	out := sink.NewCSVSink(path)
	for i := 0; i < 3; i++ {
		if _, err := s.sampleBatch(batchRequest{numRows: 2, out: out}); err != nil {
			t.Fatal(err)
		}
	}
	if err := out.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 7 {
		t.Fatalf("expected 1 header + 6 rows, got %d lines: %q", len(lines), lines)
	}
	if lines[0] != "column1" {
		t.Fatalf("expected header first, got %q", lines[0])
	}
	for i, line := range lines[1:] {
		if line != "a" {
			t.Fatalf("row %d: expected \"a\", got %q", i, line)
		}
	}
}

func TestSampleBatch_SinkReceivesOnlyRowsWithinTarget(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")

	model := &stubModel{columns: []string{"column1"}, cells: []interface{}{"a"}}
	s := newTestSampler(t, model, &stubMeta{fields: fieldsFor("column1")}, Params{})

	out := sink.NewCSVSink(path)
	if _, err := s.sampleBatch(batchRequest{numRows: 3, batchSizePerTry: 10, out: out}); err != nil {
		t.Fatal(err)
	}
	if err := out.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 1 header + 3 rows, got %d lines", len(lines))
	}
}

func TestSampleBatch_ProgressClampedToTarget(t *testing.T) {
	model := &stubModel{columns: []string{"column1"}, cells: []interface{}{"a"}}
	s := newTestSampler(t, model, &stubMeta{fields: fieldsFor("column1")}, Params{})

	progress := newProgress(3, nil)
	if _, err := s.sampleBatch(batchRequest{numRows: 3, batchSizePerTry: 10, progress: progress}); err != nil {
		t.Fatal(err)
	}
	if progress.Done() != 3 {
		t.Fatalf("expected progress clamped to 3, got %d", progress.Done())
	}
}

// Convergence and truncation exactness over arbitrary yields: with a
// yield fraction bounded away from zero the loop returns exactly the
// target; it never overshoots.
func TestSampleBatch_ConvergenceProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("returns exactly the target within the retry budget", prop.ForAll(
		func(target, keepOneOf int) bool {
			model := &stubModel{columns: []string{"column1"}, cells: []interface{}{"a"}}
			meta := &stubMeta{fields: fieldsFor("column1"), filter: keepEvery(keepOneOf)}
			s := newTestSampler(t, model, meta, Params{})

			out, err := s.sampleBatch(batchRequest{numRows: target})
			if err != nil {
				return false
			}
			return out.Head(target).Len() == target
		},
		gen.IntRange(1, 50),
		gen.IntRange(1, 5),
	))

	properties.Property("zero yield returns fewer rows without error", prop.ForAll(
		func(target int) bool {
			model := &stubModel{columns: []string{"column1"}, cells: []interface{}{"a"}}
			meta := &stubMeta{fields: fieldsFor("column1"), filter: rejectAll}
			s := newTestSampler(t, model, meta, Params{MaxRetries: 5})

			out, err := s.sampleBatch(batchRequest{numRows: target})
			return err == nil && out.Len() == 0
		},
		gen.IntRange(1, 50),
	))

	properties.TestingRun(t)
}
