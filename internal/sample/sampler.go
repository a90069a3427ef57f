package sample

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/tssbas/SDV/internal/domain"
	"github.com/tssbas/SDV/internal/logging"
	"github.com/tssbas/SDV/internal/metadata"
	"github.com/tssbas/SDV/internal/sink"
	"github.com/tssbas/SDV/internal/table"
)

// Seed used whenever a caller asks for reproducible output. It is
// installed for the duration of one top-level call and restored
// afterwards so it never leaks into unrelated calls.
const fixedRNGSeed = 73251

// TmpFileName is the output file auto-created when no explicit path is
// given. It is removed on success and kept when an error propagates,
// so failed runs stay debuggable.
const TmpFileName = ".sample.csv.temp"

// Generator is the slice of the model capability the engine consumes:
// produce exactly n candidate rows, optionally steered by a
// signal-space condition. Rows may be invalid or drift off-condition.
type Generator interface {
	Generate(rng *rand.Rand, n int, condition map[string]float64) (*table.Table, error)
}

// Metadata is the schema capability consumed by the engine.
type Metadata interface {
	GetFields() map[string]domain.Field
	Transform(t *table.Table, onMissing metadata.OnMissingColumn) (*table.Table, error)
	FilterValid(t *table.Table) *table.Table
	MakeIDsUnique(t *table.Table, rng *rand.Rand) (*table.Table, error)
}

// Params tune the rejection-sampling loop.
type Params struct {
	// MaxRetries caps generator invocations per batch target.
	MaxRetries int
	// MaxRowsMultiplier caps the per-attempt batch size at
	// target rows times this factor.
	MaxRowsMultiplier int
	// MinValidFraction is the per-attempt yield below which the
	// batch size is grown geometrically.
	MinValidFraction float64
}

func DefaultParams() Params {
	return Params{
		MaxRetries:        100,
		MaxRowsMultiplier: 10,
		MinValidFraction:  0.01,
	}
}

// Sampler turns the underlying row generator into a reliable supplier
// of exactly N valid, condition-satisfying rows. All exported entry
// points serialize on an internal mutex: the random state swap, the
// sampling loop, and the restore form one critical section.
type Sampler struct {
	mu     sync.Mutex
	model  Generator
	meta   Metadata
	logger *logging.Logger
	params Params
	rng    *rand.Rand
}

func NewSampler(model Generator, meta Metadata, logger *logging.Logger, params Params) *Sampler {
	if params.MaxRetries <= 0 {
		params.MaxRetries = DefaultParams().MaxRetries
	}
	if params.MaxRowsMultiplier <= 0 {
		params.MaxRowsMultiplier = DefaultParams().MaxRowsMultiplier
	}
	if params.MinValidFraction <= 0 {
		params.MinValidFraction = DefaultParams().MinValidFraction
	}
	return &Sampler{
		model:  model,
		meta:   meta,
		logger: logger,
		params: params,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// setRandomState installs the randomness policy for one top-level
// call. With fixed=true a fresh fixed-seed source replaces the
// evolving one and the returned restore puts the evolving source back.
// With fixed=false the evolving source keeps advancing across calls.
func (s *Sampler) setRandomState(fixed bool) func() {
	if !fixed {
		return func() {}
	}
	prev := s.rng
	s.rng = rand.New(rand.NewSource(fixedRNGSeed))
	return func() { s.rng = prev }
}

// SampleOptions configure unconditional sampling.
type SampleOptions struct {
	// NumRows must point at a positive row count. A nil pointer is
	// the distinct "must specify" usage error.
	NumRows *int
	// BatchSize splits the request into progress-reported chunks.
	// Zero means one chunk of NumRows.
	BatchSize int
	// FixedSeed makes the call reproducible; leftover state never
	// leaks into later calls.
	FixedSeed bool
	// OutputFilePath receives sampled rows incrementally. Empty
	// selects an auto-created temp file removed on success.
	OutputFilePath string
}

// ConditionOptions configure the conditional entry points.
type ConditionOptions struct {
	// BatchSizePerTry overrides the initial per-attempt batch size.
	// Zero means the target row count of each sub-batch.
	BatchSizePerTry int
	// GracefulReject returns partial results silently instead of
	// failing when a condition cannot be fully satisfied.
	GracefulReject bool
	FixedSeed      bool
	OutputFilePath string
}

// Sample produces numRows unconditioned rows, optionally split into
// batch-size chunks. Valid rows a chunk produced beyond its target
// seed the next chunk so no generation work is wasted.
func (s *Sampler) Sample(opts SampleOptions) (*table.Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if opts.NumRows == nil {
		return nil, &UsageError{Msg: "you must specify the number of rows to sample (e.g. num_rows=100)"}
	}
	numRows := *opts.NumRows
	if numRows <= 0 {
		return nil, &UsageError{Msg: fmt.Sprintf("invalid number of rows %d, use a positive integer", numRows)}
	}

	restore := s.setRandomState(opts.FixedSeed)
	defer restore()

	outputPath, autoCreated, err := s.validateFilePath(opts.OutputFilePath)
	if err != nil {
		return nil, err
	}
	out := sink.NewCSVSink(outputPath)
	defer out.Close()

	batchSize := opts.BatchSize
	if batchSize <= 0 || batchSize > numRows {
		batchSize = numRows
	}

	s.logger.Info("sampling %d rows in batches of %d", numRows, batchSize)
	progress := newProgress(numRows, s.logger)

	sampled := table.New()
	var leftover *table.Table
	for sampled.Len() < numRows {
		target := batchSize
		if remaining := numRows - sampled.Len(); remaining < target {
			target = remaining
		}
		accumulated, err := s.sampleBatch(batchRequest{
			numRows:         target,
			batchSizePerTry: batchSize,
			previousRows:    leftover,
			progress:        progress,
			out:             out,
		})
		if err != nil {
			return nil, err
		}
		kept := accumulated.Head(target)
		if kept.Len() == 0 {
			break
		}
		leftover = accumulated.Slice(kept.Len(), accumulated.Len())
		if sampled, err = sampled.Concat(kept); err != nil {
			return nil, err
		}
	}

	// Batches number their synthetic ids independently, so the
	// concatenation can carry duplicates.
	unique, err := s.meta.MakeIDsUnique(sampled, s.rng)
	if err != nil {
		return nil, fmt.Errorf("failed to make ids unique: %w", err)
	}

	if autoCreated {
		if err := out.Remove(); err != nil {
			s.logger.Warn("failed to remove temp output file %s: %v", outputPath, err)
		}
	}
	return unique, nil
}

// SampleConditions produces rows satisfying the given conditions,
// concatenated in input order.
func (s *Sampler) SampleConditions(conditions []Condition, opts ConditionOptions) (*table.Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	groups, err := BuildConditionTables(conditions)
	if err != nil {
		return nil, err
	}
	return s.sampleGroups(groups, opts)
}

// SampleRemainingColumns fills in all non-specified columns around the
// fixed values given in knownColumns: each row is one condition
// instance.
func (s *Sampler) SampleRemainingColumns(knownColumns *table.Table, opts ConditionOptions) (*table.Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if knownColumns == nil || knownColumns.Len() == 0 {
		return nil, &UsageError{Msg: "you must provide at least one row of known column values"}
	}
	return s.sampleGroups([]*table.Table{knownColumns.Copy()}, opts)
}

func (s *Sampler) sampleGroups(groups []*table.Table, opts ConditionOptions) (*table.Table, error) {
	total := 0
	for _, group := range groups {
		if err := s.validateConditions(group); err != nil {
			return nil, err
		}
		total += group.Len()
	}

	restore := s.setRandomState(opts.FixedSeed)
	defer restore()

	outputPath, autoCreated, err := s.validateFilePath(opts.OutputFilePath)
	if err != nil {
		return nil, err
	}
	out := sink.NewCSVSink(outputPath)
	defer out.Close()

	progress := newProgress(total, s.logger)

	sampled := table.New()
	for _, group := range groups {
		groupRows, err := s.sampleWithConditions(group, opts, progress, out)
		if err != nil {
			return nil, err
		}
		if sampled, err = sampled.Concat(groupRows); err != nil {
			return nil, err
		}
	}

	if sampled.Len() == 0 {
		first := map[string]interface{}{}
		if len(groups) > 0 && groups[0].Len() > 0 {
			first = groups[0].RowMap(0)
		}
		return nil, &ShortfallError{Condition: first, Requested: total, Sampled: 0}
	}

	if autoCreated {
		if err := out.Remove(); err != nil {
			s.logger.Warn("failed to remove temp output file %s: %v", outputPath, err)
		}
	}
	return sampled, nil
}

// sampleWithConditions drives one condition group end to end:
// transform into signal space with drop semantics, partition into
// distinct value sub-batches, rejection-sample each, then restore the
// caller's row order and regenerate identifier columns.
func (s *Sampler) sampleWithConditions(group *table.Table, opts ConditionOptions, progress *ProgressTracker, out *sink.CSVSink) (*table.Table, error) {
	transformed, err := s.meta.Transform(group, metadata.OnMissingColumnDrop)
	if err != nil {
		return nil, fmt.Errorf("failed to transform conditions: %w", err)
	}

	parts := partitionConditions(group, transformed)

	type chunk struct {
		rows *table.Table
		idx  []int
	}
	var chunks []chunk
	for _, p := range parts {
		rows, err := s.conditionallySampleRows(p, opts, progress, out)
		if err != nil {
			return nil, err
		}
		if rows.Len() > 0 {
			chunks = append(chunks, chunk{rows: rows, idx: p.indices[:rows.Len()]})
		}
	}
	if len(chunks) == 0 {
		return table.New(), nil
	}

	// Restore the original condition-row order across sub-batches.
	type indexed struct {
		idx   int
		chunk int
		row   int
	}
	var order []indexed
	for ci, c := range chunks {
		for ri := 0; ri < c.rows.Len(); ri++ {
			order = append(order, indexed{idx: c.idx[ri], chunk: ci, row: ri})
		}
	}
	sort.SliceStable(order, func(a, b int) bool { return order[a].idx < order[b].idx })

	// Sub-batch column orders can diverge, so align by name.
	merged := table.New(chunks[0].rows.Columns()...)
	for _, o := range order {
		merged.AppendMap(chunks[o.chunk].rows.RowMap(o.row))
	}

	unique, err := s.meta.MakeIDsUnique(merged, s.rng)
	if err != nil {
		return nil, fmt.Errorf("failed to make ids unique: %w", err)
	}
	return unique, nil
}

// conditionPart is one sub-batch of a condition group: the rows whose
// transformed signal is identical, merged with their counts summed.
type conditionPart struct {
	indices     []int
	condition   map[string]interface{}
	transformed map[string]float64
}

// partitionConditions splits a condition group into sub-batches by
// distinct transformed value, preserving first-seen order. When the
// transformed signal has no columns every sub-batch degrades to
// unconditioned generation, partitioned by native value instead.
func partitionConditions(group, transformed *table.Table) []conditionPart {
	byTransformed := transformed.NumColumns() > 0
	keySource := group
	if byTransformed {
		keySource = transformed
	}

	var parts []conditionPart
	byKey := make(map[string]int)
	for i := 0; i < group.Len(); i++ {
		key := rowKey(keySource, i)
		idx, ok := byKey[key]
		if !ok {
			idx = len(parts)
			byKey[key] = idx
			part := conditionPart{condition: group.RowMap(i)}
			if byTransformed {
				part.transformed = make(map[string]float64)
				for col, v := range transformed.RowMap(i) {
					if f, ok := metadata.ToFloat64(v); ok {
						part.transformed[col] = f
					}
				}
			}
			parts = append(parts, part)
		}
		parts[idx].indices = append(parts[idx].indices, i)
	}
	return parts
}

// rowKey canonicalizes a row's values so that numerically equal values
// of different types (0 vs 0.0) partition together.
func rowKey(t *table.Table, i int) string {
	key := ""
	for _, col := range t.Columns() {
		v, _ := t.Value(i, col)
		if f, ok := metadata.ToFloat64(v); ok {
			key += fmt.Sprintf("%s=%g\x00", col, f)
		} else {
			key += fmt.Sprintf("%s=%v\x00", col, v)
		}
	}
	return key
}

func (s *Sampler) conditionallySampleRows(p conditionPart, opts ConditionOptions, progress *ProgressTracker, out *sink.CSVSink) (*table.Table, error) {
	numRows := len(p.indices)
	accumulated, err := s.sampleBatch(batchRequest{
		numRows:         numRows,
		batchSizePerTry: opts.BatchSizePerTry,
		condition:       p.condition,
		transformed:     p.transformed,
		progress:        progress,
		out:             out,
	})
	if err != nil {
		return nil, err
	}

	sampled := accumulated.Head(numRows)
	if sampled.Len() < numRows && !opts.GracefulReject {
		return nil, &ShortfallError{Condition: p.condition, Requested: numRows, Sampled: sampled.Len()}
	}
	if sampled.Len() < numRows {
		s.logger.Warn("sampled only %d of %d rows for condition %s",
			sampled.Len(), numRows, formatCondition(p.condition))
	}
	return sampled, nil
}

// validateConditions rejects condition columns absent from the schema
// before any generation work begins.
func (s *Sampler) validateConditions(group *table.Table) error {
	fields := s.meta.GetFields()
	for _, col := range group.Columns() {
		if _, ok := fields[col]; !ok {
			return &UsageError{Msg: fmt.Sprintf(
				"unexpected column name `%s`, use a column name that was present in the original data", col)}
		}
	}
	return nil
}

// validateFilePath resolves the output path, failing fast when an
// explicit target already exists. A stale auto-created temp file from
// an earlier failed run is replaced.
func (s *Sampler) validateFilePath(path string) (string, bool, error) {
	if path == "" {
		if _, err := os.Stat(TmpFileName); err == nil {
			if err := os.Remove(TmpFileName); err != nil {
				return "", false, err
			}
		}
		return TmpFileName, true, nil
	}
	if _, err := os.Stat(path); err == nil {
		abs, absErr := filepath.Abs(path)
		if absErr != nil {
			abs = path
		}
		return "", false, &PreexistingOutputError{Path: abs}
	}
	return path, false, nil
}
