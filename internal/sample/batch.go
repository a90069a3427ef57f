package sample

import (
	"github.com/tssbas/SDV/internal/sink"
	"github.com/tssbas/SDV/internal/table"
)

// batchGrowthFactor multiplies the per-attempt batch size whenever an
// attempt yields valid rows below the minimum fraction.
const batchGrowthFactor = 10

type batchRequest struct {
	numRows         int
	batchSizePerTry int
	condition       map[string]interface{}
	transformed     map[string]float64
	previousRows    *table.Table
	progress        *ProgressTracker
	out             *sink.CSVSink
}

// sampleBatch is the adaptive rejection-sampling loop. It repeatedly
// asks the generator for candidate rows, keeps the valid ones, and
// adapts the per-attempt batch size: a zero-yield attempt never grows
// the batch (guards against runaway generation when a condition is
// near-impossible), while a below-threshold yield grows it
// geometrically to amortize per-call overhead, capped at
// numRows*MaxRowsMultiplier. The accumulated table is returned as-is,
// possibly short of numRows; shortfall is a return-value signal, never
// an error. Callers truncate with Head.
func (s *Sampler) sampleBatch(req batchRequest) (*table.Table, error) {
	remaining := table.New()
	if req.previousRows != nil {
		remaining = req.previousRows.Copy()
	}

	batchSize := req.batchSizePerTry
	if batchSize <= 0 {
		batchSize = req.numRows
	}
	maxBatch := req.numRows * s.params.MaxRowsMultiplier
	if maxBatch < batchSize {
		maxBatch = batchSize
	}

	written := 0
	flush := func() error {
		if req.out == nil {
			return nil
		}
		upper := remaining.Len()
		if upper > req.numRows {
			upper = req.numRows
		}
		if upper <= written {
			return nil
		}
		if err := req.out.Append(remaining.Slice(written, upper)); err != nil {
			return err
		}
		written = upper
		return nil
	}

	// Carried-over rows from a previous chunk have not been
	// persisted or counted yet.
	if err := flush(); err != nil {
		return nil, err
	}
	req.progress.Add(clampAdvance(0, remaining.Len(), req.numRows))

	for attempt := 0; attempt < s.params.MaxRetries && remaining.Len() < req.numRows; attempt++ {
		prevLen := remaining.Len()

		next, err := s.sampleRows(batchSize, req.condition, req.transformed, remaining)
		if err != nil {
			return nil, err
		}
		remaining = next
		newValid := remaining.Len() - prevLen

		if err := flush(); err != nil {
			return nil, err
		}
		req.progress.Add(clampAdvance(prevLen, remaining.Len(), req.numRows))

		if newValid == 0 {
			s.logger.Debug("attempt %d yielded no valid rows, batch size stays at %d", attempt+1, batchSize)
			continue
		}
		if float64(newValid)/float64(batchSize) < s.params.MinValidFraction {
			grown := batchSize * batchGrowthFactor
			if grown > maxBatch {
				grown = maxBatch
			}
			if grown != batchSize {
				s.logger.Debug("low yield (%d/%d), growing batch size to %d", newValid, batchSize, grown)
				batchSize = grown
			}
		}
	}

	return remaining, nil
}

// sampleRows performs one generator invocation: generate, pin the
// requested condition values over any generator drift, filter to the
// structurally valid subset, and append to the accumulated rows with a
// contiguous index.
func (s *Sampler) sampleRows(n int, condition map[string]interface{}, transformed map[string]float64, previous *table.Table) (*table.Table, error) {
	raw, err := s.model.Generate(s.rng, n, transformed)
	if err != nil {
		return nil, err
	}
	for col, v := range condition {
		raw.SetConstant(col, v)
	}
	valid := s.meta.FilterValid(raw)
	return previous.Concat(valid)
}

// clampAdvance limits progress advancement so the cumulative count
// never exceeds the batch target even when an attempt overshoots.
func clampAdvance(prevLen, newLen, target int) int {
	if prevLen > target {
		prevLen = target
	}
	if newLen > target {
		newLen = target
	}
	return newLen - prevLen
}
