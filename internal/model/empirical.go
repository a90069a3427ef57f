package model

import (
	"errors"
	"math/rand"

	"github.com/tssbas/SDV/internal/metadata"
	"github.com/tssbas/SDV/internal/table"
)

// Empirical resamples rows of the fitted data with replacement. It is
// non-parametric: its learned state is the data itself, so parameter
// extraction is not supported.
type Empirical struct {
	meta *metadata.Metadata
	data *table.Table
}

func NewEmpirical(meta *metadata.Metadata) *Empirical {
	return &Empirical{meta: meta}
}

func (e *Empirical) Fit(data *table.Table) error {
	if data == nil || data.Len() == 0 {
		return errors.New("cannot fit on empty data")
	}
	if err := e.meta.Fit(data); err != nil {
		return err
	}
	e.data = data.Copy()
	return nil
}

func (e *Empirical) FittedRows() int {
	return e.data.Len()
}

func (e *Empirical) Generate(rng *rand.Rand, n int, condition map[string]float64) (*table.Table, error) {
	if e.data == nil || e.data.Len() == 0 {
		return nil, errors.New("model is not fitted")
	}

	columns := e.data.Columns()
	out := table.New(columns...)
	for i := 0; i < n; i++ {
		src := e.data.Row(rng.Intn(e.data.Len()))
		row := make([]interface{}, len(columns))
		copy(row, src)
		for j, col := range columns {
			if signal, ok := condition[col+metadata.TransformedSuffix]; ok {
				if native, err := e.meta.DecodeValue(col, signal); err == nil {
					row[j] = native
				}
			}
		}
		if err := out.Append(row); err != nil {
			return nil, err
		}
	}
	return e.meta.Anonymize(out, rng), nil
}
