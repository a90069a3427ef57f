package model

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/tssbas/SDV/internal/domain"
	"github.com/tssbas/SDV/internal/metadata"
	"github.com/tssbas/SDV/internal/table"
)

type Distribution string

const (
	DistributionGaussian Distribution = "gaussian"
	DistributionKDE      Distribution = "kde"
)

type marginal struct {
	field  domain.Field
	mean   float64
	std    float64
	freqs  []float64
	pTrue  float64
	points []float64
}

// GaussianCopula fits an independent marginal per column: gaussian (or
// kde) for numerical and datetime fields, a frequency table for
// categorical fields. With the gaussian distribution the model is
// parametric and its state can be extracted and restored.
type GaussianCopula struct {
	meta         *metadata.Metadata
	distribution Distribution
	columns      []string
	marginals    map[string]*marginal
	fittedRows   int
}

func NewGaussianCopula(meta *metadata.Metadata, distribution Distribution) *GaussianCopula {
	if distribution == "" {
		distribution = DistributionGaussian
	}
	return &GaussianCopula{
		meta:         meta,
		distribution: distribution,
		marginals:    make(map[string]*marginal),
	}
}

func (g *GaussianCopula) Fit(data *table.Table) error {
	if data == nil || data.Len() == 0 {
		return errors.New("cannot fit on empty data")
	}
	if err := g.meta.Fit(data); err != nil {
		return err
	}

	g.columns = data.Columns()
	g.fittedRows = data.Len()
	fields := g.meta.GetFields()

	for _, col := range g.columns {
		field := fields[col]
		m := &marginal{field: field}

		switch field.Type {
		case domain.FieldTypeCategorical:
			categories := g.meta.Categories(col)
			m.freqs = make([]float64, len(categories))
			for i := 0; i < data.Len(); i++ {
				v, _ := data.Value(i, col)
				if signal, ok := g.meta.EncodeCategory(col, v); ok {
					m.freqs[int(signal)]++
				}
			}
			for i := range m.freqs {
				m.freqs[i] /= float64(data.Len())
			}
		case domain.FieldTypeBoolean:
			trues := 0
			for i := 0; i < data.Len(); i++ {
				if v, _ := data.Value(i, col); v == true {
					trues++
				}
			}
			m.pTrue = float64(trues) / float64(data.Len())
		case domain.FieldTypeID:
			// regenerated downstream, nothing to learn
		default:
			points := make([]float64, 0, data.Len())
			for i := 0; i < data.Len(); i++ {
				v, _ := data.Value(i, col)
				if ts, ok := v.(time.Time); ok {
					points = append(points, float64(ts.Unix()))
				} else if f, ok := metadata.ToFloat64(v); ok {
					points = append(points, f)
				}
			}
			if len(points) == 0 {
				return fmt.Errorf("column %s has no numeric values", col)
			}
			m.mean, m.std = meanStd(points)
			if g.distribution == DistributionKDE {
				m.points = points
			}
		}

		g.marginals[col] = m
	}
	return nil
}

func (g *GaussianCopula) FittedRows() int {
	return g.fittedRows
}

func (g *GaussianCopula) Generate(rng *rand.Rand, n int, condition map[string]float64) (*table.Table, error) {
	if g.fittedRows == 0 {
		return nil, errors.New("model is not fitted")
	}

	out := table.New(g.columns...)
	for i := 0; i < n; i++ {
		row := make([]interface{}, len(g.columns))
		for j, col := range g.columns {
			if signal, ok := condition[col+metadata.TransformedSuffix]; ok {
				native, err := g.meta.DecodeValue(col, signal)
				if err == nil {
					row[j] = native
					continue
				}
			}
			row[j] = g.drawValue(rng, col, int64(i))
		}
		if err := out.Append(row); err != nil {
			return nil, err
		}
	}
	return g.meta.Anonymize(out, rng), nil
}

func (g *GaussianCopula) drawValue(rng *rand.Rand, col string, rowIdx int64) interface{} {
	m := g.marginals[col]
	switch m.field.Type {
	case domain.FieldTypeCategorical:
		idx := weightedChoice(rng, m.freqs)
		categories := g.meta.Categories(col)
		if idx < len(categories) {
			return categories[idx]
		}
		return nil
	case domain.FieldTypeBoolean:
		return rng.Float64() < m.pTrue
	case domain.FieldTypeID:
		if m.field.Subtype == domain.SubtypeString {
			return metadata.RandomUUID(rng)
		}
		return rowIdx
	case domain.FieldTypeDatetime:
		return time.Unix(int64(g.drawFloat(rng, m)), 0).UTC()
	default:
		f := g.drawFloat(rng, m)
		if m.field.Subtype == domain.SubtypeFloat {
			return f
		}
		return int64(math.Round(f))
	}
}

func (g *GaussianCopula) drawFloat(rng *rand.Rand, m *marginal) float64 {
	if g.distribution == DistributionKDE && len(m.points) > 0 {
		bandwidth := m.std / math.Pow(float64(len(m.points)), 0.2)
		return m.points[rng.Intn(len(m.points))] + rng.NormFloat64()*bandwidth
	}
	return rng.NormFloat64()*m.std + m.mean
}

// GetParameters extracts the fitted marginals. Only the gaussian
// distribution is parametric; kde marginals cannot be summarized.
func (g *GaussianCopula) GetParameters() (map[string]interface{}, error) {
	if g.distribution != DistributionGaussian {
		return nil, &CapabilityError{Model: "GaussianCopula", Capability: "parameter extraction with a non-parametric distribution"}
	}
	if g.fittedRows == 0 {
		return nil, errors.New("model is not fitted")
	}

	params := map[string]interface{}{
		"columns":     append([]string{}, g.columns...),
		"fitted_rows": g.fittedRows,
	}
	marginals := make(map[string]interface{}, len(g.marginals))
	for col, m := range g.marginals {
		marginals[col] = map[string]interface{}{
			"mean":   m.mean,
			"std":    m.std,
			"freqs":  append([]float64{}, m.freqs...),
			"p_true": m.pTrue,
		}
	}
	params["marginals"] = marginals
	return params, nil
}

func (g *GaussianCopula) SetParameters(params map[string]interface{}) error {
	columns, ok := params["columns"].([]string)
	if !ok {
		return errors.New("missing 'columns' parameter")
	}
	fittedRows, ok := params["fitted_rows"].(int)
	if !ok {
		return errors.New("missing 'fitted_rows' parameter")
	}
	marginals, ok := params["marginals"].(map[string]interface{})
	if !ok {
		return errors.New("missing 'marginals' parameter")
	}

	fields := g.meta.GetFields()
	g.columns = columns
	g.fittedRows = fittedRows
	g.marginals = make(map[string]*marginal, len(marginals))
	for col, raw := range marginals {
		values, ok := raw.(map[string]interface{})
		if !ok {
			return fmt.Errorf("invalid marginal for column %s", col)
		}
		m := &marginal{field: fields[col]}
		if v, ok := values["mean"].(float64); ok {
			m.mean = v
		}
		if v, ok := values["std"].(float64); ok {
			m.std = v
		}
		if v, ok := values["freqs"].([]float64); ok {
			m.freqs = v
		}
		if v, ok := values["p_true"].(float64); ok {
			m.pTrue = v
		}
		g.marginals[col] = m
	}
	return nil
}

func meanStd(points []float64) (float64, float64) {
	var sum float64
	for _, p := range points {
		sum += p
	}
	mean := sum / float64(len(points))
	var variance float64
	for _, p := range points {
		variance += (p - mean) * (p - mean)
	}
	variance /= float64(len(points))
	return mean, math.Sqrt(variance)
}

func weightedChoice(rng *rand.Rand, weights []float64) int {
	total := 0.0
	for _, w := range weights {
		total += w
	}
	if total == 0 {
		return 0
	}
	r := rng.Float64() * total
	cum := 0.0
	for i, w := range weights {
		cum += w
		if r < cum {
			return i
		}
	}
	return len(weights) - 1
}
