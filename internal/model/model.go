package model

import (
	"fmt"
	"math/rand"

	"github.com/tssbas/SDV/internal/table"
)

// Model is the generative capability the sampling engine consumes.
// Generate must return exactly n rows, valid or not; steering by the
// transformed condition (signal-space column name to value) is
// best-effort. Rows come back in native column space.
type Model interface {
	Fit(data *table.Table) error
	Generate(rng *rand.Rand, n int, condition map[string]float64) (*table.Table, error)
	FittedRows() int
}

// Parametric is implemented by models whose learned state can be
// extracted and restored.
type Parametric interface {
	GetParameters() (map[string]interface{}, error)
	SetParameters(params map[string]interface{}) error
}

// CapabilityError reports that a model cannot support the requested
// operation, e.g. parameter extraction from a non-parametric model.
type CapabilityError struct {
	Model      string
	Capability string
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("model %s does not support %s", e.Model, e.Capability)
}

// GetParameters extracts the learned state of m, or fails with a
// CapabilityError when m is not parametric.
func GetParameters(m Model) (map[string]interface{}, error) {
	p, ok := m.(Parametric)
	if !ok {
		return nil, &CapabilityError{Model: fmt.Sprintf("%T", m), Capability: "parameter extraction"}
	}
	return p.GetParameters()
}
