package model

import (
	"fmt"
	"sync"

	"github.com/tssbas/SDV/internal/metadata"
)

type Factory func(meta *metadata.Metadata) Model

type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

func (r *Registry) Register(name string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
}

func (r *Registry) New(name string, meta *metadata.Metadata) (Model, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("model not found: %s", name)
	}
	return f(meta), nil
}

func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	return names
}

func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register("copula", func(meta *metadata.Metadata) Model {
		return NewGaussianCopula(meta, DistributionGaussian)
	})
	r.Register("copula_kde", func(meta *metadata.Metadata) Model {
		return NewGaussianCopula(meta, DistributionKDE)
	})
	r.Register("empirical", func(meta *metadata.Metadata) Model {
		return NewEmpirical(meta)
	})
	return r
}
