package targets

import (
	"github.com/tssbas/SDV/internal/table"
)

// Target is a database destination for sampled tables.
type Target interface {
	Connect() error
	Close() error
	EnsureTable(name string, t *table.Table) error
	InsertTable(name string, t *table.Table) error
}
