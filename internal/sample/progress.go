package sample

import (
	"github.com/tssbas/SDV/internal/logging"
)

// ProgressTracker reports cumulative sampling progress. Advancement is
// clamped so it never exceeds the total. A nil tracker is a no-op.
type ProgressTracker struct {
	total  int
	done   int
	logger *logging.Logger
}

func newProgress(total int, logger *logging.Logger) *ProgressTracker {
	return &ProgressTracker{total: total, logger: logger}
}

func (p *ProgressTracker) Add(n int) {
	if p == nil || n <= 0 {
		return
	}
	p.done += n
	if p.done > p.total {
		p.done = p.total
	}
	if p.logger != nil {
		p.logger.Debug("sampled %d/%d rows", p.done, p.total)
	}
}

func (p *ProgressTracker) Done() int {
	if p == nil {
		return 0
	}
	return p.done
}
