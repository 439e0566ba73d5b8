package goalloop

import "time"

// BudgetTracker enforces the combined iteration-count and wall-clock limits
// bounding a session. The controller checks it at the start of every tick,
// before any external call is issued; an action already in flight is allowed
// to finish or be cancelled by the session deadline.
type BudgetTracker struct {
	maxIterations int
	timeout       time.Duration
	start         time.Time
	used          int
	time          TimeProvider
}

// NewBudgetTracker creates a tracker for one session. The start timestamp is
// taken from the provider at construction.
func NewBudgetTracker(cfg Config, tp TimeProvider) *BudgetTracker {
	if tp == nil {
		tp = NewDefaultTimeProvider()
	}
	return &BudgetTracker{
		maxIterations: cfg.MaxIterations,
		timeout:       cfg.Timeout(),
		start:         tp.Now(),
		time:          tp,
	}
}

// RecordIteration consumes one iteration from the budget and returns its
// 1-based index.
func (b *BudgetTracker) RecordIteration() int {
	b.used++
	return b.used
}

// Used returns the number of iterations consumed.
func (b *BudgetTracker) Used() int {
	return b.used
}

// RemainingIterations returns how many iterations are left, never negative.
func (b *BudgetTracker) RemainingIterations() int {
	remaining := b.maxIterations - b.used
	if remaining < 0 {
		return 0
	}
	return remaining
}

// TimeRemaining returns how much wall-clock budget is left, never negative.
func (b *BudgetTracker) TimeRemaining() time.Duration {
	remaining := b.timeout - b.time.Now().Sub(b.start)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Expired reports whether either limit is exhausted.
func (b *BudgetTracker) Expired() bool {
	return b.RemainingIterations() == 0 || b.TimeRemaining() == 0
}
