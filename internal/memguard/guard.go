// Package memguard decides whether the process may materialize another array.
// The symbol table calls a Guard synchronously before every allocation; a
// Guard never blocks on I/O.
package memguard

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/zjrosen/symtab/internal/log"
)

// ErrBudgetExceeded is returned when a request would push usage past the limit.
var ErrBudgetExceeded = errors.New("memory budget exceeded")

// Guard checks a requested byte count against a budget.
type Guard interface {
	CheckBudget(bytes int64) error
}

// GuardFunc adapts a function to the Guard interface.
type GuardFunc func(bytes int64) error

// CheckBudget calls f.
func (f GuardFunc) CheckBudget(bytes int64) error { return f(bytes) }

// UsageFunc reports the bytes currently in use.
type UsageFunc func() int64

// Unlimited returns a Guard that accepts every request.
func Unlimited() Guard {
	return GuardFunc(func(int64) error { return nil })
}

// Fixed rejects requests that would take usage above a byte limit.
// The limit may be changed at runtime (config reload).
//
// The limit is soft: CheckBudget reads usage without reserving anything, so
// concurrent requests that each fit can together exceed it.
type Fixed struct {
	limit atomic.Int64
	usage UsageFunc
}

// NewFixed creates a guard with an absolute byte limit.
// A nil usage func counts current usage as zero.
func NewFixed(limit int64, usage UsageFunc) *Fixed {
	if usage == nil {
		usage = func() int64 { return 0 }
	}
	g := &Fixed{usage: usage}
	g.limit.Store(limit)
	return g
}

// NewPercent creates a guard limited to pct percent of physical memory.
func NewPercent(pct float64, usage UsageFunc) (*Fixed, error) {
	limit, err := PercentOfPhysical(pct)
	if err != nil {
		return nil, err
	}
	return NewFixed(limit, usage), nil
}

// PercentOfPhysical converts a percentage to a byte count of physical memory.
func PercentOfPhysical(pct float64) (int64, error) {
	if pct <= 0 || pct > 100 {
		return 0, fmt.Errorf("memory percent must be in (0, 100], got %v", pct)
	}
	total, err := PhysicalMemory()
	if err != nil {
		return 0, err
	}
	return int64(float64(total) * pct / 100), nil
}

// CheckBudget implements Guard.
func (g *Fixed) CheckBudget(bytes int64) error {
	if bytes < 0 {
		return fmt.Errorf("%w: negative request %d", ErrBudgetExceeded, bytes)
	}
	limit := g.limit.Load()
	used := g.usage()
	if bytes > limit-used {
		log.Warn(log.CatMemory, "allocation rejected", "requested", bytes, "used", used, "limit", limit)
		return fmt.Errorf("%w: requested %d bytes with %d of %d in use", ErrBudgetExceeded, bytes, used, limit)
	}
	return nil
}

// Limit returns the current byte limit.
func (g *Fixed) Limit() int64 {
	return g.limit.Load()
}

// SetLimit replaces the byte limit.
func (g *Fixed) SetLimit(limit int64) {
	old := g.limit.Swap(limit)
	if old != limit {
		log.Info(log.CatMemory, "memory limit changed", "old", old, "new", limit)
	}
}
