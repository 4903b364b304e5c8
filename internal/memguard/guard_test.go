package memguard

import (
	"math"
	"runtime"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUnlimited_AcceptsEverything(t *testing.T) {
	g := Unlimited()
	require.NoError(t, g.CheckBudget(1<<62))
}

func TestFixed_RejectsOverLimit(t *testing.T) {
	var used atomic.Int64
	used.Store(60)
	g := NewFixed(100, used.Load)

	require.NoError(t, g.CheckBudget(40))

	err := g.CheckBudget(41)
	require.ErrorIs(t, err, ErrBudgetExceeded)
	require.Contains(t, err.Error(), "requested 41 bytes with 60 of 100 in use")
}

func TestFixed_HugeRequestDoesNotWrap(t *testing.T) {
	var used atomic.Int64
	used.Store(10)
	g := NewFixed(100, used.Load)

	require.ErrorIs(t, g.CheckBudget(math.MaxInt64), ErrBudgetExceeded)
	require.ErrorIs(t, g.CheckBudget(math.MaxInt64-5), ErrBudgetExceeded)
}

func TestFixed_NegativeRequest(t *testing.T) {
	g := NewFixed(100, nil)
	require.ErrorIs(t, g.CheckBudget(-1), ErrBudgetExceeded)
}

func TestFixed_SetLimit(t *testing.T) {
	g := NewFixed(10, nil)
	require.Error(t, g.CheckBudget(20))

	g.SetLimit(20)

	require.Equal(t, int64(20), g.Limit())
	require.NoError(t, g.CheckBudget(20))
}

func TestGuardFunc(t *testing.T) {
	var seen int64
	g := GuardFunc(func(n int64) error {
		seen = n
		return nil
	})
	require.NoError(t, g.CheckBudget(7))
	require.Equal(t, int64(7), seen)
}

func TestPercentOfPhysical_Validation(t *testing.T) {
	_, err := PercentOfPhysical(0)
	require.Error(t, err)
	_, err = PercentOfPhysical(150)
	require.Error(t, err)
}

func TestNewPercent_Linux(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("physical memory probe is linux-only")
	}
	g, err := NewPercent(50, nil)
	require.NoError(t, err)

	total, err := PhysicalMemory()
	require.NoError(t, err)
	require.InDelta(t, float64(total)/2, float64(g.Limit()), float64(total)/100)
}
