package outcome

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/economy-core/internal/common"
)

// fixed всегда возвращает одно и то же значение, прижатое к [0, n).
type fixed int64

func (f fixed) Int64N(n int64) int64 {
	if int64(f) >= n {
		return n - 1
	}
	return int64(f)
}

const (
	alwaysWin  = fixed(0)
	alwaysLose = fixed(9999)
)

func TestParseStrategy(t *testing.T) {
	assert.Equal(t, Conservative, ParseStrategy("conservative"))
	assert.Equal(t, Aggressive, ParseStrategy("aggressive"))
	assert.Equal(t, Balanced, ParseStrategy(""))
	assert.Equal(t, Balanced, ParseStrategy("yolo"))
	assert.Equal(t, StrategyParams{SuccessBP: 5000, YieldBP: 3000}, Strategy("yolo").Params())
}

func TestRobberySuccess(t *testing.T) {
	out, err := ResolveRobbery(alwaysWin, RobberyInput{
		RobberID: "a", TargetID: "b",
		RobberBalance: 100, TargetBalance: 1000,
		Strategy: Aggressive, PenaltyBP: 1000,
	})
	require.NoError(t, err)
	assert.True(t, out.Success)
	assert.Equal(t, int64(500), out.Amount)
	assert.Equal(t, int64(0), out.Penalty)
}

func TestRobberyFailureBurnsPenalty(t *testing.T) {
	out, err := ResolveRobbery(alwaysLose, RobberyInput{
		RobberID: "a", TargetID: "b",
		RobberBalance: 999, TargetBalance: 1000,
		Strategy: Conservative, PenaltyBP: 1000,
	})
	require.NoError(t, err)
	assert.False(t, out.Success)
	assert.Equal(t, int64(0), out.Amount)
	assert.Equal(t, int64(99), out.Penalty)
}

func TestRobberyTargetTooPoor(t *testing.T) {
	_, err := ResolveRobbery(alwaysWin, RobberyInput{
		RobberID: "a", TargetID: "b", TargetBalance: 3, Strategy: Conservative,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrInsufficientFunds))
}

func TestRobberyPreconditions(t *testing.T) {
	_, err := ResolveRobbery(alwaysWin, RobberyInput{RobberID: "a", TargetID: "a"})
	assert.True(t, errors.Is(err, common.ErrInvalidArgument))

	// Телохранитель останавливает ограбление при любой стратегии и любом броске.
	for _, s := range []Strategy{Conservative, Balanced, Aggressive, "unknown"} {
		for _, src := range []Source{alwaysWin, alwaysLose, NewSeeded(1, 2)} {
			_, err := ResolveRobbery(src, RobberyInput{
				RobberID: "a", TargetID: "b", TargetBalance: 1_000_000,
				GuardRemaining: time.Minute, Strategy: s,
			})
			var e *common.Error
			require.True(t, errors.As(err, &e))
			assert.Equal(t, common.KindConflict, e.Kind)
			assert.Equal(t, time.Minute, e.Wait)
		}
	}
}

func TestNextShareSoleClaimant(t *testing.T) {
	share, err := NextShare(NewSeeded(1, 1), 100, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(100), share)
}

func TestNextShareExhausted(t *testing.T) {
	_, err := NextShare(alwaysWin, 100, 100, 0)
	assert.True(t, errors.Is(err, common.ErrConflict))
}

func TestSplitSumsExactly(t *testing.T) {
	src := NewSeeded(42, 7)
	for total := int64(1); total <= 60; total++ {
		for count := 1; int64(count) <= total; count++ {
			var granted int64
			for remaining := count; remaining > 0; remaining-- {
				share, err := NextShare(src, total, granted, remaining)
				require.NoError(t, err)
				require.GreaterOrEqual(t, share, int64(1), "total=%d count=%d", total, count)
				granted += share
				require.GreaterOrEqual(t, total-granted, int64(remaining-1),
					"каждому следующему должна остаться хотя бы единица")
			}
			require.Equal(t, total, granted, "total=%d count=%d", total, count)
		}
	}
}

func TestSplitUpperBound(t *testing.T) {
	// Остаток 10 на 3 доли: среднее 3, верхняя граница min(6, 8) = 6.
	share, err := NextShare(fixed(1<<40), 10, 0, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(6), share)

	// Остаток 3 на 3 доли: всем строго по единице.
	share, err = NextShare(fixed(1<<40), 3, 0, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(1), share)
}

func TestLuckiest(t *testing.T) {
	_, ok := Luckiest(nil)
	assert.False(t, ok)

	best, ok := Luckiest([]Share{{"a", 10}, {"b", 30}, {"c", 30}, {"d", 5}})
	require.True(t, ok)
	assert.Equal(t, "b", best.UserID)
}

func TestYieldRange(t *testing.T) {
	src := NewSeeded(3, 4)
	seen := make(map[int64]bool)
	for i := 0; i < 2000; i++ {
		v := Yield(src, 120, 125)
		require.GreaterOrEqual(t, v, int64(120))
		require.LessOrEqual(t, v, int64(125))
		seen[v] = true
	}
	assert.Len(t, seen, 6)
	assert.Equal(t, int64(7), Yield(src, 7, 7))
}
