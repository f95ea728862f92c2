package work

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/economy-core/internal/common"
	"serotonyl.ru/economy-core/internal/ledger"
	"serotonyl.ru/economy-core/internal/outcome"
)

var now = time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)

func player(id string, balance int64) *ledger.Player {
	return &ledger.Player{
		UserID:          id,
		Nickname:        id,
		Balance:         balance,
		Worth:           100,
		CreditLevel:     1,
		LoanCreditLevel: 1,
		DepositLimit:    10000,
	}
}

func TestEarnFreePlayer(t *testing.T) {
	e := Earn(1000, 1000, 3000, false)
	assert.Equal(t, Earnings{Income: 100, OwnerCut: 0, Net: 100}, e)
}

func TestEarnOwnedPlayerSharesWithOwner(t *testing.T) {
	e := Earn(1000, 1000, 3000, true)
	assert.Equal(t, int64(100), e.Income)
	assert.Equal(t, int64(30), e.OwnerCut)
	assert.Equal(t, int64(70), e.Net)

	// Доля владельца округляется вниз, остаток у работника.
	e = Earn(99, 1000, 3000, true)
	assert.Equal(t, int64(9), e.Income)
	assert.Equal(t, int64(2), e.OwnerCut)
	assert.Equal(t, int64(7), e.Net)
}

func TestTransferFee(t *testing.T) {
	assert.Equal(t, int64(1), TransferFee(1, 100, false), "комиссия округляется вверх")
	assert.Equal(t, int64(10), TransferFee(1000, 100, false))
	assert.Equal(t, int64(11), TransferFee(1001, 100, false))
	assert.Equal(t, int64(0), TransferFee(1000, 100, true))
}

func TestApplyRobberySuccessMovesMoney(t *testing.T) {
	robber, target := player("R", 50), player("T", 1000)
	out := outcome.RobberyOutcome{Strategy: outcome.Balanced, Success: true, Amount: 300}

	require.NoError(t, ApplyRobbery(robber, target, out, 10*time.Minute, now))
	assert.Equal(t, int64(350), robber.Balance)
	assert.Equal(t, int64(700), target.Balance)
	assert.Nil(t, robber.JailUntil)
}

func TestApplyRobberyFailureJailsAndBurns(t *testing.T) {
	robber, target := player("R", 500), player("T", 1000)
	out := outcome.RobberyOutcome{Strategy: outcome.Aggressive, Penalty: 50}

	require.NoError(t, ApplyRobbery(robber, target, out, 10*time.Minute, now))
	assert.Equal(t, int64(450), robber.Balance)
	assert.Equal(t, int64(1000), target.Balance, "штраф цели не достаётся")
	require.NotNil(t, robber.JailUntil)
	assert.Equal(t, now.Add(10*time.Minute), *robber.JailUntil)
	assert.True(t, robber.Jail().Active(now.Add(9*time.Minute)))
	assert.False(t, robber.Jail().Active(now.Add(10*time.Minute)))
}

func TestRobberyEndToEndWithSeededSource(t *testing.T) {
	src := outcome.NewSeeded(1, 2)
	var wins, losses int
	for i := 0; i < 200; i++ {
		robber, target := player("R", 1000), player("T", 1000)
		out, err := outcome.ResolveRobbery(src, outcome.RobberyInput{
			RobberID:      robber.UserID,
			TargetID:      target.UserID,
			RobberBalance: robber.Balance,
			TargetBalance: target.Balance,
			Strategy:      outcome.Conservative,
			PenaltyBP:     1000,
		})
		require.NoError(t, err)
		require.NoError(t, ApplyRobbery(robber, target, out, time.Minute, now))

		if out.Success {
			wins++
			assert.Equal(t, int64(2000), robber.Balance+target.Balance, "при успехе деньги сохраняются")
		} else {
			losses++
			assert.Equal(t, int64(900), robber.Balance)
			assert.Equal(t, int64(1000), target.Balance)
		}
	}
	assert.Greater(t, wins, losses, "консервативная стратегия чаще удачна")
}

func TestRobberyGuardedTargetChangesNothing(t *testing.T) {
	_, err := outcome.ResolveRobbery(outcome.NewSeeded(1, 1), outcome.RobberyInput{
		RobberID:       "R",
		TargetID:       "T",
		RobberBalance:  100,
		TargetBalance:  100,
		GuardRemaining: 5 * time.Minute,
		Strategy:       outcome.Aggressive,
	})
	var e *common.Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, common.KindConflict, e.Kind)
	assert.Equal(t, 5*time.Minute, e.Wait)
}
