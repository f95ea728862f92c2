package bodyguard

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/economy-core/internal/common"
	"serotonyl.ru/economy-core/internal/config"
	"serotonyl.ru/economy-core/internal/ledger"
)

func TestAssign(t *testing.T) {
	now := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)
	rookie := config.Bodyguard{Name: "rookie", Price: 500, Duration: 30 * time.Minute}
	p := &ledger.Player{UserID: "u", Balance: 800, CreditLevel: 1, LoanCreditLevel: 1}

	require.NoError(t, Assign(p, rookie, rookie.Price, now))
	assert.Equal(t, int64(300), p.Balance)
	assert.Equal(t, "rookie", p.BodyguardName)
	assert.True(t, p.Bodyguard().Active(now.Add(29*time.Minute)))

	err := Assign(p, rookie, rookie.Price, now.Add(10*time.Minute))
	var e *common.Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, common.KindConflict, e.Kind)
	assert.Equal(t, 20*time.Minute, e.Wait)
	assert.Equal(t, int64(300), p.Balance)

	// После окончания охраны можно нанять снова, но денег уже не хватает.
	err = Assign(p, rookie, rookie.Price, now.Add(30*time.Minute))
	assert.True(t, errors.Is(err, common.ErrInsufficientFunds))

	require.NoError(t, Assign(p, rookie, 0, now.Add(30*time.Minute)))
	assert.Equal(t, now.Add(time.Hour), *p.BodyguardUntil)
}
