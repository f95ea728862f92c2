package cooldown

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/economy-core/internal/common"
	"serotonyl.ru/economy-core/internal/ledger"
)

var durations = Durations{
	Work: 30 * time.Minute,
	Rob:  time.Hour,
}

func TestCheckAndCommit(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	p := &ledger.Player{UserID: "a"}

	st, err := durations.Check(p, Work, now)
	require.NoError(t, err)
	assert.True(t, st.Ready, "без метки действие готово")

	require.NoError(t, Commit(p, Work, now))
	require.NotNil(t, p.LastWorkAt)

	st, err = durations.Check(p, Work, now.Add(10*time.Minute+300*time.Millisecond))
	require.NoError(t, err)
	assert.False(t, st.Ready)
	assert.Equal(t, 20*time.Minute, st.Remaining, "остаток округляется вверх до секунды")

	st, err = durations.Check(p, Work, now.Add(30*time.Minute))
	require.NoError(t, err)
	assert.True(t, st.Ready)
}

func TestActionsAreIndependent(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	p := &ledger.Player{UserID: "a"}

	require.NoError(t, Commit(p, Rob, now))
	assert.NoError(t, durations.EnsureReady(p, Work, now))

	err := durations.EnsureReady(p, Rob, now.Add(time.Minute))
	require.Error(t, err)
	var e *common.Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, common.KindCooldown, e.Kind)
	assert.Equal(t, 59*time.Minute, e.Wait)
}

func TestGateBypass(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	p := &ledger.Player{UserID: "a"}
	require.NoError(t, Commit(p, Work, now))

	assert.True(t, errors.Is(durations.Gate(p, Work, now.Add(time.Minute), false), common.ErrCooldown))
	require.NoError(t, durations.Gate(p, Work, now.Add(time.Minute), true))
	assert.Equal(t, now.Add(time.Minute), *p.LastWorkAt)
}

func TestUnknownAction(t *testing.T) {
	_, err := durations.Check(&ledger.Player{}, Action("dance"), time.Now())
	assert.True(t, errors.Is(err, common.ErrInvalidArgument))
}
