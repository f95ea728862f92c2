package redpacket

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/economy-core/internal/outcome"
)

func TestNewPacketID(t *testing.T) {
	re := regexp.MustCompile(`^RP[0-9A-F]{8}$`)
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := NewPacketID()
		assert.Regexp(t, re, id)
		assert.False(t, seen[id])
		seen[id] = true
	}
}

func TestFee(t *testing.T) {
	assert.Equal(t, int64(50), Fee(1000, 500, false))
	assert.Equal(t, int64(1), Fee(1, 500, false), "округление вверх")
	assert.Equal(t, int64(0), Fee(1000, 500, true))
}

func TestPacketState(t *testing.T) {
	now := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)
	pk := &Packet{TotalAmount: 100, TotalCount: 3, Remaining: 3, ExpiresAt: now.Add(time.Hour)}

	assert.False(t, pk.Expired(now))
	assert.True(t, pk.Expired(now.Add(time.Hour)), "на границе конверт уже истёк")
	assert.False(t, pk.Exhausted())
	assert.Equal(t, int64(100), pk.Unclaimed())

	pk.Remaining, pk.ClaimedAmount = 0, 100
	assert.True(t, pk.Exhausted())
	assert.Equal(t, int64(0), pk.Unclaimed())
}

// Полный розыгрыш конверта теми же шагами, что делает Grab под блокировкой.
func TestDrainPacketConservesAmount(t *testing.T) {
	src := outcome.NewSeeded(7, 11)
	pk := &Packet{ID: "RP1", TotalAmount: 1000, TotalCount: 7, Remaining: 7}

	var grabs []Grab
	for !pk.Exhausted() {
		share, err := outcome.NextShare(src, pk.TotalAmount, pk.ClaimedAmount, pk.Remaining)
		require.NoError(t, err)
		require.GreaterOrEqual(t, share, int64(1))
		pk.Remaining--
		pk.ClaimedAmount += share
		grabs = append(grabs, Grab{PacketID: pk.ID, UserID: string(rune('a' + len(grabs))), Amount: share})
	}

	var sum int64
	for _, g := range grabs {
		sum += g.Amount
	}
	assert.Equal(t, int64(1000), sum)
	assert.Equal(t, int64(0), pk.Unclaimed())

	best, ok := outcome.Luckiest(toShares(grabs))
	require.True(t, ok)
	for _, g := range grabs {
		assert.LessOrEqual(t, g.Amount, best.Amount)
	}

	_, err := outcome.NextShare(src, pk.TotalAmount, pk.ClaimedAmount, pk.Remaining)
	assert.Error(t, err, "разобранный конверт больше не выдаёт долей")
}
