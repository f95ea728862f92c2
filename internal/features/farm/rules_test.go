package farm

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/economy-core/internal/common"
	"serotonyl.ru/economy-core/internal/config"
	"serotonyl.ru/economy-core/internal/outcome"
)

var now = time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)

var wheat = config.Crop{Name: "wheat", SeedPrice: 100, GrowTime: 5 * time.Minute, MinYield: 120, MaxYield: 180}

func testCatalog() *config.Catalog {
	return &config.Catalog{
		Crops: []config.Crop{wheat},
		Land:  config.Land{MaxPlots: 3, Prices: []int64{0, 1000}, DefaultPrice: 5000},
	}
}

func plots(n int) []*Plot {
	out := make([]*Plot, n)
	for i := range out {
		out[i] = &Plot{UserID: "u", Index: i + 1}
	}
	return out
}

func TestTargets(t *testing.T) {
	_, err := Targets(nil, 0)
	assert.True(t, errors.Is(err, common.ErrNotFound))

	ps := plots(3)
	ps[1].CropType = "wheat"

	all, err := Targets(ps, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	one, err := Targets(ps, 3)
	require.NoError(t, err)
	require.Len(t, one, 1)
	assert.Equal(t, 3, one[0].Index)

	_, err = Targets(ps, 2)
	assert.True(t, errors.Is(err, common.ErrConflict))

	_, err = Targets(ps, 9)
	assert.True(t, errors.Is(err, common.ErrNotFound))

	ps[0].CropType, ps[2].CropType = "wheat", "wheat"
	_, err = Targets(ps, 0)
	assert.True(t, errors.Is(err, common.ErrConflict))
}

func TestSowAndRipen(t *testing.T) {
	ps := plots(2)
	Sow(ps, wheat, now)

	for _, p := range ps {
		assert.Equal(t, "wheat", p.CropType)
		assert.Equal(t, now.Add(5*time.Minute), *p.HarvestAt)
		assert.False(t, p.Ripe(now.Add(4*time.Minute)))
		assert.True(t, p.Ripe(now.Add(5*time.Minute)))
	}
}

func TestReapNotPlanted(t *testing.T) {
	_, _, err := Reap(outcome.NewSeeded(1, 1), testCatalog(), plots(2), now)
	assert.True(t, errors.Is(err, common.ErrNotFound))
}

func TestReapNotRipeReportsWait(t *testing.T) {
	ps := plots(2)
	Sow(ps[:1], wheat, now)

	_, _, err := Reap(outcome.NewSeeded(1, 1), testCatalog(), ps, now.Add(3*time.Minute+500*time.Millisecond))
	var e *common.Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, common.KindConflict, e.Kind)
	assert.Equal(t, 2*time.Minute, e.Wait)
	assert.Equal(t, "wheat", ps[0].CropType, "незрелый участок не очищается")
}

func TestReapHarvestsOnlyRipePlots(t *testing.T) {
	ps := plots(3)
	Sow(ps[:2], wheat, now)
	late := wheat
	late.GrowTime = time.Hour
	Sow(ps[2:], late, now)

	yields, total, err := Reap(outcome.NewSeeded(3, 4), testCatalog(), ps, now.Add(10*time.Minute))
	require.NoError(t, err)
	require.Len(t, yields, 2)

	var sum int64
	for _, y := range yields {
		assert.GreaterOrEqual(t, y.Amount, wheat.MinYield)
		assert.LessOrEqual(t, y.Amount, wheat.MaxYield)
		sum += y.Amount
	}
	assert.Equal(t, sum, total)
	assert.True(t, ps[0].Empty())
	assert.True(t, ps[1].Empty())
	assert.False(t, ps[2].Empty())
}
