package lease

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLeaseActive(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	assert.False(t, Of(KindJail, nil).Active(now))

	l := Start(KindJail, now, 10*time.Minute)
	assert.True(t, l.Active(now))
	assert.True(t, l.Active(now.Add(9*time.Minute)))
	assert.False(t, l.Active(now.Add(10*time.Minute)), "окончание не включается")
	assert.Equal(t, 4*time.Minute, l.Remaining(now.Add(6*time.Minute)))
	assert.Equal(t, time.Duration(0), l.Remaining(now.Add(time.Hour)))
}

func TestLeaseExtend(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	fresh := Of(KindVIP, nil).Extend(now, 24*time.Hour)
	assert.Equal(t, now.Add(24*time.Hour), *fresh.Until)

	stacked := fresh.Extend(now.Add(time.Hour), 24*time.Hour)
	assert.Equal(t, now.Add(48*time.Hour), *stacked.Until)

	expired := fresh.Extend(now.Add(30*time.Hour), time.Hour)
	assert.Equal(t, now.Add(31*time.Hour), *expired.Until)
	assert.Equal(t, KindVIP, expired.Kind)
}
