package middleware

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"serotonyl.ru/economy-core/internal/common"
)

func TestRecentTracker(t *testing.T) {
	clock := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)
	rt := NewRecentTracker(time.Minute)
	defer rt.Close()
	rt.now = func() time.Time { return clock }

	assert.False(t, rt.Seen("a"))
	rt.Mark("a")
	assert.True(t, rt.Seen("a"))

	clock = clock.Add(59 * time.Second)
	assert.True(t, rt.Seen("a"))

	clock = clock.Add(time.Second)
	assert.False(t, rt.Seen("a"), "запись живёт не дольше ttl")

	rt.Mark("b")
	rt.Forget("b")
	assert.False(t, rt.Seen("b"))

	rt.Mark("c")
	rt.Reset()
	assert.False(t, rt.Seen("c"))
}

func TestRecentTrackerSweep(t *testing.T) {
	clock := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)
	rt := NewRecentTracker(time.Minute)
	defer rt.Close()
	rt.now = func() time.Time { return clock }

	rt.Mark("old")
	clock = clock.Add(2 * time.Minute)
	rt.Mark("new")
	rt.sweep()

	rt.mu.Lock()
	defer rt.mu.Unlock()
	assert.NotContains(t, rt.seen, "old")
	assert.Contains(t, rt.seen, "new")
}

func TestCloseIsIdempotent(t *testing.T) {
	rt := NewRecentTracker(time.Minute)
	rt.Close()
	rt.Close()
}

func TestRecoverFromPanic(t *testing.T) {
	assert.NotPanics(t, func() {
		defer RecoverFromPanic("test")
		panic("boom")
	})
}

func TestLogCallDoesNotPanic(t *testing.T) {
	started := time.Now()
	LogCall("work", "u", started, nil)
	LogCall("work", "u", started, common.Conflict("x"))
	LogCall("work", "u", started, errors.New("db down"))
}
