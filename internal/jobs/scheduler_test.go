package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/economy-core/internal/features/admin"
)

type fakeHouse struct {
	cleanups  int
	snapshots int
	err       error
	panicking bool
}

func (f *fakeHouse) CleanupExpired(ctx context.Context, now time.Time) (*admin.CleanupReport, error) {
	f.cleanups++
	if f.panicking {
		panic("cleanup exploded")
	}
	return &admin.CleanupReport{}, f.err
}

func (f *fakeHouse) Snapshot(ctx context.Context, now time.Time) (*admin.SystemStats, error) {
	f.snapshots++
	return &admin.SystemStats{}, f.err
}

func TestSpecsParse(t *testing.T) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	for _, spec := range []string{CleanupSpec, SnapshotSpec} {
		_, err := parser.Parse(spec)
		require.NoError(t, err, spec)
	}
}

func TestJobsCallHousekeeper(t *testing.T) {
	house := &fakeHouse{err: errors.New("db down")}
	s := NewScheduler(house, "UTC")

	s.Cleanup(context.Background())
	s.Snapshot(context.Background())

	assert.Equal(t, 1, house.cleanups)
	assert.Equal(t, 1, house.snapshots)
}

func TestCleanupRecoversFromPanic(t *testing.T) {
	s := NewScheduler(&fakeHouse{panicking: true}, "UTC")
	assert.NotPanics(t, func() { s.Cleanup(context.Background()) })
}

func TestStartStop(t *testing.T) {
	s := NewScheduler(&fakeHouse{}, "Europe/Moscow")
	require.NoError(t, s.Start(context.Background()))
	assert.Len(t, s.cron.Entries(), 2)
	s.Stop()
}
