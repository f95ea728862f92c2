// Package jobs управляет фоновыми задачами (cron).
// scheduler.go настраивает расписание: ежечасная очистка истёкшего
// (возврат красных конвертов, старые VIP-карты, журнал) и ежедневная сводка экономики.
package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/economy-core/internal/common"
	"serotonyl.ru/economy-core/internal/features/admin"
	"serotonyl.ru/economy-core/internal/middleware"
)

// Расписания задач
const (
	CleanupSpec  = "0 * * * *"  // Каждый час
	SnapshotSpec = "30 4 * * *" // Каждый день в 04:30
)

// Housekeeper — то, что планировщик вызывает по расписанию.
type Housekeeper interface {
	CleanupExpired(ctx context.Context, now time.Time) (*admin.CleanupReport, error)
	Snapshot(ctx context.Context, now time.Time) (*admin.SystemStats, error)
}

// Scheduler управляет фоновыми задачами.
type Scheduler struct {
	cron  *cron.Cron
	house Housekeeper
	loc   *time.Location
}

// NewScheduler создаёт планировщик в часовом поясе tz.
func NewScheduler(house Housekeeper, tz string) *Scheduler {
	loc := common.LoadLocation(tz)
	return &Scheduler{
		cron:  cron.New(cron.WithLocation(loc)),
		house: house,
		loc:   loc,
	}
}

// Start регистрирует и запускает все фоновые задачи.
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(CleanupSpec, func() { s.Cleanup(ctx) }); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc(SnapshotSpec, func() { s.Snapshot(ctx) }); err != nil {
		return err
	}

	s.cron.Start()
	log.Infof("Планировщик задач запущен (%s)", s.loc)
	return nil
}

// Cleanup — одна итерация очистки.
func (s *Scheduler) Cleanup(ctx context.Context) {
	defer middleware.RecoverFromPanic("cron.cleanup")

	log.Debug("[CRON] Очистка истёкшего")
	if _, err := s.house.CleanupExpired(ctx, time.Now()); err != nil {
		log.WithError(err).Error("[CRON] Ошибка очистки")
	}
}

// Snapshot — ежедневная сводка.
func (s *Scheduler) Snapshot(ctx context.Context) {
	defer middleware.RecoverFromPanic("cron.snapshot")

	log.Info("[CRON] Ежедневная сводка экономики")
	if _, err := s.house.Snapshot(ctx, time.Now()); err != nil {
		log.WithError(err).Error("[CRON] Ошибка сводки")
	}
}

// Stop останавливает планировщик и ждёт завершения запущенных задач.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info("Планировщик задач остановлен")
}
