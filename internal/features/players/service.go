// Package players — регистрация, профиль, перезапуск, история и статистика игрока.
package players

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/economy-core/internal/common"
	"serotonyl.ru/economy-core/internal/config"
	"serotonyl.ru/economy-core/internal/features/bank"
	"serotonyl.ru/economy-core/internal/features/farm"
	"serotonyl.ru/economy-core/internal/ledger"
	"serotonyl.ru/economy-core/internal/lease"
	"serotonyl.ru/economy-core/internal/middleware"
)

// Размер страницы истории по умолчанию и максимум
const (
	DefaultHistoryLimit = 10
	MaxHistoryLimit     = 100
)

// Service управляет игроками.
type Service struct {
	store  *ledger.Store
	bank   *bank.Service
	farm   *farm.Service
	cfg    *config.Config
	recent *middleware.RecentTracker
}

// NewService создаёт сервис игроков.
func NewService(store *ledger.Store, bankSvc *bank.Service, farmSvc *farm.Service, cfg *config.Config, recent *middleware.RecentTracker) *Service {
	return &Service{store: store, bank: bankSvc, farm: farmSvc, cfg: cfg, recent: recent}
}

// Profile — всё, что показывается в карточке игрока.
type Profile struct {
	Player          *ledger.Player
	Owner           *ledger.Player
	Owned           []*ledger.Player
	VIP             lease.Lease
	Jail            lease.Lease
	Bodyguard       lease.Lease
	PendingInterest int64 // Проценты по вкладу, которые можно забрать
	LoanInterest    int64 // Начислено по займу при этом чтении
	LoanLimit       int64
	Plots           []*farm.Plot
}

// Register создаёт игрока при первом обращении. Повторный вызов возвращает существующего.
func (s *Service) Register(ctx context.Context, id, nickname, scope string, now time.Time) (*ledger.Player, bool, error) {
	p, created, err := s.store.GetOrCreate(ctx, id, nickname, scope, now)
	if err != nil {
		return nil, false, err
	}
	s.recent.Mark(id)
	return p, created, nil
}

// Ensure — авторегистрация перед любой командой. Недавно зарегистрированных в базе не ищет.
func (s *Service) Ensure(ctx context.Context, id, nickname, scope string, now time.Time) error {
	if s.recent.Seen(id) {
		return nil
	}
	_, _, err := s.Register(ctx, id, nickname, scope, now)
	return err
}

// Forget убирает игрока из кэша недавних регистраций: строки в реестре уже нет
// (например, сброс выполнил другой процесс), и следующий Ensure должен её создать.
func (s *Service) Forget(id string) {
	s.recent.Forget(id)
}

// ForgetRecent очищает кэш недавних регистраций. Нужен после полного сброса данных.
func (s *Service) ForgetRecent() {
	s.recent.Reset()
}

// Profile начисляет проценты по займу и собирает карточку игрока.
func (s *Service) Profile(ctx context.Context, a ledger.Actor) (*Profile, error) {
	var prof Profile
	err := s.store.InTx(ctx, func(tx *ledger.Tx) error {
		p, err := tx.LockOne(ctx, a.ID)
		if err != nil {
			return err
		}
		charged, err := s.bank.SettleLoanTx(ctx, tx, p, a.Now)
		if err != nil {
			return err
		}
		prof.Player = p
		prof.LoanInterest = charged
		return nil
	})
	if err != nil {
		return nil, err
	}

	p := prof.Player
	if p.Owned() {
		owner, err := s.store.Get(ctx, *p.OwnerID)
		if err != nil && common.KindOf(err) != common.KindNotFound {
			return nil, err
		}
		prof.Owner = owner
	}
	if prof.Owned, err = s.store.OwnedBy(ctx, p.UserID); err != nil {
		return nil, err
	}
	if prof.Plots, err = s.farm.Plots(ctx, p.UserID); err != nil {
		return nil, err
	}

	prof.VIP = p.VIP()
	prof.Jail = p.Jail()
	prof.Bodyguard = p.Bodyguard()
	prof.PendingInterest = bank.PendingInterest(p, s.cfg, a.Now)
	prof.LoanLimit = bank.LoanLimit(s.cfg.LoanBaseLimit, s.cfg.LoanLevelBonus, p.LoanCreditLevel)
	return &prof, nil
}

// Reset возвращает числа игрока к начальным: баланс, вклад, долг, цена, кредитный уровень,
// свобода от владельца, VIP и перезарядки. Тюрьма, охрана и участки остаются.
// Возвращает изменение баланса.
func Reset(p *ledger.Player, cfg *config.Config, now time.Time) int64 {
	diff := cfg.InitialBalance - p.Balance

	p.Balance = cfg.InitialBalance
	p.Deposit = 0
	p.DepositLimit = cfg.InitialDepositLimit
	p.CreditLevel = 1
	p.LoanBalance = 0
	p.Worth = cfg.InitialWorth
	p.OwnerID = nil
	p.OwnedAt = nil
	p.VIPUntil = nil
	p.LastWorkAt = nil
	p.LastRobAt = nil
	p.LastTransferAt = nil
	p.LastBuyAt = nil
	p.LastPlantAt = nil
	p.LastHarvestAt = nil
	p.LastInterestAt = common.TimePtr(now)
	p.LastLoanInterestAt = common.TimePtr(now)
	return diff
}

// Restart — игрок начинает заново.
func (s *Service) Restart(ctx context.Context, a ledger.Actor) (*ledger.Player, error) {
	var out *ledger.Player
	err := s.store.InTx(ctx, func(tx *ledger.Tx) error {
		p, err := tx.LockOne(ctx, a.ID)
		if err != nil {
			return err
		}
		diff := Reset(p, s.cfg, a.Now)
		if err := tx.Save(ctx, p); err != nil {
			return err
		}
		out = p
		if diff == 0 {
			return nil
		}
		return tx.Append(ctx, ledger.NewEntry(p, ledger.KindSystem, diff, "", "перезапуск игры", a.Now))
	})
	if err != nil {
		return nil, err
	}
	log.WithField("user_id", a.ID).Info("Игрок начал заново")
	return out, nil
}

// History — последние записи журнала игрока.
func (s *Service) History(ctx context.Context, a ledger.Actor, limit int) ([]ledger.Entry, error) {
	switch {
	case limit <= 0:
		limit = DefaultHistoryLimit
	case limit > MaxHistoryLimit:
		return nil, common.InvalidArgument("слишком большой лимит истории (максимум %d)", MaxHistoryLimit)
	}
	entries, err := s.store.History(ctx, a.ID, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения истории: %w", err)
	}
	return entries, nil
}

// Statistics — доходы и расходы игрока по типам операций.
func (s *Service) Statistics(ctx context.Context, a ledger.Actor) (*ledger.Statistics, error) {
	return s.store.Statistics(ctx, a.ID)
}
