package vip

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/economy-core/internal/common"
	"serotonyl.ru/economy-core/internal/config"
	"serotonyl.ru/economy-core/internal/ledger"
)

// MaxBatch — сколько карт можно выпустить за раз.
const MaxBatch = 100

// Service — выпуск и погашение VIP-карт.
type Service struct {
	store *ledger.Store
	repo  *Repository
	cfg   *config.Config
}

// NewService создаёт VIP-сервис.
func NewService(store *ledger.Store, repo *Repository, cfg *config.Config) *Service {
	return &Service{store: store, repo: repo, cfg: cfg}
}

// RedeemResult — итог погашения.
type RedeemResult struct {
	CardType string
	Duration time.Duration
	Until    time.Time
}

// Status — VIP-статус игрока.
type Status struct {
	Active    bool
	Permanent bool // Вечный VIP администратора
	Until     *time.Time
	Remaining time.Duration
}

// Generate выпускает count карт типа cardType. Только для администраторов.
// Для типа "hour" длительность задаётся параметром hours.
func (s *Service) Generate(ctx context.Context, a ledger.Actor, cardType string, hours, count int) ([]Card, error) {
	if !a.Admin {
		return nil, common.PermissionDenied("выпускать VIP-карты может только администратор")
	}
	if count < 1 || count > MaxBatch {
		return nil, common.InvalidArgument("количество карт должно быть от 1 до %d", MaxBatch)
	}
	duration, ok := s.cfg.Catalog.VIPDuration(cardType, hours)
	if !ok {
		return nil, common.InvalidArgument("неизвестный тип карты %q или некорректное число часов", cardType)
	}

	cards := make([]Card, 0, count)
	for i := 0; i < count; i++ {
		code, err := NewCode()
		if err != nil {
			return nil, err
		}
		cards = append(cards, Card{
			Code:      code,
			CardType:  cardType,
			Duration:  duration,
			CreatedBy: a.ID,
			CreatedAt: a.Now,
		})
	}

	err := s.store.InTx(ctx, func(tx *ledger.Tx) error {
		return s.repo.InsertBatch(ctx, tx, cards)
	})
	if err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{
		"admin":     a.ID,
		"card_type": cardType,
		"count":     count,
	}).Info("Выпущены VIP-карты")
	return cards, nil
}

// Redeem погашает карту: продлевает VIP от max(now, vip_until) и помечает карту использованной
// в одной транзакции. Карта блокируется раньше игрока.
func (s *Service) Redeem(ctx context.Context, a ledger.Actor, code string) (*RedeemResult, error) {
	code = NormalizeCode(code)
	var res RedeemResult
	err := s.store.InTx(ctx, func(tx *ledger.Tx) error {
		card, err := s.repo.Lock(ctx, tx, code)
		if err != nil {
			return err
		}
		if card.Used {
			return common.Conflict("карта %s уже использована", code)
		}
		p, err := tx.LockOne(ctx, a.ID)
		if err != nil {
			return err
		}

		p.VIPUntil = p.VIP().Extend(a.Now, card.Duration).Until
		if err := tx.Save(ctx, p); err != nil {
			return err
		}
		if err := s.repo.MarkUsed(ctx, tx, code, a.ID, a.Now); err != nil {
			return err
		}
		res = RedeemResult{CardType: card.CardType, Duration: card.Duration, Until: *p.VIPUntil}
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{"user_id": a.ID, "card_type": res.CardType}).Info("VIP-карта погашена")
	return &res, nil
}

// StatusOf считает VIP-статус без обращения к базе.
func StatusOf(p *ledger.Player, admin, adminPermanent bool, now time.Time) Status {
	if admin && adminPermanent {
		return Status{Active: true, Permanent: true}
	}
	l := p.VIP()
	if !l.Active(now) {
		return Status{}
	}
	return Status{Active: true, Until: l.Until, Remaining: l.Remaining(now)}
}

// Status возвращает VIP-статус игрока.
func (s *Service) Status(ctx context.Context, a ledger.Actor) (*Status, error) {
	p, err := s.store.Get(ctx, a.ID)
	if err != nil {
		return nil, err
	}
	st := StatusOf(p, a.Admin, s.cfg.AdminPermanentVIP, a.Now)
	return &st, nil
}

// CleanupUsed удаляет погашенные карты старше срока хранения.
func (s *Service) CleanupUsed(ctx context.Context, now time.Time) (int64, error) {
	before := now.AddDate(0, 0, -s.cfg.VIPCardRetentionDays)
	return s.repo.DeleteUsedBefore(ctx, before)
}
