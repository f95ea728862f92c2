// Package market — service.go выполняет сделки в транзакциях.
// Если владелец цели заранее неизвестен, он читается без блокировки, затем все участники
// блокируются в порядке user_id и условие перепроверяется уже под блокировкой.
package market

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/economy-core/internal/common"
	"serotonyl.ru/economy-core/internal/config"
	"serotonyl.ru/economy-core/internal/cooldown"
	"serotonyl.ru/economy-core/internal/ledger"
)

// Service управляет рынком игроков.
type Service struct {
	store     *ledger.Store
	cfg       *config.Config
	pricing   Pricing
	cooldowns cooldown.Durations
}

// NewService создаёт сервис рынка.
func NewService(store *ledger.Store, cfg *config.Config, cooldowns cooldown.Durations) *Service {
	return &Service{
		store:     store,
		cfg:       cfg,
		pricing:   PricingFromConfig(cfg),
		cooldowns: cooldowns,
	}
}

// DealResult — итог сделки для вызывающего слоя.
type DealResult struct {
	Deal
	TargetID      string
	PrevOwnerID   string
	Balance       int64 // Баланс инициатора после сделки
	TargetBalance int64
}

// Buy покупает свободного игрока.
func (s *Service) Buy(ctx context.Context, a ledger.Actor, targetID string) (*DealResult, error) {
	var res DealResult
	err := s.store.InTx(ctx, func(tx *ledger.Tx) error {
		locked, err := tx.Lock(ctx, a.ID, targetID)
		if err != nil {
			return err
		}
		buyer, target := locked[a.ID], locked[targetID]
		if err := s.cooldowns.Gate(buyer, cooldown.Buy, a.Now, a.Admin); err != nil {
			return err
		}

		deal, err := s.pricing.Buy(buyer, target, a.Admin, a.Now)
		if err != nil {
			return err
		}
		if err := tx.SaveAll(ctx, buyer, target); err != nil {
			return err
		}
		res = DealResult{Deal: deal, TargetID: targetID, Balance: buyer.Balance, TargetBalance: target.Balance}
		if deal.Charged == 0 {
			return nil
		}
		return tx.Append(ctx, ledger.NewEntry(buyer, ledger.KindBuyPlayer, -deal.Charged, targetID,
			fmt.Sprintf("покупка игрока %s", target.Nickname), a.Now))
	})
	if err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{
		"buyer":  a.ID,
		"target": targetID,
		"price":  res.Charged,
	}).Info("Игрок куплен")
	return &res, nil
}

// Release отпускает своего игрока на свободу.
func (s *Service) Release(ctx context.Context, a ledger.Actor, targetID string) (*DealResult, error) {
	var res DealResult
	err := s.store.InTx(ctx, func(tx *ledger.Tx) error {
		locked, err := tx.Lock(ctx, a.ID, targetID)
		if err != nil {
			return err
		}
		owner, target := locked[a.ID], locked[targetID]
		if err := Release(owner, target); err != nil {
			return err
		}
		res = DealResult{TargetID: targetID, PrevOwnerID: a.ID, Balance: owner.Balance, TargetBalance: target.Balance}
		res.OldWorth, res.NewWorth = target.Worth, target.Worth
		return tx.Save(ctx, target)
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// Ransom — игрок выкупает себя у владельца.
func (s *Service) Ransom(ctx context.Context, a ledger.Actor) (*DealResult, error) {
	current, err := s.store.Get(ctx, a.ID)
	if err != nil {
		return nil, err
	}
	if !current.Owned() {
		return nil, common.Conflict("вы и так свободны")
	}
	ownerID := *current.OwnerID

	var res DealResult
	err = s.store.InTx(ctx, func(tx *ledger.Tx) error {
		locked, err := tx.Lock(ctx, a.ID, ownerID)
		if err != nil {
			return err
		}
		slave, owner := locked[a.ID], locked[ownerID]
		deal, err := s.pricing.Ransom(slave, owner)
		if err != nil {
			return err
		}
		if err := tx.SaveAll(ctx, slave, owner); err != nil {
			return err
		}
		res = DealResult{Deal: deal, TargetID: a.ID, PrevOwnerID: ownerID, Balance: slave.Balance, TargetBalance: owner.Balance}
		return tx.Append(ctx,
			ledger.NewEntry(slave, ledger.KindRansom, -deal.Price, ownerID, "выкуп на свободу", a.Now),
			ledger.NewEntry(owner, ledger.KindRansom, deal.Price, a.ID, fmt.Sprintf("выкуп от %s", slave.Nickname), a.Now),
		)
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// Snatch перехватывает чужого игрока.
func (s *Service) Snatch(ctx context.Context, a ledger.Actor, targetID string) (*DealResult, error) {
	if a.ID == targetID {
		return nil, common.InvalidArgument("нельзя перехватить самого себя")
	}
	current, err := s.store.Get(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if !current.Owned() {
		return nil, common.Conflict("игрок %s свободен, используйте покупку", targetID)
	}
	prevOwnerID := *current.OwnerID
	if prevOwnerID == a.ID {
		return nil, common.Conflict("игрок %s уже ваш", targetID)
	}

	var res DealResult
	err = s.store.InTx(ctx, func(tx *ledger.Tx) error {
		locked, err := tx.Lock(ctx, a.ID, targetID, prevOwnerID)
		if err != nil {
			return err
		}
		snatcher, target, prevOwner := locked[a.ID], locked[targetID], locked[prevOwnerID]
		if err := s.cooldowns.Gate(snatcher, cooldown.Buy, a.Now, a.Admin); err != nil {
			return err
		}

		deal, err := s.pricing.Snatch(snatcher, target, prevOwner, a.Admin, a.Now)
		if err != nil {
			return err
		}
		if err := tx.SaveAll(ctx, snatcher, target, prevOwner); err != nil {
			return err
		}
		res = DealResult{Deal: deal, TargetID: targetID, PrevOwnerID: prevOwnerID, Balance: snatcher.Balance, TargetBalance: target.Balance}

		var entries []ledger.Entry
		if deal.Charged > 0 {
			entries = append(entries, ledger.NewEntry(snatcher, ledger.KindSnatch, -deal.Charged, targetID,
				fmt.Sprintf("перехват игрока %s", target.Nickname), a.Now))
		}
		if deal.Compensation > 0 {
			entries = append(entries, ledger.NewEntry(prevOwner, ledger.KindSnatch, deal.Compensation, a.ID,
				fmt.Sprintf("компенсация за перехват %s", target.Nickname), a.Now))
		}
		return tx.Append(ctx, entries...)
	})
	if err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{
		"snatcher":   a.ID,
		"target":     targetID,
		"prev_owner": prevOwnerID,
		"price":      res.Charged,
	}).Info("Игрок перехвачен")
	return &res, nil
}

// List — свободные игроки по убыванию цены, опционально только из одного чата.
func (s *Service) List(ctx context.Context, scope string, limit int) ([]*ledger.Player, error) {
	if limit <= 0 || limit > s.cfg.MarketListLimit {
		limit = s.cfg.MarketListLimit
	}
	return s.store.ListFree(ctx, scope, limit)
}

// Rankings — рейтинг по цене, активам или числу игроков во владении.
func (s *Service) Rankings(ctx context.Context, by ledger.RankBy, limit int) ([]ledger.RankRow, error) {
	switch by {
	case ledger.RankWorth, ledger.RankAssets, ledger.RankOwned:
	default:
		return nil, common.InvalidArgument("неизвестный рейтинг %q", by)
	}
	if limit <= 0 || limit > s.cfg.MarketListLimit {
		limit = s.cfg.MarketListLimit
	}
	return s.store.Rank(ctx, by, limit)
}
