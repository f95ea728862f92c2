package farm

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/economy-core/internal/common"
	"serotonyl.ru/economy-core/internal/config"
	"serotonyl.ru/economy-core/internal/cooldown"
	"serotonyl.ru/economy-core/internal/ledger"
	"serotonyl.ru/economy-core/internal/outcome"
)

// Service — ферма игрока. Сначала блокируется строка игрока, затем его участки.
type Service struct {
	store     *ledger.Store
	repo      *Repository
	cfg       *config.Config
	cooldowns cooldown.Durations
	src       outcome.Source
}

// NewService создаёт сервис фермы.
func NewService(store *ledger.Store, repo *Repository, cfg *config.Config, cooldowns cooldown.Durations, src outcome.Source) *Service {
	return &Service{store: store, repo: repo, cfg: cfg, cooldowns: cooldowns, src: src}
}

// LandResult — итог покупки участка.
type LandResult struct {
	Index   int
	Price   int64
	Balance int64
}

// PlantResult — итог посадки.
type PlantResult struct {
	Crop    config.Crop
	Plots   []int
	Cost    int64
	Balance int64
}

// HarvestResult — итог сбора.
type HarvestResult struct {
	Yields  []PlotYield
	Total   int64
	Balance int64
}

// BuyLand покупает следующий участок по лестнице цен.
func (s *Service) BuyLand(ctx context.Context, a ledger.Actor) (*LandResult, error) {
	catalog := s.cfg.Catalog
	var res LandResult
	err := s.store.InTx(ctx, func(tx *ledger.Tx) error {
		p, err := tx.LockOne(ctx, a.ID)
		if err != nil {
			return err
		}
		plots, err := s.repo.LockPlots(ctx, tx, a.ID)
		if err != nil {
			return err
		}
		next := len(plots) + 1
		if next > catalog.Land.MaxPlots {
			return common.LimitExceeded("участки", int64(catalog.Land.MaxPlots), int64(next))
		}

		price := catalog.LandPrice(next)
		if a.Admin {
			price = 0
		}
		if err := (ledger.Delta{Balance: -price}).Apply(p); err != nil {
			return err
		}
		if err := tx.Save(ctx, p); err != nil {
			return err
		}
		if err := s.repo.Insert(ctx, tx, a.ID, next); err != nil {
			return err
		}

		res = LandResult{Index: next, Price: price, Balance: p.Balance}
		if price == 0 {
			return nil
		}
		return tx.Append(ctx, ledger.NewEntry(p, ledger.KindBuyLand, -price, "",
			fmt.Sprintf("покупка участка №%d", next), a.Now))
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// Plant засаживает участок plot (или все свободные при plot == 0) культурой cropName.
func (s *Service) Plant(ctx context.Context, a ledger.Actor, cropName string, plot int) (*PlantResult, error) {
	crop, ok := s.cfg.Catalog.Crop(cropName)
	if !ok {
		return nil, common.InvalidArgument("неизвестная культура %q", cropName)
	}
	if plot < 0 {
		return nil, common.InvalidArgument("некорректный номер участка %d", plot)
	}

	var res PlantResult
	err := s.store.InTx(ctx, func(tx *ledger.Tx) error {
		p, err := tx.LockOne(ctx, a.ID)
		if err != nil {
			return err
		}
		if err := s.cooldowns.Gate(p, cooldown.Plant, a.Now, a.Admin); err != nil {
			return err
		}
		plots, err := s.repo.LockPlots(ctx, tx, a.ID)
		if err != nil {
			return err
		}
		targets, err := Targets(plots, plot)
		if err != nil {
			return err
		}

		cost := crop.SeedPrice * int64(len(targets))
		if a.Admin {
			cost = 0
		}
		if err := (ledger.Delta{Balance: -cost}).Apply(p); err != nil {
			return err
		}
		Sow(targets, crop, a.Now)

		if err := tx.Save(ctx, p); err != nil {
			return err
		}
		if err := s.repo.Save(ctx, tx, targets...); err != nil {
			return err
		}

		res = PlantResult{Crop: crop, Cost: cost, Balance: p.Balance}
		for _, t := range targets {
			res.Plots = append(res.Plots, t.Index)
		}
		if cost == 0 {
			return nil
		}
		return tx.Append(ctx, ledger.NewEntry(p, ledger.KindPlant, -cost, "",
			fmt.Sprintf("посадка %s на %d участк.", crop.Name, len(targets)), a.Now))
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// Harvest собирает все созревшие участки одной записью журнала.
func (s *Service) Harvest(ctx context.Context, a ledger.Actor) (*HarvestResult, error) {
	var res HarvestResult
	err := s.store.InTx(ctx, func(tx *ledger.Tx) error {
		p, err := tx.LockOne(ctx, a.ID)
		if err != nil {
			return err
		}
		if err := s.cooldowns.Gate(p, cooldown.Harvest, a.Now, a.Admin); err != nil {
			return err
		}
		plots, err := s.repo.LockPlots(ctx, tx, a.ID)
		if err != nil {
			return err
		}
		yields, total, err := Reap(s.src, s.cfg.Catalog, plots, a.Now)
		if err != nil {
			return err
		}

		if err := (ledger.Delta{Balance: total}).Apply(p); err != nil {
			return err
		}
		if err := tx.Save(ctx, p); err != nil {
			return err
		}
		harvested := make([]*Plot, 0, len(yields))
		for _, pl := range plots {
			for _, y := range yields {
				if pl.Index == y.Index {
					harvested = append(harvested, pl)
				}
			}
		}
		if err := s.repo.Save(ctx, tx, harvested...); err != nil {
			return err
		}

		res = HarvestResult{Yields: yields, Total: total, Balance: p.Balance}
		return tx.Append(ctx, ledger.NewEntry(p, ledger.KindHarvest, total, "",
			fmt.Sprintf("урожай с %d участк.", len(yields)), a.Now))
	})
	if err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{
		"user_id": a.ID,
		"plots":   len(res.Yields),
		"total":   res.Total,
	}).Debug("Урожай собран")
	return &res, nil
}

// Plots — участки игрока для профиля.
func (s *Service) Plots(ctx context.Context, userID string) ([]*Plot, error) {
	return s.repo.Plots(ctx, userID)
}
