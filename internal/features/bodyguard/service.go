// Package bodyguard — найм телохранителя. Пока аренда активна, ограбить игрока нельзя.
package bodyguard

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/economy-core/internal/common"
	"serotonyl.ru/economy-core/internal/config"
	"serotonyl.ru/economy-core/internal/ledger"
	"serotonyl.ru/economy-core/internal/lease"
)

// Service нанимает телохранителей из каталога.
type Service struct {
	store *ledger.Store
	cfg   *config.Config
}

// NewService создаёт сервис.
func NewService(store *ledger.Store, cfg *config.Config) *Service {
	return &Service{store: store, cfg: cfg}
}

// HireResult — итог найма.
type HireResult struct {
	Name    string
	Price   int64
	Until   time.Time
	Balance int64
}

// Assign нанимает охрану на заблокированном игроке. Повторный найм при активной охране запрещён.
func Assign(p *ledger.Player, bg config.Bodyguard, price int64, now time.Time) error {
	if cur := p.Bodyguard(); cur.Active(now) {
		return &common.Error{
			Kind: common.KindConflict,
			Msg:  fmt.Sprintf("у вас уже есть телохранитель %s", p.BodyguardName),
			Wait: cur.Remaining(now),
		}
	}
	if err := (ledger.Delta{Balance: -price}).Apply(p); err != nil {
		return err
	}
	p.BodyguardName = bg.Name
	p.BodyguardUntil = lease.Start(lease.KindBodyguard, now, bg.Duration).Until
	return nil
}

// Hire нанимает телохранителя name. Администраторы не платят.
func (s *Service) Hire(ctx context.Context, a ledger.Actor, name string) (*HireResult, error) {
	bg, ok := s.cfg.Catalog.Bodyguard(name)
	if !ok {
		return nil, common.InvalidArgument("неизвестный телохранитель %q", name)
	}
	price := bg.Price
	if a.Admin {
		price = 0
	}

	var res HireResult
	err := s.store.InTx(ctx, func(tx *ledger.Tx) error {
		p, err := tx.LockOne(ctx, a.ID)
		if err != nil {
			return err
		}
		if err := Assign(p, bg, price, a.Now); err != nil {
			return err
		}
		if err := tx.Save(ctx, p); err != nil {
			return err
		}
		res = HireResult{Name: bg.Name, Price: price, Until: *p.BodyguardUntil, Balance: p.Balance}
		if price == 0 {
			return nil
		}
		return tx.Append(ctx, ledger.NewEntry(p, ledger.KindHireGuard, -price, "",
			fmt.Sprintf("найм телохранителя %s", bg.Name), a.Now))
	})
	if err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{"user_id": a.ID, "bodyguard": bg.Name, "price": price}).Info("Нанят телохранитель")
	return &res, nil
}
