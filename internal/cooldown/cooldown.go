// Package cooldown — перезарядки действий. Для каждой пары (игрок, действие)
// хранится метка последнего использования прямо в строке реестра.
// Разные действия одного игрока друг друга не блокируют.
package cooldown

import (
	"context"
	"time"

	"serotonyl.ru/economy-core/internal/common"
	"serotonyl.ru/economy-core/internal/config"
	"serotonyl.ru/economy-core/internal/ledger"
)

// Action — действие с перезарядкой.
type Action string

const (
	Work     Action = "work"
	Rob      Action = "rob"
	Transfer Action = "transfer"
	Buy      Action = "buy"
	Plant    Action = "plant"
	Harvest  Action = "harvest"
)

var actionNames = map[Action]string{
	Work:     "работа",
	Rob:      "ограбление",
	Transfer: "перевод",
	Buy:      "покупка",
	Plant:    "посадка",
	Harvest:  "сбор урожая",
}

// stamp возвращает поле игрока, в котором хранится метка действия.
func stamp(p *ledger.Player, a Action) (**time.Time, bool) {
	switch a {
	case Work:
		return &p.LastWorkAt, true
	case Rob:
		return &p.LastRobAt, true
	case Transfer:
		return &p.LastTransferAt, true
	case Buy:
		return &p.LastBuyAt, true
	case Plant:
		return &p.LastPlantAt, true
	case Harvest:
		return &p.LastHarvestAt, true
	}
	return nil, false
}

// Status — готово ли действие и сколько ждать (вверх до целых секунд).
type Status struct {
	Ready     bool
	Remaining time.Duration
}

// Durations — длительности перезарядок по действиям.
type Durations map[Action]time.Duration

// FromConfig собирает длительности из конфигурации.
func FromConfig(cfg *config.Config) Durations {
	return Durations{
		Work:     cfg.CooldownWork,
		Rob:      cfg.CooldownRob,
		Transfer: cfg.CooldownTransfer,
		Buy:      cfg.CooldownBuy,
		Plant:    cfg.CooldownPlant,
		Harvest:  cfg.CooldownHarvest,
	}
}

// Check сравнивает прошедшее с последнего действия время с длительностью перезарядки.
func (d Durations) Check(p *ledger.Player, a Action, now time.Time) (Status, error) {
	field, ok := stamp(p, a)
	if !ok {
		return Status{}, common.InvalidArgument("неизвестное действие %q", a)
	}
	last := *field
	if last == nil {
		return Status{Ready: true}, nil
	}
	elapsed := now.Sub(*last)
	if elapsed >= d[a] {
		return Status{Ready: true}, nil
	}
	remaining := time.Duration(common.CeilSeconds(d[a]-elapsed)) * time.Second
	return Status{Ready: false, Remaining: remaining}, nil
}

// EnsureReady возвращает Cooldown-ошибку с оставшимся временем, если действие не готово.
func (d Durations) EnsureReady(p *ledger.Player, a Action, now time.Time) error {
	st, err := d.Check(p, a, now)
	if err != nil {
		return err
	}
	if !st.Ready {
		return common.Cooldown(actionNames[a], st.Remaining)
	}
	return nil
}

// Commit ставит метку действия в now.
func Commit(p *ledger.Player, a Action, now time.Time) error {
	field, ok := stamp(p, a)
	if !ok {
		return common.InvalidArgument("неизвестное действие %q", a)
	}
	*field = common.TimePtr(now)
	return nil
}

// Gate — проверка и отметка в одном вызове. bypass пропускает проверку
// (решает вызывающий, например для администраторов), но метка ставится всегда.
func (d Durations) Gate(p *ledger.Player, a Action, now time.Time, bypass bool) error {
	if !bypass {
		if err := d.EnsureReady(p, a, now); err != nil {
			return err
		}
	}
	return Commit(p, a, now)
}

// Service — перезарядки поверх реестра для вызовов вне операций.
type Service struct {
	store     *ledger.Store
	durations Durations
}

// NewService создаёт сервис перезарядок.
func NewService(store *ledger.Store, durations Durations) *Service {
	return &Service{store: store, durations: durations}
}

// Check читает метку из реестра.
func (s *Service) Check(ctx context.Context, id string, a Action, now time.Time) (Status, error) {
	p, err := s.store.Get(ctx, id)
	if err != nil {
		return Status{}, err
	}
	return s.durations.Check(p, a, now)
}
