// Package market — рынок игроков: покупка, освобождение, выкуп и перехват.
// pricing.go содержит чистые переходы состояния Free ↔ Owned над уже заблокированными строками;
// service.go оборачивает их в транзакции.
package market

import (
	"time"

	"serotonyl.ru/economy-core/internal/common"
	"serotonyl.ru/economy-core/internal/config"
	"serotonyl.ru/economy-core/internal/ledger"
)

// Pricing — множители рынка в базисных пунктах.
type Pricing struct {
	BuyWorthBP           int64 // Рост цены после покупки
	RansomPriceBP        int64 // Цена выкупа от цены игрока
	SnatchPriceBP        int64 // Цена перехвата
	SnatchCompensationBP int64 // Компенсация прежнему владельцу
	SnatchWorthBP        int64 // Рост цены после перехвата
}

// PricingFromConfig собирает множители из конфигурации.
func PricingFromConfig(cfg *config.Config) Pricing {
	return Pricing{
		BuyWorthBP:           cfg.BuyWorthBP,
		RansomPriceBP:        cfg.RansomPriceBP,
		SnatchPriceBP:        cfg.SnatchPriceBP,
		SnatchCompensationBP: cfg.SnatchCompensationBP,
		SnatchWorthBP:        cfg.SnatchWorthBP,
	}
}

// Deal — итог сделки.
type Deal struct {
	Price        int64 // Полная цена
	Charged      int64 // Реально списано (0 для администратора)
	Compensation int64 // Выплата прежнему владельцу (перехват) или владельцу (выкуп)
	OldWorth     int64
	NewWorth     int64
}

// Buy: свободный игрок переходит покупателю. Администратор не платит.
func (pr Pricing) Buy(buyer, target *ledger.Player, admin bool, now time.Time) (Deal, error) {
	if buyer.UserID == target.UserID {
		return Deal{}, common.InvalidArgument("нельзя купить самого себя")
	}
	if target.Owned() {
		return Deal{}, common.Conflict("игрок %s уже принадлежит другому", target.UserID)
	}
	if buyer.OwnedBy(target.UserID) {
		return Deal{}, common.Conflict("нельзя купить своего владельца")
	}

	newWorth, err := common.MulBPChecked("цена игрока", target.Worth, pr.BuyWorthBP)
	if err != nil {
		return Deal{}, err
	}
	d := Deal{Price: target.Worth, OldWorth: target.Worth, NewWorth: newWorth}
	if !admin {
		d.Charged = d.Price
	}
	if err := (ledger.Delta{Balance: -d.Charged}).Apply(buyer); err != nil {
		return Deal{}, err
	}

	target.OwnerID = &buyer.UserID
	target.OwnedAt = common.TimePtr(now)
	target.Worth = newWorth
	return d, nil
}

// Release: владелец отпускает игрока. Денег не двигает.
func Release(owner, target *ledger.Player) error {
	if !target.Owned() {
		return common.Conflict("игрок %s и так свободен", target.UserID)
	}
	if !target.OwnedBy(owner.UserID) {
		return common.PermissionDenied("отпустить может только владелец")
	}
	target.OwnerID = nil
	target.OwnedAt = nil
	return nil
}

// Ransom: игрок выкупает себя у владельца за floor(worth × RansomPriceBP).
// Деньги переходят владельцу в той же атомарной единице.
func (pr Pricing) Ransom(slave, owner *ledger.Player) (Deal, error) {
	if !slave.Owned() {
		return Deal{}, common.Conflict("вы и так свободны")
	}
	if !slave.OwnedBy(owner.UserID) {
		return Deal{}, common.Conflict("владелец изменился, повторите попытку")
	}

	price, err := common.MulBPChecked("цена выкупа", slave.Worth, pr.RansomPriceBP)
	if err != nil {
		return Deal{}, err
	}
	players := map[string]*ledger.Player{slave.UserID: slave, owner.UserID: owner}
	err = ledger.ApplyAll(players, map[string]ledger.Delta{
		slave.UserID: {Balance: -price},
		owner.UserID: {Balance: price},
	})
	if err != nil {
		return Deal{}, err
	}
	slave.OwnerID = nil
	slave.OwnedAt = nil
	return Deal{Price: price, Charged: price, Compensation: price, OldWorth: slave.Worth, NewWorth: slave.Worth}, nil
}

// Snatch: принудительный перехват чужого игрока. Перехватчик платит
// floor(worth × SnatchPriceBP) (администратор — бесплатно), прежний владелец
// получает компенсацию floor(worth × SnatchCompensationBP) в любом случае.
func (pr Pricing) Snatch(snatcher, target, prevOwner *ledger.Player, admin bool, now time.Time) (Deal, error) {
	if snatcher.UserID == target.UserID {
		return Deal{}, common.InvalidArgument("нельзя перехватить самого себя")
	}
	if !target.Owned() {
		return Deal{}, common.Conflict("игрок %s свободен, используйте покупку", target.UserID)
	}
	if target.OwnedBy(snatcher.UserID) {
		return Deal{}, common.Conflict("игрок %s уже ваш", target.UserID)
	}
	if !target.OwnedBy(prevOwner.UserID) {
		return Deal{}, common.Conflict("владелец изменился, повторите попытку")
	}
	if snatcher.OwnedBy(target.UserID) {
		return Deal{}, common.Conflict("нельзя перехватить своего владельца")
	}

	var d Deal
	var err error
	d.OldWorth = target.Worth
	if d.Price, err = common.MulBPChecked("цена перехвата", target.Worth, pr.SnatchPriceBP); err != nil {
		return Deal{}, err
	}
	if d.Compensation, err = common.MulBPChecked("компенсация", target.Worth, pr.SnatchCompensationBP); err != nil {
		return Deal{}, err
	}
	if d.NewWorth, err = common.MulBPChecked("цена игрока", target.Worth, pr.SnatchWorthBP); err != nil {
		return Deal{}, err
	}
	if !admin {
		d.Charged = d.Price
	}

	players := map[string]*ledger.Player{snatcher.UserID: snatcher, prevOwner.UserID: prevOwner}
	err = ledger.ApplyAll(players, map[string]ledger.Delta{
		snatcher.UserID:  {Balance: -d.Charged},
		prevOwner.UserID: {Balance: d.Compensation},
	})
	if err != nil {
		return Deal{}, err
	}

	target.OwnerID = &snatcher.UserID
	target.OwnedAt = common.TimePtr(now)
	target.Worth = d.NewWorth
	return d, nil
}
