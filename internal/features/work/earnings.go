// Package work — работа, работа в тюрьме, ограбление и переводы между игроками.
package work

import (
	"time"

	"serotonyl.ru/economy-core/internal/common"
	"serotonyl.ru/economy-core/internal/ledger"
	"serotonyl.ru/economy-core/internal/lease"
	"serotonyl.ru/economy-core/internal/outcome"
)

// Earnings — заработок за одну смену.
type Earnings struct {
	Income   int64 // floor(worth × workRate)
	OwnerCut int64 // Доля владельца
	Net      int64 // Достаётся работнику
}

// Earn считает доход смены. У свободного игрока доля владельца нулевая.
func Earn(worth, workRateBP, ownerShareBP int64, owned bool) Earnings {
	income := common.MulBP(worth, workRateBP)
	e := Earnings{Income: income, Net: income}
	if owned {
		e.OwnerCut = common.MulBP(income, ownerShareBP)
		e.Net -= e.OwnerCut
	}
	return e
}

// TransferFee — комиссия перевода, округление вверх. Администраторы и VIP не платят.
func TransferFee(amount, feeBP int64, waived bool) int64 {
	if waived {
		return 0
	}
	return common.MulBPCeil(amount, feeBP)
}

// ApplyRobbery применяет итог ограбления к заблокированным строкам.
// Успех: добыча переходит от цели к грабителю. Провал: штраф сгорает, грабитель садится в тюрьму.
func ApplyRobbery(robber, target *ledger.Player, out outcome.RobberyOutcome, jail time.Duration, now time.Time) error {
	if out.Success {
		return ledger.ApplyAll(
			map[string]*ledger.Player{robber.UserID: robber, target.UserID: target},
			map[string]ledger.Delta{
				robber.UserID: {Balance: out.Amount},
				target.UserID: {Balance: -out.Amount},
			},
		)
	}
	if err := (ledger.Delta{Balance: -out.Penalty}).Apply(robber); err != nil {
		return err
	}
	robber.JailUntil = lease.Start(lease.KindJail, now, jail).Until
	return nil
}
